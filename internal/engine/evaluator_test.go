package engine

import (
	"testing"

	"github.com/SamyaDeb/FarmerShield/internal/models"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func f(v float64) *float64 { return &v }

func createTestObservation(temp, rain, humidity, wind *float64) *models.Observation {
	return &models.Observation{
		ID:          "obs-test-1",
		Latitude:    10.8,
		Longitude:   106.6,
		Temperature: temp,
		Rainfall:    rain,
		Humidity:    humidity,
		WindSpeed:   wind,
		MeasuredAt:  1757000000,
		Source:      "openweather",
		DataQuality: models.DataQualityGood,
	}
}

// ============================================================================
// TEST SUITE 1: THRESHOLD EVALUATION
// ============================================================================

func TestEvaluateThresholds_NoBreachWithinBounds(t *testing.T) {
	obs := createTestObservation(f(30), f(80), f(60), f(10))
	cfg := &models.ThresholdConfig{
		Temperature: &models.MetricBound{Min: f(5), Max: f(40)},
		Rainfall:    &models.MetricBound{Min: f(50), Max: f(200)},
	}

	results := EvaluateThresholds(obs, cfg)

	assert.Len(t, results, 2)
	assert.False(t, results[models.MetricTemperature].Exceeded)
	assert.False(t, results[models.MetricRainfall].Exceeded)
	assert.Equal(t, models.SeverityNormal, results[models.MetricTemperature].Severity)
}

func TestEvaluateThresholds_MinBoundBreach(t *testing.T) {
	// Rainfall 20mm against a 50mm minimum: deviation |20-50|/50 = 0.6 > 0.5.
	obs := createTestObservation(nil, f(20), nil, nil)
	cfg := &models.ThresholdConfig{
		Rainfall: &models.MetricBound{Min: f(50)},
	}

	results := EvaluateThresholds(obs, cfg)

	assert.Len(t, results, 1)
	breach := results[models.MetricRainfall]
	assert.True(t, breach.Exceeded)
	assert.Equal(t, 20.0, breach.Value)
	assert.Equal(t, models.SeverityCritical, breach.Severity)
}

func TestEvaluateThresholds_MaxBoundBreach(t *testing.T) {
	// Temperature 44 against a 40 maximum: deviation 4/40 = 0.1, moderate.
	obs := createTestObservation(f(44), nil, nil, nil)
	cfg := &models.ThresholdConfig{
		Temperature: &models.MetricBound{Max: f(40)},
	}

	results := EvaluateThresholds(obs, cfg)

	breach := results[models.MetricTemperature]
	assert.True(t, breach.Exceeded)
	assert.Equal(t, models.SeverityModerate, breach.Severity)
}

func TestEvaluateThresholds_SevereGrade(t *testing.T) {
	// Wind 26 against a 20 maximum: deviation 6/20 = 0.3, severe.
	obs := createTestObservation(nil, nil, nil, f(26))
	cfg := &models.ThresholdConfig{
		WindSpeed: &models.MetricBound{Max: f(20)},
	}

	results := EvaluateThresholds(obs, cfg)

	assert.Equal(t, models.SeveritySevere, results[models.MetricWindSpeed].Severity)
}

func TestEvaluateThresholds_ZeroBoundBreachIsCritical(t *testing.T) {
	// Any breach over a zero bound has no finite relative deviation.
	obs := createTestObservation(nil, f(3), nil, nil)
	cfg := &models.ThresholdConfig{
		Rainfall: &models.MetricBound{Max: f(0)},
	}

	results := EvaluateThresholds(obs, cfg)

	breach := results[models.MetricRainfall]
	assert.True(t, breach.Exceeded)
	assert.Equal(t, models.SeverityCritical, breach.Severity)
}

func TestEvaluateThresholds_UnconfiguredMetricsOmitted(t *testing.T) {
	obs := createTestObservation(f(30), f(80), f(60), f(10))
	cfg := &models.ThresholdConfig{
		Humidity: &models.MetricBound{Max: f(90)},
	}

	results := EvaluateThresholds(obs, cfg)

	assert.Len(t, results, 1)
	_, hasTemperature := results[models.MetricTemperature]
	assert.False(t, hasTemperature, "unconfigured metrics must not appear in the result")
}

func TestEvaluateThresholds_MissingReadingOmitted(t *testing.T) {
	// Rainfall is configured but the provider did not report it.
	obs := createTestObservation(f(30), nil, nil, nil)
	cfg := &models.ThresholdConfig{
		Temperature: &models.MetricBound{Max: f(40)},
		Rainfall:    &models.MetricBound{Min: f(50)},
	}

	results := EvaluateThresholds(obs, cfg)

	assert.Len(t, results, 1)
	_, hasRainfall := results[models.MetricRainfall]
	assert.False(t, hasRainfall, "metrics absent from the observation must be skipped, not treated as breaches")
}

func TestEvaluateThresholds_NilInputs(t *testing.T) {
	obs := createTestObservation(f(30), nil, nil, nil)

	assert.Empty(t, EvaluateThresholds(nil, &models.ThresholdConfig{}))
	assert.Empty(t, EvaluateThresholds(obs, nil))
}

func TestEvaluateThresholds_Deterministic(t *testing.T) {
	obs := createTestObservation(f(44), f(20), f(95), f(26))
	cfg := &models.ThresholdConfig{
		Temperature: &models.MetricBound{Min: f(5), Max: f(40)},
		Rainfall:    &models.MetricBound{Min: f(50), Max: f(200)},
		Humidity:    &models.MetricBound{Max: f(90)},
		WindSpeed:   &models.MetricBound{Max: f(20)},
	}

	first := EvaluateThresholds(obs, cfg)
	second := EvaluateThresholds(obs, cfg)

	assert.Equal(t, first, second, "identical inputs must produce identical results")
}

package engine

import (
	"math"

	"github.com/SamyaDeb/FarmerShield/internal/models"
)

// Severity deviation cutoffs: fractional distance beyond the violated bound.
const (
	severeDeviation   = 0.2
	criticalDeviation = 0.5
)

var evaluatedMetrics = []string{
	models.MetricTemperature,
	models.MetricRainfall,
	models.MetricHumidity,
	models.MetricWindSpeed,
}

// EvaluateThresholds compares a weather observation against a farmer's
// configured bounds and returns a breach result per configured metric.
// Metrics absent from the config, or absent from the observation, are omitted
// from the result entirely. Pure and deterministic: identical inputs always
// produce an identical mapping, which the settlement idempotency relies on.
func EvaluateThresholds(obs *models.Observation, cfg *models.ThresholdConfig) map[string]models.BreachResult {
	results := make(map[string]models.BreachResult)
	if obs == nil || cfg == nil {
		return results
	}

	for _, metric := range evaluatedMetrics {
		bound := cfg.Bound(metric)
		if bound == nil {
			continue
		}

		value := obs.Metric(metric)
		if value == nil {
			continue
		}

		results[metric] = evaluateBound(*value, bound)
	}

	return results
}

func evaluateBound(value float64, bound *models.MetricBound) models.BreachResult {
	result := models.BreachResult{
		Value:    value,
		Severity: models.SeverityNormal,
	}

	var violated *float64
	if bound.Min != nil && value < *bound.Min {
		violated = bound.Min
	}
	if bound.Max != nil && value > *bound.Max {
		violated = bound.Max
	}

	if violated == nil {
		return result
	}

	result.Exceeded = true
	result.Severity = severityFor(value, *violated)
	return result
}

// severityFor grades a breach by its fractional deviation beyond the violated
// bound. Deviation is relative to the bound itself, not the observed value,
// so min- and max-side breaches of equal magnitude can grade differently.
func severityFor(value, bound float64) models.BreachSeverity {
	if bound == 0 {
		// Any breach of a zero bound is unbounded in relative terms.
		return models.SeverityCritical
	}

	deviation := math.Abs(value-bound) / math.Abs(bound)
	switch {
	case deviation > criticalDeviation:
		return models.SeverityCritical
	case deviation > severeDeviation:
		return models.SeveritySevere
	default:
		return models.SeverityModerate
	}
}

package models

import "fmt"

// ============================================================================
// WEATHER OBSERVATIONS (TIME-SERIES INPUT)
// ============================================================================

// Observation is a single immutable weather reading for a location.
// Produced by the weather provider and never mutated after creation.
// Pointer fields are metrics the provider may not supply; an absent metric is
// simply not evaluated against thresholds.
type Observation struct {
	ID              string      `json:"id"`
	Latitude        float64     `json:"latitude"`
	Longitude       float64     `json:"longitude"`
	Temperature     *float64    `json:"temperature,omitempty"`
	TemperatureMin  *float64    `json:"temperature_min,omitempty"`
	TemperatureMax  *float64    `json:"temperature_max,omitempty"`
	Humidity        *float64    `json:"humidity,omitempty"`
	Rainfall        *float64    `json:"rainfall,omitempty"`
	WindSpeed       *float64    `json:"wind_speed,omitempty"`
	MeasuredAt      int64       `json:"measured_at"`
	Source          string      `json:"source"`
	DataQuality     DataQuality `json:"data_quality"`
	ConfidenceScore *float64    `json:"confidence_score,omitempty"`
}

// Metric returns the reading for a metric name, nil when the provider did not
// supply it.
func (o *Observation) Metric(name string) *float64 {
	switch name {
	case MetricTemperature:
		return o.Temperature
	case MetricRainfall:
		return o.Rainfall
	case MetricHumidity:
		return o.Humidity
	case MetricWindSpeed:
		return o.WindSpeed
	default:
		return nil
	}
}

// Key returns the stable identity of this observation used in claim keys.
// Falls back to the measurement timestamp when the provider supplies no ID.
func (o *Observation) Key() string {
	if o.ID != "" {
		return o.ID
	}
	return fmt.Sprintf("%d", o.MeasuredAt)
}

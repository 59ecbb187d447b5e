package models

// ============================================================================
// API REQUEST MODELS
// ============================================================================

// UpdateThresholdsRequest is the farmer-initiated threshold configuration
// update. Absent metrics clear the corresponding constraint.
type UpdateThresholdsRequest struct {
	Temperature *MetricBound `json:"temperature,omitempty"`
	Rainfall    *MetricBound `json:"rainfall,omitempty"`
	Humidity    *MetricBound `json:"humidity,omitempty"`
	WindSpeed   *MetricBound `json:"windSpeed,omitempty"`
}

func (r *UpdateThresholdsRequest) ToConfig() ThresholdConfig {
	return ThresholdConfig{
		Temperature: r.Temperature,
		Rainfall:    r.Rainfall,
		Humidity:    r.Humidity,
		WindSpeed:   r.WindSpeed,
	}
}

// Validate rejects bounds where min exceeds max.
func (r *UpdateThresholdsRequest) Validate() []string {
	var problems []string
	check := func(name string, b *MetricBound) {
		if b == nil {
			return
		}
		if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			problems = append(problems, name+": min must not exceed max")
		}
	}
	check(MetricTemperature, r.Temperature)
	check(MetricRainfall, r.Rainfall)
	check(MetricHumidity, r.Humidity)
	check(MetricWindSpeed, r.WindSpeed)
	return problems
}

// RejectClaimRequest is the administrative rejection of a pending claim.
type RejectClaimRequest struct {
	Reason     string `json:"reason"`
	ReviewedBy string `json:"reviewed_by"`
}

package models

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimPaid     ClaimStatus = "paid"
	ClaimFailed   ClaimStatus = "failed"
	ClaimRejected ClaimStatus = "rejected"
)

// IsTerminal reports whether a claim in this status can never change again.
func (s ClaimStatus) IsTerminal() bool {
	switch s {
	case ClaimPaid, ClaimFailed, ClaimRejected:
		return true
	default:
		return false
	}
}

func IsValidClaimStatus(status ClaimStatus) bool {
	switch status {
	case ClaimPending, ClaimPaid, ClaimFailed, ClaimRejected:
		return true
	default:
		return false
	}
}

type BreachSeverity string

const (
	SeverityNormal   BreachSeverity = "normal"
	SeverityModerate BreachSeverity = "moderate"
	SeveritySevere   BreachSeverity = "severe"
	SeverityCritical BreachSeverity = "critical"
)

type FarmerStatus string

const (
	FarmerActive   FarmerStatus = "active"
	FarmerInactive FarmerStatus = "inactive"
	FarmerArchived FarmerStatus = "archived"
)

type PolicyStatus string

const (
	PolicyActive    PolicyStatus = "active"
	PolicyInactive  PolicyStatus = "inactive"
	PolicyExpired   PolicyStatus = "expired"
	PolicyCancelled PolicyStatus = "cancelled"
)

type DataQuality string

const (
	DataQualityGood       DataQuality = "good"
	DataQualityAcceptable DataQuality = "acceptable"
	DataQualityPoor       DataQuality = "poor"
)

// Metric names used as keys in threshold configs and breach result maps.
const (
	MetricTemperature = "temperature"
	MetricRainfall    = "rainfall"
	MetricHumidity    = "humidity"
	MetricWindSpeed   = "windSpeed"
)

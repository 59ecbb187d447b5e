package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// INSURANCE POLICY
// ============================================================================

type InsurancePolicy struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	PolicyNumber   string       `json:"policy_number" db:"policy_number"`
	FarmerID       uuid.UUID    `json:"farmer_id" db:"farmer_id"`
	CropType       *string      `json:"crop_type,omitempty" db:"crop_type"`
	CoverageAmount float64      `json:"coverage_amount" db:"coverage_amount"`
	Currency       string       `json:"currency" db:"currency"`
	PremiumAmount  *float64     `json:"premium_amount,omitempty" db:"premium_amount"`
	Status         PolicyStatus `json:"status" db:"status"`
	CoverageStart  *int64       `json:"coverage_start,omitempty" db:"coverage_start"`
	CoverageEnd    *int64       `json:"coverage_end,omitempty" db:"coverage_end"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the policy can pay out at all.
func (p *InsurancePolicy) IsActive() bool {
	return p != nil && p.Status == PolicyActive
}

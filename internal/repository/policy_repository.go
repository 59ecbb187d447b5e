package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SamyaDeb/FarmerShield/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const policyColumns = `id, policy_number, farmer_id, crop_type, coverage_amount,
	       currency, premium_amount, status, coverage_start, coverage_end,
	       created_at, updated_at`

type PolicyRepository struct {
	db *sqlx.DB
}

func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// GetByID retrieves a policy by ID
func (r *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InsurancePolicy, error) {
	var policy models.InsurancePolicy
	query := `SELECT ` + policyColumns + ` FROM insurance_policy WHERE id = $1`

	err := r.db.GetContext(ctx, &policy, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy by id: %w", err)
	}

	return &policy, nil
}

// GetActiveByFarmerID retrieves the farmer's active policy, or nil when the
// farmer has none. A farmer holds at most one active policy at a time.
func (r *PolicyRepository) GetActiveByFarmerID(ctx context.Context, farmerID uuid.UUID) (*models.InsurancePolicy, error) {
	var policy models.InsurancePolicy
	query := `
		SELECT ` + policyColumns + `
		FROM insurance_policy
		WHERE farmer_id = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &policy, query, farmerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active policy by farmer id: %w", err)
	}

	return &policy, nil
}

// GetByFarmerID retrieves all policies for a farmer
func (r *PolicyRepository) GetByFarmerID(ctx context.Context, farmerID uuid.UUID) ([]models.InsurancePolicy, error) {
	var policies []models.InsurancePolicy
	query := `SELECT ` + policyColumns + ` FROM insurance_policy WHERE farmer_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &policies, query, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policies by farmer id: %w", err)
	}

	return policies, nil
}

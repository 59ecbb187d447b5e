package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SamyaDeb/FarmerShield/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const claimColumns = `id, claim_number, claim_key, farmer_id, policy_id, wallet_address,
	       weather_snapshot, breach_results, payout_amount, currency, status,
	       trigger_reason, trigger_timestamp, tx_reference, transfer_attempts,
	       failure_reason, evidence_url, paid_at, created_at, updated_at`

type ClaimRepository struct {
	db *sqlx.DB
}

func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// IsUniqueViolation reports whether err is the Postgres duplicate-key error,
// i.e. another claim already holds the same claim key.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// GetByID retrieves a claim by its ID
func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	query := `SELECT ` + claimColumns + ` FROM claim WHERE id = $1`

	err := r.db.GetContext(ctx, &claim, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim by id: %w", err)
	}

	return &claim, nil
}

// GetLiveByClaimKey retrieves the non-failed claim for a claim key, or nil when
// no such claim exists. Failed claims are not returned: a failed settlement
// does not block a later retrigger for the same observation.
func (r *ClaimRepository) GetLiveByClaimKey(ctx context.Context, claimKey string) (*models.Claim, error) {
	var claim models.Claim
	query := `SELECT ` + claimColumns + ` FROM claim WHERE claim_key = $1 AND status != 'failed'`

	err := r.db.GetContext(ctx, &claim, query, claimKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get claim by key: %w", err)
	}

	return &claim, nil
}

// Create inserts a new claim. A unique violation on the claim key means a
// concurrent settle already created one; callers detect it via IsUniqueViolation.
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now()
	}
	claim.UpdatedAt = claim.CreatedAt

	query := `
		INSERT INTO claim (
			id, claim_number, claim_key, farmer_id, policy_id, wallet_address,
			weather_snapshot, breach_results, payout_amount, currency, status,
			trigger_reason, trigger_timestamp, tx_reference, transfer_attempts,
			failure_reason, evidence_url, paid_at, created_at, updated_at
		) VALUES (
			:id, :claim_number, :claim_key, :farmer_id, :policy_id, :wallet_address,
			:weather_snapshot, :breach_results, :payout_amount, :currency, :status,
			:trigger_reason, :trigger_timestamp, :tx_reference, :transfer_attempts,
			:failure_reason, :evidence_url, :paid_at, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, claim)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateClaimKey, claim.ClaimKey)
		}
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

// MarkPaid transitions a claim to paid with its transaction reference.
// The status guard keeps paid claims immutable.
func (r *ClaimRepository) MarkPaid(ctx context.Context, id uuid.UUID, txReference string, paidAt int64) error {
	query := `
		UPDATE claim
		SET status = 'paid', tx_reference = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, txReference, paidAt)
	if err != nil {
		return fmt.Errorf("failed to mark claim paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("claim %s is not pending, refusing status change", id)
	}

	return nil
}

// MarkFailed transitions a pending claim to failed with the terminal reason.
func (r *ClaimRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE claim
		SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark claim failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("claim %s is not pending, refusing status change", id)
	}

	return nil
}

// MarkRejected transitions a pending claim to rejected (administrative decision).
func (r *ClaimRepository) MarkRejected(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE claim
		SET status = 'rejected', failure_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark claim rejected: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("claim %s is not pending, refusing status change", id)
	}

	return nil
}

// IncrementTransferAttempts bumps the attempt counter on a pending claim and
// returns the new count.
func (r *ClaimRepository) IncrementTransferAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	query := `
		UPDATE claim
		SET transfer_attempts = transfer_attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING transfer_attempts
	`

	err := r.db.GetContext(ctx, &attempts, query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to increment transfer attempts: %w", err)
	}

	return attempts, nil
}

// SetEvidenceURL records the archived evidence document location, best effort.
func (r *ClaimRepository) SetEvidenceURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE claim SET evidence_url = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, url)
	if err != nil {
		return fmt.Errorf("failed to set evidence url: %w", err)
	}

	return nil
}

// GetByFarmerID retrieves all claims for a farmer, newest first
func (r *ClaimRepository) GetByFarmerID(ctx context.Context, farmerID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	query := `SELECT ` + claimColumns + ` FROM claim WHERE farmer_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &claims, query, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims by farmer id: %w", err)
	}

	return claims, nil
}

// GetAll retrieves all claims with optional filters
func (r *ClaimRepository) GetAll(ctx context.Context, filters map[string]interface{}) ([]models.Claim, error) {
	var claims []models.Claim
	query := `SELECT ` + claimColumns + ` FROM claim WHERE 1=1`

	args := []interface{}{}
	argCount := 1

	if farmerID, ok := filters["farmer_id"].(uuid.UUID); ok {
		query += fmt.Sprintf(" AND farmer_id = $%d", argCount)
		args = append(args, farmerID)
		argCount++
	}

	if policyID, ok := filters["policy_id"].(uuid.UUID); ok {
		query += fmt.Sprintf(" AND policy_id = $%d", argCount)
		args = append(args, policyID)
		argCount++
	}

	if status, ok := filters["status"].(models.ClaimStatus); ok {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, status)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	err := r.db.SelectContext(ctx, &claims, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}

	return claims, nil
}

// GetPending retrieves all pending claims, oldest first, for the resume pass.
func (r *ClaimRepository) GetPending(ctx context.Context) ([]models.Claim, error) {
	var claims []models.Claim
	query := `SELECT ` + claimColumns + ` FROM claim WHERE status = 'pending' ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &claims, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending claims: %w", err)
	}

	return claims, nil
}

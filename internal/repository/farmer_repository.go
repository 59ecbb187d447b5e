package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SamyaDeb/FarmerShield/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const farmerColumns = `id, full_name, wallet_address, latitude, longitude,
	       farm_boundary, thresholds, status, created_at, updated_at`

type FarmerRepository struct {
	db *sqlx.DB
}

func NewFarmerRepository(db *sqlx.DB) *FarmerRepository {
	return &FarmerRepository{db: db}
}

// GetByID retrieves a farmer by ID
func (r *FarmerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Farmer, error) {
	var farmer models.Farmer
	query := `SELECT ` + farmerColumns + ` FROM farmer WHERE id = $1`

	err := r.db.GetContext(ctx, &farmer, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get farmer by id: %w", err)
	}

	return &farmer, nil
}

// GetActive retrieves all active farmers for the monitoring cycle
func (r *FarmerRepository) GetActive(ctx context.Context) ([]models.Farmer, error) {
	var farmers []models.Farmer
	query := `SELECT ` + farmerColumns + ` FROM farmer WHERE status = 'active' ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &farmers, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active farmers: %w", err)
	}

	return farmers, nil
}

// Create inserts a new farmer
func (r *FarmerRepository) Create(ctx context.Context, farmer *models.Farmer) error {
	if farmer.ID == uuid.Nil {
		farmer.ID = uuid.New()
	}
	if farmer.CreatedAt.IsZero() {
		farmer.CreatedAt = time.Now()
	}
	farmer.UpdatedAt = farmer.CreatedAt

	query := `
		INSERT INTO farmer (
			id, full_name, wallet_address, latitude, longitude,
			farm_boundary, thresholds, status, created_at, updated_at
		) VALUES (
			:id, :full_name, :wallet_address, :latitude, :longitude,
			:farm_boundary, :thresholds, :status, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, farmer)
	if err != nil {
		return fmt.Errorf("failed to create farmer: %w", err)
	}

	return nil
}

// UpdateThresholds replaces a farmer's threshold configuration.
// The only writer of threshold configs; the engine reads them, never mutates.
func (r *FarmerRepository) UpdateThresholds(ctx context.Context, id uuid.UUID, cfg models.ThresholdConfig) error {
	query := `UPDATE farmer SET thresholds = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, cfg)
	if err != nil {
		return fmt.Errorf("failed to update farmer thresholds: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("farmer not found")
	}

	return nil
}

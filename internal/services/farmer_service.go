package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SamyaDeb/FarmerShield/internal/models"
	"github.com/SamyaDeb/FarmerShield/internal/repository"

	"github.com/google/uuid"
)

type FarmerService struct {
	farmerRepo *repository.FarmerRepository
}

func NewFarmerService(farmerRepo *repository.FarmerRepository) *FarmerService {
	return &FarmerService{farmerRepo: farmerRepo}
}

// GetFarmerByID retrieves a farmer by ID
func (s *FarmerService) GetFarmerByID(ctx context.Context, farmerID uuid.UUID) (*models.Farmer, error) {
	farmer, err := s.farmerRepo.GetByID(ctx, farmerID)
	if err != nil {
		return nil, fmt.Errorf("farmer not found: %w", err)
	}

	return farmer, nil
}

// GetThresholds retrieves a farmer's threshold configuration
func (s *FarmerService) GetThresholds(ctx context.Context, farmerID uuid.UUID) (*models.ThresholdConfig, error) {
	farmer, err := s.farmerRepo.GetByID(ctx, farmerID)
	if err != nil {
		return nil, fmt.Errorf("farmer not found: %w", err)
	}

	if farmer.Thresholds == nil {
		return &models.ThresholdConfig{}, nil
	}
	return farmer.Thresholds, nil
}

// UpdateThresholds replaces a farmer's threshold configuration after validation.
func (s *FarmerService) UpdateThresholds(ctx context.Context, farmerID uuid.UUID, request models.UpdateThresholdsRequest) (*models.ThresholdConfig, error) {
	if problems := request.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid threshold configuration: %s", strings.Join(problems, "; "))
	}

	cfg := request.ToConfig()
	if err := s.farmerRepo.UpdateThresholds(ctx, farmerID, cfg); err != nil {
		return nil, fmt.Errorf("failed to update thresholds: %w", err)
	}

	slog.Info("Farmer thresholds updated", "farmer_id", farmerID)
	return &cfg, nil
}

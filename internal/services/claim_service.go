package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SamyaDeb/FarmerShield/internal/event"
	"github.com/SamyaDeb/FarmerShield/internal/models"
	"github.com/SamyaDeb/FarmerShield/internal/repository"

	"github.com/google/uuid"
)

type ClaimService struct {
	claimRepo  *repository.ClaimRepository
	farmerRepo *repository.FarmerRepository
	publisher  *event.ClaimPublisher
}

func NewClaimService(
	claimRepo *repository.ClaimRepository,
	farmerRepo *repository.FarmerRepository,
	publisher *event.ClaimPublisher,
) *ClaimService {
	return &ClaimService{
		claimRepo:  claimRepo,
		farmerRepo: farmerRepo,
		publisher:  publisher,
	}
}

// GetClaimByID retrieves a claim by ID (no authorization - handled by route permissions)
func (s *ClaimService) GetClaimByID(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("claim not found: %w", err)
	}

	return claim, nil
}

// GetClaimsByFarmerID retrieves all claims for a farmer
func (s *ClaimService) GetClaimsByFarmerID(ctx context.Context, farmerID uuid.UUID) ([]models.Claim, error) {
	claims, err := s.claimRepo.GetByFarmerID(ctx, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims for farmer: %w", err)
	}

	return claims, nil
}

// GetAllClaims retrieves all claims with optional filters
func (s *ClaimService) GetAllClaims(ctx context.Context, filters map[string]interface{}) ([]models.Claim, error) {
	claims, err := s.claimRepo.GetAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}

	return claims, nil
}

// RejectClaim applies an administrative rejection to a pending claim.
// Paid, failed, and already-rejected claims are immutable.
func (s *ClaimService) RejectClaim(ctx context.Context, claimID uuid.UUID, request models.RejectClaimRequest) (*models.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("claim not found: %w", err)
	}

	if claim.Status != models.ClaimPending {
		return nil, fmt.Errorf("claim is %s, only pending claims can be rejected", claim.Status)
	}

	reason := request.Reason
	if request.ReviewedBy != "" {
		reason = fmt.Sprintf("%s (reviewed by %s)", request.Reason, request.ReviewedBy)
	}

	if err := s.claimRepo.MarkRejected(ctx, claimID, reason); err != nil {
		return nil, fmt.Errorf("failed to reject claim: %w", err)
	}

	claim.Status = models.ClaimRejected
	claim.FailureReason = &reason

	if s.publisher != nil {
		evt := event.ClaimEvent{
			Type:          event.ClaimEventRejected,
			ClaimID:       claim.ID.String(),
			ClaimNumber:   claim.ClaimNumber,
			FarmerID:      claim.FarmerID.String(),
			PayoutAmount:  claim.PayoutAmount,
			Currency:      claim.Currency,
			TriggerReason: claim.TriggerReason,
			FailureReason: claim.FailureReason,
			OccurredAt:    time.Now().Unix(),
		}
		if err := s.publisher.PublishClaimEvent(ctx, evt); err != nil {
			slog.Error("error publishing claim rejection event", "claim_id", claimID, "error", err)
		}
	}

	return claim, nil
}

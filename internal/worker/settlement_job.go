package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SamyaDeb/FarmerShield/internal/engine"
	"github.com/SamyaDeb/FarmerShield/internal/models"
	"github.com/SamyaDeb/FarmerShield/internal/repository"
	"github.com/SamyaDeb/FarmerShield/internal/weather"
)

// MonitorService is the periodic settlement driver: each cycle it resumes
// claims left pending by earlier passes, then submits one settle job per
// active farmer. Ordering across farmers is unconstrained; per-farmer
// sequencing is owned by the coordinator's lock.
type MonitorService struct {
	farmerRepo  *repository.FarmerRepository
	provider    weather.Provider
	coordinator *engine.Coordinator
}

func NewMonitorService(
	farmerRepo *repository.FarmerRepository,
	provider weather.Provider,
	coordinator *engine.Coordinator,
) *MonitorService {
	return &MonitorService{
		farmerRepo:  farmerRepo,
		provider:    provider,
		coordinator: coordinator,
	}
}

// RunCycle is the CycleFunc wired into the scheduler.
func (m *MonitorService) RunCycle(ctx context.Context, pool *WorkingPool) error {
	if err := m.coordinator.ResumePending(ctx); err != nil {
		slog.Error("failed to resume pending claims", "error", err)
		// Keep going: new settlements must not starve behind a resume failure.
	}

	farmers, err := m.farmerRepo.GetActive(ctx)
	if err != nil {
		return err
	}

	slog.Info("Monitoring cycle started", "farmers", len(farmers))

	for _, farmer := range farmers {
		farmer := farmer
		job := func(jobCtx context.Context) error {
			return m.settleFarmer(jobCtx, &farmer)
		}
		if err := pool.SubmitJob(ctx, job); err != nil {
			return err
		}
	}

	return nil
}

// SettleFarmer fetches the latest observation for one farmer and runs a
// settlement pass. Exported for the manual settlement trigger endpoint.
func (m *MonitorService) SettleFarmer(ctx context.Context, farmer *models.Farmer) (engine.SettlementOutcome, error) {
	lat, lon := farmer.MonitoringPoint()
	obs, err := m.provider.FetchObservation(ctx, lat, lon)
	if err != nil {
		return engine.SettlementOutcome{}, err
	}

	return m.coordinator.Settle(ctx, farmer, obs)
}

func (m *MonitorService) settleFarmer(ctx context.Context, farmer *models.Farmer) error {
	outcome, err := m.SettleFarmer(ctx, farmer)
	if err != nil {
		if errors.Is(err, engine.ErrSettleLocked) {
			slog.Info("Farmer settlement already in progress, skipping", "farmer_id", farmer.ID)
			return nil
		}
		slog.Error("Farmer settlement failed", "farmer_id", farmer.ID, "error", err)
		return err
	}

	if outcome.NoClaim {
		slog.Debug("No claim for farmer this cycle", "farmer_id", farmer.ID)
		return nil
	}

	slog.Info("Farmer settlement completed",
		"farmer_id", farmer.ID,
		"claim_id", outcome.Claim.ID,
		"status", outcome.Claim.Status)
	return nil
}

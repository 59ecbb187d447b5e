package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SamyaDeb/FarmerShield/internal/engine"
	"github.com/SamyaDeb/FarmerShield/internal/models"
	"github.com/SamyaDeb/FarmerShield/internal/services"
	"github.com/SamyaDeb/FarmerShield/internal/worker"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// SettlementHandler exposes a manual one-shot settlement trigger; the
// scheduler normally drives settlements on its own cycle.
type SettlementHandler struct {
	farmerService *services.FarmerService
	monitor       *worker.MonitorService
}

func NewSettlementHandler(farmerService *services.FarmerService, monitor *worker.MonitorService) *SettlementHandler {
	return &SettlementHandler{farmerService: farmerService, monitor: monitor}
}

func (h *SettlementHandler) Register(app *fiber.App) {
	api := app.Group("shield/api/v1")

	api.Post("/settlements/run/:farmer_id", h.RunSettlement) // POST /settlements/run/:farmer_id
}

// RunSettlement runs a single settlement pass for one farmer.
func (h *SettlementHandler) RunSettlement(c fiber.Ctx) error {
	farmerIDStr := c.Params("farmer_id")
	farmerID, err := uuid.Parse(farmerIDStr)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_ID", "Invalid farmer ID format"))
	}

	farmer, err := h.farmerService.GetFarmerByID(c.Context(), farmerID)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(
			models.CreateErrorResponse("NOT_FOUND", "Farmer not found"))
	}

	outcome, err := h.monitor.SettleFarmer(c.Context(), farmer)
	if err != nil {
		if errors.Is(err, engine.ErrSettleLocked) {
			return c.Status(http.StatusConflict).JSON(
				models.CreateErrorResponse("SETTLEMENT_IN_PROGRESS", "A settlement for this farmer is already running"))
		}
		slog.Error("Manual settlement failed", "farmer_id", farmerID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			models.CreateErrorResponse("SETTLEMENT_FAILED", "Settlement run failed"))
	}

	if outcome.NoClaim {
		return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(fiber.Map{
			"claim_created": false,
		}))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(fiber.Map{
		"claim_created": true,
		"claim":         outcome.Claim,
	}))
}

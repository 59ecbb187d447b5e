package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SamyaDeb/FarmerShield/internal/models"
	"github.com/SamyaDeb/FarmerShield/internal/services"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type FarmerHandler struct {
	farmerService *services.FarmerService
}

func NewFarmerHandler(farmerService *services.FarmerService) *FarmerHandler {
	return &FarmerHandler{farmerService: farmerService}
}

func (h *FarmerHandler) Register(app *fiber.App) {
	api := app.Group("shield/api/v1")

	farmerGroup := api.Group("/farmers")
	farmerGroup.Get("/:id/thresholds", h.GetThresholds)  // GET /farmers/:id/thresholds
	farmerGroup.Put("/:id/thresholds", h.UpdateThresholds) // PUT /farmers/:id/thresholds
}

// GetThresholds retrieves the farmer's threshold configuration
func (h *FarmerHandler) GetThresholds(c fiber.Ctx) error {
	farmerIDStr := c.Params("id")
	farmerID, err := uuid.Parse(farmerIDStr)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_ID", "Invalid farmer ID format"))
	}

	thresholds, err := h.farmerService.GetThresholds(c.Context(), farmerID)
	if err != nil {
		slog.Error("Failed to get thresholds", "farmer_id", farmerID, "error", err)
		return c.Status(http.StatusNotFound).JSON(
			models.CreateErrorResponse("NOT_FOUND", "Farmer not found"))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(thresholds))
}

// UpdateThresholds replaces the farmer's threshold configuration
func (h *FarmerHandler) UpdateThresholds(c fiber.Ctx) error {
	farmerIDStr := c.Params("id")
	farmerID, err := uuid.Parse(farmerIDStr)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_ID", "Invalid farmer ID format"))
	}

	var req models.UpdateThresholdsRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	cfg, err := h.farmerService.UpdateThresholds(c.Context(), farmerID, req)
	if err != nil {
		slog.Error("Failed to update thresholds", "farmer_id", farmerID, "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("UPDATE_FAILED", err.Error()))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(cfg))
}

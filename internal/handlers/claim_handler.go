package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SamyaDeb/FarmerShield/internal/models"
	"github.com/SamyaDeb/FarmerShield/internal/services"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ClaimHandler struct {
	claimService *services.ClaimService
}

func NewClaimHandler(claimService *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

func (h *ClaimHandler) Register(app *fiber.App) {
	api := app.Group("shield/api/v1")

	claimGroup := api.Group("/claims")
	claimGroup.Get("/list", h.GetAllClaims)                         // GET /claims/list
	claimGroup.Get("/detail/:id", h.GetClaimDetail)                 // GET /claims/detail/:id
	claimGroup.Get("/by-farmer/:farmer_id", h.GetClaimsByFarmer)    // GET /claims/by-farmer/:farmer_id
	claimGroup.Post("/:id/reject", h.RejectClaim)                   // POST /claims/:id/reject
}

// GetAllClaims retrieves all claims with an optional status filter
func (h *ClaimHandler) GetAllClaims(c fiber.Ctx) error {
	filters := map[string]interface{}{}
	if status := c.Query("status"); status != "" {
		claimStatus := models.ClaimStatus(status)
		if !models.IsValidClaimStatus(claimStatus) {
			return c.Status(http.StatusBadRequest).JSON(
				models.CreateErrorResponse("INVALID_STATUS", "Unknown claim status"))
		}
		filters["status"] = claimStatus
	}

	claims, err := h.claimService.GetAllClaims(c.Context(), filters)
	if err != nil {
		slog.Error("Failed to get claims", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			models.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve claims"))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(map[string]interface{}{
		"claims": claims,
		"count":  len(claims),
	}))
}

// GetClaimDetail retrieves a specific claim
func (h *ClaimHandler) GetClaimDetail(c fiber.Ctx) error {
	claimIDStr := c.Params("id")
	claimID, err := uuid.Parse(claimIDStr)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_ID", "Invalid claim ID format"))
	}

	claim, err := h.claimService.GetClaimByID(c.Context(), claimID)
	if err != nil {
		slog.Error("Failed to get claim", "claim_id", claimID, "error", err)
		return c.Status(http.StatusNotFound).JSON(
			models.CreateErrorResponse("NOT_FOUND", "Claim not found"))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(claim))
}

// GetClaimsByFarmer retrieves all claims for a farmer
func (h *ClaimHandler) GetClaimsByFarmer(c fiber.Ctx) error {
	farmerIDStr := c.Params("farmer_id")
	farmerID, err := uuid.Parse(farmerIDStr)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_ID", "Invalid farmer ID format"))
	}

	claims, err := h.claimService.GetClaimsByFarmerID(c.Context(), farmerID)
	if err != nil {
		slog.Error("Failed to get farmer claims", "farmer_id", farmerID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			models.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve claims"))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(map[string]interface{}{
		"claims":    claims,
		"count":     len(claims),
		"farmer_id": farmerID,
	}))
}

// RejectClaim applies an administrative rejection to a pending claim
func (h *ClaimHandler) RejectClaim(c fiber.Ctx) error {
	claimIDStr := c.Params("id")
	claimID, err := uuid.Parse(claimIDStr)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_ID", "Invalid claim ID format"))
	}

	var req models.RejectClaimRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_BODY", "Invalid request body"))
	}
	if req.Reason == "" {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("MISSING_REASON", "Rejection reason is required"))
	}

	claim, err := h.claimService.RejectClaim(c.Context(), claimID, req)
	if err != nil {
		slog.Error("Failed to reject claim", "claim_id", claimID, "error", err)
		return c.Status(http.StatusConflict).JSON(
			models.CreateErrorResponse("REJECTION_FAILED", err.Error()))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(claim))
}

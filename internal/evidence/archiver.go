package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SamyaDeb/FarmerShield/internal/database/minio"
	"github.com/SamyaDeb/FarmerShield/internal/models"
)

// Archiver stores the full evidence document of a claim (weather snapshot plus
// breach results) in object storage so the record survives independently of
// the claim row. Archival is best effort; settlement never blocks on it.
type Archiver struct {
	store *minio.MinioClient
}

func NewArchiver(store *minio.MinioClient) *Archiver {
	return &Archiver{store: store}
}

type evidenceDocument struct {
	ClaimID         string         `json:"claim_id"`
	ClaimNumber     string         `json:"claim_number"`
	ClaimKey        string         `json:"claim_key"`
	FarmerID        string         `json:"farmer_id"`
	TriggerReason   string         `json:"trigger_reason"`
	PayoutAmount    float64        `json:"payout_amount"`
	Currency        string         `json:"currency"`
	WeatherSnapshot models.JSONMap `json:"weather_snapshot"`
	BreachResults   models.JSONMap `json:"breach_results"`
	ArchivedAt      int64          `json:"archived_at"`
}

// Archive uploads the claim's evidence document and returns its resource URL.
func (a *Archiver) Archive(ctx context.Context, claim *models.Claim) (string, error) {
	doc := evidenceDocument{
		ClaimID:         claim.ID.String(),
		ClaimNumber:     claim.ClaimNumber,
		ClaimKey:        claim.ClaimKey,
		FarmerID:        claim.FarmerID.String(),
		TriggerReason:   claim.TriggerReason,
		PayoutAmount:    claim.PayoutAmount,
		Currency:        claim.Currency,
		WeatherSnapshot: claim.WeatherSnapshot,
		BreachResults:   claim.BreachResults,
		ArchivedAt:      time.Now().Unix(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal evidence document: %w", err)
	}

	objectName := fmt.Sprintf("%s/%s.json", claim.FarmerID, claim.ClaimNumber)
	url, err := a.store.PutEvidenceObject(ctx, objectName, data, "application/json")
	if err != nil {
		return "", fmt.Errorf("failed to archive claim evidence: %w", err)
	}

	return url, nil
}

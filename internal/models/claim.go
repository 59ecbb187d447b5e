package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateClaimKey is returned (wrapped) by claim stores when the unique
// claim-key constraint rejects an insert: a claim for the same (farmer,
// observation) trigger already exists.
var ErrDuplicateClaimKey = errors.New("claim key already exists")

// ============================================================================
// CLAIM (CENTRAL STATEFUL ENTITY)
// ============================================================================

// BreachResult is the per-metric outcome of a threshold evaluation. Derived,
// not persisted on its own; a breach snapshot is embedded into the claim that
// it triggered.
type BreachResult struct {
	Exceeded bool           `json:"exceeded"`
	Value    float64        `json:"value"`
	Severity BreachSeverity `json:"severity"`
}

type Claim struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	ClaimNumber      string      `json:"claim_number" db:"claim_number"`
	ClaimKey         string      `json:"claim_key" db:"claim_key"`
	FarmerID         uuid.UUID   `json:"farmer_id" db:"farmer_id"`
	PolicyID         uuid.UUID   `json:"policy_id" db:"policy_id"`
	WalletAddress    string      `json:"wallet_address" db:"wallet_address"`
	WeatherSnapshot  JSONMap     `json:"weather_snapshot" db:"weather_snapshot"`
	BreachResults    JSONMap     `json:"breach_results" db:"breach_results"`
	PayoutAmount     float64     `json:"payout_amount" db:"payout_amount"`
	Currency         string      `json:"currency" db:"currency"`
	Status           ClaimStatus `json:"status" db:"status"`
	TriggerReason    string      `json:"trigger_reason" db:"trigger_reason"`
	TriggerTimestamp int64       `json:"trigger_timestamp" db:"trigger_timestamp"`
	TxReference      *string     `json:"tx_reference,omitempty" db:"tx_reference"`
	TransferAttempts int         `json:"transfer_attempts" db:"transfer_attempts"`
	FailureReason    *string     `json:"failure_reason,omitempty" db:"failure_reason"`
	EvidenceURL      *string     `json:"evidence_url,omitempty" db:"evidence_url"`
	PaidAt           *int64      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// ClaimKey derives the deterministic identity of a claim from the farmer and
// the triggering observation. Two settle passes over the same pair always
// derive the same key; the claim table enforces uniqueness on it.
func ClaimKeyFor(farmerID uuid.UUID, obs *Observation) string {
	return farmerID.String() + ":" + obs.Key()
}

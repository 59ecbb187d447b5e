package event

const (
	ClaimEventsQueue = "claim_events"
)

type ClaimEventType string

const (
	ClaimEventCreated  ClaimEventType = "claim_created"
	ClaimEventPaid     ClaimEventType = "claim_paid"
	ClaimEventFailed   ClaimEventType = "claim_failed"
	ClaimEventRejected ClaimEventType = "claim_rejected"
)

// ClaimEvent is the notification payload consumed by the push-notification
// service when a claim changes state.
type ClaimEvent struct {
	Type          ClaimEventType `json:"type"`
	ClaimID       string         `json:"claim_id"`
	ClaimNumber   string         `json:"claim_number"`
	FarmerID      string         `json:"farmer_id"`
	PayoutAmount  float64        `json:"payout_amount"`
	Currency      string         `json:"currency"`
	TriggerReason string         `json:"trigger_reason"`
	TxReference   *string        `json:"tx_reference,omitempty"`
	FailureReason *string        `json:"failure_reason,omitempty"`
	OccurredAt    int64          `json:"occurred_at"`
}

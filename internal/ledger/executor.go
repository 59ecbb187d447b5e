package ledger

import (
	"context"
	"fmt"
)

// Receipt is the confirmed outcome of an on-chain payout transfer.
type Receipt struct {
	TxHash      string  `json:"tx_hash"`
	ClaimKey    string  `json:"claim_key"`
	Payee       string  `json:"payee"`
	Amount      float64 `json:"amount"`
	BlockNumber *int64  `json:"block_number,omitempty"`
	ConfirmedAt int64   `json:"confirmed_at"`
}

// RetryableError marks a transfer failure that is safe to reattempt on a later
// settlement pass (network, timeout, transient nonce/gas conditions).
type RetryableError struct {
	Reason string
	Err    error
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retryable transfer error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("retryable transfer error: %s", e.Reason)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// TerminalError marks a transfer failure that will never succeed on retry
// (payee not registered, invalid amount, non-transient contract revert).
type TerminalError struct {
	Reason string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("terminal transfer error: %s", e.Reason)
}

// Executor is the payment collaborator the settlement coordinator drives.
// Implementations must treat claimKey as an idempotency key: two Transfer calls
// with the same key must settle at most one on-chain payout.
type Executor interface {
	// Transfer sends amount to payee. Errors are *RetryableError or
	// *TerminalError; anything else is treated as retryable.
	Transfer(ctx context.Context, payee string, amount float64, claimKey string) (*Receipt, error)

	// LookupTransfer returns the receipt for a previously submitted transfer,
	// or nil when the ledger holds no completed transfer for the key.
	// Consulted before re-attempting a claim with a recorded transfer attempt,
	// so a crash between transfer and status update cannot double-pay.
	LookupTransfer(ctx context.Context, claimKey string) (*Receipt, error)
}

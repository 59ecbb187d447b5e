package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/SamyaDeb/FarmerShield/internal/config"
)

// GatewayClient talks to the payout gateway fronting the escrow contract.
// Constructed once and injected into the coordinator; no package-level handles.
type GatewayClient struct {
	cfg        config.LedgerConfig
	httpClient *http.Client
}

func NewGatewayClient(cfg config.LedgerConfig) *GatewayClient {
	return &GatewayClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

type transferRequest struct {
	Payee    string  `json:"payee"`
	Amount   float64 `json:"amount"`
	ClaimKey string  `json:"claim_key"`
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Transfer submits a payout to the gateway. The claim key travels both in the
// body and as the Idempotency-Key header; the gateway returns the original
// receipt when it has already settled that key.
func (g *GatewayClient) Transfer(ctx context.Context, payee string, amount float64, claimKey string) (*Receipt, error) {
	body, err := json.Marshal(transferRequest{
		Payee:    payee,
		Amount:   amount,
		ClaimKey: claimKey,
	})
	if err != nil {
		return nil, &TerminalError{Reason: fmt.Sprintf("failed to encode transfer request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return nil, &TerminalError{Reason: fmt.Sprintf("failed to build transfer request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", claimKey)
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// Network-level failures are transient by classification; the
		// query-before-retry pass covers the ambiguous sent-but-unconfirmed case.
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &RetryableError{Reason: "transfer request timed out", Err: err}
		}
		return nil, &RetryableError{Reason: "transfer request failed", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetryableError{Reason: "failed to read gateway response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var receipt Receipt
		if err := json.Unmarshal(payload, &receipt); err != nil {
			return nil, &RetryableError{Reason: "failed to parse gateway receipt", Err: err}
		}
		return &receipt, nil

	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("payout gateway transient failure", "status", resp.StatusCode, "claim_key", claimKey)
		return nil, &RetryableError{Reason: fmt.Sprintf("gateway returned status %d", resp.StatusCode)}

	default:
		// 4xx: the gateway rejected the transfer outright (unregistered payee,
		// invalid amount, contract revert). Surface the reason verbatim.
		var gwErr gatewayError
		reason := fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		if err := json.Unmarshal(payload, &gwErr); err == nil && gwErr.Message != "" {
			reason = gwErr.Message
		}
		return nil, &TerminalError{Reason: reason}
	}
}

// LookupTransfer asks the gateway whether a transfer for the claim key has
// already been confirmed on-chain.
func (g *GatewayClient) LookupTransfer(ctx context.Context, claimKey string) (*Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.GatewayURL+"/"+claimKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payout gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payout gateway lookup error: status %d", resp.StatusCode)
	}

	var receipt Receipt
	if err := json.Unmarshal(payload, &receipt); err != nil {
		return nil, fmt.Errorf("failed to parse lookup receipt: %w", err)
	}

	return &receipt, nil
}

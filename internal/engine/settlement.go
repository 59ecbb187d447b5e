package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/SamyaDeb/FarmerShield/internal/event"
	"github.com/SamyaDeb/FarmerShield/internal/ledger"
	"github.com/SamyaDeb/FarmerShield/internal/metrics"
	"github.com/SamyaDeb/FarmerShield/internal/models"

	"github.com/google/uuid"
)

// ErrSettleLocked is returned when another settle pass currently holds the
// farmer's lock; the driver simply retries on the next cycle.
var ErrSettleLocked = errors.New("settlement already in progress for farmer")

// ClaimStore is the persistence surface the coordinator needs from the claim
// repository.
type ClaimStore interface {
	GetLiveByClaimKey(ctx context.Context, claimKey string) (*models.Claim, error)
	Create(ctx context.Context, claim *models.Claim) error
	MarkPaid(ctx context.Context, id uuid.UUID, txReference string, paidAt int64) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	IncrementTransferAttempts(ctx context.Context, id uuid.UUID) (int, error)
	SetEvidenceURL(ctx context.Context, id uuid.UUID, url string) error
	GetPending(ctx context.Context) ([]models.Claim, error)
}

type PolicyStore interface {
	GetActiveByFarmerID(ctx context.Context, farmerID uuid.UUID) (*models.InsurancePolicy, error)
}

// Locker provides per-farmer mutual exclusion for the duration of one settle
// invocation. The claim-key unique index is the hard guarantee; the lock keeps
// concurrent passes from burning transfer attempts against each other.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

type EvidenceArchiver interface {
	Archive(ctx context.Context, claim *models.Claim) (string, error)
}

type ClaimNotifier interface {
	PublishClaimEvent(ctx context.Context, evt event.ClaimEvent) error
}

// SettlementOutcome is what a settle pass produced: either no claim, or the
// claim (new or pre-existing) for the (farmer, observation) pair.
type SettlementOutcome struct {
	NoClaim bool
	Claim   *models.Claim
}

func noClaimOutcome() SettlementOutcome {
	return SettlementOutcome{NoClaim: true}
}

// Coordinator drives weather observations through threshold evaluation, payout
// calculation, claim creation, and the on-chain transfer, exactly once per
// (farmer, observation) pair.
type Coordinator struct {
	claims      ClaimStore
	policies    PolicyStore
	executor    ledger.Executor
	locker      Locker
	archiver    EvidenceArchiver
	notifier    ClaimNotifier
	maxAttempts int
	lockTTL     time.Duration
}

func NewCoordinator(
	claims ClaimStore,
	policies PolicyStore,
	executor ledger.Executor,
	locker Locker,
	archiver EvidenceArchiver,
	notifier ClaimNotifier,
	maxAttempts int,
	lockTTL time.Duration,
) *Coordinator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Coordinator{
		claims:      claims,
		policies:    policies,
		executor:    executor,
		locker:      locker,
		archiver:    archiver,
		notifier:    notifier,
		maxAttempts: maxAttempts,
		lockTTL:     lockTTL,
	}
}

// Settle evaluates one (farmer, latest observation) pair and drives any
// resulting claim to a settled or retryable state.
//
// Ordering is load-bearing: the claim is persisted in pending status before
// the transfer is invoked, so a crash between the two leaves discoverable
// evidence of the amount owed. Cancellation is honored only before that
// persistence; from there the pass runs on a detached context.
func (c *Coordinator) Settle(ctx context.Context, farmer *models.Farmer, obs *models.Observation) (SettlementOutcome, error) {
	start := time.Now()
	defer func() {
		metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	}()

	if farmer == nil || obs == nil {
		return SettlementOutcome{}, fmt.Errorf("settle requires a farmer and an observation")
	}
	if obs.MeasuredAt == 0 && obs.ID == "" {
		return SettlementOutcome{}, fmt.Errorf("observation has no identity: missing id and timestamp")
	}

	lockKey := "settle:farmer:" + farmer.ID.String()
	acquired, err := c.locker.AcquireLock(ctx, lockKey, c.lockTTL)
	if err != nil {
		return SettlementOutcome{}, fmt.Errorf("failed to acquire settlement lock: %w", err)
	}
	if !acquired {
		return SettlementOutcome{}, ErrSettleLocked
	}
	defer func() {
		if err := c.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			slog.Error("failed to release settlement lock", "farmer_id", farmer.ID, "error", err)
		}
	}()

	claimKey := models.ClaimKeyFor(farmer.ID, obs)

	// A live claim for this key means this trigger was already handled; return
	// it unchanged. Pending claims are re-driven by ResumePending, never by a
	// second Settle for the same observation.
	existing, err := c.claims.GetLiveByClaimKey(ctx, claimKey)
	if err != nil {
		return SettlementOutcome{}, err
	}
	if existing != nil {
		slog.Info("Claim already exists for trigger, returning unchanged",
			"claim_id", existing.ID,
			"claim_key", claimKey,
			"status", existing.Status)
		return SettlementOutcome{Claim: existing}, nil
	}

	breaches := EvaluateThresholds(obs, farmer.Thresholds)
	if !anyBreach(breaches) {
		metrics.SettlementsNoClaim.Inc()
		return noClaimOutcome(), nil
	}

	policy, err := c.policies.GetActiveByFarmerID(ctx, farmer.ID)
	if err != nil {
		return SettlementOutcome{}, fmt.Errorf("failed to load policy: %w", err)
	}
	if policy == nil {
		slog.Warn("Breach detected but farmer has no active policy, skipping",
			"farmer_id", farmer.ID,
			"claim_key", claimKey)
		metrics.SettlementsNoClaim.Inc()
		return noClaimOutcome(), nil
	}

	amount, payable := CalculatePayout(breaches, policy)
	if !payable || amount <= 0 {
		metrics.SettlementsNoClaim.Inc()
		return noClaimOutcome(), nil
	}

	claim, created, err := c.createClaim(ctx, farmer, policy, obs, breaches, amount, claimKey)
	if err != nil {
		return SettlementOutcome{}, err
	}
	if !created {
		// Lost the create race to a concurrent settle; that pass owns the
		// transfer, whatever state its claim is in.
		return SettlementOutcome{Claim: claim}, nil
	}

	// Past the durability point: never abandon a persisted pending claim on
	// caller cancellation.
	detached := context.WithoutCancel(ctx)

	c.archiveEvidence(detached, claim)
	c.notify(detached, event.ClaimEventCreated, claim)

	if err := c.executeTransfer(detached, claim); err != nil {
		return SettlementOutcome{}, err
	}

	return SettlementOutcome{Claim: claim}, nil
}

// ResumePending re-drives claims left pending by retryable failures or by a
// crash between transfer and status update. Called once per monitoring cycle
// before new settlements.
func (c *Coordinator) ResumePending(ctx context.Context) error {
	pending, err := c.claims.GetPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending claims: %w", err)
	}

	for _, claim := range pending {
		claim := claim
		if err := c.resumeClaim(ctx, &claim); err != nil {
			slog.Error("failed to resume pending claim",
				"claim_id", claim.ID,
				"claim_key", claim.ClaimKey,
				"error", err)
		}
	}

	return nil
}

func (c *Coordinator) resumeClaim(ctx context.Context, claim *models.Claim) error {
	lockKey := "settle:farmer:" + claim.FarmerID.String()
	acquired, err := c.locker.AcquireLock(ctx, lockKey, c.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire settlement lock: %w", err)
	}
	if !acquired {
		return nil // another pass owns this farmer right now
	}
	defer func() {
		if err := c.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			slog.Error("failed to release settlement lock", "farmer_id", claim.FarmerID, "error", err)
		}
	}()

	detached := context.WithoutCancel(ctx)

	// Query-before-retry: a previous pass may have submitted the transfer and
	// crashed before recording the outcome. Re-sending without checking could
	// double-pay.
	if claim.TransferAttempts > 0 {
		receipt, err := c.executor.LookupTransfer(detached, claim.ClaimKey)
		if err != nil {
			return fmt.Errorf("failed to look up transfer outcome: %w", err)
		}
		if receipt != nil {
			return c.settleAsPaid(detached, claim, receipt)
		}
	}

	if claim.TransferAttempts >= c.maxAttempts {
		reason := fmt.Sprintf("transfer retry budget exhausted after %d attempts", claim.TransferAttempts)
		if claim.FailureReason != nil {
			reason = fmt.Sprintf("%s; last error: %s", reason, *claim.FailureReason)
		}
		return c.settleAsFailed(detached, claim, reason)
	}

	return c.executeTransfer(detached, claim)
}

func (c *Coordinator) createClaim(
	ctx context.Context,
	farmer *models.Farmer,
	policy *models.InsurancePolicy,
	obs *models.Observation,
	breaches map[string]models.BreachResult,
	amount float64,
	claimKey string,
) (*models.Claim, bool, error) {
	claim := &models.Claim{
		ID:               uuid.New(),
		ClaimNumber:      "CLM" + randomClaimSuffix(9),
		ClaimKey:         claimKey,
		FarmerID:         farmer.ID,
		PolicyID:         policy.ID,
		WalletAddress:    farmer.WalletAddress,
		WeatherSnapshot:  toJSONMap(obs),
		BreachResults:    toJSONMap(breaches),
		PayoutAmount:     amount,
		Currency:         policy.Currency,
		Status:           models.ClaimPending,
		TriggerReason:    triggerReason(breaches),
		TriggerTimestamp: obs.MeasuredAt,
	}

	if err := c.claims.Create(ctx, claim); err != nil {
		if !errors.Is(err, models.ErrDuplicateClaimKey) {
			return nil, false, fmt.Errorf("failed to persist claim: %w", err)
		}
		// A concurrent settle won the unique-index race; adopt its claim.
		winner, lookupErr := c.claims.GetLiveByClaimKey(ctx, claimKey)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("failed to load claim after key conflict: %w", lookupErr)
		}
		if winner == nil {
			return nil, false, fmt.Errorf("claim key conflict but no live claim found: %w", err)
		}
		return winner, false, nil
	}

	metrics.ClaimsCreated.Inc()
	slog.Info("Claim created",
		"claim_id", claim.ID,
		"claim_number", claim.ClaimNumber,
		"claim_key", claimKey,
		"payout_amount", amount,
		"trigger_reason", claim.TriggerReason)

	return claim, true, nil
}

// executeTransfer invokes the ledger executor for a pending claim and
// reconciles the claim status with the outcome.
func (c *Coordinator) executeTransfer(ctx context.Context, claim *models.Claim) error {
	receipt, err := c.executor.Transfer(ctx, claim.WalletAddress, claim.PayoutAmount, claim.ClaimKey)
	if err == nil {
		return c.settleAsPaid(ctx, claim, receipt)
	}

	var terminal *ledger.TerminalError
	if errors.As(err, &terminal) {
		return c.settleAsFailed(ctx, claim, terminal.Reason)
	}

	// Retryable (or unclassified, treated as retryable): stay pending, count
	// the attempt, escalate when the budget is gone.
	attempts, incErr := c.claims.IncrementTransferAttempts(ctx, claim.ID)
	if incErr != nil {
		return fmt.Errorf("transfer failed and attempt bookkeeping failed: %w", errors.Join(err, incErr))
	}
	claim.TransferAttempts = attempts
	metrics.TransferRetries.Inc()

	slog.Warn("Transfer failed, claim stays pending for a later pass",
		"claim_id", claim.ID,
		"attempts", attempts,
		"max_attempts", c.maxAttempts,
		"error", err)

	if attempts >= c.maxAttempts {
		return c.settleAsFailed(ctx, claim, fmt.Sprintf(
			"transfer retry budget exhausted after %d attempts; last error: %v", attempts, err))
	}

	return nil
}

func (c *Coordinator) settleAsPaid(ctx context.Context, claim *models.Claim, receipt *ledger.Receipt) error {
	paidAt := receipt.ConfirmedAt
	if paidAt == 0 {
		paidAt = time.Now().Unix()
	}

	if err := c.claims.MarkPaid(ctx, claim.ID, receipt.TxHash, paidAt); err != nil {
		return fmt.Errorf("transfer confirmed but status update failed: %w", err)
	}

	claim.Status = models.ClaimPaid
	claim.TxReference = &receipt.TxHash
	claim.PaidAt = &paidAt
	metrics.ClaimsPaid.Inc()

	slog.Info("Claim paid",
		"claim_id", claim.ID,
		"claim_number", claim.ClaimNumber,
		"tx_reference", receipt.TxHash,
		"payout_amount", claim.PayoutAmount)

	c.notify(ctx, event.ClaimEventPaid, claim)
	return nil
}

func (c *Coordinator) settleAsFailed(ctx context.Context, claim *models.Claim, reason string) error {
	if err := c.claims.MarkFailed(ctx, claim.ID, reason); err != nil {
		return fmt.Errorf("failed to mark claim failed: %w", err)
	}

	claim.Status = models.ClaimFailed
	claim.FailureReason = &reason
	metrics.ClaimsFailed.Inc()

	slog.Error("Claim transfer failed terminally",
		"claim_id", claim.ID,
		"claim_number", claim.ClaimNumber,
		"reason", reason)

	c.notify(ctx, event.ClaimEventFailed, claim)
	return nil
}

func (c *Coordinator) archiveEvidence(ctx context.Context, claim *models.Claim) {
	if c.archiver == nil {
		return
	}

	url, err := c.archiver.Archive(ctx, claim)
	if err != nil {
		slog.Warn("failed to archive claim evidence", "claim_id", claim.ID, "error", err)
		return
	}

	claim.EvidenceURL = &url
	if err := c.claims.SetEvidenceURL(ctx, claim.ID, url); err != nil {
		slog.Warn("failed to record evidence url", "claim_id", claim.ID, "error", err)
	}
}

func (c *Coordinator) notify(ctx context.Context, eventType event.ClaimEventType, claim *models.Claim) {
	if c.notifier == nil {
		return
	}

	evt := event.ClaimEvent{
		Type:          eventType,
		ClaimID:       claim.ID.String(),
		ClaimNumber:   claim.ClaimNumber,
		FarmerID:      claim.FarmerID.String(),
		PayoutAmount:  claim.PayoutAmount,
		Currency:      claim.Currency,
		TriggerReason: claim.TriggerReason,
		TxReference:   claim.TxReference,
		FailureReason: claim.FailureReason,
		OccurredAt:    time.Now().Unix(),
	}

	if err := c.notifier.PublishClaimEvent(ctx, evt); err != nil {
		slog.Warn("failed to publish claim event", "claim_id", claim.ID, "type", eventType, "error", err)
	}
}

func anyBreach(breaches map[string]models.BreachResult) bool {
	for _, b := range breaches {
		if b.Exceeded {
			return true
		}
	}
	return false
}

var metricDisplayNames = map[string]string{
	models.MetricTemperature: "Temperature",
	models.MetricRainfall:    "Rainfall",
	models.MetricHumidity:    "Humidity",
	models.MetricWindSpeed:   "Wind speed",
}

// triggerReason joins the breached metric names into the human-readable
// trigger line stored on the claim.
func triggerReason(breaches map[string]models.BreachResult) string {
	var names []string
	for _, metric := range evaluatedMetrics {
		if b, ok := breaches[metric]; ok && b.Exceeded {
			names = append(names, metricDisplayNames[metric])
		}
	}

	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return names[0] + " threshold exceeded"
	}
	return strings.Join(names, ", ") + " thresholds exceeded"
}

func toJSONMap(v any) models.JSONMap {
	raw, err := json.Marshal(v)
	if err != nil {
		return models.JSONMap{}
	}

	var m models.JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.JSONMap{}
	}
	return m
}

var claimSuffixRunes = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ123456789")

func randomClaimSuffix(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = claimSuffixRunes[rand.Intn(len(claimSuffixRunes))]
	}
	return string(b)
}

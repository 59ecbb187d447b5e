package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SamyaDeb/FarmerShield/internal/ledger"
	"github.com/SamyaDeb/FarmerShield/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeClaimStore struct {
	byKey map[string]*models.Claim
	byID  map[uuid.UUID]*models.Claim

	// raceWinner, when set, is slipped into the store by the next Create call
	// before it fails with ErrDuplicateClaimKey — another pass inserted its row
	// between the live-claim lookup and this insert.
	raceWinner *models.Claim
}

func newFakeClaimStore() *fakeClaimStore {
	return &fakeClaimStore{
		byKey: make(map[string]*models.Claim),
		byID:  make(map[uuid.UUID]*models.Claim),
	}
}

func (s *fakeClaimStore) GetLiveByClaimKey(ctx context.Context, claimKey string) (*models.Claim, error) {
	claim, ok := s.byKey[claimKey]
	if !ok || claim.Status == models.ClaimFailed {
		return nil, nil
	}
	copied := *claim
	return &copied, nil
}

func (s *fakeClaimStore) Create(ctx context.Context, claim *models.Claim) error {
	if s.raceWinner != nil && s.raceWinner.ClaimKey == claim.ClaimKey {
		winner := s.raceWinner
		s.raceWinner = nil
		s.byKey[winner.ClaimKey] = winner
		s.byID[winner.ID] = winner
		return fmt.Errorf("%w: %s", models.ErrDuplicateClaimKey, claim.ClaimKey)
	}
	if existing, ok := s.byKey[claim.ClaimKey]; ok && existing.Status != models.ClaimFailed {
		return fmt.Errorf("%w: %s", models.ErrDuplicateClaimKey, claim.ClaimKey)
	}
	copied := *claim
	s.byKey[claim.ClaimKey] = &copied
	s.byID[claim.ID] = &copied
	return nil
}

func (s *fakeClaimStore) MarkPaid(ctx context.Context, id uuid.UUID, txReference string, paidAt int64) error {
	claim, ok := s.byID[id]
	if !ok || claim.Status != models.ClaimPending {
		return fmt.Errorf("claim %s not pending", id)
	}
	claim.Status = models.ClaimPaid
	claim.TxReference = &txReference
	claim.PaidAt = &paidAt
	return nil
}

func (s *fakeClaimStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	claim, ok := s.byID[id]
	if !ok || claim.Status != models.ClaimPending {
		return fmt.Errorf("claim %s not pending", id)
	}
	claim.Status = models.ClaimFailed
	claim.FailureReason = &reason
	return nil
}

func (s *fakeClaimStore) IncrementTransferAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	claim, ok := s.byID[id]
	if !ok {
		return 0, fmt.Errorf("claim %s not found", id)
	}
	claim.TransferAttempts++
	return claim.TransferAttempts, nil
}

func (s *fakeClaimStore) SetEvidenceURL(ctx context.Context, id uuid.UUID, url string) error {
	claim, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("claim %s not found", id)
	}
	claim.EvidenceURL = &url
	return nil
}

func (s *fakeClaimStore) GetPending(ctx context.Context) ([]models.Claim, error) {
	var pending []models.Claim
	for _, claim := range s.byID {
		if claim.Status == models.ClaimPending {
			pending = append(pending, *claim)
		}
	}
	return pending, nil
}

type fakePolicyStore struct {
	policy *models.InsurancePolicy
}

func (s *fakePolicyStore) GetActiveByFarmerID(ctx context.Context, farmerID uuid.UUID) (*models.InsurancePolicy, error) {
	return s.policy, nil
}

type fakeLocker struct {
	held map[string]bool
	deny bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.deny || l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, key string) error {
	delete(l.held, key)
	return nil
}

type fakeExecutor struct {
	transferErr   error
	transferCalls int
	lookupReceipt *ledger.Receipt
	lookupCalls   int
}

func (e *fakeExecutor) Transfer(ctx context.Context, payee string, amount float64, claimKey string) (*ledger.Receipt, error) {
	e.transferCalls++
	if e.transferErr != nil {
		return nil, e.transferErr
	}
	return &ledger.Receipt{
		TxHash:      "0xabc123",
		ClaimKey:    claimKey,
		Payee:       payee,
		Amount:      amount,
		ConfirmedAt: time.Now().Unix(),
	}, nil
}

func (e *fakeExecutor) LookupTransfer(ctx context.Context, claimKey string) (*ledger.Receipt, error) {
	e.lookupCalls++
	return e.lookupReceipt, nil
}

// ============================================================================
// TEST HELPERS
// ============================================================================

func createBreachingFarmer() *models.Farmer {
	return &models.Farmer{
		ID:            uuid.New(),
		FullName:      "Test Farmer",
		WalletAddress: "0xfarmer001",
		Latitude:      10.8,
		Longitude:     106.6,
		Thresholds: &models.ThresholdConfig{
			Rainfall: &models.MetricBound{Min: f(50)},
		},
		Status: models.FarmerActive,
	}
}

func createDroughtObservation() *models.Observation {
	return &models.Observation{
		ID:         "obs-drought-1",
		Rainfall:   f(20),
		MeasuredAt: 1757000000,
		Source:     "openweather",
	}
}

type testHarness struct {
	store       *fakeClaimStore
	policies    *fakePolicyStore
	locker      *fakeLocker
	executor    *fakeExecutor
	coordinator *Coordinator
}

func newTestHarness(maxAttempts int) *testHarness {
	h := &testHarness{
		store:    newFakeClaimStore(),
		policies: &fakePolicyStore{policy: createTestPolicy(1000, models.PolicyActive)},
		locker:   newFakeLocker(),
		executor: &fakeExecutor{},
	}
	h.coordinator = NewCoordinator(h.store, h.policies, h.executor, h.locker, nil, nil, maxAttempts, time.Minute)
	return h
}

// ============================================================================
// TEST SUITE 1: SETTLE
// ============================================================================

func TestSettle_BreachCreatesPaidClaim(t *testing.T) {
	h := newTestHarness(3)
	farmer := createBreachingFarmer()
	obs := createDroughtObservation()

	outcome, err := h.coordinator.Settle(context.Background(), farmer, obs)

	require.NoError(t, err)
	require.False(t, outcome.NoClaim)
	require.NotNil(t, outcome.Claim)
	assert.Equal(t, models.ClaimPaid, outcome.Claim.Status)
	assert.Equal(t, 250.0, outcome.Claim.PayoutAmount, "single breach pays a quarter of 1000 coverage")
	assert.Equal(t, models.ClaimKeyFor(farmer.ID, obs), outcome.Claim.ClaimKey)
	assert.Equal(t, "Rainfall threshold exceeded", outcome.Claim.TriggerReason)
	assert.Equal(t, "0xabc123", *outcome.Claim.TxReference)
	assert.Equal(t, 1, h.executor.transferCalls)
	assert.Empty(t, h.locker.held, "settle must release the farmer lock")
}

func TestSettle_NoBreachNoClaim(t *testing.T) {
	h := newTestHarness(3)
	farmer := createBreachingFarmer()
	obs := createDroughtObservation()
	obs.Rainfall = f(120) // comfortably above the 50mm minimum

	outcome, err := h.coordinator.Settle(context.Background(), farmer, obs)

	require.NoError(t, err)
	assert.True(t, outcome.NoClaim)
	assert.Equal(t, 0, h.executor.transferCalls)
	assert.Empty(t, h.store.byID)
}

func TestSettle_DoubleSettleReturnsExistingWithoutSecondTransfer(t *testing.T) {
	h := newTestHarness(3)
	farmer := createBreachingFarmer()
	obs := createDroughtObservation()

	first, err := h.coordinator.Settle(context.Background(), farmer, obs)
	require.NoError(t, err)

	second, err := h.coordinator.Settle(context.Background(), farmer, obs)
	require.NoError(t, err)

	assert.Equal(t, first.Claim.ID, second.Claim.ID, "same trigger must yield the same claim")
	assert.Equal(t, 1, h.executor.transferCalls, "a settled trigger must never transfer twice")
	assert.Len(t, h.store.byID, 1)
}

func TestSettle_PendingClaimReturnedWithoutNewTransfer(t *testing.T) {
	h := newTestHarness(3)
	farmer := createBreachingFarmer()
	obs := createDroughtObservation()

	h.executor.transferErr = &ledger.RetryableError{Reason: "gateway timeout"}
	first, err := h.coordinator.Settle(context.Background(), farmer, obs)
	require.NoError(t, err)
	require.Equal(t, models.ClaimPending, h.store.byID[first.Claim.ID].Status)

	// Second settle for the same trigger while the transfer is unresolved:
	// the pending claim comes back untouched, retries belong to ResumePending.
	second, err := h.coordinator.Settle(context.Background(), farmer, obs)
	require.NoError(t, err)

	assert.Equal(t, first.Claim.ID, second.Claim.ID)
	assert.Equal(t, models.ClaimPending, second.Claim.Status)
	assert.Equal(t, 1, h.executor.transferCalls)
	assert.Equal(t, 1, h.store.byID[first.Claim.ID].TransferAttempts)
}

func TestSettle_LostClaimKeyRaceAdoptsWinner(t *testing.T) {
	h := newTestHarness(3)
	farmer := createBreachingFarmer()
	obs := createDroughtObservation()

	winner := &models.Claim{
		ID:           uuid.New(),
		ClaimNumber:  "CLMWINNER01",
		ClaimKey:     models.ClaimKeyFor(farmer.ID, obs),
		FarmerID:     farmer.ID,
		PayoutAmount: 250,
		Status:       models.ClaimPending,
	}
	h.store.raceWinner = winner

	outcome, err := h.coordinator.Settle(context.Background(), farmer, obs)

	require.NoError(t, err)
	require.NotNil(t, outcome.Claim)
	assert.Equal(t, winner.ID, outcome.Claim.ID, "losing the insert race means adopting the winner's claim")
	assert.Equal(t, 0, h.executor.transferCalls, "the losing pass must not drive the winner's transfer")
	assert.Len(t, h.store.byID, 1, "exactly one claim survives the race")
	assert.Equal(t, models.ClaimPending, h.store.byID[winner.ID].Status)
}

func TestSettle_NoActivePolicyNoClaim(t *testing.T) {
	h := newTestHarness(3)
	h.policies.policy = nil
	farmer := createBreachingFarmer()

	outcome, err := h.coordinator.Settle(context.Background(), farmer, createDroughtObservation())

	require.NoError(t, err)
	assert.True(t, outcome.NoClaim)
	assert.Equal(t, 0, h.executor.transferCalls)
}

func TestSettle_LockHeldReturnsErrSettleLocked(t *testing.T) {
	h := newTestHarness(3)
	h.locker.deny = true

	_, err := h.coordinator.Settle(context.Background(), createBreachingFarmer(), createDroughtObservation())

	assert.ErrorIs(t, err, ErrSettleLocked)
	assert.Equal(t, 0, h.executor.transferCalls)
}

func TestSettle_TerminalTransferErrorFailsClaim(t *testing.T) {
	h := newTestHarness(3)
	h.executor.transferErr = &ledger.TerminalError{Reason: "payee wallet not registered"}

	outcome, err := h.coordinator.Settle(context.Background(), createBreachingFarmer(), createDroughtObservation())

	require.NoError(t, err)
	require.NotNil(t, outcome.Claim)
	assert.Equal(t, models.ClaimFailed, outcome.Claim.Status)
	require.NotNil(t, outcome.Claim.FailureReason)
	assert.Equal(t, "payee wallet not registered", *outcome.Claim.FailureReason,
		"the terminal reason must be recorded verbatim")
	assert.Equal(t, 1, h.executor.transferCalls, "terminal errors must not be retried")
}

func TestSettle_RetryableTransferErrorLeavesClaimPending(t *testing.T) {
	h := newTestHarness(3)
	h.executor.transferErr = &ledger.RetryableError{Reason: "gateway timeout"}

	outcome, err := h.coordinator.Settle(context.Background(), createBreachingFarmer(), createDroughtObservation())

	require.NoError(t, err)
	require.NotNil(t, outcome.Claim)
	stored := h.store.byID[outcome.Claim.ID]
	assert.Equal(t, models.ClaimPending, stored.Status)
	assert.Equal(t, 1, stored.TransferAttempts)
}

func TestSettle_ObservationWithoutIdentityRejected(t *testing.T) {
	h := newTestHarness(3)
	obs := &models.Observation{Rainfall: f(20)} // no ID, no timestamp

	_, err := h.coordinator.Settle(context.Background(), createBreachingFarmer(), obs)

	assert.Error(t, err)
}

// ============================================================================
// TEST SUITE 2: RESUME PENDING
// ============================================================================

func settlePendingClaim(t *testing.T, h *testHarness) *models.Claim {
	t.Helper()
	h.executor.transferErr = &ledger.RetryableError{Reason: "gateway timeout"}
	outcome, err := h.coordinator.Settle(context.Background(), createBreachingFarmer(), createDroughtObservation())
	require.NoError(t, err)
	require.NotNil(t, outcome.Claim)
	return h.store.byID[outcome.Claim.ID]
}

func TestResumePending_RetriesAndPays(t *testing.T) {
	h := newTestHarness(3)
	claim := settlePendingClaim(t, h)
	h.executor.transferErr = nil // gateway recovered

	err := h.coordinator.ResumePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.ClaimPaid, claim.Status)
	assert.Equal(t, 1, h.executor.lookupCalls, "resume must reconcile before re-sending")
	assert.Equal(t, 2, h.executor.transferCalls)
}

func TestResumePending_QueryBeforeRetryAdoptsConfirmedTransfer(t *testing.T) {
	h := newTestHarness(3)
	claim := settlePendingClaim(t, h)

	// The earlier transfer actually landed; the gateway knows the outcome.
	h.executor.lookupReceipt = &ledger.Receipt{TxHash: "0xlanded", ClaimKey: claim.ClaimKey, ConfirmedAt: 1757000100}

	err := h.coordinator.ResumePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.ClaimPaid, claim.Status)
	assert.Equal(t, "0xlanded", *claim.TxReference)
	assert.Equal(t, 1, h.executor.transferCalls, "a confirmed transfer must not be re-sent")
}

func TestResumePending_BudgetExhaustionFailsClaim(t *testing.T) {
	h := newTestHarness(2)
	claim := settlePendingClaim(t, h)

	// Still failing on every pass.
	err := h.coordinator.ResumePending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.ClaimFailed, claim.Status)
	require.NotNil(t, claim.FailureReason)
	assert.Contains(t, *claim.FailureReason, "exhausted")
}

func TestResumePending_SkipsLockedFarmers(t *testing.T) {
	h := newTestHarness(3)
	claim := settlePendingClaim(t, h)
	h.executor.transferErr = nil
	h.locker.held["settle:farmer:"+claim.FarmerID.String()] = true

	err := h.coordinator.ResumePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.ClaimPending, claim.Status, "a locked farmer's claim waits for the next cycle")
	assert.Equal(t, 1, h.executor.transferCalls)
}

// ============================================================================
// TEST SUITE 3: TRIGGER REASON
// ============================================================================

func TestTriggerReason_SingleMetric(t *testing.T) {
	breaches := map[string]models.BreachResult{
		models.MetricRainfall: {Exceeded: true},
	}

	assert.Equal(t, "Rainfall threshold exceeded", triggerReason(breaches))
}

func TestTriggerReason_MultipleMetricsDeterministicOrder(t *testing.T) {
	breaches := map[string]models.BreachResult{
		models.MetricWindSpeed:   {Exceeded: true},
		models.MetricTemperature: {Exceeded: true},
		models.MetricRainfall:    {Exceeded: false},
	}

	assert.Equal(t, "Temperature, Wind speed thresholds exceeded", triggerReason(breaches))
}

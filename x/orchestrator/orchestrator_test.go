package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/axal-network/claim-agent/x/claim"
	"github.com/axal-network/claim-agent/x/ledger"
	"github.com/axal-network/claim-agent/x/ledger/contracts"
	"github.com/axal-network/claim-agent/x/notifier"
)

// --- test doubles ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }
func (c *fakeClock) Now() time.Time       { c.mu.Lock(); defer c.mu.Unlock(); return c.now }
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualTimer fires only when the test says so.
type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

type manualTimerFactory struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (f *manualTimerFactory) AfterFunc(_ time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &manualTimer{fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// fire runs the i-th scheduled timer synchronously.
func (f *manualTimerFactory) fire(i int) {
	f.mu.Lock()
	t := f.timers[i]
	f.mu.Unlock()
	t.fn()
}

func (f *manualTimerFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// stubLedger simulates the settlement ledger's claim bookkeeping, including
// its dispute-window enforcement.
type stubLedger struct {
	mu sync.Mutex

	clock     *fakeClock
	window    time.Duration
	submitter common.Address

	createdAt map[common.Hash]time.Time
	disputed  map[common.Hash]bool

	submitErr     error
	wrongID       bool
	finalizeFails int // failures to inject before finalize succeeds
	finalizeDelay time.Duration
	finalizeCalls int
}

func newStubLedger(clock *fakeClock) *stubLedger {
	return &stubLedger{
		clock:     clock,
		window:    5 * time.Minute,
		submitter: common.HexToAddress("0x366648a41eD9AA5A4F7AE478f16F7F401e906cB9"),
		createdAt: make(map[common.Hash]time.Time),
		disputed:  make(map[common.Hash]bool),
	}
}

func (l *stubLedger) SubmitterAddress() common.Address { return l.submitter }

func (l *stubLedger) SubmitClaim(_ context.Context, subjectLabel string, beneficiary common.Address) (ledger.SubmitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.submitErr != nil {
		return ledger.SubmitResult{}, fmt.Errorf("%w: %v", ledger.ErrSubmissionFailed, l.submitErr)
	}

	createdAt := l.clock.Now()
	id := claim.DeriveID(l.submitter, createdAt, subjectLabel, beneficiary)
	if l.wrongID {
		id[0] ^= 0xFF
	}
	l.createdAt[id] = createdAt

	return ledger.SubmitResult{
		ClaimID:   id,
		CreatedAt: createdAt,
		TxHash:    common.Hash{0x11},
		BondWei:   big.NewInt(100_000_000_000_000),
	}, nil
}

func (l *stubLedger) SubmitDispute(_ context.Context, _ common.Address, claimID common.Hash) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	createdAt, ok := l.createdAt[claimID]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: unknown claim", ledger.ErrDisputeRejected)
	}
	if l.clock.Now().After(createdAt.Add(l.window)) {
		return common.Hash{}, fmt.Errorf("%w: dispute window elapsed", ledger.ErrDisputeRejected)
	}
	l.disputed[claimID] = true
	return common.Hash{0x22}, nil
}

func (l *stubLedger) Finalize(_ context.Context, claimID common.Hash) (ledger.Outcome, error) {
	l.mu.Lock()
	l.finalizeCalls++
	fail := l.finalizeFails > 0
	if fail {
		l.finalizeFails--
	}
	delay := l.finalizeDelay
	disputed := l.disputed[claimID]
	l.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return ledger.Outcome{}, fmt.Errorf("%w: transaction rejected", ledger.ErrFinalizationFailed)
	}
	return ledger.Outcome{Disputed: disputed, Resolved: true, TxHash: common.Hash{0x33}}, nil
}

func (l *stubLedger) QueryClaim(_ context.Context, claimID common.Hash) (contracts.ClaimRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	createdAt, ok := l.createdAt[claimID]
	if !ok {
		return contracts.ClaimRecord{}, errors.New("unknown claim")
	}
	return contracts.ClaimRecord{
		CreatedAt: big.NewInt(createdAt.Unix()),
		Disputed:  l.disputed[claimID],
	}, nil
}

func (l *stubLedger) finalizeCallCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finalizeCalls
}

var _ ledger.Client = (*stubLedger)(nil)

type sentNotification struct {
	target string
	kind   notifier.OutcomeKind
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *stubNotifier) Notify(_ context.Context, target string, kind notifier.OutcomeKind, _ notifier.Details) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{target: target, kind: kind})
	return nil
}

func (n *stubNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentNotification, len(n.sent))
	copy(out, n.sent)
	return out
}

var _ notifier.Notifier = (*stubNotifier)(nil)

// --- fixture ---

type fixture struct {
	clock    *fakeClock
	led      *stubLedger
	store    *claim.Store
	notifier *stubNotifier
	timers   *manualTimerFactory
	orch     Orchestrator
}

func newFixture(t *testing.T, tune func(*Config)) *fixture {
	t.Helper()

	clock := newFakeClock(time.Unix(1714000000, 0))
	led := newStubLedger(clock)
	store := claim.NewStore()
	ntf := &stubNotifier{}
	timers := &manualTimerFactory{}

	cfg := DefaultConfig(zerolog.Nop(), led, store, ntf)
	cfg.TimerFactory = timers
	cfg.Now = clock.Now
	cfg.FinalizeBackoff = time.Millisecond
	if tune != nil {
		tune(&cfg)
	}

	return &fixture{
		clock:    clock,
		led:      led,
		store:    store,
		notifier: ntf,
		timers:   timers,
		orch:     New(cfg),
	}
}

func (f *fixture) submit(t *testing.T) claim.ID {
	t.Helper()
	id, err := f.orch.SubmitClaim(context.Background(), SubmitRequest{
		Beneficiary:  common.HexToAddress("0xD98c48934Ec9c4a3EeddB7cBF2D7CaF09dA76D43"),
		NotifyTarget: "user@example.com",
	})
	require.NoError(t, err)
	return id
}

// --- tests ---

func TestSubmitClaim_ReturnsImmediatelyAndSchedules(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)

	rec, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, claim.StatePending, rec.State)
	require.Equal(t, "user@example.com", rec.NotifyTarget)

	// Identifier independently recomputable from public fields.
	require.Equal(t, claim.DeriveID(f.led.submitter, rec.CreatedAt, rec.SubjectLabel, rec.Beneficiary), id)

	// Finalization is deferred, not executed inline.
	require.Equal(t, 1, f.timers.count())
	require.Equal(t, 0, f.led.finalizeCallCount())
	require.Equal(t, []claim.ID{id}, f.orch.PendingFinalizations())
}

func TestSubmitClaim_DefaultsToBestPool(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)
	rec, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, "Pool D", rec.SubjectLabel) // highest APY in the default table
}

func TestSubmitClaim_LedgerFailureCreatesNoRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.led.submitErr = errors.New("insufficient funds for bond")

	_, err := f.orch.SubmitClaim(context.Background(), SubmitRequest{
		Beneficiary: common.HexToAddress("0x01"),
	})
	require.ErrorIs(t, err, ledger.ErrSubmissionFailed)
	require.Zero(t, f.store.Len())
	require.Zero(t, f.timers.count())
}

func TestSubmitClaim_IDMismatchFailsLoudly(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.led.wrongID = true

	_, err := f.orch.SubmitClaim(context.Background(), SubmitRequest{
		Beneficiary: common.HexToAddress("0x01"),
	})
	require.ErrorIs(t, err, ErrClaimIDMismatch)
	require.Zero(t, f.store.Len())
}

func TestFinalize_UndisputedClaimUpheld(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)
	f.clock.Advance(5*time.Minute + time.Second)
	f.timers.fire(0)

	rec, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, claim.StateFinalized, rec.State)
	require.False(t, rec.Disputed)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	require.Equal(t, notifier.OutcomeUpheld, sent[0].kind)
	require.Equal(t, "user@example.com", sent[0].target)
	require.Empty(t, f.orch.PendingFinalizations())
}

func TestFinalize_DisputeWithinWindowClassifiedDisputed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)

	// Dispute lands 2 minutes into the 5-minute window.
	f.clock.Advance(2 * time.Minute)
	_, err := f.orch.SubmitDispute(context.Background(), common.HexToAddress("0xD15b"), id)
	require.NoError(t, err)

	// The orchestrator keeps no local dispute state; it learns at finalize.
	rec, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, claim.StatePending, rec.State)
	require.False(t, rec.Disputed)

	f.clock.Advance(3*time.Minute + time.Second)
	f.timers.fire(0)

	rec, err = f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, claim.StateFinalized, rec.State)
	require.True(t, rec.Disputed)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	require.Equal(t, notifier.OutcomeDisputed, sent[0].kind)
}

func TestDispute_AfterWindowRejectedAndClaimUpheld(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)
	f.clock.Advance(6 * time.Minute)

	_, err := f.orch.SubmitDispute(context.Background(), common.HexToAddress("0xD15b"), id)
	require.ErrorIs(t, err, ledger.ErrDisputeRejected)

	f.timers.fire(0)
	rec, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.False(t, rec.Disputed)
	require.Equal(t, notifier.OutcomeUpheld, f.notifier.all()[0].kind)
}

func TestFinalize_DuplicateTriggersAreIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)
	f.clock.Advance(6 * time.Minute)
	f.timers.fire(0)

	err := f.orch.Finalize(context.Background(), id)
	require.ErrorIs(t, err, ErrAlreadyFinalized)

	require.Equal(t, 1, f.led.finalizeCallCount())
	require.Len(t, f.notifier.all(), 1)
}

func TestFinalize_RetriesThenSucceedsWithOneNotification(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.FinalizeAttempts = 5
	})

	id := f.submit(t)
	f.led.finalizeFails = 3
	f.clock.Advance(6 * time.Minute)
	f.timers.fire(0)

	rec, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, claim.StateFinalized, rec.State)
	require.Equal(t, 4, f.led.finalizeCallCount())
	require.Len(t, f.notifier.all(), 1)
}

func TestFinalize_PermanentFailureLeavesClaimPending(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *Config) {
		cfg.FinalizeAttempts = 3
	})

	id := f.submit(t)
	f.led.finalizeFails = 100
	f.clock.Advance(6 * time.Minute)

	err := f.orch.Finalize(context.Background(), id)
	require.ErrorIs(t, err, ledger.ErrFinalizationFailed)
	require.Equal(t, 3, f.led.finalizeCallCount())

	rec, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, claim.StatePending, rec.State)
	require.Empty(t, f.notifier.all())

	// The claim is not abandoned: a later trigger can still finalize it.
	f.led.mu.Lock()
	f.led.finalizeFails = 0
	f.led.mu.Unlock()
	require.NoError(t, f.orch.Finalize(context.Background(), id))

	rec, err = f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, claim.StateFinalized, rec.State)
	require.Len(t, f.notifier.all(), 1)
}

func TestFinalize_NeverRegressesToPending(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)
	f.clock.Advance(6 * time.Minute)
	f.timers.fire(0)

	for i := 0; i < 3; i++ {
		err := f.orch.Finalize(context.Background(), id)
		require.ErrorIs(t, err, ErrAlreadyFinalized)
		rec, err := f.orch.ClaimStatus(id)
		require.NoError(t, err)
		require.Equal(t, claim.StateFinalized, rec.State)
	}
}

func TestFinalize_ConcurrentTriggersProduceOneTransaction(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)
	f.led.finalizeDelay = 10 * time.Millisecond
	f.clock.Advance(6 * time.Minute)

	const triggers = 8
	var wg sync.WaitGroup
	errs := make([]error, triggers)
	for i := 0; i < triggers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.orch.Finalize(context.Background(), id)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyFinalized), errors.Is(err, ErrFinalizeInProgress):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, f.led.finalizeCallCount())
	require.Len(t, f.notifier.all(), 1)
}

func TestFinalize_NotificationFailureDoesNotReopenClaim(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.notifier.err = errors.New("smtp unavailable")

	id := f.submit(t)
	f.clock.Advance(6 * time.Minute)
	f.timers.fire(0)

	rec, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, claim.StateFinalized, rec.State)

	// Delivery failure is terminal for the notification, not the claim.
	err = f.orch.Finalize(context.Background(), id)
	require.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestSubmitDispute_IsPurePassThrough(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)
	before, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)

	txRef, err := f.orch.SubmitDispute(context.Background(), common.HexToAddress("0xD15b"), id)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, txRef)

	after, err := f.orch.ClaimStatus(id)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestConcurrentClaims_IndependentNotifyTargets(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	idA, err := f.orch.SubmitClaim(context.Background(), SubmitRequest{
		SubjectLabel: "Pool A",
		Beneficiary:  common.HexToAddress("0x0A"),
		NotifyTarget: "a@example.com",
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	idB, err := f.orch.SubmitClaim(context.Background(), SubmitRequest{
		SubjectLabel: "Pool B",
		Beneficiary:  common.HexToAddress("0x0B"),
		NotifyTarget: "b@example.com",
	})
	require.NoError(t, err)
	require.NotEqual(t, idA, idB)

	f.clock.Advance(10 * time.Minute)
	f.timers.fire(1) // finalize B first; routing must not cross claims
	f.timers.fire(0)

	sent := f.notifier.all()
	require.Len(t, sent, 2)
	require.Equal(t, "b@example.com", sent[0].target)
	require.Equal(t, "a@example.com", sent[1].target)
}

func TestStop_RejectsNewClaims(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	id := f.submit(t)
	require.NoError(t, f.orch.Stop(context.Background()))

	_, err := f.orch.SubmitClaim(context.Background(), SubmitRequest{Beneficiary: common.HexToAddress("0x01")})
	require.ErrorIs(t, err, ErrStopped)
	require.Empty(t, f.orch.PendingFinalizations())

	// Already-submitted claims stay queryable.
	_, err = f.orch.ClaimStatus(id)
	require.NoError(t, err)
}

func TestBestPool(t *testing.T) {
	t.Parallel()

	best, err := BestPool(DefaultPools())
	require.NoError(t, err)
	require.Equal(t, "Pool D", best.Name)

	_, err = BestPool(nil)
	require.ErrorIs(t, err, ErrNoPools)
}

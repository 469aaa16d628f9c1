package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/axal-network/claim-agent/x/claim"
	"github.com/axal-network/claim-agent/x/ledger"
	"github.com/axal-network/claim-agent/x/notifier"
)

var _ Orchestrator = (*orchestrator)(nil)

// orchestrator implements Orchestrator. Each claim's lifecycle is driven by
// its own timer; the claim store serializes the finalize path so duplicate
// triggers collapse into one ledger transaction and one notification.
type orchestrator struct {
	log      zerolog.Logger
	ledger   ledger.Client
	store    *claim.Store
	notifier notifier.Notifier

	timerFactory TimerFactory
	now          func() time.Time
	metrics      *Metrics
	pools        []Pool

	disputeWindow    time.Duration
	finalizeAttempts int
	finalizeBackoff  time.Duration

	mu      sync.Mutex
	pending map[claim.ID]Timer
	stopped bool
}

// New creates an Orchestrator from the provided config.
// Required fields: Ledger, Store, Notifier.
func New(cfg Config) Orchestrator {
	if cfg.TimerFactory == nil {
		cfg.TimerFactory = SystemTimerFactory{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DisputeWindow <= 0 {
		cfg.DisputeWindow = DefaultDisputeWindow
	}
	if cfg.FinalizeAttempts <= 0 {
		cfg.FinalizeAttempts = DefaultFinalizeAttempts
	}
	if cfg.FinalizeBackoff <= 0 {
		cfg.FinalizeBackoff = DefaultFinalizeBackoff
	}

	return &orchestrator{
		log:              cfg.Logger,
		ledger:           cfg.Ledger,
		store:            cfg.Store,
		notifier:         cfg.Notifier,
		timerFactory:     cfg.TimerFactory,
		now:              cfg.Now,
		metrics:          cfg.Metrics,
		pools:            cfg.Pools,
		disputeWindow:    cfg.DisputeWindow,
		finalizeAttempts: cfg.FinalizeAttempts,
		finalizeBackoff:  cfg.FinalizeBackoff,
		pending:          make(map[claim.ID]Timer),
	}
}

// SubmitClaim posts the claim to the ledger, records it Pending, schedules
// the deferred finalization, and returns the claim id without waiting out
// the window.
func (o *orchestrator) SubmitClaim(ctx context.Context, req SubmitRequest) (claim.ID, error) {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return claim.ID{}, ErrStopped
	}
	o.mu.Unlock()

	label := req.SubjectLabel
	if label == "" {
		best, err := BestPool(o.pools)
		if err != nil {
			return claim.ID{}, err
		}
		label = best.Name
	}

	res, err := o.ledger.SubmitClaim(ctx, label, req.Beneficiary)
	if err != nil {
		// No claim record exists on failure; the caller retries with a
		// fresh request.
		return claim.ID{}, err
	}

	// Guard against derivation-formula drift between client and contract:
	// recompute the id from the returned public fields and fail loudly on
	// disagreement rather than track a claim under a wrong identifier.
	derived := claim.DeriveID(o.ledger.SubmitterAddress(), res.CreatedAt, label, req.Beneficiary)
	if derived != res.ClaimID {
		return claim.ID{}, fmt.Errorf("%w: ledger client derived %s, orchestrator derived %s",
			ErrClaimIDMismatch, res.ClaimID.Hex(), derived.Hex())
	}

	rec := claim.Claim{
		ID:           res.ClaimID,
		Submitter:    o.ledger.SubmitterAddress(),
		Beneficiary:  req.Beneficiary,
		SubjectLabel: label,
		CreatedAt:    res.CreatedAt,
		BondWei:      res.BondWei,
		State:        claim.StatePending,
		NotifyTarget: req.NotifyTarget,
		SubmitTx:     res.TxHash.Hex(),
	}
	if err := o.store.Put(rec); err != nil {
		return claim.ID{}, fmt.Errorf("failed to record claim: %w", err)
	}

	o.schedule(res.ClaimID)
	o.metrics.recordSubmitted()

	o.log.Info().
		Str("claim_id", res.ClaimID.Hex()).
		Str("subject", label).
		Str("beneficiary", req.Beneficiary.Hex()).
		Dur("dispute_window", o.disputeWindow).
		Msg("claim submitted, finalization scheduled")

	return res.ClaimID, nil
}

// SubmitDispute forwards the dispute to the ledger without touching local
// state. The ledger decides validity; the orchestrator observes the result
// later through the authoritative disputed flag at finalization.
func (o *orchestrator) SubmitDispute(ctx context.Context, disputer common.Address, claimID claim.ID) (common.Hash, error) {
	return o.ledger.SubmitDispute(ctx, disputer, claimID)
}

// Finalize resolves the claim exactly once. Duplicate triggers observe
// ErrAlreadyFinalized (terminal record) or ErrFinalizeInProgress (racing
// attempt); neither causes a second ledger transaction or notification.
func (o *orchestrator) Finalize(ctx context.Context, claimID claim.ID) error {
	started, already, err := o.store.BeginFinalize(claimID)
	if err != nil {
		return fmt.Errorf("claim %s: %w", claimID.Hex(), err)
	}
	if already {
		return ErrAlreadyFinalized
	}
	if !started {
		return ErrFinalizeInProgress
	}

	begin := o.now()
	outcome, err := o.finalizeWithRetry(ctx, claimID)
	if err != nil {
		// The claim stays Pending rather than being marked with a guessed
		// outcome; an operator must intervene or re-trigger Finalize.
		if endErr := o.store.EndFinalize(claimID); endErr != nil {
			o.log.Error().Err(endErr).Str("claim_id", claimID.Hex()).Msg("failed to release finalize guard")
		}
		o.metrics.recordFinalizeFailure()
		o.log.Error().
			Err(err).
			Str("claim_id", claimID.Hex()).
			Int("attempts", o.finalizeAttempts).
			Msg("finalization failed permanently, claim remains pending, operator intervention required")
		return err
	}

	finalizedAt := o.now()
	if err := o.store.CompleteFinalize(claimID, func(c *claim.Claim) {
		c.Disputed = outcome.Disputed
		c.FinalizedAt = finalizedAt
		c.FinalizeTx = outcome.TxHash.Hex()
	}); err != nil {
		return fmt.Errorf("claim %s: %w", claimID.Hex(), err)
	}
	o.clearPending(claimID)

	rec, err := o.store.Get(claimID)
	if err != nil {
		return fmt.Errorf("claim %s: %w", claimID.Hex(), err)
	}

	kind := notifier.OutcomeUpheld
	if outcome.Disputed {
		kind = notifier.OutcomeDisputed
	}
	o.metrics.recordFinalization(string(kind), finalizedAt.Sub(begin).Seconds())

	o.log.Info().
		Str("claim_id", claimID.Hex()).
		Bool("disputed", outcome.Disputed).
		Str("outcome", string(kind)).
		Msg("claim finalized")

	o.notify(ctx, rec, kind)
	return nil
}

// finalizeWithRetry calls the ledger finalize with bounded exponential
// backoff. Only the final error of an exhausted loop is surfaced.
func (o *orchestrator) finalizeWithRetry(ctx context.Context, claimID claim.ID) (ledger.Outcome, error) {
	backoff := o.finalizeBackoff
	var lastErr error

	for attempt := 1; attempt <= o.finalizeAttempts; attempt++ {
		outcome, err := o.ledger.Finalize(ctx, claimID)
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if attempt == o.finalizeAttempts {
			break
		}
		o.metrics.recordFinalizeRetry()
		o.log.Warn().
			Err(err).
			Str("claim_id", claimID.Hex()).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("ledger finalize failed, retrying")

		select {
		case <-ctx.Done():
			return ledger.Outcome{}, fmt.Errorf("%w: %v", ledger.ErrFinalizationFailed, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return ledger.Outcome{}, lastErr
}

// notify dispatches the single outcome notification for a finalized claim.
// Delivery failures are logged and never re-open the claim.
func (o *orchestrator) notify(ctx context.Context, rec claim.Claim, kind notifier.OutcomeKind) {
	if rec.NotifyTarget == "" {
		return
	}

	details := notifier.Details{
		ClaimID:      rec.ID.Hex(),
		SubjectLabel: rec.SubjectLabel,
		Beneficiary:  rec.Beneficiary.Hex(),
	}
	if err := o.notifier.Notify(ctx, rec.NotifyTarget, kind, details); err != nil {
		o.metrics.recordNotification("failed")
		o.log.Warn().Err(err).Str("claim_id", rec.ID.Hex()).Str("target", rec.NotifyTarget).Msg("notification delivery failed")
		return
	}
	o.metrics.recordNotification("sent")
}

// ClaimStatus returns the orchestrator-local record for a claim.
func (o *orchestrator) ClaimStatus(claimID claim.ID) (claim.Claim, error) {
	return o.store.Get(claimID)
}

// PendingFinalizations lists claims whose finalization is scheduled.
func (o *orchestrator) PendingFinalizations() []claim.ID {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]claim.ID, 0, len(o.pending))
	for id := range o.pending {
		out = append(out, id)
	}
	return out
}

// Pools returns a copy of the subject candidates.
func (o *orchestrator) Pools() []Pool {
	out := make([]Pool, len(o.pools))
	copy(out, o.pools)
	return out
}

// Stop prevents new submissions and stops scheduled timers. Claims left
// Pending need a manual Finalize after restart; records are in-memory only.
func (o *orchestrator) Stop(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return nil
	}
	o.stopped = true
	for id, timer := range o.pending {
		timer.Stop()
		delete(o.pending, id)
	}
	o.metrics.setPending(0)
	o.log.Info().Msg("orchestrator stopped")
	return nil
}

// schedule arms the deferred finalization timer for a claim.
func (o *orchestrator) schedule(claimID claim.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return
	}

	o.pending[claimID] = o.timerFactory.AfterFunc(o.disputeWindow, func() {
		o.finalizeScheduled(claimID)
	})
	o.metrics.setPending(len(o.pending))
}

// clearPending drops the timer entry for a finalized claim.
func (o *orchestrator) clearPending(claimID claim.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if timer, ok := o.pending[claimID]; ok {
		timer.Stop()
		delete(o.pending, claimID)
	}
	o.metrics.setPending(len(o.pending))
}

// finalizeScheduled runs when a claim's dispute window elapses.
func (o *orchestrator) finalizeScheduled(claimID claim.ID) {
	err := o.Finalize(context.Background(), claimID)
	if err == nil || errors.Is(err, ErrAlreadyFinalized) || errors.Is(err, ErrFinalizeInProgress) {
		return
	}
	// Finalize already logged the failure; the claim remains visible as
	// Pending through ClaimStatus and metrics.
}

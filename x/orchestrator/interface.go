// Package orchestrator drives the claim lifecycle: submit with bond, wait
// out the dispute window, finalize exactly once, classify the outcome, and
// notify.
package orchestrator

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/axal-network/claim-agent/x/claim"
)

// ErrAlreadyFinalized signals an idempotent no-op: the claim was finalized by
// an earlier trigger. It is a signal, not a failure.
var ErrAlreadyFinalized = errors.New("orchestrator: claim already finalized")

// ErrFinalizeInProgress indicates another finalization attempt for the same
// claim is in flight; the duplicate trigger must not proceed.
var ErrFinalizeInProgress = errors.New("orchestrator: finalization in progress")

// ErrClaimIDMismatch indicates the locally re-derived claim id disagrees with
// the ledger client's. It means the derivation formulas drifted and must be
// fixed before any claim can be trusted.
var ErrClaimIDMismatch = errors.New("orchestrator: claim id mismatch")

// ErrStopped indicates the orchestrator no longer accepts new claims.
var ErrStopped = errors.New("orchestrator: stopped")

// SubmitRequest describes an inbound claim submission.
type SubmitRequest struct {
	// SubjectLabel is the claimed fact. Empty selects the best-ranked pool.
	SubjectLabel string

	// Beneficiary receives the reward if the claim survives.
	Beneficiary common.Address

	// NotifyTarget routes the outcome notification for this claim.
	NotifyTarget string
}

// Orchestrator is the claim lifecycle core consumed by the request gateway.
type Orchestrator interface {
	// SubmitClaim posts a bonded claim, records it, and schedules its
	// finalization after the dispute window. Returns the claim id
	// immediately; finalization is asynchronous.
	SubmitClaim(ctx context.Context, req SubmitRequest) (claim.ID, error)

	// SubmitDispute forwards a dispute to the ledger. Pure pass-through:
	// the orchestrator learns about disputes only from the ledger at
	// finalization time.
	SubmitDispute(ctx context.Context, disputer common.Address, claimID claim.ID) (common.Hash, error)

	// Finalize resolves the claim on the ledger and dispatches the single
	// outcome notification. Idempotent: duplicate triggers observe
	// ErrAlreadyFinalized.
	Finalize(ctx context.Context, claimID claim.ID) error

	// ClaimStatus returns the orchestrator-local record for a claim.
	ClaimStatus(claimID claim.ID) (claim.Claim, error)

	// PendingFinalizations lists claims with a scheduled finalization.
	PendingFinalizations() []claim.ID

	// Pools returns the known subject candidates.
	Pools() []Pool

	// Stop stops scheduling; in-flight finalizations complete on their own.
	Stop(ctx context.Context) error
}

// Package notifier delivers claim outcome notifications. Delivery is
// best-effort: the orchestrator guarantees at most one Notify call per
// finalization, not that the message arrives.
package notifier

import "context"

// OutcomeKind classifies a finalized claim's resolution.
type OutcomeKind string

const (
	// OutcomeUpheld: the claim survived the dispute window; the ledger
	// returned the bond and paid the reward to the beneficiary.
	OutcomeUpheld OutcomeKind = "upheld"

	// OutcomeDisputed: a counterparty disputed in time; the submitter was
	// slashed and no reward was paid.
	OutcomeDisputed OutcomeKind = "disputed"
)

// Details carries the human-facing context for a notification.
type Details struct {
	ClaimID      string
	SubjectLabel string
	Beneficiary  string
}

// Notifier sends an outcome event to a recipient target.
type Notifier interface {
	Notify(ctx context.Context, target string, kind OutcomeKind, details Details) error
}

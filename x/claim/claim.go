// Package claim defines the orchestrator-local claim record and its store.
package claim

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State tracks the orchestrator-side lifecycle of a claim.
// Transitions are monotonic: Pending -> Finalized. The dispute outcome is a
// ledger-read fact attached at finalization, not a separate state.
type State string

const (
	StatePending   State = "pending"
	StateFinalized State = "finalized"
)

// Claim is the orchestrator's record of a bonded claim. The settlement ledger
// remains the authority for bond and dispute facts; this record carries the
// scheduling and notification context the ledger does not know about.
type Claim struct {
	ID           common.Hash    `json:"id"`
	Submitter    common.Address `json:"submitter"`
	Beneficiary  common.Address `json:"beneficiary"`
	SubjectLabel string         `json:"subject_label"`
	CreatedAt    time.Time      `json:"created_at"`
	BondWei      *big.Int       `json:"bond_wei"`

	State State `json:"state"`

	// Disputed is only meaningful once State is StateFinalized; it is read
	// back from the ledger, never guessed locally.
	Disputed    bool      `json:"disputed"`
	FinalizedAt time.Time `json:"finalized_at,omitzero"`
	FinalizeTx  string    `json:"finalize_tx,omitempty"`

	// NotifyTarget routes the outcome notification for this claim. Stored per
	// record so concurrent claims cannot corrupt each other's routing.
	NotifyTarget string `json:"notify_target,omitempty"`

	SubmitTx string `json:"submit_tx,omitempty"`

	// finalizing marks an in-flight finalization attempt; it keeps duplicate
	// triggers from racing between the idempotence check and the ledger write.
	finalizing bool
}

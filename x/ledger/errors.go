package ledger

import "errors"

// Error taxonomy for ledger interactions. Callers classify with errors.Is;
// the wrapped cause carries the transport- or contract-level detail.
var (
	// ErrSubmissionFailed indicates the claim transaction was rejected at
	// signing, sequencing, or by the ledger. No claim exists on failure.
	ErrSubmissionFailed = errors.New("ledger: claim submission failed")

	// ErrDisputeRejected indicates the ledger refused the dispute: unknown
	// claim, already finalized, or dispute window elapsed. Not retryable.
	ErrDisputeRejected = errors.New("ledger: dispute rejected")

	// ErrFinalizationFailed indicates the finalize transaction was rejected
	// or never confirmed within the bounded wait. Retryable by the caller.
	ErrFinalizationFailed = errors.New("ledger: finalization failed")

	// ErrUnknownIdentity indicates no signer is registered for the requested
	// signing address.
	ErrUnknownIdentity = errors.New("ledger: unknown signing identity")
)

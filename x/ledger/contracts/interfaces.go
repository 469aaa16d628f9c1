package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Binding defines how to encode claim lifecycle calls for a specific
// settlement contract.
type Binding interface {
	// Address returns the settlement contract address.
	Address() common.Address

	// PackSubmitClaim encodes a submitClaim call; the bond travels as tx value.
	PackSubmitClaim(poolName string, timestamp *big.Int, beneficiary common.Address) ([]byte, error)

	// PackDisputeClaim encodes a disputeClaim call.
	PackDisputeClaim(claimID common.Hash) ([]byte, error)

	// PackFinalizeClaim encodes a finalizeClaim call.
	PackFinalizeClaim(claimID common.Hash) ([]byte, error)

	// PackClaimsCall and UnpackClaims round-trip the claims(claimId) view.
	PackClaimsCall(claimID common.Hash) ([]byte, error)
	UnpackClaims(output []byte) (ClaimRecord, error)
}

// ClaimRecord mirrors the ledger-side claim fields read back after
// finalization. Disputed and Resolved are the ledger's authoritative facts.
type ClaimRecord struct {
	PoolName    string
	CreatedAt   *big.Int
	Beneficiary common.Address
	Submitter   common.Address
	Disputed    bool
	Resolved    bool
}

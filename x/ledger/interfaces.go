// Package ledger implements the typed client for the external settlement
// ledger. The ledger itself enforces bond escrow, dispute validity, and fund
// transfer; this client only encodes calls and sequences transactions per
// signing identity.
package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/axal-network/claim-agent/x/ledger/contracts"
)

// SubmitResult reports a successfully issued claim transaction. ClaimID is
// derived locally with the contract's own formula from the public fields.
type SubmitResult struct {
	ClaimID   common.Hash
	CreatedAt time.Time
	TxHash    common.Hash
	BondWei   *big.Int
}

// Outcome is the authoritative resolution of a claim, read back from the
// ledger after the finalize transaction confirmed.
type Outcome struct {
	Disputed bool
	Resolved bool
	TxHash   common.Hash
}

// Client is the settlement ledger boundary consumed by the orchestrator.
type Client interface {
	// SubmitterAddress returns the agent identity that posts bonds.
	SubmitterAddress() common.Address

	// SubmitClaim posts the bond and records the claim on the ledger.
	// Fails with ErrSubmissionFailed.
	SubmitClaim(ctx context.Context, subjectLabel string, beneficiary common.Address) (SubmitResult, error)

	// SubmitDispute posts a dispute from a distinct registered identity.
	// Fails with ErrDisputeRejected.
	SubmitDispute(ctx context.Context, disputer common.Address, claimID common.Hash) (common.Hash, error)

	// Finalize requests ledger-side resolution, waits for the transaction to
	// confirm within a bounded window, then reads back the authoritative
	// outcome. Fails with ErrFinalizationFailed.
	Finalize(ctx context.Context, claimID common.Hash) (Outcome, error)

	// QueryClaim is a read-only lookup of the ledger-side claim record.
	QueryClaim(ctx context.Context, claimID common.Hash) (contracts.ClaimRecord, error)
}

// Backend is the narrow Ethereum node surface EthLedger depends on.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

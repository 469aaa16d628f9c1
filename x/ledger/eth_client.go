package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/axal-network/claim-agent/x/claim"
	"github.com/axal-network/claim-agent/x/ledger/contracts"
)

var _ Client = (*EthLedger)(nil)

// identitySequence serializes transaction issuance for one signing identity.
// The ledger rejects out-of-order nonces, so issuance per identity must be
// strictly ordered even when multiple claims are in flight.
type identitySequence struct {
	mu     sync.Mutex
	next   uint64
	synced bool
}

// EthLedger implements Client against an Ethereum-style settlement ledger
// through the PoolOracle contract binding.
type EthLedger struct {
	cfg     Config
	bond    *big.Int
	client  Backend
	binding contracts.Binding
	log     zerolog.Logger
	now     func() time.Time

	submitter Signer

	mu        sync.RWMutex
	signers   map[common.Address]Signer
	sequences map[common.Address]*identitySequence
}

// NewEthLedger creates the ledger client. The agent signer posts bonds and
// finalizes claims; further identities (disputers) are added with
// RegisterSigner.
func NewEthLedger(cfg Config, client Backend, binding contracts.Binding, agent Signer, log zerolog.Logger) (*EthLedger, error) {
	bond, err := cfg.Bond()
	if err != nil {
		return nil, err
	}

	e := &EthLedger{
		cfg:       cfg,
		bond:      bond,
		client:    client,
		binding:   binding,
		log:       log.With().Str("component", "eth-ledger").Logger(),
		now:       time.Now,
		submitter: agent,
		signers:   make(map[common.Address]Signer),
		sequences: make(map[common.Address]*identitySequence),
	}
	e.RegisterSigner(agent)
	return e, nil
}

// RegisterSigner adds a signing identity the ledger client may transact as.
func (e *EthLedger) RegisterSigner(s Signer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signers[s.Address()] = s
	e.sequences[s.Address()] = &identitySequence{}
}

// SubmitterAddress returns the agent identity.
func (e *EthLedger) SubmitterAddress() common.Address {
	return e.submitter.Address()
}

// SubmitClaim posts the fixed bond and records the claim on the ledger.
// The claim id is derived locally from the same public fields the contract
// hashes, so caller and observers agree on it without a read round trip.
func (e *EthLedger) SubmitClaim(ctx context.Context, subjectLabel string, beneficiary common.Address) (SubmitResult, error) {
	createdAt := e.now().Truncate(time.Second)

	calldata, err := e.binding.PackSubmitClaim(subjectLabel, big.NewInt(createdAt.Unix()), beneficiary)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	txHash, err := e.sendTx(ctx, e.submitter.Address(), e.binding.Address(), e.bond, calldata)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	id := claim.DeriveID(e.submitter.Address(), createdAt, subjectLabel, beneficiary)
	e.log.Info().
		Str("claim_id", id.Hex()).
		Str("tx_hash", txHash.Hex()).
		Str("subject", subjectLabel).
		Str("beneficiary", beneficiary.Hex()).
		Str("bond_wei", e.bond.String()).
		Msg("claim submitted")

	return SubmitResult{ClaimID: id, CreatedAt: createdAt, TxHash: txHash, BondWei: new(big.Int).Set(e.bond)}, nil
}

// SubmitDispute posts a dispute from the given registered identity. The
// ledger is the authority on dispute validity; a revert (unknown claim,
// closed window, already finalized) surfaces as ErrDisputeRejected.
func (e *EthLedger) SubmitDispute(ctx context.Context, disputer common.Address, claimID common.Hash) (common.Hash, error) {
	calldata, err := e.binding.PackDisputeClaim(claimID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrDisputeRejected, err)
	}

	txHash, err := e.sendTx(ctx, disputer, e.binding.Address(), nil, calldata)
	if err != nil {
		if errors.Is(err, ErrUnknownIdentity) {
			return common.Hash{}, err
		}
		return common.Hash{}, fmt.Errorf("%w: %v", ErrDisputeRejected, err)
	}

	e.log.Info().
		Str("claim_id", claimID.Hex()).
		Str("tx_hash", txHash.Hex()).
		Str("disputer", disputer.Hex()).
		Msg("dispute submitted")

	return txHash, nil
}

// Finalize sends the finalize transaction, waits for it to confirm within
// the configured bound, then reads back the authoritative claim record.
func (e *EthLedger) Finalize(ctx context.Context, claimID common.Hash) (Outcome, error) {
	calldata, err := e.binding.PackFinalizeClaim(claimID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrFinalizationFailed, err)
	}

	txHash, err := e.sendTx(ctx, e.submitter.Address(), e.binding.Address(), nil, calldata)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrFinalizationFailed, err)
	}

	receipt, err := e.waitMined(ctx, txHash)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrFinalizationFailed, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return Outcome{}, fmt.Errorf("%w: finalize transaction %s reverted", ErrFinalizationFailed, txHash.Hex())
	}

	record, err := e.QueryClaim(ctx, claimID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrFinalizationFailed, err)
	}

	e.log.Info().
		Str("claim_id", claimID.Hex()).
		Str("tx_hash", txHash.Hex()).
		Bool("disputed", record.Disputed).
		Msg("claim finalized on ledger")

	return Outcome{Disputed: record.Disputed, Resolved: record.Resolved, TxHash: txHash}, nil
}

// QueryClaim reads the ledger-side claim record.
func (e *EthLedger) QueryClaim(ctx context.Context, claimID common.Hash) (contracts.ClaimRecord, error) {
	calldata, err := e.binding.PackClaimsCall(claimID)
	if err != nil {
		return contracts.ClaimRecord{}, err
	}

	to := e.binding.Address()
	output, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: calldata}, nil)
	if err != nil {
		return contracts.ClaimRecord{}, fmt.Errorf("claims call failed: %w", err)
	}

	return e.binding.UnpackClaims(output)
}

// sendTx builds, signs, and sends a transaction from the given identity,
// holding that identity's sequence lock across issuance so nonces stay
// strictly ordered. On failure the cached nonce is invalidated and re-synced
// from the node on the next send.
func (e *EthLedger) sendTx(ctx context.Context, from, to common.Address, value *big.Int, calldata []byte) (common.Hash, error) {
	e.mu.RLock()
	signer, ok := e.signers[from]
	seq := e.sequences[from]
	e.mu.RUnlock()
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrUnknownIdentity, from.Hex())
	}

	seq.mu.Lock()
	defer seq.mu.Unlock()

	if !seq.synced {
		nonce, err := e.client.PendingNonceAt(ctx, from)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to fetch nonce: %w", err)
		}
		seq.next = nonce
		seq.synced = true
	}

	if value == nil {
		value = new(big.Int)
	}

	gas, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  calldata,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas estimation failed: %w", err)
	}
	if e.cfg.GasLimitBufferPct > 0 {
		gas += gas * e.cfg.GasLimitBufferPct / 100
	}

	tx, err := e.buildTx(ctx, to, value, calldata, seq.next, gas)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := signer.SignTx(tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		seq.synced = false
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	seq.next++
	return signed.Hash(), nil
}

// buildTx assembles either an EIP-1559 dynamic-fee or a legacy transaction
// according to configuration.
func (e *EthLedger) buildTx(ctx context.Context, to common.Address, value *big.Int, calldata []byte, nonce, gas uint64) (*types.Transaction, error) {
	if !e.cfg.UseEIP1559 {
		gasPrice, err := e.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &to,
			Value:    value,
			Data:     calldata,
		}), nil
	}

	tipCap, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas tip cap: %w", err)
	}
	if cap := parseOptionalWei(e.cfg.MaxPriorityFeeWei); cap != nil && tipCap.Cmp(cap) > 0 {
		tipCap = cap
	}

	head, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch head: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}

	// feeCap = 2*baseFee + tip, optionally capped by config.
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tipCap)
	if cap := parseOptionalWei(e.cfg.MaxFeePerGasWei); cap != nil && feeCap.Cmp(cap) > 0 {
		feeCap = cap
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(e.cfg.ChainID),
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      calldata,
	}), nil
}

// waitMined polls for the transaction receipt until ConfirmTimeout elapses.
func (e *EthLedger) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			e.log.Debug().Err(err).Str("tx_hash", txHash.Hex()).Msg("receipt lookup failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not confirmed within %s: %w", txHash.Hex(), e.cfg.ConfirmTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// parseOptionalWei returns nil for empty or zero config values.
func parseOptionalWei(s string) *big.Int {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}

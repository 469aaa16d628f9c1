// Package contracts holds ABI bindings for the on-chain settlement contracts.
package contracts

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// PoolOracle ABI JSON embedded at compile time
//
//go:embed abi/pool_oracle.json
var poolOracleABIJSON string

var _ Binding = (*PoolOracleBinding)(nil)

// claimArg mirrors the tuple returned by the contract's claims(bytes32) view.
type claimArg struct {
	PoolName    string         `abi:"poolName"`
	CreatedAt   *big.Int       `abi:"createdAt"`
	Beneficiary common.Address `abi:"beneficiary"`
	Submitter   common.Address `abi:"submitter"`
	Disputed    bool           `abi:"disputed"`
	Resolved    bool           `abi:"resolved"`
}

// PoolOracleBinding provides calldata encoding for the PoolOracle settlement
// contract: submitClaim (bond attached as tx value), disputeClaim,
// finalizeClaim, and the claims/requiredBond read-only views.
type PoolOracleBinding struct {
	address common.Address
	abi     abi.ABI
}

// NewPoolOracleBinding creates a binding for the contract at contractAddr.
// It parses the embedded ABI and validates the address.
func NewPoolOracleBinding(contractAddr string) (*PoolOracleBinding, error) {
	if strings.TrimSpace(contractAddr) == "" {
		return nil, fmt.Errorf("contract address cannot be empty")
	}

	parsedABI, err := abi.JSON(strings.NewReader(poolOracleABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return &PoolOracleBinding{
		address: common.HexToAddress(contractAddr),
		abi:     parsedABI,
	}, nil
}

// Address returns the Ethereum address of the PoolOracle contract.
func (b *PoolOracleBinding) Address() common.Address {
	return b.address
}

// ABI returns the parsed ABI of the PoolOracle contract.
func (b *PoolOracleBinding) ABI() abi.ABI {
	return b.abi
}

// PackSubmitClaim encodes calldata for submitClaim(poolName, timestamp, beneficiary).
// The bond is attached as transaction value by the caller.
func (b *PoolOracleBinding) PackSubmitClaim(poolName string, timestamp *big.Int, beneficiary common.Address) ([]byte, error) {
	if strings.TrimSpace(poolName) == "" {
		return nil, fmt.Errorf("pool name cannot be empty")
	}
	data, err := b.abi.Pack("submitClaim", poolName, timestamp, beneficiary)
	if err != nil {
		return nil, fmt.Errorf("failed to pack submitClaim calldata: %w", err)
	}
	return data, nil
}

// PackDisputeClaim encodes calldata for disputeClaim(claimId).
func (b *PoolOracleBinding) PackDisputeClaim(claimID common.Hash) ([]byte, error) {
	data, err := b.abi.Pack("disputeClaim", [32]byte(claimID))
	if err != nil {
		return nil, fmt.Errorf("failed to pack disputeClaim calldata: %w", err)
	}
	return data, nil
}

// PackFinalizeClaim encodes calldata for finalizeClaim(claimId).
func (b *PoolOracleBinding) PackFinalizeClaim(claimID common.Hash) ([]byte, error) {
	data, err := b.abi.Pack("finalizeClaim", [32]byte(claimID))
	if err != nil {
		return nil, fmt.Errorf("failed to pack finalizeClaim calldata: %w", err)
	}
	return data, nil
}

// PackClaimsCall encodes calldata for the claims(claimId) view.
func (b *PoolOracleBinding) PackClaimsCall(claimID common.Hash) ([]byte, error) {
	data, err := b.abi.Pack("claims", [32]byte(claimID))
	if err != nil {
		return nil, fmt.Errorf("failed to pack claims calldata: %w", err)
	}
	return data, nil
}

// UnpackClaims decodes the claims(claimId) return data into a ClaimRecord.
func (b *PoolOracleBinding) UnpackClaims(output []byte) (ClaimRecord, error) {
	var arg claimArg
	if err := b.abi.UnpackIntoInterface(&arg, "claims", output); err != nil {
		return ClaimRecord{}, fmt.Errorf("failed to unpack claims output: %w", err)
	}
	return ClaimRecord{
		PoolName:    arg.PoolName,
		CreatedAt:   arg.CreatedAt,
		Beneficiary: arg.Beneficiary,
		Submitter:   arg.Submitter,
		Disputed:    arg.Disputed,
		Resolved:    arg.Resolved,
	}, nil
}

// PackRequiredBondCall encodes calldata for the requiredBond() view.
func (b *PoolOracleBinding) PackRequiredBondCall() ([]byte, error) {
	data, err := b.abi.Pack("requiredBond")
	if err != nil {
		return nil, fmt.Errorf("failed to pack requiredBond calldata: %w", err)
	}
	return data, nil
}

// UnpackRequiredBond decodes the requiredBond() return data.
func (b *PoolOracleBinding) UnpackRequiredBond(output []byte) (*big.Int, error) {
	vals, err := b.abi.Unpack("requiredBond", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack requiredBond output: %w", err)
	}
	bond, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected requiredBond return type %T", vals[0])
	}
	return bond, nil
}

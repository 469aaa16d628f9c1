package claim

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// ID is a claim identifier, a 32-byte keccak hash.
type ID = common.Hash

// DeriveID computes the claim identifier exactly as the PoolOracle contract
// does: keccak256(abi.encodePacked(submitter, uint256(createdAt), subjectLabel,
// beneficiary)). Both the agent and any external observer can recompute it
// from public fields without a ledger round trip.
func DeriveID(submitter common.Address, createdAt time.Time, subjectLabel string, beneficiary common.Address) common.Hash {
	ts := math.U256Bytes(new(big.Int).SetInt64(createdAt.Unix()))
	return crypto.Keccak256Hash(
		submitter.Bytes(),
		ts,
		[]byte(subjectLabel),
		beneficiary.Bytes(),
	)
}

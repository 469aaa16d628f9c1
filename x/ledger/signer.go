package ledger

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs ledger transactions for a single identity.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction) (*types.Transaction, error)
}

var _ Signer = (*LocalECDSASigner)(nil)

// LocalECDSASigner signs with an in-memory secp256k1 key.
type LocalECDSASigner struct {
	chainID *big.Int
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalECDSASigner creates a signer bound to chainID.
func NewLocalECDSASigner(chainID *big.Int, key *ecdsa.PrivateKey) *LocalECDSASigner {
	return &LocalECDSASigner{
		chainID: chainID,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// NewLocalECDSASignerFromHex parses a hex-encoded private key (with or
// without 0x prefix) and creates a signer bound to chainID.
func NewLocalECDSASignerFromHex(chainID *big.Int, pkHex string) (*LocalECDSASigner, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(pkHex), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewLocalECDSASigner(chainID, key), nil
}

// Address returns the identity this signer signs for.
func (s *LocalECDSASigner) Address() common.Address {
	return s.address
}

// SignTx signs tx with the latest signer scheme for the configured chain.
func (s *LocalECDSASigner) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
}

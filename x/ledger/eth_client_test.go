package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/axal-network/claim-agent/x/claim"
	"github.com/axal-network/claim-agent/x/ledger/contracts"
)

type mockBackend struct {
	mu sync.Mutex

	sent         []*types.Transaction
	nonce        uint64
	nonceCalls   int
	estimateErr  error
	sendErr      error
	callOutput   []byte
	callErr      error
	receiptAfter int // polls before the receipt shows up; negative = never
	receipt      *types.Receipt
	polls        int
}

func (m *mockBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(11155111), nil }

func (m *mockBackend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonceCalls++
	return m.nonce, nil
}

func (m *mockBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (m *mockBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func (m *mockBackend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	if m.estimateErr != nil {
		return 0, m.estimateErr
	}
	return 100_000, nil
}

func (m *mockBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{
		Number:  big.NewInt(100),
		BaseFee: big.NewInt(10_000_000_000),
		Time:    uint64(time.Now().Unix()),
	}, nil
}

func (m *mockBackend) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if m.callErr != nil {
		return nil, m.callErr
	}
	return m.callOutput, nil
}

func (m *mockBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, tx)
	return nil
}

func (m *mockBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	if m.receiptAfter < 0 || m.polls <= m.receiptAfter {
		return nil, ethereum.NotFound
	}
	if m.receipt != nil {
		return m.receipt, nil
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ChainID = 11155111
	cfg.GasLimitBufferPct = 0
	cfg.ReceiptPollInterval = time.Millisecond
	cfg.ConfirmTimeout = 100 * time.Millisecond
	return cfg
}

func newTestLedger(t *testing.T, backend *mockBackend) (*EthLedger, *LocalECDSASigner) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	agent := NewLocalECDSASigner(big.NewInt(11155111), key)

	binding, err := contracts.NewPoolOracleBinding("0x60eAEB512121c73E9eb8Dd68Ef9D80576b0b03f2")
	require.NoError(t, err)

	led, err := NewEthLedger(testConfig(), backend, binding, agent, zerolog.Nop())
	require.NoError(t, err)
	return led, agent
}

func TestSubmitClaim_SignsAndSends(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{nonce: 7}
	led, agent := newTestLedger(t, backend)

	beneficiary := common.HexToAddress("0xD98c48934Ec9c4a3EeddB7cBF2D7CaF09dA76D43")
	res, err := led.SubmitClaim(context.Background(), "Pool D", beneficiary)
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	sent := backend.sent[0]
	require.Equal(t, uint64(7), sent.Nonce())
	require.Equal(t, common.HexToAddress("0x60eAEB512121c73E9eb8Dd68Ef9D80576b0b03f2"), *sent.To())

	// Bond travels as transaction value.
	bond, err := testConfig().Bond()
	require.NoError(t, err)
	require.Zero(t, sent.Value().Cmp(bond))

	// Claim id matches an independent derivation from public fields.
	require.Equal(t, claim.DeriveID(agent.Address(), res.CreatedAt, "Pool D", beneficiary), res.ClaimID)
	require.Equal(t, sent.Hash(), res.TxHash)
}

func TestSubmitClaim_SendFailure(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{sendErr: errors.New("replacement transaction underpriced")}
	led, _ := newTestLedger(t, backend)

	_, err := led.SubmitClaim(context.Background(), "Pool D", common.Address{})
	require.ErrorIs(t, err, ErrSubmissionFailed)
}

func TestSendTx_NoncesIncrementPerIdentity(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{nonce: 3}
	led, _ := newTestLedger(t, backend)

	for i := 0; i < 3; i++ {
		_, err := led.SubmitClaim(context.Background(), "Pool A", common.HexToAddress("0x01"))
		require.NoError(t, err)
	}

	require.Len(t, backend.sent, 3)
	for i, tx := range backend.sent {
		require.Equal(t, uint64(3+i), tx.Nonce())
	}
	// Nonce fetched from the node once, then sequenced locally.
	require.Equal(t, 1, backend.nonceCalls)
}

func TestSendTx_ResyncsNonceAfterSendFailure(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{nonce: 3, sendErr: errors.New("nonce too low")}
	led, _ := newTestLedger(t, backend)

	_, err := led.SubmitClaim(context.Background(), "Pool A", common.Address{})
	require.ErrorIs(t, err, ErrSubmissionFailed)

	backend.mu.Lock()
	backend.sendErr = nil
	backend.nonce = 9
	backend.mu.Unlock()

	_, err = led.SubmitClaim(context.Background(), "Pool A", common.Address{})
	require.NoError(t, err)
	require.Equal(t, uint64(9), backend.sent[0].Nonce())
	require.Equal(t, 2, backend.nonceCalls)
}

func TestSubmitDispute_UnknownIdentity(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{}
	led, _ := newTestLedger(t, backend)

	_, err := led.SubmitDispute(context.Background(), common.HexToAddress("0xbeef"), common.Hash{0x01})
	require.ErrorIs(t, err, ErrUnknownIdentity)
}

func TestSubmitDispute_RevertMapsToRejected(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{estimateErr: errors.New("execution reverted: dispute window elapsed")}
	led, _ := newTestLedger(t, backend)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	disputer := NewLocalECDSASigner(big.NewInt(11155111), key)
	led.RegisterSigner(disputer)

	_, err = led.SubmitDispute(context.Background(), disputer.Address(), common.Hash{0x01})
	require.ErrorIs(t, err, ErrDisputeRejected)
}

func TestSubmitDispute_SequencedIndependentlyFromAgent(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{nonce: 5}
	led, _ := newTestLedger(t, backend)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	disputer := NewLocalECDSASigner(big.NewInt(11155111), key)
	led.RegisterSigner(disputer)

	_, err = led.SubmitClaim(context.Background(), "Pool A", common.HexToAddress("0x01"))
	require.NoError(t, err)
	_, err = led.SubmitDispute(context.Background(), disputer.Address(), common.Hash{0x01})
	require.NoError(t, err)

	require.Len(t, backend.sent, 2)
	// Both identities start from the node nonce; the dispute does not consume
	// the agent's sequence.
	require.Equal(t, uint64(5), backend.sent[0].Nonce())
	require.Equal(t, uint64(5), backend.sent[1].Nonce())
}

func claimsOutput(t *testing.T, disputed bool) []byte {
	t.Helper()
	binding, err := contracts.NewPoolOracleBinding("0x60eAEB512121c73E9eb8Dd68Ef9D80576b0b03f2")
	require.NoError(t, err)
	out, err := binding.ABI().Methods["claims"].Outputs.Pack(
		"Pool D", big.NewInt(1714000000),
		common.HexToAddress("0x01"), common.HexToAddress("0x02"),
		disputed, true,
	)
	require.NoError(t, err)
	return out
}

func TestFinalize_ReadsBackDisputedFlag(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{receiptAfter: 2, callOutput: claimsOutput(t, true)}
	led, _ := newTestLedger(t, backend)

	outcome, err := led.Finalize(context.Background(), common.Hash{0xAB})
	require.NoError(t, err)
	require.True(t, outcome.Disputed)
	require.True(t, outcome.Resolved)
	require.NotEqual(t, common.Hash{}, outcome.TxHash)
	// Receipt was actually polled before the state read.
	require.GreaterOrEqual(t, backend.polls, 3)
}

func TestFinalize_RevertedReceipt(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{
		receipt:    &types.Receipt{Status: types.ReceiptStatusFailed},
		callOutput: claimsOutput(t, false),
	}
	led, _ := newTestLedger(t, backend)

	_, err := led.Finalize(context.Background(), common.Hash{0xAB})
	require.ErrorIs(t, err, ErrFinalizationFailed)
}

func TestFinalize_ConfirmationTimeout(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{receiptAfter: -1}
	led, _ := newTestLedger(t, backend)

	_, err := led.Finalize(context.Background(), common.Hash{0xAB})
	require.ErrorIs(t, err, ErrFinalizationFailed)
}

func TestQueryClaim(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{callOutput: claimsOutput(t, false)}
	led, _ := newTestLedger(t, backend)

	rec, err := led.QueryClaim(context.Background(), common.Hash{0xAB})
	require.NoError(t, err)
	require.Equal(t, "Pool D", rec.PoolName)
	require.False(t, rec.Disputed)
	require.True(t, rec.Resolved)
}

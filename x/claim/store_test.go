package claim

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testClaim(idByte byte) Claim {
	var id common.Hash
	id[0] = idByte
	return Claim{
		ID:           id,
		SubjectLabel: "Pool D",
		CreatedAt:    time.Unix(1714000000, 0),
		State:        StatePending,
		NotifyTarget: "user@example.com",
	}
}

func TestStore_PutRejectsDuplicates(t *testing.T) {
	t.Parallel()

	s := NewStore()
	c := testClaim(0x01)
	require.NoError(t, s.Put(c))
	require.Error(t, s.Put(c))
	require.Equal(t, 1, s.Len())
}

func TestStore_GetUnknown(t *testing.T) {
	t.Parallel()

	s := NewStore()
	_, err := s.Get(common.Hash{0xff})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateMutates(t *testing.T) {
	t.Parallel()

	s := NewStore()
	c := testClaim(0x01)
	require.NoError(t, s.Put(c))

	require.NoError(t, s.Update(c.ID, func(cl *Claim) {
		cl.State = StateFinalized
		cl.Disputed = true
	}))

	got, err := s.Get(c.ID)
	require.NoError(t, err)
	require.Equal(t, StateFinalized, got.State)
	require.True(t, got.Disputed)
}

func TestStore_BeginFinalizeGuard(t *testing.T) {
	t.Parallel()

	s := NewStore()
	c := testClaim(0x01)
	require.NoError(t, s.Put(c))

	started, already, err := s.BeginFinalize(c.ID)
	require.NoError(t, err)
	require.True(t, started)
	require.False(t, already)

	// Second caller while the first is in flight is a duplicate, not a winner.
	started, already, err = s.BeginFinalize(c.ID)
	require.NoError(t, err)
	require.False(t, started)
	require.False(t, already)

	// Releasing the guard makes the claim finalizable again.
	require.NoError(t, s.EndFinalize(c.ID))
	started, already, err = s.BeginFinalize(c.ID)
	require.NoError(t, err)
	require.True(t, started)
	require.False(t, already)

	require.NoError(t, s.Update(c.ID, func(cl *Claim) {
		cl.State = StateFinalized
		cl.finalizing = false
	}))

	started, already, err = s.BeginFinalize(c.ID)
	require.NoError(t, err)
	require.False(t, started)
	require.True(t, already)
}

func TestStore_ConcurrentBeginFinalize_SingleWinner(t *testing.T) {
	t.Parallel()

	s := NewStore()
	c := testClaim(0x01)
	require.NoError(t, s.Put(c))

	const callers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started, _, err := s.BeginFinalize(c.ID)
			require.NoError(t, err)
			if started {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	require.Equal(t, 1, count)
}

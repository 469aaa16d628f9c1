package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePoolsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPools(t *testing.T) {
	t.Parallel()

	path := writePoolsFile(t, `
pools:
  - name: "Staked ETH"
    apy: 4.1
  - name: "Stable LP"
    apy: 11.7
`)

	pools, err := LoadPools(path)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	require.Equal(t, "Staked ETH", pools[0].Name)
	require.InDelta(t, 11.7, pools[1].APY, 1e-9)

	best, err := BestPool(pools)
	require.NoError(t, err)
	require.Equal(t, "Stable LP", best.Name)
}

func TestLoadPools_Empty(t *testing.T) {
	t.Parallel()

	path := writePoolsFile(t, "pools: []\n")
	_, err := LoadPools(path)
	require.ErrorIs(t, err, ErrNoPools)
}

func TestLoadPools_UnnamedEntry(t *testing.T) {
	t.Parallel()

	path := writePoolsFile(t, `
pools:
  - name: ""
    apy: 1.0
`)
	_, err := LoadPools(path)
	require.Error(t, err)
}

func TestLoadPools_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadPools(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

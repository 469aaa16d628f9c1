package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoPools indicates no subject candidates are configured.
var ErrNoPools = errors.New("orchestrator: no pools configured")

// Pool is a subject candidate: a yield pool and its advertised APY.
type Pool struct {
	Name string  `json:"pool_name" mapstructure:"name" yaml:"name"`
	APY  float64 `json:"apy"       mapstructure:"apy"  yaml:"apy"`
}

// DefaultPools returns the static candidate set the agent monitors.
func DefaultPools() []Pool {
	return []Pool{
		{Name: "Pool A", APY: 15.2},
		{Name: "Pool B", APY: 18.5},
		{Name: "Pool C", APY: 9.8},
		{Name: "Pool D", APY: 22.1},
		{Name: "Pool E", APY: 14.3},
	}
}

// LoadPools reads a pool table from a YAML file:
//
//	pools:
//	  - name: "Pool A"
//	    apy: 15.2
func LoadPools(path string) ([]Pool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pools file: %w", err)
	}

	var doc struct {
		Pools []Pool `yaml:"pools"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pools file %s: %w", path, err)
	}
	if len(doc.Pools) == 0 {
		return nil, fmt.Errorf("pools file %s: %w", path, ErrNoPools)
	}
	for i, p := range doc.Pools {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("pools file %s: entry %d has an empty name", path, i)
		}
	}
	return doc.Pools, nil
}

// BestPool returns the highest-APY candidate.
func BestPool(pools []Pool) (Pool, error) {
	if len(pools) == 0 {
		return Pool{}, ErrNoPools
	}
	best := pools[0]
	for _, p := range pools[1:] {
		if p.APY > best.APY {
			best = p
		}
	}
	return best, nil
}

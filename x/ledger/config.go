package ledger

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Config holds settlement ledger client configuration.
type Config struct {
	// RPC endpoint to an Ethereum node.
	RPCEndpoint string `mapstructure:"rpc_endpoint" yaml:"rpc_endpoint"`

	// Address (hex) of the PoolOracle settlement contract.
	OracleContract string `mapstructure:"oracle_contract" yaml:"oracle_contract"`

	// Chain configuration
	ChainID uint64 `mapstructure:"chain_id" yaml:"chain_id"`

	// BondWei is the fixed bond escrowed per claim, in wei (decimal string).
	// Must match the requiredBond the contract was deployed with.
	BondWei string `mapstructure:"bond_wei" yaml:"bond_wei"`

	// Gas/fees configuration (EIP-1559)
	UseEIP1559        bool   `mapstructure:"use_eip1559"          yaml:"use_eip1559"`
	MaxFeePerGasWei   string `mapstructure:"max_fee_per_gas_wei"  yaml:"max_fee_per_gas_wei"`  // optional cap
	MaxPriorityFeeWei string `mapstructure:"max_priority_fee_wei" yaml:"max_priority_fee_wei"` // optional tip cap
	GasLimitBufferPct uint64 `mapstructure:"gas_limit_buffer_pct" yaml:"gas_limit_buffer_pct"` // add buffer to estimates

	// Receipt polling bounds for Finalize. The wait is bounded, not a spin:
	// the receipt is polled every ReceiptPollInterval until ConfirmTimeout.
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval" yaml:"receipt_poll_interval"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout"       yaml:"confirm_timeout"`

	// Signing configuration. The agent key is required; the disputer key is
	// optional and only needed when this instance also serves disputes.
	AgentPkHex    string `mapstructure:"agent_pk_hex"    yaml:"agent_pk_hex"    env:"LEDGER_AGENT_PK_HEX"`
	DisputerPkHex string `mapstructure:"disputer_pk_hex" yaml:"disputer_pk_hex" env:"LEDGER_DISPUTER_PK_HEX"`
}

// DefaultConfig returns ledger defaults matching the deployed contract.
func DefaultConfig() Config {
	return Config{
		UseEIP1559:          true,
		GasLimitBufferPct:   15,
		BondWei:             "100000000000000", // 0.0001 ETH
		ReceiptPollInterval: 5 * time.Second,
		ConfirmTimeout:      2 * time.Minute,
	}
}

// Bond parses BondWei into a big integer.
func (c Config) Bond() (*big.Int, error) {
	s := strings.TrimSpace(c.BondWei)
	if s == "" {
		return nil, fmt.Errorf("bond_wei is required")
	}
	bond, ok := new(big.Int).SetString(s, 10)
	if !ok || bond.Sign() < 0 {
		return nil, fmt.Errorf("invalid bond_wei %q", c.BondWei)
	}
	return bond, nil
}

// Validate checks the configuration for completeness.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RPCEndpoint) == "" {
		return fmt.Errorf("ledger.rpc_endpoint is required")
	}
	if strings.TrimSpace(c.OracleContract) == "" {
		return fmt.Errorf("ledger.oracle_contract is required")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("ledger.chain_id is required")
	}
	if _, err := c.Bond(); err != nil {
		return fmt.Errorf("ledger.bond_wei: %w", err)
	}
	if c.ReceiptPollInterval <= 0 {
		return fmt.Errorf("ledger.receipt_poll_interval must be positive")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("ledger.confirm_timeout must be positive")
	}
	if strings.TrimSpace(c.AgentPkHex) == "" {
		return fmt.Errorf("ledger.agent_pk_hex is required")
	}
	return nil
}

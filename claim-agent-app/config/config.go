// Package config loads the claim agent application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	apisrv "github.com/axal-network/claim-agent/server/api"
	"github.com/axal-network/claim-agent/x/ledger"
	"github.com/axal-network/claim-agent/x/notifier"
	"github.com/axal-network/claim-agent/x/orchestrator"
)

// Config holds the complete application configuration
type Config struct {
	API          apisrv.Config      `mapstructure:"api"          yaml:"api"`
	Ledger       ledger.Config      `mapstructure:"ledger"       yaml:"ledger"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Notifier     NotifierConfig     `mapstructure:"notifier"     yaml:"notifier"`
	Metrics      MetricsConfig      `mapstructure:"metrics"      yaml:"metrics"`
	Log          LogConfig          `mapstructure:"log"          yaml:"log"`
}

// OrchestratorConfig holds claim lifecycle tuning
type OrchestratorConfig struct {
	DisputeWindow    time.Duration       `mapstructure:"dispute_window"    yaml:"dispute_window"    env:"ORCHESTRATOR_DISPUTE_WINDOW"`
	FinalizeAttempts int                 `mapstructure:"finalize_attempts" yaml:"finalize_attempts" env:"ORCHESTRATOR_FINALIZE_ATTEMPTS"`
	FinalizeBackoff  time.Duration       `mapstructure:"finalize_backoff"  yaml:"finalize_backoff"  env:"ORCHESTRATOR_FINALIZE_BACKOFF"`
	Pools            []orchestrator.Pool `mapstructure:"pools"             yaml:"pools"`

	// PoolsFile overrides the inline pool table with an external YAML file.
	PoolsFile string `mapstructure:"pools_file" yaml:"pools_file" env:"ORCHESTRATOR_POOLS_FILE"`
}

// NotifierConfig holds outcome notification configuration
type NotifierConfig struct {
	SMTP notifier.SMTPConfig `mapstructure:"smtp" yaml:"smtp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `mapstructure:"path"    yaml:"path"    env:"METRICS_PATH"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  env:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Fallback env aliases for secrets kept out of the config file
	if strings.TrimSpace(cfg.Ledger.AgentPkHex) == "" {
		if val := strings.TrimSpace(os.Getenv("LEDGER_AGENT_PK_HEX")); val != "" {
			cfg.Ledger.AgentPkHex = val
		}
	}
	if strings.TrimSpace(cfg.Ledger.DisputerPkHex) == "" {
		if val := strings.TrimSpace(os.Getenv("LEDGER_DISPUTER_PK_HEX")); val != "" {
			cfg.Ledger.DisputerPkHex = val
		}
	}
	if strings.TrimSpace(cfg.Notifier.SMTP.Password) == "" {
		if val := strings.TrimSpace(os.Getenv("NOTIFIER_SMTP_PASSWORD")); val != "" {
			cfg.Notifier.SMTP.Password = val
		}
	}

	if strings.TrimSpace(cfg.Orchestrator.PoolsFile) != "" {
		pools, err := orchestrator.LoadPools(cfg.Orchestrator.PoolsFile)
		if err != nil {
			return nil, err
		}
		cfg.Orchestrator.Pools = pools
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.listen_addr", ":8081")
	v.SetDefault("api.read_header_timeout", "5s")
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.idle_timeout", "120s")
	v.SetDefault("api.max_header_bytes", 1048576)
	v.SetDefault("api.cors_origins", []string{})
	v.SetDefault("api.rate_limit_rps", 50)
	v.SetDefault("api.rate_limit_burst", 100)

	v.SetDefault("ledger.rpc_endpoint", "")
	v.SetDefault("ledger.oracle_contract", "")
	v.SetDefault("ledger.chain_id", 0)
	v.SetDefault("ledger.bond_wei", "100000000000000") // 0.0001 ETH
	v.SetDefault("ledger.use_eip1559", true)
	v.SetDefault("ledger.max_fee_per_gas_wei", "0")
	v.SetDefault("ledger.max_priority_fee_wei", "0")
	v.SetDefault("ledger.gas_limit_buffer_pct", 15)
	v.SetDefault("ledger.receipt_poll_interval", "5s")
	v.SetDefault("ledger.confirm_timeout", "2m")
	v.SetDefault("ledger.agent_pk_hex", "")
	v.SetDefault("ledger.disputer_pk_hex", "")

	v.SetDefault("orchestrator.dispute_window", "5m")
	v.SetDefault("orchestrator.finalize_attempts", 5)
	v.SetDefault("orchestrator.finalize_backoff", "10s")
	v.SetDefault("orchestrator.pools_file", "")

	v.SetDefault("notifier.smtp.host", "smtp.gmail.com")
	v.SetDefault("notifier.smtp.port", 587)
	v.SetDefault("notifier.smtp.from", "")
	v.SetDefault("notifier.smtp.password", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	if c.Orchestrator.DisputeWindow <= 0 {
		return fmt.Errorf("orchestrator.dispute_window must be positive")
	}
	if c.Orchestrator.FinalizeAttempts <= 0 {
		return fmt.Errorf("orchestrator.finalize_attempts must be positive")
	}
	if c.Orchestrator.FinalizeBackoff <= 0 {
		return fmt.Errorf("orchestrator.finalize_backoff must be positive")
	}
	for i, p := range c.Orchestrator.Pools {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("orchestrator.pools[%d] has an empty name", i)
		}
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		API:    apisrv.DefaultConfig(),
		Ledger: ledger.DefaultConfig(),
		Orchestrator: OrchestratorConfig{
			DisputeWindow:    orchestrator.DefaultDisputeWindow,
			FinalizeAttempts: orchestrator.DefaultFinalizeAttempts,
			FinalizeBackoff:  orchestrator.DefaultFinalizeBackoff,
			Pools:            orchestrator.DefaultPools(),
		},
		Notifier: NotifierConfig{
			SMTP: notifier.DefaultSMTPConfig(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

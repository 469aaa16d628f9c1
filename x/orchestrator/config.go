package orchestrator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/axal-network/claim-agent/x/claim"
	"github.com/axal-network/claim-agent/x/ledger"
	"github.com/axal-network/claim-agent/x/notifier"
)

// Lifecycle timing defaults. The dispute window must match the value the
// settlement contract enforces.
const (
	DefaultDisputeWindow    = 5 * time.Minute
	DefaultFinalizeAttempts = 5
	DefaultFinalizeBackoff  = 10 * time.Second
)

// Config contains all dependencies and tuning for the orchestrator.
type Config struct {
	Logger zerolog.Logger

	// Ledger executes claim transactions against the settlement ledger.
	Ledger ledger.Client

	// Store is the orchestrator-local claim registry.
	Store *claim.Store

	// Notifier delivers outcome events; best-effort.
	Notifier notifier.Notifier

	// TimerFactory creates per-claim timers for deferred finalization.
	TimerFactory TimerFactory

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time

	// Metrics is optional; nil disables instrumentation.
	Metrics *Metrics

	// Pools are the subject candidates for default ranking.
	Pools []Pool

	// DisputeWindow is the fixed delay between submission and finalization.
	DisputeWindow time.Duration

	// FinalizeAttempts bounds retries of a failing ledger finalize;
	// FinalizeBackoff is the initial delay between attempts, doubled each try.
	FinalizeAttempts int
	FinalizeBackoff  time.Duration
}

// DefaultConfig returns a config with sensible defaults for optional fields.
func DefaultConfig(logger zerolog.Logger, led ledger.Client, store *claim.Store, n notifier.Notifier) Config {
	return Config{
		Logger:           logger.With().Str("component", "orchestrator").Logger(),
		Ledger:           led,
		Store:            store,
		Notifier:         n,
		TimerFactory:     SystemTimerFactory{},
		Now:              time.Now,
		Pools:            DefaultPools(),
		DisputeWindow:    DefaultDisputeWindow,
		FinalizeAttempts: DefaultFinalizeAttempts,
		FinalizeBackoff:  DefaultFinalizeBackoff,
	}
}

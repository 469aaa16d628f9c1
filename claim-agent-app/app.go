package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/axal-network/claim-agent/claim-agent-app/config"
	apisrv "github.com/axal-network/claim-agent/server/api"
	apimw "github.com/axal-network/claim-agent/server/api/middleware"
	"github.com/axal-network/claim-agent/x/claim"
	"github.com/axal-network/claim-agent/x/gateway"
	"github.com/axal-network/claim-agent/x/ledger"
	"github.com/axal-network/claim-agent/x/ledger/contracts"
	"github.com/axal-network/claim-agent/x/notifier"
	"github.com/axal-network/claim-agent/x/orchestrator"
)

// App wires the ledger client, orchestrator, and HTTP gateway together.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	ethClient *ethclient.Client
	orch      orchestrator.Orchestrator
	apiServer *apisrv.Server

	cancel context.CancelFunc
}

// NewApp creates a new application instance
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		cfg: cfg,
		log: log.With().Str("component", "app").Logger(),
	}

	if err := app.initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return app, nil
}

// initialize sets up the application components
func (a *App) initialize(ctx context.Context) error {
	led, err := a.initializeLedger(ctx)
	if err != nil {
		return err
	}

	orch := a.initializeOrchestrator(led)

	if err := a.initializeAPIServer(orch); err != nil {
		return err
	}

	return nil
}

// initializeLedger dials the Ethereum node and builds the typed ledger client
func (a *App) initializeLedger(ctx context.Context) (ledger.Client, error) {
	client, err := ethclient.DialContext(ctx, a.cfg.Ledger.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger rpc: %w", err)
	}
	a.ethClient = client

	binding, err := contracts.NewPoolOracleBinding(a.cfg.Ledger.OracleContract)
	if err != nil {
		return nil, fmt.Errorf("failed to bind oracle contract: %w", err)
	}

	chainID := new(big.Int).SetUint64(a.cfg.Ledger.ChainID)
	agent, err := ledger.NewLocalECDSASignerFromHex(chainID, a.cfg.Ledger.AgentPkHex)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent signer: %w", err)
	}

	led, err := ledger.NewEthLedger(a.cfg.Ledger, client, binding, agent, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger client: %w", err)
	}

	if strings.TrimSpace(a.cfg.Ledger.DisputerPkHex) != "" {
		disputer, err := ledger.NewLocalECDSASignerFromHex(chainID, a.cfg.Ledger.DisputerPkHex)
		if err != nil {
			return nil, fmt.Errorf("failed to create disputer signer: %w", err)
		}
		led.RegisterSigner(disputer)
		a.log.Info().Str("address", disputer.Address().Hex()).Msg("Disputer identity registered")
	}

	a.log.Info().
		Str("oracle_contract", binding.Address().Hex()).
		Str("agent_address", agent.Address().Hex()).
		Uint64("chain_id", a.cfg.Ledger.ChainID).
		Msg("Ledger client initialized")

	return led, nil
}

// initializeOrchestrator builds the claim lifecycle core
func (a *App) initializeOrchestrator(led ledger.Client) orchestrator.Orchestrator {
	var ntf notifier.Notifier
	if a.cfg.Notifier.SMTP.Enabled() {
		ntf = notifier.NewSMTPNotifier(a.cfg.Notifier.SMTP, a.log)
		a.log.Info().Str("host", a.cfg.Notifier.SMTP.Host).Msg("SMTP notifier enabled")
	} else {
		ntf = notifier.NewLogNotifier(a.log)
		a.log.Info().Msg("SMTP not configured, logging outcomes instead")
	}

	orchCfg := orchestrator.DefaultConfig(a.log, led, claim.NewStore(), ntf)
	orchCfg.DisputeWindow = a.cfg.Orchestrator.DisputeWindow
	orchCfg.FinalizeAttempts = a.cfg.Orchestrator.FinalizeAttempts
	orchCfg.FinalizeBackoff = a.cfg.Orchestrator.FinalizeBackoff
	if len(a.cfg.Orchestrator.Pools) > 0 {
		orchCfg.Pools = a.cfg.Orchestrator.Pools
	}
	if a.cfg.Metrics.Enabled {
		orchCfg.Metrics = orchestrator.NewMetrics()
	}

	a.orch = orchestrator.New(orchCfg)
	return a.orch
}

// initializeAPIServer sets up the HTTP server with all endpoints
func (a *App) initializeAPIServer(orch orchestrator.Orchestrator) error {
	s := apisrv.NewServer(a.cfg.API, a.log)
	s.Use(apimw.Recover(a.log))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(a.log))
	s.Use(apimw.RateLimit(a.cfg.API.RateLimitRPS, a.cfg.API.RateLimitBurst))
	s.EnableCORS()

	s.Router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	s.Router.HandleFunc("/ready", a.handleReady).Methods(http.MethodGet)

	if a.cfg.Metrics.Enabled {
		s.Router.Handle(a.cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	gateway.NewHandler(orch, a.log).RegisterMux(s.Router)

	a.apiServer = s
	return nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		if err := a.apiServer.Start(runCtx); err != nil {
			a.log.Error().Err(err).Msg("API server error")
		}
	}()

	return a.runWithGracefulShutdown(runCtx)
}

// runWithGracefulShutdown handles shutdown signals.
func (a *App) runWithGracefulShutdown(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info().Msg("Claim agent started successfully")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("Context canceled, initiating shutdown")
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	if a.cancel != nil {
		a.cancel()
	}

	return a.shutdown()
}

// shutdown stops the orchestrator and releases the node connection. The HTTP
// server drains on its own when the run context is canceled.
func (a *App) shutdown() error {
	a.log.Info().Msg("Initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if pending := a.orch.PendingFinalizations(); len(pending) > 0 {
		a.log.Warn().
			Int("count", len(pending)).
			Msg("Claims still pending finalization; records are in-memory and will need manual finalization after restart")
	}

	if err := a.orch.Stop(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Orchestrator shutdown error")
		return err
	}

	if a.ethClient != nil {
		a.ethClient.Close()
	}

	a.log.Info().Msg("Graceful shutdown complete")
	return nil
}

// handleHealth responds to health check requests.
func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// handleReady reports readiness: the node connection must answer.
func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	if _, err := a.ethClient.ChainID(ctx); err != nil {
		status = "ledger_unreachable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":"%s","pending_finalizations":%d}`, status, len(a.orch.PendingFinalizations()))
}

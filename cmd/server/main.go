// Package main is the entry point for the tradecore trade execution service.
// It wires configuration, the two SQLite databases, the simulated broker
// gateway, the sizing/risk/execution pipeline, background jobs and the HTTP
// server, then runs until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/averros/tradecore/internal/broker"
	brokerhandlers "github.com/averros/tradecore/internal/broker/handlers"
	"github.com/averros/tradecore/internal/config"
	"github.com/averros/tradecore/internal/database"
	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/events"
	"github.com/averros/tradecore/internal/modules/execution"
	executionhandlers "github.com/averros/tradecore/internal/modules/execution/handlers"
	"github.com/averros/tradecore/internal/modules/portfolio"
	portfoliohandlers "github.com/averros/tradecore/internal/modules/portfolio/handlers"
	"github.com/averros/tradecore/internal/modules/risk"
	riskhandlers "github.com/averros/tradecore/internal/modules/risk/handlers"
	"github.com/averros/tradecore/internal/modules/sizing"
	"github.com/averros/tradecore/internal/modules/trading"
	tradinghandlers "github.com/averros/tradecore/internal/modules/trading/handlers"
	"github.com/averros/tradecore/internal/scheduler"
	"github.com/averros/tradecore/internal/server"
	"github.com/averros/tradecore/internal/sessions"
	sessionhandlers "github.com/averros/tradecore/internal/sessions/handlers"
	"github.com/averros/tradecore/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	log.Info().Str("data_dir", cfg.DataDir).Int("port", cfg.Port).Msg("Starting tradecore")

	portfolioDB, ledgerDB, err := openDatabases(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Database initialization failed")
	}
	defer portfolioDB.Close()
	defer ledgerDB.Close()

	// Event plumbing
	eventBus := events.NewBus(log)
	eventManager := events.NewManager(eventBus, log)

	// Repositories
	portfolioRepo := portfolio.NewPortfolioRepository(portfolioDB.Conn(), log)
	positionRepo := portfolio.NewPositionRepository(portfolioDB.Conn(), log)
	tradeRepo := trading.NewTradeRepository(ledgerDB.Conn(), log)
	execRepo := trading.NewExecutionRepository(ledgerDB.Conn(), log)
	snapshotRepo := risk.NewSnapshotRepository(portfolioDB.Conn(), log)

	// Trading pipeline
	gateway := broker.NewSimulatedGateway(broker.SimulatedConfig{
		InitialCapital:     cfg.Simulation.InitialCapital,
		SlippagePct:        cfg.Simulation.SlippagePct,
		CommissionPerTrade: cfg.Simulation.CommissionPerTrade,
	}, log)

	sizer := sizing.New(cfg.Sizing, log)

	riskEngine := risk.NewEngine(risk.Constraints{
		MaxPositionWeight:    cfg.Risk.MaxPositionWeight,
		MaxPortfolioExposure: cfg.Risk.MaxPortfolioExposure,
		DefaultStopLossPct:   cfg.Risk.DefaultStopLossPct,
		DefaultTakeProfitPct: cfg.Risk.DefaultTakeProfitPct,
		UseTrailingStop:      cfg.Risk.UseTrailingStop,
		TrailingStopPct:      cfg.Risk.TrailingStopPct,
	}, log)

	engine := execution.NewEngine(gateway, sizer, riskEngine, portfolioRepo, positionRepo,
		tradeRepo, execRepo, portfolioDB.Conn(), ledgerDB.Conn(), eventManager, log)

	// Services
	portfolioService := portfolio.NewService(portfolioRepo, positionRepo, log)
	tradingService := trading.NewService(tradeRepo, execRepo, log)
	riskService := risk.NewService(riskEngine, positionRepo, snapshotRepo, log)
	sessionManager := sessions.NewManager(sessions.NewMemoryStore(), eventManager, log)

	if err := ensureDefaultPortfolio(portfolioRepo, cfg.Simulation.InitialCapital, log); err != nil {
		log.Fatal().Err(err).Msg("Default portfolio setup failed")
	}

	// Background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.Scheduler.StopSweepSpec, scheduler.NewStopSweepJob(engine)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register stop sweep job")
	}
	snapshotJob := scheduler.NewRiskSnapshotJob(portfolioRepo, &riskSnapshotAdapter{svc: riskService}, log)
	if err := sched.AddJob(cfg.Scheduler.RiskSnapshotSpec, snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register risk snapshot job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:         log,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		DataDir:     cfg.DataDir,
		PortfolioDB: portfolioDB,
		LedgerDB:    ledgerDB,
		EventBus:    eventBus,
		Modules: []server.RouteRegistrar{
			portfoliohandlers.NewHandler(portfolioService, log),
			tradinghandlers.NewHandler(tradingService, log),
			riskhandlers.NewHandler(riskService, log),
			executionhandlers.NewHandler(engine, log),
			brokerhandlers.NewHandler(gateway, log),
			sessionhandlers.NewHandler(sessionManager, log),
		},
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sessionManager.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	// Flush WAL before closing so a cold start reads consistent files
	if err := ledgerDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Ledger WAL checkpoint failed")
	}
	if err := portfolioDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Portfolio WAL checkpoint failed")
	}

	log.Info().Msg("Shutdown complete")
}

// openDatabases opens and migrates the portfolio and ledger databases
func openDatabases(cfg *config.Config, log zerolog.Logger) (*database.DB, *database.DB, error) {
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		return nil, nil, err
	}
	if err := portfolioDB.Migrate(); err != nil {
		return nil, nil, err
	}

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		return nil, nil, err
	}
	if err := ledgerDB.Migrate(); err != nil {
		return nil, nil, err
	}

	log.Info().Msg("Databases opened and migrated")
	return portfolioDB, ledgerDB, nil
}

// ensureDefaultPortfolio creates the paper-trading portfolio on first run so
// the service is usable without a manual setup call
func ensureDefaultPortfolio(repo *portfolio.PortfolioRepository, initialCapital float64, log zerolog.Logger) error {
	existing, err := repo.GetAll()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	created, err := repo.Create(&domain.Portfolio{
		Name:           "default",
		Currency:       domain.CurrencyUSD,
		CurrentCapital: initialCapital,
	})
	if err != nil {
		return err
	}

	log.Info().
		Int64("portfolio_id", created.ID).
		Float64("initial_capital", initialCapital).
		Msg("Created default paper-trading portfolio")
	return nil
}

// riskSnapshotAdapter narrows risk.Service to the scheduler's Snapshotter
type riskSnapshotAdapter struct {
	svc *risk.Service
}

func (a *riskSnapshotAdapter) SnapshotDiagnostics(portfolioID int64) error {
	_, err := a.svc.SnapshotDiagnostics(portfolioID)
	return err
}

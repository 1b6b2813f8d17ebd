package scheduler

import (
	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
)

// Sweeper runs the stop-loss / take-profit sweep across all portfolios
type Sweeper interface {
	SweepAllPortfolios()
}

// PortfolioLister lists portfolios for portfolio-scoped jobs
type PortfolioLister interface {
	GetAll() ([]domain.Portfolio, error)
}

// Snapshotter persists a risk diagnostics snapshot for one portfolio
type Snapshotter interface {
	SnapshotDiagnostics(portfolioID int64) error
}

// StopSweepJob evaluates every open position against its stop-loss and
// take-profit rules and force-exits the ones that trigger.
type StopSweepJob struct {
	sweeper Sweeper
}

// NewStopSweepJob creates a new stop sweep job
func NewStopSweepJob(sweeper Sweeper) *StopSweepJob {
	return &StopSweepJob{sweeper: sweeper}
}

// Name returns the job name
func (j *StopSweepJob) Name() string { return "stop_sweep" }

// Run executes the sweep
func (j *StopSweepJob) Run() error {
	j.sweeper.SweepAllPortfolios()
	return nil
}

// RiskSnapshotJob stores a risk diagnostics snapshot for every portfolio so
// the diagnostics history survives restarts.
type RiskSnapshotJob struct {
	portfolios  PortfolioLister
	snapshotter Snapshotter
	log         zerolog.Logger
}

// NewRiskSnapshotJob creates a new risk snapshot job
func NewRiskSnapshotJob(portfolios PortfolioLister, snapshotter Snapshotter, log zerolog.Logger) *RiskSnapshotJob {
	return &RiskSnapshotJob{
		portfolios:  portfolios,
		snapshotter: snapshotter,
		log:         log.With().Str("job", "risk_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *RiskSnapshotJob) Name() string { return "risk_snapshot" }

// Run snapshots every portfolio, continuing past per-portfolio failures
func (j *RiskSnapshotJob) Run() error {
	portfolios, err := j.portfolios.GetAll()
	if err != nil {
		return err
	}

	for _, pf := range portfolios {
		if err := j.snapshotter.SnapshotDiagnostics(pf.ID); err != nil {
			j.log.Error().Err(err).Int64("portfolio_id", pf.ID).Msg("Risk snapshot failed")
		}
	}
	return nil
}

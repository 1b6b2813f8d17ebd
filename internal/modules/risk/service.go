package risk

import (
	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
)

// PositionProvider supplies the open positions the diagnostics are computed
// over
type PositionProvider interface {
	GetByPortfolio(portfolioID int64) ([]domain.Position, error)
}

// SnapshotStore persists diagnostics snapshots
type SnapshotStore interface {
	Save(diag *Diagnostics) error
	GetLatest(portfolioID int64) (*Diagnostics, error)
	GetHistory(portfolioID int64, limit int) ([]Diagnostics, error)
}

// Compile-time interface check
var _ SnapshotStore = (*SnapshotRepository)(nil)

// Service glues the risk engine to stored portfolio state
type Service struct {
	engine    *Engine
	positions PositionProvider
	snapshots SnapshotStore
	log       zerolog.Logger
}

// NewService creates a new risk service
func NewService(engine *Engine, positions PositionProvider, snapshots SnapshotStore, log zerolog.Logger) *Service {
	return &Service{
		engine:    engine,
		positions: positions,
		snapshots: snapshots,
		log:       log.With().Str("service", "risk").Logger(),
	}
}

// Engine returns the underlying risk engine
func (s *Service) Engine() *Engine {
	return s.engine
}

// GetDiagnostics computes diagnostics from currently stored positions.
// Historical inputs are optional and usually absent on this path, so VaR and
// performance figures may be omitted.
func (s *Service) GetDiagnostics(portfolioID int64) (*Diagnostics, error) {
	positions, err := s.positions.GetByPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}
	return s.engine.CalculateDiagnostics(portfolioID, positions, nil, nil, nil), nil
}

// SnapshotDiagnostics computes and persists a diagnostics snapshot.
// Used by the periodic snapshot job.
func (s *Service) SnapshotDiagnostics(portfolioID int64) (*Diagnostics, error) {
	diag, err := s.GetDiagnostics(portfolioID)
	if err != nil {
		return nil, err
	}

	if err := s.snapshots.Save(diag); err != nil {
		return nil, err
	}

	s.log.Debug().
		Int64("portfolio_id", portfolioID).
		Float64("portfolio_value", diag.PortfolioValue).
		Int("warnings", len(diag.Warnings)).
		Msg("Risk snapshot stored")

	return diag, nil
}

// GetLatestSnapshot returns the most recent stored snapshot, or nil
func (s *Service) GetLatestSnapshot(portfolioID int64) (*Diagnostics, error) {
	return s.snapshots.GetLatest(portfolioID)
}

// GetSnapshotHistory returns stored snapshots, newest first
func (s *Service) GetSnapshotHistory(portfolioID int64, limit int) ([]Diagnostics, error) {
	return s.snapshots.GetHistory(portfolioID, limit)
}

package trading

import (
	"database/sql"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
)

// TradeRepositoryInterface defines the trade persistence contract
type TradeRepositoryInterface interface {
	Create(trade *domain.Trade) (*domain.Trade, error)
	CreateTx(tx *sql.Tx, trade *domain.Trade) (*domain.Trade, error)
	GetByID(id int64) (*domain.Trade, error)
	GetByOrderID(orderID string) (*domain.Trade, error)
	GetByPortfolio(portfolioID int64, limit int) ([]domain.Trade, error)
	GetOpenTrades(portfolioID int64) ([]domain.Trade, error)
	Update(trade *domain.Trade) error
	UpdateTx(tx *sql.Tx, trade *domain.Trade) error
}

// ExecutionRepositoryInterface defines the execution persistence contract
type ExecutionRepositoryInterface interface {
	Create(exec *domain.Execution) (*domain.Execution, error)
	CreateTx(tx *sql.Tx, exec *domain.Execution) (*domain.Execution, error)
	GetByTrade(tradeID int64) ([]domain.Execution, error)
}

// Compile-time interface checks
var (
	_ TradeRepositoryInterface     = (*TradeRepository)(nil)
	_ ExecutionRepositoryInterface = (*ExecutionRepository)(nil)
)

// TradeWithExecutions bundles a trade with its fills
type TradeWithExecutions struct {
	Trade      domain.Trade       `json:"trade"`
	Executions []domain.Execution `json:"executions"`
}

// Service provides trade history queries over the ledger
type Service struct {
	tradeRepo TradeRepositoryInterface
	execRepo  ExecutionRepositoryInterface
	log       zerolog.Logger
}

// NewService creates a new trading service
func NewService(tradeRepo TradeRepositoryInterface, execRepo ExecutionRepositoryInterface, log zerolog.Logger) *Service {
	return &Service{
		tradeRepo: tradeRepo,
		execRepo:  execRepo,
		log:       log.With().Str("service", "trading").Logger(),
	}
}

// GetTrade returns a trade with its executions
func (s *Service) GetTrade(id int64) (*TradeWithExecutions, error) {
	trade, err := s.tradeRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	executions, err := s.execRepo.GetByTrade(id)
	if err != nil {
		return nil, err
	}
	if executions == nil {
		executions = []domain.Execution{}
	}

	return &TradeWithExecutions{Trade: *trade, Executions: executions}, nil
}

// ListTrades returns the most recent trades for a portfolio
func (s *Service) ListTrades(portfolioID int64, limit int) ([]domain.Trade, error) {
	return s.tradeRepo.GetByPortfolio(portfolioID, limit)
}

// ListOpenTrades returns non-terminal trades for a portfolio
func (s *Service) ListOpenTrades(portfolioID int64) ([]domain.Trade, error) {
	return s.tradeRepo.GetOpenTrades(portfolioID)
}

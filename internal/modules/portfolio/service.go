package portfolio

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
)

// PortfolioRepositoryInterface defines the portfolio persistence contract
type PortfolioRepositoryInterface interface {
	Create(p *domain.Portfolio) (*domain.Portfolio, error)
	GetByID(id int64) (*domain.Portfolio, error)
	GetAll() ([]domain.Portfolio, error)
	UpdateCapital(id int64, capital float64) error
	UpdateCapitalTx(tx *sql.Tx, id int64, capital float64) error
	Delete(id int64) error
}

// PositionRepositoryInterface defines the position persistence contract
type PositionRepositoryInterface interface {
	GetByPortfolio(portfolioID int64) ([]domain.Position, error)
	GetBySymbol(portfolioID int64, symbol string) (*domain.Position, error)
	Upsert(pos *domain.Position) error
	UpsertTx(tx *sql.Tx, pos *domain.Position) error
	Delete(portfolioID int64, symbol string) error
	DeleteTx(tx *sql.Tx, portfolioID int64, symbol string) error
	UpdateMarketData(portfolioID int64, symbol string, price, unrealizedPnl, peakPnlPct float64) error
}

// Compile-time interface checks
var (
	_ PortfolioRepositoryInterface = (*PortfolioRepository)(nil)
	_ PositionRepositoryInterface  = (*PositionRepository)(nil)
)

// Service orchestrates portfolio state queries and maintenance
type Service struct {
	portfolioRepo PortfolioRepositoryInterface
	positionRepo  PositionRepositoryInterface
	log           zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	portfolioRepo PortfolioRepositoryInterface,
	positionRepo PositionRepositoryInterface,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolioRepo: portfolioRepo,
		positionRepo:  positionRepo,
		log:           log.With().Str("service", "portfolio").Logger(),
	}
}

// CreatePortfolio validates and creates a new portfolio
func (s *Service) CreatePortfolio(name string, currency domain.Currency, initialCapital float64) (*domain.Portfolio, error) {
	if name == "" {
		return nil, domain.NewValidationError("portfolio name is required", nil)
	}
	if initialCapital < 0 {
		return nil, domain.NewValidationError("initial capital must be >= 0", map[string]interface{}{
			"initial_capital": initialCapital,
		})
	}
	if currency == "" {
		currency = domain.CurrencyUSD
	}

	p, err := s.portfolioRepo.Create(&domain.Portfolio{
		Name:           name,
		Currency:       currency,
		CurrentCapital: initialCapital,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	s.log.Info().
		Int64("portfolio_id", p.ID).
		Str("name", p.Name).
		Float64("initial_capital", initialCapital).
		Msg("Portfolio created")

	return p, nil
}

// GetPortfolio fetches a portfolio by ID
func (s *Service) GetPortfolio(id int64) (*domain.Portfolio, error) {
	return s.portfolioRepo.GetByID(id)
}

// ListPortfolios returns all portfolios
func (s *Service) ListPortfolios() ([]domain.Portfolio, error) {
	return s.portfolioRepo.GetAll()
}

// GetPositions returns all open positions for a portfolio
func (s *Service) GetPositions(portfolioID int64) ([]domain.Position, error) {
	return s.positionRepo.GetByPortfolio(portfolioID)
}

// PositionsValue returns the sum of quantity * currentPrice over open
// positions, clamped to zero
func (s *Service) PositionsValue(portfolioID int64) (float64, error) {
	positions, err := s.positionRepo.GetByPortfolio(portfolioID)
	if err != nil {
		return 0, fmt.Errorf("failed to get positions: %w", err)
	}

	var total float64
	for _, pos := range positions {
		total += pos.MarketValue()
	}
	return math.Max(total, 0), nil
}

// TotalEquity returns cash plus the market value of open positions
func (s *Service) TotalEquity(portfolioID int64) (float64, error) {
	p, err := s.portfolioRepo.GetByID(portfolioID)
	if err != nil {
		return 0, err
	}

	positionsValue, err := s.PositionsValue(portfolioID)
	if err != nil {
		return 0, err
	}

	return p.CurrentCapital + positionsValue, nil
}

// UpdateMarketPrices refreshes price-derived fields for every position with
// a supplied price. The peak favorable excursion is advanced monotonically
// so trailing stops can measure retracement from the best point since entry.
func (s *Service) UpdateMarketPrices(portfolioID int64, prices map[string]float64) error {
	positions, err := s.positionRepo.GetByPortfolio(portfolioID)
	if err != nil {
		return fmt.Errorf("failed to get positions: %w", err)
	}

	updated := 0
	for _, pos := range positions {
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 {
			continue
		}

		pnlPct := pos.PnlPct(price)
		peak := math.Max(pos.PeakPnlPct, math.Max(0, pnlPct))

		unrealized := (price - pos.AverageCost) * pos.Quantity
		if pos.PositionType == domain.PositionShort {
			unrealized = (pos.AverageCost - price) * pos.Quantity
		}

		if err := s.positionRepo.UpdateMarketData(portfolioID, pos.Symbol, price, unrealized, peak); err != nil {
			return err
		}
		updated++
	}

	s.log.Debug().
		Int64("portfolio_id", portfolioID).
		Int("updated", updated).
		Msg("Market prices refreshed")

	return nil
}

// Summary aggregates a portfolio's headline numbers
type Summary struct {
	PortfolioID    int64   `json:"portfolio_id"`
	Name           string  `json:"name"`
	Currency       string  `json:"currency"`
	CashBalance    float64 `json:"cash_balance"`
	PositionsValue float64 `json:"positions_value"`
	TotalEquity    float64 `json:"total_equity"`
	UnrealizedPnl  float64 `json:"unrealized_pnl"`
	RealizedPnl    float64 `json:"realized_pnl"`
	PositionCount  int     `json:"position_count"`
}

// GetSummary computes the portfolio summary
func (s *Service) GetSummary(portfolioID int64) (*Summary, error) {
	p, err := s.portfolioRepo.GetByID(portfolioID)
	if err != nil {
		return nil, err
	}

	positions, err := s.positionRepo.GetByPortfolio(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	summary := &Summary{
		PortfolioID: p.ID,
		Name:        p.Name,
		Currency:    string(p.Currency),
		CashBalance: p.CurrentCapital,
	}

	for _, pos := range positions {
		summary.PositionsValue += pos.MarketValue()
		summary.UnrealizedPnl += pos.UnrealizedPnl
		summary.RealizedPnl += pos.RealizedPnl
	}
	summary.PositionsValue = math.Max(summary.PositionsValue, 0)
	summary.TotalEquity = summary.CashBalance + summary.PositionsValue
	summary.PositionCount = len(positions)

	return summary, nil
}

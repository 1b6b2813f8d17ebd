package portfolio

import (
	"database/sql"
	"testing"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPortfolioRepo is a hand-rolled mock for PortfolioRepositoryInterface
type mockPortfolioRepo struct {
	portfolios map[int64]*domain.Portfolio
	nextID     int64
}

func newMockPortfolioRepo() *mockPortfolioRepo {
	return &mockPortfolioRepo{portfolios: make(map[int64]*domain.Portfolio)}
}

func (m *mockPortfolioRepo) Create(p *domain.Portfolio) (*domain.Portfolio, error) {
	m.nextID++
	p.ID = m.nextID
	m.portfolios[p.ID] = p
	return p, nil
}

func (m *mockPortfolioRepo) GetByID(id int64) (*domain.Portfolio, error) {
	p, ok := m.portfolios[id]
	if !ok {
		return nil, domain.NewNotFoundError("portfolio not found", nil)
	}
	return p, nil
}

func (m *mockPortfolioRepo) GetAll() ([]domain.Portfolio, error) {
	var out []domain.Portfolio
	for _, p := range m.portfolios {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockPortfolioRepo) UpdateCapital(id int64, capital float64) error {
	p, ok := m.portfolios[id]
	if !ok {
		return domain.NewNotFoundError("portfolio not found", nil)
	}
	p.CurrentCapital = capital
	return nil
}

func (m *mockPortfolioRepo) UpdateCapitalTx(tx *sql.Tx, id int64, capital float64) error {
	return m.UpdateCapital(id, capital)
}

func (m *mockPortfolioRepo) Delete(id int64) error {
	delete(m.portfolios, id)
	return nil
}

// mockPositionRepo is a hand-rolled mock for PositionRepositoryInterface
type mockPositionRepo struct {
	positions map[string]*domain.Position
}

func newMockPositionRepo() *mockPositionRepo {
	return &mockPositionRepo{positions: make(map[string]*domain.Position)}
}

func (m *mockPositionRepo) GetByPortfolio(portfolioID int64) ([]domain.Position, error) {
	var out []domain.Position
	for _, pos := range m.positions {
		if pos.PortfolioID == portfolioID {
			out = append(out, *pos)
		}
	}
	return out, nil
}

func (m *mockPositionRepo) GetBySymbol(portfolioID int64, symbol string) (*domain.Position, error) {
	pos, ok := m.positions[symbol]
	if !ok || pos.PortfolioID != portfolioID {
		return nil, nil
	}
	copied := *pos
	return &copied, nil
}

func (m *mockPositionRepo) Upsert(pos *domain.Position) error {
	copied := *pos
	m.positions[pos.Symbol] = &copied
	return nil
}

func (m *mockPositionRepo) UpsertTx(tx *sql.Tx, pos *domain.Position) error {
	return m.Upsert(pos)
}

func (m *mockPositionRepo) Delete(portfolioID int64, symbol string) error {
	delete(m.positions, symbol)
	return nil
}

func (m *mockPositionRepo) DeleteTx(tx *sql.Tx, portfolioID int64, symbol string) error {
	return m.Delete(portfolioID, symbol)
}

func (m *mockPositionRepo) UpdateMarketData(portfolioID int64, symbol string, price, unrealizedPnl, peakPnlPct float64) error {
	pos, ok := m.positions[symbol]
	if !ok {
		return nil
	}
	pos.CurrentPrice = price
	pos.UnrealizedPnl = unrealizedPnl
	pos.PeakPnlPct = peakPnlPct
	return nil
}

func newTestService() (*Service, *mockPortfolioRepo, *mockPositionRepo) {
	portfolioRepo := newMockPortfolioRepo()
	positionRepo := newMockPositionRepo()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewService(portfolioRepo, positionRepo, log), portfolioRepo, positionRepo
}

func TestCreatePortfolio_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreatePortfolio("", domain.CurrencyUSD, 1000)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	_, err = svc.CreatePortfolio("main", domain.CurrencyUSD, -1)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	p, err := svc.CreatePortfolio("main", "", 100000)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyUSD, p.Currency)
	assert.Equal(t, 100000.0, p.CurrentCapital)
}

func TestPositionsValue_SumsAndClamps(t *testing.T) {
	svc, _, positionRepo := newTestService()

	_ = positionRepo.Upsert(&domain.Position{PortfolioID: 1, Symbol: "AAPL", Quantity: 100, CurrentPrice: 50})
	_ = positionRepo.Upsert(&domain.Position{PortfolioID: 1, Symbol: "MSFT", Quantity: 10, CurrentPrice: 300})

	value, err := svc.PositionsValue(1)
	require.NoError(t, err)
	assert.Equal(t, 8000.0, value)

	// A short book with negative market value clamps to zero
	_ = positionRepo.Delete(1, "AAPL")
	_ = positionRepo.Delete(1, "MSFT")
	_ = positionRepo.Upsert(&domain.Position{PortfolioID: 1, Symbol: "TSLA", Quantity: -100, CurrentPrice: 200, PositionType: domain.PositionShort})

	value, err = svc.PositionsValue(1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, value)
}

func TestTotalEquity(t *testing.T) {
	svc, portfolioRepo, positionRepo := newTestService()

	p, _ := portfolioRepo.Create(&domain.Portfolio{Name: "main", Currency: domain.CurrencyUSD, CurrentCapital: 50000})
	_ = positionRepo.Upsert(&domain.Position{PortfolioID: p.ID, Symbol: "AAPL", Quantity: 100, CurrentPrice: 50})

	equity, err := svc.TotalEquity(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 55000.0, equity)
}

func TestUpdateMarketPrices_AdvancesPeakMonotonically(t *testing.T) {
	svc, _, positionRepo := newTestService()

	_ = positionRepo.Upsert(&domain.Position{
		PortfolioID:  1,
		Symbol:       "AAPL",
		Quantity:     100,
		AverageCost:  100,
		CurrentPrice: 100,
		PositionType: domain.PositionLong,
	})

	// Price rises 15%: peak follows
	require.NoError(t, svc.UpdateMarketPrices(1, map[string]float64{"AAPL": 115}))
	pos, _ := positionRepo.GetBySymbol(1, "AAPL")
	assert.InDelta(t, 0.15, pos.PeakPnlPct, 1e-9)
	assert.InDelta(t, 1500, pos.UnrealizedPnl, 1e-9)

	// Price retraces to +8%: peak stays at 15%
	require.NoError(t, svc.UpdateMarketPrices(1, map[string]float64{"AAPL": 108}))
	pos, _ = positionRepo.GetBySymbol(1, "AAPL")
	assert.InDelta(t, 0.15, pos.PeakPnlPct, 1e-9)
	assert.InDelta(t, 800, pos.UnrealizedPnl, 1e-9)

	// Unknown symbols and non-positive prices are ignored
	require.NoError(t, svc.UpdateMarketPrices(1, map[string]float64{"ZZZZ": 10, "AAPL": 0}))
	pos, _ = positionRepo.GetBySymbol(1, "AAPL")
	assert.Equal(t, 108.0, pos.CurrentPrice)
}

func TestGetSummary(t *testing.T) {
	svc, portfolioRepo, positionRepo := newTestService()

	p, _ := portfolioRepo.Create(&domain.Portfolio{Name: "main", Currency: domain.CurrencyUSD, CurrentCapital: 40000})
	_ = positionRepo.Upsert(&domain.Position{
		PortfolioID: p.ID, Symbol: "AAPL", Quantity: 100,
		CurrentPrice: 55, UnrealizedPnl: 500, RealizedPnl: 200,
	})

	summary, err := svc.GetSummary(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 40000.0, summary.CashBalance)
	assert.Equal(t, 5500.0, summary.PositionsValue)
	assert.Equal(t, 45500.0, summary.TotalEquity)
	assert.Equal(t, 500.0, summary.UnrealizedPnl)
	assert.Equal(t, 200.0, summary.RealizedPnl)
	assert.Equal(t, 1, summary.PositionCount)
}

func TestGetSummary_UnknownPortfolio(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetSummary(42)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

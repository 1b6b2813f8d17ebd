package portfolio

import (
	"path/filepath"
	"testing"

	"github.com/averros/tradecore/internal/database"
	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestPortfolioRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPortfolioRepository(db.Conn(), log)

	created, err := repo.Create(&domain.Portfolio{
		Name:           "main",
		Currency:       domain.CurrencyUSD,
		CurrentCapital: 100000,
	})
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))

	fetched, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "main", fetched.Name)
	assert.Equal(t, domain.CurrencyUSD, fetched.Currency)
	assert.Equal(t, 100000.0, fetched.CurrentCapital)
}

func TestPortfolioRepository_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPortfolioRepository(db.Conn(), log)

	_, err := repo.GetByID(999)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestPortfolioRepository_UpdateCapital(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPortfolioRepository(db.Conn(), log)

	created, err := repo.Create(&domain.Portfolio{Name: "main", Currency: domain.CurrencyUSD, CurrentCapital: 1000})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateCapital(created.ID, 900))

	fetched, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, 900.0, fetched.CurrentCapital)

	err = repo.UpdateCapital(999, 500)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestPositionRepository_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	portfolioRepo := NewPortfolioRepository(db.Conn(), log)
	positionRepo := NewPositionRepository(db.Conn(), log)

	p, err := portfolioRepo.Create(&domain.Portfolio{Name: "main", Currency: domain.CurrencyUSD, CurrentCapital: 100000})
	require.NoError(t, err)

	pos := &domain.Position{
		PortfolioID:  p.ID,
		Symbol:       "AAPL",
		Quantity:     100,
		AverageCost:  50,
		CurrentPrice: 50,
		PositionType: domain.PositionLong,
	}
	require.NoError(t, positionRepo.Upsert(pos))

	fetched, err := positionRepo.GetBySymbol(p.ID, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, 100.0, fetched.Quantity)

	// Upsert on the same (portfolio, symbol) replaces the row
	pos.Quantity = 150
	pos.AverageCost = 52
	require.NoError(t, positionRepo.Upsert(pos))

	fetched, err = positionRepo.GetBySymbol(p.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 150.0, fetched.Quantity)
	assert.Equal(t, 52.0, fetched.AverageCost)

	all, err := positionRepo.GetByPortfolio(p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPositionRepository_GetBySymbol_NoPosition(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPositionRepository(db.Conn(), log)

	pos, err := repo.GetBySymbol(1, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestPositionRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	portfolioRepo := NewPortfolioRepository(db.Conn(), log)
	positionRepo := NewPositionRepository(db.Conn(), log)

	p, err := portfolioRepo.Create(&domain.Portfolio{Name: "main", Currency: domain.CurrencyUSD, CurrentCapital: 100000})
	require.NoError(t, err)

	require.NoError(t, positionRepo.Upsert(&domain.Position{
		PortfolioID: p.ID, Symbol: "AAPL", Quantity: 100, AverageCost: 50,
	}))
	require.NoError(t, positionRepo.Delete(p.ID, "AAPL"))

	pos, err := positionRepo.GetBySymbol(p.ID, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestPositionRepository_UpdateMarketData(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	portfolioRepo := NewPortfolioRepository(db.Conn(), log)
	positionRepo := NewPositionRepository(db.Conn(), log)

	p, err := portfolioRepo.Create(&domain.Portfolio{Name: "main", Currency: domain.CurrencyUSD, CurrentCapital: 100000})
	require.NoError(t, err)

	require.NoError(t, positionRepo.Upsert(&domain.Position{
		PortfolioID: p.ID, Symbol: "AAPL", Quantity: 100, AverageCost: 50,
	}))
	require.NoError(t, positionRepo.UpdateMarketData(p.ID, "AAPL", 55, 500, 0.10))

	pos, err := positionRepo.GetBySymbol(p.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 55.0, pos.CurrentPrice)
	assert.Equal(t, 500.0, pos.UnrealizedPnl)
	assert.InDelta(t, 0.10, pos.PeakPnlPct, 1e-9)
}

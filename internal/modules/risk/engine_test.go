package risk

import (
	"math"
	"testing"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConstraints() Constraints {
	return Constraints{
		MaxPositionWeight:    0.20,
		MaxPortfolioExposure: 1.0,
		DefaultStopLossPct:   0.05,
		DefaultTakeProfitPct: 0.15,
	}
}

func newTestEngine(c Constraints) *Engine {
	return NewEngine(c, zerolog.New(nil).Level(zerolog.Disabled))
}

func longPosition(symbol string, qty, cost, price float64) domain.Position {
	return domain.Position{
		Symbol:       symbol,
		Quantity:     qty,
		AverageCost:  cost,
		CurrentPrice: price,
		PositionType: domain.PositionLong,
	}
}

func TestCalculateDiagnostics_Exposure(t *testing.T) {
	engine := newTestEngine(testConstraints())

	positions := []domain.Position{
		longPosition("AAPL", 100, 50, 50), // 5000 long
		longPosition("MSFT", 10, 280, 300), // 3000 long
		{
			Symbol: "TSLA", Quantity: -10, AverageCost: 200, CurrentPrice: 200,
			PositionType: domain.PositionShort, // 2000 short
		},
	}

	diag := engine.CalculateDiagnostics(1, positions, nil, nil, nil)

	assert.Equal(t, 8000.0, diag.LongExposure)
	assert.Equal(t, 2000.0, diag.ShortExposure)
	assert.Equal(t, 10000.0, diag.TotalExposure)
	assert.Equal(t, 6000.0, diag.NetExposure)
	assert.Equal(t, 6000.0, diag.PortfolioValue) // 5000 + 3000 - 2000
	assert.Equal(t, 3, diag.PositionCount)
}

func TestCalculateDiagnostics_ConcentrationWarning(t *testing.T) {
	// One symbol at 25% of portfolio value against a 20% limit produces a
	// warning but the diagnostics still return.
	engine := newTestEngine(testConstraints())

	positions := []domain.Position{
		longPosition("AAPL", 250, 10, 10),  // 2500 = 25%
		longPosition("MSFT", 375, 10, 10),  // 3750
		longPosition("GOOG", 375, 10, 10),  // 3750
	}

	diag := engine.CalculateDiagnostics(1, positions, nil, nil, nil)

	assert.InDelta(t, 0.375, diag.LargestPositionPct, 1e-9)
	require.NotEmpty(t, diag.Warnings)
	assert.Contains(t, diag.Warnings[0], "largest position weight")
}

func TestCalculateDiagnostics_PriceOverrides(t *testing.T) {
	engine := newTestEngine(testConstraints())

	positions := []domain.Position{longPosition("AAPL", 100, 50, 50)}
	diag := engine.CalculateDiagnostics(1, positions, map[string]float64{"AAPL": 60}, nil, nil)

	assert.Equal(t, 6000.0, diag.PortfolioValue)
}

func TestCalculateDiagnostics_VaRRequiresMinPeriods(t *testing.T) {
	engine := newTestEngine(testConstraints())
	positions := []domain.Position{longPosition("AAPL", 100, 50, 50)}

	short := map[string][]float64{"AAPL": make([]float64, minVaRPeriods-1)}
	diag := engine.CalculateDiagnostics(1, positions, nil, short, nil)
	assert.Nil(t, diag.ValueAtRisk)

	enough := map[string][]float64{"AAPL": make([]float64, minVaRPeriods)}
	diag = engine.CalculateDiagnostics(1, positions, nil, enough, nil)
	assert.NotNil(t, diag.ValueAtRisk)
}

func TestCalculateDiagnostics_HistoricalVaR(t *testing.T) {
	engine := newTestEngine(testConstraints())
	positions := []domain.Position{longPosition("AAPL", 100, 50, 50)} // value 5000

	// 100 return periods; the 5th percentile of the series is -0.03
	returns := make([]float64, 100)
	losses := []float64{-0.05, -0.045, -0.04, -0.035, -0.03}
	copy(returns, losses)
	for i := len(losses); i < len(returns); i++ {
		returns[i] = 0.001 * float64(i%10+1)
	}

	diag := engine.CalculateDiagnostics(1, positions, nil, map[string][]float64{"AAPL": returns}, nil)

	require.NotNil(t, diag.ValueAtRisk)
	assert.InDelta(t, 0.03*5000, diag.ValueAtRisk.OneDay95, 1e-6)
	assert.InDelta(t, 0.05*5000, diag.ValueAtRisk.OneDay99, 1e-6)
	assert.InDelta(t, diag.ValueAtRisk.OneDay95*math.Sqrt(5), diag.ValueAtRisk.FiveDay95, 1e-6)
	assert.InDelta(t, diag.ValueAtRisk.OneDay99*math.Sqrt(5), diag.ValueAtRisk.FiveDay99, 1e-6)
}

func TestCalculateDiagnostics_Performance(t *testing.T) {
	engine := newTestEngine(testConstraints())

	// 100 -> 110 -> 99: peak 110, trough 99, drawdown 10%
	history := []float64{100, 110, 99}
	diag := engine.CalculateDiagnostics(1, nil, nil, nil, history)

	require.NotNil(t, diag.Performance)
	assert.InDelta(t, 0.10, diag.Performance.MaxDrawdown, 1e-9)
	assert.Greater(t, diag.Performance.AnnualizedVolatility, 0.0)
}

func TestCalculateDiagnostics_NoHistoryOmitsOptionalFigures(t *testing.T) {
	engine := newTestEngine(testConstraints())

	diag := engine.CalculateDiagnostics(1, []domain.Position{longPosition("AAPL", 100, 50, 50)}, nil, nil, nil)

	assert.Nil(t, diag.ValueAtRisk)
	assert.Nil(t, diag.Performance)
	assert.NotNil(t, diag.Warnings)
}

func TestCheckOrderRisk(t *testing.T) {
	engine := newTestEngine(testConstraints())

	// 25000 projected against 100000 * 0.20 = 20000 limit
	err := engine.CheckOrderRisk("AAPL", 25000, 100000)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeRiskViolation))

	assert.NoError(t, engine.CheckOrderRisk("AAPL", 15000, 100000))

	// Disabled limit never rejects
	open := newTestEngine(Constraints{})
	assert.NoError(t, open.CheckOrderRisk("AAPL", 1e9, 100000))
}

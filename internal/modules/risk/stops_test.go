package risk

import (
	"testing"

	"github.com/averros/tradecore/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCheckStopLoss_FixedLong(t *testing.T) {
	engine := newTestEngine(testConstraints()) // 5% stop

	pos := &domain.Position{
		Symbol: "AAPL", Quantity: 100, AverageCost: 100,
		PositionType: domain.PositionLong,
	}

	assert.False(t, engine.CheckStopLoss(pos, 96))  // -4%
	assert.True(t, engine.CheckStopLoss(pos, 95))   // -5%
	assert.True(t, engine.CheckStopLoss(pos, 90))   // -10%
	assert.False(t, engine.CheckStopLoss(pos, 105)) // +5%
}

func TestCheckStopLoss_FixedShort(t *testing.T) {
	engine := newTestEngine(testConstraints())

	pos := &domain.Position{
		Symbol: "TSLA", Quantity: -100, AverageCost: 100,
		PositionType: domain.PositionShort,
	}

	// A short loses when the price rises
	assert.False(t, engine.CheckStopLoss(pos, 104)) // -4%
	assert.True(t, engine.CheckStopLoss(pos, 105))  // -5%
	assert.False(t, engine.CheckStopLoss(pos, 95))  // +5%
}

func TestCheckStopLoss_TrailingRetracement(t *testing.T) {
	c := testConstraints()
	c.UseTrailingStop = true
	c.TrailingStopPct = 0.05
	engine := newTestEngine(c)

	// Peaked at +15%, now at +8%: retracement 7% > 5% triggers the stop even
	// though absolute P&L is still positive
	pos := &domain.Position{
		Symbol: "AAPL", Quantity: 100, AverageCost: 100,
		PositionType: domain.PositionLong,
		PeakPnlPct:   0.15,
	}
	assert.True(t, engine.CheckStopLoss(pos, 108))

	// At +11% the retracement is only 4%
	assert.False(t, engine.CheckStopLoss(pos, 111))

	// The fixed stop remains the floor in trailing mode
	assert.True(t, engine.CheckStopLoss(pos, 94))
}

func TestCheckStopLoss_TrailingDisabledIgnoresPeak(t *testing.T) {
	engine := newTestEngine(testConstraints())

	pos := &domain.Position{
		Symbol: "AAPL", Quantity: 100, AverageCost: 100,
		PositionType: domain.PositionLong,
		PeakPnlPct:   0.15,
	}

	// Same retracement as the trailing test, but trailing is off
	assert.False(t, engine.CheckStopLoss(pos, 108))
}

func TestCheckTakeProfit(t *testing.T) {
	engine := newTestEngine(testConstraints()) // 15% take-profit

	long := &domain.Position{
		Symbol: "AAPL", Quantity: 100, AverageCost: 100,
		PositionType: domain.PositionLong,
	}
	assert.False(t, engine.CheckTakeProfit(long, 114)) // +14%
	assert.True(t, engine.CheckTakeProfit(long, 115))  // +15%

	short := &domain.Position{
		Symbol: "TSLA", Quantity: -100, AverageCost: 100,
		PositionType: domain.PositionShort,
	}
	assert.True(t, engine.CheckTakeProfit(short, 85))  // +15% for a short
	assert.False(t, engine.CheckTakeProfit(short, 90)) // +10%
}

func TestStopChecks_InvalidInputs(t *testing.T) {
	engine := newTestEngine(testConstraints())

	assert.False(t, engine.CheckStopLoss(nil, 100))
	assert.False(t, engine.CheckTakeProfit(nil, 100))

	pos := &domain.Position{Symbol: "AAPL", Quantity: 100, AverageCost: 100}
	assert.False(t, engine.CheckStopLoss(pos, 0))
	assert.False(t, engine.CheckTakeProfit(pos, -1))

	zeroCost := &domain.Position{Symbol: "AAPL", Quantity: 100}
	assert.False(t, engine.CheckStopLoss(zeroCost, 50))
}

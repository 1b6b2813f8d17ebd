package sizing

import (
	"testing"

	"github.com/averros/tradecore/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testSizingConfig(policy string) config.SizingConfig {
	return config.SizingConfig{
		Policy:            policy,
		FixedDollarAmount: 5000,
		DefaultPercentage: 0.05,
		RiskPerTrade:      0.01,
		MaxPositionSize:   0.20,
	}
}

func newSizer(policy string) Sizer {
	return New(testSizingConfig(policy), zerolog.New(nil).Level(zerolog.Disabled))
}

func ptr(v float64) *float64 { return &v }

func TestFixedDollarSizer(t *testing.T) {
	s := newSizer(PolicyFixedDollar)

	qty := s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000})
	assert.Equal(t, 100.0, qty) // 5000 / 50

	assert.Equal(t, 0.0, s.Size(Request{Symbol: "AAPL", Price: 0, PortfolioValue: 100000}))
}

func TestFixedPercentageSizer(t *testing.T) {
	s := newSizer(PolicyFixedPercentage)

	// 100000 * 0.05 / 50.05 = 99.9 -> 100
	qty := s.Size(Request{Symbol: "AAPL", Price: 50.05, PortfolioValue: 100000})
	assert.Equal(t, 100.0, qty)

	assert.Equal(t, 0.0, s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 0}))
}

func TestRiskBasedSizer(t *testing.T) {
	s := newSizer(PolicyRiskBased)

	// riskPerShare = |50 - 48| = 2; qty = 100000 * 0.01 / 2 = 500,
	// capped at 0.20 * 100000 / 50 = 400
	qty := s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000, StopLoss: ptr(48)})
	assert.Equal(t, 400.0, qty)

	// Wider stop keeps the raw size under the cap
	qty = s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000, StopLoss: ptr(40)})
	assert.Equal(t, 100.0, qty) // 1000 / 10

	// Missing stop-loss falls back to fixed percentage
	qty = s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000})
	assert.Equal(t, 100.0, qty) // 100000 * 0.05 / 50

	// Stop at the entry price falls back too
	qty = s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000, StopLoss: ptr(50)})
	assert.Equal(t, 100.0, qty)
}

func TestVolatilityBasedSizer(t *testing.T) {
	s := newSizer(PolicyVolatilityBased)

	// vol 0.20 -> adjustedPct = 0.05, same as fixed percentage
	qty := s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000, Volatility: ptr(0.20)})
	assert.Equal(t, 100.0, qty)

	// Low volatility is clamped to 0.10 -> adjustedPct = 0.05 * 2 = 0.10
	qty = s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000, Volatility: ptr(0.05)})
	assert.Equal(t, 200.0, qty)

	// High volatility is clamped to 0.50 -> adjustedPct = 0.05 * 0.4 = 0.02
	qty = s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000, Volatility: ptr(0.80)})
	assert.Equal(t, 40.0, qty)

	// Missing volatility falls back to fixed percentage
	qty = s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000})
	assert.Equal(t, 100.0, qty)
}

func TestKellySizer(t *testing.T) {
	s := newSizer(PolicyKellyCriterion)

	// confidence 0.8: kelly = 0.8 - 0.2/2 = 0.7, halved = 0.35,
	// clamped to maxPositionSize 0.20 -> 100000 * 0.20 / 50 = 400
	qty := s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000, Confidence: ptr(0.8)})
	assert.Equal(t, 400.0, qty)

	// Low confidence clamps to the floor defaultPercentage * 0.1 = 0.005
	qty = s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000, Confidence: ptr(0.1)})
	assert.Equal(t, 10.0, qty)

	// Missing confidence falls back to fixed percentage
	qty = s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000})
	assert.Equal(t, 100.0, qty)
}

func TestNew_UnknownPolicyDefaultsToFixedPercentage(t *testing.T) {
	s := newSizer("SOMETHING_ELSE")
	assert.Equal(t, PolicyFixedPercentage, s.Name())
}

func TestFinalize_CapsAtMaxPositionSize(t *testing.T) {
	cfg := testSizingConfig(PolicyFixedDollar)
	cfg.FixedDollarAmount = 50000 // Would be 50% of the portfolio

	s := New(cfg, zerolog.New(nil).Level(zerolog.Disabled))
	qty := s.Size(Request{Symbol: "AAPL", Price: 50, PortfolioValue: 100000})
	assert.Equal(t, 400.0, qty) // Capped at 0.20 * 100000 / 50
}

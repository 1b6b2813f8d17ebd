// Package sizing computes order quantities for opening trades.
package sizing

import (
	"math"
	"strings"

	"github.com/averros/tradecore/internal/config"
	"github.com/rs/zerolog"
)

// Policy names accepted by New
const (
	PolicyFixedDollar     = "FIXED_DOLLAR"
	PolicyFixedPercentage = "FIXED_PERCENTAGE"
	PolicyRiskBased       = "RISK_BASED"
	PolicyVolatilityBased = "VOLATILITY_BASED"
	PolicyKellyCriterion  = "KELLY_CRITERION"
)

// Request carries the inputs for a sizing decision. Confidence, Volatility
// and StopLoss are optional; policies that need a missing field fall back to
// fixed-percentage sizing.
type Request struct {
	Symbol         string
	Price          float64
	PortfolioValue float64
	Confidence     *float64 // 0..1 signal confidence
	Volatility     *float64 // Annualized volatility estimate
	StopLoss       *float64 // Stop-loss price for risk-based sizing
}

// Sizer computes a share quantity for an opening trade. Closing trades are
// never sized here; their quantity equals the existing position.
type Sizer interface {
	Size(req Request) float64
	Name() string
}

// New selects a sizer implementation from configuration. Unknown policy
// names fall back to fixed-percentage sizing.
func New(cfg config.SizingConfig, log zerolog.Logger) Sizer {
	log = log.With().Str("service", "sizing").Logger()

	fixedPct := &FixedPercentageSizer{cfg: cfg}

	switch strings.ToUpper(cfg.Policy) {
	case PolicyFixedDollar:
		return &FixedDollarSizer{cfg: cfg}
	case PolicyRiskBased:
		return &RiskBasedSizer{cfg: cfg, fallback: fixedPct, log: log}
	case PolicyVolatilityBased:
		return &VolatilityBasedSizer{cfg: cfg, fallback: fixedPct, log: log}
	case PolicyKellyCriterion:
		return &KellySizer{cfg: cfg, fallback: fixedPct, log: log}
	case PolicyFixedPercentage:
		return fixedPct
	default:
		log.Warn().Str("policy", cfg.Policy).Msg("Unknown sizing policy, using fixed percentage")
		return fixedPct
	}
}

// finalize applies the hard position cap and integer share rounding shared
// by every policy. Invalid inputs size to zero.
func finalize(quantity float64, req Request, cfg config.SizingConfig) float64 {
	if req.Price <= 0 || req.PortfolioValue <= 0 || quantity <= 0 {
		return 0
	}

	maxQty := cfg.MaxPositionSize * req.PortfolioValue / req.Price
	if quantity > maxQty {
		quantity = maxQty
	}

	return math.Round(quantity)
}

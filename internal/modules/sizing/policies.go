package sizing

import (
	"math"

	"github.com/averros/tradecore/internal/config"
	"github.com/rs/zerolog"
)

// Compile-time interface checks
var (
	_ Sizer = (*FixedDollarSizer)(nil)
	_ Sizer = (*FixedPercentageSizer)(nil)
	_ Sizer = (*RiskBasedSizer)(nil)
	_ Sizer = (*VolatilityBasedSizer)(nil)
	_ Sizer = (*KellySizer)(nil)
)

// FixedDollarSizer allocates a constant dollar amount per trade
type FixedDollarSizer struct {
	cfg config.SizingConfig
}

// Name returns the policy name
func (s *FixedDollarSizer) Name() string { return PolicyFixedDollar }

// Size computes quantity = fixedDollarAmount / price
func (s *FixedDollarSizer) Size(req Request) float64 {
	if req.Price <= 0 {
		return 0
	}
	return finalize(s.cfg.FixedDollarAmount/req.Price, req, s.cfg)
}

// FixedPercentageSizer allocates a constant fraction of portfolio value per
// trade. It is the default policy and the fallback for every other policy.
type FixedPercentageSizer struct {
	cfg config.SizingConfig
}

// Name returns the policy name
func (s *FixedPercentageSizer) Name() string { return PolicyFixedPercentage }

// Size computes quantity = (portfolioValue * defaultPercentage) / price
func (s *FixedPercentageSizer) Size(req Request) float64 {
	if req.Price <= 0 {
		return 0
	}
	return finalize(req.PortfolioValue*s.cfg.DefaultPercentage/req.Price, req, s.cfg)
}

// RiskBasedSizer sizes so that hitting the stop-loss costs a fixed fraction
// of portfolio value
type RiskBasedSizer struct {
	cfg      config.SizingConfig
	fallback Sizer
	log      zerolog.Logger
}

// Name returns the policy name
func (s *RiskBasedSizer) Name() string { return PolicyRiskBased }

// Size computes quantity = (portfolioValue * riskPerTrade) / riskPerShare
// where riskPerShare = |price - stopLoss|. Falls back to fixed-percentage
// sizing when the stop-loss is absent or coincides with the price.
func (s *RiskBasedSizer) Size(req Request) float64 {
	if req.StopLoss == nil {
		s.log.Debug().Str("symbol", req.Symbol).Msg("No stop-loss supplied, falling back to fixed percentage")
		return s.fallback.Size(req)
	}

	riskPerShare := math.Abs(req.Price - *req.StopLoss)
	if riskPerShare <= 0 {
		return s.fallback.Size(req)
	}

	return finalize(req.PortfolioValue*s.cfg.RiskPerTrade/riskPerShare, req, s.cfg)
}

// VolatilityBasedSizer scales the allocation inversely with volatility,
// targeting a 20% reference volatility
type VolatilityBasedSizer struct {
	cfg      config.SizingConfig
	fallback Sizer
	log      zerolog.Logger
}

// Name returns the policy name
func (s *VolatilityBasedSizer) Name() string { return PolicyVolatilityBased }

// Size clamps volatility to [0.10, 0.50] and computes
// adjustedPct = min(defaultPercentage * (0.20 / volatility), maxPositionSize).
// Falls back to fixed-percentage sizing when volatility is missing or invalid.
func (s *VolatilityBasedSizer) Size(req Request) float64 {
	if req.Volatility == nil || *req.Volatility <= 0 {
		s.log.Debug().Str("symbol", req.Symbol).Msg("No volatility supplied, falling back to fixed percentage")
		return s.fallback.Size(req)
	}

	vol := *req.Volatility
	if vol < 0.10 {
		vol = 0.10
	}
	if vol > 0.50 {
		vol = 0.50
	}

	adjustedPct := s.cfg.DefaultPercentage * (0.20 / vol)
	if adjustedPct > s.cfg.MaxPositionSize {
		adjustedPct = s.cfg.MaxPositionSize
	}

	return finalize(req.PortfolioValue*adjustedPct/req.Price, req, s.cfg)
}

// KellySizer applies fractional Kelly sizing derived from signal confidence
type KellySizer struct {
	cfg      config.SizingConfig
	fallback Sizer
	log      zerolog.Logger
}

// Name returns the policy name
func (s *KellySizer) Name() string { return PolicyKellyCriterion }

// Size computes the Kelly fraction with an assumed 2.0 win/loss ratio:
// kellyPct = confidence - (1 - confidence) / 2.0, halved (fractional Kelly)
// and clamped to [defaultPercentage * 0.1, maxPositionSize]. Falls back to
// fixed-percentage sizing when confidence is missing.
func (s *KellySizer) Size(req Request) float64 {
	if req.Confidence == nil {
		s.log.Debug().Str("symbol", req.Symbol).Msg("No confidence supplied, falling back to fixed percentage")
		return s.fallback.Size(req)
	}

	confidence := *req.Confidence
	kellyPct := confidence - (1-confidence)/2.0
	kellyPct /= 2 // Fractional Kelly

	floor := s.cfg.DefaultPercentage * 0.1
	if kellyPct < floor {
		kellyPct = floor
	}
	if kellyPct > s.cfg.MaxPositionSize {
		kellyPct = s.cfg.MaxPositionSize
	}

	return finalize(req.PortfolioValue*kellyPct/req.Price, req, s.cfg)
}

// Package risk provides portfolio risk diagnostics, pre-trade constraint
// checks, and stop-loss / take-profit evaluation.
package risk

import "time"

// Constraints is shared-by-reference risk configuration, immutable during a
// trading session. Zero thresholds disable the corresponding warning.
type Constraints struct {
	MaxPositionWeight    float64 `json:"max_position_weight"`
	MaxPortfolioExposure float64 `json:"max_portfolio_exposure"`
	DefaultStopLossPct   float64 `json:"default_stop_loss_pct"`
	DefaultTakeProfitPct float64 `json:"default_take_profit_pct"`
	UseTrailingStop      bool    `json:"use_trailing_stop"`
	TrailingStopPct      float64 `json:"trailing_stop_pct"`
	MaxVaR95Pct          float64 `json:"max_var_95_pct"` // 1-day 95% VaR as a fraction of portfolio value
	MaxDrawdownPct       float64 `json:"max_drawdown_pct"`
	MinSharpe            float64 `json:"min_sharpe"`
}

// VaR holds value-at-risk figures at two confidence levels and two horizons.
// Present only when enough aligned historical returns were supplied.
type VaR struct {
	OneDay95  float64 `json:"one_day_95" msgpack:"one_day_95"`
	OneDay99  float64 `json:"one_day_99" msgpack:"one_day_99"`
	FiveDay95 float64 `json:"five_day_95" msgpack:"five_day_95"`
	FiveDay99 float64 `json:"five_day_99" msgpack:"five_day_99"`
}

// Performance holds history-derived figures. Present only when a portfolio
// value history series was supplied.
type Performance struct {
	AnnualizedVolatility float64 `json:"annualized_volatility" msgpack:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio" msgpack:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown" msgpack:"max_drawdown"`
}

// Diagnostics is the computed risk picture of a portfolio at a point in
// time. Warnings are advisory; they never block the computation itself.
type Diagnostics struct {
	PortfolioID        int64     `json:"portfolio_id" msgpack:"portfolio_id"`
	PortfolioValue     float64   `json:"portfolio_value" msgpack:"portfolio_value"`
	LongExposure       float64   `json:"long_exposure" msgpack:"long_exposure"`
	ShortExposure      float64   `json:"short_exposure" msgpack:"short_exposure"`
	TotalExposure      float64   `json:"total_exposure" msgpack:"total_exposure"`
	NetExposure        float64   `json:"net_exposure" msgpack:"net_exposure"`
	LargestPositionPct float64   `json:"largest_position_pct" msgpack:"largest_position_pct"`
	Top5Concentration  float64   `json:"top5_concentration" msgpack:"top5_concentration"`
	PositionCount      int       `json:"position_count" msgpack:"position_count"`
	ValueAtRisk        *VaR      `json:"value_at_risk,omitempty" msgpack:"value_at_risk,omitempty"`
	Performance        *Performance `json:"performance,omitempty" msgpack:"performance,omitempty"`
	Warnings           []string  `json:"warnings" msgpack:"warnings"`
	ComputedAt         time.Time `json:"computed_at" msgpack:"computed_at"`
}

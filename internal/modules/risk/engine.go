package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// minVaRPeriods is the minimum number of aligned return periods required
// before historical VaR is computed.
const minVaRPeriods = 30

// tradingDaysPerYear is used to annualize daily volatility and returns.
const tradingDaysPerYear = 252

// Engine computes portfolio risk diagnostics and evaluates stop rules
type Engine struct {
	constraints Constraints
	log         zerolog.Logger
}

// NewEngine creates a new risk engine
func NewEngine(constraints Constraints, log zerolog.Logger) *Engine {
	return &Engine{
		constraints: constraints,
		log:         log.With().Str("service", "risk").Logger(),
	}
}

// Constraints returns the engine's constraint configuration
func (e *Engine) Constraints() Constraints {
	return e.constraints
}

// CalculateDiagnostics computes the full risk picture for a portfolio.
// Prices override each position's stored current price when supplied.
// historicalReturns and portfolioHistory are optional; the corresponding
// figures are omitted when they are absent or too short.
func (e *Engine) CalculateDiagnostics(
	portfolioID int64,
	positions []domain.Position,
	prices map[string]float64,
	historicalReturns map[string][]float64,
	portfolioHistory []float64,
) *Diagnostics {
	diag := &Diagnostics{
		PortfolioID:   portfolioID,
		PositionCount: len(positions),
		Warnings:      []string{},
		ComputedAt:    time.Now().UTC(),
	}

	// Exposure and concentration
	values := make(map[string]float64, len(positions))
	var absValues []float64
	for _, pos := range positions {
		price := pos.CurrentPrice
		if p, ok := prices[pos.Symbol]; ok && p > 0 {
			price = p
		}

		value := pos.Quantity * price
		values[pos.Symbol] = value

		if pos.PositionType == domain.PositionShort {
			diag.ShortExposure += math.Abs(value)
		} else if value > 0 {
			diag.LongExposure += value
		}
		absValues = append(absValues, math.Abs(value))
	}

	diag.TotalExposure = diag.LongExposure + diag.ShortExposure
	diag.NetExposure = diag.LongExposure - diag.ShortExposure

	var portfolioValue float64
	for _, v := range values {
		portfolioValue += v
	}
	diag.PortfolioValue = math.Max(portfolioValue, 0)

	if diag.PortfolioValue > 0 && len(absValues) > 0 {
		sort.Sort(sort.Reverse(sort.Float64Slice(absValues)))
		diag.LargestPositionPct = absValues[0] / diag.PortfolioValue

		var top5 float64
		for i, v := range absValues {
			if i >= 5 {
				break
			}
			top5 += v
		}
		diag.Top5Concentration = top5 / diag.PortfolioValue
	}

	// Historical VaR
	if series := e.portfolioReturnSeries(values, diag.PortfolioValue, historicalReturns); series != nil {
		diag.ValueAtRisk = e.historicalVaR(series, diag.PortfolioValue)
	}

	// History-derived performance figures
	if len(portfolioHistory) >= 2 {
		diag.Performance = e.performance(portfolioHistory)
	}

	e.appendWarnings(diag)
	return diag
}

// portfolioReturnSeries builds a weighted portfolio-return series from
// per-symbol return histories. Returns nil when fewer than minVaRPeriods
// aligned periods are available.
func (e *Engine) portfolioReturnSeries(
	values map[string]float64,
	portfolioValue float64,
	historicalReturns map[string][]float64,
) []float64 {
	if portfolioValue <= 0 || len(historicalReturns) == 0 {
		return nil
	}

	// Align on the shortest series across held symbols
	periods := math.MaxInt32
	held := 0
	for symbol, value := range values {
		if value == 0 {
			continue
		}
		returns, ok := historicalReturns[symbol]
		if !ok {
			continue
		}
		held++
		if len(returns) < periods {
			periods = len(returns)
		}
	}
	if held == 0 || periods < minVaRPeriods {
		return nil
	}

	series := make([]float64, periods)
	for symbol, value := range values {
		returns, ok := historicalReturns[symbol]
		if !ok || value == 0 {
			continue
		}
		weight := value / portfolioValue
		// Use the most recent `periods` observations of each symbol
		offset := len(returns) - periods
		for i := 0; i < periods; i++ {
			series[i] += weight * returns[offset+i]
		}
	}
	return series
}

// historicalVaR computes 1-day VaR from the 5th/1st percentiles of the
// portfolio-return series and scales to 5 days by sqrt(5). The 5-day figure
// assumes independent daily returns; it is an approximation, not a
// multi-day model.
func (e *Engine) historicalVaR(series []float64, portfolioValue float64) *VaR {
	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	p5 := stat.Quantile(0.05, stat.Empirical, sorted, nil)
	p1 := stat.Quantile(0.01, stat.Empirical, sorted, nil)

	oneDay95 := math.Max(0, -p5*portfolioValue)
	oneDay99 := math.Max(0, -p1*portfolioValue)

	return &VaR{
		OneDay95:  oneDay95,
		OneDay99:  oneDay99,
		FiveDay95: oneDay95 * math.Sqrt(5),
		FiveDay99: oneDay99 * math.Sqrt(5),
	}
}

// performance derives volatility, Sharpe and max drawdown from a portfolio
// value history series
func (e *Engine) performance(history []float64) *Performance {
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		if history[i-1] == 0 {
			continue
		}
		returns = append(returns, (history[i]-history[i-1])/history[i-1])
	}
	if len(returns) == 0 {
		return nil
	}

	perf := &Performance{}
	vol := stat.StdDev(returns, nil) * math.Sqrt(tradingDaysPerYear)
	perf.AnnualizedVolatility = vol
	if vol > 0 {
		perf.SharpeRatio = stat.Mean(returns, nil) * tradingDaysPerYear / vol
	}

	// Max drawdown via running maximum
	peak := history[0]
	for _, v := range history {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > perf.MaxDrawdown {
				perf.MaxDrawdown = drawdown
			}
		}
	}
	return perf
}

// appendWarnings populates advisory warnings for every constraint breach.
// Warnings never fail the diagnostics computation.
func (e *Engine) appendWarnings(diag *Diagnostics) {
	c := e.constraints

	if c.MaxPortfolioExposure > 0 && diag.PortfolioValue > 0 {
		exposureRatio := diag.TotalExposure / diag.PortfolioValue
		if exposureRatio > c.MaxPortfolioExposure {
			diag.Warnings = append(diag.Warnings, fmt.Sprintf(
				"total exposure %.1f%% exceeds limit %.1f%%",
				exposureRatio*100, c.MaxPortfolioExposure*100))
		}
	}

	if c.MaxPositionWeight > 0 && diag.LargestPositionPct > c.MaxPositionWeight {
		diag.Warnings = append(diag.Warnings, fmt.Sprintf(
			"largest position weight %.1f%% exceeds limit %.1f%%",
			diag.LargestPositionPct*100, c.MaxPositionWeight*100))
	}

	if c.MaxVaR95Pct > 0 && diag.ValueAtRisk != nil && diag.PortfolioValue > 0 {
		varPct := diag.ValueAtRisk.OneDay95 / diag.PortfolioValue
		if varPct > c.MaxVaR95Pct {
			diag.Warnings = append(diag.Warnings, fmt.Sprintf(
				"1-day 95%% VaR %.1f%% exceeds limit %.1f%%",
				varPct*100, c.MaxVaR95Pct*100))
		}
	}

	if diag.Performance != nil {
		if c.MaxDrawdownPct > 0 && diag.Performance.MaxDrawdown > c.MaxDrawdownPct {
			diag.Warnings = append(diag.Warnings, fmt.Sprintf(
				"max drawdown %.1f%% exceeds limit %.1f%%",
				diag.Performance.MaxDrawdown*100, c.MaxDrawdownPct*100))
		}
		if c.MinSharpe != 0 && diag.Performance.SharpeRatio < c.MinSharpe {
			diag.Warnings = append(diag.Warnings, fmt.Sprintf(
				"Sharpe ratio %.2f below floor %.2f",
				diag.Performance.SharpeRatio, c.MinSharpe))
		}
	}
}

// CheckOrderRisk verifies that the projected post-trade position value stays
// within the per-position weight limit. It returns a typed error on breach
// so the engine can abort before the broker call.
func (e *Engine) CheckOrderRisk(symbol string, projectedValue, currentCapital float64) error {
	if e.constraints.MaxPositionWeight <= 0 || currentCapital <= 0 {
		return nil
	}

	limit := currentCapital * e.constraints.MaxPositionWeight
	if projectedValue > limit {
		return domain.NewRiskViolationError(
			fmt.Sprintf("projected position value %.2f for %s exceeds limit %.2f", projectedValue, symbol, limit),
			map[string]interface{}{
				"symbol":          symbol,
				"projected_value": projectedValue,
				"limit":           limit,
				"constraint":      "max_position_weight",
			})
	}
	return nil
}

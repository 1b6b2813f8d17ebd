package execution

import (
	"fmt"
	"math"

	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/events"
)

// SweepResult reports one position exited by the stop sweep
type SweepResult struct {
	Symbol  string        `json:"symbol"`
	Trigger string        `json:"trigger"` // "stop_loss" or "take_profit"
	PnlPct  float64       `json:"pnl_pct"`
	Trade   *domain.Trade `json:"trade,omitempty"`
}

// CheckStopLossTakeProfit evaluates every open position against the stop
// rules at the latest quote and force-exits the ones that trigger. Quote
// failures skip the symbol rather than aborting the sweep; a position
// without a quote cannot be safely exited anyway.
func (e *Engine) CheckStopLossTakeProfit(portfolioID int64) ([]SweepResult, error) {
	positions, err := e.positionRepo.GetByPortfolio(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions for sweep: %w", err)
	}

	var results []SweepResult
	for i := range positions {
		pos := &positions[i]

		quote, err := e.gateway.GetQuote(pos.Symbol)
		if err != nil {
			e.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("No quote for position, skipping stop check")
			continue
		}
		price := quote.Last
		if price <= 0 {
			price = quote.Bid
		}

		// Advance the peak favorable excursion before evaluating the rules;
		// a trailing stop measures retracement from the best point seen, so
		// the sweep itself must record that point as quotes move.
		pnlPct := pos.PnlPct(price)
		peak := math.Max(pos.PeakPnlPct, math.Max(0, pnlPct))
		if peak > pos.PeakPnlPct {
			unrealized := (price - pos.AverageCost) * pos.Quantity
			if pos.PositionType == domain.PositionShort {
				unrealized = (pos.AverageCost - price) * pos.Quantity
			}
			if err := e.positionRepo.UpdateMarketData(portfolioID, pos.Symbol, price, unrealized, peak); err != nil {
				e.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("Could not persist peak P&L for position")
			} else {
				pos.PeakPnlPct = peak
			}
		}

		var trigger string
		switch {
		case e.riskEngine.CheckStopLoss(pos, price):
			trigger = "stop_loss"
		case e.riskEngine.CheckTakeProfit(pos, price):
			trigger = "take_profit"
		default:
			continue
		}

		e.eventManager.Emit(module, portfolioID, nil, &events.StopTriggerData{
			Symbol:     pos.Symbol,
			Trigger:    trigger,
			Price:      price,
			PnlPct:     pnlPct,
			PeakPnlPct: pos.PeakPnlPct,
		})

		trade, err := e.ForceExitPosition(portfolioID, pos.Symbol,
			fmt.Sprintf("%s triggered at %.2f (pnl %.2f%%)", trigger, price, pnlPct*100), nil)
		if err != nil {
			e.log.Error().Err(err).Str("symbol", pos.Symbol).Str("trigger", trigger).Msg("Forced exit failed")
			continue
		}

		results = append(results, SweepResult{
			Symbol:  pos.Symbol,
			Trigger: trigger,
			PnlPct:  pnlPct,
			Trade:   trade,
		})
	}

	return results, nil
}

// SweepAllPortfolios runs the stop sweep across every portfolio.
// Used by the scheduler.
func (e *Engine) SweepAllPortfolios() {
	portfolios, err := e.portfolioRepo.GetAll()
	if err != nil {
		e.log.Error().Err(err).Msg("Stop sweep could not list portfolios")
		return
	}

	for _, pf := range portfolios {
		results, err := e.CheckStopLossTakeProfit(pf.ID)
		if err != nil {
			e.log.Error().Err(err).Int64("portfolio_id", pf.ID).Msg("Stop sweep failed")
			continue
		}
		if len(results) > 0 {
			e.log.Info().
				Int64("portfolio_id", pf.ID).
				Int("exited", len(results)).
				Msg("Stop sweep exited positions")
		}
	}
}

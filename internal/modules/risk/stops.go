package risk

import (
	"math"

	"github.com/averros/tradecore/internal/domain"
)

// CheckStopLoss reports whether the position should be exited at the given
// price. The fixed stop always applies; when trailing stops are enabled the
// position is also exited once the retracement from its best favorable
// excursion exceeds TrailingStopPct, even if absolute P&L is still positive.
func (e *Engine) CheckStopLoss(pos *domain.Position, currentPrice float64) bool {
	if pos == nil || currentPrice <= 0 || pos.AverageCost <= 0 {
		return false
	}

	pnlPct := pos.PnlPct(currentPrice)

	// Fixed stop is the floor in both modes
	if e.constraints.DefaultStopLossPct > 0 && pnlPct <= -e.constraints.DefaultStopLossPct {
		return true
	}

	if e.constraints.UseTrailingStop && e.constraints.TrailingStopPct > 0 {
		peak := math.Max(pos.PeakPnlPct, math.Max(0, pnlPct))
		if peak-pnlPct > e.constraints.TrailingStopPct {
			return true
		}
	}

	return false
}

// CheckTakeProfit reports whether the position has reached the fixed
// take-profit threshold. Trailing-stop mode does not change this check.
func (e *Engine) CheckTakeProfit(pos *domain.Position, currentPrice float64) bool {
	if pos == nil || currentPrice <= 0 || pos.AverageCost <= 0 {
		return false
	}
	if e.constraints.DefaultTakeProfitPct <= 0 {
		return false
	}

	return pos.PnlPct(currentPrice) >= e.constraints.DefaultTakeProfitPct
}

// Package execution turns trading signals into sized, risk-checked orders
// and applies confirmed fills to the ledger.
package execution

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/averros/tradecore/internal/broker"
	"github.com/averros/tradecore/internal/database"
	"github.com/averros/tradecore/internal/domain"
	"github.com/averros/tradecore/internal/events"
	"github.com/averros/tradecore/internal/modules/portfolio"
	"github.com/averros/tradecore/internal/modules/risk"
	"github.com/averros/tradecore/internal/modules/sizing"
	"github.com/averros/tradecore/internal/modules/trading"
	"github.com/averros/tradecore/internal/utils"
	"github.com/rs/zerolog"
)

const module = "execution"

// SignalRequest carries one trading signal into the engine
type SignalRequest struct {
	PortfolioID int64
	Symbol      string
	Signal      string
	Rationale   string
	SessionID   *string
	Confidence  *float64
	Volatility  *float64
	StopLoss    *float64
}

// Engine executes signals end to end: size, risk-check, submit, persist,
// emit. All mutations for one portfolio are serialized behind a
// per-portfolio lock spanning the risk check through the ledger update, so
// concurrent signals can never pass the buying-power check against stale
// capital. Different portfolios execute in parallel.
type Engine struct {
	gateway       broker.Gateway
	sizer         sizing.Sizer
	riskEngine    *risk.Engine
	portfolioRepo portfolio.PortfolioRepositoryInterface
	positionRepo  portfolio.PositionRepositoryInterface
	tradeRepo     trading.TradeRepositoryInterface
	execRepo      trading.ExecutionRepositoryInterface
	portfolioDB   *sql.DB
	ledgerDB      *sql.DB
	eventManager  *events.Manager
	log           zerolog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewEngine creates a new execution engine
func NewEngine(
	gateway broker.Gateway,
	sizer sizing.Sizer,
	riskEngine *risk.Engine,
	portfolioRepo portfolio.PortfolioRepositoryInterface,
	positionRepo portfolio.PositionRepositoryInterface,
	tradeRepo trading.TradeRepositoryInterface,
	execRepo trading.ExecutionRepositoryInterface,
	portfolioDB *sql.DB,
	ledgerDB *sql.DB,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		gateway:       gateway,
		sizer:         sizer,
		riskEngine:    riskEngine,
		portfolioRepo: portfolioRepo,
		positionRepo:  positionRepo,
		tradeRepo:     tradeRepo,
		execRepo:      execRepo,
		portfolioDB:   portfolioDB,
		ledgerDB:      ledgerDB,
		eventManager:  eventManager,
		log:           log.With().Str("service", "execution").Logger(),
		locks:         make(map[int64]*sync.Mutex),
	}
}

// portfolioLock returns the mutex serializing mutations for one portfolio
func (e *Engine) portfolioLock(portfolioID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[portfolioID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[portfolioID] = lock
	}
	return lock
}

// ExecuteSignal runs the full signal pipeline. HOLD and unrecognized
// signals return (nil, nil). A nil trade with nil error also means the
// signal produced no actionable order (zero size, nothing to sell).
// InsufficientFunds and RiskConstraintViolation are expected, reported
// conditions; broker failures propagate unwrapped in meaning and are never
// retried here, since retrying a submitted order risks duplicate fills.
func (e *Engine) ExecuteSignal(req SignalRequest) (*domain.Trade, error) {
	signal := domain.ParseSignal(req.Signal)
	if signal == domain.SignalHold {
		return nil, nil
	}

	defer utils.OperationTimer("execute_signal", e.log)()

	lock := e.portfolioLock(req.PortfolioID)
	lock.Lock()
	defer lock.Unlock()

	pf, err := e.portfolioRepo.GetByID(req.PortfolioID)
	if err != nil {
		return nil, err
	}

	position, err := e.positionRepo.GetBySymbol(req.PortfolioID, req.Symbol)
	if err != nil {
		return nil, err
	}

	quote, err := e.gateway.GetQuote(req.Symbol)
	if err != nil {
		return nil, err
	}

	var action domain.TradeAction
	var quantity float64

	switch signal {
	case domain.SignalBuy:
		action = domain.ActionBuy
		quantity = e.sizer.Size(sizing.Request{
			Symbol:         req.Symbol,
			Price:          quote.Ask,
			PortfolioValue: pf.CurrentCapital,
			Confidence:     req.Confidence,
			Volatility:     req.Volatility,
			StopLoss:       req.StopLoss,
		})
		if quantity <= 0 {
			e.log.Debug().Str("symbol", req.Symbol).Msg("Signal sized to zero, skipping")
			return nil, nil
		}

	case domain.SignalSell:
		if position == nil || position.Quantity <= 0 {
			e.log.Debug().Str("symbol", req.Symbol).Msg("No long position to sell, skipping")
			return nil, nil
		}
		action = domain.ActionSell
		quantity = position.Quantity
	}

	// Pre-trade risk checks run strictly before any broker call
	if action == domain.ActionBuy {
		if err := e.preTradeChecks(pf, position, req.Symbol, quantity, quote.Ask, req.SessionID); err != nil {
			return nil, err
		}
	}

	resp, err := e.gateway.SubmitOrder(broker.OrderRequest{
		Symbol:    req.Symbol,
		Action:    string(action),
		OrderType: string(domain.OrderTypeMarket),
		Quantity:  quantity,
	})
	if err != nil {
		// InsufficientFunds from the gateway is an expected condition; wrap
		// everything else as a broker failure.
		if domain.CodeOf(err) == domain.CodeInsufficientFunds {
			return nil, err
		}
		return nil, domain.NewExternalServiceError(
			fmt.Sprintf("order submission failed for %s", req.Symbol), err)
	}

	trade := &domain.Trade{
		PortfolioID:       req.PortfolioID,
		SessionID:         req.SessionID,
		OrderID:           resp.OrderID,
		Symbol:            req.Symbol,
		Action:            action,
		OrderType:         domain.OrderTypeMarket,
		Status:            domain.OrderStatus(resp.Status),
		RequestedQuantity: quantity,
		FilledQuantity:    resp.FilledQty,
		AverageFillPrice:  resp.AvgFillPrice,
		DecisionRationale: req.Rationale,
	}
	if req.Confidence != nil {
		trade.ConfidenceScore = *req.Confidence
	}

	trade, err = e.tradeRepo.Create(trade)
	if err != nil {
		// The order is already live at the broker but the ledger has no
		// record of it. Flag for reconciliation and surface the failure.
		e.eventManager.Emit(module, req.PortfolioID, req.SessionID, &events.ReconciliationRequiredData{
			OrderID: resp.OrderID,
			Symbol:  req.Symbol,
			Action:  string(action),
			Reason:  "trade persistence failed after order submission",
			FillQty: resp.FilledQty,
			Price:   resp.AvgFillPrice,
		})
		return nil, fmt.Errorf("failed to persist trade for order %s: %w", resp.OrderID, err)
	}

	e.eventManager.Emit(module, req.PortfolioID, req.SessionID,
		events.NewOrderSubmittedData(resp.OrderID, req.Symbol, string(action), quantity))

	switch domain.OrderStatus(resp.Status) {
	case domain.OrderStatusFilled:
		if err := e.applyFill(pf, position, trade, resp); err != nil {
			e.eventManager.Emit(module, req.PortfolioID, req.SessionID, &events.ReconciliationRequiredData{
				OrderID: resp.OrderID,
				Symbol:  req.Symbol,
				Action:  string(action),
				Reason:  "ledger update failed after confirmed fill",
				FillQty: resp.FilledQty,
				Price:   resp.AvgFillPrice,
			})
			return nil, err
		}

	case domain.OrderStatusRejected:
		e.eventManager.Emit(module, req.PortfolioID, req.SessionID,
			events.NewOrderRejectedData(resp.OrderID, req.Symbol, string(action), resp.Reason))
	}

	return trade, nil
}

// preTradeChecks enforces buying power and position weight limits before
// the broker is called. Either failure aborts the trade and reaches the
// event stream.
func (e *Engine) preTradeChecks(
	pf *domain.Portfolio,
	position *domain.Position,
	symbol string,
	quantity, price float64,
	sessionID *string,
) error {
	required := quantity * price

	buyingPower, err := e.gateway.GetBuyingPower()
	if err != nil {
		return domain.NewExternalServiceError("failed to get buying power", err)
	}
	if required > buyingPower {
		e.eventManager.Emit(module, pf.ID, sessionID, &events.RiskCheckFailedData{
			Symbol:     symbol,
			Code:       string(domain.CodeInsufficientFunds),
			Constraint: "buying_power",
			Requested:  required,
			Limit:      buyingPower,
		})
		return domain.NewInsufficientFundsError(
			fmt.Sprintf("order requires %.2f but buying power is %.2f", required, buyingPower),
			map[string]interface{}{
				"symbol":    symbol,
				"required":  required,
				"available": buyingPower,
			})
	}

	var currentValue float64
	if position != nil {
		currentValue = position.Quantity * price
	}

	if err := e.riskEngine.CheckOrderRisk(symbol, currentValue+required, pf.CurrentCapital); err != nil {
		e.eventManager.Emit(module, pf.ID, sessionID, &events.RiskCheckFailedData{
			Symbol:     symbol,
			Code:       string(domain.CodeRiskViolation),
			Constraint: "max_position_weight",
			Requested:  currentValue + required,
			Limit:      pf.CurrentCapital * e.riskEngine.Constraints().MaxPositionWeight,
		})
		return err
	}

	return nil
}

// applyFill records the execution and applies position and capital changes.
// The ledger write and the portfolio write are separate databases, so each
// runs in its own transaction; a failure between them surfaces as a
// reconciliation condition to the caller.
func (e *Engine) applyFill(
	pf *domain.Portfolio,
	position *domain.Position,
	trade *domain.Trade,
	resp *broker.OrderResponse,
) error {
	fillQty := resp.FilledQty
	fillPrice := resp.AvgFillPrice
	value := fillQty * fillPrice
	commission := resp.Commission

	err := database.WithTransaction(e.ledgerDB, func(tx *sql.Tx) error {
		_, err := e.execRepo.CreateTx(tx, &domain.Execution{
			TradeID:    trade.ID,
			Quantity:   fillQty,
			Price:      fillPrice,
			Commission: commission,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record execution for trade %d: %w", trade.ID, err)
	}

	var positionChange string
	var newCapital float64

	err = database.WithTransaction(e.portfolioDB, func(tx *sql.Tx) error {
		switch trade.Action {
		case domain.ActionBuy:
			if position == nil {
				positionChange = "opened"
				newPos := &domain.Position{
					PortfolioID:  pf.ID,
					Symbol:       trade.Symbol,
					Quantity:     fillQty,
					AverageCost:  fillPrice,
					CurrentPrice: fillPrice,
					PositionType: domain.PositionLong,
				}
				if err := e.positionRepo.UpsertTx(tx, newPos); err != nil {
					return err
				}
				position = newPos
			} else {
				positionChange = "updated"
				newQty := position.Quantity + fillQty
				position.AverageCost = (position.Quantity*position.AverageCost + fillQty*fillPrice) / newQty
				position.Quantity = newQty
				position.CurrentPrice = fillPrice
				if err := e.positionRepo.UpsertTx(tx, position); err != nil {
					return err
				}
			}
			newCapital = pf.CurrentCapital - (value + commission)

		case domain.ActionSell:
			realized := fillQty * (fillPrice - position.AverageCost)
			position.RealizedPnl += realized
			position.Quantity -= fillQty
			position.CurrentPrice = fillPrice

			if position.Quantity <= 0 {
				positionChange = "closed"
				if err := e.positionRepo.DeleteTx(tx, pf.ID, trade.Symbol); err != nil {
					return err
				}
			} else {
				positionChange = "updated"
				if err := e.positionRepo.UpsertTx(tx, position); err != nil {
					return err
				}
			}
			newCapital = pf.CurrentCapital + (value - commission)
		}

		return e.portfolioRepo.UpdateCapitalTx(tx, pf.ID, newCapital)
	})
	if err != nil {
		return fmt.Errorf("failed to apply fill for trade %d: %w", trade.ID, err)
	}

	capitalChange := newCapital - pf.CurrentCapital
	pf.CurrentCapital = newCapital

	// Ordered event emission: filled -> position change -> portfolio update
	e.eventManager.Emit(module, pf.ID, trade.SessionID,
		events.NewOrderFilledData(resp.OrderID, trade.Symbol, string(trade.Action), fillQty, fillPrice, trade.ID))

	positionData := &events.PositionEventData{
		Symbol:       trade.Symbol,
		PositionType: string(domain.PositionLong),
		Change:       positionChange,
		Quantity:     position.Quantity,
		AverageCost:  position.AverageCost,
	}
	if positionChange == "closed" {
		positionData.Quantity = 0
		positionData.RealizedPnl = position.RealizedPnl
	}
	e.eventManager.Emit(module, pf.ID, trade.SessionID, positionData)

	e.eventManager.Emit(module, pf.ID, trade.SessionID, &events.PortfolioEventData{
		Currency:       string(pf.Currency),
		CurrentCapital: newCapital,
		CapitalChange:  capitalChange,
	})

	e.log.Info().
		Int64("trade_id", trade.ID).
		Str("symbol", trade.Symbol).
		Str("action", string(trade.Action)).
		Float64("quantity", fillQty).
		Float64("price", fillPrice).
		Float64("capital", newCapital).
		Msg("Fill applied")

	return nil
}

// ForceExitPosition liquidates an open long position with a synthetic SELL
// at the latest quote. Used by stop-loss / take-profit execution and manual
// liquidation.
func (e *Engine) ForceExitPosition(portfolioID int64, symbol, reason string, sessionID *string) (*domain.Trade, error) {
	return e.ExecuteSignal(SignalRequest{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Signal:      string(domain.SignalSell),
		Rationale:   reason,
		SessionID:   sessionID,
	})
}

// CancelTrade cancels a non-terminal trade's order at the gateway and
// mirrors the result into the ledger
func (e *Engine) CancelTrade(tradeID int64) (*domain.Trade, error) {
	trade, err := e.tradeRepo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Status.IsTerminal() {
		return trade, nil
	}

	lock := e.portfolioLock(trade.PortfolioID)
	lock.Lock()
	defer lock.Unlock()

	resp, err := e.gateway.CancelOrder(trade.OrderID)
	if err != nil {
		return nil, err
	}

	trade.Status = domain.OrderStatus(resp.Status)
	if err := e.tradeRepo.Update(trade); err != nil {
		return nil, err
	}
	return trade, nil
}

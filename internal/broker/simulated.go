package broker

import (
	"fmt"
	"sync"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
)

// Compile-time interface check
var _ Gateway = (*SimulatedGateway)(nil)

// SimulatedGateway is a paper-trading gateway. Orders fill against seeded
// quotes with a fixed fractional slippage, and the gateway keeps its own cash
// ledger and position book so buying power reflects simulated fills.
type SimulatedGateway struct {
	log zerolog.Logger

	mu         sync.Mutex
	capital    float64
	slippage   float64
	commission float64
	nextID     int64
	orders     map[string]*OrderResponse
	quotes     map[string]Quote
	positions  map[string]*PositionSnapshot
}

// SimulatedConfig holds the tunable parameters of the simulated gateway
type SimulatedConfig struct {
	InitialCapital     float64
	SlippagePct        float64 // 0.001 = 10 bps
	CommissionPerTrade float64
}

// NewSimulatedGateway creates a simulated gateway with the given parameters.
// A zero SlippagePct is honored; a negative one falls back to the default.
func NewSimulatedGateway(cfg SimulatedConfig, log zerolog.Logger) *SimulatedGateway {
	slippage := cfg.SlippagePct
	if slippage < 0 {
		slippage = 0.001
	}
	return &SimulatedGateway{
		log:        log.With().Str("service", "simulated_gateway").Logger(),
		capital:    cfg.InitialCapital,
		slippage:   slippage,
		commission: cfg.CommissionPerTrade,
		orders:     make(map[string]*OrderResponse),
		quotes:     make(map[string]Quote),
		positions:  make(map[string]*PositionSnapshot),
	}
}

// SetQuote seeds or updates the market quote for a symbol
func (g *SimulatedGateway) SetQuote(symbol string, bid, ask, last float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.quotes[symbol] = Quote{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Last:      last,
		Timestamp: time.Now(),
	}
}

// SubmitOrder validates and (when marketable) immediately fills an order.
// MARKET orders always fill; LIMIT orders fill only when the limit crosses
// the quote, otherwise they stay PENDING until re-evaluated or cancelled.
func (g *SimulatedGateway) SubmitOrder(req OrderRequest) (*OrderResponse, error) {
	if req.Symbol == "" {
		return nil, domain.NewValidationError("symbol is required", nil)
	}
	if req.Quantity <= 0 {
		return nil, domain.NewValidationError("quantity must be positive", map[string]interface{}{
			"quantity": req.Quantity,
		})
	}
	if req.OrderType == string(domain.OrderTypeLimit) && req.LimitPrice <= 0 {
		return nil, domain.NewValidationError("limit orders require a positive limit price", map[string]interface{}{
			"limit_price": req.LimitPrice,
		})
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	quote, ok := g.quotes[req.Symbol]
	if !ok {
		return nil, domain.NewExternalServiceError(
			fmt.Sprintf("no quote available for %s", req.Symbol), nil)
	}

	isBuy := req.Action == string(domain.ActionBuy) || req.Action == string(domain.ActionCover)

	// Capital check before accepting a buy-side order. The reference price is
	// the ask, or the limit price when it is tighter.
	if isBuy {
		refPrice := quote.Ask
		if req.OrderType == string(domain.OrderTypeLimit) && req.LimitPrice > 0 && req.LimitPrice < refPrice {
			refPrice = req.LimitPrice
		}
		required := req.Quantity * refPrice
		if required > g.capital {
			return nil, domain.NewInsufficientFundsError(
				fmt.Sprintf("order requires %.2f but only %.2f available", required, g.capital),
				map[string]interface{}{
					"required":  required,
					"available": g.capital,
					"symbol":    req.Symbol,
				})
		}
	}

	g.nextID++
	order := &OrderResponse{
		OrderID:    fmt.Sprintf("SIM%06d", g.nextID),
		Symbol:     req.Symbol,
		Action:     req.Action,
		OrderType:  req.OrderType,
		Status:     string(domain.OrderStatusSubmitted),
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		UpdatedAt:  time.Now(),
	}
	g.orders[order.OrderID] = order

	switch req.OrderType {
	case string(domain.OrderTypeMarket):
		g.fill(order, g.fillPrice(quote, isBuy, 0), isBuy)

	case string(domain.OrderTypeLimit):
		marketable := (isBuy && req.LimitPrice >= quote.Ask) || (!isBuy && req.LimitPrice <= quote.Bid)
		if marketable {
			g.fill(order, g.fillPrice(quote, isBuy, req.LimitPrice), isBuy)
		} else {
			order.Status = string(domain.OrderStatusPending)
		}

	default:
		order.Status = string(domain.OrderStatusRejected)
		order.Reason = fmt.Sprintf("unsupported order type: %s", req.OrderType)
	}

	g.log.Debug().
		Str("order_id", order.OrderID).
		Str("symbol", order.Symbol).
		Str("action", order.Action).
		Str("status", order.Status).
		Float64("quantity", order.Quantity).
		Float64("avg_fill_price", order.AvgFillPrice).
		Msg("Order processed")

	resp := *order
	return &resp, nil
}

// ReevaluateOrder re-checks a pending limit order against the current quote
// and fills it if it has become marketable. There is no background matching
// loop; callers decide when re-evaluation happens.
func (g *SimulatedGateway) ReevaluateOrder(orderID string) (*OrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[orderID]
	if !ok {
		return nil, domain.NewNotFoundError(
			fmt.Sprintf("order %s not found", orderID),
			map[string]interface{}{"order_id": orderID})
	}

	if order.Status != string(domain.OrderStatusPending) {
		resp := *order
		return &resp, nil
	}

	quote, ok := g.quotes[order.Symbol]
	if !ok {
		return nil, domain.NewExternalServiceError(
			fmt.Sprintf("no quote available for %s", order.Symbol), nil)
	}

	isBuy := order.Action == string(domain.ActionBuy) || order.Action == string(domain.ActionCover)
	marketable := (isBuy && order.LimitPrice >= quote.Ask) || (!isBuy && order.LimitPrice <= quote.Bid)
	if marketable {
		// The capital check from submission does not carry over; funds may
		// have been consumed by other fills in the meantime.
		if isBuy && order.Quantity*order.LimitPrice > g.capital {
			order.Status = string(domain.OrderStatusRejected)
			order.Reason = "insufficient funds at re-evaluation"
			order.UpdatedAt = time.Now()
		} else {
			g.fill(order, g.fillPrice(quote, isBuy, order.LimitPrice), isBuy)
		}
	}

	resp := *order
	return &resp, nil
}

// fillPrice computes the slippage-adjusted execution price. For marketable
// limit orders the price never crosses the limit.
func (g *SimulatedGateway) fillPrice(quote Quote, isBuy bool, limit float64) float64 {
	var price float64
	if isBuy {
		price = quote.Ask * (1 + g.slippage)
		if limit > 0 && price > limit {
			price = limit
		}
	} else {
		price = quote.Bid * (1 - g.slippage)
		if limit > 0 && price < limit {
			price = limit
		}
	}
	return price
}

// fill marks an order filled and updates the cash ledger and position book.
// Caller must hold g.mu.
func (g *SimulatedGateway) fill(order *OrderResponse, price float64, isBuy bool) {
	order.Status = string(domain.OrderStatusFilled)
	order.FilledQty = order.Quantity
	order.AvgFillPrice = price
	order.Commission = g.commission
	order.UpdatedAt = time.Now()

	value := order.Quantity * price
	if isBuy {
		g.capital -= value + g.commission
	} else {
		g.capital += value - g.commission
	}

	g.applyToBook(order.Symbol, order.Action, order.Quantity, price)
}

// applyToBook updates the gateway's own position snapshot for a fill.
// Caller must hold g.mu.
func (g *SimulatedGateway) applyToBook(symbol, action string, quantity, price float64) {
	pos, ok := g.positions[symbol]
	if !ok {
		pos = &PositionSnapshot{Symbol: symbol}
		g.positions[symbol] = pos
	}

	signed := quantity
	if action == string(domain.ActionSell) || action == string(domain.ActionShort) {
		signed = -quantity
	}

	prev := pos.Quantity
	newQty := prev + signed
	switch {
	case newQty == 0:
		delete(g.positions, symbol)
	case prev == 0 || (prev > 0) == (signed > 0):
		// Adding to the position: weighted average cost
		pos.AverageCost = (pos.AverageCost*abs(prev) + price*quantity) / (abs(prev) + quantity)
		pos.Quantity = newQty
	default:
		// Reducing keeps the cost basis; flipping through flat resets it
		if (newQty > 0) != (prev > 0) {
			pos.AverageCost = price
		}
		pos.Quantity = newQty
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// CancelOrder cancels a pending order. Cancelling a terminal order is a
// no-op that returns the current state.
func (g *SimulatedGateway) CancelOrder(orderID string) (*OrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[orderID]
	if !ok {
		return nil, domain.NewNotFoundError(
			fmt.Sprintf("order %s not found", orderID),
			map[string]interface{}{"order_id": orderID})
	}

	if !domain.OrderStatus(order.Status).IsTerminal() {
		order.Status = string(domain.OrderStatusCancelled)
		order.UpdatedAt = time.Now()
	}

	resp := *order
	return &resp, nil
}

// GetOrderStatus returns the current state of an order
func (g *SimulatedGateway) GetOrderStatus(orderID string) (*OrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[orderID]
	if !ok {
		return nil, domain.NewNotFoundError(
			fmt.Sprintf("order %s not found", orderID),
			map[string]interface{}{"order_id": orderID})
	}

	resp := *order
	return &resp, nil
}

// GetQuote returns the seeded quote for a symbol
func (g *SimulatedGateway) GetQuote(symbol string) (*Quote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	quote, ok := g.quotes[symbol]
	if !ok {
		return nil, domain.NewExternalServiceError(
			fmt.Sprintf("no quote available for %s", symbol), nil)
	}

	q := quote
	return &q, nil
}

// GetBuyingPower returns the available simulated capital
func (g *SimulatedGateway) GetBuyingPower() (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.capital, nil
}

// GetPositions returns the gateway's own view of open positions
func (g *SimulatedGateway) GetPositions() ([]PositionSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]PositionSnapshot, 0, len(g.positions))
	for _, pos := range g.positions {
		out = append(out, *pos)
	}
	return out, nil
}

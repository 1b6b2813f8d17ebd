// Package domain provides core domain models and types.
package domain

import (
	"strings"
	"time"
)

// Currency represents a currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// Signal represents a trading signal from the decision engine
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// ParseSignal normalizes a raw signal string. Unrecognized values map to HOLD
// so that a malformed signal never produces an order.
func ParseSignal(raw string) Signal {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY":
		return SignalBuy
	case "SELL":
		return SignalSell
	default:
		return SignalHold
	}
}

// TradeAction represents the direction of an order
type TradeAction string

const (
	ActionBuy   TradeAction = "BUY"
	ActionSell  TradeAction = "SELL"
	ActionShort TradeAction = "SHORT"
	ActionCover TradeAction = "COVER"
)

// IsOpening reports whether the action increases exposure (requires capital)
func (a TradeAction) IsOpening() bool {
	return a == ActionBuy || a == ActionCover
}

// OrderType represents the order pricing mode
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus represents the lifecycle state of an order.
// PENDING/SUBMITTED/PARTIAL are non-terminal; FILLED/CANCELLED/REJECTED are
// terminal and immutable.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusPartial   OrderStatus = "PARTIAL"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

// IsTerminal reports whether the status permits no further transitions
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// PositionType distinguishes long from short positions
type PositionType string

const (
	PositionLong  PositionType = "LONG"
	PositionShort PositionType = "SHORT"
)

// Portfolio represents a single logical capital ledger for an account.
// CurrentCapital is mutated only by the execution engine's fill handling.
type Portfolio struct {
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Name           string    `json:"name"`
	Currency       Currency  `json:"currency"`
	ID             int64     `json:"id"`
	CurrentCapital float64   `json:"current_capital"`
}

// Position represents an open holding, keyed by (portfolio_id, symbol).
// A position with zero quantity is never persisted; reaching zero deletes
// the row. PeakPnlPct tracks the best favorable excursion since entry and
// backs the trailing-stop calculation.
type Position struct {
	LastUpdated   time.Time    `json:"last_updated"`
	Symbol        string       `json:"symbol"`
	PositionType  PositionType `json:"position_type"`
	ID            int64        `json:"id"`
	PortfolioID   int64        `json:"portfolio_id"`
	Quantity      float64      `json:"quantity"`
	AverageCost   float64      `json:"average_cost"`
	CurrentPrice  float64      `json:"current_price"`
	UnrealizedPnl float64      `json:"unrealized_pnl"`
	RealizedPnl   float64      `json:"realized_pnl"`
	PeakPnlPct    float64      `json:"peak_pnl_pct"`
}

// MarketValue returns quantity * current price
func (p *Position) MarketValue() float64 {
	return p.Quantity * p.CurrentPrice
}

// PnlPct returns the unrealized P&L as a fraction of average cost at the
// given price. The sign is flipped for short positions so that a favorable
// move is always positive.
func (p *Position) PnlPct(price float64) float64 {
	if p.AverageCost <= 0 {
		return 0
	}
	pct := (price - p.AverageCost) / p.AverageCost
	if p.PositionType == PositionShort {
		pct = -pct
	}
	return pct
}

// Trade represents one signal-driven order attempt. Immutable once its
// status is terminal.
type Trade struct {
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	Symbol            string      `json:"symbol"`
	Action            TradeAction `json:"action"`
	OrderType         OrderType   `json:"order_type"`
	Status            OrderStatus `json:"status"`
	OrderID           string      `json:"order_id"`
	DecisionRationale string      `json:"decision_rationale"`
	SessionID         *string     `json:"session_id,omitempty"`
	LimitPrice        *float64    `json:"limit_price,omitempty"`
	ID                int64       `json:"id"`
	PortfolioID       int64       `json:"portfolio_id"`
	RequestedQuantity float64     `json:"requested_quantity"`
	FilledQuantity    float64     `json:"filled_quantity"`
	AverageFillPrice  float64     `json:"average_fill_price"`
	ConfidenceScore   float64     `json:"confidence_score"`
}

// Execution represents a single fill (or partial fill) owned by one Trade
type Execution struct {
	ExecutedAt time.Time `json:"executed_at"`
	ID         int64     `json:"id"`
	TradeID    int64     `json:"trade_id"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
	Fees       float64   `json:"fees"`
}

// Value returns quantity * price for the execution
func (e *Execution) Value() float64 {
	return e.Quantity * e.Price
}

package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement.
// This allows for type-safe event data while maintaining flexibility.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// OrderEventData contains data for order lifecycle events
type OrderEventData struct {
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Action   string  `json:"action"`
	Status   string  `json:"status"`
	Reason   string  `json:"reason,omitempty"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
	TradeID  int64   `json:"trade_id,omitempty"`
	filled   bool
	rejected bool
}

// NewOrderSubmittedData builds payload for an OrderSubmitted event
func NewOrderSubmittedData(orderID, symbol, action string, quantity float64) *OrderEventData {
	return &OrderEventData{OrderID: orderID, Symbol: symbol, Action: action, Quantity: quantity, Status: "SUBMITTED"}
}

// NewOrderFilledData builds payload for an OrderFilled event
func NewOrderFilledData(orderID, symbol, action string, quantity, price float64, tradeID int64) *OrderEventData {
	return &OrderEventData{OrderID: orderID, Symbol: symbol, Action: action, Quantity: quantity, Price: price, TradeID: tradeID, Status: "FILLED", filled: true}
}

// NewOrderRejectedData builds payload for an OrderRejected event
func NewOrderRejectedData(orderID, symbol, action, reason string) *OrderEventData {
	return &OrderEventData{OrderID: orderID, Symbol: symbol, Action: action, Reason: reason, Status: "REJECTED", rejected: true}
}

// EventType returns the event type for OrderEventData
func (d *OrderEventData) EventType() EventType {
	switch {
	case d.filled:
		return OrderFilled
	case d.rejected:
		return OrderRejected
	default:
		return OrderSubmitted
	}
}

// PositionEventData contains data for position lifecycle events
type PositionEventData struct {
	Symbol       string  `json:"symbol"`
	PositionType string  `json:"position_type"`
	Change       string  `json:"change"` // "opened", "updated", "closed"
	Quantity     float64 `json:"quantity"`
	AverageCost  float64 `json:"average_cost"`
	RealizedPnl  float64 `json:"realized_pnl,omitempty"`
}

// EventType returns the event type for PositionEventData
func (d *PositionEventData) EventType() EventType {
	switch d.Change {
	case "opened":
		return PositionOpened
	case "closed":
		return PositionClosed
	default:
		return PositionUpdated
	}
}

// PortfolioEventData contains data for PortfolioUpdated events
type PortfolioEventData struct {
	Currency       string  `json:"currency"`
	CurrentCapital float64 `json:"current_capital"`
	CapitalChange  float64 `json:"capital_change"`
}

// EventType returns the event type for PortfolioEventData
func (d *PortfolioEventData) EventType() EventType {
	return PortfolioUpdated
}

// StopTriggerData contains data for stop-loss / take-profit trigger events
type StopTriggerData struct {
	Symbol     string  `json:"symbol"`
	Trigger    string  `json:"trigger"` // "stop_loss" or "take_profit"
	Price      float64 `json:"price"`
	PnlPct     float64 `json:"pnl_pct"`
	PeakPnlPct float64 `json:"peak_pnl_pct,omitempty"`
}

// EventType returns the event type for StopTriggerData
func (d *StopTriggerData) EventType() EventType {
	if d.Trigger == "take_profit" {
		return TakeProfitTriggered
	}
	return StopLossTriggered
}

// RiskCheckFailedData contains data for pre-trade risk rejection events
type RiskCheckFailedData struct {
	Symbol     string  `json:"symbol"`
	Code       string  `json:"code"`
	Constraint string  `json:"constraint"`
	Requested  float64 `json:"requested"`
	Limit      float64 `json:"limit"`
}

// EventType returns the event type for RiskCheckFailedData
func (d *RiskCheckFailedData) EventType() EventType {
	if d.Code == "INSUFFICIENT_FUNDS" {
		return InsufficientFunds
	}
	return RiskCheckFailed
}

// SessionEventData contains data for trading session lifecycle events
type SessionEventData struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"` // "started" or "stopped"
}

// EventType returns the event type for SessionEventData
func (d *SessionEventData) EventType() EventType {
	if d.Status == "stopped" {
		return SessionStopped
	}
	return SessionStarted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Context map[string]interface{} `json:"context,omitempty"`
	Error   string                 `json:"error"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// ReconciliationRequiredData contains data for ReconciliationRequired events
type ReconciliationRequiredData struct {
	OrderID string  `json:"order_id"`
	Symbol  string  `json:"symbol"`
	Action  string  `json:"action"`
	Reason  string  `json:"reason"`
	FillQty float64 `json:"fill_quantity"`
	Price   float64 `json:"fill_price"`
}

// EventType returns the event type for ReconciliationRequiredData
func (d *ReconciliationRequiredData) EventType() EventType {
	return ReconciliationRequired
}

// Event represents a system event with typed data. PortfolioID scopes the
// event to a ledger; SessionID is set when the event originated inside a
// trading session.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	Module      string    `json:"module"`
	SessionID   *string   `json:"session_id,omitempty"`
	Data        EventData `json:"data"`
	PortfolioID int64     `json:"portfolio_id"`
}

// MarshalJSON customizes JSON serialization for Event so that the typed
// payload is embedded as a raw object
func (e *Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

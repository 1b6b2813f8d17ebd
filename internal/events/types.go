// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	// Order lifecycle events
	OrderSubmitted EventType = "ORDER_SUBMITTED"
	OrderFilled    EventType = "ORDER_FILLED"
	OrderRejected  EventType = "ORDER_REJECTED"

	// Position lifecycle events
	PositionOpened  EventType = "POSITION_OPENED"
	PositionUpdated EventType = "POSITION_UPDATED"
	PositionClosed  EventType = "POSITION_CLOSED"

	// Portfolio events
	PortfolioUpdated EventType = "PORTFOLIO_UPDATED"

	// Risk events
	StopLossTriggered   EventType = "STOP_LOSS_TRIGGERED"
	TakeProfitTriggered EventType = "TAKE_PROFIT_TRIGGERED"
	RiskCheckFailed     EventType = "RISK_CHECK_FAILED"
	InsufficientFunds   EventType = "INSUFFICIENT_FUNDS"

	// Session events
	SessionStarted EventType = "SESSION_STARTED"
	SessionStopped EventType = "SESSION_STOPPED"

	// System events
	ErrorOccurred EventType = "ERROR_OCCURRED"
	// ReconciliationRequired marks a fill whose ledger write failed after the
	// broker confirmed the order. The fill must not be lost; an operator has
	// to reconcile the ledger against the broker manually.
	ReconciliationRequired EventType = "RECONCILIATION_REQUIRED"
)

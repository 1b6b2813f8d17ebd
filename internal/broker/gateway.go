// Package broker provides the broker gateway abstraction and the simulated
// (paper trading) implementation.
package broker

import "time"

// OrderRequest describes an order to be submitted to a gateway
type OrderRequest struct {
	Symbol     string
	Action     string // BUY, SELL, SHORT, COVER
	OrderType  string // MARKET, LIMIT
	Quantity   float64
	LimitPrice float64 // Only meaningful for LIMIT orders
}

// OrderResponse describes the gateway-side state of an order
type OrderResponse struct {
	OrderID      string
	Symbol       string
	Action       string
	OrderType    string
	Status       string // PENDING, SUBMITTED, PARTIAL, FILLED, CANCELLED, REJECTED
	Quantity     float64
	LimitPrice   float64 // Only meaningful for LIMIT orders
	FilledQty    float64
	AvgFillPrice float64
	Commission   float64
	Reason       string // Populated on rejection
	UpdatedAt    time.Time
}

// Quote is a point-in-time market quote for a symbol
type Quote struct {
	Symbol    string
	Bid       float64
	Ask       float64
	Last      float64
	Timestamp time.Time
}

// PositionSnapshot is the gateway's own view of a held position
type PositionSnapshot struct {
	Symbol      string
	Quantity    float64
	AverageCost float64
}

// Gateway is the broker abstraction the execution engine trades through.
// Implementations must be safe for concurrent use.
type Gateway interface {
	SubmitOrder(req OrderRequest) (*OrderResponse, error)
	CancelOrder(orderID string) (*OrderResponse, error)
	GetOrderStatus(orderID string) (*OrderResponse, error)
	GetQuote(symbol string) (*Quote, error)
	GetBuyingPower() (float64, error)
	GetPositions() ([]PositionSnapshot, error)
}

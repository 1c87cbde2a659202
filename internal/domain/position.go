package domain

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposite returns the opposing direction.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Position represents an open position. A Position exists only after the
// originating order was accepted by the exchange.
type Position struct {
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	EntryPrice  float64   `json:"entry_price"`
	Size        float64   `json:"size"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profits"`
	OpenedAt    time.Time `json:"opened_at"`
	Simulated   bool      `json:"simulated"`
}

// OrderRequest is a proposed order handed to the risk gate and, if allowed,
// to the exchange.
type OrderRequest struct {
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Qty         float64   `json:"qty"`
	StopLoss    float64   `json:"stop_loss,omitempty"`
	TakeProfits []float64 `json:"take_profits,omitempty"`
	Leverage    int       `json:"leverage,omitempty"`
}

// OrderResult is the exchange acknowledgement of a placed order.
type OrderResult struct {
	OrderID string `json:"order_id"`
}

// Order is a trade record written to storage.
type Order struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Size        float64   `json:"size"`
	Price       float64   `json:"price"`
	RealizedPnL float64   `json:"realized_pnl"`
	Simulated   bool      `json:"simulated"`
	CreatedAt   time.Time `json:"created_at"`
}

// PositionHistory represents a closed position.
type PositionHistory struct {
	ID          int64     `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Size        float64   `json:"size"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	RealizedPnL float64   `json:"realized_pnl"`
	Reason      string    `json:"reason"`
	Simulated   bool      `json:"simulated"`
	ClosedAt    time.Time `json:"closed_at"`
}

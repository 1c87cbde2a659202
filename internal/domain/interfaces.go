package domain

import "context"

// Exchange defines the capability interface for a market data and order
// backend. The core treats independent implementations (live adapter,
// simulated exchange) as interchangeable.
type Exchange interface {
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	FetchOrderBook(ctx context.Context, symbol string) (*OrderBook, error)
	FetchTicker(ctx context.Context, symbol string) (*Ticker, error)
	PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error)
	GetPositions(ctx context.Context, symbol string) ([]*Position, error)
	ClosePosition(ctx context.Context, symbol string) error
}

// CommandSource delivers external commands. Next consumes the oldest
// pending command; a consumed command is never delivered again.
type CommandSource interface {
	Next() (*Command, bool)
}

// StatusSink publishes the daemon's external-facing snapshots.
type StatusSink interface {
	WriteStatus(status *DaemonStatus) error
	WritePositions(positions []*Position) error
}

// TradeRepository defines storage operations for executed trades and
// closed positions.
type TradeRepository interface {
	SaveTrade(ctx context.Context, order *Order) error
	ListTrades(ctx context.Context, limit int) ([]*Order, error)
	SavePositionHistory(ctx context.Context, history *PositionHistory) error
	ListPositionHistory(ctx context.Context, limit int) ([]*PositionHistory, error)
}

// WeightRepository persists adaptive component weights across restarts.
type WeightRepository interface {
	SaveWeights(ctx context.Context, weights map[string]float64) error
	LoadWeights(ctx context.Context) (map[string]float64, error)
}

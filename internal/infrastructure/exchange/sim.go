package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"go.uber.org/zap"
)

// SimExchange is an in-memory domain.Exchange with paper fills. It serves
// simulation mode when no API credentials are configured, and tests.
// Market data is whatever was loaded via LoadCandles / LoadOrderBook.
type SimExchange struct {
	mu        sync.Mutex
	candles   map[string][]domain.Candle // keyed by symbol/interval
	orderbook map[string]*domain.OrderBook
	positions map[string][]*domain.Position
	orderSeq  int
	logger    *zap.Logger
}

func NewSimExchange(logger *zap.Logger) *SimExchange {
	return &SimExchange{
		candles:   make(map[string][]domain.Candle),
		orderbook: make(map[string]*domain.OrderBook),
		positions: make(map[string][]*domain.Position),
		logger:    logger,
	}
}

func seriesKey(symbol, interval string) string {
	return symbol + "/" + interval
}

// LoadCandles installs the candle series served for symbol at interval.
func (s *SimExchange) LoadCandles(symbol, interval string, candles []domain.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candles[seriesKey(symbol, interval)] = candles
}

// LoadOrderBook installs the orderbook served for symbol.
func (s *SimExchange) LoadOrderBook(symbol string, ob *domain.OrderBook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderbook[symbol] = ob
}

func (s *SimExchange) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, ok := s.candles[seriesKey(symbol, interval)]
	if !ok {
		return nil, fmt.Errorf("no candle data loaded for %s %s", symbol, interval)
	}
	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}
	out := make([]domain.Candle, len(series))
	copy(out, series)
	return out, nil
}

func (s *SimExchange) FetchOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ob, ok := s.orderbook[symbol]
	if !ok {
		return nil, fmt.Errorf("no orderbook loaded for %s", symbol)
	}
	return ob, nil
}

func (s *SimExchange) FetchTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price := s.lastPriceLocked(symbol)
	if price == 0 {
		return nil, fmt.Errorf("no market data loaded for %s", symbol)
	}

	var volume float64
	for key, series := range s.candles {
		if !strings.HasPrefix(key, symbol+"/") {
			continue
		}
		for _, c := range series {
			volume += c.Volume * c.Close
		}
		break
	}

	return &domain.Ticker{
		Symbol:      symbol,
		LastPrice:   price,
		Volume24h:   volume,
		Turnover24h: volume,
	}, nil
}

func (s *SimExchange) lastPriceLocked(symbol string) float64 {
	for key, series := range s.candles {
		if !strings.HasPrefix(key, symbol+"/") {
			continue
		}
		if len(series) > 0 {
			return series[len(series)-1].Close
		}
	}
	return 0
}

// PlaceOrder fills instantly at the latest loaded close price.
func (s *SimExchange) PlaceOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price := s.lastPriceLocked(req.Symbol)
	if price == 0 {
		return nil, &domain.OrderError{Symbol: req.Symbol, Reason: "no market data for paper fill"}
	}

	s.orderSeq++
	orderID := fmt.Sprintf("sim-%d", s.orderSeq)

	s.positions[req.Symbol] = append(s.positions[req.Symbol], &domain.Position{
		Symbol:      req.Symbol,
		Side:        req.Side,
		EntryPrice:  price,
		Size:        req.Qty,
		StopLoss:    req.StopLoss,
		TakeProfits: req.TakeProfits,
		OpenedAt:    time.Now(),
		Simulated:   true,
	})

	s.logger.Info("Paper fill",
		zap.String("order_id", orderID),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("qty", req.Qty),
		zap.Float64("price", price))

	return &domain.OrderResult{OrderID: orderID}, nil
}

func (s *SimExchange) GetPositions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := s.positions[symbol]
	out := make([]*domain.Position, len(positions))
	for i, p := range positions {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

func (s *SimExchange) ClosePosition(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, symbol)
	return nil
}

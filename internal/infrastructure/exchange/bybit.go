package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"go.uber.org/zap"
)

const BybitBaseURL = "https://api.bybit.com"

// BybitAdapter implements domain.Exchange against the Bybit V5 REST API
// (linear perpetuals).
type BybitAdapter struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
	logger    *zap.Logger
}

func NewBybitAdapter(apiKey, apiSecret, baseURL string, logger *zap.Logger) *BybitAdapter {
	if baseURL == "" {
		baseURL = BybitBaseURL
	}
	return &BybitAdapter{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

func (b *BybitAdapter) sign(params string, timestamp int64, recvWindow int) string {
	// timestamp + apiKey + recvWindow + params
	toSign := fmt.Sprintf("%d%s%d%s", timestamp, b.apiKey, recvWindow, params)
	h := hmac.New(sha256.New, []byte(b.apiSecret))
	h.Write([]byte(toSign))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *BybitAdapter) sendRequest(ctx context.Context, method, path string, payload map[string]interface{}) ([]byte, error) {
	timestamp := time.Now().UnixMilli()
	recvWindow := 5000

	var body []byte
	var paramsStr string

	if payload != nil {
		jsonBody, _ := json.Marshal(payload)
		body = jsonBody
		paramsStr = string(jsonBody)
	} else if method == "GET" {
		// For GET, the signed params are the query string.
		if idx := strings.Index(path, "?"); idx != -1 {
			paramsStr = path[idx+1:]
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	signature := b.sign(paramsStr, timestamp, recvWindow)

	req.Header.Set("X-BAPI-API-KEY", b.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-BAPI-SIGN", signature)
	req.Header.Set("X-BAPI-RECV-WINDOW", strconv.Itoa(recvWindow))
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, domain.Transient("bybit request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transient("bybit response", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(respBody))
	}

	return respBody, nil
}

func (b *BybitAdapter) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	path := fmt.Sprintf("/v5/market/kline?category=linear&symbol=%s&interval=%s&limit=%d",
		symbol, bybitInterval(interval), limit)
	resp, err := b.sendRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		RetCode int `json:"retCode"`
		Result  struct {
			List [][]string `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.RetCode != 0 {
		return nil, fmt.Errorf("bybit kline error: %d", result.RetCode)
	}

	var candles []domain.Candle
	for _, raw := range result.Result.List {
		// Format: [startTime, open, high, low, close, volume, turnover]
		if len(raw) < 6 {
			continue
		}

		ts, _ := strconv.ParseInt(raw[0], 10, 64)
		open, _ := strconv.ParseFloat(raw[1], 64)
		high, _ := strconv.ParseFloat(raw[2], 64)
		low, _ := strconv.ParseFloat(raw[3], 64)
		closePrice, _ := strconv.ParseFloat(raw[4], 64)
		volume, _ := strconv.ParseFloat(raw[5], 64)

		candles = append(candles, domain.Candle{
			Time:   ts / 1000,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	// Bybit returns newest first; the indicators need chronological order.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

func (b *BybitAdapter) FetchOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	path := fmt.Sprintf("/v5/market/orderbook?category=linear&symbol=%s&limit=50", symbol)
	resp, err := b.sendRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		RetCode int `json:"retCode"`
		Result  struct {
			S string     `json:"s"`
			B [][]string `json:"b"`
			A [][]string `json:"a"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.RetCode != 0 {
		return nil, fmt.Errorf("bybit orderbook error: %d", result.RetCode)
	}

	ob := &domain.OrderBook{
		Symbol: result.Result.S,
		Bids:   make([]domain.OrderBookEntry, 0, len(result.Result.B)),
		Asks:   make([]domain.OrderBookEntry, 0, len(result.Result.A)),
	}
	for _, bid := range result.Result.B {
		if len(bid) < 2 {
			continue
		}
		price, _ := strconv.ParseFloat(bid[0], 64)
		size, _ := strconv.ParseFloat(bid[1], 64)
		ob.Bids = append(ob.Bids, domain.OrderBookEntry{Price: price, Size: size})
	}
	for _, ask := range result.Result.A {
		if len(ask) < 2 {
			continue
		}
		price, _ := strconv.ParseFloat(ask[0], 64)
		size, _ := strconv.ParseFloat(ask[1], 64)
		ob.Asks = append(ob.Asks, domain.OrderBookEntry{Price: price, Size: size})
	}

	return ob, nil
}

func (b *BybitAdapter) FetchTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	path := "/v5/market/tickers?category=linear&symbol=" + symbol
	resp, err := b.sendRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		RetCode int `json:"retCode"`
		Result  struct {
			List []struct {
				Symbol      string `json:"symbol"`
				LastPrice   string `json:"lastPrice"`
				Volume24h   string `json:"volume24h"`
				Turnover24h string `json:"turnover24h"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if len(result.Result.List) == 0 {
		return nil, fmt.Errorf("symbol not found: %s", symbol)
	}

	raw := result.Result.List[0]
	last, _ := strconv.ParseFloat(raw.LastPrice, 64)
	volume, _ := strconv.ParseFloat(raw.Volume24h, 64)
	turnover, _ := strconv.ParseFloat(raw.Turnover24h, 64)

	return &domain.Ticker{
		Symbol:      raw.Symbol,
		LastPrice:   last,
		Volume24h:   volume,
		Turnover24h: turnover,
	}, nil
}

func (b *BybitAdapter) PlaceOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	if req.Leverage > 0 {
		b.setLeverage(ctx, req.Symbol, req.Leverage)
	}

	side := "Buy"
	if req.Side == domain.SideShort {
		side = "Sell"
	}

	payload := map[string]interface{}{
		"category":    "linear",
		"symbol":      req.Symbol,
		"side":        side,
		"orderType":   "Market",
		"qty":         fmt.Sprintf("%f", req.Qty),
		"timeInForce": "GTC",
	}
	if req.StopLoss > 0 {
		payload["stopLoss"] = fmt.Sprintf("%f", req.StopLoss)
	}
	// Bybit accepts one TP level per order; the first tier goes on the
	// order, the rest stay advisory.
	if len(req.TakeProfits) > 0 && req.TakeProfits[0] > 0 {
		payload["takeProfit"] = fmt.Sprintf("%f", req.TakeProfits[0])
	}

	resp, err := b.sendRequest(ctx, "POST", "/v5/order/create", payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			OrderID string `json:"orderId"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.RetCode != 0 {
		return nil, &domain.OrderError{Symbol: req.Symbol, Reason: result.RetMsg}
	}

	return &domain.OrderResult{OrderID: result.Result.OrderID}, nil
}

func (b *BybitAdapter) setLeverage(ctx context.Context, symbol string, leverage int) {
	payload := map[string]interface{}{
		"category":     "linear",
		"symbol":       symbol,
		"buyLeverage":  fmt.Sprintf("%d", leverage),
		"sellLeverage": fmt.Sprintf("%d", leverage),
	}
	// Fails when the leverage is already set; not worth surfacing.
	if _, err := b.sendRequest(ctx, "POST", "/v5/position/set-leverage", payload); err != nil {
		b.logger.Debug("Set leverage skipped", zap.String("symbol", symbol), zap.Error(err))
	}
}

func (b *BybitAdapter) GetPositions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	path := "/v5/position/list?category=linear&symbol=" + symbol
	resp, err := b.sendRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		RetCode int `json:"retCode"`
		Result  struct {
			List []struct {
				Symbol      string `json:"symbol"`
				Side        string `json:"side"`
				Size        string `json:"size"`
				AvgPrice    string `json:"avgPrice"`
				StopLoss    string `json:"stopLoss"`
				CreatedTime string `json:"createdTime"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}

	var positions []*domain.Position
	for _, raw := range result.Result.List {
		size, _ := strconv.ParseFloat(raw.Size, 64)
		if size == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(raw.AvgPrice, 64)
		stopLoss, _ := strconv.ParseFloat(raw.StopLoss, 64)
		createdMs, _ := strconv.ParseInt(raw.CreatedTime, 10, 64)

		side := domain.SideLong
		if raw.Side == "Sell" {
			side = domain.SideShort
		}

		positions = append(positions, &domain.Position{
			Symbol:     raw.Symbol,
			Side:       side,
			EntryPrice: entry,
			Size:       size,
			StopLoss:   stopLoss,
			OpenedAt:   time.UnixMilli(createdMs),
		})
	}

	return positions, nil
}

func (b *BybitAdapter) ClosePosition(ctx context.Context, symbol string) error {
	positions, err := b.GetPositions(ctx, symbol)
	if err != nil {
		return err
	}

	for _, pos := range positions {
		closeSide := "Sell"
		if pos.Side == domain.SideShort {
			closeSide = "Buy"
		}

		payload := map[string]interface{}{
			"category":   "linear",
			"symbol":     symbol,
			"side":       closeSide,
			"orderType":  "Market",
			"qty":        fmt.Sprintf("%f", pos.Size),
			"reduceOnly": true,
		}

		resp, err := b.sendRequest(ctx, "POST", "/v5/order/create", payload)
		if err != nil {
			return err
		}

		var result struct {
			RetCode int    `json:"retCode"`
			RetMsg  string `json:"retMsg"`
		}
		if err := json.Unmarshal(resp, &result); err != nil {
			return err
		}
		if result.RetCode != 0 {
			return &domain.OrderError{Symbol: symbol, Reason: result.RetMsg}
		}
	}

	return nil
}

// bybitInterval maps config notation like "1h" and "1d" to the V5 kline
// interval codes.
func bybitInterval(interval string) string {
	switch interval {
	case "1m":
		return "1"
	case "5m":
		return "5"
	case "15m":
		return "15"
	case "30m":
		return "30"
	case "1h":
		return "60"
	case "2h":
		return "120"
	case "4h":
		return "240"
	case "6h":
		return "360"
	case "12h":
		return "720"
	case "1d":
		return "D"
	case "1w":
		return "W"
	default:
		return interval
	}
}

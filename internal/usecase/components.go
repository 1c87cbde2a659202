package usecase

import (
	"math"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
)

// ScoringComponent is one indicator or signal family. Calculate must never
// panic as part of its contract: missing or insufficient data yields
// Confidence 0 with an error note in metadata so the aggregate degrades
// gracefully.
type ScoringComponent interface {
	Name() string
	Category() string
	Calculate(ctx domain.MarketContext) domain.ComponentScore
}

func insufficient(category, note string) domain.ComponentScore {
	return domain.ComponentScore{
		Score:      0,
		Confidence: 0,
		Category:   category,
		Metadata:   map[string]any{"error": note},
	}
}

// --- Technical ---

const categoryTechnical = "Technical"

type RSIComponent struct {
	Period int
}

func NewRSIComponent() *RSIComponent { return &RSIComponent{Period: 14} }

func (c *RSIComponent) Name() string     { return "technical_rsi" }
func (c *RSIComponent) Category() string { return categoryTechnical }

func (c *RSIComponent) Calculate(ctx domain.MarketContext) domain.ComponentScore {
	rsi, ok := RSI(Closes(ctx.Candles), c.Period)
	if !ok {
		return insufficient(c.Category(), "no candle data")
	}

	score := 0.0
	switch {
	case rsi > 70:
		score = -1.0 // overbought
	case rsi < 30:
		score = 1.0 // oversold
	}
	return domain.ComponentScore{
		Score:      score,
		Confidence: 0.8,
		Category:   c.Category(),
		Metadata:   map[string]any{"value": rsi},
	}
}

type MACDComponent struct {
	Fast, Slow, Signal int
}

func NewMACDComponent() *MACDComponent { return &MACDComponent{Fast: 12, Slow: 26, Signal: 9} }

func (c *MACDComponent) Name() string     { return "technical_macd" }
func (c *MACDComponent) Category() string { return categoryTechnical }

func (c *MACDComponent) Calculate(ctx domain.MarketContext) domain.ComponentScore {
	hist, prevHist, ok := MACDHist(Closes(ctx.Candles), c.Fast, c.Slow, c.Signal)
	if !ok {
		return insufficient(c.Category(), "no candle data")
	}

	// Sign of the histogram, escalated when momentum is expanding
	// versus the prior bar.
	score := 0.0
	if hist > 0 {
		score = 0.5
		if hist > prevHist {
			score = 1.0
		}
	} else if hist < 0 {
		score = -0.5
		if hist < prevHist {
			score = -1.0
		}
	}
	return domain.ComponentScore{
		Score:      score,
		Confidence: 0.7,
		Category:   c.Category(),
		Metadata:   map[string]any{"hist": hist, "prev_hist": prevHist},
	}
}

// ATRComponent is directionally neutral; it exposes the ATR value for the
// risk gate's volatility check and stop derivation.
type ATRComponent struct {
	Period int
}

func NewATRComponent() *ATRComponent { return &ATRComponent{Period: 14} }

func (c *ATRComponent) Name() string     { return "technical_atr" }
func (c *ATRComponent) Category() string { return categoryTechnical }

func (c *ATRComponent) Calculate(ctx domain.MarketContext) domain.ComponentScore {
	atr, ok := ATR(ctx.Candles, c.Period)
	if !ok {
		return insufficient(c.Category(), "no candle data")
	}
	return domain.ComponentScore{
		Score:      0,
		Confidence: 0.5,
		Category:   c.Category(),
		Metadata:   map[string]any{"value": atr},
	}
}

type BollingerComponent struct {
	Period int
	StdDev float64
}

func NewBollingerComponent() *BollingerComponent {
	return &BollingerComponent{Period: 20, StdDev: 2}
}

func (c *BollingerComponent) Name() string     { return "technical_bb" }
func (c *BollingerComponent) Category() string { return categoryTechnical }

func (c *BollingerComponent) Calculate(ctx domain.MarketContext) domain.ComponentScore {
	closes := Closes(ctx.Candles)
	sma, ok := SMA(closes, c.Period)
	if !ok {
		return insufficient(c.Category(), "no candle data")
	}
	std, _ := StdDev(closes, c.Period)
	upper := sma + std*c.StdDev
	lower := sma - std*c.StdDev
	price := closes[len(closes)-1]

	// Mean reversion: outside the bands argues for a move back in.
	score := 0.0
	if price > upper {
		score = -0.8
	} else if price < lower {
		score = 0.8
	}
	return domain.ComponentScore{
		Score:      score,
		Confidence: 0.6,
		Category:   c.Category(),
		Metadata:   map[string]any{"upper": upper, "lower": lower, "price": price},
	}
}

// DivergenceComponent is an explicit extension point. Until divergence
// detection is implemented it reports a low-confidence neutral opinion so
// it is never mistaken for a strong one.
type DivergenceComponent struct{}

func NewDivergenceComponent() *DivergenceComponent { return &DivergenceComponent{} }

func (c *DivergenceComponent) Name() string     { return "technical_divergences" }
func (c *DivergenceComponent) Category() string { return categoryTechnical }

func (c *DivergenceComponent) Calculate(domain.MarketContext) domain.ComponentScore {
	return domain.ComponentScore{
		Score:      0,
		Confidence: 0.2,
		Category:   c.Category(),
		Metadata:   map[string]any{"info": "not implemented"},
	}
}

// --- Market structure ---

type MarketStructureComponent struct {
	Window int
}

func NewMarketStructureComponent() *MarketStructureComponent {
	return &MarketStructureComponent{Window: 5}
}

func (c *MarketStructureComponent) Name() string     { return "market_structure" }
func (c *MarketStructureComponent) Category() string { return "MarketStructure" }

func (c *MarketStructureComponent) Calculate(ctx domain.MarketContext) domain.ComponentScore {
	if len(ctx.Candles) < c.Window*2+1 {
		return insufficient(c.Category(), "insufficient candles for pivots")
	}

	highs := make([]float64, len(ctx.Candles))
	lows := make([]float64, len(ctx.Candles))
	for i, candle := range ctx.Candles {
		highs[i] = candle.High
		lows[i] = candle.Low
	}

	highPivots := PivotHighs(highs, c.Window)
	lowPivots := PivotLows(lows, c.Window)
	if len(highPivots) < 2 || len(lowPivots) < 2 {
		return insufficient(c.Category(), "not enough pivots")
	}

	currHigh := highs[highPivots[len(highPivots)-1]]
	prevHigh := highs[highPivots[len(highPivots)-2]]
	currLow := lows[lowPivots[len(lowPivots)-1]]
	prevLow := lows[lowPivots[len(lowPivots)-2]]

	score := 0.0
	trend := "NEUTRAL"
	if currHigh > prevHigh && currLow > prevLow {
		score = 1.0 // higher high, higher low
		trend = "BULLISH"
	} else if currHigh < prevHigh && currLow < prevLow {
		score = -1.0 // lower high, lower low
		trend = "BEARISH"
	}

	return domain.ComponentScore{
		Score:      score,
		Confidence: 0.5,
		Category:   c.Category(),
		Metadata:   map[string]any{"trend": trend},
	}
}

// --- Orderbook ---

const categoryOrderbook = "Orderbook"

type OrderbookImbalanceComponent struct {
	Depth int
}

func NewOrderbookImbalanceComponent() *OrderbookImbalanceComponent {
	return &OrderbookImbalanceComponent{Depth: 10}
}

func (c *OrderbookImbalanceComponent) Name() string     { return "ob_imbalance" }
func (c *OrderbookImbalanceComponent) Category() string { return categoryOrderbook }

func (c *OrderbookImbalanceComponent) Calculate(ctx domain.MarketContext) domain.ComponentScore {
	ob := ctx.OrderBook
	if ob == nil || len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return insufficient(c.Category(), "no orderbook data")
	}

	bidVol := sumDepth(ob.Bids, c.Depth)
	askVol := sumDepth(ob.Asks, c.Depth)
	total := bidVol + askVol
	if total == 0 {
		return insufficient(c.Category(), "empty depth")
	}

	imbalance := (bidVol - askVol) / total
	return domain.ComponentScore{
		Score:      imbalance,
		Confidence: 0.7,
		Category:   c.Category(),
		Metadata:   map[string]any{"bid_vol": bidVol, "ask_vol": askVol},
	}
}

// LiquidityComponent is directionally neutral; it surfaces top-of-book
// volume for the risk gate's liquidity floor.
type LiquidityComponent struct {
	Depth int
}

func NewLiquidityComponent() *LiquidityComponent { return &LiquidityComponent{Depth: 20} }

func (c *LiquidityComponent) Name() string     { return "ob_liquidity" }
func (c *LiquidityComponent) Category() string { return categoryOrderbook }

func (c *LiquidityComponent) Calculate(ctx domain.MarketContext) domain.ComponentScore {
	ob := ctx.OrderBook
	if ob == nil {
		return insufficient(c.Category(), "no orderbook data")
	}
	liquidity := sumDepth(ob.Bids, c.Depth) + sumDepth(ob.Asks, c.Depth)
	return domain.ComponentScore{
		Score:      0,
		Confidence: 0.5,
		Category:   c.Category(),
		Metadata:   map[string]any{"liquidity": liquidity},
	}
}

func sumDepth(entries []domain.OrderBookEntry, depth int) float64 {
	if depth > len(entries) {
		depth = len(entries)
	}
	var sum float64
	for _, e := range entries[:depth] {
		sum += e.Size
	}
	return sum
}

// --- Multi-timeframe ---

type MultiTimeframeComponent struct {
	Timeframes []string
	SMAPeriod  int
}

func NewMultiTimeframeComponent(timeframes []string) *MultiTimeframeComponent {
	return &MultiTimeframeComponent{Timeframes: timeframes, SMAPeriod: 20}
}

func (c *MultiTimeframeComponent) Name() string     { return "multi_timeframe" }
func (c *MultiTimeframeComponent) Category() string { return "MultiTimeframe" }

func (c *MultiTimeframeComponent) trend(candles []domain.Candle) float64 {
	closes := Closes(candles)
	sma, ok := SMA(closes, c.SMAPeriod)
	if !ok {
		return 0
	}
	last := closes[len(closes)-1]
	switch {
	case last > sma:
		return 1
	case last < sma:
		return -1
	default:
		return 0
	}
}

func (c *MultiTimeframeComponent) Calculate(ctx domain.MarketContext) domain.ComponentScore {
	if len(ctx.MTFCandles) == 0 {
		return insufficient(c.Category(), "no MTF data")
	}

	var trends []float64
	for _, tf := range c.Timeframes {
		if candles, ok := ctx.MTFCandles[tf]; ok {
			trends = append(trends, c.trend(candles))
		}
	}
	if len(trends) == 0 {
		return insufficient(c.Category(), "no matching timeframes")
	}

	var sum float64
	for _, t := range trends {
		sum += t
	}
	score := sum / float64(len(trends))
	agreement := math.Abs(sum) / float64(len(trends)) // 1.0 when unanimous

	return domain.ComponentScore{
		Score:      score,
		Confidence: agreement,
		Category:   c.Category(),
		Metadata:   map[string]any{"timeframes": c.Timeframes, "trends": trends},
	}
}

// --- Sentiment ---

type SentimentComponent struct{}

func NewSentimentComponent() *SentimentComponent { return &SentimentComponent{} }

func (c *SentimentComponent) Name() string     { return "sentiment" }
func (c *SentimentComponent) Category() string { return "Sentiment" }

func (c *SentimentComponent) Calculate(ctx domain.MarketContext) domain.ComponentScore {
	if ctx.Sentiment == nil {
		return insufficient(c.Category(), "no sentiment source")
	}
	score := math.Max(-1, math.Min(1, ctx.Sentiment.Score))
	return domain.ComponentScore{
		Score:      score,
		Confidence: 0.6,
		Category:   c.Category(),
		Metadata:   map[string]any{"source": ctx.Sentiment.Source},
	}
}

package usecase_test

import (
	"testing"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allComponents() []usecase.ScoringComponent {
	return []usecase.ScoringComponent{
		usecase.NewRSIComponent(),
		usecase.NewMACDComponent(),
		usecase.NewATRComponent(),
		usecase.NewBollingerComponent(),
		usecase.NewDivergenceComponent(),
		usecase.NewMarketStructureComponent(),
		usecase.NewOrderbookImbalanceComponent(),
		usecase.NewLiquidityComponent(),
		usecase.NewMultiTimeframeComponent([]string{"1h", "4h"}),
		usecase.NewSentimentComponent(),
	}
}

// An empty context must never panic any component; everything except the
// divergence placeholder degrades to zero confidence.
func TestComponents_EmptyContext(t *testing.T) {
	for _, c := range allComponents() {
		result := c.Calculate(domain.MarketContext{})
		assert.Equal(t, 0.0, result.Score, "%s score on empty context", c.Name())
		if c.Name() == "technical_divergences" {
			continue
		}
		assert.Equal(t, 0.0, result.Confidence, "%s confidence on empty context", c.Name())
	}
}

func TestRSIComponent_Overbought(t *testing.T) {
	ctx := domain.MarketContext{Candles: risingCandles(30, 100, 1)}
	result := usecase.NewRSIComponent().Calculate(ctx)

	assert.Equal(t, -1.0, result.Score)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Equal(t, 100.0, result.Metadata["value"])
}

func TestRSIComponent_FlatIsNeutral(t *testing.T) {
	ctx := domain.MarketContext{Candles: flatCandles(30, 100)}
	result := usecase.NewRSIComponent().Calculate(ctx)

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, 50.0, result.Metadata["value"])
}

func TestMACDComponent(t *testing.T) {
	c := usecase.NewMACDComponent()

	// Flat: histogram is exactly zero, so the opinion is neutral.
	result := c.Calculate(domain.MarketContext{Candles: flatCandles(60, 100)})
	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, 0.7, result.Confidence)

	// Accelerating rise: positive and expanding histogram.
	candles := make([]domain.Candle, 60)
	for i := range candles {
		price := 100 + float64(i)*float64(i)*0.05
		candles[i] = domain.Candle{Close: price, High: price, Low: price}
	}
	result = c.Calculate(domain.MarketContext{Candles: candles})
	assert.Equal(t, 1.0, result.Score)
}

func TestATRComponent_NeutralWithValue(t *testing.T) {
	candles := make([]domain.Candle, 20)
	for i := range candles {
		candles[i] = domain.Candle{High: 101, Low: 99, Close: 100}
	}
	result := usecase.NewATRComponent().Calculate(domain.MarketContext{Candles: candles})

	assert.Equal(t, 0.0, result.Score, "ATR carries no direction")
	assert.Equal(t, 0.5, result.Confidence)
	assert.InDelta(t, 2.0, result.Metadata["value"].(float64), 1e-9)
}

func TestBollingerComponent(t *testing.T) {
	c := usecase.NewBollingerComponent()

	// 19 closes at 100 and a spike to 110 puts the price above the upper
	// band: mean reversion argues short.
	candles := flatCandles(20, 100)
	candles[19].Close = 110
	result := c.Calculate(domain.MarketContext{Candles: candles})
	assert.Equal(t, -0.8, result.Score)
	assert.Equal(t, 0.6, result.Confidence)

	// Inside the bands: neutral.
	result = c.Calculate(domain.MarketContext{Candles: risingCandles(40, 100, 0.1)})
	assert.Equal(t, 0.0, result.Score)
}

func TestMarketStructureComponent_Uptrend(t *testing.T) {
	// Zigzag with rising peaks (110 -> 120) and rising valleys (95 -> 105).
	knots := []struct {
		idx   int
		value float64
	}{{0, 100}, {8, 110}, {16, 95}, {24, 120}, {32, 105}, {40, 112}}

	candles := make([]domain.Candle, 41)
	for k := 0; k < len(knots)-1; k++ {
		a, b := knots[k], knots[k+1]
		for i := a.idx; i <= b.idx; i++ {
			frac := float64(i-a.idx) / float64(b.idx-a.idx)
			v := a.value + frac*(b.value-a.value)
			candles[i] = domain.Candle{High: v, Low: v - 1, Close: v - 0.5}
		}
	}

	result := usecase.NewMarketStructureComponent().Calculate(domain.MarketContext{Candles: candles})
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Equal(t, "BULLISH", result.Metadata["trend"])
}

func TestMarketStructureComponent_FlatHasNoPivots(t *testing.T) {
	result := usecase.NewMarketStructureComponent().Calculate(domain.MarketContext{
		Candles: flatCandles(40, 100),
	})
	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestOrderbookImbalanceComponent(t *testing.T) {
	ob := &domain.OrderBook{
		Symbol: "BTCUSDT",
		Bids: []domain.OrderBookEntry{
			{Price: 99, Size: 10}, {Price: 98, Size: 10}, {Price: 97, Size: 10},
		},
		Asks: []domain.OrderBookEntry{
			{Price: 101, Size: 5}, {Price: 102, Size: 5},
		},
	}
	result := usecase.NewOrderbookImbalanceComponent().Calculate(domain.MarketContext{OrderBook: ob})

	// (30 - 10) / 40 = 0.5
	assert.InDelta(t, 0.5, result.Score, 1e-9)
	assert.Equal(t, 0.7, result.Confidence)
}

func TestLiquidityComponent(t *testing.T) {
	ob := &domain.OrderBook{
		Bids: []domain.OrderBookEntry{{Price: 99, Size: 7}},
		Asks: []domain.OrderBookEntry{{Price: 101, Size: 3}},
	}
	result := usecase.NewLiquidityComponent().Calculate(domain.MarketContext{OrderBook: ob})

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, 10.0, result.Metadata["liquidity"])
}

func TestMultiTimeframeComponent(t *testing.T) {
	c := usecase.NewMultiTimeframeComponent([]string{"1h", "4h"})

	rising := risingCandles(30, 100, 1)
	falling := make([]domain.Candle, 30)
	for i := range falling {
		price := 200 - float64(i)
		falling[i] = domain.Candle{Close: price, High: price, Low: price}
	}

	// Unanimous uptrend: score 1, full agreement.
	result := c.Calculate(domain.MarketContext{MTFCandles: map[string][]domain.Candle{
		"1h": rising, "4h": rising,
	}})
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, 1.0, result.Confidence)

	// Split opinion: neutral score, zero agreement.
	result = c.Calculate(domain.MarketContext{MTFCandles: map[string][]domain.Candle{
		"1h": rising, "4h": falling,
	}})
	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, 0.0, result.Confidence)

	// Flat series sits exactly on its SMA: no trend either way.
	result = c.Calculate(domain.MarketContext{MTFCandles: map[string][]domain.Candle{
		"1h": flatCandles(30, 100),
	}})
	assert.Equal(t, 0.0, result.Score)
}

func TestSentimentComponent_Clamps(t *testing.T) {
	c := usecase.NewSentimentComponent()

	result := c.Calculate(domain.MarketContext{Sentiment: &domain.SentimentSample{Score: 2.5, Source: "feed"}})
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, 0.6, result.Confidence)

	result = c.Calculate(domain.MarketContext{Sentiment: &domain.SentimentSample{Score: -3}})
	assert.Equal(t, -1.0, result.Score)
}

// A fully flat market must classify NEUTRAL end to end; this is the
// backstop against phantom directional signals on dead data.
func TestScoringService_FlatSeriesIsNeutral(t *testing.T) {
	scoring := usecase.NewScoringService([]string{"1h"}, testLogger())
	flat := flatCandles(60, 100)

	signal := scoring.Evaluate(domain.MarketContext{
		Symbol:     "BTCUSDT",
		Candles:    flat,
		MTFCandles: map[string][]domain.Candle{"1h": flat},
	})

	require.NotNil(t, signal)
	assert.Equal(t, 0.0, signal.AggregatedScore)
	assert.Equal(t, domain.ActionNeutral, signal.Action)
}

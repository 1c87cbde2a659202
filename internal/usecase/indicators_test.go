package usecase_test

import (
	"testing"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCandles(n int, price float64) []domain.Candle {
	candles := make([]domain.Candle, n)
	for i := range candles {
		candles[i] = domain.Candle{
			Time:   int64(i * 3600),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 100,
		}
	}
	return candles
}

func risingCandles(n int, start, step float64) []domain.Candle {
	candles := make([]domain.Candle, n)
	for i := range candles {
		price := start + float64(i)*step
		candles[i] = domain.Candle{
			Time:   int64(i * 3600),
			Open:   price - step,
			High:   price + step/2,
			Low:    price - step,
			Close:  price,
			Volume: 100,
		}
	}
	return candles
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	sma, ok := usecase.SMA(values, 5)
	require.True(t, ok)
	assert.Equal(t, 3.0, sma)

	sma, ok = usecase.SMA(values, 2)
	require.True(t, ok)
	assert.Equal(t, 4.5, sma)

	_, ok = usecase.SMA(values, 6)
	assert.False(t, ok)
	_, ok = usecase.SMA(nil, 1)
	assert.False(t, ok)
}

func TestStdDev(t *testing.T) {
	// Sample stddev of 1..5: variance 2.5
	std, ok := usecase.StdDev([]float64{1, 2, 3, 4, 5}, 5)
	require.True(t, ok)
	assert.InDelta(t, 1.5811, std, 0.0001)

	std, ok = usecase.StdDev([]float64{7, 7, 7, 7}, 4)
	require.True(t, ok)
	assert.Equal(t, 0.0, std)
}

func TestEMASeries(t *testing.T) {
	// period 3 => alpha 0.5, seeded at the first value
	ema := usecase.EMASeries([]float64{2, 4, 4}, 3)
	require.Len(t, ema, 3)
	assert.Equal(t, 2.0, ema[0])
	assert.Equal(t, 3.0, ema[1])
	assert.Equal(t, 3.5, ema[2])

	assert.Nil(t, usecase.EMASeries(nil, 3))
}

func TestRSI(t *testing.T) {
	// Flat series has neither gains nor losses: neutral by definition.
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	rsi, ok := usecase.RSI(flat, 14)
	require.True(t, ok)
	assert.Equal(t, 50.0, rsi)

	// Monotonic rise has zero average loss.
	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	rsi, ok = usecase.RSI(rising, 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)

	// Monotonic fall.
	falling := make([]float64, 30)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	rsi, ok = usecase.RSI(falling, 14)
	require.True(t, ok)
	assert.Equal(t, 0.0, rsi)

	_, ok = usecase.RSI(flat[:14], 14)
	assert.False(t, ok, "needs period+1 closes")
}

func TestMACDHist(t *testing.T) {
	flat := make([]float64, 50)
	for i := range flat {
		flat[i] = 100
	}
	curr, prev, ok := usecase.MACDHist(flat, 12, 26, 9)
	require.True(t, ok)
	assert.Equal(t, 0.0, curr)
	assert.Equal(t, 0.0, prev)

	_, _, ok = usecase.MACDHist(flat[:34], 12, 26, 9)
	assert.False(t, ok, "needs slow+signal closes")

	// Rising series keeps the fast EMA above the slow one.
	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	curr, _, ok = usecase.MACDHist(rising, 12, 26, 9)
	require.True(t, ok)
	assert.Greater(t, curr, 0.0)
}

func TestATR(t *testing.T) {
	// Constant range of 2 per candle, no gaps: ATR is exactly 2.
	candles := make([]domain.Candle, 20)
	for i := range candles {
		candles[i] = domain.Candle{High: 101, Low: 99, Close: 100}
	}
	atr, ok := usecase.ATR(candles, 14)
	require.True(t, ok)
	assert.InDelta(t, 2.0, atr, 1e-9)

	_, ok = usecase.ATR(candles[:14], 14)
	assert.False(t, ok, "needs period+1 candles")

	// Fully flat candles have zero true range.
	atr, ok = usecase.ATR(flatCandles(20, 100), 14)
	require.True(t, ok)
	assert.Equal(t, 0.0, atr)
}

func TestPivots(t *testing.T) {
	values := []float64{1, 2, 3, 9, 3, 2, 1, 2, 3}

	highs := usecase.PivotHighs(values, 2)
	assert.Equal(t, []int{3}, highs)

	lows := usecase.PivotLows(values, 2)
	assert.Equal(t, []int{6}, lows)

	// Plateaus are not strict pivots.
	flat := []float64{5, 5, 5, 5, 5, 5, 5}
	assert.Empty(t, usecase.PivotHighs(flat, 2))
	assert.Empty(t, usecase.PivotLows(flat, 2))
}

package usecase

import (
	"math"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
)

// Closes extracts the close series from candles.
func Closes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// StdDev returns the sample standard deviation of the last period values.
func StdDev(values []float64, period int) (float64, bool) {
	mean, ok := SMA(values, period)
	if !ok || period < 2 {
		return 0, false
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period-1)), true
}

// EMASeries computes the exponential moving average over the full series,
// seeded at the first value, with alpha = 2/(period+1).
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes the Relative Strength Index with Wilder smoothing of the
// average gain/loss ratio. A series with neither gains nor losses is
// neutral (RSI 50).
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// MACDHist returns the last and previous MACD histogram values
// (EMA(fast) - EMA(slow), minus its EMA(signal) line).
func MACDHist(closes []float64, fast, slow, signal int) (curr, prev float64, ok bool) {
	if len(closes) < slow+signal {
		return 0, 0, false
	}
	emaFast := EMASeries(closes, fast)
	emaSlow := EMASeries(closes, slow)

	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	signalLine := EMASeries(macd, signal)

	n := len(closes)
	curr = macd[n-1] - signalLine[n-1]
	prev = macd[n-2] - signalLine[n-2]
	return curr, prev, true
}

// ATR computes the Average True Range with Wilder smoothing (RMA).
func ATR(candles []domain.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		h, l := candles[i].High, candles[i].Low
		prevClose := candles[i-1].Close
		tr := math.Max(h-l, math.Max(math.Abs(h-prevClose), math.Abs(l-prevClose)))
		trs = append(trs, tr)
	}

	var atr float64
	for _, tr := range trs[:period] {
		atr += tr
	}
	atr /= float64(period)

	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr, true
}

// PivotHighs returns indices of local highs: points strictly greater than
// every neighbor at offsets 1..window on both sides.
func PivotHighs(highs []float64, window int) []int {
	return pivots(highs, window, func(center, neighbor float64) bool {
		return center > neighbor
	})
}

// PivotLows returns indices of local lows, the mirror of PivotHighs.
func PivotLows(lows []float64, window int) []int {
	return pivots(lows, window, func(center, neighbor float64) bool {
		return center < neighbor
	})
}

func pivots(values []float64, window int, beats func(center, neighbor float64) bool) []int {
	var out []int
	for i := window; i < len(values)-window; i++ {
		isPivot := true
		for k := 1; k <= window; k++ {
			if !beats(values[i], values[i-k]) || !beats(values[i], values[i+k]) {
				isPivot = false
				break
			}
		}
		if isPivot {
			out = append(out, i)
		}
	}
	return out
}

package backtest_test

import (
	"testing"

	"github.com/dkovalev/crypto_score_bot/internal/backtest"
	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRunner(t *testing.T) *backtest.Runner {
	t.Helper()
	logger := zap.NewNop()
	scoring := usecase.NewScoringService([]string{"1h"}, logger)
	risk := usecase.NewRiskGate(domain.DefaultRiskParameters(), logger)
	return backtest.NewRunner(backtest.Config{
		Symbol:   "BTCUSDT",
		Interval: "1h",
	}, scoring, risk, logger)
}

func flatSeries(n int, price float64) []domain.Candle {
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

// A completely flat series carries no information; the replay must not
// invent trades out of it.
func TestRunner_FlatSeriesProducesNoTrades(t *testing.T) {
	runner := newRunner(t)

	report, err := runner.Run(flatSeries(100, 50000))
	require.NoError(t, err)

	assert.Equal(t, 0, report.TradeCount)
	assert.Empty(t, report.Trades)
	assert.Equal(t, report.InitialBalance, report.FinalBalance)
	assert.Equal(t, 0.0, report.TotalPnL)
}

func TestRunner_RejectsShortSeries(t *testing.T) {
	runner := newRunner(t)

	_, err := runner.Run(flatSeries(backtest.WarmupCandles, 100))
	assert.Error(t, err, "warmup consumes the whole series")
}

func TestRunner_EquityCurveCoversEveryEvaluatedCandle(t *testing.T) {
	runner := newRunner(t)
	candles := flatSeries(80, 100)

	report, err := runner.Run(candles)
	require.NoError(t, err)

	assert.Len(t, report.EquityCurve, len(candles)-backtest.WarmupCandles)
	for _, equity := range report.EquityCurve {
		assert.Equal(t, report.InitialBalance, equity)
	}
}

// Whatever the replay does, the ledger must reconcile: final balance is
// the initial balance plus the sum of realized trade PnL.
func TestRunner_LedgerReconciles(t *testing.T) {
	runner := newRunner(t)

	// A noisy but deterministic series that may or may not trade.
	candles := make([]domain.Candle, 200)
	price := 100.0
	for i := range candles {
		step := float64((i*7)%13-6) * 0.4
		price += step
		candles[i] = domain.Candle{
			Time:   int64(i * 3600),
			Open:   price - step,
			High:   price + 0.8,
			Low:    price - 0.8,
			Close:  price,
			Volume: 100,
		}
	}

	report, err := runner.Run(candles)
	require.NoError(t, err)

	var realized float64
	for _, trade := range report.Trades {
		realized += trade.PnL
	}
	assert.InDelta(t, report.InitialBalance+realized, report.FinalBalance, 1e-6)
	assert.InDelta(t, realized, report.TotalPnL, 1e-6)
	assert.Equal(t, report.TradeCount, len(report.Trades))
	assert.Equal(t, report.TradeCount, report.Wins+report.Losses+countFlats(report.Trades))
}

func countFlats(trades []backtest.Trade) int {
	n := 0
	for _, t := range trades {
		if t.PnL == 0 {
			n++
		}
	}
	return n
}

func TestRunner_DefaultsApplied(t *testing.T) {
	logger := zap.NewNop()
	scoring := usecase.NewScoringService([]string{"1h"}, logger)
	risk := usecase.NewRiskGate(domain.DefaultRiskParameters(), logger)
	runner := backtest.NewRunner(backtest.Config{Symbol: "BTCUSDT"}, scoring, risk, logger)

	report, err := runner.Run(flatSeries(50, 100))
	require.NoError(t, err)
	assert.Equal(t, 10000.0, report.InitialBalance)
}

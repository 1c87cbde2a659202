package backtest

import (
	"fmt"
	"time"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/usecase"
	"go.uber.org/zap"
)

// WarmupCandles is the number of candles consumed before the first
// evaluation. It covers the slowest indicator lookback.
const WarmupCandles = 21

// Trade is one closed trade in the replay ledger.
type Trade struct {
	Side       domain.Side `json:"side"`
	EntryTime  time.Time   `json:"entry_time"`
	ExitTime   time.Time   `json:"exit_time"`
	EntryPrice float64     `json:"entry_price"`
	ExitPrice  float64     `json:"exit_price"`
	Size       float64     `json:"size"`
	PnL        float64     `json:"pnl"`
	ReturnPct  float64     `json:"return_pct"`
	Balance    float64     `json:"balance"`
	Reason     string      `json:"reason"`
}

// Report is the aggregate result of one replay.
type Report struct {
	Symbol         string    `json:"symbol"`
	InitialBalance float64   `json:"initial_balance"`
	FinalBalance   float64   `json:"final_balance"`
	TotalPnL       float64   `json:"total_pnl"`
	TradeCount     int       `json:"trade_count"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	WinRate        float64   `json:"win_rate"`
	Trades         []Trade   `json:"trades"`
	EquityCurve    []float64 `json:"equity_curve"`
}

// Config controls one replay run.
type Config struct {
	Symbol         string
	Interval       string
	InitialBalance float64
	Warmup         int
}

func (c *Config) applyDefaults() {
	if c.Interval == "" {
		c.Interval = "1h"
	}
	if c.InitialBalance == 0 {
		c.InitialBalance = 10000
	}
	if c.Warmup == 0 {
		c.Warmup = WarmupCandles
	}
}

// Runner replays historical candles through the live scoring engine and
// risk gate. The replay is strictly in time order: each evaluation sees
// only candles closed at or before the current one.
type Runner struct {
	cfg     Config
	scoring *usecase.ScoringService
	risk    *usecase.RiskGate
	logger  *zap.Logger
}

func NewRunner(cfg Config, scoring *usecase.ScoringService, risk *usecase.RiskGate, logger *zap.Logger) *Runner {
	cfg.applyDefaults()
	return &Runner{cfg: cfg, scoring: scoring, risk: risk, logger: logger}
}

type openPosition struct {
	side       domain.Side
	entryPrice float64
	size       float64
	entryTime  time.Time
	signal     *domain.Signal
}

// Run replays candles and returns the report. At most one logical position
// is open at a time; it is closed on an opposite signal or at series end.
// Realized outcomes are fed back into the adaptive weights, so the weight
// table evolves over the replay exactly as it would live.
func (r *Runner) Run(candles []domain.Candle) (*Report, error) {
	if len(candles) <= r.cfg.Warmup {
		return nil, fmt.Errorf("need more than %d candles, got %d", r.cfg.Warmup, len(candles))
	}

	report := &Report{
		Symbol:         r.cfg.Symbol,
		InitialBalance: r.cfg.InitialBalance,
		FinalBalance:   r.cfg.InitialBalance,
	}
	balance := r.cfg.InitialBalance
	var open *openPosition

	for i := r.cfg.Warmup; i < len(candles); i++ {
		window := candles[:i+1]
		current := window[len(window)-1]

		mktCtx := domain.MarketContext{
			Symbol:  r.cfg.Symbol,
			Candles: window,
			MTFCandles: map[string][]domain.Candle{
				r.cfg.Interval: window,
			},
		}
		signal := r.scoring.Evaluate(mktCtx)

		if open != nil && opposes(open.side, signal.Action) {
			balance = r.closeTrade(report, open, current, balance, "opposite signal")
			open = nil
		}

		if open == nil && signal.Action != domain.ActionNeutral {
			open = r.tryOpen(signal, current, balance)
		}

		report.EquityCurve = append(report.EquityCurve, equity(balance, open, current.Close))
	}

	if open != nil {
		last := candles[len(candles)-1]
		balance = r.closeTrade(report, open, last, balance, "series end")
	}

	report.FinalBalance = balance
	report.TotalPnL = balance - report.InitialBalance
	if report.TradeCount > 0 {
		report.WinRate = float64(report.Wins) / float64(report.TradeCount)
	}

	r.logger.Info("Backtest finished",
		zap.String("symbol", r.cfg.Symbol),
		zap.Int("candles", len(candles)),
		zap.Int("trades", report.TradeCount),
		zap.Float64("total_pnl", report.TotalPnL),
		zap.Float64("win_rate", report.WinRate))

	return report, nil
}

func (r *Runner) tryOpen(signal *domain.Signal, current domain.Candle, balance float64) *openPosition {
	atr, ok := atrFromSignal(signal)
	if !ok || atr <= 0 {
		return nil
	}

	side := domain.SideLong
	if signal.Action.IsShort() {
		side = domain.SideShort
	}

	levels := r.risk.CalculateRiskLevels(current.Close, atr, side)
	size := r.risk.CalculatePositionSize(balance, current.Close, levels.StopLoss)
	if !signal.Action.IsStrong() {
		size /= 2
	}
	if size <= 0 {
		return nil
	}

	allowed, reason := r.risk.ValidateOrder(usecase.OrderCheck{
		NotionalUSD: size * current.Close,
		Price:       current.Close,
		ATR:         atr,
	})
	if !allowed {
		r.logger.Debug("Replay order rejected", zap.String("reason", reason))
		return nil
	}

	return &openPosition{
		side:       side,
		entryPrice: current.Close,
		size:       size,
		entryTime:  time.Unix(current.Time, 0),
		signal:     signal,
	}
}

func (r *Runner) closeTrade(report *Report, open *openPosition, current domain.Candle, balance float64, reason string) float64 {
	exitPrice := current.Close
	var pnl float64
	if open.side == domain.SideLong {
		pnl = (exitPrice - open.entryPrice) * open.size
	} else {
		pnl = (open.entryPrice - exitPrice) * open.size
	}
	balance += pnl

	trade := Trade{
		Side:       open.side,
		EntryTime:  open.entryTime,
		ExitTime:   time.Unix(current.Time, 0),
		EntryPrice: open.entryPrice,
		ExitPrice:  exitPrice,
		Size:       open.size,
		PnL:        pnl,
		Balance:    balance,
		Reason:     reason,
	}
	if notional := open.entryPrice * open.size; notional > 0 {
		trade.ReturnPct = pnl / notional * 100
	}
	report.Trades = append(report.Trades, trade)
	report.TradeCount++
	if pnl > 0 {
		report.Wins++
	} else if pnl < 0 {
		report.Losses++
	}

	// Same feedback loop as live trading: reward components whose opinion
	// matched the realized direction of the entry signal.
	if pnl != 0 {
		outcome := 1.0
		if pnl < 0 {
			outcome = -1.0
		}
		if open.side == domain.SideShort {
			outcome = -outcome
		}
		r.scoring.UpdateWeights(open.signal.Components, outcome)
	}

	return balance
}

func opposes(side domain.Side, action domain.Action) bool {
	if side == domain.SideLong {
		return action.IsShort()
	}
	return action.IsLong()
}

func equity(balance float64, open *openPosition, price float64) float64 {
	if open == nil {
		return balance
	}
	if open.side == domain.SideLong {
		return balance + (price-open.entryPrice)*open.size
	}
	return balance + (open.entryPrice-price)*open.size
}

func atrFromSignal(signal *domain.Signal) (float64, bool) {
	result, ok := signal.Components["technical_atr"]
	if !ok || result.Metadata == nil {
		return 0, false
	}
	value, ok := result.Metadata["value"].(float64)
	return value, ok
}

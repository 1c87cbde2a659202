package usecase

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"go.uber.org/zap"
)

// DaemonConfig carries the loop and throttling settings.
type DaemonConfig struct {
	Symbol           string
	Interval         string
	Timeframes       []string
	HistoryLimit     int
	PollInterval     time.Duration
	CooldownWindow   time.Duration
	ReversalWindow   time.Duration
	MaxSameDirection int
	SyncEveryTicks   int
	ErrorBackoff     time.Duration
	Balance          float64
	Simulated        bool
}

func (c *DaemonConfig) applyDefaults() {
	if c.Interval == "" {
		c.Interval = "1h"
	}
	if len(c.Timeframes) == 0 {
		c.Timeframes = []string{"1h", "4h", "1d"}
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 100
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.CooldownWindow == 0 {
		c.CooldownWindow = 5 * time.Minute
	}
	if c.ReversalWindow == 0 {
		c.ReversalWindow = 30 * time.Minute
	}
	if c.MaxSameDirection == 0 {
		c.MaxSameDirection = 3
	}
	if c.SyncEveryTicks == 0 {
		c.SyncEveryTicks = 30
	}
	if c.ErrorBackoff == 0 {
		c.ErrorBackoff = 5 * time.Second
	}
	if c.Balance == 0 {
		c.Balance = 10000
	}
}

// Daemon is the command-driven trading state machine. A single cooperative
// loop owns the open-position set and all trading state; external readers
// get eventually-consistent snapshots.
type Daemon struct {
	cfg      DaemonConfig
	exchange domain.Exchange
	scoring  *ScoringService
	risk     *RiskGate
	commands domain.CommandSource
	status   domain.StatusSink
	trades   domain.TradeRepository
	weights  domain.WeightRepository
	logger   *zap.Logger

	mu           sync.RWMutex
	state        domain.DaemonState
	positions    []*domain.Position
	entrySignals map[string]*domain.Signal
	lastSignal   *domain.Signal
	lastPrice    float64

	lastTradeTime time.Time
	lastTradeSide domain.Side
	lastCommand   string
	lastError     string
	totalPnL      float64
	shutdown      bool
	tickCount     int

	timeNow func() time.Time // for testing
}

func NewDaemon(
	cfg DaemonConfig,
	exchange domain.Exchange,
	scoring *ScoringService,
	risk *RiskGate,
	commands domain.CommandSource,
	status domain.StatusSink,
	trades domain.TradeRepository,
	weights domain.WeightRepository,
	logger *zap.Logger,
) *Daemon {
	cfg.applyDefaults()
	return &Daemon{
		cfg:          cfg,
		exchange:     exchange,
		scoring:      scoring,
		risk:         risk,
		commands:     commands,
		status:       status,
		trades:       trades,
		weights:      weights,
		logger:       logger,
		state:        domain.StateIdle,
		entrySignals: make(map[string]*domain.Signal),
		timeNow:      time.Now,
	}
}

// Run drives the cooperative loop until ctx is cancelled or a SHUTDOWN
// command is consumed. A final status snapshot is written on the way out.
func (d *Daemon) Run(ctx context.Context) {
	d.logger.Info("Daemon starting",
		zap.Int("pid", os.Getpid()),
		zap.String("symbol", d.cfg.Symbol),
		zap.Strings("timeframes", d.cfg.Timeframes),
		zap.Bool("simulated", d.cfg.Simulated))

	for {
		sleep := d.cfg.PollInterval
		if err := d.Tick(ctx); err != nil {
			// A single bad tick must never terminate the loop.
			d.logger.Error("Tick failed, backing off", zap.Error(err))
			sleep = d.cfg.ErrorBackoff
		}

		if d.isShutdown() {
			break
		}

		select {
		case <-ctx.Done():
			d.logger.Info("Context cancelled, shutting down")
			d.publishStatus()
			return
		case <-time.After(sleep):
		}
	}

	d.publishStatus()
	d.logger.Info("Daemon shut down")
}

// Tick executes exactly one loop iteration: consume at most one command,
// sync positions on the slower cadence, publish status, and evaluate the
// market when RUNNING. Panics are contained and surfaced as errors.
func (d *Daemon) Tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
			d.setLastError(err.Error())
		}
	}()

	d.mu.Lock()
	d.tickCount++
	tick := d.tickCount
	d.mu.Unlock()

	if cmd, ok := d.commands.Next(); ok {
		d.handleCommand(ctx, cmd)
	}

	// Position sync runs on a slower cadence than the command check to
	// bound the external call rate.
	if tick%d.cfg.SyncEveryTicks == 0 {
		d.syncPositions(ctx)
	}

	d.publishStatus()

	if d.State() == domain.StateRunning && !d.isShutdown() {
		d.evaluate(ctx)
	}
	return nil
}

// State returns the current lifecycle state.
func (d *Daemon) State() domain.DaemonState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Positions returns a snapshot of the open positions.
func (d *Daemon) Positions() []*domain.Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*domain.Position, len(d.positions))
	for i, p := range d.positions {
		cp := *p
		out[i] = &cp
	}
	return out
}

// LastSignal returns the most recent scoring result, or nil before the
// first evaluation.
func (d *Daemon) LastSignal() *domain.Signal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastSignal
}

// Status builds the external-facing snapshot.
func (d *Daemon) Status() *domain.DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return &domain.DaemonStatus{
		PID:            os.Getpid(),
		State:          d.state,
		LastUpdate:     d.timeNow(),
		SimulationMode: d.cfg.Simulated,
		PositionCount:  len(d.positions),
		LastCommand:    d.lastCommand,
		LastError:      d.lastError,
		PollIntervalMs: d.cfg.PollInterval.Milliseconds(),
		TotalPnL:       d.totalPnL,
		Symbol:         d.cfg.Symbol,
	}
}

func (d *Daemon) isShutdown() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.shutdown
}

func (d *Daemon) setLastError(msg string) {
	d.mu.Lock()
	d.lastError = msg
	d.mu.Unlock()
}

func (d *Daemon) handleCommand(ctx context.Context, cmd *domain.Command) {
	d.mu.Lock()
	d.lastCommand = string(cmd.Action)
	d.mu.Unlock()

	d.logger.Info("Command received",
		zap.String("action", string(cmd.Action)),
		zap.String("pair", cmd.Pair))

	switch cmd.Action {
	case domain.CmdStart:
		d.setState(domain.StateRunning)
	case domain.CmdStop:
		d.setState(domain.StateIdle)
	case domain.CmdPause:
		d.setState(domain.StatePaused)
	case domain.CmdShutdown:
		d.mu.Lock()
		d.shutdown = true
		d.mu.Unlock()
	case domain.CmdCloseAll:
		// Flatten regardless of running state.
		d.closeAll(ctx, "close_all command")
	case domain.CmdClose:
		if err := d.closeSymbol(ctx, cmd.Pair, "close command"); err != nil {
			d.logger.Error("Close failed", zap.String("symbol", cmd.Pair), zap.Error(err))
			d.setLastError(err.Error())
		}
	case domain.CmdSync:
		d.syncPositions(ctx)
	case domain.CmdHealthCheck:
		d.publishStatus()
	case domain.CmdBuy, domain.CmdSell:
		if d.State() != domain.StateRunning {
			d.logger.Warn("Trade command dropped, daemon not running",
				zap.String("action", string(cmd.Action)),
				zap.String("state", string(d.State())))
			return
		}
		d.openFromCommand(ctx, cmd)
	}
}

func (d *Daemon) setState(state domain.DaemonState) {
	d.mu.Lock()
	prev := d.state
	d.state = state
	d.mu.Unlock()
	if prev != state {
		d.logger.Info("State changed",
			zap.String("from", string(prev)),
			zap.String("to", string(state)))
	}
}

func (d *Daemon) syncPositions(ctx context.Context) {
	positions, err := d.exchange.GetPositions(ctx, d.cfg.Symbol)
	if err != nil {
		// Transient by policy: skip this sync, keep the loop alive.
		d.logger.Warn("Position sync failed", zap.Error(err))
		d.setLastError(err.Error())
		return
	}

	d.mu.Lock()
	d.positions = positions
	d.mu.Unlock()

	if err := d.status.WritePositions(positions); err != nil {
		d.logger.Warn("Position snapshot write failed", zap.Error(err))
	}
}

func (d *Daemon) publishStatus() {
	if err := d.status.WriteStatus(d.Status()); err != nil {
		d.logger.Warn("Status snapshot write failed", zap.Error(err))
	}
}

// evaluate runs one scoring pass and, when the signal is actionable,
// attempts a gated position open.
func (d *Daemon) evaluate(ctx context.Context) {
	mktCtx, ok := d.buildContext(ctx)
	if !ok {
		return
	}

	signal := d.scoring.Evaluate(mktCtx)

	d.mu.Lock()
	d.lastSignal = signal
	if n := len(mktCtx.Candles); n > 0 {
		d.lastPrice = mktCtx.Candles[n-1].Close
	}
	d.mu.Unlock()

	if signal.Action == domain.ActionNeutral {
		return
	}

	d.logger.Info("Actionable signal",
		zap.String("action", string(signal.Action)),
		zap.Float64("score", signal.AggregatedScore))

	side := domain.SideLong
	if signal.Action.IsShort() {
		side = domain.SideShort
	}
	d.tryOpen(ctx, side, signal.Action.IsStrong(), signal)
}

// openFromCommand handles an external BUY/SELL while RUNNING. The command
// score decides full versus half sizing through the classifier.
func (d *Daemon) openFromCommand(ctx context.Context, cmd *domain.Command) {
	symbol := cmd.Pair
	if symbol == "" {
		symbol = d.cfg.Symbol
	}
	if symbol != d.cfg.Symbol {
		d.logger.Warn("Trade command for unmanaged symbol dropped", zap.String("pair", symbol))
		return
	}

	mktCtx, ok := d.buildContext(ctx)
	if !ok {
		return
	}
	signal := d.scoring.Evaluate(mktCtx)

	d.mu.Lock()
	d.lastSignal = signal
	if n := len(mktCtx.Candles); n > 0 {
		d.lastPrice = mktCtx.Candles[n-1].Close
	}
	d.mu.Unlock()

	side := domain.SideLong
	if cmd.Action == domain.CmdSell {
		side = domain.SideShort
	}
	strong := cmd.Action == domain.CmdBuy && d.classifyStrong(cmd.Score) ||
		cmd.Action == domain.CmdSell && d.classifyStrong(-math.Abs(cmd.Score))

	d.tryOpen(ctx, side, strong, signal)
}

func (d *Daemon) classifyStrong(score float64) bool {
	action := d.scoring.classifier.Classify(score)
	return action.IsStrong()
}

func (d *Daemon) buildContext(ctx context.Context) (domain.MarketContext, bool) {
	candles, err := d.exchange.FetchHistory(ctx, d.cfg.Symbol, d.cfg.Interval, d.cfg.HistoryLimit)
	if err != nil {
		d.logger.Warn("History fetch failed, skipping tick step", zap.Error(err))
		d.setLastError(err.Error())
		return domain.MarketContext{}, false
	}
	if len(candles) == 0 {
		d.logger.Warn("No candle data received")
		return domain.MarketContext{}, false
	}

	mktCtx := domain.MarketContext{
		Symbol:     d.cfg.Symbol,
		Candles:    candles,
		MTFCandles: map[string][]domain.Candle{d.cfg.Interval: candles},
	}

	// Orderbook and extra timeframes are best effort; components degrade
	// to zero confidence when absent.
	if ob, err := d.exchange.FetchOrderBook(ctx, d.cfg.Symbol); err == nil {
		mktCtx.OrderBook = ob
	} else {
		d.logger.Debug("Orderbook fetch failed", zap.Error(err))
	}

	for _, tf := range d.cfg.Timeframes {
		if tf == d.cfg.Interval {
			continue
		}
		tfCandles, err := d.exchange.FetchHistory(ctx, d.cfg.Symbol, tf, d.cfg.HistoryLimit)
		if err != nil {
			d.logger.Debug("MTF fetch failed", zap.String("timeframe", tf), zap.Error(err))
			continue
		}
		mktCtx.MTFCandles[tf] = tfCandles
	}

	return mktCtx, true
}

// tryOpen runs the full gated open flow: throttles, risk gate, levels,
// sizing, submission. On any rejection or failure no state is mutated.
func (d *Daemon) tryOpen(ctx context.Context, side domain.Side, strong bool, signal *domain.Signal) {
	now := d.timeNow()

	d.mu.RLock()
	lastTrade := d.lastTradeTime
	lastSide := d.lastTradeSide
	sameDir, oppositeOpen := 0, false
	for _, p := range d.positions {
		if p.Symbol != d.cfg.Symbol {
			continue
		}
		if p.Side == side {
			sameDir++
		} else {
			oppositeOpen = true
		}
	}
	openCount := len(d.positions)
	price := d.lastPrice
	d.mu.RUnlock()

	if !lastTrade.IsZero() && now.Sub(lastTrade) < d.cfg.CooldownWindow {
		d.logger.Info("Trade blocked by cooldown",
			zap.Duration("since_last", now.Sub(lastTrade)),
			zap.Duration("cooldown", d.cfg.CooldownWindow))
		return
	}

	// Reversal guard: direction flips stay blocked after cooldown until
	// the longer reversal window has passed.
	if lastSide != "" && side != lastSide && !lastTrade.IsZero() &&
		now.Sub(lastTrade) < d.cfg.ReversalWindow {
		d.logger.Info("Trade blocked by reversal guard",
			zap.String("last_side", string(lastSide)),
			zap.String("side", string(side)))
		return
	}

	if oppositeOpen {
		d.logger.Info("Trade blocked, opposite direction open",
			zap.String("symbol", d.cfg.Symbol),
			zap.String("side", string(side)))
		return
	}
	if sameDir >= d.cfg.MaxSameDirection {
		d.logger.Info("Trade blocked, direction cap reached",
			zap.Int("open", sameDir),
			zap.Int("cap", d.cfg.MaxSameDirection))
		return
	}

	if price <= 0 {
		d.logger.Warn("No current price available, dropping signal")
		return
	}
	atr, ok := atrFromSignal(signal)
	if !ok || atr <= 0 {
		d.logger.Warn("No ATR available, dropping signal")
		return
	}

	levels := d.risk.CalculateRiskLevels(price, atr, side)
	qty := d.risk.CalculatePositionSize(d.cfg.Balance, price, levels.StopLoss)
	if !strong {
		qty /= 2 // half size unless the signal is STRONG
	}
	if qty <= 0 {
		d.logger.Warn("Position size computed as zero, dropping signal")
		return
	}

	check := OrderCheck{
		NotionalUSD: qty * price,
		Price:       price,
		ATR:         atr,
		OpenTrades:  openCount,
	}
	if ticker, err := d.exchange.FetchTicker(ctx, d.cfg.Symbol); err == nil {
		check.Volume24h = ticker.Turnover24h
	}
	if liq, ok := liquidityFromSignal(signal); ok {
		check.Liquidity = liq
	}

	allowed, reason := d.risk.ValidateOrder(check)
	if !allowed {
		d.logger.Info("Order rejected by risk gate", zap.String("reason", reason))
		return
	}

	req := &domain.OrderRequest{
		Symbol:      d.cfg.Symbol,
		Side:        side,
		Qty:         qty,
		StopLoss:    levels.StopLoss,
		TakeProfits: levels.TakeProfits,
		Leverage:    d.risk.Params().Leverage,
	}
	result, err := d.exchange.PlaceOrder(ctx, req)
	if err != nil {
		// No partial mutation: log and leave all trading state unchanged.
		d.logger.Error("Order placement failed", zap.Error(err))
		d.setLastError(err.Error())
		return
	}

	position := &domain.Position{
		Symbol:      d.cfg.Symbol,
		Side:        side,
		EntryPrice:  price,
		Size:        qty,
		StopLoss:    levels.StopLoss,
		TakeProfits: levels.TakeProfits,
		OpenedAt:    now,
		Simulated:   d.cfg.Simulated,
	}

	d.mu.Lock()
	d.positions = append(d.positions, position)
	d.entrySignals[d.cfg.Symbol] = signal
	d.lastTradeTime = now
	d.lastTradeSide = side
	d.mu.Unlock()

	d.logger.Info("Position opened",
		zap.String("symbol", d.cfg.Symbol),
		zap.String("side", string(side)),
		zap.Float64("qty", qty),
		zap.Float64("entry", price),
		zap.Float64("stop_loss", levels.StopLoss),
		zap.Bool("strong", strong),
		zap.String("order_id", result.OrderID))

	if err := d.trades.SaveTrade(ctx, &domain.Order{
		ID:        result.OrderID,
		Symbol:    d.cfg.Symbol,
		Side:      side,
		Size:      qty,
		Price:     price,
		Simulated: d.cfg.Simulated,
		CreatedAt: now,
	}); err != nil {
		d.logger.Warn("Trade record save failed", zap.Error(err))
	}
}

func (d *Daemon) closeAll(ctx context.Context, reason string) {
	symbols := make(map[string]bool)
	d.mu.RLock()
	for _, p := range d.positions {
		symbols[p.Symbol] = true
	}
	d.mu.RUnlock()

	for symbol := range symbols {
		if err := d.closeSymbol(ctx, symbol, reason); err != nil {
			d.logger.Error("Close failed", zap.String("symbol", symbol), zap.Error(err))
			d.setLastError(err.Error())
		}
	}
}

// closeSymbol flattens all positions on symbol, records realized PnL and
// feeds the outcome direction back into the adaptive weights.
func (d *Daemon) closeSymbol(ctx context.Context, symbol, reason string) error {
	d.mu.RLock()
	var closing []*domain.Position
	for _, p := range d.positions {
		if p.Symbol == symbol {
			closing = append(closing, p)
		}
	}
	price := d.lastPrice
	entrySignal := d.entrySignals[symbol]
	d.mu.RUnlock()

	if len(closing) == 0 {
		return nil
	}

	if ticker, err := d.exchange.FetchTicker(ctx, symbol); err == nil && ticker.LastPrice > 0 {
		price = ticker.LastPrice
	}

	if err := d.exchange.ClosePosition(ctx, symbol); err != nil {
		return fmt.Errorf("close %s: %w", symbol, err)
	}

	now := d.timeNow()
	var realized float64
	for _, p := range closing {
		var pnl float64
		if p.Side == domain.SideLong {
			pnl = (price - p.EntryPrice) * p.Size
		} else {
			pnl = (p.EntryPrice - price) * p.Size
		}
		realized += pnl

		if err := d.trades.SavePositionHistory(ctx, &domain.PositionHistory{
			Symbol:      p.Symbol,
			Side:        p.Side,
			Size:        p.Size,
			EntryPrice:  p.EntryPrice,
			ExitPrice:   price,
			RealizedPnL: pnl,
			Reason:      reason,
			Simulated:   p.Simulated,
			ClosedAt:    now,
		}); err != nil {
			d.logger.Warn("Position history save failed", zap.Error(err))
		}
	}

	d.mu.Lock()
	remaining := d.positions[:0]
	for _, p := range d.positions {
		if p.Symbol != symbol {
			remaining = append(remaining, p)
		}
	}
	d.positions = remaining
	delete(d.entrySignals, symbol)
	d.totalPnL += realized
	d.mu.Unlock()

	d.logger.Info("Position closed",
		zap.String("symbol", symbol),
		zap.String("reason", reason),
		zap.Float64("exit", price),
		zap.Float64("realized_pnl", realized))

	// Reward the components that called the realized direction.
	if entrySignal != nil && realized != 0 {
		outcome := 1.0
		if realized < 0 {
			outcome = -1.0
		}
		// Outcome is relative to the entry direction: a losing short means
		// price went up.
		if closing[0].Side == domain.SideShort {
			outcome = -outcome
		}
		d.scoring.UpdateWeights(entrySignal.Components, outcome)
		if err := d.weights.SaveWeights(ctx, d.scoring.Weights()); err != nil {
			d.logger.Warn("Weight snapshot save failed", zap.Error(err))
		}
	}

	return nil
}

func atrFromSignal(signal *domain.Signal) (float64, bool) {
	return metadataFloat(signal, "technical_atr", "value")
}

func liquidityFromSignal(signal *domain.Signal) (float64, bool) {
	return metadataFloat(signal, "ob_liquidity", "liquidity")
}

func metadataFloat(signal *domain.Signal, component, key string) (float64, bool) {
	if signal == nil {
		return 0, false
	}
	result, ok := signal.Components[component]
	if !ok || result.Metadata == nil {
		return 0, false
	}
	value, ok := result.Metadata[key].(float64)
	return value, ok
}

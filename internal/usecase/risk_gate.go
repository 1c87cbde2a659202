package usecase

import (
	"fmt"
	"sync"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"go.uber.org/zap"
)

// OrderCheck is the market context the risk gate validates a proposed
// order against.
type OrderCheck struct {
	NotionalUSD float64
	Price       float64
	ATR         float64
	Volume24h   float64 // quote volume over the last 24h
	Liquidity   float64 // top-of-book depth volume
	OpenTrades  int
}

// RiskGate validates proposed orders against size, liquidity, volatility
// and concurrency limits, and derives exit levels and position size.
// Limits are runtime-tunable without restart.
type RiskGate struct {
	mu     sync.RWMutex
	params domain.RiskParameters
	logger *zap.Logger
}

func NewRiskGate(params domain.RiskParameters, logger *zap.Logger) *RiskGate {
	return &RiskGate{params: params, logger: logger}
}

// Params returns a copy of the current limits.
func (g *RiskGate) Params() domain.RiskParameters {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.params
}

// UpdateParams replaces the limits at runtime.
func (g *RiskGate) UpdateParams(params domain.RiskParameters) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.params = params
	g.logger.Info("Risk parameters updated",
		zap.Float64("max_position_size_usd", params.MaxPositionSizeUSD),
		zap.Float64("max_risk_pct", params.MaxRiskPct),
		zap.Int("max_concurrent_trades", params.MaxConcurrentTrades))
}

// ValidateOrder checks a proposed order against the limits. A rejection is
// not a fault: it returns allowed=false with the reason, and the caller
// drops the signal without retrying.
func (g *RiskGate) ValidateOrder(check OrderCheck) (bool, string) {
	g.mu.RLock()
	params := g.params
	g.mu.RUnlock()

	// Relative tolerance absorbs rounding when the size was derived from
	// the cap itself.
	if check.NotionalUSD > params.MaxPositionSizeUSD*(1+1e-9) {
		return false, fmt.Sprintf("order notional %.2f exceeds max position size %.2f USD",
			check.NotionalUSD, params.MaxPositionSizeUSD)
	}

	// Liquidity sanity: never be more than 1% of the day's traded volume.
	if check.Volume24h > 0 && check.NotionalUSD > check.Volume24h*0.01 {
		return false, fmt.Sprintf("order notional %.2f exceeds 1%% of 24h volume %.2f",
			check.NotionalUSD, check.Volume24h)
	}

	if check.Price > 0 && check.ATR > 0 {
		volatilityPct := check.ATR / check.Price * 100
		if volatilityPct > params.MaxVolatilityPct {
			return false, fmt.Sprintf("volatility %.2f%% exceeds max %.2f%%",
				volatilityPct, params.MaxVolatilityPct)
		}
	}

	if params.MaxConcurrentTrades > 0 && check.OpenTrades >= params.MaxConcurrentTrades {
		return false, fmt.Sprintf("open trades %d at max concurrent limit %d",
			check.OpenTrades, params.MaxConcurrentTrades)
	}

	if params.MinLiquidity > 0 && check.Liquidity > 0 && check.Liquidity < params.MinLiquidity {
		return false, fmt.Sprintf("orderbook liquidity %.2f below minimum %.2f",
			check.Liquidity, params.MinLiquidity)
	}

	return true, "OK"
}

// CalculateRiskLevels derives the stop loss and the ordered take-profit
// tiers for an entry from the current ATR.
func (g *RiskGate) CalculateRiskLevels(entry, atr float64, side domain.Side) domain.RiskLevels {
	g.mu.RLock()
	params := g.params
	g.mu.RUnlock()

	slDistance := atr * params.SLMultiplier
	levels := domain.RiskLevels{
		TakeProfits: make([]float64, 0, len(params.TPMultipliers)),
	}

	if side == domain.SideLong {
		levels.StopLoss = entry - slDistance
		for _, m := range params.TPMultipliers {
			levels.TakeProfits = append(levels.TakeProfits, entry+slDistance*m)
		}
	} else {
		levels.StopLoss = entry + slDistance
		for _, m := range params.TPMultipliers {
			levels.TakeProfits = append(levels.TakeProfits, entry-slDistance*m)
		}
	}
	return levels
}

// CalculatePositionSize sizes a position so that the distance to the stop
// risks at most MaxRiskPct of the balance, capped by MaxPositionSizeUSD.
func (g *RiskGate) CalculatePositionSize(balance, entry, stopLoss float64) float64 {
	g.mu.RLock()
	params := g.params
	g.mu.RUnlock()

	distance := entry - stopLoss
	if distance < 0 {
		distance = -distance
	}
	if distance == 0 || entry <= 0 {
		return 0
	}

	riskAmount := balance * params.MaxRiskPct
	qty := riskAmount / distance

	if qty*entry > params.MaxPositionSizeUSD {
		qty = params.MaxPositionSizeUSD / entry
	}
	return qty
}

package domain

// RiskParameters are the runtime-tunable limits applied by the risk gate.
// All fields can be changed without a restart.
type RiskParameters struct {
	MaxPositionSizeUSD  float64   `json:"max_position_size_usd" yaml:"max_position_size_usd"`
	MaxRiskPct          float64   `json:"max_risk_pct" yaml:"max_risk_pct"`
	Leverage            int       `json:"leverage" yaml:"leverage"`
	TPMultipliers       []float64 `json:"tp_multipliers" yaml:"tp_multipliers"`
	SLMultiplier        float64   `json:"sl_multiplier" yaml:"sl_multiplier"`
	MaxConcurrentTrades int       `json:"max_concurrent_trades" yaml:"max_concurrent_trades"`
	MaxVolatilityPct    float64   `json:"max_volatility_pct" yaml:"max_volatility_pct"`
	MinLiquidity        float64   `json:"min_liquidity" yaml:"min_liquidity"`
}

// DefaultRiskParameters returns the limits used when the config omits them.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		MaxPositionSizeUSD:  1000.0,
		MaxRiskPct:          0.01,
		Leverage:            1,
		TPMultipliers:       []float64{1.5, 3.0},
		SLMultiplier:        2.0,
		MaxConcurrentTrades: 5,
		MaxVolatilityPct:    5.0,
		MinLiquidity:        10000.0,
	}
}

// RiskLevels are the derived exit levels for a proposed entry.
type RiskLevels struct {
	StopLoss    float64   `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profits"`
}

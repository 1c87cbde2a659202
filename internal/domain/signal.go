package domain

import "time"

// Action is the discrete decision a Signal maps to.
type Action string

const (
	ActionNeutral    Action = "NEUTRAL"
	ActionBuy        Action = "BUY"
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionSell       Action = "SELL"
	ActionStrongSell Action = "STRONG_SELL"
)

// IsLong reports whether the action opens long exposure.
func (a Action) IsLong() bool { return a == ActionBuy || a == ActionStrongBuy }

// IsShort reports whether the action opens short exposure.
func (a Action) IsShort() bool { return a == ActionSell || a == ActionStrongSell }

// IsStrong reports whether the action warrants full position sizing.
func (a Action) IsStrong() bool { return a == ActionStrongBuy || a == ActionStrongSell }

// ComponentScore is one component's opinion.
//
// Score uses the canonical signed domain [-1, 1] where 0 is neutral,
// +1 maximally bullish and -1 maximally bearish. Confidence is [0, 1];
// a component that cannot form an opinion returns Confidence 0 with an
// "error" note in Metadata instead of failing.
type ComponentScore struct {
	Score      float64        `json:"score"`
	Confidence float64        `json:"confidence"`
	Category   string         `json:"category"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Signal is the immutable result of one scoring evaluation.
type Signal struct {
	AggregatedScore float64                   `json:"aggregated_score"`
	Action          Action                    `json:"action"`
	Components      map[string]ComponentScore `json:"components"`
	Weights         map[string]float64        `json:"weights"`
	Time            time.Time                 `json:"time"`
}

// SentimentSample is an externally supplied, normalized sentiment reading.
type SentimentSample struct {
	Score  float64 `json:"score"` // [-1, 1]
	Source string  `json:"source"`
}

// MarketContext carries the market data a scoring component may consume.
// Fields are optional; components degrade to zero confidence when the
// data they need is absent.
type MarketContext struct {
	Symbol     string
	Candles    []Candle
	OrderBook  *OrderBook
	Sentiment  *SentimentSample
	MTFCandles map[string][]Candle
}

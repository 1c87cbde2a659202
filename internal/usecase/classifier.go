package usecase

import (
	"sync"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
)

// Classifier thresholds for the canonical [-1, 1] score domain. These are
// the signed-domain equivalents of the legacy 0.6/0.4 convention.
const (
	DefaultLongThreshold  = 0.2
	DefaultShortThreshold = -0.2
	DefaultStrongMargin   = 0.2
)

// SignalClassifier maps an aggregated score to a discrete action via two
// independent, runtime-adjustable thresholds.
type SignalClassifier struct {
	mu             sync.RWMutex
	longThreshold  float64
	shortThreshold float64
	strongMargin   float64
}

func NewSignalClassifier() *SignalClassifier {
	return &SignalClassifier{
		longThreshold:  DefaultLongThreshold,
		shortThreshold: DefaultShortThreshold,
		strongMargin:   DefaultStrongMargin,
	}
}

// Classify maps score to an action. Scores between the thresholds are
// NEUTRAL; beyond a threshold by more than the strong margin the action
// escalates to its STRONG variant.
func (c *SignalClassifier) Classify(score float64) domain.Action {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case score >= c.longThreshold+c.strongMargin:
		return domain.ActionStrongBuy
	case score >= c.longThreshold:
		return domain.ActionBuy
	case score <= c.shortThreshold-c.strongMargin:
		return domain.ActionStrongSell
	case score <= c.shortThreshold:
		return domain.ActionSell
	default:
		return domain.ActionNeutral
	}
}

// SetThresholds updates the classification parameters at runtime.
func (c *SignalClassifier) SetThresholds(long, short, strongMargin float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.longThreshold = long
	c.shortThreshold = short
	c.strongMargin = strongMargin
}

// Thresholds returns the current parameters.
func (c *SignalClassifier) Thresholds() (long, short, strongMargin float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.longThreshold, c.shortThreshold, c.strongMargin
}

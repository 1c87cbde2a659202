package usecase

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"go.uber.org/zap"
)

const (
	// WeightMin and WeightMax bound every component weight at all times.
	WeightMin = 0.1
	WeightMax = 10.0

	// neutralEpsilon separates "had an opinion" from near-neutral scores
	// during adaptive updates.
	neutralEpsilon = 0.02

	defaultLearningRate = 0.05
)

// CompositeScoreEngine aggregates registered component opinions into one
// directional score in [-1, 1] and adapts component weights from realized
// outcomes.
type CompositeScoreEngine struct {
	mu           sync.RWMutex
	order        []string
	components   map[string]ScoringComponent
	weights      map[string]float64
	learningRate float64
	logger       *zap.Logger
}

func NewCompositeScoreEngine(logger *zap.Logger) *CompositeScoreEngine {
	return &CompositeScoreEngine{
		components:   make(map[string]ScoringComponent),
		weights:      make(map[string]float64),
		learningRate: defaultLearningRate,
		logger:       logger,
	}
}

// RegisterComponent stores the component under its name. Registering the
// same name twice replaces the component but keeps registration order.
func (e *CompositeScoreEngine) RegisterComponent(c ScoringComponent, initialWeight float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.components[c.Name()]; !exists {
		e.order = append(e.order, c.Name())
	}
	e.components[c.Name()] = c
	e.weights[c.Name()] = clampWeight(initialWeight)
	e.logger.Info("Registered scoring component",
		zap.String("component", c.Name()),
		zap.Float64("weight", initialWeight))
}

// CalculateScore evaluates every registered component against ctx and
// returns the weighted aggregate with the full breakdown and a weight
// snapshot. A component that fails internally is substituted with a
// neutral zero-confidence score; one bad component never poisons the
// aggregate.
func (e *CompositeScoreEngine) CalculateScore(ctx domain.MarketContext) *domain.Signal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	breakdown := make(map[string]domain.ComponentScore, len(e.order))
	var weightedSum, totalWeight float64

	for _, name := range e.order {
		component := e.components[name]
		result := e.safeCalculate(name, component, ctx)
		breakdown[name] = result

		weight := e.weights[name]
		weightedSum += result.Score * weight * result.Confidence
		totalWeight += weight * result.Confidence
	}

	// Zero total effective weight means nobody had a usable opinion;
	// the aggregate defaults to neutral.
	aggregated := 0.0
	if totalWeight > 0 {
		aggregated = weightedSum / totalWeight
	}

	return &domain.Signal{
		AggregatedScore: aggregated,
		Action:          domain.ActionNeutral,
		Components:      breakdown,
		Weights:         e.weightSnapshotLocked(),
		Time:            time.Now(),
	}
}

func (e *CompositeScoreEngine) safeCalculate(name string, c ScoringComponent, ctx domain.MarketContext) (result domain.ComponentScore) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Scoring component failed, substituting neutral",
				zap.String("component", name),
				zap.Any("panic", r))
			result = domain.ComponentScore{
				Score:      0,
				Confidence: 0,
				Category:   c.Category(),
				Metadata:   map[string]any{"error": fmt.Sprintf("component failure: %v", r)},
			}
		}
	}()
	return c.Calculate(ctx)
}

// UpdateWeights applies reinforcement-style online calibration: every
// component whose prior score was non-neutral is rewarded when its
// directional opinion matched the sign of the realized outcome and
// penalized otherwise. Near-neutral components are left untouched.
// Weights are always clamped to [WeightMin, WeightMax].
func (e *CompositeScoreEngine) UpdateWeights(breakdown map[string]domain.ComponentScore, outcome float64) {
	if outcome == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for name, result := range breakdown {
		current, ok := e.weights[name]
		if !ok {
			continue
		}
		if math.Abs(result.Score) <= neutralEpsilon {
			continue // no opinion, no update
		}

		matched := (result.Score > 0 && outcome > 0) || (result.Score < 0 && outcome < 0)
		if matched {
			current *= 1 + e.learningRate
		} else {
			current *= 1 - e.learningRate
		}
		e.weights[name] = clampWeight(current)
	}

	e.logger.Debug("Updated component weights", zap.Any("weights", e.weights))
}

// Weights returns a copy of the current weight table.
func (e *CompositeScoreEngine) Weights() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.weightSnapshotLocked()
}

// SetWeight overrides one component weight at runtime, clamped to the
// allowed range. Unknown names are ignored.
func (e *CompositeScoreEngine) SetWeight(name string, weight float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.weights[name]; ok {
		e.weights[name] = clampWeight(weight)
	}
}

func (e *CompositeScoreEngine) weightSnapshotLocked() map[string]float64 {
	snapshot := make(map[string]float64, len(e.weights))
	for k, v := range e.weights {
		snapshot[k] = v
	}
	return snapshot
}

func clampWeight(w float64) float64 {
	return math.Max(WeightMin, math.Min(WeightMax, w))
}

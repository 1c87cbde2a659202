package usecase_test

import (
	"testing"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger { return zap.NewNop() }

// stubComponent returns a fixed opinion.
type stubComponent struct {
	name       string
	score      float64
	confidence float64
}

func (s *stubComponent) Name() string     { return s.name }
func (s *stubComponent) Category() string { return "Stub" }
func (s *stubComponent) Calculate(domain.MarketContext) domain.ComponentScore {
	return domain.ComponentScore{Score: s.score, Confidence: s.confidence, Category: "Stub"}
}

type panicComponent struct{}

func (p *panicComponent) Name() string     { return "panicky" }
func (p *panicComponent) Category() string { return "Stub" }
func (p *panicComponent) Calculate(domain.MarketContext) domain.ComponentScore {
	panic("boom")
}

func TestCompositeScoreEngine_Aggregation(t *testing.T) {
	engine := usecase.NewCompositeScoreEngine(testLogger())
	engine.RegisterComponent(&stubComponent{name: "a", score: 1.0, confidence: 1.0}, 2.0)
	engine.RegisterComponent(&stubComponent{name: "b", score: -1.0, confidence: 0.5}, 1.0)

	signal := engine.CalculateScore(domain.MarketContext{})

	// (1*2*1 + -1*1*0.5) / (2*1 + 1*0.5) = 1.5 / 2.5
	assert.InDelta(t, 0.6, signal.AggregatedScore, 1e-9)
	require.Len(t, signal.Components, 2)
	assert.Equal(t, 1.0, signal.Components["a"].Score)
	assert.Equal(t, 2.0, signal.Weights["a"])
}

func TestCompositeScoreEngine_ZeroTotalWeightIsNeutral(t *testing.T) {
	engine := usecase.NewCompositeScoreEngine(testLogger())
	engine.RegisterComponent(&stubComponent{name: "a", score: 1.0, confidence: 0}, 5.0)

	signal := engine.CalculateScore(domain.MarketContext{})
	assert.Equal(t, 0.0, signal.AggregatedScore)

	// No components at all behaves the same.
	empty := usecase.NewCompositeScoreEngine(testLogger())
	assert.Equal(t, 0.0, empty.CalculateScore(domain.MarketContext{}).AggregatedScore)
}

func TestCompositeScoreEngine_PanicIsolation(t *testing.T) {
	engine := usecase.NewCompositeScoreEngine(testLogger())
	engine.RegisterComponent(&stubComponent{name: "good", score: 0.5, confidence: 1.0}, 1.0)
	engine.RegisterComponent(&panicComponent{}, 3.0)

	signal := engine.CalculateScore(domain.MarketContext{})

	// The failing component contributes a neutral zero-confidence score;
	// the healthy one fully determines the aggregate.
	assert.InDelta(t, 0.5, signal.AggregatedScore, 1e-9)
	failed := signal.Components["panicky"]
	assert.Equal(t, 0.0, failed.Score)
	assert.Equal(t, 0.0, failed.Confidence)
	assert.Contains(t, failed.Metadata["error"], "boom")
}

func TestCompositeScoreEngine_UpdateWeights(t *testing.T) {
	engine := usecase.NewCompositeScoreEngine(testLogger())
	engine.RegisterComponent(&stubComponent{name: "bull", score: 0.8, confidence: 1}, 1.0)
	engine.RegisterComponent(&stubComponent{name: "bear", score: -0.8, confidence: 1}, 1.0)
	engine.RegisterComponent(&stubComponent{name: "fence", score: 0.01, confidence: 1}, 1.0)

	breakdown := engine.CalculateScore(domain.MarketContext{}).Components

	engine.UpdateWeights(breakdown, 1.0)

	weights := engine.Weights()
	assert.InDelta(t, 1.05, weights["bull"], 1e-9, "matched direction is rewarded")
	assert.InDelta(t, 0.95, weights["bear"], 1e-9, "mismatched direction is penalized")
	assert.Equal(t, 1.0, weights["fence"], "near-neutral opinion stays untouched")
}

func TestCompositeScoreEngine_UpdateWeightsZeroOutcomeIsNoop(t *testing.T) {
	engine := usecase.NewCompositeScoreEngine(testLogger())
	engine.RegisterComponent(&stubComponent{name: "bull", score: 0.8, confidence: 1}, 1.0)

	breakdown := engine.CalculateScore(domain.MarketContext{}).Components
	engine.UpdateWeights(breakdown, 0)

	assert.Equal(t, 1.0, engine.Weights()["bull"])
}

func TestCompositeScoreEngine_WeightClamping(t *testing.T) {
	engine := usecase.NewCompositeScoreEngine(testLogger())
	engine.RegisterComponent(&stubComponent{name: "bull", score: 1, confidence: 1}, 1.0)

	breakdown := engine.CalculateScore(domain.MarketContext{}).Components

	// Drive the weight into the ceiling.
	engine.SetWeight("bull", usecase.WeightMax)
	engine.UpdateWeights(breakdown, 1.0)
	assert.Equal(t, usecase.WeightMax, engine.Weights()["bull"])

	// And into the floor.
	engine.SetWeight("bull", usecase.WeightMin)
	engine.UpdateWeights(breakdown, -1.0)
	assert.Equal(t, usecase.WeightMin, engine.Weights()["bull"])

	// SetWeight clamps out-of-range values and ignores unknown names.
	engine.SetWeight("bull", 100)
	assert.Equal(t, usecase.WeightMax, engine.Weights()["bull"])
	engine.SetWeight("nope", 5)
	_, exists := engine.Weights()["nope"]
	assert.False(t, exists)
}

func TestCompositeScoreEngine_WeightsSnapshotIsACopy(t *testing.T) {
	engine := usecase.NewCompositeScoreEngine(testLogger())
	engine.RegisterComponent(&stubComponent{name: "a", score: 1, confidence: 1}, 1.0)

	snapshot := engine.Weights()
	snapshot["a"] = 99

	assert.Equal(t, 1.0, engine.Weights()["a"])
}

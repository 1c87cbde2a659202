package usecase

import (
	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"go.uber.org/zap"
)

// ScoringService owns the composite engine plus the signal classifier and
// registers the default component set.
type ScoringService struct {
	engine     *CompositeScoreEngine
	classifier *SignalClassifier
	logger     *zap.Logger
}

func NewScoringService(timeframes []string, logger *zap.Logger) *ScoringService {
	s := &ScoringService{
		engine:     NewCompositeScoreEngine(logger),
		classifier: NewSignalClassifier(),
		logger:     logger,
	}
	s.registerDefaults(timeframes)
	return s
}

func (s *ScoringService) registerDefaults(timeframes []string) {
	// Technical
	s.engine.RegisterComponent(NewRSIComponent(), 1.0)
	s.engine.RegisterComponent(NewMACDComponent(), 1.2)
	s.engine.RegisterComponent(NewATRComponent(), 0.5)
	s.engine.RegisterComponent(NewBollingerComponent(), 1.0)
	s.engine.RegisterComponent(NewDivergenceComponent(), 1.5)

	// Orderbook
	s.engine.RegisterComponent(NewOrderbookImbalanceComponent(), 1.2)
	s.engine.RegisterComponent(NewLiquidityComponent(), 0.8)

	// Market structure
	s.engine.RegisterComponent(NewMarketStructureComponent(), 1.5)

	// Sentiment
	s.engine.RegisterComponent(NewSentimentComponent(), 0.8)

	// Multi-timeframe
	s.engine.RegisterComponent(NewMultiTimeframeComponent(timeframes), 1.1)
}

// Evaluate computes the composite score for ctx and classifies it into an
// action.
func (s *ScoringService) Evaluate(ctx domain.MarketContext) *domain.Signal {
	signal := s.engine.CalculateScore(ctx)
	signal.Action = s.classifier.Classify(signal.AggregatedScore)
	return signal
}

// UpdateWeights feeds a realized outcome back into the engine.
func (s *ScoringService) UpdateWeights(breakdown map[string]domain.ComponentScore, outcome float64) {
	s.engine.UpdateWeights(breakdown, outcome)
}

// Weights returns the current weight table snapshot.
func (s *ScoringService) Weights() map[string]float64 {
	return s.engine.Weights()
}

// RestoreWeights applies a persisted weight table, e.g. on startup.
func (s *ScoringService) RestoreWeights(weights map[string]float64) {
	for name, w := range weights {
		s.engine.SetWeight(name, w)
	}
}

// SetSignalParameters adjusts the classification thresholds at runtime.
func (s *ScoringService) SetSignalParameters(long, short, strongMargin float64) {
	s.classifier.SetThresholds(long, short, strongMargin)
	s.logger.Info("Signal parameters updated",
		zap.Float64("long_threshold", long),
		zap.Float64("short_threshold", short),
		zap.Float64("strong_margin", strongMargin))
}

// SignalParameters returns the current classification thresholds.
func (s *ScoringService) SignalParameters() (long, short, strongMargin float64) {
	return s.classifier.Thresholds()
}

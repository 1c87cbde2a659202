package web

import (
	"context"
	"net/http"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/usecase"
	"go.uber.org/zap"
)

// CommandQueue is the enqueue side of the daemon's command channel.
type CommandQueue interface {
	Push(cmd *domain.Command) bool
}

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	daemon    *usecase.Daemon
	scoring   *usecase.ScoringService
	risk      *usecase.RiskGate
	tradeRepo domain.TradeRepository
	queue     CommandQueue
	commands  http.Handler
	logger    *zap.Logger
}

func NewServer(
	addr string,
	daemon *usecase.Daemon,
	scoring *usecase.ScoringService,
	risk *usecase.RiskGate,
	tradeRepo domain.TradeRepository,
	queue CommandQueue,
	commands http.Handler,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		daemon:    daemon,
		scoring:   scoring,
		risk:      risk,
		tradeRepo: tradeRepo,
		queue:     queue,
		commands:  commands,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Observability
	s.router.HandleFunc("GET /status", s.handleStatus)
	s.router.HandleFunc("GET /positions", s.handlePositions)
	s.router.HandleFunc("GET /signal", s.handleSignal)
	s.router.HandleFunc("GET /trades", s.handleTrades)
	s.router.HandleFunc("GET /history", s.handleHistory)
	s.router.HandleFunc("GET /weights", s.handleWeights)

	// Control
	s.router.HandleFunc("POST /command", s.handleCommand)
	s.router.HandleFunc("POST /params/risk", s.handleUpdateRiskParams)
	s.router.HandleFunc("POST /params/signals", s.handleUpdateSignalParams)

	// Command channel
	s.router.Handle("GET /ws/commands", s.commands)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.daemon.Status())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.daemon.Positions()
	if positions == nil {
		positions = []*domain.Position{}
	}
	s.writeJSON(w, positions)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	signal := s.daemon.LastSignal()
	if signal == nil {
		http.Error(w, "no signal evaluated yet", http.StatusNotFound)
		return
	}
	s.writeJSON(w, signal)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)
	trades, err := s.tradeRepo.ListTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []*domain.Order{}
	}
	s.writeJSON(w, trades)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)
	history, err := s.tradeRepo.ListPositionHistory(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list position history", zap.Error(err))
		http.Error(w, "Failed to list position history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []*domain.PositionHistory{}
	}
	s.writeJSON(w, history)
}

func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.scoring.Weights())
}

// handleCommand enqueues one command. The response tells the caller
// whether the command was accepted, not whether it was executed yet.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd domain.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid command payload", http.StatusBadRequest)
		return
	}
	if cmd.Time.IsZero() {
		cmd.Time = time.Now()
	}
	if err := cmd.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.queue.Push(&cmd) {
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
		return
	}

	s.logger.Info("Command accepted via API",
		zap.String("action", string(cmd.Action)),
		zap.String("pair", cmd.Pair))
	s.writeJSON(w, map[string]string{"result": "accepted"})
}

func (s *Server) handleUpdateRiskParams(w http.ResponseWriter, r *http.Request) {
	params := s.risk.Params()
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "invalid risk parameters", http.StatusBadRequest)
		return
	}
	s.risk.UpdateParams(params)
	s.writeJSON(w, params)
}

func (s *Server) handleUpdateSignalParams(w http.ResponseWriter, r *http.Request) {
	long, short, margin := s.scoring.SignalParameters()
	payload := struct {
		LongThreshold  *float64 `json:"long_threshold"`
		ShortThreshold *float64 `json:"short_threshold"`
		StrongMargin   *float64 `json:"strong_margin"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid signal parameters", http.StatusBadRequest)
		return
	}
	if payload.LongThreshold != nil {
		long = *payload.LongThreshold
	}
	if payload.ShortThreshold != nil {
		short = *payload.ShortThreshold
	}
	if payload.StrongMargin != nil {
		margin = *payload.StrongMargin
	}
	if long <= short {
		http.Error(w, "long_threshold must exceed short_threshold", http.StatusBadRequest)
		return
	}

	s.scoring.SetSignalParameters(long, short, margin)
	s.writeJSON(w, map[string]float64{
		"long_threshold":  long,
		"short_threshold": short,
		"strong_margin":   margin,
	})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

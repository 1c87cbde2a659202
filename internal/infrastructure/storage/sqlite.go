package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			size REAL NOT NULL,
			price REAL NOT NULL,
			realized_pnl REAL NOT NULL DEFAULT 0,
			simulated BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);`,
		`CREATE TABLE IF NOT EXISTS position_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			size REAL NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			realized_pnl REAL NOT NULL,
			reason TEXT,
			simulated BOOLEAN NOT NULL DEFAULT 0,
			closed_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_position_history_symbol ON position_history(symbol);`,
		`CREATE TABLE IF NOT EXISTS weights (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// TradeRepository Implementation

func (s *SQLiteStore) SaveTrade(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO trades (id, symbol, side, size, price, realized_pnl, simulated, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		order.ID, order.Symbol, order.Side, order.Size, order.Price, order.RealizedPnL, order.Simulated, order.CreatedAt)
	return err
}

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]*domain.Order, error) {
	query := `SELECT id, symbol, side, size, price, realized_pnl, simulated, created_at FROM trades ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Symbol, &o.Side, &o.Size, &o.Price, &o.RealizedPnL, &o.Simulated, &o.CreatedAt); err != nil {
			return nil, err
		}
		trades = append(trades, &o)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) SavePositionHistory(ctx context.Context, h *domain.PositionHistory) error {
	query := `INSERT INTO position_history (symbol, side, size, entry_price, exit_price, realized_pnl, reason, simulated, closed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		h.Symbol, h.Side, h.Size, h.EntryPrice, h.ExitPrice, h.RealizedPnL, h.Reason, h.Simulated, h.ClosedAt)
	return err
}

func (s *SQLiteStore) ListPositionHistory(ctx context.Context, limit int) ([]*domain.PositionHistory, error) {
	query := `SELECT id, symbol, side, size, entry_price, exit_price, realized_pnl, reason, simulated, closed_at
			  FROM position_history ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*domain.PositionHistory
	for rows.Next() {
		var h domain.PositionHistory
		if err := rows.Scan(&h.ID, &h.Symbol, &h.Side, &h.Size, &h.EntryPrice, &h.ExitPrice, &h.RealizedPnL, &h.Reason, &h.Simulated, &h.ClosedAt); err != nil {
			return nil, err
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

// WeightRepository Implementation
//
// The weight table is stored as a single JSON row so a restart resumes
// calibration where the previous run left off.

func (s *SQLiteStore) SaveWeights(ctx context.Context, weights map[string]float64) error {
	payload, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	query := `INSERT INTO weights (id, payload, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
			  ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, updated_at=CURRENT_TIMESTAMP`
	_, err = s.db.ExecContext(ctx, query, string(payload))
	return err
}

func (s *SQLiteStore) LoadWeights(ctx context.Context) (map[string]float64, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM weights WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	weights := make(map[string]float64)
	if err := json.Unmarshal([]byte(payload), &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return weights, nil
}

package domain

import "time"

// DaemonState is the running state of the trading daemon.
type DaemonState string

const (
	StateIdle    DaemonState = "IDLE"
	StateRunning DaemonState = "RUNNING"
	StatePaused  DaemonState = "PAUSED"
)

// DaemonStatus is the external-facing snapshot written every tick. Consumers
// must treat it as an eventually-consistent, read-only view.
type DaemonStatus struct {
	PID            int         `json:"pid"`
	State          DaemonState `json:"state"`
	LastUpdate     time.Time   `json:"last_update"`
	SimulationMode bool        `json:"simulation_mode"`
	PositionCount  int         `json:"position_count"`
	LastCommand    string      `json:"last_command,omitempty"`
	LastError      string      `json:"last_error,omitempty"`
	PollIntervalMs int64       `json:"poll_interval_ms"`
	TotalPnL       float64     `json:"total_pnl"`
	Symbol         string      `json:"symbol"`
}

package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
)

// FileSink publishes the daemon status and open positions as JSON files.
// Writes go through a temp file plus rename so readers never observe a
// partially written snapshot.
type FileSink struct {
	statusPath    string
	positionsPath string
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileSink{
		statusPath:    filepath.Join(dir, "status.json"),
		positionsPath: filepath.Join(dir, "positions.json"),
	}, nil
}

func (s *FileSink) WriteStatus(status *domain.DaemonStatus) error {
	return writeJSON(s.statusPath, status)
}

func (s *FileSink) WritePositions(positions []*domain.Position) error {
	if positions == nil {
		positions = []*domain.Position{}
	}
	return writeJSON(s.positionsPath, positions)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

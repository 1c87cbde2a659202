package snapshot_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/infrastructure/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_StatusRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sink, err := snapshot.NewFileSink(dir)
	require.NoError(t, err)

	status := &domain.DaemonStatus{
		PID:            1234,
		State:          domain.StateRunning,
		LastUpdate:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		SimulationMode: true,
		PositionCount:  2,
		Symbol:         "BTCUSDT",
	}
	require.NoError(t, sink.WriteStatus(status))

	data, err := os.ReadFile(filepath.Join(dir, "status.json"))
	require.NoError(t, err)

	var got domain.DaemonStatus
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, domain.StateRunning, got.State)
	assert.Equal(t, 1234, got.PID)
	assert.True(t, got.SimulationMode)

	// No leftover temp file after the atomic rename.
	_, err = os.Stat(filepath.Join(dir, "status.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileSink_PositionsNeverNull(t *testing.T) {
	dir := t.TempDir()
	sink, err := snapshot.NewFileSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.WritePositions(nil))

	data, err := os.ReadFile(filepath.Join(dir, "positions.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data), "empty set serializes as an array, not null")

	require.NoError(t, sink.WritePositions([]*domain.Position{
		{Symbol: "BTCUSDT", Side: domain.SideLong, EntryPrice: 100, Size: 1},
	}))
	var positions []*domain.Position
	data, err = os.ReadFile(filepath.Join(dir, "positions.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "BTCUSDT", positions[0].Symbol)
}

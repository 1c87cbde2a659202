package command_test

import (
	"testing"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/infrastructure/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOAndConsumeOnce(t *testing.T) {
	q := command.NewQueue(8)

	require.True(t, q.Push(&domain.Command{Action: domain.CmdStart}))
	require.True(t, q.Push(&domain.Command{Action: domain.CmdBuy, Pair: "BTCUSDT"}))

	first, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, domain.CmdStart, first.Action)

	second, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, domain.CmdBuy, second.Action)

	// Both consumed: nothing is ever delivered twice.
	_, ok = q.Next()
	assert.False(t, ok)
}

func TestQueue_RejectsWhenFull(t *testing.T) {
	q := command.NewQueue(2)

	assert.True(t, q.Push(&domain.Command{Action: domain.CmdStart}))
	assert.True(t, q.Push(&domain.Command{Action: domain.CmdStop}))
	assert.False(t, q.Push(&domain.Command{Action: domain.CmdPause}), "bounded queue rejects instead of blocking")
	assert.Equal(t, 2, q.Len())

	// Draining one slot admits the next producer.
	_, ok := q.Next()
	require.True(t, ok)
	assert.True(t, q.Push(&domain.Command{Action: domain.CmdPause}))
}

func TestQueue_EmptyNext(t *testing.T) {
	q := command.NewQueue(0) // default capacity

	cmd, ok := q.Next()
	assert.False(t, ok)
	assert.Nil(t, cmd)
	assert.Equal(t, 0, q.Len())
}

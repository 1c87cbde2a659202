package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTransientError(t *testing.T) {
	base := errors.New("connection reset")
	err := domain.Transient("kline fetch", base)

	assert.True(t, domain.IsTransient(err))
	assert.True(t, errors.Is(err, base), "wrapped cause stays reachable")

	wrapped := fmt.Errorf("tick: %w", err)
	assert.True(t, domain.IsTransient(wrapped))

	assert.False(t, domain.IsTransient(errors.New("plain")))
	assert.Nil(t, domain.Transient("op", nil))
}

func TestOrderError(t *testing.T) {
	err := &domain.OrderError{Symbol: "BTCUSDT", Reason: "insufficient margin"}

	assert.True(t, domain.IsOrderError(err))
	assert.Contains(t, err.Error(), "BTCUSDT")
	assert.False(t, domain.IsOrderError(errors.New("plain")))
	assert.False(t, domain.IsTransient(err), "a rejection is not transient")
}

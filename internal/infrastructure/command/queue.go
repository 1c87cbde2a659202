package command

import (
	"sync"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
)

const defaultCapacity = 64

// Queue is a bounded FIFO of pending commands. Next consumes the oldest
// entry; a consumed command is never delivered again. When full, Push
// rejects instead of blocking the producer.
type Queue struct {
	mu       sync.Mutex
	pending  []*domain.Command
	capacity int
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Queue{capacity: capacity}
}

// Push appends cmd. It reports false when the queue is full.
func (q *Queue) Push(cmd *domain.Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) >= q.capacity {
		return false
	}
	q.pending = append(q.pending, cmd)
	return true
}

// Next pops the oldest pending command.
func (q *Queue) Next() (*domain.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	cmd := q.pending[0]
	q.pending = q.pending[1:]
	return cmd, true
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Package dispatch moves classified gesture commands from the hook thread
// to the control thread. The hook thread must never block on downstream
// work, so enqueueing is lossy under sustained overload.
package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/ymiyake/murmur/internal/gesture"
)

const defaultCapacity = 64

// Queue is a bounded single-consumer command queue. Commands are handled
// strictly in enqueue order by one Run loop.
type Queue struct {
	ch      chan gesture.Command
	dropped atomic.Uint64
	logger  *slog.Logger
}

// NewQueue builds a queue with the given capacity; capacity <= 0 selects
// the default.
func NewQueue(capacity int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		ch:     make(chan gesture.Command, capacity),
		logger: logger,
	}
}

// Enqueue hands a command to the control thread. It never blocks: when the
// queue is full the command is dropped and counted, because a stalled
// consumer must not freeze global input handling.
func (q *Queue) Enqueue(cmd gesture.Command) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
		dropped := q.dropped.Add(1)
		q.logger.Warn("command queue full, dropping command",
			"command", cmd.String(),
			"dropped_total", dropped)
		return false
	}
}

// Dropped returns the number of commands discarded due to backpressure.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Run consumes commands until the context is cancelled, invoking handle
// for each in order. Handle runs on the Run goroutine only, so handlers
// may do blocking work without extra locking.
func (q *Queue) Run(ctx context.Context, handle func(gesture.Command)) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-q.ch:
			handle(cmd)
		}
	}
}

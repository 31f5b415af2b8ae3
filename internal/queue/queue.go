// Package queue implements the in-memory FIFO job queue: one buffered
// channel, one consumer goroutine, shut down cooperatively through a
// context.Context the same way the rest of the service does rather than
// the teacher's bare `select {}` kept-alive goroutine.
package queue

import (
	"context"

	"github.com/rs/zerolog"
)

// Item is one unit of work handed to the consumer: just the job id, since
// the consumer looks up the request and mutable state from the job store.
type Item struct {
	JobID string
}

// Handler processes one queued item. It is invoked on the single consumer
// goroutine, so handlers run strictly one at a time in submission order.
type Handler func(ctx context.Context, item Item)

// Queue is a bounded FIFO backed by a channel. Enqueue never blocks the
// caller past the channel's capacity; callers that need backpressure
// should treat a full queue as a submit-time error.
type Queue struct {
	items   chan Item
	handler Handler
	log     zerolog.Logger
}

// New builds a Queue with the given capacity. handler is invoked for
// every enqueued item once Start runs.
func New(capacity int, handler Handler, log zerolog.Logger) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{
		items:   make(chan Item, capacity),
		handler: handler,
		log:     log.With().Str("component", "queue").Logger(),
	}
}

// Enqueue adds an item to the queue. It returns false if the queue is at
// capacity, so the caller can surface a clear "queue full" submit error
// instead of blocking indefinitely.
func (q *Queue) Enqueue(item Item) bool {
	select {
	case q.items <- item:
		return true
	default:
		return false
	}
}

// Start launches the single consumer goroutine. It returns immediately;
// the goroutine runs until ctx is cancelled, draining no further items
// once cancellation is observed.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				q.log.Info().Msg("queue consumer shutting down")
				return
			case item := <-q.items:
				q.dispatch(ctx, item)
			}
		}
	}()
}

// dispatch runs the handler with a recover guard: a panic inside one
// job's attempt pipeline must not take down the worker goroutine (and with
// it, every other queued job), the same way chi's middleware.Recoverer
// keeps one bad HTTP handler from crashing the server.
func (q *Queue) dispatch(ctx context.Context, item Item) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Str("job_id", item.JobID).Msg("recovered from panic in queue handler")
		}
	}()
	q.handler(ctx, item)
}

// Depth returns the number of items currently buffered, awaiting
// processing.
func (q *Queue) Depth() int {
	return len(q.items)
}

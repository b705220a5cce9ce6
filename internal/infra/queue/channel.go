// Package queue provides the in-process frame queue backing the
// contract stages are wired with.
package queue

import (
	"context"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

// Channel is a bounded FIFO frame queue built on a Go channel. It is
// safe for any number of concurrent producers and consumers; FIFO holds
// per producer-consumer pair but no cross-worker ordering is promised
// once multiple consumers compete.
type Channel struct {
	ch chan *entity.Frame
}

// NewChannel creates a queue holding at most capacity frames. A zero
// capacity yields a rendezvous queue where Put blocks until a consumer
// is ready.
func NewChannel(capacity int) *Channel {
	return &Channel{ch: make(chan *entity.Frame, capacity)}
}

// Put enqueues a frame, blocking while the queue is full.
func (q *Channel) Put(ctx context.Context, f *entity.Frame) error {
	select {
	case q.ch <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take dequeues the next frame, blocking while the queue is empty. The
// block is a suspension point: it never spins and it returns with
// ctx's error as soon as ctx is done.
func (q *Channel) Take(ctx context.Context) (*entity.Frame, error) {
	// A dequeue must never begin once cancellation has been observed,
	// even when frames are still queued.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	select {
	case f := <-q.ch:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of frames currently queued.
func (q *Channel) Len() int {
	return len(q.ch)
}

// Package pipeline implements the StreamingPipeline component: a
// bounded async buffer with backpressure, map/filter/batch/tap/merge
// combinators, and a builder with collect/count/drain terminals.
package pipeline

import (
	"context"

	"github.com/feedspine/feedspine/internal/apperrors"
)

// AsyncBuffer is a bounded, context-aware FIFO queue. Put blocks when
// the buffer is full (backpressure); Get blocks when it is empty. Both
// respect ctx cancellation. Capacity bounds memory use regardless of
// producer/consumer speed mismatch.
type AsyncBuffer[T any] struct {
	ch chan T
}

// NewAsyncBuffer creates a buffer holding up to capacity items in
// flight. capacity must be >= 1.
func NewAsyncBuffer[T any](capacity int) *AsyncBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &AsyncBuffer[T]{ch: make(chan T, capacity)}
}

// Put enqueues v, blocking while the buffer is full. Returns a
// KindCancelled error if ctx is cancelled first.
func (b *AsyncBuffer[T]) Put(ctx context.Context, v T) error {
	select {
	case b.ch <- v:
		return nil
	case <-ctx.Done():
		return apperrors.Wrap(ctx.Err(), apperrors.KindCancelled, "asyncbuffer put cancelled")
	}
}

// Get dequeues the next item, blocking while the buffer is empty. ok is
// false once Close has been called and the buffer has drained.
func (b *AsyncBuffer[T]) Get(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case v, ok := <-b.ch:
		return v, ok, nil
	case <-ctx.Done():
		return zero, false, apperrors.Wrap(ctx.Err(), apperrors.KindCancelled, "asyncbuffer get cancelled")
	}
}

// Close signals no more items will be Put. Safe to call exactly once;
// a second call panics, matching close(chan)'s semantics.
func (b *AsyncBuffer[T]) Close() {
	close(b.ch)
}

// Chan exposes the underlying channel for range-based consumption and
// for feeding combinators directly.
func (b *AsyncBuffer[T]) Chan() chan T {
	return b.ch
}

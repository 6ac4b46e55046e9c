package pipeline

import (
	"context"

	"github.com/feedspine/feedspine/internal/apperrors"
)

// Pipeline is a fluent builder chaining combinators over a single
// source channel, terminated by Collect, Count, or Drain.
type Pipeline[T any] struct {
	ctx context.Context
	ch  <-chan T
}

// New starts a Pipeline reading from ch.
func New[T any](ctx context.Context, ch <-chan T) *Pipeline[T] {
	return &Pipeline[T]{ctx: ctx, ch: ch}
}

// MapPipeline chains a Map combinator. The element type changes, so this is a
// package function rather than a method (Go methods cannot introduce a
// new type parameter).
func MapPipeline[T, U any](p *Pipeline[T], fn func(T) U) *Pipeline[U] {
	return &Pipeline[U]{ctx: p.ctx, ch: Map(p.ctx, p.ch, fn)}
}

// Filter chains a Filter combinator, keeping the element type.
func (p *Pipeline[T]) Filter(pred func(T) bool) *Pipeline[T] {
	return &Pipeline[T]{ctx: p.ctx, ch: Filter(p.ctx, p.ch, pred)}
}

// Tap chains a Tap combinator, keeping the element type.
func (p *Pipeline[T]) Tap(fn func(T)) *Pipeline[T] {
	return &Pipeline[T]{ctx: p.ctx, ch: Tap(p.ctx, p.ch, fn)}
}

// BatchPipeline chains a Batch combinator, producing a pipeline of []T.
// The element type changes, so this is a package function rather than a
// method (a method here would form a generic instantiation cycle).
func BatchPipeline[T any](p *Pipeline[T], size int) *Pipeline[[]T] {
	return &Pipeline[[]T]{ctx: p.ctx, ch: Batch(p.ctx, p.ch, size)}
}

// Collect drains the pipeline into a slice, returning early with a
// KindCancelled error if ctx is cancelled before the source closes.
func (p *Pipeline[T]) Collect() ([]T, error) {
	var out []T
	for {
		select {
		case v, ok := <-p.ch:
			if !ok {
				return out, nil
			}
			out = append(out, v)
		case <-p.ctx.Done():
			return out, apperrors.Wrap(p.ctx.Err(), apperrors.KindCancelled, "pipeline collect cancelled")
		}
	}
}

// Count drains the pipeline, discarding items and returning how many
// passed through.
func (p *Pipeline[T]) Count() (int, error) {
	n := 0
	for {
		select {
		case _, ok := <-p.ch:
			if !ok {
				return n, nil
			}
			n++
		case <-p.ctx.Done():
			return n, apperrors.Wrap(p.ctx.Err(), apperrors.KindCancelled, "pipeline count cancelled")
		}
	}
}

// Drain consumes and discards every item, for pipelines run purely for
// their Tap side effects.
func (p *Pipeline[T]) Drain() error {
	_, err := p.Count()
	return err
}

package pipeline

import (
	"context"
	"sync"
)

// Map applies fn to every item from in, preserving order (FIFO within
// a single source). Stops and closes out if ctx is cancelled.
func Map[T, U any](ctx context.Context, in <-chan T, fn func(T) U) <-chan U {
	out := make(chan U)
	go func() {
		defer close(out)
		for v := range in {
			select {
			case out <- fn(v):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// MapErr is Map for functions that can fail; errors are sent on errs
// without stopping the stream for subsequent items.
func MapErr[T, U any](ctx context.Context, in <-chan T, fn func(T) (U, error)) (<-chan U, <-chan error) {
	out := make(chan U)
	errs := make(chan error)
	go func() {
		defer close(out)
		defer close(errs)
		for v := range in {
			u, err := fn(v)
			if err != nil {
				select {
				case errs <- err:
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errs
}

// Filter passes through only items for which pred returns true.
func Filter[T any](ctx context.Context, in <-chan T, pred func(T) bool) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for v := range in {
			if !pred(v) {
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Batch groups items from in into slices of up to size, emitting a
// short final batch when in closes. size must be >= 1.
func Batch[T any](ctx context.Context, in <-chan T, size int) <-chan []T {
	if size < 1 {
		size = 1
	}
	out := make(chan []T)
	go func() {
		defer close(out)
		batch := make([]T, 0, size)
		for v := range in {
			batch = append(batch, v)
			if len(batch) == size {
				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
				batch = make([]T, 0, size)
			}
		}
		if len(batch) > 0 {
			select {
			case out <- batch:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

// Tap invokes fn for each item as a side effect (e.g. event publishing,
// metrics), then passes the item through unchanged.
func Tap[T any](ctx context.Context, in <-chan T, fn func(T)) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for v := range in {
			fn(v)
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Merge fans in every channel in ins onto a single output channel.
// Interleaving across sources is unspecified; within one source,
// order is preserved. maxConcurrent bounds how many source
// channels are actively drained at once (0 means unbounded/all at
// once).
func Merge[T any](ctx context.Context, ins []<-chan T, maxConcurrent int) <-chan T {
	out := make(chan T)

	var sem chan struct{}
	if maxConcurrent > 0 {
		sem = make(chan struct{}, maxConcurrent)
	}

	var wg sync.WaitGroup
	wg.Add(len(ins))

	for _, in := range ins {
		in := in
		go func() {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return
				}
			}
			for v := range in {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

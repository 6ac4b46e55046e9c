package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestPipeline_CollectRunsCombinatorsInOrder(t *testing.T) {
	ctx := context.Background()
	p := New(ctx, intChan(1, 2, 3, 4, 5))

	filtered := p.Filter(func(v int) bool { return v%2 == 1 })
	mapped := MapPipeline(filtered, func(v int) int { return v * 100 })

	got, err := mapped.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalInts(got, []int{100, 300, 500}) {
		t.Fatalf("Collect() = %v, want [100 300 500]", got)
	}
}

func TestPipeline_Count(t *testing.T) {
	p := New(context.Background(), intChan(1, 2, 3))
	n, err := p.Count()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("Count() = %d, want 3", n)
	}
}

func TestPipeline_Drain(t *testing.T) {
	var tapped []int
	p := New(context.Background(), intChan(1, 2, 3)).Tap(func(v int) { tapped = append(tapped, v) })
	if err := p.Drain(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalInts(tapped, []int{1, 2, 3}) {
		t.Fatalf("tapped = %v, want [1 2 3]", tapped)
	}
}

func TestPipeline_Collect_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocking := make(chan int)
	p := New(ctx, blocking)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := p.Collect(); err == nil {
			t.Error("expected error from cancelled collect")
		}
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Collect did not return after cancellation")
	}
}

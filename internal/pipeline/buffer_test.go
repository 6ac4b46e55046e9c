package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestAsyncBuffer_PutGet(t *testing.T) {
	b := NewAsyncBuffer[int](2)
	ctx := context.Background()

	if err := b.Put(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok, err := b.Get(ctx)
	if err != nil || !ok || v != 1 {
		t.Fatalf("Get() = (%v, %v, %v), want (1, true, nil)", v, ok, err)
	}
}

func TestAsyncBuffer_PutBlocksWhenFull(t *testing.T) {
	b := NewAsyncBuffer[int](1)
	ctx := context.Background()

	if err := b.Put(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blockedCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := b.Put(blockedCtx, 2); err == nil {
		t.Fatal("expected Put to block and time out when buffer is full")
	}
}

func TestAsyncBuffer_GetReturnsFalseAfterClose(t *testing.T) {
	b := NewAsyncBuffer[int](1)
	b.Close()

	_, ok, err := b.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false from closed empty buffer")
	}
}

func TestAsyncBuffer_Get_RespectsCancellation(t *testing.T) {
	b := NewAsyncBuffer[int](1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := b.Get(ctx)
	if err == nil {
		t.Fatal("expected error when context is cancelled before an item arrives")
	}
}

package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBus_Publish_DeliversToMatchingSubscriber(t *testing.T) {
	bus := New(nil)
	var mu sync.Mutex
	var got Event

	bus.Subscribe(RecordDiscovered, func(ctx context.Context, e Event) error {
		mu.Lock()
		got = e
		mu.Unlock()
		return nil
	})

	bus.Publish(context.Background(), Event{Type: RecordDiscovered, Feed: "example-feed"})

	mu.Lock()
	defer mu.Unlock()
	if got.Feed != "example-feed" {
		t.Fatalf("handler did not receive event: %+v", got)
	}
}

func TestBus_Publish_DoesNotDeliverToOtherEventTypes(t *testing.T) {
	bus := New(nil)
	called := false
	bus.Subscribe(RecordDuplicate, func(ctx context.Context, e Event) error {
		called = true
		return nil
	})

	bus.Publish(context.Background(), Event{Type: RecordDiscovered})
	if called {
		t.Fatal("handler subscribed to a different event type must not be called")
	}
}

func TestBus_SubscribeAll_ReceivesEveryEventType(t *testing.T) {
	bus := New(nil)
	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(ctx context.Context, e Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	bus.Publish(context.Background(), Event{Type: RecordDiscovered})
	bus.Publish(context.Background(), Event{Type: CollectionCompleted})

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestBus_Publish_HandlerErrorDoesNotPropagate(t *testing.T) {
	bus := New(nil)
	bus.Subscribe(RecordDiscovered, func(ctx context.Context, e Event) error {
		return errors.New("handler exploded")
	})

	done := make(chan struct{})
	go func() {
		bus.Publish(context.Background(), Event{Type: RecordDiscovered})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish should return even though its only handler errored")
	}
}

func TestBus_Unsubscribe_StopsDelivery(t *testing.T) {
	bus := New(nil)
	called := false
	unsubscribe := bus.Subscribe(RecordDiscovered, func(ctx context.Context, e Event) error {
		called = true
		return nil
	})
	unsubscribe()

	bus.Publish(context.Background(), Event{Type: RecordDiscovered})
	if called {
		t.Fatal("unsubscribed handler must not be called")
	}
}

// Package eventbus is a single-process pub/sub for collection
// lifecycle events.
package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType enumerates the lifecycle events the orchestrator emits.
type EventType string

const (
	CollectionStarted   EventType = "collection_started"
	CollectionProgress  EventType = "collection_progress"
	CollectionCompleted EventType = "collection_completed"
	CollectionFailed    EventType = "collection_failed"
	AdapterStarted      EventType = "adapter_started"
	AdapterCompleted    EventType = "adapter_completed"
	AdapterFailed       EventType = "adapter_failed"
	RecordDiscovered    EventType = "record_discovered"
	RecordDuplicate     EventType = "record_duplicate"
)

// Priority ranks an event for subscribers that triage (e.g. an alerting
// handler that only reacts to high and critical).
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Event is a single published occurrence. ID is unique per event,
// Timestamp is UTC, Source names the emitting component, and Feed is
// set for adapter- and record-scoped events.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Source    string
	Priority  Priority
	Feed      string
	Payload   map[string]any
}

// Handler reacts to a published Event. A returned error is logged, not
// propagated to the publisher.
type Handler func(ctx context.Context, event Event) error

// Bus fans out published events to subscribed handlers concurrently,
// collecting and logging handler errors without ever failing the
// publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]entry
	all      []entry
	nextID   int
	logger   *zap.Logger
}

type entry struct {
	id int
	fn Handler
}

// New creates an empty Bus. logger may be nil, in which case a no-op
// logger is used.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: make(map[EventType][]entry), logger: logger}
}

// Subscribe registers fn for events of exactly eventType, returning a
// function that removes the subscription when called.
func (b *Bus) Subscribe(eventType EventType, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], entry{id: id, fn: fn})
	return func() { b.unsubscribe(eventType, id, false) }
}

// SubscribeAll registers fn for every event type.
func (b *Bus) SubscribeAll(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, entry{id: id, fn: fn})
	return func() { b.unsubscribe("", id, true) }
}

func (b *Bus) unsubscribe(eventType EventType, id int, all bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if all {
		b.all = removeEntry(b.all, id)
		return
	}
	b.handlers[eventType] = removeEntry(b.handlers[eventType], id)
}

func removeEntry(entries []entry, id int) []entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Publish fans event out to every matching handler concurrently. Errors
// are logged and never returned to the caller: a slow or failing
// handler never aborts collection.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	targets := make([]entry, 0, len(b.handlers[event.Type])+len(b.all))
	targets = append(targets, b.handlers[event.Type]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	var wg sync.WaitGroup
	wg.Add(len(targets))
	for _, t := range targets {
		t := t
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("eventbus handler panicked", zap.Any("recover", r), zap.String("event_type", string(event.Type)))
				}
			}()
			if err := t.fn(ctx, event); err != nil {
				b.logger.Warn("eventbus handler failed",
					zap.Error(err),
					zap.String("event_type", string(event.Type)),
					zap.String("feed", event.Feed))
			}
		}()
	}
	wg.Wait()
}

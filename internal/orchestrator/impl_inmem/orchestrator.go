// Package impl_inmem provides the single-process orchestrator: it binds
// adapters, storage, the dedup engine, the enrichment chain, checkpoints,
// resources, and the event bus, and runs collections over them.
package impl_inmem

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feedspine/feedspine/internal/adapter"
	"github.com/feedspine/feedspine/internal/apperrors"
	"github.com/feedspine/feedspine/internal/checkpoint"
	"github.com/feedspine/feedspine/internal/dedup"
	"github.com/feedspine/feedspine/internal/enrichment"
	"github.com/feedspine/feedspine/internal/eventbus"
	"github.com/feedspine/feedspine/internal/model"
	"github.com/feedspine/feedspine/internal/orchestrator"
	"github.com/feedspine/feedspine/internal/pipeline"
	"github.com/feedspine/feedspine/internal/resourcepool"
	"github.com/feedspine/feedspine/internal/storage"
	"github.com/feedspine/feedspine/pkg/clock"
	"github.com/feedspine/feedspine/pkg/ids"
)

// Config configures an Engine. Storage is the only required field;
// every other zero value falls back to the documented default.
type Config struct {
	// Storage backs the dedup engine and enrichment persistence.
	// Required.
	Storage storage.Store

	// BufferCapacity bounds each adapter's in-flight candidate buffer
	// and the CollectStream output buffer. Defaults to 1000; minimum 1.
	BufferCapacity int

	// MaxConcurrent bounds how many adapters fetch at once in
	// CollectParallel/CollectStream. Zero means unbounded.
	MaxConcurrent int

	// Checkpoints persists per-feed progress. Optional; when nil no
	// checkpoints are saved or resumed.
	Checkpoints checkpoint.Manager

	// CheckpointIntervalRecords saves a checkpoint every N processed
	// candidates. Defaults to 100.
	CheckpointIntervalRecords int

	// CheckpointInterval saves a checkpoint at least this often while a
	// feed is producing. Defaults to 60s.
	CheckpointInterval time.Duration

	// Bus receives lifecycle events. Optional; defaults to a fresh
	// in-memory bus.
	Bus *eventbus.Bus

	// Resources is the shared pool handed to adapters/enrichers at
	// construction time by the caller. Optional; the engine only owns
	// its lifetime (Close) when it created the pool itself, so a
	// caller-supplied pool is left open on Engine.Close.
	Resources *resourcepool.Pool

	// AdapterTimeout bounds a single adapter's Fetch. Zero means no
	// timeout. Hitting it closes that adapter with an error counted in
	// its stats, without affecting others.
	AdapterTimeout time.Duration

	// EnrichmentPolicy controls how the chain reacts to a failed
	// enricher. Defaults to ContinueOnFailure.
	EnrichmentPolicy enrichment.Policy

	// Logger defaults to zap.NewNop.
	Logger *zap.Logger

	// Clock defaults to the system clock. Injected for deterministic
	// tests.
	Clock clock.Clock
}

type orderedEnricher struct {
	order int
	seq   int
	e     enrichment.Enricher
}

// Engine implements orchestrator.Orchestrator for a single process.
type Engine struct {
	store       storage.Store
	dedup       *dedup.Engine
	bus         *eventbus.Bus
	checkpoints checkpoint.Manager
	resources   *resourcepool.Pool
	ownsPool    bool
	logger      *zap.Logger
	clk         clock.Clock

	bufferCapacity int
	maxConcurrent  int
	cpIntervalRecs int
	cpInterval     time.Duration
	adapterTimeout time.Duration
	enrichPolicy   enrichment.Policy

	mu        sync.Mutex
	adapters  []adapter.Adapter
	byName    map[string]adapter.Adapter
	enrichers []orderedEnricher
	enrichSeq int
}

// New validates cfg and builds an Engine. A missing Storage or an
// out-of-range numeric option fails with KindConfigError.
func New(cfg Config) (*Engine, error) {
	if cfg.Storage == nil {
		return nil, apperrors.New(apperrors.KindConfigError, "storage is required")
	}
	if cfg.BufferCapacity < 0 {
		return nil, apperrors.Newf(apperrors.KindConfigError, "bufferCapacity must be >= 1, got %d", cfg.BufferCapacity)
	}
	if cfg.MaxConcurrent < 0 {
		return nil, apperrors.Newf(apperrors.KindConfigError, "maxConcurrent must be >= 0, got %d", cfg.MaxConcurrent)
	}

	bufferCapacity := cfg.BufferCapacity
	if bufferCapacity == 0 {
		bufferCapacity = 1000
	}
	cpIntervalRecs := cfg.CheckpointIntervalRecords
	if cpIntervalRecs <= 0 {
		cpIntervalRecs = 100
	}
	cpInterval := cfg.CheckpointInterval
	if cpInterval <= 0 {
		cpInterval = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewReal()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = eventbus.New(logger)
	}
	resources := cfg.Resources
	ownsPool := false
	if resources == nil {
		resources = resourcepool.New(resourcepool.Config{})
		ownsPool = true
	}

	return &Engine{
		store:          cfg.Storage,
		dedup:          dedup.New(cfg.Storage, ids.Generator{}, clk),
		bus:            bus,
		checkpoints:    cfg.Checkpoints,
		resources:      resources,
		ownsPool:       ownsPool,
		logger:         logger,
		clk:            clk,
		bufferCapacity: bufferCapacity,
		maxConcurrent:  cfg.MaxConcurrent,
		cpIntervalRecs: cpIntervalRecs,
		cpInterval:     cpInterval,
		adapterTimeout: cfg.AdapterTimeout,
		enrichPolicy:   cfg.EnrichmentPolicy,
		byName:         make(map[string]adapter.Adapter),
	}, nil
}

// Resources returns the shared pool, for callers constructing adapters
// after the engine.
func (e *Engine) Resources() *resourcepool.Pool { return e.resources }

// RegisterFeed adds an adapter by its unique name. A second adapter
// with the same name fails with KindConfigError.
func (e *Engine) RegisterFeed(a adapter.Adapter) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	name := a.Name()
	if name == "" {
		return apperrors.New(apperrors.KindConfigError, "adapter name is empty")
	}
	if _, dup := e.byName[name]; dup {
		return apperrors.Newf(apperrors.KindConfigError, "feed %q is already registered", name)
	}
	e.byName[name] = a
	e.adapters = append(e.adapters, a)
	return nil
}

// RegisterEnricher inserts en into the chain at order. Lower orders run
// first; ties run in registration order.
func (e *Engine) RegisterEnricher(en enrichment.Enricher, order int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enrichSeq++
	e.enrichers = append(e.enrichers, orderedEnricher{order: order, seq: e.enrichSeq, e: en})
}

func (e *Engine) snapshot() ([]adapter.Adapter, *enrichment.Chain) {
	e.mu.Lock()
	defer e.mu.Unlock()

	adapters := make([]adapter.Adapter, len(e.adapters))
	copy(adapters, e.adapters)

	ordered := make([]orderedEnricher, len(e.enrichers))
	copy(ordered, e.enrichers)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].order != ordered[j].order {
			return ordered[i].order < ordered[j].order
		}
		return ordered[i].seq < ordered[j].seq
	})
	members := make([]enrichment.Enricher, len(ordered))
	for i, oe := range ordered {
		members[i] = oe.e
	}
	return adapters, enrichment.New(e.enrichPolicy, members...)
}

// Collect runs every registered adapter sequentially to completion or
// cancellation. It never returns an error for per-candidate or
// per-adapter failures; those are reported in the CollectionResult.
func (e *Engine) Collect(ctx context.Context) (*model.CollectionResult, error) {
	return e.collect(ctx, nil, false)
}

// CollectParallel runs every registered adapter concurrently, at most
// MaxConcurrent actively fetching.
func (e *Engine) CollectParallel(ctx context.Context) (*model.CollectionResult, error) {
	return e.collect(ctx, nil, true)
}

// CollectStream runs a parallel collection and streams each newly
// persisted Record as it is stored. Duplicates generate sightings but
// never appear on the stream. The records channel is closed when every
// adapter has finished; the result channel then receives the aggregate.
func (e *Engine) CollectStream(ctx context.Context) (<-chan model.Record, <-chan *model.CollectionResult) {
	records := make(chan model.Record, e.bufferCapacity)
	results := make(chan *model.CollectionResult, 1)
	go func() {
		result, _ := e.collect(ctx, records, true)
		close(records)
		results <- result
		close(results)
	}()
	return records, results
}

// Pipeline returns a builder over the raw candidate stream of every
// registered adapter, bypassing dedup and storage entirely.
func (e *Engine) Pipeline(ctx context.Context) *pipeline.Pipeline[model.RecordCandidate] {
	adapters, _ := e.snapshot()

	chans := make([]<-chan model.RecordCandidate, 0, len(adapters))
	for _, a := range adapters {
		a := a
		ch := make(chan model.RecordCandidate, e.bufferCapacity)
		go func() {
			if err := a.Open(ctx); err != nil {
				e.logger.Warn("adapter open failed", zap.String("feed", a.Name()), zap.Error(err))
				close(ch)
				return
			}
			defer func() {
				if err := a.Close(ctx); err != nil {
					e.logger.Warn("adapter close failed", zap.String("feed", a.Name()), zap.Error(err))
				}
			}()
			if err := a.Fetch(ctx, ch); err != nil && !isCancellation(err) {
				e.logger.Warn("adapter fetch failed", zap.String("feed", a.Name()), zap.Error(err))
			}
		}()
		chans = append(chans, ch)
	}
	return pipeline.New(ctx, pipeline.Merge(ctx, chans, e.maxConcurrent))
}

// Close closes every registered adapter and, if the engine created its
// own resource pool, the pool. Safe after any Collect* call.
func (e *Engine) Close(ctx context.Context) error {
	adapters, _ := e.snapshot()
	var firstErr error
	for _, a := range adapters {
		if err := a.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.ownsPool {
		e.resources.Close()
	}
	return firstErr
}

func (e *Engine) collect(ctx context.Context, records chan<- model.Record, parallel bool) (*model.CollectionResult, error) {
	adapters, chain := e.snapshot()
	result := model.NewCollectionResult(e.clk.Now())

	e.publish(ctx, eventbus.CollectionStarted, "", eventbus.PriorityNormal, map[string]any{
		"feeds": len(adapters),
	})

	if parallel {
		var (
			statsMu sync.Mutex
			wg      sync.WaitGroup
			sem     chan struct{}
		)
		if e.maxConcurrent > 0 {
			sem = make(chan struct{}, e.maxConcurrent)
		}
		wg.Add(len(adapters))
		for _, a := range adapters {
			a := a
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
				stats := e.runAdapter(ctx, a, chain, records)
				statsMu.Lock()
				result.AddFeedStats(stats)
				statsMu.Unlock()
			}()
		}
		wg.Wait()
	} else {
		for _, a := range adapters {
			if ctx.Err() != nil {
				break
			}
			stats := e.runAdapter(ctx, a, chain, records)
			result.AddFeedStats(stats)
			e.publish(ctx, eventbus.CollectionProgress, a.Name(), eventbus.PriorityLow, map[string]any{
				"processed": result.TotalProcessed,
				"new":       result.TotalNew,
			})
		}
	}

	forced := model.CollectionStatus("")
	if ctx.Err() != nil {
		forced = model.StatusPartial
	}
	result.Finalize(e.clk.Now(), forced)

	switch result.Status {
	case model.StatusFailed:
		e.publish(ctx, eventbus.CollectionFailed, "", eventbus.PriorityCritical, map[string]any{
			"errors": result.TotalErrors,
		})
	default:
		e.publish(ctx, eventbus.CollectionCompleted, "", eventbus.PriorityNormal, map[string]any{
			"status":     string(result.Status),
			"processed":  result.TotalProcessed,
			"new":        result.TotalNew,
			"duplicates": result.TotalDuplicate,
			"errors":     result.TotalErrors,
		})
	}
	return result, nil
}

// runAdapter executes the full per-adapter contract: open, optional
// resume, fetch/ingest/enrich loop, checkpoint policy, close. It never
// fails the collection; every failure ends up in the returned stats.
func (e *Engine) runAdapter(ctx context.Context, a adapter.Adapter, chain *enrichment.Chain, records chan<- model.Record) model.PipelineStats {
	start := e.clk.Now()
	stats := model.PipelineStats{FeedName: a.Name()}

	e.publish(ctx, eventbus.AdapterStarted, a.Name(), eventbus.PriorityNormal, nil)

	if err := a.Open(ctx); err != nil {
		stats.Errors++
		e.adapterFailed(ctx, a.Name(), err)
		e.closeAdapter(ctx, a, &stats)
		stats.Duration = e.clk.Now().Sub(start)
		return stats
	}

	e.resumeAdapter(ctx, a)

	fetchCtx := ctx
	var cancelFetch context.CancelFunc
	if e.adapterTimeout > 0 {
		fetchCtx, cancelFetch = context.WithTimeout(ctx, e.adapterTimeout)
	} else {
		fetchCtx, cancelFetch = context.WithCancel(ctx)
	}
	defer cancelFetch()

	out := make(chan model.RecordCandidate, e.bufferCapacity)
	fetchDone := make(chan error, 1)
	go func() {
		fetchDone <- a.Fetch(fetchCtx, out)
	}()

	lastSaveAt := start
	lastSaveCount := 0
	for candidate := range out {
		stats.RecordsProcessed++

		outcome, err := e.dedup.Ingest(ctx, candidate)
		if err != nil {
			stats.Errors++
			e.logger.Warn("candidate ingestion failed",
				zap.String("feed", a.Name()),
				zap.String("natural_key", candidate.NaturalKey),
				zap.Error(err))
			continue
		}

		if outcome.IsNew {
			stats.RecordsNew++
			record := e.enrich(ctx, chain, outcome.Record, a.Name(), &stats)
			e.publish(ctx, eventbus.RecordDiscovered, a.Name(), eventbus.PriorityNormal, map[string]any{
				"naturalKey": record.NaturalKey,
				"recordId":   record.RecordID,
				"layer":      record.Layer.String(),
				"content":    record.Content,
			})
			if records != nil {
				select {
				case records <- record:
				case <-ctx.Done():
				}
			}
		} else {
			stats.RecordsDuplicate++
			e.publish(ctx, eventbus.RecordDuplicate, a.Name(), eventbus.PriorityLow, map[string]any{
				"naturalKey": outcome.Record.NaturalKey,
				"recordId":   outcome.Record.RecordID,
			})
		}

		if e.shouldCheckpoint(stats.RecordsProcessed, lastSaveCount, lastSaveAt) {
			if e.saveCheckpoint(ctx, a, stats.RecordsProcessed) {
				lastSaveAt = e.clk.Now()
				lastSaveCount = stats.RecordsProcessed
			}
		}
	}

	fetchErr := <-fetchDone
	switch {
	case fetchErr == nil:
	case isCancellation(fetchErr) && ctx.Err() != nil:
		// User-initiated cancellation unwinds cleanly; it is not an
		// adapter failure.
	default:
		stats.Errors++
		e.adapterFailed(ctx, a.Name(), fetchErr)
	}

	// Flush progress on every exit path so a resumed run picks up where
	// this one stopped.
	e.saveCheckpoint(ctx, a, stats.RecordsProcessed)

	e.closeAdapter(ctx, a, &stats)
	stats.Duration = e.clk.Now().Sub(start)

	e.publish(ctx, eventbus.AdapterCompleted, a.Name(), eventbus.PriorityNormal, map[string]any{
		"processed":  stats.RecordsProcessed,
		"new":        stats.RecordsNew,
		"duplicates": stats.RecordsDuplicate,
		"errors":     stats.Errors,
	})
	return stats
}

// enrich runs the chain over a freshly created record and persists the
// result if any enricher applied. Enrichment failures are logged and
// counted but never abort the adapter loop.
func (e *Engine) enrich(ctx context.Context, chain *enrichment.Chain, record model.Record, feed string, stats *model.PipelineStats) model.Record {
	enriched, steps := chain.Run(ctx, record, e.clk.Now)

	applied := false
	for _, step := range steps {
		switch step.Result.Status {
		case model.EnrichmentApplied:
			applied = true
		case model.EnrichmentFailed:
			stats.Errors++
			e.logger.Warn("enricher failed",
				zap.String("feed", feed),
				zap.String("enricher", step.Enricher),
				zap.String("natural_key", record.NaturalKey),
				zap.Error(step.Result.Err))
		}
	}
	if !applied {
		return record
	}

	if err := e.store.Update(ctx, enriched); err != nil {
		stats.Errors++
		e.logger.Warn("persisting enrichment failed",
			zap.String("feed", feed),
			zap.String("natural_key", record.NaturalKey),
			zap.Error(err))
		return record
	}
	return enriched
}

func (e *Engine) resumeAdapter(ctx context.Context, a adapter.Adapter) {
	if e.checkpoints == nil {
		return
	}
	resumable, ok := a.(adapter.Resumable)
	if !ok {
		return
	}
	cp, found, err := e.checkpoints.Load(ctx, a.Name())
	if err != nil {
		e.logger.Warn("loading checkpoint failed", zap.String("feed", a.Name()), zap.Error(err))
		return
	}
	if !found {
		return
	}
	if err := resumable.Resume(ctx, cp); err != nil {
		e.logger.Warn("resuming from checkpoint failed", zap.String("feed", a.Name()), zap.Error(err))
	}
}

func (e *Engine) shouldCheckpoint(processed, lastSaveCount int, lastSaveAt time.Time) bool {
	if e.checkpoints == nil {
		return false
	}
	if processed-lastSaveCount >= e.cpIntervalRecs {
		return true
	}
	return e.clk.Now().Sub(lastSaveAt) >= e.cpInterval
}

// saveCheckpoint persists the adapter's current cursor, if it exposes
// one. Reports whether a save happened.
func (e *Engine) saveCheckpoint(ctx context.Context, a adapter.Adapter, processed int) bool {
	if e.checkpoints == nil {
		return false
	}
	src, ok := a.(adapter.CheckpointSource)
	if !ok {
		return false
	}
	cp := src.CurrentCheckpoint()
	cp.FeedName = a.Name()
	cp.RecordsProcessed = processed
	cp.SavedAt = e.clk.Now()
	if err := e.checkpoints.Save(ctx, cp); err != nil {
		e.logger.Warn("saving checkpoint failed", zap.String("feed", a.Name()), zap.Error(err))
		return false
	}
	return true
}

func (e *Engine) closeAdapter(ctx context.Context, a adapter.Adapter, stats *model.PipelineStats) {
	// Close must run even when ctx is already cancelled, so give it a
	// background context: cancellation must not leak adapter resources.
	closeCtx := ctx
	if ctx.Err() != nil {
		closeCtx = context.Background()
	}
	if err := a.Close(closeCtx); err != nil {
		stats.Errors++
		e.logger.Warn("adapter close failed", zap.String("feed", a.Name()), zap.Error(err))
	}
}

func (e *Engine) adapterFailed(ctx context.Context, feed string, err error) {
	e.logger.Warn("adapter failed", zap.String("feed", feed), zap.Error(err))
	e.publish(ctx, eventbus.AdapterFailed, feed, eventbus.PriorityHigh, map[string]any{
		"adapterName": feed,
		"error":       err.Error(),
	})
}

func (e *Engine) publish(ctx context.Context, typ eventbus.EventType, feed string, prio eventbus.Priority, payload map[string]any) {
	// Events must still flow while the collection context is being torn
	// down (CollectionCompleted after cancel), so publish with a
	// background context once ctx is done.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	e.bus.Publish(ctx, eventbus.Event{
		ID:        ids.NewEventID(),
		Type:      typ,
		Timestamp: e.clk.Now(),
		Source:    "orchestrator",
		Priority:  prio,
		Feed:      feed,
		Payload:   payload,
	})
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, apperrors.ErrCancelled)
}

var _ orchestrator.Orchestrator = (*Engine)(nil)

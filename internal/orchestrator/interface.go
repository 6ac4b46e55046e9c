// Package orchestrator binds adapters, storage, resources, and
// enrichers into the top-level engine: collect, collect_stream,
// collect_parallel, and a pipeline factory over raw candidates.
package orchestrator

import (
	"context"

	"github.com/feedspine/feedspine/internal/adapter"
	"github.com/feedspine/feedspine/internal/enrichment"
	"github.com/feedspine/feedspine/internal/model"
	"github.com/feedspine/feedspine/internal/pipeline"
)

// Orchestrator is the top-level FeedSpine engine.
type Orchestrator interface {
	// RegisterFeed adds an adapter by its name. Names are unique per
	// orchestrator; registering a second adapter with the same name
	// fails with KindConfigError.
	RegisterFeed(a adapter.Adapter) error

	// RegisterEnricher inserts an enricher into the enrichment chain at
	// the given order. Lower orders run first; enrichers sharing an
	// order run in registration order.
	RegisterEnricher(e enrichment.Enricher, order int)

	// Collect runs every registered adapter sequentially to completion
	// (or cancellation), returning an aggregate CollectionResult.
	Collect(ctx context.Context) (*model.CollectionResult, error)

	// CollectParallel runs every registered adapter concurrently, bounded
	// by the orchestrator's configured MaxConcurrent.
	CollectParallel(ctx context.Context) (*model.CollectionResult, error)

	// CollectStream runs every registered adapter concurrently and
	// streams each newly persisted Record as it is stored; duplicates do
	// not appear in the stream but still generate sightings. The
	// returned CollectionResult channel receives exactly one aggregate
	// result once every adapter has finished (or ctx is cancelled).
	CollectStream(ctx context.Context) (<-chan model.Record, <-chan *model.CollectionResult)

	// Pipeline returns a StreamingPipeline whose source lazily invokes
	// every registered adapter and yields all candidates, bypassing
	// dedup and storage. The caller assumes responsibility for both if
	// it consumes this instead of CollectStream.
	Pipeline(ctx context.Context) *pipeline.Pipeline[model.RecordCandidate]

	// Close releases every adapter and pool resource still held. Safe to
	// call after any Collect* method, including on a cancelled run.
	Close(ctx context.Context) error
}

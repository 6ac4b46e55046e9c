// Command feedspine runs a single collection pass over the feeds
// declared in a YAML configuration file.
//
// Usage:
//
//	feedspine -config feedspine.yaml            # Sequential collection
//	feedspine -config feedspine.yaml -parallel  # Bounded-concurrency collection
//	feedspine -config feedspine.yaml -stream    # Stream new records to stdout
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/feedspine/feedspine/internal/adapter"
	"github.com/feedspine/feedspine/internal/adapter/providers/jsonfeed"
	"github.com/feedspine/feedspine/internal/adapter/providers/rss"
	"github.com/feedspine/feedspine/internal/checkpoint"
	"github.com/feedspine/feedspine/internal/checkpoint/impl_fs"
	"github.com/feedspine/feedspine/internal/config"
	"github.com/feedspine/feedspine/internal/eventbus"
	"github.com/feedspine/feedspine/internal/model"
	orchinmem "github.com/feedspine/feedspine/internal/orchestrator/impl_inmem"
	"github.com/feedspine/feedspine/internal/resourcepool"
	"github.com/feedspine/feedspine/internal/storage"
	stinmem "github.com/feedspine/feedspine/internal/storage/impl_inmem"
	"github.com/feedspine/feedspine/internal/storage/impl_postgres"
)

func main() {
	configPath := flag.String("config", "feedspine.yaml", "Path to the YAML configuration file")
	parallel := flag.Bool("parallel", false, "Run adapters concurrently, bounded by orchestrator.maxConcurrent")
	stream := flag.Bool("stream", false, "Stream each newly persisted record to stdout as JSON")
	flag.Parse()

	if err := run(*configPath, *parallel, *stream); err != nil {
		fmt.Fprintf(os.Stderr, "feedspine: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, parallel, stream bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	var checkpoints checkpoint.Manager
	if cfg.Checkpoints.Dir != "" {
		checkpoints, err = impl_fs.New(cfg.Checkpoints.Dir)
		if err != nil {
			return err
		}
	}

	resources := resourcepool.New(resourcepool.Config{
		RequestsPerSecond: cfg.Resources.RequestsPerSecond,
		Burst:             cfg.Resources.Burst,
		MaxConcurrent:     cfg.Resources.MaxConcurrent,
		HTTPTimeout:       cfg.Resources.HTTPTimeout(),
	})

	engine, err := orchinmem.New(orchinmem.Config{
		Storage:                   store,
		BufferCapacity:            cfg.Orchestrator.BufferCapacity,
		MaxConcurrent:             cfg.Orchestrator.MaxConcurrent,
		AdapterTimeout:            cfg.Orchestrator.AdapterTimeout(),
		Checkpoints:               checkpoints,
		CheckpointIntervalRecords: cfg.Checkpoints.IntervalRecords,
		CheckpointInterval:        cfg.Checkpoints.Interval(),
		Bus:                       eventbus.New(logger),
		Resources:                 resources,
		Logger:                    logger,
	})
	if err != nil {
		return err
	}
	defer resources.Close()

	for _, feed := range cfg.Feeds {
		a, err := buildAdapter(feed, resources)
		if err != nil {
			return err
		}
		if err := engine.RegisterFeed(a); err != nil {
			return err
		}
	}

	logger.Info("starting collection", zap.String("config", cfg.String()), zap.Bool("parallel", parallel), zap.Bool("stream", stream))

	var result *model.CollectionResult
	switch {
	case stream:
		records, results := engine.CollectStream(ctx)
		enc := json.NewEncoder(os.Stdout)
		for record := range records {
			if err := enc.Encode(record); err != nil {
				logger.Warn("encoding record failed", zap.Error(err))
			}
		}
		result = <-results
	case parallel:
		result, err = engine.CollectParallel(ctx)
	default:
		result, err = engine.Collect(ctx)
	}
	if err != nil {
		return err
	}

	printSummary(result)
	if result.Status == model.StatusFailed {
		return fmt.Errorf("collection failed with %d errors", result.TotalErrors)
	}
	return nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		store := impl_postgres.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return stinmem.New(), nil
	}
}

func buildAdapter(feed config.FeedConfig, resources *resourcepool.Pool) (adapter.Adapter, error) {
	switch feed.Type {
	case "rss":
		return rss.New(feed.Name, feed.URL, resources), nil
	case "jsonfeed":
		return jsonfeed.New(jsonfeed.Config{
			Name:    feed.Name,
			URL:     feed.URL,
			Headers: feed.Headers,
			KeyFn:   jsonfeed.FieldKey(feed.KeyField),
		}, resources), nil
	default:
		return nil, fmt.Errorf("unknown feed type %q", feed.Type)
	}
}

func printSummary(result *model.CollectionResult) {
	fmt.Printf("status: %s\n", result.Status)
	fmt.Printf("processed=%d new=%d duplicate=%d errors=%d in %s\n",
		result.TotalProcessed, result.TotalNew, result.TotalDuplicate, result.TotalErrors,
		result.CompletedAt.Sub(result.StartedAt))
	for name, stats := range result.PerFeed {
		fmt.Printf("  %-20s processed=%d new=%d duplicate=%d errors=%d\n",
			name, stats.RecordsProcessed, stats.RecordsNew, stats.RecordsDuplicate, stats.Errors)
	}
}

// Package enrichment implements the EnrichmentChain: a pluggable,
// ordered sequence of transformers that promote records between
// layers.
package enrichment

import (
	"context"
	"time"

	"github.com/feedspine/feedspine/internal/apperrors"
	"github.com/feedspine/feedspine/internal/model"
)

// Enricher is one member of a Chain.
type Enricher interface {
	// Name identifies the enricher for logging and EnrichmentResult
	// attribution.
	Name() string

	// Eligible reports whether record's current state satisfies this
	// enricher's predicates (requiresLayer, requiresContent). The chain
	// skips any enricher for which Eligible returns false.
	Eligible(record model.Record) bool

	// Enrich computes the promotion for record, if any.
	Enrich(ctx context.Context, record model.Record) model.EnrichmentResult
}

// RequiresLayer builds an eligibility predicate matching records
// currently at exactly layer.
func RequiresLayer(layer model.Layer) func(model.Record) bool {
	return func(r model.Record) bool { return r.Layer == layer }
}

// RequiresContentKey builds an eligibility predicate matching records
// whose Content has key present.
func RequiresContentKey(key string) func(model.Record) bool {
	return func(r model.Record) bool {
		_, ok := r.Content[key]
		return ok
	}
}

// Policy controls how the chain reacts to a failed enricher.
type Policy int

const (
	// ContinueOnFailure runs every remaining enricher even after one
	// fails. This is the default.
	ContinueOnFailure Policy = iota
	// ShortCircuitOnFailure stops the chain at the first failed
	// enricher.
	ShortCircuitOnFailure
)

// Chain applies an ordered list of Enrichers to a Record.
type Chain struct {
	enrichers []Enricher
	policy    Policy
}

// New builds a Chain from enrichers, applied in the given order.
func New(policy Policy, enrichers ...Enricher) *Chain {
	return &Chain{enrichers: enrichers, policy: policy}
}

// StepResult pairs one enricher's name with the EnrichmentResult it
// produced, for callers that want a full audit trail of a chain run.
type StepResult struct {
	Enricher string
	Result   model.EnrichmentResult
}

// Run applies every eligible enricher in order to record, returning the
// (possibly promoted) record and the per-step results. A record
// promoted by one enricher is the input to the next, so later
// enrichers see the up-to-date layer and content. now supplies the
// UpdatedAt timestamp for each promotion.
func (c *Chain) Run(ctx context.Context, record model.Record, now func() time.Time) (model.Record, []StepResult) {
	var steps []StepResult
	current := record

	for _, enricher := range c.enrichers {
		select {
		case <-ctx.Done():
			steps = append(steps, StepResult{Enricher: enricher.Name(), Result: model.Failed(apperrors.Wrap(ctx.Err(), apperrors.KindCancelled, "enrichment chain cancelled"))})
			return current, steps
		default:
		}

		if !enricher.Eligible(current) {
			steps = append(steps, StepResult{Enricher: enricher.Name(), Result: model.Skipped("not eligible")})
			continue
		}

		result := enricher.Enrich(ctx, current)
		steps = append(steps, StepResult{Enricher: enricher.Name(), Result: result})

		switch result.Status {
		case model.EnrichmentApplied:
			if err := current.Promote(result.NewLayer, result.Enrichments, now()); err != nil {
				steps[len(steps)-1].Result = model.Failed(err)
				if c.policy == ShortCircuitOnFailure {
					return current, steps
				}
			}
		case model.EnrichmentFailed:
			if c.policy == ShortCircuitOnFailure {
				return current, steps
			}
		}
	}
	return current, steps
}

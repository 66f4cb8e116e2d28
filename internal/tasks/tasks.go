package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

// TrackResolver fetches a catalog track by id.
type TrackResolver interface {
	Track(ctx context.Context, trackID string) (*models.Track, error)
}

// HistoryRecorder stores a summary of each aggregation.
type HistoryRecorder interface {
	Record(ctx context.Context, agg *models.Aggregation) error
}

// EngineOpts contains optional collaborators for an [Engine].
type EngineOpts struct {
	Resolver TrackResolver   // Seed resolution by catalog id
	History  HistoryRecorder // Search history
	Logger   *log.Logger
}

// Engine is the single entry point for similar-track aggregation.
type Engine struct {
	merger   *Merger
	enricher *Enricher
	resolver TrackResolver
	history  HistoryRecorder
	logger   *log.Logger
}

// NewEngine creates an Engine. A nil enricher disables background enrichment.
func NewEngine(merger *Merger, enricher *Enricher, opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Engine{
		merger:   merger,
		enricher: enricher,
		resolver: opts.Resolver,
		history:  opts.History,
		logger:   shared.WithLogger(opts.Logger, "component", "engine"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Aggregate returns the ranked first-pass result for seed and a channel of enrichment snapshots.
//
// The only error is [shared.ErrInvalidSeed]. Provider failures degrade the result, down to an empty list.
// The snapshot channel is always non-nil and is closed when enrichment ends or ctx is done.
func (e *Engine) Aggregate(ctx context.Context, seed models.Seed) (models.ResultSet, <-chan models.ResultSet, error) {
	return e.AggregateWithProgress(ctx, seed, nil)
}

// AggregateWithProgress is [Engine.Aggregate] with progress reporting.
// progress is never closed by the engine.
func (e *Engine) AggregateWithProgress(ctx context.Context, seed models.Seed, progress chan<- ProgressUpdate) (models.ResultSet, <-chan models.ResultSet, error) {
	if err := seed.Validate(); err != nil {
		return nil, nil, err
	}
	if e.merger == nil {
		return nil, nil, fmt.Errorf("%w: merger not initialized", shared.ErrServiceUnavailable)
	}

	logger := shared.WithLogger(e.logger, "seed", seed.Name, "artist", seed.Artist)

	e.sendProgress(progress, fetchProvidersUpdate(seed))
	merged, outcome := e.merger.MergeWithOutcome(ctx, seed)
	e.sendProgress(progress, mergeUpdate(len(merged), outcome))

	ranked := Rank(merged)
	e.sendProgress(progress, rankUpdate(ranked))
	logger.Info("aggregated", "candidates", len(ranked), "missing_art", ranked.Missing())

	if e.history != nil {
		if err := e.history.Record(ctx, models.NewAggregation(seed, ranked, outcome)); err != nil {
			logger.Warn("failed to record aggregation", "error", err)
		}
	}

	if e.enricher == nil || ranked.Missing() == 0 {
		e.sendProgress(progress, doneUpdate(0))
		return ranked, closed(), nil
	}

	total := e.enricher.Batches(ranked)
	snapshots := e.enricher.Enrich(ctx, ranked)
	if progress == nil {
		return ranked, snapshots, nil
	}

	out := make(chan models.ResultSet)
	go func() {
		defer close(out)
		step := 0
		for snap := range snapshots {
			step++
			e.sendProgress(progress, enrichBatchUpdate(step, total, snap))
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
		e.sendProgress(progress, doneUpdate(step))
	}()
	return ranked, out, nil
}

// ResolveSeed builds a seed from a catalog track id.
func (e *Engine) ResolveSeed(ctx context.Context, trackID string) (models.Seed, error) {
	if e.resolver == nil {
		return models.Seed{}, fmt.Errorf("%w: catalog not configured", shared.ErrServiceUnavailable)
	}
	track, err := e.resolver.Track(ctx, trackID)
	if err != nil {
		return models.Seed{}, err
	}
	return track.Seed(), nil
}

// Collect drains snapshots and returns them in order.
func Collect(snapshots <-chan models.ResultSet) []models.ResultSet {
	var out []models.ResultSet
	for s := range snapshots {
		out = append(out, s)
	}
	return out
}

// Final drains snapshots and returns the last one, or initial when none were published.
func Final(initial models.ResultSet, snapshots <-chan models.ResultSet) models.ResultSet {
	last := initial
	for s := range snapshots {
		last = s
	}
	return last
}

func closed() <-chan models.ResultSet {
	ch := make(chan models.ResultSet)
	close(ch)
	return ch
}

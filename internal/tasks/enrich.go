package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is both the enrichment batch size and the lookup concurrency limit.
	DefaultBatchSize     = 5
	DefaultLookupTimeout = 5 * time.Second
)

// CatalogSearcher finds the best catalog match for a free-text query.
// A nil track with a nil error means no match.
type CatalogSearcher interface {
	Lookup(ctx context.Context, query string) (*models.Track, error)
}

// EnricherOpts configures an [Enricher].
type EnricherOpts struct {
	BatchSize     int           // Lookups per batch and max in flight (default and maximum: 5)
	LookupTimeout time.Duration // Per-lookup timeout (default: 5s)
	Logger        *log.Logger
}

// Enricher fills missing presentation metadata from the catalog in bounded batches.
type Enricher struct {
	catalog       CatalogSearcher
	batchSize     int
	lookupTimeout time.Duration
	logger        *log.Logger
}

// NewEnricher creates an Enricher backed by catalog.
func NewEnricher(catalog CatalogSearcher, opts EnricherOpts) *Enricher {
	if opts.BatchSize <= 0 || opts.BatchSize > DefaultBatchSize {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Enricher{
		catalog:       catalog,
		batchSize:     opts.BatchSize,
		lookupTimeout: opts.LookupTimeout,
		logger:        shared.WithLogger(opts.Logger, "component", "enricher"),
	}
}

// Batches returns how many snapshots [Enricher.Enrich] will publish for rs.
func (e *Enricher) Batches(rs models.ResultSet) int {
	n := rs.Missing()
	return (n + e.batchSize - 1) / e.batchSize
}

// Enrich looks up every candidate without album art and publishes one snapshot per completed batch.
//
// The channel is closed after the last batch. Enrich works on its own copy of rs;
// each snapshot is an independent copy owned by the receiver.
// Once ctx is done no further batches are started and the channel is closed.
func (e *Enricher) Enrich(ctx context.Context, rs models.ResultSet) <-chan models.ResultSet {
	out := make(chan models.ResultSet)
	working := rs.Clone()

	var pending []int
	for i, c := range working {
		if c.NeedsEnrichment() {
			pending = append(pending, i)
		}
	}

	go func() {
		defer close(out)
		if e.catalog == nil {
			return
		}

		for start := 0; start < len(pending); start += e.batchSize {
			if ctx.Err() != nil {
				return
			}

			batch := pending[start:min(start+e.batchSize, len(pending))]
			e.runBatch(ctx, working, batch)

			select {
			case out <- working.Clone():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// runBatch looks up each indexed candidate concurrently and fills the matches into working.
func (e *Enricher) runBatch(ctx context.Context, working models.ResultSet, batch []int) {
	matches := make([]*models.Track, len(batch))

	var g errgroup.Group
	g.SetLimit(e.batchSize)
	for i, idx := range batch {
		c := working[idx]
		g.Go(func() error {
			matches[i] = e.lookup(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	for i, idx := range batch {
		working[idx].Fill(matches[i])
	}
}

// lookup never fails: errors, panics and misses all leave the candidate unenriched.
func (e *Enricher) lookup(ctx context.Context, c models.Candidate) (track *models.Track) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("lookup panicked", "name", c.Name, "panic", r)
			track = nil
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	track, err := e.catalog.Lookup(ctx, c.Name+" "+c.Artist)
	if err != nil {
		e.logger.Debug("enrichment miss", "name", c.Name, "artist", c.Artist, "error", err)
		return nil
	}
	if track == nil {
		e.logger.Debug("enrichment miss", "name", c.Name, "artist", c.Artist)
	}
	return track
}

package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

// DefaultProviderTimeout bounds each provider call during fan-out.
const DefaultProviderTimeout = 20 * time.Second

// Reasons attached at merge time.
const (
	ReasonVerified          = "Community verified"
	ReasonStructured        = "Similar on Last.fm"
	ReasonStructuredAndText = "Matched by AI & Last.fm"
	ReasonText              = "AI suggested"
)

// ProviderClient is a source of raw candidates for a seed.
//
// Implementations must not return errors or panic past FetchCandidates; failures are reported as ok=false.
type ProviderClient interface {
	Name() string
	FetchCandidates(ctx context.Context, seed models.Seed) ([]models.RawCandidate, bool)
}

// MergerOpts configures a [Merger].
type MergerOpts struct {
	Timeout time.Duration // Per-provider timeout (default: [DefaultProviderTimeout])
	Logger  *log.Logger
}

// Merger fans out to the three providers and merges their results by dedup key.
type Merger struct {
	verified   ProviderClient
	structured ProviderClient
	text       ProviderClient
	timeout    time.Duration
	logger     *log.Logger
}

type providerResult struct {
	items []models.RawCandidate
	ok    bool
}

// NewMerger creates a Merger. A nil provider is treated as one that always fails.
func NewMerger(verified, structured, text ProviderClient, opts MergerOpts) *Merger {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProviderTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Merger{
		verified:   verified,
		structured: structured,
		text:       text,
		timeout:    opts.Timeout,
		logger:     shared.WithLogger(opts.Logger, "component", "merger"),
	}
}

// Merge queries all providers concurrently and returns the merged, unranked result set.
//
// All providers failing yields an empty set.
func (m *Merger) Merge(ctx context.Context, seed models.Seed) models.ResultSet {
	rs, _ := m.MergeWithOutcome(ctx, seed)
	return rs
}

// MergeWithOutcome is [Merger.Merge] that also reports which providers answered.
func (m *Merger) MergeWithOutcome(ctx context.Context, seed models.Seed) (models.ResultSet, models.ProviderOutcome) {
	var (
		wg                        sync.WaitGroup
		verified, structured, txt providerResult
	)

	wg.Add(3)
	go func() { defer wg.Done(); verified = m.fetch(ctx, m.verified, seed) }()
	go func() { defer wg.Done(); structured = m.fetch(ctx, m.structured, seed) }()
	go func() { defer wg.Done(); txt = m.fetch(ctx, m.text, seed) }()
	wg.Wait()

	outcome := models.ProviderOutcome{Verified: verified.ok, Structured: structured.ok, Text: txt.ok}
	if outcome.Failed() {
		m.logger.Warn("all providers failed", "seed", seed.Name, "artist", seed.Artist)
	}

	rs := combine(verified.items, structured.items, txt.items)
	m.logger.Debug("merged candidates",
		"verified", len(verified.items), "structured", len(structured.items), "text", len(txt.items), "merged", len(rs))
	return rs, outcome
}

// fetch calls one provider under the per-call timeout.
// A provider that ignores cancellation is abandoned when the timeout fires.
func (m *Merger) fetch(ctx context.Context, p ProviderClient, seed models.Seed) providerResult {
	if p == nil {
		return providerResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan providerResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Warn("provider panicked", "provider", p.Name(), "panic", r)
				done <- providerResult{}
			}
		}()
		items, ok := p.FetchCandidates(ctx, seed)
		done <- providerResult{items: items, ok: ok}
	}()

	select {
	case r := <-done:
		if !r.ok {
			r.items = nil
		}
		return r
	case <-ctx.Done():
		m.logger.Warn("provider timed out", "provider", p.Name(), "error", ctx.Err())
		return providerResult{}
	}
}

// combine merges raw results in priority order: verified, then structured, then text.
// The first source to claim a key keeps it.
func combine(verified, structured, text []models.RawCandidate) models.ResultSet {
	total := len(verified) + len(structured) + len(text)
	seen := make(map[string]struct{}, total)
	out := make(models.ResultSet, 0, total)

	textReasons := make(map[string]string, len(text))
	for _, rc := range text {
		k := Key(rc.Name, rc.Artist)
		if _, ok := textReasons[k]; !ok {
			textReasons[k] = rc.Reason
		}
	}

	claim := func(rc models.RawCandidate) bool {
		k := Key(rc.Name, rc.Artist)
		if _, ok := seen[k]; ok {
			return false
		}
		seen[k] = struct{}{}
		return true
	}

	for _, rc := range verified {
		if !claim(rc) {
			continue
		}
		c := newCandidate(rc, models.ProvenanceVerified, orDefault(rc.Reason, ReasonVerified))
		if rc.Upvotes != nil {
			v := *rc.Upvotes
			c.CommunityUpvotes = &v
		}
		out = append(out, c)
	}

	for _, rc := range structured {
		if !claim(rc) {
			continue
		}
		if reason, ok := textReasons[Key(rc.Name, rc.Artist)]; ok {
			reasons := []string{ReasonStructuredAndText}
			if reason != "" {
				reasons = append(reasons, reason)
			}
			out = append(out, newCandidate(rc, models.ProvenanceStructuredAndText, reasons...))
			continue
		}
		out = append(out, newCandidate(rc, models.ProvenanceStructured, ReasonStructured))
	}

	for _, rc := range text {
		if !claim(rc) {
			continue
		}
		out = append(out, newCandidate(rc, models.ProvenanceText, orDefault(rc.Reason, ReasonText)))
	}

	return out
}

func newCandidate(rc models.RawCandidate, p models.Provenance, reasons ...string) models.Candidate {
	return models.Candidate{
		Name:         rc.Name,
		Artist:       rc.Artist,
		ExternalID:   rc.ExternalID,
		Presentation: rc.Presentation,
		Provenance:   p,
		MatchReasons: reasons,
		Confidence:   p.Confidence(),
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

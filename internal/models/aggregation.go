package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/dejavu/internal/shared"
)

// ProviderOutcome records which providers answered during one fan-out.
type ProviderOutcome struct {
	Verified   bool `json:"verified"`
	Structured bool `json:"structured"`
	Text       bool `json:"text"`
}

// Failed reports whether every provider failed.
func (o ProviderOutcome) Failed() bool {
	return !o.Verified && !o.Structured && !o.Text
}

// Aggregation is the persisted summary of one aggregate call, kept as search history.
type Aggregation struct {
	id         string
	seed       Seed
	candidates int
	verified   int
	outcome    ProviderOutcome
	createdAt  time.Time
}

// NewAggregation summarizes the first-pass result for seed.
func NewAggregation(seed Seed, rs ResultSet, outcome ProviderOutcome) *Aggregation {
	verified := 0
	for _, c := range rs {
		if c.Provenance == ProvenanceVerified {
			verified++
		}
	}
	return &Aggregation{
		seed:       seed,
		candidates: len(rs),
		verified:   verified,
		outcome:    outcome,
		createdAt:  time.Now(),
	}
}

// RestoreAggregation rebuilds an aggregation read from storage.
func RestoreAggregation(id string, seed Seed, candidates, verified int, outcome ProviderOutcome, createdAt time.Time) *Aggregation {
	return &Aggregation{id: id, seed: seed, candidates: candidates, verified: verified, outcome: outcome, createdAt: createdAt}
}

func (a *Aggregation) ID() string               { return a.id }
func (a *Aggregation) Seed() Seed               { return a.seed }
func (a *Aggregation) Candidates() int          { return a.candidates }
func (a *Aggregation) Verified() int            { return a.verified }
func (a *Aggregation) Outcome() ProviderOutcome { return a.outcome }
func (a *Aggregation) CreatedAt() time.Time     { return a.createdAt }
func (a *Aggregation) UpdatedAt() time.Time     { return a.createdAt }
func (a *Aggregation) SetID(id string)          { a.id = id }

// Validate requires a valid seed and non-negative counts.
func (a *Aggregation) Validate() error {
	if err := a.seed.Validate(); err != nil {
		return err
	}
	if a.candidates < 0 || a.verified < 0 || a.verified > a.candidates {
		return fmt.Errorf("%w: inconsistent candidate counts", shared.ErrInvalidInput)
	}
	return nil
}

// String renders a one-line summary.
func (a *Aggregation) String() string {
	var sources []string
	if a.outcome.Verified {
		sources = append(sources, "verified")
	}
	if a.outcome.Structured {
		sources = append(sources, "structured")
	}
	if a.outcome.Text {
		sources = append(sources, "text")
	}
	if len(sources) == 0 {
		sources = append(sources, "none")
	}
	return fmt.Sprintf("%s - %s: %d candidates (%s)", a.seed.Name, a.seed.Artist, a.candidates, strings.Join(sources, ", "))
}

package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/dejavu/internal/shared"
)

// Provenance records which provider(s) contributed a [Candidate].
type Provenance string

const (
	ProvenanceVerified          Provenance = "community"
	ProvenanceStructured        Provenance = "lastfm"
	ProvenanceText              Provenance = "ai"
	ProvenanceStructuredAndText Provenance = "both"
)

// String returns a display label for the provenance.
func (p Provenance) String() string {
	switch p {
	case ProvenanceVerified:
		return "Community"
	case ProvenanceStructured:
		return "Last.fm"
	case ProvenanceText:
		return "AI"
	case ProvenanceStructuredAndText:
		return "Last.fm + AI"
	default:
		return string(p)
	}
}

// Confidence returns the fixed merge confidence for the provenance class.
func (p Provenance) Confidence() float64 {
	switch p {
	case ProvenanceVerified:
		return 1.0
	case ProvenanceStructuredAndText:
		return 0.85
	case ProvenanceStructured:
		return 0.6
	case ProvenanceText:
		return 0.5
	default:
		return 0
	}
}

// Seed is the reference track a similarity search runs against.
//
// ID is the optional catalog identifier of the reference track; it keys verified connections.
type Seed struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// Validate reports [shared.ErrInvalidSeed] when name or artist is blank.
func (s Seed) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", shared.ErrInvalidSeed)
	}
	if strings.TrimSpace(s.Artist) == "" {
		return fmt.Errorf("%w: artist is required", shared.ErrInvalidSeed)
	}
	return nil
}

// Presentation holds display metadata filled by providers or enrichment.
type Presentation struct {
	AlbumArt    string `json:"album_art"`
	AlbumName   string `json:"album_name"`
	PreviewURL  string `json:"preview_url"`
	ExternalURL string `json:"external_url"`
}

// RawCandidate is a single, unmerged result from a provider.
type RawCandidate struct {
	Name       string
	Artist     string
	ExternalID string
	Reason     string
	Upvotes    *int
	Presentation
}

// Candidate is a discovered similar track after merge.
type Candidate struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	ExternalID string `json:"id"`
	Presentation
	Provenance       Provenance `json:"source"`
	MatchReasons     []string   `json:"match_reasons"`
	Confidence       float64    `json:"confidence"`
	CommunityUpvotes *int       `json:"community_upvotes,omitempty"`
}

// NeedsEnrichment reports whether the candidate is missing album art.
func (c Candidate) NeedsEnrichment() bool {
	return c.AlbumArt == ""
}

// Fill copies catalog fields onto the candidate, keeping any value already set.
func (c *Candidate) Fill(t *Track) {
	if t == nil {
		return
	}
	if c.ExternalID == "" {
		c.ExternalID = t.ID
	}
	if c.AlbumArt == "" {
		c.AlbumArt = t.AlbumArt
	}
	if c.AlbumName == "" {
		c.AlbumName = t.AlbumName
	}
	if c.PreviewURL == "" {
		c.PreviewURL = t.PreviewURL
	}
	if c.ExternalURL == "" {
		c.ExternalURL = t.ExternalURL
	}
}

// ResultSet is a ranked, request-scoped list of candidates.
type ResultSet []Candidate

// Clone returns a deep copy so snapshots never share mutable state.
func (rs ResultSet) Clone() ResultSet {
	if rs == nil {
		return nil
	}
	out := make(ResultSet, len(rs))
	for i, c := range rs {
		c.MatchReasons = append([]string(nil), c.MatchReasons...)
		if c.CommunityUpvotes != nil {
			v := *c.CommunityUpvotes
			c.CommunityUpvotes = &v
		}
		out[i] = c
	}
	return out
}

// Missing counts candidates still without album art.
func (rs ResultSet) Missing() int {
	n := 0
	for _, c := range rs {
		if c.NeedsEnrichment() {
			n++
		}
	}
	return n
}

// Track is a catalog track as returned by search or lookup.
type Track struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	ArtistID    string `json:"artist_id"`
	AlbumArt    string `json:"album_art"`
	AlbumName   string `json:"album_name"`
	PreviewURL  string `json:"preview_url"`
	ExternalURL string `json:"external_url"`
}

// Seed converts the track into a [Seed] keyed by its catalog id.
func (t Track) Seed() Seed {
	return Seed{ID: t.ID, Name: t.Name, Artist: t.Artist}
}

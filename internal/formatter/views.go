package formatter

import (
	"time"

	"github.com/desertthunder/dejavu/internal/models"
)

type resultsDoc struct {
	Seed    models.Seed      `json:"seed"`
	Results models.ResultSet `json:"results"`
}

// candidateView flattens a candidate for YAML output.
type candidateView struct {
	Name             string   `json:"name" yaml:"name"`
	Artist           string   `json:"artist" yaml:"artist"`
	ID               string   `json:"id,omitempty" yaml:"id,omitempty"`
	Source           string   `json:"source" yaml:"source"`
	Confidence       float64  `json:"confidence" yaml:"confidence"`
	MatchReasons     []string `json:"match_reasons" yaml:"match_reasons"`
	CommunityUpvotes *int     `json:"community_upvotes,omitempty" yaml:"community_upvotes,omitempty"`
	AlbumArt         string   `json:"album_art,omitempty" yaml:"album_art,omitempty"`
	AlbumName        string   `json:"album_name,omitempty" yaml:"album_name,omitempty"`
	PreviewURL       string   `json:"preview_url,omitempty" yaml:"preview_url,omitempty"`
	ExternalURL      string   `json:"external_url,omitempty" yaml:"external_url,omitempty"`
}

type resultsView struct {
	Seed    seedView        `yaml:"seed"`
	Results []candidateView `yaml:"results"`
}

type seedView struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Name   string `json:"name" yaml:"name"`
	Artist string `json:"artist" yaml:"artist"`
}

type trackView struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Artist      string `yaml:"artist"`
	AlbumName   string `yaml:"album_name,omitempty"`
	AlbumArt    string `yaml:"album_art,omitempty"`
	PreviewURL  string `yaml:"preview_url,omitempty"`
	ExternalURL string `yaml:"external_url,omitempty"`
}

// ConnectionView is the wire form of a [models.Connection].
type ConnectionView struct {
	ID        string    `json:"id" yaml:"id"`
	Source    seedView  `json:"source" yaml:"source"`
	Similar   seedView  `json:"similar" yaml:"similar"`
	Reason    string    `json:"reason" yaml:"reason"`
	CreatedBy string    `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	Upvotes   int       `json:"upvotes" yaml:"upvotes"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// HistoryView is the wire form of a [models.Aggregation].
type HistoryView struct {
	ID         string                 `json:"id" yaml:"id"`
	Seed       seedView               `json:"seed" yaml:"seed"`
	Candidates int                    `json:"candidates" yaml:"candidates"`
	Verified   int                    `json:"verified" yaml:"verified"`
	Outcome    models.ProviderOutcome `json:"providers" yaml:"providers"`
	CreatedAt  time.Time              `json:"created_at" yaml:"created_at"`
}

func newSeedView(s models.Seed) seedView {
	return seedView{ID: s.ID, Name: s.Name, Artist: s.Artist}
}

func newResultsView(seed models.Seed, rs models.ResultSet) resultsView {
	out := resultsView{Seed: newSeedView(seed), Results: make([]candidateView, 0, len(rs))}
	for _, c := range rs {
		out.Results = append(out.Results, candidateView{
			Name:             c.Name,
			Artist:           c.Artist,
			ID:               c.ExternalID,
			Source:           string(c.Provenance),
			Confidence:       c.Confidence,
			MatchReasons:     c.MatchReasons,
			CommunityUpvotes: c.CommunityUpvotes,
			AlbumArt:         c.AlbumArt,
			AlbumName:        c.AlbumName,
			PreviewURL:       c.PreviewURL,
			ExternalURL:      c.ExternalURL,
		})
	}
	return out
}

func newTrackViews(tracks []models.Track) []trackView {
	out := make([]trackView, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, trackView{
			ID:          t.ID,
			Name:        t.Name,
			Artist:      t.Artist,
			AlbumName:   t.AlbumName,
			AlbumArt:    t.AlbumArt,
			PreviewURL:  t.PreviewURL,
			ExternalURL: t.ExternalURL,
		})
	}
	return out
}

func NewConnectionViews(conns []*models.Connection) []ConnectionView {
	out := make([]ConnectionView, 0, len(conns))
	for _, c := range conns {
		src, sim := c.Source(), c.Similar()
		out = append(out, ConnectionView{
			ID:        c.ID(),
			Source:    seedView{ID: src.ID, Name: src.Name, Artist: src.Artist},
			Similar:   seedView{ID: sim.ID, Name: sim.Name, Artist: sim.Artist},
			Reason:    c.Reason(),
			CreatedBy: c.CreatedBy(),
			Upvotes:   c.Upvotes(),
			CreatedAt: c.CreatedAt(),
		})
	}
	return out
}

func NewHistoryViews(aggs []*models.Aggregation) []HistoryView {
	out := make([]HistoryView, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, HistoryView{
			ID:         a.ID(),
			Seed:       newSeedView(a.Seed()),
			Candidates: a.Candidates(),
			Verified:   a.Verified(),
			Outcome:    a.Outcome(),
			CreatedAt:  a.CreatedAt(),
		})
	}
	return out
}

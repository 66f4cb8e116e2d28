package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

const (
	lastfmBaseURL = "https://ws.audioscrobbler.com/2.0"
	// DefaultSimilarLimit is the number of similar tracks requested from Last.fm.
	DefaultSimilarLimit = 20
	// lastfmArtIndex selects the "large" entry of a Last.fm image list.
	lastfmArtIndex = 2
)

type lastfmImage struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

type lastfmArtist struct {
	Name string `json:"name"`
	MBID string `json:"mbid"`
}

// LastFMTrack is one entry of a track.getsimilar response.
type LastFMTrack struct {
	Name   string        `json:"name"`
	URL    string        `json:"url"`
	Artist *lastfmArtist `json:"artist"`
	Image  []lastfmImage `json:"image"`
}

type lastfmSimilarResponse struct {
	SimilarTracks *struct {
		Track []LastFMTrack `json:"track"`
	} `json:"similartracks"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// Candidate maps a Last.fm track onto a raw candidate, tolerating missing artist and art.
func (t LastFMTrack) Candidate() models.RawCandidate {
	rc := models.RawCandidate{
		Name:   t.Name,
		Artist: "Unknown",
	}
	if t.Artist != nil && t.Artist.Name != "" {
		rc.Artist = t.Artist.Name
	}
	if len(t.Image) > lastfmArtIndex {
		rc.AlbumArt = t.Image[lastfmArtIndex].URL
	}
	rc.ExternalURL = t.URL
	return rc
}

// LastFMService is the structured similarity provider backed by track.getsimilar.
type LastFMService struct {
	apiKey     string
	limit      int
	limiter    *RateLimiterMap
	httpClient *http.Client
	logger     *log.Logger
	baseURL    string
}

// NewLastFMService creates a Last.fm provider with the default base URL.
func NewLastFMService(apiKey string, limit int, limiter *RateLimiterMap, logger *log.Logger) *LastFMService {
	return NewLastFMServiceWithBaseURL(apiKey, limit, limiter, logger, lastfmBaseURL)
}

// NewLastFMServiceWithBaseURL creates a Last.fm provider with a custom base URL (for testing).
func NewLastFMServiceWithBaseURL(apiKey string, limit int, limiter *RateLimiterMap, logger *log.Logger, baseURL string) *LastFMService {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LastFMService{
		apiKey:     apiKey,
		limit:      limit,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     shared.WithLogger(logger, "provider", NameLastFM),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (s *LastFMService) Name() string { return string(NameLastFM) }

// FetchCandidates implements the provider contract: failures are logged and reported as ok=false.
func (s *LastFMService) FetchCandidates(ctx context.Context, seed models.Seed) ([]models.RawCandidate, bool) {
	return collect(ctx, s.logger, NameLastFM, func(ctx context.Context) ([]models.RawCandidate, error) {
		return s.SimilarTracks(ctx, seed)
	})
}

// SimilarTracks returns Last.fm's similar tracks for the seed.
func (s *LastFMService) SimilarTracks(ctx context.Context, seed models.Seed) ([]models.RawCandidate, error) {
	if s.apiKey == "" {
		return nil, &ProviderError{Provider: NameLastFM, Err: shared.ErrMissingCredentials}
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx, NameLastFM); err != nil {
		return nil, unavailable(NameLastFM, fmt.Errorf("rate limiter: %w", err))
	}

	params := url.Values{
		"method":  {"track.getsimilar"},
		"artist":  {seed.Artist},
		"track":   {seed.Name},
		"api_key": {s.apiKey},
		"format":  {"json"},
		"limit":   {strconv.Itoa(s.limit)},
	}

	var resp lastfmSimilarResponse
	if err := s.doRequest(ctx, s.baseURL+"/?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Error != 0 {
		return nil, unavailable(NameLastFM, fmt.Errorf("error %d: %s", resp.Error, resp.Message))
	}
	if resp.SimilarTracks == nil {
		return []models.RawCandidate{}, nil
	}

	out := make([]models.RawCandidate, 0, len(resp.SimilarTracks.Track))
	for _, t := range resp.SimilarTracks.Track {
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		out = append(out, t.Candidate())
	}
	return out, nil
}

func (s *LastFMService) doRequest(ctx context.Context, reqURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return unavailable(NameLastFM, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body)
	if err != nil {
		return unavailable(NameLastFM, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(NameLastFM, resp)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return malformed(NameLastFM, err)
	}
	return nil
}

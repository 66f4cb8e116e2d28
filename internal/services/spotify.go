// Spotify Web API catalog client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
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
	spotifyBaseURL     = "https://api.spotify.com/v1"
	DefaultSearchLimit = 8
	maxSearchLimit     = 50
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	PreviewURL   *string         `json:"preview_url"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// Track maps the Spotify payload onto a catalog [models.Track].
//
// The first artist and the largest (first) album image are used; a missing artist becomes "Unknown".
func (t SpotifyTrack) Track() models.Track {
	track := models.Track{
		ID:          t.ID,
		Name:        t.Name,
		Artist:      "Unknown",
		AlbumName:   t.Album.Name,
		ExternalURL: t.ExternalURLs.Spotify,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
		track.ArtistID = t.Artists[0].ID
	}
	if len(t.Album.Images) > 0 {
		track.AlbumArt = t.Album.Images[0].URL
	}
	if t.PreviewURL != nil {
		track.PreviewURL = *t.PreviewURL
	}
	return track
}

// Tokener supplies bearer tokens, typically a [TokenCache].
type Tokener interface {
	Token(ctx context.Context) (string, time.Time, error)
}

// SpotifyService is the canonical catalog: track search, track by id and best-match lookup.
type SpotifyService struct {
	tokens     Tokener
	limiter    *RateLimiterMap
	httpClient *http.Client
	logger     *log.Logger
	baseURL    string
}

// NewSpotifyService creates a catalog client against the public Spotify API.
func NewSpotifyService(tokens Tokener, limiter *RateLimiterMap, logger *log.Logger) *SpotifyService {
	return NewSpotifyServiceWithBaseURL(tokens, limiter, logger, spotifyBaseURL)
}

// NewSpotifyServiceWithBaseURL creates a catalog client with a custom base URL (for testing).
func NewSpotifyServiceWithBaseURL(tokens Tokener, limiter *RateLimiterMap, logger *log.Logger, baseURL string) *SpotifyService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyService{
		tokens:     tokens,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     shared.WithLogger(logger, "provider", NameSpotify),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the display name of the service.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Search returns up to limit catalog tracks matching query.
//
// A non-positive limit uses [DefaultSearchLimit]; an empty query is [shared.ErrInvalidInput].
func (s *SpotifyService) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", shared.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	params := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {strconv.Itoa(limit)},
	}

	var resp spotifySearchResponse
	if err := s.doRequest(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(resp.Tracks.Items))
	for _, item := range resp.Tracks.Items {
		tracks = append(tracks, item.Track())
	}
	return tracks, nil
}

// Track retrieves a single catalog track by its Spotify ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*models.Track, error) {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id is required", shared.ErrInvalidInput)
	}

	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), nil, &track); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
		}
		return nil, err
	}

	t := track.Track()
	return &t, nil
}

// Lookup returns the best catalog match for free-text query, or nil when nothing matches.
func (s *SpotifyService) Lookup(ctx context.Context, query string) (*models.Track, error) {
	tracks, err := s.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, nil
	}
	return &tracks[0], nil
}

// doRequest performs an authenticated GET request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if s.tokens == nil {
		return &ProviderError{Provider: NameSpotify, Err: shared.ErrMissingCredentials}
	}

	if err := s.limiter.Wait(ctx, NameSpotify); err != nil {
		return unavailable(NameSpotify, fmt.Errorf("rate limiter: %w", err))
	}

	token, _, err := s.tokens.Token(ctx)
	if err != nil {
		return unavailable(NameSpotify, err)
	}

	apiURL := s.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return unavailable(NameSpotify, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Debug("spotify API error", "endpoint", endpoint, "status", resp.StatusCode)
		return statusError(NameSpotify, resp)
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return unavailable(NameSpotify, fmt.Errorf("reading response: %w", err))
	}
	if err := json.Unmarshal(body, result); err != nil {
		return malformed(NameSpotify, err)
	}
	return nil
}

// package services implements the upstream adapters used by the aggregation engine
//
// Spotify (catalog search), Last.fm (structured similarity), LLM suggestions (free text)
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

// ProviderName identifies an upstream service.
type ProviderName string

const (
	NameSpotify     ProviderName = "spotify"
	NameLastFM      ProviderName = "lastfm"
	NameSuggestions ProviderName = "suggestions"
	NameVerified    ProviderName = "verified"
)

// maxBodySize caps how much of an upstream response body is read.
const maxBodySize = 1 << 20

const userAgent = "dejavu/1.0 (+https://github.com/desertthunder/dejavu)"

// ProviderError records a failed upstream call.
//
// Err wraps one of [shared.ErrProviderUnavailable], [shared.ErrMalformedResponse] or [shared.ErrMissingCredentials].
type ProviderError struct {
	Provider   ProviderName
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func unavailable(name ProviderName, cause error) *ProviderError {
	return &ProviderError{Provider: name, Err: fmt.Errorf("%w: %w", shared.ErrProviderUnavailable, cause)}
}

func malformed(name ProviderName, cause error) *ProviderError {
	return &ProviderError{Provider: name, Err: fmt.Errorf("%w: %w", shared.ErrMalformedResponse, cause)}
}

// statusError maps a non-2xx response to a [ProviderError], honouring Retry-After on 429.
func statusError(name ProviderName, resp *http.Response) *ProviderError {
	pe := &ProviderError{Provider: name, StatusCode: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		pe.Err = fmt.Errorf("%w: %w", shared.ErrProviderUnavailable, shared.ErrAuthFailed)
	case resp.StatusCode == http.StatusNotFound:
		pe.Err = fmt.Errorf("%w: %w", shared.ErrProviderUnavailable, shared.ErrNotFound)
	default:
		pe.Err = fmt.Errorf("%w: %w", shared.ErrProviderUnavailable, shared.ErrAPIRequest)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			pe.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return pe
}

// readBody reads a bounded response body, draining it for connection reuse.
func readBody(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBodySize))
}

// IsNotFound reports whether err came from a 404 upstream response.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

// collect runs fetch and converts any error or panic into ok=false, logging at WARN.
func collect(ctx context.Context, logger *log.Logger, name ProviderName, fetch func(context.Context) ([]models.RawCandidate, error)) (out []models.RawCandidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("provider panicked", "provider", name, "panic", r)
			out, ok = nil, false
		}
	}()

	items, err := fetch(ctx)
	if err != nil {
		logger.Warn("provider failed", "provider", name, "error", err)
		return nil, false
	}
	return items, true
}

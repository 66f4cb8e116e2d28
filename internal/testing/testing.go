// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/dejavu/internal/models"
)

// MockProvider is a test double for a candidate provider
type MockProvider struct {
	ProviderName string
	Items        []models.RawCandidate
	Fail         bool          // Report ok=false
	Panic        bool          // Panic inside FetchCandidates
	Delay        time.Duration // Block before answering, ignoring ctx when Stubborn is set
	Stubborn     bool
	calls        atomic.Int32
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) FetchCandidates(ctx context.Context, seed models.Seed) ([]models.RawCandidate, bool) {
	m.calls.Add(1)
	if m.Panic {
		panic("mock provider exploded")
	}
	if m.Delay > 0 {
		if m.Stubborn {
			time.Sleep(m.Delay)
		} else {
			select {
			case <-time.After(m.Delay):
			case <-ctx.Done():
				return nil, false
			}
		}
	}
	if m.Fail {
		return nil, false
	}
	return m.Items, true
}

// Calls returns how many times FetchCandidates ran.
func (m *MockProvider) Calls() int { return int(m.calls.Load()) }

// MockCatalog is a test double for catalog search and track lookup.
//
// Lookup answers from Tracks keyed by the lowercased query; register entries with [MockCatalog.Add].
// It records the peak number of concurrent lookups.
type MockCatalog struct {
	Tracks   map[string]*models.Track
	Err      error
	Delay    time.Duration
	mu       sync.Mutex
	queries  []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{Tracks: map[string]*models.Track{}}
}

// Add registers a lookup result for the "name artist" query.
func (m *MockCatalog) Add(name, artist string, track *models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tracks[strings.ToLower(name+" "+artist)] = track
}

func (m *MockCatalog) Lookup(ctx context.Context, query string) (*models.Track, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.queries = append(m.queries, query)
	track := m.Tracks[strings.ToLower(query)]
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return track, nil
}

func (m *MockCatalog) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Track
	for k, t := range m.Tracks {
		if t != nil && strings.Contains(k, strings.ToLower(query)) {
			out = append(out, *t)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockCatalog) Track(ctx context.Context, id string) (*models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Tracks {
		if t != nil && t.ID == id {
			return t, nil
		}
	}
	return nil, errors.New("track not found")
}

// Queries returns the lookup queries received so far.
func (m *MockCatalog) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// Peak returns the highest number of concurrent lookups observed.
func (m *MockCatalog) Peak() int { return int(m.peak.Load()) }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/desertthunder/dejavu/internal/formatter"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

const defaultHistoryLimit = 20

type similarResponse struct {
	Seed    models.Seed      `json:"seed"`
	Results models.ResultSet `json:"results"`
}

// ConfirmRequest is the body of POST /api/connections.
type ConfirmRequest struct {
	Source    models.Track `json:"source"`
	Similar   models.Track `json:"similar"`
	Reasons   []string     `json:"reasons"`
	CreatedBy string       `json:"created_by"`
}

// Health reports liveness.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Similar answers GET /api/similar.
//
// The seed comes from ?id= or from ?name= and ?artist=. With ?wait=true the response
// carries the last enrichment snapshot instead of the first-pass list.
func (s *Server) Similar(c *gin.Context) {
	seed, ok := s.seed(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	initial, snapshots, err := s.engine.Aggregate(ctx, seed)
	if err != nil {
		s.fail(c, err)
		return
	}

	results := initial
	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		for snap := range snapshots {
			results = snap
		}
	}

	c.JSON(http.StatusOK, similarResponse{Seed: seed, Results: nonNil(results)})
}

// SimilarStream answers GET /api/similar/stream with server-sent events.
//
// The first "results" event carries the ranked list, then one "snapshot" event per enrichment
// batch, then a final "done" event.
func (s *Server) SimilarStream(c *gin.Context) {
	seed, ok := s.seed(c)
	if !ok {
		return
	}

	initial, snapshots, err := s.engine.Aggregate(c.Request.Context(), seed)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("results", similarResponse{Seed: seed, Results: nonNil(initial)})
	c.Writer.Flush()

	// The engine closes snapshots when the client goes away.
	batch := 0
	for snap := range snapshots {
		batch++
		c.SSEvent("snapshot", gin.H{"batch": batch, "results": snap})
		c.Writer.Flush()
	}
	if c.Request.Context().Err() == nil {
		c.SSEvent("done", gin.H{"batches": batch})
		c.Writer.Flush()
	}
}

// Search answers GET /api/search?q= with catalog tracks.
func (s *Server) Search(c *gin.Context) {
	if s.catalog == nil {
		s.unavailable(c, "catalog")
		return
	}

	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit := s.searchLimit
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	tracks, err := s.catalog.Search(c.Request.Context(), q, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

// Track answers GET /api/track/:id.
func (s *Server) Track(c *gin.Context) {
	if s.catalog == nil {
		s.unavailable(c, "catalog")
		return
	}

	track, err := s.catalog.Track(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, track)
}

// Confirm answers POST /api/connections. A pair that already exists answers 409.
func (s *Server) Confirm(c *gin.Context) {
	if s.confirmer == nil {
		s.unavailable(c, "connections")
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	conn, err := s.confirmer.Confirm(c.Request.Context(), req.Source, req.Similar, req.Reasons, req.CreatedBy)
	if err != nil {
		s.fail(c, err)
		return
	}
	if conn == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "connection already exists"})
		return
	}
	c.JSON(http.StatusCreated, formatter.NewConnectionViews([]*models.Connection{conn})[0])
}

// Upvote answers POST /api/connections/:id/upvote.
func (s *Server) Upvote(c *gin.Context) {
	if s.upvoter == nil {
		s.unavailable(c, "connections")
		return
	}

	id := c.Param("id")
	n, err := s.upvoter.Upvote(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "upvotes": n})
}

// History answers GET /api/history with recent searches.
func (s *Server) History(c *gin.Context) {
	if s.history == nil {
		s.unavailable(c, "history")
		return
	}

	limit := defaultHistoryLimit
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	aggs, err := s.history.Recent(limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": formatter.NewHistoryViews(aggs)})
}

// seed reads the seed from the query string, resolving ?id= through the catalog.
func (s *Server) seed(c *gin.Context) (models.Seed, bool) {
	if s.engine == nil {
		s.unavailable(c, "engine")
		return models.Seed{}, false
	}

	if id := strings.TrimSpace(c.Query("id")); id != "" && c.Query("name") == "" {
		seed, err := s.engine.ResolveSeed(c.Request.Context(), id)
		if err != nil {
			s.fail(c, err)
			return models.Seed{}, false
		}
		return seed, true
	}

	return models.Seed{
		ID:     c.Query("id"),
		Name:   c.Query("name"),
		Artist: c.Query("artist"),
	}, true
}

// fail maps domain errors onto status codes.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrInvalidSeed), errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrTrackNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrProviderUnavailable):
		status = http.StatusBadGateway
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " not configured"})
}

func nonNil(rs models.ResultSet) models.ResultSet {
	if rs == nil {
		return models.ResultSet{}
	}
	return rs
}

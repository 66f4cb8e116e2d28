package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

const shutdownTimeout = 5 * time.Second

// Aggregator runs similarity searches. Implemented by tasks.Engine.
type Aggregator interface {
	Aggregate(ctx context.Context, seed models.Seed) (models.ResultSet, <-chan models.ResultSet, error)
	ResolveSeed(ctx context.Context, trackID string) (models.Seed, error)
}

// Catalog searches and resolves catalog tracks. Implemented by services.SpotifyService.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)
	Track(ctx context.Context, trackID string) (*models.Track, error)
}

// Confirmer records community connections. Implemented by repositories.VerifiedStore.
type Confirmer interface {
	Confirm(ctx context.Context, source, similar models.Track, reasons []string, createdBy string) (*models.Connection, error)
}

// Upvoter increments connection upvotes. Implemented by repositories.ConnectionRepository.
type Upvoter interface {
	Upvote(ctx context.Context, id string) (int, error)
}

// HistoryLister lists recent aggregations. Implemented by repositories.AggregationRepository.
type HistoryLister interface {
	Recent(limit int) ([]*models.Aggregation, error)
}

// Options wires the collaborators of a [Server]. Only Engine is required; missing
// collaborators make their routes answer 503.
type Options struct {
	Engine      Aggregator
	Catalog     Catalog
	Confirmer   Confirmer
	Upvoter     Upvoter
	History     HistoryLister
	SearchLimit int
	Logger      *log.Logger
}

// Server serves the JSON and server-sent event API.
type Server struct {
	engine      Aggregator
	catalog     Catalog
	confirmer   Confirmer
	upvoter     Upvoter
	history     HistoryLister
	searchLimit int
	logger      *log.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Server{
		engine:      opts.Engine,
		catalog:     opts.Catalog,
		confirmer:   opts.Confirmer,
		upvoter:     opts.Upvoter,
		history:     opts.History,
		searchLimit: opts.SearchLimit,
		logger:      shared.WithLogger(opts.Logger, "component", "server"),
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(Recovery(s.logger), RequestLogger(s.logger))

	r.GET("/healthz", s.Health)

	api := r.Group("/api")
	api.GET("/similar", s.Similar)
	api.GET("/similar/stream", s.SimilarStream)
	api.GET("/search", s.Search)
	api.GET("/track/:id", s.Track)
	api.POST("/connections", s.Confirm)
	api.POST("/connections/:id/upvote", s.Upvote)
	api.GET("/history", s.History)

	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

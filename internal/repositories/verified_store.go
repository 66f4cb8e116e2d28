package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

// VerifiedStore adapts [ConnectionRepository] into the verified-connection provider.
//
// Stored connections are ground truth; FetchCandidates returns them for a seed and never fails past its boundary.
type VerifiedStore struct {
	repo   *ConnectionRepository
	logger *log.Logger
}

// NewVerifiedStore creates a VerifiedStore backed by repo
func NewVerifiedStore(repo *ConnectionRepository, logger *log.Logger) *VerifiedStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &VerifiedStore{repo: repo, logger: shared.WithLogger(logger, "provider", "verified")}
}

// Name returns the provider name.
func (s *VerifiedStore) Name() string { return "verified" }

// FetchCandidates returns stored connections for the seed as raw candidates.
func (s *VerifiedStore) FetchCandidates(ctx context.Context, seed models.Seed) ([]models.RawCandidate, bool) {
	conns, err := s.repo.ForSeed(ctx, seed)
	if err != nil {
		s.logger.Warn("provider failed", "provider", s.Name(), "error", err)
		return nil, false
	}

	out := make([]models.RawCandidate, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Candidate())
	}
	return out, true
}

// Confirm stores a verified pairing of source and similar.
//
// reasons are joined with ", "; an empty list stores [models.DefaultConnectionReason].
// A pairing already stored for the source (same dedup key or same similar track id) is ignored and (nil, nil) is returned.
func (s *VerifiedStore) Confirm(ctx context.Context, source, similar models.Track, reasons []string, createdBy string) (*models.Connection, error) {
	exists, err := s.repo.Exists(ctx, source.ID, similar.Name, similar.Artist)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Debug("connection already confirmed", "source", source.ID, "similar", similar.Name)
		return nil, nil
	}

	conn := models.NewConnection(0, source, similar, strings.Join(reasons, ", "), createdBy)
	if err := s.repo.Create(conn); err != nil {
		if isUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to confirm connection: %w", err)
	}

	s.logger.Info("connection confirmed", "id", conn.ID(), "source", source.Name, "similar", similar.Name)
	return conn, nil
}

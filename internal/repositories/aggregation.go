package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

// AggregationRepository persists aggregate summaries as search history.
type AggregationRepository struct {
	db *sql.DB
}

// NewAggregationRepository creates a new AggregationRepository with the given database connection
func NewAggregationRepository(db *sql.DB) *AggregationRepository {
	return &AggregationRepository{db: db}
}

// Create inserts a new aggregation summary with a generated ID
func (r *AggregationRepository) Create(agg *models.Aggregation) error {
	if err := agg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	agg.SetID(id)

	seed, outcome := agg.Seed(), agg.Outcome()
	query := `
		INSERT INTO aggregations (id, seed_id, seed_name, seed_artist, candidate_count, verified_count, structured_ok, text_ok, verified_ok, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		id, seed.ID, seed.Name, seed.Artist,
		agg.Candidates(), agg.Verified(),
		outcome.Structured, outcome.Text, outcome.Verified,
		agg.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert aggregation: %w", err)
	}
	return nil
}

// Record implements the engine's history hook.
func (r *AggregationRepository) Record(_ context.Context, agg *models.Aggregation) error {
	return r.Create(agg)
}

// Get retrieves an aggregation by ID
func (r *AggregationRepository) Get(id string) (*models.Aggregation, error) {
	query := `
		SELECT id, seed_id, seed_name, seed_artist, candidate_count, verified_count, structured_ok, text_ok, verified_ok, created_at
		FROM aggregations WHERE id = ?
	`
	agg, err := scanAggregation(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: aggregation", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan aggregation: %w", err)
	}
	return agg, nil
}

// Recent returns up to limit aggregations, newest first.
func (r *AggregationRepository) Recent(limit int) ([]*models.Aggregation, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, seed_id, seed_name, seed_artist, candidate_count, verified_count, structured_ok, text_ok, verified_ok, created_at
		FROM aggregations ORDER BY created_at DESC LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregations: %w", err)
	}
	defer rows.Close()

	var out []*models.Aggregation
	for rows.Next() {
		agg, err := scanAggregation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aggregation: %w", err)
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func scanAggregation(s scanner) (*models.Aggregation, error) {
	var (
		id                   string
		seed                 models.Seed
		candidates, verified int
		outcome              models.ProviderOutcome
		createdAt            time.Time
	)
	err := s.Scan(&id, &seed.ID, &seed.Name, &seed.Artist, &candidates, &verified,
		&outcome.Structured, &outcome.Text, &outcome.Verified, &createdAt)
	if err != nil {
		return nil, err
	}
	return models.RestoreAggregation(id, seed, candidates, verified, outcome, createdAt), nil
}

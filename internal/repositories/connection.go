package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
	"github.com/desertthunder/dejavu/internal/tasks"
)

const connectionColumns = `id, sequence,
	source_track_id, source_track_name, source_artist,
	similar_track_id, similar_track_name, similar_artist,
	similar_album_art, similar_album_name, similar_preview_url, similar_external_url,
	reason, created_by, upvotes, created_at, updated_at, deleted_at`

// ConnectionRepository implements models.Repository[*models.Connection] for community-verified pairings.
//
// Handles connection CRUD with soft delete support, per-seed lookups and upvotes.
type ConnectionRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Connection] = (*ConnectionRepository)(nil)

// NewConnectionRepository creates a new ConnectionRepository with the given database connection
func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Create inserts a new connection into the database with generated ID and sequence
func (r *ConnectionRepository) Create(conn *models.Connection) error {
	if err := conn.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "connections")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	conn.SetID(id)
	conn.SetSequence(sequence)

	source, similar := conn.Source(), conn.Similar()
	query := `
		INSERT INTO connections (` + connectionColumns + `, source_key, similar_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		source.ID,
		source.Name,
		source.Artist,
		similar.ID,
		similar.Name,
		similar.Artist,
		similar.AlbumArt,
		similar.AlbumName,
		similar.PreviewURL,
		similar.ExternalURL,
		conn.Reason(),
		conn.CreatedBy(),
		conn.Upvotes(),
		conn.CreatedAt(),
		conn.UpdatedAt(),
		tasks.Key(source.Name, source.Artist),
		tasks.Key(similar.Name, similar.Artist),
	)
	if err != nil {
		return fmt.Errorf("failed to insert connection: %w", err)
	}

	return nil
}

// Get retrieves a connection by ID, excluding soft-deleted connections
func (r *ConnectionRepository) Get(id string) (*models.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies the reason and upvote count of an existing connection
func (r *ConnectionRepository) Update(conn *models.Connection) error {
	if err := conn.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	conn.SetUpdatedAt(now)

	query := `
		UPDATE connections
		SET reason = ?, upvotes = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, conn.Reason(), conn.Upvotes(), now, conn.ID())
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}

	return expectAffected(result, conn.ID())
}

// Delete soft-deletes a connection by ID
func (r *ConnectionRepository) Delete(id string) error {
	query := `
		UPDATE connections
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	return expectAffected(result, id)
}

// List retrieves all connections matching the given criteria, excluding soft-deleted connections.
//
// Supported criteria: "source_track_id", "created_by" (string) and "limit" (int).
func (r *ConnectionRepository) List(criteria map[string]any) ([]*models.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE deleted_at IS NULL`
	args := []any{}

	if sourceID, ok := criteria["source_track_id"].(string); ok && sourceID != "" {
		query += " AND source_track_id = ?"
		args = append(args, sourceID)
	}

	if createdBy, ok := criteria["created_by"].(string); ok && createdBy != "" {
		query += " AND created_by = ?"
		args = append(args, createdBy)
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// ForSeed returns live connections whose source is the seed, most upvoted first.
//
// Matches on source track id when the seed carries one, otherwise on the source's dedup key
// (Unicode-lowercased name and artist, see [tasks.Key]).
func (r *ConnectionRepository) ForSeed(ctx context.Context, seed models.Seed) ([]*models.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE deleted_at IS NULL`
	var args []any

	if seed.ID != "" {
		query += " AND source_track_id = ?"
		args = append(args, seed.ID)
	} else {
		query += " AND source_key = ?"
		args = append(args, tasks.Key(seed.Name, seed.Artist))
	}
	query += " ORDER BY upvotes DESC, sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// Exists reports whether a live connection from sourceID to the named track is already stored.
// Name and artist are compared by dedup key.
func (r *ConnectionRepository) Exists(ctx context.Context, sourceID, similarName, similarArtist string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM connections
			WHERE source_track_id = ? AND similar_key = ?
			AND deleted_at IS NULL
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, sourceID, tasks.Key(similarName, similarArtist)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check connection: %w", err)
	}
	return exists, nil
}

// Upvote increments a connection's upvote count and returns the new total.
func (r *ConnectionRepository) Upvote(ctx context.Context, id string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE connections
		SET upvotes = upvotes + 1, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, time.Now(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to upvote connection: %w", err)
	}
	if err := expectAffected(result, id); err != nil {
		return 0, err
	}

	var upvotes int
	if err := tx.QueryRowContext(ctx, "SELECT upvotes FROM connections WHERE id = ?", id).Scan(&upvotes); err != nil {
		return 0, fmt.Errorf("failed to read upvotes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upvote: %w", err)
	}
	return upvotes, nil
}

func (r *ConnectionRepository) collect(rows *sql.Rows) ([]*models.Connection, error) {
	var conns []*models.Connection
	for rows.Next() {
		conn, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return conns, nil
}

// scanOne scans a single row into a [models.Connection]
func (r *ConnectionRepository) scanOne(row *sql.Row) (*models.Connection, error) {
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: connection", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}
	return conn, nil
}

// scanRow scans a row from [sql.Rows] into a [models.Connection]
func (r *ConnectionRepository) scanRow(rows *sql.Rows) (*models.Connection, error) {
	conn, err := scanConnection(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}
	return conn, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(s scanner) (*models.Connection, error) {
	var (
		id, reason, createdBy string
		sequence, upvotes     int
		source, similar       models.Track
		createdAt, updatedAt  time.Time
		deletedAt             sql.NullTime
	)

	err := s.Scan(
		&id, &sequence,
		&source.ID, &source.Name, &source.Artist,
		&similar.ID, &similar.Name, &similar.Artist,
		&similar.AlbumArt, &similar.AlbumName, &similar.PreviewURL, &similar.ExternalURL,
		&reason, &createdBy, &upvotes, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	conn := models.NewConnection(sequence, source, similar, reason, createdBy)
	conn.SetID(id)
	conn.SetUpvotes(upvotes)
	conn.SetCreatedAt(createdAt)
	conn.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		conn.SetDeletedAt(&deletedAt.Time)
	}
	return conn, nil
}

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/dejavu/internal/shared"
)

// DefaultConnectionReason is stored when a confirmation carries no reason.
const DefaultConnectionReason = "Community solved"

// Connection is a user-confirmed pairing between a source track and a similar track.
//
// Connections back the verified provider: every live connection for a seed becomes a
// [ProvenanceVerified] candidate with its upvote count.
type Connection struct {
	id        string
	sequence  int
	source    Track
	similar   Track
	reason    string
	createdBy string
	upvotes   int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewConnection creates a connection between source and similar with zero upvotes.
func NewConnection(sequence int, source, similar Track, reason, createdBy string) *Connection {
	if strings.TrimSpace(reason) == "" {
		reason = DefaultConnectionReason
	}
	now := time.Now()
	return &Connection{
		sequence:  sequence,
		source:    source,
		similar:   similar,
		reason:    reason,
		createdBy: createdBy,
		createdAt: now,
		updatedAt: now,
	}
}

func (c *Connection) ID() string            { return c.id }
func (c *Connection) Sequence() int         { return c.sequence }
func (c *Connection) Source() Track         { return c.source }
func (c *Connection) Similar() Track        { return c.similar }
func (c *Connection) Reason() string        { return c.reason }
func (c *Connection) CreatedBy() string     { return c.createdBy }
func (c *Connection) Upvotes() int          { return c.upvotes }
func (c *Connection) CreatedAt() time.Time  { return c.createdAt }
func (c *Connection) UpdatedAt() time.Time  { return c.updatedAt }
func (c *Connection) DeletedAt() *time.Time { return c.deletedAt }

func (c *Connection) SetID(id string)           { c.id = id }
func (c *Connection) SetSequence(seq int)       { c.sequence = seq }
func (c *Connection) SetUpvotes(n int)          { c.upvotes = n }
func (c *Connection) SetCreatedAt(t time.Time)  { c.createdAt = t }
func (c *Connection) SetUpdatedAt(t time.Time)  { c.updatedAt = t }
func (c *Connection) SetDeletedAt(t *time.Time) { c.deletedAt = t }
func (c *Connection) IsDeleted() bool           { return c.deletedAt != nil }

// Validate checks that both ends of the connection are identified and distinct.
func (c *Connection) Validate() error {
	if c.source.ID == "" {
		return fmt.Errorf("%w: source track id is required", shared.ErrInvalidInput)
	}
	if c.similar.ID == "" {
		return fmt.Errorf("%w: similar track id is required", shared.ErrInvalidInput)
	}
	if c.source.ID == c.similar.ID {
		return fmt.Errorf("%w: a track cannot be connected to itself", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(c.similar.Name) == "" || strings.TrimSpace(c.similar.Artist) == "" {
		return fmt.Errorf("%w: similar track name and artist are required", shared.ErrInvalidInput)
	}
	if c.upvotes < 0 {
		return fmt.Errorf("%w: upvotes cannot be negative", shared.ErrInvalidInput)
	}
	return nil
}

// Candidate converts the connection into a raw verified candidate.
func (c *Connection) Candidate() RawCandidate {
	upvotes := c.upvotes
	return RawCandidate{
		Name:       c.similar.Name,
		Artist:     c.similar.Artist,
		ExternalID: c.similar.ID,
		Reason:     c.reason,
		Upvotes:    &upvotes,
		Presentation: Presentation{
			AlbumArt:    c.similar.AlbumArt,
			AlbumName:   c.similar.AlbumName,
			PreviewURL:  c.similar.PreviewURL,
			ExternalURL: c.similar.ExternalURL,
		},
	}
}

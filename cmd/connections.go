package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/dejavu/internal/formatter"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

// Confirm records that two catalog tracks are similar.
//
// Both tracks are resolved through the catalog so the stored connection carries names and artwork.
func (r *Runner) Confirm(ctx context.Context, cmd *cli.Command) error {
	if r.catalog == nil {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	st, err := r.store()
	if err != nil {
		return err
	}

	source, err := r.catalog.Track(ctx, cmd.String("source"))
	if err != nil {
		return fmt.Errorf("failed to fetch source track: %w", err)
	}
	similar, err := r.catalog.Track(ctx, cmd.String("similar"))
	if err != nil {
		return fmt.Errorf("failed to fetch similar track: %w", err)
	}

	conn, err := st.verified.Confirm(ctx, *source, *similar, cmd.StringSlice("reason"), cmd.String("by"))
	if err != nil {
		return err
	}
	if conn == nil {
		return r.writePlain("Connection between %s and %s already exists\n", source.Name, similar.Name)
	}

	r.writePlain("✓ Connection confirmed\n")
	return formatter.WriteConnections(r.output, formatter.FormatText, []*models.Connection{conn})
}

// Upvote increments a connection's upvotes.
func (r *Runner) Upvote(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: connection id", shared.ErrMissingArgument)
	}

	st, err := r.store()
	if err != nil {
		return err
	}

	n, err := st.connections.Upvote(ctx, id)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s now has %d upvotes\n", id, n)
}

// Connections lists stored connections.
func (r *Runner) Connections(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}

	st, err := r.store()
	if err != nil {
		return err
	}

	conns, err := st.connections.List(map[string]any{
		"source_track_id": cmd.String("source"),
		"limit":           int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}
	return formatter.WriteConnections(r.output, format, conns)
}

// History lists recent similarity searches.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}

	st, err := r.store()
	if err != nil {
		return err
	}

	aggs, err := st.history.Recent(int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	return formatter.WriteHistory(r.output, format, aggs)
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/dejavu/internal/formatter"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
	"github.com/desertthunder/dejavu/internal/tasks"
)

// Similar runs one aggregation and prints the fully enriched result.
//
// The seed comes from --id when given, otherwise from the name and artist arguments.
// Without a database the community provider counts as failed and the search continues.
func (r *Runner) Similar(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}

	if err := r.config.Validate(); err != nil {
		r.logger.Warn("some providers are disabled", "error", err)
	}

	st, err := r.store()
	if err != nil {
		r.logger.Warn("community connections unavailable", "error", err)
		st = nil
	}
	engine := r.engine(st, !cmd.Bool("no-enrich"))

	seed := models.Seed{Name: cmd.StringArg("name"), Artist: cmd.StringArg("artist")}
	if id := cmd.String("id"); id != "" {
		if seed, err = engine.ResolveSeed(ctx, id); err != nil {
			return fmt.Errorf("failed to resolve seed %s: %w", id, err)
		}
	}

	var (
		progress chan tasks.ProgressUpdate
		logged   = make(chan struct{})
	)
	if cmd.Bool("progress") {
		progress = make(chan tasks.ProgressUpdate, 16)
		go func() {
			defer close(logged)
			for u := range progress {
				r.logger.Info(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
			}
		}()
	} else {
		close(logged)
	}

	initial, snapshots, err := engine.AggregateWithProgress(ctx, seed, progress)
	if err != nil {
		if progress != nil {
			close(progress)
		}
		return err
	}
	results := tasks.Final(initial, snapshots)
	if progress != nil {
		close(progress)
	}
	<-logged

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteResultsFile(path, format, seed, results); err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %d results to %s\n", len(results), path)
	}
	return formatter.WriteResults(r.output, format, seed, results)
}

// Search prints catalog tracks matching the query.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}
	if r.catalog == nil {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		limit = r.config.Aggregate.SearchLimit
	}

	tracks, err := r.catalog.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return formatter.WriteTracks(r.output, format, tracks)
}

// Track prints one catalog track, optionally opening it in the browser.
func (r *Runner) Track(ctx context.Context, cmd *cli.Command) error {
	format, err := r.format(cmd)
	if err != nil {
		return err
	}
	if r.catalog == nil {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	track, err := r.catalog.Track(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch track %s: %w", id, err)
	}
	if err := formatter.WriteTracks(r.output, format, []models.Track{*track}); err != nil {
		return err
	}

	if cmd.Bool("open") {
		return shared.OpenURL(track.ExternalURL)
	}
	return nil
}

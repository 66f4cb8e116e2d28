package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/dejavu/internal/server"
)

// Serve starts the HTTP API and blocks until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		r.logger.Warn("some providers are disabled", "error", err)
	}

	st, err := r.store()
	if err != nil {
		return err
	}

	opts := server.Options{
		Engine:      r.engine(st, true),
		Confirmer:   st.verified,
		Upvoter:     st.connections,
		History:     st.history,
		SearchLimit: r.config.Aggregate.SearchLimit,
		Logger:      r.logger,
	}
	if r.catalog != nil {
		opts.Catalog = r.catalog
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	}
	return server.New(opts).Run(ctx, addr)
}

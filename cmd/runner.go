package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/dejavu/internal/formatter"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/repositories"
	"github.com/desertthunder/dejavu/internal/shared"
	"github.com/desertthunder/dejavu/internal/tasks"
)

// Catalog is the track catalog used for search, seed resolution and enrichment.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)
	Track(ctx context.Context, trackID string) (*models.Track, error)
	Lookup(ctx context.Context, query string) (*models.Track, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    Catalog
	structured tasks.ProviderClient
	text       tasks.ProviderClient
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    Catalog
	Structured tasks.ProviderClient
	Text       tasks.ProviderClient
	DB         *sql.DB // Opened from Config.Database.Path on first use when nil
	Logger     *log.Logger
	Output     io.Writer
}

// store groups the repositories opened for a command.
type store struct {
	connections *repositories.ConnectionRepository
	verified    *repositories.VerifiedStore
	history     *repositories.AggregationRepository
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		structured: opts.Structured,
		text:       opts.Text,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		similarCommand, searchCommand, trackCommand,
		confirmCommand, upvoteCommand, connectionsCommand, historyCommand,
		serveCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Close releases the database handle.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// database opens the configured database and applies pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

func (r *Runner) store() (*store, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	conns := repositories.NewConnectionRepository(db)
	return &store{
		connections: conns,
		verified:    repositories.NewVerifiedStore(conns, r.logger),
		history:     repositories.NewAggregationRepository(db),
	}, nil
}

// engine assembles the aggregation engine from the configured providers.
func (r *Runner) engine(st *store, enrich bool) *tasks.Engine {
	agg := r.config.Aggregate

	var verified tasks.ProviderClient
	if st != nil {
		verified = st.verified
	}
	merger := tasks.NewMerger(verified, r.structured, r.text, tasks.MergerOpts{
		Timeout: agg.ProviderTimeoutDuration(tasks.DefaultProviderTimeout),
		Logger:  r.logger,
	})

	var enricher *tasks.Enricher
	opts := tasks.EngineOpts{Logger: r.logger}
	if r.catalog != nil {
		opts.Resolver = r.catalog
		if enrich {
			enricher = tasks.NewEnricher(r.catalog, tasks.EnricherOpts{
				BatchSize:     agg.BatchSize,
				LookupTimeout: agg.LookupTimeoutDuration(tasks.DefaultLookupTimeout),
				Logger:        r.logger,
			})
		}
	}
	if st != nil {
		opts.History = st.history
	}

	return tasks.NewEngine(merger, enricher, opts)
}

func (r *Runner) format(cmd *cli.Command) (formatter.Format, error) {
	return formatter.ParseFormat(cmd.String("format"))
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/dejavu/internal/llm"
	"github.com/desertthunder/dejavu/internal/services"
	"github.com/desertthunder/dejavu/internal/shared"
)

const defaultConfigPath = "config.toml"

func main() {
	_ = godotenv.Load()

	configPath := defaultConfigPath
	if p, ok := os.LookupEnv("DEJAVU_CONFIG"); ok && p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}
	config.ApplyEnv(os.LookupEnv)

	logger := shared.NewLogger(nil)
	if config.Logging.File != "" {
		fileLogger, closer := shared.NewFileLogger(config.Logging.File)
		defer closer.Close()
		logger = fileLogger
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := RunnerOpts{Config: config, ConfigPath: configPath, Logger: logger}
	closers := wireServices(ctx, config, logger, &opts)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	runner := NewRunner(opts)
	defer runner.Close()

	app := &cli.Command{
		Name:     "dejavu",
		Usage:    "Find songs like the one you love, from the community, Last.fm and an LLM",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}
		logger.Fatalf("application error: %v", err)
	}
}

// wireServices builds every provider whose credentials are configured.
// Providers without credentials stay nil and count as failed during aggregation.
func wireServices(ctx context.Context, config *shared.Config, logger *log.Logger, opts *RunnerOpts) []io.Closer {
	var closers []io.Closer

	limiter := services.NewRateLimiterMap(map[services.ProviderName]int{
		services.NameSpotify: config.Credentials.Spotify.RateLimit,
		services.NameLastFM:  config.Credentials.LastFM.RateLimit,
	})

	if spotify := config.Credentials.Spotify; spotify.ClientID != "" && spotify.ClientSecret != "" {
		if tokens, err := services.NewTokenCache(spotify.ClientID, spotify.ClientSecret, "", nil); err == nil {
			opts.Catalog = services.NewSpotifyService(tokens, limiter, logger)
		} else {
			logger.Warn("spotify disabled", "error", err)
		}
	} else {
		logger.Debug("spotify credentials not configured, enrichment disabled")
	}

	if key := config.Credentials.LastFM.APIKey; key != "" {
		opts.Structured = services.NewLastFMService(key, config.Aggregate.LastFMLimit, limiter, logger)
	} else {
		logger.Debug("lastfm api key not configured")
	}

	gen, err := llm.NewGenerator(ctx, config.Credentials.LLM)
	if err != nil {
		logger.Debug("llm disabled", "error", err)
		return closers
	}
	if c, ok := gen.(io.Closer); ok {
		closers = append(closers, c)
	}
	opts.Text = services.NewSuggestionService(gen, limiter, logger)

	return closers
}

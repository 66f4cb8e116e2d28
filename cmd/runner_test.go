package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/dejavu/internal/formatter"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
	tu "github.com/desertthunder/dejavu/internal/testing"
)

type testEnv struct {
	runner  *Runner
	output  *bytes.Buffer
	catalog *tu.MockCatalog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	catalog := tu.NewMockCatalog()
	catalog.Add("Karma Police", "Radiohead", &models.Track{ID: "kp", Name: "Karma Police", Artist: "Radiohead", ExternalURL: "https://open.spotify.com/track/kp"})
	catalog.Add("Teardrop", "Massive Attack", &models.Track{ID: "td", Name: "Teardrop", Artist: "Massive Attack", AlbumArt: "mezzanine.jpg"})

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:  shared.DefaultConfig(),
		Catalog: catalog,
		Structured: &tu.MockProvider{Items: []models.RawCandidate{
			{Name: "Lucky", Artist: "Radiohead", Presentation: models.Presentation{AlbumArt: "ok.jpg"}},
		}},
		Text: &tu.MockProvider{Items: []models.RawCandidate{
			{Name: "Teardrop", Artist: "Massive Attack", Reason: "trip-hop"},
		}},
		DB:     db,
		Logger: shared.NewLogger(&bytes.Buffer{}),
		Output: output,
	})
	t.Cleanup(func() { runner.Close() })

	return &testEnv{runner: runner, output: output, catalog: catalog}
}

func (e *testEnv) run(args ...string) error {
	app := &cli.Command{Name: "dejavu", Commands: e.runner.register()}
	return app.Run(context.Background(), append([]string{"dejavu"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		names := map[string]bool{}
		for _, c := range NewRunner(RunnerOpts{}).register() {
			names[c.Name] = true
		}
		for _, want := range []string{"similar", "search", "track", "confirm", "upvote", "connections", "history", "serve", "setup"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})
			if err := runner.writePlain("hello %s\n", "world"); err != nil {
				t.Fatalf("writePlain failed: %v", err)
			}
			if output.String() != "hello world\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writePlain("test"); err == nil {
				t.Error("expected error on write failure")
			}
		})

		t.Run("fails once the writer is exhausted", func(t *testing.T) {
			output := &bytes.Buffer{}
			lw := tu.NewLimitedWriter(1, 0, output)
			runner := NewRunner(RunnerOpts{Output: &lw})
			if err := runner.writePlain("first\n"); err != nil {
				t.Fatalf("first write failed: %v", err)
			}
			if err := runner.writePlain("second\n"); err == nil {
				t.Error("expected error after write limit")
			}
			if output.String() != "first\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})
	})

	t.Run("Close without database", func(t *testing.T) {
		if err := NewRunner(RunnerOpts{}).Close(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})
}

func TestSimilarCommand(t *testing.T) {
	t.Run("prints enriched results as JSON", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("similar", "--format", "json", "Karma Police", "Radiohead"); err != nil {
			t.Fatalf("similar failed: %v", err)
		}

		var doc struct {
			Seed    models.Seed
			Results models.ResultSet
		}
		if err := json.Unmarshal(env.output.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, env.output.String())
		}
		if len(doc.Results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(doc.Results))
		}
		if doc.Results[0].Name != "Lucky" || doc.Results[0].Provenance != models.ProvenanceStructured {
			t.Errorf("unexpected first result: %+v", doc.Results[0])
		}
		if doc.Results[1].AlbumArt != "mezzanine.jpg" {
			t.Errorf("expected enriched artwork, got %q", doc.Results[1].AlbumArt)
		}
	})

	t.Run("no-enrich keeps first pass", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("similar", "--no-enrich", "--format", "csv", "Karma Police", "Radiohead"); err != nil {
			t.Fatalf("similar failed: %v", err)
		}
		if strings.Contains(env.output.String(), "mezzanine.jpg") {
			t.Errorf("expected no enrichment, got: %s", env.output.String())
		}
		if len(env.catalog.Queries()) != 0 {
			t.Errorf("expected no catalog lookups, got %v", env.catalog.Queries())
		}
	})

	t.Run("resolves seed from id", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("similar", "--id", "kp", "--progress"); err != nil {
			t.Fatalf("similar failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Songs like Karma Police - Radiohead") {
			t.Errorf("unexpected output: %s", env.output.String())
		}
	})

	t.Run("writes output file", func(t *testing.T) {
		env := newTestEnv(t)
		path := filepath.Join(t.TempDir(), "similar.md")
		if err := env.run("similar", "--format", "md", "--output", path, "Karma Police", "Radiohead"); err != nil {
			t.Fatalf("similar failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "Massive Attack - Teardrop") {
			t.Errorf("unexpected file content: %s", content)
		}
		if !strings.Contains(env.output.String(), "Wrote 2 results") {
			t.Errorf("unexpected output: %s", env.output.String())
		}
	})

	t.Run("missing artist is an invalid seed", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run("similar", "Karma Police")
		if !errors.Is(err, shared.ErrInvalidSeed) {
			t.Errorf("expected ErrInvalidSeed, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run("similar", "--format", "xml", "Karma Police", "Radiohead")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("search", "--format", "csv", "teardrop"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "td,Teardrop,Massive Attack") {
			t.Errorf("unexpected output: %s", env.output.String())
		}
	})

	t.Run("search requires query", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("search without catalog", func(t *testing.T) {
		env := &testEnv{runner: NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})}
		err := env.run("search", "anything")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("track", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run("track", "--format", "yaml", "kp"); err != nil {
			t.Fatalf("track failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "name: Karma Police") {
			t.Errorf("unexpected output: %s", env.output.String())
		}
	})
}

func TestConnectionCommands(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("confirm", "--source", "kp", "--similar", "td", "--reason", "Same mood", "--reason", "Slow build"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if !strings.Contains(env.output.String(), "Connection confirmed") {
		t.Errorf("unexpected output: %s", env.output.String())
	}

	env.output.Reset()
	if err := env.run("confirm", "--source", "kp", "--similar", "td"); err != nil {
		t.Fatalf("duplicate confirm failed: %v", err)
	}
	if !strings.Contains(env.output.String(), "already exists") {
		t.Errorf("expected duplicate notice, got: %s", env.output.String())
	}

	env.output.Reset()
	if err := env.run("connections", "--format", "json", "--source", "kp"); err != nil {
		t.Fatalf("connections failed: %v", err)
	}
	var views []formatter.ConnectionView
	if err := json.Unmarshal(env.output.Bytes(), &views); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(views) != 1 || views[0].Reason != "Same mood, Slow build" {
		t.Fatalf("unexpected connections: %+v", views)
	}

	env.output.Reset()
	if err := env.run("upvote", views[0].ID); err != nil {
		t.Fatalf("upvote failed: %v", err)
	}
	if !strings.Contains(env.output.String(), "now has 1 upvotes") {
		t.Errorf("unexpected output: %s", env.output.String())
	}

	env.output.Reset()
	if err := env.run("similar", "--format", "json", "--id", "kp"); err != nil {
		t.Fatalf("similar failed: %v", err)
	}
	var doc struct{ Results models.ResultSet }
	if err := json.Unmarshal(env.output.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Results) == 0 || doc.Results[0].Provenance != models.ProvenanceVerified {
		t.Fatalf("expected verified result first, got %+v", doc.Results)
	}
	if up := doc.Results[0].CommunityUpvotes; up == nil || *up != 1 {
		t.Errorf("expected 1 community upvote, got %v", up)
	}

	if err := env.run("upvote", "missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryCommand(t *testing.T) {
	env := newTestEnv(t)
	if err := env.run("similar", "--no-enrich", "Karma Police", "Radiohead"); err != nil {
		t.Fatalf("similar failed: %v", err)
	}

	env.output.Reset()
	if err := env.run("history", "--format", "json"); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var views []formatter.HistoryView
	if err := json.Unmarshal(env.output.Bytes(), &views); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(views) != 1 || views[0].Seed.Name != "Karma Police" || views[0].Candidates != 2 {
		t.Errorf("unexpected history: %+v", views)
	}
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		env := &testEnv{runner: NewRunner(RunnerOpts{ConfigPath: path, Output: output, Logger: shared.NewLogger(&bytes.Buffer{})})}

		if err := env.run("setup", "config"); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := env.run("setup", "config"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
		}
		if err := env.run("setup", "config", "--force"); err != nil {
			t.Errorf("expected --force to overwrite, got %v", err)
		}
	})

	t.Run("database and status", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "dejavu.db")
		output := &bytes.Buffer{}
		env := &testEnv{runner: NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(&bytes.Buffer{})})}
		defer env.runner.Close()

		if err := env.run("setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		if !strings.Contains(output.String(), "(version 2)") {
			t.Errorf("unexpected output: %s", output.String())
		}

		output.Reset()
		if err := env.run("setup", "rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if !strings.Contains(output.String(), "Rolled back to version 1") {
			t.Errorf("unexpected output: %s", output.String())
		}

		output.Reset()
		if err := env.run("setup", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "migration version 1") {
			t.Errorf("unexpected output: %s", output.String())
		}
	})
}

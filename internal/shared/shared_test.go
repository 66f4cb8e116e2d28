package shared

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  log.Level
	}{
		{name: "empty", input: "", want: log.InfoLevel},
		{name: "debug", input: "debug", want: log.DebugLevel},
		{name: "warn", input: "warn", want: log.WarnLevel},
		{name: "unknown", input: "loud", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("WithLogger adds fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "merge")
		logger.Info("hello")

		out := buf.String()
		if !strings.Contains(out, "hello") || !strings.Contains(out, "component=merge") {
			t.Errorf("unexpected log output: %q", out)
		}
	})

	t.Run("child loggers share a buffer concurrently", func(t *testing.T) {
		var buf bytes.Buffer
		root := NewLogger(&buf)
		children := []*log.Logger{WithLogger(root, "component", "engine"), WithLogger(root, "component", "cli")}

		var wg sync.WaitGroup
		for _, child := range children {
			for range 50 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					child.Info("tick")
				}()
			}
		}
		wg.Wait()

		if lines := strings.Count(buf.String(), "\n"); lines != 100 {
			t.Errorf("expected 100 log lines, got %d", lines)
		}
	})

	t.Run("SetLogLevel filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.WarnLevel)
		logger.Info("quiet")

		if buf.Len() != 0 {
			t.Errorf("expected info to be filtered, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger without path", func(t *testing.T) {
		logger, closer := NewFileLogger("")
		if logger == nil {
			t.Fatal("expected logger")
		}
		if closer != nil {
			t.Error("expected nil closer without a file path")
		}
	})

	t.Run("NewFileLogger with path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dejavu.log")
		logger, closer := NewFileLogger(path)
		if closer == nil {
			t.Fatal("expected closer for file logger")
		}
		defer closer.Close()
		logger.Info("written")
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected unique ids, got %q and %q", a, b)
	}
}

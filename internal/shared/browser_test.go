package shared

import (
	"errors"
	"testing"
)

func TestOpenCommand(t *testing.T) {
	tc := []struct {
		name    string
		goos    string
		link    string
		wantBin string
		wantErr bool
	}{
		{name: "darwin", goos: "darwin", link: "https://open.spotify.com/track/1", wantBin: "open"},
		{name: "linux", goos: "linux", link: "https://open.spotify.com/track/1", wantBin: "xdg-open"},
		{name: "windows", goos: "windows", link: "http://example.com", wantBin: "rundll32"},
		{name: "unsupported platform", goos: "plan9", link: "https://example.com", wantErr: true},
		{name: "non http scheme", goos: "linux", link: "file:///etc/passwd", wantErr: true},
		{name: "empty", goos: "linux", link: "", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := openCommand(tt.goos, tt.link)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Args[0] != tt.wantBin {
				t.Errorf("expected %s, got %s", tt.wantBin, cmd.Args[0])
			}
			if cmd.Args[len(cmd.Args)-1] != tt.link {
				t.Errorf("expected link as last argument, got %v", cmd.Args)
			}
		})
	}

	t.Run("invalid url wraps ErrInvalidArgument", func(t *testing.T) {
		_, err := openCommand("linux", "ftp://x")
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiterMap(t *testing.T) {
	t.Run("Nil Map Never Blocks", func(t *testing.T) {
		var m *RateLimiterMap
		if err := m.Wait(context.Background(), NameSpotify); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Unknown Provider Never Blocks", func(t *testing.T) {
		m := NewRateLimiterMap(nil)
		if err := m.Wait(context.Background(), ProviderName("other")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Override Limits Throughput", func(t *testing.T) {
		m := NewRateLimiterMap(map[ProviderName]int{NameLastFM: 20})
		start := time.Now()
		for range 3 {
			if err := m.Wait(context.Background(), NameLastFM); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("expected at least two 50ms waits, took %v", elapsed)
		}
	})

	t.Run("Canceled Context", func(t *testing.T) {
		m := NewRateLimiterMap(nil)
		m.SetLimit(NameSpotify, 0.001)
		_ = m.Wait(context.Background(), NameSpotify)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := m.Wait(ctx, NameSpotify); err == nil {
			t.Error("expected error when the limiter cannot allow a request before the deadline")
		} else if errors.Is(err, context.Canceled) {
			t.Errorf("expected deadline-related error, got %v", err)
		}
	})
}

// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/tomtom215/kverna/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("creates hierarchical supervisor tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("config = %+v, want %+v", tree.config, DefaultTreeConfig())
		}
	})
}

func TestTreeConfigFrom(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.SupervisorConfig
		want TreeConfig
	}{
		{
			name: "nil uses defaults",
			cfg:  nil,
			want: DefaultTreeConfig(),
		},
		{
			name: "copies configured values",
			cfg: &config.SupervisorConfig{
				FailureThreshold: 3,
				FailureBackoff:   2 * time.Second,
				ShutdownTimeout:  5 * time.Second,
			},
			want: TreeConfig{
				FailureThreshold: 3,
				FailureBackoff:   2 * time.Second,
				ShutdownTimeout:  5 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TreeConfigFrom(tt.cfg); got != tt.want {
				t.Errorf("TreeConfigFrom() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	t.Run("tree starts and stops gracefully", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   100 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		ingest := newMockService("mock-ingest")
		api := newMockService("mock-api")
		tree.AddIngestService(ingest)
		tree.AddAPIService(api)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- tree.Serve(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("tree did not shut down in time")
		}

		if ingest.starts() < 1 {
			t.Error("ingest service was not started")
		}
		if api.starts() < 1 {
			t.Error("api service was not started")
		}
		if ingest.stopCount.Load() != ingest.starts() {
			t.Errorf("ingest service stopped %d times, started %d", ingest.stopCount.Load(), ingest.starts())
		}
	})

	t.Run("ServeBackground returns channel", func(t *testing.T) {
		tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(time.Second):
			t.Error("did not receive from error channel")
		}

		report, err := tree.UnstoppedServiceReport()
		if err != nil {
			t.Fatalf("UnstoppedServiceReport() error = %v", err)
		}
		if len(report) != 0 {
			t.Errorf("unstopped services = %v, want none", report)
		}
	})
}

func TestSupervisorTreeFailureHandling(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mockService)
	}{
		{name: "returned error", setup: func(m *mockService) { m.setFailCount(2) }},
		{name: "panic", setup: func(m *mockService) { m.setPanicCount(2) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
				FailureThreshold: 10,
				FailureBackoff:   10 * time.Millisecond,
				ShutdownTimeout:  time.Second,
			})

			failing := newMockService("failing-poller")
			tt.setup(failing)
			stable := newMockService("stable-api")

			tree.AddIngestService(failing)
			tree.AddAPIService(stable)

			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()

			done := tree.ServeBackground(ctx)
			time.Sleep(200 * time.Millisecond)

			if failing.starts() < 3 {
				t.Errorf("expected at least 3 starts for failing service, got %d", failing.starts())
			}
			if stable.starts() != 1 {
				t.Errorf("stable service started %d times, want 1", stable.starts())
			}

			cancel()
			<-done
		})
	}
}

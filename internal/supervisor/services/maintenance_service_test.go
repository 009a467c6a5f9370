// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

type mockPruner struct {
	calls atomic.Int32
}

func (m *mockPruner) PruneCaches() int {
	m.calls.Add(1)
	return 3
}

type mockCheckpointer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockCheckpointer) Checkpoint(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("checkpoint without deadline")
	}
	return m.err
}

func (m *mockCheckpointer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ suture.Service = (*MaintenanceService)(nil)

func TestNewMaintenanceService_Defaults(t *testing.T) {
	svc := NewMaintenanceService(&mockPruner{}, nil, MaintenanceServiceConfig{}, zerolog.Nop())

	if svc.config.Interval != 10*time.Minute {
		t.Errorf("Interval = %v, want 10m", svc.config.Interval)
	}
	if svc.config.CheckpointTimeout != time.Minute {
		t.Errorf("CheckpointTimeout = %v, want 1m", svc.config.CheckpointTimeout)
	}
	if svc.String() != "maintenance-service" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestMaintenanceService_Sweeps(t *testing.T) {
	tests := []struct {
		name         string
		checkpointer *mockCheckpointer
	}{
		{"prune only", nil},
		{"prune and checkpoint", &mockCheckpointer{}},
		{"checkpoint failure keeps running", &mockCheckpointer{err: errors.New("disk full")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := &mockPruner{}
			var cp Checkpointer
			if tt.checkpointer != nil {
				cp = tt.checkpointer
			}
			svc := NewMaintenanceService(pruner, cp, MaintenanceServiceConfig{Interval: 5 * time.Millisecond}, zerolog.Nop())

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			deadline := time.Now().Add(2 * time.Second)
			for pruner.calls.Load() < 2 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			cancel()

			if err := <-errCh; !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
			if pruner.calls.Load() < 2 {
				t.Errorf("PruneCaches called %d times, want at least 2", pruner.calls.Load())
			}
			if tt.checkpointer != nil && tt.checkpointer.count() < 2 {
				t.Errorf("Checkpoint called %d times, want at least 2", tt.checkpointer.count())
			}
		})
	}
}

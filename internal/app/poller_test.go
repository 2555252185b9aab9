package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"syscall"
	"testing"
	"time"

	"github.com/five82/tasksync/internal/api"
	"github.com/five82/tasksync/internal/clock"
	"github.com/five82/tasksync/internal/netmon"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type scriptedPinger struct {
	results []error
	calls   int
}

func (p *scriptedPinger) Ping(context.Context) error {
	if p.calls >= len(p.results) {
		return nil
	}
	err := p.results[p.calls]
	p.calls++
	return err
}

func TestProbeOnce_GoesOfflineAfterConsecutiveFailures(t *testing.T) {
	monitor := netmon.New(netmon.Options{Clock: clock.NewFake(time.Unix(0, 0)), Logger: log.New(io.Discard, "", 0)})
	refused := fmt.Errorf("execute request: %w", syscall.ECONNREFUSED)
	probe := &scriptedPinger{results: []error{refused, refused, nil}}
	ctx := context.Background()

	failures := probeOnce(ctx, monitor, probe, 0)
	if failures != 1 || !monitor.IsOnline() {
		t.Fatalf("after one failure: failures=%d online=%v, want 1/true", failures, monitor.IsOnline())
	}

	failures = probeOnce(ctx, monitor, probe, failures)
	if failures != 2 || monitor.IsOnline() {
		t.Fatalf("after two failures: failures=%d online=%v, want 2/false", failures, monitor.IsOnline())
	}

	failures = probeOnce(ctx, monitor, probe, failures)
	if failures != 0 || !monitor.IsOnline() {
		t.Fatalf("after success: failures=%d online=%v, want 0/true", failures, monitor.IsOnline())
	}
	if monitor.WasOffline() {
		t.Fatalf("WasOffline = true after recovery was reported")
	}
}

func TestProbeOnce_ServerErrorsCountAsReachable(t *testing.T) {
	monitor := netmon.New(netmon.Options{Clock: clock.NewFake(time.Unix(0, 0)), Logger: log.New(io.Discard, "", 0), StartOffline: true})
	probe := &scriptedPinger{results: []error{&api.StatusError{Method: "GET", Path: "/api/health", StatusCode: 503}}}

	if failures := probeOnce(context.Background(), monitor, probe, 3); failures != 0 {
		t.Fatalf("failures = %d, want 0", failures)
	}
	if !monitor.IsOnline() {
		t.Fatalf("monitor offline after the server answered")
	}
}

func TestProbeOnce_CanceledContextKeepsState(t *testing.T) {
	monitor := netmon.New(netmon.Options{Clock: clock.NewFake(time.Unix(0, 0)), Logger: log.New(io.Discard, "", 0)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	probe := &scriptedPinger{results: []error{context.Canceled}}

	if failures := probeOnce(ctx, monitor, probe, 1); failures != 1 {
		t.Fatalf("failures = %d, want 1 (unchanged)", failures)
	}
	if !monitor.IsOnline() {
		t.Fatalf("monitor went offline on shutdown")
	}
}

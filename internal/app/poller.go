package app

import (
	"context"
	"log"
	"time"

	"github.com/five82/tasksync/internal/errclass"
	"github.com/five82/tasksync/internal/netmon"
)

const (
	defaultPollInterval  = 5 * time.Second
	maxBackoff           = 30 * time.Second
	probeTimeout         = 3 * time.Second
	offlineAfterFailures = 2
)

// Pinger is the health probe the poller drives.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StartPoller launches a background goroutine that probes connectivity and
// feeds the monitor. It stands in for a platform network signal. While the
// probe fails the interval backs off exponentially. It returns immediately.
func StartPoller(ctx context.Context, monitor *netmon.Monitor, probe Pinger, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		var failures int
		for {
			failures = probeOnce(ctx, monitor, probe, failures)
			if ctx.Err() != nil {
				return
			}

			wait := interval
			if failures > 0 {
				wait = calculateBackoff(failures, interval)
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// probeOnce runs a single probe and returns the updated failure count. Only
// connectivity failures count toward going offline; a server answering with
// an error is still reachable.
func probeOnce(ctx context.Context, monitor *netmon.Monitor, probe Pinger, failures int) int {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := probe.Ping(pctx)
	if ctx.Err() != nil {
		return failures
	}
	if err == nil || errclass.Classify(err).Kind != errclass.KindNetwork {
		if err != nil {
			log.Printf("health probe answered with error: %v", err)
		}
		monitor.SetOnline(true)
		return 0
	}

	failures++
	log.Printf("health probe failed (%d in a row): %v", failures, err)
	if failures >= offlineAfterFailures {
		monitor.SetOnline(false)
	}
	return failures
}

// calculateBackoff returns the exponential backoff duration for the given
// number of consecutive failures, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

package netmon

import (
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/five82/tasksync/internal/cache"
	"github.com/five82/tasksync/internal/clock"
	"github.com/five82/tasksync/internal/query"
)

// EventKind identifies a connectivity transition.
type EventKind int

const (
	// EventOffline is sent on an online to offline transition.
	EventOffline EventKind = iota
	// EventRecovered is sent when connectivity returns after an offline
	// period. Subscribers must start their revalidation before returning.
	EventRecovered
)

func (k EventKind) String() string {
	if k == EventRecovered {
		return "recovered"
	}
	return "offline"
}

// Event describes one transition.
type Event struct {
	Kind       EventKind
	At         time.Time
	OfflineFor time.Duration // set on EventRecovered
}

// Options configure a Monitor.
type Options struct {
	Clock        clock.Clock
	Logger       *log.Logger
	StartOffline bool
}

// Monitor tracks online/offline state. It starts online unless told
// otherwise; the zero value is not usable.
type Monitor struct {
	clock  clock.Clock
	logger *log.Logger

	mu           sync.Mutex
	online       bool
	wasOffline   bool
	offlineSince time.Time
	subs         map[int]func(Event)
	nextID       int
}

// New returns a Monitor.
func New(opts Options) *Monitor {
	m := &Monitor{
		clock:  opts.Clock,
		logger: opts.Logger,
		online: true,
		subs:   make(map[int]func(Event)),
	}
	if m.clock == nil {
		m.clock = clock.Real()
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	if opts.StartOffline {
		m.online = false
		m.wasOffline = true
		m.offlineSince = m.clock.Now()
	}
	return m
}

// IsOnline reports the current connectivity.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// WasOffline reports whether an offline period has not yet been reported as
// recovered.
func (m *Monitor) WasOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wasOffline
}

// OfflineSince returns when the current offline period began.
func (m *Monitor) OfflineSince() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online {
		return time.Time{}, false
	}
	return m.offlineSince, true
}

// OfflineDurationSince formats the time elapsed since ts.
func (m *Monitor) OfflineDurationSince(ts time.Time) string {
	return FormatDuration(m.clock.Now().Sub(ts))
}

// OfflineDurationText formats the length of the current offline period, or
// returns "" while online.
func (m *Monitor) OfflineDurationText() string {
	since, ok := m.OfflineSince()
	if !ok {
		return ""
	}
	return m.OfflineDurationSince(since)
}

// HasUsableCache reports whether c holds a result set for sig that can be
// served while offline. Stale entries qualify; they are flagged on display.
func (m *Monitor) HasUsableCache(c *cache.Cache, sig query.Signature) bool {
	if c == nil {
		return false
	}
	_, ok := c.Get(sig)
	return ok
}

// Subscribe registers fn for transitions. Callbacks run synchronously in the
// goroutine that reported the transition.
func (m *Monitor) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// SetOnline feeds the platform connectivity signal. Repeated reports of the
// same state are ignored. On recovery subscribers are notified first and the
// wasOffline latch is cleared only after every subscriber returned.
func (m *Monitor) SetOnline(online bool) {
	now := m.clock.Now()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	var ev Event
	if !online {
		m.wasOffline = true
		m.offlineSince = now
		ev = Event{Kind: EventOffline, At: now}
	} else {
		ev = Event{Kind: EventRecovered, At: now, OfflineFor: now.Sub(m.offlineSince)}
	}
	subs := m.subscribersLocked()
	m.mu.Unlock()

	if online {
		m.logger.Printf("connectivity restored after %s", FormatDuration(ev.OfflineFor))
	} else {
		m.logger.Printf("connectivity lost")
	}

	for _, fn := range subs {
		fn(ev)
	}

	if online {
		m.mu.Lock()
		if m.online {
			m.wasOffline = false
			m.offlineSince = time.Time{}
		}
		m.mu.Unlock()
	}
}

func (m *Monitor) subscribersLocked() []func(Event) {
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.subs[id])
	}
	return out
}

// FormatDuration formats a duration with hours, minutes, and seconds.
// Durations under a second render as "0s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, mins, s)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, s)
	}
	return fmt.Sprintf("%ds", s)
}

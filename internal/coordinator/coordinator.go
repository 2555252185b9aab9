package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/five82/tasksync/internal/api"
	"github.com/five82/tasksync/internal/cache"
	"github.com/five82/tasksync/internal/clock"
	"github.com/five82/tasksync/internal/errclass"
	"github.com/five82/tasksync/internal/netmon"
	"github.com/five82/tasksync/internal/query"
)

// Settle window bounds.
const (
	DefaultSettleWindow = 150 * time.Millisecond
	MinSettleWindow     = 100 * time.Millisecond
	MaxSettleWindow     = 200 * time.Millisecond
)

// ErrStarted is returned by a second call to Start.
var ErrStarted = errors.New("coordinator already started")

// Persister stores the selection between sessions.
type Persister interface {
	Save(c query.Criteria, o query.SortOrder)
	Load() (query.Criteria, query.SortOrder, bool)
	ClearPersisted()
}

// AuthHandler evicts credentials and hands the user off to sign-in. It is
// called once per auth failure, from the coordinator's event loop.
type AuthHandler interface {
	HandleAuthFailure(errclass.Classification)
}

// AuthFunc adapts a function to AuthHandler.
type AuthFunc func(errclass.Classification)

func (f AuthFunc) HandleAuthFailure(c errclass.Classification) { f(c) }

// Options wire a Coordinator. State and Fetcher are required; everything else
// has a usable default.
type Options struct {
	State        *query.State
	Fetcher      api.TaskLister
	Persist      Persister
	Monitor      *netmon.Monitor
	Cache        *cache.Cache
	Auth         AuthHandler
	Clock        clock.Clock
	Logger       *log.Logger
	SettleWindow time.Duration // clamped to [MinSettleWindow, MaxSettleWindow]
}

// ClampSettleWindow applies the default and bounds to d.
func ClampSettleWindow(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultSettleWindow
	case d < MinSettleWindow:
		return MinSettleWindow
	case d > MaxSettleWindow:
		return MaxSettleWindow
	}
	return d
}

type flight struct {
	gen    uint64
	sig    query.Signature
	cancel context.CancelFunc
}

// Coordinator turns selection changes into fetches and fetch outcomes into
// views. Every transition runs on one serial loop; fetches run in their own
// goroutines and post their outcome back to it.
type Coordinator struct {
	state   *query.State
	fetcher api.TaskLister
	persist Persister
	monitor *netmon.Monitor
	cache   *cache.Cache
	auth    AuthHandler
	clock   clock.Clock
	logger  *log.Logger
	settle  time.Duration

	loop loop

	// Owned by the loop.
	ctx        context.Context
	view       View
	gen        uint64
	appliedGen uint64
	flights    []flight
	timer      clock.Timer
	timerSeq   uint64
	terminal   bool
	closed     bool

	startOnce sync.Once
	unsubs    []func()

	mu       sync.RWMutex
	snapshot View
	subs     map[int]func(View)
	nextID   int
}

// New builds a Coordinator. It does nothing until Start.
func New(opts Options) (*Coordinator, error) {
	if opts.State == nil {
		return nil, fmt.Errorf("coordinator: state is nil")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("coordinator: fetcher is nil")
	}
	c := &Coordinator{
		state:   opts.State,
		fetcher: opts.Fetcher,
		persist: opts.Persist,
		monitor: opts.Monitor,
		cache:   opts.Cache,
		auth:    opts.Auth,
		clock:   opts.Clock,
		logger:  opts.Logger,
		settle:  ClampSettleWindow(opts.SettleWindow),
		subs:    make(map[int]func(View)),
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.cache == nil {
		c.cache = cache.New(cache.Options{Now: c.clock.Now})
	}
	if c.monitor == nil {
		c.monitor = netmon.New(netmon.Options{Clock: c.clock, Logger: c.logger})
	}
	crit, order := c.state.Get()
	c.view = View{Status: StatusIdle, Criteria: crit, Order: order, Signature: query.SignatureOf(crit, order)}
	c.snapshot = c.view
	return c, nil
}

// Start restores the persisted selection, subscribes to the state and the
// monitor, and issues the first fetch. Fetch contexts derive from ctx.
func (c *Coordinator) Start(ctx context.Context) error {
	started := false
	c.startOnce.Do(func() { started = true })
	if !started {
		return ErrStarted
	}

	if c.persist != nil {
		if crit, order, ok := c.persist.Load(); ok {
			c.state.Restore(crit, order)
		}
	}

	c.loop.do(func() { c.ctx = ctx })
	c.unsubs = append(c.unsubs,
		c.state.Subscribe(func(ch query.Change) {
			c.loop.do(func() { c.onChange(ch) })
		}),
		// The monitor clears its recovery latch when this returns, so the
		// revalidation fetch must already be issued.
		c.monitor.Subscribe(func(ev netmon.Event) {
			c.loop.wait(func() { c.onNetwork(ev) })
		}),
	)
	c.loop.do(func() { c.dispatch(false) })
	return nil
}

// Close stops the settle timer, cancels outstanding fetches and detaches from
// the state and monitor. Late fetch outcomes are ignored.
func (c *Coordinator) Close() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
	c.loop.do(func() {
		c.closed = true
		c.stopSettle()
		for _, f := range c.flights {
			f.cancel()
		}
		c.flights = nil
	})
}

// Snapshot returns the most recently published view.
func (c *Coordinator) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Subscribe registers fn for every published view. Callbacks run on the
// coordinator loop and must not block.
func (c *Coordinator) Subscribe(fn func(View)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Cache exposes the result cache.
func (c *Coordinator) Cache() *cache.Cache { return c.cache }

// Selection returns the current criteria and order. It can run ahead of the
// last published view.
func (c *Coordinator) Selection() (query.Criteria, query.SortOrder) { return c.state.Get() }

// SetFilter replaces the criteria.
func (c *Coordinator) SetFilter(crit query.Criteria) { c.state.Set(crit) }

// SetOrder replaces the sort order.
func (c *Coordinator) SetOrder(o query.SortOrder) { c.state.SetOrder(o) }

// RemoveFilter clears one filter field.
func (c *Coordinator) RemoveFilter(f query.Field) {
	crit, _ := c.state.Get()
	c.state.Set(crit.Without(f))
}

// ResetOrder restores the default sort order.
func (c *Coordinator) ResetOrder() { c.state.SetOrder(query.DefaultOrder()) }

// ClearAll resets filters and order and forgets the persisted selection.
func (c *Coordinator) ClearAll() {
	if c.persist != nil {
		c.persist.ClearPersisted()
	}
	c.state.Clear()
}

// Retry re-enters loading for the current selection.
func (c *Coordinator) Retry() {
	c.loop.do(func() { c.dispatch(true) })
}

// ApplyMutation runs a write against the API. On success every cached result
// set is invalidated and the current selection is fetched again. Failures are
// returned classified; an auth failure also ends the session.
func (c *Coordinator) ApplyMutation(ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		cls := errclass.Classify(err)
		if cls.Kind == errclass.KindAuth {
			c.loop.do(func() { c.enterTerminal(cls) })
		}
		return cls
	}
	c.loop.do(func() {
		c.cache.InvalidateAll()
		c.dispatch(true)
	})
	return nil
}

func (c *Coordinator) onChange(ch query.Change) {
	if c.closed {
		return
	}
	if c.persist != nil && !ch.Cleared && validate(ch.Criteria, ch.Order) == nil {
		c.persist.Save(ch.Criteria, ch.Order)
	}
	if c.terminal || !(ch.Touches(query.FieldPriority) || ch.OrderChanged) {
		c.stopSettle()
		c.dispatch(false)
		return
	}
	c.hold()
}

func (c *Coordinator) onNetwork(ev netmon.Event) {
	switch ev.Kind {
	case netmon.EventRecovered:
		c.cache.MarkRecovered()
		if c.closed || c.terminal || c.ctx == nil {
			return
		}
		c.logger.Printf("revalidating %s after %s offline", c.view.Signature, netmon.FormatDuration(ev.OfflineFor))
		c.dispatch(true)
	case netmon.EventOffline:
		if c.view.Status != StatusError || c.view.Error == nil || c.view.Error.Kind != errclass.KindNetwork {
			return
		}
		c.fallBack(c.view.Signature)
	}
}

// prepare points the view at the current selection, dropping rows that
// belong to another signature. It reports false, with the view already
// published, when no fetch may be issued.
func (c *Coordinator) prepare() (query.Criteria, query.SortOrder, query.Signature, bool) {
	crit, order := c.state.Get()
	sig := query.SignatureOf(crit, order)
	c.view.Criteria, c.view.Order, c.view.Signature = crit, order, sig
	if c.view.RowsSignature != sig {
		c.dropRows()
	}

	if c.terminal {
		c.publish()
		return crit, order, sig, false
	}

	if err := validate(crit, order); err != nil {
		c.cancelFlights("")
		c.stopSettle()
		cls := errclass.Classify(fmt.Errorf("%w: %v", errclass.ErrCorruptState, err))
		c.logger.Printf("refusing to fetch %s: %v", sig, err)
		c.showError(cls, "")
		return crit, order, sig, false
	}
	return crit, order, sig, true
}

// dispatch issues a fetch for the current selection. Unless forced, a fetch
// already in flight for the same signature is reused.
func (c *Coordinator) dispatch(force bool) {
	if c.closed || c.ctx == nil {
		return
	}
	crit, order, sig, ok := c.prepare()
	if !ok {
		return
	}

	if !force && c.view.Status == StatusLoading && c.hasFlight(sig) {
		return
	}

	c.cancelFlights(sig)
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(c.ctx)
	c.flights = append(c.flights, flight{gen: gen, sig: sig, cancel: cancel})

	c.enterLoading()

	go func() {
		rows, err := c.fetcher.ListTasks(ctx, crit, order)
		c.loop.do(func() { c.resolve(gen, sig, rows, err) })
	}()
}

// hold enters loading for a racy change without fetching. The settle timer
// issues the fetch once edits stop arriving.
func (c *Coordinator) hold() {
	if c.closed || c.ctx == nil {
		return
	}
	if _, _, _, ok := c.prepare(); !ok {
		return
	}
	c.cancelFlights("")
	c.enterLoading()
	c.armSettle(settleFetch)
}

func (c *Coordinator) enterLoading() {
	c.view.Status = StatusLoading
	c.view.Error = nil
	c.view.OfflineDurationText = ""
	c.publish()
}

func validate(crit query.Criteria, order query.SortOrder) error {
	if err := crit.Validate(); err != nil {
		return err
	}
	return order.Validate()
}

func (c *Coordinator) resolve(gen uint64, sig query.Signature, rows []api.Task, err error) {
	c.finishFlight(gen)
	if c.closed || c.terminal {
		return
	}
	current := c.state.Signature()

	if err == nil {
		if sig != current || gen <= c.appliedGen {
			c.logger.Printf("discarding superseded result for %s (generation %d)", sig, gen)
			return
		}
		c.appliedGen = gen
		c.cache.Put(sig, rows)
		entry, _ := c.cache.Get(sig)
		c.view.Status = StatusSuccess
		c.view.Rows = entry.Rows
		c.view.RowsSignature = sig
		c.view.FetchedAt = entry.FetchedAt
		c.view.UsingFallback = false
		c.view.Stale = false
		c.view.Error = nil
		c.view.OfflineDurationText = ""
		c.publish()
		return
	}

	if gen != c.gen || errclass.IsCanceled(err) {
		return
	}
	c.fail(sig, errclass.Classify(err))
}

func (c *Coordinator) fail(sig query.Signature, cls errclass.Classification) {
	c.logger.Printf("fetch %s failed: %v", sig, cls)
	switch cls.Kind {
	case errclass.KindAuth:
		c.enterTerminal(cls)
		return
	case errclass.KindValidation:
		c.showError(cls, "")
		return
	}
	if c.monitor.IsOnline() {
		c.showError(cls, "")
		return
	}
	if c.fallBack(sig) {
		return
	}
	c.showError(cls, c.monitor.OfflineDurationText())
}

// fallBack serves the cached rows for sig when the monitor considers them
// usable.
func (c *Coordinator) fallBack(sig query.Signature) bool {
	if !c.monitor.HasUsableCache(c.cache, sig) {
		return false
	}
	entry, ok := c.cache.Get(sig)
	if !ok {
		return false
	}
	c.view.Status = StatusSuccess
	c.view.Rows = entry.Rows
	c.view.RowsSignature = sig
	c.view.FetchedAt = entry.FetchedAt
	c.view.UsingFallback = true
	c.view.Stale = entry.Stale
	c.view.Error = nil
	c.view.OfflineDurationText = c.monitor.OfflineDurationSince(entry.FetchedAt)
	c.publish()
	return true
}

// showError keeps rows only when they were fetched for the current
// signature.
func (c *Coordinator) showError(cls errclass.Classification, offlineText string) {
	if c.view.RowsSignature != c.view.Signature {
		c.dropRows()
	}
	c.view.Status = StatusError
	c.view.Error = &cls
	c.view.UsingFallback = false
	c.view.OfflineDurationText = offlineText
	c.publish()
}

func (c *Coordinator) dropRows() {
	c.view.Rows = nil
	c.view.RowsSignature = ""
	c.view.FetchedAt = time.Time{}
	c.view.UsingFallback = false
	c.view.Stale = false
}

func (c *Coordinator) enterTerminal(cls errclass.Classification) {
	if c.terminal || c.closed {
		return
	}
	c.terminal = true
	c.stopSettle()
	c.cancelFlights("")
	c.view.Terminal = true
	c.dropRows()
	c.logger.Printf("session ended: %v", cls)
	if c.auth != nil {
		c.auth.HandleAuthFailure(cls)
	}
	c.showError(cls, "")
}

type settlePhase int

const (
	settleFetch   settlePhase = iota + 1 // deferred fetch for a racy change
	settleRefetch                        // the one forced re-fetch after it
)

// armSettle (re)starts the single settle timer. The fetch phase issues the
// deferred fetch for whatever selection is current when it fires and rearms
// for the refetch phase, which issues exactly one more forced fetch.
func (c *Coordinator) armSettle(phase settlePhase) {
	c.stopSettle()
	seq := c.timerSeq
	c.timer = c.clock.AfterFunc(c.settle, func() {
		c.loop.do(func() {
			if seq != c.timerSeq {
				return
			}
			c.timer = nil
			c.dispatch(true)
			if phase == settleFetch && c.hasFlight(c.view.Signature) {
				c.armSettle(settleRefetch)
			}
		})
	})
}

func (c *Coordinator) stopSettle() {
	c.timerSeq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) hasFlight(sig query.Signature) bool {
	return slices.ContainsFunc(c.flights, func(f flight) bool { return f.sig == sig })
}

// cancelFlights cancels every outstanding fetch whose signature differs from
// keep. An empty keep cancels all of them.
func (c *Coordinator) cancelFlights(keep query.Signature) {
	c.flights = slices.DeleteFunc(c.flights, func(f flight) bool {
		if keep != "" && f.sig == keep {
			return false
		}
		f.cancel()
		return true
	})
}

func (c *Coordinator) finishFlight(gen uint64) {
	c.flights = slices.DeleteFunc(c.flights, func(f flight) bool {
		if f.gen == gen {
			f.cancel()
			return true
		}
		return false
	})
}

func (c *Coordinator) publish() {
	v := c.view
	c.mu.Lock()
	c.snapshot = v
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func(View), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, c.subs[id])
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

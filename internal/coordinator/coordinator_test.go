package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/tasksync/internal/api"
	"github.com/five82/tasksync/internal/cache"
	"github.com/five82/tasksync/internal/clock"
	"github.com/five82/tasksync/internal/errclass"
	"github.com/five82/tasksync/internal/netmon"
	"github.com/five82/tasksync/internal/prefs"
	"github.com/five82/tasksync/internal/query"
)

var t0 = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fetchReply struct {
	rows []api.Task
	err  error
}

type fetchCall struct {
	Criteria query.Criteria
	Order    query.SortOrder
	Sig      query.Signature
	Ctx      context.Context
	reply    chan fetchReply
}

func (c *fetchCall) succeed(rows ...api.Task) { c.reply <- fetchReply{rows: rows} }
func (c *fetchCall) fail(err error)           { c.reply <- fetchReply{err: err} }

// fakeFetcher hands every ListTasks call to the test, which decides when and
// how it completes. Cancellation is ignored so late responses can be
// simulated.
type fakeFetcher struct {
	calls chan *fetchCall
	done  chan struct{}
}

func (f *fakeFetcher) ListTasks(ctx context.Context, crit query.Criteria, order query.SortOrder) ([]api.Task, error) {
	call := &fetchCall{
		Criteria: crit,
		Order:    order,
		Sig:      query.SignatureOf(crit, order),
		Ctx:      ctx,
		reply:    make(chan fetchReply, 1),
	}
	select {
	case f.calls <- call:
	case <-f.done:
		return nil, context.Canceled
	}
	select {
	case r := <-call.reply:
		return r.rows, r.err
	case <-f.done:
		return nil, context.Canceled
	}
}

type authRecorder struct {
	mu    sync.Mutex
	calls []errclass.Classification
}

func (a *authRecorder) HandleAuthFailure(c errclass.Classification) {
	a.mu.Lock()
	a.calls = append(a.calls, c)
	a.mu.Unlock()
}

func (a *authRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type harness struct {
	t       *testing.T
	clk     *clock.Fake
	state   *query.State
	fetch   *fakeFetcher
	monitor *netmon.Monitor
	cache   *cache.Cache
	kv      *prefs.MemoryKV
	logs    *syncBuffer
	auth    *authRecorder
	c       *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		clk:   clock.NewFake(t0),
		state: query.NewState(),
		fetch: &fakeFetcher{calls: make(chan *fetchCall, 32), done: make(chan struct{})},
		kv:    prefs.NewMemoryKV(),
		logs:  &syncBuffer{},
		auth:  &authRecorder{},
	}
	logger := log.New(h.logs, "", 0)
	h.monitor = netmon.New(netmon.Options{Clock: h.clk, Logger: logger})
	h.cache = cache.New(cache.Options{Now: h.clk.Now})

	c, err := New(Options{
		State:   h.state,
		Fetcher: h.fetch,
		Persist: prefs.New(h.kv, logger),
		Monitor: h.monitor,
		Cache:   h.cache,
		Auth:    h.auth,
		Clock:   h.clk,
		Logger:  logger,
	})
	require.NoError(t, err)
	h.c = c
	t.Cleanup(func() {
		c.Close()
		close(h.fetch.done)
	})
	return h
}

func (h *harness) start() {
	h.t.Helper()
	require.NoError(h.t, h.c.Start(context.Background()))
}

// startLoaded starts the coordinator and completes the initial fetch.
func (h *harness) startLoaded(rows ...api.Task) View {
	h.t.Helper()
	h.start()
	h.nextCall().succeed(rows...)
	return h.waitFor("initial success", func(v View) bool { return v.Status == StatusSuccess })
}

func (h *harness) nextCall() *fetchCall {
	h.t.Helper()
	select {
	case call := <-h.fetch.calls:
		return call
	case <-time.After(2 * time.Second):
		h.t.Fatalf("timed out waiting for a fetch; view = %+v", h.c.Snapshot())
		return nil
	}
}

// settle lets queued transitions run, then fires the pending settle timer.
func (h *harness) settle() {
	h.t.Helper()
	h.c.loop.wait(func() {})
	h.clk.Advance(DefaultSettleWindow)
}

func (h *harness) noCall() {
	h.t.Helper()
	select {
	case call := <-h.fetch.calls:
		h.t.Fatalf("unexpected fetch for %s", call.Sig)
	case <-time.After(50 * time.Millisecond):
	}
}

func (h *harness) waitFor(desc string, pred func(View) bool) View {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v := h.c.Snapshot()
		if pred(v) {
			return v
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("timed out waiting for %s; view = %+v", desc, v)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (h *harness) waitLogCount(substr string, n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return strings.Count(h.logs.String(), substr) >= n
	}, 2*time.Second, 2*time.Millisecond, "log never contained %d x %q:\n%s", n, substr, h.logs.String())
}

func task(id int64, title string) api.Task {
	return api.Task{ID: id, Title: title, CreatedAt: "2026-09-01 10:00:00"}
}

func refused() error {
	return fmt.Errorf("list tasks: execute request: %w", syscall.ECONNREFUSED)
}

func statusErr(code int) error {
	return fmt.Errorf("list tasks: %w", &api.StatusError{Method: http.MethodGet, Path: "/api/tasks", StatusCode: code})
}

func TestNew_RequiresStateAndFetcher(t *testing.T) {
	_, err := New(Options{Fetcher: &fakeFetcher{}})
	require.Error(t, err)
	_, err = New(Options{State: query.NewState()})
	require.Error(t, err)
}

func TestStart_LoadsPersistedSelectionBeforeFirstFetch(t *testing.T) {
	h := newHarness(t)
	crit := query.Criteria{}.WithPriority(query.PriorityHigh).WithSearch("report")
	order := query.SortOrder{Field: query.SortTitle, Direction: query.Ascending}
	prefs.New(h.kv, nil).Save(crit, order)

	h.start()
	call := h.nextCall()

	if diff := cmp.Diff(crit, call.Criteria); diff != "" {
		t.Fatalf("first fetch criteria mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, order, call.Order)
	require.Equal(t, StatusLoading, h.c.Snapshot().Status)
	require.ErrorIs(t, h.c.Start(context.Background()), ErrStarted)
}

func TestSuccessIsRenderedAndCached(t *testing.T) {
	h := newHarness(t)
	v := h.startLoaded(task(1, "write report"), task(2, "file taxes"))

	require.Len(t, v.Rows, 2)
	require.False(t, v.UsingFallback)
	require.Nil(t, v.Error)
	require.Equal(t, t0, v.FetchedAt)

	entry, ok := h.cache.Get(v.Signature)
	require.True(t, ok)
	require.False(t, entry.Stale)
	require.Len(t, entry.Rows, 2)
}

func TestLateResponseForSupersededSelectionIsDropped(t *testing.T) {
	h := newHarness(t)
	h.startLoaded(task(1, "everything"))

	h.c.SetFilter(query.Criteria{}.WithPriority(query.PriorityHigh))
	h.settle()
	alta := h.nextCall()
	h.c.SetFilter(query.Criteria{}.WithPriority(query.PriorityMedium))
	h.settle()
	media := h.nextCall()

	require.Equal(t, query.PriorityHigh, alta.Criteria.Priority)
	require.Equal(t, query.PriorityMedium, media.Criteria.Priority)
	require.Error(t, alta.Ctx.Err(), "superseded fetch should be canceled")

	media.succeed(task(20, "medium task"))
	h.waitFor("media result", func(v View) bool {
		return v.Status == StatusSuccess && v.Signature == media.Sig
	})

	alta.succeed(task(10, "high task"))
	h.waitLogCount("discarding superseded result", 1)

	v := h.c.Snapshot()
	require.Equal(t, media.Sig, v.Signature)
	require.Equal(t, []api.Task{task(20, "medium task")}, v.Rows)
	_, cached := h.cache.Get(alta.Sig)
	require.False(t, cached, "superseded result must not be cached")
}

func TestReorderedCompletionsRenderLatestSelection(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	var calls []*fetchCall
	for i := 1; i <= 5; i++ {
		h.c.SetFilter(query.Criteria{}.WithSearch(fmt.Sprintf("q%d", i)))
		calls = append(calls, h.nextCall())
	}
	for i := len(calls) - 1; i >= 0; i-- {
		calls[i].succeed(task(int64(i), calls[i].Criteria.Search))
	}
	v := h.waitFor("latest selection", func(v View) bool {
		return v.Status == StatusSuccess && v.Signature == h.state.Signature()
	})
	h.waitLogCount("discarding superseded result", 4)

	require.Equal(t, "q5", v.Rows[0].Title)
	require.Equal(t, 2, h.cache.Len(), "initial result plus the latest selection")
}

func TestOlderGenerationNeverOverwritesNewer(t *testing.T) {
	h := newHarness(t)
	h.start()
	first := h.nextCall()
	h.c.Retry()
	second := h.nextCall()

	require.Equal(t, first.Sig, second.Sig)
	require.NoError(t, first.Ctx.Err(), "same-signature fetch must not be canceled")

	second.succeed(task(2, "newer"))
	h.waitFor("newer rows", func(v View) bool { return v.Status == StatusSuccess })
	first.succeed(task(1, "older"))
	h.waitLogCount("discarding superseded result", 1)

	require.Equal(t, "newer", h.c.Snapshot().Rows[0].Title)
	entry, _ := h.cache.Get(second.Sig)
	require.Equal(t, "newer", entry.Rows[0].Title)
}

func TestSettleWindowForcesExactlyOneRefetch(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()
	require.Zero(t, h.clk.Pending(), "initial fetch must not arm the settle timer")

	h.c.SetOrder(query.SortOrder{Field: query.SortTitle, Direction: query.Ascending})
	h.noCall()
	held := h.c.Snapshot()
	require.Equal(t, StatusLoading, held.Status)
	require.Equal(t, h.state.Signature(), held.Signature)
	require.Empty(t, held.VisibleRows())

	h.settle()
	first := h.nextCall()
	require.Equal(t, h.state.Signature(), first.Sig)
	require.Eventually(t, func() bool { return h.clk.Pending() == 1 }, time.Second, time.Millisecond, "refetch phase must be armed")

	first.succeed(task(1, "a"))
	h.waitFor("first result", func(v View) bool { return v.Status == StatusSuccess && v.Signature == first.Sig })

	h.clk.Advance(DefaultSettleWindow)
	forced := h.nextCall()
	require.Equal(t, first.Sig, forced.Sig)
	require.Zero(t, h.clk.Pending())

	forced.succeed(task(1, "a"))
	h.waitFor("forced result", func(v View) bool { return v.Status == StatusSuccess })
	h.clk.Advance(time.Second)
	h.noCall()
}

func TestSettleTimerIsResetNotStacked(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	h.c.SetFilter(query.Criteria{}.WithPriority(query.PriorityHigh))
	h.c.loop.wait(func() {})
	h.clk.Advance(100 * time.Millisecond)
	h.noCall()

	h.c.SetOrder(query.SortOrder{Field: query.SortPriority, Direction: query.Descending})
	h.c.loop.wait(func() {})
	require.Equal(t, 1, h.clk.Pending())

	h.clk.Advance(100 * time.Millisecond)
	h.noCall()

	h.clk.Advance(50 * time.Millisecond)
	first := h.nextCall()
	require.Equal(t, h.state.Signature(), first.Sig, "the fetch targets the selection current when the timer fires")
	require.Equal(t, query.PriorityHigh, first.Criteria.Priority)

	h.c.loop.wait(func() {})
	h.clk.Advance(DefaultSettleWindow)
	forced := h.nextCall()
	require.Equal(t, first.Sig, forced.Sig)
	require.Zero(t, h.clk.Pending())
}

func TestRapidPriorityEditsIssueOneFetch(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	for _, p := range query.Priorities {
		h.c.SetFilter(query.Criteria{}.WithPriority(p))
	}
	h.noCall()

	h.settle()
	call := h.nextCall()
	require.Equal(t, query.PriorityLow, call.Criteria.Priority)
	h.noCall()
}

func TestNonRacyChangeStopsSettleTimer(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	crit := query.Criteria{}.WithPriority(query.PriorityLow)
	h.c.SetFilter(crit)
	h.c.loop.wait(func() {})
	require.Equal(t, 1, h.clk.Pending())

	h.c.SetFilter(crit.WithSearch("groceries"))
	call := h.nextCall()
	require.Equal(t, query.PriorityLow, call.Criteria.Priority)
	require.Eventually(t, func() bool { return h.clk.Pending() == 0 }, time.Second, time.Millisecond)

	h.clk.Advance(time.Second)
	h.noCall()
}

func TestCloseStopsSettleTimer(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	h.c.SetOrder(query.DefaultOrder().Reversed())
	h.settle()
	call := h.nextCall()
	require.Eventually(t, func() bool { return h.clk.Pending() == 1 }, time.Second, time.Millisecond)
	h.c.Close()

	require.Zero(t, h.clk.Pending())
	require.Error(t, call.Ctx.Err())
	h.clk.Advance(time.Second)
	h.noCall()
}

func TestOfflineFallbackReportsAgeOfCachedRows(t *testing.T) {
	h := newHarness(t)
	cached := []api.Task{task(1, "buy milk"), task(2, "call mom")}
	h.startLoaded(cached...)

	h.clk.Advance(5 * time.Second)
	h.monitor.SetOnline(false)
	h.clk.Advance(5 * time.Second)

	h.c.Retry()
	h.nextCall().fail(refused())

	v := h.waitFor("fallback", func(v View) bool { return v.UsingFallback })
	require.Equal(t, StatusSuccess, v.Status)
	require.Equal(t, cached, v.Rows)
	require.Equal(t, "10s", v.OfflineDurationText)
	require.Nil(t, v.Error)
	require.Equal(t, t0, v.FetchedAt)
}

func TestOfflineWithoutCacheIsNetworkError(t *testing.T) {
	h := newHarness(t)
	h.monitor.SetOnline(false)
	h.start()
	h.nextCall().fail(refused())

	v := h.waitFor("error", func(v View) bool { return v.Status == StatusError })
	require.NotNil(t, v.Error)
	assert.Equal(t, errclass.KindNetwork, v.Error.Kind)
	assert.True(t, v.Error.CanRetry)
	assert.False(t, v.UsingFallback)
	assert.NotEmpty(t, v.OfflineDurationText)
}

func TestOfflineEventUpgradesNetworkErrorToFallback(t *testing.T) {
	h := newHarness(t)
	h.startLoaded(task(1, "cached"))

	h.c.Retry()
	h.nextCall().fail(refused())
	v := h.waitFor("network error while online", func(v View) bool { return v.Status == StatusError })
	require.Equal(t, errclass.KindNetwork, v.Error.Kind)

	h.monitor.SetOnline(false)
	v = h.waitFor("fallback", func(v View) bool { return v.UsingFallback })
	require.Equal(t, "cached", v.Rows[0].Title)
}

func TestValidationErrorNeverFallsBack(t *testing.T) {
	h := newHarness(t)
	h.startLoaded(task(1, "cached"))
	h.monitor.SetOnline(false)

	h.c.Retry()
	h.nextCall().fail(statusErr(http.StatusUnprocessableEntity))

	v := h.waitFor("validation error", func(v View) bool { return v.Status == StatusError })
	require.Equal(t, errclass.KindValidation, v.Error.Kind)
	require.False(t, v.Error.CanRetry)
	require.False(t, v.UsingFallback)
}

func TestAuthFailureIsTerminalAndEvictsOnce(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.nextCall().fail(statusErr(http.StatusUnauthorized))

	v := h.waitFor("terminal", func(v View) bool { return v.Terminal })
	require.Equal(t, StatusError, v.Status)
	require.Equal(t, errclass.KindAuth, v.Error.Kind)
	require.False(t, v.Error.CanRetry)
	require.Equal(t, 1, h.auth.count())

	h.c.Retry()
	h.c.SetFilter(query.Criteria{}.WithPriority(query.PriorityHigh))
	h.monitor.SetOnline(false)
	h.monitor.SetOnline(true)
	h.noCall()
	require.Equal(t, 1, h.auth.count())
	require.Zero(t, h.clk.Pending())
}

func TestRetryRefetchesAfterServerError(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.nextCall().fail(statusErr(http.StatusServiceUnavailable))

	v := h.waitFor("server error", func(v View) bool { return v.Status == StatusError })
	require.Equal(t, errclass.KindServer, v.Error.Kind)
	require.True(t, v.Error.CanRetry)

	h.c.Retry()
	require.Equal(t, StatusLoading, h.c.Snapshot().Status)
	h.nextCall().succeed(task(1, "back"))
	h.waitFor("success", func(v View) bool { return v.Status == StatusSuccess })
}

func TestRecoveryRevalidatesCurrentSelection(t *testing.T) {
	h := newHarness(t)
	v := h.startLoaded(task(1, "before outage"))

	h.monitor.SetOnline(false)
	h.clk.Advance(30 * time.Second)
	h.monitor.SetOnline(true)

	call := h.nextCall()
	require.Equal(t, v.Signature, call.Sig)
	require.False(t, h.monitor.WasOffline())
	entry, ok := h.cache.Get(v.Signature)
	require.True(t, ok)
	require.True(t, entry.Stale, "entries fetched before recovery must read as stale")

	call.succeed(task(1, "after outage"))
	h.waitFor("revalidated", func(v View) bool {
		return v.Status == StatusSuccess && len(v.Rows) == 1 && v.Rows[0].Title == "after outage"
	})
	entry, _ = h.cache.Get(v.Signature)
	require.False(t, entry.Stale)
	require.Contains(t, h.logs.String(), "revalidating")
}

func TestApplyMutationInvalidatesCacheAndRefetches(t *testing.T) {
	h := newHarness(t)
	h.startLoaded(task(1, "open"))
	h.cache.Put(query.SignatureOf(query.Criteria{}.WithSearch("x"), query.DefaultOrder()), nil)
	require.Equal(t, 2, h.cache.Len())

	var called bool
	err := h.c.ApplyMutation(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)

	call := h.nextCall()
	require.Zero(t, h.cache.Len())
	call.succeed(task(1, "done"))
	h.waitFor("refetched", func(v View) bool { return v.Status == StatusSuccess && v.Rows[0].Title == "done" })
	require.Equal(t, 1, h.cache.Len())
}

func TestApplyMutationAuthFailureEndsSession(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	err := h.c.ApplyMutation(context.Background(), func(context.Context) error {
		return statusErr(http.StatusForbidden)
	})
	var cls errclass.Classification
	require.True(t, errors.As(err, &cls))
	require.Equal(t, errclass.KindAuth, cls.Kind)

	h.waitFor("terminal", func(v View) bool { return v.Terminal })
	require.Equal(t, 1, h.auth.count())
	h.noCall()
}

func TestApplyMutationFailureKeepsCache(t *testing.T) {
	h := newHarness(t)
	h.startLoaded(task(1, "open"))

	err := h.c.ApplyMutation(context.Background(), func(context.Context) error { return refused() })
	var cls errclass.Classification
	require.True(t, errors.As(err, &cls))
	require.Equal(t, errclass.KindNetwork, cls.Kind)
	require.Equal(t, 1, h.cache.Len())
	h.noCall()
}

func TestChangesArePersisted(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	crit := query.Criteria{}.WithTag("home").WithCompletion(query.CompletionDone)
	h.c.SetFilter(crit)
	h.nextCall()

	got, order, ok := prefs.New(h.kv, nil).Load()
	require.True(t, ok)
	require.True(t, got.Equal(crit))
	require.True(t, order.IsDefault())
}

func TestClearAllForgetsPersistedSelection(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	h.c.SetFilter(query.Criteria{}.WithPriority(query.PriorityHigh))
	h.c.SetOrder(query.SortOrder{Field: query.SortTitle, Direction: query.Ascending})
	h.settle()
	h.nextCall()
	_, _, ok := prefs.New(h.kv, nil).Load()
	require.True(t, ok)

	h.c.ClearAll()
	h.settle()
	call := h.nextCall()
	require.True(t, call.Criteria.IsZero())
	require.True(t, call.Order.IsDefault())

	_, _, ok = prefs.New(h.kv, nil).Load()
	require.False(t, ok, "ClearAll must remove the persisted selection")
}

func TestRemoveFilterAndResetOrder(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	h.c.SetFilter(query.Criteria{}.WithPriority(query.PriorityLow).WithSearch("bills"))
	h.settle()
	h.nextCall()
	h.c.RemoveFilter(query.FieldSearch)
	call := h.nextCall()
	require.Equal(t, []query.Field{query.FieldPriority}, call.Criteria.Active())

	h.c.SetOrder(query.SortOrder{Field: query.SortDueDate, Direction: query.Ascending})
	h.settle()
	h.nextCall()
	h.c.ResetOrder()
	h.settle()
	call = h.nextCall()
	require.True(t, call.Order.IsDefault())
}

func TestCorruptSelectionForcesReload(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()

	h.c.SetFilter(query.Criteria{Priority: "urgent"})
	v := h.waitFor("corrupt state", func(v View) bool { return v.Status == StatusError })
	require.True(t, v.Error.ShouldForceReload)
	h.noCall()

	_, _, ok := prefs.New(h.kv, nil).Load()
	require.False(t, ok, "invalid selections are never persisted")

	h.c.ClearAll()
	h.settle()
	h.nextCall()
}

func TestSubscribeReceivesEveryPublishedView(t *testing.T) {
	h := newHarness(t)
	var (
		mu       sync.Mutex
		statuses []Status
	)
	unsub := h.c.Subscribe(func(v View) {
		mu.Lock()
		statuses = append(statuses, v.Status)
		mu.Unlock()
	})
	h.startLoaded(task(1, "x"))
	unsub()

	h.c.Retry()
	h.nextCall()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []Status{StatusLoading, StatusSuccess}, statuses)
}

func TestClampSettleWindow(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultSettleWindow},
		{-time.Second, DefaultSettleWindow},
		{10 * time.Millisecond, MinSettleWindow},
		{120 * time.Millisecond, 120 * time.Millisecond},
		{time.Second, MaxSettleWindow},
	}
	for _, tt := range tests {
		if got := ClampSettleWindow(tt.in); got != tt.want {
			t.Fatalf("ClampSettleWindow(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFailedFetchNeverShowsAnotherSelectionsRows(t *testing.T) {
	h := newHarness(t)
	h.startLoaded()
	h.c.SetFilter(query.Criteria{}.WithPriority(query.PriorityHigh))
	h.settle()
	h.nextCall().succeed(task(1, "a1"), task(2, "a2"), task(3, "a3"))
	alta := h.waitFor("alta rows", func(v View) bool { return v.Status == StatusSuccess && len(v.Rows) == 3 })

	h.c.SetFilter(query.Criteria{}.WithPriority(query.PriorityMedium))
	h.c.loop.wait(func() {})
	held := h.c.Snapshot()
	require.NotEqual(t, alta.Signature, held.Signature)
	require.Empty(t, held.Rows, "loading view must not carry the previous selection's rows")

	h.settle()
	h.nextCall().fail(statusErr(http.StatusInternalServerError))
	v := h.waitFor("server error", func(v View) bool { return v.Status == StatusError })
	require.Equal(t, h.state.Signature(), v.Signature)
	require.Empty(t, v.Rows)
	require.Empty(t, v.VisibleRows())
	require.False(t, v.UsingFallback)

	h.monitor.SetOnline(false)
	h.c.Retry()
	h.nextCall().fail(refused())
	v = h.waitFor("network error", func(v View) bool {
		return v.Status == StatusError && v.Error.Kind == errclass.KindNetwork
	})
	require.Empty(t, v.Rows, "no cache entry for the new selection means no rows")
	require.False(t, v.UsingFallback)
}

func TestRetryFailureKeepsRowsOfSameSelection(t *testing.T) {
	h := newHarness(t)
	loaded := h.startLoaded(task(1, "kept"))

	h.c.Retry()
	h.nextCall().fail(statusErr(http.StatusServiceUnavailable))
	v := h.waitFor("server error", func(v View) bool { return v.Status == StatusError })
	require.Equal(t, loaded.Signature, v.RowsSignature)
	require.Equal(t, "kept", v.VisibleRows()[0].Title)
}

// Package coordinator keeps the task list view consistent with the current
// filter and sort selection.
//
// # Overview
//
// A Coordinator sits between the selection (query.State), the remote API
// (api.TaskLister), the connectivity monitor (netmon.Monitor), the result
// cache (cache.Cache) and the preference store. It is the only component that
// issues list fetches and the only one that decides what the user sees. The
// presentation layer reads a View and calls the command methods; it never
// fetches on its own.
//
// # Lifecycle
//
//	idle ──Start──> loading ──> success
//	                   │   └──> error
//	                   └─────── (selection change, Retry, recovery) ──> loading
//
// Start restores the persisted selection, subscribes to the state and the
// monitor and issues the first fetch. Close stops the settle timer, cancels
// outstanding fetches and detaches; outcomes arriving after Close are ignored.
//
// # Fetch Resolution
//
// Every fetch is tagged with the selection's signature and a monotonically
// increasing generation. Outcomes are applied only when they still match:
//
//   - a success is rendered and written to the cache only if its signature is
//     the current one and its generation is newer than the last applied one;
//   - a failure is considered only if it came from the latest fetch.
//
// Superseded fetches have their context cancelled, but cancellation is
// advice: a transport that ignores it still has its result discarded by the
// signature check.
//
// # Row Ownership
//
// View.RowsSignature names the signature the rows were fetched for. As soon
// as the selection moves to another signature the rows are dropped, so a
// loading or error view never shows rows that belong to a different
// selection. Consumers read View.VisibleRows, which also checks the pair.
// Rows of the same signature survive a failed retry.
//
// # Settle Window
//
// Changes that touch the priority filter or the sort order race with the
// backend, which has been seen to answer with the previous selection. For
// those changes the coordinator enters loading without fetching and arms a
// single settle timer:
//
//  1. First firing: fetch the selection current at that moment, re-arm once
//  2. Second firing: exactly one forced re-fetch, whether or not the first
//     fetch has returned
//
// Further racy changes restart the timer at step 1, so a burst of key presses
// costs one fetch. Other changes stop the timer and fetch at once. The window
// is clamped to 100-200ms (ClampSettleWindow).
//
// # Failure Handling
//
// Failures are classified with errclass:
//
//   - Auth: the session becomes terminal. The AuthHandler is told exactly
//     once, rows are dropped and no further fetches are issued.
//   - Validation: shown as an error, never served from the cache.
//   - Anything else while the monitor reports offline and
//     Monitor.HasUsableCache holds for the signature: degraded success with
//     the cached rows, UsingFallback set and the age of those rows in
//     OfflineDurationText.
//   - Otherwise: an error, with the offline duration when offline.
//
// An invalid selection (for example a corrupted persisted sort field) is
// never fetched or persisted; it surfaces as ErrCorruptState with
// ShouldForceReload so the UI can reset the filters.
//
// # Connectivity Events
//
// EventOffline upgrades a current network error to fallback when the cache
// allows it. EventRecovered marks cached entries stale and forces a
// revalidation of the current selection. The monitor subscriber waits until
// its handler has run on the loop, so the revalidation fetch is issued before
// the monitor clears its recovery latch.
//
// # Mutations
//
// ApplyMutation runs a write against the API. On success every cache entry
// is invalidated and the current selection is fetched again. Failures are
// returned classified; an auth failure also ends the session.
//
// # Concurrency Model
//
// All transitions run on a serial loop: the first goroutine to post a
// handler drains the queue, and handlers posted meanwhile, including
// re-entrant ones, run after the current handler in submission order. None
// of the coordinator's working state needs its own lock; only the published
// snapshot and the subscriber list do. Subscriber callbacks run on the loop
// and must not block.
//
// # Usage Example
//
//	c, err := coordinator.New(coordinator.Options{
//		State:   state,
//		Fetcher: client,
//		Persist: store,
//		Monitor: monitor,
//		Cache:   results,
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	unsubscribe := c.Subscribe(render)
//	defer unsubscribe()
//	if err := c.Start(ctx); err != nil {
//		return err
//	}
package coordinator

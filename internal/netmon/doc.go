// Package netmon tracks connectivity for the sync engine.
//
// # Overview
//
// Monitor is a two-state machine (online, offline) with a wasOffline latch.
// It does not probe anything itself: the platform signal, or the poller in
// internal/app standing in for one, calls SetOnline. A new Monitor starts
// online.
//
// # Transitions
//
//	online ──SetOnline(false)──> offline   latch set, EventOffline
//	offline ──SetOnline(true)──> online    EventRecovered, then latch cleared
//
// Repeated reports of the current state are ignored and notify nobody.
//
// # Recovery Ordering
//
// Subscribers run synchronously inside SetOnline, in subscription order. The
// latch is cleared only after every subscriber has returned. The coordinator
// subscribes with a callback that waits for its event loop to run the
// handler, so by the time SetOnline(true) returns the cache has been marked
// for revalidation and the revalidation fetch has been issued.
//
// Subscribers must not call SetOnline from inside their callback.
//
// # Cache Predicate
//
// HasUsableCache reports whether the result cache holds rows for a
// signature. Stale entries qualify and are flagged on display. The
// coordinator asks it before every fallback.
//
// # Durations
//
// FormatDuration renders "10s", "1m 5s" or "2h 3m 4s":
//
//	netmon.FormatDuration(65 * time.Second)   // "1m 5s"
//	netmon.FormatDuration(7384 * time.Second) // "2h 3m 4s"
//
// OfflineDurationText is measured from the start of the current offline
// period and is empty while online. OfflineDurationSince measures from any
// timestamp, which the coordinator uses to show how old fallback data is.
//
// # Thread Safety
//
// All state sits behind one mutex. The lock is never held while
// subscribers run.
package netmon

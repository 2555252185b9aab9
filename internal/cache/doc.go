// Package cache holds the last successful result set per query signature.
//
// # Overview
//
// The cache is the offline fallback for the sync engine. The composition root
// constructs one Cache and hands it to every consumer; it outlives any single
// view session. Losing it is always safe: the only effect is that a failed
// fetch has nothing to fall back to.
//
// # Semantics
//
//   - Put replaces the entry for a signature with a full snapshot. Rows are
//     never merged.
//   - Get returns a defensive copy. Stale is computed at read time: an entry
//     is stale once it is older than the freshness window, or when it was
//     fetched before the most recent MarkRecovered call.
//   - InvalidateAll runs after any successful mutation, because every result
//     set may contain the mutated task.
//   - With MaxEntries set, Put evicts the entries with the oldest fetch time
//     first.
//
// # Concurrency Model
//
// A sync.RWMutex guards the map. Reads run concurrently, writes are
// exclusive and last-write-wins, and the lock is never held during I/O.
package cache

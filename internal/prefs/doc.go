// Package prefs persists the task list filter and sort selection across
// sessions, along with the UI theme.
//
// # Overview
//
// Store saves, loads and clears one selection. Values are encoded as TOML
// and kept in a KV backend chosen by the storage_backend config key.
//
// # Backends
//
//   - file (default): one <key>.toml file per key under the state directory,
//     written atomically through a temp file and rename
//   - sqlite: a kv table in <state_dir>/tasksync.db, WAL mode
//   - memory: an in-process map, used by tests and --ephemeral
//
// OpenKV picks one by name. Keys are lowercase slugs; the selection lives
// under "view-filters" and the theme under "ui".
//
// # Record Format
//
//	version = 1
//	signature = "dir=asc&priority=alta&sort=title"
//	priority = "alta"
//	sort_field = "title"
//	sort_dir = "asc"
//
// Dates are YYYY-MM-DD strings and enums use their wire names. The stored
// signature is recomputed on load; a mismatch, an unknown version or any
// decode failure is treated as no persisted selection.
//
// # Failure Semantics
//
// Persistence is best effort. No Store method returns an error or panics:
// backend errors and panics are recovered and logged, and the caller carries
// on with an in-memory selection.
//
//   - Save of a selection identical to the one last written or loaded is
//     skipped
//   - Load of a missing, corrupt or mismatched record reports false
//   - ClearPersisted of a missing record is a no-op
//
// # Thread Safety
//
// Store serializes its own calls with a mutex. FileKV and SQLiteKV can be
// shared by several stores; last write wins.
package prefs

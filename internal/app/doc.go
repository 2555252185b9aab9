// Package app is the composition root for tasksync.
//
// # Overview
//
// Open wires a loaded configuration, the API client, the query state, the
// result cache, the connectivity monitor, the preference store and the
// coordinator into a Session. Run drives that session from the TUI; List and
// Reset are the one-shot commands behind `tasksync list` and
// `tasksync reset`.
//
// # Components
//
//   - app.go: Session wiring, Run, List and Reset
//   - poller.go: background health probe feeding the connectivity monitor
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()          Read config.toml and env overrides
//	       ├─────> Open(cfg)              Client, state, cache, monitor, prefs
//	       ├─────> StartPoller()          Probe /api/health, feed netmon
//	       ├─────> Coordinator.Start()    Restore selection, first fetch
//	       └─────> ui.Run()               Bubble Tea program (blocks)
//
// The configuration is loaded once and handed to Open; nothing below Run
// reads the file again.
//
// # Session Wiring
//
// Open builds every component from the configuration:
//
//   - api.Client from api_url and token
//   - prefs.Store over the configured backend (file, sqlite, memory);
//     --ephemeral forces memory, and a backend that cannot be opened falls
//     back to memory with a log line
//   - cache.Cache with the freshness window and the entry cap
//   - netmon.Monitor, initially online
//   - coordinator.Coordinator with the settle window, the persister when
//     persist is true, and an AuthHandler that clears the token and every
//     cached result set
//
// # Polling Behavior
//
// The poller probes the API at the configured interval. Two consecutive
// connectivity failures mark the monitor offline; any answer from the server,
// including an HTTP error, marks it online again. While probes fail the
// interval backs off exponentially up to 30 seconds:
//
//	failures:  1    2    3    4
//	backoff:   10s  20s  30s  30s   (5s base interval)
//
// # One-Shot Listing
//
// List opens a session, applies an explicit selection when one was given
// (without persisting it), starts the coordinator and waits for the first
// settled view of the current signature. The view is printed as a
// lipgloss table followed by a summary line. A one-shot process starts
// online with an empty cache, so the result is either live rows or the
// classified error, returned as "[LABEL] message".
//
// # Logging
//
// The TUI owns the terminal, so Run redirects the standard logger to
// tasksync.log under the state directory and gives the session a logger
// prefixed "tasksync: " with microsecond timestamps. `tasksync logs` reads
// the same file through logtail. The one-shot commands discard engine logs.
//
// # Error Handling
//
// Fatal errors (returned from Run, List, Reset):
//   - Malformed configuration
//   - Unusable API URL
//   - Log file cannot be created
//   - List: the fetch failed, or no settled view arrived before the timeout
//
// Recoverable errors (logged):
//   - Preference backend unavailable (falls back to memory)
//   - Probe and fetch failures
//   - Credentials rejected by the server (token cleared, session terminal)
package app

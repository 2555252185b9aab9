// Package ui provides the Bubble Tea task list for tasksync.
//
// # Architecture Overview
//
// The UI never fetches on its own. Every key that changes the filter or sort
// selection calls into a Controller (the coordinator in production), which
// decides what to fetch and publishes a coordinator.View. Published views
// reach the Bubble Tea loop through a one-slot feed that keeps only the newest
// undelivered view, so a burst of transitions renders as its final state.
//
// # Package Structure
//
//   - app.go: Model, key handling, Run
//   - feed.go: latest-wins bridge from coordinator callbacks to tea messages
//   - render.go: header, filter chips, status banner, task table, footer
//   - help.go: key overlay built from the key map
//   - keys.go: bindings
//   - theme.go: Dracula and Slate palettes with priority badge colors
//   - style_helpers.go: background-preserving bar rendering
//   - strings.go: width-aware truncation
//
// # Screen Layout
//
//	tasksync │ http://127.0.0.1:8080 │ online │ 12 tasks
//	priority alta ["invoice"] sort created_at desc (default)
//	updated 09:41:07
//	╭─────┬──────────────┬──────────┬────────┬──────╮
//	│     │ TITLE        │ PRIORITY │ DUE    │ TAGS │
//	├─────┼──────────────┼──────────┼────────┼──────┤
//	│ [ ] │ Pay invoice  │ alta     │ Oct 20 │ work │
//	╰─────┴──────────────┴──────────┴────────┴──────╯
//	/ search · p priority · ... · 1/12
//
// The table shows only the rows the view holds for its own signature
// (View.VisibleRows). The header count, the cursor and the toggle action use
// the same rows, so an error after a selection change shows an empty table
// under the new filters rather than the previous result.
//
// # Status Banner
//
// The banner shows, in order of precedence: the sign-in notice after an auth
// failure, the classified error with its label (and "press r to retry" when
// a retry can help), the cached-data notice with offline duration and
// staleness, or the time of the last successful fetch. A spinner replaces it
// while a fetch is in flight.
//
// # Forced Reload
//
// A view whose error asks for a forced reload (a corrupted selection) makes
// the model call ClearAll once for that signature and show "filters were
// reset". A second view with the same signature does not clear again.
//
// # Mutations
//
// Toggling a task runs in a tea.Cmd through Controller.ApplyMutation, so
// the cache is invalidated and the list refetched on success. The outcome
// comes back as a notice next to the banner.
//
// # Keyboard Shortcuts
//
//   - / search, p priority, c done/pending, backspace drop last filter
//   - s next sort field, o reverse, R default sort, x clear everything
//   - t or space toggle the selected task, r retry
//   - j/k move, g/G top/bottom, T theme, ? help, q quit
//
// After an auth failure the session is terminal: only quit, help and theme
// keys respond.
//
// # Themes
//
// T cycles Dracula and Slate. The choice is saved through the ThemeStore
// and restored on the next start.
package ui

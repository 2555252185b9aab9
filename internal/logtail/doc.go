// Package logtail reads the tail of the tasksync log file.
//
// # Overview
//
// The TUI owns the terminal, so the engine logs to a file. `tasksync logs`
// uses this package to show the end of that file, optionally narrowed to
// lines containing a substring.
//
// # Reading Log Files
//
// Read scans the file once and keeps the last N matching lines in a ring
// buffer:
//
//   - Memory stays O(N), not O(file size)
//   - Lines come back in chronological order
//   - Lines up to 1 MiB are accepted
//
// Example usage:
//
//	lines, err := logtail.Read(cfg.LogPath(), logtail.Options{Lines: 50, Match: "fetch"})
//	if err != nil {
//		return err
//	}
//
// # Ring Buffer Algorithm
//
//	1. Allocate a buffer of Lines entries
//	2. For each line that matches:
//	   - store it at the current index
//	   - advance the index, wrapping at Lines
//	   - count it
//	3. Fewer than Lines matches: return them as stored
//	4. Otherwise: return the buffer starting at the current index
//
// Lines <= 0 returns every matching line.
//
// # Matching
//
// Match is a case-insensitive substring. Useful needles for the engine's own
// messages are "discarding superseded result", "revalidating", "fetch" and
// "session ended".
//
// # Errors
//
// A missing log file is not an error: Read returns nil, nil because a fresh
// install has not logged anything yet. Open and scan failures are wrapped.
package logtail

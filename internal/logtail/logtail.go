package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Options select which lines Read returns.
type Options struct {
	// Lines caps the result to the most recent matching lines. Zero or
	// negative returns every match.
	Lines int
	// Match keeps only lines containing it, case-insensitively.
	Match string
}

// Read returns the matching lines at the end of the log at path, oldest
// first. A missing file yields no lines and no error.
func Read(path string, opts Options) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	match := strings.ToLower(opts.Match)
	keep := func(line string) bool {
		return match == "" || strings.Contains(strings.ToLower(line), match)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if opts.Lines <= 0 {
		var lines []string
		for scanner.Scan() {
			if line := scanner.Text(); keep(line) {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	limit := opts.Lines
	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if !keep(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tasksync/internal/coordinator"
)

// viewFeed hands published views to the Bubble Tea loop. Only the newest
// undelivered view is kept; push never blocks the publisher.
type viewFeed struct {
	ch chan coordinator.View
}

func newViewFeed() *viewFeed {
	return &viewFeed{ch: make(chan coordinator.View, 1)}
}

func (f *viewFeed) push(v coordinator.View) {
	for {
		select {
		case f.ch <- v:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// wait blocks until a view arrives or ctx ends.
func (f *viewFeed) wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case v := <-f.ch:
			return viewMsg(v)
		case <-ctx.Done():
			return nil
		}
	}
}

package coordinator

import "sync"

// loop is a serial executor. Handlers posted with do run one at a time in
// submission order. The first caller to find the loop idle drains the queue
// in its own goroutine; posts made while it drains, including re-entrant
// posts from a running handler, are queued and return immediately.
type loop struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

func (l *loop) do(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	for len(l.queue) > 0 {
		next := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		next()
		l.mu.Lock()
	}
	l.running = false
	l.mu.Unlock()
}

// wait posts fn and blocks until it has run, whichever goroutine drains it.
// It must not be called from a handler on the same loop.
func (l *loop) wait(fn func()) {
	done := make(chan struct{})
	l.do(func() {
		defer close(done)
		fn()
	})
	<-done
}

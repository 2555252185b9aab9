package coordinator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoop_ReentrantPostsRunAfterCurrentHandler(t *testing.T) {
	var l loop
	var order []string
	l.do(func() {
		order = append(order, "outer-start")
		l.do(func() { order = append(order, "inner") })
		order = append(order, "outer-end")
	})
	require.Equal(t, []string{"outer-start", "outer-end", "inner"}, order)
}

func TestLoop_SerializesConcurrentPosts(t *testing.T) {
	var (
		l       loop
		wg      sync.WaitGroup
		running int
		maxSeen int
		total   int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.do(func() {
				running++
				if running > maxSeen {
					maxSeen = running
				}
				total++
				running--
			})
		}()
	}
	wg.Wait()
	// A poster may return before its handler ran on another drainer.
	done := make(chan struct{})
	l.do(func() { close(done) })
	<-done
	require.Equal(t, 1, maxSeen)
	require.Equal(t, 50, total)
}

func TestLoop_WaitBlocksUntilHandlerRanOnAnotherDrainer(t *testing.T) {
	var l loop
	started := make(chan struct{})
	release := make(chan struct{})
	go l.do(func() {
		close(started)
		<-release
	})
	<-started

	ran := false
	returned := make(chan struct{})
	go func() {
		l.wait(func() { ran = true })
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatalf("wait returned while its handler was still queued")
	case <-time.After(30 * time.Millisecond):
	}
	close(release)
	<-returned
	require.True(t, ran)
}

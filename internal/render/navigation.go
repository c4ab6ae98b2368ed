package render

import (
	"context"
	"sync"
)

// loadTracker follows the main-frame navigations of one page so a load wait
// can be tied to the navigation a click starts rather than to whatever
// document happens to be live.
type loadTracker struct {
	mu        sync.Mutex
	committed uint64 // main-frame navigations seen
	loaded    uint64 // value of committed when the last load event fired
	armed     bool
	mark      uint64
	changed   chan struct{}
}

func newLoadTracker() *loadTracker {
	return &loadTracker{changed: make(chan struct{})}
}

// frameNavigated records a committed main-frame navigation.
func (t *loadTracker) frameNavigated() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed++
	t.broadcast()
}

// loadFired records the load event of the current main document.
func (t *loadTracker) loadFired() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded = t.committed
	t.broadcast()
}

// arm notes that a navigation is about to start. The next wait returns only
// once a later navigation has committed and loaded.
func (t *loadTracker) arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
	t.mark = t.committed
}

// disarm forgets an armed navigation that never started.
func (t *loadTracker) disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
}

// wait blocks until the armed navigation has loaded. With nothing armed it
// returns at once.
func (t *loadTracker) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if !t.armed {
			t.mu.Unlock()
			return nil
		}
		if t.loaded > t.mark {
			t.armed = false
			t.mu.Unlock()
			return nil
		}
		changed := t.changed
		t.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// broadcast wakes every waiter. Callers hold mu.
func (t *loadTracker) broadcast() {
	close(t.changed)
	t.changed = make(chan struct{})
}

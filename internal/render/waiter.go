package render

import (
	"context"
	"sync"
)

// ResponseHub fans observed responses out to registered waiters. Engines
// feed it from their network event listeners; test doubles feed it from
// their simulated navigations.
type ResponseHub struct {
	mu      sync.Mutex
	waiters map[*hubWaiter]struct{}
}

// NewResponseHub returns an empty hub.
func NewResponseHub() *ResponseHub {
	return &ResponseHub{waiters: make(map[*hubWaiter]struct{})}
}

// Expect registers a waiter for the next response accepted by match. A nil
// match accepts any response.
func (h *ResponseHub) Expect(match ResponseMatcher) ResponseWaiter {
	w := &hubWaiter{
		hub:   h,
		match: match,
		ch:    make(chan Response, 1),
	}
	h.mu.Lock()
	h.waiters[w] = struct{}{}
	h.mu.Unlock()
	return w
}

// Deliver hands r to every waiter that matches it. A waiter is satisfied at
// most once and is removed once it has a response.
func (h *ResponseHub) Deliver(r Response) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.waiters {
		if w.match != nil && !w.match(r) {
			continue
		}
		w.ch <- r
		delete(h.waiters, w)
	}
}

// Pending returns the number of waiters still registered.
func (h *ResponseHub) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiters)
}

func (h *ResponseHub) remove(w *hubWaiter) {
	h.mu.Lock()
	delete(h.waiters, w)
	h.mu.Unlock()
}

type hubWaiter struct {
	hub   *ResponseHub
	match ResponseMatcher
	ch    chan Response
}

func (w *hubWaiter) Wait(ctx context.Context) (Response, error) {
	select {
	case r := <-w.ch:
		return r, nil
	case <-ctx.Done():
		w.Cancel()
		return Response{}, &Error{Op: "wait for response", Message: "no matching response", Cause: ctx.Err()}
	}
}

func (w *hubWaiter) Cancel() {
	w.hub.remove(w)
}

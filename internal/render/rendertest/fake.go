// Package rendertest provides a deterministic in-memory render handle and
// Hacker News shaped HTML fixtures for tests.
package rendertest

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonathan/recency-check/internal/render"
)

// Page is one page of the fake list.
type Page struct {
	Timestamps []string
	// Status is the response status observed when navigating to this page.
	// Zero means 200.
	Status int
}

// Fake is a render.Session over a fixed list of pages. The element at
// position i of the current page answers to ItemSelector(i); NextSelector
// exists while a following page does.
type Fake struct {
	Pages        []Page
	ItemSelector func(pos int) string
	NextSelector string
	// URL is reported with every response. Defaults to https://news.ycombinator.com/newest.
	URL string

	// TextDelay, when set, delays the InnerText answer for position pos.
	TextDelay func(pos int) time.Duration
	// TextErr, when set, fails InnerText for (page, pos).
	TextErr func(page, pos int) error
	// ClickErr fails every Click.
	ClickErr error
	// ClickPanic makes Click panic, mimicking a misbehaving client.
	ClickPanic bool
	// SkipResponse suppresses the navigation response, so waiters block.
	SkipResponse bool

	mu       sync.Mutex
	current  int
	clicks   int
	closed   bool
	hub      *render.ResponseHub
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

var _ render.Session = (*Fake)(nil)

// ErrClosed is returned by a Fake after Close.
var ErrClosed = errors.New("rendertest: session closed")

// CurrentPage returns the index of the page currently shown.
func (f *Fake) CurrentPage() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Clicks returns how many clicks reached the fake.
func (f *Fake) Clicks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clicks
}

// PeakInFlight returns the largest number of concurrent InnerText calls seen.
func (f *Fake) PeakInFlight() int {
	return int(f.peak.Load())
}

// TextCalls returns the number of InnerText calls made.
func (f *Fake) TextCalls() int {
	return int(f.calls.Load())
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) position(selector string) (page, pos int, ok bool) {
	f.mu.Lock()
	page = f.current
	f.mu.Unlock()

	if page >= len(f.Pages) || f.ItemSelector == nil {
		return page, 0, false
	}
	if s := f.Pages[page].Status; s != 0 && s != http.StatusOK {
		// An error page carries no items.
		return page, 0, false
	}
	for i := range f.Pages[page].Timestamps {
		if f.ItemSelector(i) == selector {
			return page, i, true
		}
	}
	return page, 0, false
}

func (f *Fake) hasNext() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current+1 < len(f.Pages)
}

func (f *Fake) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if selector == f.NextSelector {
		if f.hasNext() {
			return 1, nil
		}
		return 0, nil
	}
	if _, _, ok := f.position(selector); ok {
		return 1, nil
	}
	return 0, nil
}

func (f *Fake) InnerText(ctx context.Context, selector string) (string, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	page, pos, ok := f.position(selector)
	if !ok {
		return "", &render.Error{Op: "inner text", Selector: selector, Message: "no matching element"}
	}
	if f.TextDelay != nil {
		select {
		case <-time.After(f.TextDelay(pos)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.TextErr != nil {
		if err := f.TextErr(page, pos); err != nil {
			return "", err
		}
	}
	return f.Pages[page].Timestamps[pos], nil
}

func (f *Fake) Click(ctx context.Context, selector string) error {
	if f.ClickPanic {
		panic("rendertest: click exploded")
	}
	if f.ClickErr != nil {
		return f.ClickErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if selector != f.NextSelector || !f.hasNext() {
		return &render.Error{Op: "click", Selector: selector, Message: "no matching element"}
	}

	f.mu.Lock()
	f.clicks++
	f.current++
	status := f.Pages[f.current].Status
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if !f.SkipResponse {
		f.responses().Deliver(render.Response{Status: status, URL: f.url()})
	}
	return nil
}

// responses returns the hub, creating it on first use so a zero Fake works.
func (f *Fake) responses() *render.ResponseHub {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hub == nil {
		f.hub = render.NewResponseHub()
	}
	return f.hub
}

func (f *Fake) url() string {
	if f.URL != "" {
		return f.URL
	}
	return "https://news.ycombinator.com/newest"
}

func (f *Fake) ExpectResponse(match render.ResponseMatcher) render.ResponseWaiter {
	return f.responses().Expect(match)
}

func (f *Fake) WaitForLoadState(ctx context.Context, _ render.LoadState) error {
	return ctx.Err()
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	return nil
}

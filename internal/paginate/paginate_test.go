package paginate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recency-check/internal/logging"
	"github.com/jonathan/recency-check/internal/render"
	"github.com/jonathan/recency-check/internal/render/rendertest"
)

const next = "a.morelink"

func itemSelector(pos int) string {
	return fmt.Sprintf("span.age:nth(%d)", pos)
}

func newPaginator() *Paginator {
	return New(next, "news.ycombinator.com", time.Second, logging.Discard())
}

func twoPages(secondStatus int) *rendertest.Fake {
	return &rendertest.Fake{
		Pages: []rendertest.Page{
			{Timestamps: []string{"1 minute ago"}},
			{Timestamps: []string{"2 minutes ago"}, Status: secondStatus},
		},
		ItemSelector: itemSelector,
		NextSelector: next,
	}
}

func TestAdvance_Advanced(t *testing.T) {
	fake := twoPages(0)
	outcome, err := newPaginator().Advance(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, Advanced, outcome)
	assert.Equal(t, 1, fake.CurrentPage())
	assert.Equal(t, 1, fake.Clicks())
}

func TestAdvance_NoMorePages(t *testing.T) {
	fake := &rendertest.Fake{
		Pages:        []rendertest.Page{{Timestamps: []string{"1 minute ago"}}},
		ItemSelector: itemSelector,
		NextSelector: next,
	}
	outcome, err := newPaginator().Advance(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, NoMorePages, outcome)
	assert.Zero(t, fake.Clicks())
}

func TestAdvance_RateLimited(t *testing.T) {
	fake := twoPages(http.StatusForbidden)
	outcome, err := newPaginator().Advance(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, RateLimited, outcome)
}

func TestAdvance_OtherErrorStatusesStillAdvance(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusServiceUnavailable, http.StatusTooManyRequests} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			outcome, err := newPaginator().Advance(context.Background(), twoPages(status))
			require.NoError(t, err)
			assert.Equal(t, Advanced, outcome)
		})
	}
}

func TestAdvance_ClickErrorIsNavigationError(t *testing.T) {
	fake := twoPages(0)
	fake.ClickErr = errors.New("detached frame")

	outcome, err := newPaginator().Advance(context.Background(), fake)
	assert.Equal(t, NavigationError, outcome)

	var navErr *NavError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, next, navErr.Selector)
	assert.Contains(t, err.Error(), "detached frame")
}

func TestAdvance_ClickPanicIsNavigationError(t *testing.T) {
	fake := twoPages(0)
	fake.ClickPanic = true

	outcome, err := newPaginator().Advance(context.Background(), fake)
	assert.Equal(t, NavigationError, outcome)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestAdvance_MissingResponseTimesOut(t *testing.T) {
	fake := twoPages(0)
	fake.SkipResponse = true

	p := New(next, "news.ycombinator.com", 50*time.Millisecond, logging.Discard())
	outcome, err := p.Advance(context.Background(), fake)
	assert.Equal(t, NavigationError, outcome)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAdvance_ResponseForOtherHostIgnored(t *testing.T) {
	fake := twoPages(http.StatusForbidden)
	fake.URL = "https://cdn.example.com/asset.js"

	p := New(next, "news.ycombinator.com", 50*time.Millisecond, logging.Discard())
	outcome, _ := p.Advance(context.Background(), fake)
	assert.Equal(t, NavigationError, outcome)
}

// countFails is a handle whose Count call fails.
type countFails struct {
	*rendertest.Fake
}

func (c countFails) Count(context.Context, string) (int, error) {
	return 0, &render.Error{Op: "count", Message: "target closed"}
}

func TestAdvance_CountErrorIsNavigationError(t *testing.T) {
	outcome, err := newPaginator().Advance(context.Background(), countFails{twoPages(0)})
	assert.Equal(t, NavigationError, outcome)
	assert.Contains(t, err.Error(), "failed to locate next page control")
}

// loadAfterClick records whether each load wait began after a click had
// completed.
type loadAfterClick struct {
	*rendertest.Fake
	mu      sync.Mutex
	clicked bool
	early   int
	waits   int
}

func (h *loadAfterClick) Click(ctx context.Context, selector string) error {
	// Give a concurrently started load wait the chance to run first.
	time.Sleep(10 * time.Millisecond)
	err := h.Fake.Click(ctx, selector)
	h.mu.Lock()
	h.clicked = true
	h.mu.Unlock()
	return err
}

func (h *loadAfterClick) WaitForLoadState(ctx context.Context, state render.LoadState) error {
	h.mu.Lock()
	h.waits++
	if !h.clicked {
		h.early++
	}
	h.mu.Unlock()
	return h.Fake.WaitForLoadState(ctx, state)
}

func TestAdvance_LoadWaitFollowsClick(t *testing.T) {
	h := &loadAfterClick{Fake: twoPages(0)}
	outcome, err := newPaginator().Advance(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, Advanced, outcome)
	assert.Equal(t, 1, h.waits)
	assert.Zero(t, h.early, "load wait must not start before the click that navigates")
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "advanced", Advanced.String())
	assert.Equal(t, "no more pages", NoMorePages.String())
	assert.Equal(t, "rate limited", RateLimited.String())
	assert.Equal(t, "navigation error", NavigationError.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}

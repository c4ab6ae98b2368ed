package verify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/recency-check/internal/recency"
	"github.com/jonathan/recency-check/internal/render"
)

// BatchDriver extracts a whole page of timestamps concurrently, then
// verifies it in document order before paginating.
type BatchDriver struct {
	checker
}

var _ Driver = (*BatchDriver)(nil)

// NewBatchDriver returns a batch driver. A nil Paginator defaults to the
// Hacker News "More" link.
func NewBatchDriver(opts Options) *BatchDriver {
	return &BatchDriver{checker: newChecker("batch", opts)}
}

// Name returns "batch".
func (d *BatchDriver) Name() string {
	return d.name
}

// Check verifies up to itemsToCheck items. It never panics or returns an
// error; failures are folded into the Result.
func (d *BatchDriver) Check(ctx context.Context, h render.Handle, itemsToCheck int) Result {
	var seen []string

	res := d.run(ctx, h, itemsToCheck, func(ctx context.Context, h render.Handle, selectors []string, state recency.RunState) (recency.RunState, *recency.Violation, error) {
		page, err := extractPage(ctx, h, selectors)
		if err != nil {
			return state, nil, err
		}
		for _, raw := range page {
			next, _, violation := state.Step(raw)
			if violation != nil {
				return state, violation, nil
			}
			state = next
		}
		seen = append(seen, page...)
		return state, nil, nil
	})

	res.Seen = seen
	return res
}

// extractPage reads every selector concurrently. Results land in a slice
// indexed by page position, so completion order never affects the order
// they are verified in.
func extractPage(ctx context.Context, h render.Handle, selectors []string) ([]string, error) {
	page := make([]string, len(selectors))
	g, gCtx := errgroup.WithContext(ctx)

	for i, selector := range selectors {
		g.Go(guard(func() error {
			text, err := h.InnerText(gCtx, selector)
			if err != nil {
				return err
			}
			page[i] = text
			return nil
		}))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}

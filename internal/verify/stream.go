package verify

import (
	"context"

	"github.com/jonathan/recency-check/internal/recency"
	"github.com/jonathan/recency-check/internal/render"
)

// StreamDriver reads one timestamp at a time and verifies it immediately,
// never holding more than one outstanding extraction.
type StreamDriver struct {
	checker
}

var _ Driver = (*StreamDriver)(nil)

// NewStreamDriver returns a streaming driver. A nil Paginator defaults to
// the Hacker News "More" link.
func NewStreamDriver(opts Options) *StreamDriver {
	return &StreamDriver{checker: newChecker("stream", opts)}
}

// Name returns "stream".
func (d *StreamDriver) Name() string {
	return d.name
}

// Check verifies up to itemsToCheck items, stopping at the first violation.
func (d *StreamDriver) Check(ctx context.Context, h render.Handle, itemsToCheck int) Result {
	return d.run(ctx, h, itemsToCheck, func(ctx context.Context, h render.Handle, selectors []string, state recency.RunState) (recency.RunState, *recency.Violation, error) {
		for _, selector := range selectors {
			raw, err := h.InnerText(ctx, selector)
			if err != nil {
				return state, nil, err
			}
			next, _, violation := state.Step(raw)
			if violation != nil {
				return state, violation, nil
			}
			state = next
		}
		return state, nil, nil
	})
}

// Package verify walks a paginated list through a render handle and checks
// that its timestamps are sorted newest-first. Two drivers are provided:
// BatchDriver reads a whole page concurrently before verifying it,
// StreamDriver reads and verifies one item at a time. Both produce the same
// verdict for the same input.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jonathan/recency-check/internal/logging"
	"github.com/jonathan/recency-check/internal/paginate"
	"github.com/jonathan/recency-check/internal/recency"
	"github.com/jonathan/recency-check/internal/render"
	"github.com/jonathan/recency-check/internal/telemetry"
)

// StopReason says why a run ended.
type StopReason string

const (
	StopCompleted       StopReason = "completed"
	StopViolation       StopReason = "violation"
	StopNoMorePages     StopReason = "no_more_pages"
	StopRateLimited     StopReason = "rate_limited"
	StopNavigationError StopReason = "navigation_error"
	StopFault           StopReason = "fault"
)

func stopFor(o paginate.Outcome) StopReason {
	switch o {
	case paginate.NoMorePages:
		return StopNoMorePages
	case paginate.RateLimited:
		return StopRateLimited
	default:
		return StopNavigationError
	}
}

// Partial reports whether the run ended before reaching its target without
// a violation, i.e. the verdict is best-effort.
func (s StopReason) Partial() bool {
	return s == StopNoMorePages || s == StopRateLimited || s == StopNavigationError
}

// Result is the verdict of one driver run.
type Result struct {
	Driver    string
	RunID     uuid.UUID
	Ordered   bool
	Processed int
	Target    int
	Stop      StopReason
	// Violation is set when Stop is StopViolation.
	Violation *recency.Violation
	// Err is set when Stop is StopFault or StopNavigationError.
	Err       error
	Elapsed   time.Duration
	Telemetry telemetry.Snapshot
	// Seen lists every verified timestamp, in order. Only the batch
	// driver retains them.
	Seen []string
}

// FaultError is an unexpected failure inside a run, converted into a false
// verdict.
type FaultError struct {
	Driver  string
	Message string
	Cause   error
}

func (e *FaultError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s driver fault: %s: %v", e.Driver, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s driver fault: %s", e.Driver, e.Message)
}

func (e *FaultError) Unwrap() error {
	return e.Cause
}

// Driver checks up to itemsToCheck items reachable from h.
type Driver interface {
	Name() string
	Check(ctx context.Context, h render.Handle, itemsToCheck int) Result
}

// Options configures a driver.
type Options struct {
	Layout    Layout
	Paginator *paginate.Paginator
	// Reporter prints telemetry at the end of every run. Nil discards it.
	Reporter *telemetry.Reporter
	Logger   *log.Logger
}

// pageFunc reads and verifies the items at selectors, in page order,
// starting from state. It returns the state after the last accepted item,
// the first violation if any, and an error only for extraction faults.
type pageFunc func(ctx context.Context, h render.Handle, selectors []string, state recency.RunState) (recency.RunState, *recency.Violation, error)

// checker holds the loop shared by both drivers.
type checker struct {
	name string
	opts Options
	log  *log.Logger
}

func newChecker(name string, opts Options) checker {
	logger := logging.Named(opts.Logger, name)
	if opts.Layout.PageSize == 0 {
		opts.Layout = HackerNewsLayout()
	}
	if opts.Paginator == nil {
		opts.Paginator = paginate.New(HackerNewsNextSelector, "news.ycombinator.com", 0, opts.Logger)
	}
	return checker{name: name, opts: opts, log: logger}
}

// run alternates page verification and pagination until the target is
// reached, a violation is found, or pagination stops.
func (c *checker) run(ctx context.Context, h render.Handle, itemsToCheck int, verifyPage pageFunc) (res Result) {
	start := time.Now()
	res = Result{
		Driver:  c.name,
		RunID:   uuid.New(),
		Ordered: true,
		Target:  itemsToCheck,
		Stop:    StopCompleted,
	}
	logger := c.log.With("run", res.RunID.String()[:8])
	logger.Info("starting check", "items", itemsToCheck, "page_size", c.opts.Layout.PageSize)

	state := recency.RunState{}

	defer func() {
		if r := recover(); r != nil {
			res.fault(&FaultError{Driver: c.name, Message: fmt.Sprintf("panic: %v", r)})
		}
		res.Processed = state.Processed()
		res.Elapsed = time.Since(start)
		if res.Err != nil && res.Stop == StopFault {
			logger.Error("error while checking timestamps", "err", res.Err)
		}
		reporter := c.opts.Reporter
		if reporter == nil {
			reporter = telemetry.NewReporter(nil)
		}
		res.Telemetry = reporter.Report(fmt.Sprintf("%s (%s)", c.name, res.Stop), start, res.Processed, itemsToCheck)
	}()

	for state.Processed() < itemsToCheck {
		if err := ctx.Err(); err != nil {
			res.fault(&FaultError{Driver: c.name, Message: "cancelled", Cause: err})
			return res
		}

		selectors := c.opts.Layout.Selectors(state.Processed(), itemsToCheck)
		if len(selectors) == 0 {
			res.fault(&FaultError{Driver: c.name, Message: "layout yields no items per page"})
			return res
		}

		next, violation, err := verifyPage(ctx, h, selectors, state)
		state = next
		if err != nil {
			res.fault(&FaultError{Driver: c.name, Message: "extracting timestamps", Cause: err})
			return res
		}
		if violation != nil {
			logger.Warn("order violation",
				"position", violation.Position,
				"previous", violation.Previous,
				"current", violation.Current)
			res.Ordered = false
			res.Stop = StopViolation
			res.Violation = violation
			return res
		}
		logger.Debug("page verified", "items", len(selectors), "processed", state.Processed())

		if state.Processed() >= itemsToCheck {
			break
		}

		outcome, err := c.opts.Paginator.Advance(ctx, h)
		if outcome != paginate.Advanced {
			res.Stop = stopFor(outcome)
			res.Err = err
			logger.Warn("navigation failed - ending early", "outcome", outcome, "processed", state.Processed())
			break
		}
	}

	return res
}

func (r *Result) fault(err *FaultError) {
	r.Ordered = false
	r.Stop = StopFault
	r.Err = err
}

// guard turns a panic inside fn into an error so it can travel back
// through an errgroup.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("render handle panicked: %v", r)
			}
		}()
		return fn()
	}
}

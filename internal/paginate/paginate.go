// Package paginate advances a rendered list to its next page and
// classifies how the attempt went. It is the only part of the checker that
// talks to the unreliable side of the render handle, and it never returns
// an error: every failure resolves to an Outcome.
package paginate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/recency-check/internal/logging"
	"github.com/jonathan/recency-check/internal/render"
)

// Outcome is the result of one page-advance attempt.
type Outcome int

const (
	Advanced Outcome = iota
	NoMorePages
	RateLimited
	NavigationError
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case NoMorePages:
		return "no more pages"
	case RateLimited:
		return "rate limited"
	case NavigationError:
		return "navigation error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// NavError describes why an advance ended in NavigationError.
type NavError struct {
	Selector string
	Message  string
	Cause    error
}

func (e *NavError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("navigation error at %q: %s: %v", e.Selector, e.Message, e.Cause)
	}
	return fmt.Sprintf("navigation error at %q: %s", e.Selector, e.Message)
}

func (e *NavError) Unwrap() error {
	return e.Cause
}

// Paginator clicks the list's "next" control.
type Paginator struct {
	// NextSelector locates the "next page" control.
	NextSelector string
	// Match selects the navigation response to inspect.
	Match render.ResponseMatcher
	// Timeout bounds one advance attempt. Zero means no extra bound.
	Timeout time.Duration
	Logger  *log.Logger
}

// New returns a Paginator for the given next-control selector, watching
// responses whose URL contains responseHost.
func New(nextSelector, responseHost string, timeout time.Duration, logger *log.Logger) *Paginator {
	return &Paginator{
		NextSelector: nextSelector,
		Match:        render.URLContains(responseHost),
		Timeout:      timeout,
		Logger:       logging.Named(logger, "paginate"),
	}
}

// Advance moves h to the next page. The returned error is nil unless the
// outcome is NavigationError, in which case it is a *NavError explaining it.
func (p *Paginator) Advance(ctx context.Context, h render.Handle) (outcome Outcome, err error) {
	logger := logging.OrDefault(p.Logger)

	defer func() {
		if r := recover(); r != nil {
			outcome = NavigationError
			err = &NavError{Selector: p.NextSelector, Message: fmt.Sprintf("render handle panicked: %v", r)}
			logger.Error("error getting next page", "err", err)
		}
	}()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	count, err := h.Count(ctx, p.NextSelector)
	if err != nil {
		err = &NavError{Selector: p.NextSelector, Message: "failed to locate next page control", Cause: err}
		logger.Error("error getting next page", "err", err)
		return NavigationError, err
	}
	if count == 0 {
		logger.Warn("couldn't find next page link", "selector", p.NextSelector)
		return NoMorePages, nil
	}

	resp, err := p.navigate(ctx, h)
	if err != nil {
		err = &NavError{Selector: p.NextSelector, Message: "navigation failed", Cause: err}
		logger.Error("error getting next page", "err", err)
		return NavigationError, err
	}

	if resp.Status == http.StatusForbidden {
		logger.Warn("detected rate limit", "status", resp.Status, "url", resp.URL)
		return RateLimited, nil
	}
	logger.Debug("advanced", "status", resp.Status, "url", resp.URL)
	return Advanced, nil
}

// navigate clicks the next control while awaiting the navigation response,
// then waits for the page the click opened to settle. The response
// expectation is registered before the click is issued.
func (p *Paginator) navigate(ctx context.Context, h render.Handle) (render.Response, error) {
	waiter := h.ExpectResponse(p.Match)
	defer waiter.Cancel()

	var resp render.Response
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(guard(func() error {
		r, err := waiter.Wait(gCtx)
		if err != nil {
			return fmt.Errorf("waiting for response: %w", err)
		}
		resp = r
		return nil
	}))

	g.Go(guard(func() error {
		if err := h.Click(gCtx, p.NextSelector); err != nil {
			return fmt.Errorf("clicking next page: %w", err)
		}
		if err := h.WaitForLoadState(gCtx, render.LoadStateNetworkIdle); err != nil {
			return fmt.Errorf("waiting for network idle: %w", err)
		}
		return nil
	}))

	if err := g.Wait(); err != nil {
		return render.Response{}, err
	}
	return resp, nil
}

// guard turns a panic inside fn into an error, since a panic on an errgroup
// goroutine cannot be recovered by the caller of Wait.
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

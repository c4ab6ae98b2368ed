package render

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/recency-check/internal/logging"
)

// DefaultNavigationTimeout bounds the initial navigation of a session.
const DefaultNavigationTimeout = 30 * time.Second

// ChromeOptions configures the chromedp engine.
type ChromeOptions struct {
	Headless          bool
	NavigationTimeout time.Duration
	Logger            *log.Logger
}

// ChromeEngine drives a local headless Chrome through chromedp. One
// browser process is shared; every session gets its own browser context.
type ChromeEngine struct {
	opts          ChromeOptions
	log           *log.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromeEngine launches Chrome. Requires Chrome/Chromium to be installed.
func NewChromeEngine(ctx context.Context, opts ChromeOptions) (*ChromeEngine, error) {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	logger := logging.Named(opts.Logger, "chromedp")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run on a fresh context starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, &Error{Op: "launch", Message: "failed to start chrome", Cause: err}
	}
	logger.Debug("browser started", "headless", opts.Headless)

	return &ChromeEngine{
		opts:          opts,
		log:           logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewSession opens a tab in a new browser context and navigates it to url.
func (e *ChromeEngine) NewSession(ctx context.Context, url string) (Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(e.browserCtx, chromedp.WithNewBrowserContext())

	s := &chromeSession{
		ctx:    tabCtx,
		cancel: tabCancel,
		hub:    NewResponseHub(),
		loads:  newLoadTracker(),
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *network.EventResponseReceived:
			if ev.Response == nil || ev.Type != network.ResourceTypeDocument {
				return
			}
			s.hub.Deliver(Response{Status: int(ev.Response.Status), URL: ev.Response.URL})
		case *page.EventFrameNavigated:
			if ev.Frame != nil && ev.Frame.ParentID == "" {
				s.loads.frameNavigated()
			}
		case *page.EventLoadEventFired:
			s.loads.loadFired()
		}
	})

	// Allocate the tab on its own context first so the timeout below only
	// bounds the navigation, not the tab's lifetime.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		tabCancel()
		return nil, &Error{Op: "new session", Message: "failed to open tab", Cause: err}
	}

	navCtx, navCancel := s.bind(ctx)
	defer navCancel()
	navCtx, timeoutCancel := context.WithTimeout(navCtx, e.opts.NavigationTimeout)
	defer timeoutCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		_ = s.Close()
		return nil, &Error{Op: "goto", Message: url, Cause: err}
	}
	e.log.Debug("session opened", "url", url)
	return s, nil
}

// Close shuts the browser down.
func (e *ChromeEngine) Close() error {
	err := chromedp.Cancel(e.browserCtx)
	e.browserCancel()
	e.allocCancel()
	return err
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	hub    *ResponseHub
	loads  *loadTracker
}

// bind derives a chromedp-capable context from the session that is also
// cancelled when the caller's ctx is, and inherits its deadline.
func (s *chromeSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.ctx)
	if deadline, ok := ctx.Deadline(); ok {
		var deadlineCancel context.CancelFunc
		runCtx, deadlineCancel = context.WithDeadline(runCtx, deadline)
		parentCancel := cancel
		cancel = func() {
			deadlineCancel()
			parentCancel()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) Count(ctx context.Context, selector string) (int, error) {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return 0, &Error{Op: "count", Selector: selector, Message: "query failed", Cause: err}
	}
	return len(nodes), nil
}

func (s *chromeSession) InnerText(ctx context.Context, selector string) (string, error) {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	var text string
	if err := chromedp.Run(runCtx, chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return "", &Error{Op: "inner text", Selector: selector, Message: "extraction failed", Cause: err}
	}
	return text, nil
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	s.loads.arm()
	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		s.loads.disarm()
		return &Error{Op: "click", Selector: selector, Message: "click failed", Cause: err}
	}
	return nil
}

func (s *chromeSession) ExpectResponse(match ResponseMatcher) ResponseWaiter {
	return s.hub.Expect(match)
}

// WaitForLoadState waits for the navigation started by the last Click to
// commit and load, then for the new document to reach state.
func (s *chromeSession) WaitForLoadState(ctx context.Context, state LoadState) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()

	if err := s.loads.wait(runCtx); err != nil {
		return &Error{Op: "wait for load state", Message: string(state), Cause: err}
	}

	expr := `document.readyState === "complete"`
	if state == LoadStateDOMContentLoaded {
		expr = `document.readyState !== "loading"`
	}
	var ready bool
	if err := chromedp.Run(runCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Poll(expr, &ready, chromedp.WithPollingInterval(100*time.Millisecond)),
	); err != nil {
		return &Error{Op: "wait for load state", Message: string(state), Cause: err}
	}
	return nil
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	return err
}

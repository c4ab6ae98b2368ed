package render

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/jonathan/recency-check/internal/logging"
)

// idleWindow is how long the page must stay quiet to count as network idle.
const idleWindow = 500 * time.Millisecond

// RodOptions configures the rod engine.
type RodOptions struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty launches a local one.
	RemoteURL         string
	Headless          bool
	NavigationTimeout time.Duration
	Logger            *log.Logger
}

// RodEngine drives Chrome through go-rod. Sessions are incognito contexts
// of one shared browser.
type RodEngine struct {
	opts    RodOptions
	log     *log.Logger
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewRodEngine launches (or connects to) Chrome.
func NewRodEngine(ctx context.Context, opts RodOptions) (*RodEngine, error) {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	logger := logging.Named(opts.Logger, "rod")

	e := &RodEngine{opts: opts, log: logger}

	wsURL := opts.RemoteURL
	if wsURL == "" {
		l := launcher.New().Context(ctx).Headless(opts.Headless)
		u, err := l.Launch()
		if err != nil {
			return nil, &Error{Op: "launch", Message: "failed to start chrome", Cause: err}
		}
		wsURL = u
		e.lnch = l
		logger.Debug("launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		e.cleanup()
		return nil, &Error{Op: "connect", Message: wsURL, Cause: err}
	}
	e.browser = b
	return e, nil
}

// NewSession opens a page in a new incognito context and navigates it to url.
func (e *RodEngine) NewSession(ctx context.Context, url string) (Session, error) {
	incognito, err := e.browser.Incognito()
	if err != nil {
		return nil, &Error{Op: "new session", Message: "failed to create incognito context", Cause: err}
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, &Error{Op: "new session", Message: "failed to open page", Cause: err}
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	s := &rodSession{
		browser: incognito,
		page:    page.Context(sessCtx),
		cancel:  cancel,
		hub:     NewResponseHub(),
		loads:   newLoadTracker(),
	}

	// EachEvent enables the Network and Page domains for as long as the
	// listener runs.
	listen := s.page.EachEvent(func(ev *proto.NetworkResponseReceived) {
		if ev.Type != proto.NetworkResourceTypeDocument || ev.Response == nil {
			return
		}
		s.hub.Deliver(Response{Status: ev.Response.Status, URL: ev.Response.URL})
	}, func(ev *proto.PageFrameNavigated) {
		if ev.Frame != nil && ev.Frame.ParentID == "" {
			s.loads.frameNavigated()
		}
	}, func(*proto.PageLoadEventFired) {
		s.loads.loadFired()
	})
	go listen()

	navCtx, navCancel := context.WithTimeout(ctx, e.opts.NavigationTimeout)
	defer navCancel()

	nav := s.page.Context(navCtx)
	if err := nav.Navigate(url); err != nil {
		_ = s.Close()
		return nil, &Error{Op: "goto", Message: url, Cause: err}
	}
	if err := nav.WaitLoad(); err != nil {
		_ = s.Close()
		return nil, &Error{Op: "goto", Message: url, Cause: err}
	}
	e.log.Debug("session opened", "url", url)
	return s, nil
}

// Close disconnects from Chrome and stops it if this engine launched it.
func (e *RodEngine) Close() error {
	var err error
	// A remote browser belongs to someone else; leave it running.
	if e.browser != nil && e.lnch != nil {
		err = e.browser.Close()
	}
	e.cleanup()
	return err
}

func (e *RodEngine) cleanup() {
	if e.lnch != nil {
		e.lnch.Kill()
		e.lnch.Cleanup()
	}
}

type rodSession struct {
	browser *rod.Browser
	page    *rod.Page
	cancel  context.CancelFunc
	hub     *ResponseHub
	loads   *loadTracker
}

// on returns the page bound to the caller's context.
func (s *rodSession) on(ctx context.Context) *rod.Page {
	return s.page.Context(ctx)
}

func (s *rodSession) Count(ctx context.Context, selector string) (int, error) {
	els, err := s.on(ctx).Elements(selector)
	if err != nil {
		return 0, &Error{Op: "count", Selector: selector, Message: "query failed", Cause: err}
	}
	return len(els), nil
}

func (s *rodSession) InnerText(ctx context.Context, selector string) (string, error) {
	// Element would retry until ctx expires; Elements answers at once.
	els, err := s.on(ctx).Elements(selector)
	if err != nil {
		return "", &Error{Op: "inner text", Selector: selector, Message: "query failed", Cause: err}
	}
	if els.Empty() {
		return "", &Error{Op: "inner text", Selector: selector, Message: "element not found"}
	}
	text, err := els.First().Text()
	if err != nil {
		return "", &Error{Op: "inner text", Selector: selector, Message: "extraction failed", Cause: err}
	}
	return text, nil
}

func (s *rodSession) Click(ctx context.Context, selector string) error {
	el, err := s.on(ctx).Element(selector)
	if err != nil {
		return &Error{Op: "click", Selector: selector, Message: "element not found", Cause: err}
	}
	s.loads.arm()
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		s.loads.disarm()
		return &Error{Op: "click", Selector: selector, Message: "click failed", Cause: err}
	}
	return nil
}

func (s *rodSession) ExpectResponse(match ResponseMatcher) ResponseWaiter {
	return s.hub.Expect(match)
}

// WaitForLoadState waits for the navigation started by the last Click to
// commit and load, then for the page to go quiet when state asks for it.
func (s *rodSession) WaitForLoadState(ctx context.Context, state LoadState) error {
	if err := s.loads.wait(ctx); err != nil {
		return &Error{Op: "wait for load state", Message: string(state), Cause: err}
	}
	p := s.on(ctx)
	if err := p.WaitLoad(); err != nil {
		return &Error{Op: "wait for load state", Message: string(state), Cause: err}
	}
	if state == LoadStateNetworkIdle {
		if err := p.WaitIdle(idleWindow); err != nil {
			return &Error{Op: "wait for load state", Message: string(state), Cause: err}
		}
	}
	return nil
}

func (s *rodSession) Close() error {
	_ = s.page.Context(context.Background()).Close()
	s.cancel()
	return s.browser.Close()
}

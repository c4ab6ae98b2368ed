package render

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/net/publicsuffix"

	"github.com/jonathan/recency-check/internal/logging"
)

// DefaultUserAgent is the user agent string for HTTP engine requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; RecencyCheck/1.0)"

// HTTPOptions configures the browserless engine.
type HTTPOptions struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	Client    *http.Client
	Logger    *log.Logger
}

// HTTPEngine renders server-side HTML only: pages are fetched with
// net/http and queried with goquery. Clicking an element follows its href.
// Suitable for lists that do not depend on JavaScript.
type HTTPEngine struct {
	opts   HTTPOptions
	client *http.Client
	log    *log.Logger
}

// NewHTTPEngine returns an engine using opts, filling zero values with defaults.
func NewHTTPEngine(opts HTTPOptions) *HTTPEngine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultNavigationTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPEngine{
		opts:   opts,
		client: client,
		log:    logging.Named(opts.Logger, "http"),
	}
}

// NewSession fetches url into a fresh session. Each session keeps its own
// cookie jar, so sessions are isolated.
func (e *HTTPEngine) NewSession(ctx context.Context, url string) (Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, &Error{Op: "new session", Message: "failed to create cookie jar", Cause: err}
	}
	client := *e.client
	client.Jar = jar

	s := &httpSession{engine: e, client: &client, hub: NewResponseHub()}
	if _, err := s.load(ctx, url); err != nil {
		return nil, err
	}
	e.log.Debug("session opened", "url", url)
	return s, nil
}

// Close is a no-op; the engine holds no processes.
func (e *HTTPEngine) Close() error {
	return nil
}

type httpSession struct {
	engine *HTTPEngine
	client *http.Client
	hub    *ResponseHub

	mu  sync.RWMutex
	url *url.URL
	doc *goquery.Document
}

// load fetches rawURL, publishes its response and replaces the current
// document. Non-2xx bodies are still parsed, as a browser would show them.
func (s *httpSession) load(ctx context.Context, rawURL string) (Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Response{}, &Error{Op: "goto", Message: "invalid URL " + rawURL, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, &Error{Op: "goto", Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", s.engine.opts.UserAgent)
	for key, value := range s.engine.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Response{}, &Error{Op: "goto", Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Response{}, &Error{Op: "goto", Message: "failed to parse HTML", Cause: err}
	}

	r := Response{Status: resp.StatusCode, URL: resp.Request.URL.String()}
	s.mu.Lock()
	s.url = resp.Request.URL
	s.doc = doc
	s.mu.Unlock()

	s.hub.Deliver(r)
	return r, nil
}

func (s *httpSession) document() *goquery.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

func (s *httpSession) Count(_ context.Context, selector string) (int, error) {
	return s.document().Find(selector).Length(), nil
}

func (s *httpSession) InnerText(_ context.Context, selector string) (string, error) {
	sel := s.document().Find(selector).First()
	if sel.Length() == 0 {
		return "", &Error{Op: "inner text", Selector: selector, Message: "no matching element"}
	}
	return strings.TrimSpace(sel.Text()), nil
}

func (s *httpSession) Click(ctx context.Context, selector string) error {
	sel := s.document().Find(selector).First()
	if sel.Length() == 0 {
		return &Error{Op: "click", Selector: selector, Message: "no matching element"}
	}
	href, ok := sel.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return &Error{Op: "click", Selector: selector, Message: "element has no href"}
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return &Error{Op: "click", Selector: selector, Message: fmt.Sprintf("bad href %q", href), Cause: err}
	}

	s.mu.RLock()
	target := s.url.ResolveReference(ref)
	s.mu.RUnlock()

	if _, err := s.load(ctx, target.String()); err != nil {
		return err
	}
	return nil
}

func (s *httpSession) ExpectResponse(match ResponseMatcher) ResponseWaiter {
	return s.hub.Expect(match)
}

// WaitForLoadState returns immediately: a document is fully loaded by the
// time load returns.
func (s *httpSession) WaitForLoadState(ctx context.Context, _ LoadState) error {
	return ctx.Err()
}

func (s *httpSession) Close() error {
	return nil
}

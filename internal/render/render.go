// Package render defines the rendering/navigation contract the checker
// drives, and the engines that implement it (headless Chrome via chromedp
// or rod, and a browserless HTTP engine).
package render

import (
	"context"
	"fmt"
	"strings"
)

// LoadState names a page load milestone to wait for.
type LoadState string

const (
	// LoadStateDOMContentLoaded waits until the document has been parsed.
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	// LoadStateNetworkIdle waits until the page has stopped loading resources.
	LoadStateNetworkIdle LoadState = "networkidle"
)

// Response is the network response observed for a navigation.
type Response struct {
	Status int
	URL    string
}

// ResponseMatcher selects the response a waiter is interested in.
type ResponseMatcher func(Response) bool

// URLContains returns a matcher for responses whose URL contains substr.
func URLContains(substr string) ResponseMatcher {
	return func(r Response) bool {
		return strings.Contains(r.URL, substr)
	}
}

// ResponseWaiter delivers the first response matching its matcher.
type ResponseWaiter interface {
	// Wait blocks until a matching response arrives or ctx is done.
	Wait(ctx context.Context) (Response, error)
	// Cancel stops listening. Safe to call more than once.
	Cancel()
}

// Handle is a single rendered page. All methods taking a context may block
// on the page or the network.
type Handle interface {
	// Count returns how many elements currently match selector.
	Count(ctx context.Context, selector string) (int, error)
	// InnerText returns the rendered text of the first element matching selector.
	InnerText(ctx context.Context, selector string) (string, error)
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// ExpectResponse registers interest in the next matching response. It
	// registers before returning, so a Click issued afterwards cannot race
	// past it.
	ExpectResponse(match ResponseMatcher) ResponseWaiter
	// WaitForLoadState blocks until the page reaches state.
	WaitForLoadState(ctx context.Context, state LoadState) error
}

// Session is a Handle bound to its own isolated browsing context.
type Session interface {
	Handle
	Close() error
}

// Engine opens isolated sessions.
type Engine interface {
	// NewSession opens a fresh isolated context, navigates it to url and
	// returns the resulting page.
	NewSession(ctx context.Context, url string) (Session, error)
	Close() error
}

// Error represents a failure of a render engine operation.
type Error struct {
	Op       string
	Selector string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	target := e.Op
	if e.Selector != "" {
		target = fmt.Sprintf("%s %q", e.Op, e.Selector)
	}
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %s: %v", target, e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s: %s", target, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

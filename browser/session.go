// Package browser defines the browser session the timing collectors run
// scripts against, and a session implementation driving Chromium through the
// DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ReadyStateScript reads the document ready state of the loaded page.
const ReadyStateScript = "return document.readyState;"

const DefaultPollInterval = 100 * time.Millisecond

// ErrSessionClosed is returned once the browser connection or the page
// target of a session is gone.
var ErrSessionClosed = errors.New("browser session closed")

// Session is one browser tab used for a single page load. A Session is not
// safe for concurrent use.
type Session interface {
	Navigate(ctx context.Context, url string) error                        // Starts loading url.
	WaitUntilReady(ctx context.Context, timeout time.Duration) error       // Blocks until document.readyState is "complete".
	ExecuteScript(ctx context.Context, script string) (interface{}, error) // Runs a function body that uses `return`.
	Capabilities() Capabilities
	Close() error
}

type Capabilities struct {
	BrowserName    string
	BrowserVersion string
	Platform       string
}

// Factory opens a new Session.
type Factory func(ctx context.Context) (Session, error)

// TimeoutError is returned when a page is still loading once the timeout has
// passed.
type TimeoutError struct {
	Timeout time.Duration
	URL     string
	// LastErr is the error of the last readiness check, if it failed.
	LastErr error
}

func (e *TimeoutError) Error() string {
	timeout := e.Timeout.String()
	if e.Timeout%time.Second == 0 {
		timeout = fmt.Sprintf("%ds", int(e.Timeout.Seconds()))
	}
	if e.LastErr != nil {
		return fmt.Sprintf("page was still loading after %s: %v", timeout, e.LastErr)
	}
	return fmt.Sprintf("page was still loading after %s", timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// PollReadyState runs ReadyStateScript through execute every interval until
// the page is complete or timeout has passed. Script errors while the page
// is loading are retried; ErrSessionClosed is returned at once.
func PollReadyState(ctx context.Context, url string, timeout, interval time.Duration, execute func(ctx context.Context, script string) (interface{}, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	err := backoff.Retry(func() error {
		state, err := execute(waitCtx, ReadyStateScript)
		if errors.Is(err, ErrSessionClosed) {
			return backoff.Permanent(err)
		}
		if err != nil {
			if waitCtx.Err() == nil {
				lastErr = err
			}
			return err
		}
		lastErr = nil
		if state != "complete" {
			return fmt.Errorf("document.readyState is %v", state)
		}
		return nil
	}, backoff.WithContext(backoff.NewConstantBackOff(interval), waitCtx))
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrSessionClosed) {
		return fmt.Errorf("PollReadyState() reading document.readyState: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Timeout: timeout, URL: url, LastErr: lastErr}
	}
	if lastErr != nil {
		return fmt.Errorf("PollReadyState() reading document.readyState: %w", lastErr)
	}
	return err
}

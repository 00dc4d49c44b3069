// Package simulated provides a browser session that answers the timing
// collector scripts from a synthetic, seeded page model instead of a real
// browser. It is used for dry runs and tests.
package simulated

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/collector"
)

const (
	Chrome  = collector.Chrome
	Firefox = collector.Firefox
	IE      = collector.IE
)

var ErrNoPage = errors.New("no page loaded")

type Options struct {
	Vendor       string
	Seed         uint64
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	UserMarks    []string
	Resources    int
	// NeverReady keeps document.readyState at "loading".
	NeverReady   bool
	PollInterval time.Duration
}

var (
	versions = map[string]string{
		Chrome:  "120.0.6099.109",
		Firefox: "121.0",
		IE:      "11.0",
	}
	userAgents = map[string]string{
		Chrome:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36",
		Firefox: "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		IE:      "Mozilla/5.0 (Windows NT 10.0; WOW64; Trident/7.0; rv:11.0) like Gecko",
	}
)

// NewFactory returns a Factory of simulated sessions. Sessions draw from
// consecutive seeds, so the n-th session of two factories with the same
// options produces the same page loads.
func NewFactory(opts Options) (browser.Factory, error) {
	if _, ok := versions[opts.Vendor]; !ok {
		return nil, fmt.Errorf("simulated.NewFactory() unsupported vendor %q", opts.Vendor)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = userAgents[opts.Vendor]
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1280, 800
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Millisecond
	}

	var mu sync.Mutex
	sessions := 0
	return func(ctx context.Context) (browser.Session, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mu.Lock()
		n := sessions
		sessions++
		mu.Unlock()

		return &session{
			opts: opts,
			n:    n,
			gen:  newGenerator(opts.Seed + uint64(n)),
		}, nil
	}, nil
}

type session struct {
	opts   Options
	n      int
	gen    *generator
	page   *page
	closed bool
}

func (s *session) Navigate(ctx context.Context, url string) error {
	if s.closed {
		return fmt.Errorf("session.Navigate(): %w", browser.ErrSessionClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := generatePage(s.gen, url, s.n, s.opts)
	if err != nil {
		return err
	}
	s.page = p
	return nil
}

func (s *session) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	url := ""
	if s.page != nil {
		url = s.page.url
	}
	return browser.PollReadyState(ctx, url, timeout, s.opts.PollInterval, s.ExecuteScript)
}

func (s *session) ExecuteScript(ctx context.Context, script string) (interface{}, error) {
	if s.closed {
		return nil, fmt.Errorf("session.ExecuteScript(): %w", browser.ErrSessionClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.page == nil {
		return nil, fmt.Errorf("session.ExecuteScript(): %w", ErrNoPage)
	}

	answer, ok := answers[script]
	if !ok {
		return nil, fmt.Errorf("session.ExecuteScript() unsupported script %q", script)
	}
	return answer(s), nil
}

func (s *session) Capabilities() browser.Capabilities {
	return browser.Capabilities{
		BrowserName:    s.opts.Vendor,
		BrowserVersion: versions[s.opts.Vendor],
		Platform:       "Linux x86_64",
	}
}

func (s *session) Close() error {
	s.closed = true
	return nil
}

// answers maps every script the collectors run to its value in the page model.
var answers = map[string]func(s *session) interface{}{
	browser.ReadyStateScript: func(s *session) interface{} {
		if s.opts.NeverReady {
			return "loading"
		}
		return "complete"
	},
	collector.NavigationSupportedScript: func(*session) interface{} { return true },
	collector.RedirectCountScript:       func(*session) interface{} { return int64(0) },
	collector.TimingSupportedScript:     func(*session) interface{} { return true },
	collector.EntriesSupportedScript:    func(*session) interface{} { return true },
	collector.ChromeLoadTimesSupportedScript: func(s *session) interface{} {
		return s.opts.Vendor == Chrome
	},
	collector.WasFetchedViaSpdyScript: func(*session) interface{} { return false },
	collector.ChromeFirstPaintScript: func(s *session) interface{} {
		return s.page.chromeFirstPaint
	},
	collector.MSFirstPaintScript: func(s *session) interface{} {
		if s.opts.Vendor != IE {
			return nil
		}
		return s.page.msFirstPaint
	},
	collector.UserMarksScript:       func(s *session) interface{} { return s.page.userMarks },
	collector.UserMeasuresScript:    func(s *session) interface{} { return s.page.userMeasures },
	collector.ResourceEntriesScript: func(s *session) interface{} { return s.page.resources },
	collector.PaintEntriesScript:    func(s *session) interface{} { return s.page.paintEntries },
	collector.LocationScript:        func(s *session) interface{} { return s.page.url },
	collector.UserAgentScript:       func(s *session) interface{} { return s.opts.UserAgent },
	collector.WindowSizeScript: func(s *session) interface{} {
		return []interface{}{s.opts.WindowWidth, s.opts.WindowHeight}
	},
}

func init() {
	for _, attribute := range collector.NavigationTimingAttributes {
		attribute := attribute
		answers[collector.NavigationTimingAttributeScript(attribute)] = func(s *session) interface{} {
			return s.page.timing[attribute]
		}
	}
}

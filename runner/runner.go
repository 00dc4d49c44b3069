// Package runner loads a page repeatedly in fresh browser sessions and
// collects the timings of every load into a timings.Session.
package runner

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/collector"
	"github.com/kcz17/pagetime/logging"
	"github.com/kcz17/pagetime/timings"
)

type Options struct {
	URL        string
	Iterations int
	// Timeout bounds how long each page load may take.
	Timeout    time.Duration
	Sessions   browser.Factory
	Collectors []collector.Collector
	// Logger defaults to a noop logger.
	Logger logging.Logger
}

type Runner struct {
	opts  Options
	timer *iterationTimer
}

func NewRunner(opts Options) (*Runner, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("NewRunner() invalid URL %q: %w", opts.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("NewRunner() expected an absolute http or https URL; got %q", opts.URL)
	}
	if opts.Iterations < 1 {
		return nil, fmt.Errorf("NewRunner() expected at least one iteration; got %d", opts.Iterations)
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("NewRunner() expected a positive timeout; got %s", opts.Timeout)
	}
	if opts.Sessions == nil {
		return nil, errors.New("NewRunner() expected a session factory")
	}
	if len(opts.Collectors) == 0 {
		return nil, errors.New("NewRunner() expected at least one collector")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNoopLogger()
	}
	return &Runner{opts: opts, timer: newIterationTimer(opts.Iterations)}, nil
}

// Run loads the page once per iteration. Any failure aborts the whole test;
// a page that does not finish loading in time fails with a
// *browser.TimeoutError.
func (r *Runner) Run(ctx context.Context) (*timings.Session, error) {
	session := timings.NewSession()
	for i := 1; i <= r.opts.Iterations; i++ {
		r.opts.Logger.LogStatus("run %d of %d: %s", i, r.opts.Iterations, r.opts.URL)

		start := time.Now()
		run, pageData, err := r.iterate(ctx, i == 1)
		if err != nil {
			return nil, fmt.Errorf("Runner.Run() iteration %d: %w", i, err)
		}
		r.timer.Add(time.Since(start))

		if pageData != nil {
			session.AddPageData(pageData)
		}
		session.AddRun(run)
		r.opts.Logger.LogRun(i, run)
	}

	r.opts.Logger.LogStatistics(session.Statistics())
	times := r.timer.Summary()
	r.opts.Logger.LogIterationTimes(times.Count, times.P50.Seconds(), times.P95.Seconds(), times.Max.Seconds())
	return session, nil
}

// IterationTimes summarises the iterations completed so far.
func (r *Runner) IterationTimes() IterationTimes {
	return r.timer.Summary()
}

func (r *Runner) iterate(ctx context.Context, withPageData bool) (run *timings.Run, pageData map[string]string, err error) {
	s, err := r.opts.Sessions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("opening browser session: %w", err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing browser session: %w", closeErr)
		}
	}()

	if err := s.Navigate(ctx, r.opts.URL); err != nil {
		return nil, nil, err
	}
	if err := s.WaitUntilReady(ctx, r.opts.Timeout); err != nil {
		return nil, nil, err
	}

	builder := timings.NewRunBuilder()
	for _, c := range r.opts.Collectors {
		collected, err := c.CollectTimingData(ctx, s, builder)
		if err != nil {
			return nil, nil, err
		}
		if err := builder.Merge(collected); err != nil {
			return nil, nil, err
		}
	}
	run, err = builder.Build()
	if err != nil {
		return nil, nil, err
	}

	if withPageData {
		pageData = map[string]string{"url": r.opts.URL}
		for _, c := range r.opts.Collectors {
			data, err := c.CollectPageData(ctx, s)
			if err != nil {
				return nil, nil, err
			}
			for k, v := range data {
				pageData[k] = v
			}
		}
	}
	return run, pageData, nil
}

package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcz17/pagetime/browser"
	"github.com/kcz17/pagetime/browser/simulated"
	"github.com/kcz17/pagetime/collector"
	"github.com/kcz17/pagetime/stats"
	"github.com/kcz17/pagetime/timings"
)

type recordingLogger struct {
	runs       []int
	statistics []stats.Statistic
	iterations int
}

func (*recordingLogger) LogStatus(string, ...interface{}) {}

func (l *recordingLogger) LogRun(iteration int, _ *timings.Run) {
	l.runs = append(l.runs, iteration)
}

func (l *recordingLogger) LogStatistics(statistics []stats.Statistic) {
	l.statistics = statistics
}

func (l *recordingLogger) LogIterationTimes(count int, _ float64, _ float64, _ float64) {
	l.iterations = count
}

func (*recordingLogger) LogComparison(stats.Comparison) {}

func (*recordingLogger) Close() {}

// fakeSession counts closes and fails the configured step.
type fakeSession struct {
	navigateErr error
	readyErr    error
	closed      *int
}

func (s *fakeSession) Navigate(context.Context, string) error { return s.navigateErr }

func (s *fakeSession) WaitUntilReady(context.Context, time.Duration) error { return s.readyErr }

func (*fakeSession) ExecuteScript(context.Context, string) (interface{}, error) { return nil, nil }

func (*fakeSession) Capabilities() browser.Capabilities { return browser.Capabilities{} }

func (s *fakeSession) Close() error {
	*s.closed++
	return nil
}

// markCollector adds one mark per page load.
type markCollector struct {
	loads int
}

func (*markCollector) CollectPageData(context.Context, browser.Session) (map[string]string, error) {
	return map[string]string{"collector": "mark"}, nil
}

func (c *markCollector) CollectTimingData(_ context.Context, _ browser.Session, observed timings.Marks) (*timings.Collected, error) {
	c.loads++
	collected := timings.NewCollected(observed)
	collected.AddMeasurement(timings.Measurement{Mark: timings.Mark{Name: "load"}, Duration: float64(c.loads)})
	return collected, nil
}

// failingCollector fails on the failOn-th page load.
type failingCollector struct {
	markCollector
	failOn int
	err    error
}

func (c *failingCollector) CollectTimingData(ctx context.Context, s browser.Session, observed timings.Marks) (*timings.Collected, error) {
	if c.loads+1 == c.failOn {
		c.loads++
		return nil, c.err
	}
	return c.markCollector.CollectTimingData(ctx, s, observed)
}

func simulatedOptions(t *testing.T, opts simulated.Options) Options {
	factory, err := simulated.NewFactory(opts)
	require.NoError(t, err)
	collectors, err := collector.ForBrowser(opts.Vendor, collector.Options{})
	require.NoError(t, err)
	return Options{
		URL:        "https://www.example.com/",
		Iterations: 3,
		Timeout:    time.Second,
		Sessions:   factory,
		Collectors: collectors,
	}
}

func TestNewRunner_Validation(t *testing.T) {
	valid := func() Options {
		closed := 0
		return Options{
			URL:        "http://example.com",
			Iterations: 1,
			Timeout:    time.Second,
			Sessions: func(context.Context) (browser.Session, error) {
				return &fakeSession{closed: &closed}, nil
			},
			Collectors: []collector.Collector{&markCollector{}},
		}
	}
	tests := []struct {
		name    string
		modify  func(o *Options)
		wantErr bool
	}{
		{name: "Valid", modify: func(*Options) {}},
		{name: "RelativeURL", modify: func(o *Options) { o.URL = "/index.html" }, wantErr: true},
		{name: "UnsupportedScheme", modify: func(o *Options) { o.URL = "ftp://example.com" }, wantErr: true},
		{name: "ZeroIterations", modify: func(o *Options) { o.Iterations = 0 }, wantErr: true},
		{name: "ZeroTimeout", modify: func(o *Options) { o.Timeout = 0 }, wantErr: true},
		{name: "NoFactory", modify: func(o *Options) { o.Sessions = nil }, wantErr: true},
		{name: "NoCollectors", modify: func(o *Options) { o.Collectors = nil }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid()
			tt.modify(&opts)
			_, err := NewRunner(opts)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunner_RunSimulated(t *testing.T) {
	logger := &recordingLogger{}
	opts := simulatedOptions(t, simulated.Options{Vendor: simulated.Chrome, Seed: 7, Resources: 4})
	opts.Logger = logger

	r, err := NewRunner(opts)
	require.NoError(t, err)
	session, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, session.Runs(), 3)
	pageData := session.PageData()
	assert.Equal(t, "https://www.example.com/", pageData["url"])
	assert.Equal(t, "chrome", pageData["browserName"])
	assert.Len(t, session.Durations("pageLoadTime"), 3)
	assert.Contains(t, session.MetricNames(), "firstPaintTime")

	for _, run := range session.Runs() {
		_, ok := run.Mark("navigationStart")
		assert.True(t, ok)
		assert.NotEmpty(t, run.ResourceMeasurements())
	}

	assert.Equal(t, []int{1, 2, 3}, logger.runs)
	assert.NotEmpty(t, logger.statistics)
	assert.Equal(t, 3, logger.iterations)
	assert.Equal(t, 3, r.IterationTimes().Count)
}

func TestRunner_OneSessionPerIteration(t *testing.T) {
	opened, closed := 0, 0
	c := &markCollector{}
	r, err := NewRunner(Options{
		URL:        "http://example.com",
		Iterations: 4,
		Timeout:    time.Second,
		Sessions: func(context.Context) (browser.Session, error) {
			opened++
			return &fakeSession{closed: &closed}, nil
		},
		Collectors: []collector.Collector{c},
	})
	require.NoError(t, err)

	session, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, opened)
	assert.Equal(t, 4, closed)
	assert.Equal(t, []float64{1, 2, 3, 4}, session.Durations("load"))
	assert.Equal(t, map[string]string{"url": "http://example.com", "collector": "mark"}, session.PageData())
}

func TestRunner_ErrorsAbort(t *testing.T) {
	errBoom := errors.New("boom")
	tests := []struct {
		name       string
		factoryErr error
		session    fakeSession
		wantClosed int
	}{
		{name: "SessionCannotOpen", factoryErr: errBoom, wantClosed: 0},
		{name: "NavigateFails", session: fakeSession{navigateErr: errBoom}, wantClosed: 1},
		{name: "NeverReady", session: fakeSession{readyErr: errBoom}, wantClosed: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closed := 0
			r, err := NewRunner(Options{
				URL:        "http://example.com",
				Iterations: 3,
				Timeout:    time.Second,
				Sessions: func(context.Context) (browser.Session, error) {
					if tt.factoryErr != nil {
						return nil, tt.factoryErr
					}
					s := tt.session
					s.closed = &closed
					return &s, nil
				},
				Collectors: []collector.Collector{&markCollector{}},
			})
			require.NoError(t, err)

			session, err := r.Run(context.Background())
			assert.ErrorIs(t, err, errBoom)
			assert.Nil(t, session)
			assert.Equal(t, tt.wantClosed, closed)
		})
	}
}

func TestRunner_CollectorErrorAborts(t *testing.T) {
	errScript := errors.New("script failed")
	logger := &recordingLogger{}
	closed := 0
	r, err := NewRunner(Options{
		URL:        "http://example.com",
		Iterations: 3,
		Timeout:    time.Second,
		Sessions: func(context.Context) (browser.Session, error) {
			return &fakeSession{closed: &closed}, nil
		},
		Collectors: []collector.Collector{&failingCollector{failOn: 2, err: errScript}},
		Logger:     logger,
	})
	require.NoError(t, err)

	session, err := r.Run(context.Background())

	assert.ErrorIs(t, err, errScript)
	assert.Nil(t, session)
	assert.Equal(t, 2, closed)
	assert.Equal(t, []int{1}, logger.runs)
	assert.Empty(t, logger.statistics)
}

func TestRunner_Timeout(t *testing.T) {
	opts := simulatedOptions(t, simulated.Options{Vendor: simulated.Firefox, NeverReady: true, PollInterval: time.Millisecond})
	opts.Timeout = 20 * time.Millisecond

	r, err := NewRunner(opts)
	require.NoError(t, err)
	_, err = r.Run(context.Background())

	var timeoutErr *browser.TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "got %v", err)
	assert.Equal(t, 20*time.Millisecond, timeoutErr.Timeout)
}

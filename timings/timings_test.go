package timings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mark(name string, start float64) Mark {
	return Mark{Name: name, StartTime: start}
}

func measurement(name string, start, duration float64) Measurement {
	return Measurement{Mark: mark(name, start), Duration: duration}
}

func TestCollected_MarkFallsBackToObserved(t *testing.T) {
	observed := NewCollected(nil)
	observed.AddMark(mark("navigationStart", 1000))

	c := NewCollected(observed)
	c.AddMark(mark("firstPaint", 1200))

	m, ok := c.Mark("navigationStart")
	require.True(t, ok)
	assert.Equal(t, 1000.0, m.StartTime)

	_, ok = c.Mark("missing")
	assert.False(t, ok)

	assert.Equal(t, []Mark{mark("firstPaint", 1200)}, c.Marks(), "observed marks should not be part of the collected marks")
}

func TestCollected_LastMarkWins(t *testing.T) {
	c := NewCollected(nil)
	c.AddMark(mark("a", 1))
	c.AddMark(mark("b", 2))
	c.AddMark(mark("a", 3))

	assert.Equal(t, []Mark{mark("a", 3), mark("b", 2)}, c.Marks())
	assert.False(t, c.IsEmpty())
	assert.True(t, NewCollected(nil).IsEmpty())
}

func TestRunBuilder_Build(t *testing.T) {
	first := NewCollected(nil)
	first.AddMark(mark("responseEnd", 300))
	first.AddMark(mark("navigationStart", 100))
	first.AddMark(mark("fetchStart", 100))
	first.AddMeasurement(measurement("pageLoadTime", 100, 900))

	second := NewCollected(first)
	second.AddMeasurement(measurement("backEndTime", 100, 150))
	second.AddMeasurement(measurement("firstPaintTime", 0, 250))
	second.AddResourceMeasurement(ResourceMeasurement{Measurement: measurement("a.css", 10, 20)})

	b := NewRunBuilder()
	require.NoError(t, b.Merge(first))
	require.NoError(t, b.Merge(second))
	require.NoError(t, b.Merge(nil))

	run, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []Mark{
		mark("fetchStart", 100),
		mark("navigationStart", 100),
		mark("responseEnd", 300),
	}, run.Marks(), "marks should be sorted by start time then name")

	var names []string
	for _, m := range run.Measurements() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"firstPaintTime", "backEndTime", "pageLoadTime"}, names, "measurements should be sorted by end time")

	require.Len(t, run.ResourceMeasurements(), 1)
	m, ok := run.Mark("responseEnd")
	require.True(t, ok)
	assert.Equal(t, 300.0, m.StartTime)
}

func TestRunBuilder_BuildFreezes(t *testing.T) {
	b := NewRunBuilder()
	_, err := b.Build()
	require.NoError(t, err)

	assert.ErrorIs(t, b.Merge(NewCollected(nil)), ErrRunBuilt)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrRunBuilt)
}

func TestRunBuilder_MergeEmpty(t *testing.T) {
	observed := NewCollected(nil)
	observed.AddMark(Mark{Name: "navigationStart", StartTime: 1})

	b := NewRunBuilder()
	require.NoError(t, b.Merge(nil))
	// Marks only visible through observed are not part of c.
	require.NoError(t, b.Merge(NewCollected(observed)))
	run, err := b.Build()
	require.NoError(t, err)

	assert.Empty(t, run.Marks())
	assert.Empty(t, run.Measurements())
	assert.Empty(t, run.ResourceMeasurements())
}

func TestRun_AccessorsReturnCopies(t *testing.T) {
	c := NewCollected(nil)
	c.AddMark(mark("a", 1))
	c.AddMeasurement(measurement("m", 0, 1))
	b := NewRunBuilder()
	require.NoError(t, b.Merge(c))
	run, err := b.Build()
	require.NoError(t, err)

	run.Marks()[0].StartTime = 99
	run.Measurements()[0].Duration = 99

	assert.Equal(t, 1.0, run.Marks()[0].StartTime)
	assert.Equal(t, 1.0, run.Measurements()[0].Duration)
}

func TestInterval_Measure(t *testing.T) {
	marks := NewCollected(nil)
	marks.AddMark(mark("navigationStart", 1000))
	marks.AddMark(mark("loadEventStart", 1800))

	tests := []struct {
		name     string
		interval Interval
		want     Measurement
		wantOK   bool
	}{
		{
			name:     "Both marks present",
			interval: Interval{Name: "pageLoadTime", StartMark: "navigationStart", EndMark: "loadEventStart"},
			want:     measurement("pageLoadTime", 1000, 800),
			wantOK:   true,
		},
		{
			name:     "Missing end mark",
			interval: Interval{Name: "x", StartMark: "navigationStart", EndMark: "domInteractive"},
		},
		{
			name:     "Missing start mark",
			interval: Interval{Name: "x", StartMark: "requestStart", EndMark: "loadEventStart"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.interval.Measure(marks)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveIntervals_KeepsTableOrder(t *testing.T) {
	marks := NewCollected(nil)
	marks.AddMark(mark("navigationStart", 0))
	marks.AddMark(mark("responseStart", 100))
	marks.AddMark(mark("loadEventStart", 500))

	got := DeriveIntervals(marks,
		Interval{Name: "pageLoadTime", StartMark: "navigationStart", EndMark: "loadEventStart"},
		Interval{Name: "domInteractiveTime", StartMark: "navigationStart", EndMark: "domInteractive"},
		Interval{Name: "backEndTime", StartMark: "navigationStart", EndMark: "responseStart"},
	)

	assert.Equal(t, []Measurement{
		measurement("pageLoadTime", 0, 500),
		measurement("backEndTime", 0, 100),
	}, got)
}

func TestSession_AggregatesRuns(t *testing.T) {
	s := NewSession()
	s.AddPageData(map[string]string{"url": "http://example.com"})
	s.AddPageData(map[string]string{"browserName": "chrome"})

	for _, d := range []float64{100, 200, 300} {
		c := NewCollected(nil)
		c.AddMeasurement(measurement("pageLoadTime", 0, d))
		c.AddMeasurement(measurement("backEndTime", 0, d/10))
		b := NewRunBuilder()
		require.NoError(t, b.Merge(c))
		run, err := b.Build()
		require.NoError(t, err)
		s.AddRun(run)
	}

	assert.Len(t, s.Runs(), 3)
	assert.Equal(t, map[string]string{"url": "http://example.com", "browserName": "chrome"}, s.PageData())
	assert.Equal(t, []string{"backEndTime", "pageLoadTime"}, s.MetricNames())
	assert.Equal(t, []float64{100, 200, 300}, s.Durations("pageLoadTime"))

	statistics := s.Statistics()
	require.Len(t, statistics, 2)
	assert.Equal(t, "pageLoadTime", statistics[1].Name)
	assert.Equal(t, 100.0, statistics[1].Min)
	assert.Equal(t, 200.0, statistics[1].Median)
	assert.Equal(t, 300.0, statistics[1].Max)
}

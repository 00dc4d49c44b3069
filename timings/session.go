package timings

import "github.com/kcz17/pagetime/stats"

// Session is the result of one test: page metadata, every run, and the
// statistics of every measurement across runs.
type Session struct {
	pageData   map[string]string
	runs       []*Run
	statistics *stats.Aggregator
}

func NewSession() *Session {
	return &Session{
		pageData:   map[string]string{},
		statistics: stats.NewAggregator(),
	}
}

func (s *Session) AddPageData(data map[string]string) {
	for k, v := range data {
		s.pageData[k] = v
	}
}

// AddRun appends run and feeds its measurement durations to the statistics.
func (s *Session) AddRun(run *Run) {
	s.runs = append(s.runs, run)
	for _, m := range run.Measurements() {
		s.statistics.AddValue(m.Name, m.Duration)
	}
}

func (s *Session) PageData() map[string]string {
	data := make(map[string]string, len(s.pageData))
	for k, v := range s.pageData {
		data[k] = v
	}
	return data
}

func (s *Session) Runs() []*Run {
	runs := make([]*Run, len(s.runs))
	copy(runs, s.runs)
	return runs
}

func (s *Session) Statistics() []stats.Statistic {
	return s.statistics.Snapshot()
}

// MetricNames returns the measurement names in the order they were first seen.
func (s *Session) MetricNames() []string {
	return s.statistics.Names()
}

// Durations returns every duration recorded for the named measurement.
func (s *Session) Durations(name string) []float64 {
	return s.statistics.Values(name)
}

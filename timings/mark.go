// Package timings holds the timing data collected from page loads: marks,
// measurements and resource measurements per run, and the runs and
// statistics of a whole test session.
package timings

// Mark is a single named point in time, in milliseconds.
type Mark struct {
	Name      string
	StartTime float64
}

// Measurement is a named interval starting at StartTime.
type Measurement struct {
	Mark
	Duration float64
}

func (m Measurement) EndTime() float64 {
	return m.StartTime + m.Duration
}

// ResourceMeasurement is the Resource Timing entry of one subresource. A zero
// sub-timing means the phase did not apply to the resource (e.g. no redirect,
// or a cross-origin resource without Timing-Allow-Origin).
type ResourceMeasurement struct {
	Measurement
	InitiatorType         string
	RedirectStart         float64
	RedirectEnd           float64
	FetchStart            float64
	DomainLookupStart     float64
	DomainLookupEnd       float64
	ConnectStart          float64
	ConnectEnd            float64
	SecureConnectionStart float64
	RequestStart          float64
	ResponseStart         float64
	ResponseEnd           float64
}

// Marks looks up marks by name.
type Marks interface {
	Mark(name string) (Mark, bool)
}

// markSet keeps marks by name along with the order names were first added.
// Adding an existing name overwrites its mark but keeps its position.
type markSet struct {
	byName map[string]Mark
	order  []string
}

func newMarkSet() markSet {
	return markSet{byName: map[string]Mark{}}
}

func (s *markSet) add(m Mark) {
	if _, ok := s.byName[m.Name]; !ok {
		s.order = append(s.order, m.Name)
	}
	s.byName[m.Name] = m
}

func (s *markSet) lookup(name string) (Mark, bool) {
	m, ok := s.byName[name]
	return m, ok
}

func (s *markSet) list() []Mark {
	marks := make([]Mark, 0, len(s.order))
	for _, name := range s.order {
		marks = append(marks, s.byName[name])
	}
	return marks
}

package runner

import (
	"time"

	"github.com/jamiealquiza/tachymeter"
)

// IterationTimes summarises the wall time of every iteration of a test.
type IterationTimes struct {
	Count int
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

// iterationTimer uses the jamiealquiza/tachymeter library to capture
// iteration wall times. The window holds every iteration of one test.
type iterationTimer struct {
	tach *tachymeter.Tachymeter
}

func newIterationTimer(iterations int) *iterationTimer {
	return &iterationTimer{tach: tachymeter.New(&tachymeter.Config{
		Size: iterations,
	})}
}

func (t *iterationTimer) Add(d time.Duration) {
	t.tach.AddTime(d)
}

func (t *iterationTimer) Summary() IterationTimes {
	metrics := t.tach.Calc()
	return IterationTimes{
		Count: metrics.Count,
		P50:   metrics.Time.P50,
		P95:   metrics.Time.P95,
		Max:   metrics.Time.Max,
	}
}

package logging

import (
	"fmt"
	"log"
	"strings"

	"github.com/kcz17/pagetime/stats"
	"github.com/kcz17/pagetime/timings"
)

// stdoutLogger logs to the standard logger, which writes to stderr so that
// reports written to stdout stay parseable.
type stdoutLogger struct {
	verbose bool
}

func NewStdoutLogger(verbose bool) *stdoutLogger {
	return &stdoutLogger{verbose: verbose}
}

func (l *stdoutLogger) LogStatus(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	log.Printf(format+"\n", args...)
}

func (l *stdoutLogger) LogRun(iteration int, run *timings.Run) {
	if !l.verbose {
		return
	}
	var b strings.Builder
	for _, m := range run.Measurements() {
		fmt.Fprintf(&b, " %s=%.1f", m.Name, m.Duration)
	}
	log.Printf("run %d:%s\n", iteration, b.String())
}

func (*stdoutLogger) LogStatistics(statistics []stats.Statistic) {
	for _, s := range statistics {
		log.Printf("%s: min: %.1f, median: %.1f, p90: %.1f, max: %.1f\n", s.Name, s.Min, s.Median, s.P90, s.Max)
	}
}

func (*stdoutLogger) LogIterationTimes(count int, p50 float64, p95 float64, max float64) {
	log.Printf("iterations: %d, p50: %.3fs, p95: %.3fs, max: %.3fs\n", count, p50, p95, max)
}

func (*stdoutLogger) LogComparison(c stats.Comparison) {
	verdict := "no significant change"
	if c.Differs {
		verdict = "distribution changed"
	}
	log.Printf("%s: baseline median: %.1f, current median: %.1f, D: %.3f, critical value: %.3f: %s\n",
		c.Name, c.BaselineMedian, c.CurrentMedian, c.Statistic, c.CriticalValue, verdict)
}

func (*stdoutLogger) Close() {}

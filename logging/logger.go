package logging

import (
	"github.com/kcz17/pagetime/stats"
	"github.com/kcz17/pagetime/timings"
)

type Logger interface {
	LogStatus(format string, args ...interface{}) // Progress of a test, only shown when verbose.
	LogRun(iteration int, run *timings.Run)
	LogStatistics(statistics []stats.Statistic)
	LogIterationTimes(count int, p50 float64, p95 float64, max float64) // Takes in wall times in seconds.
	LogComparison(c stats.Comparison)
	Close() // Flushes pending output.
}

// noopLogger does not perform any logging.
type noopLogger struct{}

func NewNoopLogger() *noopLogger {
	return &noopLogger{}
}

func (*noopLogger) LogStatus(string, ...interface{}) {}

func (*noopLogger) LogRun(int, *timings.Run) {}

func (*noopLogger) LogStatistics([]stats.Statistic) {}

func (*noopLogger) LogIterationTimes(int, float64, float64, float64) {}

func (*noopLogger) LogComparison(stats.Comparison) {}

func (*noopLogger) Close() {}

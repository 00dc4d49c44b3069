package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Statistic describes the distribution of a single metric.
type Statistic struct {
	Name   string
	Min    float64
	Avg    float64
	Median float64
	P60    float64
	P70    float64
	P80    float64
	P90    float64
	Max    float64
}

// Aggregator accumulates values per metric name. Names are reported in the
// order they were first added. An Aggregator has a single writer and is not
// safe for concurrent use.
type Aggregator struct {
	names  []string
	values map[string][]float64
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		names:  []string{},
		values: map[string][]float64{},
	}
}

func (a *Aggregator) AddValue(name string, value float64) {
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = append(a.values[name], value)
}

// Names returns the metric names in first-seen order.
func (a *Aggregator) Names() []string {
	names := make([]string, len(a.names))
	copy(names, a.names)
	return names
}

// Values returns a copy of every value recorded for name.
func (a *Aggregator) Values(name string) []float64 {
	values := make([]float64, len(a.values[name]))
	copy(values, a.values[name])
	return values
}

func (a *Aggregator) Snapshot() []Statistic {
	snapshot := make([]Statistic, 0, len(a.names))
	for _, name := range a.names {
		statistic, err := Describe(name, a.values[name])
		if err != nil {
			// Every recorded name holds at least one value.
			panic(fmt.Errorf("unexpected err in Aggregator.Snapshot() for %s: %w", name, err))
		}
		snapshot = append(snapshot, statistic)
	}
	return snapshot
}

// Describe computes the Statistic of a non-empty set of values.
func Describe(name string, values []float64) (Statistic, error) {
	// The stats package requires input arrays to be non-empty.
	if len(values) == 0 {
		return Statistic{}, fmt.Errorf("Describe() expected values for %s; got none", name)
	}

	min, err := stats.Min(values)
	if err != nil {
		return Statistic{}, fmt.Errorf("Describe() calculating min of %s: %w", name, err)
	}
	max, err := stats.Max(values)
	if err != nil {
		return Statistic{}, fmt.Errorf("Describe() calculating max of %s: %w", name, err)
	}
	avg, err := stats.Mean(values)
	if err != nil {
		return Statistic{}, fmt.Errorf("Describe() calculating mean of %s: %w", name, err)
	}
	median, err := stats.Median(values)
	if err != nil {
		return Statistic{}, fmt.Errorf("Describe() calculating median of %s: %w", name, err)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Statistic{
		Name:   name,
		Min:    min,
		Avg:    avg,
		Median: median,
		P60:    Percentile(sorted, 60),
		P70:    Percentile(sorted, 70),
		P80:    Percentile(sorted, 80),
		P90:    Percentile(sorted, 90),
		Max:    max,
	}, nil
}

// Percentile interpolates linearly between the closest ranks of sorted, so
// that the 0th and 100th percentiles are the min and max. sorted must be in
// ascending order.
func Percentile(sorted []float64, percent float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if percent <= 0 {
		return sorted[0]
	}
	if percent >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := percent / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (rank-float64(lower))*(sorted[upper]-sorted[lower])
}

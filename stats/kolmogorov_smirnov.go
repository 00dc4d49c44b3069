package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ConfidenceLevel selects the critical value used to reject the hypothesis
// that two samples come from the same distribution.
type ConfidenceLevel = int

const (
	C90 ConfidenceLevel = iota
	C95
	C97d5
	C99
	C99d5
	C99d9
)

// coefficients are KS-coefficients.
// Retrieved from: https://www.webdepot.umontreal.ca/Usagers/angers/MonDepotPublic/STT3500H10/Critical_KS.pdf
var coefficients = map[ConfidenceLevel]float64{
	C90:   1.22,
	C95:   1.36,
	C97d5: 1.48,
	C99:   1.63,
	C99d5: 1.73,
	C99d9: 1.95,
}

// ConfidenceLevelFromPercent maps 90, 95, 97.5, 99, 99.5 and 99.9 to their
// ConfidenceLevel.
func ConfidenceLevelFromPercent(percent float64) (ConfidenceLevel, error) {
	switch percent {
	case 90:
		return C90, nil
	case 95:
		return C95, nil
	case 97.5:
		return C97d5, nil
	case 99:
		return C99, nil
	case 99.5:
		return C99d5, nil
	case 99.9:
		return C99d9, nil
	}
	return 0, fmt.Errorf("unsupported confidence level %v; expected one of {90|95|97.5|99|99.5|99.9}", percent)
}

// Comparison is the result of comparing a metric's baseline durations with
// the durations of the current session.
type Comparison struct {
	Name           string
	BaselineMedian float64
	CurrentMedian  float64
	Statistic      float64
	CriticalValue  float64
	// Differs is true if the two-tailed KS-test rejects the hypothesis that
	// both samples share a distribution.
	Differs bool
}

// Compare performs a two-tailed Kolmogorov-Smirnov test of current against
// baseline.
func Compare(name string, baseline []float64, current []float64, level ConfidenceLevel) (Comparison, error) {
	coeff, ok := coefficients[level]
	if !ok {
		return Comparison{}, fmt.Errorf("Compare() got unexpected confidence level %v", level)
	}
	if len(baseline) == 0 || len(current) == 0 {
		return Comparison{}, fmt.Errorf("Compare() expected samples for %s; got %d baseline and %d current", name, len(baseline), len(current))
	}

	criticalValue := coeff * math.Sqrt(float64(len(baseline)+len(current))/float64(len(baseline)*len(current)))

	// Copy the input slices so we can sort them.
	sortedBaseline := make([]float64, len(baseline))
	copy(sortedBaseline, baseline)
	sort.Float64s(sortedBaseline)

	sortedCurrent := make([]float64, len(current))
	copy(sortedCurrent, current)
	sort.Float64s(sortedCurrent)

	// Pass in nil weights as gonum's stat package allows inputs to be
	// weighted, which is not relevant to our situation.
	testStatistic := stat.KolmogorovSmirnov(sortedBaseline, nil, sortedCurrent, nil)

	return Comparison{
		Name:           name,
		BaselineMedian: Percentile(sortedBaseline, 50),
		CurrentMedian:  Percentile(sortedCurrent, 50),
		Statistic:      testStatistic,
		CriticalValue:  criticalValue,
		Differs:        testStatistic > criticalValue,
	}, nil
}

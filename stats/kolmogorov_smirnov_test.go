package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestCompare_IdenticalSamplesDoNotDiffer(t *testing.T) {
	samples := []float64{100, 110, 120, 130, 140, 150, 160, 170, 180, 190}

	c, err := Compare("pageLoadTime", samples, samples, C95)
	require.NoError(t, err)

	assert.Equal(t, "pageLoadTime", c.Name)
	assert.InDelta(t, 0, c.Statistic, 1e-9)
	assert.False(t, c.Differs)
	assert.InDelta(t, 145, c.BaselineMedian, 1e-9)
	assert.InDelta(t, 145, c.CurrentMedian, 1e-9)
}

func TestCompare_DisjointSamplesDiffer(t *testing.T) {
	var baseline, current []float64
	for i := 0; i < 20; i++ {
		baseline = append(baseline, float64(100+i))
		current = append(current, float64(500+i))
	}

	c, err := Compare("pageLoadTime", baseline, current, C99)
	require.NoError(t, err)

	assert.InDelta(t, 1, c.Statistic, 1e-9)
	assert.Truef(t, c.Differs, "expected disjoint samples to differ; got statistic %.3f, critical value %.3f", c.Statistic, c.CriticalValue)
}

func TestCompare_RejectsEmptySamples(t *testing.T) {
	_, err := Compare("x", nil, []float64{1}, C95)
	assert.Error(t, err)

	_, err = Compare("x", []float64{1}, []float64{1}, ConfidenceLevel(42))
	assert.Error(t, err)
}

func TestConfidenceLevelFromPercent(t *testing.T) {
	level, err := ConfidenceLevelFromPercent(97.5)
	require.NoError(t, err)
	assert.Equal(t, C97d5, level)

	_, err = ConfidenceLevelFromPercent(80)
	assert.Error(t, err)
}

func TestTruncatedNormal_StaysWithinBounds(t *testing.T) {
	dist := TruncatedNormal{Lo: 5, Hi: 50, Mu: 20, Sigma: 30, Src: rand.NewSource(1)}
	for i := 0; i < 10000; i++ {
		v := dist.Rand()
		require.Falsef(t, math.IsNaN(v), "expected a number; got NaN at sample %d", i)
		require.GreaterOrEqual(t, v, 5.0)
		require.LessOrEqual(t, v, 50.0)
	}
}

func TestTruncatedNormal_SameSeedSameSamples(t *testing.T) {
	a := TruncatedNormal{Lo: 0, Hi: math.Inf(1), Mu: 100, Sigma: 10, Src: rand.NewSource(7)}
	b := TruncatedNormal{Lo: 0, Hi: math.Inf(1), Mu: 100, Sigma: 10, Src: rand.NewSource(7)}
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Rand(), b.Rand())
	}
}

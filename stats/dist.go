package stats

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TruncatedNormal is a normal distribution restricted to [Lo, Hi].
type TruncatedNormal struct {
	Lo    float64
	Hi    float64
	Mu    float64
	Sigma float64
	Src   rand.Source
}

// Rand samples the distribution.
func (t TruncatedNormal) Rand() float64 {
	// Use an inverse transform method to sample from the distribution.
	// Reference: https://www.r-bloggers.com/2020/08/generating-data-from-a-truncated-distribution/
	norm := distuv.Normal{
		Mu:    t.Mu,
		Sigma: t.Sigma,
		Src:   t.Src,
	}

	a := norm.CDF(t.Lo)
	b := norm.CDF(t.Hi)
	if a >= b {
		// The whole interval lies in a tail too thin to sample from.
		return t.Lo
	}
	u := distuv.Uniform{
		Min: a,
		Max: b,
		Src: t.Src,
	}.Rand()

	return math.Max(t.Lo, math.Min(t.Hi, norm.Quantile(u)))
}

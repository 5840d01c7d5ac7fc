package extremes

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mxclima/climaserie/internal/models"
)

// significanceLevel is the two-sided threshold for flagging a trend.
const significanceLevel = 0.05

// fitTrend fits count = intercept + slope*year by least squares and tests
// the null hypothesis slope = 0 with a two-sided Student's t test on n-2
// degrees of freedom. Callers guarantee len(xs) >= 3.
func fitTrend(xs, ys []float64) (models.TrendResult, float64) {
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	n := float64(len(xs))
	meanX := stat.Mean(xs, nil)

	var sse, sxx float64
	for i := range xs {
		resid := ys[i] - (intercept + slope*xs[i])
		sse += resid * resid
		dx := xs[i] - meanX
		sxx += dx * dx
	}

	var p float64
	switch {
	case sxx == 0:
		// Degenerate x (single distinct year); no slope to test.
		p = 1
	case sse == 0:
		// Perfect fit: a zero slope is exactly flat, anything else is
		// unambiguously non-zero.
		if slope == 0 {
			p = 1
		} else {
			p = 0
		}
	default:
		se := math.Sqrt(sse / (n - 2) / sxx)
		t := slope / se
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}
		p = 2 * dist.CDF(-math.Abs(t))
	}

	return models.TrendResult{
		Slope:         slope,
		PValue:        p,
		IsSignificant: p < significanceLevel,
	}, intercept
}

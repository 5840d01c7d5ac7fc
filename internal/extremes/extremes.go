// Package extremes computes extreme-event frequency trends: a day-of-year
// percentile climatology, per-year exceedance counts against it, and a linear
// trend over those counts with a significance test.
package extremes

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/mxclima/climaserie/internal/models"
)

var (
	// ErrInsufficientData means fewer than 3 years carry an exceedance
	// count, leaving the regression undefined. Distinct from a missing
	// station so callers can render "not enough history".
	ErrInsufficientData = errors.New("insufficient data for trend")

	// ErrUnknownVariable means the target variable is not in the series.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrInvalidPercentile means the percentile is outside [0, 100].
	ErrInvalidPercentile = errors.New("percentile out of range")
)

// Operator selects the threshold comparison direction.
type Operator int

const (
	Greater Operator = iota
	Less
)

// ParseOperator accepts the wire values "greater" and "less".
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "greater":
		return Greater, nil
	case "less":
		return Less, nil
	default:
		return 0, fmt.Errorf("operator %q: must be \"greater\" or \"less\"", s)
	}
}

// DefaultMinSamples is the conservative default for the per-day sample floor.
const DefaultMinSamples = 10

// Analyzer holds the tunable parameters of the analysis.
type Analyzer struct {
	// MinSamples is the minimum number of historical observations a
	// day-of-year needs before its percentile threshold is considered
	// valid. Days below the floor get no threshold and contribute no
	// exceedance counts. Zero means DefaultMinSamples.
	MinSamples int
}

// Result is the yearly exceedance frequency plus its fitted trend. Counts is
// parallel to Years; a year with no day carrying both a valid reading and a
// valid threshold has a null count and is excluded from the regression.
type Result struct {
	Variable string
	Years    []int
	Counts   []sql.NullInt64
	Trend    models.TrendResult
}

// Analyze runs the full pipeline over an already-filtered series.
func (a Analyzer) Analyze(s *models.Series, variable string, op Operator, percentile float64) (*Result, error) {
	if percentile < 0 || percentile > 100 {
		return nil, fmt.Errorf("percentile %v: %w", percentile, ErrInvalidPercentile)
	}
	varIdx := s.VarIndex(variable)
	if varIdx < 0 {
		return nil, fmt.Errorf("variable %q: %w", variable, ErrUnknownVariable)
	}
	minSamples := a.MinSamples
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}

	thresholds := climatology(s, varIdx, percentile, minSamples)

	// Per-year exceedance counts. A day contributes only when both its
	// reading and its day-of-year threshold are non-null.
	type yearTally struct {
		exceed int
		pairs  int
	}
	tallies := make(map[int]*yearTally)
	var years []int
	for _, rec := range s.Records {
		year := rec.Date.Year()
		t, ok := tallies[year]
		if !ok {
			t = &yearTally{}
			tallies[year] = t
			years = append(years, year)
		}

		th, ok := thresholds[dayKey(rec.Date)]
		if !ok {
			continue
		}
		v := rec.Value(varIdx)
		if !v.Valid {
			continue
		}
		t.pairs++
		if (op == Greater && v.Float64 > th) || (op == Less && v.Float64 < th) {
			t.exceed++
		}
	}
	sort.Ints(years)

	res := &Result{Variable: variable, Years: years}
	var xs, ys []float64
	for _, year := range years {
		t := tallies[year]
		if t.pairs == 0 {
			res.Counts = append(res.Counts, sql.NullInt64{})
			continue
		}
		res.Counts = append(res.Counts, sql.NullInt64{Int64: int64(t.exceed), Valid: true})
		xs = append(xs, float64(year))
		ys = append(ys, float64(t.exceed))
	}

	if len(xs) < 3 {
		return nil, fmt.Errorf("%d year(s) with counts: %w", len(xs), ErrInsufficientData)
	}

	trend, intercept := fitTrend(xs, ys)
	for _, year := range years {
		trend.TrendLinePoints = append(trend.TrendLinePoints, intercept+trend.Slope*float64(year))
	}
	res.Trend = trend
	return res, nil
}

// climatology computes the percentile threshold per (month, day). Keeping
// Feb-29 as its own slot gives a 366-slot climatology; the sample floor
// handles its scarcity.
func climatology(s *models.Series, varIdx int, percentile float64, minSamples int) map[int]float64 {
	samples := make(map[int][]float64)
	for _, rec := range s.Records {
		if v := rec.Value(varIdx); v.Valid {
			k := dayKey(rec.Date)
			samples[k] = append(samples[k], v.Float64)
		}
	}

	thresholds := make(map[int]float64, len(samples))
	for k, vals := range samples {
		if len(vals) < minSamples {
			continue
		}
		sort.Float64s(vals)
		thresholds[k] = stat.Quantile(percentile/100, stat.LinInterp, vals, nil)
	}
	return thresholds
}

func dayKey(t time.Time) int {
	return int(t.Month())*100 + t.Day()
}

// Package aggregate turns a filtered station series into tabular temporal
// aggregations: daily passthrough, monthly and annual means, and the daily,
// monthly and seasonal annual cycles.
//
// Means exclude nulls from both numerator and denominator; a bucket with no
// contributing observations for a variable is emitted with a null value, not
// dropped, so every result keeps a consistent shape.
package aggregate

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/mxclima/climaserie/internal/models"
	"github.com/mxclima/climaserie/internal/series"
)

// Result is one aggregation output: the bucket key field name, the variables
// actually represented (requested ∩ present, in series order) and one row per
// temporal bucket.
type Result struct {
	KeyField  string
	Variables []string
	Rows      []models.AggregateRow
}

// selectVariables resolves the requested subset against the series schema,
// preserving the series' canonical order. An empty request selects all.
func selectVariables(s *models.Series, requested []string) (names []string, idx []int) {
	want := make(map[string]bool, len(requested))
	for _, v := range requested {
		want[v] = true
	}
	for i, v := range s.Variables {
		if len(requested) == 0 || want[v] {
			names = append(names, v)
			idx = append(idx, i)
		}
	}
	return names, idx
}

// meanAcc accumulates one bucket: a running sum and count per variable.
type meanAcc struct {
	sum   []float64
	count []int
}

func newMeanAcc(n int) *meanAcc {
	return &meanAcc{sum: make([]float64, n), count: make([]int, n)}
}

func (a *meanAcc) add(rec models.DailyRecord, idx []int) {
	for i, src := range idx {
		if v := rec.Value(src); v.Valid {
			a.sum[i] += v.Float64
			a.count[i]++
		}
	}
}

func (a *meanAcc) addValues(vals []sql.NullFloat64) {
	for i, v := range vals {
		if v.Valid {
			a.sum[i] += v.Float64
			a.count[i]++
		}
	}
}

func (a *meanAcc) row(key string) models.AggregateRow {
	row := models.AggregateRow{Key: key, Values: make([]sql.NullFloat64, len(a.sum))}
	for i := range a.sum {
		if a.count[i] > 0 {
			row.Values[i] = sql.NullFloat64{Float64: round2(a.sum[i] / float64(a.count[i])), Valid: true}
		}
	}
	return row
}

// Daily is the identity aggregation: one row per record, keyed by date.
func Daily(s *models.Series, vars []string) *Result {
	names, idx := selectVariables(s, vars)
	res := &Result{KeyField: "fecha", Variables: names}
	for _, rec := range s.Records {
		row := models.AggregateRow{Key: rec.Date.Format(series.DateLayout), Values: make([]sql.NullFloat64, len(idx))}
		for i, src := range idx {
			row.Values[i] = rec.Value(src)
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

// MonthlyMean averages daily values per (year, month) pair present in the
// series, keyed "YYYY-MM".
func MonthlyMean(s *models.Series, vars []string) *Result {
	names, idx := selectVariables(s, vars)
	res := &Result{KeyField: "fecha", Variables: names}

	accs := make(map[int]*meanAcc)
	var order []int
	for _, rec := range s.Records {
		bucket := rec.Date.Year()*12 + int(rec.Date.Month()) - 1
		acc, ok := accs[bucket]
		if !ok {
			acc = newMeanAcc(len(idx))
			accs[bucket] = acc
			order = append(order, bucket)
		}
		acc.add(rec, idx)
	}
	for _, bucket := range order {
		key := fmt.Sprintf("%04d-%02d", bucket/12, bucket%12+1)
		res.Rows = append(res.Rows, accs[bucket].row(key))
	}
	return res
}

// AnnualMean averages daily values per year present, keyed "YYYY".
func AnnualMean(s *models.Series, vars []string) *Result {
	names, idx := selectVariables(s, vars)
	res := &Result{KeyField: "fecha", Variables: names}

	accs := make(map[int]*meanAcc)
	var order []int
	for _, rec := range s.Records {
		year := rec.Date.Year()
		acc, ok := accs[year]
		if !ok {
			acc = newMeanAcc(len(idx))
			accs[year] = acc
			order = append(order, year)
		}
		acc.add(rec, idx)
	}
	for _, year := range order {
		res.Rows = append(res.Rows, accs[year].row(fmt.Sprintf("%04d", year)))
	}
	return res
}

// AnnualCycleDaily averages each calendar (month, day) position across all
// years, keyed "DD-MM". Feb-29 keeps its own bucket; it simply has fewer
// contributing years.
func AnnualCycleDaily(s *models.Series, vars []string) *Result {
	names, idx := selectVariables(s, vars)
	res := &Result{KeyField: "dia_mes", Variables: names}

	accs := make(map[int]*meanAcc)
	for _, rec := range s.Records {
		bucket := int(rec.Date.Month())*100 + rec.Date.Day()
		acc, ok := accs[bucket]
		if !ok {
			acc = newMeanAcc(len(idx))
			accs[bucket] = acc
		}
		acc.add(rec, idx)
	}

	buckets := make([]int, 0, len(accs))
	for b := range accs {
		buckets = append(buckets, b)
	}
	sort.Ints(buckets)
	for _, b := range buckets {
		key := fmt.Sprintf("%02d-%02d", b%100, b/100)
		res.Rows = append(res.Rows, accs[b].row(key))
	}
	return res
}

// AnnualCycleMonthly averages the monthly means per calendar month. It always
// returns exactly 12 rows keyed "1".."12"; months without data are null.
func AnnualCycleMonthly(s *models.Series, vars []string) *Result {
	monthly := MonthlyMean(s, vars)
	res := &Result{KeyField: "mes", Variables: monthly.Variables}

	accs := make([]*meanAcc, 12)
	for m := range accs {
		accs[m] = newMeanAcc(len(monthly.Variables))
	}
	for _, row := range monthly.Rows {
		// Keys are "YYYY-MM" by construction.
		m, err := strconv.Atoi(row.Key[5:])
		if err != nil || m < 1 || m > 12 {
			continue
		}
		accs[m-1].addValues(row.Values)
	}
	for m := 0; m < 12; m++ {
		res.Rows = append(res.Rows, accs[m].row(strconv.Itoa(m+1)))
	}
	return res
}

// Seasonal averages daily values per (season-year, season), keyed
// "YYYY-Season" in chronological order.
func Seasonal(s *models.Series, vars []string, seasons Seasons) *Result {
	names, idx := selectVariables(s, vars)
	res := &Result{KeyField: "periodo", Variables: names}

	accs := make(map[int]*meanAcc)
	for _, rec := range s.Records {
		si, year := seasons.Assign(rec.Date)
		bucket := year*len(seasons.Names) + si
		acc, ok := accs[bucket]
		if !ok {
			acc = newMeanAcc(len(idx))
			accs[bucket] = acc
		}
		acc.add(rec, idx)
	}

	buckets := make([]int, 0, len(accs))
	for b := range accs {
		buckets = append(buckets, b)
	}
	sort.Ints(buckets)
	for _, b := range buckets {
		year, si := b/len(seasons.Names), b%len(seasons.Names)
		key := fmt.Sprintf("%04d-%s", year, seasons.Names[si])
		res.Rows = append(res.Rows, accs[b].row(key))
	}
	return res
}

// AnnualCycleSeasonal averages the seasonal aggregates per season across
// years. It emits one row per season in the set's order, null where no
// seasonal aggregate exists.
func AnnualCycleSeasonal(s *models.Series, vars []string, seasons Seasons) *Result {
	seasonal := Seasonal(s, vars, seasons)
	res := &Result{KeyField: "estacion_del_anio", Variables: seasonal.Variables}

	accs := make([]*meanAcc, len(seasons.Names))
	for i := range accs {
		accs[i] = newMeanAcc(len(seasonal.Variables))
	}
	for _, row := range seasonal.Rows {
		// Keys are "YYYY-Season" by construction.
		name := row.Key[5:]
		for i, sn := range seasons.Names {
			if sn == name {
				accs[i].addValues(row.Values)
				break
			}
		}
	}
	for i, name := range seasons.Names {
		res.Rows = append(res.Rows, accs[i].row(name))
	}
	return res
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

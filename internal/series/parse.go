package series

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mxclima/climaserie/internal/metrics"
	"github.com/mxclima/climaserie/internal/models"
)

// DateLayout is the date format used in the station CSV files.
const DateLayout = "02/01/2006"

const (
	dateColumn = "Fecha"

	// Derived variable names, appended after the raw columns.
	VarTProm  = "TProm"
	VarTRango = "TRango"
	VarTMax   = "TMAX"
	VarTMin   = "TMIN"
)

// ParseCSV reads one station source file into a Series. The header row names
// the variables; every later row yields at most one DailyRecord. Rows with an
// unparseable date are dropped with a warning, unreadable numeric cells become
// nulls, and duplicate dates keep the first occurrence so the sorted-unique
// invariant holds.
func ParseCSV(r io.Reader, estado, estacion string) (*models.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx := -1
	var variables []string
	var varIdx []int
	for i, col := range header {
		name := strings.TrimSpace(col)
		if name == dateColumn {
			dateIdx = i
			continue
		}
		variables = append(variables, name)
		varIdx = append(varIdx, i)
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("source file for %s/%s has no %q column", estado, estacion, dateColumn)
	}

	tmaxPos, tminPos := -1, -1
	for i, v := range variables {
		switch v {
		case VarTMax:
			tmaxPos = i
		case VarTMin:
			tminPos = i
		}
	}
	derived := tmaxPos >= 0 && tminPos >= 0

	var records []models.DailyRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed row never fails the whole load.
			metrics.RowsDroppedTotal.WithLabelValues("malformed").Inc()
			log.Printf("series: %s/%s: dropping malformed row: %v", estado, estacion, err)
			continue
		}
		if emptyRow(row) {
			continue
		}
		if dateIdx >= len(row) {
			metrics.RowsDroppedTotal.WithLabelValues("no_date").Inc()
			continue
		}
		date, err := time.Parse(DateLayout, strings.TrimSpace(row[dateIdx]))
		if err != nil {
			metrics.RowsDroppedTotal.WithLabelValues("bad_date").Inc()
			log.Printf("series: %s/%s: dropping row with bad date %q", estado, estacion, row[dateIdx])
			continue
		}

		rec := models.DailyRecord{Date: date}
		rec.Values = make([]sql.NullFloat64, len(variables), len(variables)+2)
		for i, src := range varIdx {
			if src < len(row) {
				rec.Values[i] = parseNumber(row[src])
			}
		}
		if derived {
			tmax, tmin := rec.Values[tmaxPos], rec.Values[tminPos]
			var tprom, trango sql.NullFloat64
			if tmax.Valid && tmin.Valid {
				tprom = sql.NullFloat64{Float64: round2((tmax.Float64 + tmin.Float64) / 2), Valid: true}
				trango = sql.NullFloat64{Float64: round2(tmax.Float64 - tmin.Float64), Valid: true}
			}
			rec.Values = append(rec.Values, tprom, trango)
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	records = dedupeDates(estado, estacion, records)

	if derived {
		variables = append(variables, VarTProm, VarTRango)
	}

	return &models.Series{
		Estado:    estado,
		Estacion:  estacion,
		Variables: variables,
		Records:   records,
	}, nil
}

func dedupeDates(estado, estacion string, records []models.DailyRecord) []models.DailyRecord {
	out := records[:0]
	for i, rec := range records {
		if i > 0 && rec.Date.Equal(records[i-1].Date) {
			metrics.RowsDroppedTotal.WithLabelValues("duplicate_date").Inc()
			log.Printf("series: %s/%s: dropping duplicate date %s", estado, estacion, rec.Date.Format(DateLayout))
			continue
		}
		out = append(out, rec)
	}
	return out
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseNumber reads a numeric cell tolerating either decimal separator and
// stray unit adornments ("25,4 mm" -> 25.4). Anything unreadable is null.
func parseNumber(s string) sql.NullFloat64 {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '+', r == '-', r == '.', r == ',', r == 'e', r == 'E':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return sql.NullFloat64{}
	}
	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			// Both separators: treat the comma as a thousands mark.
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

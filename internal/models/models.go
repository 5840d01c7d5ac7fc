package models

import (
	"database/sql"
	"time"
)

// State is one entry of the Mexican states catalog. The abbreviation is the
// key used in station catalog filenames and in API routes.
type State struct {
	Abreviatura string `json:"abreviatura"`
	Nombre      string `json:"nombre"`
}

// Station is a catalog entry for one climatological station. The uppercase
// JSON names mirror the CONAGUA catalog files; the lowercase fields are
// filled in by enrichment from the station's own series.
type Station struct {
	Estado    string  `json:"ESTADO"`
	Estacion  string  `json:"ESTACION"`
	Nombre    string  `json:"NOMBRE"`
	Municipio string  `json:"MUNICIPIO"`
	Latitud   float64 `json:"LATITUD"`
	Longitud  float64 `json:"LONGITUD"`
	Altitud   float64 `json:"ALTITUD"`
	Situacion string  `json:"SITUACION"`

	FechaInicialDatos *string  `json:"fecha_inicial_datos"`
	FechaFinalDatos   *string  `json:"fecha_final_datos"`
	Variables         []string `json:"variables"`
	AniosDeDatos      float64  `json:"anios_de_datos"`
}

// DailyRecord is one day of observations. Values is parallel to the owning
// Series' Variables list; a missing or unparseable reading is Valid=false.
type DailyRecord struct {
	Date   time.Time
	Values []sql.NullFloat64
}

// Value returns the reading at variable index i, or an invalid value when
// the record is shorter than the schema.
func (r DailyRecord) Value(i int) sql.NullFloat64 {
	if i < 0 || i >= len(r.Values) {
		return sql.NullFloat64{}
	}
	return r.Values[i]
}

// Series is the full daily record of one station, ordered by date with no
// duplicate dates. It is never mutated after construction; filters and
// aggregations build new slices.
type Series struct {
	Estado   string
	Estacion string
	// Variables in source-column order, with derived variables appended.
	Variables []string
	Records   []DailyRecord
}

// VarIndex returns the position of name in Variables, or -1.
func (s *Series) VarIndex(name string) int {
	for i, v := range s.Variables {
		if v == name {
			return i
		}
	}
	return -1
}

// HasVariable reports whether the series carries the named variable.
func (s *Series) HasVariable(name string) bool {
	return s.VarIndex(name) >= 0
}

// FirstDate returns the date of the earliest record. Ok is false for an
// empty series.
func (s *Series) FirstDate() (time.Time, bool) {
	if len(s.Records) == 0 {
		return time.Time{}, false
	}
	return s.Records[0].Date, true
}

// LastDate returns the date of the latest record.
func (s *Series) LastDate() (time.Time, bool) {
	if len(s.Records) == 0 {
		return time.Time{}, false
	}
	return s.Records[len(s.Records)-1].Date, true
}

// AggregateRow is one temporal bucket of an aggregation result. Values is
// parallel to the result's variable list; a bucket with no contributing
// observations for a variable stays invalid rather than zero.
type AggregateRow struct {
	Key    string
	Values []sql.NullFloat64
}

// TrendResult is the linear trend fitted to yearly exceedance counts.
type TrendResult struct {
	Slope         float64 `json:"slope"`
	PValue        float64 `json:"p_value"`
	IsSignificant bool    `json:"is_significant"`
	// Fitted values aligned with the yearly count rows, for charting.
	TrendLinePoints []float64 `json:"trend_line_points"`
}

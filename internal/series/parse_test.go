package series

import (
	"database/sql"
	"strings"
	"testing"
	"time"
)

func TestParseCSV_Basic(t *testing.T) {
	src := strings.Join([]string{
		"Fecha,TMAX,TMIN,PRECIP",
		"01/01/2000,30,10,0",
		`02/01/2000,"31,5",11,NULO`,
		"not-a-date,32,12,1",
		`03/01/2000,,13,"2,5 mm"`,
		",,,",
	}, "\n")

	s, err := ParseCSV(strings.NewReader(src), "ags", "1001")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	wantVars := []string{"TMAX", "TMIN", "PRECIP", "TProm", "TRango"}
	if len(s.Variables) != len(wantVars) {
		t.Fatalf("Variables = %v, want %v", s.Variables, wantVars)
	}
	for i, v := range wantVars {
		if s.Variables[i] != v {
			t.Errorf("Variables[%d] = %q, want %q", i, s.Variables[i], v)
		}
	}

	if len(s.Records) != 3 {
		t.Fatalf("got %d records, want 3 (bad-date and empty rows dropped)", len(s.Records))
	}

	tmax := s.VarIndex("TMAX")
	precip := s.VarIndex("PRECIP")
	tprom := s.VarIndex("TProm")

	// Comma decimal separator.
	if got := s.Records[1].Value(tmax); !got.Valid || got.Float64 != 31.5 {
		t.Errorf("record 1 TMAX = %+v, want 31.5", got)
	}
	// Sentinel text becomes null, not zero.
	if got := s.Records[1].Value(precip); got.Valid {
		t.Errorf("record 1 PRECIP = %+v, want null", got)
	}
	// Unit adornment stripped.
	if got := s.Records[2].Value(precip); !got.Valid || got.Float64 != 2.5 {
		t.Errorf("record 2 PRECIP = %+v, want 2.5", got)
	}
	// Derived value null when TMAX missing.
	if got := s.Records[2].Value(tprom); got.Valid {
		t.Errorf("record 2 TProm = %+v, want null", got)
	}
}

func TestParseCSV_DerivedInvariant(t *testing.T) {
	src := strings.Join([]string{
		"Fecha,TMAX,TMIN",
		"01/01/2000,30,10",
		"02/01/2000,,10",
		"03/01/2000,30,",
		"04/01/2000,35,15",
	}, "\n")

	s, err := ParseCSV(strings.NewReader(src), "ags", "1001")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	tmax, tmin := s.VarIndex("TMAX"), s.VarIndex("TMIN")
	tprom, trango := s.VarIndex("TProm"), s.VarIndex("TRango")
	if tprom < 0 || trango < 0 {
		t.Fatalf("derived variables missing: %v", s.Variables)
	}

	for _, rec := range s.Records {
		both := rec.Value(tmax).Valid && rec.Value(tmin).Valid
		p := rec.Value(tprom)
		if p.Valid != both {
			t.Errorf("%s: TProm valid = %v, want %v", rec.Date.Format(DateLayout), p.Valid, both)
		}
		if both {
			want := (rec.Value(tmax).Float64 + rec.Value(tmin).Float64) / 2
			if diff := p.Float64 - want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("%s: TProm = %v, want %v", rec.Date.Format(DateLayout), p.Float64, want)
			}
			r := rec.Value(trango)
			if !r.Valid || r.Float64 != rec.Value(tmax).Float64-rec.Value(tmin).Float64 {
				t.Errorf("%s: TRango = %+v", rec.Date.Format(DateLayout), r)
			}
		}
	}
}

func TestParseCSV_NoDerivedWithoutBothColumns(t *testing.T) {
	src := "Fecha,TMAX,PRECIP\n01/01/2000,30,5\n"
	s, err := ParseCSV(strings.NewReader(src), "ags", "1001")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if s.HasVariable("TProm") || s.HasVariable("TRango") {
		t.Errorf("derived variables present without TMIN column: %v", s.Variables)
	}
}

func TestParseCSV_SortedUniqueDates(t *testing.T) {
	src := strings.Join([]string{
		"Fecha,TMAX",
		"03/01/2000,32",
		"01/01/2000,30",
		"03/01/2000,99",
		"02/01/2000,31",
	}, "\n")

	s, err := ParseCSV(strings.NewReader(src), "ags", "1001")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(s.Records) != 3 {
		t.Fatalf("got %d records, want 3 (duplicate date dropped)", len(s.Records))
	}
	for i := 1; i < len(s.Records); i++ {
		if !s.Records[i-1].Date.Before(s.Records[i].Date) {
			t.Errorf("dates not strictly increasing at %d: %v, %v", i, s.Records[i-1].Date, s.Records[i].Date)
		}
	}
	// The first occurrence of the duplicate date wins.
	tmax := s.VarIndex("TMAX")
	if got := s.Records[2].Value(tmax); !got.Valid || got.Float64 != 32 {
		t.Errorf("duplicate date kept %+v, want first occurrence 32", got)
	}
}

func TestParseCSV_MissingDateColumn(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("TMAX,TMIN\n30,10\n"), "ags", "1001"); err == nil {
		t.Fatal("expected error for source without Fecha column")
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in    string
		want  sql.NullFloat64
	}{
		{"25.4", sql.NullFloat64{Float64: 25.4, Valid: true}},
		{"25,4", sql.NullFloat64{Float64: 25.4, Valid: true}},
		{" 25,4 mm ", sql.NullFloat64{Float64: 25.4, Valid: true}},
		{"-3.2", sql.NullFloat64{Float64: -3.2, Valid: true}},
		{"1,234.5", sql.NullFloat64{Float64: 1234.5, Valid: true}},
		{"", sql.NullFloat64{}},
		{"NULO", sql.NullFloat64{}},
		{"--", sql.NullFloat64{}},
	}
	for _, tt := range tests {
		if got := parseNumber(tt.in); got != tt.want {
			t.Errorf("parseNumber(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

package series

import (
	"errors"
	"testing"
	"time"

	"github.com/mxclima/climaserie/internal/models"
)

func testSeries(t *testing.T, dates ...string) *models.Series {
	t.Helper()
	s := &models.Series{Estado: "ags", Estacion: "1001", Variables: []string{"TMAX"}}
	for _, d := range dates {
		s.Records = append(s.Records, models.DailyRecord{Date: date(t, d)})
	}
	return s
}

func recordDates(s *models.Series) []string {
	var out []string
	for _, rec := range s.Records {
		out = append(out, rec.Date.Format(DateLayout))
	}
	return out
}

func TestFilter(t *testing.T) {
	full := testSeries(t, "01/01/2000", "15/06/2000", "31/12/2000", "10/03/2001")

	tests := []struct {
		name    string
		inicio  string
		fin     string
		want    []string
	}{
		{"unbounded is identity", "", "", []string{"01/01/2000", "15/06/2000", "31/12/2000", "10/03/2001"}},
		{"inclusive start", "2000-06-15", "", []string{"15/06/2000", "31/12/2000", "10/03/2001"}},
		{"inclusive end", "", "2000-06-15", []string{"01/01/2000", "15/06/2000"}},
		{"both bounds", "2000-06-01", "2000-12-31", []string{"15/06/2000", "31/12/2000"}},
		{"single-day window hits", "2000-06-15", "2000-06-15", []string{"15/06/2000"}},
		{"single-day window misses", "2000-02-01", "2000-02-01", nil},
		{"window before data", "1990-01-01", "1990-12-31", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := ParseRange(tt.inicio, tt.fin)
			if err != nil {
				t.Fatalf("ParseRange: %v", err)
			}
			got := recordDates(Filter(full, rng))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("record %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFilter_NarrowingComposes(t *testing.T) {
	full := testSeries(t, "01/01/2000", "15/06/2000", "31/12/2000", "10/03/2001", "20/08/2001")

	wide, err := ParseRange("2000-01-01", "2001-12-31")
	if err != nil {
		t.Fatal(err)
	}
	narrow, err := ParseRange("2000-06-01", "2001-03-31")
	if err != nil {
		t.Fatal(err)
	}

	composed := Filter(Filter(full, wide), narrow)
	direct := Filter(full, narrow)

	got, want := recordDates(composed), recordDates(direct)
	if len(got) != len(want) {
		t.Fatalf("composed %v != direct %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("record %d: composed %s != direct %s", i, got[i], want[i])
		}
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	full := testSeries(t, "01/01/2000", "15/06/2000")
	rng, _ := ParseRange("2000-06-01", "")
	Filter(full, rng)
	if len(full.Records) != 2 {
		t.Errorf("input series mutated: %d records", len(full.Records))
	}
}

func TestParseRange_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		inicio string
		fin    string
	}{
		{"end before start", "2001-01-01", "2000-01-01"},
		{"bad start", "01/01/2000", ""},
		{"bad end", "", "junk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRange(tt.inicio, tt.fin); !errors.Is(err, ErrInvalidRange) {
				t.Errorf("ParseRange(%q, %q) = %v, want ErrInvalidRange", tt.inicio, tt.fin, err)
			}
		})
	}
}

func TestParseRange_OpenBounds(t *testing.T) {
	rng, err := ParseRange("", "")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	if rng.Start != nil || rng.End != nil {
		t.Errorf("empty bounds should stay open: %+v", rng)
	}

	rng, err = ParseRange("2000-01-01", "")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	if rng.Start == nil || !rng.Start.Equal(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", rng.Start)
	}
}

package series

import (
	"errors"
	"fmt"
	"time"

	"github.com/mxclima/climaserie/internal/models"
)

// ErrInvalidRange is returned for an unparseable bound or a window whose end
// precedes its start. Bounds are never silently swapped.
var ErrInvalidRange = errors.New("invalid date range")

// RangeLayout is the format for fecha_inicio / fecha_fin parameters.
const RangeLayout = "2006-01-02"

// Range is an inclusive date window. A nil bound leaves that side open.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// ParseRange builds a Range from ISO date strings; either may be empty.
func ParseRange(inicio, fin string) (Range, error) {
	var r Range
	if inicio != "" {
		t, err := time.Parse(RangeLayout, inicio)
		if err != nil {
			return Range{}, fmt.Errorf("fecha_inicio %q: %w", inicio, ErrInvalidRange)
		}
		r.Start = &t
	}
	if fin != "" {
		t, err := time.Parse(RangeLayout, fin)
		if err != nil {
			return Range{}, fmt.Errorf("fecha_fin %q: %w", fin, ErrInvalidRange)
		}
		r.End = &t
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return Range{}, fmt.Errorf("fecha_fin before fecha_inicio: %w", ErrInvalidRange)
	}
	return r, nil
}

// Filter returns a new series restricted to the window, inclusive on both
// bounds. Records are already sorted, so the scan stops once the end bound
// is passed. An empty result is a valid, empty series.
func Filter(s *models.Series, r Range) *models.Series {
	out := &models.Series{
		Estado:    s.Estado,
		Estacion:  s.Estacion,
		Variables: s.Variables,
	}
	for _, rec := range s.Records {
		if r.Start != nil && rec.Date.Before(*r.Start) {
			continue
		}
		if r.End != nil && rec.Date.After(*r.End) {
			break
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

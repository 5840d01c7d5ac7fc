package aggregate

import "time"

// Seasons defines a season assignment for the seasonal aggregations. Assign
// maps a date to an index into Names plus the year the season belongs to, so
// a season that straddles the new year can be kept contiguous.
type Seasons struct {
	Names  []string
	Assign func(t time.Time) (season int, year int)
}

// DefaultSeasons are the meteorological seasons with Spanish names. December
// counts toward the following year's Invierno so that each DJF winter
// aggregates three consecutive months.
var DefaultSeasons = Seasons{
	Names: []string{"Invierno", "Primavera", "Verano", "Otoño"},
	Assign: func(t time.Time) (int, int) {
		year := t.Year()
		switch t.Month() {
		case time.December:
			return 0, year + 1
		case time.January, time.February:
			return 0, year
		case time.March, time.April, time.May:
			return 1, year
		case time.June, time.July, time.August:
			return 2, year
		default: // September, October, November
			return 3, year
		}
	},
}

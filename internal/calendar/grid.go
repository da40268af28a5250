// Package calendar builds the month grid shown by the booking date picker.
package calendar

import (
	"time"

	"vilo/internal/stay"
)

const (
	// GridSize is the number of cells in a month grid: 6 weeks of 7 days.
	GridSize    = 42
	daysPerWeek = 7
)

// Day is one cell of the month grid.
type Day struct {
	Date            stay.Date `json:"date"`
	IsCurrentMonth  bool      `json:"is_current_month"`
	IsPast          bool      `json:"is_past"`
	IsUnavailable   bool      `json:"is_unavailable"`
	IsSeasonal      bool      `json:"is_seasonal"`
	IsSelectedStart bool      `json:"is_selected_start"`
	IsSelectedEnd   bool      `json:"is_selected_end"`
	IsInRange       bool      `json:"is_in_range"`
}

// Input holds everything a grid depends on.
// Unavailable and Seasonal keys are dates; nil sets are treated as empty.
type Input struct {
	Year        int
	Month       time.Month
	Range       stay.StayRange
	Unavailable stay.DateSet
	Seasonal    stay.DateSet
	Today       stay.Date
}

// GridStart returns the Sunday on or before the 1st of the month.
func GridStart(year int, month time.Month) stay.Date {
	first := stay.NewDate(year, month, 1)
	return first.AddDays(-int(first.Weekday()))
}

// Generate returns the 42 cells for the input month. It has no hidden state:
// equal inputs always produce equal grids.
func Generate(in Input) []Day {
	start := GridStart(in.Year, in.Month)
	complete := in.Range.IsComplete()

	days := make([]Day, 0, GridSize)
	for i := 0; i < GridSize; i++ {
		d := start.AddDays(i)
		cell := Day{
			Date:           d,
			IsCurrentMonth: d.Month() == in.Month && d.Year() == in.Year,
			IsPast:         !in.Today.IsZero() && d.Before(in.Today),
			IsUnavailable:  in.Unavailable.Has(d),
			IsSeasonal:     in.Seasonal.Has(d),
		}
		if !in.Range.Start.IsZero() && d.Equal(in.Range.Start) {
			cell.IsSelectedStart = true
		}
		if !in.Range.End.IsZero() && d.Equal(in.Range.End) {
			cell.IsSelectedEnd = true
		}
		if complete && d.After(in.Range.Start) && d.Before(in.Range.End) {
			cell.IsInRange = true
		}
		days = append(days, cell)
	}
	return days
}

// Weeks splits a grid into rows of 7 cells.
func Weeks(days []Day) [][]Day {
	rows := make([][]Day, 0, (len(days)+daysPerWeek-1)/daysPerWeek)
	for i := 0; i < len(days); i += daysPerWeek {
		end := i + daysPerWeek
		if end > len(days) {
			end = len(days)
		}
		rows = append(rows, days[i:end])
	}
	return rows
}

// MonthGrid is the rendered view of one month.
type MonthGrid struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Weeks [][]Day `json:"weeks"`
}

// Build generates the grid for in and groups it by week.
func Build(in Input) MonthGrid {
	return MonthGrid{
		Year:  in.Year,
		Month: int(in.Month),
		Weeks: Weeks(Generate(in)),
	}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}

// MonthWindow returns the dates covered by the month's grid as a half-open range.
func MonthWindow(year int, month time.Month) stay.StayRange {
	start := GridStart(year, month)
	return stay.NewRange(start, start.AddDays(GridSize))
}

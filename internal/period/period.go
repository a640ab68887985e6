// Package period resolves calendar anchors into the year, month and ISO week
// selectors used by the report pickers.
package period

import (
	"math"
	"time"
)

const (
	yearSpan  = 2
	maxMonths = 12
	maxWeeks  = 53
)

// ISOWeek returns the ISO-8601 week number (1..53) of t in t's location.
func ISOWeek(t time.Time) int {
	_, week := ISOWeekYear(t)
	return week
}

// ISOWeekYear returns the week-numbering year together with the ISO week.
//
// The date is normalized to local midnight and moved to the Thursday of its
// week (Sunday counts as day 7); the Thursday's year owns the week, and the
// week is ceil((days since Jan 1 of that year + 1) / 7).
func ISOWeekYear(t time.Time) (year, week int) {
	loc := t.Location()
	y, m, d := t.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, loc)

	weekday := int(date.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	thursday := date.AddDate(0, 0, 4-weekday)
	jan1 := time.Date(thursday.Year(), time.January, 1, 0, 0, 0, 0, loc)

	days := thursday.Sub(jan1).Hours() / 24
	return thursday.Year(), int(math.Ceil((days + 1) / 7))
}

// SelectableYears lists the five years centred on anchor.
func SelectableYears(anchor int) []int {
	out := make([]int, 0, 2*yearSpan+1)
	for y := anchor - yearSpan; y <= anchor+yearSpan; y++ {
		out = append(out, y)
	}
	return out
}

// SelectableMonths lists 1..12.
func SelectableMonths() []int {
	return sequence(maxMonths)
}

// SelectableWeeks lists 1..53.
func SelectableWeeks() []int {
	return sequence(maxWeeks)
}

// MonthName is the English month label shown in the month picker.
func MonthName(month int) string {
	if month < 1 || month > maxMonths {
		return ""
	}
	return time.Month(month).String()
}

// ValidMonth reports whether m is a selectable month.
func ValidMonth(m int) bool { return m >= 1 && m <= maxMonths }

// ValidWeek reports whether w is a selectable week.
func ValidWeek(w int) bool { return w >= 1 && w <= maxWeeks }

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

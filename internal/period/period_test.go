package period

import (
	"testing"
	"time"
)

func TestISOWeekReferenceDates(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		wantYear int
		wantWeek int
	}{
		{"new year 2021 belongs to 2020", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 2020, 53},
		{"new year's eve 2024 belongs to 2025", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 2025, 1},
		{"mid june 2023", time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), 2023, 24},
		{"sunday stays in previous week", time.Date(2023, 1, 1, 23, 59, 0, 0, time.UTC), 2022, 52},
		{"monday starts week one", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), 2024, 1},
		{"week 53 of 2026", time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), 2026, 53},
		{"time of day ignored", time.Date(2023, 6, 15, 23, 59, 59, 0, time.UTC), 2023, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, w := ISOWeekYear(tt.date)
			if y != tt.wantYear || w != tt.wantWeek {
				t.Errorf("ISOWeekYear(%s) = %d-W%d, want %d-W%d", tt.date.Format(time.DateOnly), y, w, tt.wantYear, tt.wantWeek)
			}
			if got := ISOWeek(tt.date); got != tt.wantWeek {
				t.Errorf("ISOWeek(%s) = %d, want %d", tt.date.Format(time.DateOnly), got, tt.wantWeek)
			}
		})
	}
}

func TestISOWeekMatchesStdlib(t *testing.T) {
	start := time.Date(2019, 12, 20, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3*366; i++ {
		d := start.AddDate(0, 0, i)
		wantY, wantW := d.ISOWeek()
		y, w := ISOWeekYear(d)
		if y != wantY || w != wantW {
			t.Fatalf("%s: got %d-W%d, stdlib %d-W%d", d.Format(time.DateOnly), y, w, wantY, wantW)
		}
	}
}

func TestISOWeekAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// The Thursday of this week falls after the spring clock change.
	d := time.Date(2024, 4, 1, 12, 0, 0, 0, loc)
	if got := ISOWeek(d); got != 14 {
		t.Fatalf("ISOWeek = %d, want 14", got)
	}
}

func TestSelectables(t *testing.T) {
	years := SelectableYears(2025)
	want := []int{2023, 2024, 2025, 2026, 2027}
	if len(years) != len(want) {
		t.Fatalf("years = %v", years)
	}
	for i := range want {
		if years[i] != want[i] {
			t.Fatalf("years = %v, want %v", years, want)
		}
	}

	months := SelectableMonths()
	if len(months) != 12 || months[0] != 1 || months[11] != 12 {
		t.Fatalf("months = %v", months)
	}
	weeks := SelectableWeeks()
	if len(weeks) != 53 || weeks[0] != 1 || weeks[52] != 53 {
		t.Fatalf("weeks = %v", weeks)
	}

	if MonthName(3) != "March" || MonthName(0) != "" || MonthName(13) != "" {
		t.Fatalf("unexpected month names")
	}
	if !ValidWeek(53) || ValidWeek(54) || ValidMonth(0) {
		t.Fatalf("unexpected range checks")
	}
}

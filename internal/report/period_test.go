package report

import (
	"testing"
	"time"
)

func TestDateRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    Period
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"weekly", Weekly, now.AddDate(0, 0, -7), now},
		{"monthly", Monthly, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"yearly", Yearly, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"unknown falls back to monthly", Period("fortnightly"), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"empty falls back to monthly", Period(""), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DateRange(tt.period, now)
			if !r.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", r.Start, tt.wantStart)
			}
			if !r.End.Equal(tt.wantEnd) {
				t.Errorf("End = %v, want %v", r.End, tt.wantEnd)
			}
		})
	}
}

func TestDateRangeMonthlyFebruaryLeapYear(t *testing.T) {
	r := DateRange(Monthly, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	if r.End.Day() != 29 {
		t.Errorf("End day = %d, want 29", r.End.Day())
	}
}

func TestRangeApply(t *testing.T) {
	r := DateRange(Yearly, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	f := r.Apply(coreFilter("a@example.com"))
	if f.From.String() != "2024-01-01" || f.To.String() != "2024-12-31" {
		t.Errorf("filter = %s..%s, want 2024-01-01..2024-12-31", f.From, f.To)
	}
	if f.Owner != "a@example.com" {
		t.Errorf("Owner = %q, want preserved", f.Owner)
	}
}

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		period Period
		date   time.Time
		want   string
	}{
		{Monthly, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "2024-03"},
		{Weekly, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "2024-W03"},
		{Weekly, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-W01"},
		{Weekly, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), "2024-W01"},
		{Weekly, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), "2024-W02"},
		{Weekly, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), "2024-W05"},
		{Yearly, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "2024"},
		{Daily, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "2024-03-15"},
		{Period("unknown"), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "2024-03-15"},
		{ISOWeekly, time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), "2025-W01"},
	}

	for _, tt := range tests {
		t.Run(string(tt.period)+"/"+tt.date.Format("2006-01-02"), func(t *testing.T) {
			if got := PeriodKey(tt.period, tt.date); got != tt.want {
				t.Errorf("PeriodKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	if p, ok := ParsePeriod(" Monthly "); !ok || p != Monthly {
		t.Errorf("ParsePeriod(Monthly) = %q, %v", p, ok)
	}
	if _, ok := ParsePeriod("quarterly"); ok {
		t.Error("ParsePeriod(quarterly) should not be recognised")
	}
}

func TestTrendRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	r := TrendRange(Monthly, 6, now)
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !r.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", r.Start, want)
	}
}

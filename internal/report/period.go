// Package report turns flat entry lists into the period buckets, merged
// transaction feeds and summaries served by the reporting endpoints.
//
// Period handling follows a strategy registry: every granularity knows how
// to label an instant and where its period starts, and the bucketer and
// trend builder only talk to that interface.
package report

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

const (
	Daily     Period = "daily"
	Weekly    Period = "weekly"
	Monthly   Period = "monthly"
	Yearly    Period = "yearly"
	ISOWeekly Period = "isoweekly"
)

// Period is a reporting granularity keyword.
type Period string

// ParsePeriod normalises a keyword. The boolean is false for unknown or empty input.
func ParsePeriod(s string) (Period, bool) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	_, ok := periodStrategies[p]
	return p, ok
}

// Range is a concrete reporting window.
type Range struct {
	Start time.Time
	End   time.Time
}

// DateRange resolves a period keyword against a reference instant.
// Unknown keywords resolve to the current month; there is no error path.
func DateRange(p Period, now time.Time) Range {
	loc := now.Location()
	switch p {
	case Weekly:
		return Range{Start: now.AddDate(0, 0, -7), End: now}
	case Yearly:
		return Range{
			Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc),
			End:   time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, loc),
		}
	default:
		return Range{
			Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc),
			End:   time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, loc),
		}
	}
}

// Apply narrows a filter to the calendar dates covered by the range, inclusive.
func (r Range) Apply(f core.EntryFilter) core.EntryFilter {
	f.From = core.DateOf(r.Start)
	f.To = core.DateOf(r.End)
	return f
}

// PeriodStrategy labels instants and locates period boundaries for one granularity.
type PeriodStrategy interface {
	// Key returns the canonical bucket label for t.
	Key(t time.Time) string
	// Start returns the first day of the period containing t.
	Start(t time.Time) time.Time
}

type dailyStrategy struct{}

func (dailyStrategy) Key(t time.Time) string { return t.Format("2006-01-02") }

func (dailyStrategy) Start(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// monthWeekStrategy numbers weeks by day of month: days 1-7 are W01, 8-14 W02
// and so on up to W05. Numbering restarts every month.
type monthWeekStrategy struct{}

func (monthWeekStrategy) Key(t time.Time) string {
	return fmt.Sprintf("%04d-W%02d", t.Year(), weekOfMonth(t))
}

func (monthWeekStrategy) Start(t time.Time) time.Time {
	day := (weekOfMonth(t)-1)*7 + 1
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, t.Location())
}

func weekOfMonth(t time.Time) int {
	return (t.Day() + 6) / 7
}

type isoWeekStrategy struct{}

func (isoWeekStrategy) Key(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func (isoWeekStrategy) Start(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -offset)
}

type monthlyStrategy struct{}

func (monthlyStrategy) Key(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

func (monthlyStrategy) Start(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

type yearlyStrategy struct{}

func (yearlyStrategy) Key(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) }

func (yearlyStrategy) Start(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

var periodStrategies = map[Period]PeriodStrategy{
	Daily:     dailyStrategy{},
	Weekly:    monthWeekStrategy{},
	ISOWeekly: isoWeekStrategy{},
	Monthly:   monthlyStrategy{},
	Yearly:    yearlyStrategy{},
}

// StrategyFor returns the strategy for p, falling back to daily labels.
func StrategyFor(p Period) PeriodStrategy {
	if s, ok := periodStrategies[p]; ok {
		return s
	}
	return dailyStrategy{}
}

// PeriodKey is the bucket label of t under granularity p.
func PeriodKey(p Period, t time.Time) string {
	return StrategyFor(p).Key(t)
}

// previousStart returns the start of the period immediately before the one beginning at start.
func previousStart(s PeriodStrategy, start time.Time) time.Time {
	return s.Start(start.AddDate(0, 0, -1))
}

// TrendRange is the window covered by the last n periods of p ending at now.
func TrendRange(p Period, n int, now time.Time) Range {
	s := StrategyFor(p)
	start := s.Start(now)
	for i := 1; i < n; i++ {
		start = previousStart(s, start)
	}
	return Range{Start: start, End: now}
}

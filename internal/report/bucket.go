package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// PeriodBucket aggregates the entries that share a period label.
type PeriodBucket struct {
	Period  string          `json:"period"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
	Entries []core.Entry    `json:"entries,omitempty"`
}

func (b *PeriodBucket) add(e core.Entry, keepEntry bool) {
	switch e.Kind {
	case core.KindIncome:
		b.Income = b.Income.Add(e.Amount)
	case core.KindExpense:
		b.Expense = b.Expense.Add(e.Amount)
	}
	b.Balance = b.Income.Sub(b.Expense)
	b.Count++
	if keepEntry {
		b.Entries = append(b.Entries, e)
	}
}

// Bucket groups entries by the period label of their date and returns only
// the periods that were observed, sorted by ascending label.
func Bucket(entries []core.Entry, p Period) []PeriodBucket {
	s := StrategyFor(p)
	byKey := make(map[string]*PeriodBucket)
	for _, e := range entries {
		key := s.Key(e.Date.Time)
		b, ok := byKey[key]
		if !ok {
			b = &PeriodBucket{Period: key}
			byKey[key] = b
		}
		b.add(e, true)
	}

	out := make([]PeriodBucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Trend returns exactly n consecutive buckets ending with the period that
// contains now, oldest first. Periods without entries are zero-filled and
// entries outside the window are ignored. Member entries are not retained.
// Entries are matched on period start, so day-of-month weeks from different
// months never share a bucket even when their labels repeat.
func Trend(entries []core.Entry, p Period, n int, now time.Time) []PeriodBucket {
	if n <= 0 {
		return nil
	}
	s := StrategyFor(p)

	starts := make([]time.Time, n)
	starts[n-1] = s.Start(now)
	for i := n - 2; i >= 0; i-- {
		starts[i] = previousStart(s, starts[i+1])
	}

	out := make([]PeriodBucket, n)
	index := make(map[string]int, n)
	for i, st := range starts {
		out[i] = PeriodBucket{Period: s.Key(st)}
		index[startKey(st)] = i
	}

	for _, e := range entries {
		if i, ok := index[startKey(s.Start(e.Date.Time))]; ok {
			out[i].add(e, false)
		}
	}
	return out
}

func startKey(t time.Time) string { return t.Format("2006-01-02") }

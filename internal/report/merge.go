package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	SortDateDesc   SortKey = "date_desc"
	SortDateAsc    SortKey = "date_asc"
	SortAmountDesc SortKey = "amount_desc"
	SortAmountAsc  SortKey = "amount_asc"
)

// SortKey orders a merged transaction feed.
type SortKey string

// ParseSortKey falls back to newest first for empty or unknown input.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortDateAsc, SortDateDesc, SortAmountAsc, SortAmountDesc:
		return k
	}
	return SortDateDesc
}

// Transaction is an entry tagged for the unified feed.
type Transaction struct {
	core.Entry
	Type          core.Kind       `json:"type"`
	DisplayAmount decimal.Decimal `json:"displayAmount"`
	CanEdit       bool            `json:"canEdit"`
}

// MergeOptions controls ordering and truncation. A zero Limit keeps every transaction.
type MergeOptions struct {
	SortBy SortKey
	Limit  int
	Policy core.EditPolicy
	Now    time.Time
}

// Merge tags income and expense entries, sorts them together and applies the limit.
// Ties keep the input order, incomes before expenses.
func Merge(incomes, expenses []core.Entry, opts MergeOptions) []Transaction {
	out := make([]Transaction, 0, len(incomes)+len(expenses))
	for _, group := range [][]core.Entry{incomes, expenses} {
		for _, e := range group {
			out = append(out, Transaction{
				Entry:         e,
				Type:          e.Kind,
				DisplayAmount: e.Kind.BalanceDelta(e.Amount),
				CanEdit:       opts.Policy.CanEdit(e.CreatedAt, opts.Now),
			})
		}
	}

	sort.SliceStable(out, lessFunc(out, opts.SortBy))

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func lessFunc(tx []Transaction, key SortKey) func(i, j int) bool {
	switch key {
	case SortDateAsc:
		return func(i, j int) bool { return tx[i].Timestamp().Before(tx[j].Timestamp()) }
	case SortAmountAsc:
		return func(i, j int) bool { return tx[i].Amount.LessThan(tx[j].Amount) }
	case SortAmountDesc:
		return func(i, j int) bool { return tx[i].Amount.GreaterThan(tx[j].Amount) }
	default:
		return func(i, j int) bool { return tx[i].Timestamp().After(tx[j].Timestamp()) }
	}
}

type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type Counts struct {
	Income  int `json:"income"`
	Expense int `json:"expense"`
	Total   int `json:"total"`
}

// Summarize computes totals and counts over the full filtered set.
func Summarize(entries ...[]core.Entry) (Totals, Counts) {
	var t Totals
	var c Counts
	for _, group := range entries {
		for _, e := range group {
			switch e.Kind {
			case core.KindIncome:
				t.Income = t.Income.Add(e.Amount)
				c.Income++
			case core.KindExpense:
				t.Expense = t.Expense.Add(e.Amount)
				c.Expense++
			}
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	c.Total = c.Income + c.Expense
	return t, c
}

const uncategorized = "Uncategorized"

type CategorySummary struct {
	Category string          `json:"category"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// ByCategory groups entries by category. Total is income minus expense and the
// result is ordered by descending absolute total, then by name.
func ByCategory(entries ...[]core.Entry) []CategorySummary {
	byName := make(map[string]*CategorySummary)
	for _, group := range entries {
		for _, e := range group {
			name := strings.TrimSpace(e.Category)
			if name == "" {
				name = uncategorized
			}
			s, ok := byName[name]
			if !ok {
				s = &CategorySummary{Category: name}
				byName[name] = s
			}
			if e.Kind == core.KindIncome {
				s.Income = s.Income.Add(e.Amount)
			} else {
				s.Expense = s.Expense.Add(e.Amount)
			}
			s.Total = s.Income.Sub(s.Expense)
			s.Count++
		}
	}

	out := make([]CategorySummary, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Total.Abs(), out[j].Total.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

type DivisionSummary struct {
	Division core.Division   `json:"division"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Balance  decimal.Decimal `json:"balance"`
	Count    int             `json:"count"`
}

// ByDivision groups entries by division, defaulting to Personal, ordered by name.
func ByDivision(entries ...[]core.Entry) []DivisionSummary {
	byDiv := make(map[core.Division]*DivisionSummary)
	for _, group := range entries {
		for _, e := range group {
			div := e.Division
			if div == "" {
				div = core.DivisionPersonal
			}
			s, ok := byDiv[div]
			if !ok {
				s = &DivisionSummary{Division: div}
				byDiv[div] = s
			}
			if e.Kind == core.KindIncome {
				s.Income = s.Income.Add(e.Amount)
			} else {
				s.Expense = s.Expense.Add(e.Amount)
			}
			s.Balance = s.Income.Sub(s.Expense)
			s.Count++
		}
	}

	out := make([]DivisionSummary, 0, len(byDiv))
	for _, s := range byDiv {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Division < out[j].Division })
	return out
}

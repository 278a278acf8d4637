package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/report"
)

const (
	TypeBoth    = "both"
	TypeIncome  = "income"
	TypeExpense = "expense"

	recentLimit  = 10
	trendPeriods = 6
)

// EntryReader is the read side of the entry store.
type EntryReader interface {
	FindEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error)
	CountEntries(ctx context.Context, owner string, kind core.Kind) (int, error)
}

type TransactionsQuery struct {
	// Filter carries owner, date range and dimension filters; its Kind is ignored.
	Filter core.EntryFilter
	Type   string
	Period report.Period
	SortBy report.SortKey
	Limit  int
}

type Summaries struct {
	ByCategory []report.CategorySummary `json:"byCategory"`
	ByDivision []report.DivisionSummary `json:"byDivision"`
}

type FiltersApplied struct {
	Type      string `json:"type"`
	Period    string `json:"period,omitempty"`
	SortBy    string `json:"sortBy"`
	Limit     int    `json:"limit,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Division  string `json:"division,omitempty"`
	Category  string `json:"category,omitempty"`
	Account   string `json:"account,omitempty"`
}

type TransactionsReport struct {
	Transactions   []report.Transaction  `json:"transactions"`
	Totals         report.Totals         `json:"totals"`
	Counts         report.Counts         `json:"counts"`
	PeriodData     []report.PeriodBucket `json:"periodData,omitempty"`
	Summaries      Summaries             `json:"summaries"`
	FiltersApplied FiltersApplied        `json:"filtersApplied"`
}

type DashboardRange struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

type Dashboard struct {
	Owner          string                   `json:"owner"`
	Period         report.Period            `json:"period"`
	Range          DashboardRange           `json:"range"`
	Summary        report.Totals            `json:"summary"`
	PeriodCounts   report.Counts            `json:"periodCounts"`
	ByCategory     []report.CategorySummary `json:"byCategory"`
	ByDivision     []report.DivisionSummary `json:"byDivision"`
	Recent         []report.Transaction     `json:"recentTransactions"`
	MonthlyTrend   []report.PeriodBucket    `json:"monthlyTrend"`
	LifetimeCounts report.Counts            `json:"lifetimeCounts"`
	GeneratedAt    time.Time                `json:"generatedAt"`
}

// ReportService builds the read models served by the transactions and
// dashboard endpoints. Independent store reads run concurrently.
type ReportService struct {
	store   EntryReader
	cache   cache.Cache[Dashboard]
	metrics *metrics.Metrics
	policy  core.EditPolicy
	now     func() time.Time
}

type ReportOption func(*ReportService)

func WithDashboardCache(c cache.Cache[Dashboard]) ReportOption {
	return func(s *ReportService) { s.cache = c }
}

func WithReportMetrics(m *metrics.Metrics) ReportOption {
	return func(s *ReportService) { s.metrics = m }
}

func WithReportPolicy(p core.EditPolicy) ReportOption {
	return func(s *ReportService) { s.policy = p }
}

func WithReportClock(now func() time.Time) ReportOption {
	return func(s *ReportService) { s.now = now }
}

func NewReportService(store EntryReader, opts ...ReportOption) *ReportService {
	s := &ReportService{
		store:  store,
		policy: core.NewEditPolicy(core.DefaultEditWindow),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseTransactionType normalises the type parameter; empty means both.
func ParseTransactionType(s string) (string, error) {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case "", TypeBoth:
		return TypeBoth, nil
	case TypeIncome, TypeExpense:
		return t, nil
	}
	return "", &core.ValidationError{Field: "type", Reason: "must be both, income or expense"}
}

// Transactions merges the owner's income and expense entries into one feed.
// Totals, counts, summaries and period data cover the full filtered set; the
// limit only truncates the feed.
func (s *ReportService) Transactions(ctx context.Context, q TransactionsQuery) (TransactionsReport, error) {
	if err := auth.CheckOwner(ctx, q.Filter.Owner); err != nil {
		return TransactionsReport{}, err
	}
	typ, err := ParseTransactionType(q.Type)
	if err != nil {
		return TransactionsReport{}, err
	}
	sortBy := report.ParseSortKey(string(q.SortBy))

	base := q.Filter
	base.Limit = 0
	base.Ascending = false

	var incomes, expenses []core.Entry
	g, gctx := errgroup.WithContext(ctx)
	if typ != TypeExpense {
		g.Go(func() error {
			f := base
			f.Kind = core.KindIncome
			var err error
			incomes, err = s.store.FindEntries(gctx, f)
			if err != nil {
				return fmt.Errorf("load incomes: %w", err)
			}
			return nil
		})
	}
	if typ != TypeIncome {
		g.Go(func() error {
			f := base
			f.Kind = core.KindExpense
			var err error
			expenses, err = s.store.FindEntries(gctx, f)
			if err != nil {
				return fmt.Errorf("load expenses: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TransactionsReport{}, err
	}

	totals, counts := report.Summarize(incomes, expenses)
	out := TransactionsReport{
		Transactions: report.Merge(incomes, expenses, report.MergeOptions{
			SortBy: sortBy,
			Limit:  q.Limit,
			Policy: s.policy,
			Now:    s.now(),
		}),
		Totals: totals,
		Counts: counts,
		Summaries: Summaries{
			ByCategory: report.ByCategory(incomes, expenses),
			ByDivision: report.ByDivision(incomes, expenses),
		},
		FiltersApplied: FiltersApplied{
			Type:      typ,
			Period:    string(q.Period),
			SortBy:    string(sortBy),
			Limit:     q.Limit,
			StartDate: q.Filter.From.String(),
			EndDate:   q.Filter.To.String(),
			Division:  string(q.Filter.Division),
			Category:  q.Filter.Category,
			Account:   q.Filter.Account,
		},
	}
	if q.Period != "" {
		all := make([]core.Entry, 0, len(incomes)+len(expenses))
		all = append(append(all, incomes...), expenses...)
		out.PeriodData = report.Bucket(all, q.Period)
	}
	return out, nil
}

func dashboardKey(owner string, p report.Period) string {
	return ownerPrefix(owner) + string(p)
}

func ownerPrefix(owner string) string {
	return "dashboard|" + owner + "|"
}

// InvalidateOwner drops every cached dashboard of owner.
func (s *ReportService) InvalidateOwner(owner string) {
	if s.cache != nil {
		s.cache.DeletePrefix(ownerPrefix(owner))
	}
}

// Dashboard summarises the owner's finances for the period window containing
// now, alongside the latest transactions, a monthly trend and lifetime counts.
func (s *ReportService) Dashboard(ctx context.Context, owner string, period string) (Dashboard, error) {
	if err := auth.CheckOwner(ctx, owner); err != nil {
		return Dashboard{}, err
	}
	p, ok := report.ParsePeriod(period)
	if !ok || (p != report.Weekly && p != report.Yearly) {
		p = report.Monthly
	}

	key := dashboardKey(owner, p)
	if s.cache != nil {
		if d, hit := s.cache.Get(key); hit {
			s.metrics.CacheLookup("dashboard", true)
			return s.refreshEditable(d), nil
		}
		s.metrics.CacheLookup("dashboard", false)
	}

	d, err := s.buildDashboard(ctx, owner, p)
	if err != nil {
		return Dashboard{}, err
	}
	if s.cache != nil {
		s.cache.Set(key, d)
	}
	return d, nil
}

// refreshEditable recomputes canEdit against the current clock. The cached
// slice is left untouched.
func (s *ReportService) refreshEditable(d Dashboard) Dashboard {
	now := s.now()
	recent := make([]report.Transaction, len(d.Recent))
	for i, tx := range d.Recent {
		tx.CanEdit = s.policy.CanEdit(tx.CreatedAt, now)
		recent[i] = tx
	}
	d.Recent = recent
	return d
}

func (s *ReportService) buildDashboard(ctx context.Context, owner string, p report.Period) (Dashboard, error) {
	now := s.now()
	window := report.DateRange(p, now)
	trendWindow := report.TrendRange(report.Monthly, trendPeriods, now)
	scope := window.Apply(core.EntryFilter{Owner: owner})

	var (
		periodIncomes, periodExpenses []core.Entry
		recentIncomes, recentExpenses []core.Entry
		trendEntries                  []core.Entry
		incomeCount, expenseCount     int
	)

	g, gctx := errgroup.WithContext(ctx)
	find := func(dst *[]core.Entry, f core.EntryFilter, what string) {
		g.Go(func() error {
			entries, err := s.store.FindEntries(gctx, f)
			if err != nil {
				return fmt.Errorf("load %s: %w", what, err)
			}
			*dst = entries
			return nil
		})
	}
	count := func(dst *int, kind core.Kind) {
		g.Go(func() error {
			n, err := s.store.CountEntries(gctx, owner, kind)
			if err != nil {
				return fmt.Errorf("count %s entries: %w", kind, err)
			}
			*dst = n
			return nil
		})
	}

	withKind := func(f core.EntryFilter, k core.Kind) core.EntryFilter {
		f.Kind = k
		return f
	}
	find(&periodIncomes, withKind(scope, core.KindIncome), "period incomes")
	find(&periodExpenses, withKind(scope, core.KindExpense), "period expenses")
	find(&recentIncomes, core.EntryFilter{Owner: owner, Kind: core.KindIncome, Limit: recentLimit}, "recent incomes")
	find(&recentExpenses, core.EntryFilter{Owner: owner, Kind: core.KindExpense, Limit: recentLimit}, "recent expenses")
	find(&trendEntries, trendWindow.Apply(core.EntryFilter{Owner: owner, Ascending: true}), "trend entries")
	count(&incomeCount, core.KindIncome)
	count(&expenseCount, core.KindExpense)

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	totals, counts := report.Summarize(periodIncomes, periodExpenses)
	return Dashboard{
		Owner:        owner,
		Period:       p,
		Range:        DashboardRange{Start: scope.From, End: scope.To},
		Summary:      totals,
		PeriodCounts: counts,
		ByCategory:   report.ByCategory(periodIncomes, periodExpenses),
		ByDivision:   report.ByDivision(periodIncomes, periodExpenses),
		Recent: report.Merge(recentIncomes, recentExpenses, report.MergeOptions{
			SortBy: report.SortDateDesc,
			Limit:  recentLimit,
			Policy: s.policy,
			Now:    now,
		}),
		MonthlyTrend: report.Trend(trendEntries, report.Monthly, trendPeriods, now),
		LifetimeCounts: report.Counts{
			Income:  incomeCount,
			Expense: expenseCount,
			Total:   incomeCount + expenseCount,
		},
		GeneratedAt: now,
	}, nil
}

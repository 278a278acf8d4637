package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const owner = "alice@example.com"

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustAccount(t *testing.T, repo *SQLiteRepository, name, balance string) core.Account {
	t.Helper()
	a, err := repo.InsertAccount(context.Background(), core.Account{
		Owner:       owner,
		AccountName: name,
		AccountType: core.AccountBank,
		Balance:     decimal.RequireFromString(balance),
		Currency:    core.DefaultCurrency,
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("InsertAccount(%s) error = %v", name, err)
	}
	return a
}

func balanceOf(t *testing.T, repo *SQLiteRepository, name string) decimal.Decimal {
	t.Helper()
	a, err := repo.GetAccountByName(context.Background(), owner, name)
	if err != nil {
		t.Fatalf("GetAccountByName(%s) error = %v", name, err)
	}
	return a.Balance
}

func newEntry(kind core.Kind, date, amount, account string) core.Entry {
	d, _ := core.ParseDate(date)
	return core.Entry{
		Kind:          kind,
		Owner:         owner,
		Source:        "Test",
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: "UPI",
		Date:          d,
		Time:          "10:00",
		Division:      core.DivisionPersonal,
		Category:      "General",
		Account:       account,
		CreatedAt:     time.Now(),
	}
}

func TestInsertEntryAdjustsBalance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustAccount(t, repo, "HDFC", "1000")

	tests := []struct {
		kind core.Kind
		want string
	}{
		{core.KindIncome, "1250.5"},
		{core.KindExpense, "1000"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			_, adj, err := repo.InsertEntry(ctx, newEntry(tt.kind, "2024-03-01", "250.50", "HDFC"))
			if err != nil {
				t.Fatalf("InsertEntry() error = %v", err)
			}
			if len(adj) != 1 || !adj[0].Applied || adj[0].Err != nil {
				t.Errorf("adjustments = %+v", adj)
			}
			if got := balanceOf(t, repo, "HDFC"); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("balance = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInsertEntryMissingAccountStillCommits(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e, adj, err := repo.InsertEntry(ctx, newEntry(core.KindExpense, "2024-03-01", "10", "Nowhere"))
	if err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}
	if len(adj) != 1 || adj[0].Applied || !errors.Is(adj[0].Err, core.ErrAccountNotFound) {
		t.Errorf("adjustments = %+v, want one unapplied ErrAccountNotFound", adj)
	}
	if _, err := repo.GetEntry(ctx, e.ID); err != nil {
		t.Errorf("entry should be persisted, GetEntry() error = %v", err)
	}
}

func TestDeleteEntryReversesBalance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustAccount(t, repo, "Cash", "500")

	for _, kind := range []core.Kind{core.KindIncome, core.KindExpense} {
		t.Run(string(kind), func(t *testing.T) {
			e, _, err := repo.InsertEntry(ctx, newEntry(kind, "2024-03-01", "120", "Cash"))
			if err != nil {
				t.Fatalf("InsertEntry() error = %v", err)
			}
			if _, _, err := repo.DeleteEntry(ctx, e.ID, kind, nil); err != nil {
				t.Fatalf("DeleteEntry() error = %v", err)
			}
			if got := balanceOf(t, repo, "Cash"); !got.Equal(decimal.NewFromInt(500)) {
				t.Errorf("balance after insert+delete = %s, want 500", got)
			}
			if _, err := repo.GetEntry(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("GetEntry() after delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDeleteEntryWrongKindIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e, _, err := repo.InsertEntry(ctx, newEntry(core.KindIncome, "2024-03-01", "1", "Cash"))
	if err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}
	if _, _, err := repo.DeleteEntry(ctx, e.ID, core.KindExpense, nil); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteEntry(wrong kind) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteEntryCheckAborts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustAccount(t, repo, "Cash", "0")

	e, _, err := repo.InsertEntry(ctx, newEntry(core.KindExpense, "2024-03-01", "40", "Cash"))
	if err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}
	_, _, err = repo.DeleteEntry(ctx, e.ID, core.KindExpense, func(core.Entry) error {
		return core.ErrEditWindowExpired
	})
	if !errors.Is(err, core.ErrEditWindowExpired) {
		t.Fatalf("DeleteEntry() error = %v, want ErrEditWindowExpired", err)
	}
	if _, err := repo.GetEntry(ctx, e.ID); err != nil {
		t.Errorf("entry should survive a rejected delete: %v", err)
	}
	if got := balanceOf(t, repo, "Cash"); !got.Equal(decimal.NewFromInt(-40)) {
		t.Errorf("balance = %s, want -40", got)
	}
}

func TestInsertEntryRejectsOverflowingCents(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustAccount(t, repo, "Cash", "100")

	for _, amount := range []string{"184467440737095516.17", "92233720368547758.08"} {
		_, _, err := repo.InsertEntry(ctx, newEntry(core.KindIncome, "2024-03-01", amount, "Cash"))
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("InsertEntry(%s) error = %v, want ErrInvalidAmount", amount, err)
		}
	}
	if got := balanceOf(t, repo, "Cash"); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Cash = %s, want 100", got)
	}

	e, _, err := repo.InsertEntry(ctx, newEntry(core.KindIncome, "2024-03-01", "1", "Cash"))
	if err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}
	_, _, err = repo.UpdateEntry(ctx, e.ID, core.KindIncome, func(x *core.Entry) error {
		x.Amount = decimal.RequireFromString("184467440737095516.17")
		return nil
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("UpdateEntry() error = %v, want ErrInvalidAmount", err)
	}
	if got := balanceOf(t, repo, "Cash"); !got.Equal(decimal.NewFromInt(101)) {
		t.Errorf("Cash = %s, want 101", got)
	}
}

func TestUpdateEntryMovesBalance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustAccount(t, repo, "Cash", "100")
	mustAccount(t, repo, "Card", "100")

	e, _, err := repo.InsertEntry(ctx, newEntry(core.KindExpense, "2024-03-01", "30", "Cash"))
	if err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	updated, adj, err := repo.UpdateEntry(ctx, e.ID, core.KindExpense, func(x *core.Entry) error {
		x.Account = "Card"
		x.Amount = decimal.NewFromInt(50)
		x.Owner = "mallory@example.com"
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	if updated.Owner != owner {
		t.Errorf("owner changed to %q", updated.Owner)
	}
	if len(adj) != 2 {
		t.Errorf("adjustments = %+v, want reverse and apply", adj)
	}
	if got := balanceOf(t, repo, "Cash"); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Cash = %s, want 100", got)
	}
	if got := balanceOf(t, repo, "Card"); !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Card = %s, want 50", got)
	}
}

func TestUpdateEntryWithoutLedgerChange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustAccount(t, repo, "Cash", "0")

	e, _, err := repo.InsertEntry(ctx, newEntry(core.KindIncome, "2024-03-01", "30", "Cash"))
	if err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}
	_, adj, err := repo.UpdateEntry(ctx, e.ID, core.KindIncome, func(x *core.Entry) error {
		x.Notes = "edited"
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	if len(adj) != 0 {
		t.Errorf("adjustments = %+v, want none", adj)
	}
	got, _ := repo.GetEntry(ctx, e.ID)
	if got.Notes != "edited" {
		t.Errorf("Notes = %q, want edited", got.Notes)
	}
}

func TestTransferLedger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustAccount(t, repo, "Savings", "1000")
	mustAccount(t, repo, "Wallet", "0")

	tr := core.Transfer{
		Owner:       owner,
		FromAccount: "Savings",
		ToAccount:   "Wallet",
		Amount:      decimal.NewFromInt(200),
		Date:        core.NewDate(2024, 3, 1),
		Time:        "09:00",
		Division:    core.DivisionPersonal,
	}
	e, adj, err := repo.InsertEntry(ctx, tr.Entry())
	if err != nil {
		t.Fatalf("InsertEntry(transfer) error = %v", err)
	}
	if len(adj) != 2 || !adj[0].Applied || !adj[1].Applied {
		t.Errorf("adjustments = %+v", adj)
	}
	if got := balanceOf(t, repo, "Savings"); !got.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Savings = %s, want 800", got)
	}
	if got := balanceOf(t, repo, "Wallet"); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Wallet = %s, want 200", got)
	}

	if _, _, err := repo.DeleteEntry(ctx, e.ID, core.KindExpense, nil); err != nil {
		t.Fatalf("DeleteEntry(transfer) error = %v", err)
	}
	if got := balanceOf(t, repo, "Savings"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Savings after delete = %s, want 1000", got)
	}
	if got := balanceOf(t, repo, "Wallet"); !got.Equal(decimal.Zero) {
		t.Errorf("Wallet after delete = %s, want 0", got)
	}
}

func TestTransferMissingDestinationAppliesNeither(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mustAccount(t, repo, "Savings", "1000")

	tr := core.Transfer{Owner: owner, FromAccount: "Savings", ToAccount: "Ghost", Amount: decimal.NewFromInt(5), Date: core.NewDate(2024, 3, 1), Time: "09:00", Division: core.DivisionPersonal}
	_, adj, err := repo.InsertEntry(ctx, tr.Entry())
	if err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}
	if adj[0].Applied || adj[1].Applied || !errors.Is(adj[1].Err, core.ErrAccountNotFound) {
		t.Errorf("adjustments = %+v", adj)
	}
	if got := balanceOf(t, repo, "Savings"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Savings = %s, want untouched 1000", got)
	}
}

func TestFindEntriesFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	seed := []core.Entry{
		newEntry(core.KindIncome, "2024-01-10", "100", "Cash"),
		newEntry(core.KindIncome, "2024-02-10", "200", "Bank"),
		newEntry(core.KindExpense, "2024-02-11", "50", "Cash"),
		newEntry(core.KindExpense, "2024-03-01", "25", "Cash"),
	}
	seed[3].Division = core.DivisionOffice
	seed[3].Category = "Travel"
	for _, e := range seed {
		if _, _, err := repo.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry() error = %v", err)
		}
	}
	other := newEntry(core.KindIncome, "2024-02-10", "999", "Cash")
	other.Owner = "bob@example.com"
	if _, _, err := repo.InsertEntry(ctx, other); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	tests := []struct {
		name   string
		filter core.EntryFilter
		want   int
	}{
		{"owner only", core.EntryFilter{Owner: owner}, 4},
		{"kind", core.EntryFilter{Owner: owner, Kind: core.KindIncome}, 2},
		{"inclusive range", core.EntryFilter{Owner: owner, From: core.NewDate(2024, 2, 10), To: core.NewDate(2024, 2, 11)}, 2},
		{"division", core.EntryFilter{Owner: owner, Division: core.DivisionOffice}, 1},
		{"category", core.EntryFilter{Owner: owner, Category: "Travel"}, 1},
		{"account", core.EntryFilter{Owner: owner, Account: "Cash"}, 3},
		{"combined", core.EntryFilter{Owner: owner, Kind: core.KindExpense, Account: "Cash", From: core.NewDate(2024, 3, 1)}, 1},
		{"limit", core.EntryFilter{Owner: owner, Limit: 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindEntries(ctx, tt.filter)
			if err != nil {
				t.Fatalf("FindEntries() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}

	desc, _ := repo.FindEntries(ctx, core.EntryFilter{Owner: owner})
	if desc[0].Date.String() != "2024-03-01" {
		t.Errorf("default order first = %s, want newest", desc[0].Date)
	}
	asc, _ := repo.FindEntries(ctx, core.EntryFilter{Owner: owner, Ascending: true})
	if asc[0].Date.String() != "2024-01-10" {
		t.Errorf("ascending first = %s, want oldest", asc[0].Date)
	}

	sum, err := repo.SumEntries(ctx, core.EntryFilter{Owner: owner, Kind: core.KindIncome})
	if err != nil || !sum.Equal(decimal.NewFromInt(300)) {
		t.Errorf("SumEntries() = %s, %v; want 300", sum, err)
	}
	n, err := repo.CountEntries(ctx, owner, core.KindExpense)
	if err != nil || n != 2 {
		t.Errorf("CountEntries() = %d, %v; want 2", n, err)
	}
}

func TestEntryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := newEntry(core.KindExpense, "2024-03-01", "12.34", "Cash")
	in.Notes = "lunch"
	saved, _, err := repo.InsertEntry(ctx, in)
	if err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}
	got, err := repo.GetEntry(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if !got.Amount.Equal(in.Amount) || got.Notes != "lunch" || got.Date.String() != "2024-03-01" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, saved.CreatedAt)
	}
}

func TestAccountsCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := mustAccount(t, repo, "HDFC", "10")

	if _, err := repo.InsertAccount(ctx, core.Account{Owner: owner, AccountName: "hdfc", AccountType: core.AccountBank, Currency: "INR"}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate InsertAccount() error = %v, want ErrConflict", err)
	}

	name := "HDFC Salary"
	inactive := false
	updated, err := repo.UpdateAccount(ctx, a.ID, core.AccountPatch{AccountName: &name, IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	if updated.AccountName != name || updated.IsActive || !updated.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := repo.UpdateAccount(ctx, "missing", core.AccountPatch{}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateAccount(missing) error = %v, want ErrNotFound", err)
	}

	list, err := repo.ListAccounts(ctx, owner)
	if err != nil || len(list) != 1 {
		t.Errorf("ListAccounts() = %d accounts, %v", len(list), err)
	}
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	seed := []core.Category{
		{Owner: owner, Name: "Salary", Type: core.CategoryIncome, Division: core.DivisionOffice, IsActive: true},
		{Owner: owner, Name: "Food", Type: core.CategoryExpense, Division: core.DivisionPersonal, IsActive: true},
		{Owner: owner, Name: "Misc", Type: core.CategoryBoth, Division: core.DivisionPersonal, IsActive: true},
	}
	var food core.Category
	for _, c := range seed {
		saved, err := repo.InsertCategory(ctx, c)
		if err != nil {
			t.Fatalf("InsertCategory(%s) error = %v", c.Name, err)
		}
		if c.Name == "Food" {
			food = saved
		}
	}
	if _, err := repo.InsertCategory(ctx, seed[1]); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate InsertCategory() error = %v, want ErrConflict", err)
	}

	expense, err := repo.ListCategories(ctx, owner, core.CategoryExpense, "")
	if err != nil || len(expense) != 2 {
		t.Errorf("ListCategories(Expense) = %d, %v; want Food and Misc", len(expense), err)
	}
	office, _ := repo.ListCategories(ctx, owner, "", core.DivisionOffice)
	if len(office) != 1 || office[0].Name != "Salary" {
		t.Errorf("ListCategories(Office) = %+v", office)
	}

	if err := repo.DeactivateCategory(ctx, food.ID); err != nil {
		t.Fatalf("DeactivateCategory() error = %v", err)
	}
	all, _ := repo.ListCategories(ctx, owner, "", "")
	if len(all) != 2 {
		t.Errorf("active categories = %d, want 2", len(all))
	}
	if err := repo.DeactivateCategory(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeactivateCategory(missing) error = %v, want ErrNotFound", err)
	}
}

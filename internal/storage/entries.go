package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const entryColumns = `id, kind, owner, source, amount_cents, payment_method, date, time, notes,
	division, category, account, is_transfer, transfer_to, transfer_from, created_at`

// EntryMutator edits a loaded entry in place before it is written back.
// Returning an error aborts the update and leaves the row untouched.
type EntryMutator func(e *core.Entry) error

// EntryCheck inspects an entry before it is deleted. Returning an error aborts the delete.
type EntryCheck func(e core.Entry) error

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (core.Entry, error) {
	var (
		e          core.Entry
		kind       string
		cents      int64
		date       string
		division   string
		isTransfer int
		createdAt  int64
	)
	if err := s.Scan(&e.ID, &kind, &e.Owner, &e.Source, &cents, &e.PaymentMethod, &date, &e.Time,
		&e.Notes, &division, &e.Category, &e.Account, &isTransfer, &e.TransferTo, &e.TransferFrom,
		&createdAt); err != nil {
		return core.Entry{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	e.Kind = core.Kind(kind)
	e.Amount = core.FromCents(cents)
	e.Date = d
	e.Division = core.Division(division)
	e.IsTransfer = isTransfer != 0
	e.CreatedAt = fromUnixNano(createdAt)
	return e, nil
}

// entryWhere renders the owner-scoped filter as an AND-combined clause.
func entryWhere(f core.EntryFilter) (string, []any) {
	clauses := []string{"owner = ?"}
	args := []any{f.Owner}
	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.Division != "" {
		clauses = append(clauses, "division = ?")
		args = append(args, string(f.Division))
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.Account != "" {
		clauses = append(clauses, "account = ?")
		args = append(args, f.Account)
	}
	return strings.Join(clauses, " AND "), args
}

// FindEntries lists the owner's entries matching f, newest first unless f.Ascending.
func (r *SQLiteRepository) FindEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error) {
	where, args := entryWhere(f)
	order := "date DESC, time DESC, created_at DESC"
	if f.Ascending {
		order = "date ASC, time ASC, created_at ASC"
	}
	query := "SELECT " + entryColumns + " FROM entries WHERE " + where + " ORDER BY " + order
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []core.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// SumEntries totals the amounts matching f. Limit is ignored.
func (r *SQLiteRepository) SumEntries(ctx context.Context, f core.EntryFilter) (decimal.Decimal, error) {
	where, args := entryWhere(f)
	var cents int64
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(amount_cents), 0) FROM entries WHERE "+where, args...).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum entries: %w", err)
	}
	return core.FromCents(cents), nil
}

// CountEntries counts every entry of kind ever recorded by owner.
func (r *SQLiteRepository) CountEntries(ctx context.Context, owner string, kind core.Kind) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries WHERE owner = ? AND kind = ?", owner, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func getEntryForKind(ctx context.Context, tx *sql.Tx, id string, kind core.Kind) (core.Entry, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ? AND kind = ?", id, string(kind))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("load entry: %w", err)
	}
	return e, nil
}

// InsertEntry stores e and applies its balance effect in the same transaction.
// Transfer entries move the amount from Account to TransferTo. Ledger failures
// are reported in the returned adjustments and never fail the insert.
func (r *SQLiteRepository) InsertEntry(ctx context.Context, e core.Entry) (core.Entry, []Adjustment, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = fromUnixNano(unixNano(e.CreatedAt))

	cents, err := core.CentsOf(e.Amount)
	if err != nil {
		return core.Entry{}, nil, fmt.Errorf("insert entry: %w", err)
	}

	var adjustments []Adjustment
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO entries (`+entryColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, string(e.Kind), e.Owner, e.Source, cents, e.PaymentMethod,
			e.Date.String(), e.Time, e.Notes, string(e.Division), e.Category, e.Account,
			boolToInt(e.IsTransfer), e.TransferTo, e.TransferFrom, unixNano(e.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return core.ErrConflict
			}
			return fmt.Errorf("insert entry: %w", err)
		}

		l := newLedger(tx, e.Owner)
		adjustments = l.apply(ctx, legsFor(e))
		return nil
	})
	if err != nil {
		return core.Entry{}, nil, err
	}

	slog.DebugContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"kind", e.Kind,
		"owner", e.Owner,
		"amount_cents", cents)
	return e, adjustments, nil
}

// UpdateEntry loads the entry of the given kind, lets mutate edit it and writes
// it back. When the balance effect changes, the old effect is reversed and the
// new one applied. ID, owner, kind and creation time are immutable.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, id string, kind core.Kind, mutate EntryMutator) (core.Entry, []Adjustment, error) {
	var (
		updated     core.Entry
		adjustments []Adjustment
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getEntryForKind(ctx, tx, id, kind)
		if err != nil {
			return err
		}

		updated = current
		if err := mutate(&updated); err != nil {
			return err
		}
		updated.ID = current.ID
		updated.Owner = current.Owner
		updated.Kind = current.Kind
		updated.CreatedAt = current.CreatedAt

		cents, err := core.CentsOf(updated.Amount)
		if err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE entries SET source = ?, amount_cents = ?, payment_method = ?,
			date = ?, time = ?, notes = ?, division = ?, category = ?, account = ?, transfer_to = ?, transfer_from = ?
			WHERE id = ?`,
			updated.Source, cents, updated.PaymentMethod, updated.Date.String(),
			updated.Time, updated.Notes, string(updated.Division), updated.Category, updated.Account,
			updated.TransferTo, updated.TransferFrom, updated.ID)
		if err != nil {
			return fmt.Errorf("update entry: %w", err)
		}

		oldLegs, newLegs := legsFor(current), legsFor(updated)
		if !sameLegs(oldLegs, newLegs) {
			l := newLedger(tx, current.Owner)
			adjustments = append(adjustments, l.apply(ctx, negate(oldLegs))...)
			adjustments = append(adjustments, l.apply(ctx, newLegs)...)
		}
		return nil
	})
	if err != nil {
		return core.Entry{}, nil, err
	}
	return updated, adjustments, nil
}

// DeleteEntry removes the entry of the given kind after check approves it and
// reverses its balance effect.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string, kind core.Kind, check EntryCheck) (core.Entry, []Adjustment, error) {
	var (
		deleted     core.Entry
		adjustments []Adjustment
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getEntryForKind(ctx, tx, id, kind)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(current); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}

		deleted = current
		l := newLedger(tx, current.Owner)
		adjustments = l.apply(ctx, negate(legsFor(current)))
		return nil
	})
	if err != nil {
		return core.Entry{}, nil, err
	}
	return deleted, adjustments, nil
}

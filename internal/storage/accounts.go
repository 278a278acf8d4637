package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const accountColumns = "id, owner, account_name, account_type, balance_cents, currency, is_active, created_at"

func scanAccount(s rowScanner) (core.Account, error) {
	var (
		a         core.Account
		typ       string
		cents     int64
		active    int
		createdAt int64
	)
	if err := s.Scan(&a.ID, &a.Owner, &a.AccountName, &typ, &cents, &a.Currency, &active, &createdAt); err != nil {
		return core.Account{}, err
	}
	a.AccountType = core.AccountType(typ)
	a.Balance = core.FromCents(cents)
	a.IsActive = active != 0
	a.CreatedAt = fromUnixNano(createdAt)
	return a, nil
}

// InsertAccount returns core.ErrConflict when the owner already has an account with that name.
func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = fromUnixNano(unixNano(a.CreatedAt))
	cents, err := core.CentsOf(a.Balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}

	_, err = r.db.ExecContext(ctx, "INSERT INTO accounts ("+accountColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.Owner, a.AccountName, string(a.AccountType), cents, a.Currency,
		boolToInt(a.IsActive), unixNano(a.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Account{}, fmt.Errorf("account %q: %w", a.AccountName, core.ErrConflict)
		}
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE owner = ? ORDER BY account_name", owner)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// GetAccountByName matches the name case-insensitively.
func (r *SQLiteRepository) GetAccountByName(ctx context.Context, owner, name string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE owner = ? AND account_name = ?", owner, name)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// UpdateAccount applies a patch. Balance is only ever changed by the ledger,
// and a rename does not touch entries that reference the old name.
func (r *SQLiteRepository) UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) (core.Account, error) {
	var updated core.Account
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanAccount(tx.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}

		updated = current
		if patch.AccountName != nil {
			updated.AccountName = *patch.AccountName
		}
		if patch.AccountType != nil {
			updated.AccountType = *patch.AccountType
		}
		if patch.Currency != nil {
			updated.Currency = *patch.Currency
		}
		if patch.IsActive != nil {
			updated.IsActive = *patch.IsActive
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, "UPDATE accounts SET account_name = ?, account_type = ?, currency = ?, is_active = ? WHERE id = ?",
			updated.AccountName, string(updated.AccountType), updated.Currency, boolToInt(updated.IsActive), id)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("account %q: %w", updated.AccountName, core.ErrConflict)
			}
			return fmt.Errorf("update account: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return updated, nil
}

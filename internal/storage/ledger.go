package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Adjustment is the outcome of one balance change attempted on an account.
type Adjustment struct {
	Account string
	Delta   decimal.Decimal
	Applied bool
	Err     error
}

// leg is one signed balance change in minor units.
type leg struct {
	account string
	cents   int64
}

// legsFor returns the balance effect of an entry. A transfer debits its
// account and credits its destination; both legs succeed or fail together.
func legsFor(e core.Entry) []leg {
	cents := core.ToCents(e.Amount)
	if e.IsTransfer && e.TransferTo != "" {
		return []leg{
			{account: e.Account, cents: -cents},
			{account: e.TransferTo, cents: cents},
		}
	}
	return []leg{{account: e.Account, cents: e.Kind.Sign() * cents}}
}

func negate(legs []leg) []leg {
	out := make([]leg, len(legs))
	for i, l := range legs {
		out[i] = leg{account: l.account, cents: -l.cents}
	}
	return out
}

func sameLegs(a, b []leg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ledger applies balance changes inside an entry transaction. Each group of
// legs runs in its own savepoint so a failure rolls back only that group.
type ledger struct {
	tx    *sql.Tx
	owner string
	seq   int
}

func newLedger(tx *sql.Tx, owner string) *ledger {
	return &ledger{tx: tx, owner: owner}
}

func (l *ledger) apply(ctx context.Context, legs []leg) []Adjustment {
	out := make([]Adjustment, len(legs))
	for i, lg := range legs {
		out[i] = Adjustment{Account: lg.account, Delta: core.FromCents(lg.cents)}
	}

	l.seq++
	sp := fmt.Sprintf("ledger_%d", l.seq)
	if _, err := l.tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		for i := range out {
			out[i].Err = fmt.Errorf("open savepoint: %w", err)
		}
		return out
	}

	for i, lg := range legs {
		if err := l.adjust(ctx, lg); err != nil {
			out[i].Err = err
			if _, rbErr := l.tx.ExecContext(ctx, "ROLLBACK TO "+sp); rbErr != nil {
				out[i].Err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
			l.release(ctx, sp)
			for j := range out {
				out[j].Applied = false
			}
			return out
		}
		out[i].Applied = true
	}
	l.release(ctx, sp)
	return out
}

func (l *ledger) adjust(ctx context.Context, lg leg) error {
	res, err := l.tx.ExecContext(ctx,
		"UPDATE accounts SET balance_cents = balance_cents + ? WHERE owner = ? AND account_name = ?",
		lg.cents, l.owner, lg.account)
	if err != nil {
		return fmt.Errorf("adjust balance of %q: %w", lg.account, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance of %q: %w", lg.account, err)
	}
	if n == 0 {
		return fmt.Errorf("adjust balance of %q: %w", lg.account, core.ErrAccountNotFound)
	}
	return nil
}

func (l *ledger) release(ctx context.Context, sp string) {
	// RELEASE after ROLLBACK TO is still required to pop the savepoint.
	_, _ = l.tx.ExecContext(ctx, "RELEASE "+sp)
}

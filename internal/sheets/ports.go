package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound spreadsheet mirrors.
type (
	// EntryMirror keeps one spreadsheet row per entry, keyed by entry id.
	EntryMirror interface {
		// UpsertEntry writes the entry row, replacing an existing row with the same id.
		UpsertEntry(ctx context.Context, e core.Entry) (rowRef string, err error)
		// RemoveEntry clears the row of a deleted entry. Year selects the
		// yearly sheet; a missing row is not an error.
		RemoveEntry(ctx context.Context, id string, year int) error
	}
)

// Header is the column layout shared by every mirror.
var Header = []string{
	"ID", "Type", "Date", "Time", "Source", "Category", "Division",
	"Account", "Payment method", "Amount", "Notes",
}

// Row renders an entry in Header order. Expenses carry a negative amount.
func Row(e core.Entry) []string {
	signed := e.Amount
	if e.Kind == core.KindExpense {
		signed = signed.Neg()
	}
	return []string{
		e.ID,
		string(e.Kind),
		e.Date.String(),
		e.Time,
		e.Source,
		e.Category,
		string(e.Division),
		e.Account,
		e.PaymentMethod,
		signed.StringFixed(2),
		e.Notes,
	}
}

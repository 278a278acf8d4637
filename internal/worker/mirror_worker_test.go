package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets/memory"
)

type stubEntries struct {
	entries map[string]core.Entry
	err     error
}

func (s *stubEntries) GetEntry(_ context.Context, id string) (core.Entry, error) {
	if s.err != nil {
		return core.Entry{}, s.err
	}
	e, ok := s.entries[id]
	if !ok {
		return core.Entry{}, core.ErrNotFound
	}
	return e, nil
}

func sampleEntry() core.Entry {
	return core.Entry{
		ID:            "e1",
		Kind:          core.KindIncome,
		Owner:         "ana@example.com",
		Source:        "Salary",
		Amount:        decimal.NewFromInt(1500),
		PaymentMethod: "Bank",
		Date:          core.NewDate(2024, 5, 31),
		Time:          "09:00",
		Division:      core.DivisionOffice,
		Category:      "Salary",
		Account:       "Bank",
	}
}

func TestMirrorWorker_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	e := sampleEntry()
	store := &stubEntries{entries: map[string]core.Entry{e.ID: e}}
	mirror := memory.New()
	w := NewMirrorWorker(store, mirror)

	if err := w.HandleEntryEvent(ctx, amqp.NewEntryEvent(amqp.EventCreated, e)); err != nil {
		t.Fatalf("created: %v", err)
	}
	rows := mirror.Rows(2024)
	if len(rows) != 1 || rows[0][9] != "1500.00" {
		t.Fatalf("unexpected rows after create: %v", rows)
	}

	e.Amount = decimal.NewFromInt(1600)
	store.entries[e.ID] = e
	if err := w.HandleEntryEvent(ctx, amqp.NewEntryEvent(amqp.EventUpdated, e)); err != nil {
		t.Fatalf("updated: %v", err)
	}
	rows = mirror.Rows(2024)
	if len(rows) != 1 || rows[0][9] != "1600.00" {
		t.Fatalf("unexpected rows after update: %v", rows)
	}

	delete(store.entries, e.ID)
	if err := w.HandleEntryEvent(ctx, amqp.NewEntryEvent(amqp.EventDeleted, e)); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if rows := mirror.Rows(2024); len(rows) != 0 {
		t.Fatalf("row not removed: %v", rows)
	}
}

func TestMirrorWorker_MissingEntryIsAcked(t *testing.T) {
	w := NewMirrorWorker(&stubEntries{entries: map[string]core.Entry{}}, memory.New())
	ev := &amqp.EntryEvent{Type: amqp.EventCreated, EntryID: "gone", Timestamp: time.Now()}
	if err := w.HandleEntryEvent(context.Background(), ev); err != nil {
		t.Fatalf("expected missing entry to be skipped, got %v", err)
	}
}

func TestMirrorWorker_StorageErrorRequeues(t *testing.T) {
	w := NewMirrorWorker(&stubEntries{err: errors.New("disk I/O error")}, memory.New())
	ev := &amqp.EntryEvent{Type: amqp.EventUpdated, EntryID: "e1", Timestamp: time.Now()}
	if err := w.HandleEntryEvent(context.Background(), ev); err == nil {
		t.Fatal("expected storage error to be returned")
	}
}

func TestMirrorWorker_DeleteYear(t *testing.T) {
	ctx := context.Background()
	e := sampleEntry()
	mirror := memory.New()
	if _, err := mirror.UpsertEntry(ctx, e); err != nil {
		t.Fatal(err)
	}
	w := NewMirrorWorker(&stubEntries{}, mirror)

	// Without a date the event year is used, which misses the 2024 sheet.
	ev := &amqp.EntryEvent{Type: amqp.EventDeleted, EntryID: e.ID, Timestamp: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	if err := w.HandleEntryEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if len(mirror.Rows(2024)) != 1 {
		t.Fatal("row in another year should be untouched")
	}

	ev.Date = "2024-05-31"
	if err := w.HandleEntryEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if len(mirror.Rows(2024)) != 0 {
		t.Fatal("row should be removed using the entry date")
	}
}

func TestMirrorWorker_UnknownTypeIgnored(t *testing.T) {
	w := NewMirrorWorker(&stubEntries{}, memory.New())
	ev := &amqp.EntryEvent{Type: "archived", EntryID: "e1"}
	if err := w.HandleEntryEvent(context.Background(), ev); err != nil {
		t.Fatalf("unknown type should be acked, got %v", err)
	}
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// EntryGetter loads the committed state of an entry.
type EntryGetter interface {
	GetEntry(ctx context.Context, id string) (core.Entry, error)
}

// MirrorWorker copies committed entries to a spreadsheet mirror as their
// events arrive.
type MirrorWorker struct {
	entries EntryGetter
	mirror  sheets.EntryMirror
}

func NewMirrorWorker(entries EntryGetter, mirror sheets.EntryMirror) *MirrorWorker {
	return &MirrorWorker{entries: entries, mirror: mirror}
}

// HandleEntryEvent processes a single entry event. A returned error makes
// the consumer requeue the message.
func (w *MirrorWorker) HandleEntryEvent(ctx context.Context, ev *amqp.EntryEvent) error {
	slog.InfoContext(ctx, "Processing entry event",
		"type", ev.Type,
		"id", ev.EntryID,
		"owner", ev.Owner)

	switch ev.Type {
	case amqp.EventCreated, amqp.EventUpdated, amqp.EventTransferred:
		return w.upsert(ctx, ev)
	case amqp.EventDeleted:
		return w.remove(ctx, ev)
	default:
		slog.WarnContext(ctx, "Ignoring entry event of unknown type", "type", ev.Type, "id", ev.EntryID)
		return nil
	}
}

func (w *MirrorWorker) upsert(ctx context.Context, ev *amqp.EntryEvent) error {
	e, err := w.entries.GetEntry(ctx, ev.EntryID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before the event was consumed; the delete event clears the row.
		slog.InfoContext(ctx, "Entry no longer exists, skipping mirror", "id", ev.EntryID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	ref, err := w.mirror.UpsertEntry(ctx, e)
	if err != nil {
		return fmt.Errorf("mirror entry: %w", err)
	}
	slog.InfoContext(ctx, "Entry mirrored", "id", e.ID, "ref", ref)
	return nil
}

func (w *MirrorWorker) remove(ctx context.Context, ev *amqp.EntryEvent) error {
	year := ev.Timestamp.Year()
	if ev.Date != "" {
		d, err := core.ParseDate(ev.Date)
		if err != nil {
			slog.WarnContext(ctx, "Delete event with malformed date, using event year",
				"id", ev.EntryID, "date", ev.Date)
		} else {
			year = d.Year()
		}
	}

	if err := w.mirror.RemoveEntry(ctx, ev.EntryID, year); err != nil {
		return fmt.Errorf("remove mirrored entry: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored entry removed", "id", ev.EntryID, "year", year)
	return nil
}

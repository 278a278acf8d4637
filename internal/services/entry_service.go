package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

// EntryStore is the persistence the entry service depends on.
type EntryStore interface {
	FindEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error)
	GetEntry(ctx context.Context, id string) (core.Entry, error)
	InsertEntry(ctx context.Context, e core.Entry) (core.Entry, []storage.Adjustment, error)
	UpdateEntry(ctx context.Context, id string, kind core.Kind, mutate storage.EntryMutator) (core.Entry, []storage.Adjustment, error)
	DeleteEntry(ctx context.Context, id string, kind core.Kind, check storage.EntryCheck) (core.Entry, []storage.Adjustment, error)
}

// EventPublisher announces committed entry changes.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, ev *amqp.EntryEvent) error
}

// OwnerInvalidator drops cached read models of one owner.
type OwnerInvalidator interface {
	InvalidateOwner(owner string)
}

// EntryService orchestrates entry writes across SQLite, the balance ledger,
// the event broker and the dashboard cache. Only the SQLite write can fail a
// request; everything after it is logged.
type EntryService struct {
	store       EntryStore
	publisher   EventPublisher
	invalidator OwnerInvalidator
	metrics     *metrics.Metrics
	policy      core.EditPolicy
	now         func() time.Time
}

type EntryOption func(*EntryService)

func WithPublisher(p EventPublisher) EntryOption {
	return func(s *EntryService) { s.publisher = p }
}

func WithInvalidator(i OwnerInvalidator) EntryOption {
	return func(s *EntryService) { s.invalidator = i }
}

func WithEntryMetrics(m *metrics.Metrics) EntryOption {
	return func(s *EntryService) { s.metrics = m }
}

func WithEditPolicy(p core.EditPolicy) EntryOption {
	return func(s *EntryService) { s.policy = p }
}

func WithEntryClock(now func() time.Time) EntryOption {
	return func(s *EntryService) { s.now = now }
}

func NewEntryService(store EntryStore, opts ...EntryOption) *EntryService {
	s := &EntryService{
		store:  store,
		policy: core.NewEditPolicy(core.DefaultEditWindow),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy exposes the edit window so readers can flag editable entries.
func (s *EntryService) Policy() core.EditPolicy {
	return s.policy
}

// Create validates and stores a plain income or expense entry.
func (s *EntryService) Create(ctx context.Context, e core.Entry) (core.Entry, error) {
	e.ID = ""
	e.IsTransfer = false
	e.TransferTo = ""
	e.TransferFrom = ""
	e.Owner = strings.TrimSpace(e.Owner)
	e.ApplyDefaults()
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if err := auth.CheckOwner(ctx, e.Owner); err != nil {
		return core.Entry{}, err
	}
	e.CreatedAt = s.now()

	saved, adjustments, err := s.store.InsertEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save %s: %w", e.Kind, err)
	}

	s.afterWrite(ctx, saved, adjustments, amqp.EventCreated)
	return saved, nil
}

// Transfer records a transfer as one expense on the source account and moves
// the amount to the destination account.
func (s *EntryService) Transfer(ctx context.Context, t core.Transfer) (core.Entry, error) {
	t.Owner = strings.TrimSpace(t.Owner)
	if err := t.Validate(); err != nil {
		return core.Entry{}, err
	}
	if err := auth.CheckOwner(ctx, t.Owner); err != nil {
		return core.Entry{}, err
	}

	e := t.Entry()
	e.ApplyDefaults()
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	e.CreatedAt = s.now()

	saved, adjustments, err := s.store.InsertEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save transfer: %w", err)
	}

	s.afterWrite(ctx, saved, adjustments, amqp.EventTransferred)
	return saved, nil
}

// Update applies patch to the entry of the given kind. The edit window is
// checked against the stored creation time before anything is written.
func (s *EntryService) Update(ctx context.Context, kind core.Kind, id string, patch core.EntryPatch) (core.Entry, error) {
	now := s.now()
	updated, adjustments, err := s.store.UpdateEntry(ctx, id, kind, func(e *core.Entry) error {
		if err := s.guard(ctx, *e, now); err != nil {
			return err
		}
		patch.Apply(e)
		e.ApplyDefaults()
		return e.Validate()
	})
	if err != nil {
		return core.Entry{}, s.wrap("update", kind, err)
	}

	s.afterWrite(ctx, updated, adjustments, amqp.EventUpdated)
	return updated, nil
}

// Delete removes the entry of the given kind and reverses its balance effect.
func (s *EntryService) Delete(ctx context.Context, kind core.Kind, id string) (core.Entry, error) {
	now := s.now()
	deleted, adjustments, err := s.store.DeleteEntry(ctx, id, kind, func(e core.Entry) error {
		return s.guard(ctx, e, now)
	})
	if err != nil {
		return core.Entry{}, s.wrap("delete", kind, err)
	}

	s.afterWrite(ctx, deleted, adjustments, amqp.EventDeleted)
	return deleted, nil
}

// guard hides other owners' entries and enforces the edit window.
func (s *EntryService) guard(ctx context.Context, e core.Entry, now time.Time) error {
	if err := auth.CheckOwner(ctx, e.Owner); err != nil {
		return core.ErrNotFound
	}
	return s.policy.Check(e, now)
}

func (s *EntryService) wrap(op string, kind core.Kind, err error) error {
	var verr *core.ValidationError
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrEditWindowExpired) || errors.As(err, &verr) {
		return err
	}
	return fmt.Errorf("%s %s: %w", op, kind, err)
}

// List returns the owner's entries matching f, newest first.
func (s *EntryService) List(ctx context.Context, f core.EntryFilter) ([]core.Entry, error) {
	if err := auth.CheckOwner(ctx, f.Owner); err != nil {
		return nil, err
	}
	entries, err := s.store.FindEntries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// ListByPeriod groups the matching entries into period buckets.
func (s *EntryService) ListByPeriod(ctx context.Context, f core.EntryFilter, p report.Period) ([]report.PeriodBucket, error) {
	f.Ascending = true
	f.Limit = 0
	entries, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return report.Bucket(entries, p), nil
}

// Get returns one entry; entries of other owners are reported as missing.
func (s *EntryService) Get(ctx context.Context, id string) (core.Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	if err := auth.CheckOwner(ctx, e.Owner); err != nil {
		return core.Entry{}, core.ErrNotFound
	}
	return e, nil
}

func (s *EntryService) afterWrite(ctx context.Context, e core.Entry, adjustments []storage.Adjustment, typ amqp.EventType) {
	s.recordAdjustments(ctx, e, adjustments)
	s.metrics.EntryWritten(string(e.Kind), string(typ))

	if s.invalidator != nil {
		s.invalidator.InvalidateOwner(e.Owner)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping entry event", "entry_id", e.ID)
		return
	}
	if err := s.publisher.PublishEntryEvent(ctx, amqp.NewEntryEvent(typ, e)); err != nil {
		s.metrics.EventPublished(false)
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"type", typ,
			"entry_id", e.ID,
			"error", err)
		return
	}
	s.metrics.EventPublished(true)
}

// recordAdjustments logs ledger side effects. They never fail the request.
func (s *EntryService) recordAdjustments(ctx context.Context, e core.Entry, adjustments []storage.Adjustment) {
	for _, a := range adjustments {
		switch {
		case a.Applied:
			s.metrics.LedgerAdjustment("applied")
			slog.DebugContext(ctx, "Account balance adjusted",
				"entry_id", e.ID,
				"account", a.Account,
				"delta", a.Delta.String())
		case a.Err == nil || errors.Is(a.Err, core.ErrAccountNotFound):
			s.metrics.LedgerAdjustment("skipped")
			slog.WarnContext(ctx, "Balance adjustment skipped",
				"entry_id", e.ID,
				"owner", e.Owner,
				"account", a.Account,
				"delta", a.Delta.String(),
				"error", a.Err)
		default:
			s.metrics.LedgerAdjustment("failed")
			slog.ErrorContext(ctx, "Balance adjustment failed",
				"entry_id", e.ID,
				"owner", e.Owner,
				"account", a.Account,
				"delta", a.Delta.String(),
				"error", a.Err)
		}
	}
}

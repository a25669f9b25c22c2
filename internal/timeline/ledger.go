package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hiring-pipeline/internal/applications"
)

// Append is the pure core of the ledger. It returns a copy of app with entry
// added and leaves app untouched.
//
// A zero entry timestamp must be stamped by the caller before Append.
func Append(app applications.Application, entry applications.TimelineEntry) (applications.Application, error) {
	if !entry.Step.Valid() {
		return app, fmt.Errorf("%w: unknown step %q", ErrInvalidEntry, entry.Step)
	}
	if entry.Status == "" {
		entry.Status = applications.EntryCompleted
	}
	if !entry.Status.Valid() {
		return app, fmt.Errorf("%w: unknown entry status %q", ErrInvalidEntry, entry.Status)
	}
	if !entry.PerformedBy.Valid() {
		return app, fmt.Errorf("%w: unknown actor role %q", ErrInvalidEntry, entry.PerformedBy)
	}
	if entry.Timestamp.IsZero() {
		return app, fmt.Errorf("%w: timestamp required", ErrInvalidEntry)
	}
	if last, ok := app.LastEntry(); ok && entry.Timestamp.Before(last.Timestamp) {
		return app, &OrderingError{ApplicationID: app.ID, Last: last.Timestamp, Got: entry.Timestamp}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	out := app.Clone()
	out.Timeline = append(out.Timeline, entry)
	return out, nil
}

// Ledger persists timeline appends through the application store.
// It has no update or delete operation.
type Ledger struct {
	repo  applications.Repository
	clock func() time.Time
}

func NewLedger(repo applications.Repository) *Ledger {
	return &Ledger{repo: repo, clock: time.Now}
}

// WithClock overrides the timestamp source. Intended for tests.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	if clock != nil {
		l.clock = clock
	}
	return l
}

// Now returns the ledger clock in UTC.
func (l *Ledger) Now() time.Time { return l.clock().UTC() }

// Append adds a note-style entry to the application's timeline and persists it.
// Entries that change the application status must go through Record.
func (l *Ledger) Append(ctx context.Context, applicationID string, entry applications.TimelineEntry) (applications.Application, error) {
	if entry.ChangesStatus() {
		return applications.Application{}, fmt.Errorf("%w: status change to %q needs Record", ErrInvalidEntry, entry.ToStatus)
	}
	return l.Record(ctx, applicationID, entry, nil)
}

// Record appends entry and applies mutate to the application, then persists both in one write.
// Nothing is written if the append or the mutation fails.
//
// A zero timestamp is stamped from the ledger clock, never earlier than the last
// entry. Only a timestamp supplied by the caller can fail with *OrderingError.
func (l *Ledger) Record(ctx context.Context, applicationID string, entry applications.TimelineEntry, mutate func(*applications.Application) error) (applications.Application, error) {
	app, err := l.repo.Get(ctx, applicationID)
	if err != nil {
		return applications.Application{}, err
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.stamp(app)
	} else {
		entry.Timestamp = entry.Timestamp.UTC()
	}

	next, err := Append(app, entry)
	if err != nil {
		return app, err
	}
	if mutate != nil {
		if err := mutate(&next); err != nil {
			return app, err
		}
	}
	next.UpdatedAt = entry.Timestamp

	if err := l.repo.Put(ctx, next); err != nil {
		return app, err
	}
	return next, nil
}

func (l *Ledger) stamp(app applications.Application) time.Time {
	now := l.Now()
	if last, ok := app.LastEntry(); ok && now.Before(last.Timestamp) {
		return last.Timestamp.UTC()
	}
	return now
}

// History returns the application's timeline in chronological order.
// Each call returns a fresh slice.
func (l *Ledger) History(ctx context.Context, applicationID string) ([]applications.TimelineEntry, error) {
	app, err := l.repo.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	out := make([]applications.TimelineEntry, len(app.Timeline))
	copy(out, app.Timeline)
	return out, nil
}

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, f Filter) ([]Event, error)
}

// Service logs internal audit information.
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// WithClock overrides the timestamp source. Intended for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ApplicationID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// List returns events for internal ops tooling.
func (s *Service) List(ctx context.Context, f Filter) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.List(ctx, f)
}

// LogConflictResolved records that a screening call's fields disagreed and were corrected.
func (s *Service) LogConflictResolved(ctx context.Context, applicationID, callID, conflictType string, metadata map[string]any) error {
	return s.Append(ctx, Event{
		Type:            EventTypeConflictResolved,
		ApplicationID:   applicationID,
		ScreeningCallID: callID,
		ActorRole:       "system",
		Message:         "screening conflict resolved: " + conflictType,
		Metadata:        metadata,
	})
}

// LogTransitionRejected records a refused status change.
func (s *Service) LogTransitionRejected(ctx context.Context, applicationID, actorUserID, actorRole, reason string, metadata map[string]any) error {
	return s.Append(ctx, Event{
		Type:          EventTypeTransitionRejected,
		ApplicationID: applicationID,
		ActorUserID:   actorUserID,
		ActorRole:     actorRole,
		Message:       reason,
		Metadata:      metadata,
	})
}

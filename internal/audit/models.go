package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - application_id is required; every event belongs to one application.
// - Writing an event is best-effort; workflow operations never fail on audit errors.
//
// Storage (Postgres): table audit_events, INSERT-only.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	ApplicationID   string `json:"application_id" db:"application_id"`
	ScreeningCallID string `json:"screening_call_id,omitempty" db:"screening_call_id"`

	// ActorUserID is empty for system-initiated events.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is stored as JSONB.
	Metadata map[string]any `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeConflictResolved   EventType = "screening_conflict_resolved"
	EventTypeTransitionRejected EventType = "transition_rejected"
)

// Filter narrows List queries. Zero fields match everything.
type Filter struct {
	ApplicationID string
	Type          EventType
}

func (f Filter) Match(e Event) bool {
	if f.ApplicationID != "" && e.ApplicationID != f.ApplicationID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	return true
}

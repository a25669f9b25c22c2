package workflow

import (
	"errors"
	"fmt"

	"hiring-pipeline/internal/applications"
	"hiring-pipeline/internal/rbac"
)

var (
	ErrNotFound          = errors.New("workflow: not found")
	ErrInvalidArgument   = errors.New("workflow: invalid argument")
	ErrInvalidTransition = errors.New("workflow: invalid transition")
	ErrNoteRequired      = errors.New("workflow: note required")
	ErrScreeningLimit    = errors.New("workflow: screening limit reached")
	ErrScreeningActive   = errors.New("workflow: screening call already active")
)

// TransitionError carries the rejected (from, to, role) so callers can explain the refusal.
// Callers must re-fetch the application before retrying; the rejection usually means
// their view of its status is stale.
type TransitionError struct {
	From   applications.Status
	To     applications.Status
	Role   rbac.Role
	Reason string

	noteMissing bool
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("workflow: transition %s -> %s by %s rejected: %s", e.From, e.To, e.Role, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	if e.noteMissing {
		return target == ErrNoteRequired
	}
	return target == ErrInvalidTransition
}

func notFound(err error, kind, id string) error {
	return fmt.Errorf("%w: %s %s: %w", ErrNotFound, kind, id, err)
}

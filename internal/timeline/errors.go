package timeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrOrderingViolation = errors.New("timeline: entry older than last entry")
	ErrInvalidEntry      = errors.New("timeline: invalid entry")
)

// OrderingError reports an append whose timestamp precedes the last entry.
type OrderingError struct {
	ApplicationID string
	Last          time.Time
	Got           time.Time
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("timeline: application %s: entry at %s precedes last entry at %s",
		e.ApplicationID, e.Got.Format(time.RFC3339Nano), e.Last.Format(time.RFC3339Nano))
}

func (e *OrderingError) Is(target error) bool { return target == ErrOrderingViolation }

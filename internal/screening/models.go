package screening

import (
	"strings"
	"time"
)

// Call is one attempted AI voice screening session for an application.
//
// The vendor integration feeds this record asynchronously and out of order, so
// its fields may disagree (a "failed" call that still produced a transcript).
// Downstream processing must only see a record that went through Resolver.
//
// Once ProcessedAt is set the record has been consumed by the workflow and is immutable.
type Call struct {
	ID            string `json:"id" db:"id"`
	ApplicationID string `json:"application_id" db:"application_id"`

	Status Status `json:"status" db:"status"`

	Transcript   *string `json:"transcript,omitempty" db:"transcript"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	Summary      Summary `json:"summary,omitempty" db:"summary"`

	// Attempt is 1 for the first call scheduled for an application.
	Attempt int `json:"attempt" db:"attempt"`

	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Processed reports whether the workflow already consumed this call.
func (c Call) Processed() bool { return c.ProcessedAt != nil }

// HasError reports whether a non-blank error message is present.
func (c Call) HasError() bool {
	return c.ErrorMessage != nil && strings.TrimSpace(*c.ErrorMessage) != ""
}

// Summary is the vendor's structured call summary. Its shape is vendor-defined.
type Summary map[string]any

func (s Summary) clone() Summary {
	if s == nil {
		return nil
	}
	out := make(Summary, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Status is the screening call lifecycle.
//
// Some values share spelling with applications.Status but the types do not mix:
// a call's screening_completed is not the application's.
type Status string

const (
	StatusScheduled  Status = "screening_scheduled"
	StatusInProgress Status = "screening_in_progress"
	StatusCompleted  Status = "screening_completed"
	// StatusFailed is stored as "rejected": the call failed, the candidate was not rejected.
	StatusFailed Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Filter narrows List queries. Zero fields match everything.
type Filter struct {
	ApplicationID string
	Status        Status
}

func (f Filter) Match(c Call) bool {
	if f.ApplicationID != "" && c.ApplicationID != f.ApplicationID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}

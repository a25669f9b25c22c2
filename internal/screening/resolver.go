package screening

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinTranscriptChars is the transcript length a call must exceed to be substantive.
const DefaultMinTranscriptChars = 20

// ConflictType classifies how a call's fields disagree.
type ConflictType string

const (
	ConflictNone                       ConflictType = "none"
	ConflictErrorWithTranscript        ConflictType = "error_with_transcript"
	ConflictFailedStatusWithTranscript ConflictType = "failed_status_with_transcript"
	ConflictSuccessStatusWithError     ConflictType = "success_status_with_error"
)

// Resolution is the outcome of resolving one call snapshot.
type Resolution struct {
	HasConflict  bool         `json:"has_conflict"`
	ConflictType ConflictType `json:"conflict_type"`
	Resolved     Call         `json:"resolved"`
	// ShouldProcess gates summary generation and application advancement:
	// true whenever the resolved call has a substantive transcript.
	ShouldProcess bool `json:"should_process"`
}

// Resolver decides whether a call tells a consistent story and corrects it if not.
// It is pure: no storage, no clock, same input gives the same output.
type Resolver struct {
	MinTranscriptChars int
}

func NewResolver(minTranscriptChars int) Resolver {
	if minTranscriptChars <= 0 {
		minTranscriptChars = DefaultMinTranscriptChars
	}
	return Resolver{MinTranscriptChars: minTranscriptChars}
}

// Substantive reports whether the transcript is long enough to be usable.
func (r Resolver) Substantive(transcript *string) bool {
	if transcript == nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(*transcript)) > r.MinTranscriptChars
}

// Resolve applies the conflict rules in order; the first match wins.
//
//  1. failed status with a substantive transcript: status becomes completed, error cleared.
//  2. error present with a substantive transcript: error cleared, transcript kept.
//  3. completed status with an error: error cleared.
//  4. otherwise no conflict.
//
// A failed call carrying an error is matched by rule 1 rather than 2 so both
// corrections apply. An error with a short transcript matches nothing and stays a
// genuine failure. No transcript and no error means the call is still pending.
func (r Resolver) Resolve(c Call) Resolution {
	out := c
	substantive := r.Substantive(c.Transcript)

	res := Resolution{ConflictType: ConflictNone}
	switch {
	case substantive && c.Status == StatusFailed:
		res.HasConflict = true
		res.ConflictType = ConflictFailedStatusWithTranscript
		out.Status = StatusCompleted
		out.ErrorMessage = nil
	case substantive && c.HasError():
		res.HasConflict = true
		res.ConflictType = ConflictErrorWithTranscript
		out.ErrorMessage = nil
	case c.Status == StatusCompleted && c.HasError():
		res.HasConflict = true
		res.ConflictType = ConflictSuccessStatusWithError
		out.ErrorMessage = nil
	}

	res.Resolved = out
	res.ShouldProcess = r.Substantive(out.Transcript)
	return res
}

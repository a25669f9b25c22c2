package screening

import "time"

// Patch is a partial vendor update. Nil fields were not sent.
type Patch struct {
	Status       *Status `json:"status,omitempty"`
	Transcript   *string `json:"transcript,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	Summary      Summary `json:"summary,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Transcript == nil && p.ErrorMessage == nil && p.Summary == nil
}

// Merge applies p over old. Every field present in p wins; absent fields keep old values.
// Re-sent fields are treated as the latest value, not as deltas. Merge does not mutate old.
func Merge(old Call, p Patch, now time.Time) Call {
	out := old
	out.Summary = old.Summary.clone()

	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Transcript != nil {
		v := *p.Transcript
		out.Transcript = &v
	}
	if p.ErrorMessage != nil {
		v := *p.ErrorMessage
		out.ErrorMessage = &v
	}
	if p.Summary != nil {
		out.Summary = p.Summary.clone()
	}
	if !p.Empty() && !now.IsZero() {
		out.UpdatedAt = now
	}
	return out
}

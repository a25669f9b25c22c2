package applications

import (
	"time"

	"hiring-pipeline/internal/rbac"
)

// Application is one candidate's pursuit of one job.
//
// Invariants:
// - Timeline is never empty after creation (application_submitted is written with the row).
// - Status equals ToStatus of the most recent timeline entry that carries a status change.
// - CurrentStep only moves forward in step order.
//
// Timeline is append-only. Only the workflow orchestrator writes to it, through internal/timeline.
type Application struct {
	ID          string `json:"id" db:"id"`
	CandidateID string `json:"candidate_id" db:"candidate_id"`
	JobID       string `json:"job_id" db:"job_id"`

	Status      Status `json:"status" db:"status"`
	CurrentStep Step   `json:"current_step" db:"current_step"`

	// Timeline is stored as JSONB; insertion order is chronological order.
	Timeline []TimelineEntry `json:"timeline" db:"timeline"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Clone returns a copy that shares no slice memory with a.
func (a Application) Clone() Application {
	out := a
	if a.Timeline != nil {
		out.Timeline = make([]TimelineEntry, len(a.Timeline))
		copy(out.Timeline, a.Timeline)
	}
	return out
}

// LastEntry returns the most recent timeline entry.
func (a Application) LastEntry() (TimelineEntry, bool) {
	if len(a.Timeline) == 0 {
		return TimelineEntry{}, false
	}
	return a.Timeline[len(a.Timeline)-1], true
}

// TimelineEntry is an immutable audit record of a step or status change.
type TimelineEntry struct {
	ID     string      `json:"id"`
	Step   Step        `json:"step"`
	Status EntryStatus `json:"status"`

	// FromStatus/ToStatus are set only when the entry carries an application status change.
	FromStatus Status `json:"from_status,omitempty"`
	ToStatus   Status `json:"to_status,omitempty"`

	Timestamp   time.Time `json:"timestamp"`
	Notes       string    `json:"notes,omitempty"`
	PerformedBy rbac.Role `json:"performed_by"`
}

// ChangesStatus reports whether the entry records an application status change.
func (e TimelineEntry) ChangesStatus() bool { return e.ToStatus != "" }

// Status is the application's position in the hiring pipeline.
// Store these exact strings.
type Status string

const (
	StatusSubmitted           Status = "submitted"
	StatusScreeningScheduled  Status = "screening_scheduled"
	StatusScreeningInProgress Status = "screening_in_progress"
	StatusScreeningCompleted  Status = "screening_completed"
	StatusUnderReview         Status = "under_review"
	StatusInterviewScheduled  Status = "interview_scheduled"
	StatusInterviewCompleted  Status = "interview_completed"
	StatusHired               Status = "hired"
	StatusRejected            Status = "rejected"
	StatusWithdrawn           Status = "withdrawn"
)

// Statuses lists every application status in pipeline order.
func Statuses() []Status {
	return []Status{
		StatusSubmitted,
		StatusScreeningScheduled,
		StatusScreeningInProgress,
		StatusScreeningCompleted,
		StatusUnderReview,
		StatusInterviewScheduled,
		StatusInterviewCompleted,
		StatusHired,
		StatusRejected,
		StatusWithdrawn,
	}
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal is true for hired, rejected and withdrawn.
// hired -> withdrawn is the only outbound transition from a terminal status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusHired, StatusRejected, StatusWithdrawn:
		return true
	default:
		return false
	}
}

// Rank orders statuses along the pipeline. Terminal statuses share the highest rank.
// Unknown statuses rank -1.
func (s Status) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// AtOrPast reports whether s has reached target in pipeline order.
func (s Status) AtOrPast(target Status) bool {
	return s.Valid() && target.Valid() && s.Rank() >= target.Rank()
}

var statusRank = map[Status]int{
	StatusSubmitted:           0,
	StatusScreeningScheduled:  1,
	StatusScreeningInProgress: 2,
	StatusScreeningCompleted:  3,
	StatusUnderReview:         4,
	StatusInterviewScheduled:  5,
	StatusInterviewCompleted:  6,
	StatusHired:               7,
	StatusRejected:            7,
	StatusWithdrawn:           7,
}

// Step labels where in the pipeline a timeline entry occurred.
// It is not 1:1 with Status.
type Step string

const (
	StepApplicationSubmitted    Step = "application_submitted"
	StepScreeningCallScheduled  Step = "screening_call_scheduled"
	StepScreeningCallInProgress Step = "screening_call_in_progress"
	StepScreeningCallCompleted  Step = "screening_call_completed"
	StepRecruiterReview         Step = "recruiter_review"
	StepInterviewScheduled      Step = "interview_scheduled"
	StepInterviewCompleted      Step = "interview_completed"
	StepFinalDecision           Step = "final_decision"
	StepWithdrawn               Step = "withdrawn"
)

var stepOrder = map[Step]int{
	StepApplicationSubmitted:    0,
	StepScreeningCallScheduled:  1,
	StepScreeningCallInProgress: 2,
	StepScreeningCallCompleted:  3,
	StepRecruiterReview:         4,
	StepInterviewScheduled:      5,
	StepInterviewCompleted:      6,
	StepFinalDecision:           7,
	StepWithdrawn:               8,
}

func (s Step) Valid() bool {
	_, ok := stepOrder[s]
	return ok
}

// Order returns the step's position in the pipeline, -1 if unknown.
func (s Step) Order() int {
	o, ok := stepOrder[s]
	if !ok {
		return -1
	}
	return o
}

// Later returns whichever of a and b is further along the pipeline.
func Later(a, b Step) Step {
	if b.Order() > a.Order() {
		return b
	}
	return a
}

// EntryStatus is the state of the step a timeline entry describes.
type EntryStatus string

const (
	EntryPending    EntryStatus = "pending"
	EntryInProgress EntryStatus = "in_progress"
	EntryCompleted  EntryStatus = "completed"
	EntrySkipped    EntryStatus = "skipped"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryPending, EntryInProgress, EntryCompleted, EntrySkipped:
		return true
	default:
		return false
	}
}

// Filter narrows List queries. Zero fields match everything.
type Filter struct {
	CandidateID string
	JobID       string
	Status      Status
}

func (f Filter) Match(a Application) bool {
	if f.CandidateID != "" && a.CandidateID != f.CandidateID {
		return false
	}
	if f.JobID != "" && a.JobID != f.JobID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

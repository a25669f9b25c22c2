package workflow

import (
	"sort"

	"hiring-pipeline/internal/applications"
	"hiring-pipeline/internal/rbac"
)

// Transition is one legal status change.
type Transition struct {
	From         applications.Status
	To           applications.Status
	Roles        []rbac.Role
	RequiresNote bool
}

func (t Transition) allows(role rbac.Role) bool {
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	systemAndStaff = []rbac.Role{rbac.RoleSystem, rbac.RoleRecruiter, rbac.RoleAdmin}
	staff          = []rbac.Role{rbac.RoleRecruiter, rbac.RoleAdmin}
	systemOnly     = []rbac.Role{rbac.RoleSystem}
	selfWithdraw   = []rbac.Role{rbac.RoleCandidate, rbac.RoleAdmin}
)

// transitions is the complete list of legal status changes. Anything not listed,
// including from == to, is rejected.
var transitions = buildTable([]Transition{
	{From: applications.StatusSubmitted, To: applications.StatusScreeningScheduled, Roles: systemAndStaff},
	{From: applications.StatusSubmitted, To: applications.StatusUnderReview, Roles: staff},
	{From: applications.StatusSubmitted, To: applications.StatusRejected, Roles: staff, RequiresNote: true},

	{From: applications.StatusScreeningScheduled, To: applications.StatusScreeningInProgress, Roles: systemOnly},
	{From: applications.StatusScreeningScheduled, To: applications.StatusScreeningCompleted, Roles: systemOnly},
	{From: applications.StatusScreeningScheduled, To: applications.StatusRejected, Roles: staff, RequiresNote: true},

	{From: applications.StatusScreeningInProgress, To: applications.StatusScreeningCompleted, Roles: systemOnly},
	{From: applications.StatusScreeningInProgress, To: applications.StatusScreeningScheduled, Roles: systemAndStaff},
	{From: applications.StatusScreeningInProgress, To: applications.StatusRejected, Roles: staff, RequiresNote: true},

	{From: applications.StatusScreeningCompleted, To: applications.StatusUnderReview, Roles: systemAndStaff},
	{From: applications.StatusScreeningCompleted, To: applications.StatusRejected, Roles: staff, RequiresNote: true},

	{From: applications.StatusUnderReview, To: applications.StatusInterviewScheduled, Roles: staff},
	{From: applications.StatusUnderReview, To: applications.StatusHired, Roles: staff, RequiresNote: true},
	{From: applications.StatusUnderReview, To: applications.StatusRejected, Roles: staff, RequiresNote: true},

	{From: applications.StatusInterviewScheduled, To: applications.StatusInterviewCompleted, Roles: staff},
	{From: applications.StatusInterviewScheduled, To: applications.StatusRejected, Roles: staff, RequiresNote: true},

	{From: applications.StatusInterviewCompleted, To: applications.StatusHired, Roles: staff, RequiresNote: true},
	{From: applications.StatusInterviewCompleted, To: applications.StatusRejected, Roles: staff, RequiresNote: true},

	// A hired candidate may still withdraw. This is the only exit from a terminal status.
	{From: applications.StatusHired, To: applications.StatusWithdrawn, Roles: selfWithdraw},
})

type edge struct {
	from applications.Status
	to   applications.Status
}

func buildTable(rows []Transition) map[edge]Transition {
	out := make(map[edge]Transition, len(rows)+8)
	for _, r := range rows {
		out[edge{r.From, r.To}] = r
	}
	// withdrawn is reachable from every non-terminal status.
	for _, s := range applications.Statuses() {
		if s.IsTerminal() {
			continue
		}
		out[edge{s, applications.StatusWithdrawn}] = Transition{From: s, To: applications.StatusWithdrawn, Roles: selfWithdraw}
	}
	return out
}

// Lookup returns the table row for (from, to).
func Lookup(from, to applications.Status) (Transition, bool) {
	t, ok := transitions[edge{from, to}]
	return t, ok
}

// IsValidTransition reports whether role may move an application from from to to.
func IsValidTransition(from, to applications.Status, role rbac.Role) bool {
	t, ok := Lookup(from, to)
	return ok && t.allows(role)
}

// RequiresNote reports whether the (from, to) change must carry a note.
// Unknown pairs report false.
func RequiresNote(from, to applications.Status) bool {
	t, ok := Lookup(from, to)
	return ok && t.RequiresNote
}

// AllowedNextStatuses lists the statuses role may move to from from, in pipeline order.
func AllowedNextStatuses(from applications.Status, role rbac.Role) []applications.Status {
	out := make([]applications.Status, 0)
	for e, t := range transitions {
		if e.from == from && t.allows(role) {
			out = append(out, e.to)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank() != out[j].Rank() {
			return out[i].Rank() < out[j].Rank()
		}
		return out[i] < out[j]
	})
	return out
}

// DefaultSteps maps each status to the step recorded when a transition names none.
func DefaultSteps() map[applications.Status]applications.Step {
	return map[applications.Status]applications.Step{
		applications.StatusSubmitted:           applications.StepApplicationSubmitted,
		applications.StatusScreeningScheduled:  applications.StepScreeningCallScheduled,
		applications.StatusScreeningInProgress: applications.StepScreeningCallInProgress,
		applications.StatusScreeningCompleted:  applications.StepScreeningCallCompleted,
		applications.StatusUnderReview:         applications.StepRecruiterReview,
		applications.StatusInterviewScheduled:  applications.StepInterviewScheduled,
		applications.StatusInterviewCompleted:  applications.StepInterviewCompleted,
		applications.StatusHired:               applications.StepFinalDecision,
		applications.StatusRejected:            applications.StepFinalDecision,
		applications.StatusWithdrawn:           applications.StepWithdrawn,
	}
}

package workflow

import (
	"testing"

	"hiring-pipeline/internal/applications"
	"hiring-pipeline/internal/rbac"
)

var allRoles = []rbac.Role{rbac.RoleSystem, rbac.RoleCandidate, rbac.RoleRecruiter, rbac.RoleAdmin}

func TestTable_IdentityTransitionsAreRejected(t *testing.T) {
	for _, s := range applications.Statuses() {
		for _, r := range allRoles {
			if IsValidTransition(s, s, r) {
				t.Fatalf("%s -> %s should not be valid for %s", s, s, r)
			}
		}
	}
}

func TestTable_TerminalStatusesOnlyAllowHiredWithdrawal(t *testing.T) {
	for _, from := range applications.Statuses() {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range applications.Statuses() {
			for _, r := range allRoles {
				ok := IsValidTransition(from, to, r)
				want := from == applications.StatusHired && to == applications.StatusWithdrawn &&
					(r == rbac.RoleCandidate || r == rbac.RoleAdmin)
				if ok != want {
					t.Fatalf("%s -> %s by %s: got %v want %v", from, to, r, ok, want)
				}
			}
		}
	}
}

func TestTable_WithdrawnReachableFromEveryNonTerminal(t *testing.T) {
	for _, s := range applications.Statuses() {
		if s.IsTerminal() {
			continue
		}
		if !IsValidTransition(s, applications.StatusWithdrawn, rbac.RoleCandidate) {
			t.Fatalf("candidate should be able to withdraw from %s", s)
		}
		if IsValidTransition(s, applications.StatusWithdrawn, rbac.RoleRecruiter) {
			t.Fatalf("recruiter should not withdraw on behalf of candidate from %s", s)
		}
	}
}

func TestTable_CandidateOnlyWithdraws(t *testing.T) {
	for _, from := range applications.Statuses() {
		for _, to := range AllowedNextStatuses(from, rbac.RoleCandidate) {
			if to != applications.StatusWithdrawn {
				t.Fatalf("candidate allowed %s -> %s", from, to)
			}
		}
	}
}

func TestTable_Cases(t *testing.T) {
	tests := []struct {
		from, to applications.Status
		role     rbac.Role
		valid    bool
		note     bool
	}{
		{applications.StatusSubmitted, applications.StatusHired, rbac.RoleAdmin, false, false},
		{applications.StatusSubmitted, applications.StatusScreeningScheduled, rbac.RoleSystem, true, false},
		{applications.StatusScreeningScheduled, applications.StatusScreeningInProgress, rbac.RoleSystem, true, false},
		{applications.StatusScreeningScheduled, applications.StatusScreeningInProgress, rbac.RoleRecruiter, false, false},
		{applications.StatusScreeningInProgress, applications.StatusScreeningCompleted, rbac.RoleSystem, true, false},
		{applications.StatusScreeningCompleted, applications.StatusUnderReview, rbac.RoleRecruiter, true, false},
		{applications.StatusUnderReview, applications.StatusHired, rbac.RoleRecruiter, true, true},
		{applications.StatusUnderReview, applications.StatusHired, rbac.RoleSystem, false, true},
		{applications.StatusUnderReview, applications.StatusRejected, rbac.RoleRecruiter, true, true},
		{applications.StatusInterviewScheduled, applications.StatusInterviewCompleted, rbac.RoleRecruiter, true, false},
		{applications.StatusInterviewCompleted, applications.StatusHired, rbac.RoleAdmin, true, true},
		{applications.StatusHired, applications.StatusWithdrawn, rbac.RoleCandidate, true, false},
		{applications.StatusRejected, applications.StatusWithdrawn, rbac.RoleCandidate, false, false},
	}
	for _, tt := range tests {
		if got := IsValidTransition(tt.from, tt.to, tt.role); got != tt.valid {
			t.Fatalf("IsValidTransition(%s, %s, %s) = %v, want %v", tt.from, tt.to, tt.role, got, tt.valid)
		}
		if got := RequiresNote(tt.from, tt.to); got != tt.note {
			t.Fatalf("RequiresNote(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.note)
		}
	}
}

func TestAllowedNextStatuses_OrderedAlongPipeline(t *testing.T) {
	got := AllowedNextStatuses(applications.StatusUnderReview, rbac.RoleRecruiter)
	want := []applications.Status{
		applications.StatusInterviewScheduled,
		applications.StatusHired,
		applications.StatusRejected,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestDefaultSteps_CoverEveryStatus(t *testing.T) {
	steps := DefaultSteps()
	for _, s := range applications.Statuses() {
		if !steps[s].Valid() {
			t.Fatalf("no default step for %s", s)
		}
	}
}

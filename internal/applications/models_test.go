package applications

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatus_TerminalSet(t *testing.T) {
	terminal := map[Status]bool{StatusHired: true, StatusRejected: true, StatusWithdrawn: true}
	for _, s := range Statuses() {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
		if s.IsTerminal() != terminal[s] {
			t.Fatalf("unexpected terminal flag for %q", s)
		}
	}
	if Status("offer").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}

func TestStatus_AtOrPast(t *testing.T) {
	cases := []struct {
		s, target Status
		want      bool
	}{
		{StatusScreeningScheduled, StatusScreeningCompleted, false},
		{StatusScreeningCompleted, StatusScreeningCompleted, true},
		{StatusUnderReview, StatusScreeningCompleted, true},
		{StatusWithdrawn, StatusScreeningCompleted, true},
		{Status("bogus"), StatusSubmitted, false},
	}
	for _, tc := range cases {
		if got := tc.s.AtOrPast(tc.target); got != tc.want {
			t.Fatalf("%q.AtOrPast(%q) = %v, want %v", tc.s, tc.target, got, tc.want)
		}
	}
}

func TestLater_NeverMovesBackwards(t *testing.T) {
	if got := Later(StepRecruiterReview, StepScreeningCallCompleted); got != StepRecruiterReview {
		t.Fatalf("expected recruiter_review, got %q", got)
	}
	if got := Later(StepApplicationSubmitted, StepScreeningCallScheduled); got != StepScreeningCallScheduled {
		t.Fatalf("expected screening_call_scheduled, got %q", got)
	}
}

func TestMemoryRepo_CopiesTimeline(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	a := Application{
		ID:       "a1",
		Status:   StatusSubmitted,
		Timeline: []TimelineEntry{{ID: "e1", Step: StepApplicationSubmitted, Status: EntryCompleted}},
	}
	if err := repo.Put(ctx, a); err != nil {
		t.Fatalf("put: %v", err)
	}

	a.Timeline[0].Notes = "mutated after put"
	got, err := repo.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Timeline[0].Notes != "" {
		t.Fatalf("expected stored timeline to be isolated from caller")
	}

	got.Timeline = append(got.Timeline, TimelineEntry{ID: "e2"})
	again, _ := repo.Get(ctx, "a1")
	if len(again.Timeline) != 1 {
		t.Fatalf("expected stored timeline length 1, got %d", len(again.Timeline))
	}
}

func TestMemoryRepo_NotFoundAndFilter(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if _, err := repo.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	_ = repo.Put(ctx, Application{ID: "a1", JobID: "j1", Status: StatusSubmitted, CreatedAt: now})
	_ = repo.Put(ctx, Application{ID: "a2", JobID: "j1", Status: StatusHired, CreatedAt: now.Add(time.Minute)})
	_ = repo.Put(ctx, Application{ID: "a3", JobID: "j2", Status: StatusSubmitted, CreatedAt: now})

	got, err := repo.List(ctx, Filter{JobID: "j1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a2" {
		t.Fatalf("unexpected list result: %+v", got)
	}

	got, _ = repo.List(ctx, Filter{Status: StatusSubmitted})
	if len(got) != 2 {
		t.Fatalf("expected 2 submitted, got %d", len(got))
	}
}

func TestMemoryRepo_RejectsShrinkingTimeline(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	full := Application{ID: "a1", Timeline: []TimelineEntry{{ID: "e1"}, {ID: "e2"}}}
	if err := repo.Put(ctx, full); err != nil {
		t.Fatalf("put: %v", err)
	}

	stale := Application{ID: "a1", Timeline: []TimelineEntry{{ID: "e1"}}}
	if err := repo.Put(ctx, stale); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite, got %v", err)
	}
}

package screening

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusFailed} {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if Status("ringing").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
	if StatusScheduled.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Fatalf("unexpected terminal classification")
	}
}

func TestCall_HasErrorIgnoresBlank(t *testing.T) {
	blank := "   "
	if (Call{ErrorMessage: &blank}).HasError() {
		t.Fatalf("blank error message should not count")
	}
	msg := "boom"
	if !(Call{ErrorMessage: &msg}).HasError() {
		t.Fatalf("expected error")
	}
}

func TestMemoryRepo_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	tr := "hello"
	c := Call{ID: "c1", ApplicationID: "a1", Status: StatusScheduled, Transcript: &tr, Summary: Summary{"k": "v"}}
	if err := repo.Put(ctx, c); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	*got.Transcript = "mutated"
	got.Summary["k"] = "mutated"

	again, _ := repo.Get(ctx, "c1")
	if *again.Transcript != "hello" || again.Summary["k"] != "v" {
		t.Fatalf("stored call was mutated through returned copy: %+v", again)
	}
}

func TestMemoryRepo_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = repo.Put(ctx, Call{ID: "c2", ApplicationID: "a1", Status: StatusFailed, CreatedAt: base.Add(time.Minute)})
	_ = repo.Put(ctx, Call{ID: "c1", ApplicationID: "a1", Status: StatusCompleted, CreatedAt: base})
	_ = repo.Put(ctx, Call{ID: "c3", ApplicationID: "a2", Status: StatusCompleted, CreatedAt: base})

	got, err := repo.List(ctx, Filter{ApplicationID: "a1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c2" {
		t.Fatalf("unexpected list: %+v", got)
	}

	got, _ = repo.List(ctx, Filter{Status: StatusCompleted})
	if len(got) != 2 {
		t.Fatalf("expected 2 completed calls, got %d", len(got))
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

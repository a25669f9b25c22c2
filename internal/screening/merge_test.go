package screening

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func statusPtr(s Status) *Status { return &s }

func TestMerge_LastWriteWinsPerField(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	old := Call{
		ID:           "c1",
		Status:       StatusInProgress,
		Transcript:   strPtr("partial"),
		ErrorMessage: strPtr("timeout"),
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	got := Merge(old, Patch{Status: statusPtr(StatusFailed), Transcript: strPtr("full transcript")}, now)

	if got.Status != StatusFailed {
		t.Fatalf("expected status from patch, got %q", got.Status)
	}
	if *got.Transcript != "full transcript" {
		t.Fatalf("expected transcript from patch, got %q", *got.Transcript)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "timeout" {
		t.Fatalf("absent field should keep old value")
	}
	if !got.UpdatedAt.Equal(now) || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected timestamps: %+v", got)
	}
	if *old.Transcript != "partial" || old.Status != StatusInProgress {
		t.Fatalf("merge mutated its input")
	}
}

func TestMerge_EmptyPatchKeepsUpdatedAt(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	old := Call{ID: "c1", Status: StatusScheduled, UpdatedAt: created}
	got := Merge(old, Patch{}, created.Add(time.Hour))
	if !got.UpdatedAt.Equal(created) {
		t.Fatalf("empty patch should not touch UpdatedAt")
	}
}

func TestMerge_SummaryIsCopied(t *testing.T) {
	p := Patch{Summary: Summary{"score": 7}}
	got := Merge(Call{ID: "c1"}, p, time.Time{})
	p.Summary["score"] = 1
	if got.Summary["score"] != 7 {
		t.Fatalf("summary aliases the patch")
	}
}

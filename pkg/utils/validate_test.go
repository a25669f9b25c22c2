package utils

import (
	"strings"
	"testing"
)

type sample struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=a b"`
}

func TestValidateStruct_UsesJSONNames(t *testing.T) {
	errs := ValidateStruct(&sample{Status: "c"})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if !strings.Contains(errs["id"], "required") {
		t.Fatalf("unexpected id message: %q", errs["id"])
	}
	if !strings.Contains(errs["status"], "a b") {
		t.Fatalf("unexpected status message: %q", errs["status"])
	}

	if errs := ValidateStruct(&sample{ID: "x", Status: "a"}); len(errs) != 0 {
		t.Fatalf("expected valid, got %v", errs)
	}
}

package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}
	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}
	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestCopiesStillMatchSentinel(t *testing.T) {
	err := fmt.Errorf("handler: %w", ErrConflict.WithMessage("Organization slug already exists"))

	if !stdErrors.Is(err, ErrConflict) {
		t.Fatal("expected copy to match ErrConflict")
	}
	if stdErrors.Is(err, ErrBadRequest) {
		t.Fatal("did not expect copy to match ErrBadRequest")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewMissingFields(t *testing.T) {
	err := NewMissingFields([]string{"organizationName", "ownerEmail"})
	if err.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}

	details, ok := err.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details)
	}
	fields, ok := details["fields"].([]string)
	if !ok || len(fields) != 2 {
		t.Fatalf("unexpected fields: %v", details["fields"])
	}
}

func TestGoneIsDistinctFromNotFound(t *testing.T) {
	if ErrGone.StatusCode != http.StatusGone {
		t.Fatalf("unexpected status: %d", ErrGone.StatusCode)
	}
	if stdErrors.Is(ErrGone, ErrNotFound) {
		t.Fatal("gone must not match not found")
	}
}

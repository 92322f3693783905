package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{Authentication, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{Persistence, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := Status(New(tc.kind, "x")); got != tc.want {
			t.Fatalf("kind %d: expected status %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestUnclassifiedErrors(t *testing.T) {
	err := errors.New("driver: bad connection")

	if KindOf(err) != 0 {
		t.Fatalf("expected zero kind for unclassified error")
	}

	if Status(err) != http.StatusInternalServerError {
		t.Fatalf("unclassified errors must map to 500")
	}

	if Message(err) != "Internal server error" {
		t.Fatalf("unclassified errors must not leak their message, got %q", Message(err))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("unique constraint failed")
	err := Wrap(Conflict, "Workspace with this name already exists", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to match its cause")
	}

	if KindOf(fmt.Errorf("handler: %w", err)) != Conflict {
		t.Fatalf("expected kind to survive further wrapping")
	}

	if Message(err) != "Workspace with this name already exists" {
		t.Fatalf("unexpected message: %q", Message(err))
	}
}

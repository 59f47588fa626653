package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{InvalidState("wrong state"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("duplicate"), http.StatusConflict},
		{Forbidden("denied"), http.StatusForbidden},
		{Internal("boom", errors.New("cause")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestPublicMessageHidesInternalCause(t *testing.T) {
	err := Internal("failed to fetch job", errors.New("pq: connection refused"))
	if got := PublicMessage(err); got != "internal server error" {
		t.Errorf("PublicMessage = %q, want generic message", got)
	}
	if got := PublicMessage(NotFound("job not found")); got != "job not found" {
		t.Errorf("PublicMessage = %q, want %q", got, "job not found")
	}
}

func TestKindOfUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", Conflict("duplicate"))
	if got := KindOf(wrapped); got != KindConflict {
		t.Errorf("KindOf(wrapped) = %v, want KindConflict", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %v, want KindInternal", got)
	}
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Internal("failed to fetch job", cause)
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}

package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("signup: %w", Conflict(CodeEmailTaken, "Email already exists"))

	if !errors.Is(err, New(KindConflict, CodeEmailTaken, "")) {
		t.Fatal("expected wrapped error to match by code")
	}
	if errors.Is(err, New(KindConflict, CodeProviderMismatch, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: Validation("bad"), want: http.StatusBadRequest},
		{name: "conflict", err: Conflict(CodeEmailTaken, "taken"), want: http.StatusBadRequest},
		{name: "unauthorized", err: Unauthorized(CodeInvalidCredentials, "nope"), want: http.StatusUnauthorized},
		{name: "google token override", err: Unauthorized(CodeGoogleTokenInvalid, "bad token"), want: http.StatusBadRequest},
		{name: "not found", err: NotFound(CodeTaskNotFound, "missing"), want: http.StatusNotFound},
		{name: "unavailable", err: New(KindUnavailable, CodeUpstreamFailed, "down"), want: http.StatusServiceUnavailable},
		{name: "foreign error", err: errors.New("boom"), want: http.StatusInternalServerError},
		{name: "wrapped", err: fmt.Errorf("ctx: %w", NotFound(CodeUserNotFound, "missing")), want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(KindUnavailable, CodeUpstreamFailed, "upstream unavailable", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if KindOf(err) != KindUnavailable {
		t.Fatalf("expected unavailable kind, got %v", KindOf(err))
	}
	if KindOf(cause) != KindInternal {
		t.Fatal("expected foreign error to be internal")
	}
}

package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestQCErrorMessage(t *testing.T) {
	plain := New(ErrSession, "session already exists")
	if plain.Error() != "session already exists" {
		t.Errorf("Error() = %q", plain.Error())
	}

	caused := Wrap(errors.New("parse error"), ErrConfig, "config error")
	if caused.Error() != "config error: parse error" {
		t.Errorf("Error() with cause = %q", caused.Error())
	}
}

func TestKindMatching(t *testing.T) {
	err := New(ErrHardware, "daq socket unreachable")

	if !errors.Is(err, ErrHardware) {
		t.Error("error should match its own kind")
	}
	if errors.Is(err, ErrConfig) {
		t.Error("error should not match a different kind")
	}

	// Wrapping changes the outer kind but keeps the chain intact.
	wrapped := Wrap(err, ErrProcedure, "pedestal scan failed")
	if !errors.Is(wrapped, ErrProcedure) {
		t.Error("wrapped error should match the outer kind")
	}
	if !errors.Is(wrapped, err) {
		t.Error("wrapped error should still match the inner error")
	}
}

func TestUnwrapFallsBackToKind(t *testing.T) {
	cause := errors.New("underlying error")
	if got := errors.Unwrap(Wrap(cause, ErrHardware, "wrapped")); got != cause {
		t.Errorf("Unwrap() = %v, want the cause", got)
	}

	bare := New(ErrManifest, "no cause")
	if !errors.Is(errors.Unwrap(bare), ErrManifest) {
		t.Error("Unwrap() without a cause should yield the kind")
	}
}

func TestFormat(t *testing.T) {
	err := &QCError{
		Kind:       ErrManifest,
		Message:    "conflicting pins",
		Suggestion: "Remove one of the entries",
		Details:    map[string]string{"package": "numpy"},
	}

	formatted := err.Format()
	for _, want := range []string{
		"Error: conflicting pins",
		"package: numpy",
		"Suggestion: Remove one of the entries",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() = %q, missing %q", formatted, want)
		}
	}
}

func TestWithDetailsChaining(t *testing.T) {
	err := New(ErrSession, "bad board").
		WithDetails("board_id", "0042").
		WithDetails("board_type", "tileboard")

	if err.Details["board_id"] != "0042" || err.Details["board_type"] != "tileboard" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestWithCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := New(ErrHardware, "slow control lost").WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("error should unwrap to its cause")
	}
}

func TestWithSuggestion(t *testing.T) {
	err := WithSuggestion(ErrConfig, "unknown board type", "Check qcman.yaml")
	if err.Suggestion != "Check qcman.yaml" {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}
}

func TestHardwareUnreachable(t *testing.T) {
	cause := errors.New("connection refused")
	err := HardwareUnreachable("daq", "localhost:8888", cause)

	if !errors.Is(err, ErrHardware) {
		t.Error("HardwareUnreachable should match ErrHardware")
	}
	if err.Details["address"] != "localhost:8888" {
		t.Errorf("Details[address] = %q", err.Details["address"])
	}
	if !errors.Is(err, cause) {
		t.Error("HardwareUnreachable should unwrap to cause")
	}
}

func TestManifestNotFound(t *testing.T) {
	err := ManifestNotFound("environment.yaml")

	if !errors.Is(err, ErrManifest) {
		t.Error("ManifestNotFound should match ErrManifest")
	}
	if err.Suggestion == "" {
		t.Error("ManifestNotFound should carry a suggestion")
	}
}

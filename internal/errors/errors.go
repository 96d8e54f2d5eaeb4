// Package errors defines the error kinds qcman commands report and a
// wrapper carrying operator-facing suggestions. Match kinds with
// errors.Is; the CLI prints Format output for QCErrors it surfaces.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel kinds for errors.Is.
var (
	ErrConfig    = errors.New("configuration error")
	ErrSession   = errors.New("session error")
	ErrProcedure = errors.New("procedure error")
	ErrHardware  = errors.New("hardware error")
	ErrManifest  = errors.New("manifest error")
	ErrHook      = errors.New("hook error")
	ErrTimeout   = errors.New("timeout error")
	ErrNotFound  = errors.New("not found")
)

// QCError couples a kind with a message and, optionally, a cause, a
// suggestion for the operator, and key/value details such as the board
// identifier or a socket address.
type QCError struct {
	Kind       error
	Message    string
	Suggestion string
	Cause      error
	Details    map[string]string
}

// New builds an error of the given kind.
func New(kind error, message string) *QCError {
	return &QCError{Kind: kind, Message: message}
}

// Wrap attaches kind and message to an underlying error.
func Wrap(err error, kind error, message string) *QCError {
	return &QCError{Kind: kind, Message: message, Cause: err}
}

// WithSuggestion builds an error that tells the operator what to try.
func WithSuggestion(kind error, message, suggestion string) *QCError {
	return &QCError{Kind: kind, Message: message, Suggestion: suggestion}
}

func (e *QCError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the cause when present, the kind otherwise, so both
// stay reachable through the chain.
func (e *QCError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return e.Kind
}

func (e *QCError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// WithDetails adds one detail pair and returns the error for chaining.
func (e *QCError) WithDetails(key, value string) *QCError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error and returns the error for chaining.
func (e *QCError) WithCause(cause error) *QCError {
	e.Cause = cause
	return e
}

// Format renders the error with its details (sorted by key) and
// suggestion, for terminal output.
func (e *QCError) Format() string {
	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(e.Error())
	sb.WriteString("\n")

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, e.Details[k])
		}
	}

	if e.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(e.Suggestion)
		sb.WriteString("\n")
	}
	return sb.String()
}

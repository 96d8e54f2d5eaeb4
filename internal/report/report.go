// Package report provides the result containers written to session
// files. Every procedure run produces exactly one Result, status-coded so
// that downstream tooling can tell clean completions from interrupts and
// failures without parsing log output.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// StatusCode classifies the outcome of a procedure run.
type StatusCode int

const (
	// StatusComplete indicates the procedure ran to completion.
	StatusComplete StatusCode = 0
	// StatusUnknownError indicates an unclassified failure (e.g. a panic).
	StatusUnknownError StatusCode = 1
	// StatusInterrupt indicates the run was cancelled by the operator.
	StatusInterrupt StatusCode = 2
	// StatusProcedureError indicates the procedure reported a failure.
	StatusProcedureError StatusCode = 3
	// StatusHardwareError indicates a hardware interface failure.
	StatusHardwareError StatusCode = 4
)

// String returns the string representation of the status code.
func (c StatusCode) String() string {
	switch c {
	case StatusComplete:
		return "complete"
	case StatusUnknownError:
		return "unknown_error"
	case StatusInterrupt:
		return "interrupt"
	case StatusProcedureError:
		return "procedure_error"
	case StatusHardwareError:
		return "hardware_error"
	default:
		return fmt.Sprintf("status(%d)", int(c))
	}
}

// Status is a status code with an optional message.
// It serializes as a [code, message] pair in session files.
type Status struct {
	Code    StatusCode
	Message string
}

// MarshalYAML implements yaml.Marshaler.
func (s Status) MarshalYAML() (interface{}, error) {
	return []interface{}{int(s.Code), s.Message}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Status) UnmarshalYAML(node *yaml.Node) error {
	var pair []yaml.Node
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("status must be a [code, message] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("status must be a [code, message] pair, got %d elements", len(pair))
	}

	var code int
	if err := pair[0].Decode(&code); err != nil {
		return fmt.Errorf("status code: %w", err)
	}
	var message string
	if err := pair[1].Decode(&message); err != nil {
		return fmt.Errorf("status message: %w", err)
	}

	s.Code = StatusCode(code)
	s.Message = message
	return nil
}

// IsSuccess returns true if the status indicates a clean completion.
func (s Status) IsSuccess() bool {
	return s.Code == StatusComplete
}

// DataEntry records a data file produced by a procedure.
// Paths are stored relative to the session file once the run completes.
type DataEntry struct {
	// Path is the file path, relative to the session file.
	Path string `yaml:"path"`
	// Desc is a human-readable description of the file contents.
	Desc string `yaml:"desc,omitempty"`
	// Meta stores additional key-value data about the entry.
	Meta map[string]string `yaml:"meta,omitempty"`
}

// Result is the outcome of a single procedure run.
type Result struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id"`
	// Name is the procedure name.
	Name string `yaml:"name"`
	// StartTime is when the run started.
	StartTime time.Time `yaml:"start_time"`
	// EndTime is when the run ended.
	EndTime time.Time `yaml:"end_time"`
	// Input is a snapshot of the arguments the procedure ran with.
	Input map[string]interface{} `yaml:"input,omitempty"`
	// Status is the run outcome.
	Status Status `yaml:"status_code"`
	// DataFiles lists the data files the run produced.
	DataFiles []*DataEntry `yaml:"data_files,omitempty"`
}

// NewResult creates a Result for a procedure about to run.
// The status starts as complete; the execution wrapper overwrites it on
// failure.
func NewResult(name string, input map[string]interface{}) *Result {
	now := time.Now()
	return &Result{
		ID:        uuid.NewString(),
		Name:      name,
		StartTime: now,
		EndTime:   now,
		Input:     input,
	}
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// IsSuccess returns true if the run completed cleanly.
func (r *Result) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// SetStatus records the run outcome.
func (r *Result) SetStatus(code StatusCode, message string) {
	r.Status = Status{Code: code, Message: message}
}

// AddData appends a data file entry and returns it.
func (r *Result) AddData(path, desc string) *DataEntry {
	entry := &DataEntry{Path: path, Desc: desc}
	r.DataFiles = append(r.DataFiles, entry)
	return entry
}

// LastData returns the most recently added data entry, or nil if none.
func (r *Result) LastData() *DataEntry {
	if len(r.DataFiles) == 0 {
		return nil
	}
	return r.DataFiles[len(r.DataFiles)-1]
}

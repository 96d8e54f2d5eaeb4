// Package tui provides the terminal user interface for qcman.
package tui

import (
	"time"
)

// Message types for TUI state updates.
// These are sent to the TUI to trigger updates.

// RunStateMsg reports the current run state.
type RunStateMsg struct {
	State      string // idle, running, completed, failed, aborted
	CurrentMsg string // Short status message
}

// ProcedureStartedMsg is sent when a procedure starts execution.
type ProcedureStartedMsg struct {
	Name string
}

// ProcedureFinishedMsg is sent when a procedure completes, fails, or is
// skipped.
type ProcedureFinishedMsg struct {
	Name     string
	Status   string // completed, failed, skipped
	Message  string
	Duration time.Duration
}

// ProgressMsg reports batched progress within a procedure.
type ProgressMsg struct {
	Procedure string
	Label     string
	Current   int
	Total     int
}

// CountsMsg updates the procedure queue counters.
type CountsMsg struct {
	Completed int
	Failed    int
	Skipped   int
	Total     int
}

// LogLineMsg carries one line of streamed run output.
type LogLineMsg struct {
	Line string
}

// HardwareStatusMsg reports hardware connection status.
type HardwareStatusMsg struct {
	Status string // connected, connecting, offline
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error string
}

// QuitMsg signals the TUI should quit.
type QuitMsg struct {
	Reason string
}

// TickMsg is sent periodically for time-based updates.
type TickMsg struct {
	Time time.Time
}

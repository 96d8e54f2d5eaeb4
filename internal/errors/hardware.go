// Package errors provides error types for qcman.
// This file contains hardware and timeout-related errors.
package errors

import (
	"fmt"
	"time"
)

// Hardware-related error constructors.

// HardwareUnreachable creates an error for a controller socket that
// cannot be reached.
func HardwareUnreachable(socket, addr string, cause error) *QCError {
	return &QCError{
		Kind:    ErrHardware,
		Message: fmt.Sprintf("%s socket unreachable", socket),
		Cause:   cause,
		Details: map[string]string{
			"socket":  socket,
			"address": addr,
		},
		Suggestion: `Check that the tileboard services are running:

  1. Verify the board is powered and on the network
  2. Confirm the service addresses in .qcman/config.yaml
  3. Try: nc -vz <host> <port>`,
	}
}

// HardwareRejected creates an error for a command the controller refused.
func HardwareRejected(socket, command, reply string) *QCError {
	return &QCError{
		Kind:    ErrHardware,
		Message: fmt.Sprintf("%s socket rejected command %q", socket, command),
		Details: map[string]string{
			"socket":  socket,
			"command": command,
			"reply":   reply,
		},
		Suggestion: "Inspect the service logs on the board; the pushed configuration may be malformed.",
	}
}

// AcquisitionTimeout creates an error for a data acquisition that never
// reported completion.
func AcquisitionTimeout(elapsed, limit time.Duration) *QCError {
	return &QCError{
		Kind:    ErrTimeout,
		Message: fmt.Sprintf("acquisition did not complete after %v", elapsed.Round(time.Second)),
		Details: map[string]string{
			"elapsed": elapsed.Round(time.Second).String(),
			"limit":   limit.Round(time.Second).String(),
		},
		Suggestion: `The DAQ service never reported completion.

Possible causes:
  - Event count set too high for the acquisition window
  - Trigger source not configured or not firing
  - DAQ service wedged and needs a restart

Adjust the acquisition timeout in .qcman/config.yaml:
  hardware:
    acquire_timeout: 5m`,
	}
}

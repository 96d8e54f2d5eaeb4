// Package procedure provides the QC procedure framework. Procedures are
// stateless units of board testing: each run is constructed fresh from
// its arguments, executed against the session's hardware interfaces, and
// always exits with a status-coded result stored in the session.
package procedure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/umdcms/qcmanager/internal/hw"
	"github.com/umdcms/qcmanager/internal/logging"
	"github.com/umdcms/qcmanager/internal/report"
	"github.com/umdcms/qcmanager/internal/session"
)

// Progress reports loop progress to the active frontend.
// desc names what is being iterated; current counts completed steps out
// of total.
type Progress func(desc string, current, total int)

// Procedure is a single QC routine.
// Implementations hold their run arguments as fields and must not keep
// state between runs; everything stateful lives in the RunEnv.
type Procedure interface {
	// Name returns the unique identifier for the procedure.
	Name() string
	// Description returns a human-readable description.
	Description() string
	// Arguments returns the argument snapshot recorded in the result.
	Arguments() map[string]interface{}
	// Run executes the procedure. Data files go through the RunEnv
	// helpers so they are recorded in the result.
	Run(ctx context.Context, env *RunEnv) error
}

// AcquireSettings carries station-level acquisition tuning from the
// config file. Zero values fall back to the hardware layer defaults.
type AcquireSettings struct {
	// PollInterval is how often DAQ completion is polled.
	PollInterval time.Duration
	// Timeout bounds a single acquisition.
	Timeout time.Duration
}

// RunEnv carries the per-run state handed to a procedure.
type RunEnv struct {
	// Session is the board session the run belongs to.
	Session *session.Session
	// Controller is the board hardware controller, nil when the run
	// needs no hardware.
	Controller *hw.Controller
	// StoreDir is the directory this run writes its data files to.
	StoreDir string
	// Result is the result under construction.
	Result *report.Result
	// Logger is scoped to the procedure run.
	Logger *logging.Logger
	// Progress reports loop progress, never nil.
	Progress Progress
	// Acquire is the station's acquisition tuning.
	Acquire AcquireSettings
}

// StorePath resolves a run-relative file path.
func (e *RunEnv) StorePath(name string) string {
	return filepath.Join(e.StoreDir, name)
}

// CreateDataFile creates a data file in the run's storage directory and
// records it in the result. The caller owns closing the file.
func (e *RunEnv) CreateDataFile(name, desc string) (*os.File, error) {
	path := e.StorePath(name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create data file %s: %w", name, err)
	}
	e.Result.AddData(path, desc)
	return f, nil
}

// RecordDataFile records an already-written file in the result.
func (e *RunEnv) RecordDataFile(name, desc string) *report.DataEntry {
	return e.Result.AddData(e.StorePath(name), desc)
}

// acquireOutput is the file name the pull service writes raw data to.
const acquireOutput = "data_acquire0.raw"

// AcquireEvents acquires the requested number of events and stores the
// raw output as a data file named name. The acquisition lands in a
// scratch directory first and is moved into the run's storage directory
// once complete, so aborted runs never leave partial data files behind.
func (e *RunEnv) AcquireEvents(ctx context.Context, events int, name, desc string) (*report.DataEntry, error) {
	if e.Controller == nil {
		return nil, fmt.Errorf("procedure needs hardware but no controller is attached")
	}

	scratch, err := os.MkdirTemp("", "qcman_acquire_")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := e.Controller.Acquire(ctx, hw.AcquireRequest{
		Events:       events,
		OutputDir:    scratch,
		PollInterval: e.Acquire.PollInterval,
		Timeout:      e.Acquire.Timeout,
	}); err != nil {
		return nil, err
	}

	dst := e.StorePath(name)
	if err := os.Rename(filepath.Join(scratch, acquireOutput), dst); err != nil {
		return nil, fmt.Errorf("failed to move acquired data: %w", err)
	}

	entry := e.Result.AddData(dst, desc)
	entry.Meta = map[string]string{"events": fmt.Sprintf("%d", events)}
	return entry, nil
}

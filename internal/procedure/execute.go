package procedure

import (
	"context"
	"errors"
	"fmt"
	"time"

	qcerrors "github.com/umdcms/qcmanager/internal/errors"
	"github.com/umdcms/qcmanager/internal/hw"
	"github.com/umdcms/qcmanager/internal/logging"
	"github.com/umdcms/qcmanager/internal/report"
	"github.com/umdcms/qcmanager/internal/session"
)

// ExecuteOptions configures a single procedure execution.
type ExecuteOptions struct {
	Session    *session.Session
	Controller *hw.Controller
	Logger     *logging.Logger
	Progress   Progress
	Acquire    AcquireSettings
}

// Execute runs a procedure against a session and always leaves a
// status-coded result behind: the result is appended to the session
// before the run starts, so interrupts and panics are still recorded.
// The session is saved on every exit path. The returned error mirrors
// the result status for the caller; a nil error means the run completed.
func Execute(ctx context.Context, proc Procedure, opts ExecuteOptions) (*report.Result, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("procedure execution requires a session")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoop()
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string, int, int) {}
	}

	result := report.NewResult(proc.Name(), proc.Arguments())
	opts.Session.Append(result)

	storeDir, err := opts.Session.ProcedureDir(proc.Name())
	if err != nil {
		result.SetStatus(report.StatusProcedureError, err.Error())
		saveErr := opts.Session.Save()
		if saveErr != nil {
			logger.Error("failed to save session", "error", saveErr)
		}
		return result, err
	}

	env := &RunEnv{
		Session:    opts.Session,
		Controller: opts.Controller,
		StoreDir:   storeDir,
		Result:     result,
		Logger:     logger.With("procedure", proc.Name()),
		Progress:   progress,
		Acquire:    opts.Acquire,
	}

	logger.Info("procedure started",
		"procedure", proc.Name(),
		"session", opts.Session.ID(),
		"store_dir", storeDir)

	runErr := runGuarded(ctx, proc, env)
	result.EndTime = time.Now()
	classify(result, runErr)

	if err := opts.Session.RelocateData(result); err != nil {
		logger.Warn("failed to relocate data paths", "error", err)
	}
	if err := opts.Session.Save(); err != nil {
		logger.Error("failed to save session", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	logger.Info("procedure finished",
		"procedure", proc.Name(),
		"status", result.Status.Code.String(),
		"duration", result.Duration())
	return result, runErr
}

// runGuarded runs the procedure and converts panics into errors so a
// misbehaving procedure cannot take the whole session down.
func runGuarded(ctx context.Context, proc Procedure, env *RunEnv) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("procedure panicked: %v", r)
		}
	}()
	return proc.Run(ctx, env)
}

// classify maps a run error onto the result's status code.
func classify(result *report.Result, err error) {
	switch {
	case err == nil:
		result.SetStatus(report.StatusComplete, "")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		result.SetStatus(report.StatusInterrupt, "run interrupted")
	case errors.Is(err, qcerrors.ErrHardware) || errors.Is(err, qcerrors.ErrTimeout):
		result.SetStatus(report.StatusHardwareError, err.Error())
	case errors.Is(err, qcerrors.ErrProcedure) || errors.Is(err, qcerrors.ErrManifest):
		result.SetStatus(report.StatusProcedureError, err.Error())
	default:
		result.SetStatus(report.StatusUnknownError, err.Error())
	}
}

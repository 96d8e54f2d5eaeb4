// Package runner drives a queue of procedures against a board session.
// It wires together hook execution, the timeout watchdog, and procedure
// execution, and reports everything that happens through events so the
// TUI and headless front ends can render progress without knowing how
// the run is orchestrated.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/umdcms/qcmanager/internal/config"
	qcerrors "github.com/umdcms/qcmanager/internal/errors"
	"github.com/umdcms/qcmanager/internal/hooks"
	"github.com/umdcms/qcmanager/internal/hw"
	"github.com/umdcms/qcmanager/internal/logging"
	"github.com/umdcms/qcmanager/internal/procedure"
	"github.com/umdcms/qcmanager/internal/report"
	"github.com/umdcms/qcmanager/internal/session"
)

// EventType identifies the kind of runner event.
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
	EventRunAborted   EventType = "run_aborted"

	EventProcedureStarted   EventType = "procedure_started"
	EventProcedureCompleted EventType = "procedure_completed"
	EventProcedureFailed    EventType = "procedure_failed"
	EventProcedureSkipped   EventType = "procedure_skipped"

	EventHooksStarted   EventType = "hooks_started"
	EventHooksCompleted EventType = "hooks_completed"

	EventProgress EventType = "progress"
	EventError    EventType = "error"
)

// Event is a notification about runner activity.
type Event struct {
	Type      EventType
	Session   string
	Procedure string
	Message   string
	Error     error
	// Current and Total describe progress within a procedure; Total is
	// zero for events that carry no progress information.
	Current   int
	Total     int
	Timestamp time.Time
}

// EventHandler receives runner events. Handlers must be fast; slow
// handlers stall the run.
type EventHandler func(Event)

// Spec names one procedure to run and the arguments to run it with.
type Spec struct {
	Name string
	Args map[string]interface{}
}

// Options configures runner behavior.
type Options struct {
	// OnEvent is called for every runner event (optional).
	OnEvent EventHandler
	// LogWriter receives a copy of run output (optional).
	LogWriter io.Writer
	// Logger for internal diagnostics. Defaults to the global logger.
	Logger *logging.Logger
}

// Outcome summarizes a completed run.
type Outcome struct {
	// Results holds the result of every procedure that was started,
	// in queue order.
	Results []*report.Result
	// Completed, Failed, and Skipped count queue entries.
	Completed int
	Failed    int
	Skipped   int
	// Aborted reports whether the queue stopped before draining.
	Aborted bool
}

// Success reports whether every queued procedure completed.
func (o *Outcome) Success() bool {
	return !o.Aborted && o.Failed == 0
}

// Runner executes procedure queues against a session.
type Runner struct {
	session     *session.Session
	controller  *hw.Controller
	registry    *procedure.Registry
	hookManager *hooks.Manager
	cfg         *config.Config
	opts        Options
	logger      *logging.Logger
}

// New creates a Runner. The controller may be nil when every queued
// procedure runs without hardware.
func New(sess *session.Session, ctrl *hw.Controller, reg *procedure.Registry, hookMgr *hooks.Manager, cfg *config.Config, opts Options) (*Runner, error) {
	if sess == nil {
		return nil, fmt.Errorf("runner requires a session")
	}
	if reg == nil {
		return nil, fmt.Errorf("runner requires a procedure registry")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Global()
	}
	return &Runner{
		session:     sess,
		controller:  ctrl,
		registry:    reg,
		hookManager: hookMgr,
		cfg:         cfg,
		opts:        opts,
		logger:      logger.With("session", sess.ID()),
	}, nil
}

// emit sends an event to the handler if one is set.
func (r *Runner) emit(eventType EventType, procName, message string, err error) {
	if r.opts.OnEvent == nil {
		return
	}
	r.opts.OnEvent(Event{
		Type:      eventType,
		Session:   r.session.ID(),
		Procedure: procName,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	})
}

// emitProgress sends a progress event for a running procedure.
func (r *Runner) emitProgress(procName, desc string, current, total int) {
	if r.opts.OnEvent == nil {
		return
	}
	r.opts.OnEvent(Event{
		Type:      EventProgress,
		Session:   r.session.ID(),
		Procedure: procName,
		Message:   desc,
		Current:   current,
		Total:     total,
		Timestamp: time.Now(),
	})
}

// Run executes the queue in order. A procedure failure fails that queue
// entry and continues with the next one; hooks configured with
// abort_session, context cancellation, and hardware loss abort the
// remainder of the queue.
func (r *Runner) Run(ctx context.Context, queue []Spec) (*Outcome, error) {
	outcome := &Outcome{}

	r.emit(EventRunStarted, "", fmt.Sprintf("Running %d procedure(s)", len(queue)), nil)
	r.logger.Info("run started", "procedures", len(queue))

	for _, spec := range queue {
		if err := ctx.Err(); err != nil {
			outcome.Aborted = true
			r.emit(EventRunAborted, spec.Name, "run cancelled", err)
			return outcome, err
		}

		result, err := r.runOne(ctx, spec, outcome)
		if result != nil {
			outcome.Results = append(outcome.Results, result)
		}
		if err != nil {
			var abort *abortError
			if errors.As(err, &abort) {
				outcome.Aborted = true
				r.emit(EventRunAborted, spec.Name, abort.reason, abort.cause)
				r.logger.Error("run aborted", "procedure", spec.Name, "reason", abort.reason)
				return outcome, abort.cause
			}
			outcome.Failed++
			continue
		}
	}

	if outcome.Failed > 0 {
		r.emit(EventRunFailed, "", fmt.Sprintf("%d of %d procedure(s) failed", outcome.Failed, len(queue)), nil)
	} else {
		r.emit(EventRunCompleted, "", "All procedures completed", nil)
	}
	r.logger.Info("run finished",
		"completed", outcome.Completed,
		"failed", outcome.Failed,
		"skipped", outcome.Skipped)
	return outcome, nil
}

// abortError stops the queue. cause carries the underlying error when
// one exists; reason is always set.
type abortError struct {
	reason string
	cause  error
}

func (e *abortError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.reason, e.cause)
	}
	return e.reason
}

func (e *abortError) Unwrap() error { return e.cause }

// runOne executes a single queue entry: pre-hooks, the procedure under
// a watchdog, then post-hooks. It updates outcome counters and returns
// an abortError when the queue must stop.
func (r *Runner) runOne(ctx context.Context, spec Spec, outcome *Outcome) (*report.Result, error) {
	proc, err := r.registry.Build(spec.Name, spec.Args)
	if err != nil {
		r.emit(EventProcedureFailed, spec.Name, "failed to build procedure", err)
		r.logger.Error("failed to build procedure", "procedure", spec.Name, "error", err)
		return nil, err
	}

	// Pre-procedure hooks.
	if r.hookManager != nil && r.hookManager.HasPreProcedureHooks() {
		r.emit(EventHooksStarted, spec.Name, "Running pre-procedure hooks", nil)
		hookCtx := hooks.BuildHookContextForPre(r.session, spec.Name)
		hookResult := r.hookManager.ExecutePreProcedureHooks(ctx, hookCtx)
		r.logHookOutput(hookResult)

		switch hookResult.Action {
		case hooks.ManagerActionAbortSession:
			return nil, &abortError{
				reason: fmt.Sprintf("pre-procedure hook aborted session: %s", r.hookManager.GetFailedHookInfo(hookResult)),
			}
		case hooks.ManagerActionSkipProcedure:
			outcome.Skipped++
			msg := fmt.Sprintf("skipped by pre-procedure hook: %s", r.hookManager.GetFailedHookInfo(hookResult))
			r.emit(EventProcedureSkipped, spec.Name, msg, nil)
			r.logger.Warn("procedure skipped by hook", "procedure", spec.Name)
			return nil, nil
		}
		r.emit(EventHooksCompleted, spec.Name, "Pre-procedure hooks completed", nil)
	}

	r.emit(EventProcedureStarted, spec.Name, "", nil)

	// Watchdog: the active limit bounds the whole run, the stuck limit
	// bounds the gap between progress reports.
	monitor := config.NewTimeoutMonitor(r.cfg.Timeout)
	procCtx, cancel := monitor.ContextWithDeadline(ctx)

	result, runErr := procedure.Execute(procCtx, proc, procedure.ExecuteOptions{
		Session:    r.session,
		Controller: r.controller,
		Logger:     r.logger,
		Progress: func(desc string, current, total int) {
			monitor.RecordProgress()
			r.emitProgress(spec.Name, desc, current, total)
		},
		Acquire: procedure.AcquireSettings{
			PollInterval: r.cfg.Acquire.PollInterval,
			Timeout:      r.cfg.Acquire.Timeout,
		},
	})
	cancel()

	// A watchdog expiry surfaces as a context error inside Execute;
	// rewrite the status so the report says which limit fired.
	if runErr != nil && monitor.IsExpired() {
		if timeoutErr := monitor.Err(); timeoutErr != nil && result != nil {
			result.SetStatus(report.StatusHardwareError, timeoutErr.Error())
			if saveErr := r.session.Save(); saveErr != nil {
				r.logger.Error("failed to save session", "error", saveErr)
			}
			runErr = qcerrors.Wrap(timeoutErr, qcerrors.ErrTimeout, "procedure watchdog expired")
		}
	}

	// Post-procedure hooks run even when the procedure failed so
	// notification hooks can report the failure.
	if r.hookManager != nil && r.hookManager.HasPostProcedureHooks() {
		r.emit(EventHooksStarted, spec.Name, "Running post-procedure hooks", nil)
		hookCtx := hooks.BuildHookContextForPost(r.session, spec.Name, result)
		hookResult := r.hookManager.ExecutePostProcedureHooks(ctx, hookCtx)
		r.logHookOutput(hookResult)

		if hookResult.Action == hooks.ManagerActionAbortSession {
			if runErr == nil {
				outcome.Completed++
			} else {
				outcome.Failed++
			}
			return result, &abortError{
				reason: fmt.Sprintf("post-procedure hook aborted session: %s", r.hookManager.GetFailedHookInfo(hookResult)),
				cause:  runErr,
			}
		}
		r.emit(EventHooksCompleted, spec.Name, "Post-procedure hooks completed", nil)
	}

	if runErr != nil {
		r.emit(EventProcedureFailed, spec.Name, statusMessage(result), runErr)
		// Interrupts and hardware loss leave the board in an unknown
		// state; stop the queue rather than run into it.
		if errors.Is(runErr, context.Canceled) {
			outcome.Failed++
			return result, &abortError{reason: "run interrupted", cause: runErr}
		}
		if errors.Is(runErr, qcerrors.ErrHardware) {
			outcome.Failed++
			return result, &abortError{reason: "hardware failure", cause: runErr}
		}
		return result, runErr
	}

	outcome.Completed++
	r.emit(EventProcedureCompleted, spec.Name, "", nil)
	return result, nil
}

// logHookOutput copies hook output to the configured log writer.
func (r *Runner) logHookOutput(hookResult *hooks.ManagerResult) {
	if r.opts.LogWriter == nil || hookResult == nil {
		return
	}
	for _, res := range hookResult.Results {
		if res.Output != "" {
			_, _ = io.WriteString(r.opts.LogWriter, res.Output)
		}
	}
}

// statusMessage extracts a displayable message from a result.
func statusMessage(result *report.Result) string {
	if result == nil {
		return ""
	}
	return result.Status.Message
}

// Package tui provides the terminal user interface for qcman.
// This file bridges runner events into Bubble Tea messages so the TUI
// can render a run it does not drive.
package tui

import (
	"bytes"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/umdcms/qcmanager/internal/runner"
)

// EventBridge translates runner events to TUI messages.
// It implements the runner.EventHandler signature and sends the
// corresponding messages to the Bubble Tea program.
type EventBridge struct {
	program *tea.Program
	startAt time.Time

	mu        sync.Mutex
	completed int
	failed    int
	skipped   int
	total     int
	procStart time.Time
}

// NewEventBridge creates a new EventBridge.
func NewEventBridge(program *tea.Program, queueLen int) *EventBridge {
	return &EventBridge{
		program: program,
		startAt: time.Now(),
		total:   queueLen,
	}
}

// HandleEvent processes a runner event. Pass this as Options.OnEvent.
func (b *EventBridge) HandleEvent(event runner.Event) {
	if b.program == nil {
		return
	}

	switch event.Type {
	case runner.EventRunStarted:
		b.program.Send(RunStateMsg{
			State:      "running",
			CurrentMsg: event.Message,
		})

	case runner.EventRunCompleted:
		b.program.Send(RunStateMsg{
			State:      "completed",
			CurrentMsg: event.Message,
		})

	case runner.EventRunFailed:
		b.program.Send(RunStateMsg{
			State:      "failed",
			CurrentMsg: event.Message,
		})

	case runner.EventRunAborted:
		b.program.Send(RunStateMsg{
			State:      "aborted",
			CurrentMsg: event.Message,
		})
		if event.Error != nil {
			b.program.Send(ErrorMsg{Error: event.Error.Error()})
		}

	case runner.EventProcedureStarted:
		b.mu.Lock()
		b.procStart = time.Now()
		b.mu.Unlock()
		b.program.Send(ProcedureStartedMsg{Name: event.Procedure})

	case runner.EventProcedureCompleted:
		b.finishProcedure(event, "completed")

	case runner.EventProcedureSkipped:
		b.finishProcedure(event, "skipped")

	case runner.EventProcedureFailed:
		b.finishProcedure(event, "failed")

	case runner.EventProgress:
		b.program.Send(ProgressMsg{
			Procedure: event.Procedure,
			Label:     event.Message,
			Current:   event.Current,
			Total:     event.Total,
		})

	case runner.EventError:
		if event.Error != nil {
			b.program.Send(ErrorMsg{Error: event.Error.Error()})
		}
	}
}

// finishProcedure sends the finished message and updated counters.
func (b *EventBridge) finishProcedure(event runner.Event, status string) {
	b.mu.Lock()
	switch status {
	case "completed":
		b.completed++
	case "failed":
		b.failed++
	case "skipped":
		b.skipped++
	}
	duration := time.Since(b.procStart)
	counts := CountsMsg{
		Completed: b.completed,
		Failed:    b.failed,
		Skipped:   b.skipped,
		Total:     b.total,
	}
	b.mu.Unlock()

	message := event.Message
	if message == "" && event.Error != nil {
		message = event.Error.Error()
	}

	b.program.Send(ProcedureFinishedMsg{
		Name:     event.Procedure,
		Status:   status,
		Message:  message,
		Duration: duration,
	})
	b.program.Send(counts)
}

// OutputWriter wraps a tea.Program to send run output as TUI messages.
// It implements io.Writer and buffers partial lines before sending.
type OutputWriter struct {
	program *tea.Program
	buffer  bytes.Buffer
	mu      sync.Mutex
}

// NewOutputWriter creates a new OutputWriter.
func NewOutputWriter(program *tea.Program) *OutputWriter {
	return &OutputWriter{
		program: program,
	}
}

// Write implements io.Writer. It buffers data and sends complete lines
// as LogLineMsg messages to the TUI.
func (w *OutputWriter) Write(p []byte) (n int, err error) {
	if w.program == nil {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	n, err = w.buffer.Write(p)
	if err != nil {
		return n, err
	}

	for {
		line, readErr := w.buffer.ReadString('\n')
		if readErr == io.EOF {
			// No complete line yet, put the partial line back
			if len(line) > 0 {
				w.buffer.WriteString(line)
			}
			break
		}
		if readErr != nil {
			return n, readErr
		}

		if len(line) > 0 && line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}
		w.program.Send(LogLineMsg{Line: line})
	}

	return n, nil
}

// Flush sends any remaining buffered content.
func (w *OutputWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buffer.Len() > 0 {
		if w.program != nil {
			w.program.Send(LogLineMsg{Line: w.buffer.String()})
		}
		w.buffer.Reset()
	}
}

// AppRunner coordinates the TUI and the procedure runner.
type AppRunner struct {
	model        *Model
	program      *tea.Program
	bridge       *EventBridge
	outputWriter *OutputWriter
}

// NewAppRunner creates an AppRunner for the given run.
func NewAppRunner(info SessionInfo, queue []string) *AppRunner {
	model := New()
	model.SetSessionInfo(info)
	model.SetQueue(queue)

	program := tea.NewProgram(model, tea.WithAltScreen())

	return &AppRunner{
		model:        model,
		program:      program,
		bridge:       NewEventBridge(program, len(queue)),
		outputWriter: NewOutputWriter(program),
	}
}

// SessionInfo holds session information for the TUI header.
type SessionInfo struct {
	BoardType   string
	BoardID     string
	StoreDir    string
	Fingerprint string
}

// ConfigureRunner wires TUI event handling into runner options.
func (r *AppRunner) ConfigureRunner(opts *runner.Options) {
	opts.OnEvent = r.bridge.HandleEvent
	opts.LogWriter = r.outputWriter
}

// Run runs the TUI and the procedure run concurrently. The run executes
// in a goroutine while the TUI owns the terminal; it returns when both
// the TUI has exited and the run outcome is known.
func (r *AppRunner) Run(doRun func() error) error {
	runDone := make(chan error, 1)

	go func() {
		err := doRun()
		runDone <- err

		if r.program != nil {
			r.outputWriter.Flush()
			r.program.Send(QuitMsg{Reason: "Run finished"})
		}
	}()

	_, tuiErr := r.program.Run()

	select {
	case runErr := <-runDone:
		if runErr != nil {
			return runErr
		}
	default:
		// Run still going; the TUI was quit early.
	}

	if tuiErr != nil {
		return tuiErr
	}

	return nil
}

// Program returns the tea.Program for external access.
func (r *AppRunner) Program() *tea.Program {
	return r.program
}

// Model returns the TUI model for external access.
func (r *AppRunner) Model() *Model {
	return r.model
}

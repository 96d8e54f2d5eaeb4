package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// OutputFormat defines the output format for headless mode.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// HeadlessConfig configures headless output.
type HeadlessConfig struct {
	OutputFormat OutputFormat
	Verbose      bool
	Writer       io.Writer
}

// DefaultHeadlessConfig returns the default headless configuration.
func DefaultHeadlessConfig() *HeadlessConfig {
	return &HeadlessConfig{OutputFormat: OutputFormatText}
}

// HeadlessRunner renders runner events without a TUI, for scripted and
// CI use. Text mode streams one line per event; JSON mode buffers
// events and emits a single document via WriteJSONOutput.
type HeadlessRunner struct {
	config    HeadlessConfig
	startTime time.Time
	collected []JSONEvent
}

// JSONEvent is the JSON representation of a runner event.
type JSONEvent struct {
	Timestamp string    `json:"timestamp"`
	Type      EventType `json:"type"`
	Procedure string    `json:"procedure,omitempty"`
	Message   string    `json:"message,omitempty"`
	Current   int       `json:"current,omitempty"`
	Total     int       `json:"total,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// JSONOutput is the complete JSON output of a headless run.
type JSONOutput struct {
	Session            string            `json:"session"`
	StartTime          string            `json:"start_time"`
	EndTime            string            `json:"end_time"`
	Duration           string            `json:"duration"`
	ProceduresTotal    int               `json:"procedures_total"`
	ProceduresComplete int               `json:"procedures_complete"`
	ProceduresFailed   int               `json:"procedures_failed"`
	ProceduresSkipped  int               `json:"procedures_skipped"`
	Aborted            bool              `json:"aborted"`
	Summary            map[string]string `json:"summary"`
	Events             []JSONEvent       `json:"events,omitempty"`
}

// NewHeadlessRunner creates a headless event renderer.
func NewHeadlessRunner(config *HeadlessConfig) *HeadlessRunner {
	if config == nil {
		config = DefaultHeadlessConfig()
	}
	if config.OutputFormat == "" {
		config.OutputFormat = OutputFormatText
	}
	return &HeadlessRunner{
		config:    *config,
		startTime: time.Now(),
	}
}

// HandleEvent processes a runner event. Pass this as Options.OnEvent.
func (h *HeadlessRunner) HandleEvent(event Event) {
	if h.config.OutputFormat == OutputFormatJSON {
		h.collect(event)
		return
	}
	if h.config.Writer == nil {
		return
	}
	if line := h.textLine(event); line != "" {
		fmt.Fprintln(h.config.Writer, line)
	}
}

// textLine renders one event as a log line, or "" when the event is
// suppressed at the current verbosity.
func (h *HeadlessRunner) textLine(event Event) string {
	prefix := fmt.Sprintf("[%s]", formatElapsed(time.Since(h.startTime)))

	switch event.Type {
	case EventRunStarted:
		return fmt.Sprintf("🚀 %s %s", prefix, event.Message)
	case EventRunCompleted:
		return fmt.Sprintf("🎉 %s %s", prefix, event.Message)
	case EventRunFailed:
		return fmt.Sprintf("❌ %s %s", prefix, event.Message)
	case EventRunAborted:
		return fmt.Sprintf("🛑 %s Run aborted: %s", prefix, event.Message)
	case EventProcedureStarted:
		return fmt.Sprintf("▶️  %s Starting procedure: %s", prefix, event.Procedure)
	case EventProcedureCompleted:
		return fmt.Sprintf("✅ %s Procedure completed: %s", prefix, event.Procedure)
	case EventProcedureSkipped:
		return fmt.Sprintf("⏭️  %s Procedure skipped: %s - %s", prefix, event.Procedure, event.Message)
	case EventProcedureFailed:
		return fmt.Sprintf("❌ %s Procedure failed: %s - %s", prefix, event.Procedure, errString(event.Error))
	case EventError:
		return fmt.Sprintf("⚠️  %s %s", prefix, errString(event.Error))
	}

	if !h.config.Verbose {
		return ""
	}
	switch event.Type {
	case EventHooksStarted, EventHooksCompleted:
		return fmt.Sprintf("   %s %s", prefix, event.Message)
	case EventProgress:
		if event.Total > 0 {
			return fmt.Sprintf("   %s %s: %d/%d", prefix, event.Message, event.Current, event.Total)
		}
		return ""
	}
	return fmt.Sprintf("   %s %s: %s", prefix, event.Type, event.Message)
}

func (h *HeadlessRunner) collect(event Event) {
	h.collected = append(h.collected, JSONEvent{
		Timestamp: event.Timestamp.Format(time.RFC3339),
		Type:      event.Type,
		Procedure: event.Procedure,
		Message:   event.Message,
		Current:   event.Current,
		Total:     event.Total,
		Error:     errString(event.Error),
	})
}

// WriteJSONOutput writes the complete JSON output. Call it after the
// run finishes; in text mode it is a no-op.
func (h *HeadlessRunner) WriteJSONOutput(sessionID string, outcome *Outcome) error {
	if h.config.OutputFormat != OutputFormatJSON || h.config.Writer == nil {
		return nil
	}

	endTime := time.Now()
	output := JSONOutput{
		Session:            sessionID,
		StartTime:          h.startTime.Format(time.RFC3339),
		EndTime:            endTime.Format(time.RFC3339),
		Duration:           endTime.Sub(h.startTime).Round(time.Second).String(),
		ProceduresTotal:    outcome.Completed + outcome.Failed + outcome.Skipped,
		ProceduresComplete: outcome.Completed,
		ProceduresFailed:   outcome.Failed,
		ProceduresSkipped:  outcome.Skipped,
		Aborted:            outcome.Aborted,
		Summary:            summaryFor(outcome),
		Events:             h.collected,
	}

	encoder := json.NewEncoder(h.config.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// PrintSummary prints a final status block for text output. JSON mode
// carries its summary inside the document instead.
func (h *HeadlessRunner) PrintSummary(sessionID string, outcome *Outcome) {
	w := h.config.Writer
	if h.config.OutputFormat == OutputFormatJSON || w == nil {
		return
	}

	rule := strings.Repeat("─", 60)
	summary := summaryFor(outcome)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Session: %s\n", sessionID)
	fmt.Fprintf(w, "Duration: %s\n", time.Since(h.startTime).Round(time.Second))
	fmt.Fprintf(w, "Procedures: %d completed, %d failed, %d skipped\n",
		outcome.Completed, outcome.Failed, outcome.Skipped)
	fmt.Fprintf(w, "Status: %s %s\n", statusGlyph(summary["status"]), summary["message"])
	fmt.Fprintln(w, rule)
}

// summaryFor classifies a finished run for reporting.
func summaryFor(outcome *Outcome) map[string]string {
	switch {
	case outcome.Aborted:
		return map[string]string{
			"status":  "aborted",
			"message": "Run aborted before the queue finished",
		}
	case outcome.Failed > 0:
		return map[string]string{
			"status":  "failure",
			"message": fmt.Sprintf("%d procedure(s) failed", outcome.Failed),
		}
	default:
		return map[string]string{
			"status":  "success",
			"message": "All procedures completed successfully",
		}
	}
}

func statusGlyph(status string) string {
	switch status {
	case "aborted":
		return "🛑"
	case "failure":
		return "❌"
	default:
		return "✅"
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// formatElapsed formats duration as MM:SS or HH:MM:SS.
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

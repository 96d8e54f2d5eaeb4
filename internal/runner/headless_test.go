package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewHeadlessRunner(t *testing.T) {
	t.Run("with nil config uses defaults", func(t *testing.T) {
		runner := NewHeadlessRunner(nil)
		if runner == nil {
			t.Fatal("expected non-nil runner")
		}
		if runner.config.OutputFormat != OutputFormatText {
			t.Errorf("expected text output format, got %s", runner.config.OutputFormat)
		}
	})

	t.Run("with custom config", func(t *testing.T) {
		cfg := &HeadlessConfig{
			OutputFormat: OutputFormatJSON,
			Verbose:      true,
		}
		runner := NewHeadlessRunner(cfg)
		if runner.config.OutputFormat != OutputFormatJSON {
			t.Errorf("expected JSON output format, got %s", runner.config.OutputFormat)
		}
		if !runner.config.Verbose {
			t.Error("expected verbose to be true")
		}
	})
}

func TestDefaultHeadlessConfig(t *testing.T) {
	cfg := DefaultHeadlessConfig()
	if cfg.OutputFormat != OutputFormatText {
		t.Errorf("expected text output format, got %s", cfg.OutputFormat)
	}
	if cfg.Verbose {
		t.Error("expected verbose to be false by default")
	}
}

func TestHeadlessRunner_HandleEvent_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	runner := NewHeadlessRunner(&HeadlessConfig{
		OutputFormat: OutputFormatText,
		Writer:       buf,
	})

	tests := []struct {
		name       string
		event      Event
		wantOutput string
	}{
		{
			name:       "run started",
			event:      Event{Type: EventRunStarted, Message: "Running 2 procedure(s)"},
			wantOutput: "🚀",
		},
		{
			name:       "run completed",
			event:      Event{Type: EventRunCompleted, Message: "All procedures completed"},
			wantOutput: "🎉",
		},
		{
			name:       "run aborted",
			event:      Event{Type: EventRunAborted, Message: "hardware failure"},
			wantOutput: "hardware failure",
		},
		{
			name:       "procedure started",
			event:      Event{Type: EventProcedureStarted, Procedure: "pedestal"},
			wantOutput: "pedestal",
		},
		{
			name:       "procedure failed",
			event:      Event{Type: EventProcedureFailed, Procedure: "pedestal", Error: errors.New("acquire timeout")},
			wantOutput: "acquire timeout",
		},
		{
			name:       "procedure skipped",
			event:      Event{Type: EventProcedureSkipped, Procedure: "confdump", Message: "skipped by pre-procedure hook"},
			wantOutput: "⏭️",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			runner.HandleEvent(tt.event)
			if !strings.Contains(buf.String(), tt.wantOutput) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.wantOutput)
			}
		})
	}
}

func TestHeadlessRunner_HandleEvent_VerboseOnly(t *testing.T) {
	buf := &bytes.Buffer{}
	quiet := NewHeadlessRunner(&HeadlessConfig{
		OutputFormat: OutputFormatText,
		Writer:       buf,
	})

	progress := Event{Type: EventProgress, Procedure: "pedestal", Message: "pedestal batches", Current: 2, Total: 5}
	hooksStarted := Event{Type: EventHooksStarted, Message: "Running pre-procedure hooks"}

	quiet.HandleEvent(progress)
	quiet.HandleEvent(hooksStarted)
	if buf.Len() != 0 {
		t.Errorf("non-verbose output should be empty, got %q", buf.String())
	}

	verbose := NewHeadlessRunner(&HeadlessConfig{
		OutputFormat: OutputFormatText,
		Verbose:      true,
		Writer:       buf,
	})
	verbose.HandleEvent(progress)
	if !strings.Contains(buf.String(), "2/5") {
		t.Errorf("verbose output %q should contain progress counts", buf.String())
	}
	buf.Reset()
	verbose.HandleEvent(hooksStarted)
	if !strings.Contains(buf.String(), "pre-procedure hooks") {
		t.Errorf("verbose output %q should mention hooks", buf.String())
	}
}

func TestHeadlessRunner_HandleEvent_JSONCollects(t *testing.T) {
	buf := &bytes.Buffer{}
	runner := NewHeadlessRunner(&HeadlessConfig{
		OutputFormat: OutputFormatJSON,
		Writer:       buf,
	})

	runner.HandleEvent(Event{
		Type:      EventProcedureStarted,
		Procedure: "pedestal",
		Timestamp: time.Now(),
	})
	runner.HandleEvent(Event{
		Type:      EventProcedureFailed,
		Procedure: "pedestal",
		Error:     errors.New("daq connection lost"),
		Timestamp: time.Now(),
	})

	// JSON mode buffers events until WriteJSONOutput.
	if buf.Len() != 0 {
		t.Errorf("JSON mode should not write per-event, got %q", buf.String())
	}
	if len(runner.collected) != 2 {
		t.Fatalf("buffered events = %d, want 2", len(runner.collected))
	}
	if runner.collected[1].Error != "daq connection lost" {
		t.Errorf("event error = %q, want daq connection lost", runner.collected[1].Error)
	}
}

func TestHeadlessRunner_WriteJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	runner := NewHeadlessRunner(&HeadlessConfig{
		OutputFormat: OutputFormatJSON,
		Writer:       buf,
	})

	runner.HandleEvent(Event{Type: EventProcedureCompleted, Procedure: "pedestal", Timestamp: time.Now()})

	outcome := &Outcome{Completed: 2, Failed: 1}
	if err := runner.WriteJSONOutput("tileboard.TB001", outcome); err != nil {
		t.Fatalf("WriteJSONOutput() error = %v", err)
	}

	var output JSONOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if output.Session != "tileboard.TB001" {
		t.Errorf("session = %q, want tileboard.TB001", output.Session)
	}
	if output.ProceduresTotal != 3 || output.ProceduresComplete != 2 || output.ProceduresFailed != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1",
			output.ProceduresTotal, output.ProceduresComplete, output.ProceduresFailed)
	}
	if output.Summary["status"] != "failure" {
		t.Errorf("summary status = %q, want failure", output.Summary["status"])
	}
	if len(output.Events) != 1 {
		t.Errorf("events = %d, want 1", len(output.Events))
	}
}

func TestHeadlessRunner_WriteJSONOutput_SuccessAndAborted(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		buf := &bytes.Buffer{}
		runner := NewHeadlessRunner(&HeadlessConfig{OutputFormat: OutputFormatJSON, Writer: buf})
		if err := runner.WriteJSONOutput("tileboard.TB001", &Outcome{Completed: 1}); err != nil {
			t.Fatalf("WriteJSONOutput() error = %v", err)
		}
		var output JSONOutput
		if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if output.Summary["status"] != "success" {
			t.Errorf("status = %q, want success", output.Summary["status"])
		}
	})

	t.Run("aborted", func(t *testing.T) {
		buf := &bytes.Buffer{}
		runner := NewHeadlessRunner(&HeadlessConfig{OutputFormat: OutputFormatJSON, Writer: buf})
		if err := runner.WriteJSONOutput("tileboard.TB001", &Outcome{Completed: 1, Aborted: true}); err != nil {
			t.Fatalf("WriteJSONOutput() error = %v", err)
		}
		var output JSONOutput
		if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if output.Summary["status"] != "aborted" {
			t.Errorf("status = %q, want aborted", output.Summary["status"])
		}
		if !output.Aborted {
			t.Error("aborted flag should be set")
		}
	})
}

func TestHeadlessRunner_WriteJSONOutput_TextModeNoop(t *testing.T) {
	buf := &bytes.Buffer{}
	runner := NewHeadlessRunner(&HeadlessConfig{OutputFormat: OutputFormatText, Writer: buf})
	if err := runner.WriteJSONOutput("tileboard.TB001", &Outcome{}); err != nil {
		t.Fatalf("WriteJSONOutput() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("text mode should not write JSON, got %q", buf.String())
	}
}

func TestHeadlessRunner_PrintSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	runner := NewHeadlessRunner(&HeadlessConfig{OutputFormat: OutputFormatText, Writer: buf})

	runner.PrintSummary("tileboard.TB001", &Outcome{Completed: 3, Failed: 1, Skipped: 1})

	out := buf.String()
	if !strings.Contains(out, "tileboard.TB001") {
		t.Errorf("summary %q should name the session", out)
	}
	if !strings.Contains(out, "3 completed, 1 failed, 1 skipped") {
		t.Errorf("summary %q should list counts", out)
	}
	if !strings.Contains(out, "❌") {
		t.Errorf("summary %q should flag the failure", out)
	}
}

func TestHeadlessRunner_PrintSummary_JSONModeNoop(t *testing.T) {
	buf := &bytes.Buffer{}
	runner := NewHeadlessRunner(&HeadlessConfig{OutputFormat: OutputFormatJSON, Writer: buf})
	runner.PrintSummary("tileboard.TB001", &Outcome{})
	if buf.Len() != 0 {
		t.Errorf("JSON mode should not print a text summary, got %q", buf.String())
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "00:42"},
		{5*time.Minute + 3*time.Second, "05:03"},
		{time.Hour + 2*time.Minute + 1*time.Second, "01:02:01"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

package runner

import (
	"context"
	"testing"
	"time"

	"github.com/umdcms/qcmanager/internal/config"
	qcerrors "github.com/umdcms/qcmanager/internal/errors"
	"github.com/umdcms/qcmanager/internal/hooks"
	"github.com/umdcms/qcmanager/internal/procedure"
	"github.com/umdcms/qcmanager/internal/report"
	"github.com/umdcms/qcmanager/internal/session"
)

// fakeProcedure is a scripted procedure for runner tests.
type fakeProcedure struct {
	name    string
	runFunc func(ctx context.Context, env *procedure.RunEnv) error
}

func (p *fakeProcedure) Name() string        { return p.name }
func (p *fakeProcedure) Description() string { return "fake procedure for tests" }

func (p *fakeProcedure) Arguments() map[string]interface{} {
	return map[string]interface{}{}
}
func (p *fakeProcedure) Run(ctx context.Context, env *procedure.RunEnv) error {
	if p.runFunc != nil {
		return p.runFunc(ctx, env)
	}
	return nil
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	store := session.NewStore(t.TempDir())
	sess, err := store.Create("tileboard", "TB001")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return sess
}

func newTestRegistry(procs ...*fakeProcedure) *procedure.Registry {
	reg := procedure.NewRegistry()
	for _, p := range procs {
		p := p
		reg.Register(procedure.Entry{Name: p.name, Description: p.Description()},
			func() procedure.Procedure { return p })
	}
	return reg
}

func newTestRunner(t *testing.T, reg *procedure.Registry, hookMgr *hooks.Manager, opts Options) (*Runner, *session.Session) {
	t.Helper()
	sess := newTestSession(t)
	r, err := New(sess, nil, reg, hookMgr, config.NewConfig(), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r, sess
}

// collectEvents returns an Options with an event recorder attached.
func collectEvents(events *[]Event) Options {
	return Options{OnEvent: func(e Event) { *events = append(*events, e) }}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func hasEvent(events []Event, eventType EventType) bool {
	for _, e := range events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func TestNew_RequiresSession(t *testing.T) {
	if _, err := New(nil, nil, procedure.NewRegistry(), nil, config.NewConfig(), Options{}); err == nil {
		t.Error("New() with nil session should fail")
	}
}

func TestNew_RequiresRegistry(t *testing.T) {
	sess := newTestSession(t)
	if _, err := New(sess, nil, nil, nil, config.NewConfig(), Options{}); err == nil {
		t.Error("New() with nil registry should fail")
	}
}

func TestRun_ForwardsAcquireConfig(t *testing.T) {
	var got procedure.AcquireSettings
	reg := newTestRegistry(&fakeProcedure{
		name: "capture",
		runFunc: func(ctx context.Context, env *procedure.RunEnv) error {
			got = env.Acquire
			return nil
		},
	})

	cfg := config.NewConfig()
	cfg.Acquire.PollInterval = 250 * time.Millisecond
	cfg.Acquire.Timeout = 2 * time.Minute

	sess := newTestSession(t)
	r, err := New(sess, nil, reg, nil, cfg, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := r.Run(context.Background(), []Spec{{Name: "capture"}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got.PollInterval != cfg.Acquire.PollInterval || got.Timeout != cfg.Acquire.Timeout {
		t.Errorf("acquire settings = %+v, want poll %v timeout %v",
			got, cfg.Acquire.PollInterval, cfg.Acquire.Timeout)
	}
}

func TestRun_AllComplete(t *testing.T) {
	reg := newTestRegistry(
		&fakeProcedure{name: "first"},
		&fakeProcedure{name: "second"},
	)
	var events []Event
	r, sess := newTestRunner(t, reg, nil, collectEvents(&events))

	outcome, err := r.Run(context.Background(), []Spec{{Name: "first"}, {Name: "second"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !outcome.Success() {
		t.Error("outcome should be a success")
	}
	if outcome.Completed != 2 || outcome.Failed != 0 || outcome.Skipped != 0 {
		t.Errorf("outcome = %d/%d/%d, want 2/0/0",
			outcome.Completed, outcome.Failed, outcome.Skipped)
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(outcome.Results))
	}
	if len(sess.Results) != 2 {
		t.Errorf("session has %d results, want 2", len(sess.Results))
	}

	want := []EventType{
		EventRunStarted,
		EventProcedureStarted, EventProcedureCompleted,
		EventProcedureStarted, EventProcedureCompleted,
		EventRunCompleted,
	}
	got := eventTypes(events)
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRun_ProcedureFailureContinuesQueue(t *testing.T) {
	reg := newTestRegistry(
		&fakeProcedure{name: "broken", runFunc: func(ctx context.Context, env *procedure.RunEnv) error {
			return qcerrors.New(qcerrors.ErrProcedure, "bad argument")
		}},
		&fakeProcedure{name: "healthy"},
	)
	var events []Event
	r, _ := newTestRunner(t, reg, nil, collectEvents(&events))

	outcome, err := r.Run(context.Background(), []Spec{{Name: "broken"}, {Name: "healthy"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Success() {
		t.Error("outcome should not be a success")
	}
	if outcome.Completed != 1 || outcome.Failed != 1 {
		t.Errorf("outcome = %d completed, %d failed, want 1/1",
			outcome.Completed, outcome.Failed)
	}
	if !hasEvent(events, EventProcedureFailed) {
		t.Error("expected a procedure_failed event")
	}
	if !hasEvent(events, EventRunFailed) {
		t.Error("expected a run_failed event")
	}
	if outcome.Results[0].Status.Code != report.StatusProcedureError {
		t.Errorf("first result status = %v, want procedure_error", outcome.Results[0].Status.Code)
	}
}

func TestRun_HardwareErrorAbortsQueue(t *testing.T) {
	reg := newTestRegistry(
		&fakeProcedure{name: "acquire", runFunc: func(ctx context.Context, env *procedure.RunEnv) error {
			return qcerrors.New(qcerrors.ErrHardware, "daq connection lost")
		}},
		&fakeProcedure{name: "never-runs"},
	)
	var events []Event
	r, _ := newTestRunner(t, reg, nil, collectEvents(&events))

	outcome, err := r.Run(context.Background(), []Spec{{Name: "acquire"}, {Name: "never-runs"}})
	if err == nil {
		t.Fatal("Run() should return the hardware error")
	}
	if !outcome.Aborted {
		t.Error("outcome should be aborted")
	}
	if len(outcome.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1 (queue stopped)", len(outcome.Results))
	}
	if outcome.Results[0].Status.Code != report.StatusHardwareError {
		t.Errorf("result status = %v, want hardware_error", outcome.Results[0].Status.Code)
	}
	if !hasEvent(events, EventRunAborted) {
		t.Error("expected a run_aborted event")
	}
}

func TestRun_CancelledContextAborts(t *testing.T) {
	reg := newTestRegistry(&fakeProcedure{name: "noop"})
	r, _ := newTestRunner(t, reg, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := r.Run(ctx, []Spec{{Name: "noop"}})
	if err == nil {
		t.Fatal("Run() with cancelled context should fail")
	}
	if !outcome.Aborted {
		t.Error("outcome should be aborted")
	}
	if outcome.Completed != 0 {
		t.Errorf("Completed = %d, want 0", outcome.Completed)
	}
}

func TestRun_InterruptDuringProcedureAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := newTestRegistry(
		&fakeProcedure{name: "slow", runFunc: func(ctx context.Context, env *procedure.RunEnv) error {
			cancel()
			return ctx.Err()
		}},
		&fakeProcedure{name: "never-runs"},
	)
	r, _ := newTestRunner(t, reg, nil, Options{})

	outcome, err := r.Run(ctx, []Spec{{Name: "slow"}, {Name: "never-runs"}})
	if err == nil {
		t.Fatal("Run() should return the interrupt error")
	}
	if !outcome.Aborted {
		t.Error("outcome should be aborted")
	}
	if outcome.Results[0].Status.Code != report.StatusInterrupt {
		t.Errorf("result status = %v, want interrupt", outcome.Results[0].Status.Code)
	}
}

func TestRun_UnknownProcedureFails(t *testing.T) {
	reg := newTestRegistry(&fakeProcedure{name: "known"})
	var events []Event
	r, _ := newTestRunner(t, reg, nil, collectEvents(&events))

	outcome, err := r.Run(context.Background(), []Spec{{Name: "missing"}, {Name: "known"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Failed != 1 || outcome.Completed != 1 {
		t.Errorf("outcome = %d failed, %d completed, want 1/1",
			outcome.Failed, outcome.Completed)
	}
	if len(outcome.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1 (build failure leaves no result)", len(outcome.Results))
	}
}

func TestRun_ProgressEvents(t *testing.T) {
	reg := newTestRegistry(
		&fakeProcedure{name: "batched", runFunc: func(ctx context.Context, env *procedure.RunEnv) error {
			for i := 1; i <= 3; i++ {
				env.Progress("batches", i, 3)
			}
			return nil
		}},
	)
	var events []Event
	r, _ := newTestRunner(t, reg, nil, collectEvents(&events))

	if _, err := r.Run(context.Background(), []Spec{{Name: "batched"}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var progress []Event
	for _, e := range events {
		if e.Type == EventProgress {
			progress = append(progress, e)
		}
	}
	if len(progress) != 3 {
		t.Fatalf("progress events = %d, want 3", len(progress))
	}
	last := progress[2]
	if last.Current != 3 || last.Total != 3 || last.Message != "batches" {
		t.Errorf("last progress = %q %d/%d, want batches 3/3",
			last.Message, last.Current, last.Total)
	}
	if last.Procedure != "batched" {
		t.Errorf("progress procedure = %q, want batched", last.Procedure)
	}
}

func TestRun_PreHookSkipsProcedure(t *testing.T) {
	hookMgr, err := hooks.NewManagerFromConfig(&config.HooksConfig{
		PreProcedure: []config.HookDefinition{
			{Command: "exit 1", OnFailure: config.FailureModeSkipProcedure, Timeout: 10 * time.Second},
		},
	})
	if err != nil {
		t.Fatalf("NewManagerFromConfig() error = %v", err)
	}

	ran := false
	reg := newTestRegistry(&fakeProcedure{name: "guarded", runFunc: func(ctx context.Context, env *procedure.RunEnv) error {
		ran = true
		return nil
	}})
	var events []Event
	r, _ := newTestRunner(t, reg, hookMgr, collectEvents(&events))

	outcome, err := r.Run(context.Background(), []Spec{{Name: "guarded"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ran {
		t.Error("procedure should not have run")
	}
	if outcome.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", outcome.Skipped)
	}
	if !hasEvent(events, EventProcedureSkipped) {
		t.Error("expected a procedure_skipped event")
	}
}

func TestRun_PreHookAbortsSession(t *testing.T) {
	hookMgr, err := hooks.NewManagerFromConfig(&config.HooksConfig{
		PreProcedure: []config.HookDefinition{
			{Command: "exit 1", OnFailure: config.FailureModeAbortSession, Timeout: 10 * time.Second},
		},
	})
	if err != nil {
		t.Fatalf("NewManagerFromConfig() error = %v", err)
	}

	reg := newTestRegistry(&fakeProcedure{name: "guarded"})
	r, _ := newTestRunner(t, reg, hookMgr, Options{})

	outcome, runErr := r.Run(context.Background(), []Spec{{Name: "guarded"}})
	if !outcome.Aborted {
		t.Error("outcome should be aborted")
	}
	if runErr != nil {
		// Hook aborts without an underlying error carry no cause.
		t.Errorf("Run() error = %v, want nil cause", runErr)
	}
	if outcome.Completed != 0 {
		t.Errorf("Completed = %d, want 0", outcome.Completed)
	}
}

func TestRun_PostHookAbortsAfterProcedure(t *testing.T) {
	hookMgr, err := hooks.NewManagerFromConfig(&config.HooksConfig{
		PostProcedure: []config.HookDefinition{
			{Command: "exit 1", OnFailure: config.FailureModeAbortSession, Timeout: 10 * time.Second},
		},
	})
	if err != nil {
		t.Fatalf("NewManagerFromConfig() error = %v", err)
	}

	reg := newTestRegistry(
		&fakeProcedure{name: "first"},
		&fakeProcedure{name: "never-runs"},
	)
	r, _ := newTestRunner(t, reg, hookMgr, Options{})

	outcome, _ := r.Run(context.Background(), []Spec{{Name: "first"}, {Name: "never-runs"}})
	if !outcome.Aborted {
		t.Error("outcome should be aborted")
	}
	// The procedure itself completed before the post hook fired.
	if outcome.Completed != 1 {
		t.Errorf("Completed = %d, want 1", outcome.Completed)
	}
	if len(outcome.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1", len(outcome.Results))
	}
}

func TestRun_WarnContinueHookDoesNotStop(t *testing.T) {
	hookMgr, err := hooks.NewManagerFromConfig(&config.HooksConfig{
		PreProcedure: []config.HookDefinition{
			{Command: "exit 1", OnFailure: config.FailureModeWarnContinue, Timeout: 10 * time.Second},
		},
	})
	if err != nil {
		t.Fatalf("NewManagerFromConfig() error = %v", err)
	}

	reg := newTestRegistry(&fakeProcedure{name: "tolerant"})
	r, _ := newTestRunner(t, reg, hookMgr, Options{})

	outcome, runErr := r.Run(context.Background(), []Spec{{Name: "tolerant"}})
	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}
	if outcome.Completed != 1 {
		t.Errorf("Completed = %d, want 1", outcome.Completed)
	}
}

func TestOutcome_Success(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    bool
	}{
		{"empty", Outcome{}, true},
		{"completed only", Outcome{Completed: 3}, true},
		{"with skips", Outcome{Completed: 2, Skipped: 1}, true},
		{"with failure", Outcome{Completed: 2, Failed: 1}, false},
		{"aborted", Outcome{Completed: 2, Aborted: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.Success(); got != tt.want {
				t.Errorf("Success() = %v, want %v", got, tt.want)
			}
		})
	}
}

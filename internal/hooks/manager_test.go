package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/umdcms/qcmanager/internal/config"
	"github.com/umdcms/qcmanager/internal/report"
	"github.com/umdcms/qcmanager/internal/session"
)

// mockHook is a test double for the Hook interface.
type mockHook struct {
	name        string
	phase       HookPhase
	definition  config.HookDefinition
	executeFunc func(ctx context.Context, hookCtx *HookContext) (*HookResult, error)
}

func (m *mockHook) Name() string                      { return m.name }
func (m *mockHook) Phase() HookPhase                  { return m.phase }
func (m *mockHook) Definition() config.HookDefinition { return m.definition }
func (m *mockHook) Execute(ctx context.Context, hookCtx *HookContext) (*HookResult, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, hookCtx)
	}
	return &HookResult{Success: true, ExitCode: 0}, nil
}

func newSuccessHook(name string, phase HookPhase) *mockHook {
	return &mockHook{
		name:  name,
		phase: phase,
		executeFunc: func(ctx context.Context, hookCtx *HookContext) (*HookResult, error) {
			return &HookResult{Success: true, ExitCode: 0, Output: "ok"}, nil
		},
	}
}

func newFailureHook(name string, phase HookPhase, failureMode config.FailureMode) *mockHook {
	return &mockHook{
		name:       name,
		phase:      phase,
		definition: config.HookDefinition{OnFailure: failureMode},
		executeFunc: func(ctx context.Context, hookCtx *HookContext) (*HookResult, error) {
			return &HookResult{
				Success:     false,
				ExitCode:    1,
				Error:       "hook failed",
				FailureMode: failureMode,
			}, nil
		},
	}
}

func TestNewManager(t *testing.T) {
	pre := []Hook{newSuccessHook("pre1", HookPhasePre)}
	post := []Hook{newSuccessHook("post1", HookPhasePost)}

	m := NewManager(pre, post)

	if !m.HasPreProcedureHooks() {
		t.Error("expected pre-procedure hooks")
	}
	if !m.HasPostProcedureHooks() {
		t.Error("expected post-procedure hooks")
	}
	if len(m.PreProcedureHooks()) != 1 || len(m.PostProcedureHooks()) != 1 {
		t.Error("unexpected hook counts")
	}
}

func TestNewManagerFromConfig(t *testing.T) {
	cfg := &config.HooksConfig{
		PreProcedure:  []config.HookDefinition{{Command: "echo pre"}},
		PostProcedure: []config.HookDefinition{{Command: "echo post"}},
	}

	m, err := NewManagerFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewManagerFromConfig() error = %v", err)
	}
	if !m.HasPreProcedureHooks() || !m.HasPostProcedureHooks() {
		t.Error("expected hooks from config")
	}
}

func TestManager_ExecutePreProcedureHooks_AllSuccess(t *testing.T) {
	m := NewManager([]Hook{
		newSuccessHook("pre1", HookPhasePre),
		newSuccessHook("pre2", HookPhasePre),
	}, nil)

	result := m.ExecutePreProcedureHooks(context.Background(), testHookContext())

	if !result.AllSuccess {
		t.Error("expected all hooks to succeed")
	}
	if result.Action != ManagerActionContinue {
		t.Errorf("Action = %v, want continue", result.Action)
	}
	if len(result.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(result.Results))
	}
}

func TestManager_ExecuteHooks_WarnContinue(t *testing.T) {
	executed := false
	second := newSuccessHook("pre2", HookPhasePre)
	second.executeFunc = func(ctx context.Context, hookCtx *HookContext) (*HookResult, error) {
		executed = true
		return &HookResult{Success: true, ExitCode: 0}, nil
	}

	m := NewManager([]Hook{
		newFailureHook("pre1", HookPhasePre, config.FailureModeWarnContinue),
		second,
	}, nil)

	result := m.ExecutePreProcedureHooks(context.Background(), testHookContext())

	if result.AllSuccess {
		t.Error("expected AllSuccess to be false")
	}
	if result.Action != ManagerActionContinue {
		t.Errorf("Action = %v, want continue", result.Action)
	}
	if !executed {
		t.Error("expected execution to continue past warn_continue failure")
	}
}

func TestManager_ExecuteHooks_SkipProcedure(t *testing.T) {
	executed := false
	second := newSuccessHook("pre2", HookPhasePre)
	second.executeFunc = func(ctx context.Context, hookCtx *HookContext) (*HookResult, error) {
		executed = true
		return &HookResult{Success: true, ExitCode: 0}, nil
	}

	m := NewManager([]Hook{
		newFailureHook("pre1", HookPhasePre, config.FailureModeSkipProcedure),
		second,
	}, nil)

	result := m.ExecutePreProcedureHooks(context.Background(), testHookContext())

	if result.Action != ManagerActionSkipProcedure {
		t.Errorf("Action = %v, want skip_procedure", result.Action)
	}
	if result.FailedHook == nil || result.FailedHook.Name() != "pre1" {
		t.Error("expected FailedHook to be set")
	}
	if executed {
		t.Error("expected execution to stop on skip_procedure failure")
	}
}

func TestManager_ExecuteHooks_AbortSession(t *testing.T) {
	m := NewManager([]Hook{
		newFailureHook("pre1", HookPhasePre, config.FailureModeAbortSession),
	}, nil)

	result := m.ExecutePreProcedureHooks(context.Background(), testHookContext())

	if result.Action != ManagerActionAbortSession {
		t.Errorf("Action = %v, want abort_session", result.Action)
	}
}

func TestManager_ExecuteHooks_ExecutionError(t *testing.T) {
	hook := &mockHook{
		name:  "broken",
		phase: HookPhasePre,
		executeFunc: func(ctx context.Context, hookCtx *HookContext) (*HookResult, error) {
			return nil, errors.New("cannot run")
		},
	}
	m := NewManager([]Hook{hook}, nil)

	result := m.ExecutePreProcedureHooks(context.Background(), testHookContext())

	// Execution errors are treated as abort
	if result.Action != ManagerActionAbortSession {
		t.Errorf("Action = %v, want abort_session for execution error", result.Action)
	}
}

func TestManager_ExecuteHooks_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager([]Hook{newSuccessHook("pre1", HookPhasePre)}, nil)
	result := m.ExecutePreProcedureHooks(ctx, testHookContext())

	if result.AllSuccess {
		t.Error("expected failure for canceled context")
	}
	if result.Action != ManagerActionAbortSession {
		t.Errorf("Action = %v, want abort_session", result.Action)
	}
	if len(result.Results) != 0 {
		t.Error("expected no hooks to run after cancellation")
	}
}

func TestManager_Logger(t *testing.T) {
	var loggedPhases []HookPhase
	m := NewManager([]Hook{newSuccessHook("pre1", HookPhasePre)},
		[]Hook{newSuccessHook("post1", HookPhasePost)})
	m.Logger = func(phase HookPhase, hook Hook, result *HookResult) {
		loggedPhases = append(loggedPhases, phase)
	}

	m.ExecutePreProcedureHooks(context.Background(), testHookContext())
	m.ExecutePostProcedureHooks(context.Background(), testHookContext())

	if len(loggedPhases) != 2 {
		t.Fatalf("expected 2 logged executions, got %d", len(loggedPhases))
	}
	if loggedPhases[0] != HookPhasePre || loggedPhases[1] != HookPhasePost {
		t.Errorf("unexpected logged phases: %v", loggedPhases)
	}
}

func TestBuildHookContexts(t *testing.T) {
	store := session.NewStore(t.TempDir())
	sess, err := store.Create("tileboard", "TB010")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	pre := BuildHookContextForPre(sess, "pedestal")
	if pre.Procedure != "pedestal" || pre.BoardType != "tileboard" || pre.BoardID != "TB010" {
		t.Errorf("unexpected pre context: %+v", pre)
	}
	if pre.Result != nil {
		t.Error("expected nil result in pre context")
	}
	if pre.SessionDir != sess.Dir() {
		t.Errorf("SessionDir = %q, want %q", pre.SessionDir, sess.Dir())
	}

	res := report.NewResult("pedestal", nil)
	post := BuildHookContextForPost(sess, "pedestal", res)
	if post.Result != res {
		t.Error("expected result in post context")
	}
}

func TestManager_GetFailedHookInfo(t *testing.T) {
	m := NewManager(nil, nil)

	empty := &ManagerResult{}
	if m.GetFailedHookInfo(empty) != "" {
		t.Error("expected empty info when no hook failed")
	}

	failed := &ManagerResult{
		FailedHook: newFailureHook("pre1", HookPhasePre, config.FailureModeAbortSession),
		FailedResult: &HookResult{
			ExitCode: 2,
			Error:    "interlock open",
			Output:   "cooling below threshold",
		},
	}
	info := m.GetFailedHookInfo(failed)
	if info == "" {
		t.Fatal("expected failure info")
	}
	for _, want := range []string{"pre1", "exit code 2", "interlock open", "cooling below threshold"} {
		if !containsSubstring(info, want) {
			t.Errorf("info missing %q: %s", want, info)
		}
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

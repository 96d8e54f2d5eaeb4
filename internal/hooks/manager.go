package hooks

import (
	"context"
	"fmt"

	"github.com/umdcms/qcmanager/internal/config"
	"github.com/umdcms/qcmanager/internal/report"
	"github.com/umdcms/qcmanager/internal/session"
)

// ManagerAction is what the runner should do after a hook phase.
type ManagerAction string

const (
	ManagerActionContinue      ManagerAction = "continue"
	ManagerActionSkipProcedure ManagerAction = "skip_procedure"
	ManagerActionAbortSession  ManagerAction = "abort_session"
)

// ManagerResult aggregates one phase of hook executions. When a hook
// fails hard enough to stop the phase, FailedHook and FailedResult say
// which one.
type ManagerResult struct {
	AllSuccess   bool
	Results      []*HookResult
	Action       ManagerAction
	FailedHook   Hook
	FailedResult *HookResult
}

// Manager runs the configured hooks in order for each phase and turns
// their failure modes into a single recommended action. The runner
// consumes the action; warn_continue failures never stop the phase.
type Manager struct {
	preHooks  []Hook
	postHooks []Hook
	// Logger observes each execution (optional).
	Logger func(phase HookPhase, hook Hook, result *HookResult)
}

func NewManager(preHooks, postHooks []Hook) *Manager {
	return &Manager{preHooks: preHooks, postHooks: postHooks}
}

func NewManagerFromConfig(cfg *config.HooksConfig) (*Manager, error) {
	pre, post, err := CreateHooksFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating hooks from config: %w", err)
	}
	return NewManager(pre, post), nil
}

func (m *Manager) PreProcedureHooks() []Hook  { return m.preHooks }
func (m *Manager) PostProcedureHooks() []Hook { return m.postHooks }

func (m *Manager) HasPreProcedureHooks() bool  { return len(m.preHooks) > 0 }
func (m *Manager) HasPostProcedureHooks() bool { return len(m.postHooks) > 0 }

func (m *Manager) ExecutePreProcedureHooks(ctx context.Context, hookCtx *HookContext) *ManagerResult {
	return m.run(ctx, HookPhasePre, m.preHooks, hookCtx)
}

func (m *Manager) ExecutePostProcedureHooks(ctx context.Context, hookCtx *HookContext) *ManagerResult {
	return m.run(ctx, HookPhasePost, m.postHooks, hookCtx)
}

func (m *Manager) run(ctx context.Context, phase HookPhase, hooks []Hook, hookCtx *HookContext) *ManagerResult {
	out := &ManagerResult{
		AllSuccess: true,
		Results:    make([]*HookResult, 0, len(hooks)),
		Action:     ManagerActionContinue,
	}

	for _, hook := range hooks {
		if ctx.Err() != nil {
			out.AllSuccess = false
			out.Action = ManagerActionAbortSession
			return out
		}

		result, err := hook.Execute(ctx, hookCtx)
		if err != nil {
			// The hook could not be run at all; treat as an abort.
			result = &HookResult{
				Error:       fmt.Sprintf("execution error: %v", err),
				ExitCode:    1,
				FailureMode: config.FailureModeAbortSession,
			}
		}
		out.Results = append(out.Results, result)

		if m.Logger != nil {
			m.Logger(phase, hook, result)
		}

		if result.IsSuccess() {
			continue
		}
		out.AllSuccess = false

		switch {
		case result.ShouldAbort():
			out.Action = ManagerActionAbortSession
		case result.ShouldSkipProcedure():
			out.Action = ManagerActionSkipProcedure
		default:
			continue
		}
		out.FailedHook = hook
		out.FailedResult = result
		return out
	}

	return out
}

// GetFailedHookInfo formats the failed hook for error messages and logs.
func (m *Manager) GetFailedHookInfo(result *ManagerResult) string {
	if result.FailedHook == nil || result.FailedResult == nil {
		return ""
	}
	return fmt.Sprintf(
		"Hook '%s' (phase: %s) failed with exit code %d.\nError: %s\nOutput: %s",
		result.FailedHook.Name(),
		result.FailedHook.Phase(),
		result.FailedResult.ExitCode,
		result.FailedResult.Error,
		result.FailedResult.Output,
	)
}

// BuildHookContextForPre builds the context for pre-procedure hooks.
// No result exists yet.
func BuildHookContextForPre(sess *session.Session, procedureName string) *HookContext {
	return &HookContext{
		Procedure:  procedureName,
		BoardType:  sess.BoardType,
		BoardID:    sess.BoardID,
		SessionDir: sess.Dir(),
	}
}

// BuildHookContextForPost builds the context for post-procedure hooks,
// carrying the finished result so STATUS variables are available.
func BuildHookContextForPost(sess *session.Session, procedureName string, result *report.Result) *HookContext {
	return &HookContext{
		Procedure:  procedureName,
		BoardType:  sess.BoardType,
		BoardID:    sess.BoardID,
		SessionDir: sess.Dir(),
		Result:     result,
	}
}

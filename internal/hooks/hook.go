// Package hooks runs shell commands around each procedure: interlock
// checks before, result syncing or notifications after. A failing hook
// can warn, skip the procedure, or abort the whole queue depending on
// its configured failure mode.
package hooks

import (
	"context"
	"fmt"

	"github.com/umdcms/qcmanager/internal/config"
	"github.com/umdcms/qcmanager/internal/report"
)

// HookPhase places a hook before or after the procedure.
type HookPhase string

const (
	HookPhasePre  HookPhase = "pre"
	HookPhasePost HookPhase = "post"
)

func (p HookPhase) String() string {
	return string(p)
}

func (p HookPhase) IsValid() bool {
	return p == HookPhasePre || p == HookPhasePost
}

// HookContext carries the session state a hook command can see.
// Result is set for post-procedure hooks only.
type HookContext struct {
	Procedure  string
	BoardType  string
	BoardID    string
	SessionDir string
	Result     *report.Result
}

// HookResult is the outcome of one hook command.
type HookResult struct {
	Success     bool
	Output      string
	Error       string
	ExitCode    int
	FailureMode config.FailureMode
}

func (r HookResult) IsSuccess() bool {
	return r.Success && r.ExitCode == 0
}

// ShouldAbort reports whether this failure ends the whole queue.
func (r HookResult) ShouldAbort() bool {
	return !r.IsSuccess() && r.FailureMode == config.FailureModeAbortSession
}

// ShouldSkipProcedure reports whether this failure skips only the
// procedure the hook guards.
func (r HookResult) ShouldSkipProcedure() bool {
	return !r.IsSuccess() && r.FailureMode == config.FailureModeSkipProcedure
}

// ShouldWarnAndContinue reports whether this failure is log-only.
func (r HookResult) ShouldWarnAndContinue() bool {
	return !r.IsSuccess() && r.FailureMode == config.FailureModeWarnContinue
}

// Hook is one configured hook command.
type Hook interface {
	Name() string
	Phase() HookPhase
	Definition() config.HookDefinition
	Execute(ctx context.Context, hookCtx *HookContext) (*HookResult, error)
}

// CreateHooksFromConfig builds the pre and post hook lists from the
// hooks section of the config file.
func CreateHooksFromConfig(cfg *config.HooksConfig) (preHooks, postHooks []Hook, err error) {
	build := func(phase HookPhase, defs []config.HookDefinition) ([]Hook, error) {
		out := make([]Hook, 0, len(defs))
		for i, def := range defs {
			if def.Command == "" {
				return nil, fmt.Errorf("creating %s-procedure hook %d: empty command", phase, i)
			}
			name := fmt.Sprintf("%s_procedure[%d]", phase, i)
			out = append(out, NewShellHook(name, phase, def))
		}
		return out, nil
	}

	if preHooks, err = build(HookPhasePre, cfg.PreProcedure); err != nil {
		return nil, nil, err
	}
	if postHooks, err = build(HookPhasePost, cfg.PostProcedure); err != nil {
		return nil, nil, err
	}
	return preHooks, postHooks, nil
}

package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/umdcms/qcmanager/internal/config"
)

// ShellHook runs its command through `sh -c` with the session state
// exposed as environment variables.
type ShellHook struct {
	name       string
	phase      HookPhase
	definition config.HookDefinition
}

func NewShellHook(name string, phase HookPhase, def config.HookDefinition) *ShellHook {
	return &ShellHook{name: name, phase: phase, definition: def}
}

func (h *ShellHook) Name() string                      { return h.name }
func (h *ShellHook) Phase() HookPhase                  { return h.phase }
func (h *ShellHook) Definition() config.HookDefinition { return h.definition }

// failureMode defaults to warn_continue when the config leaves it unset.
func (h *ShellHook) failureMode() config.FailureMode {
	if h.definition.OnFailure == "" {
		return config.FailureModeWarnContinue
	}
	return h.definition.OnFailure
}

// Execute runs the command, honoring the per-hook timeout. A non-zero
// exit is reported in the HookResult, not as an error; errors are
// reserved for hooks that could not be run at all.
func (h *ShellHook) Execute(ctx context.Context, hookCtx *HookContext) (*HookResult, error) {
	if hookCtx == nil {
		return nil, fmt.Errorf("hook context is required")
	}
	if h.definition.Command == "" {
		return nil, fmt.Errorf("shell hook command is empty")
	}

	if h.definition.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.definition.Timeout)
		defer cancel()
	}

	vars := hookVars(hookCtx)
	cmd := exec.CommandContext(ctx, "sh", "-c", expandVars(h.definition.Command, vars))
	cmd.Env = os.Environ()
	for key, value := range vars {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	result := &HookResult{
		Success:     runErr == nil,
		Output:      joinOutput(stdout.String(), stderr.String()),
		FailureMode: h.failureMode(),
	}
	if runErr != nil {
		result.Error = runErr.Error()
		result.ExitCode = 1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
	}
	return result, nil
}

// joinOutput stacks trimmed stdout above trimmed stderr.
func joinOutput(stdout, stderr string) string {
	stdout = strings.TrimSpace(stdout)
	stderr = strings.TrimSpace(stderr)
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	default:
		return stdout + "\n" + stderr
	}
}

// hookVars is the environment a hook command sees. STATUS variables
// appear only after the procedure has run.
func hookVars(hookCtx *HookContext) map[string]string {
	vars := map[string]string{
		"PROCEDURE_NAME": hookCtx.Procedure,
		"BOARD_TYPE":     hookCtx.BoardType,
		"BOARD_ID":       hookCtx.BoardID,
		"SESSION_DIR":    hookCtx.SessionDir,
	}
	if hookCtx.Result != nil {
		vars["STATUS"] = hookCtx.Result.Status.Code.String()
		vars["STATUS_CODE"] = strconv.Itoa(int(hookCtx.Result.Status.Code))
		vars["STATUS_MESSAGE"] = hookCtx.Result.Status.Message
	}
	return vars
}

// expandVars substitutes ${VAR} references so variables work inside
// single-quoted commands too.
func expandVars(command string, vars map[string]string) string {
	for key, value := range vars {
		command = strings.ReplaceAll(command, "${"+key+"}", value)
	}
	return command
}

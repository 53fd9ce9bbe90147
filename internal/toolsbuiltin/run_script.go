package toolsbuiltin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/nullstream/taskrt/internal/ports"
)

// RunScriptTool executes an argv cooperatively: it runs under ctx via
// exec.CommandContext, so cancelling ctx signals (does not forcibly kill)
// the child process per "direct tools must be cooperative".
type RunScriptTool struct {
	Dir string // working directory for spawned commands; empty means the process cwd
}

// Definition returns the tool's LLM-facing schema.
func (t *RunScriptTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name: "run_script",
		Description: "Run a command (argv form) and return its stdout, stderr, and exit code.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"argv": {Type: "array", Description: "Command and arguments, e.g. [\"ls\", \"-la\"]."},
			},
			Required: []string{"argv"},
		},
	}
}

// Execute implements ports.DirectExecutor.
func (t *RunScriptTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	argv, err := toStringSlice(call.Arguments["argv"])
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("run_script: %w", err)}, nil
	}
	stdout, stderr, exitCode, err := t.Run(ctx, argv)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}
	content := stdout
	if stderr != "" {
		content += "\n[stderr]\n" + stderr
	}
	content += fmt.Sprintf("\n[exit_code] %d", exitCode)
	return &ports.ToolResult{CallID: call.ID, Content: content}, nil
}

// Run is the callback shape tasksystem.RegisterBuiltinProgrammaticExecutors
// expects for shell:run.
func (t *RunScriptTool) Run(ctx context.Context, argv []string) (stdout, stderr string, exitCode int, err error) {
	if len(argv) == 0 {
		return "", "", 0, fmt.Errorf("run_script: empty argv")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = t.Dir
	// Replace exec.CommandContext's default kill with an interrupt signal.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if runErr != nil {
		if _, isExitErr := runErr.(*exec.ExitError); !isExitErr {
			return outBuf.String(), errBuf.String(), -1, fmt.Errorf("run_script: %w", runErr)
		}
	}
	return outBuf.String(), errBuf.String(), cmd.ProcessState.ExitCode(), nil
}

func toStringSlice(v any) ([]string, error) {
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		out := make([]string, len(vv))
		for i, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("argv element %d is not a string", i)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("missing or malformed required argument %q", "argv")
	}
}

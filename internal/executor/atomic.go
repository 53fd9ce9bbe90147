// Package executor implements the Atomic Executor: placeholder substitution
// in a single atomic template, Handler invocation, and output-format
// validation. It does not walk environments, compose tasks, spawn
// subtasks, or fetch context — that is the Task System's job.
package executor

import (
	"context"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

// HandlerInvoker is the subset of a Handler session the Atomic Executor
// needs: assemble a payload, invoke the model, get a raw response back.
type HandlerInvoker interface {
	ExecutePrompt(ctx context.Context, req PromptRequest) (ports.TaskResult, error)
}

// PromptRequest is the payload the Atomic Executor assembles from a
// resolved template plus caller-supplied context for a Handler invocation.
type PromptRequest struct {
	SystemPrompt string
	UserPrompt string
	ConversationMessages []ports.Message
	ToolDefs []ports.ToolDefinition
	ContextString string
	IncludedFiles []string
}

// AtomicExecutor executes one atomic template body against a resolved
// parameter map and a Handler.
type AtomicExecutor struct {
	repairJSON bool
}

// New constructs an AtomicExecutor with JSON auto-repair enabled.
func New() *AtomicExecutor {
	return &AtomicExecutor{repairJSON: true}
}

// ExecuteBody implements the contract: execute_body(atomic_def,
// params, handler) -> TaskResult.
func (e *AtomicExecutor) ExecuteBody(ctx context.Context, tmpl *ports.AtomicTemplate, params map[string]any, handler HandlerInvoker, contextString string, includedFiles []string) (ports.TaskResult, error) {
	systemPrompt, err := substitute(tmpl.SystemPrompt, params)
	if err != nil {
		return ports.TaskResult{}, err
	}
	userPrompt, err := substitute(tmpl.Instructions, params)
	if err != nil {
		return ports.TaskResult{}, err
	}

	result, err := handler.ExecutePrompt(ctx, PromptRequest{
		SystemPrompt: systemPrompt,
		UserPrompt: userPrompt,
		ContextString: contextString,
		IncludedFiles: includedFiles,
	})
	if err != nil {
		return ports.TaskResult{}, err
	}
	if result.Status != ports.StatusComplete {
		return result, nil
	}

	if tmpl.OutputFormat != nil && tmpl.OutputFormat.Type == "json" {
		return e.validateJSONOutput(tmpl, result)
	}
	return result, nil
}

// missingInput raises TASK_FAILURE{missing_input, variable} to preserve
// substitution totality: every placeholder must resolve or the call fails.
func missingInput(variable string) error {
	return taskerrors.NewTaskFailure(ports.ReasonMissingInput, "unresolved placeholder: "+variable, map[string]any{"variable": variable})
}

// Package dispatcher implements a thin router: it decides, from the shape
// of a raw line of input, whether to hand it to the S-expression
// evaluator, invoke an atomic template directly, or run a Handler chat
// turn.
package dispatcher

import (
	"context"
	"strings"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
	"github.com/nullstream/taskrt/internal/sexpr"
	"github.com/nullstream/taskrt/internal/tasksystem"
)

// ChatHandler is the subset of a Handler session the Dispatcher's free-text
// path needs. Declared here rather than imported from internal/handler so
// the Dispatcher depends on a role, not a concrete session type.
type ChatHandler interface {
	HandleQuery(ctx context.Context, userText string) (ports.TaskResult, error)
}

// ToolSource is the subset of a Handler session the Dispatcher needs to
// bind direct tools into the evaluator's top-level environment.
type ToolSource interface {
	DirectToolNames() []string
	InvokeTool(ctx context.Context, name string, args map[string]any) (string, error)
}

const (
	taskPrefix = "/task"
	planPrefix = "/plan"
)

// Dispatcher routes raw input to the evaluator, the Task System, or a chat
// Handler.
type Dispatcher struct {
	evaluator *sexpr.Evaluator
	taskSystem *tasksystem.TaskSystem
	handler ChatHandler
	tools ToolSource
}

// New constructs a Dispatcher. tools may be nil if no direct tools are
// exposed to the evaluator path.
func New(evaluator *sexpr.Evaluator, ts *tasksystem.TaskSystem, h ChatHandler, tools ToolSource) *Dispatcher {
	return &Dispatcher{evaluator: evaluator, taskSystem: ts, handler: h, tools: tools}
}

// Dispatch routes one line of input per precedence: `(` prefix to
// the evaluator, `/task …` to the direct-invocation or evaluator path, and
// everything else to the chat Handler.
func (d *Dispatcher) Dispatch(ctx context.Context, input string) (ports.TaskResult, error) {
	trimmed := strings.TrimSpace(input)

	switch {
	case strings.HasPrefix(trimmed, "("):
		return d.runSexpr(ctx, trimmed)

	case trimmed == taskPrefix || strings.HasPrefix(trimmed, taskPrefix+" "):
		return d.dispatchTask(ctx, strings.TrimSpace(strings.TrimPrefix(trimmed, taskPrefix)))

	case strings.HasPrefix(trimmed, "/") && trimmed != planPrefix && !strings.HasPrefix(trimmed, planPrefix+" "):
		return ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonUnknownCommand, "unrecognised command: "+trimmed, map[string]any{"input": trimmed})

	default:
		return d.handler.HandleQuery(ctx, trimmed)
	}
}

// dispatchTask handles the two `/task` forms: `/task (sexpr)` defers to the
// evaluator, `/task name[:sub] key=value …` builds a SubtaskRequest and
// invokes the Task System directly, bypassing the Handler entirely.
func (d *Dispatcher) dispatchTask(ctx context.Context, remainder string) (ports.TaskResult, error) {
	if remainder == "" {
		return ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonMissingInput, "/task requires a template name or an s-expression", nil)
	}
	if strings.HasPrefix(remainder, "(") {
		return d.runSexpr(ctx, remainder)
	}
	if d.taskSystem == nil {
		return ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonTemplateNotFound, "no task system configured", nil)
	}

	req, err := parseTaskInvocation(remainder)
	if err != nil {
		return ports.TaskResult{}, err
	}
	return d.taskSystem.ExecuteAtomicTemplate(ctx, req)
}

// parseTaskInvocation parses `name_or_type:sub key=value key2=value2 …`
// into a SubtaskRequest. name_or_type:sub is passed through verbatim as
// Name: the Task System's registry resolves a bare name or a "type:sub"
// alias identically.
func parseTaskInvocation(text string) (ports.SubtaskRequest, error) {
	fields := strings.Fields(text)
	name := fields[0]
	inputs := make(map[string]any, len(fields)-1)
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return ports.SubtaskRequest{}, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "malformed key=value argument: "+f, map[string]any{"argument": f})
		}
		inputs[key] = value
	}
	return ports.SubtaskRequest{Name: name, Inputs: inputs}, nil
}

// runSexpr evaluates source through the evaluator, binding every registered
// atomic template and direct tool into a fresh top-level environment first
// so bare `(name …)` and `(call "name" …)` forms both resolve.
func (d *Dispatcher) runSexpr(ctx context.Context, source string) (ports.TaskResult, error) {
	if d.evaluator == nil {
		return ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonTemplateNotFound, "no evaluator configured", nil)
	}
	env := d.buildEnv()
	return d.evaluator.Run(ctx, source, env, nil)
}

// buildEnv constructs the top-level environment an s-expression call runs
// against: the standard primitives plus one TemplateRef per registered
// atomic template and one ToolRef per registered direct tool.
func (d *Dispatcher) buildEnv() *sexpr.Environment {
	env := sexpr.NewGlobalEnv()
	if d.taskSystem != nil {
		for _, tmpl := range d.taskSystem.Templates() {
			env.Define(tmpl.Name, &sexpr.TemplateRef{
				Name: tmpl.Name,
				Subtype: tmpl.Subtype,
				Params: tmpl.Params,
				Executor: d.taskSystem,
			})
		}
	}
	if d.tools != nil {
		for _, name := range d.tools.DirectToolNames() {
			env.Define(name, &sexpr.ToolRef{Name: name, Invoker: d.tools})
		}
	}
	return env
}

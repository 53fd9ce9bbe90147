package sexpr

import (
	"context"
	"fmt"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

// TemplateExecutor is the subset of the Task System the evaluator needs to
// dispatch a registered-template call (function-call form).
type TemplateExecutor interface {
	ExecuteAtomicTemplate(ctx context.Context, req ports.SubtaskRequest) (ports.TaskResult, error)
}

// ToolInvoker is the subset of a Handler session the evaluator needs to run
// a direct tool ad hoc, outside the chat loop (used by `call`/bare
// invocation of a tool identifier, per scenario 2).
type ToolInvoker interface {
	InvokeTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// ContextProvider is the subset of the Memory System the `get_context`
// primitive needs.
type ContextProvider interface {
	GetRelevantContextFor(ctx context.Context, input ports.ContextGenerationInput) (ports.AssociativeMatchResult, error)
}

// TemplateRef is an environment value denoting a registered atomic
// template; applying it builds a SubtaskRequest and dispatches through the
// Task System ("Registered template identifier").
type TemplateRef struct {
	Name string
	Subtype string
	Params []string
	Executor TemplateExecutor
}

// ToolRef is an environment value denoting a registered direct tool;
// applying it invokes the tool and yields its raw content.
type ToolRef struct {
	Name string
	Invoker ToolInvoker
}

// LazyPrimitive receives its argument forms unevaluated — used for map,
// get_context, and call, whose evaluation order is not plain applicative
// order (Primitives table).
type LazyPrimitive func(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error)

// CancelToken is checked between forms and before each atomic invocation
// (Cancellation).
type CancelToken <-chan struct{}

func (c CancelToken) cancelled() bool {
	if c == nil {
		return false
	}
	select {
	case <-c:
		return true
	default:
		return false
	}
}

// Evaluator evaluates parsed DSL forms against an Environment.
type Evaluator struct {
	Context ContextProvider
	MaxDepth int // default 10, per CONTINUATION depth bound
}

// NewEvaluator constructs an Evaluator with spec.md's default max subtask
// depth.
func NewEvaluator(ctxProvider ContextProvider) *Evaluator {
	return &Evaluator{Context: ctxProvider, MaxDepth: 10}
}

// evalCtx threads per-Run state through recursive Eval calls: the Go
// context, cancellation token, CONTINUATION recursion depth, and the active
// template-name call stack used for cycle detection.
type evalCtx struct {
	ctx context.Context
	cancel CancelToken
	depth int
	stack []string
}

func (ec *evalCtx) withFrame(name string) (*evalCtx, error) {
	for _, s := range ec.stack {
		if s == name {
			return nil, taskerrors.NewTaskFailure(ports.ReasonCycleDetected, "template already on active call stack: "+name, map[string]any{"name": name})
		}
	}
	next := &evalCtx{ctx: ec.ctx, cancel: ec.cancel, depth: ec.depth + 1, stack: append(append([]string{}, ec.stack...), name)}
	return next, nil
}

// Run parses source and evaluates each top-level form in order against
// initialEnv, returning the last form's value as a TaskResult.
func (ev *Evaluator) Run(ctx context.Context, source string, initialEnv *Environment, cancel CancelToken) (ports.TaskResult, error) {
	forms, err := Parse(source)
	if err != nil {
		return ports.TaskResult{}, err
	}
	ec := &evalCtx{ctx: ctx, cancel: cancel}
	var last Value
	for _, form := range forms {
		if ec.cancel.cancelled() {
			return ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonCancelled, "evaluation cancelled", nil)
		}
		v, err := ev.eval(form, initialEnv, ec)
		if err != nil {
			return ports.TaskResult{}, err
		}
		last = v
	}
	return valueToTaskResult(last), nil
}

func valueToTaskResult(v Value) ports.TaskResult {
	if tr, ok := v.(*ports.TaskResult); ok {
		return *tr
	}
	return ports.TaskResult{Status: ports.StatusComplete, Content: Render(v)}
}

// Eval evaluates a single parsed Node against env using a fresh top-level
// evaluation context. Exported for callers (e.g. tests, REPL) that want to
// evaluate one form without going through Run/Parse.
func (ev *Evaluator) Eval(ctx context.Context, node *Node, env *Environment, cancel CancelToken) (Value, error) {
	return ev.eval(node, env, &evalCtx{ctx: ctx, cancel: cancel})
}

func (ev *Evaluator) eval(n *Node, env *Environment, ec *evalCtx) (Value, error) {
	if ec.cancel.cancelled() {
		return nil, taskerrors.NewTaskFailure(ports.ReasonCancelled, "evaluation cancelled", nil)
	}
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case KindString:
		return n.Str, nil
	case KindNumber:
		return n.Num, nil
	case KindBool:
		return n.Bool, nil
	case KindNil:
		return nil, nil
	case KindSymbol:
		return env.Lookup(n.Sym)
	case KindList:
		return ev.evalList(n, env, ec)
	}
	return nil, fmt.Errorf("sexpr: unknown node kind %v", n.Kind)
}

func (ev *Evaluator) evalList(n *Node, env *Environment, ec *evalCtx) (Value, error) {
	if n.IsEmptyList() {
		return []Value{}, nil
	}
	head := n.List[0]
	args := n.List[1:]

	if head.Kind == KindSymbol {
		if fn, ok := specialForms[head.Sym]; ok {
			return fn(ev, args, env, ec)
		}
	}

	headVal, err := ev.eval(head, env, ec)
	if err != nil {
		return nil, err
	}
	return ev.apply(headVal, args, env, ec)
}

// apply dispatches by the resolved head's kind (function-call form,
// step 3).
func (ev *Evaluator) apply(headVal Value, argNodes []*Node, env *Environment, ec *evalCtx) (Value, error) {
	switch fn := headVal.(type) {
	case *Closure:
		argVals := make([]Value, len(argNodes))
		for i, a := range argNodes {
			v, err := ev.eval(a, env, ec)
			if err != nil {
				return nil, err
			}
			argVals[i] = v
		}
		if len(argVals) != len(fn.Params) {
			return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, fmt.Sprintf("closure expects %d args, got %d", len(fn.Params), len(argVals)), nil)
		}
		bindings := make(map[string]Value, len(fn.Params))
		for i, p := range fn.Params {
			bindings[p] = argVals[i]
		}
		callEnv := fn.Env.Extend(bindings)
		return ev.evalBody(fn.Body, callEnv, ec)

	case *TemplateRef:
		req, err := buildSubtaskRequest(ev, fn.Name, fn.Subtype, fn.Params, argNodes, env, ec)
		if err != nil {
			return nil, err
		}
		return ev.invokeTemplate(fn.Executor, req, ec)

	case *ToolRef:
		namedArgs, err := buildToolArgs(ev, argNodes, env, ec)
		if err != nil {
			return nil, err
		}
		content, err := fn.Invoker.InvokeTool(ec.ctx, fn.Name, namedArgs)
		if err != nil {
			return nil, err
		}
		return content, nil

	case Primitive:
		argVals := make([]Value, len(argNodes))
		for i, a := range argNodes {
			v, err := ev.eval(a, env, ec)
			if err != nil {
				return nil, err
			}
			argVals[i] = v
		}
		return fn(argVals)

	case LazyPrimitive:
		return fn(ev, argNodes, env, ec)

	default:
		return nil, taskerrors.NewTaskFailure(ports.ReasonUnboundSymbol, fmt.Sprintf("value is not callable: %#v", headVal), nil)
	}
}

func (ev *Evaluator) evalBody(body []*Node, env *Environment, ec *evalCtx) (Value, error) {
	var last Value
	for _, form := range body {
		if ec.cancel.cancelled() {
			return nil, taskerrors.NewTaskFailure(ports.ReasonCancelled, "evaluation cancelled", nil)
		}
		v, err := ev.eval(form, env, ec)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// invokeTemplate executes a template call and resolves any CONTINUATION it
// returns before yielding a value to the evaluation point.
func (ev *Evaluator) invokeTemplate(executor TemplateExecutor, req ports.SubtaskRequest, ec *evalCtx) (Value, error) {
	if ec.cancel.cancelled() {
		return nil, taskerrors.NewTaskFailure(ports.ReasonCancelled, "evaluation cancelled", nil)
	}
	result, err := executor.ExecuteAtomicTemplate(ec.ctx, req)
	if err != nil {
		return nil, err
	}
	for result.Status == ports.StatusContinuation {
		next, nested, err := ev.resolveContinuation(executor, result, ec)
		if err != nil {
			return nil, err
		}
		ec = next
		result = nested
	}
	if result.Status == ports.StatusFailed {
		return nil, taskFailureFromNotes(result)
	}
	return &result, nil
}

func (ev *Evaluator) resolveContinuation(executor TemplateExecutor, result ports.TaskResult, ec *evalCtx) (*evalCtx, ports.TaskResult, error) {
	raw, ok := result.Notes[ports.NoteSubtaskRequest]
	req, ok2 := raw.(ports.SubtaskRequest)
	if !ok || !ok2 {
		return nil, ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonSubtaskFailure, "CONTINUATION result missing a valid subtask_request", nil)
	}
	maxDepth := ev.MaxDepth
	if maxDepth == 0 {
		maxDepth = 10
	}
	if ec.depth+1 > maxDepth {
		return nil, ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonDepthExceeded, fmt.Sprintf("subtask depth exceeded at depth %d (max %d)", ec.depth+1, maxDepth), map[string]any{"depth": ec.depth + 1, "max": maxDepth})
	}
	next, err := ec.withFrame(req.Name)
	if err != nil {
		return nil, ports.TaskResult{}, err
	}
	nested, err := executor.ExecuteAtomicTemplate(next.ctx, req)
	if err != nil {
		return nil, ports.TaskResult{}, err
	}
	return next, nested, nil
}

func taskFailureFromNotes(result ports.TaskResult) error {
	reason := ports.ReasonSubtaskFailure
	message := "atomic template returned FAILED"
	var details map[string]any
	if raw, ok := result.Notes[ports.NoteError]; ok {
		if m, ok := raw.(map[string]any); ok {
			if r, ok := m["reason"].(string); ok {
				reason = ports.FailureReason(r)
			}
			if msg, ok := m["message"].(string); ok {
				message = msg
			}
			details = m
		}
	}
	return &taskerrors.TaskFailureError{Reason: reason, Message: message, Details: details}
}

package sexpr

import (
	"fmt"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

// NewGlobalEnv builds the top-level Environment every Run/Eval starts from:
// the arithmetic/list primitives plus the map/get_context/call lazy
// primitives, all bound as ordinary (shadowable) values so that special
// forms are the only non-overridable names (resolution order).
func NewGlobalEnv() *Environment {
	env := NewEnvironment()
	env.Define("+", Primitive(primAdd))
	env.Define("-", Primitive(primSub))
	env.Define("=", Primitive(primEq))
	env.Define("<", Primitive(primLt))
	env.Define("list", Primitive(primList))
	env.Define("first", Primitive(primFirst))
	env.Define("rest", Primitive(primRest))
	env.Define("len", Primitive(primLen))
	env.Define("concat", Primitive(primConcat))
	env.Define("not", Primitive(primNot))
	env.Define("map", LazyPrimitive(primMap))
	env.Define("get_context", LazyPrimitive(primGetContext))
	env.Define("call", LazyPrimitive(primCall))
	return env
}

func asNumber(v Value, who string) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, fmt.Sprintf("%s: expected a number, got %T", who, v), nil)
	}
	return f, nil
}

func primAdd(args []Value) (Value, error) {
	var sum float64
	for _, a := range args {
		n, err := asNumber(a, "+")
		if err != nil {
			return nil, err
		}
		sum += n
	}
	return sum, nil
}

func primSub(args []Value) (Value, error) {
	if len(args) == 0 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "-: expects at least 1 argument", nil)
	}
	first, err := asNumber(args[0], "-")
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return -first, nil
	}
	result := first
	for _, a := range args[1:] {
		n, err := asNumber(a, "-")
		if err != nil {
			return nil, err
		}
		result -= n
	}
	return result, nil
}

func primEq(args []Value) (Value, error) {
	if len(args) < 2 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "=: expects at least 2 arguments", nil)
	}
	for _, a := range args[1:] {
		if !valuesEqual(args[0], a) {
			return false, nil
		}
	}
	return true, nil
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case Symbol:
		bv, ok := b.(Symbol)
		return ok && av == bv
	case nil:
		return b == nil
	default:
		return false
	}
}

func primLt(args []Value) (Value, error) {
	if len(args) < 2 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "<: expects at least 2 arguments", nil)
	}
	for i := 0; i+1 < len(args); i++ {
		a, err := asNumber(args[i], "<")
		if err != nil {
			return nil, err
		}
		b, err := asNumber(args[i+1], "<")
		if err != nil {
			return nil, err
		}
		if !(a < b) {
			return false, nil
		}
	}
	return true, nil
}

func primList(args []Value) (Value, error) {
	out := make([]Value, len(args))
	copy(out, args)
	return out, nil
}

func asList(v Value, who string) ([]Value, error) {
	list, ok := v.([]Value)
	if !ok {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, fmt.Sprintf("%s: expected a list, got %T", who, v), nil)
	}
	return list, nil
}

func primFirst(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "first: expects exactly 1 argument", nil)
	}
	list, err := asList(args[0], "first")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "first: empty list", nil)
	}
	return list[0], nil
}

func primRest(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "rest: expects exactly 1 argument", nil)
	}
	list, err := asList(args[0], "rest")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []Value{}, nil
	}
	out := make([]Value, len(list)-1)
	copy(out, list[1:])
	return out, nil
}

func primLen(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "len: expects exactly 1 argument", nil)
	}
	switch v := args[0].(type) {
	case []Value:
		return float64(len(v)), nil
	case string:
		return float64(len(v)), nil
	default:
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, fmt.Sprintf("len: expected a list or string, got %T", v), nil)
	}
}

func primConcat(args []Value) (Value, error) {
	var sb []byte
	for _, a := range args {
		s, ok := a.(string)
		if !ok {
			return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, fmt.Sprintf("concat: expected a string, got %T", a), nil)
		}
		sb = append(sb, s...)
	}
	return string(sb), nil
}

func primNot(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "not: expects exactly 1 argument", nil)
	}
	return !Truthy(args[0]), nil
}

// primMap implements (map task_expr list_expr). When task_expr's own form
// is literally a lambda, it is evaluated once and applied as a function to
// each element (scenario 2 requires this). Otherwise task_expr is
// re-evaluated per iteration with `item` bound to the element, matching the
// primitive table's literal description.
func primMap(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) != 2 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "map: expects (map task_expr list_expr)", nil)
	}
	listVal, err := ev.eval(args[1], env, ec)
	if err != nil {
		return nil, err
	}
	items, err := asList(listVal, "map")
	if err != nil {
		return nil, err
	}

	if isLambdaForm(args[0]) {
		fnVal, err := ev.eval(args[0], env, ec)
		if err != nil {
			return nil, err
		}
		closure, ok := fnVal.(*Closure)
		if !ok {
			return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "map: task_expr did not evaluate to a closure", nil)
		}
		out := make([]Value, len(items))
		for i, item := range items {
			if ec.cancel.cancelled() {
				return nil, taskerrors.NewTaskFailure(ports.ReasonCancelled, "evaluation cancelled", nil)
			}
			v, err := ev.applyClosure(closure, []Value{item}, ec)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	out := make([]Value, len(items))
	for i, item := range items {
		if ec.cancel.cancelled() {
			return nil, taskerrors.NewTaskFailure(ports.ReasonCancelled, "evaluation cancelled", nil)
		}
		iterEnv := env.Extend(map[string]Value{"item": item})
		v, err := ev.eval(args[0], iterEnv, ec)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func isLambdaForm(n *Node) bool {
	return n != nil && n.Kind == KindList && len(n.List) > 0 && n.List[0].Kind == KindSymbol && n.List[0].Sym == "lambda"
}

// applyClosure applies an already-evaluated Closure to already-evaluated
// argument values, bypassing apply's raw-*Node argument evaluation path.
func (ev *Evaluator) applyClosure(fn *Closure, argVals []Value, ec *evalCtx) (Value, error) {
	if len(argVals) != len(fn.Params) {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, fmt.Sprintf("closure expects %d args, got %d", len(fn.Params), len(argVals)), nil)
	}
	bindings := make(map[string]Value, len(fn.Params))
	for i, p := range fn.Params {
		bindings[p] = argVals[i]
	}
	callEnv := fn.Env.Extend(bindings)
	return ev.evalBody(fn.Body, callEnv, ec)
}

// primGetContext implements (get_context query_expr [n]) against the
// Memory System's associative matching.
func primGetContext(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "get_context: expects (get_context query [n])", nil)
	}
	if ev.Context == nil {
		return nil, taskerrors.NewTaskFailure(ports.ReasonContextRetrievalFailure, "get_context: no context provider configured", nil)
	}
	queryVal, err := ev.eval(args[0], env, ec)
	if err != nil {
		return nil, err
	}
	query, ok := queryVal.(string)
	if !ok {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "get_context: query must be a string", nil)
	}
	n := 0
	if len(args) == 2 {
		nv, err := ev.eval(args[1], env, ec)
		if err != nil {
			return nil, err
		}
		nn, ok := asNonNegativeInt(nv)
		if !ok {
			return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "get_context: n must be a non-negative integer", nil)
		}
		n = nn
	}
	result, err := ev.Context.GetRelevantContextFor(ec.ctx, ports.ContextGenerationInput{Query: query, MaxMatches: n})
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(result.Matches))
	for i, m := range result.Matches {
		out[i] = map[string]any{"path": m.Path, "score": m.Score}
	}
	return out, nil
}

// primCall implements (call ident arg...): ident may evaluate to a Symbol
// or string naming a binding to resolve dynamically, or to an
// already-callable value.
func primCall(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) < 1 {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "call: expects (call ident arg...)", nil)
	}
	identVal, err := ev.eval(args[0], env, ec)
	if err != nil {
		return nil, err
	}
	var headVal Value
	switch iv := identVal.(type) {
	case Symbol:
		headVal, err = env.Lookup(string(iv))
	case string:
		headVal, err = env.Lookup(iv)
	default:
		headVal = identVal
	}
	if err != nil {
		return nil, err
	}
	return ev.apply(headVal, args[1:], env, ec)
}

package sexpr

import (
	"fmt"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

type specialForm func(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error)

// specialForms are resolved before any environment lookup and are never
// subject to argument pre-evaluation.
var specialForms = map[string]specialForm{
	"quote": formQuote,
	"if": formIf,
	"let": formLet,
	"bind": formBind,
	"define": formDefine,
	"lambda": formLambda,
	"loop": formLoop,
	"and": formAnd,
	"or": formOr,
}

func formQuote(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) != 1 {
		return nil, invalidForm("quote", "expects exactly 1 argument")
	}
	return datumOf(args[0]), nil
}

func formIf(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, invalidForm("if", "expects (if cond then [else])")
	}
	cond, err := ev.eval(args[0], env, ec)
	if err != nil {
		return nil, err
	}
	if Truthy(cond) {
		return ev.eval(args[1], env, ec)
	}
	if len(args) == 3 {
		return ev.eval(args[2], env, ec)
	}
	return nil, nil
}

func formLet(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) < 1 || args[0].Kind != KindList {
		return nil, invalidForm("let", "expects (let ((sym val) ...) body...)")
	}
	bindings := map[string]Value{}
	for _, pair := range args[0].List {
		if pair.Kind != KindList || len(pair.List) != 2 || pair.List[0].Kind != KindSymbol {
			return nil, invalidForm("let", "each binding must be (symbol value)")
		}
		v, err := ev.eval(pair.List[1], env, ec) // evaluated in the OUTER env
		if err != nil {
			return nil, err
		}
		bindings[pair.List[0].Sym] = v
	}
	bodyEnv := env.Extend(bindings)
	return ev.evalBody(args[1:], bodyEnv, ec)
}

func formBind(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) < 2 || args[0].Kind != KindSymbol {
		return nil, invalidForm("bind", "expects (bind symbol value body...)")
	}
	v, err := ev.eval(args[1], env, ec)
	if err != nil {
		return nil, err
	}
	bodyEnv := env.Extend(map[string]Value{args[0].Sym: v})
	return ev.evalBody(args[2:], bodyEnv, ec)
}

func formDefine(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) != 2 || args[0].Kind != KindSymbol {
		return nil, invalidForm("define", "expects (define symbol value)")
	}
	if !env.IsTopLevel() {
		return nil, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "define is only valid at top level", map[string]any{"symbol": args[0].Sym})
	}
	v, err := ev.eval(args[1], env, ec)
	if err != nil {
		return nil, err
	}
	env.Define(args[0].Sym, v)
	return v, nil
}

func formLambda(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) < 1 || args[0].Kind != KindList {
		return nil, invalidForm("lambda", "expects (lambda (params...) body...)")
	}
	params := make([]string, 0, len(args[0].List))
	for _, p := range args[0].List {
		if p.Kind != KindSymbol {
			return nil, invalidForm("lambda", "parameter list must contain only symbols")
		}
		params = append(params, p.Sym)
	}
	return &Closure{Params: params, Body: args[1:], Env: env}, nil
}

func formLoop(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	if len(args) < 1 {
		return nil, invalidForm("loop", "expects (loop n body...)")
	}
	nv, err := ev.eval(args[0], env, ec)
	if err != nil {
		return nil, err
	}
	n, ok := asNonNegativeInt(nv)
	if !ok {
		return nil, invalidForm("loop", "n must be a non-negative integer")
	}
	var last Value
	for i := 0; i < n; i++ {
		if ec.cancel.cancelled() {
			return nil, taskerrors.NewTaskFailure(ports.ReasonCancelled, "evaluation cancelled", nil)
		}
		last, err = ev.evalBody(args[1:], env, ec)
		if err != nil {
			return nil, err
		}
	}
	return last, nil
}

func formAnd(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	var last Value = true
	for _, a := range args {
		v, err := ev.eval(a, env, ec)
		if err != nil {
			return nil, err
		}
		if !Truthy(v) {
			return v, nil
		}
		last = v
	}
	return last, nil
}

func formOr(ev *Evaluator, args []*Node, env *Environment, ec *evalCtx) (Value, error) {
	var last Value = false
	for _, a := range args {
		v, err := ev.eval(a, env, ec)
		if err != nil {
			return nil, err
		}
		if Truthy(v) {
			return v, nil
		}
		last = v
	}
	return last, nil
}

func invalidForm(form, message string) error {
	return taskerrors.NewTaskFailure(ports.ReasonInvalidInput, fmt.Sprintf("%s: %s", form, message), map[string]any{"form": form})
}

func asNonNegativeInt(v Value) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// buildSubtaskRequest inspects a template call's raw (unevaluated) argument
// forms and builds the ports.SubtaskRequest the Task System dispatches on
// (function-call form, step 3: named-pair, (files ...), and (context
// ...) argument shapes are detected on the AST before any evaluation).
func buildSubtaskRequest(ev *Evaluator, name, subtype string, params []string, argNodes []*Node, env *Environment, ec *evalCtx) (ports.SubtaskRequest, error) {
	req := ports.SubtaskRequest{Type: "atomic", Name: name, Subtype: subtype, Inputs: map[string]any{}}

	positional := 0
	for _, a := range argNodes {
		if a.Kind != KindList || len(a.List) == 0 || a.List[0].Kind != KindSymbol {
			v, err := ev.eval(a, env, ec)
			if err != nil {
				return ports.SubtaskRequest{}, err
			}
			if positional >= len(params) {
				return ports.SubtaskRequest{}, invalidForm(name, "too many positional arguments")
			}
			req.Inputs[params[positional]] = v
			positional++
			continue
		}

		head := a.List[0].Sym
		rest := a.List[1:]
		switch head {
		case "files":
			paths, err := evalStringList(ev, rest, env, ec)
			if err != nil {
				return ports.SubtaskRequest{}, err
			}
			req.FilePaths = append(req.FilePaths, paths...)
		case "context":
			override, err := buildContextOverride(ev, rest, env, ec)
			if err != nil {
				return ports.SubtaskRequest{}, err
			}
			req.ContextManagement = override
		default:
			if len(rest) != 1 {
				// not a recognised named-pair shape either; treat whole form as positional
				v, err := ev.eval(a, env, ec)
				if err != nil {
					return ports.SubtaskRequest{}, err
				}
				if positional >= len(params) {
					return ports.SubtaskRequest{}, invalidForm(name, "too many positional arguments")
				}
				req.Inputs[params[positional]] = v
				positional++
				continue
			}
			v, err := ev.eval(rest[0], env, ec)
			if err != nil {
				return ports.SubtaskRequest{}, err
			}
			req.Inputs[head] = v
		}
	}
	return req, nil
}

// buildToolArgs mirrors buildSubtaskRequest's named-pair detection for
// direct-tool invocation, where arguments become a flat map rather than a
// SubtaskRequest.
func buildToolArgs(ev *Evaluator, argNodes []*Node, env *Environment, ec *evalCtx) (map[string]any, error) {
	out := map[string]any{}
	for i, a := range argNodes {
		if a.Kind == KindList && len(a.List) == 2 && a.List[0].Kind == KindSymbol {
			v, err := ev.eval(a.List[1], env, ec)
			if err != nil {
				return nil, err
			}
			out[a.List[0].Sym] = v
			continue
		}
		v, err := ev.eval(a, env, ec)
		if err != nil {
			return nil, err
		}
		out[fmt.Sprintf("arg%d", i)] = v
	}
	return out, nil
}

func evalStringList(ev *Evaluator, nodes []*Node, env *Environment, ec *evalCtx) ([]string, error) {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		v, err := ev.eval(n, env, ec)
		if err != nil {
			return nil, err
		}
		s, ok := v.(string)
		if !ok {
			return nil, invalidForm("files", "each path must evaluate to a string")
		}
		out = append(out, s)
	}
	return out, nil
}

func buildContextOverride(ev *Evaluator, nodes []*Node, env *Environment, ec *evalCtx) (*ports.ContextManagementOverride, error) {
	override := &ports.ContextManagementOverride{}
	for _, n := range nodes {
		if n.Kind != KindList || len(n.List) != 2 || n.List[0].Kind != KindSymbol {
			return nil, invalidForm("context", "each override must be (field value)")
		}
		field := n.List[0].Sym
		v, err := ev.eval(n.List[1], env, ec)
		if err != nil {
			return nil, err
		}
		switch field {
		case "inherit_context":
			s, ok := v.(string)
			if !ok {
				return nil, invalidForm("context", "inherit_context must be a string")
			}
			override.InheritContext = &s
		case "accumulate_data":
			b, ok := v.(bool)
			if !ok {
				return nil, invalidForm("context", "accumulate_data must be a boolean")
			}
			override.AccumulateData = &b
		case "fresh_context":
			s, ok := v.(string)
			if !ok {
				return nil, invalidForm("context", "fresh_context must be a string")
			}
			override.FreshContext = &s
		default:
			return nil, invalidForm("context", "unknown override field: "+field)
		}
	}
	return override, nil
}

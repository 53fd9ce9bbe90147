package sexpr

// Value is anything the evaluator can produce or bind: nil, bool, float64,
// string, Symbol, []Value, *Closure, *TemplateRef, or Primitive.
type Value = any

// Symbol is a quoted, unevaluated identifier — the runtime form of a
// KindSymbol Node once it has passed through (quote ...) or 'shorthand.
type Symbol string

// Closure is a lambda value: parameters, body forms, and the environment
// captured at creation time (Environment: "Values may be ... closures
// {params, body, captured_env}").
type Closure struct {
	Params []string
	Body []*Node
	Env *Environment
}

// Primitive is a builtin function operating on already-evaluated arguments.
type Primitive func(args []Value) (Value, error)

// datumOf converts a parsed Node into its unevaluated runtime Value, the
// conversion `quote` and `'x` perform.
func datumOf(n *Node) Value {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindSymbol:
		return Symbol(n.Sym)
	case KindString:
		return n.Str
	case KindNumber:
		return n.Num
	case KindBool:
		return n.Bool
	case KindNil:
		return nil
	case KindList:
		items := make([]Value, len(n.List))
		for i, c := range n.List {
			items[i] = datumOf(c)
		}
		return items
	}
	return nil
}

// Truthy implements the evaluator's notion of truthiness for `if`/`and`/`or`:
// nil and the boolean false are falsy; everything else, including 0 and the
// empty string, is truthy (matching the Lisp convention the teacher's own
// tool-loop "is the response empty" checks do not follow — this is the DSL's
// own, simpler rule: only the two explicit falsy values).
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

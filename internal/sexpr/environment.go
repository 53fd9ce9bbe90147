package sexpr

import (
	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

// Environment is a lexical scope: a symbol→value mapping plus an optional
// outer pointer. Environments are immutable references — extend returns a
// fresh child and never mutates its parent (Invariants, "Evaluator
// lexical isolation").
type Environment struct {
	vars map[string]Value
	outer *Environment
}

// NewEnvironment returns a fresh, empty top-level environment.
func NewEnvironment() *Environment {
	return &Environment{vars: map[string]Value{}}
}

// Extend returns a new child environment with bindings layered over e.
// e itself is never mutated.
func (e *Environment) Extend(bindings map[string]Value) *Environment {
	child := &Environment{vars: map[string]Value{}, outer: e}
	for k, v := range bindings {
		child.vars[k] = v
	}
	return child
}

// Define binds sym in this environment frame directly (used by the
// top-level-only `define` special form).
func (e *Environment) Define(sym string, v Value) {
	e.vars[sym] = v
}

// Lookup walks outward through outer pointers until sym is found.
func (e *Environment) Lookup(sym string) (Value, error) {
	for env := e; env != nil; env = env.outer {
		if v, ok := env.vars[sym]; ok {
			return v, nil
		}
	}
	return nil, &taskerrors.TaskFailureError{
		Reason: ports.ReasonUnboundSymbol,
		Message: "unbound symbol: " + sym,
		Details: map[string]any{"symbol": sym},
	}
}

// IsTopLevel reports whether e has no outer — used to enforce `define`'s
// top-level-only restriction.
func (e *Environment) IsTopLevel() bool {
	return e.outer == nil
}

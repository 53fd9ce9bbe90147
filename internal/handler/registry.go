package handler

import (
	"context"
	"sort"

	"github.com/nullstream/taskrt/internal/ports"
)

// toolRegistry holds both tool kinds a session may expose to the LLM:
// direct tools run inline and their result becomes a tool message; subtask
// tools never run inline and resolving one yields a CONTINUATION.
type toolRegistry struct {
	directDefs map[string]ports.ToolDefinition
	direct map[string]ports.DirectExecutor
	subtaskDefs map[string]ports.ToolDefinition
	subtaskHints map[string]ports.TemplateHints
}

func newToolRegistry() *toolRegistry {
	return &toolRegistry{
		directDefs: map[string]ports.ToolDefinition{},
		direct: map[string]ports.DirectExecutor{},
		subtaskDefs: map[string]ports.ToolDefinition{},
		subtaskHints: map[string]ports.TemplateHints{},
	}
}

// registerDirectTool installs a direct tool. Registration is idempotent:
// re-registering the same name simply replaces the executor, matching
// "idempotent injection" requirement.
func (r *toolRegistry) registerDirectTool(def ports.ToolDefinition, exec ports.DirectExecutor) {
	r.directDefs[def.Name] = def
	r.direct[def.Name] = exec
}

// registerSubtaskTool installs a subtask tool with its template hints.
func (r *toolRegistry) registerSubtaskTool(def ports.ToolDefinition, hints ports.TemplateHints) {
	r.subtaskDefs[def.Name] = def
	r.subtaskHints[def.Name] = hints
}

// definitions returns every registered tool's definition, direct tools
// first, both groups sorted by name for deterministic prompts.
func (r *toolRegistry) definitions() []ports.ToolDefinition {
	defs := make([]ports.ToolDefinition, 0, len(r.directDefs)+len(r.subtaskDefs))
	for _, name := range sortedKeys(r.directDefs) {
		defs = append(defs, r.directDefs[name])
	}
	for _, name := range sortedKeys(r.subtaskDefs) {
		defs = append(defs, r.subtaskDefs[name])
	}
	return defs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// directNames returns every registered direct tool's name, sorted.
func (r *toolRegistry) directNames() []string {
	return sortedKeys(r.direct)
}

// isSubtaskTool reports whether name names a registered subtask tool and,
// if so, returns its template hints.
func (r *toolRegistry) isSubtaskTool(name string) (ports.TemplateHints, bool) {
	hints, ok := r.subtaskHints[name]
	return hints, ok
}

// dispatchDirect runs a registered direct tool. The caller must already
// know name is not a subtask tool.
func (r *toolRegistry) dispatchDirect(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	exec, ok := r.direct[call.Name]
	if !ok {
		return &ports.ToolResult{CallID: call.ID, Error: errUnknownTool(call.Name)}, nil
	}
	return exec(ctx, call)
}

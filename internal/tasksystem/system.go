package tasksystem

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/executor"
	"github.com/nullstream/taskrt/internal/ports"
)

// AssociativeMatchingAlias is the reserved "type:subtype" key the Memory
// System's retrieval protocol executes through the Task System (metacircular
// matching).
const AssociativeMatchingAlias = "atomic:associative_matching"

// TaskSystem implements the contract: execute_atomic_template,
// register_template, find_template, find_matching_tasks, and
// generate_context_for_memory_system.
type TaskSystem struct {
	registry *registry
	context ContextProvider
	files FileReader
	executor *executor.AtomicExecutor
	handlerFactory func() executor.HandlerInvoker
}

// New constructs a TaskSystem. ctxProvider may be nil until the Memory
// System is wired in (context resolution then treats fresh_context as a
// no-op); handlerFactory is called once per atomic dispatch to obtain a
// dedicated Handler, so conversation history never leaks between atomic
// calls.
func New(ctxProvider ContextProvider, files FileReader, handlerFactory func() executor.HandlerInvoker) *TaskSystem {
	return &TaskSystem{
		registry:       newRegistry(),
		context:        ctxProvider,
		files:          files,
		executor:       executor.New(),
		handlerFactory: handlerFactory,
	}
}

// SetContextProvider wires the Memory System in after construction. The
// Task System and Memory System each depend on the other (metacircular
// associative matching), so one side must be constructed with a nil
// dependency and completed here once both exist.
func (ts *TaskSystem) SetContextProvider(ctxProvider ContextProvider) {
	ts.context = ctxProvider
}

// RegisterTemplate validates and stores t ("Registration").
func (ts *TaskSystem) RegisterTemplate(t *ports.AtomicTemplate) error {
	return ts.registry.register(t)
}

// RegisterProgrammatic registers a native executor under a "name:subtype"
// key, checked before any template lookup (dispatch precedence step 1).
func (ts *TaskSystem) RegisterProgrammatic(key string, fn ProgrammaticExecutor) {
	ts.registry.registerProgrammatic(key, fn)
}

// FindTemplate looks up a registered atomic template by name or alias.
func (ts *TaskSystem) FindTemplate(identifier string) (*ports.AtomicTemplate, bool) {
	return ts.registry.find(identifier)
}

// FindMatchingTasks ranks registered templates against text by similarity.
func (ts *TaskSystem) FindMatchingTasks(text string) []Match {
	return findMatchingTasks(text, ts.registry.all())
}

// Templates returns every registered atomic template, in registration
// order. Used by the Dispatcher to bind each template's name into the
// evaluator's top-level environment as a callable TemplateRef.
func (ts *TaskSystem) Templates() []*ports.AtomicTemplate {
	return ts.registry.all()
}

// ExecuteAtomicTemplate implements the dispatch precedence: a
// programmatic executor if one matches, else an atomic template looked up
// by name then alias, else TASK_FAILURE{template_not_found}.
func (ts *TaskSystem) ExecuteAtomicTemplate(ctx context.Context, req ports.SubtaskRequest) (ports.TaskResult, error) {
	key := req.Name
	if key == "" {
		key = "atomic:" + req.Subtype
	}
	if fn, ok := ts.registry.findProgrammatic(key); ok {
		return fn(ctx, req.Inputs, SharedServices{ReadFile: ts.readFile})
	}

	identifier := req.Name
	if identifier == "" {
		identifier = AliasOf(req.Subtype)
	}
	tmpl, ok := ts.registry.find(identifier)
	if !ok && req.Subtype != "" {
		tmpl, ok = ts.registry.find(AliasOf(req.Subtype))
	}
	if !ok {
		return ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonTemplateNotFound, "no atomic template or programmatic executor registered for: "+identifier, map[string]any{"identifier": identifier})
	}

	eff := resolveEffectiveContext(tmpl, req)
	contextString, includedFiles, err := ts.assembleContext(ctx, tmpl, req, eff)
	if err != nil {
		return ports.TaskResult{}, err
	}

	if ts.handlerFactory == nil {
		return ports.TaskResult{}, taskerrors.NewTaskFailure(ports.ReasonProviderError, "no handler factory configured", nil)
	}
	handler := ts.handlerFactory()

	result, err := ts.executor.ExecuteBody(ctx, tmpl, req.Inputs, handler, contextString, includedFiles)
	if err != nil {
		return ports.TaskResult{}, err
	}
	if result.Notes == nil {
		result.Notes = map[string]any{}
	}
	result.Notes[ports.NoteTemplateUsed] = tmpl.Name
	if contextString != "" {
		result.Notes[ports.NoteContextSource] = "fresh"
		result.Notes[ports.NoteContextFilesCount] = len(includedFiles)
	}
	return result, nil
}

func (ts *TaskSystem) readFile(ctx context.Context, path string) (string, error) {
	if ts.files == nil {
		return "", taskerrors.NewTaskFailure(ports.ReasonToolError, "no file reader configured", nil)
	}
	return ts.files.ReadFile(ctx, path)
}

// AliasOf formats an atomic template's type:subtype alias for lookup.
func AliasOf(subtype string) string {
	return "atomic:" + subtype
}

// GenerateContextForMemorySystem executes the associative_matching atomic
// template through the Task System itself (metacircular property).
// This call must not request fresh context of its own — the matching
// template is registered with fresh_context=disabled, which
// resolveEffectiveContext honours, so no further recursion occurs.
func (ts *TaskSystem) GenerateContextForMemorySystem(ctx context.Context, input ports.ContextGenerationInput, index ports.GlobalIndex) (ports.AssociativeMatchResult, error) {
	req := ports.SubtaskRequest{
		Type: "atomic",
		Subtype: "associative_matching",
		Inputs: map[string]any{
			"global_index": formatGlobalIndex(index),
			"template_description": input.TemplateDescription,
			"template_type": input.TemplateType,
			"template_subtype": input.TemplateSubtype,
			"inherited_context": input.InheritedContext,
			"query": input.Query,
		},
	}
	result, err := ts.ExecuteAtomicTemplate(ctx, req)
	if err != nil {
		return ports.AssociativeMatchResult{}, err
	}
	if result.Status != ports.StatusComplete {
		return ports.AssociativeMatchResult{}, taskerrors.NewTaskFailure(ports.ReasonContextRetrievalFailure, "associative matching did not complete", nil)
	}

	matches, err := parseMatches(result)
	if err != nil {
		return ports.AssociativeMatchResult{}, taskerrors.NewTaskFailure(ports.ReasonContextParsingFailure, "could not parse associative matching output: "+err.Error(), nil)
	}
	if input.MaxMatches > 0 && len(matches) > input.MaxMatches {
		matches = matches[:input.MaxMatches]
	}
	return ports.AssociativeMatchResult{Matches: matches}, nil
}

func parseMatches(result ports.TaskResult) ([]ports.Match, error) {
	raw := result.ParsedContent
	if raw == nil {
		if err := json.Unmarshal([]byte(result.Content), &raw); err != nil {
			return nil, err
		}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON array, got %T", raw)
	}
	out := make([]ports.Match, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected a JSON object match entry, got %T", item)
		}
		path, _ := m["path"].(string)
		relevance, _ := m["relevance"].(string)
		score, _ := m["score"].(float64)
		out = append(out, ports.Match{Path: path, Relevance: relevance, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// formatGlobalIndex joins the index into "path: metadata" lines, the input
// format the associative_matching template's prompt expects.
func formatGlobalIndex(index ports.GlobalIndex) string {
	paths := make([]string, 0, len(index))
	for p := range index {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var sb strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&sb, "%s: %s\n", p, index[p])
	}
	return sb.String()
}

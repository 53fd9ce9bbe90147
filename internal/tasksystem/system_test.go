package tasksystem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/executor"
	"github.com/nullstream/taskrt/internal/ports"
)

// echoHandler returns its user prompt verbatim as COMPLETE content —
// enough to exercise dispatch without a real LLM.
type echoHandler struct{}

func (echoHandler) ExecutePrompt(ctx context.Context, req executor.PromptRequest) (ports.TaskResult, error) {
	return ports.TaskResult{Status: ports.StatusComplete, Content: req.UserPrompt}, nil
}

func newTestSystem() *TaskSystem {
	return New(nil, nil, func() executor.HandlerInvoker { return echoHandler{} })
}

func TestRegisterTemplateRejectsDuplicateName(t *testing.T) {
	ts := newTestSystem()
	require.NoError(t, ts.RegisterTemplate(&ports.AtomicTemplate{Name: "a", Type: ports.KindAtomic, Subtype: "a"}))
	err := ts.RegisterTemplate(&ports.AtomicTemplate{Name: "a", Type: ports.KindAtomic, Subtype: "b"})
	require.Error(t, err)
	tf, ok := taskerrors.AsTaskFailure(err)
	require.True(t, ok)
	require.Equal(t, ports.ReasonInvalidInput, tf.Reason)
}

func TestExecuteAtomicTemplateProgrammaticExecutorTakesPrecedence(t *testing.T) {
	ts := newTestSystem()
	require.NoError(t, ts.RegisterTemplate(&ports.AtomicTemplate{Name: "aider:automatic", Type: ports.KindAtomic, Subtype: "automatic", Instructions: "never called"}))
	ts.RegisterProgrammatic("aider:automatic", aiderAutomaticExecutor)

	result, err := ts.ExecuteAtomicTemplate(context.Background(), ports.SubtaskRequest{
		Type: "atomic",
		Name: "aider:automatic",
		Inputs: map[string]any{
			"prompt":       "add docstring",
			"file_context": []string{"/a.py"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, ports.StatusComplete, result.Status)
	require.Contains(t, result.Content, "add docstring")
	require.Equal(t, "aider:automatic", result.Notes[ports.NoteTemplateUsed])
}

func TestExecuteAtomicTemplateNotFound(t *testing.T) {
	ts := newTestSystem()
	_, err := ts.ExecuteAtomicTemplate(context.Background(), ports.SubtaskRequest{Type: "atomic", Name: "nope"})
	require.Error(t, err)
	tf, ok := taskerrors.AsTaskFailure(err)
	require.True(t, ok)
	require.Equal(t, ports.ReasonTemplateNotFound, tf.Reason)
}

func TestExecuteAtomicTemplateDispatchesByNameThenAlias(t *testing.T) {
	ts := newTestSystem()
	require.NoError(t, ts.RegisterTemplate(&ports.AtomicTemplate{
		Name: "summarize", Type: ports.KindAtomic, Subtype: "summarize",
		Instructions: "Summarize: {{text}}",
	}))

	byName, err := ts.ExecuteAtomicTemplate(context.Background(), ports.SubtaskRequest{Type: "atomic", Name: "summarize", Inputs: map[string]any{"text": "hi"}})
	require.NoError(t, err)
	require.Equal(t, "Summarize: hi", byName.Content)

	byAlias, err := ts.ExecuteAtomicTemplate(context.Background(), ports.SubtaskRequest{Type: "atomic", Subtype: "summarize", Inputs: map[string]any{"text": "yo"}})
	require.NoError(t, err)
	require.Equal(t, "Summarize: yo", byAlias.Content)
}

func TestFindMatchingTasksRanksByDescriptionOverlap(t *testing.T) {
	ts := newTestSystem()
	require.NoError(t, ts.RegisterTemplate(&ports.AtomicTemplate{Name: "auth", Type: ports.KindAtomic, Subtype: "auth", Description: "handles user authentication and login flow"}))
	require.NoError(t, ts.RegisterTemplate(&ports.AtomicTemplate{Name: "cache", Type: ports.KindAtomic, Subtype: "cache", Description: "in-memory caching layer"}))

	matches := ts.FindMatchingTasks("authentication logic")
	require.Len(t, matches, 1)
	require.Equal(t, "auth", matches[0].Template.Name)
}

// stubContextProvider returns a fixed AssociativeMatchResult, simulating
// the Memory System's metacircular call without an actual LLM.
type stubContextProvider struct {
	result ports.AssociativeMatchResult
}

func (s stubContextProvider) GetRelevantContextFor(ctx context.Context, input ports.ContextGenerationInput) (ports.AssociativeMatchResult, error) {
	return s.result, nil
}

type stubFileReader struct {
	contents map[string]string
}

func (s stubFileReader) ReadFile(ctx context.Context, path string) (string, error) {
	return s.contents[path], nil
}

func TestExecuteAtomicTemplateResolvesFreshContext(t *testing.T) {
	ctxProvider := stubContextProvider{result: ports.AssociativeMatchResult{Matches: []ports.Match{{Path: "/auth.py", Score: 0.9}}}}
	files := stubFileReader{contents: map[string]string{"/auth.py": "def login(): pass"}}
	ts := New(ctxProvider, files, func() executor.HandlerInvoker { return echoHandler{} })
	require.NoError(t, ts.RegisterTemplate(&ports.AtomicTemplate{
		Name: "review", Type: ports.KindAtomic, Subtype: "review",
		Instructions: "go",
	}))

	result, err := ts.ExecuteAtomicTemplate(context.Background(), ports.SubtaskRequest{Type: "atomic", Name: "review", Inputs: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Notes[ports.NoteContextFilesCount])
}

func TestExecuteAtomicTemplateFreshContextDisabledSkipsRetrieval(t *testing.T) {
	calls := 0
	ctxProvider := countingContextProvider{count: &calls}
	ts := New(ctxProvider, nil, func() executor.HandlerInvoker { return echoHandler{} })
	disabled := "disabled"
	require.NoError(t, ts.RegisterTemplate(&ports.AtomicTemplate{
		Name: "matching", Type: ports.KindAtomic, Subtype: "associative_matching",
		Instructions:      "go",
		ContextManagement: &ports.ContextManagement{InheritContext: "none", FreshContext: disabled},
	}))

	_, err := ts.ExecuteAtomicTemplate(context.Background(), ports.SubtaskRequest{Type: "atomic", Subtype: "associative_matching", Inputs: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, 0, calls)
}

type countingContextProvider struct {
	count *int
}

func (c countingContextProvider) GetRelevantContextFor(ctx context.Context, input ports.ContextGenerationInput) (ports.AssociativeMatchResult, error) {
	*c.count++
	return ports.AssociativeMatchResult{}, nil
}

func TestGenerateContextForMemorySystemIsSingleHop(t *testing.T) {
	ts := newTestSystem()
	disabled := "disabled"
	require.NoError(t, ts.RegisterTemplate(&ports.AtomicTemplate{
		Name: "atomic:associative_matching", Type: ports.KindAtomic, Subtype: "associative_matching",
		Instructions:      `[{"path":"auth.py","relevance":"login flow","score":0.9}]`,
		ContextManagement: &ports.ContextManagement{FreshContext: disabled},
	}))

	result, err := ts.GenerateContextForMemorySystem(context.Background(), ports.ContextGenerationInput{Query: "authentication logic"}, ports.GlobalIndex{
		"auth.py":  "handles login",
		"cache.py": "in-memory cache",
	})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	require.Equal(t, "auth.py", result.Matches[0].Path)
}

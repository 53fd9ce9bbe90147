package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
	"github.com/nullstream/taskrt/internal/sexpr"
	"github.com/nullstream/taskrt/internal/tasksystem"
)

type stubChatHandler struct {
	lastQuery string
	result    ports.TaskResult
}

func (h *stubChatHandler) HandleQuery(ctx context.Context, userText string) (ports.TaskResult, error) {
	h.lastQuery = userText
	return h.result, nil
}

type stubTools struct {
	calls map[string]map[string]any
}

func (s *stubTools) DirectToolNames() []string { return []string{"shout"} }

func (s *stubTools) InvokeTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if s.calls == nil {
		s.calls = map[string]map[string]any{}
	}
	s.calls[name] = args
	return "SHOUTED", nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *tasksystem.TaskSystem, *stubChatHandler) {
	t.Helper()
	ts := tasksystem.New(nil, nil, nil)
	require.NoError(t, ts.RegisterTemplate(&ports.AtomicTemplate{
		Name: "greet", Type: ports.KindAtomic, Subtype: "greet", Params: []string{"who"},
	}))
	ts.RegisterProgrammatic("greet", func(ctx context.Context, inputs map[string]any, services tasksystem.SharedServices) (ports.TaskResult, error) {
		return ports.TaskResult{Status: ports.StatusComplete, Content: "hello, " + inputs["who"].(string)}, nil
	})

	ev := sexpr.NewEvaluator(nil)
	chat := &stubChatHandler{result: ports.TaskResult{Status: ports.StatusComplete, Content: "chatted"}}
	tools := &stubTools{}
	return New(ev, ts, chat, tools), ts, chat
}

func TestDispatchRoutesSexprToEvaluator(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	result, err := d.Dispatch(context.Background(), `(greet "world")`)
	require.NoError(t, err)
	require.Equal(t, ports.StatusComplete, result.Status)
	require.Equal(t, "hello, world", result.Content)
}

func TestDispatchRoutesSexprToDirectTool(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	v, err := d.evaluator.Eval(context.Background(), mustParseOne(t, `(shout "hi")`), d.buildEnv(), nil)
	require.NoError(t, err)
	require.Equal(t, "SHOUTED", v)
}

func TestDispatchRoutesTaskDirectInvocation(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	result, err := d.Dispatch(context.Background(), "/task greet who=world")
	require.NoError(t, err)
	require.Equal(t, ports.StatusComplete, result.Status)
	require.Equal(t, "hello, world", result.Content)
}

func TestDispatchRoutesTaskWithEmbeddedSexpr(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	result, err := d.Dispatch(context.Background(), `/task (greet (who "world"))`)
	require.NoError(t, err)
	require.Equal(t, "hello, world", result.Content)
}

func TestDispatchRoutesPlanAndFreeTextToChatHandler(t *testing.T) {
	d, _, chat := newTestDispatcher(t)

	result, err := d.Dispatch(context.Background(), "/plan build a widget")
	require.NoError(t, err)
	require.Equal(t, "chatted", result.Content)
	require.Equal(t, "/plan build a widget", chat.lastQuery)

	_, err = d.Dispatch(context.Background(), "just say hi")
	require.NoError(t, err)
	require.Equal(t, "just say hi", chat.lastQuery)
}

func TestDispatchReturnsUnknownCommandForUnrecognisedSlash(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "/bogus thing")
	require.Error(t, err)
	tf, ok := taskerrors.AsTaskFailure(err)
	require.True(t, ok)
	require.Equal(t, ports.ReasonUnknownCommand, tf.Reason)
}

func TestDispatchRejectsMalformedTaskArgument(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "/task greet noequals")
	require.Error(t, err)
	tf, ok := taskerrors.AsTaskFailure(err)
	require.True(t, ok)
	require.Equal(t, ports.ReasonInvalidInput, tf.Reason)
}

func mustParseOne(t *testing.T, source string) *sexpr.Node {
	t.Helper()
	n, err := sexpr.ParseOne(source)
	require.NoError(t, err)
	return n
}

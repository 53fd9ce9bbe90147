package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nullstream/taskrt/internal/executor"
	"github.com/nullstream/taskrt/internal/ports"
)

func TestExecutePromptDoesNotTouchSessionHistory(t *testing.T) {
	provider := &scriptedProvider{responses: []ports.CompletionResponse{{Content: "atomic result"}}}
	s := newTestSession(provider)
	s.history = append(s.history, ports.Message{Role: "user", Content: "earlier chat"})

	result, err := s.ExecutePrompt(context.Background(), executor.PromptRequest{
		SystemPrompt: "summarize this",
		UserPrompt:   "the document text",
	})
	require.NoError(t, err)
	require.Equal(t, ports.StatusComplete, result.Status)
	require.Equal(t, "atomic result", result.Content)

	// Session's own committed history is untouched by a dedicated call.
	require.Len(t, s.history, 1)
	require.Equal(t, "earlier chat", s.history[0].Content)

	// The provider saw only the dedicated prompt, not the session history.
	require.Len(t, provider.calls[0].history, 1)
	require.Equal(t, "the document text", provider.calls[0].history[0].Content)
}

func TestExecutePromptUsesTemplateToolDefsOverRegistry(t *testing.T) {
	provider := &scriptedProvider{responses: []ports.CompletionResponse{{Content: "ok"}}}
	s := newTestSession(provider)
	s.RegisterDirectTool(ports.ToolDefinition{Name: "session_tool"}, func(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
		return &ports.ToolResult{CallID: call.ID}, nil
	})

	_, err := s.ExecutePrompt(context.Background(), executor.PromptRequest{
		SystemPrompt: "go",
		UserPrompt:   "go",
		ToolDefs:     []ports.ToolDefinition{{Name: "template_tool"}},
	})
	require.NoError(t, err)
	require.Len(t, provider.calls[0].tools, 1)
	require.Equal(t, "template_tool", provider.calls[0].tools[0].Name)
}

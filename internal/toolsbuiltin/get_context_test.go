package toolsbuiltin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nullstream/taskrt/internal/ports"
)

type stubContextSource struct {
	result ports.AssociativeMatchResult
	err    error
}

func (s *stubContextSource) GetRelevantContextFor(ctx context.Context, input ports.ContextGenerationInput) (ports.AssociativeMatchResult, error) {
	return s.result, s.err
}

func TestGetContextToolFormatsMatches(t *testing.T) {
	src := &stubContextSource{result: ports.AssociativeMatchResult{
		Matches: []ports.Match{{Path: "a.go", Score: 0.9, Relevance: "direct hit"}},
	}}
	tool := &GetContextTool{Memory: src}

	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{"query": "widget"}})
	require.NoError(t, err)
	require.NoError(t, result.Error)
	require.Contains(t, result.Content, "a.go")
	require.Contains(t, result.Content, "0.90")
}

func TestGetContextToolRequiresQuery(t *testing.T) {
	tool := &GetContextTool{Memory: &stubContextSource{}}
	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.Error(t, result.Error)
}

func TestGetContextToolSurfacesSourceError(t *testing.T) {
	tool := &GetContextTool{Memory: &stubContextSource{err: errors.New("boom")}}
	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{"query": "widget"}})
	require.NoError(t, err)
	require.Error(t, result.Error)
}

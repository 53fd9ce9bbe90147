package toolsbuiltin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nullstream/taskrt/internal/ports"
)

func TestReadFileToolReadsSandboxedContent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeFile(t, filepath.Join(root, "notes.txt"), "hello world"))

	tool := &ReadFileTool{Root: root}
	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{"path": "notes.txt"}})
	require.NoError(t, err)
	require.NoError(t, result.Error)
	require.Equal(t, "hello world", result.Content)
}

func TestReadFileToolRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	tool := &ReadFileTool{Root: root}
	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{"path": "../secret.txt"}})
	require.NoError(t, err)
	require.Error(t, result.Error)
}

func TestReadFileToolRequiresPath(t *testing.T) {
	tool := &ReadFileTool{Root: t.TempDir()}
	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.Error(t, result.Error)
}

package toolsbuiltin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nullstream/taskrt/internal/ports"
)

func TestEditFileToolWritesContentAndReturnsDiff(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeFile(t, filepath.Join(root, "a.txt"), "line one\nline two\n"))

	tool := &EditFileTool{Root: root}
	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{
		"path":    "a.txt",
		"content": "line one\nline three\n",
	}})
	require.NoError(t, err)
	require.NoError(t, result.Error)
	require.Contains(t, result.Content, "--- a/a.txt")
	require.Contains(t, result.Content, "+++ b/a.txt")
	require.Contains(t, result.Content, "-line two")
	require.Contains(t, result.Content, "+line three")

	written, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "line one\nline three\n", string(written))
}

func TestEditFileToolCreatesNewFile(t *testing.T) {
	root := t.TempDir()
	tool := &EditFileTool{Root: root}

	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{
		"path":    "new.txt",
		"content": "brand new\n",
	}})
	require.NoError(t, err)
	require.NoError(t, result.Error)

	written, err := os.ReadFile(filepath.Join(root, "new.txt"))
	require.NoError(t, err)
	require.Equal(t, "brand new\n", string(written))
}

func TestEditFileToolNoopWhenContentUnchanged(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeFile(t, filepath.Join(root, "a.txt"), "same\n"))

	tool := &EditFileTool{Root: root}
	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{
		"path":    "a.txt",
		"content": "same\n",
	}})
	require.NoError(t, err)
	require.Empty(t, result.Content)
}

func TestEditFileToolRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	tool := &EditFileTool{Root: root}
	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c1", Arguments: map[string]any{
		"path":    "../escape.txt",
		"content": "x",
	}})
	require.NoError(t, err)
	require.Error(t, result.Error)
}

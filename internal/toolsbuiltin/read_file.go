package toolsbuiltin

import (
	"context"
	"fmt"
	"os"

	"github.com/nullstream/taskrt/internal/ports"
)

// ReadFileTool reads files sandboxed to a fixed root directory. Registered
// as a direct tool and also satisfies tasksystem.FileReader so the
// Task System's file_paths context assembly can share the same sandbox.
type ReadFileTool struct {
	Root string
}

// Definition returns the tool's LLM-facing schema.
func (t *ReadFileTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name: "read_file",
		Description: "Read the contents of a file within the sandboxed workspace.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {Type: "string", Description: "Path relative to the workspace root."},
			},
			Required: []string{"path"},
		},
	}
}

// Execute implements ports.DirectExecutor.
func (t *ReadFileTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, _ := call.Arguments["path"].(string)
	if path == "" {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("read_file: missing required argument %q", "path")}, nil
	}
	content, err := t.ReadFile(ctx, path)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}
	return &ports.ToolResult{CallID: call.ID, Content: content}, nil
}

// ReadFile implements tasksystem.FileReader.
func (t *ReadFileTool) ReadFile(ctx context.Context, path string) (string, error) {
	resolved, err := resolveWithinRoot(t.Root, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	return string(data), nil
}

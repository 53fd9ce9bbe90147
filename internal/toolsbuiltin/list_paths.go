package toolsbuiltin

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/nullstream/taskrt/internal/ports"
)

// IndexSource is the subset of the Memory System list_paths needs.
type IndexSource interface {
	GetGlobalIndex() ports.GlobalIndex
}

// ListPathsTool glob-matches paths out of the current GlobalIndex snapshot,
// without ever reading file content (Invariants: the index never holds
// file contents).
type ListPathsTool struct {
	Index IndexSource
}

// Definition returns the tool's LLM-facing schema.
func (t *ListPathsTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name: "list_paths",
		Description: "List indexed paths matching a glob pattern (default \"*\").",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"pattern": {Type: "string", Description: "A filepath.Match glob pattern; matched against the base name of each indexed path."},
			},
		},
	}
}

// Execute implements ports.DirectExecutor.
func (t *ListPathsTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	pattern, _ := call.Arguments["pattern"].(string)
	if pattern == "" {
		pattern = "*"
	}

	index := t.Index.GetGlobalIndex()
	matches := make([]string, 0, len(index))
	for path := range index {
		ok, err := filepath.Match(pattern, filepath.Base(path))
		if err != nil {
			return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("list_paths: %w", err)}, nil
		}
		if ok {
			matches = append(matches, path)
		}
	}
	sort.Strings(matches)

	var content string
	for _, m := range matches {
		content += m + "\n"
	}
	return &ports.ToolResult{CallID: call.ID, Content: content}, nil
}

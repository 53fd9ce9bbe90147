package toolsbuiltin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/nullstream/taskrt/internal/ports"
)

// EditFileTool replaces a sandboxed file's full content and reports the
// unified diff of the change. Unlike the teacher's colorized terminal
// diff, the returned text is plain: it is meant to round-trip into an LLM
// conversation, not a terminal.
type EditFileTool struct {
	Root string
}

// Definition returns the tool's LLM-facing schema.
func (t *EditFileTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "edit_file",
		Description: "Replace a file's full content within the sandboxed workspace and return a unified diff.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path":    {Type: "string", Description: "Path relative to the workspace root."},
				"content": {Type: "string", Description: "The file's new, complete content."},
			},
			Required: []string{"path", "content"},
		},
	}
}

// Execute implements ports.DirectExecutor.
func (t *EditFileTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, _ := call.Arguments["path"].(string)
	newContent, hasContent := call.Arguments["content"].(string)
	if path == "" || !hasContent {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("edit_file: requires %q and %q arguments", "path", "content")}, nil
	}

	resolved, err := resolveWithinRoot(t.Root, path)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}

	oldContent := ""
	if data, err := os.ReadFile(resolved); err == nil {
		oldContent = string(data)
	}

	if err := os.WriteFile(resolved, []byte(newContent), 0o644); err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("edit_file: write %s: %w", path, err)}, nil
	}

	return &ports.ToolResult{CallID: call.ID, Content: unifiedDiff(oldContent, newContent, path)}, nil
}

// unifiedDiff builds a plain (uncolored) unified diff between oldContent
// and newContent, grounded on the teacher's diffmatchpatch-based generator
// but without its terminal coloring.
func unifiedDiff(oldContent, newContent, filename string) string {
	if oldContent == newContent {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldContent, newContent, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", filename, filename)
	for _, d := range diffs {
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				fmt.Fprintf(&b, "+%s\n", line)
			case diffmatchpatch.DiffDelete:
				fmt.Fprintf(&b, "-%s\n", line)
			default:
				fmt.Fprintf(&b, " %s\n", line)
			}
		}
	}
	return b.String()
}

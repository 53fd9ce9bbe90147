package toolsbuiltin

import (
	"context"
	"fmt"
	"strings"

	"github.com/nullstream/taskrt/internal/ports"
)

// ContextSource is the subset of the Memory System get_context needs.
type ContextSource interface {
	GetRelevantContextFor(ctx context.Context, input ports.ContextGenerationInput) (ports.AssociativeMatchResult, error)
}

// GetContextTool exposes the Memory System's retrieval contract as a direct
// tool, so a chat turn can pull relevant paths into the conversation the
// same way an atomic template's fresh_context resolution does.
type GetContextTool struct {
	Memory ContextSource
}

// Definition returns the tool's LLM-facing schema.
func (t *GetContextTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "get_context",
		Description: "Retrieve paths relevant to a query from the global index.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"query":       {Type: "string", Description: "What to search for."},
				"max_matches": {Type: "number", Description: "Maximum number of matches to return."},
			},
			Required: []string{"query"},
		},
	}
}

// Execute implements ports.DirectExecutor.
func (t *GetContextTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	query, _ := call.Arguments["query"].(string)
	if query == "" {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("get_context: missing required argument %q", "query")}, nil
	}
	maxMatches := 0
	if n, ok := call.Arguments["max_matches"].(float64); ok {
		maxMatches = int(n)
	}

	result, err := t.Memory.GetRelevantContextFor(ctx, ports.ContextGenerationInput{Query: query, MaxMatches: maxMatches})
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}

	var b strings.Builder
	if result.Context != "" {
		b.WriteString(result.Context)
		b.WriteString("\n")
	}
	for _, m := range result.Matches {
		fmt.Fprintf(&b, "%s (score=%.2f) %s\n", m.Path, m.Score, m.Relevance)
	}
	return &ports.ToolResult{CallID: call.ID, Content: b.String()}, nil
}

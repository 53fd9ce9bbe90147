// Package ports defines the interfaces and value types shared across the
// execution substrate. Nothing here depends on a concrete provider, tool, or
// storage implementation — that is the point of the hexagonal split.
package ports

import "context"

// ModelProvider abstracts a single LLM backend. Concrete adapters (a real
// Anthropic/OpenAI client, a scripted test double) live outside this
// package; the substrate only ever talks to this interface.
type ModelProvider interface {
	// SendMessage issues one completion call against the given history,
	// system prompt, and tool definitions.
	SendMessage(ctx context.Context, history []Message, systemPrompt string, tools []ToolDefinition) (*CompletionResponse, error)

	// Model returns the identifier of the model this provider targets.
	Model() string

	// ModelContextLimit returns the context window size, in tokens, for the
	// named model. Used by the Handler's context-window policy.
	ModelContextLimit(model string) int

	// EstimateTokens returns a token count for the given text, using a
	// provider-specific tokenizer when one is available.
	EstimateTokens(text string) int
}

// CompletionResponse is the raw result of a ModelProvider call.
type CompletionResponse struct {
	Content string
	ToolCalls []ToolCall
	StopReason string
	Usage TokenUsage
}

// TokenUsage tracks token consumption reported by a provider.
type TokenUsage struct {
	PromptTokens int
	CompletionTokens int
	TotalTokens int
}

// Message is one entry in a ConversationHistory.
type Message struct {
	Role string // "user", "assistant", "tool"
	Content string
	Timestamp int64
	ToolName string
	ToolCallID string
}

// TurnMetrics is the turns half of a session's ResourceMetrics.
type TurnMetrics struct {
	Used int
	Limit int
	LastTurnAt int64
}

// ContextMetrics is the context-window half of a session's ResourceMetrics.
type ContextMetrics struct {
	Used int
	Limit int
	Peak int
}

// ResourceMetrics is a Handler session's turn- and context-window
// accounting (Data Model).
type ResourceMetrics struct {
	Turns TurnMetrics
	Context ContextMetrics
}

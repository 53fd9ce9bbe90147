// Package llmprovider supplies ports.ModelProvider implementations that
// need no network access: a scripted/scenario-driven MockProvider for
// tests, demos, and the CLI's offline mode, plus the shared tiktoken-backed
// token estimator every provider in this package uses.
package llmprovider

import (
	"context"
	"strings"
	"sync"

	"github.com/nullstream/taskrt/internal/ports"
)

// Scenario is a scripted completion triggered when the latest user message
// contains Match. Scenarios are consulted in registration order; the first
// match wins (worked scenarios are run this way).
type Scenario struct {
	Match string
	Response ports.CompletionResponse
}

// MockProvider is a deterministic ports.ModelProvider: an explicit queue of
// responses takes precedence (for exact step-by-step scripting, as the
// Handler test suite uses), falling back to keyword Scenarios, and finally
// to a canned default — never an error, never a network call.
type MockProvider struct {
	mu sync.Mutex

	model string
	contextLimit int
	estimator *Estimator

	queue []ports.CompletionResponse
	scenarios []Scenario
	calls int
}

// NewMockProvider constructs a MockProvider for model with the given
// context-window size (tokens).
func NewMockProvider(model string, contextLimit int) *MockProvider {
	return &MockProvider{
		model: model,
		contextLimit: contextLimit,
		estimator: NewEstimator(model),
	}
}

// Enqueue appends resp to the FIFO script. Once the queue is non-empty,
// every SendMessage call drains one entry before scenarios are consulted
// again.
func (p *MockProvider) Enqueue(resp ports.CompletionResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, resp)
}

// AddScenario registers a keyword-triggered canned response.
func (p *MockProvider) AddScenario(match string, resp ports.CompletionResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scenarios = append(p.scenarios, Scenario{Match: match, Response: resp})
}

// Calls returns the number of SendMessage invocations so far.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// SendMessage implements ports.ModelProvider.
func (p *MockProvider) SendMessage(ctx context.Context, history []ports.Message, systemPrompt string, tools []ports.ToolDefinition) (*ports.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if len(p.queue) > 0 {
		resp := p.queue[0]
		p.queue = p.queue[1:]
		return &resp, nil
	}

	latest := lastUserContent(history)
	for _, sc := range p.scenarios {
		if sc.Match == "" || strings.Contains(latest, sc.Match) {
			resp := sc.Response
			return &resp, nil
		}
	}

	return &ports.CompletionResponse{
		Content: "Mock LLM response",
		StopReason: "stop",
		Usage: ports.TokenUsage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}, nil
}

func lastUserContent(history []ports.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content
		}
	}
	return ""
}

// Model implements ports.ModelProvider.
func (p *MockProvider) Model() string { return p.model }

// ModelContextLimit implements ports.ModelProvider.
func (p *MockProvider) ModelContextLimit(model string) int { return p.contextLimit }

// EstimateTokens implements ports.ModelProvider.
func (p *MockProvider) EstimateTokens(text string) int { return p.estimator.EstimateTokens(text) }

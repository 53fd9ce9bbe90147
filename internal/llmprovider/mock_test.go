package llmprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nullstream/taskrt/internal/ports"
)

func TestMockProviderDrainsQueueBeforeScenarios(t *testing.T) {
	p := NewMockProvider("mock-model", 1000)
	p.AddScenario("hello", ports.CompletionResponse{Content: "scenario reply"})
	p.Enqueue(ports.CompletionResponse{Content: "queued reply"})

	resp, err := p.SendMessage(context.Background(), []ports.Message{{Role: "user", Content: "hello there"}}, "sys", nil)
	require.NoError(t, err)
	require.Equal(t, "queued reply", resp.Content)

	// Queue now empty: the next call falls through to the scenario match.
	resp, err = p.SendMessage(context.Background(), []ports.Message{{Role: "user", Content: "hello there"}}, "sys", nil)
	require.NoError(t, err)
	require.Equal(t, "scenario reply", resp.Content)
}

func TestMockProviderFallsBackToDefaultResponse(t *testing.T) {
	p := NewMockProvider("mock-model", 1000)

	resp, err := p.SendMessage(context.Background(), []ports.Message{{Role: "user", Content: "anything"}}, "sys", nil)
	require.NoError(t, err)
	require.Equal(t, "Mock LLM response", resp.Content)
	require.Equal(t, 1, p.Calls())
}

func TestMockProviderScenarioMatchesLatestUserMessageOnly(t *testing.T) {
	p := NewMockProvider("mock-model", 1000)
	p.AddScenario("list files", ports.CompletionResponse{Content: "directory listing"})

	history := []ports.Message{
		{Role: "user", Content: "list files please"},
		{Role: "assistant", Content: "here you go"},
		{Role: "user", Content: "something else entirely"},
	}
	resp, err := p.SendMessage(context.Background(), history, "sys", nil)
	require.NoError(t, err)
	require.Equal(t, "Mock LLM response", resp.Content)
}

func TestMockProviderReportsModelAndLimits(t *testing.T) {
	p := NewMockProvider("mock-model", 4096)
	require.Equal(t, "mock-model", p.Model())
	require.Equal(t, 4096, p.ModelContextLimit("mock-model"))
	require.Greater(t, p.EstimateTokens("hello world, this is a test sentence"), 0)
}

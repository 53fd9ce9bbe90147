package handler

import (
	"context"
	"time"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

// runLoop drives the AwaitingUser -> Thinking -> ToolDispatch -> Thinking ->
// ... -> Final state machine of over a turn-local working history. It
// returns the final TaskResult and the working history accumulated so far;
// callers decide whether and how to commit it. On a tool-budget overrun the
// working history is discarded (nil) per spec.
func (s *Session) runLoop(ctx context.Context, systemPrompt string, toolDefs []ports.ToolDefinition, seed []ports.Message) (ports.TaskResult, []ports.Message, error) {
	working := append([]ports.Message(nil), seed...)
	toolCallsThisTurn := 0

	for {
		if err := ctx.Err(); err != nil {
			return ports.TaskResult{}, working, taskerrors.NewTaskFailure(ports.ReasonCancelled, err.Error(), nil)
		}
		if err := s.checkTurnBudget(); err != nil {
			return ports.TaskResult{}, working, err
		}

		s.stage("thinking")
		resp, err := s.provider.SendMessage(ctx, working, systemPrompt, toolDefs)
		if err != nil {
			return ports.TaskResult{}, working, taskerrors.NewTaskFailure(ports.ReasonProviderError, err.Error(), nil)
		}
		s.recordTurn()

		working = append(working, ports.Message{
			Role: "assistant",
			Content: resp.Content,
			Timestamp: time.Now().Unix(),
		})
		if err := s.checkContextWindow(systemPrompt, working); err != nil {
			return ports.TaskResult{}, working, err
		}

		if len(resp.ToolCalls) == 0 {
			s.stage("final")
			return ports.TaskResult{Status: ports.StatusComplete, Content: resp.Content}, working, nil
		}

		s.stage("tool_dispatch")

		// A subtask tool call preempts the batch: it can't be resolved
		// inline, so hand a CONTINUATION back to the surrounding
		// orchestrator rather than attempting to also run the other calls.
		for _, call := range resp.ToolCalls {
			if hints, ok := s.tools.isSubtaskTool(call.Name); ok {
				req := buildSubtaskRequest(call, hints)
				s.stage("final")
				return ports.TaskResult{
					Status: ports.StatusContinuation,
					Notes: map[string]any{ports.NoteSubtaskRequest: req},
				}, working, nil
			}
		}

		for _, call := range resp.ToolCalls {
			toolCallsThisTurn++
			if toolCallsThisTurn > s.maxToolCallsPerTurn {
				err := taskerrors.NewResourceExhaustion(ports.ResourceTurns, toolCallsThisTurn, s.maxToolCallsPerTurn)
				err.Reason = "tool_budget_exceeded"
				return ports.TaskResult{}, nil, err
			}

			result, execErr := s.tools.dispatchDirect(ctx, call)
			if execErr != nil {
				return ports.TaskResult{}, working, taskerrors.NewTaskFailure(ports.ReasonToolError, execErr.Error(), nil)
			}

			content := result.Content
			if result.Error != nil {
				content = "error: " + result.Error.Error()
			}
			working = append(working, ports.Message{
				Role: "tool",
				Content: content,
				ToolName: call.Name,
				ToolCallID: call.ID,
				Timestamp: time.Now().Unix(),
			})
			if err := s.checkContextWindow(systemPrompt, working); err != nil {
				return ports.TaskResult{}, working, err
			}
		}
	}
}

// buildSubtaskRequest turns a subtask-tool call into the SubtaskRequest the
// surrounding orchestrator resolves. The tool's arguments become the
// request's inputs; a single template hint is promoted to the request name.
func buildSubtaskRequest(call ports.ToolCall, hints ports.TemplateHints) ports.SubtaskRequest {
	req := ports.SubtaskRequest{
		Type: "atomic",
		Inputs: call.Arguments,
		TemplateHints: hints,
	}
	if len(hints) == 1 {
		req.Name = hints[0]
	}
	return req
}

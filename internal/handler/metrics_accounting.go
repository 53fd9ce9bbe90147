package handler

import (
	"strings"
	"time"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/metrics"
	"github.com/nullstream/taskrt/internal/ports"
)

// checkTurnBudget enforces the turns limit before the next LLM call is
// dispatched ("Enforce the turns limit before dispatching...").
func (s *Session) checkTurnBudget() error {
	if s.turnsUsed >= s.maxTurns {
		return taskerrors.NewResourceExhaustion(ports.ResourceTurns, s.turnsUsed, s.maxTurns)
	}
	return nil
}

// recordTurn increments the turn counter. Called exactly once per assistant
// reply added to history — never for user or tool messages.
func (s *Session) recordTurn() {
	s.turnsUsed++
	s.lastTurnAt = time.Now().Unix()
	s.publishMetrics()
}

// checkContextWindow estimates the token size of the assembled system
// prompt plus history and compares it against the session's context-window
// budget. Called before dispatch and after every message addition ("After
// each message addition..."); systemPrompt must be the fully assembled
// prompt (base + template + injected file/context string) since that
// payload, not just history, is what a dispatched call actually sends.
func (s *Session) checkContextWindow(systemPrompt string, history []ports.Message) error {
	if s.provider == nil {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n")
	for _, m := range history {
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	tokens := s.provider.EstimateTokens(sb.String())
	if tokens > s.contextPeak {
		s.contextPeak = tokens
	}
	s.contextUsed = tokens
	s.publishMetrics()

	if s.contextLimit <= 0 {
		return nil
	}
	warnAt := int(0.8 * float64(s.contextLimit))
	if tokens >= warnAt {
		s.logger.Warn("handler: context window nearing limit", "tokens", tokens, "limit", s.contextLimit, "session", s.id)
	}
	if tokens > s.contextLimit {
		return taskerrors.NewResourceExhaustion(ports.ResourceContext, tokens, s.contextLimit)
	}
	return nil
}

func (s *Session) publishMetrics() {
	if s.metricsSession == nil {
		return
	}
	s.metricsSession.Report(metrics.ResourceMetrics{
		TurnsUsed: s.turnsUsed,
		TurnsLimit: s.maxTurns,
		ContextUsed: s.contextUsed,
		ContextLimit: s.contextLimit,
		ContextPeak: s.contextPeak,
	})
}

// GetResourceMetrics returns a snapshot of the session's turn and
// context-window accounting.
func (s *Session) GetResourceMetrics() ports.ResourceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ports.ResourceMetrics{
		Turns: ports.TurnMetrics{
			Used: s.turnsUsed,
			Limit: s.maxTurns,
			LastTurnAt: s.lastTurnAt,
		},
		Context: ports.ContextMetrics{
			Used: s.contextUsed,
			Limit: s.contextLimit,
			Peak: s.contextPeak,
		},
	}
}

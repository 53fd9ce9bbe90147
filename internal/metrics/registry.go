// Package metrics exports a Handler session's ResourceMetrics as Prometheus
// gauges labeled by session ID. A session's series are created on its
// first Report and deleted by Close, so a long-running process never
// accumulates series for dead sessions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	turnsUsed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskrt_handler_turns_used",
		Help: "Assistant turns consumed by the session so far.",
	}, []string{"session_id"})
	turnsLimit = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskrt_handler_turns_limit",
		Help: "Configured turn budget for the session.",
	}, []string{"session_id"})
	contextUsed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskrt_handler_context_tokens_used",
		Help: "Estimated tokens in the session's assembled system prompt plus conversation history.",
	}, []string{"session_id"})
	contextLimit = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskrt_handler_context_tokens_limit",
		Help: "Configured context-window budget for the session, in tokens.",
	}, []string{"session_id"})
	contextPeak = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskrt_handler_context_tokens_peak",
		Help: "Highest estimated token count observed during the session.",
	}, []string{"session_id"})
)

func init() {
	prometheus.MustRegister(turnsUsed, turnsLimit, contextUsed, contextLimit, contextPeak)
}

// ResourceMetrics mirrors ports' session-scoped metrics (Data Model).
type ResourceMetrics struct {
	TurnsUsed int
	TurnsLimit int
	ContextUsed int
	ContextLimit int
	ContextPeak int
}

// Session publishes one session's ResourceMetrics as labeled gauges.
type Session struct {
	sessionID string
}

// NewSession records sessionID; its gauge series appear on the first
// Report. Call Close when the Handler session ends.
func NewSession(sessionID string) *Session {
	return &Session{sessionID: sessionID}
}

// Report updates every gauge to reflect the given snapshot.
func (s *Session) Report(m ResourceMetrics) {
	turnsUsed.WithLabelValues(s.sessionID).Set(float64(m.TurnsUsed))
	turnsLimit.WithLabelValues(s.sessionID).Set(float64(m.TurnsLimit))
	contextUsed.WithLabelValues(s.sessionID).Set(float64(m.ContextUsed))
	contextLimit.WithLabelValues(s.sessionID).Set(float64(m.ContextLimit))
	contextPeak.WithLabelValues(s.sessionID).Set(float64(m.ContextPeak))
}

// Close unregisters this session's gauge series so the process does not
// accumulate metrics for dead sessions.
func (s *Session) Close() {
	turnsUsed.DeleteLabelValues(s.sessionID)
	turnsLimit.DeleteLabelValues(s.sessionID)
	contextUsed.DeleteLabelValues(s.sessionID)
	contextLimit.DeleteLabelValues(s.sessionID)
	contextPeak.DeleteLabelValues(s.sessionID)
}

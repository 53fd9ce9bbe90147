// Package handler implements the Handler Session: conversation
// state, turn and context-window accounting, the tool registry, and the
// multi-step tool-calling loop every LLM-backed call in the substrate runs
// through.
package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nullstream/taskrt/internal/executor"
	"github.com/nullstream/taskrt/internal/logging"
	"github.com/nullstream/taskrt/internal/metrics"
	"github.com/nullstream/taskrt/internal/ports"
)

// Config configures a new Session.
type Config struct {
	ID string // generated if empty
	Provider ports.ModelProvider
	Model string
	BasePrompt string
	TemplatePrompt string // only set when a template matched
	FileContext string
	MaxTurns int
	MaxToolCallsPerTurn int
	MaxContextFraction float64
	Logger logging.Logger

	// OnStage, if set, is called on every state-machine transition of the
	// tool-calling loop: "thinking", "tool_dispatch", "final". Used
	// by the WebSocket streaming surface to re-publish the loop's own
	// transitions as frames; nil is the common case and costs nothing.
	OnStage func(stage string)
}

// Session is one Handler session: created per top-level user turn or per
// nested atomic execution, destroyed on completion (Lifecycles).
type Session struct {
	mu sync.Mutex

	id string
	provider ports.ModelProvider
	model string
	basePrompt string
	templatePrompt string
	fileContext string

	tools *toolRegistry

	history []ports.Message
	seenToolResponses map[string]bool

	maxTurns int
	maxToolCallsPerTurn int
	maxContextFraction float64

	turnsUsed int
	lastTurnAt int64
	contextUsed int
	contextLimit int
	contextPeak int

	metricsSession *metrics.Session
	logger logging.Logger
	onStage func(stage string)
}

// NewSession constructs a Handler session from cfg, applying defaults
// for any unset budget field.
func NewSession(cfg Config) *Session {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}
	maxToolCalls := cfg.MaxToolCallsPerTurn
	if maxToolCalls <= 0 {
		maxToolCalls = 8
	}
	maxFraction := cfg.MaxContextFraction
	if maxFraction <= 0 {
		maxFraction = 0.8
	}

	contextLimit := 0
	if cfg.Provider != nil {
		contextLimit = int(maxFraction * float64(cfg.Provider.ModelContextLimit(cfg.Model)))
	}

	return &Session{
		id: id,
		provider: cfg.Provider,
		model: cfg.Model,
		basePrompt: cfg.BasePrompt,
		templatePrompt: cfg.TemplatePrompt,
		fileContext: cfg.FileContext,
		tools: newToolRegistry(),
		maxTurns: maxTurns,
		maxToolCallsPerTurn: maxToolCalls,
		maxContextFraction: maxFraction,
		contextLimit: contextLimit,
		metricsSession: metrics.NewSession(id),
		logger: logging.OrNop(cfg.Logger),
		onStage: cfg.OnStage,
	}
}

// stage calls the configured OnStage hook, if any.
func (s *Session) stage(name string) {
	if s.onStage != nil {
		s.onStage(name)
	}
}

// SetOnStage replaces the stage-transition hook. Used by callers that want
// to observe a single query's state transitions (e.g. a WebSocket handler
// streaming one turn) without reconstructing the session.
func (s *Session) SetOnStage(fn func(stage string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStage = fn
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// RegisterDirectTool installs a direct tool.
func (s *Session) RegisterDirectTool(def ports.ToolDefinition, exec ports.DirectExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools.registerDirectTool(def, exec)
}

// RegisterSubtaskTool installs a subtask tool, narrowed to the given hints.
func (s *Session) RegisterSubtaskTool(def ports.ToolDefinition, hints ports.TemplateHints) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools.registerSubtaskTool(def, hints)
}

// AddToolResponse appends a tool-role message directly to the committed
// conversation history, outside the tool-calling loop (e.g. when a
// previously issued CONTINUATION has since been resolved). Idempotent per
// (toolCallID, content): a resolution replayed with the same call ID and
// content is a no-op rather than a duplicate history entry.
func (s *Session) AddToolResponse(toolCallID, toolName, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := toolCallID + "\x00" + content
	if s.seenToolResponses == nil {
		s.seenToolResponses = map[string]bool{}
	}
	if s.seenToolResponses[key] {
		return
	}
	s.seenToolResponses[key] = true
	s.history = append(s.history, ports.Message{
		Role: "tool",
		Content: content,
		ToolName: toolName,
		ToolCallID: toolCallID,
		Timestamp: time.Now().Unix(),
	})
}

// HandleQuery is the chat-facing entry point (public contract). It
// appends userText to history, detects a "/plan " prefix, and runs the
// tool-calling loop, committing the resulting working history atomically
// at turn end.
func (s *Session) HandleQuery(ctx context.Context, userText string) (ports.TaskResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining, instruction, matched := detectPlanRequest(userText)
	templatePrompt := s.templatePrompt
	if matched {
		userText = remaining
		if templatePrompt != "" {
			templatePrompt = templatePrompt + "\n" + instruction
		} else {
			templatePrompt = instruction
		}
	}

	userMsg := ports.Message{Role: "user", Content: userText, Timestamp: time.Now().Unix()}
	seed := append(append([]ports.Message(nil), s.history...), userMsg)

	systemPrompt := buildSystemPrompt(s.basePrompt, templatePrompt, s.fileContext)
	if err := s.checkContextWindow(systemPrompt, seed); err != nil {
		return ports.TaskResult{}, err
	}

	result, working, err := s.runLoop(ctx, systemPrompt, s.tools.definitions(), seed)
	if err != nil {
		return ports.TaskResult{}, err
	}

	s.history = working
	return result, nil
}

// ExecutePrompt satisfies executor.HandlerInvoker: a single dedicated call
// on behalf of the Atomic Executor ("Handler invocation"), never
// touching this session's own committed history.
func (s *Session) ExecutePrompt(ctx context.Context, req executor.PromptRequest) (ports.TaskResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	systemPrompt := buildSystemPrompt(req.SystemPrompt, "", req.ContextString)
	seed := append([]ports.Message(nil), req.ConversationMessages...)
	seed = append(seed, ports.Message{Role: "user", Content: req.UserPrompt, Timestamp: time.Now().Unix()})

	if err := s.checkContextWindow(systemPrompt, seed); err != nil {
		return ports.TaskResult{}, err
	}

	toolDefs := req.ToolDefs
	if len(toolDefs) == 0 {
		toolDefs = s.tools.definitions()
	}

	result, _, err := s.runLoop(ctx, systemPrompt, toolDefs, seed)
	if err != nil {
		return ports.TaskResult{}, err
	}
	return result, nil
}

// DirectToolNames lists every registered direct tool, for callers (e.g. the
// Dispatcher) that bind tools into an evaluator environment as ToolRefs.
func (s *Session) DirectToolNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools.directNames()
}

// InvokeTool satisfies sexpr.ToolInvoker: an ad hoc direct-tool invocation
// outside the tool-calling loop, used by the evaluator's bare tool
// application and `call` primitive (scenario 2).
func (s *Session) InvokeTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, err := s.tools.dispatchDirect(ctx, ports.ToolCall{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", result.Error
	}
	return result.Content, nil
}

// Close unregisters the session's exported metrics (Lifecycles:
// "destroyed on completion (metrics harvested)").
func (s *Session) Close() {
	if s.metricsSession != nil {
		s.metricsSession.Close()
	}
}

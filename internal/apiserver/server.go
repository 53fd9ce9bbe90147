// Package apiserver exposes the Dispatcher over HTTP and WebSocket: the
// same Dispatch call the REPL drives, reachable as a JSON request/response
// endpoint and as a streaming endpoint that re-publishes a chat turn's
// Thinking -> ToolDispatch -> Final transitions as frames.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/logging"
	"github.com/nullstream/taskrt/internal/ports"
)

// Dispatcher is the subset of *dispatcher.Dispatcher the server depends on.
// Declared locally so this package depends on a role, not a concrete type.
type Dispatcher interface {
	Dispatch(ctx context.Context, input string) (ports.TaskResult, error)
}

// StageSession is the subset of *handler.Session the streaming endpoint
// needs to observe a turn's state transitions as it runs.
type StageSession interface {
	SetOnStage(fn func(stage string))
}

// Config configures a Server.
type Config struct {
	Dispatcher Dispatcher
	Logger logging.Logger

	// AllowedOrigins is the CORS allow-list. Empty allows all origins,
	// matching the permissive default a locally-hosted REPL companion
	// API needs.
	AllowedOrigins []string

	// StageSource resolves the Handler session for a given WebSocket
	// connection, if the caller wants stage events published over
	// /v1/stream. May be nil, in which case /v1/stream only emits the
	// final frame.
	StageSource func() StageSession
}

// Server wraps a gin.Engine serving the Dispatcher over HTTP and WebSocket.
type Server struct {
	engine *gin.Engine
	dispatcher Dispatcher
	logger logging.Logger
	stageSource func() StageSession
	upgrader websocket.Upgrader
}

// New constructs a Server and registers its routes.
func New(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	engine.Use(cors.New(corsCfg))

	s := &Server{
		engine: engine,
		dispatcher: cfg.Dispatcher,
		logger: logging.OrNop(cfg.Logger),
		stageSource: cfg.StageSource,
		upgrader: websocket.Upgrader{
			ReadBufferSize: 4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	engine.POST("/v1/dispatch", s.handleDispatch)
	engine.GET("/v1/stream", s.handleStream)
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	return s
}

// Handler returns the underlying http.Handler, for embedding in an
// *http.Server (used by cmd/taskrtd for timeout and lifecycle control).
func (s *Server) Handler() http.Handler { return s.engine }

// dispatchRequest is the wire shape of POST /v1/dispatch.
type dispatchRequest struct {
	Input string `json:"input"`
}

// dispatchResponse mirrors ports.TaskResult field-for-field.
type dispatchResponse struct {
	Status string `json:"status"`
	Content string `json:"content,omitempty"`
	Notes map[string]any `json:"notes,omitempty"`
}

func toDispatchResponse(result ports.TaskResult) dispatchResponse {
	return dispatchResponse{
		Status: string(result.Status),
		Content: result.Content,
		Notes: result.Notes,
	}
}

// statusForError maps a TaskError to the HTTP status for dispatch errors: 422 for
// TASK_FAILURE, 429 for RESOURCE_EXHAUSTION, 500 for anything else.
func statusForError(err error) int {
	if taskerrors.IsResourceExhaustion(err) {
		return http.StatusTooManyRequests
	}
	if taskerrors.IsTaskFailure(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) handleDispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
		return
	}

	result, err := s.dispatcher.Dispatch(c.Request.Context(), req.Input)
	if err != nil {
		taskerrors.LogDispatchError(s.logger, "dispatch failed", err)
		failed := taskerrors.ToTaskResult(err)
		c.JSON(statusForError(err), toDispatchResponse(failed))
		return
	}
	c.JSON(http.StatusOK, toDispatchResponse(result))
}

// streamFrame is one newline-delimited JSON frame written to /v1/stream.
type streamFrame struct {
	Stage string `json:"stage"`
	Result *dispatchResponse `json:"result,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleStream upgrades to a WebSocket and, for each text message received
// (one dispatch input per message), re-publishes the turn's state-machine
// transitions as frames before the final result frame.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		s.runStreamTurn(ctx, conn, string(payload))
		cancel()
	}
}

func (s *Server) runStreamTurn(ctx context.Context, conn *websocket.Conn, input string) {
	if s.stageSource != nil {
		if session := s.stageSource(); session != nil {
			session.SetOnStage(func(stage string) {
				_ = conn.WriteJSON(streamFrame{Stage: stage})
			})
			defer session.SetOnStage(nil)
		}
	}

	result, err := s.dispatcher.Dispatch(ctx, input)
	if err != nil {
		taskerrors.LogDispatchError(s.logger, "stream dispatch failed", err)
		failed := toDispatchResponse(taskerrors.ToTaskResult(err))
		_ = conn.WriteJSON(streamFrame{Stage: "final", Result: &failed, Error: err.Error()})
		return
	}
	resp := toDispatchResponse(result)
	_ = conn.WriteJSON(streamFrame{Stage: "final", Result: &resp})
}

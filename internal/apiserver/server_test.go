package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

type stubDispatcher struct {
	result ports.TaskResult
	err    error
	stages []string
	stage  *stubStageSession
}

func (d *stubDispatcher) Dispatch(ctx context.Context, input string) (ports.TaskResult, error) {
	if d.stage != nil {
		for _, name := range d.stages {
			if d.stage.fn != nil {
				d.stage.fn(name)
			}
		}
	}
	return d.result, d.err
}

// stubStageSession simulates a handler.Session: SetOnStage records the hook
// that a real runLoop would call at each state transition.
type stubStageSession struct {
	fn func(string)
}

func (s *stubStageSession) SetOnStage(fn func(stage string)) { s.fn = fn }

func TestHandleDispatchReturnsTaskResultOnSuccess(t *testing.T) {
	srv := New(Config{Dispatcher: &stubDispatcher{result: ports.TaskResult{
		Status:  ports.StatusComplete,
		Content: "hello",
	}}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/dispatch", "application/json", bytes.NewBufferString(`{"input":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body dispatchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "COMPLETE", body.Status)
	require.Equal(t, "hello", body.Content)
}

func TestHandleDispatchMapsTaskFailureTo422(t *testing.T) {
	srv := New(Config{Dispatcher: &stubDispatcher{
		err: taskerrors.NewTaskFailure(ports.ReasonUnknownCommand, "nope", nil),
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/dispatch", "application/json", bytes.NewBufferString(`{"input":"/bogus"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleDispatchMapsResourceExhaustionTo429(t *testing.T) {
	srv := New(Config{Dispatcher: &stubDispatcher{
		err: taskerrors.NewResourceExhaustion(ports.ResourceTurns, 11, 10),
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/dispatch", "application/json", bytes.NewBufferString(`{"input":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHandleDispatchRejectsMalformedBody(t *testing.T) {
	srv := New(Config{Dispatcher: &stubDispatcher{}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/dispatch", "application/json", bytes.NewBufferString(`not json`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleStreamEmitsStageFramesThenFinal(t *testing.T) {
	stage := &stubStageSession{}
	dispatcher := &stubDispatcher{
		result: ports.TaskResult{Status: ports.StatusComplete, Content: "done"},
		stages: []string{"thinking", "tool_dispatch"},
		stage:  stage,
	}
	srv := New(Config{
		Dispatcher: dispatcher,
		StageSource: func() StageSession {
			return stage
		},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	var frames []streamFrame
	for i := 0; i < 3; i++ {
		var frame streamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		frames = append(frames, frame)
	}

	require.Equal(t, "thinking", frames[0].Stage)
	require.Equal(t, "tool_dispatch", frames[1].Stage)
	require.Equal(t, "final", frames[2].Stage)
	require.NotNil(t, frames[2].Result)
	require.Equal(t, "done", frames[2].Result.Content)
}

func TestHandleStreamSurfacesErrorFrame(t *testing.T) {
	srv := New(Config{Dispatcher: &stubDispatcher{
		err: taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "bad", nil),
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	var frame streamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "final", frame.Stage)
	require.NotEmpty(t, frame.Error)
}

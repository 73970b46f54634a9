package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-pidog/pkg/camera"
)

type fakeFrames struct {
	mu    sync.Mutex
	frame camera.Frame
}

func (f *fakeFrames) Latest() (camera.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame, f.frame.Seq > 0
}

func (f *fakeFrames) set(seq uint64, data []byte) {
	f.mu.Lock()
	f.frame = camera.Frame{JPEG: data, Seq: seq}
	f.mu.Unlock()
}

var testActions = []ActionInfo{
	{Name: "sit"},
	{Name: "bark", Voice: true},
}

func doJSON(t *testing.T, s *Server, method, path, body string, out any) int {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStatus(t *testing.T) {
	s := NewServer("0")
	s.UpdateState(func(st *State) {
		st.InputMode = "keyboard"
		st.ActionStatus = "think"
		st.LastActions = []string{"sit"}
	})

	var st State
	code := doJSON(t, s, http.MethodGet, "/api/status", "", &st)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "keyboard", st.InputMode)
	assert.Equal(t, "think", st.ActionStatus)
	assert.Equal(t, []string{"sit"}, st.LastActions)
}

func TestConversationAndLogs(t *testing.T) {
	s := NewServer("0")
	id := s.AddConversation("user", "bark at me", nil)
	s.AddConversation("assistant", "", []string{"bark"})
	s.AddLog("info", "hello")

	var conv []ConversationEntry
	doJSON(t, s, http.MethodGet, "/api/conversation", "", &conv)
	require.Len(t, conv, 2)
	assert.Equal(t, id, conv[0].ID)
	assert.Equal(t, "assistant", conv[1].Role)
	assert.Equal(t, []string{"bark"}, conv[1].Actions)

	var logs []LogEntry
	doJSON(t, s, http.MethodGet, "/api/logs", "", &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "hello", logs[0].Message)
}

func TestConversationBounded(t *testing.T) {
	s := NewServer("0")
	for i := 0; i < maxConversation+5; i++ {
		s.AddConversation("user", "hi", nil)
	}
	var conv []ConversationEntry
	doJSON(t, s, http.MethodGet, "/api/conversation", "", &conv)
	assert.Len(t, conv, maxConversation)
}

func TestActions(t *testing.T) {
	s := NewServer("0", WithActions(testActions))

	var got []ActionInfo
	doJSON(t, s, http.MethodGet, "/api/actions", "", &got)
	assert.Equal(t, testActions, got)

	// unknown action
	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodPost, "/api/actions/fly", "", nil))

	// no trigger configured
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, s, http.MethodPost, "/api/actions/sit", "", nil))

	var triggered []string
	s.OnActionTrigger = func(name string) error {
		if name == "bark" {
			return errors.New("busy")
		}
		triggered = append(triggered, name)
		return nil
	}
	assert.Equal(t, http.StatusAccepted, doJSON(t, s, http.MethodPost, "/api/actions/sit", "", nil))
	assert.Equal(t, http.StatusConflict, doJSON(t, s, http.MethodPost, "/api/actions/bark", "", nil))
	assert.Equal(t, []string{"sit"}, triggered)
}

func TestCameraAPI(t *testing.T) {
	frames := &fakeFrames{}
	mgr := camera.NewManager(camera.DefaultConfig())
	s := NewServer("0", WithCamera(frames, mgr))

	var got map[string]any
	assert.Equal(t, http.StatusOK, doJSON(t, s, http.MethodGet, "/api/camera", "", &got))
	assert.Contains(t, got, "capabilities")

	code := doJSON(t, s, http.MethodPut, "/api/camera", `{"preset":"upside_down","quality":70}`, &got)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, got["vflip"])
	assert.Equal(t, 70, mgr.GetConfig().Quality)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, s, http.MethodPut, "/api/camera", `{"width":1}`, nil))

	// no frame yet
	req := httptest.NewRequest(http.MethodGet, "/api/camera/frame", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	frames.set(1, []byte{0xff, 0xd8, 0xff})
	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/api/camera/frame", nil))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, body)
}

func TestCameraAPI_Disabled(t *testing.T) {
	s := NewServer("0")
	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodGet, "/api/camera", "", nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodGet, "/api/camera/frame", "", nil))
}

func TestDashboardPage(t *testing.T) {
	s := NewServer("0")
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "/ws/status")
}

func TestWebSocketUpgradeRequired(t *testing.T) {
	s := NewServer("0")
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/ws/status", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("server did not stop")
		}
	})
	return ln.Addr().String()
}

func dial(t *testing.T, addr, path string) *websocket.Conn {
	t.Helper()
	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		c, _, err := websocket.DefaultDialer.Dial("ws://"+addr+path, nil)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 20*time.Millisecond)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStatusWebSocket(t *testing.T) {
	s := NewServer("0")
	addr := serve(t, s)

	// published before anyone connects, replayed on connect
	s.UpdateState(func(st *State) { st.ActionStatus = "standby" })

	conn := dial(t, addr, "/ws/status")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var st State
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, "standby", st.ActionStatus)

	s.UpdateState(func(st *State) {
		st.ActionStatus = "acting"
		st.Turns = 1
	})
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, "acting", st.ActionStatus)
	assert.Equal(t, 1, st.Turns)
}

func TestCameraWebSocket(t *testing.T) {
	frames := &fakeFrames{}
	s := NewServer("0", WithCamera(frames, nil), WithFrameInterval(10*time.Millisecond))
	addr := serve(t, s)

	conn := dial(t, addr, "/ws/camera")
	require.Eventually(t, func() bool { return s.cameraHub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	frames.set(1, []byte{0xff, 0xd8, 0x01})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.Equal(t, []byte{0xff, 0xd8, 0x01}, data)
}

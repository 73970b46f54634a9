package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-pidog/internal/config"
	"github.com/teslashibe/go-pidog/internal/log"
	"github.com/teslashibe/go-pidog/pkg/actionflow"
	"github.com/teslashibe/go-pidog/pkg/assistant"
	"github.com/teslashibe/go-pidog/pkg/conversation"
	"github.com/teslashibe/go-pidog/pkg/dispatch"
	"github.com/teslashibe/go-pidog/pkg/inference"
	"github.com/teslashibe/go-pidog/pkg/robot"
	"github.com/teslashibe/go-pidog/pkg/speech"
	"github.com/teslashibe/go-pidog/pkg/web"
)

// daemon answers like the PiDog daemon and records request paths.
type daemon struct {
	mu    sync.Mutex
	paths []string
}

func (d *daemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.paths = append(d.paths, r.URL.Path)
	d.mu.Unlock()

	if r.URL.Path == "/api/status" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(robot.Status{State: "ready"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *daemon) seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.paths...)
}

func testConfig(t *testing.T, d *daemon) config.Config {
	t.Helper()
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.PiDogHost = host
	cfg.PiDogPort = port
	cfg.InputMode = config.InputKeyboard
	cfg.WithImage = false
	cfg.GeminiAPIKey = "test-gemini"
	cfg.GoogleAPIKey = "test-google"
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(config.Default())
	assert.ErrorIs(t, err, config.ErrNoModelKey)
}

func TestInitAndShutdown(t *testing.T) {
	d := &daemon{}
	a, err := New(testConfig(t, d))
	require.NoError(t, err)

	require.NoError(t, a.Init(context.Background()))
	assert.NotNil(t, a.driver)
	assert.Nil(t, a.web, "dashboard needs the camera")
	assert.Nil(t, a.source, "keyboard mode has no microphone")
	assert.Equal(t, StartPosture, a.flow.Posture())

	a.Shutdown()

	paths := d.seen()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/api/status", paths[0])
	assert.Equal(t, "/api/close", paths[len(paths)-1])
}

func TestInit_RobotUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.GeminiAPIKey = "test-gemini"
	cfg.PiDogHost = "127.0.0.1"
	cfg.PiDogPort = "1"

	a, err := New(cfg)
	require.NoError(t, err)

	err = a.Init(context.Background())
	assert.ErrorContains(t, err, "robot")
	a.Shutdown()
}

// newWiredApp builds an app around a mock robot and a dashboard without
// touching any hardware.
func newWiredApp(t *testing.T, model inference.Provider, lines ...string) *App {
	t.Helper()

	catalog, err := actionflow.DefaultCatalog()
	require.NoError(t, err)

	a := &App{
		cfg:     config.Default(),
		logger:  log.Component("app"),
		catalog: catalog,
		flow:    actionflow.New(robot.NewMock(), catalog),
	}
	a.dispatcher = dispatch.New(a.flow, dispatch.WithConfig(dispatch.Config{PollInterval: time.Millisecond}))
	a.queue = speech.NewQueue(speech.PlayerFunc(func(ctx context.Context, path string) error { return nil }),
		speech.WithPollInterval(time.Millisecond))
	a.assistant = assistant.New(model)
	a.web = web.NewServer("0")
	a.web.OnActionTrigger = a.triggerAction

	a.driver, err = conversation.New(conversation.Deps{
		Input:       conversation.NewMockInput(lines...),
		Assistant:   a.assistant,
		Synthesizer: &conversation.MockSynthesizer{},
		Speech:      a.queue,
		Actions:     a.dispatcher,
		Indicator:   &conversation.MockIndicator{},
	}, conversation.WithImage(false), conversation.WithWaitInterval(time.Millisecond))
	require.NoError(t, err)
	a.observe()
	return a
}

func TestModelOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Temperature = 0.1
	cfg.MaxTokens = 300
	a := &App{cfg: cfg}

	got := inference.DefaultConfig()
	got.Apply(a.modelOptions(http.DefaultClient, "k", "gemini-2.0-flash")...)

	assert.Equal(t, "k", got.APIKey)
	assert.Equal(t, "gemini-2.0-flash", got.Model)
	assert.Equal(t, 0.1, got.Temperature)
	assert.Equal(t, 300, got.MaxTokens)
	assert.Same(t, http.DefaultClient, got.HTTPClient)
}

func TestTriggerAction(t *testing.T) {
	a := newWiredApp(t, inference.NewMock())

	assert.ErrorContains(t, a.triggerAction("moonwalk"), "unknown action")

	require.NoError(t, a.triggerAction("sit"))
	assert.Equal(t, dispatch.StatusActing, a.dispatcher.Status())

	// The dispatcher is not running, so the batch is still in flight.
	assert.ErrorIs(t, a.triggerAction("stand"), ErrActionBusy)
}

func TestTriggerAction_RefusedWhileThinking(t *testing.T) {
	a := newWiredApp(t, inference.NewMock())
	a.dispatcher.SetStatus(dispatch.StatusThink)

	err := a.triggerAction("sit")
	assert.ErrorIs(t, err, ErrActionBusy)
	assert.ErrorIs(t, err, dispatch.ErrBusy)
	assert.Equal(t, dispatch.StatusThink, a.dispatcher.Status())
}

func TestTriggerAction_ReturnsToStandby(t *testing.T) {
	a := newWiredApp(t, inference.NewMock())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.dispatcher.Run(ctx) }()

	require.NoError(t, a.triggerAction("sit"))
	require.NoError(t, a.dispatcher.Wait(ctx))
	assert.Equal(t, dispatch.StatusStandby, a.dispatcher.Status())
	// watchers run after the status lock is released
	assert.Eventually(t, func() bool {
		return a.web.Status().ActionStatus == "standby"
	}, time.Second, time.Millisecond)
}

func TestRun_MirrorsTurnsOnDashboard(t *testing.T) {
	model := inference.WithReply(`{"actions": ["stand"], "answer": "hello"}`)
	a := newWiredApp(t, model, "hi pidog")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run the workers and the driver without the dashboard listener.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = a.queue.Run(ctx) }()
	go func() { defer wg.Done(); _ = a.dispatcher.Run(ctx) }()

	require.NoError(t, a.driver.Run(ctx))
	cancel()
	wg.Wait()

	st := a.web.Status()
	assert.Equal(t, "hi pidog", st.LastUserMessage)
	assert.Equal(t, "hello", st.LastReply)
	assert.Equal(t, []string{"stand"}, st.LastActions)
	assert.Equal(t, 1, st.Turns)
	// The driver went back to listening before input ran out.
	assert.Equal(t, "listening", st.Indicator)
	assert.Contains(t, []string{"standby", "acting_done"}, st.ActionStatus)
	assert.Equal(t, "stand", st.Posture)
}

// Package web serves the PiDog dashboard: live status, the conversation so
// far, the action catalog and the camera feed.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-pidog/internal/log"
	"github.com/teslashibe/go-pidog/pkg/camera"
	"github.com/teslashibe/go-pidog/pkg/hub"
)

//go:embed static
var staticFiles embed.FS

const (
	maxLogs         = 500
	maxConversation = 100
)

// State represents the current state of the robot for the dashboard
type State struct {
	InputMode       string   `json:"input_mode"`
	WithImage       bool     `json:"with_image"`
	RobotConnected  bool     `json:"robot_connected"`
	ActionStatus    string   `json:"action_status"`
	CurrentAction   string   `json:"current_action,omitempty"`
	Posture         string   `json:"posture,omitempty"`
	Indicator       string   `json:"indicator,omitempty"`
	Listening       bool     `json:"listening"`
	Speaking        bool     `json:"speaking"`
	LastUserMessage string   `json:"last_user_message"`
	LastReply       string   `json:"last_reply"`
	LastActions     []string `json:"last_actions"`
	Turns           int      `json:"turns"`
}

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, action, speech, error
	Message string `json:"message"`
}

// ConversationEntry represents a message in the conversation
type ConversationEntry struct {
	ID      string   `json:"id"`
	Time    string   `json:"time"`
	Role    string   `json:"role"` // user, assistant
	Message string   `json:"message"`
	Actions []string `json:"actions,omitempty"`
}

// ActionInfo describes a catalog action.
type ActionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Voice       bool   `json:"voice,omitempty"`
}

// FrameSource provides the latest camera frame.
type FrameSource interface {
	Latest() (camera.Frame, bool)
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	// State
	state   State
	stateMu sync.RWMutex

	// Log buffer (last 500 entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	// Conversation buffer
	conversation   []ConversationEntry
	conversationMu sync.RWMutex

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	logHub    *hub.Hub
	cameraHub *hub.Hub

	actions       []ActionInfo
	frames        FrameSource
	cameraManager *camera.Manager
	frameInterval time.Duration

	// OnActionTrigger runs a catalog action picked on the dashboard.
	OnActionTrigger func(name string) error
}

// Option configures a Server.
type Option func(*Server)

// WithActions sets the catalog listed by /api/actions.
func WithActions(actions []ActionInfo) Option {
	return func(s *Server) { s.actions = actions }
}

// WithCamera streams frames from src to /ws/camera and /api/camera/frame.
func WithCamera(src FrameSource, mgr *camera.Manager) Option {
	return func(s *Server) {
		s.frames = src
		s.cameraManager = mgr
	}
}

// WithFrameInterval sets how often the camera stream checks for a new frame.
func WithFrameInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.frameInterval = d
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new web dashboard server
func NewServer(port string, opts ...Option) *Server {
	s := &Server{
		port:          port,
		logger:        log.Component("web"),
		logs:          make([]LogEntry, 0, maxLogs),
		conversation:  make([]ConversationEntry, 0, maxConversation),
		statusHub:     hub.New("status", hub.WithReplay()),
		logHub:        hub.New("logs"),
		cameraHub:     hub.New("camera"),
		frameInterval: 100 * time.Millisecond,
	}
	s.state.LastActions = []string{}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "PiDog Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/actions", s.handleListActions)
	api.Post("/actions/:name", s.handleTriggerAction)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/conversation", s.handleGetConversation)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleUpdateCamera)
	api.Get("/camera/frame", s.handleCameraFrame)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/logs", websocket.New(s.handleWS(s.logHub)))
	app.Get("/ws/camera", websocket.New(s.handleWS(s.cameraHub)))
	app.Get("/ws/status", websocket.New(s.handleWS(s.statusHub)))

	// Dashboard page
	static, _ := fs.Sub(staticFiles, "static")
	app.Use("/", filesystem.New(filesystem.Config{
		Root:  http.FS(static),
		Index: "index.html",
	}))

	s.app = app
	return s
}

// App exposes the fiber app for tests and extra routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured port until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the dashboard on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("web dashboard listening", "url", "http://"+ln.Addr().String())

	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)
	go s.cameraHub.Run(ctx)
	if s.frames != nil {
		go s.streamCamera(ctx)
	}

	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(2 * time.Second); err != nil {
			s.logger.Warn("web shutdown", "error", err)
		}
	}()

	if err := s.app.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// streamCamera pushes each new frame to camera websocket clients.
func (s *Server) streamCamera(ctx context.Context) {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.cameraHub.ClientCount() == 0 {
				continue
			}
			f, ok := s.frames.Latest()
			if !ok || f.Seq == last {
				continue
			}
			last = f.Seq
			s.cameraHub.BroadcastBinary(f.JPEG)
		}
	}
}

// Status returns a copy of the dashboard state.
func (s *Server) Status() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	st := s.state
	st.LastActions = append([]string(nil), s.state.LastActions...)
	return st
}

// UpdateState updates the state and broadcasts it to clients
func (s *Server) UpdateState(update func(*State)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state // Copy for broadcast
	s.stateMu.Unlock()

	if err := s.statusHub.BroadcastJSON(state); err != nil {
		s.logger.Warn("status broadcast", "error", err)
	}
}

// AddLog adds a log entry and broadcasts to clients
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	_ = s.logHub.BroadcastJSON(entry)
}

// AddConversation adds a conversation entry and returns its ID.
func (s *Server) AddConversation(role, message string, actions []string) string {
	entry := ConversationEntry{
		ID:      uuid.NewString(),
		Time:    time.Now().Format("15:04:05"),
		Role:    role,
		Message: message,
		Actions: actions,
	}

	s.conversationMu.Lock()
	s.conversation = append(s.conversation, entry)
	if len(s.conversation) > maxConversation {
		s.conversation = s.conversation[1:]
	}
	s.conversationMu.Unlock()
	return entry.ID
}

// SendCameraFrame sends a camera frame to all connected clients
func (s *Server) SendCameraFrame(jpegData []byte) {
	s.cameraHub.BroadcastBinary(jpegData)
}

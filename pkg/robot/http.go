package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/teslashibe/go-pidog/internal/httpc"
)

// DefaultPort is the daemon's HTTP port.
const DefaultPort = 8000

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("robot: controller closed")

// DaemonError is a non-2xx reply from the daemon.
type DaemonError struct {
	StatusCode int
	Path       string
	Message    string
}

// Error implements the error interface.
func (e *DaemonError) Error() string {
	return fmt.Sprintf("robot: %s returned %d: %s", e.Path, e.StatusCode, e.Message)
}

// HTTPController implements Controller using the daemon's HTTP API.
type HTTPController struct {
	BaseURL string

	client *http.Client

	mu     sync.RWMutex
	closed bool
}

// NewHTTPController creates a controller for the daemon at baseURL
// ("http://127.0.0.1:8000").
func NewHTTPController(baseURL string) *HTTPController {
	return &HTTPController{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(httpc.RobotTimeout),
	}
}

// WithHTTPClient replaces the HTTP client. Used by tests.
func (r *HTTPController) WithHTTPClient(c *http.Client) *HTTPController {
	r.client = c
	return r
}

// DoAction queues a named preset motion.
func (r *HTTPController) DoAction(ctx context.Context, name string, speed int) error {
	payload := map[string]any{
		"name":  name,
		"speed": ClampSpeed(speed),
	}
	return r.post(ctx, "/api/action", payload, nil)
}

// HeadMove moves the head. The pose is clamped to head limits.
func (r *HTTPController) HeadMove(ctx context.Context, pose HeadPose, speed int) error {
	p := pose.Clamp()
	payload := map[string]any{
		"yaw":   p.Yaw,
		"roll":  p.Roll,
		"pitch": p.Pitch,
		"speed": ClampSpeed(speed),
	}
	return r.post(ctx, "/api/head", payload, nil)
}

// WaitAllDone blocks until the daemon's motion queues are empty.
func (r *HTTPController) WaitAllDone(ctx context.Context) error {
	return r.post(ctx, "/api/wait", nil, nil)
}

// StopAndLie aborts queued motions and lies down.
func (r *HTTPController) StopAndLie(ctx context.Context) error {
	return r.post(ctx, "/api/stop", nil, nil)
}

// PlaySound plays a built-in sound effect at volume (0-100).
func (r *HTTPController) PlaySound(ctx context.Context, name string, volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	payload := map[string]any{
		"name":   name,
		"volume": volume,
	}
	return r.post(ctx, "/api/sound", payload, nil)
}

// SetLEDMode sets the RGB strip animation.
func (r *HTTPController) SetLEDMode(ctx context.Context, style, color string, bps float64) error {
	payload := map[string]any{
		"style": style,
		"color": color,
		"bps":   bps,
	}
	return r.post(ctx, "/api/rgb", payload, nil)
}

// CloseLED turns the RGB strip off.
func (r *HTTPController) CloseLED(ctx context.Context) error {
	return r.post(ctx, "/api/rgb/close", nil, nil)
}

// DaemonStatus returns the daemon's state.
func (r *HTTPController) DaemonStatus(ctx context.Context) (*Status, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/api/status", nil)
	if err != nil {
		return nil, fmt.Errorf("robot: build status request: %w", err)
	}
	var status Status
	if err := r.do(req, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Close stops the robot and releases the servos. Later calls return ErrClosed.
func (r *HTTPController) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	err := r.post(ctx, "/api/close", nil, nil)

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return err
}

func (r *HTTPController) checkOpen() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

// post sends a JSON command to the daemon and optionally decodes the reply.
func (r *HTTPController) post(ctx context.Context, path string, payload any, out any) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("robot: marshal %s payload: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("robot: build %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.do(req, path, out)
}

func (r *HTTPController) do(req *http.Request, path string, out any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("robot: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &DaemonError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("robot: decode %s response: %w", path, err)
	}
	return nil
}

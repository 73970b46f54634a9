package robot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeDaemon records requests and answers like the PiDog daemon.
type fakeDaemon struct {
	mu       sync.Mutex
	requests []fakeRequest
	fail     map[string]int
}

type fakeRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func (f *fakeDaemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, fakeRequest{Method: r.Method, Path: r.URL.Path, Body: body})
	code := f.fail[r.URL.Path]
	f.mu.Unlock()

	if code != 0 {
		http.Error(w, "servo fault", code)
		return
	}

	if r.URL.Path == "/api/status" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Status{State: "ready", Posture: "sit", Battery: 7.6})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeDaemon) last() fakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestController(t *testing.T) (*HTTPController, *fakeDaemon) {
	t.Helper()
	daemon := &fakeDaemon{fail: map[string]int{}}
	srv := httptest.NewServer(daemon)
	t.Cleanup(srv.Close)
	return NewHTTPController(srv.URL + "/").WithHTTPClient(srv.Client()), daemon
}

func TestHTTPController_DoAction(t *testing.T) {
	ctrl, daemon := newTestController(t)

	if err := ctrl.DoAction(context.Background(), "wag_tail", 0); err != nil {
		t.Fatalf("DoAction: %v", err)
	}

	req := daemon.last()
	if req.Method != http.MethodPost || req.Path != "/api/action" {
		t.Errorf("got %s %s", req.Method, req.Path)
	}
	if req.Body["name"] != "wag_tail" {
		t.Errorf("name: got %v", req.Body["name"])
	}
	if req.Body["speed"] != float64(DefaultSpeed) {
		t.Errorf("speed: got %v, want %d", req.Body["speed"], DefaultSpeed)
	}
}

func TestHTTPController_HeadMoveClamps(t *testing.T) {
	ctrl, daemon := newTestController(t)

	if err := ctrl.HeadMove(context.Background(), HeadPose{Yaw: 120, Roll: -100, Pitch: 10}, 500); err != nil {
		t.Fatalf("HeadMove: %v", err)
	}

	body := daemon.last().Body
	if body["yaw"] != MaxHeadYaw || body["roll"] != MinHeadRoll || body["pitch"] != 10.0 {
		t.Errorf("pose not clamped: %v", body)
	}
	if body["speed"] != float64(MaxSpeed) {
		t.Errorf("speed: got %v", body["speed"])
	}
}

func TestHTTPController_LED(t *testing.T) {
	ctrl, daemon := newTestController(t)
	ctx := context.Background()

	if err := ctrl.SetLEDMode(ctx, "listen", "cyan", 1); err != nil {
		t.Fatal(err)
	}
	body := daemon.last().Body
	if body["style"] != "listen" || body["color"] != "cyan" || body["bps"] != 1.0 {
		t.Errorf("unexpected body: %v", body)
	}

	if err := ctrl.CloseLED(ctx); err != nil {
		t.Fatal(err)
	}
	if p := daemon.last().Path; p != "/api/rgb/close" {
		t.Errorf("path: got %s", p)
	}
}

func TestHTTPController_PlaySoundClampsVolume(t *testing.T) {
	ctrl, daemon := newTestController(t)

	if err := ctrl.PlaySound(context.Background(), "single_bark_1", 150); err != nil {
		t.Fatal(err)
	}
	if v := daemon.last().Body["volume"]; v != 100.0 {
		t.Errorf("volume: got %v, want 100", v)
	}
}

func TestHTTPController_DaemonStatus(t *testing.T) {
	ctrl, _ := newTestController(t)

	st, err := ctrl.DaemonStatus(context.Background())
	if err != nil {
		t.Fatalf("DaemonStatus: %v", err)
	}
	if st.State != "ready" || st.Posture != "sit" {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestHTTPController_DaemonError(t *testing.T) {
	ctrl, daemon := newTestController(t)
	daemon.fail["/api/action"] = http.StatusConflict

	err := ctrl.DoAction(context.Background(), "sit", 50)

	var de *DaemonError
	if !errors.As(err, &de) {
		t.Fatalf("expected DaemonError, got %v", err)
	}
	if de.StatusCode != http.StatusConflict || de.Path != "/api/action" {
		t.Errorf("unexpected error: %+v", de)
	}
	if de.Message != "servo fault" {
		t.Errorf("message: got %q", de.Message)
	}
}

func TestHTTPController_Close(t *testing.T) {
	ctrl, daemon := newTestController(t)
	ctx := context.Background()

	if err := ctrl.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p := daemon.last().Path; p != "/api/close" {
		t.Errorf("path: got %s", p)
	}
	if err := ctrl.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := ctrl.DoAction(ctx, "sit", 0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := ctrl.DaemonStatus(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestHeadPose(t *testing.T) {
	p := HeadPose{Yaw: 10, Roll: 5}.Add(HeadPose{Yaw: 90, Pitch: -60})
	if p.Yaw != 100 || p.Roll != 5 || p.Pitch != -60 {
		t.Errorf("Add: got %+v", p)
	}
	c := p.Clamp()
	if c.Yaw != MaxHeadYaw || c.Pitch != MinHeadPitch || c.Roll != 5 {
		t.Errorf("Clamp: got %+v", c)
	}
}

func TestClampSpeed(t *testing.T) {
	tests := map[int]int{0: DefaultSpeed, -5: MinSpeed, 30: 30, 101: MaxSpeed}
	for in, want := range tests {
		if got := ClampSpeed(in); got != want {
			t.Errorf("ClampSpeed(%d): got %d, want %d", in, got, want)
		}
	}
}

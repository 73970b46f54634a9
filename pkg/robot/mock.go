package robot

import (
	"context"
	"sync"
	"time"
)

// Mock implements Controller for testing.
// Function fields override the default no-op behavior.
type Mock struct {
	DoActionFunc  func(ctx context.Context, name string, speed int) error
	PlaySoundFunc func(ctx context.Context, name string, volume int) error
	StatusFunc    func(ctx context.Context) (*Status, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Name   string
	Args   []any
	Time   time.Time
}

// NewMock creates a mock controller that accepts every command.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) record(method, name string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Name: name, Args: args, Time: time.Now()})
}

// DoAction records the call.
func (m *Mock) DoAction(ctx context.Context, name string, speed int) error {
	m.record("DoAction", name, speed)
	if m.DoActionFunc != nil {
		return m.DoActionFunc(ctx, name, speed)
	}
	return nil
}

// HeadMove records the call.
func (m *Mock) HeadMove(ctx context.Context, pose HeadPose, speed int) error {
	m.record("HeadMove", "", pose, speed)
	return nil
}

// WaitAllDone records the call.
func (m *Mock) WaitAllDone(ctx context.Context) error {
	m.record("WaitAllDone", "")
	return nil
}

// StopAndLie records the call.
func (m *Mock) StopAndLie(ctx context.Context) error {
	m.record("StopAndLie", "")
	return nil
}

// PlaySound records the call.
func (m *Mock) PlaySound(ctx context.Context, name string, volume int) error {
	m.record("PlaySound", name, volume)
	if m.PlaySoundFunc != nil {
		return m.PlaySoundFunc(ctx, name, volume)
	}
	return nil
}

// SetLEDMode records the call.
func (m *Mock) SetLEDMode(ctx context.Context, style, color string, bps float64) error {
	m.record("SetLEDMode", style, color, bps)
	return nil
}

// CloseLED records the call.
func (m *Mock) CloseLED(ctx context.Context) error {
	m.record("CloseLED", "")
	return nil
}

// DaemonStatus returns StatusFunc's result or a ready status.
func (m *Mock) DaemonStatus(ctx context.Context) (*Status, error) {
	m.record("DaemonStatus", "")
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &Status{State: "ready"}, nil
}

// Close records the call.
func (m *Mock) Close(ctx context.Context) error {
	m.record("Close", "")
	return nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallsTo returns recorded calls to method.
func (m *Mock) CallsTo(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockCall
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

var _ Controller = (*Mock)(nil)

package conversation

import (
	"context"
	"io"
	"sync"
)

// MockInput replays scripted inputs, then returns io.EOF. Like
// KeyboardInput it skips the captured callback for blank typed lines.
type MockInput struct {
	mu     sync.Mutex
	inputs []Input
	errs   []error

	// CaptureFunc overrides the script when set.
	CaptureFunc func(ctx context.Context) (Input, error)
}

// NewMockInput scripts typed lines.
func NewMockInput(lines ...string) *MockInput {
	m := &MockInput{}
	for _, l := range lines {
		m.inputs = append(m.inputs, Input{Text: l})
		m.errs = append(m.errs, nil)
	}
	return m
}

// Then appends a scripted result.
func (m *MockInput) Then(in Input, err error) *MockInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	m.errs = append(m.errs, err)
	return m
}

// Capture implements Capture.
func (m *MockInput) Capture(ctx context.Context, captured func()) (Input, error) {
	if m.CaptureFunc != nil {
		in, err := m.CaptureFunc(ctx)
		if err == nil && captured != nil {
			captured()
		}
		return in, err
	}

	m.mu.Lock()
	if len(m.inputs) == 0 {
		m.mu.Unlock()
		return Input{}, io.EOF
	}
	in, err := m.inputs[0], m.errs[0]
	m.inputs, m.errs = m.inputs[1:], m.errs[1:]
	m.mu.Unlock()

	if err == nil && captured != nil && (in.Voice || in.Text != "") {
		captured()
	}
	return in, err
}

// MockSynthesizer records texts and returns a fixed path.
type MockSynthesizer struct {
	mu    sync.Mutex
	texts []string

	// Path is returned on success. Defaults to "speech.wav".
	Path string

	// Err is returned instead of a path when set.
	Err error
}

// Synthesize implements Synthesizer.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Path == "" {
		return "speech.wav", nil
	}
	return m.Path, nil
}

// Texts returns every synthesized text.
func (m *MockSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// MockIndicator records LED modes.
type MockIndicator struct {
	mu     sync.Mutex
	styles []string
}

// SetLEDMode implements Indicator.
func (m *MockIndicator) SetLEDMode(ctx context.Context, style, color string, bps float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.styles = append(m.styles, style)
	return nil
}

// Styles returns the recorded LED styles in order.
func (m *MockIndicator) Styles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.styles...)
}

// MockCamera records saved paths.
type MockCamera struct {
	mu    sync.Mutex
	saved []string

	// Err is returned by SaveJPEG when set.
	Err error
}

// SaveJPEG implements Camera.
func (m *MockCamera) SaveJPEG(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.saved = append(m.saved, path)
	return nil
}

// Saved returns every path a frame was written to.
func (m *MockCamera) Saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved...)
}

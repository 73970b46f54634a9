package stt

import (
	"context"
	"sync"
)

// Mock is a scripted Recognizer. Each call returns the next entry of
// Results; once they run out ErrUnintelligible is returned.
type Mock struct {
	Results []MockResult

	mu    sync.Mutex
	calls [][]byte
}

// MockResult is one scripted transcription outcome.
type MockResult struct {
	Text string
	Err  error
}

// NewMock returns a mock that hears texts in order.
func NewMock(texts ...string) *Mock {
	m := &Mock{}
	for _, t := range texts {
		m.Results = append(m.Results, MockResult{Text: t})
	}
	return m
}

// Transcribe implements Recognizer.
func (m *Mock) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.calls)
	m.calls = append(m.calls, audio)
	if i >= len(m.Results) {
		return "", ErrUnintelligible
	}
	return m.Results[i].Text, m.Results[i].Err
}

// Calls returns the audio passed to each call.
func (m *Mock) Calls() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.calls...)
}

// Package assistant is the robot's language-model client.
//
// It wraps an inference.Provider with the robot persona, keeps a short
// in-memory history of recent exchanges, and returns model replies as
// reply.Response values. It never returns an error: a failed request is a
// reply.Failure.
package assistant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-pidog/internal/log"
	"github.com/teslashibe/go-pidog/pkg/inference"
	"github.com/teslashibe/go-pidog/pkg/reply"
)

// DefaultHistory is how many past exchanges are sent with each request.
const DefaultHistory = 6

// DefaultLogSize is how many exchanges Recent keeps.
const DefaultLogSize = 50

// Exchange is one request and its reply.
type Exchange struct {
	Time      time.Time `json:"time"`
	User      string    `json:"user"`
	Reply     string    `json:"reply"`
	WithImage bool      `json:"with_image"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
}

// Assistant sends user text to the model with the persona prompt.
type Assistant struct {
	provider   inference.Provider
	name       string
	prompt     string
	maxHistory int
	logSize    int
	logger     *slog.Logger
	observers  []func(Exchange)

	mu      sync.Mutex
	history []inference.Message
	recent  []Exchange
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithName sets the robot's name used in logs.
func WithName(name string) Option {
	return func(a *Assistant) { a.name = name }
}

// WithSystemPrompt replaces the persona prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Assistant) { a.prompt = prompt }
}

// WithHistory sets how many past exchanges are sent with each request.
// Zero disables history.
func WithHistory(n int) Option {
	return func(a *Assistant) {
		if n >= 0 {
			a.maxHistory = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithObserver registers fn to be called after every exchange.
func WithObserver(fn func(Exchange)) Option {
	return func(a *Assistant) { a.observers = append(a.observers, fn) }
}

// New creates an assistant on top of provider.
func New(provider inference.Provider, opts ...Option) *Assistant {
	a := &Assistant{
		provider:   provider,
		name:       DefaultName,
		maxHistory: DefaultHistory,
		logSize:    DefaultLogSize,
		logger:     log.Component("assistant"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.prompt == "" {
		a.prompt = Prompt(a.name, DefaultActions, reply.VoiceActions)
	}
	return a
}

// Ask sends text to the model.
func (a *Assistant) Ask(ctx context.Context, text string) reply.Response {
	return a.ask(ctx, text, nil)
}

// AskWithImage sends text and the image at imagePath to the model.
// If the image cannot be read the request fails.
func (a *Assistant) AskWithImage(ctx context.Context, text, imagePath string) reply.Response {
	img, err := inference.LoadImage(imagePath)
	if err != nil {
		a.logger.Warn("image unavailable", "path", imagePath, "error", err)
		a.record(Exchange{Time: time.Now(), User: text, WithImage: true, Error: err.Error()})
		return reply.Failure()
	}
	return a.ask(ctx, text, &img)
}

func (a *Assistant) ask(ctx context.Context, text string, img *inference.Image) reply.Response {
	a.logger.Info("chat", "role", "user", "text", text)

	user := inference.NewUserMessage(text)
	if img != nil {
		user = inference.NewVisionMessage(text, *img)
	}

	a.mu.Lock()
	msgs := make([]inference.Message, 0, len(a.history)+2)
	msgs = append(msgs, inference.NewSystemMessage(a.prompt))
	msgs = append(msgs, a.history...)
	a.mu.Unlock()
	msgs = append(msgs, user)

	start := time.Now()
	resp, err := a.provider.Chat(ctx, &inference.ChatRequest{
		Messages: msgs,
		JSON:     true,
	})
	ex := Exchange{
		Time:      start,
		User:      text,
		WithImage: img != nil,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		a.logger.Error("chat failed", "error", err, "latency_ms", ex.LatencyMs)
		ex.Error = err.Error()
		a.record(ex)
		return reply.Failure()
	}

	content := resp.Message.Content
	ex.Reply = content
	a.logger.Info("chat", "role", a.name, "text", content, "latency_ms", ex.LatencyMs)

	if content != "" {
		a.remember(inference.NewUserMessage(text), inference.NewAssistantMessage(content))
	}
	a.record(ex)

	return reply.Parse(content)
}

// remember appends an exchange to the history, dropping the oldest
// exchanges beyond maxHistory.
func (a *Assistant) remember(user, assistant inference.Message) {
	if a.maxHistory == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, user, assistant)
	if over := len(a.history) - 2*a.maxHistory; over > 0 {
		a.history = append([]inference.Message(nil), a.history[over:]...)
	}
}

func (a *Assistant) record(ex Exchange) {
	a.mu.Lock()
	a.recent = append(a.recent, ex)
	if over := len(a.recent) - a.logSize; over > 0 {
		a.recent = append([]Exchange(nil), a.recent[over:]...)
	}
	observers := a.observers
	a.mu.Unlock()

	for _, fn := range observers {
		fn(ex)
	}
}

// Recent returns the most recent exchanges, oldest first.
func (a *Assistant) Recent() []Exchange {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Exchange(nil), a.recent...)
}

// History returns the messages sent as context with the next request.
func (a *Assistant) History() []inference.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]inference.Message(nil), a.history...)
}

// Reset forgets the conversation history.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}

// SystemPrompt returns the persona prompt.
func (a *Assistant) SystemPrompt() string {
	return a.prompt
}

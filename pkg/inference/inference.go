// Package inference provides a unified interface for chat models.
//
// Providers accept a conversation of messages, where user messages may
// carry JPEG images, and return the assistant's reply. Gemini is called
// through its REST API and OpenAI through the official SDK; both satisfy
// Provider, and Chain falls back from one to the next.
//
// Example usage:
//
//	p, _ := inference.NewGemini(
//	    inference.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	    inference.WithModel("gemini-2.0-flash"),
//	)
//	defer p.Close()
//
//	resp, _ := p.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{
//	        inference.NewSystemMessage("You are a robot dog."),
//	        inference.NewVisionMessage("What do you see?", frame),
//	    },
//	    JSON: true,
//	})
package inference

import "context"

// Provider is the unified chat interface.
// All implementations must satisfy this interface.
type Provider interface {
	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Capabilities returns what features this provider supports.
	Capabilities() Capabilities

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Capabilities describes what features a provider supports.
type Capabilities struct {
	Chat   bool // Supports chat completions
	Vision bool // Accepts images in user messages
	JSON   bool // Can be asked for a JSON-only reply
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the conversation, system message first.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0). Zero uses the provider default.
	Temperature float64

	// JSON asks for a reply that is a single JSON value.
	JSON bool
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// HasImages reports whether any message in req carries an image.
func (r *ChatRequest) HasImages() bool {
	for _, m := range r.Messages {
		if len(m.Images) > 0 {
			return true
		}
	}
	return false
}

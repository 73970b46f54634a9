package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const providerOpenAI = "openai"

// OpenAI implements Provider with the official OpenAI SDK. Any server
// speaking the chat completions API works through WithBaseURL.
type OpenAI struct {
	client openai.Client
	config *Config
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Model = "gpt-4o-mini"
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerOpenAI, ErrNoAPIKey)
	}
	if cfg.Model == "" {
		return nil, WrapError(providerOpenAI, ErrNoModel)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithHTTPClient(cfg.httpClient()),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		config: cfg,
		logger: cfg.Logger.With("component", "inference.openai"),
	}, nil
}

// Chat generates a chat completion.
// JSON is not forwarded as a response format; the prompt asks for JSON.
func (o *OpenAI) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = o.config.Model
	}

	params := openai.ChatCompletionNewParams{
		Messages: o.convertMessages(req.Messages),
		Model:    openai.ChatModel(model),
	}

	maxTokens := o.config.MaxTokens
	if req.MaxTokens != 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	temp := o.config.Temperature
	if req.Temperature != 0 {
		temp = req.Temperature
	}
	if temp > 0 {
		params.Temperature = openai.Float(temp)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &APIError{
				StatusCode: apiErr.StatusCode,
				Message:    apiErr.Message,
				Code:       apiErr.Code,
				Provider:   providerOpenAI,
			}
		}
		return nil, WrapError(providerOpenAI, err)
	}

	if len(resp.Choices) == 0 {
		return nil, WrapError(providerOpenAI, ErrEmptyResponse)
	}
	choice := resp.Choices[0]

	latency := time.Since(start)
	o.logger.Debug("chat complete",
		"model", resp.Model,
		"latency_ms", latency.Milliseconds(),
		"images", req.HasImages(),
	)

	return &ChatResponse{
		Message: Message{
			Role:    RoleAssistant,
			Content: choice.Message.Content,
		},
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Model:     resp.Model,
		LatencyMs: latency.Milliseconds(),
	}, nil
}

// Capabilities returns OpenAI's capabilities.
func (o *OpenAI) Capabilities() Capabilities {
	return Capabilities{
		Chat:   true,
		Vision: true,
	}
}

// Health checks API connectivity.
func (o *OpenAI) Health(ctx context.Context) error {
	_, err := o.Chat(ctx, &ChatRequest{
		Messages:  []Message{NewUserMessage("test")},
		MaxTokens: 1,
	})
	return err
}

// Close releases resources.
func (o *OpenAI) Close() error {
	return nil
}

// convertMessages converts our Message format to SDK message params.
func (o *OpenAI) convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			if len(m.Images) == 0 {
				out = append(out, openai.UserMessage(m.Content))
				continue
			}
			parts := []openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(m.Content),
			}
			for _, img := range m.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL(img),
				}))
			}
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out
}

// dataURL encodes img as a data: URL.
func dataURL(img Image) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)

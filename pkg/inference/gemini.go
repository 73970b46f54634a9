package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const providerGemini = "gemini"

// DefaultGeminiBaseURL is the Generative Language REST endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini implements the Provider interface for Google's Gemini API.
// Gemini uses a different API format than OpenAI, so it is called directly.
type Gemini struct {
	apiKey string
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewGemini creates a Gemini provider.
func NewGemini(opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = DefaultGeminiBaseURL
	cfg.Model = "gemini-2.0-flash"
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerGemini, ErrNoAPIKey)
	}
	if cfg.Model == "" {
		return nil, WrapError(providerGemini, ErrNoModel)
	}

	return &Gemini{
		apiKey: cfg.APIKey,
		config: cfg,
		http:   cfg.httpClient(),
		logger: cfg.Logger.With("component", "inference.gemini"),
	}, nil
}

// Chat generates a chat completion using Gemini.
// System messages become the request's systemInstruction.
func (g *Gemini) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = g.config.Model
	}

	system, msgs := splitSystem(req.Messages)

	genConfig := map[string]interface{}{
		"temperature":     g.config.Temperature,
		"maxOutputTokens": g.config.MaxTokens,
	}
	if req.Temperature != 0 {
		genConfig["temperature"] = req.Temperature
	}
	if req.MaxTokens != 0 {
		genConfig["maxOutputTokens"] = req.MaxTokens
	}
	if req.JSON {
		genConfig["responseMimeType"] = "application/json"
	}

	payload := map[string]interface{}{
		"contents":         g.convertMessages(msgs),
		"generationConfig": genConfig,
	}
	if system != "" {
		payload["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{
				{"text": system},
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.config.BaseURL, "/"), url.PathEscape(model), url.QueryEscape(g.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, g.parseError(resp)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("decode response: %w", err))
	}

	if result.Error.Message != "" {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    result.Error.Message,
			Provider:   providerGemini,
		}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, WrapError(providerGemini, ErrEmptyResponse)
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	latency := time.Since(start)
	g.logger.Debug("chat complete",
		"model", model,
		"latency_ms", latency.Milliseconds(),
		"images", req.HasImages(),
	)

	return &ChatResponse{
		Message: Message{
			Role:    RoleAssistant,
			Content: text.String(),
		},
		FinishReason: result.Candidates[0].FinishReason,
		Usage: Usage{
			PromptTokens:     result.UsageMetadata.PromptTokenCount,
			CompletionTokens: result.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      result.UsageMetadata.TotalTokenCount,
		},
		Model:     model,
		LatencyMs: latency.Milliseconds(),
	}, nil
}

// Capabilities returns Gemini's capabilities.
func (g *Gemini) Capabilities() Capabilities {
	return Capabilities{
		Chat:   true,
		Vision: true,
		JSON:   true,
	}
}

// Health checks API connectivity.
func (g *Gemini) Health(ctx context.Context) error {
	_, err := g.Chat(ctx, &ChatRequest{
		Messages:  []Message{NewUserMessage("test")},
		MaxTokens: 1,
	})
	return err
}

// Close releases resources.
func (g *Gemini) Close() error {
	g.http.CloseIdleConnections()
	return nil
}

// convertMessages converts our Message format to Gemini's format.
func (g *Gemini) convertMessages(msgs []Message) []map[string]interface{} {
	var contents []map[string]interface{}

	for _, msg := range msgs {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}

		parts := []map[string]interface{}{
			{"text": msg.Content},
		}
		for _, img := range msg.Images {
			parts = append(parts, map[string]interface{}{
				"inline_data": map[string]string{
					"mime_type": img.MIMEType,
					"data":      base64.StdEncoding.EncodeToString(img.Data),
				},
			})
		}

		contents = append(contents, map[string]interface{}{
			"role":  role,
			"parts": parts,
		})
	}

	return contents
}

// parseError reads and parses an error response.
func (g *Gemini) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	message := string(body)
	var code string
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		code = errResp.Error.Status
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   providerGemini,
	}
}

// geminiResponse is the Gemini API response format.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Verify Gemini implements Provider at compile time.
var _ Provider = (*Gemini)(nil)

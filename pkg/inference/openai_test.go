package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOpenAI(
		WithAPIKey("sk-test"),
		WithBaseURL(srv.URL+"/v1/"),
		WithModel("gpt-test"),
		WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestNewOpenAI_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAI()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestOpenAI_Chat(t *testing.T) {
	var body map[string]any
	var path, auth string

	o := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-test",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "{\"answer\": \"4\"}"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12}
		}`))
	})

	img := Image{MIMEType: "image/jpeg", Data: []byte("jpeg")}
	resp, err := o.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			NewSystemMessage("be a dog"),
			NewVisionMessage("what is 2+2", img),
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if path != "/v1/chat/completions" {
		t.Errorf("path: got %s", path)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("auth: got %s", auth)
	}
	if resp.Message.Content != `{"answer": "4"}` {
		t.Errorf("content: got %s", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 12 || resp.FinishReason != "stop" {
		t.Errorf("unexpected metadata: %+v", resp)
	}

	if body["model"] != "gpt-test" {
		t.Errorf("model: got %v", body["model"])
	}
	msgs := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages: got %d", len(msgs))
	}
	user := msgs[1].(map[string]any)
	parts, ok := user["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("user content should be two parts, got %v", user["content"])
	}
	imageURL := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(imageURL, "data:image/jpeg;base64,") {
		t.Errorf("image url: got %s", imageURL)
	}
}

func TestOpenAI_APIError(t *testing.T) {
	o := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	})

	_, err := o.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsUnauthorized() || apiErr.Provider != "openai" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	o := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "gpt-test", "choices": []}`))
	})

	_, err := o.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestDataURL(t *testing.T) {
	got := dataURL(Image{MIMEType: "image/png", Data: []byte("hi")})
	if got != "data:image/png;base64,aGk=" {
		t.Errorf("got %s", got)
	}
}

package assistant

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-pidog/pkg/inference"
	"github.com/teslashibe/go-pidog/pkg/reply"
)

func TestPrompt(t *testing.T) {
	p := Prompt("Rex", []string{"sit", "wag tail"}, []string{"bark"})

	assert.Contains(t, p, "Your name is Rex.")
	assert.Contains(t, p, `["sit","wag tail"]`)
	assert.Contains(t, p, `If the action is one of ["bark"]`)
	assert.Contains(t, p, `"answer": "Hello, I am Rex."`)

	assert.Contains(t, Prompt("", nil, nil), "Your name is PiDog.")
}

func TestAsk_StructuredReply(t *testing.T) {
	mock := inference.WithReply(`{"actions": ["think"], "answer": "4"}`)
	a := New(mock)

	resp := a.Ask(context.Background(), "what is 2+2")

	assert.Equal(t, reply.Structured([]string{"think"}, "4"), resp)

	req := mock.LastRequest()
	require.NotNil(t, req)
	assert.True(t, req.JSON)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, inference.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, a.SystemPrompt(), req.Messages[0].Content)
	assert.Equal(t, "what is 2+2", req.Messages[1].Content)
}

func TestAsk_TextReply(t *testing.T) {
	a := New(inference.WithReply("Woof! I am not in the mood for JSON."))

	resp := a.Ask(context.Background(), "hello")
	assert.Equal(t, reply.KindText, resp.Kind)
}

func TestAsk_ProviderErrorIsFailure(t *testing.T) {
	a := New(inference.WithError(errors.New("network down")))

	resp := a.Ask(context.Background(), "hello")

	assert.Equal(t, reply.Failure(), resp)
	recent := a.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "network down", recent[0].Error)
	assert.Empty(t, a.History())
}

func TestAsk_KeepsBoundedHistory(t *testing.T) {
	mock := inference.WithReply(`{"answer": "ok"}`)
	a := New(mock, WithHistory(2))
	ctx := context.Background()

	for _, q := range []string{"one", "two", "three"} {
		a.Ask(ctx, q)
	}

	h := a.History()
	require.Len(t, h, 4)
	assert.Equal(t, "two", h[0].Content)
	assert.Equal(t, "three", h[2].Content)

	// system + 2 previous exchanges + new message
	a.Ask(ctx, "four")
	assert.Len(t, mock.LastRequest().Messages, 1+4+1)

	a.Reset()
	assert.Empty(t, a.History())
}

func TestAsk_NoHistory(t *testing.T) {
	mock := inference.WithReply(`{"answer": "ok"}`)
	a := New(mock, WithHistory(0))

	a.Ask(context.Background(), "one")
	a.Ask(context.Background(), "two")

	assert.Len(t, mock.LastRequest().Messages, 2)
}

func TestAskWithImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img_input.jpg")
	att, err := inference.EncodeJPEG(image.NewGray(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, att.Data, 0o644))

	mock := inference.WithReply(`{"actions": ["nod"], "answer": "I see you"}`)
	a := New(mock)

	resp := a.AskWithImage(context.Background(), "what do you see", path)

	assert.Equal(t, reply.Structured([]string{"nod"}, "I see you"), resp)
	last := mock.LastRequest().Messages
	require.Len(t, last[len(last)-1].Images, 1)
	assert.Equal(t, "image/jpeg", last[len(last)-1].Images[0].MIMEType)

	// history keeps text only
	for _, m := range a.History() {
		assert.Empty(t, m.Images)
	}
}

func TestAskWithImage_MissingFile(t *testing.T) {
	mock := inference.WithReply(`{"answer": "hi"}`)
	a := New(mock)

	resp := a.AskWithImage(context.Background(), "hi", filepath.Join(t.TempDir(), "nope.jpg"))

	assert.Equal(t, reply.Failure(), resp)
	assert.Equal(t, 0, mock.CallCount("Chat"))
}

func TestObserver(t *testing.T) {
	var seen []Exchange
	a := New(inference.WithReply(`{"answer": "hi"}`), WithObserver(func(ex Exchange) {
		seen = append(seen, ex)
	}))

	a.Ask(context.Background(), "hello")

	require.Len(t, seen, 1)
	assert.Equal(t, "hello", seen[0].User)
	assert.True(t, strings.Contains(seen[0].Reply, "hi"))
}

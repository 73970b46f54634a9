package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Response
	}{
		{
			name: "object",
			raw:  `{"actions": ["wag tail"], "answer": "Hello, I am Pidog."}`,
			want: Structured([]string{"wag tail"}, "Hello, I am Pidog."),
		},
		{
			name: "object without actions",
			raw:  `{"answer": "hi"}`,
			want: Structured(nil, "hi"),
		},
		{
			name: "object with empty actions",
			raw:  `{"actions": [], "answer": ""}`,
			want: Structured([]string{}, ""),
		},
		{
			name: "fenced object",
			raw:  "```json\n{\"actions\": [\"sit\"]}\n```",
			want: Structured([]string{"sit"}, ""),
		},
		{
			name: "plain text",
			raw:  "Woof, hello there",
			want: Text("Woof, hello there"),
		},
		{
			name: "json string",
			raw:  `"just words"`,
			want: Text("just words"),
		},
		{
			name: "json number",
			raw:  "4",
			want: Text("4"),
		},
		{
			name: "empty",
			raw:  "  \n",
			want: Failure(),
		},
		{
			name: "null",
			raw:  "null",
			want: Failure(),
		},
		{
			name: "actions not an array",
			raw:  `{"actions": "sit", "answer": "ok"}`,
			want: Failure(),
		},
		{
			name: "answer not a string",
			raw:  `{"actions": ["sit"], "answer": 4}`,
			want: Failure(),
		},
		{
			name: "trailing garbage is text",
			raw:  `{"answer": "a"} and more`,
			want: Text(`{"answer": "a"} and more`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestNormalize_FiltersVoiceActionsWhenSpeaking(t *testing.T) {
	r := Structured([]string{"wag tail", "bark", "sit", "howling", "pant", "nod", "bark harder"}, "Hello!")

	turn := Normalize(r)

	assert.Equal(t, []string{"wag tail", "sit", "nod"}, turn.Actions)
	assert.Equal(t, "Hello!", turn.Answer)
	assert.True(t, turn.Speaks())
	// the response itself is untouched
	assert.Len(t, r.Actions, 7)
}

func TestNormalize_KeepsVoiceActionsWhenSilent(t *testing.T) {
	turn := Normalize(Structured([]string{"bark"}, ""))

	assert.Equal(t, []string{"bark"}, turn.Actions)
	assert.Empty(t, turn.Answer)
	assert.False(t, turn.Speaks())
}

func TestNormalize_MissingActionsDefaultsToStop(t *testing.T) {
	for _, answer := range []string{"", "hi"} {
		turn := Normalize(Structured(nil, answer))
		assert.Equal(t, []string{ActionStop}, turn.Actions)
		assert.Equal(t, answer, turn.Answer)
	}
}

func TestNormalize_EmptyActionListIsKept(t *testing.T) {
	turn := Normalize(Structured([]string{}, "ok"))

	require.NotNil(t, turn.Actions)
	assert.Empty(t, turn.Actions)
}

func TestNormalize_Text(t *testing.T) {
	for _, s := range []string{"4", "I am a good dog", "False"} {
		turn := Normalize(Text(s))
		assert.Equal(t, []string{ActionStop}, turn.Actions)
		assert.Equal(t, s, turn.Answer)
	}
}

func TestNormalize_Failure(t *testing.T) {
	cases := []Response{
		Failure(),
		Text(""),
		{},
		{Kind: Kind(42)},
	}
	for _, r := range cases {
		assert.NotPanics(t, func() {
			turn := Normalize(r)
			assert.Equal(t, Turn{Actions: []string{ActionStop}}, turn)
		})
	}
}

func TestNormalize_ParseEndToEnd(t *testing.T) {
	turn := Normalize(Parse(`{"actions":["think"], "answer":"4"}`))
	assert.Equal(t, Turn{Actions: []string{"think"}, Answer: "4"}, turn)

	turn = Normalize(Parse(`{"actions":["bark"], "answer":""}`))
	assert.Equal(t, Turn{Actions: []string{"bark"}}, turn)
}

func TestFromValue(t *testing.T) {
	assert.Equal(t, Failure(), FromValue(nil))
	assert.Equal(t, Failure(), FromValue(false))
	assert.Equal(t, Failure(), FromValue(""))
	assert.Equal(t, Text("true"), FromValue(true))
	assert.Equal(t, Text("42"), FromValue(42))
	assert.Equal(t,
		Structured([]string{"nod"}, "yes"),
		FromValue(map[string]any{"actions": []any{"nod"}, "answer": "yes"}),
	)
	assert.Equal(t, Failure(), FromValue(map[string]any{"actions": []any{"nod", 3}}))
}

func TestIsVoiceAction(t *testing.T) {
	for _, a := range VoiceActions {
		assert.True(t, IsVoiceAction(a), a)
	}
	assert.False(t, IsVoiceAction("wag tail"))
	assert.False(t, IsVoiceAction("Bark"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "failure", KindFailure.String())
	assert.Equal(t, "text", KindText.String())
	assert.Equal(t, "structured", KindStructured.String())
	assert.Equal(t, "unknown", Kind(9).String())
}

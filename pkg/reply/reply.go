// Package reply interprets language-model replies for the robot.
//
// A model may answer with a JSON object ({"actions": [...], "answer": "..."}),
// with free text, or not at all. Parse turns the raw reply into a Response,
// a variant with exactly one of those three shapes, and Normalize collapses
// any Response into the Turn the rest of the program works with.
//
//	turn := reply.Normalize(reply.Parse(raw))
//	// turn.Actions -> action dispatcher, turn.Answer -> speech
package reply

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionStop is the action used when a reply carries no usable action list.
const ActionStop = "stop"

// VoiceActions are sound effects that must not play over spoken text.
var VoiceActions = []string{"bark", "bark harder", "pant", "howling"}

var voiceActionSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(VoiceActions))
	for _, a := range VoiceActions {
		set[a] = struct{}{}
	}
	return set
}()

// IsVoiceAction reports whether name is in VoiceActions.
func IsVoiceAction(name string) bool {
	_, ok := voiceActionSet[name]
	return ok
}

// Kind identifies which shape a Response has.
type Kind int

const (
	// KindFailure means the model produced nothing usable.
	KindFailure Kind = iota

	// KindText is a bare string reply.
	KindText

	// KindStructured is a JSON object reply.
	KindStructured
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindFailure:
		return "failure"
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Response is a raw model reply in one of three shapes.
// Only the fields belonging to Kind are meaningful.
type Response struct {
	Kind Kind

	// Text holds a KindText reply.
	Text string

	// Actions holds the "actions" field of a KindStructured reply.
	// nil means the field was absent; an empty non-nil slice means
	// the model sent an empty list.
	Actions []string

	// Answer holds the "answer" field of a KindStructured reply.
	Answer string
}

// Failure returns the failure-shaped Response.
func Failure() Response {
	return Response{Kind: KindFailure}
}

// Text returns a text-shaped Response.
func Text(s string) Response {
	return Response{Kind: KindText, Text: s}
}

// Structured returns an object-shaped Response.
func Structured(actions []string, answer string) Response {
	return Response{Kind: KindStructured, Actions: actions, Answer: answer}
}

// Turn is a normalized reply: what to do and what to say.
type Turn struct {
	Actions []string
	Answer  string
}

// Speaks reports whether the turn has text to speak.
func (t Turn) Speaks() bool {
	return t.Answer != ""
}

// Parse interprets the raw text of a model reply.
//
// JSON objects become KindStructured, other JSON values and non-JSON text
// become KindText, and empty input, JSON null, or an object with wrongly
// typed fields become KindFailure. Markdown code fences are stripped first.
func Parse(raw string) Response {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Failure()
	}

	body := stripFences(text)

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return Text(text)
	}

	switch val := v.(type) {
	case map[string]any:
		return FromValue(val)
	case string:
		return FromValue(val)
	case nil:
		return Failure()
	default:
		// numbers, booleans and arrays are spoken as written
		return Text(body)
	}
}

// FromValue builds a Response from an already-decoded value.
// Maps are read as structured replies, strings as text, and nil or
// false as failure. Anything else is formatted as text.
func FromValue(v any) Response {
	switch val := v.(type) {
	case nil:
		return Failure()
	case bool:
		if !val {
			return Failure()
		}
		return Text("true")
	case string:
		if val == "" {
			return Failure()
		}
		return Text(val)
	case map[string]any:
		resp, err := fromMap(val)
		if err != nil {
			return Failure()
		}
		return resp
	default:
		s := fmt.Sprint(val)
		if s == "" {
			return Failure()
		}
		return Text(s)
	}
}

func fromMap(m map[string]any) (Response, error) {
	resp := Response{Kind: KindStructured}

	if raw, ok := m["actions"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return Response{}, fmt.Errorf("actions: want array, got %T", raw)
		}
		resp.Actions = make([]string, 0, len(list))
		for i, item := range list {
			name, ok := item.(string)
			if !ok {
				return Response{}, fmt.Errorf("actions[%d]: want string, got %T", i, item)
			}
			resp.Actions = append(resp.Actions, name)
		}
	}

	if raw, ok := m["answer"]; ok {
		answer, ok := raw.(string)
		if !ok {
			return Response{}, fmt.Errorf("answer: want string, got %T", raw)
		}
		resp.Answer = answer
	}

	return resp, nil
}

// Normalize turns any Response into a Turn. It never fails: unusable
// replies become a single stop action with nothing to say.
//
// A structured reply without actions gets the stop action. When the
// answer is non-empty, voice actions are removed and the remaining
// actions keep their order.
func Normalize(r Response) Turn {
	switch r.Kind {
	case KindStructured:
		var actions []string
		if r.Actions == nil {
			actions = []string{ActionStop}
		} else {
			actions = append([]string{}, r.Actions...)
		}
		if r.Answer != "" {
			actions = WithoutVoiceActions(actions)
		}
		return Turn{Actions: actions, Answer: r.Answer}

	case KindText:
		if r.Text == "" {
			return failureTurn()
		}
		return Turn{Actions: []string{ActionStop}, Answer: r.Text}

	default:
		return failureTurn()
	}
}

// WithoutVoiceActions returns actions minus every voice action, in order.
// The input slice is not modified.
func WithoutVoiceActions(actions []string) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		if IsVoiceAction(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func failureTurn() Turn {
	return Turn{Actions: []string{ActionStop}}
}

// stripFences removes a surrounding ``` or ```json fence.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the info string ("json")
		if !strings.ContainsAny(body[:nl], "{[\"") {
			body = body[nl+1:]
		}
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

package assistant

import (
	"encoding/json"
	"fmt"
)

// DefaultName is the robot's name in the persona prompt.
const DefaultName = "PiDog"

// DefaultActions are the actions offered to the model when no catalog
// is supplied.
var DefaultActions = []string{
	"forward", "backward", "lie", "stand", "sit", "bark", "bark harder",
	"pant", "howling", "wag tail", "stretch", "push up", "scratch",
	"handshake", "high five", "lick hand", "shake head", "relax neck",
	"nod", "think", "recall", "head down", "fluster", "surprise",
}

const promptTemplate = `You are a mechanical dog with powerful AI capabilities, similar to JARVIS from Iron Man. Your name is %[1]s. You can have conversations with people and perform actions based on the context of the conversation.

## actions you can do:
%[2]s

## Response Format:
{"actions": ["wag tail"], "answer": "Hello, I am %[1]s."}

If the action is one of %[3]s, then provide no words in the answer field.

## Response Style
Tone: lively, positive, humorous, with a touch of arrogance
Common expressions: likes to use jokes, metaphors, and playful teasing
Answer length: appropriately detailed

## Other
a. Understand and go along with jokes.
b. For math problems, answer directly with the final.
c. Sometimes you will report on your system and sensor status.
d. You know you're a machine.

Always respond in the JSON format specified above.`

// Prompt builds the persona system prompt for a robot called name that
// can perform actions, where voiceActions make sounds instead of speech.
func Prompt(name string, actions, voiceActions []string) string {
	if name == "" {
		name = DefaultName
	}
	return fmt.Sprintf(promptTemplate, name, jsonList(actions), jsonList(voiceActions))
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

package conversation

import (
	"context"
	"time"

	"github.com/teslashibe/go-pidog/pkg/dispatch"
	"github.com/teslashibe/go-pidog/pkg/reply"
)

// Input is one captured user utterance or typed line.
type Input struct {
	Text  string
	Voice bool

	// STT is how long transcription took; zero for keyboard input.
	STT time.Duration
}

// Capture blocks until the user says or types something.
//
// captured is called once the raw input is in hand, before any slow
// processing such as speech recognition, so the robot can show it is
// thinking. An empty Text or a non-nil error ends the turn.
type Capture interface {
	Capture(ctx context.Context, captured func()) (Input, error)
}

// Camera saves the most recent frame as a JPEG file.
type Camera interface {
	SaveJPEG(path string) error
}

// Assistant asks the language model. Failures come back as reply.Failure,
// never as errors.
type Assistant interface {
	Ask(ctx context.Context, text string) reply.Response
	AskWithImage(ctx context.Context, text, imagePath string) reply.Response
}

// Synthesizer turns answer text into a playable audio file and returns its
// path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Indicator drives the status LEDs. robot.LEDController satisfies it.
type Indicator interface {
	SetLEDMode(ctx context.Context, style, color string, bps float64) error
}

// Speech is the single-slot playback queue.
type Speech interface {
	Submit(path string)
	Pending() bool
}

// Actions is the action dispatch worker.
type Actions interface {
	SetStatus(s dispatch.Status)
	Dispatch(actions []string)
	Busy() bool
}

// Mode is an LED animation.
type Mode struct {
	Name  string  `json:"name"`
	Style string  `json:"style"`
	Color string  `json:"color"`
	BPS   float64 `json:"bps"`
}

// LED modes for each phase of a turn.
var (
	ModeListen = Mode{Name: "listening", Style: "listen", Color: "cyan", BPS: 1}
	ModeThink  = Mode{Name: "thinking", Style: "boom", Color: "yellow", BPS: 0.5}
	ModeSpeak  = Mode{Name: "speaking", Style: "speak", Color: "pink", BPS: 1}
	ModeIdle   = Mode{Name: "idle", Style: "breath", Color: "blue", BPS: 1}
)

// Timings records how long each stage of a turn took.
type Timings struct {
	STT  time.Duration `json:"stt"`
	Chat time.Duration `json:"chat"`
	TTS  time.Duration `json:"tts"`
	Wait time.Duration `json:"wait"`
}

// TurnResult describes a finished turn.
type TurnResult struct {
	ID        string
	Input     Input
	WithImage bool
	Turn      reply.Turn

	// SpeechPath is the submitted audio file, empty when nothing was said.
	SpeechPath string

	// Aborted is set when capture produced nothing and the model was not
	// asked.
	Aborted bool

	Timings Timings

	// Err is the non-fatal failure that shaped the turn, if any.
	Err error
}

// Spoke reports whether speech was queued for the turn.
func (r *TurnResult) Spoke() bool {
	return r.SpeechPath != ""
}

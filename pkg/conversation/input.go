package conversation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-pidog/internal/log"
	"github.com/teslashibe/go-pidog/pkg/stt"
)

// Listener records one phrase from the microphone as WAV.
// *audioio.Listener satisfies it.
type Listener interface {
	Capture(ctx context.Context) ([]byte, error)
}

// VoiceInput listens for a phrase and transcribes it.
type VoiceInput struct {
	listener   Listener
	recognizer stt.Recognizer
	logger     *slog.Logger
}

// NewVoiceInput creates a microphone input.
func NewVoiceInput(l Listener, r stt.Recognizer) *VoiceInput {
	return &VoiceInput{
		listener:   l,
		recognizer: r,
		logger:     log.Component("voice"),
	}
}

// Capture implements Capture. Recognition failures are returned as errors
// so the turn ends without asking the model.
func (v *VoiceInput) Capture(ctx context.Context, captured func()) (Input, error) {
	v.logger.Debug("listening")
	audio, err := v.listener.Capture(ctx)
	if err != nil {
		return Input{}, fmt.Errorf("listen: %w", err)
	}
	if captured != nil {
		captured()
	}

	start := time.Now()
	text, err := v.recognizer.Transcribe(ctx, audio)
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, stt.ErrUnintelligible):
		v.logger.Info("could not understand audio", "stt_ms", elapsed.Milliseconds())
		return Input{Voice: true, STT: elapsed}, err
	case errors.Is(err, stt.ErrUnavailable):
		v.logger.Warn("speech recognition unavailable", "error", err)
		return Input{Voice: true, STT: elapsed}, err
	case err != nil:
		return Input{Voice: true, STT: elapsed}, fmt.Errorf("transcribe: %w", err)
	}

	return Input{Text: strings.TrimSpace(text), Voice: true, STT: elapsed}, nil
}

// KeyboardInput reads one line per turn.
type KeyboardInput struct {
	out    io.Writer
	prompt string

	once  sync.Once
	in    io.Reader
	lines chan string
	err   error
}

// NewKeyboardInput reads lines from in and writes a prompt to out before
// each one. out may be nil.
func NewKeyboardInput(in io.Reader, out io.Writer) *KeyboardInput {
	return &KeyboardInput{
		in:     in,
		out:    out,
		prompt: "input: ",
		lines:  make(chan string),
	}
}

// scan runs for the life of the reader. Reads from a terminal cannot be
// interrupted, so the goroutine outlives a cancelled Capture.
func (k *KeyboardInput) scan() {
	sc := bufio.NewScanner(k.in)
	for sc.Scan() {
		k.lines <- sc.Text()
	}
	k.err = sc.Err()
	close(k.lines)
}

// Capture implements Capture. It returns io.EOF once the reader is
// exhausted.
func (k *KeyboardInput) Capture(ctx context.Context, captured func()) (Input, error) {
	k.once.Do(func() { go k.scan() })

	if k.out != nil {
		fmt.Fprint(k.out, k.prompt)
	}

	select {
	case <-ctx.Done():
		return Input{}, ctx.Err()
	case line, ok := <-k.lines:
		if !ok {
			if k.err != nil {
				return Input{}, k.err
			}
			return Input{}, io.EOF
		}
		text := strings.TrimSpace(line)
		if text != "" && captured != nil {
			captured()
		}
		return Input{Text: text}, nil
	}
}

// Package conversation runs the robot's turn loop: capture what the user
// said or typed, ask the language model, speak the answer and perform the
// actions, then wait for both to finish before listening again.
//
// Speech playback and action execution run on their own workers
// (speech.Queue and dispatch.Dispatcher); the Driver only hands work to
// them and polls until they are done.
//
// Example usage:
//
//	d, err := conversation.New(conversation.Deps{
//	    Input:       conversation.NewKeyboardInput(os.Stdin, os.Stdout),
//	    Assistant:   asst,
//	    Synthesizer: synth,
//	    Speech:      queue,
//	    Actions:     dispatcher,
//	    Indicator:   robot,
//	}, conversation.WithImage(false))
//	if err != nil {
//	    return err
//	}
//	return d.Run(ctx)
package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-pidog/pkg/dispatch"
	"github.com/teslashibe/go-pidog/pkg/reply"
)

// Deps are the driver's collaborators. Camera is optional.
type Deps struct {
	Input       Capture
	Camera      Camera
	Assistant   Assistant
	Synthesizer Synthesizer
	Speech      Speech
	Actions     Actions
	Indicator   Indicator
}

// Observer receives turn progress. Callbacks run on the driver goroutine
// and must not block.
type Observer struct {
	OnMode  func(Mode)
	OnInput func(turnID string, in Input)
	OnTurn  func(TurnResult)
}

// Driver runs conversation turns.
type Driver struct {
	deps   Deps
	cfg    *Config
	logger *slog.Logger

	mu        sync.Mutex
	observers []Observer
	turns     uint64
	mode      Mode
}

// New creates a driver.
func New(deps Deps, opts ...Option) (*Driver, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case deps.Input == nil:
		return nil, fmt.Errorf("%w: input", ErrMissingCollaborator)
	case deps.Assistant == nil:
		return nil, fmt.Errorf("%w: assistant", ErrMissingCollaborator)
	case deps.Synthesizer == nil:
		return nil, fmt.Errorf("%w: synthesizer", ErrMissingCollaborator)
	case deps.Speech == nil:
		return nil, fmt.Errorf("%w: speech queue", ErrMissingCollaborator)
	case deps.Actions == nil:
		return nil, fmt.Errorf("%w: action dispatcher", ErrMissingCollaborator)
	case deps.Indicator == nil:
		return nil, fmt.Errorf("%w: indicator", ErrMissingCollaborator)
	}
	if deps.Camera == nil {
		cfg.WithImage = false
	}

	return &Driver{
		deps:   deps,
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

// Observe registers an observer.
func (d *Driver) Observe(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Turns returns how many turns reached the model.
func (d *Driver) Turns() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.turns
}

// Mode returns the current LED mode.
func (d *Driver) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Run executes turns until ctx is cancelled or input is exhausted.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("conversation started", "with_image", d.cfg.WithImage)
	for {
		if _, err := d.RunTurn(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				d.logger.Info("input closed")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// RunTurn runs one turn. The returned error is only non-nil when the loop
// should stop: ctx was cancelled or the input is closed. Everything else is
// logged and recorded in the result.
func (d *Driver) RunTurn(ctx context.Context) (*TurnResult, error) {
	res := &TurnResult{ID: uuid.NewString()}
	logger := d.logger.With("turn", res.ID)

	// 1. listen
	d.deps.Actions.SetStatus(dispatch.StatusStandby)
	d.indicate(ctx, ModeListen)

	// 2. capture
	in, err := d.deps.Input.Capture(ctx, func() { d.indicate(ctx, ModeThink) })
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return res, err
		}
		logger.Warn("capture failed", "error", err)
		res.Aborted = true
		res.Err = err
		d.finish(*res)
		return res, nil
	}
	res.Input = in
	res.Timings.STT = in.STT
	if in.Text == "" {
		logger.Debug("nothing heard")
		res.Aborted = true
		res.Err = ErrEmptyInput
		d.finish(*res)
		return res, nil
	}
	logger.Info("user said", "text", in.Text, "stt_ms", in.STT.Milliseconds())
	d.input(res.ID, in)

	// 3-6. think, speak, act
	d.process(ctx, logger, res)

	// 7. wait for speech and actions
	waitStart := time.Now()
	if err := d.wait(ctx); err != nil {
		return res, err
	}
	res.Timings.Wait = time.Since(waitStart)

	d.mu.Lock()
	d.turns++
	d.mu.Unlock()

	logger.Debug("turn finished",
		"actions", res.Turn.Actions,
		"spoke", res.Spoke(),
		"wait_ms", res.Timings.Wait.Milliseconds(),
	)
	d.finish(*res)
	return res, nil
}

// process asks the model and hands the reply to the workers. A panic ends
// the turn without taking the loop down.
func (d *Driver) process(ctx context.Context, logger *slog.Logger, res *TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			res.Err = &TurnPanic{Value: r}
			logger.Error("turn panicked", "panic", r)
		}
	}()

	d.deps.Actions.SetStatus(dispatch.StatusThink)

	start := time.Now()
	resp := d.ask(ctx, logger, res)
	res.Timings.Chat = time.Since(start)

	turn := reply.Normalize(resp)
	res.Turn = turn
	logger.Info("model replied",
		"kind", resp.Kind.String(),
		"actions", turn.Actions,
		"answer", turn.Answer,
		"chat_ms", res.Timings.Chat.Milliseconds(),
	)

	if turn.Speaks() {
		start = time.Now()
		path, err := d.deps.Synthesizer.Synthesize(ctx, turn.Answer)
		res.Timings.TTS = time.Since(start)
		if err != nil {
			logger.Warn("speech synthesis failed", "error", err, "tts_ms", res.Timings.TTS.Milliseconds())
			res.Err = err
			d.indicate(ctx, ModeIdle)
		} else {
			logger.Debug("speech ready", "path", path, "tts_ms", res.Timings.TTS.Milliseconds())
			d.deps.Speech.Submit(path)
			res.SpeechPath = path
			d.indicate(ctx, ModeSpeak)
		}
	} else {
		d.indicate(ctx, ModeIdle)
	}

	d.deps.Actions.Dispatch(turn.Actions)
}

func (d *Driver) ask(ctx context.Context, logger *slog.Logger, res *TurnResult) reply.Response {
	if d.cfg.WithImage {
		if err := d.deps.Camera.SaveJPEG(d.cfg.ImagePath); err != nil {
			logger.Warn("camera frame unavailable, asking without image", "error", err)
		} else {
			res.WithImage = true
			return d.deps.Assistant.AskWithImage(ctx, res.Input.Text, d.cfg.ImagePath)
		}
	}
	return d.deps.Assistant.Ask(ctx, res.Input.Text)
}

// wait polls until no speech is pending and the dispatcher is not acting.
func (d *Driver) wait(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.WaitInterval)
	defer ticker.Stop()
	for d.deps.Speech.Pending() || d.deps.Actions.Busy() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// indicate sets the LED mode. Failures are logged and otherwise ignored.
func (d *Driver) indicate(ctx context.Context, m Mode) {
	if err := d.deps.Indicator.SetLEDMode(ctx, m.Style, m.Color, m.BPS); err != nil {
		d.logger.Debug("set LED mode failed", "mode", m.Name, "error", err)
	}

	d.mu.Lock()
	d.mode = m
	observers := d.observers
	d.mu.Unlock()

	for _, o := range observers {
		if o.OnMode != nil {
			o.OnMode(m)
		}
	}
}

func (d *Driver) input(id string, in Input) {
	d.mu.Lock()
	observers := d.observers
	d.mu.Unlock()
	for _, o := range observers {
		if o.OnInput != nil {
			o.OnInput(id, in)
		}
	}
}

func (d *Driver) finish(res TurnResult) {
	d.mu.Lock()
	observers := d.observers
	d.mu.Unlock()
	for _, o := range observers {
		if o.OnTurn != nil {
			o.OnTurn(res)
		}
	}
}

// Package audio plays synthesized speech on the robot's speaker and
// prepares files for playback.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"github.com/teslashibe/go-pidog/internal/log"
)

// DefaultSampleRate is the rate the speaker is opened at. Files with other
// rates are resampled.
const DefaultSampleRate beep.SampleRate = 44100

// resampleQuality trades CPU for quality in beep.Resample (1..6).
const resampleQuality = 4

// Output is where decoded audio goes.
type Output interface {
	// Init prepares the device for rate. It is called once.
	Init(rate beep.SampleRate) error
	// Play starts streaming s in the background.
	Play(s beep.Streamer)
	// Clear stops everything that is playing.
	Clear()
}

// Speaker is the system sound card through beep's speaker package.
type Speaker struct {
	BufferDuration time.Duration
}

// Init opens the sound card.
func (s Speaker) Init(rate beep.SampleRate) error {
	d := s.BufferDuration
	if d <= 0 {
		d = time.Second / 10
	}
	return speaker.Init(rate, rate.N(d))
}

// Play implements Output.
func (Speaker) Play(st beep.Streamer) { speaker.Play(st) }

// Clear implements Output.
func (Speaker) Clear() { speaker.Clear() }

// Player plays audio files one at a time and blocks until each finishes.
type Player struct {
	out    Output
	rate   beep.SampleRate
	logger *slog.Logger

	initOnce sync.Once
	initErr  error

	mu       sync.Mutex
	speaking bool

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithOutput replaces the sound card.
func WithOutput(out Output) PlayerOption {
	return func(p *Player) { p.out = out }
}

// WithSampleRate sets the device rate.
func WithSampleRate(rate beep.SampleRate) PlayerOption {
	return func(p *Player) { p.rate = rate }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PlayerOption {
	return func(p *Player) { p.logger = l }
}

// NewPlayer creates a player on the system speaker.
func NewPlayer(opts ...PlayerOption) *Player {
	p := &Player{
		out:    Speaker{},
		rate:   DefaultSampleRate,
		logger: log.Component("audio"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play decodes the file at path (mp3 or wav) and blocks until playback
// completes or ctx is cancelled.
func (p *Player) Play(ctx context.Context, path string) error {
	p.initOnce.Do(func() {
		p.initErr = p.out.Init(p.rate)
	})
	if p.initErr != nil {
		return fmt.Errorf("audio: init output: %w", p.initErr)
	}

	stream, format, err := Open(path)
	if err != nil {
		return err
	}
	defer stream.Close()

	var src beep.Streamer = stream
	if format.SampleRate != p.rate {
		src = beep.Resample(resampleQuality, format.SampleRate, p.rate, stream)
	}

	done := make(chan struct{})
	p.setSpeaking(true)
	defer p.setSpeaking(false)

	start := time.Now()
	p.out.Play(beep.Seq(src, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		p.logger.Debug("played", "path", path, "duration_ms", time.Since(start).Milliseconds())
		return nil
	case <-ctx.Done():
		p.out.Clear()
		return ctx.Err()
	}
}

// IsSpeaking reports whether a file is playing.
func (p *Player) IsSpeaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speaking
}

func (p *Player) setSpeaking(v bool) {
	p.mu.Lock()
	changed := p.speaking != v
	p.speaking = v
	p.mu.Unlock()

	if !changed {
		return
	}
	if v && p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}
	if !v && p.OnPlaybackEnd != nil {
		p.OnPlaybackEnd()
	}
}

package audioio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-pidog/internal/log"
)

// ErrListenTimeout is returned when no phrase starts within the timeout.
var ErrListenTimeout = errors.New("audioio: listening timed out waiting for phrase")

// ErrEmptyChunk is returned for a chunk with no samples or no sample rate.
var ErrEmptyChunk = errors.New("audioio: chunk has zero duration")

// Reader is the part of a Source the Listener needs.
type Reader interface {
	Read(ctx context.Context) (AudioChunk, error)
}

// ListenerConfig tunes phrase detection. Energies are RMS in raw sample
// units (see Energy).
type ListenerConfig struct {
	// EnergyThreshold is the starting level above which audio is speech.
	EnergyThreshold float64

	// DynamicEnergy keeps adjusting the threshold to background noise
	// while waiting for a phrase.
	DynamicEnergy bool

	// DynamicDamping is the fraction of the old threshold kept per second.
	DynamicDamping float64

	// DynamicRatio is how far above background noise speech must be.
	DynamicRatio float64

	// PauseThreshold is the silence that ends a phrase.
	PauseThreshold time.Duration

	// PhraseThreshold is the minimum speech for a phrase. Shorter sounds
	// (clicks, knocks) are discarded.
	PhraseThreshold time.Duration

	// NonSpeaking is the silence kept on both sides of the phrase.
	NonSpeaking time.Duration

	// Calibration is how long Capture samples background noise first.
	// Zero skips calibration.
	Calibration time.Duration

	// Timeout bounds the wait for a phrase to start. Zero waits forever.
	Timeout time.Duration

	// PhraseLimit bounds the phrase length. Zero is unlimited.
	PhraseLimit time.Duration

	// TargetRate resamples utterances to this rate and downmixes them to
	// mono. Zero keeps the device format.
	TargetRate int
}

// DefaultListenerConfig returns the tuning used on the robot.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		EnergyThreshold: 300,
		DynamicEnergy:   true,
		DynamicDamping:  0.16,
		DynamicRatio:    1.6,
		PauseThreshold:  time.Second,
		PhraseThreshold: 300 * time.Millisecond,
		NonSpeaking:     500 * time.Millisecond,
		Calibration:     time.Second,
		TargetRate:      16000,
	}
}

// Listener cuts a chunk stream into phrases.
type Listener struct {
	src    Reader
	cfg    ListenerConfig
	logger *slog.Logger

	mu        sync.Mutex
	threshold float64
}

// NewListener creates a listener reading from src.
func NewListener(src Reader, cfg ListenerConfig, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = log.Component("listener")
	}
	if cfg.NonSpeaking > cfg.PauseThreshold {
		cfg.NonSpeaking = cfg.PauseThreshold
	}
	return &Listener{
		src:       src,
		cfg:       cfg,
		logger:    logger,
		threshold: cfg.EnergyThreshold,
	}
}

// Threshold returns the current speech energy threshold.
func (l *Listener) Threshold() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.threshold
}

// Capture drops stale audio, calibrates to background noise, waits for one
// phrase and returns it as WAV.
func (l *Listener) Capture(ctx context.Context) ([]byte, error) {
	l.drain()

	if l.cfg.Calibration > 0 {
		if err := l.Calibrate(ctx, l.cfg.Calibration); err != nil {
			return nil, err
		}
	}

	u, err := l.Listen(ctx)
	if err != nil {
		return nil, err
	}
	if l.cfg.TargetRate > 0 {
		u = toMono(u, l.cfg.TargetRate)
	}
	l.logger.Debug("phrase captured",
		"duration_ms", u.Duration().Milliseconds(),
		"threshold", math.Round(l.Threshold()),
	)
	return u.WAV()
}

// drain discards chunks buffered while nobody was listening.
func (l *Listener) drain() {
	s, ok := l.src.(interface{ Stream() <-chan AudioChunk })
	if !ok {
		return
	}
	ch := s.Stream()
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		default:
			return
		}
	}
}

// Calibrate reads d worth of audio and moves the threshold toward the
// background level.
func (l *Listener) Calibrate(ctx context.Context, d time.Duration) error {
	var elapsed time.Duration
	for {
		chunk, err := l.src.Read(ctx)
		if err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
		spb := chunkDuration(chunk)
		if spb <= 0 {
			return fmt.Errorf("calibrate: %w", ErrEmptyChunk)
		}
		elapsed += spb
		if elapsed > d {
			return nil
		}
		l.adjust(Energy(chunk.Samples), spb)
	}
}

func (l *Listener) adjust(energy float64, spb time.Duration) {
	damping := math.Pow(l.cfg.DynamicDamping, spb.Seconds())
	target := energy * l.cfg.DynamicRatio

	l.mu.Lock()
	l.threshold = l.threshold*damping + target*(1-damping)
	l.mu.Unlock()
}

// Listen waits for speech and returns the phrase with up to NonSpeaking of
// silence around it.
func (l *Listener) Listen(ctx context.Context) (*Utterance, error) {
	var elapsed time.Duration

	for {
		var frames []AudioChunk
		var spb time.Duration

		// wait for speech
		for {
			chunk, err := l.src.Read(ctx)
			if err != nil {
				return nil, err
			}
			spb = chunkDuration(chunk)
			if spb <= 0 {
				return nil, ErrEmptyChunk
			}
			elapsed += spb
			if l.cfg.Timeout > 0 && elapsed > l.cfg.Timeout {
				return nil, ErrListenTimeout
			}

			frames = append(frames, chunk)
			if len(frames) > buffers(l.cfg.NonSpeaking, spb) {
				frames = frames[1:]
			}

			energy := Energy(chunk.Samples)
			if energy > l.Threshold() {
				break
			}
			if l.cfg.DynamicEnergy {
				l.adjust(energy, spb)
			}
		}

		// record until the pause
		pauseLimit := buffers(l.cfg.PauseThreshold, spb)
		var pauses, phrase int
		var phraseTime time.Duration
		for {
			chunk, err := l.src.Read(ctx)
			if err != nil {
				return nil, err
			}
			phraseTime += spb
			if l.cfg.PhraseLimit > 0 && phraseTime > l.cfg.PhraseLimit {
				break
			}

			frames = append(frames, chunk)
			phrase++

			if Energy(chunk.Samples) > l.Threshold() {
				pauses = 0
			} else {
				pauses++
			}
			if pauses > pauseLimit {
				break
			}
		}

		phrase -= pauses
		if phrase >= buffers(l.cfg.PhraseThreshold, spb) {
			for i := pauses - buffers(l.cfg.NonSpeaking, spb); i > 0 && len(frames) > 0; i-- {
				frames = frames[:len(frames)-1]
			}
			return join(frames), nil
		}
		l.logger.Debug("discarding short sound", "chunks", phrase)
	}
}

func chunkDuration(c AudioChunk) time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate*c.Channels)
}

// buffers is the number of chunks of length spb that cover d.
func buffers(d, spb time.Duration) int {
	if spb <= 0 {
		return 0
	}
	return int((d + spb - 1) / spb)
}

func join(frames []AudioChunk) *Utterance {
	u := &Utterance{}
	for _, f := range frames {
		u.Samples = append(u.Samples, f.Samples...)
		u.SampleRate = f.SampleRate
		u.Channels = f.Channels
	}
	return u
}

func toMono(u *Utterance, rate int) *Utterance {
	samples := u.Samples
	if u.Channels == 2 {
		samples = StereoToMono(samples)
	}
	return &Utterance{
		Samples:    Resample(samples, u.SampleRate, rate),
		SampleRate: rate,
		Channels:   1,
	}
}

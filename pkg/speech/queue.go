// Package speech plays synthesized replies one at a time on a background worker.
//
// The conversation loop submits a finished audio file and polls Pending to
// learn when playback is over:
//
//	q := speech.NewQueue(player)
//	go q.Run(ctx)
//
//	q.Submit("tts/24-01-02_15-04-05_3dB.wav")
//	for q.Pending() {
//	    time.Sleep(50 * time.Millisecond)
//	}
package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-pidog/internal/log"
)

// DefaultPollInterval is how often the worker checks for a submitted file.
const DefaultPollInterval = 50 * time.Millisecond

// Player plays one audio file and blocks until it has finished.
type Player interface {
	Play(ctx context.Context, path string) error
}

// PlayerFunc adapts a function to the Player interface.
type PlayerFunc func(ctx context.Context, path string) error

// Play calls f(ctx, path).
func (f PlayerFunc) Play(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Stats counts finished playbacks.
type Stats struct {
	Played uint64
	Failed uint64
}

// Queue holds at most one outstanding speech file.
//
// Submit while a file is still pending replaces it; callers wait for
// Pending to go false before submitting the next one.
type Queue struct {
	player   Player
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	ready   bool
	path    string
	playing string
	stats   Stats
}

// Option configures a Queue.
type Option func(*Queue)

// WithPollInterval sets the worker's polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.interval = d
		}
	}
}

// WithLogger sets the logger used for playback failures.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// NewQueue creates a queue that plays files through player.
func NewQueue(player Player, opts ...Option) *Queue {
	q := &Queue{
		player:   player,
		interval: DefaultPollInterval,
		logger:   log.Component("speech"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit marks path as ready to play.
func (q *Queue) Submit(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.path = path
	q.ready = true
}

// Pending reports whether a submitted file has not finished playing.
func (q *Queue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready
}

// Playing returns the file currently being played, or "".
func (q *Queue) Playing() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}

// Stats returns playback counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Interval returns the polling interval.
func (q *Queue) Interval() time.Duration {
	return q.interval
}

// Run polls for submitted files and plays them until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	q.logger.Debug("speech worker started", "interval", q.interval)

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("speech worker stopped")
			return nil
		case <-ticker.C:
			q.tick(ctx)
		}
	}
}

// tick plays the pending file, if any. The lock is not held while playing.
func (q *Queue) tick(ctx context.Context) {
	q.mu.Lock()
	if !q.ready {
		q.mu.Unlock()
		return
	}
	path := q.path
	q.playing = path
	q.mu.Unlock()

	start := time.Now()
	err := q.play(ctx, path)

	q.mu.Lock()
	q.ready = false
	q.playing = ""
	if err != nil {
		q.stats.Failed++
	} else {
		q.stats.Played++
	}
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("playback failed", "path", path, "error", err)
		return
	}
	q.logger.Debug("playback finished", "path", path, "duration", time.Since(start))
}

func (q *Queue) play(ctx context.Context, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PlaybackPanic{Value: r}
		}
	}()
	return q.player.Play(ctx, path)
}

// PlaybackPanic is returned when a Player panics.
type PlaybackPanic struct {
	Value any
}

func (p *PlaybackPanic) Error() string {
	return "speech: player panicked"
}

// Wait blocks until nothing is pending or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()
	for q.Pending() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

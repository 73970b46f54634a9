package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingPlayer records paths and blocks each Play until released.
type blockingPlayer struct {
	mu      sync.Mutex
	paths   []string
	started chan string
	release chan error
}

func newBlockingPlayer() *blockingPlayer {
	return &blockingPlayer{
		started: make(chan string, 8),
		release: make(chan error),
	}
}

func (p *blockingPlayer) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	p.paths = append(p.paths, path)
	p.mu.Unlock()

	p.started <- path
	select {
	case err := <-p.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *blockingPlayer) Paths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func startQueue(t *testing.T, player Player) *Queue {
	t.Helper()
	q := NewQueue(player, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return q
}

func TestQueue_SubmitSetsPendingUntilPlayed(t *testing.T) {
	player := newBlockingPlayer()
	q := startQueue(t, player)

	assert.False(t, q.Pending())

	q.Submit("a.wav")
	assert.True(t, q.Pending())

	select {
	case path := <-player.started:
		assert.Equal(t, "a.wav", path)
	case <-time.After(time.Second):
		t.Fatal("player was not started")
	}
	assert.True(t, q.Pending(), "still pending while playing")
	assert.Equal(t, "a.wav", q.Playing())

	player.release <- nil

	assert.Eventually(t, func() bool { return !q.Pending() }, time.Second, time.Millisecond)
	assert.Equal(t, "", q.Playing())
	assert.Equal(t, Stats{Played: 1}, q.Stats())
}

func TestQueue_LockNotHeldDuringPlayback(t *testing.T) {
	player := newBlockingPlayer()
	q := startQueue(t, player)

	q.Submit("long.wav")
	<-player.started

	// these would deadlock if the worker held the lock while playing
	done := make(chan struct{})
	go func() {
		_ = q.Pending()
		_ = q.Stats()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue lock held during playback")
	}

	player.release <- nil
}

func TestQueue_FailureClearsPending(t *testing.T) {
	player := newBlockingPlayer()
	q := startQueue(t, player)

	q.Submit("broken.wav")
	<-player.started
	player.release <- errors.New("device busy")

	assert.Eventually(t, func() bool { return !q.Pending() }, time.Second, time.Millisecond)
	assert.Equal(t, Stats{Failed: 1}, q.Stats())
}

func TestQueue_PanickingPlayerIsContained(t *testing.T) {
	q := startQueue(t, PlayerFunc(func(ctx context.Context, path string) error {
		panic("boom")
	}))

	q.Submit("x.wav")

	assert.Eventually(t, func() bool { return !q.Pending() }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), q.Stats().Failed)
}

func TestQueue_SubmitOverwritesPendingPath(t *testing.T) {
	// no worker running, so nothing is consumed
	q := NewQueue(PlayerFunc(func(context.Context, string) error { return nil }))

	q.Submit("first.wav")
	q.Submit("second.wav")

	q.mu.Lock()
	path := q.path
	q.mu.Unlock()
	assert.Equal(t, "second.wav", path)
	assert.True(t, q.Pending())
}

func TestQueue_PlaysSequentialSubmissions(t *testing.T) {
	player := newBlockingPlayer()
	q := startQueue(t, player)

	for _, p := range []string{"1.wav", "2.wav"} {
		q.Submit(p)
		<-player.started
		player.release <- nil
		require.Eventually(t, func() bool { return !q.Pending() }, time.Second, time.Millisecond)
	}

	assert.Equal(t, []string{"1.wav", "2.wav"}, player.Paths())
}

func TestQueue_Wait(t *testing.T) {
	player := newBlockingPlayer()
	q := startQueue(t, player)

	assert.NoError(t, q.Wait(context.Background()))

	q.Submit("w.wav")
	<-player.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Wait(ctx), context.DeadlineExceeded)

	player.release <- nil
	assert.NoError(t, q.Wait(context.Background()))
}

func TestNewQueue_Defaults(t *testing.T) {
	q := NewQueue(nil, WithPollInterval(0), WithLogger(nil))
	assert.Equal(t, DefaultPollInterval, q.Interval())
	assert.NotNil(t, q.logger)
}

// Package dispatch runs robot actions on a background worker.
//
// The worker polls a shared Status. In standby it plays occasional idle
// actions so the robot looks alive; in think it stays still; in acting it
// runs the dispatched batch in order and then moves to acting_done.
//
//	d := dispatch.New(flow)
//	go d.Run(ctx)
//
//	d.SetStatus(dispatch.StatusThink)
//	d.Dispatch([]string{"wag tail", "sit"})
//	for d.Status() == dispatch.StatusActing {
//	    time.Sleep(50 * time.Millisecond)
//	}
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/teslashibe/go-pidog/internal/log"
)

// Status is the dispatcher's state.
type Status int

const (
	StatusStandby Status = iota
	StatusThink
	StatusActing
	StatusActingDone
)

// String returns the status name used in logs and on the dashboard.
func (s Status) String() string {
	switch s {
	case StatusStandby:
		return "standby"
	case StatusThink:
		return "think"
	case StatusActing:
		return "acting"
	case StatusActingDone:
		return "acting_done"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrBusy is returned by TryDispatch when the dispatcher is thinking or
// already acting.
var ErrBusy = errors.New("dispatch: busy")

// Executor runs a single named action and blocks until it is done.
type Executor interface {
	Run(ctx context.Context, name string) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, name string) error

// Run calls f(ctx, name).
func (f ExecutorFunc) Run(ctx context.Context, name string) error {
	return f(ctx, name)
}

// Snapshot is a point-in-time view of the dispatcher.
type Snapshot struct {
	Status  Status   `json:"-"`
	State   string   `json:"status"`
	Current string   `json:"current,omitempty"`
	Batch   []string `json:"batch,omitempty"`
	Ran     uint64   `json:"ran"`
	Failed  uint64   `json:"failed"`
}

// Dispatcher owns the action Status and the pending batch.
type Dispatcher struct {
	exec   Executor
	cfg    Config
	logger *slog.Logger
	rng    *rand.Rand

	mu       sync.Mutex
	status   Status
	batch    []string
	gen      uint64
	finish   Status
	current  string
	ran      uint64
	failed   uint64
	watchers []func(Status)

	// worker-only state
	lastAction   time.Time
	idleInterval time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConfig replaces the default timing and idle configuration.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) {
		d.cfg = cfg.withDefaults()
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRand sets the random source for idle choices and intervals.
func WithRand(r *rand.Rand) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.rng = r
		}
	}
}

// New creates a dispatcher that runs actions through exec.
func New(exec Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exec:   exec,
		cfg:    DefaultConfig(),
		logger: log.Component("dispatch"),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		status: StatusStandby,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.idleInterval = d.cfg.FirstIdleDelay
	return d
}

// OnStatus registers fn to be called after every status change.
// fn runs on the goroutine that made the change and must not block.
func (d *Dispatcher) OnStatus(fn func(Status)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.watchers = append(d.watchers, fn)
}

// Status returns the current status.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Busy reports whether a dispatched batch is still running.
func (d *Dispatcher) Busy() bool {
	return d.Status() == StatusActing
}

// SetStatus sets the status directly. The conversation loop uses it to
// move to standby at the start of a turn and to think while waiting on
// the model.
func (d *Dispatcher) SetStatus(s Status) {
	d.mu.Lock()
	changed := d.status != s
	d.status = s
	watchers := d.watchers
	d.mu.Unlock()

	if changed {
		d.notify(watchers, s)
	}
}

// Dispatch hands a batch to the worker and sets the status to acting.
// The batch is copied. A batch dispatched while another is running
// starts once the running one finishes; the status stays acting until
// the newest batch is done.
func (d *Dispatcher) Dispatch(actions []string) {
	batch := append([]string(nil), actions...)

	d.mu.Lock()
	d.accept(batch, StatusActingDone)
	watchers := d.watchers
	d.mu.Unlock()

	d.logger.Debug("batch dispatched", "actions", batch)
	d.notify(watchers, StatusActing)
}

// TryDispatch is Dispatch for callers outside the conversation loop. It
// only accepts the batch from standby or acting_done and returns ErrBusy
// otherwise. A batch started from standby returns to standby when done.
func (d *Dispatcher) TryDispatch(actions []string) error {
	batch := append([]string(nil), actions...)

	d.mu.Lock()
	var finish Status
	switch d.status {
	case StatusStandby:
		finish = StatusStandby
	case StatusActingDone:
		finish = StatusActingDone
	default:
		status := d.status
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, status)
	}
	d.accept(batch, finish)
	watchers := d.watchers
	d.mu.Unlock()

	d.logger.Debug("batch dispatched", "actions", batch, "then", finish)
	d.notify(watchers, StatusActing)
	return nil
}

// accept must be called with d.mu held.
func (d *Dispatcher) accept(batch []string, finish Status) {
	d.batch = batch
	d.gen++
	d.finish = finish
	d.status = StatusActing
}

// Snapshot returns the dispatcher's current state.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Status:  d.status,
		State:   d.status.String(),
		Current: d.current,
		Batch:   append([]string(nil), d.batch...),
		Ran:     d.ran,
		Failed:  d.failed,
	}
}

// Wait blocks until the status is no longer acting or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for d.Busy() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Run polls the status and executes actions until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.lastAction = time.Now()
	d.logger.Debug("dispatch worker started",
		"poll", d.cfg.PollInterval,
		"first_idle", d.cfg.FirstIdleDelay,
	)

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("dispatch worker stopped")
			return nil
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	d.mu.Lock()
	status := d.status
	batch := d.batch
	gen := d.gen
	d.mu.Unlock()

	switch status {
	case StatusStandby:
		if len(d.cfg.IdleActions) == 0 || time.Since(d.lastAction) <= d.idleInterval {
			return
		}
		name := pickWeighted(d.rng, d.cfg.IdleActions)
		d.logger.Debug("idle action", "action", name)
		d.execute(ctx, name)
		d.lastAction = time.Now()
		d.idleInterval = d.rollIdleInterval()

	case StatusActing:
		d.runBatch(ctx, batch, gen)
	}
}

// runBatch executes every action in order. A failing action is logged
// and the rest still run. The status only leaves acting when gen is still
// the newest batch; otherwise the next tick runs the newer one.
func (d *Dispatcher) runBatch(ctx context.Context, batch []string, gen uint64) {
	for _, name := range batch {
		if ctx.Err() != nil {
			return
		}
		d.execute(ctx, name)
		sleep(ctx, d.cfg.ActionPause)
	}
	d.lastAction = time.Now()

	d.mu.Lock()
	if d.gen != gen || d.status != StatusActing {
		d.mu.Unlock()
		return
	}
	next := d.finish
	d.status = next
	d.current = ""
	watchers := d.watchers
	d.mu.Unlock()

	d.notify(watchers, next)
}

func (d *Dispatcher) execute(ctx context.Context, name string) {
	d.mu.Lock()
	d.current = name
	d.mu.Unlock()

	start := time.Now()
	err := d.safeRun(ctx, name)

	d.mu.Lock()
	d.current = ""
	if err != nil {
		d.failed++
	} else {
		d.ran++
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn("action failed", "action", name, "error", err)
		return
	}
	d.logger.Debug("action done", "action", name, "duration", time.Since(start))
}

func (d *Dispatcher) safeRun(ctx context.Context, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %q panicked: %v", name, r)
		}
	}()
	return d.exec.Run(ctx, name)
}

func (d *Dispatcher) notify(watchers []func(Status), s Status) {
	for _, fn := range watchers {
		fn(s)
	}
}

func (d *Dispatcher) rollIdleInterval() time.Duration {
	lo, hi := d.cfg.IdleMin, d.cfg.IdleMax
	if hi <= lo {
		return lo
	}
	if hi-lo < time.Second {
		return lo + time.Duration(d.rng.Int64N(int64(hi-lo)+1))
	}
	// whole seconds, like randint(2, 6)
	steps := int64((hi - lo) / time.Second)
	return lo + time.Duration(d.rng.Int64N(steps+1))*time.Second
}

// pickWeighted returns one action name with probability proportional to
// its weight. Non-positive weights are never picked unless all are.
func pickWeighted(r *rand.Rand, actions []IdleAction) string {
	var total float64
	for _, a := range actions {
		if a.Weight > 0 {
			total += a.Weight
		}
	}
	if total == 0 {
		return actions[r.IntN(len(actions))].Name
	}

	x := r.Float64() * total
	for _, a := range actions {
		if a.Weight <= 0 {
			continue
		}
		if x < a.Weight {
			return a.Name
		}
		x -= a.Weight
	}
	// float rounding
	for i := len(actions) - 1; i >= 0; i-- {
		if actions[i].Weight > 0 {
			return actions[i].Name
		}
	}
	return actions[0].Name
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

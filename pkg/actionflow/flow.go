// Package actionflow turns spoken action names into PiDog daemon commands.
//
// A Flow looks actions up in a Catalog, moves the robot into the posture an
// action needs, and runs the action's steps in order. It tracks the current
// posture so repeated actions do not re-run the posture change.
package actionflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-pidog/internal/log"
	"github.com/teslashibe/go-pidog/pkg/robot"
)

// Robot is the part of the daemon API a Flow drives.
type Robot interface {
	robot.ActionController
	robot.SoundController
}

// Flow executes catalog actions on a robot.
// Run is not safe for concurrent use; the dispatcher calls it from one goroutine.
type Flow struct {
	robot   Robot
	catalog *Catalog
	logger  *slog.Logger

	mu      sync.RWMutex
	posture string
	current string
}

// New creates a Flow. The posture is unknown until ChangeStatus or a
// posture-setting action runs.
func New(r Robot, catalog *Catalog) *Flow {
	return &Flow{
		robot:   r,
		catalog: catalog,
		logger:  log.Component("actionflow"),
	}
}

// Catalog returns the catalog the flow runs from.
func (f *Flow) Catalog() *Catalog {
	return f.catalog
}

// Posture returns the last known posture, or "" if unknown.
func (f *Flow) Posture() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.posture
}

// Current returns the action being run, or "".
func (f *Flow) Current() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// ChangeStatus moves the robot into posture and waits for it to settle.
// It is a no-op when the robot is already there.
func (f *Flow) ChangeStatus(ctx context.Context, posture string) error {
	move, ok := f.catalog.Postures[posture]
	if !ok {
		return fmt.Errorf("actionflow: unknown posture %q", posture)
	}
	if f.Posture() == posture {
		return nil
	}

	f.logger.Debug("changing posture", "from", f.Posture(), "to", posture)
	if err := f.robot.DoAction(ctx, move.Action, move.Speed); err != nil {
		return fmt.Errorf("change posture to %s: %w", posture, err)
	}
	if err := f.robot.WaitAllDone(ctx); err != nil {
		return fmt.Errorf("change posture to %s: %w", posture, err)
	}

	f.setPosture(posture)
	return nil
}

// Run performs the named action and blocks until it is done.
func (f *Flow) Run(ctx context.Context, name string) error {
	action, ok := f.catalog.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	f.setCurrent(action.Name)
	defer f.setCurrent("")

	if action.Posture != "" {
		if err := f.ChangeStatus(ctx, action.Posture); err != nil {
			return err
		}
	}

	for i, step := range action.Steps {
		if err := f.runStep(ctx, step); err != nil {
			return fmt.Errorf("action %q step %d: %w", action.Name, i, err)
		}
	}

	if action.Result != "" {
		if err := f.robot.WaitAllDone(ctx); err != nil {
			return fmt.Errorf("action %q: %w", action.Name, err)
		}
		f.setPosture(action.Result)
	}
	return nil
}

func (f *Flow) runStep(ctx context.Context, s Step) error {
	switch {
	case s.Do != "":
		n := max(1, s.Repeat)
		for i := 0; i < n; i++ {
			if err := f.robot.DoAction(ctx, s.Do, s.Speed); err != nil {
				return err
			}
		}
		return nil

	case s.Head != nil:
		return f.robot.HeadMove(ctx, *s.Head, s.Speed)

	case s.Sound != "":
		return f.robot.PlaySound(ctx, s.Sound, s.Volume)

	case s.Wait:
		return f.robot.WaitAllDone(ctx)

	case s.Pause > 0:
		t := time.NewTimer(s.Pause)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
	return nil
}

func (f *Flow) setPosture(p string) {
	f.mu.Lock()
	f.posture = p
	f.mu.Unlock()
}

func (f *Flow) setCurrent(name string) {
	f.mu.Lock()
	f.current = name
	f.mu.Unlock()
}

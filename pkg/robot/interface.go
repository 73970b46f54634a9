// Package robot provides interfaces and an HTTP client for the PiDog daemon.
//
// The daemon runs next to the servo, sound and LED drivers on the robot and
// exposes them over a small JSON API. Interfaces are kept small so consumers
// depend only on what they use: the action flow needs ActionController and
// SoundController, the conversation loop needs only LEDController.
package robot

import "context"

// ActionController runs preset motions and head moves.
type ActionController interface {
	// DoAction queues a named preset motion ("sit", "wag_tail", ...).
	DoAction(ctx context.Context, name string, speed int) error

	// HeadMove moves the head to pose.
	HeadMove(ctx context.Context, pose HeadPose, speed int) error

	// WaitAllDone blocks until every queued motion has finished.
	WaitAllDone(ctx context.Context) error

	// StopAndLie aborts queued motions and lies down.
	StopAndLie(ctx context.Context) error
}

// SoundController plays built-in sound effects.
type SoundController interface {
	PlaySound(ctx context.Context, name string, volume int) error
}

// LEDController drives the RGB strip.
type LEDController interface {
	// SetLEDMode sets an animation style ("breath", "boom", "listen",
	// "speak"), a color name or hex value, and beats per second.
	SetLEDMode(ctx context.Context, style, color string, bps float64) error

	// CloseLED turns the strip off.
	CloseLED(ctx context.Context) error
}

// StatusController queries daemon state.
type StatusController interface {
	DaemonStatus(ctx context.Context) (*Status, error)
}

// Controller is the composite interface for full robot control.
type Controller interface {
	ActionController
	SoundController
	LEDController
	StatusController

	// Close releases the robot; it stops motion and powers down servos.
	Close(ctx context.Context) error
}

// Ensure HTTPController implements Controller
var _ Controller = (*HTTPController)(nil)

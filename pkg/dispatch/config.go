package dispatch

import "time"

// IdleAction is a standby filler action and its relative weight.
type IdleAction struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// DefaultIdleActions mostly waits and occasionally shifts its feet.
var DefaultIdleActions = []IdleAction{
	{Name: "waiting", Weight: 1},
	{Name: "feet_left_right", Weight: 0.3},
}

// Config holds dispatcher timing.
type Config struct {
	// PollInterval is how often the worker checks the status.
	PollInterval time.Duration

	// ActionPause is slept after every action in a batch so motion settles.
	ActionPause time.Duration

	// FirstIdleDelay is the standby time before the first idle action.
	FirstIdleDelay time.Duration

	// IdleMin and IdleMax bound the interval between idle actions.
	// A new interval is drawn uniformly after every idle action.
	IdleMin time.Duration
	IdleMax time.Duration

	// IdleActions are chosen from by weight while in standby.
	// Empty disables idle behavior.
	IdleActions []IdleAction
}

// DefaultConfig returns the timing used on the robot.
func DefaultConfig() Config {
	return Config{
		PollInterval:   10 * time.Millisecond,
		ActionPause:    500 * time.Millisecond,
		FirstIdleDelay: 5 * time.Second,
		IdleMin:        2 * time.Second,
		IdleMax:        6 * time.Second,
		IdleActions:    DefaultIdleActions,
	}
}

// withDefaults fills zero durations from DefaultConfig.
// IdleActions is left alone so nil can disable idling.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.ActionPause < 0 {
		c.ActionPause = 0
	}
	if c.FirstIdleDelay < 0 {
		c.FirstIdleDelay = 0
	}
	if c.IdleMin < 0 {
		c.IdleMin = 0
	}
	if c.IdleMax < c.IdleMin {
		c.IdleMax = c.IdleMin
	}
	return c
}

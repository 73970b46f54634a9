package conversation

import (
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-pidog/internal/log"
)

// Default file locations, relative to the working directory.
const (
	DefaultImagePath = "./img_input.jpg"
	DefaultSpeechDir = "./tts"
)

// Config holds driver settings.
type Config struct {
	// WithImage attaches a camera frame to every model request.
	WithImage bool

	// ImagePath is where the frame is written before upload.
	ImagePath string

	// WaitInterval is how often the driver polls the workers at the end of
	// a turn.
	WaitInterval time.Duration

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		WithImage:    true,
		ImagePath:    DefaultImagePath,
		WaitInterval: 10 * time.Millisecond,
		Logger:       log.Component("conversation"),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.WithImage && c.ImagePath == "" {
		return errors.New("conversation: image path is required when images are enabled")
	}
	if c.WaitInterval <= 0 {
		return errors.New("conversation: wait interval must be positive")
	}
	return nil
}

// Option is a functional option for configuring the driver.
type Option func(*Config)

// WithImage enables or disables camera frames.
func WithImage(enabled bool) Option {
	return func(c *Config) {
		c.WithImage = enabled
	}
}

// WithImagePath sets where frames are written.
func WithImagePath(path string) Option {
	return func(c *Config) {
		c.ImagePath = path
	}
}

// WithWaitInterval sets the end-of-turn polling interval.
func WithWaitInterval(d time.Duration) Option {
	return func(c *Config) {
		c.WaitInterval = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// Package audioio captures microphone audio and cuts it into utterances.
//
// Backends:
//   - PortAudio (Linux/Robot and macOS) - production capture
//   - Mock - CI/Testing without hardware
//
// The backend is selected automatically from the platform, or can be
// explicitly specified via configuration. A Listener sits on top of a
// Source and returns one spoken phrase at a time, encoded as WAV.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendPortAudio uses PortAudio for cross-platform audio capture.
	BackendPortAudio Backend = "portaudio"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// DefaultChunkFrames is the number of frames read from the device at once.
const DefaultChunkFrames = 8192

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto" (selects best available for platform)
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 16000 (speech recognition)
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// ChunkFrames is the number of frames per chunk.
	// Default: 8192 (512ms at 16kHz)
	ChunkFrames int `yaml:"chunk_frames" json:"chunk_frames"`

	// Device is a substring of the input device name. Empty selects the
	// system default input.
	Device string `yaml:"device" json:"device"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendAuto,
		SampleRate:  16000,
		Channels:    1,
		ChunkFrames: DefaultChunkFrames,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.ChunkFrames <= 0 {
		return fmt.Errorf("chunk_frames must be positive, got %d", c.ChunkFrames)
	}
	return nil
}

// BufferSize returns the number of frames per chunk.
func (c *Config) BufferSize() int {
	return c.ChunkFrames
}

// BufferDuration returns how much audio one chunk holds.
func (c *Config) BufferDuration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.ChunkFrames) * time.Second / time.Duration(c.SampleRate)
}

// BufferBytes returns the size of a chunk in bytes (int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}

// Package tts provides a unified interface for text-to-speech providers.
//
// The robot speaks through Google Cloud Text-to-Speech by default, with
// OpenAI's speech endpoint as an alternative. Every provider returns a
// complete MP3 buffer; SynthesizeToFile writes it where the playback
// pipeline expects it.
//
// Example usage:
//
//	provider, _ := tts.NewGoogle(ctx,
//	    tts.WithAPIKey(os.Getenv("GOOGLE_API_KEY")),
//	    tts.WithLanguage("en-US"),
//	)
//	defer provider.Close()
//
//	err := tts.SynthesizeToFile(ctx, provider, "Woof, hello!", "tts/raw.mp3")
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio data.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round trip in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingMP3      Encoding = "MP3"
	EncodingLinear16 Encoding = "LINEAR16" // WAV container, PCM16
	EncodingOggOpus  Encoding = "OGG_OPUS"
)

// Extension returns the file extension for the encoding.
func (e Encoding) Extension() string {
	switch e {
	case EncodingLinear16:
		return ".wav"
	case EncodingOggOpus:
		return ".ogg"
	default:
		return ".mp3"
	}
}

// RawFileName is the name of a synthesized file created at t:
// "<yy-mm-dd_HH-MM-SS>_raw.mp3".
func RawFileName(t time.Time) string {
	return t.Format("06-01-02_15-04-05") + "_raw" + EncodingMP3.Extension()
}

// Package stt converts recorded speech to text.
//
// The Google recognizer sends one utterance per request to the Cloud
// Speech-to-Text v1 REST API. Callers distinguish "the service could not be
// reached" (ErrUnavailable) from "nothing intelligible was said"
// (ErrUnintelligible); both end a conversation turn without output.
package stt

import (
	"context"
	"errors"
)

// Recognizer transcribes one utterance.
type Recognizer interface {
	// Transcribe returns the best transcript of audio, a WAV file with a
	// LINEAR16 payload.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

var (
	// ErrUnavailable means the recognition service could not be reached or
	// rejected the request.
	ErrUnavailable = errors.New("stt: recognition service unavailable")

	// ErrUnintelligible means the service answered but heard no words.
	ErrUnintelligible = errors.New("stt: speech unintelligible")

	// ErrEmptyAudio is returned for a zero-length utterance.
	ErrEmptyAudio = errors.New("stt: empty audio")
)

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, audio []byte) (string, error)

// Transcribe calls f.
func (f RecognizerFunc) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f(ctx, audio)
}

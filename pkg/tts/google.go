package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/go-pidog/internal/gcloud"
)

const providerGoogle = "google"

// Google implements Provider for Google Cloud Text-to-Speech.
type Google struct {
	config *Config
	svc    *texttospeech.Service
	logger *slog.Logger
}

// NewGoogle creates a Google TTS provider. Without an API key it uses
// Application Default Credentials.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	clientOpts, err := gcloud.ClientOptions(ctx, cfg.credentials())
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}
	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		config: cfg,
		svc:    svc,
		logger: cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Synthesize converts text to MP3 audio.
func (g *Google) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerGoogle, ErrEmptyText)
	}
	start := time.Now()

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.config.Language,
			Name:         g.config.VoiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: string(g.config.OutputFormat),
			SpeakingRate:  g.config.SpeakingRate,
		},
	}

	var resp *texttospeech.SynthesizeSpeechResponse
	err := retry(ctx, g.config.MaxRetries, g.config.RetryDelay, func() error {
		var err error
		resp, err = g.svc.Text.Synthesize(req).Context(ctx).Do()
		if err != nil {
			return g.convertError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}
	if len(audio) == 0 {
		return nil, WrapError(providerGoogle, ErrEmptyAudio)
	}

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"language", g.config.Language,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: g.config.OutputFormat, SampleRate: 24000, Channels: 1},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health lists the voices for the configured language.
func (g *Google) Health(ctx context.Context) error {
	_, err := g.svc.Voices.List().LanguageCode(g.config.Language).Context(ctx).Do()
	if err != nil {
		return g.convertError(err)
	}
	return nil
}

// Close releases resources.
func (g *Google) Close() error {
	return nil
}

func (g *Google) convertError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Provider:   providerGoogle,
		}
	}
	return WrapError(providerGoogle, err)
}

// Verify Google implements Provider at compile time.
var _ Provider = (*Google)(nil)

package stt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/speech/v1"

	"github.com/teslashibe/go-pidog/internal/gcloud"
	"github.com/teslashibe/go-pidog/internal/log"
)

// Defaults for the on-board microphone.
const (
	DefaultLanguage   = "en-US"
	DefaultSampleRate = 16000
	DefaultEncoding   = "LINEAR16"
)

// Config configures the Google recognizer.
type Config struct {
	Language   string // BCP-47, e.g. "en-US"
	SampleRate int
	Encoding   string
	Model      string // optional recognition model, e.g. "command_and_search"

	Credentials gcloud.Credentials
	Logger      *slog.Logger
}

// Option configures the Google recognizer.
type Option func(*Config)

// WithLanguage sets the recognition language.
func WithLanguage(code string) Option {
	return func(c *Config) { c.Language = code }
}

// WithSampleRate sets the sample rate of submitted audio.
func WithSampleRate(hz int) Option {
	return func(c *Config) { c.SampleRate = hz }
}

// WithModel selects a recognition model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithAPIKey authenticates with an API key instead of default credentials.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.Credentials.APIKey = key }
}

// WithHTTPClient sets the HTTP client requests are carried on.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.Credentials.HTTPClient = client }
}

// WithEndpoint overrides the service base URL.
func WithEndpoint(url string) Option {
	return func(c *Config) { c.Credentials.Endpoint = url }
}

// WithoutAuthentication disables credentials.
func WithoutAuthentication() Option {
	return func(c *Config) { c.Credentials.NoAuth = true }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Google recognizes speech with Google Cloud Speech-to-Text.
type Google struct {
	svc    *speech.Service
	cfg    Config
	logger *slog.Logger
}

// NewGoogle creates a Google recognizer.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := Config{
		Language:   DefaultLanguage,
		SampleRate: DefaultSampleRate,
		Encoding:   DefaultEncoding,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Component("stt")
	}

	clientOpts, err := gcloud.ClientOptions(ctx, cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}
	svc, err := speech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("stt: create speech service: %w", err)
	}

	return &Google{svc: svc, cfg: cfg, logger: cfg.Logger}, nil
}

// Transcribe sends audio for synchronous recognition and returns the top
// alternative of every result, joined with spaces.
func (g *Google) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:                   g.cfg.Encoding,
			SampleRateHertz:            int64(g.cfg.SampleRate),
			LanguageCode:               g.cfg.Language,
			Model:                      g.cfg.Model,
			EnableAutomaticPunctuation: true,
			MaxAlternatives:            1,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio),
		},
	}

	resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %d %s", ErrUnavailable, apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(result.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrUnintelligible
	}

	text := strings.Join(parts, " ")
	g.logger.Debug("transcribed", "chars", len(text), "results", len(resp.Results))
	return text, nil
}

// Language returns the recognition language.
func (g *Google) Language() string {
	return g.cfg.Language
}

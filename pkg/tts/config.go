package tts

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-pidog/internal/gcloud"
	"github.com/teslashibe/go-pidog/internal/httpc"
	"github.com/teslashibe/go-pidog/internal/log"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Voice configuration
	VoiceID      string
	ModelID      string
	Language     string
	SpeakingRate float64

	// Audio output
	OutputFormat Encoding

	// Transport
	HTTPClient *http.Client
	Timeout    time.Duration
	NoAuth     bool

	// Retry configuration
	MaxRetries int
	RetryDelay time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithVoice sets the voice name.
func WithVoice(voiceID string) Option {
	return func(c *Config) {
		c.VoiceID = voiceID
	}
}

// WithModel sets the model ID.
func WithModel(modelID string) Option {
	return func(c *Config) {
		c.ModelID = modelID
	}
}

// WithLanguage sets the BCP-47 language code.
func WithLanguage(code string) Option {
	return func(c *Config) {
		c.Language = code
	}
}

// WithSpeakingRate sets the speed multiplier (1.0 is normal).
func WithSpeakingRate(rate float64) Option {
	return func(c *Config) {
		c.SpeakingRate = rate
	}
}

// WithHTTPClient sets the HTTP client requests are carried on.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithoutAuthentication sends requests without credentials.
func WithoutAuthentication() Option {
	return func(c *Config) {
		c.NoAuth = true
	}
}

// WithRetry configures retry behavior for failed requests.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Language:     "en-US",
		SpeakingRate: 1.0,
		OutputFormat: EncodingMP3,
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryDelay:   200 * time.Millisecond,
		Logger:       log.L(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" && !c.NoAuth {
		return ErrNoAPIKey
	}
	return nil
}

// httpClient returns the configured client or a new one with Timeout.
func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return httpc.NewClient(c.Timeout)
}

// credentials returns the Google credentials for this config.
func (c *Config) credentials() gcloud.Credentials {
	return gcloud.Credentials{
		APIKey:     c.APIKey,
		HTTPClient: c.httpClient(),
		Endpoint:   c.BaseURL,
		NoAuth:     c.NoAuth,
	}
}

// Package config provides environment configuration for go-pidog commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for the on-board deployment.
const (
	DefaultPiDogHost     = "127.0.0.1"
	DefaultPiDogPort     = "8000"
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultLanguage      = "en"
	DefaultVolumeDB      = 3.0
	DefaultWebPort       = "9000"
	DefaultLLMProvider   = "gemini"
	DefaultTTSProvider   = "google"
	DefaultCameraDevice  = 0
	DefaultAssistantName = "PiDog"
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 1024
)

// InputMode selects where a turn's text comes from.
type InputMode string

const (
	InputVoice    InputMode = "voice"
	InputKeyboard InputMode = "keyboard"
)

// ErrNoModelKey is returned when the selected language model has no API key.
var ErrNoModelKey = errors.New("config: language model API key required")

// Config holds everything the pidog command needs at runtime.
// Flag parsing is done in cmd/pidog; this struct is data only.
type Config struct {
	Debug     bool
	InputMode InputMode
	WithImage bool
	WebPort   string

	PiDogHost string
	PiDogPort string

	LLMProvider  string // "gemini" or "openai"
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// Sampling settings shared by both language models.
	Temperature float64
	MaxTokens   int

	// GoogleAPIKey is used by speech recognition and Google TTS.
	// Empty means Application Default Credentials.
	GoogleAPIKey string

	TTSProvider string // "google" or "openai"
	Language    string
	VolumeDB    float64

	CameraDevice int

	// SocksProxy routes cloud API calls through a SOCKS5 proxy ("host:port").
	SocksProxy string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		InputMode:    InputVoice,
		WithImage:    true,
		WebPort:      DefaultWebPort,
		PiDogHost:    DefaultPiDogHost,
		PiDogPort:    DefaultPiDogPort,
		LLMProvider:  DefaultLLMProvider,
		GeminiModel:  DefaultGeminiModel,
		OpenAIModel:  DefaultOpenAIModel,
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
		TTSProvider:  DefaultTTSProvider,
		Language:     DefaultLanguage,
		VolumeDB:     DefaultVolumeDB,
		CameraDevice: DefaultCameraDevice,
	}
}

// LoadDotEnv loads key=value pairs from path into the process environment.
// A missing file is not an error; variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto c.
func (c *Config) ApplyEnv() {
	c.PiDogHost = envString("PIDOG_HOST", c.PiDogHost)
	c.PiDogPort = envString("PIDOG_PORT", c.PiDogPort)
	c.LLMProvider = strings.ToLower(envString("LLM_PROVIDER", c.LLMProvider))
	c.GeminiAPIKey = envString("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = envString("GEMINI_MODEL", c.GeminiModel)
	c.OpenAIAPIKey = envString("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = envString("OPENAI_MODEL", c.OpenAIModel)
	c.GoogleAPIKey = envString("GOOGLE_API_KEY", c.GoogleAPIKey)
	c.TTSProvider = strings.ToLower(envString("TTS_PROVIDER", c.TTSProvider))
	c.Language = envString("LANGUAGE", c.Language)
	c.SocksProxy = envString("SOCKS_PROXY", c.SocksProxy)

	if v := os.Getenv("VOLUME_DB"); v != "" {
		if db, err := strconv.ParseFloat(v, 64); err == nil {
			c.VolumeDB = db
		}
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = t
		}
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv("CAMERA_DEVICE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CameraDevice = n
		}
	}
}

// Validate checks that the selected providers are usable.
func (c *Config) Validate() error {
	switch c.InputMode {
	case InputVoice, InputKeyboard:
	default:
		return fmt.Errorf("config: invalid input mode %q", c.InputMode)
	}

	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY", ErrNoModelKey)
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrNoModelKey)
		}
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("config: LLM_TEMPERATURE %v out of range 0..2", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: LLM_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}

	switch c.TTSProvider {
	case "google":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("config: TTS_PROVIDER=openai requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("config: unknown TTS_PROVIDER %q", c.TTSProvider)
	}
	return nil
}

// PiDogURL returns the daemon's HTTP base URL.
func (c *Config) PiDogURL() string {
	return fmt.Sprintf("http://%s:%s", c.PiDogHost, c.PiDogPort)
}

// LanguageCode returns a BCP-47 code for the speech services.
// Two-letter codes are expanded with a default region.
func (c *Config) LanguageCode() string {
	return LanguageCode(c.Language)
}

// LanguageCode expands a short language name ("en") to a BCP-47 tag ("en-US").
func LanguageCode(lang string) string {
	if strings.Contains(lang, "-") {
		return lang
	}
	if region, ok := defaultRegions[strings.ToLower(lang)]; ok {
		return strings.ToLower(lang) + "-" + region
	}
	return lang
}

var defaultRegions = map[string]string{
	"en": "US",
	"es": "ES",
	"fr": "FR",
	"de": "DE",
	"it": "IT",
	"pt": "BR",
	"ru": "RU",
	"ja": "JP",
	"ko": "KR",
	"zh": "CN",
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.InputMode != InputVoice {
		t.Errorf("InputMode: got %q, want voice", cfg.InputMode)
	}
	if !cfg.WithImage {
		t.Error("WithImage should default to true")
	}
	if cfg.VolumeDB != DefaultVolumeDB {
		t.Errorf("VolumeDB: got %v, want %v", cfg.VolumeDB, DefaultVolumeDB)
	}
	if cfg.PiDogURL() != "http://127.0.0.1:8000" {
		t.Errorf("PiDogURL: got %s", cfg.PiDogURL())
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PIDOG_HOST", "10.0.0.7")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("VOLUME_DB", "5")
	t.Setenv("CAMERA_DEVICE", "2")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("SOCKS_PROXY", "127.0.0.1:1080")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_MAX_TOKENS", "256")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.PiDogHost != "10.0.0.7" {
		t.Errorf("PiDogHost: got %s", cfg.PiDogHost)
	}
	if cfg.GeminiAPIKey != "g-key" {
		t.Errorf("GeminiAPIKey: got %s", cfg.GeminiAPIKey)
	}
	if cfg.VolumeDB != 5 {
		t.Errorf("VolumeDB: got %v, want 5", cfg.VolumeDB)
	}
	if cfg.CameraDevice != 2 {
		t.Errorf("CameraDevice: got %d, want 2", cfg.CameraDevice)
	}
	if cfg.SocksProxy != "127.0.0.1:1080" {
		t.Errorf("SocksProxy: got %s", cfg.SocksProxy)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider: got %s, want openai", cfg.LLMProvider)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("Temperature: got %v, want 0.2", cfg.Temperature)
	}
	if cfg.MaxTokens != 256 {
		t.Errorf("MaxTokens: got %d, want 256", cfg.MaxTokens)
	}
}

func TestApplyEnv_IgnoresBadNumbers(t *testing.T) {
	t.Setenv("VOLUME_DB", "loud")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.VolumeDB != DefaultVolumeDB {
		t.Errorf("VolumeDB: got %v, want default", cfg.VolumeDB)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); !errors.Is(err, ErrNoModelKey) {
		t.Errorf("expected ErrNoModelKey, got %v", err)
	}

	cfg.GeminiAPIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.TTSProvider = "openai"
	if err := cfg.Validate(); err == nil {
		t.Error("openai TTS without OPENAI_API_KEY should fail")
	}

	cfg.TTSProvider = "google"
	cfg.Temperature = 3
	if err := cfg.Validate(); err == nil {
		t.Error("temperature above 2 should fail")
	}

	cfg.Temperature = DefaultTemperature
	cfg.MaxTokens = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max tokens should fail")
	}

	cfg.MaxTokens = DefaultMaxTokens
	cfg.InputMode = "telepathy"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid input mode should fail")
	}
}

func TestLanguageCode(t *testing.T) {
	tests := map[string]string{
		"en":    "en-US",
		"ZH":    "zh-CN",
		"en-GB": "en-GB",
		"xx":    "xx",
	}
	for in, want := range tests {
		if got := LanguageCode(in); got != want {
			t.Errorf("LanguageCode(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PIDOG_TEST_DOTENV=woof\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PIDOG_TEST_DOTENV") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("PIDOG_TEST_DOTENV"); got != "woof" {
		t.Errorf("got %q, want woof", got)
	}
}

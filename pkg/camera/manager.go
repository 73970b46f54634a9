package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for applying to camera)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a camera manager starting from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// setConfig validates and stores cfg, then notifies OnConfigChange.
func (m *Manager) setConfig(cfg Config) error {
	// Validate
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	// Notify callback if set
	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	return nil
}

// settings are the keys UpdateConfig accepts besides "preset". They match
// the Config JSON tags.
var settings = map[string]bool{
	"device":     true,
	"width":      true,
	"height":     true,
	"framerate":  true,
	"quality":    true,
	"vflip":      true,
	"hflip":      true,
	"zoom_level": true,
}

// UpdateConfig applies a partial configuration. A "preset" entry replaces
// the whole configuration first; the other entries are applied on top.
// Unknown keys and mistyped values are rejected without changing anything.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	patch := make(map[string]interface{}, len(params))
	for key, value := range params {
		switch {
		case key == "preset":
			name, _ := value.(string)
			preset := GetPreset(name)
			if preset == nil {
				return fmt.Errorf("unknown preset: %v", value)
			}
			cfg = *preset
		case settings[key]:
			patch[key] = value
		default:
			return fmt.Errorf("unknown camera setting: %s", key)
		}
	}

	if len(patch) > 0 {
		data, err := json.Marshal(patch)
		if err != nil {
			return fmt.Errorf("encode camera settings: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("invalid camera setting: %w", err)
		}
	}

	return m.setConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON responses.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	data, _ := json.Marshal(m.GetConfig())
	var result map[string]interface{}
	_ = json.Unmarshal(data, &result)
	return result
}

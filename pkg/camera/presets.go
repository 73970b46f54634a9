package camera

// Preset names for common configurations
const (
	PresetDefault    = "default"
	PresetLow        = "low"
	Preset720p       = "720p"
	Preset1080p      = "1080p"
	PresetUpsideDown = "upside_down"
	PresetZoom2x     = "zoom2x"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:    DefaultConfig(),
		PresetLow:        LowConfig(),
		Preset720p:       HD720Config(),
		Preset1080p:      HD1080Config(),
		PresetUpsideDown: UpsideDownConfig(),
		PresetZoom2x:     Zoom2xConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLow,
		Preset720p,
		Preset1080p,
		PresetUpsideDown,
		PresetZoom2x,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LowConfig trades quality for bandwidth when the dashboard is viewed
// over a slow link.
func LowConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Framerate = 10
	cfg.Quality = 70
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
// Sharper frames for the model, higher CPU usage on the Pi.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	cfg.Framerate = 10
	return cfg
}

// UpsideDownConfig rotates frames 180 degrees.
func UpsideDownConfig() Config {
	cfg := DefaultConfig()
	cfg.VFlip = true
	cfg.HFlip = true
	return cfg
}

// Zoom2xConfig returns 2x digital zoom configuration.
func Zoom2xConfig() Config {
	cfg := DefaultConfig()
	cfg.ZoomLevel = 2.0
	return cfg
}

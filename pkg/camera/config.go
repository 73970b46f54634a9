// Package camera captures frames from the robot's head camera with OpenCV
// and keeps the most recent one ready for the language model and the
// dashboard.
package camera

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// Device is the V4L2 index of the camera.
	Device int `json:"device"`

	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// === Orientation ===
	// The camera on the dog's nose is mounted upside down on some kits.
	VFlip bool `json:"vflip"`
	HFlip bool `json:"hflip"`

	// === Digital Zoom ===
	// ZoomLevel is a centered crop factor (1.0 to 4.0).
	ZoomLevel float64 `json:"zoom_level"`
}

// Sensor limits for the PiDog camera module.
const (
	SensorMaxWidth  = 2592
	SensorMaxHeight = 1944
	SensorMaxZoom   = 4.0
)

// DefaultConfig returns the configuration the robot starts with.
func DefaultConfig() Config {
	return Config{
		Device:    0,
		Width:     640,
		Height:    480,
		Framerate: 15,
		Quality:   85,
		ZoomLevel: 1.0,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 {
		errors = append(errors, "device must not be negative")
	}
	if c.Width < 160 || c.Width > SensorMaxWidth {
		errors = append(errors, "width must be between 160 and 2592")
	}
	if c.Height < 120 || c.Height > SensorMaxHeight {
		errors = append(errors, "height must be between 120 and 1944")
	}
	if c.Framerate < 1 || c.Framerate > 60 {
		errors = append(errors, "framerate must be between 1 and 60")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.ZoomLevel < 1.0 || c.ZoomLevel > SensorMaxZoom {
		errors = append(errors, "zoom_level must be between 1.0 and 4.0")
	}

	return errors
}

// FlipCode returns the OpenCV flip code for the orientation settings, or
// false when no flip is needed.
func (c *Config) FlipCode() (int, bool) {
	switch {
	case c.VFlip && c.HFlip:
		return -1, true
	case c.VFlip:
		return 0, true
	case c.HFlip:
		return 1, true
	default:
		return 0, false
	}
}

// Capabilities returns the camera sensor capabilities.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":  SensorMaxWidth,
		"max_height": SensorMaxHeight,
		"max_zoom":   SensorMaxZoom,
		"presets":    PresetNames(),
	}
}

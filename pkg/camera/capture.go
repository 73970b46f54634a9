package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/teslashibe/go-pidog/internal/log"
	"gocv.io/x/gocv"
)

// ErrNoFrame is returned before the first frame has been captured.
var ErrNoFrame = errors.New("camera: no frame captured yet")

// Device is a frame source. *gocv.VideoCapture satisfies it.
type Device interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Tunable is a device that accepts capture properties. *gocv.VideoCapture
// satisfies it.
type Tunable interface {
	Set(prop gocv.VideoCaptureProperties, param float64)
}

// Frame is one encoded camera frame.
type Frame struct {
	JPEG   []byte
	Width  int
	Height int
	Seq    uint64
	Time   time.Time
}

// Capture reads frames from a device in the background and keeps the most
// recent one.
type Capture struct {
	dev    Device
	logger *slog.Logger

	// devMu serializes every call into dev.
	devMu sync.Mutex

	mu     sync.RWMutex
	cfg    Config
	dirty  bool
	latest Frame
	closed bool
}

// Open opens the camera described by cfg.
func Open(cfg Config) (*Capture, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %v", errs)
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d not available", cfg.Device)
	}
	applyDevice(vc, cfg)

	return New(vc, cfg), nil
}

func applyDevice(vc Tunable, cfg Config) {
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
}

// New wraps an already opened device.
func New(dev Device, cfg Config) *Capture {
	return &Capture{
		dev:    dev,
		cfg:    cfg,
		logger: log.Component("camera"),
	}
}

// Apply switches to a new configuration. Resolution and frame rate changes
// reach a Tunable device before its next read.
func (c *Capture) Apply(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("camera config: %v", errs)
	}
	c.mu.Lock()
	old := c.cfg
	c.cfg = cfg
	if old.Width != cfg.Width || old.Height != cfg.Height || old.Framerate != cfg.Framerate {
		c.dirty = true
	}
	c.mu.Unlock()

	c.logger.Info("camera config applied",
		"width", cfg.Width,
		"height", cfg.Height,
		"fps", cfg.Framerate,
		"zoom", cfg.ZoomLevel,
	)
	return nil
}

// Config returns the active configuration.
func (c *Capture) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Run grabs frames until ctx is cancelled or the device stops delivering.
func (c *Capture) Run(ctx context.Context) error {
	mat := gocv.NewMat()
	defer mat.Close()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		cfg, ok := c.read(&mat)

		if !ok {
			failures++
			if failures >= 50 {
				return errors.New("camera: device stopped delivering frames")
			}
			if !sleep(ctx, 20*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}
		failures = 0

		if err := c.store(mat, cfg); err != nil {
			c.logger.Warn("frame dropped", "error", err)
		}

		interval := time.Second / time.Duration(cfg.Framerate)
		if wait := interval - time.Since(start); wait > 0 {
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
		}
	}
}

// Grab reads and stores a single frame.
func (c *Capture) Grab() error {
	mat := gocv.NewMat()
	defer mat.Close()

	cfg, ok := c.read(&mat)
	if !ok {
		return errors.New("camera: read failed")
	}
	return c.store(mat, cfg)
}

// read pushes pending device settings, then reads one frame. It returns
// the configuration the frame was read under.
func (c *Capture) read(mat *gocv.Mat) (Config, bool) {
	c.devMu.Lock()
	defer c.devMu.Unlock()

	c.mu.Lock()
	cfg, dirty := c.cfg, c.dirty
	c.dirty = false
	c.mu.Unlock()

	if dirty {
		if t, ok := c.dev.(Tunable); ok {
			applyDevice(t, cfg)
			c.logger.Debug("camera device updated", "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
		}
	}
	return cfg, c.dev.Read(mat) && !mat.Empty()
}

func (c *Capture) store(mat gocv.Mat, cfg Config) error {
	buf, w, h, err := encode(mat, cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.latest = Frame{
		JPEG:   buf,
		Width:  w,
		Height: h,
		Seq:    c.latest.Seq + 1,
		Time:   time.Now(),
	}
	c.mu.Unlock()
	return nil
}

// encode applies zoom and flips, then JPEG-encodes the frame.
func encode(src gocv.Mat, cfg Config) ([]byte, int, int, error) {
	img := src
	if cfg.ZoomLevel > 1.0 {
		w := int(float64(src.Cols()) / cfg.ZoomLevel)
		h := int(float64(src.Rows()) / cfg.ZoomLevel)
		x := (src.Cols() - w) / 2
		y := (src.Rows() - h) / 2
		region := src.Region(image.Rect(x, y, x+w, y+h))
		defer region.Close()
		img = region
	}

	if code, ok := cfg.FlipCode(); ok {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(img, &flipped, code)
		img = flipped
	}

	nb, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), cfg.Quality})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	defer nb.Close()

	return append([]byte(nil), nb.GetBytes()...), img.Cols(), img.Rows(), nil
}

// Latest returns the most recent frame.
func (c *Capture) Latest() (Frame, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.latest.Seq > 0
}

// JPEG returns the most recent frame's JPEG bytes.
func (c *Capture) JPEG() ([]byte, error) {
	f, ok := c.Latest()
	if !ok {
		return nil, ErrNoFrame
	}
	return f.JPEG, nil
}

// SaveJPEG writes the most recent frame to path.
func (c *Capture) SaveJPEG(path string) error {
	data, err := c.JPEG()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.devMu.Lock()
	defer c.devMu.Unlock()
	c.logger.Debug("camera closed")
	return c.dev.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

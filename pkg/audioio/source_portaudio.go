package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures audio with PortAudio. This is the production
// backend on the robot and on development machines.
type PortAudioSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}
	done     chan struct{}

	// Stats
	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

func newPortAudioSource(cfg Config, logger *slog.Logger) *PortAudioSource {
	return &PortAudioSource{
		cfg:      cfg,
		logger:   logger,
		streamCh: make(chan AudioChunk, 10),
		stopCh:   make(chan struct{}),
	}
}

// Start opens the input device and begins capture.
func (s *PortAudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	buf := make([]int16, s.cfg.BufferSize()*s.cfg.Channels)
	stream, err := s.open(buf)
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("portaudio start: %w", err)
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.streamCh = make(chan AudioChunk, 10)

	go s.captureLoop(ctx, stream, buf)

	s.logger.Info("portaudio source started",
		"device", s.cfg.Device,
		"sample_rate", s.cfg.SampleRate,
		"chunk_frames", s.cfg.ChunkFrames,
	)
	return nil
}

func (s *PortAudioSource) open(buf []int16) (*portaudio.Stream, error) {
	if s.cfg.Device == "" {
		stream, err := portaudio.OpenDefaultStream(s.cfg.Channels, 0, float64(s.cfg.SampleRate), s.cfg.ChunkFrames, buf)
		if err != nil {
			return nil, fmt.Errorf("portaudio open default input: %w", err)
		}
		return stream, nil
	}

	dev, err := findInputDevice(s.cfg.Device)
	if err != nil {
		return nil, err
	}
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = s.cfg.Channels
	params.SampleRate = float64(s.cfg.SampleRate)
	params.FramesPerBuffer = s.cfg.ChunkFrames

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("portaudio open %q: %w", dev.Name, err)
	}
	return stream, nil
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio devices: %w", err)
	}
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(name)) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", name)
}

func (s *PortAudioSource) captureLoop(ctx context.Context, stream *portaudio.Stream, buf []int16) {
	defer close(s.done)
	defer func() {
		_ = stream.Stop()
		_ = stream.Close()
		_ = portaudio.Terminate()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				s.overruns.Add(1)
				continue
			}
			s.logger.Error("portaudio read failed", "error", err)
			return
		}

		chunk := AudioChunk{
			Samples:    append([]int16(nil), buf...),
			SampleRate: s.cfg.SampleRate,
			Channels:   s.cfg.Channels,
		}
		select {
		case s.streamCh <- chunk:
			s.chunksRead.Add(1)
			s.samplesRead.Add(int64(len(chunk.Samples)))
		default:
			s.overruns.Add(1)
		}
	}
}

// Stop halts capture and releases the device. It waits for the chunk in
// flight to finish.
func (s *PortAudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	close(s.stopCh)
	<-s.done
	close(s.streamCh)

	s.logger.Info("portaudio source stopped")
	return nil
}

// Read reads the next audio chunk.
func (s *PortAudioSource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	ch := s.streamCh
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-ch:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stream returns the audio chunk channel.
func (s *PortAudioSource) Stream() <-chan AudioChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Config returns the audio configuration.
func (s *PortAudioSource) Config() Config {
	return s.cfg
}

// Name returns "portaudio".
func (s *PortAudioSource) Name() string {
	return string(BackendPortAudio)
}

// Close stops capture. The source cannot be restarted.
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns source statistics.
func (s *PortAudioSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Overruns:    s.overruns.Load(),
		Running:     running,
		Backend:     string(BackendPortAudio),
	}
}

var _ SourceWithStats = (*PortAudioSource)(nil)

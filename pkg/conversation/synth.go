package conversation

import (
	"context"
	"path/filepath"
	"time"

	"github.com/teslashibe/go-pidog/pkg/audio"
	"github.com/teslashibe/go-pidog/pkg/tts"
)

// FileSynthesizer writes the TTS output to a timestamped file, then
// converts it to WAV with a volume gain for the speaker.
type FileSynthesizer struct {
	provider tts.Provider
	dir      string
	gainDB   float64
	now      func() time.Time
}

// NewFileSynthesizer stores files under dir.
func NewFileSynthesizer(p tts.Provider, dir string, gainDB float64) *FileSynthesizer {
	if dir == "" {
		dir = DefaultSpeechDir
	}
	return &FileSynthesizer{
		provider: p,
		dir:      dir,
		gainDB:   gainDB,
		now:      time.Now,
	}
}

// Synthesize implements Synthesizer. It returns the converted file.
func (s *FileSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	raw := filepath.Join(s.dir, tts.RawFileName(s.now()))
	if err := tts.SynthesizeToFile(ctx, s.provider, text, raw); err != nil {
		return "", &SynthesisError{Stage: "tts", Err: err}
	}

	out := audio.GainPath(raw, s.gainDB)
	if err := audio.ConvertWithGain(raw, out, s.gainDB); err != nil {
		return "", &SynthesisError{Stage: "convert", Err: err}
	}
	return out, nil
}

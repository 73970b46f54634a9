package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// ErrUnsupportedFormat is returned for files that are neither mp3 nor wav.
var ErrUnsupportedFormat = errors.New("audio: unsupported file format")

// Open decodes an mp3 or wav file, chosen by extension.
func Open(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("audio: %w", err)
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	case ".wav":
		stream, format, err = wav.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	return stream, format, nil
}

// ConvertWithGain decodes src, applies gainDB decibels of gain, and writes
// the result to dst as 16-bit wav. Samples that would clip are clamped.
func ConvertWithGain(src, dst string, gainDB float64) error {
	stream, format, err := Open(src)
	if err != nil {
		return err
	}
	defer stream.Close()

	louder := &effects.Volume{
		Streamer: stream,
		Base:     10,
		Volume:   gainDB / 20,
	}
	format.Precision = 2

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("audio: create %s: %w", dst, err)
	}
	if err := wav.Encode(out, louder, format); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("audio: encode %s: %w", dst, err)
	}
	return out.Close()
}

// GainPath derives the converted file name from a raw synthesized file:
// "x_raw.mp3" with 3 dB becomes "x_3dB.wav".
func GainPath(raw string, gainDB float64) string {
	base := strings.TrimSuffix(raw, filepath.Ext(raw))
	base = strings.TrimSuffix(base, "_raw")
	return base + "_" + strconv.FormatFloat(gainDB, 'f', -1, 64) + "dB.wav"
}

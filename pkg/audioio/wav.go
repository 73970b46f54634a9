package audioio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Utterance is one captured phrase.
type Utterance struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns the length of the utterance.
func (u *Utterance) Duration() time.Duration {
	if u.SampleRate == 0 || u.Channels == 0 {
		return 0
	}
	return time.Duration(len(u.Samples)) * time.Second / time.Duration(u.SampleRate*u.Channels)
}

// WAV encodes the utterance as a 16-bit PCM WAV file.
func (u *Utterance) WAV() ([]byte, error) {
	if len(u.Samples) == 0 {
		return nil, errors.New("audioio: empty utterance")
	}

	data := make([]int, len(u.Samples))
	for i, s := range u.Samples {
		data[i] = int(s)
	}

	ws := &memFile{}
	enc := wav.NewEncoder(ws, u.SampleRate, 16, u.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: u.Channels, SampleRate: u.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("audioio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audioio: finish wav: %w", err)
	}
	return ws.buf, nil
}

// memFile is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch the header sizes.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("audioio: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("audioio: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}

package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// SynthesizeToFile synthesizes text with p and writes the audio to path,
// creating parent directories as needed. A partially written file is
// removed on error.
func SynthesizeToFile(ctx context.Context, p Provider, text, path string) error {
	result, err := p.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if len(result.Audio) == 0 {
		return ErrEmptyAudio
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("tts: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, result.Audio, 0o644); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("tts: write %s: %w", path, err)
	}
	return nil
}

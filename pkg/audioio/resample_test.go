package audioio

import (
	"testing"
)

func TestResample_SameRate(t *testing.T) {
	samples := []int16{100, 200, 300, 400, 500}
	result := Resample(samples, 24000, 24000)

	if len(result) != len(samples) {
		t.Errorf("Expected %d samples, got %d", len(samples), len(result))
	}

	for i, s := range samples {
		if result[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, result[i])
		}
	}
}

func TestResample_Downsample(t *testing.T) {
	// 48kHz -> 24kHz (2:1 ratio)
	samples := make([]int16, 960) // 20ms at 48kHz
	for i := range samples {
		samples[i] = int16(i)
	}

	result := Resample(samples, 48000, 24000)

	// Should get approximately half the samples
	expectedLen := 480
	if len(result) != expectedLen {
		t.Errorf("Expected %d samples, got %d", expectedLen, len(result))
	}
}

func TestResample_Upsample(t *testing.T) {
	// 16kHz -> 24kHz (2:3 ratio)
	samples := make([]int16, 320) // 20ms at 16kHz
	for i := range samples {
		samples[i] = int16(i * 100)
	}

	result := Resample(samples, 16000, 24000)

	// Should get 1.5x samples
	expectedLen := 480
	if len(result) != expectedLen {
		t.Errorf("Expected %d samples, got %d", expectedLen, len(result))
	}
}

func TestResample_Empty(t *testing.T) {
	result := Resample(nil, 24000, 48000)
	if len(result) != 0 {
		t.Errorf("Expected empty result for nil input")
	}

	result = Resample([]int16{}, 24000, 48000)
	if len(result) != 0 {
		t.Errorf("Expected empty result for empty input")
	}
}

func TestBytesToSamples(t *testing.T) {
	data := []byte{0x02, 0x01, 0x04, 0x03}
	samples := BytesToSamples(data)

	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}

	if samples[0] != 0x0102 {
		t.Errorf("Sample 0: expected 0x0102, got 0x%04x", samples[0])
	}

	if samples[1] != 0x0304 {
		t.Errorf("Sample 1: expected 0x0304, got 0x%04x", samples[1])
	}
}

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0x0102, 0x0304}
	data := SamplesToBytes(samples)

	if len(data) != 4 {
		t.Fatalf("Expected 4 bytes, got %d", len(data))
	}

	expected := []byte{0x02, 0x01, 0x04, 0x03}
	for i, b := range expected {
		if data[i] != b {
			t.Errorf("Byte %d: expected 0x%02x, got 0x%02x", i, b, data[i])
		}
	}
}

func TestStereoToMono(t *testing.T) {
	stereo := []int16{100, 200, 300, 400}
	mono := StereoToMono(stereo)

	if len(mono) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(mono))
	}

	// (100+200)/2 = 150, (300+400)/2 = 350
	expected := []int16{150, 350}
	for i, s := range expected {
		if mono[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, mono[i])
		}
	}
}

func TestCalculateRMS(t *testing.T) {
	// Silence
	rms := CalculateRMS([]int16{0, 0, 0})
	if rms != 0 {
		t.Errorf("Expected RMS 0 for silence, got %f", rms)
	}

	// Full scale
	samples := []int16{32767, 32767, 32767}
	rms = CalculateRMS(samples)
	if rms < 0.99 || rms > 1.01 {
		t.Errorf("Expected RMS ~1.0 for full scale, got %f", rms)
	}

	// Empty
	rms = CalculateRMS(nil)
	if rms != 0 {
		t.Errorf("Expected RMS 0 for empty, got %f", rms)
	}
}

func BenchmarkResample_2x(b *testing.B) {
	samples := make([]int16, 960)
	for i := range samples {
		samples[i] = int16(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Resample(samples, 48000, 24000)
	}
}

func BenchmarkBytesToSamples(b *testing.B) {
	data := make([]byte, 960)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = BytesToSamples(data)
	}
}

func BenchmarkSamplesToBytes(b *testing.B) {
	samples := make([]int16, 480)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = SamplesToBytes(samples)
	}
}

func TestEnergy(t *testing.T) {
	if e := Energy([]int16{300, -300, 300, -300}); e != 300 {
		t.Errorf("Expected energy 300, got %f", e)
	}
	if e := Energy(nil); e != 0 {
		t.Errorf("Expected energy 0 for empty, got %f", e)
	}
}

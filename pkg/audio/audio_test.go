package audio_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/intervox-ai/intervox/pkg/audio"
)

func TestBase64RoundTrip(t *testing.T) {
	original := make([]byte, 4801)
	for i := range original {
		original[i] = byte(i % 251)
	}

	encoded := audio.EncodeBase64(original)
	decoded, err := audio.DecodeBase64(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != len(original) {
		t.Errorf("expected %d bytes, got %d", len(original), len(decoded))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Fatalf("byte %d differs", i)
		}
	}
}

func TestDecodeBase64Errors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := audio.DecodeBase64("")
		if !errors.Is(err, audio.ErrEmptyAudio) {
			t.Errorf("expected ErrEmptyAudio, got %v", err)
		}
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := audio.DecodeBase64("!!! not base64 !!!")
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestEncodePCM16WAV(t *testing.T) {
	pcm := make([]byte, 3200) // 100ms at 16kHz mono PCM16
	data := audio.EncodePCM16WAV(pcm, 16000, 1)

	if string(data[:4]) != "RIFF" {
		t.Errorf("expected RIFF magic, got %q", data[:4])
	}
	if string(data[8:12]) != "WAVE" {
		t.Errorf("expected WAVE, got %q", data[8:12])
	}
	if len(data) != 44+len(pcm) {
		t.Errorf("expected %d bytes, got %d", 44+len(pcm), len(data))
	}
}

func TestPCM16Conversion(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	pcm := audio.Float32ToPCM16(samples)
	back := audio.PCM16ToFloat32(pcm)

	if len(back) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(back))
	}
	for i := range samples {
		if math.Abs(float64(back[i]-samples[i])) > 0.001 {
			t.Errorf("sample %d: expected %f, got %f", i, samples[i], back[i])
		}
	}
}

func TestRMS(t *testing.T) {
	t.Run("silence is zero", func(t *testing.T) {
		if got := audio.RMS(make([]float32, 320)); got != 0 {
			t.Errorf("expected 0, got %f", got)
		}
	})

	t.Run("empty frame is zero", func(t *testing.T) {
		if got := audio.RMS(nil); got != 0 {
			t.Errorf("expected 0, got %f", got)
		}
	})

	t.Run("constant amplitude", func(t *testing.T) {
		frame := make([]float32, 100)
		for i := range frame {
			frame[i] = 0.5
		}
		if got := audio.RMS(frame); math.Abs(got-0.5) > 1e-6 {
			t.Errorf("expected 0.5, got %f", got)
		}
	})
}

func sineWAV(freq float64, dur time.Duration, amplitude float64) []byte {
	const sampleRate = 16000
	n := int(float64(sampleRate) * dur.Seconds())
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	return audio.EncodePCM16WAV(audio.Float32ToPCM16(samples), sampleRate, 1)
}

func TestBasicChecker(t *testing.T) {
	c := audio.BasicChecker{MinBytes: 100}

	t.Run("rejects empty", func(t *testing.T) {
		if err := c.Check(nil, "webm"); !errors.Is(err, audio.ErrEmptyAudio) {
			t.Errorf("expected ErrEmptyAudio, got %v", err)
		}
	})

	t.Run("rejects short", func(t *testing.T) {
		if err := c.Check(make([]byte, 50), "webm"); !errors.Is(err, audio.ErrTooShort) {
			t.Errorf("expected ErrTooShort, got %v", err)
		}
	})

	t.Run("accepts long enough", func(t *testing.T) {
		if err := c.Check(make([]byte, 200), "webm"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestWAVChecker(t *testing.T) {
	c := audio.WAVChecker{}

	t.Run("accepts a valid tone", func(t *testing.T) {
		data := sineWAV(440, 500*time.Millisecond, 0.5)
		if err := c.Check(data, "wav"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		if err := c.Check([]byte("definitely not a wav file"), "wav"); !errors.Is(err, audio.ErrInvalidWAV) {
			t.Errorf("expected ErrInvalidWAV, got %v", err)
		}
	})

	t.Run("rejects too short", func(t *testing.T) {
		data := sineWAV(440, 20*time.Millisecond, 0.5)
		if err := c.Check(data, "wav"); !errors.Is(err, audio.ErrTooShort) {
			t.Errorf("expected ErrTooShort, got %v", err)
		}
	})

	t.Run("rejects silence", func(t *testing.T) {
		data := sineWAV(440, 500*time.Millisecond, 0)
		if err := c.Check(data, "wav"); !errors.Is(err, audio.ErrSilent) {
			t.Errorf("expected ErrSilent, got %v", err)
		}
	})

	t.Run("non-wav formats use fallback", func(t *testing.T) {
		if err := c.Check(make([]byte, audio.DefaultMinBytes+1), "webm"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestNewChecker(t *testing.T) {
	if _, ok := audio.NewChecker("enhanced").(audio.WAVChecker); !ok {
		t.Error("expected WAVChecker for enhanced mode")
	}
	if _, ok := audio.NewChecker("basic").(audio.BasicChecker); !ok {
		t.Error("expected BasicChecker for basic mode")
	}
	if _, ok := audio.NewChecker("").(audio.BasicChecker); !ok {
		t.Error("expected BasicChecker for unknown mode")
	}
}

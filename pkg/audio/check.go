package audio

import (
	"bytes"
	"fmt"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Checker validates a recorded clip before it is sent to transcription.
// Implementations must be cheap: they run on every pipeline request.
type Checker interface {
	// Check returns nil if the clip looks usable, or a descriptive error.
	// format is the client-declared container ("wav", "mp3", "webm").
	Check(data []byte, format string) error
}

// BasicChecker applies a byte-length threshold only.
type BasicChecker struct {
	// MinBytes is the minimum payload size. Zero uses DefaultMinBytes.
	MinBytes int
}

// DefaultMinBytes rejects clips shorter than ~30ms of 16kHz PCM16.
const DefaultMinBytes = 1000

// Check implements Checker.
func (c BasicChecker) Check(data []byte, _ string) error {
	min := c.MinBytes
	if min == 0 {
		min = DefaultMinBytes
	}
	if len(data) == 0 {
		return ErrEmptyAudio
	}
	if len(data) < min {
		return fmt.Errorf("%w: %d bytes, need %d", ErrTooShort, len(data), min)
	}
	return nil
}

// WAVChecker decodes WAV clips and validates duration and level.
// Non-WAV formats fall back to the byte threshold since their containers
// cannot be parsed here.
type WAVChecker struct {
	// MinDuration rejects clips shorter than this. Zero means 100ms.
	MinDuration time.Duration

	// MinRMS rejects clips quieter than this normalized level. Zero means 0.001.
	MinRMS float64

	// Fallback handles non-WAV formats.
	Fallback BasicChecker
}

// Check implements Checker.
func (c WAVChecker) Check(data []byte, format string) error {
	if format != "wav" {
		return c.Fallback.Check(data, format)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return ErrInvalidWAV
	}

	dur, err := dec.Duration()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	minDur := c.MinDuration
	if minDur == 0 {
		minDur = 100 * time.Millisecond
	}
	if dur < minDur {
		return fmt.Errorf("%w: %v, need %v", ErrTooShort, dur.Round(time.Millisecond), minDur)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil || buf == nil || len(buf.Data) == 0 {
		return ErrInvalidWAV
	}

	minRMS := c.MinRMS
	if minRMS == 0 {
		minRMS = 0.001
	}
	if meanSquare(buf, int(dec.BitDepth)) < minRMS*minRMS {
		return ErrSilent
	}

	return nil
}

// meanSquare returns the mean squared amplitude of a decoded buffer,
// normalized to [-1, 1] by the sample bit depth.
func meanSquare(buf *gaudio.IntBuffer, bitDepth int) float64 {
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))
	var sum float64
	for _, v := range buf.Data {
		x := float64(v) / scale
		sum += x * x
	}
	return sum / float64(len(buf.Data))
}

// NewChecker selects a checker variant by name ("basic" or "enhanced").
// Selection happens once at startup; unknown names get the basic checker.
func NewChecker(mode string) Checker {
	if mode == "enhanced" {
		return WAVChecker{}
	}
	return BasicChecker{}
}

// Package settings stores the audio and application settings blobs.
package settings

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalid = errors.New("invalid settings")

// Quality is the recording quality preset.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Valid reports whether q is one of the presets.
func (q Quality) Valid() bool {
	return q == QualityLow || q == QualityMedium || q == QualityHigh
}

// BitRate returns the encoder bit rate for q.
func (q Quality) BitRate() int {
	switch q {
	case QualityLow:
		return 32000
	case QualityHigh:
		return 128000
	default:
		return 64000
	}
}

// EncoderQuality maps q onto a 0..1 encoder quality factor.
func (q Quality) EncoderQuality() float64 {
	switch q {
	case QualityLow:
		return 0.25
	case QualityHigh:
		return 1.0
	default:
		return 0.5
	}
}

var (
	SampleRates = []int{22050, 44100, 48000}
	BitRates    = []int{32000, 64000, 128000}
	Channels    = []int{1, 2}
)

// Audio controls how the recorder encodes.
type Audio struct {
	Quality    Quality `json:"quality"`
	SampleRate int     `json:"sampleRate"`
	BitRate    int     `json:"bitRate"`
	Channels   int     `json:"channels"`
}

// DefaultAudio returns medium quality, 44.1 kHz, 64 kbit/s, mono.
func DefaultAudio() Audio {
	return Audio{
		Quality:    QualityMedium,
		SampleRate: 44100,
		BitRate:    64000,
		Channels:   1,
	}
}

// Validate checks every field against its allowed values.
func (a Audio) Validate() error {
	if !a.Quality.Valid() {
		return fmt.Errorf("%w: quality %q", ErrInvalid, a.Quality)
	}
	if !slices.Contains(SampleRates, a.SampleRate) {
		return fmt.Errorf("%w: sample rate %d (want one of %v)", ErrInvalid, a.SampleRate, SampleRates)
	}
	if !slices.Contains(BitRates, a.BitRate) {
		return fmt.Errorf("%w: bit rate %d (want one of %v)", ErrInvalid, a.BitRate, BitRates)
	}
	if !slices.Contains(Channels, a.Channels) {
		return fmt.Errorf("%w: channels %d (want 1 or 2)", ErrInvalid, a.Channels)
	}
	return nil
}

// WithQuality sets q and the matching bit rate.
func (a Audio) WithQuality(q Quality) Audio {
	a.Quality = q
	a.BitRate = q.BitRate()
	return a
}

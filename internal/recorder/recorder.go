// Package recorder abstracts the microphone behind a small capability
// interface with a native (ffmpeg) and an in-memory stream implementation.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/skydreamer0/VOICEAPP/internal/settings"
)

// Backend names accepted by New.
const (
	BackendFFmpeg = "ffmpeg"
	BackendStream = "stream"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrUnavailable      = errors.New("recorder unavailable")
	ErrNotStarted       = errors.New("recorder not started")
	ErrAlreadyStarted   = errors.New("recorder already started")
)

// Options configure one recording.
type Options struct {
	Audio settings.Audio
	// TempDir receives intermediate files. Empty means os.TempDir().
	TempDir string
}

// Result is the finished recording. Exactly one of Path and DataURI is set.
type Result struct {
	Path     string
	DataURI  string
	MimeType string
	Size     int64
	// TempDir holds capture scratch files. Remove it with Cleanup once
	// Path has been archived.
	TempDir string
}

// IsDataURI reports whether the audio is embedded rather than on disk.
func (r Result) IsDataURI() bool { return r.DataURI != "" }

// Cleanup removes the capture scratch directory, if any.
func (r Result) Cleanup() error {
	if r.TempDir == "" {
		return nil
	}
	if err := os.RemoveAll(r.TempDir); err != nil {
		return fmt.Errorf("remove capture dir: %w", err)
	}
	return nil
}

// Recorder captures audio from one source.
type Recorder interface {
	// Permission checks that recording is possible. It must be called
	// before Start and fails closed.
	Permission(ctx context.Context) error
	Start(ctx context.Context, opts Options) error
	Pause() error
	Resume() error
	// Stop finalizes the recording and releases the device.
	Stop(ctx context.Context) (Result, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend     string
	FFmpegPath  string
	InputFormat string
	InputDevice string
	StreamMime  string
	Source      SourceFunc // stream backend only
}

// New builds the backend named by cfg.Backend.
func New(cfg Config) (Recorder, error) {
	switch cfg.Backend {
	case "", BackendFFmpeg:
		return NewFFmpeg(FFmpegConfig{
			Binary:      cfg.FFmpegPath,
			InputFormat: cfg.InputFormat,
			InputDevice: cfg.InputDevice,
		}), nil
	case BackendStream:
		return NewStream(cfg.Source, cfg.StreamMime), nil
	default:
		return nil, fmt.Errorf("unknown recorder backend %q", cfg.Backend)
	}
}

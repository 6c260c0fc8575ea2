package recorder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/skydreamer0/VOICEAPP/internal/recording"
)

// SourceFunc opens the audio byte stream for one recording.
type SourceFunc func() (io.ReadCloser, error)

// Stream buffers raw audio bytes from a reader in memory and hands the
// result back as a base64 data URI. Bytes read while paused are dropped.
type Stream struct {
	source SourceFunc
	mime   string

	mu  sync.Mutex
	cur *capture
}

type capture struct {
	src    io.ReadCloser
	buf    bytes.Buffer
	seen   int64
	paused bool
	closed bool
	err    error
}

// NewStream returns a Stream reading from source. An empty mime defaults
// to audio/webm.
func NewStream(source SourceFunc, mime string) *Stream {
	if mime == "" {
		mime = recording.MimeWebM
	}
	return &Stream{source: source, mime: mime}
}

// Permission fails when no source is attached.
func (s *Stream) Permission(context.Context) error {
	if s.source == nil {
		return ErrPermissionDenied
	}
	return nil
}

func (s *Stream) Start(ctx context.Context, opts Options) error {
	if s.source == nil {
		return ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		return ErrAlreadyStarted
	}

	src, err := s.source()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	c := &capture{src: src}
	s.cur = c
	go s.pump(c)
	return nil
}

func (s *Stream) pump(c *capture) {
	chunk := make([]byte, 32*1024)
	for {
		n, err := c.src.Read(chunk)
		s.mu.Lock()
		if c.closed {
			s.mu.Unlock()
			return
		}
		c.seen += int64(n)
		if n > 0 && !c.paused {
			c.buf.Write(chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.err = err
			}
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

func (s *Stream) Pause() error {
	return s.setPaused(true)
}

func (s *Stream) Resume() error {
	return s.setPaused(false)
}

func (s *Stream) setPaused(paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ErrNotStarted
	}
	s.cur.paused = paused
	return nil
}

// Stop closes the source and returns everything buffered so far.
func (s *Stream) Stop(ctx context.Context) (Result, error) {
	s.mu.Lock()
	c := s.cur
	if c == nil {
		s.mu.Unlock()
		return Result{}, ErrNotStarted
	}
	s.cur = nil
	c.closed = true
	data := bytes.Clone(c.buf.Bytes())
	readErr := c.err
	s.mu.Unlock()

	c.src.Close()

	if len(data) == 0 {
		if readErr != nil {
			return Result{}, fmt.Errorf("read audio: %w", readErr)
		}
		return Result{}, fmt.Errorf("%w: no audio captured", ErrUnavailable)
	}
	return Result{
		DataURI:  "data:" + s.mime + ";base64," + base64.StdEncoding.EncodeToString(data),
		MimeType: s.mime,
		Size:     int64(len(data)),
	}, nil
}

// progress reports buffered and total bytes read for the active capture.
func (s *Stream) progress() (buffered int, seen int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return 0, 0
	}
	return s.cur.buf.Len(), s.cur.seen
}

package recorder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/skydreamer0/VOICEAPP/internal/logging"
	"github.com/skydreamer0/VOICEAPP/internal/recording"
)

const segmentStopTimeout = 5 * time.Second

// FFmpegConfig locates ffmpeg and the capture device.
type FFmpegConfig struct {
	Binary      string // default "ffmpeg"
	InputFormat string // default per OS: avfoundation, dshow, pulse
	InputDevice string // default per OS
}

// DefaultInput returns the capture format and device for the running OS.
func DefaultInput() (format, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":default"
	case "windows":
		return "dshow", "audio=Microphone"
	default:
		return "pulse", "default"
	}
}

// FFmpeg records with an ffmpeg child process. Each recording span between
// Start/Resume and Pause/Stop is its own segment file; Stop concatenates
// them.
type FFmpeg struct {
	cfg FFmpegConfig
	log zerolog.Logger

	mu       sync.Mutex
	opts     Options
	dir      string
	segments []string
	cur      *segment
	started  bool
}

type segment struct {
	path  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan error
}

// NewFFmpeg returns an idle ffmpeg recorder.
func NewFFmpeg(cfg FFmpegConfig) *FFmpeg {
	format, device := DefaultInput()
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = format
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = device
	}
	return &FFmpeg{cfg: cfg, log: logging.WithComponent("recorder")}
}

// Permission fails when ffmpeg cannot be found.
func (f *FFmpeg) Permission(context.Context) error {
	if _, err := exec.LookPath(f.cfg.Binary); err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnavailable, f.cfg.Binary)
	}
	return nil
}

// CaptureArgs returns the ffmpeg arguments recording one segment to out.
func (f *FFmpeg) CaptureArgs(opts Options, out string) []string {
	a := opts.Audio
	return []string{
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-f", f.cfg.InputFormat,
		"-i", f.cfg.InputDevice,
		"-ac", strconv.Itoa(a.Channels),
		"-ar", strconv.Itoa(a.SampleRate),
		"-c:a", "aac",
		"-b:a", strconv.Itoa(a.BitRate),
		"-y",
		out,
	}
}

func (f *FFmpeg) Start(ctx context.Context, opts Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		return ErrAlreadyStarted
	}
	dir, err := os.MkdirTemp(opts.TempDir, "capture-")
	if err != nil {
		return fmt.Errorf("create capture dir: %w", err)
	}
	f.opts = opts
	f.dir = dir
	f.segments = nil

	if err := f.startSegment(); err != nil {
		os.RemoveAll(dir)
		return err
	}
	f.started = true
	return nil
}

func (f *FFmpeg) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return ErrNotStarted
	}
	if f.cur == nil {
		return nil
	}
	return f.stopSegment()
}

func (f *FFmpeg) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return ErrNotStarted
	}
	if f.cur != nil {
		return nil
	}
	return f.startSegment()
}

func (f *FFmpeg) Stop(ctx context.Context) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return Result{}, ErrNotStarted
	}
	f.started = false

	var stopErr error
	if f.cur != nil {
		stopErr = f.stopSegment()
	}
	if len(f.segments) == 0 {
		os.RemoveAll(f.dir)
		if stopErr != nil {
			return Result{}, stopErr
		}
		return Result{}, fmt.Errorf("%w: no audio captured", ErrUnavailable)
	}

	out := filepath.Join(f.dir, "recording.m4a")
	if len(f.segments) == 1 {
		if err := os.Rename(f.segments[0], out); err != nil {
			return Result{}, fmt.Errorf("finalize recording: %w", err)
		}
	} else if err := f.concat(ctx, out); err != nil {
		return Result{}, err
	}

	st, err := os.Stat(out)
	if err != nil {
		return Result{}, fmt.Errorf("stat recording: %w", err)
	}
	f.log.Info().Str("path", out).Int("segments", len(f.segments)).Int64("bytes", st.Size()).Msg("recording finalized")
	return Result{Path: out, MimeType: recording.MimeM4A, Size: st.Size(), TempDir: f.dir}, nil
}

// startSegment launches ffmpeg for the next segment. Callers hold f.mu.
func (f *FFmpeg) startSegment() error {
	path := filepath.Join(f.dir, fmt.Sprintf("segment-%03d.m4a", len(f.segments)))
	cmd := exec.Command(f.cfg.Binary, f.CaptureArgs(f.opts, path)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if logFile, err := os.OpenFile(filepath.Join(f.dir, "ffmpeg.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		cmd.Stderr = logFile
		defer logFile.Close()
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", ErrUnavailable, err)
	}

	seg := &segment{path: path, cmd: cmd, stdin: stdin, done: make(chan error, 1)}
	go func() { seg.done <- cmd.Wait() }()
	f.cur = seg
	f.log.Debug().Str("path", path).Msg("segment started")
	return nil
}

// stopSegment asks ffmpeg to finish by writing "q" to its stdin and waits
// for it to exit. Callers hold f.mu.
func (f *FFmpeg) stopSegment() error {
	seg := f.cur
	f.cur = nil

	_, _ = io.WriteString(seg.stdin, "q\n")
	seg.stdin.Close()

	var waitErr error
	select {
	case waitErr = <-seg.done:
	case <-time.After(segmentStopTimeout):
		seg.cmd.Process.Kill()
		waitErr = <-seg.done
	}

	st, err := os.Stat(seg.path)
	if err != nil || st.Size() == 0 {
		if waitErr != nil {
			return fmt.Errorf("ffmpeg exited: %w (see %s)", waitErr, filepath.Join(f.dir, "ffmpeg.log"))
		}
		return fmt.Errorf("%w: empty segment", ErrUnavailable)
	}
	if waitErr != nil {
		f.log.Warn().Err(waitErr).Str("path", seg.path).Msg("ffmpeg exited with error, keeping segment")
	}
	f.segments = append(f.segments, seg.path)
	return nil
}

func (f *FFmpeg) concat(ctx context.Context, out string) error {
	list := filepath.Join(f.dir, "segments.txt")
	if err := os.WriteFile(list, []byte(ConcatList(f.segments)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	cmd := exec.CommandContext(ctx, f.cfg.Binary,
		"-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", list,
		"-c", "copy",
		"-y", out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("merging segments: %w\n%s", err, string(output))
	}
	return nil
}

// ConcatList renders the ffmpeg concat demuxer list for paths.
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	return b.String()
}

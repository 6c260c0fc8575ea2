package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/skydreamer0/VOICEAPP/internal/settings"
)

func TestCaptureArgs(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{InputFormat: "pulse", InputDevice: "default"})
	audio := settings.DefaultAudio().WithQuality(settings.QualityHigh)
	audio.Channels = 2

	got := strings.Join(f.CaptureArgs(Options{Audio: audio}, "/tmp/seg.m4a"), " ")
	for _, want := range []string{
		"-f pulse -i default",
		"-ac 2",
		"-ar 44100",
		"-b:a 128000",
		"-c:a aac",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("args %q missing %q", got, want)
		}
	}
	if !strings.HasSuffix(got, "-y /tmp/seg.m4a") {
		t.Errorf("args %q should end with the output path", got)
	}
}

func TestConcatList(t *testing.T) {
	got := ConcatList([]string{"/a/one.m4a", "/b/it's.m4a"})
	want := "file '/a/one.m4a'\nfile '/b/it'\\''s.m4a'\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFFmpegPermissionMissingBinary(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{Binary: "/nonexistent/ffmpeg"})
	if err := f.Permission(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestFFmpegNotStarted(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{})
	if err := f.Pause(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Pause err = %v", err)
	}
	if _, err := f.Stop(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Stop err = %v", err)
	}
}

// fakeFFmpeg writes a shell script that behaves like ffmpeg for capture
// (write output, wait for "q" on stdin) and concat (write "merged"
// followed by the concat list it was given).
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script ffmpeg stand-in needs a POSIX shell")
	}
	script := `#!/bin/sh
for last; do :; done
case " $* " in
  *" concat "*)
    prev=
    for a; do [ "$prev" = "-i" ] && list=$a; prev=$a; done
    { echo merged; cat "$list"; } > "$last"
    exit 0 ;;
esac
echo segment > "$last"
read line
exit 0
`
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func TestFFmpegSingleSegment(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{Binary: fakeFFmpeg(t)})
	ctx := context.Background()

	if err := f.Permission(ctx); err != nil {
		t.Fatalf("Permission: %v", err)
	}
	if err := f.Start(ctx, Options{Audio: settings.DefaultAudio(), TempDir: t.TempDir()}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.Start(ctx, Options{}); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start err = %v, want ErrAlreadyStarted", err)
	}

	res, err := f.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	data, _ := os.ReadFile(res.Path)
	if strings.TrimSpace(string(data)) != "segment" {
		t.Errorf("content = %q, want segment", data)
	}
	if res.MimeType != "audio/m4a" || res.IsDataURI() {
		t.Errorf("result = %+v", res)
	}
}

func TestFFmpegPauseResumeConcats(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{Binary: fakeFFmpeg(t)})
	ctx := context.Background()

	if err := f.Start(ctx, Options{Audio: settings.DefaultAudio(), TempDir: t.TempDir()}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := f.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	res, err := f.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	data, _ := os.ReadFile(res.Path)
	if !strings.HasPrefix(string(data), "merged\n") {
		t.Errorf("content = %q, want merged output", data)
	}
	if got := strings.Count(string(data), "file '"); got != 2 {
		t.Errorf("concat entries = %d, want 2", got)
	}
}

func TestFFmpegCleanupAfterArchive(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{Binary: fakeFFmpeg(t)})
	ctx := context.Background()
	tmp := t.TempDir()

	if err := f.Start(ctx, Options{Audio: settings.DefaultAudio(), TempDir: tmp}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := f.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	res, err := f.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.TempDir == "" || filepath.Dir(res.Path) != res.TempDir {
		t.Fatalf("result = %+v, want Path inside TempDir", res)
	}

	archived := filepath.Join(t.TempDir(), "archived.m4a")
	if err := os.Rename(res.Path, archived); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	left, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(left) != 0 {
		names := make([]string, len(left))
		for i, e := range left {
			names[i] = e.Name()
		}
		t.Errorf("temp dir holds %v after cleanup, want nothing", names)
	}
	if _, err := os.Stat(archived); err != nil {
		t.Errorf("archived file: %v", err)
	}
}

func TestResultCleanupWithoutTempDir(t *testing.T) {
	if err := (Result{DataURI: "data:audio/webm;base64,AA=="}).Cleanup(); err != nil {
		t.Errorf("Cleanup = %v, want nil", err)
	}
}

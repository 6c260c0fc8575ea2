package settings

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/skydreamer0/VOICEAPP/internal/db"
)

func newTestStore(t *testing.T) (*Store, *db.Store) {
	t.Helper()

	kv, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	return NewStore(kv), kv
}

func TestQualityBitRate(t *testing.T) {
	tests := []struct {
		q    Quality
		want int
	}{
		{QualityLow, 32000},
		{QualityMedium, 64000},
		{QualityHigh, 128000},
	}
	for _, tt := range tests {
		if got := tt.q.BitRate(); got != tt.want {
			t.Errorf("%s.BitRate() = %d, want %d", tt.q, got, tt.want)
		}
	}
	if got := QualityHigh.EncoderQuality(); got != 1.0 {
		t.Errorf("high encoder quality = %v, want 1", got)
	}
}

func TestAudioDefaultsWhenAbsent(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.Audio(context.Background())
	if err != nil {
		t.Fatalf("Audio: %v", err)
	}
	if got != DefaultAudio() {
		t.Errorf("got %+v, want defaults", got)
	}
}

func TestAudioCorruptFallsBack(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	kv.Set(ctx, db.KeyAudioSettings, `{"quality":`)
	got, err := s.Audio(ctx)
	if err != nil {
		t.Fatalf("Audio: %v", err)
	}
	if got != DefaultAudio() {
		t.Errorf("got %+v, want defaults", got)
	}

	kv.Set(ctx, db.KeyAudioSettings, `{"quality":"ultra","sampleRate":44100,"bitRate":64000,"channels":1}`)
	if got, _ := s.Audio(ctx); got != DefaultAudio() {
		t.Errorf("invalid stored quality: got %+v, want defaults", got)
	}
}

func TestSaveAudio(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a := DefaultAudio().WithQuality(QualityHigh)
	a.Channels = 2
	a.SampleRate = 48000
	if err := s.SaveAudio(ctx, a); err != nil {
		t.Fatalf("SaveAudio: %v", err)
	}
	got, _ := s.Audio(ctx)
	if got != a {
		t.Errorf("got %+v, want %+v", got, a)
	}

	bad := a
	bad.SampleRate = 16000
	if err := s.SaveAudio(ctx, bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	bad = a
	bad.Channels = 3
	if err := s.SaveAudio(ctx, bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestAppMergesDefaults(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	kv.Set(ctx, db.KeyAppSettings, `{"defaultClinicName":"Xinyi Clinic","darkMode":true}`)

	got, err := s.App(ctx)
	if err != nil {
		t.Fatalf("App: %v", err)
	}
	if got.DefaultClinicName != "Xinyi Clinic" || !got.DarkMode {
		t.Errorf("stored fields lost: %+v", got)
	}
	if got.MaxRecordingDuration != 60 || got.DefaultLatitude != 25.0330 || !got.AutoSaveEnabled {
		t.Errorf("defaults not merged: %+v", got)
	}
}

func TestSetAndGetApp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SetApp(ctx, "autoStopRecording", "true"); err != nil {
		t.Fatalf("SetApp bool: %v", err)
	}
	if _, err := s.SetApp(ctx, "maxRecordingDuration", "30"); err != nil {
		t.Fatalf("SetApp int: %v", err)
	}
	if _, err := s.SetApp(ctx, "defaultPhoneNumber", "0800-000-123"); err != nil {
		t.Fatalf("SetApp string: %v", err)
	}

	a, _ := s.App(ctx)
	if !a.AutoStopRecording || a.MaxRecordingDuration != 30 || a.DefaultPhoneNumber != "0800-000-123" {
		t.Errorf("got %+v", a)
	}

	v, err := s.GetApp(ctx, "maxRecordingDuration")
	if err != nil {
		t.Fatalf("GetApp: %v", err)
	}
	if v != float64(30) {
		t.Errorf("GetApp = %v (%T), want 30", v, v)
	}
}

func TestSetAppRejects(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	cases := [][2]string{
		{"noSuchKey", "x"},
		{"darkMode", "maybe"},
		{"maxRecordingDuration", "ten"},
		{"maxRecordingDuration", "1.5"},
		{"language", "fr"},
		{"recordingQuality", "ultra"},
	}
	for _, c := range cases {
		if _, err := s.SetApp(ctx, c[0], c[1]); !errors.Is(err, ErrInvalid) {
			t.Errorf("SetApp(%s, %s) err = %v, want ErrInvalid", c[0], c[1], err)
		}
	}
	if a, _ := s.App(ctx); a != DefaultApp() {
		t.Errorf("rejected sets changed settings: %+v", a)
	}
}

func TestClearAndResetApp(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	s.SetApp(ctx, "darkMode", "true")
	if err := s.ClearApp(ctx); err != nil {
		t.Fatalf("ClearApp: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, db.KeyAppSettings); ok {
		t.Error("blob still stored after ClearApp")
	}

	s.SetApp(ctx, "darkMode", "true")
	a, err := s.ResetApp(ctx)
	if err != nil {
		t.Fatalf("ResetApp: %v", err)
	}
	if a.DarkMode {
		t.Error("ResetApp kept darkMode")
	}
	if _, ok, _ := kv.Get(ctx, db.KeyAppSettings); !ok {
		t.Error("ResetApp should store the defaults")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 19 {
		t.Errorf("got %d keys, want 19", len(keys))
	}
	if keys[0] != "autoBackupEnabled" {
		t.Errorf("keys[0] = %q, want sorted", keys[0])
	}
}

func TestAppReadErrorIsReturned(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	kv.Close()
	if _, err := s.App(ctx); err == nil {
		t.Error("App on a closed store returned nil error, want read failure")
	}
	if _, err := s.Audio(ctx); err == nil {
		t.Error("Audio on a closed store returned nil error, want read failure")
	}
	if _, err := s.SetApp(ctx, "darkMode", "true"); err == nil {
		t.Error("SetApp on a closed store returned nil error")
	}
}

func TestAppCorruptFallsBack(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	kv.Set(ctx, db.KeyAppSettings, `{"darkMode":`)
	a, err := s.App(ctx)
	if err != nil {
		t.Fatalf("App: %v", err)
	}
	if a != DefaultApp() {
		t.Errorf("got %+v, want defaults", a)
	}

	a, err = s.SetApp(ctx, "darkMode", "true")
	if err != nil {
		t.Fatalf("SetApp over corrupt blob: %v", err)
	}
	if !a.DarkMode || a.MaxRecordingDuration != DefaultApp().MaxRecordingDuration {
		t.Errorf("got %+v, want defaults with darkMode", a)
	}
}

func TestUpdateAppConcurrentKeys(t *testing.T) {
	kv, err := db.Open(filepath.Join(t.TempDir(), "settings.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer kv.Close()
	s := NewStore(kv)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := s.SetApp(ctx, "defaultClinicName", fmt.Sprintf("Clinic %d", i)); err != nil {
				t.Errorf("SetApp clinic: %v", err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			if _, err := s.UpdateApp(ctx, func(a *App) error {
				a.MaxRecordingDuration++
				return nil
			}); err != nil {
				t.Errorf("UpdateApp: %v", err)
			}
		}(i)
	}
	wg.Wait()

	a, err := s.App(ctx)
	if err != nil {
		t.Fatalf("App: %v", err)
	}
	if want := DefaultApp().MaxRecordingDuration + n; a.MaxRecordingDuration != want {
		t.Errorf("maxRecordingDuration = %d, want %d", a.MaxRecordingDuration, want)
	}
	if a.DefaultClinicName == DefaultApp().DefaultClinicName {
		t.Errorf("defaultClinicName = %q, want one of the concurrent writes", a.DefaultClinicName)
	}
}

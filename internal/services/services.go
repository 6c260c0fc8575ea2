// Package services wires the stores, file library and recorder from a
// Config so every front end (CLI, daemon, TUI, MCP) shares one setup.
package services

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/skydreamer0/VOICEAPP/internal/config"
	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/db"
	"github.com/skydreamer0/VOICEAPP/internal/files"
	"github.com/skydreamer0/VOICEAPP/internal/geo"
	"github.com/skydreamer0/VOICEAPP/internal/location"
	"github.com/skydreamer0/VOICEAPP/internal/recorder"
	"github.com/skydreamer0/VOICEAPP/internal/recording"
	"github.com/skydreamer0/VOICEAPP/internal/session"
	"github.com/skydreamer0/VOICEAPP/internal/settings"
)

type Services struct {
	Config     *config.Config
	DB         *db.Store
	Customers  *customer.Store
	Recordings *recording.Store
	Settings   *settings.Store
	Files      *files.Library
}

// Open opens the database and file library described by cfg.
func Open(cfg *config.Config) (*Services, error) {
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	lib, err := files.Open(cfg.RecordingsDir, cfg.DownloadsDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open file library: %w", err)
	}
	return &Services{
		Config:     cfg,
		DB:         store,
		Customers:  customer.NewStore(store),
		Recordings: recording.NewStore(store, lib),
		Settings:   settings.NewStore(store),
		Files:      lib,
	}, nil
}

func (s *Services) Close() error {
	return s.DB.Close()
}

// Location returns the position provider: the configured location file
// when set, falling back to the configured fixed position and then to the
// default coordinates from the app settings.
func (s *Services) Location(ctx context.Context) location.Provider {
	var fallback geo.Coords
	if s.Config.Location.Fixed != nil {
		fallback = *s.Config.Location.Fixed
	} else if app, err := s.Settings.App(ctx); err == nil {
		fallback = geo.Coords{Latitude: app.DefaultLatitude, Longitude: app.DefaultLongitude}
	} else {
		d := settings.DefaultApp()
		fallback = geo.Coords{Latitude: d.DefaultLatitude, Longitude: d.DefaultLongitude}
	}

	if s.Config.Location.File == "" {
		return location.Fixed(fallback)
	}
	return location.Fallback{Primary: location.File{Path: s.Config.Location.File}, Default: fallback}
}

// NewRecorder builds the configured recorder backend. The stream backend
// reads audio from stdin.
func (s *Services) NewRecorder() (recorder.Recorder, error) {
	rc := s.Config.Recorder
	return recorder.New(recorder.Config{
		Backend:     rc.Backend,
		FFmpegPath:  rc.FFmpegPath,
		InputFormat: rc.InputFormat,
		InputDevice: rc.InputDevice,
		StreamMime:  rc.StreamMimeType,
		Source: func() (io.ReadCloser, error) {
			return io.NopCloser(os.Stdin), nil
		},
	})
}

// NewSession returns a session that records with rec and persists into
// these stores.
func (s *Services) NewSession(rec recorder.Recorder) *session.Session {
	return session.New(session.Config{
		Recorder:   rec,
		Files:      s.Files,
		Recordings: s.Recordings,
		Settings:   s.Settings,
		TempDir:    s.Config.DataDir,
	})
}

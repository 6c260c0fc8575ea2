package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/skydreamer0/VOICEAPP/internal/db"
	"github.com/skydreamer0/VOICEAPP/internal/logging"
)

// Store reads and writes both settings blobs.
type Store struct {
	audio *db.Doc[Audio]
	app   *db.Doc[App]
	log   zerolog.Logger
}

// NewStore returns a Store over kv.
func NewStore(kv *db.Store) *Store {
	return &Store{
		audio: db.NewDoc[Audio](kv, db.KeyAudioSettings),
		app:   db.NewDoc[App](kv, db.KeyAppSettings),
		log:   logging.WithComponent("settings"),
	}
}

// Audio returns the stored audio settings, or the defaults when none are
// stored or the stored blob cannot be used. Read failures are returned.
func (s *Store) Audio(ctx context.Context) (Audio, error) {
	a, _, err := s.audio.Load(ctx, DefaultAudio())
	if errors.Is(err, db.ErrCorrupt) {
		s.log.Warn().Err(err).Msg("unreadable audio settings, using defaults")
		return DefaultAudio(), nil
	}
	if err != nil {
		return Audio{}, fmt.Errorf("load audio settings: %w", err)
	}
	if err := a.Validate(); err != nil {
		s.log.Warn().Err(err).Msg("stored audio settings invalid, using defaults")
		return DefaultAudio(), nil
	}
	return a, nil
}

// SaveAudio validates and stores a.
func (s *Store) SaveAudio(ctx context.Context, a Audio) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.audio.Save(ctx, a); err != nil {
		return fmt.Errorf("save audio settings: %w", err)
	}
	return nil
}

// App returns the stored preferences merged over the defaults. A blob that
// fails to decode yields the defaults; read failures are returned.
func (s *Store) App(ctx context.Context) (App, error) {
	a, _, err := s.app.Load(ctx, DefaultApp())
	if errors.Is(err, db.ErrCorrupt) {
		s.log.Warn().Err(err).Msg("unreadable app settings, using defaults")
		return DefaultApp(), nil
	}
	if err != nil {
		return App{}, fmt.Errorf("load app settings: %w", err)
	}
	return a, nil
}

// UpdateApp applies fn to the stored preferences and writes them back in
// one transaction. Nothing is written when fn or validation fails.
func (s *Store) UpdateApp(ctx context.Context, fn func(*App) error) (App, error) {
	a, err := s.app.Update(ctx, DefaultApp(), func(a *App) error {
		if err := fn(a); err != nil {
			return err
		}
		return a.Validate()
	})
	if err != nil {
		return App{}, fmt.Errorf("update app settings: %w", err)
	}
	return a, nil
}

// GetApp returns one preference by JSON key.
func (s *Store) GetApp(ctx context.Context, key string) (any, error) {
	a, err := s.App(ctx)
	if err != nil {
		return nil, err
	}
	return a.Lookup(key)
}

// SetApp sets one preference by JSON key from its text form.
func (s *Store) SetApp(ctx context.Context, key, value string) (App, error) {
	return s.UpdateApp(ctx, func(a *App) error {
		next, err := a.With(key, value)
		if err != nil {
			return err
		}
		*a = next
		return nil
	})
}

// ClearApp removes the stored preferences so the defaults apply again.
func (s *Store) ClearApp(ctx context.Context) error {
	if err := s.app.Clear(ctx); err != nil {
		return fmt.Errorf("clear app settings: %w", err)
	}
	return nil
}

// ResetApp stores the default preferences explicitly.
func (s *Store) ResetApp(ctx context.Context) (App, error) {
	a := DefaultApp()
	if err := s.app.Save(ctx, a); err != nil {
		return App{}, fmt.Errorf("reset app settings: %w", err)
	}
	return a, nil
}

// ResetAudio stores the default audio settings.
func (s *Store) ResetAudio(ctx context.Context) (Audio, error) {
	a := DefaultAudio()
	if err := s.audio.Save(ctx, a); err != nil {
		return Audio{}, fmt.Errorf("reset audio settings: %w", err)
	}
	return a, nil
}

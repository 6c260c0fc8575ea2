package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/files"
	"github.com/skydreamer0/VOICEAPP/internal/logging"
	"github.com/skydreamer0/VOICEAPP/internal/observability/metrics"
	"github.com/skydreamer0/VOICEAPP/internal/recorder"
	"github.com/skydreamer0/VOICEAPP/internal/recording"
	"github.com/skydreamer0/VOICEAPP/internal/settings"
)

// DefaultTickInterval is how much duration each tick adds.
const DefaultTickInterval = time.Second

// Archiver moves a finished audio file into permanent storage.
type Archiver interface {
	Save(src string, info files.NameInfo, d files.Defaults) (files.FileInfo, error)
}

// RecordingSaver persists finished recordings.
type RecordingSaver interface {
	Save(ctx context.Context, r recording.Recording) error
}

// SettingsSource supplies the settings a recording depends on.
type SettingsSource interface {
	Audio(ctx context.Context) (settings.Audio, error)
	App(ctx context.Context) (settings.App, error)
}

// Config wires a Session to its collaborators.
type Config struct {
	Recorder     recorder.Recorder
	Files        Archiver
	Recordings   RecordingSaver
	Settings     SettingsSource
	TempDir      string
	TickInterval time.Duration
	Now          func() time.Time
	NewID        func() string
}

// Status is a snapshot of the session.
type Status struct {
	State     State
	Customer  *customer.Customer
	Duration  time.Duration
	StartedAt time.Time
}

// EventKind tells listeners what changed.
type EventKind int

const (
	EventState EventKind = iota
	EventTick
	EventLimit // the configured maximum duration was reached
)

// Event is delivered to listeners outside the session lock.
type Event struct {
	Kind   EventKind
	Status Status
}

// Session owns the recorder for one recording at a time.
type Session struct {
	cfg Config
	log zerolog.Logger

	mu        sync.Mutex
	state     State
	customer  *customer.Customer
	duration  time.Duration
	startedAt time.Time
	limit     time.Duration
	limitHit  bool
	ticker    *tickLoop

	lmu       sync.Mutex
	listeners []func(Event)
}

type tickLoop struct {
	stop chan struct{}
	done chan struct{}
}

// New returns an idle Session.
func New(cfg Config) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Session{cfg: cfg, log: logging.WithComponent("session")}
}

// OnEvent registers fn for every state change and tick.
func (s *Session) OnEvent(fn func(Event)) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) emit(ev Event) {
	s.lmu.Lock()
	listeners := append([]func(Event){}, s.listeners...)
	s.lmu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Status {
	st := Status{
		State:     s.state,
		Duration:  s.duration,
		StartedAt: s.startedAt,
	}
	if s.customer != nil {
		c := *s.customer
		st.Customer = &c
	}
	return st
}

// Start begins recording for c. It fails without changing state when c is
// nil, a recording is already active, or the recorder refuses permission.
func (s *Session) Start(ctx context.Context, c *customer.Customer) error {
	if c == nil {
		return ErrNoCustomer
	}

	s.mu.Lock()
	if s.state.Active() {
		s.mu.Unlock()
		return ErrActive
	}
	if err := s.cfg.Recorder.Permission(ctx); err != nil {
		s.mu.Unlock()
		metrics.DefaultMetrics.RecordSessionError("start")
		return fmt.Errorf("start recording: %w", err)
	}

	audio, err := s.cfg.Settings.Audio(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	app, err := s.cfg.Settings.App(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if err := s.cfg.Recorder.Start(ctx, recorder.Options{Audio: audio, TempDir: s.cfg.TempDir}); err != nil {
		s.mu.Unlock()
		metrics.DefaultMetrics.RecordSessionError("start")
		return fmt.Errorf("start recording: %w", err)
	}

	cust := *c
	s.state = StateRecording
	s.customer = &cust
	s.duration = 0
	s.startedAt = s.cfg.Now()
	s.limit = 0
	s.limitHit = false
	if app.AutoStopRecording && app.MaxRecordingDuration > 0 {
		s.limit = time.Duration(app.MaxRecordingDuration) * time.Minute
	}
	s.startTicker()
	st := s.snapshot()
	s.mu.Unlock()

	metrics.DefaultMetrics.RecordSessionStart()
	logging.WithCustomer("session", cust.ID).Info().Str("customer", cust.Name).Msg("recording started")
	s.emit(Event{Kind: EventState, Status: st})
	return nil
}

// Pause suspends the recorder and the duration tick.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return ErrNotRecording
	}
	if err := s.cfg.Recorder.Pause(); err != nil {
		s.mu.Unlock()
		metrics.DefaultMetrics.RecordSessionError("pause")
		return fmt.Errorf("pause recording: %w", err)
	}
	s.state = StatePaused
	t := s.ticker
	s.ticker = nil
	st := s.snapshot()
	s.mu.Unlock()

	t.halt()
	s.log.Info().Dur("duration", st.Duration).Msg("recording paused")
	s.emit(Event{Kind: EventState, Status: st})
	return nil
}

// Resume restarts the recorder and the tick; the accumulated duration is
// kept.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused {
		s.mu.Unlock()
		return ErrNotPaused
	}
	if err := s.cfg.Recorder.Resume(); err != nil {
		s.mu.Unlock()
		metrics.DefaultMetrics.RecordSessionError("resume")
		return fmt.Errorf("resume recording: %w", err)
	}
	s.state = StateRecording
	s.startTicker()
	st := s.snapshot()
	s.mu.Unlock()

	s.log.Info().Dur("duration", st.Duration).Msg("recording resumed")
	s.emit(Event{Kind: EventState, Status: st})
	return nil
}

// Stop finalizes the recorder, stores the audio and persists the
// Recording. The session is cleared even when persisting fails.
func (s *Session) Stop(ctx context.Context) (recording.Recording, error) {
	s.mu.Lock()
	if !s.state.Active() {
		s.mu.Unlock()
		return recording.Recording{}, ErrNotActive
	}
	t := s.ticker
	s.ticker = nil
	s.state = StateStopped
	res, stopErr := s.cfg.Recorder.Stop(ctx)
	cust := *s.customer
	duration := s.duration
	s.customer = nil
	s.duration = 0
	s.startedAt = time.Time{}
	st := s.snapshot()
	s.mu.Unlock()

	t.halt()
	metrics.DefaultMetrics.RecordSessionEnd()
	s.emit(Event{Kind: EventState, Status: st})

	if stopErr != nil {
		metrics.DefaultMetrics.RecordSessionError("stop")
		return recording.Recording{}, fmt.Errorf("stop recording: %w", stopErr)
	}

	rec, err := s.persist(ctx, cust, duration, res)
	if err != nil {
		metrics.DefaultMetrics.RecordSessionError("save")
		return recording.Recording{}, err
	}
	return rec, nil
}

func (s *Session) persist(ctx context.Context, c customer.Customer, duration time.Duration, res recorder.Result) (recording.Recording, error) {
	app, err := s.cfg.Settings.App(ctx)
	if err != nil {
		app = settings.DefaultApp()
	}
	loc := c.Coords()
	created := s.cfg.Now()

	rec := recording.Recording{
		ID:           s.cfg.NewID(),
		CustomerID:   c.ID,
		CustomerName: c.Name,
		ClinicName:   firstNonEmpty(c.Address, app.DefaultClinicName, files.UnknownClinic),
		PhoneNumber:  firstNonEmpty(c.Phone, app.DefaultPhoneNumber, files.UnknownPhone),
		Location:     &loc,
		CreatedAt:    recording.NewTimestamp(created),
		Duration:     duration.Milliseconds(),
		MimeType:     res.MimeType,
	}

	if res.IsDataURI() {
		rec.AudioURI = res.DataURI
		rec.IsWebRecording = true
		rec.FileSize = res.Size
	} else {
		fi, err := s.cfg.Files.Save(res.Path, files.NameInfo{
			CustomerName: c.Name,
			ClinicName:   rec.ClinicName,
			PhoneNumber:  rec.PhoneNumber,
			Location:     &loc,
			CreatedAt:    created,
		}, files.Defaults{ClinicName: app.DefaultClinicName, PhoneNumber: app.DefaultPhoneNumber})
		if err != nil {
			return recording.Recording{}, fmt.Errorf("store audio: %w", err)
		}
		rec.AudioURI = fi.Path
		rec.FileSize = fi.Size
		rec.Checksum = fi.Checksum
		if err := res.Cleanup(); err != nil {
			s.log.Warn().Err(err).Str("dir", res.TempDir).Msg("capture scratch left behind")
		}
	}

	if err := s.cfg.Recordings.Save(ctx, rec); err != nil {
		return recording.Recording{}, err
	}
	s.log.Info().Str("recordingId", rec.ID).Str("audioUri", rec.AudioURI).Int64("durationMs", rec.Duration).Msg("recording stored")
	return rec, nil
}

// startTicker launches the duration tick. Callers hold s.mu.
func (s *Session) startTicker() {
	t := &tickLoop{stop: make(chan struct{}), done: make(chan struct{})}
	s.ticker = t
	go s.tick(t)
}

func (s *Session) tick(t *tickLoop) {
	defer close(t.done)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.ticker != t || s.state != StateRecording {
			s.mu.Unlock()
			return
		}
		s.duration += s.cfg.TickInterval
		hit := s.limit > 0 && !s.limitHit && s.duration >= s.limit
		if hit {
			s.limitHit = true
		}
		st := s.snapshot()
		s.mu.Unlock()

		s.emit(Event{Kind: EventTick, Status: st})
		if hit {
			s.log.Info().Dur("limit", s.limit).Msg("maximum recording duration reached")
			s.emit(Event{Kind: EventLimit, Status: st})
		}
	}
}

// halt stops the tick goroutine and waits for it to exit.
func (t *tickLoop) halt() {
	if t == nil {
		return
	}
	close(t.stop)
	<-t.done
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

package recording

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/skydreamer0/VOICEAPP/internal/db"
	"github.com/skydreamer0/VOICEAPP/internal/logging"
	"github.com/skydreamer0/VOICEAPP/internal/observability/metrics"
)

// FileRemover deletes and checks for audio files.
type FileRemover interface {
	Delete(path string) error
	Exists(path string) bool
}

// Store persists recordings as one JSON array, newest first.
type Store struct {
	list  *db.List[Recording]
	files FileRemover
	log   zerolog.Logger
}

// NewStore returns a Store over the "recordings" key of kv. files may be
// nil, in which case audio files are never touched.
func NewStore(kv *db.Store, files FileRemover) *Store {
	return &Store{
		list:  db.NewList[Recording](kv, db.KeyRecordings),
		files: files,
		log:   logging.WithComponent("recording"),
	}
}

// Save validates r and inserts it at the front of the list.
func (s *Store) Save(ctx context.Context, r Recording) error {
	if err := r.Validate(); err != nil {
		return err
	}
	err := s.list.Mutate(ctx, func(recs []Recording) ([]Recording, error) {
		if slices.ContainsFunc(recs, func(x Recording) bool { return x.ID == r.ID }) {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalid, r.ID)
		}
		return append([]Recording{r}, recs...), nil
	})
	if err != nil {
		return fmt.Errorf("save recording: %w", err)
	}

	metrics.DefaultMetrics.RecordRecordingSaved(r.Length().Seconds(), r.FileSize)
	s.log.Info().
		Str("recordingId", r.ID).
		Str("customerId", r.CustomerID).
		Int64("durationMs", r.Duration).
		Msg("recording saved")
	return nil
}

// All returns every recording, newest first.
func (s *Store) All(ctx context.Context) ([]Recording, error) {
	recs, err := s.list.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recordings: %w", err)
	}
	return recs, nil
}

// Get returns the recording with id.
func (s *Store) Get(ctx context.Context, id string) (Recording, error) {
	recs, err := s.All(ctx)
	if err != nil {
		return Recording{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return Recording{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ForCustomer returns the recordings of one customer, newest first.
func (s *Store) ForCustomer(ctx context.Context, customerID string) ([]Recording, error) {
	recs, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []Recording
	for _, r := range recs {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Find returns the recordings matching c.
func (s *Store) Find(ctx context.Context, c Criteria) ([]Recording, error) {
	recs, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(recs, c), nil
}

// Update applies p to the recording with id.
func (s *Store) Update(ctx context.Context, id string, p Patch) (Recording, error) {
	var updated Recording
	err := s.list.Mutate(ctx, func(recs []Recording) ([]Recording, error) {
		i := slices.IndexFunc(recs, func(r Recording) bool { return r.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		p.apply(&recs[i])
		updated = recs[i]
		return recs, nil
	})
	if err != nil {
		return Recording{}, fmt.Errorf("update recording: %w", err)
	}
	return updated, nil
}

// Delete removes the recording with id, then deletes its audio file on a
// best-effort basis. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.DeleteMany(ctx, []string{id})
	return err
}

// DeleteMany removes every listed recording in a single write and returns
// how many were removed. Unknown ids are ignored. Audio files are deleted
// afterwards on a best-effort basis.
func (s *Store) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var removed []Recording
	err := s.list.Mutate(ctx, func(recs []Recording) ([]Recording, error) {
		kept := recs[:0]
		for _, r := range recs {
			if want[r.ID] {
				removed = append(removed, r)
				continue
			}
			kept = append(kept, r)
		}
		if len(removed) == 0 {
			return nil, db.ErrSkipWrite
		}
		return kept, nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete recordings: %w", err)
	}

	for _, r := range removed {
		s.removeFile(r)
	}
	if len(removed) > 0 {
		metrics.DefaultMetrics.RecordRecordingsDeleted(len(removed))
		s.log.Info().Int("count", len(removed)).Msg("recordings deleted")
	}
	return len(removed), nil
}

// CleanupStale drops recordings whose audio file no longer exists and
// returns how many were dropped. Embedded data URIs are always kept; blob
// URIs never survive a restart and are always dropped.
func (s *Store) CleanupStale(ctx context.Context) (int, error) {
	if s.files == nil {
		return 0, nil
	}
	var dropped int
	err := s.list.Mutate(ctx, func(recs []Recording) ([]Recording, error) {
		kept := recs[:0]
		for _, r := range recs {
			if s.isStale(r) {
				s.log.Warn().Str("recordingId", r.ID).Str("audioUri", r.AudioURI).Msg("dropping stale recording")
				dropped++
				continue
			}
			kept = append(kept, r)
		}
		if dropped == 0 {
			return nil, db.ErrSkipWrite
		}
		return kept, nil
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup recordings: %w", err)
	}
	metrics.DefaultMetrics.RecordStaleRemoved(dropped)
	return dropped, nil
}

func (s *Store) isStale(r Recording) bool {
	if r.IsDataURI() {
		return false
	}
	if strings.HasPrefix(r.AudioURI, "blob:") {
		return true
	}
	return !s.files.Exists(r.FilePath())
}

func (s *Store) removeFile(r Recording) {
	path := r.FilePath()
	if s.files == nil || path == "" {
		return
	}
	if err := s.files.Delete(path); err != nil {
		s.log.Warn().Err(err).Str("recordingId", r.ID).Str("path", path).Msg("delete audio file")
	}
}

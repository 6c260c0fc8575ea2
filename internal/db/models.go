// Package db provides the SQLite-backed key-value store that holds every
// persisted collection and settings blob as JSON text.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/skydreamer0/VOICEAPP/internal/observability/metrics"
)

// Keys under which the application stores its data.
const (
	KeyCustomers     = "customers"
	KeyRecordings    = "recordings"
	KeyAudioSettings = "audioSettings"
	KeyAppSettings   = "app_settings"
)

// ErrSkipWrite is returned from a Modify callback to end the cycle without writing.
var ErrSkipWrite = errors.New("skip write")

// ErrCorrupt marks a stored value that is not valid JSON for its type.
var ErrCorrupt = errors.New("stored value is corrupt")

// Entry describes one stored key.
type Entry struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

// List is a JSON array of T stored under a single key.
type List[T any] struct {
	store *Store
	key   string
}

// NewList returns a List bound to key.
func NewList[T any](store *Store, key string) *List[T] {
	return &List[T]{store: store, key: key}
}

// All decodes the stored array. A missing key yields an empty slice.
func (l *List[T]) All(ctx context.Context) ([]T, error) {
	raw, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, err
	}
	return decodeList[T](l.key, raw, ok)
}

// Mutate decodes the array, applies fn and writes the result back in one
// transaction. fn may return ErrSkipWrite to leave the array untouched.
func (l *List[T]) Mutate(ctx context.Context, fn func([]T) ([]T, error)) error {
	start := time.Now()
	err := l.store.Modify(ctx, l.key, func(raw string, ok bool) (string, error) {
		items, err := decodeList[T](l.key, raw, ok)
		if err != nil {
			return "", err
		}
		next, err := fn(items)
		if err != nil {
			return "", err
		}
		if next == nil {
			next = []T{}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", l.key, err)
		}
		return string(data), nil
	})
	metrics.DefaultMetrics.RecordStoreMutation(l.key, err, time.Since(start).Seconds())
	return err
}

func decodeList[T any](key, raw string, ok bool) ([]T, error) {
	if !ok || raw == "" || raw == "null" {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorrupt, key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Doc is a JSON object of type T stored under a single key.
type Doc[T any] struct {
	store *Store
	key   string
}

// NewDoc returns a Doc bound to key.
func NewDoc[T any](store *Store, key string) *Doc[T] {
	return &Doc[T]{store: store, key: key}
}

// Load decodes the stored object over a copy of defaults, so fields missing
// from the stored JSON keep their default values. found reports whether a
// stored object existed.
func (d *Doc[T]) Load(ctx context.Context, defaults T) (v T, found bool, err error) {
	raw, ok, err := d.store.Get(ctx, d.key)
	if err != nil {
		return defaults, false, err
	}
	if !ok {
		return defaults, false, nil
	}
	v, err = d.decode(raw, defaults)
	return v, true, err
}

// Update decodes the stored object over defaults, applies fn and writes the
// result back in one transaction. A stored object that fails to decode is
// replaced, starting from defaults.
func (d *Doc[T]) Update(ctx context.Context, defaults T, fn func(*T) error) (T, error) {
	start := time.Now()
	var out T
	err := d.store.Modify(ctx, d.key, func(raw string, ok bool) (string, error) {
		v := defaults
		if ok {
			var err error
			if v, err = d.decode(raw, defaults); err != nil {
				v = defaults
			}
		}
		if err := fn(&v); err != nil {
			return "", err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", d.key, err)
		}
		out = v
		return string(data), nil
	})
	metrics.DefaultMetrics.RecordStoreMutation(d.key, err, time.Since(start).Seconds())
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (d *Doc[T]) decode(raw string, defaults T) (T, error) {
	v := defaults
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return defaults, fmt.Errorf("%w: decode %s: %v", ErrCorrupt, d.key, err)
	}
	return v, nil
}

// Save encodes v and stores it.
func (d *Doc[T]) Save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.key, err)
	}
	return d.store.Set(ctx, d.key, string(data))
}

// Clear removes the stored object.
func (d *Doc[T]) Clear(ctx context.Context) error {
	return d.store.Remove(ctx, d.key)
}

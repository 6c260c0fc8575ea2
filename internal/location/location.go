// Package location provides the device position to the rest of the app.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/skydreamer0/VOICEAPP/internal/geo"
)

// Defaults for Watch.
const (
	DefaultInterval    = 5 * time.Second
	DefaultMinDistance = 0.010 // km
)

var ErrUnavailable = errors.New("location unavailable")

// Provider returns the current position.
type Provider interface {
	Current(ctx context.Context) (geo.Coords, error)
}

// Fixed always reports the same position.
type Fixed geo.Coords

func (f Fixed) Current(context.Context) (geo.Coords, error) {
	return geo.Coords(f), nil
}

// File reads the position from a file that another process keeps up to
// date. The file holds either "lat,lon" or {"latitude":..,"longitude":..}.
type File struct {
	Path string
}

func (f File) Current(context.Context) (geo.Coords, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return geo.Coords{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return geo.Coords{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, f.Path, err)
	}
	return c, nil
}

// Parse reads "lat,lon" or a JSON object with latitude and longitude.
func Parse(s string) (geo.Coords, error) {
	s = strings.TrimSpace(s)
	var c geo.Coords
	if strings.HasPrefix(s, "{") {
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			return geo.Coords{}, err
		}
	} else {
		latStr, lonStr, ok := strings.Cut(s, ",")
		if !ok {
			return geo.Coords{}, fmt.Errorf("want lat,lon, got %q", s)
		}
		var err error
		if c.Latitude, err = strconv.ParseFloat(strings.TrimSpace(latStr), 64); err != nil {
			return geo.Coords{}, fmt.Errorf("latitude: %w", err)
		}
		if c.Longitude, err = strconv.ParseFloat(strings.TrimSpace(lonStr), 64); err != nil {
			return geo.Coords{}, fmt.Errorf("longitude: %w", err)
		}
	}
	return c, c.Validate()
}

// Fallback tries Primary and answers with Default when it fails.
type Fallback struct {
	Primary Provider
	Default geo.Coords
}

func (f Fallback) Current(ctx context.Context) (geo.Coords, error) {
	if f.Primary != nil {
		if c, err := f.Primary.Current(ctx); err == nil {
			return c, nil
		}
	}
	return f.Default, nil
}

// Watch polls p every interval and calls fn with the first position and
// then whenever the position moved at least minKm. It returns when ctx is
// done. Provider errors are skipped.
func Watch(ctx context.Context, p Provider, interval time.Duration, minKm float64, fn func(geo.Coords)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	var last *geo.Coords
	poll := func() {
		c, err := p.Current(ctx)
		if err != nil {
			return
		}
		if last != nil && geo.Distance(*last, c) < minKm {
			return
		}
		last = &c
		fn(c)
	}

	poll()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}

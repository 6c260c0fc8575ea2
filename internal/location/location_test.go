package location

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/skydreamer0/VOICEAPP/internal/geo"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    geo.Coords
		wantErr bool
	}{
		{"25.033,121.5654", geo.Coords{Latitude: 25.033, Longitude: 121.5654}, false},
		{" 25.033 , 121.5654\n", geo.Coords{Latitude: 25.033, Longitude: 121.5654}, false},
		{`{"latitude":1.5,"longitude":-2}`, geo.Coords{Latitude: 1.5, Longitude: -2}, false},
		{"25.033", geo.Coords{}, true},
		{"abc,1", geo.Coords{}, true},
		{"95,0", geo.Coords{}, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position")
	p := File{Path: path}

	if _, err := p.Current(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("missing file err = %v, want ErrUnavailable", err)
	}

	os.WriteFile(path, []byte("25.0,121.5"), 0o644)
	got, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.Latitude != 25.0 || got.Longitude != 121.5 {
		t.Errorf("got %v", got)
	}
}

func TestFallback(t *testing.T) {
	def := geo.Coords{Latitude: 25.0330, Longitude: 121.5654}
	p := Fallback{Primary: File{Path: "/nonexistent/position"}, Default: def}

	got, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got != def {
		t.Errorf("got %v, want default %v", got, def)
	}
}

// sequence returns successive positions on each call.
type sequence struct {
	mu    sync.Mutex
	steps []geo.Coords
	i     int
}

func (s *sequence) Current(context.Context) (geo.Coords, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.steps[min(s.i, len(s.steps)-1)]
	s.i++
	return c, nil
}

func TestWatchReportsMovesOnly(t *testing.T) {
	p := &sequence{steps: []geo.Coords{
		{Latitude: 25, Longitude: 121},
		{Latitude: 25, Longitude: 121},      // unchanged
		{Latitude: 25.0001, Longitude: 121}, // ~11 m
		{Latitude: 25.1, Longitude: 121},    // moved
	}}

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var got []geo.Coords
	done := make(chan error)
	go func() {
		done <- Watch(ctx, p, 5*time.Millisecond, 0.05, func(c geo.Coords) {
			mu.Lock()
			got = append(got, c)
			mu.Unlock()
		})
	}()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("got %d updates, want 2", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch returned %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("got %d updates, want 2", len(got))
	}
	if got[1].Latitude != 25.1 {
		t.Errorf("second update = %v, want the 25.1 move", got[1])
	}
}

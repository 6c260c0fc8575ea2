package customer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skydreamer0/VOICEAPP/internal/db"
	"github.com/skydreamer0/VOICEAPP/internal/geo"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	kv, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	return NewStore(kv)
}

func TestCreateAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	c, err := s.Create(ctx, Input{Name: " Dr. Lin ", Address: "Xinyi Clinic", Phone: "02-1234", Latitude: 25.03, Longitude: 121.56})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID != "1700000000000" {
		t.Errorf("id = %q, want %q", c.ID, "1700000000000")
	}
	if c.Name != "Dr. Lin" {
		t.Errorf("name = %q, want trimmed", c.Name)
	}

	// Same millisecond: the id is bumped instead of duplicated.
	c2, err := s.Create(ctx, Input{Name: "Dr. Wu", Latitude: 25, Longitude: 121})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c2.ID != "1700000000001" {
		t.Errorf("id = %q, want %q", c2.ID, "1700000000001")
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d customers, want 2", len(all))
	}
	if all[0].ID != c.ID {
		t.Errorf("first = %q, want append order", all[0].ID)
	}
}

func TestCreateInvalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []Input{
		{Name: "  "},
		{Name: "x", Latitude: 91},
		{Name: "x", Longitude: -181},
	}
	for _, in := range tests {
		if _, err := s.Create(ctx, in); !errors.Is(err, ErrInvalid) {
			t.Errorf("Create(%+v) err = %v, want ErrInvalid", in, err)
		}
	}
}

func TestUpdateOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, _ := s.Create(ctx, Input{Name: "Old", Address: "A", Phone: "1", Latitude: 1, Longitude: 1})

	got, err := s.Update(ctx, c.ID, Input{Name: "New", Latitude: 2, Longitude: 3})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "New" || got.Address != "" || got.Phone != "" {
		t.Errorf("got %+v, want full overwrite", got)
	}

	stored, err := s.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Latitude != 2 || stored.Longitude != 3 {
		t.Errorf("coords = %v,%v, want 2,3", stored.Latitude, stored.Longitude)
	}
}

func TestUpdateMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(context.Background(), "nope", Input{Name: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.Create(ctx, Input{Name: "A"})
	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	b, _ := s.Create(ctx, Input{Name: "B"})

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}

	all, _ := s.List(ctx)
	if len(all) != 1 || all[0].ID != b.ID {
		t.Errorf("remaining = %+v, want only %s", all, b.ID)
	}
	if _, err := s.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get deleted err = %v, want ErrNotFound", err)
	}
}

func TestNearbyAndUpdateDistances(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Create(ctx, Input{Name: "Here", Latitude: 25.0, Longitude: 121.5})
	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	s.Create(ctx, Input{Name: "Kaohsiung", Latitude: 22.6273, Longitude: 120.3014})

	here := geo.Coords{Latitude: 25.0, Longitude: 121.5}
	got, err := s.Nearby(ctx, here, 5)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Here" {
		t.Fatalf("got %+v, want only Here", got)
	}

	if err := s.UpdateDistances(ctx, here); err != nil {
		t.Fatalf("UpdateDistances: %v", err)
	}
	all, _ := s.List(ctx)
	for _, c := range all {
		if c.Distance == nil {
			t.Errorf("%s has no stored distance", c.Name)
		}
	}
}

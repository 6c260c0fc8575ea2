package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/skydreamer0/VOICEAPP/internal/db"
	"github.com/skydreamer0/VOICEAPP/internal/geo"
)

// fakeFiles records deletions and answers Exists from a set.
type fakeFiles struct {
	mu      sync.Mutex
	present map[string]bool
	deleted []string
	failOn  string
}

func (f *fakeFiles) Delete(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path == f.failOn {
		return fmt.Errorf("permission denied")
	}
	f.deleted = append(f.deleted, path)
	delete(f.present, path)
	return nil
}

func (f *fakeFiles) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.present[path]
}

func newTestStore(t *testing.T, files FileRemover) *Store {
	t.Helper()

	kv, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	return NewStore(kv, files)
}

func sample(id string) Recording {
	return Recording{
		ID:           id,
		AudioURI:     "/data/recordings/" + id + ".m4a",
		CustomerID:   "1700000000000",
		CustomerName: "Dr. Lin",
		ClinicName:   "Xinyi Clinic",
		Location:     &geo.Coords{Latitude: 25.03, Longitude: 121.56},
		CreatedAt:    NewTimestamp(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
		Duration:     42_000,
		MimeType:     MimeM4A,
	}
}

func TestSavePrepends(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, sample(id)); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if got := ids(all); fmt.Sprint(got) != "[c b a]" {
		t.Errorf("order = %v, want [c b a]", got)
	}
	if all[0].Location == nil || all[0].Location.Latitude != 25.03 {
		t.Errorf("location not round-tripped: %+v", all[0].Location)
	}
}

func TestSaveValidates(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	bad := sample("x")
	bad.CustomerName = ""
	if err := s.Save(ctx, bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("missing name err = %v, want ErrInvalid", err)
	}

	bad = sample("y")
	bad.CreatedAt = Timestamp{}
	if err := s.Save(ctx, bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("zero createdAt err = %v, want ErrInvalid", err)
	}

	s.Save(ctx, sample("z"))
	if err := s.Save(ctx, sample("z")); !errors.Is(err, ErrInvalid) {
		t.Errorf("duplicate id err = %v, want ErrInvalid", err)
	}
}

func TestForCustomer(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	a := sample("a")
	b := sample("b")
	b.CustomerID = "other"
	s.Save(ctx, a)
	s.Save(ctx, b)

	got, err := s.ForCustomer(ctx, "1700000000000")
	if err != nil {
		t.Fatalf("ForCustomer: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("got %v, want [a]", ids(got))
	}
}

func TestUpdatePatch(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	s.Save(ctx, sample("a"))

	text := "follow up next week"
	got, err := s.Update(ctx, "a", Patch{Transcription: &text})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Transcription != text || got.ClinicName != "Xinyi Clinic" {
		t.Errorf("got %+v, want transcription set and clinic kept", got)
	}

	if _, err := s.Update(ctx, "missing", Patch{Transcription: &text}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesEntryThenFile(t *testing.T) {
	files := &fakeFiles{present: map[string]bool{"/data/recordings/a.m4a": true}}
	s := newTestStore(t, files)
	ctx := context.Background()
	s.Save(ctx, sample("a"))

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ := s.All(ctx)
	if len(all) != 0 {
		t.Errorf("got %d recordings, want 0", len(all))
	}
	if len(files.deleted) != 1 || files.deleted[0] != "/data/recordings/a.m4a" {
		t.Errorf("deleted = %v", files.deleted)
	}
}

func TestDeleteFileErrorIgnored(t *testing.T) {
	files := &fakeFiles{failOn: "/data/recordings/a.m4a"}
	s := newTestStore(t, files)
	ctx := context.Background()
	s.Save(ctx, sample("a"))

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if all, _ := s.All(ctx); len(all) != 0 {
		t.Error("entry should be gone even when the file delete fails")
	}
}

func TestDeleteUnknownIsNoop(t *testing.T) {
	files := &fakeFiles{}
	s := newTestStore(t, files)
	ctx := context.Background()
	s.Save(ctx, sample("a"))

	if err := s.Delete(ctx, "nope"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ := s.All(ctx)
	if len(all) != 1 {
		t.Errorf("got %d recordings, want 1", len(all))
	}
	if len(files.deleted) != 0 {
		t.Errorf("deleted = %v, want none", files.deleted)
	}
}

func TestDeleteManyWithMissingID(t *testing.T) {
	s := newTestStore(t, &fakeFiles{})
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		s.Save(ctx, sample(id))
	}

	n, err := s.DeleteMany(ctx, []string{"a", "c", "e", "missing"})
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if n != 3 {
		t.Errorf("removed = %d, want 3", n)
	}
	all, _ := s.All(ctx)
	if len(all) != 2 {
		t.Errorf("remaining = %d, want 2", len(all))
	}
}

func TestConcurrentDeletes(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		s.Save(ctx, sample(fmt.Sprint(i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i += 2 {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.Delete(ctx, id); err != nil {
				t.Errorf("Delete %s: %v", id, err)
			}
		}(fmt.Sprint(i))
	}
	wg.Wait()

	all, _ := s.All(ctx)
	if len(all) != 5 {
		t.Errorf("remaining = %d, want 5 (lost update)", len(all))
	}
}

func TestCleanupStale(t *testing.T) {
	files := &fakeFiles{present: map[string]bool{"/data/recordings/keep.m4a": true}}
	s := newTestStore(t, files)
	ctx := context.Background()

	keep := sample("keep")
	gone := sample("gone")
	blob := sample("blob")
	blob.AudioURI = "blob:http://localhost/1234"
	data := sample("data")
	data.AudioURI = "data:audio/webm;base64,AAAA"
	for _, r := range []Recording{keep, gone, blob, data} {
		s.Save(ctx, r)
	}

	n, err := s.CleanupStale(ctx)
	if err != nil {
		t.Fatalf("CleanupStale: %v", err)
	}
	if n != 2 {
		t.Errorf("dropped = %d, want 2", n)
	}
	all, _ := s.All(ctx)
	if got := fmt.Sprint(ids(all)); got != "[data keep]" {
		t.Errorf("remaining = %s, want [data keep]", got)
	}
}

func TestFind(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	a := sample("a")
	b := sample("b")
	b.CustomerName = "Dr. Wu"
	s.Save(ctx, a)
	s.Save(ctx, b)

	got, err := s.Find(ctx, Criteria{CustomerNames: []string{"Dr. Wu"}})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("got %v, want [b]", ids(got))
	}
}

package registry

import (
	"math/rand"
	"testing"

	"roadeye/internal/jobs"
)

var testExtensions = []string{".mp4", ".mov"}

func handle(name string, size, modified int64) FileHandle {
	return FileHandle{Name: name, Size: size, LastModified: modified, Path: "/tmp/" + name}
}

func TestRegisterFiltersNonMedia(t *testing.T) {
	store := jobs.NewStore()
	reg := New(store, testExtensions)
	added := reg.Register(
		handle("clip.mp4", 10, 1),
		handle("notes.txt", 10, 1),
		handle("photo.jpg", 10, 1),
		handle("README", 10, 1),
		handle("drive.MOV", 20, 2),
	)
	if len(added) != 2 || reg.Len() != 2 {
		t.Fatalf("expected two media files, got %d (%+v)", reg.Len(), reg.Files())
	}
	if len(store.Snapshot()) != 2 {
		t.Fatalf("expected one record per media file, got %d", len(store.Snapshot()))
	}
}

func TestRegisterDeduplicatesAndKeepsFirstSeenOrder(t *testing.T) {
	store := jobs.NewStore()
	reg := New(store, testExtensions)
	reg.Register(handle("a.mp4", 1, 1), handle("b.mp4", 2, 2))
	store.Patch(handle("a.mp4", 1, 1).Key(), jobs.Transition(jobs.StatusDone, "done"))

	updated := handle("a.mp4", 1, 1)
	updated.Path = "/elsewhere/a.mp4"
	added := reg.Register(handle("c.mp4", 3, 3), updated, handle("b.mp4", 2, 2))
	if len(added) != 1 || added[0].Name != "c.mp4" {
		t.Fatalf("unexpected added set: %+v", added)
	}

	files := reg.Files()
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	for i, want := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		if files[i].Name != want {
			t.Fatalf("position %d: got %s want %s", i, files[i].Name, want)
		}
	}
	if files[0].Path != "/elsewhere/a.mp4" {
		t.Fatalf("expected re-seen key to take new content, got %q", files[0].Path)
	}
	rec, _ := store.Get(files[0].Key())
	if rec.Status != jobs.StatusDone {
		t.Fatalf("re-registering must not reset the job record: %+v", rec)
	}
}

func TestSameNameDifferentSizeIsDistinct(t *testing.T) {
	reg := New(jobs.NewStore(), testExtensions)
	reg.Register(handle("a.mp4", 1, 1), handle("a.mp4", 2, 1), handle("a.mp4", 1, 2))
	if reg.Len() != 3 {
		t.Fatalf("expected 3 distinct files, got %d", reg.Len())
	}
}

func TestRemoveDeletesRecordAndReaddCreatesFreshOne(t *testing.T) {
	store := jobs.NewStore()
	reg := New(store, testExtensions)
	a, b, c := handle("a.mp4", 1, 1), handle("b.mp4", 2, 2), handle("c.mp4", 3, 3)
	reg.Register(a, b, c)
	store.Patch(b.Key(), jobs.Patch{}.WithRemoteJobID("job-b").WithStatus(jobs.StatusError))

	reg.Remove(1)
	if _, ok := store.Get(b.Key()); ok {
		t.Fatal("expected record to be removed with the file")
	}
	if _, ok := reg.Lookup(c.Key()); !ok {
		t.Fatal("expected later file to remain addressable")
	}
	if files := reg.Files(); len(files) != 2 || files[1].Name != "c.mp4" {
		t.Fatalf("unexpected files after remove: %+v", files)
	}

	reg.Register(b)
	rec, ok := store.Get(b.Key())
	if !ok || rec.Status != jobs.StatusQueued || rec.RemoteJobID != "" {
		t.Fatalf("expected fresh queued record, got %+v", rec)
	}
}

func TestRemoveOutOfRangeIsNoop(t *testing.T) {
	store := jobs.NewStore()
	reg := New(store, testExtensions)
	reg.Register(handle("a.mp4", 1, 1))
	reg.Remove(-1)
	reg.Remove(1)
	reg.Remove(99)
	if reg.Len() != 1 || len(store.Snapshot()) != 1 {
		t.Fatal("out-of-range remove changed state")
	}
}

func TestRandomRegisterSequencesNeverDuplicateKeys(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	store := jobs.NewStore()
	reg := New(store, testExtensions)
	var firstSeen []string
	seen := map[string]bool{}

	for round := 0; round < 50; round++ {
		batch := make([]FileHandle, rng.Intn(6))
		for i := range batch {
			batch[i] = handle("f.mp4", int64(rng.Intn(8)), int64(rng.Intn(3)))
		}
		reg.Register(batch...)
		for _, f := range batch {
			if !seen[f.Key()] {
				seen[f.Key()] = true
				firstSeen = append(firstSeen, f.Key())
			}
		}
	}

	files := reg.Files()
	if len(files) != len(firstSeen) {
		t.Fatalf("expected %d unique files, got %d", len(firstSeen), len(files))
	}
	for i, f := range files {
		if f.Key() != firstSeen[i] {
			t.Fatalf("position %d: got %s want %s", i, f.Key(), firstSeen[i])
		}
	}
	if len(store.Snapshot()) != len(files) {
		t.Fatalf("record count %d does not match file count %d", len(store.Snapshot()), len(files))
	}
}

package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"roadeye/internal/registry"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func names(handles []registry.FileHandle) string {
	out := make([]string, len(handles))
	for i, h := range handles {
		out[i] = h.Name
	}
	return strings.Join(out, ",")
}

func TestCollectExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.mp4"), "bb")
	writeFile(t, filepath.Join(dir, "a.mov"), "a")
	writeFile(t, filepath.Join(dir, ".hidden.mp4"), "x")
	writeFile(t, filepath.Join(dir, "day2", "c.mp4"), "ccc")
	single := filepath.Join(t.TempDir(), "single.mp4")
	writeFile(t, single, "s")

	flat, err := Collect([]string{dir, single}, false)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if names(flat) != "a.mov,b.mp4,single.mp4" {
		t.Fatalf("unexpected flat collection %s", names(flat))
	}

	deep, err := Collect([]string{dir}, true)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if names(deep) != "a.mov,b.mp4,c.mp4" {
		t.Fatalf("unexpected recursive collection %s", names(deep))
	}
	if deep[1].Size != 2 || deep[1].LastModified == 0 || !filepath.IsAbs(deep[1].Path) {
		t.Fatalf("unexpected handle %+v", deep[1])
	}
}

func TestCollectReportsMissingPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp4"), "a")
	handles, err := Collect([]string{filepath.Join(dir, "missing.mp4"), filepath.Join(dir, "a.mp4")}, false)
	if err == nil {
		t.Fatal("expected error for missing path")
	}
	if names(handles) != "a.mp4" {
		t.Fatalf("expected remaining paths to be collected, got %s", names(handles))
	}
}

func TestWatcherEmitsSettledFiles(t *testing.T) {
	dir := t.TempDir()
	accept := func(name string) bool { return strings.HasSuffix(name, ".mp4") }
	w, err := NewWatcher([]string{dir}, accept, WithSettle(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan []registry.FileHandle, 4)
	go func() {
		_ = w.Run(ctx, func(files []registry.FileHandle) { got <- files })
	}()

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "drive.mp4"), "frames")

	select {
	case files := <-got:
		if names(files) != "drive.mp4" || files[0].Size != int64(len("frames")) {
			t.Fatalf("unexpected emission %+v", files)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not emit the new file")
	}
}

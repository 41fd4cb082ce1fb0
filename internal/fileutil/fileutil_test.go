package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomicCreatesAndReplaces(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "out.json")

	if err := WriteAtomic(dst, []byte(`{"a":1}`), 0o640); err != nil {
		t.Fatalf("WriteAtomic failed: %v", err)
	}
	if err := WriteAtomic(dst, []byte(`{"a":2}`), 0o640); err != nil {
		t.Fatalf("WriteAtomic overwrite failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"a":2}` {
		t.Fatalf("unexpected content %q", data)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("expected mode 0640, got %v", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteAtomicFailsOnDirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "taken")
	if err := os.MkdirAll(filepath.Join(target, "child"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := WriteAtomic(target, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error when target is a non-empty directory")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp file not cleaned up: %v", entries)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"  plain  ":       "plain",
		"a/b\\c:d*e":      "a-b-c-d-e",
		`what?"<is>|this`: "whatisthis",
		"":                "",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResultsFileName(t *testing.T) {
	if got := ResultsFileName("/footage/I-90 east:km12.mp4", "job-7"); got != "I-90 east-km12.job-7.json" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := ResultsFileName(".mp4", "job-7"); got != "job-7.json" {
		t.Fatalf("unexpected name for empty stem %q", got)
	}
}

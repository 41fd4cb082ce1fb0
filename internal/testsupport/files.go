package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"roadeye/internal/registry"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// MediaFile writes a file of size bytes named name under dir and returns its
// registry handle.
func MediaFile(t testing.TB, dir, name string, size int64) registry.FileHandle {
	t.Helper()

	path := filepath.Join(dir, name)
	WriteFile(t, path, size)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return registry.FileHandle{
		Name:         info.Name(),
		Size:         info.Size(),
		LastModified: info.ModTime().UnixMilli(),
		Path:         path,
	}
}

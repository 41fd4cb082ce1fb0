// Package registry keeps the ordered, deduplicated set of media files queued
// for submission and keeps the job record store in step with it.
package registry

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"roadeye/internal/jobs"
)

// FileHandle describes one user-selected media file. Path locates the bytes
// for upload and is not part of the identity.
type FileHandle struct {
	Name         string
	Size         int64
	LastModified int64
	Path         string
}

// Key returns the identity of the file: two handles with equal keys are the
// same logical file.
func (f FileHandle) Key() string {
	return fmt.Sprintf("%s-%d-%d", f.Name, f.Size, f.LastModified)
}

// Registry is the ordered set of registered files.
type Registry struct {
	mu         sync.Mutex
	store      *jobs.Store
	extensions map[string]struct{}
	files      []FileHandle
	index      map[string]int
}

// New constructs a Registry that mirrors membership into store. extensions
// lists accepted file extensions (with leading dot); files with a video MIME
// type are accepted regardless.
func New(store *jobs.Store, extensions []string) *Registry {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &Registry{
		store:      store,
		extensions: allowed,
		index:      make(map[string]int),
	}
}

// IsMedia reports whether name looks like a media file the service accepts.
func (r *Registry) IsMedia(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	if _, ok := r.extensions[ext]; ok {
		return true
	}
	return strings.HasPrefix(mime.TypeByExtension(ext), "video/")
}

// Register merges files into the registry. Non-media files are dropped;
// re-seen keys keep their position but take the new content; new keys are
// appended and get a Queued job record. It returns the handles that were new.
func (r *Registry) Register(files ...FileHandle) []FileHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []FileHandle
	for _, f := range files {
		if !r.IsMedia(f.Name) {
			continue
		}
		key := f.Key()
		if pos, ok := r.index[key]; ok {
			r.files[pos] = f
			continue
		}
		r.index[key] = len(r.files)
		r.files = append(r.files, f)
		added = append(added, f)
		r.store.Ensure(key, f.Name)
	}
	return added
}

// Remove drops the file at index and deletes its job record. Out-of-range
// indexes are ignored.
func (r *Registry) Remove(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.files) {
		return
	}
	key := r.files[index].Key()
	r.files = append(r.files[:index], r.files[index+1:]...)
	delete(r.index, key)
	for i := index; i < len(r.files); i++ {
		r.index[r.files[i].Key()] = i
	}
	r.store.Delete(key)
}

// Files returns a copy of the registered files in insertion order.
func (r *Registry) Files() []FileHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FileHandle, len(r.files))
	copy(out, r.files)
	return out
}

// Lookup returns the registered handle for key.
func (r *Registry) Lookup(key string) (FileHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.index[key]
	if !ok {
		return FileHandle{}, false
	}
	return r.files[pos], true
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

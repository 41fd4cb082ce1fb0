package intake

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"roadeye/internal/registry"
)

// HandleFromPath builds a file handle from the file at path.
func HandleFromPath(path string) (registry.FileHandle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return registry.FileHandle{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return registry.FileHandle{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return registry.FileHandle{}, fmt.Errorf("%s is a directory", path)
	}
	return registry.FileHandle{
		Name:         info.Name(),
		Size:         info.Size(),
		LastModified: info.ModTime().UnixMilli(),
		Path:         abs,
	}, nil
}

// Collect expands paths into file handles. Directories contribute their
// visible files, descending into subdirectories when recursive is set.
// Media filtering is left to the registry.
func Collect(paths []string, recursive bool) ([]registry.FileHandle, error) {
	var out []registry.FileHandle
	var errs []error
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("stat %s: %w", path, err))
			continue
		}
		if !info.IsDir() {
			handle, err := HandleFromPath(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, handle)
			continue
		}
		handles, err := collectDir(path, recursive)
		if err != nil {
			errs = append(errs, err)
		}
		out = append(out, handles...)
	}
	return out, errors.Join(errs...)
}

func collectDir(root string, recursive bool) ([]registry.FileHandle, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(files)

	handles := make([]registry.FileHandle, 0, len(files))
	for _, path := range files {
		handle, err := HandleFromPath(path)
		if err != nil {
			continue
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~")
}

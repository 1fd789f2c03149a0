// Package fileutil locates movie and cast files on case-insensitive terms.
//
// Movies store linked cast paths in the authoring machine's form
// ("HD:Movies:Shared.cst" or "C:\Movies\Shared.cxt"); the player looks the
// base name up next to the movie, ignoring case and trying the protected
// cast extensions.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem is the file access used by movie loading. RealFS reads from
// disk; DirFS wraps any fs.FS (tests use fstest.MapFS).
type FileSystem interface {
	// ReadFile reads a file, ignoring case in its base name.
	ReadFile(name string) ([]byte, error)
	// FindFile looks filename up in dir ignoring case and returns the
	// actual path.
	FindFile(dir, filename string) (string, error)
}

// castExtensions are tried, in order, when the stored name is not found.
var castExtensions = []string{".cst", ".cxt", ".cct"}

// FindFileCaseInsensitive searches dir for filename, ignoring case.
//
// Example:
//
//	path, err := FindFileCaseInsensitive("/path/to/dir", "Shared.CST")
//	// finds "shared.cst", "SHARED.CST", ...
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	if name, ok := matchEntry(entries, filename); ok {
		return filepath.Join(dir, name), nil
	}
	return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
}

// FindFileCaseInsensitiveFS is FindFileCaseInsensitive over an fs.FS.
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	if name, ok := matchEntry(entries, filename); ok {
		return path.Join(dir, name), nil
	}
	return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
}

func matchEntry(entries []fs.DirEntry, filename string) (string, bool) {
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return entry.Name(), true
		}
	}
	return "", false
}

// BaseName strips a stored cast path down to its file name. Mac (':')
// and Windows ('\') separators are both accepted.
func BaseName(stored string) string {
	i := strings.LastIndexAny(stored, `:\/`)
	return stored[i+1:]
}

// ResolveCast finds the file for a linked cast path relative to dir. The
// stored name is tried first, then with each protected cast extension.
func ResolveCast(fsys FileSystem, dir, stored string) (string, error) {
	base := BaseName(stored)
	if base == "" {
		return "", fmt.Errorf("empty cast path %q", stored)
	}
	candidates := []string{base}
	stem := strings.TrimSuffix(base, path.Ext(base))
	for _, ext := range castExtensions {
		candidates = append(candidates, stem+ext)
	}
	var firstErr error
	for _, c := range candidates {
		found, err := fsys.FindFile(dir, c)
		if err == nil {
			return found, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", fmt.Errorf("resolve cast %q: %w", stored, firstErr)
}

// RealFS reads from the operating system, relative to basePath.
type RealFS struct {
	basePath string
}

// NewRealFS returns a RealFS rooted at basePath; "" uses paths as given.
func NewRealFS(basePath string) *RealFS {
	return &RealFS{basePath: basePath}
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	p := r.resolvePath(name)
	if _, err := os.Stat(p); err == nil {
		return os.ReadFile(p)
	}
	actual, err := FindFileCaseInsensitive(filepath.Dir(p), filepath.Base(p))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(actual)
}

func (r *RealFS) FindFile(dir, filename string) (string, error) {
	searchDir := dir
	if r.basePath != "" && !filepath.IsAbs(dir) {
		searchDir = filepath.Join(r.basePath, dir)
	}
	return FindFileCaseInsensitive(searchDir, filename)
}

func (r *RealFS) resolvePath(name string) string {
	if filepath.IsAbs(name) || r.basePath == "" {
		return name
	}
	return filepath.Join(r.basePath, name)
}

// DirFS is a FileSystem over an fs.FS.
type DirFS struct {
	fsys fs.FS
}

// NewDirFS wraps fsys.
func NewDirFS(fsys fs.FS) *DirFS {
	return &DirFS{fsys: fsys}
}

func (d *DirFS) ReadFile(name string) ([]byte, error) {
	name = strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "/")
	if b, err := fs.ReadFile(d.fsys, name); err == nil {
		return b, nil
	}
	actual, err := FindFileCaseInsensitiveFS(d.fsys, path.Dir(name), path.Base(name))
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(d.fsys, actual)
}

func (d *DirFS) FindFile(dir, filename string) (string, error) {
	if dir == "" {
		dir = "."
	}
	return FindFileCaseInsensitiveFS(d.fsys, path.Clean(filepath.ToSlash(dir)), filename)
}

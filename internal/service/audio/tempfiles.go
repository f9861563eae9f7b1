package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// TempFiles hands out temporary WAV paths and tracks them until removed,
// so an owner can release everything it still holds on any exit path.
type TempFiles struct {
	dir    string
	prefix string

	mu    sync.Mutex
	paths map[string]struct{}
}

// NewTempFiles creates a tracker for files named <prefix>-<kind>-<uuid>.wav in dir.
func NewTempFiles(dir, prefix string) *TempFiles {
	if dir == "" {
		dir = os.TempDir()
	}
	if prefix == "" {
		prefix = "dictation"
	}
	return &TempFiles{dir: dir, prefix: prefix, paths: make(map[string]struct{})}
}

// New returns a fresh tracked path. The file itself is created by whoever writes it.
func (t *TempFiles) New(kind string) string {
	p := filepath.Join(t.dir, fmt.Sprintf("%s-%s-%s.wav", t.prefix, kind, uuid.NewString()))
	t.mu.Lock()
	t.paths[p] = struct{}{}
	t.mu.Unlock()
	return p
}

// Remove deletes path and stops tracking it. A file that never got
// written is not an error.
func (t *TempFiles) Remove(path string) error {
	t.mu.Lock()
	delete(t.paths, path)
	t.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAll deletes every tracked path.
func (t *TempFiles) RemoveAll() error {
	var errs []error
	for _, p := range t.Pending() {
		if err := t.Remove(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending lists tracked paths in lexical order.
func (t *TempFiles) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.paths))
	for p := range t.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Glob is the pattern matching every file this tracker can create.
func (t *TempFiles) Glob() string {
	return filepath.Join(t.dir, t.prefix+"-*.wav")
}

// Dir returns the directory files are created in.
func (t *TempFiles) Dir() string {
	return t.dir
}

package emit

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/alnah/go-snap2pdf/internal/fileutil"
)

// StdoutLocation is the location reported by WriterSaver.
const StdoutLocation = "-"

// Saver delivers an encoded artifact and reports where it went.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (location string, err error)
}

// Compile-time interface checks.
var (
	_ Saver = (*DirSaver)(nil)
	_ Saver = (*WriterSaver)(nil)
)

// DirSaver writes artifacts atomically into Dir, creating it when missing.
// An empty Dir means the current directory.
type DirSaver struct {
	Dir string
}

// Save implements Saver.
func (s *DirSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if filepath.Base(name) != name {
		return "", fmt.Errorf("%w: name %q is not a single path component", ErrSaveFailed, name)
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name)
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return path, nil
}

// WriterSaver streams artifacts to W, one after another.
type WriterSaver struct {
	mu sync.Mutex
	W  io.Writer
}

// Save implements Saver.
func (s *WriterSaver) Save(ctx context.Context, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.W.Write(data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return StdoutLocation, nil
}

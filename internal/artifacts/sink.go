// Package artifacts writes report tables and pose files to a local
// directory, an S3 bucket, or both.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidName is returned for artifact names that are absolute or leave
// the sink root.
var ErrInvalidName = errors.New("invalid artifact name")

// Sink stores named artifacts. Names are slash-separated relative paths
// such as "tables/kinetics_POPC.csv".
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
}

func cleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// LocalSink writes artifacts below Root.
type LocalSink struct {
	Root string
}

// NewLocalSink creates a sink rooted at dir.
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{Root: dir}
}

// Put writes data to Root/name, creating parent directories.
func (s *LocalSink) Put(_ context.Context, name string, data []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	target := filepath.Join(s.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", clean, err)
	}
	return nil
}

// Mirror puts every artifact to all sinks in order. A failing sink does
// not stop the others; the errors are joined.
type Mirror []Sink

// Put writes to every sink.
func (m Mirror) Put(ctx context.Context, name string, data []byte) error {
	var errs []error
	for _, s := range m {
		if err := s.Put(ctx, name, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemorySink keeps artifacts in memory.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Put stores a copy of data.
func (s *MemorySink) Put(_ context.Context, name string, data []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[clean] = append([]byte(nil), data...)
	return nil
}

// Get returns the stored artifact.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.files[name]
	return b, ok
}

// Names returns the stored names in sorted order.
func (s *MemorySink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for n := range s.files {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

var (
	_ Sink = (*LocalSink)(nil)
	_ Sink = Mirror(nil)
	_ Sink = (*MemorySink)(nil)
)

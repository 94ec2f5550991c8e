// SourceCache reads library sources and prebuilt dependency bundles through
// memory-mapped files.
//
// **Behavior:**
//   - Files are mapped read-only on first access and kept in a bounded LRU
//   - Every read stats the file; a changed size or mtime remaps it, so a
//     long-lived cache (watch mode) never serves stale text
//   - Falls back to os.ReadFile when mmap fails
//   - ReadFile returns a private copy, so eviction never invalidates bytes
//     already handed out
//
// **Thread Safety:**
//   - Safe for concurrent use; loads are serialized per cache
package util

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SourceCacheConfig controls SourceCache behavior.
type SourceCacheConfig struct {
	// MaxFiles is the number of mapped files kept before the least recently
	// used one is unmapped. Zero means DefaultSourceCacheConfig's value.
	MaxFiles int

	// Logger for mmap fallbacks and unmap failures. If nil, uses slog.Default().
	Logger *slog.Logger
}

// DefaultSourceCacheConfig returns defaults sized for a library of a few
// hundred files plus its dependency bundles.
func DefaultSourceCacheConfig() SourceCacheConfig {
	return SourceCacheConfig{MaxFiles: 512}
}

// SourceCacheStats tracks cache performance.
type SourceCacheStats struct {
	Hits         int64
	Misses       int64
	Reloads      int64
	Evictions    int64
	MmapFailures int64
}

type mappedSource struct {
	data    mmap.MMap
	file    *os.File
	bytes   []byte // set instead of data for empty files and mmap fallbacks
	size    int64
	modTime time.Time
}

func (m *mappedSource) contents() []byte {
	if m.data != nil {
		return m.data
	}
	return m.bytes
}

func (m *mappedSource) release() error {
	var errs []error
	if m.data != nil {
		if err := m.data.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		m.data = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
		m.file = nil
	}
	return errors.Join(errs...)
}

// SourceCache is a bounded cache of memory-mapped source files.
type SourceCache struct {
	mu     sync.Mutex
	files  *lru.Cache[string, *mappedSource]
	logger *slog.Logger

	stats   SourceCacheStats
	statsMu sync.Mutex
}

// NewSourceCache creates a SourceCache. Call Close when done to unmap
// everything still cached.
func NewSourceCache(config SourceCacheConfig) (*SourceCache, error) {
	if config.MaxFiles <= 0 {
		config.MaxFiles = DefaultSourceCacheConfig().MaxFiles
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sc := &SourceCache{logger: logger}
	files, err := lru.NewWithEvict(config.MaxFiles, func(path string, m *mappedSource) {
		if err := m.release(); err != nil {
			sc.logger.Warn("failed to release cached source", "path", path, "error", err)
		}
		sc.count(func(s *SourceCacheStats) { s.Evictions++ })
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create source cache: %w", err)
	}
	sc.files = files
	return sc, nil
}

// ReadFile returns the content of path.
func (sc *SourceCache) ReadFile(path string) ([]byte, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		sc.count(func(s *SourceCacheStats) { s.Misses++ })
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q is a directory", path)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if m, ok := sc.files.Get(path); ok {
		if m.size == info.Size() && m.modTime.Equal(info.ModTime()) {
			sc.count(func(s *SourceCacheStats) { s.Hits++ })
			return clone(m.contents()), nil
		}
		sc.files.Remove(path)
		sc.count(func(s *SourceCacheStats) { s.Reloads++ })
	} else {
		sc.count(func(s *SourceCacheStats) { s.Misses++ })
	}

	m, err := sc.load(path, info)
	if err != nil {
		return nil, err
	}
	sc.files.Add(path, m)
	return clone(m.contents()), nil
}

// Text is ReadFile returning a string.
func (sc *SourceCache) Text(path string) (string, error) {
	data, err := sc.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (sc *SourceCache) load(path string, info os.FileInfo) (*mappedSource, error) {
	m := &mappedSource{size: info.Size(), modTime: info.ModTime()}
	if info.Size() == 0 {
		m.bytes = []byte{}
		return m, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		sc.logger.Warn("mmap failed, using fallback", "file", path, "size", info.Size(), "error", err)
		sc.count(func(s *SourceCacheStats) { s.MmapFailures++ })

		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, readErr)
		}
		m.bytes = raw
		return m, nil
	}

	m.data = data
	m.file = file
	return m, nil
}

// Invalidate unmaps path if it is cached.
func (sc *SourceCache) Invalidate(path string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.files.Remove(filepath.Clean(path))
}

// Len returns the number of cached files.
func (sc *SourceCache) Len() int {
	return sc.files.Len()
}

// Stats returns a snapshot of the cache counters.
func (sc *SourceCache) Stats() SourceCacheStats {
	sc.statsMu.Lock()
	defer sc.statsMu.Unlock()
	return sc.stats
}

// Close unmaps every cached file.
func (sc *SourceCache) Close() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.files.Purge()
	stats := sc.Stats()
	sc.logger.Debug("SourceCache closed",
		"hits", stats.Hits,
		"misses", stats.Misses,
		"reloads", stats.Reloads,
		"mmap_failures", stats.MmapFailures)
	return nil
}

func (sc *SourceCache) count(update func(*SourceCacheStats)) {
	sc.statsMu.Lock()
	update(&sc.stats)
	sc.statsMu.Unlock()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

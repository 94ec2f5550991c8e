// Tests for SourceCache with mmap-based file access.
package util

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestCache(t *testing.T, maxFiles int) *SourceCache {
	t.Helper()
	cache, err := NewSourceCache(SourceCacheConfig{MaxFiles: maxFiles})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestSourceCache_BasicOperations(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "a.js", "'use strict';\n\nconst a = 1;\n")
	cache := newTestCache(t, 0)

	data, err := cache.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "'use strict';\n\nconst a = 1;\n", string(data))
	assert.Equal(t, 1, cache.Len())

	text, err := cache.Text(path)
	require.NoError(t, err)
	assert.Equal(t, string(data), text)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestSourceCache_ReturnsPrivateCopy(t *testing.T) {
	path := writeSource(t, t.TempDir(), "a.js", "abc")
	cache := newTestCache(t, 0)

	first, err := cache.ReadFile(path)
	require.NoError(t, err)
	first[0] = 'X'

	second, err := cache.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(second))
}

func TestSourceCache_ReloadsChangedFile(t *testing.T) {
	path := writeSource(t, t.TempDir(), "a.js", "one")
	cache := newTestCache(t, 0)

	_, err := cache.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("three"), 0644))
	data, err := cache.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "three", string(data))
	assert.Equal(t, int64(1), cache.Stats().Reloads)
}

func TestSourceCache_EvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.js", "a")
	b := writeSource(t, dir, "b.js", "b")
	cache := newTestCache(t, 1)

	_, err := cache.ReadFile(a)
	require.NoError(t, err)
	_, err = cache.ReadFile(b)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, int64(1), cache.Stats().Evictions)

	data, err := cache.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestSourceCache_EmptyFile(t *testing.T) {
	path := writeSource(t, t.TempDir(), "empty.js", "")
	cache := newTestCache(t, 0)

	data, err := cache.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSourceCache_FileNotFound(t *testing.T) {
	cache := newTestCache(t, 0)

	_, err := cache.ReadFile(filepath.Join(t.TempDir(), "missing.js"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSourceCache_Invalidate(t *testing.T) {
	path := writeSource(t, t.TempDir(), "a.js", "a")
	cache := newTestCache(t, 0)

	_, err := cache.ReadFile(path)
	require.NoError(t, err)
	cache.Invalidate(path)
	assert.Equal(t, 0, cache.Len())
}

func TestSourceCache_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeSource(t, dir, "a.js", "a"),
		writeSource(t, dir, "b.js", "bb"),
		writeSource(t, dir, "c.js", "ccc"),
	}
	cache := newTestCache(t, 2)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := paths[i%len(paths)]
			data, err := cache.ReadFile(path)
			assert.NoError(t, err)
			assert.Len(t, data, i%len(paths)+1)
		}(i)
	}
	wg.Wait()
}

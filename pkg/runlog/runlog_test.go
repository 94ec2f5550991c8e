package runlog

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/bundlekit/pkg/diag"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestNewLogger_EmptyPathDisabled(t *testing.T) {
	l, err := NewLogger("")
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.NoError(t, l.Write(Entry{Kind: KindBuild}))
	assert.NoError(t, l.Close())
}

func TestLogger_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.jsonl")
	l, err := NewLogger(path)
	require.NoError(t, err)

	require.NoError(t, l.Write(Entry{Ts: "t1", Kind: KindBuild, Name: "build", Mode: "lib", Files: 3, Imports: 2}))
	require.NoError(t, l.Write(Entry{Ts: "t2", Kind: KindTool, Name: "scan_declarations"}))
	require.NoError(t, l.Close())

	l, err = NewLogger(path)
	require.NoError(t, err)
	require.NoError(t, l.Write(Entry{Ts: "t3", Kind: KindBuild, Name: "build"}))
	require.NoError(t, l.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 3)
	assert.Equal(t, "lib", entries[0].Mode)
	assert.Equal(t, 3, entries[0].Files)
	assert.Equal(t, "scan_declarations", entries[1].Name)
	assert.Equal(t, "t3", entries[2].Ts)
}

func TestLogger_ErrorFieldAlwaysPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	l, err := NewLogger(path)
	require.NoError(t, err)
	require.NoError(t, l.Write(Entry{Kind: KindBuild}))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":null`)
	assert.True(t, strings.HasSuffix(string(data), "\n"))
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	l, err := NewLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Write(Entry{Kind: KindTool, Name: "preview_bundle"}))
		}()
	}
	wg.Wait()
	require.NoError(t, l.Close())

	assert.Len(t, readEntries(t, path), 50)
}

func TestEntry_Finish(t *testing.T) {
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	now := base
	Now = func() time.Time { return now }
	t.Cleanup(func() { Now = time.Now })

	e, start := Start(KindBuild, "build")
	assert.Equal(t, "2024-01-02T03:04:05Z", e.Ts)

	c := diag.NewCollector()
	diag.Warnf(c, "a.js", 1, "w")
	diag.Warnf(c, "a.js", 2, "w")
	diag.Errorf(c, "a.js", 3, "e")
	now = base.Add(150 * time.Millisecond)

	e.Finish(start, c, errors.New("boom"))
	assert.Equal(t, int64(150), e.DurationMs)
	assert.Equal(t, 2, e.Warnings)
	assert.Equal(t, 1, e.Errors)
	require.NotNil(t, e.Error)
	assert.Equal(t, "boom", *e.Error)
}

func TestSanitizeParams(t *testing.T) {
	out := SanitizeParams(map[string]any{
		"name":   "a.js",
		"source": strings.Repeat("x", 200),
		"strip":  true,
	})
	assert.Equal(t, "a.js", out["name"])
	assert.Equal(t, 200, out["source_len"])
	assert.NotContains(t, out, "source")
	assert.Equal(t, true, out["strip"])

	assert.Empty(t, SanitizeParams(nil))
}

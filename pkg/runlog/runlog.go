// Package runlog appends one JSON line per build or MCP tool call.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/gnana997/bundlekit/pkg/diag"
)

// Entry kinds.
const (
	KindBuild = "build"
	KindTool  = "tool"
)

// Entry is the schema of one line.
type Entry struct {
	Ts         string         `json:"ts"`
	Kind       string         `json:"kind"`
	Name       string         `json:"name"`
	Mode       string         `json:"mode,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Files      int            `json:"files"`
	Imports    int            `json:"imports"`
	Warnings   int            `json:"warnings"`
	Errors     int            `json:"errors"`
	Params     map[string]any `json:"params,omitempty"`
	Error      *string        `json:"error"`
}

// Start returns an entry stamped with the current time.
func Start(kind, name string) (Entry, time.Time) {
	start := Now()
	return Entry{Ts: start.UTC().Format(time.RFC3339), Kind: kind, Name: name}, start
}

// Finish fills the duration, the diagnostic counts of c (when not nil) and
// err.
func (e *Entry) Finish(start time.Time, c *diag.Collector, err error) {
	e.DurationMs = Now().Sub(start).Milliseconds()
	if c != nil {
		e.Warnings = c.Count(diag.LevelWarn)
		e.Errors = c.Count(diag.LevelError)
	}
	if err != nil {
		msg := err.Error()
		e.Error = &msg
	}
}

// Logger appends entries to a file. It is safe for concurrent use, and a
// nil *Logger discards everything.
type Logger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewLogger opens path for appending, creating parent directories. An empty
// path returns a nil Logger.
func NewLogger(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("runlog: create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("runlog: open log file: %w", err)
	}
	return &Logger{f: f, enc: json.NewEncoder(f)}, nil
}

// Write appends entry as one line.
func (l *Logger) Write(entry Entry) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(entry)
}

// Close closes the file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// SanitizeParams copies args for logging. Strings longer than 64 bytes,
// typically source text, are replaced by a "<key>_len" entry.
func SanitizeParams(args map[string]any) map[string]any {
	const shortStringMax = 64
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && len(s) > shortStringMax {
			out[k+"_len"] = len(s)
		} else {
			out[k] = v
		}
	}
	return out
}

// Now is replaced in tests.
var Now = time.Now

// Package diag carries leveled build diagnostics from the bundling pipeline
// to whoever is interested: a console printer, slog, a test collector.
//
// Every pipeline component receives a Sink explicitly. Nothing in this
// repository writes diagnostics to a process-wide logger on its own.
package diag

import (
	"fmt"
	"sync"
)

// Level is the severity of a diagnostic.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelSuccess
)

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalText renders the level name in JSON output.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Diagnostic is one message produced while building a bundle.
//
// File and Line are optional; Line is 1-based and zero when unknown.
type Diagnostic struct {
	Level   Level  `json:"level"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// Position renders "file:line", "file" or "" depending on what is known.
func (d Diagnostic) Position() string {
	switch {
	case d.File != "" && d.Line > 0:
		return fmt.Sprintf("%s:%d", d.File, d.Line)
	default:
		return d.File
	}
}

// String renders the diagnostic without colour or level prefix.
func (d Diagnostic) String() string {
	if pos := d.Position(); pos != "" {
		return pos + ": " + d.Message
	}
	return d.Message
}

// Sink receives diagnostics. Implementations must be safe for concurrent use.
type Sink interface {
	Report(d Diagnostic)
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}

// Errorf reports an error-level diagnostic to s.
func Errorf(s Sink, file string, line int, format string, args ...any) {
	report(s, LevelError, file, line, format, args...)
}

// Warnf reports a warning to s.
func Warnf(s Sink, file string, line int, format string, args ...any) {
	report(s, LevelWarn, file, line, format, args...)
}

// Infof reports an informational message to s.
func Infof(s Sink, format string, args ...any) {
	report(s, LevelInfo, "", 0, format, args...)
}

// Successf reports a success message to s.
func Successf(s Sink, format string, args ...any) {
	report(s, LevelSuccess, "", 0, format, args...)
}

func report(s Sink, level Level, file string, line int, format string, args ...any) {
	if s == nil {
		return
	}
	s.Report(Diagnostic{
		Level:   level,
		File:    file,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

// Collector records diagnostics in arrival order.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report implements Sink.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// All returns a copy of everything recorded so far.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Filter returns the recorded diagnostics of one level.
func (c *Collector) Filter(level Level) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Diagnostic
	for _, d := range c.items {
		if d.Level == level {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many diagnostics of the given level were recorded.
func (c *Collector) Count(level Level) int {
	return len(c.Filter(level))
}

// Reset forgets everything recorded.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Tee fans a diagnostic out to several sinks.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Report(d Diagnostic) {
	for _, s := range t {
		if s != nil {
			s.Report(d)
		}
	}
}

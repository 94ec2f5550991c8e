package diag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorGreen  = "\x1b[32m"
	colorBlue   = "\x1b[34m"
)

// Printer writes human-readable diagnostics, one per line:
//
//	Error: lib/a.js:3: Node built-in require is not allowed in bundle sources
//	Warning: lib/b.js:1: Node built-in module imported from bundle source: fs
//
// Errors and warnings go to Err, info and success lines go to Out.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Color bool

	mu sync.Mutex
}

// NewPrinter returns a Printer on stdout/stderr. Colour is enabled when
// stderr is a terminal.
func NewPrinter() *Printer {
	return &Printer{
		Out:   os.Stdout,
		Err:   os.Stderr,
		Color: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Report implements Sink.
func (p *Printer) Report(d Diagnostic) {
	color, prefix := decorate(d.Level)
	w := p.Out
	if d.Level == LevelError || d.Level == LevelWarn {
		w = p.Err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Color {
		fmt.Fprintf(w, "%s%s%s %s\n", color, prefix, colorReset, d.String())
		return
	}
	fmt.Fprintf(w, "%s %s\n", prefix, d.String())
}

func decorate(level Level) (color, prefix string) {
	switch level {
	case LevelError:
		return colorRed, "Error:"
	case LevelWarn:
		return colorYellow, "Warning:"
	case LevelSuccess:
		return colorGreen, "Success:"
	default:
		return colorBlue, "Info:"
	}
}

// SlogSink forwards diagnostics to a structured logger. Success is logged
// at info level with success=true.
type SlogSink struct {
	Logger *slog.Logger
}

// Report implements Sink.
func (s SlogSink) Report(d Diagnostic) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{}
	if d.File != "" {
		attrs = append(attrs, slog.String("file", d.File))
	}
	if d.Line > 0 {
		attrs = append(attrs, slog.Int("line", d.Line))
	}

	level := slog.LevelInfo
	switch d.Level {
	case LevelError:
		level = slog.LevelError
	case LevelWarn:
		level = slog.LevelWarn
	case LevelSuccess:
		attrs = append(attrs, slog.Bool("success", true))
	}
	logger.LogAttrs(context.Background(), level, d.Message, attrs...)
}

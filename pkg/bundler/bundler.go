// Package bundler concatenates library sources into one bundle body.
//
// A run processes the files of the manifest strictly in order. Each file
// loses its leading 'use strict' directive and its module declarations, has
// its trailing export rewritten according to the export policy, and is
// wrapped in a region marker. The external imports of all files are merged
// into one registry whose statements head the bundle.
package bundler

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/exports"
	"github.com/gnana997/bundlekit/pkg/imports"
)

// ExportPolicy decides what happens to each file's trailing export.
type ExportPolicy int

const (
	// ExportAggregate rewrites it to an ESM export statement.
	ExportAggregate ExportPolicy = iota
	// ExportStrip removes it and collects the names for later synthesis.
	ExportStrip
)

// Package is the identity of the library being bundled.
type Package struct {
	Name    string
	Version string
}

// ShortName is the package name without its scope.
func (p Package) ShortName() string {
	if i := strings.LastIndexByte(p.Name, '/'); i >= 0 {
		return p.Name[i+1:]
	}
	return p.Name
}

// License is the attribution shown in the bundle header.
type License struct {
	Name      string
	Copyright string
}

// Config is everything one bundling run needs.
type Config struct {
	// Order lists source files relative to LibDir. It is used as given.
	Order   []string
	LibDir  string
	Package Package
	License License
	Exports ExportPolicy
	Imports imports.EmitOptions
}

// Source reads files. *util.SourceCache satisfies it.
type Source interface {
	ReadFile(path string) ([]byte, error)
}

// OSSource reads straight from disk.
type OSSource struct{}

// ReadFile implements Source.
func (OSSource) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Result is the output of one run.
type Result struct {
	Header        string
	ImportsBlock  string
	BundleContent string
	Registry      *imports.Registry
	Exports       []exports.Export
}

// ExportNames returns the public names collected under ExportStrip.
func (r *Result) ExportNames() []string {
	return exports.Names(r.Exports)
}

// Library is header, import block and body: the library artifact.
func (r *Result) Library() string {
	return r.Header + r.ImportsBlock + r.BundleContent
}

// Bundler runs the bundling pipeline. A Bundler may be reused; every call
// to Generate starts from an empty registry.
type Bundler struct {
	config Config
	source Source
	sink   diag.Sink
	logger *slog.Logger
}

// New creates a Bundler. A nil source reads from disk, a nil sink discards
// diagnostics and a nil logger uses slog.Default().
func New(config Config, source Source, sink diag.Sink, logger *slog.Logger) *Bundler {
	if source == nil {
		source = OSSource{}
	}
	if sink == nil {
		sink = diag.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bundler{config: config, source: source, sink: sink, logger: logger}
}

// Generate bundles every file of the configured order. Any read failure
// aborts the run and nothing is returned.
func (b *Bundler) Generate() (*Result, error) {
	registry := imports.NewRegistry()
	scanner := imports.NewScanner(registry, b.sink)
	var collected []exports.Export

	chunks := make([]string, 0, len(b.config.Order))
	for _, name := range b.config.Order {
		raw, err := b.source.ReadFile(filepath.Join(b.config.LibDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read source %s: %w", name, err)
		}

		text, list := b.processFile(scanner, name, string(raw))
		collected = append(collected, list...)
		chunks = append(chunks, WrapRegion(name, text))
		b.logger.Debug("file bundled", "file", name, "imports", registry.Len())
	}

	return &Result{
		Header:        Header(b.config.Package, b.config.License),
		ImportsBlock:  registry.Block(b.config.Imports),
		BundleContent: CollapseBlankLines(strings.Join(chunks, "\n")),
		Registry:      registry,
		Exports:       collected,
	}, nil
}

func (b *Bundler) processFile(scanner *imports.Scanner, name, text string) (string, []exports.Export) {
	// Scan first so diagnostics carry the line numbers of the file on disk.
	text = scanner.Scan(imports.SourceFile{Name: name, Text: text})
	text = StripUseStrict(text)

	switch b.config.Exports {
	case ExportStrip:
		stripped, list, err := exports.Strip(text)
		if err != nil {
			b.reportExport(name, err)
			return text, nil
		}
		return stripped, list
	default:
		rewritten, err := exports.Rewrite(text, exports.TargetAggregate)
		if err != nil {
			b.reportExport(name, err)
		}
		return rewritten, nil
	}
}

func (b *Bundler) reportExport(name string, err error) {
	if errors.Is(err, exports.ErrUnsupportedExport) {
		diag.Warnf(b.sink, name, 0, "export kept as is: %v", err)
		return
	}
	diag.Errorf(b.sink, name, 0, "export rewrite failed: %v", err)
}

var (
	useStrict = regexp.MustCompile(`^((?:[ \t\r\n]*(?://[^\n]*\n|/\*(?s:.*?)\*/[ \t]*\r?\n?))*)` +
		`[ \t\r\n]*(?:'use strict'|"use strict");?[ \t]*\r?\n?(?:[ \t]*\r?\n)?`)

	blankLines = regexp.MustCompile(`\n{3,}`)
)

// StripUseStrict removes a leading 'use strict' directive and the blank line
// following it. Comments above the directive are kept.
func StripUseStrict(text string) string {
	loc := useStrict.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[3]] + text[loc[1]:]
}

// WrapRegion wraps one file's contribution in region markers.
func WrapRegion(name, content string) string {
	return "//#region " + name + "\n" + content + "\n//#endregion\n"
}

// CollapseBlankLines turns every run of three or more newlines into two, so
// at most one blank line separates any two lines. It is idempotent.
func CollapseBlankLines(text string) string {
	return blankLines.ReplaceAllString(text, "\n\n")
}

// Header renders the bundle header. The copyright line is left out when
// there is none.
func Header(pkg Package, license License) string {
	var b strings.Builder
	if license.Copyright != "" {
		b.WriteString("// " + license.Copyright + "\n")
	}
	fmt.Fprintf(&b, "// Version %s %s %s\n\n", pkg.Version, pkg.ShortName(), license.Name)
	return b.String()
}

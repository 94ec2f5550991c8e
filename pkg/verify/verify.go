// Package verify parses built artifacts with tree-sitter and reports
// problems the text-level bundler cannot see: syntax errors, require calls
// that survived bundling and module syntax left inside an IIFE bundle.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/parser"
	"github.com/gnana997/bundlekit/pkg/parser/queries"
	"github.com/gnana997/bundlekit/pkg/util"
)

// Rule names.
const (
	RuleSyntaxError        = "syntax-error"
	RuleLeftoverRequire    = "leftover-require"
	RuleModuleSyntaxInIIFE = "module-syntax-in-iife"
)

const (
	maxSyntaxErrorsPerFile = 20
	maxSnippetLen          = 60
)

// Severity of a violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is one finding in one file.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%d:%d: %s [%s]", v.File, v.Line, v.Column, v.Message, v.Rule)
}

// Report converts v to a diagnostic on sink.
func (v Violation) Report(sink diag.Sink) {
	msg := fmt.Sprintf("%s (column %d) [%s]", v.Message, v.Column, v.Rule)
	if v.Severity == SeverityError {
		diag.Errorf(sink, v.File, v.Line, "%s", msg)
		return
	}
	diag.Warnf(sink, v.File, v.Line, "%s", msg)
}

// Options controls a verification run.
type Options struct {
	// IIFE makes module syntax a violation. When false it is detected from
	// the closure wrapper at the top of each JavaScript file.
	IIFE bool
	// Concurrency bounds parallel file checks. 0 uses the CPU-derived default.
	Concurrency int
}

// Verifier checks artifacts. It is safe for concurrent use.
type Verifier struct {
	parsers *parser.ParserManager
	queries *queries.QueryManager
	logger  *slog.Logger
}

// New creates a Verifier. Close releases its parsers.
func New(logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	pm := parser.NewParserManager(logger, 0)
	return &Verifier{
		parsers: pm,
		queries: queries.NewQueryManager(pm, logger),
		logger:  logger,
	}
}

// Close frees parsers and compiled queries.
func (v *Verifier) Close() error {
	stats := v.parsers.GetStats()
	v.logger.Debug("verifier closed", "parsers", stats.ParsersCreated, "parses", stats.ParsesCalled)
	v.queries.Close()
	return v.parsers.Close()
}

var iifeWrapper = regexp.MustCompile(`(?m)^var [A-Za-z_$][\w$]*IIFE = \(function \(exports\) \{`)

// IsIIFE reports whether source is wrapped the way iife mode wraps bundles.
func IsIIFE(source []byte) bool {
	return iifeWrapper.Match(source)
}

// Files verifies every path concurrently. Violations are sorted by file,
// line and column. A file that cannot be read or parsed fails the run.
func (v *Verifier) Files(ctx context.Context, paths []string, opts Options) ([]Violation, error) {
	results := make([][]Violation, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(util.GetOptimalPoolSizeWithOverride(opts.Concurrency))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			found, err := v.Source(path, data, opts)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Violation
	for _, r := range results {
		all = append(all, r...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return all, nil
}

// Source verifies one file's content. The grammar is chosen from name.
// Declaration files are only checked for syntax errors.
func (v *Verifier) Source(name string, source []byte, opts Options) ([]Violation, error) {
	lang := parser.DetectLanguage(name)
	if lang == parser.LanguageUnknown {
		return nil, fmt.Errorf("cannot verify %s: unsupported file type", name)
	}
	if lang == parser.LanguageTypeScript && !parser.IsDeclarationFile(name) {
		return nil, fmt.Errorf("cannot verify %s: only .d.ts TypeScript files ship with a bundle", name)
	}
	tree, err := v.parsers.Parse(source, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	found := syntaxErrors(name, root, source)
	if lang != parser.LanguageJavaScript {
		return found, nil
	}

	iife := opts.IIFE || IsIIFE(source)
	module, err := v.moduleViolations(name, tree, source, iife)
	if err != nil {
		return nil, err
	}
	v.logger.Debug("verified file", "file", name, "iife", iife, "violations", len(found)+len(module))
	return append(found, module...), nil
}

func (v *Verifier) moduleViolations(name string, tree *ts.Tree, source []byte, iife bool) ([]Violation, error) {
	query, err := v.queries.GetQuery(parser.LanguageJavaScript, queries.QueryTypeModule)
	if err != nil {
		return nil, err
	}
	matches, err := v.queries.ExecuteQuery(tree, query, source)
	if err != nil {
		return nil, err
	}

	var found []Violation
	for _, m := range matches {
		if callee, ok := m.Capture("call.callee"); ok {
			if callee.Text != "require" {
				continue
			}
			spec, _ := m.Capture("call.source")
			found = append(found, at(RuleLeftoverRequire, SeverityWarning, name, callee.Location,
				fmt.Sprintf("require(%s) left in bundle", spec.Text)))
			continue
		}
		if !iife {
			continue
		}
		for _, capture := range []string{"module.import", "module.export"} {
			if c, ok := m.Capture(capture); ok {
				found = append(found, at(RuleModuleSyntaxInIIFE, SeverityError, name, c.Location,
					fmt.Sprintf("module syntax inside IIFE bundle: %s", snippet(c.Text))))
			}
		}
	}
	return found, nil
}

// syntaxErrors collects ERROR and MISSING nodes, outermost first.
func syntaxErrors(name string, root *ts.Node, source []byte) []Violation {
	if !root.HasError() {
		return nil
	}
	var found []Violation
	var walk func(n *ts.Node)
	walk = func(n *ts.Node) {
		if len(found) >= maxSyntaxErrorsPerFile {
			return
		}
		switch {
		case n.IsMissing():
			found = append(found, at(RuleSyntaxError, SeverityError, name, queries.NodeLocation(n),
				fmt.Sprintf("missing %s", n.Kind())))
			return
		case n.IsError():
			found = append(found, at(RuleSyntaxError, SeverityError, name, queries.NodeLocation(n),
				fmt.Sprintf("unexpected %s", snippet(n.Utf8Text(source)))))
			return
		case !n.HasError():
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(root)
	return found
}

func at(rule string, sev Severity, file string, loc queries.Location, msg string) Violation {
	return Violation{
		Rule:     rule,
		Severity: sev,
		File:     file,
		Line:     int(loc.StartLine),
		Column:   int(loc.StartColumn),
		Message:  msg,
	}
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxSnippetLen {
		text = text[:maxSnippetLen] + "..."
	}
	return text
}

// Companions returns the declaration file that ships next to a JavaScript
// artifact (<name>.d.ts), when it exists.
func Companions(artifact string) []string {
	base := strings.TrimSuffix(artifact, ".mjs")
	base = strings.TrimSuffix(base, ".js")
	if base == artifact {
		return nil
	}
	dts := base + ".d.ts"
	if _, err := os.Stat(dts); err != nil {
		return nil
	}
	return []string{dts}
}

// HasErrors reports whether any violation is an error.
func HasErrors(list []Violation) bool {
	for _, v := range list {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

package modes

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gnana997/bundlekit/pkg/bundler"
	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/exports"
	"github.com/gnana997/bundlekit/pkg/imports"
)

// IIFE builds a self-contained browser bundle. Every external dependency's
// prebuilt library bundle is inlined, and the public surface is exposed on
// the object returned by the closure:
//
//	var pkgIIFE = (function (exports) {
//	...
//	return exports; })({});
type IIFE struct{}

func (IIFE) sealed() {}

// Name implements Executor.
func (IIFE) Name() string { return "iife" }

// Execute implements Executor.
func (IIFE) Execute(env Env) (*Output, error) {
	p := env.Project
	sink := env.sink()
	b := bundler.New(bundlerConfig(p, bundler.ExportStrip), env.source(), sink, env.logger())
	res, err := b.Generate()
	if err != nil {
		return nil, err
	}

	deps := res.Registry.Specifiers()
	inlined := make(map[string]bool, len(deps))
	for _, dep := range deps {
		inlined[dep] = true
	}

	chunks := make([]string, 0, len(deps))
	for _, dep := range deps {
		text, err := inlineDependency(env, dep, inlined)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, bundler.WrapRegion(dep, text))

		entry, _ := res.Registry.Get(dep)
		for _, name := range entry.DefaultNames() {
			diag.Warnf(sink, "", 0, "default import %s from %s has no binding inside the IIFE; use a named import", name, dep)
		}
	}

	var body strings.Builder
	body.WriteString(strings.Join(chunks, "\n"))
	body.WriteString(res.BundleContent)
	if len(res.Exports) > 0 {
		body.WriteString("\n" + exports.Assignments(res.Exports, exports.SharedNamespace) + "\n")
	}

	content := res.Header + WrapIIFE(p.Package.ShortName(), bundler.CollapseBlankLines(body.String()))
	return &Output{
		Mode:   "iife",
		Result: res,
		Files: []Artifact{{
			Path:    filepath.Join(p.Manifest.OutputPath(), artifactName(p.Package)),
			Content: content,
		}},
	}, nil
}

// DependencyPath is where the prebuilt bundle of dep is expected:
// <nodeModules>/<dep>/<basename(dep)>.mjs.
func DependencyPath(nodeModules, dep string) string {
	return filepath.Join(nodeModules, filepath.FromSlash(dep), path.Base(dep)+".mjs")
}

// inlineDependency loads a dependency bundle and turns its module syntax
// into closure-compatible code.
func inlineDependency(env Env, dep string, inlined map[string]bool) (string, error) {
	file := DependencyPath(env.Project.Manifest.NodeModules(), dep)
	raw, err := env.source().ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read dependency %s: %w", dep, err)
	}

	sink := env.sink()
	scratch := imports.NewRegistry()
	text := imports.NewScanner(scratch, sink).Scan(imports.SourceFile{Name: file, Text: string(raw)})
	for _, transitive := range scratch.Specifiers() {
		if !inlined[transitive] {
			diag.Warnf(sink, file, 0, "dependency %s imports %s, which is not inlined", dep, transitive)
		}
	}

	text, _, err = exports.RewriteAll(text, exports.TargetShared)
	if err != nil {
		diag.Warnf(sink, file, 0, "dependency %s: %v", dep, err)
	}
	return text, nil
}

// WrapIIFE wraps content in the closure bound to <name>IIFE, where name is
// reduced to identifier characters.
func WrapIIFE(name, content string) string {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return "var " + Identifier(name) + "IIFE = (function (exports) {\n" + content + "return exports; })({});\n"
}

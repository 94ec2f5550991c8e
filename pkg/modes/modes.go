// Package modes holds the three bundle shapes a library can be built into.
//
// The set of modes is closed: Lib, IIFE and App are the only Executor
// implementations, and Parse is the only way to get one from a name.
// Executors plan their filesystem work as an Output; Apply performs it.
package modes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gnana997/bundlekit/pkg/bundler"
	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/imports"
	"github.com/gnana997/bundlekit/pkg/manifest"
)

// Env is what an executor works with.
type Env struct {
	Project *manifest.Project
	// Source reads library sources and dependency bundles. Nil reads from disk.
	Source bundler.Source
	Sink   diag.Sink
	Logger *slog.Logger
}

func (e Env) sink() diag.Sink {
	if e.Sink == nil {
		return diag.Discard
	}
	return e.Sink
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e Env) source() bundler.Source {
	if e.Source == nil {
		return bundler.OSSource{}
	}
	return e.Source
}

// Executor produces the Output of one mode.
type Executor interface {
	// Name is the manifest value selecting this mode.
	Name() string
	// Execute plans the artifacts and links of the mode. It touches the
	// filesystem only to read.
	Execute(env Env) (*Output, error)

	sealed()
}

// Parse returns the executor for a manifest mode name.
func Parse(name string) (Executor, error) {
	switch name {
	case "", "lib":
		return Lib{}, nil
	case "iife":
		return IIFE{}, nil
	case "app":
		return App{}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
}

// All returns every executor.
func All() []Executor {
	return []Executor{Lib{}, IIFE{}, App{}}
}

// Names returns the mode names in the order of All.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = e.Name()
	}
	return names
}

// bundlerConfig derives the assembler configuration from the project.
func bundlerConfig(p *manifest.Project, policy bundler.ExportPolicy) bundler.Config {
	m := p.Manifest
	return bundler.Config{
		Order:   m.Order,
		LibDir:  m.LibPath(),
		Package: p.Package,
		License: p.License,
		Exports: policy,
		Imports: imports.EmitOptions{Template: m.ImportTemplate},
	}
}

// artifactName is the file name of a package's bundle.
func artifactName(pkg bundler.Package) string {
	return pkg.ShortName() + ".mjs"
}

// Identifier strips every character that cannot appear in a JavaScript
// identifier from name. A leading digit gets an underscore prefix.
func Identifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '_' || r == '$',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	id := b.String()
	if id != "" && id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	return id
}

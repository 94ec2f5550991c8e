package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/bundlekit/pkg/diag"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// setupProject creates a minimal library layout.
func setupProject(t *testing.T, manifestName, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, manifestName, manifest)
	writeFile(t, dir, "package.json", `{"name": "@metarhia/pkg", "version": "1.0.0"}`)
	writeFile(t, dir, "LICENSE", "MIT License\n\nCopyright (c) 2024 Metarhia contributors\n")
	writeFile(t, dir, "lib/a.js", "const a = 1;")
	writeFile(t, dir, "lib/b.js", "const b = 2;")
	return dir
}

func TestResolvePath_FallbackChain(t *testing.T) {
	dir := t.TempDir()

	_, err := ResolvePath(dir, "")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	yml := writeFile(t, dir, "build.yml", "order: []")
	got, err := ResolvePath(dir, "")
	require.NoError(t, err)
	assert.Equal(t, yml, got)

	js := writeFile(t, dir, "build.json", `{"order": []}`)
	got, err = ResolvePath(dir, "")
	require.NoError(t, err)
	assert.Equal(t, js, got)

	custom := writeFile(t, dir, "conf/custom.yaml", "order: []")
	got, err = ResolvePath(dir, "conf/custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	_, err = ResolvePath(dir, "nope.json")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestDecode_JSONAndYAML(t *testing.T) {
	m, err := Decode([]byte(`{"order": ["a.js", "b.js"], "mode": "iife", "prune": true}`), ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "b.js"}, m.Order)
	assert.Equal(t, "iife", m.Mode)
	assert.True(t, m.Prune)

	m, err = Decode([]byte("order:\n  - a.js\nlibDir: src\nimportTemplate: ./{name}.js\n"), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, m.Order)
	assert.Equal(t, "src", m.LibDir)
	assert.Equal(t, "./{name}.js", m.ImportTemplate)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte(`{"order": [], "ordr": []}`), ".json")
	assert.ErrorIs(t, err, ErrInvalidManifest)

	_, err = Decode([]byte("order: []\nlibdir: x\n"), ".yml")
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestValidate(t *testing.T) {
	m := &Manifest{Mode: "esm", Order: []string{"a.js", " "}, ImportTemplate: "./x.js"}
	err := m.Validate()
	require.ErrorIs(t, err, ErrInvalidManifest)
	assert.Contains(t, err.Error(), "order[1] is empty")
	assert.Contains(t, err.Error(), `mode "esm"`)
	assert.Contains(t, err.Error(), "importTemplate")

	assert.ErrorContains(t, (&Manifest{}).Validate(), "order is required")
	assert.NoError(t, (&Manifest{Order: []string{}}).Validate())
}

func TestApplyAndDefaults(t *testing.T) {
	m := &Manifest{Order: []string{"a.js"}, LibDir: "src", Mode: "lib"}
	m.Apply(Overrides{Mode: "iife", OutputDir: "dist"})
	m.ApplyDefaults()

	assert.Equal(t, "iife", m.Mode)
	assert.Equal(t, "src", m.LibDir)
	assert.Equal(t, "dist", m.OutputDir)
	assert.Equal(t, "LICENSE", m.LicensePath)
	assert.Equal(t, "application/static", m.AppStaticDir)
	assert.Equal(t, "node_modules", m.NodeModulesPath)
	assert.Equal(t, "{name}", m.ImportTemplate)
}

func TestExpandOrder_KeepsLiteralsInPlace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib/z.js", "")
	writeFile(t, dir, "lib/util/b.js", "")
	writeFile(t, dir, "lib/util/a.js", "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib/util/dir.js"), 0755))

	m := &Manifest{Dir: dir, LibDir: "lib", Order: []string{"z.js", "util/*.js", "z.js", "none/*.js"}}
	sink := diag.NewCollector()
	require.NoError(t, m.ExpandOrder(sink))

	assert.Equal(t, []string{"z.js", "util/a.js", "util/b.js", "z.js"}, m.Order)
	assert.Equal(t, 1, sink.Count(diag.LevelWarn))
}

func TestExpandOrder_InvalidPattern(t *testing.T) {
	m := &Manifest{Dir: t.TempDir(), LibDir: "lib", Order: []string{"[a-"}}
	assert.ErrorIs(t, m.ExpandOrder(diag.Discard), ErrInvalidManifest)
}

func TestLoadProject(t *testing.T) {
	dir := setupProject(t, "build.json", `{"order": ["a.js", "b.js"]}`)
	sink := diag.NewCollector()

	p, err := LoadProject(LoadOptions{Dir: dir, Overrides: Overrides{Mode: "iife"}}, sink)
	require.NoError(t, err)

	assert.Equal(t, "iife", p.Manifest.Mode)
	assert.Equal(t, filepath.Join(dir, "lib"), p.Manifest.LibPath())
	assert.Equal(t, dir, p.Manifest.OutputPath())
	assert.Equal(t, "@metarhia/pkg", p.Package.Name)
	assert.Equal(t, "pkg", p.Package.ShortName())
	assert.Equal(t, "MIT License", p.License.Name)
	assert.Equal(t, "Copyright (c) 2024 Metarhia contributors", p.License.Copyright)
	assert.Empty(t, sink.All())
}

func TestLoadProject_MissingSources(t *testing.T) {
	dir := setupProject(t, "build.yaml", "order:\n  - a.js\n  - missing.js\n")

	_, err := LoadProject(LoadOptions{Dir: dir}, nil)
	require.ErrorIs(t, err, ErrMissingSources)
	assert.Contains(t, err.Error(), "missing.js")
}

func TestLoadProject_AppModeSkipsSourceCheck(t *testing.T) {
	dir := setupProject(t, "build.json", `{"order": ["metautil"], "mode": "app"}`)

	p, err := LoadProject(LoadOptions{Dir: dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"metautil"}, p.Manifest.Order)
}

func TestLoadProject_MissingManifestAndPackage(t *testing.T) {
	_, err := LoadProject(LoadOptions{Dir: t.TempDir()}, nil)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	dir := setupProject(t, "build.json", `{"order": ["a.js"]}`)
	require.NoError(t, os.Remove(filepath.Join(dir, "package.json")))
	_, err = LoadProject(LoadOptions{Dir: dir}, nil)
	assert.ErrorIs(t, err, ErrPackageNotFound)
}

func TestLoadPackage_InvalidVersionWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "pkg", "version": "latest"}`)
	sink := diag.NewCollector()

	pkg, err := LoadPackage(dir, sink)
	require.NoError(t, err)
	assert.Equal(t, "latest", pkg.Version)
	assert.Equal(t, 1, sink.Count(diag.LevelWarn))
}

func TestLoadLicense_Missing(t *testing.T) {
	sink := diag.NewCollector()
	license, err := LoadLicense(filepath.Join(t.TempDir(), "LICENSE"), sink)
	require.NoError(t, err)
	assert.Equal(t, UnknownLicense, license.Name)
	assert.Empty(t, license.Copyright)
	assert.Equal(t, 1, sink.Count(diag.LevelWarn))
}

func TestParseLicense(t *testing.T) {
	assert.Equal(t, "Apache-2.0", ParseLicense("Apache-2.0\r\n\r\nCopyright 2020\r\n").Name)
	assert.Equal(t, "Copyright 2020", ParseLicense("Apache-2.0\r\n\r\nCopyright 2020\r\n").Copyright)
	assert.Equal(t, UnknownLicense, ParseLicense("").Name)
}

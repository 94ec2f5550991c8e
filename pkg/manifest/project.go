package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-json"

	"github.com/gnana997/bundlekit/pkg/bundler"
	"github.com/gnana997/bundlekit/pkg/diag"
)

// ErrPackageNotFound means the project root has no readable package.json.
var ErrPackageNotFound = errors.New("package.json not found")

// UnknownLicense is used when the LICENSE file is missing or empty.
const UnknownLicense = "Unknown License"

// PackageJSON holds the package.json fields the bundler uses.
type PackageJSON struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// LoadPackage reads package.json from dir. A version that is not valid
// semver is reported as a warning.
func LoadPackage(dir string, sink diag.Sink) (bundler.Package, error) {
	path := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return bundler.Package{}, fmt.Errorf("%w in %s", ErrPackageNotFound, dir)
		}
		return bundler.Package{}, fmt.Errorf("failed to read package.json: %w", err)
	}

	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return bundler.Package{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if pkg.Name == "" {
		return bundler.Package{}, fmt.Errorf("%s: name is required", path)
	}
	if _, err := semver.StrictNewVersion(pkg.Version); err != nil {
		diag.Warnf(sink, path, 0, "package version %q is not valid semver: %v", pkg.Version, err)
	}
	return bundler.Package{Name: pkg.Name, Version: pkg.Version}, nil
}

// LoadLicense reads the license name from line 1 and the copyright from
// line 3 of the license file. A missing file is a warning, not an error.
func LoadLicense(path string, sink diag.Sink) (bundler.License, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			diag.Warnf(sink, "", 0, "License file not found: %s", path)
			return bundler.License{Name: UnknownLicense}, nil
		}
		return bundler.License{}, fmt.Errorf("failed to read license file: %w", err)
	}
	return ParseLicense(string(data)), nil
}

// ParseLicense extracts the header attribution from license text.
func ParseLicense(text string) bundler.License {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	license := bundler.License{Name: UnknownLicense}
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		license.Name = strings.TrimSpace(lines[0])
	}
	if len(lines) > 2 {
		license.Copyright = strings.TrimSpace(lines[2])
	}
	return license
}

// Project is a fully loaded and validated build input.
type Project struct {
	Manifest *Manifest
	Package  bundler.Package
	License  bundler.License
}

// LoadOptions selects what LoadProject reads.
type LoadOptions struct {
	// Dir is the project root. Empty means the working directory.
	Dir string
	// ConfigPath is the --config flag value.
	ConfigPath string
	Overrides  Overrides
}

// LoadProject resolves, loads and validates everything a build needs.
// Missing manifest, package.json or sources abort before any output.
func LoadProject(opts LoadOptions, sink diag.Sink) (*Project, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	path, err := ResolvePath(dir, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	m.Dir = dir
	m.Apply(opts.Overrides)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.ApplyDefaults()

	if m.Mode != "app" {
		if err := m.ExpandOrder(sink); err != nil {
			return nil, err
		}
		if err := m.CheckSources(); err != nil {
			return nil, err
		}
	}

	pkg, err := LoadPackage(dir, sink)
	if err != nil {
		return nil, err
	}
	license, err := LoadLicense(m.Abs(m.LicensePath), sink)
	if err != nil {
		return nil, err
	}
	return &Project{Manifest: m, Package: pkg, License: license}, nil
}

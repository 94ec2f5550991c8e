// Package manifest loads the build manifest, package.json and LICENSE of a
// library and validates them before any bundling starts.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

var (
	// ErrConfigNotFound means no manifest was given and none of the default
	// file names exist.
	ErrConfigNotFound = errors.New("build manifest not found")
	// ErrInvalidManifest wraps every schema violation.
	ErrInvalidManifest = errors.New("invalid build manifest")
	// ErrMissingSources lists files of order that do not exist in libDir.
	ErrMissingSources = errors.New("source files not found in lib directory")
)

// DefaultNames are tried in order when no manifest path is given.
var DefaultNames = []string{"build.json", "build.yaml", "build.yml"}

// ValidModes are the accepted values of Manifest.Mode.
var ValidModes = []string{"lib", "iife", "app"}

// Manifest is the content of build.json / build.yaml.
type Manifest struct {
	// Order lists source files (lib, iife) or dependency names (app). It is
	// never reordered or deduplicated.
	Order           []string `json:"order" yaml:"order"`
	Mode            string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	LibDir          string   `json:"libDir,omitempty" yaml:"libDir,omitempty"`
	LicensePath     string   `json:"licensePath,omitempty" yaml:"licensePath,omitempty"`
	AppStaticDir    string   `json:"appStaticDir,omitempty" yaml:"appStaticDir,omitempty"`
	OutputDir       string   `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	NodeModulesPath string   `json:"nodeModulesPath,omitempty" yaml:"nodeModulesPath,omitempty"`
	ImportTemplate  string   `json:"importTemplate,omitempty" yaml:"importTemplate,omitempty"`
	Prune           bool     `json:"prune,omitempty" yaml:"prune,omitempty"`

	// Path is the file the manifest was read from.
	Path string `json:"-" yaml:"-"`
	// Dir is the project root every relative path is resolved against.
	Dir string `json:"-" yaml:"-"`
}

// Overrides are command-line values. Empty fields leave the manifest alone.
type Overrides struct {
	Mode            string
	LibDir          string
	LicensePath     string
	AppStaticDir    string
	OutputDir       string
	NodeModulesPath string
	ImportTemplate  string
}

// ResolvePath picks the manifest file:
//  1. the explicit flag value, resolved against dir
//  2. the first of DefaultNames that exists in dir
func ResolvePath(dir, flagValue string) (string, error) {
	if flagValue != "" {
		path := flagValue
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return path, nil
	}
	for _, name := range DefaultNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s (tried %s)", ErrConfigNotFound, dir, strings.Join(DefaultNames, ", "))
}

// Load reads and decodes the manifest at path. Dir is set to the
// manifest's directory. Unknown fields are rejected.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read build manifest: %w", err)
	}

	m, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	m.Dir = filepath.Dir(path)
	return m, nil
}

// Decode parses manifest data. ext selects the format: ".yaml" and ".yml"
// are YAML, anything else JSON.
func Decode(data []byte, ext string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
	}
	return &m, nil
}

// Apply copies every non-empty override onto m.
func (m *Manifest) Apply(o Overrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&m.Mode, o.Mode)
	set(&m.LibDir, o.LibDir)
	set(&m.LicensePath, o.LicensePath)
	set(&m.AppStaticDir, o.AppStaticDir)
	set(&m.OutputDir, o.OutputDir)
	set(&m.NodeModulesPath, o.NodeModulesPath)
	set(&m.ImportTemplate, o.ImportTemplate)
}

// ApplyDefaults fills every empty optional field. OutputDir defaults to the
// project root.
func (m *Manifest) ApplyDefaults() {
	defaults := []struct {
		field *string
		value string
	}{
		{&m.Mode, "lib"},
		{&m.LibDir, "lib"},
		{&m.LicensePath, "LICENSE"},
		{&m.AppStaticDir, "application/static"},
		{&m.OutputDir, "."},
		{&m.NodeModulesPath, "node_modules"},
		{&m.ImportTemplate, "{name}"},
	}
	for _, d := range defaults {
		if *d.field == "" {
			*d.field = d.value
		}
	}
}

// Validate checks the manifest schema and reports every violation at once.
func (m *Manifest) Validate() error {
	var errs []error
	if m.Order == nil {
		errs = append(errs, errors.New("order is required"))
	}
	for i, entry := range m.Order {
		if strings.TrimSpace(entry) == "" {
			errs = append(errs, fmt.Errorf("order[%d] is empty", i))
		}
	}
	if m.Mode != "" && !slices.Contains(ValidModes, m.Mode) {
		errs = append(errs, fmt.Errorf("mode %q is not one of %s", m.Mode, strings.Join(ValidModes, ", ")))
	}
	if m.ImportTemplate != "" && !strings.Contains(m.ImportTemplate, "{name}") {
		errs = append(errs, fmt.Errorf("importTemplate %q must contain {name}", m.ImportTemplate))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidManifest, errors.Join(errs...))
}

// Abs resolves p against the project root.
func (m *Manifest) Abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// LibPath is the absolute lib directory.
func (m *Manifest) LibPath() string { return m.Abs(m.LibDir) }

// OutputPath is the absolute output directory.
func (m *Manifest) OutputPath() string { return m.Abs(m.OutputDir) }

// NodeModules is the absolute node_modules directory.
func (m *Manifest) NodeModules() string { return m.Abs(m.NodeModulesPath) }

// StaticPath is the absolute application static directory.
func (m *Manifest) StaticPath() string { return m.Abs(m.AppStaticDir) }

// CheckSources verifies that every entry of order exists in the lib
// directory.
func (m *Manifest) CheckSources() error {
	var missing []string
	for _, name := range m.Order {
		info, err := os.Stat(filepath.Join(m.LibPath(), name))
		if err != nil || info.IsDir() {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingSources, strings.Join(missing, ", "))
}

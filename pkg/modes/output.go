package modes

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gnana997/bundlekit/pkg/bundler"
	"github.com/gnana997/bundlekit/pkg/diag"
)

// Artifact is a file to write.
type Artifact struct {
	Path    string
	Content string
}

// Link is a symlink to create at Path pointing at Target, which is relative
// to Path's directory. Source is the absolute file Target resolves to.
type Link struct {
	Name   string
	Path   string
	Target string
	Source string
}

// Output is the planned filesystem work of one executor run.
type Output struct {
	Mode  string
	Files []Artifact
	Links []Link
	// LinkDir is the directory links are created in. Creating it is the
	// only fatal step of linking.
	LinkDir string
	// Prune removes dangling symlinks from LinkDir after linking.
	Prune bool
	// Result is the bundling result behind Files, nil for app mode.
	Result *bundler.Result
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	// DryRun prints artifacts and links to Stdout instead of touching the
	// filesystem.
	DryRun bool
	Stdout io.Writer
}

// Apply performs out. Artifacts are written atomically, so a failed write
// never leaves a partial bundle behind. A failing link is reported and
// skipped.
func Apply(out *Output, opts ApplyOptions, sink diag.Sink) error {
	if sink == nil {
		sink = diag.Discard
	}
	if opts.DryRun {
		return printOutput(out, opts.Stdout)
	}

	for _, f := range out.Files {
		if err := WriteFileAtomic(f.Path, []byte(f.Content)); err != nil {
			return err
		}
		if out.Mode == "iife" {
			diag.Successf(sink, "IIFE bundle created: %s", f.Path)
		} else {
			diag.Successf(sink, "Bundle created: %s", f.Path)
		}
	}

	if out.LinkDir == "" {
		return nil
	}
	if err := os.MkdirAll(out.LinkDir, 0755); err != nil {
		return fmt.Errorf("failed to create static directory: %w", err)
	}
	for _, l := range out.Links {
		if err := createLink(l); err != nil {
			diag.Errorf(sink, "", 0, "Error linking %s: %v", l.Name, err)
			continue
		}
		diag.Infof(sink, "Linked: %s -> %s", l.Source, l.Path)
	}
	if out.Prune {
		removed, err := PruneDangling(out.LinkDir)
		for _, path := range removed {
			diag.Infof(sink, "Removed dangling link: %s", path)
		}
		if err != nil {
			diag.Warnf(sink, "", 0, "prune: %v", err)
		}
	}
	return nil
}

func createLink(l Link) error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		return err
	}
	if err := os.Remove(l.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Symlink(l.Target, l.Path)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// PruneDangling removes symlinks in dir, recursively, whose target does not
// exist. It returns the removed paths.
func PruneDangling(dir string) ([]string, error) {
	var removed []string
	var errs []error
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if d.Type()&os.ModeSymlink == 0 {
			return nil
		}
		if _, statErr := os.Stat(path); statErr == nil || !errors.Is(statErr, os.ErrNotExist) {
			return nil
		}
		if rmErr := os.Remove(path); rmErr != nil {
			errs = append(errs, rmErr)
			return nil
		}
		removed = append(removed, path)
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return removed, errors.Join(errs...)
}

func printOutput(out *Output, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	for _, f := range out.Files {
		if _, err := fmt.Fprintf(w, "// ---- %s ----\n%s", f.Path, f.Content); err != nil {
			return err
		}
	}
	for _, l := range out.Links {
		if _, err := fmt.Fprintf(w, "%s -> %s\n", l.Path, l.Target); err != nil {
			return err
		}
	}
	return nil
}

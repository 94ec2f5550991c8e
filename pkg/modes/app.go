package modes

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gnana997/bundlekit/pkg/diag"
)

// App links prebuilt dependency bundles into the application's static
// directory: <appStaticDir>/<dep>.mjs -> <nodeModules>/<dep>/<dep>.mjs.
type App struct{}

func (App) sealed() {}

// Name implements Executor.
func (App) Name() string { return "app" }

// Execute implements Executor. Order entries are dependency names here.
func (App) Execute(env Env) (*Output, error) {
	m := env.Project.Manifest
	sink := env.sink()
	staticDir := m.StaticPath()

	out := &Output{Mode: "app", LinkDir: staticDir, Prune: m.Prune}
	for _, dep := range m.Order {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		source := DependencyPath(m.NodeModules(), dep)
		link := filepath.Join(staticDir, filepath.FromSlash(dep)+".mjs")

		target, err := filepath.Rel(filepath.Dir(link), source)
		if err != nil {
			diag.Errorf(sink, "", 0, "Error linking %s: %v", dep, err)
			continue
		}
		if _, err := os.Stat(source); err != nil {
			diag.Warnf(sink, "", 0, "dependency bundle not found, link will dangle: %s", source)
		}
		out.Links = append(out.Links, Link{Name: dep, Path: link, Target: target, Source: source})
	}
	return out, nil
}

package modes

import (
	"path/filepath"

	"github.com/gnana997/bundlekit/pkg/bundler"
)

// Lib builds an ESM library bundle: header, aggregated imports and the
// concatenated sources with ESM exports.
type Lib struct{}

func (Lib) sealed() {}

// Name implements Executor.
func (Lib) Name() string { return "lib" }

// Execute implements Executor.
func (Lib) Execute(env Env) (*Output, error) {
	p := env.Project
	b := bundler.New(bundlerConfig(p, bundler.ExportAggregate), env.source(), env.sink(), env.logger())
	res, err := b.Generate()
	if err != nil {
		return nil, err
	}

	return &Output{
		Mode:   "lib",
		Result: res,
		Files: []Artifact{{
			Path:    filepath.Join(p.Manifest.OutputPath(), artifactName(p.Package)),
			Content: res.Library(),
		}},
	}, nil
}

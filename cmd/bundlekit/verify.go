package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/manifest"
	"github.com/gnana997/bundlekit/pkg/modes"
)

func newVerifyCmd(c *cli) *cobra.Command {
	var (
		overrides manifest.Overrides
		iife      bool
	)
	cmd := &cobra.Command{
		Use:   "verify [files...]",
		Short: "Parse built artifacts and report syntax and module problems",
		Long: `Verify parses each file with tree-sitter and reports:

  syntax-error           the artifact does not parse
  leftover-require       a require() call survived bundling
  module-syntax-in-iife  import or export statements inside an IIFE bundle

Without arguments the project's artifact and its .d.ts companion are checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				project, err := manifest.LoadProject(c.loadOptions(overrides), diag.Discard)
				if err != nil {
					return err
				}
				m := project.Manifest
				if m.Mode == "iife" {
					iife = true
				}
				artifact := filepath.Join(m.OutputPath(), project.Package.ShortName()+".mjs")
				paths = artifactPaths(&modes.Output{Files: []modes.Artifact{{Path: artifact}}})
			}
			return c.verifyArtifacts(cmd.Context(), paths, iife, c.printer(false))
		},
	}
	overrideFlags(cmd, &overrides, true)
	cmd.Flags().BoolVar(&iife, "iife", false, "treat every file as an IIFE bundle")
	return cmd
}

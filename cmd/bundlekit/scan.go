package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/imports"
)

type scannedFile struct {
	File         string             `json:"file"`
	Found        []imports.Found    `json:"found"`
	Unrecognized []int              `json:"unrecognized,omitempty"`
	Imports      []imports.Snapshot `json:"imports"`
}

func newScanCmd(c *cli) *cobra.Command {
	var (
		template string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "scan <file>...",
		Short: "Show the declarations recognized in source files",
		Long: `Scan prints the declarations recognized in each file and the import
block the files would contribute together, in argument order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collector := diag.NewCollector()
			combined := imports.NewRegistry()
			files := make([]scannedFile, 0, len(args))

			for _, name := range args {
				data, err := os.ReadFile(name)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", name, err)
				}
				reg := imports.NewRegistry()
				res := imports.NewScanner(reg, collector).Analyze(imports.SourceFile{Name: name, Text: string(data)})
				combined.Union(reg)
				files = append(files, scannedFile{
					File:         name,
					Found:        res.Found,
					Unrecognized: res.Unrecognized,
					Imports:      reg.Snapshot(),
				})
			}
			block := combined.Block(imports.EmitOptions{Template: template})

			if asJSON {
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"files":       files,
					"imports":     combined.Snapshot(),
					"importBlock": block,
					"diagnostics": collector.All(),
				})
			}

			printer := c.printer(false)
			for _, d := range collector.All() {
				printer.Report(d)
			}
			for _, f := range files {
				if len(files) > 1 {
					fmt.Fprintf(c.stdout, "%s:\n", f.File)
				}
				for _, found := range f.Found {
					fmt.Fprintf(c.stdout, "%4d  %-8s  %-13s  %s\n", found.Line, found.KindName, found.Declaration.Shape, describe(found.Declaration))
				}
			}
			if block != "" {
				fmt.Fprintf(c.stdout, "\n%s", block)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&template, "import-template", imports.DefaultTemplate, "import specifier template containing {name}")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func describe(d imports.Declaration) string {
	var parts []string
	if d.Default != "" {
		parts = append(parts, d.Default)
	}
	if len(d.Names) > 0 {
		parts = append(parts, "{ "+strings.Join(d.Names, ", ")+" }")
	}
	if len(parts) == 0 {
		return d.Specifier
	}
	return strings.Join(parts, ", ") + " from " + d.Specifier
}

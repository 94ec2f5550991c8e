package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gnana997/bundlekit/pkg/bundler"
	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/manifest"
	"github.com/gnana997/bundlekit/pkg/modes"
	"github.com/gnana997/bundlekit/pkg/runlog"
	"github.com/gnana997/bundlekit/pkg/util"
)

// cli holds the global flags and the state shared by every command.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	dir       string
	config    string
	logLevel  string
	logFormat string
	logFile   string
	noColor   bool

	logger *slog.Logger
	runLog *runlog.Logger
	// sources is set by long-running commands so rebuilds reuse mapped
	// files. Nil reads from disk.
	sources bundler.Source
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *cli) {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "bundlekit",
		Short: "Bundle ordered JavaScript library sources into a single artifact",
		Long: `bundlekit concatenates the library sources listed in build.json (or
build.yaml) into one artifact.

Modes:
  lib    ESM library bundle <name>.mjs with aggregated imports
  iife   browser bundle with dependencies inlined into a closure
  app    symlink prebuilt dependency bundles into a static directory`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.dir, "dir", "C", "", "project directory (default is the working directory)")
	flags.StringVar(&c.config, "config", "", "manifest file (default build.json, build.yaml or build.yml)")
	flags.StringVar(&c.logLevel, "log-level", string(util.LevelWarn), "log level: debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", string(util.FormatText), "log format: text, json")
	flags.StringVar(&c.logFile, "log-file", "", "append one JSON line per build or tool call to this file")
	flags.BoolVar(&c.noColor, "no-color", false, "disable coloured diagnostics")

	root.AddCommand(
		newBuildCmd(c),
		newLinkCmd(c),
		newWatchCmd(c),
		newVerifyCmd(c),
		newScanCmd(c),
		newServeCmd(c),
		newVersionCmd(c),
	)
	return root, c
}

func (c *cli) setup(*cobra.Command, []string) error {
	level, err := util.ParseLogLevel(c.logLevel)
	if err != nil {
		return err
	}
	format, err := util.ParseLogFormat(c.logFormat)
	if err != nil {
		return err
	}
	c.logger = util.NewLogger(util.LoggerConfig{Level: level, Format: format, Output: c.stderr})

	c.runLog, err = runlog.NewLogger(c.logFile)
	return err
}

// close releases what setup opened.
func (c *cli) close() error {
	return c.runLog.Close()
}

// printer writes diagnostics for humans. Info and success lines go to
// stdout unless stdout carries bundle output.
func (c *cli) printer(stdoutBusy bool) *diag.Printer {
	out := c.stdout
	if stdoutBusy {
		out = c.stderr
	}
	color := false
	if f, ok := c.stderr.(*os.File); ok && !c.noColor {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &diag.Printer{Out: out, Err: c.stderr, Color: color}
}

func (c *cli) loadOptions(o manifest.Overrides) manifest.LoadOptions {
	return manifest.LoadOptions{Dir: c.dir, ConfigPath: c.config, Overrides: o}
}

// overrideFlags registers the manifest override flags on cmd.
func overrideFlags(cmd *cobra.Command, o *manifest.Overrides, withMode bool) {
	f := cmd.Flags()
	if withMode {
		f.StringVar(&o.Mode, "mode", "", "bundle mode: "+strings.Join(modes.Names(), ", "))
	}
	f.StringVar(&o.LibDir, "lib-dir", "", "directory holding the sources listed in order")
	f.StringVar(&o.LicensePath, "license", "", "license file")
	f.StringVar(&o.AppStaticDir, "static-dir", "", "application static directory (app mode)")
	f.StringVar(&o.OutputDir, "output-dir", "", "directory the artifact is written to")
	f.StringVar(&o.NodeModulesPath, "node-modules", "", "node_modules directory")
	f.StringVar(&o.ImportTemplate, "import-template", "", "import specifier template containing {name}")
}

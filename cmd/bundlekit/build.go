package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/manifest"
	"github.com/gnana997/bundlekit/pkg/modes"
	"github.com/gnana997/bundlekit/pkg/runlog"
	"github.com/gnana997/bundlekit/pkg/verify"
)

type buildOptions struct {
	overrides manifest.Overrides
	dryRun    bool
	verify    bool
	prune     bool
	// name is recorded in the run log.
	name string
}

func newBuildCmd(c *cli) *cobra.Command {
	opts := buildOptions{name: "build"}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the configured bundle",
		Long: `Build reads the manifest, package.json and LICENSE of the project and
runs the configured mode. Fatal problems (missing manifest, unreadable
sources) abort before anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.build(cmd.Context(), opts)
		},
	}
	overrideFlags(cmd, &opts.overrides, true)
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the artifact instead of writing it")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "parse the written artifact and report problems")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "remove dangling links from the static directory (app mode)")
	return cmd
}

func newLinkCmd(c *cli) *cobra.Command {
	opts := buildOptions{name: "link"}
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link prebuilt dependency bundles into the static directory (app mode)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.overrides.Mode = "app"
			return c.build(cmd.Context(), opts)
		},
	}
	overrideFlags(cmd, &opts.overrides, false)
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the links instead of creating them")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "remove dangling links from the static directory")
	return cmd
}

// build runs one build and records it in the run log.
func (c *cli) build(ctx context.Context, opts buildOptions) error {
	collector := diag.NewCollector()
	sinks := []diag.Sink{c.printer(opts.dryRun), collector}
	if c.logger.Enabled(ctx, slog.LevelDebug) {
		sinks = append(sinks, diag.SlogSink{Logger: c.logger})
	}
	sink := diag.Tee(sinks...)

	entry, start := runlog.Start(runlog.KindBuild, opts.name)
	err := c.runBuild(ctx, opts, sink, &entry)
	entry.Finish(start, collector, err)
	if werr := c.runLog.Write(entry); werr != nil {
		c.logger.Warn("failed to write run log", "error", werr)
	}
	return err
}

func (c *cli) runBuild(ctx context.Context, opts buildOptions, sink diag.Sink, entry *runlog.Entry) error {
	project, err := manifest.LoadProject(c.loadOptions(opts.overrides), sink)
	if err != nil {
		return err
	}
	if opts.prune {
		project.Manifest.Prune = true
	}
	executor, err := modes.Parse(project.Manifest.Mode)
	if err != nil {
		return err
	}
	entry.Mode = executor.Name()
	entry.Files = len(project.Manifest.Order)

	c.logger.Debug("building", "mode", executor.Name(), "files", len(project.Manifest.Order), "dir", project.Manifest.Dir)
	out, err := executor.Execute(modes.Env{Project: project, Source: c.sources, Sink: sink, Logger: c.logger})
	if err != nil {
		return err
	}
	if out.Result != nil {
		entry.Imports = out.Result.Registry.Len()
	}

	if err := modes.Apply(out, modes.ApplyOptions{DryRun: opts.dryRun, Stdout: c.stdout}, sink); err != nil {
		return err
	}
	if !opts.verify || opts.dryRun || len(out.Files) == 0 {
		return nil
	}
	return c.verifyArtifacts(ctx, artifactPaths(out), out.Mode == "iife", sink)
}

func artifactPaths(out *modes.Output) []string {
	var paths []string
	for _, f := range out.Files {
		paths = append(paths, f.Path)
		paths = append(paths, verify.Companions(f.Path)...)
	}
	return paths
}

// verifyArtifacts reports every violation on sink and fails when any is an
// error.
func (c *cli) verifyArtifacts(ctx context.Context, paths []string, iife bool, sink diag.Sink) error {
	v := verify.New(c.logger)
	defer v.Close()

	found, err := v.Files(ctx, paths, verify.Options{IIFE: iife})
	if err != nil {
		return err
	}
	errs := 0
	for _, violation := range found {
		violation.Report(sink)
		if violation.Severity == verify.SeverityError {
			errs++
		}
	}
	if errs > 0 {
		return fmt.Errorf("verification failed: %d error(s)", errs)
	}
	diag.Successf(sink, "Verified %d file(s)", len(paths))
	return nil
}

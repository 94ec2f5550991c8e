package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/manifest"
	"github.com/gnana997/bundlekit/pkg/util"
	"github.com/gnana997/bundlekit/pkg/watch"
)

func newWatchCmd(c *cli) *cobra.Command {
	opts := buildOptions{name: "watch"}
	var (
		debounce time.Duration
		ignore   []string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild whenever a source, the manifest or package.json changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.watch(ctx, opts, watch.Options{Debounce: debounce, Ignore: ignore})
		},
	}
	overrideFlags(cmd, &opts.overrides, true)
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "verify the artifact after every rebuild")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a rebuild")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "glob patterns relative to the lib directory to ignore")
	return cmd
}

// watch builds once, then rebuilds on every burst of changes until ctx is
// done. Failed builds are reported and the watch continues.
func (c *cli) watch(ctx context.Context, opts buildOptions, wopts watch.Options) error {
	project, err := manifest.LoadProject(c.loadOptions(opts.overrides), diag.Discard)
	if err != nil {
		return err
	}
	m := project.Manifest
	printer := c.printer(false)

	cache, err := util.NewSourceCache(util.SourceCacheConfig{Logger: c.logger})
	if err != nil {
		return err
	}
	defer cache.Close()
	c.sources = cache

	rebuild := func() {
		if err := c.build(ctx, opts); err != nil {
			diag.Errorf(printer, "", 0, "%v", err)
		}
	}
	rebuild()

	// The artifact may live inside the watched tree.
	wopts.Ignore = append(wopts.Ignore, "**/"+project.Package.ShortName()+".mjs")
	w, err := watch.New(wopts, func(changed []string) {
		for _, path := range changed {
			cache.Invalidate(path)
		}
		diag.Infof(printer, "Change detected in %s, rebuilding", filepath.Base(changed[0]))
		rebuild()
	}, c.logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	inputs := []string{m.Path, filepath.Join(m.Dir, "package.json"), m.Abs(m.LicensePath)}
	dirs := []string{m.LibPath()}
	if m.Mode == "app" {
		dirs = nil
	}
	if err := w.Start(dirs, inputs); err != nil {
		return err
	}
	diag.Infof(printer, "Watching %s for changes (Ctrl+C to stop)", m.Dir)

	<-ctx.Done()
	c.logger.Debug("watch stopped", "rebuilds", w.GetStats().Runs)
	return nil
}

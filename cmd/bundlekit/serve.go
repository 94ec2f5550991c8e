package main

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/gnana997/bundlekit/pkg/mcp"
	"github.com/gnana997/bundlekit/pkg/util"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Serve exposes scan_declarations, rewrite_exports and preview_bundle as MCP
tools. With --log-file every tool call is appended to the run log.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cache, err := util.NewSourceCache(util.SourceCacheConfig{Logger: c.logger})
			if err != nil {
				return err
			}
			defer cache.Close()

			srv := mcpserver.NewServer(mcpserver.Options{
				Dir:     c.dir,
				RunLog:  c.runLog,
				Sources: cache,
				Logger:  c.logger,
			})
			return srv.ServeStdio()
		},
	}
}

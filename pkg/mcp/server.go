// Package mcp exposes the bundler's scanning, export rewriting and bundle
// preview as MCP tools over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/bundlekit/pkg/bundler"
	"github.com/gnana997/bundlekit/pkg/runlog"
)

const serverVersion = "0.1.0"

// Options configures a Server.
type Options struct {
	// Dir is the project directory preview_bundle uses when the call does
	// not name one.
	Dir string
	// RunLog receives one entry per tool call. Nil disables it.
	RunLog *runlog.Logger
	// Sources reads library sources and dependency bundles for
	// preview_bundle. Nil reads from disk on every call.
	Sources bundler.Source
	Logger  *slog.Logger
}

// Server is the bundlekit MCP server.
type Server struct {
	mcpServer *server.MCPServer
	dir       string
	runLog    *runlog.Logger
	sources   bundler.Source
	logger    *slog.Logger
}

// NewServer creates a server with every tool registered.
func NewServer(opts Options) *Server {
	s := &Server{dir: opts.Dir, runLog: opts.RunLog, sources: opts.Sources, logger: opts.Logger}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.dir == "" {
		s.dir = "."
	}

	serverOpts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if s.runLog != nil {
		serverOpts = append(serverOpts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer("bundlekit", serverVersion, serverOpts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: scanDeclarationsTool(), Handler: s.handleScanDeclarations},
		server.ServerTool{Tool: rewriteExportsTool(), Handler: s.handleRewriteExports},
		server.ServerTool{Tool: previewBundleTool(), Handler: s.handlePreviewBundle},
	)
	return s
}

// ServeStdio serves MCP on stdin/stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

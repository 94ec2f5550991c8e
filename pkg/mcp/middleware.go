package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/bundlekit/pkg/runlog"
)

// loggingMiddleware appends a run log entry for every tool call. Log write
// failures never affect the call result.
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			entry, start := runlog.Start(runlog.KindTool, req.Params.Name)
			entry.Params = runlog.SanitizeParams(req.GetArguments())
			if mode := req.GetString("mode", ""); mode != "" {
				entry.Mode = mode
			}

			result, err := next(ctx, req)

			callErr := err
			if callErr == nil && result != nil && result.IsError {
				callErr = errors.New(resultText(result))
			}
			entry.Finish(start, nil, callErr)
			if werr := s.runLog.Write(entry); werr != nil {
				s.logger.Debug("run log write failed", "error", werr)
			}
			return result, err
		}
	}
}

func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return "tool error"
}

package mcp

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/bundlekit/pkg/diag"
	"github.com/gnana997/bundlekit/pkg/exports"
	"github.com/gnana997/bundlekit/pkg/imports"
	"github.com/gnana997/bundlekit/pkg/manifest"
	"github.com/gnana997/bundlekit/pkg/modes"
)

type scanResponse struct {
	imports.ScanResult
	Imports     []imports.Snapshot `json:"imports"`
	ImportBlock string             `json:"importBlock"`
	Diagnostics []diag.Diagnostic  `json:"diagnostics"`
}

func (s *Server) handleScanDeclarations(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := req.GetString("name", "source.js")
	template := req.GetString("import_template", imports.DefaultTemplate)

	sink := diag.NewCollector()
	reg := imports.NewRegistry()
	res := imports.NewScanner(reg, sink).Analyze(imports.SourceFile{Name: name, Text: source})
	return jsonResult(scanResponse{
		ScanResult:  res,
		Imports:     reg.Snapshot(),
		ImportBlock: reg.Block(imports.EmitOptions{Template: template}),
		Diagnostics: sink.All(),
	})
}

type rewriteResponse struct {
	Text    string           `json:"text"`
	Exports []exports.Export `json:"exports"`
	Error   string           `json:"error,omitempty"`
}

func (s *Server) handleRewriteExports(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var resp rewriteResponse
	switch target := req.GetString("target", "aggregate"); target {
	case "strip":
		resp.Text, resp.Exports, err = exports.Strip(source)
	case "aggregate", "shared":
		t := exports.TargetAggregate
		if target == "shared" {
			t = exports.TargetShared
		}
		if req.GetBool("all", false) {
			resp.Text, resp.Exports, err = exports.RewriteAll(source, t)
		} else {
			resp.Text, resp.Exports, err = rewriteTrailing(source, t)
		}
	default:
		return mcp.NewToolResultError("target must be aggregate, shared or strip"), nil
	}
	if err != nil {
		if !errors.Is(err, exports.ErrUnsupportedExport) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		resp.Error = err.Error()
	}
	return jsonResult(resp)
}

func rewriteTrailing(source string, target exports.Target) (string, []exports.Export, error) {
	list, err := exports.Find(source)
	if err != nil {
		return source, nil, err
	}
	text, err := exports.Rewrite(source, target)
	return text, list, err
}

type previewFile struct {
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
	Content string `json:"content,omitempty"`
}

type previewResponse struct {
	Mode        string            `json:"mode"`
	Files       []previewFile     `json:"files"`
	Links       []modes.Link      `json:"links,omitempty"`
	Exports     []string          `json:"exports,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

func (s *Server) handlePreviewBundle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := req.GetString("dir", s.dir)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.dir, dir)
	}
	sink := diag.NewCollector()

	project, err := manifest.LoadProject(manifest.LoadOptions{
		Dir:        dir,
		ConfigPath: req.GetString("config", ""),
		Overrides:  manifest.Overrides{Mode: req.GetString("mode", "")},
	}, sink)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	executor, err := modes.Parse(project.Manifest.Mode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := executor.Execute(modes.Env{Project: project, Source: s.sources, Sink: sink, Logger: s.logger})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	includeContent := req.GetBool("include_content", true)
	resp := previewResponse{Mode: out.Mode, Links: out.Links, Diagnostics: sink.All()}
	for _, f := range out.Files {
		pf := previewFile{Path: f.Path, Bytes: len(f.Content)}
		if includeContent {
			pf.Content = f.Content
		}
		resp.Files = append(resp.Files, pf)
	}
	if out.Result != nil {
		resp.Exports = out.Result.ExportNames()
	}
	return jsonResult(resp)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

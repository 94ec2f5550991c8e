package mcp

import "github.com/mark3labs/mcp-go/mcp"

func scanDeclarationsTool() mcp.Tool {
	return mcp.NewTool("scan_declarations",
		mcp.WithDescription("Recognize the import and require declarations of one library source file. "+
			"Returns each declaration with its line, the text left after removing them and the import block it contributes."),
		mcp.WithString("source", mcp.Required(), mcp.Description("JavaScript source text")),
		mcp.WithString("name", mcp.Description("File name used in diagnostics")),
		mcp.WithString("import_template", mcp.Description("Specifier template, must contain {name}")),
	)
}

func rewriteExportsTool() mcp.Tool {
	return mcp.NewTool("rewrite_exports",
		mcp.WithDescription("Rewrite the export declaration of a source into an ESM export list, "+
			"assignments onto the shared exports object, or remove it."),
		mcp.WithString("source", mcp.Required(), mcp.Description("JavaScript source text")),
		mcp.WithString("target", mcp.Enum("aggregate", "shared", "strip"),
			mcp.Description("aggregate (default), shared or strip")),
		mcp.WithBoolean("all", mcp.Description("Rewrite every export declaration, not only the trailing one")),
	)
}

func previewBundleTool() mcp.Tool {
	return mcp.NewTool("preview_bundle",
		mcp.WithDescription("Build a project in memory and return the artifacts and links it would produce. Nothing is written."),
		mcp.WithString("dir", mcp.Description("Project directory; defaults to the server's directory")),
		mcp.WithString("mode", mcp.Enum("lib", "iife", "app"), mcp.Description("Override the manifest mode")),
		mcp.WithString("config", mcp.Description("Manifest path relative to dir")),
		mcp.WithBoolean("include_content", mcp.Description("Include artifact text (default true)")),
	)
}

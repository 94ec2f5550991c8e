package parser

import (
	"path/filepath"
	"strings"
)

// Language is a grammar the parser manager can load.
type Language int

const (
	// LanguageJavaScript covers .js, .mjs, .cjs and .jsx bundles.
	LanguageJavaScript Language = iota
	// LanguageTypeScript covers declaration files and .ts sources.
	LanguageTypeScript
	// LanguageUnknown is returned for any other extension.
	LanguageUnknown
)

func (l Language) String() string {
	switch l {
	case LanguageJavaScript:
		return "javascript"
	case LanguageTypeScript:
		return "typescript"
	default:
		return "unknown"
	}
}

// DetectLanguage picks the grammar for a file from its extension. A
// declaration file such as lib.d.ts resolves to TypeScript.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs", ".jsx":
		return LanguageJavaScript
	case ".ts", ".mts", ".cts", ".tsx":
		return LanguageTypeScript
	default:
		return LanguageUnknown
	}
}

// IsDeclarationFile reports whether path is a TypeScript declaration file.
func IsDeclarationFile(path string) bool {
	lower := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

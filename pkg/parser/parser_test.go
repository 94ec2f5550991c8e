package parser

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseJavaScriptBundle(t *testing.T) {
	manager := NewParserManager(testLogger(), 0)
	defer manager.Close()

	src := []byte("var libIIFE = (function (exports) {\nconst a = 1;\nexports.a = a;\nreturn exports; })({});\n")
	tree, err := manager.Parse(src, LanguageJavaScript)
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "program", root.Kind())
	assert.False(t, root.HasError())
}

func TestParseDeclarationFile(t *testing.T) {
	manager := NewParserManager(testLogger(), 0)
	defer manager.Close()

	src := []byte("export declare function alpha(x: number): string;\nexport interface Beta { b: string }\n")
	tree, err := manager.ParseFile(src, "dist/lib.d.ts")
	require.NoError(t, err)
	defer tree.Close()

	assert.Equal(t, "program", tree.RootNode().Kind())
	assert.False(t, tree.RootNode().HasError())
}

func TestParseInvalidSyntax(t *testing.T) {
	manager := NewParserManager(testLogger(), 0)
	defer manager.Close()

	tree, err := manager.Parse([]byte("const = ;"), LanguageJavaScript)
	require.NoError(t, err, "syntax errors still produce a tree")
	defer tree.Close()

	assert.True(t, tree.RootNode().HasError())
}

func TestParseUnknownLanguage(t *testing.T) {
	manager := NewParserManager(testLogger(), 0)
	defer manager.Close()

	tree, err := manager.Parse([]byte("x"), LanguageUnknown)
	assert.Error(t, err)
	assert.Nil(t, tree)

	_, err = manager.ParseFile([]byte("x"), "notes.md")
	assert.Error(t, err)
}

func TestLazyInitialization(t *testing.T) {
	manager := NewParserManager(testLogger(), 0)
	defer manager.Close()

	assert.Equal(t, 0, manager.GetStats().ParsersCreated)

	for i := 0; i < 2; i++ {
		tree, err := manager.Parse([]byte("const x = 1;"), LanguageJavaScript)
		require.NoError(t, err)
		tree.Close()
	}
	stats := manager.GetStats()
	assert.Equal(t, 1, stats.ParsersCreated, "sequential parses reuse one parser")
	assert.Equal(t, 2, stats.ParsesCalled)

	tree, err := manager.Parse([]byte("let y: number = 2;"), LanguageTypeScript)
	require.NoError(t, err)
	tree.Close()
	assert.Equal(t, 2, manager.GetStats().ParsersCreated)
}

func TestConcurrentParsing(t *testing.T) {
	manager := NewParserManager(testLogger(), 2)
	defer manager.Close()

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree, err := manager.Parse([]byte("export { a };"), LanguageJavaScript)
			if err != nil {
				errs <- err
				return
			}
			tree.Close()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	stats := manager.GetStats()
	assert.LessOrEqual(t, stats.ParsersCreated, 2)
	assert.Equal(t, workers, stats.ParsesCalled)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"bundle.mjs", LanguageJavaScript},
		{"bundle.js", LanguageJavaScript},
		{"legacy.cjs", LanguageJavaScript},
		{"types.d.ts", LanguageTypeScript},
		{"src/x.ts", LanguageTypeScript},
		{"README.md", LanguageUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.path))
		})
	}
}

func TestIsDeclarationFile(t *testing.T) {
	assert.True(t, IsDeclarationFile("dist/lib.d.ts"))
	assert.True(t, IsDeclarationFile("LIB.D.MTS"))
	assert.False(t, IsDeclarationFile("lib.ts"))
	assert.False(t, IsDeclarationFile("lib.mjs"))
}

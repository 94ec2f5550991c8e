package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/bundlekit/pkg/diag"
)

func newTestScanner(t *testing.T) (*Scanner, *Registry, *diag.Collector) {
	t.Helper()
	reg := NewRegistry()
	sink := diag.NewCollector()
	return NewScanner(reg, sink), reg, sink
}

func TestScanner_AggregatesAcrossFiles(t *testing.T) {
	s, reg, sink := newTestScanner(t)

	s.Scan(SourceFile{Name: "a.js", Text: "const { a } = require('pkg');\nconst x = a();\n"})
	s.Scan(SourceFile{Name: "b.js", Text: "import { b } from 'pkg';\nconst y = b();\n"})

	assert.Equal(t, []string{"import { a, b } from 'pkg';"}, reg.Emit(EmitOptions{}))
	assert.Empty(t, sink.All())
}

func TestScanner_BuiltinRequireIsDroppedWithWarning(t *testing.T) {
	s, reg, sink := newTestScanner(t)

	out := s.Scan(SourceFile{Name: "a.js", Text: "const fs = require('fs');\nfs.readFileSync('x');"})

	assert.Equal(t, "fs.readFileSync('x');", out)
	assert.Zero(t, reg.Len())
	warnings := sink.Filter(diag.LevelWarn)
	require.Len(t, warnings, 1)
	assert.Equal(t, "a.js", warnings[0].File)
	assert.Equal(t, 1, warnings[0].Line)
	assert.Contains(t, warnings[0].Message, "fs")
}

func TestScanner_NodePrefixIsErrorButNotFatal(t *testing.T) {
	s, reg, sink := newTestScanner(t)

	res := s.Analyze(SourceFile{Name: "a.js", Text: "const path = require('node:path');\nconst { c } = require('pkg');\nrun();"})

	assert.Equal(t, "run();", res.Text)
	require.Len(t, res.Found, 2)
	assert.ErrorIs(t, res.Found[0].Err, ErrUnsupportedBuiltin)
	assert.Equal(t, 1, sink.Count(diag.LevelError))
	assert.Equal(t, []string{"pkg"}, reg.Specifiers())
}

func TestScanner_RelativeImportLeavesNoTrace(t *testing.T) {
	s, reg, sink := newTestScanner(t)

	out := s.Scan(SourceFile{Name: "a.js", Text: "import { helper } from './utils';\nhelper();"})

	assert.Equal(t, "helper();", out)
	assert.Zero(t, reg.Len())
	assert.Empty(t, sink.All())
}

func TestScanner_UnrecognizedIsKeptWithWarning(t *testing.T) {
	s, reg, sink := newTestScanner(t)
	text := "const mod = cond ? require('a') : require('b');\nimport * as ns from 'pkg';\nrun();"

	res := s.Analyze(SourceFile{Name: "a.js", Text: text})

	assert.Equal(t, text, res.Text)
	assert.Equal(t, []int{1, 2}, res.Unrecognized)
	assert.Equal(t, 2, sink.Count(diag.LevelWarn))
	assert.Zero(t, reg.Len())
}

func TestScanner_MultiLineDeclaration(t *testing.T) {
	s, reg, _ := newTestScanner(t)
	text := "'use strict';\nconst {\n  a,\n  b: bee,\n  ...rest\n} = require('pkg');\n\nmodule.exports = { a };"

	res := s.Analyze(SourceFile{Name: "a.js", Text: text})

	assert.Equal(t, "'use strict';\n\nmodule.exports = { a };", res.Text)
	require.Len(t, res.Found, 1)
	assert.Equal(t, 2, res.Found[0].Line)
	assert.Equal(t, 6, res.Found[0].EndLine)
	entry, ok := reg.Get("pkg")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, entry.Named())
}

func TestScanner_MultiLineDeclarationWithComments(t *testing.T) {
	s, reg, sink := newTestScanner(t)

	cjs := s.Scan(SourceFile{Name: "a.js", Text: "const {\n  a, // first\n  b,\n} = require('m');\nrun(a, b);"})
	esm := s.Scan(SourceFile{Name: "b.js", Text: "import {\n  c,\n  d, /* second */\n} from 'n';\nrun(c, d);"})

	assert.Equal(t, "run(a, b);", cjs)
	assert.Equal(t, "run(c, d);", esm)
	assert.Equal(t, []string{"import { a, b } from 'm';", "import { c, d } from 'n';"}, reg.Emit(EmitOptions{}))
	assert.Empty(t, sink.All())
}

func TestScanner_EmptyBracesKeepModuleEvaluation(t *testing.T) {
	s, reg, _ := newTestScanner(t)

	s.Scan(SourceFile{Name: "a.js", Text: "import {} from 'polyfill';\nconst {} = require('register');\n"})

	assert.Equal(t, []string{"polyfill", "register"}, reg.Specifiers())
	assert.Equal(t, []string{"import 'polyfill';", "import 'register';"}, reg.Emit(EmitOptions{}))
}

func TestScanner_CommentsAreNotTriggers(t *testing.T) {
	s, reg, sink := newTestScanner(t)
	text := "// const x = require('pkg');\n/* import { a } from 'b'; */\n * require('c')"

	out := s.Scan(SourceFile{Name: "a.js", Text: text})

	assert.Equal(t, text, out)
	assert.Zero(t, reg.Len())
	assert.Empty(t, sink.All())
}

func TestScanner_NamesPreserved(t *testing.T) {
	s, reg, _ := newTestScanner(t)
	s.Scan(SourceFile{Name: "a.js", Text: "import x, { y } from 'one';\nimport './local-side';\nrequire('two');\nconst z = require('three');"})

	block := reg.Block(EmitOptions{})
	for _, name := range []string{"x", "y", "'two'", "z"} {
		assert.Contains(t, block, name)
	}
	assert.NotContains(t, block, "local-side")
}

package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecognize_ESM(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  Declaration
	}{
		{
			name:  "named",
			block: "import { a, b } from 'pkg';",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a", "b"}},
		},
		{
			name:  "renamed records source name",
			block: `import { a as x, b } from "pkg"`,
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a", "b"}},
		},
		{
			name:  "default alias",
			block: "import { default as def, c } from 'pkg';",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Default: "def", Names: []string{"c"}},
		},
		{
			name:  "combined",
			block: "import React, { useState } from 'react';",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "react", Default: "React", Names: []string{"useState"}},
		},
		{
			name:  "default",
			block: "import lodash from 'lodash';",
			want:  Declaration{Shape: ShapeAssignment, Specifier: "lodash", Default: "lodash"},
		},
		{
			name:  "side effect",
			block: "import 'polyfill';",
			want:  Declaration{Shape: ShapeSideEffect, Specifier: "polyfill"},
		},
		{
			name:  "multi-line with trailing comma",
			block: "import {\n  a,\n  b,\n} from 'pkg';",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a", "b"}},
		},
		{
			name:  "trailing comment",
			block: "import { a } from 'pkg'; // used below",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a"}},
		},
		{
			name:  "comments between specifiers",
			block: "import {\n  a,\n  b, // c\n  /* d */ e,\n} from 'n';",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "n", Names: []string{"a", "b", "e"}},
		},
		{
			name:  "empty braces",
			block: "import {} from 'register';",
			want:  Declaration{Shape: ShapeSideEffect, Specifier: "register"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recognize(tt.block)
			tt.want.Syntax = SyntaxESM
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecognize_CommonJS(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  Declaration
	}{
		{
			name:  "destructuring",
			block: "const { a, b } = require('pkg');",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a", "b"}},
		},
		{
			name:  "rename default and rest",
			block: "let { a, b: c, d = 1, e = { x: [1, 2] }, ...rest } = require(\"pkg\")",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a", "b", "d", "e"}},
		},
		{
			name:  "assignment",
			block: "var fs = require('fs');",
			want:  Declaration{Shape: ShapeAssignment, Specifier: "fs", Default: "fs"},
		},
		{
			name:  "side effect",
			block: "require('./setup');",
			want:  Declaration{Shape: ShapeSideEffect, Specifier: "./setup"},
		},
		{
			name:  "multi-line",
			block: "const {\n  a,\n  b: renamed,\n} = require('pkg');",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a", "b"}},
		},
		{
			name:  "comments in pattern",
			block: "const {\n  a, // first\n  b,\n} = require('m'); /* done */",
			want:  Declaration{Shape: ShapeDestructuring, Specifier: "m", Names: []string{"a", "b"}},
		},
		{
			name:  "empty pattern",
			block: "const {} = require('register');",
			want:  Declaration{Shape: ShapeSideEffect, Specifier: "register"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recognize(tt.block)
			tt.want.Syntax = SyntaxCommonJS
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecognize_Unrecognized(t *testing.T) {
	blocks := []string{
		"import * as ns from 'pkg';",
		"const { a: { b } } = require('pkg');",
		"const x = require('pkg').x;",
		"const a = require('a'); const b = require('b');",
		"import { a } from 'pkg'; run();",
		"const x = cond ? require('a') : null;",
		"import type { T } from 'pkg';",
		"require(name);",
		"import { a } from '';",
		"important = 1;",
		"import { a } from 'pkg'; /* unterminated",
		"import { a } from 'pkg'; /* c */ run();",
	}
	for _, block := range blocks {
		got := Recognize(block)
		assert.Equal(t, ShapeUnrecognized, got.Shape, block)
		assert.False(t, got.Recognized(), block)
	}
}

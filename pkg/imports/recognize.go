package imports

import (
	"strings"
)

// Shape is the syntactic shape of a module declaration.
type Shape int

const (
	// ShapeUnrecognized is anything no rule matched.
	ShapeUnrecognized Shape = iota
	// ShapeDestructuring binds named members: import { a } / const { a } = require().
	ShapeDestructuring
	// ShapeAssignment binds the whole module to one name.
	ShapeAssignment
	// ShapeSideEffect names a specifier without binding anything.
	ShapeSideEffect
)

func (s Shape) String() string {
	switch s {
	case ShapeDestructuring:
		return "destructuring"
	case ShapeAssignment:
		return "assignment"
	case ShapeSideEffect:
		return "side-effect"
	default:
		return "unrecognized"
	}
}

// MarshalText renders the shape name in JSON output.
func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Syntax is the module system a declaration was written in.
type Syntax int

const (
	// SyntaxESM is an import statement.
	SyntaxESM Syntax = iota
	// SyntaxCommonJS is a require call.
	SyntaxCommonJS
)

func (s Syntax) String() string {
	if s == SyntaxCommonJS {
		return "commonjs"
	}
	return "esm"
}

// MarshalText renders the syntax name in JSON output.
func (s Syntax) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Declaration is one recognized import or require statement.
//
// For ShapeAssignment, Default holds the local name. For ShapeDestructuring,
// Names holds the source-side member names in declaration order, and Default
// is set by the combined form `import a, { b } from 'x'` or by an
// `import { default as a }` entry.
type Declaration struct {
	Shape     Shape    `json:"shape"`
	Syntax    Syntax   `json:"syntax"`
	Specifier string   `json:"specifier,omitempty"`
	Default   string   `json:"default,omitempty"`
	Names     []string `json:"names,omitempty"`
}

// Recognized reports whether d matched one of the supported shapes.
func (d Declaration) Recognized() bool {
	return d.Shape != ShapeUnrecognized
}

var unrecognized = Declaration{Shape: ShapeUnrecognized}

// Recognize matches block against the supported declaration forms:
//
//	import { a, b as c, default as d } from 'x';
//	import a, { b } from 'x';
//	import a from 'x';
//	import 'x';
//	const { a, b: c, d = 1, ...rest } = require('x');
//	const a = require('x');
//	require('x');
//
// The statement must make up the whole block; only whitespace, an optional
// semicolon and comments may follow it. Comments between tokens are skipped.
// Empty braces (import {} from 'x', const {} = require('x')) bind nothing
// and are recorded as side effects. Everything else,
// including namespace imports and nested destructuring, is ShapeUnrecognized.
func Recognize(block string) Declaration {
	c := &cursor{src: block}
	c.space()

	var d Declaration
	var ok bool
	switch {
	case c.keyword("import"):
		d, ok = c.esmImport()
	case c.keyword("const"), c.keyword("let"), c.keyword("var"):
		d, ok = c.cjsBinding()
	case c.keyword("require"):
		d.Syntax = SyntaxCommonJS
		d.Shape = ShapeSideEffect
		d.Specifier, ok = c.requireCall()
	}
	if !ok || !c.end() {
		return unrecognized
	}
	return d
}

func (c *cursor) esmImport() (Declaration, bool) {
	d := Declaration{Syntax: SyntaxESM}

	if spec, ok := c.str(); ok {
		d.Shape = ShapeSideEffect
		d.Specifier = spec
		return d, true
	}

	if name, ok := c.ident(); ok {
		if name == "type" {
			// TypeScript type-only imports never reach a JS bundle.
			return d, false
		}
		d.Default = name
		if !c.punct(',') {
			d.Shape = ShapeAssignment
			return c.from(d)
		}
	}

	if !c.punct('{') {
		return d, false
	}
	names, def, ok := c.esmSpecifiers()
	if !ok {
		return d, false
	}
	if def != "" {
		if d.Default != "" {
			return d, false
		}
		d.Default = def
	}
	d.Shape = ShapeDestructuring
	d.Names = names
	if len(names) == 0 && d.Default == "" {
		d.Shape = ShapeSideEffect
	}
	return c.from(d)
}

func (c *cursor) from(d Declaration) (Declaration, bool) {
	if !c.keyword("from") {
		return d, false
	}
	spec, ok := c.str()
	if !ok {
		return d, false
	}
	d.Specifier = spec
	c.punct(';')
	return d, true
}

// esmSpecifiers parses the body of `{ ... }` after the opening brace.
func (c *cursor) esmSpecifiers() (names []string, def string, ok bool) {
	for {
		if c.punct('}') {
			return names, def, true
		}
		name, ok := c.ident()
		if !ok {
			return nil, "", false
		}
		if c.keyword("as") {
			alias, ok := c.ident()
			if !ok {
				return nil, "", false
			}
			if name == "default" {
				if def != "" {
					return nil, "", false
				}
				def = alias
				name = ""
			}
		}
		if name != "" {
			names = append(names, name)
		}
		if !c.punct(',') {
			if !c.punct('}') {
				return nil, "", false
			}
			return names, def, true
		}
	}
}

func (c *cursor) cjsBinding() (Declaration, bool) {
	d := Declaration{Syntax: SyntaxCommonJS}

	if c.punct('{') {
		names, ok := c.cjsPattern()
		if !ok {
			return d, false
		}
		d.Shape = ShapeDestructuring
		d.Names = names
		if len(names) == 0 {
			d.Shape = ShapeSideEffect
		}
	} else {
		name, ok := c.ident()
		if !ok {
			return d, false
		}
		d.Shape = ShapeAssignment
		d.Default = name
	}

	if !c.punct('=') || !c.keyword("require") {
		return d, false
	}
	spec, ok := c.requireCall()
	d.Specifier = spec
	return d, ok
}

// cjsPattern parses an object pattern after the opening brace. Renamed
// entries record the member name, rest elements record nothing.
func (c *cursor) cjsPattern() ([]string, bool) {
	var names []string
	for {
		if c.punct('}') {
			return names, true
		}
		if c.literal("...") {
			if _, ok := c.ident(); !ok {
				return nil, false
			}
		} else {
			name, ok := c.ident()
			if !ok {
				return nil, false
			}
			if c.punct(':') {
				// Nested patterns are not supported.
				if _, ok := c.ident(); !ok {
					return nil, false
				}
			}
			if c.punct('=') {
				if !c.skipExpression() {
					return nil, false
				}
			}
			names = append(names, name)
		}
		if !c.punct(',') {
			if !c.punct('}') {
				return nil, false
			}
			return names, true
		}
	}
}

// requireCall parses `( 'spec' )` and an optional semicolon.
func (c *cursor) requireCall() (string, bool) {
	if !c.punct('(') {
		return "", false
	}
	spec, ok := c.str()
	if !ok || !c.punct(')') {
		return "", false
	}
	c.punct(';')
	return spec, true
}

// cursor is a tiny hand-rolled lexer over one declaration block. Every
// method skips leading whitespace and comments and consumes input only on
// success.
type cursor struct {
	src string
	pos int
}

// space skips whitespace and comments. An unterminated block comment is
// left in place so the declaration fails to match.
func (c *cursor) space() {
	for c.pos < len(c.src) {
		switch c.src[c.pos] {
		case ' ', '\t', '\n', '\r':
			c.pos++
			continue
		case '/':
			rest := c.src[c.pos:]
			if strings.HasPrefix(rest, "//") {
				if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
					c.pos += nl + 1
				} else {
					c.pos = len(c.src)
				}
				continue
			}
			if strings.HasPrefix(rest, "/*") {
				if end := strings.Index(rest[2:], "*/"); end >= 0 {
					c.pos += end + 4
					continue
				}
			}
		}
		return
	}
}

func (c *cursor) punct(b byte) bool {
	c.space()
	if c.pos < len(c.src) && c.src[c.pos] == b {
		c.pos++
		return true
	}
	return false
}

func (c *cursor) literal(s string) bool {
	c.space()
	if strings.HasPrefix(c.src[c.pos:], s) {
		c.pos += len(s)
		return true
	}
	return false
}

func (c *cursor) keyword(word string) bool {
	c.space()
	start := c.pos
	name, ok := c.ident()
	if ok && name == word {
		return true
	}
	c.pos = start
	return false
}

func (c *cursor) ident() (string, bool) {
	c.space()
	start := c.pos
	for c.pos < len(c.src) {
		b := c.src[c.pos]
		if isIdentStart(b) || (c.pos > start && isDigit(b)) {
			c.pos++
			continue
		}
		break
	}
	if c.pos == start {
		return "", false
	}
	return c.src[start:c.pos], true
}

func (c *cursor) str() (string, bool) {
	c.space()
	if c.pos >= len(c.src) {
		return "", false
	}
	quote := c.src[c.pos]
	if quote != '\'' && quote != '"' {
		return "", false
	}
	end := strings.IndexByte(c.src[c.pos+1:], quote)
	if end < 0 {
		return "", false
	}
	value := c.src[c.pos+1 : c.pos+1+end]
	if value == "" || strings.ContainsAny(value, "\n\\") {
		return "", false
	}
	c.pos += end + 2
	return value, true
}

// skipExpression consumes a default-value expression up to the next
// top-level ',' or '}' without consuming the delimiter.
func (c *cursor) skipExpression() bool {
	c.space()
	start := c.pos
	depth := 0
	for c.pos < len(c.src) {
		b := c.src[c.pos]
		switch b {
		case '\'', '"', '`':
			end := strings.IndexByte(c.src[c.pos+1:], b)
			if end < 0 {
				return false
			}
			c.pos += end + 2
			continue
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				return c.pos > start
			}
			depth--
		case ',':
			if depth == 0 {
				return c.pos > start
			}
		}
		if depth < 0 {
			return false
		}
		c.pos++
	}
	return false
}

// end reports whether only whitespace and comments remain.
func (c *cursor) end() bool {
	c.space()
	return c.pos == len(c.src)
}

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Package exports rewrites the trailing export declaration of a library
// source between the shapes the bundle modes need.
//
// Two source forms are understood, each optionally followed by a semicolon:
//
//	module.exports = { a, b: local };
//	module.exports = name;
//	export { a, local as b };
//
// Only the last such declaration in a file is considered, and only when
// nothing but whitespace and comments follows it.
package exports

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SharedNamespace is the accumulator object used by TargetShared.
const SharedNamespace = "exports"

// ErrUnsupportedExport is returned when the trailing declaration holds
// entries that are not plain identifiers.
var ErrUnsupportedExport = errors.New("unsupported export declaration")

// Target is the shape an export declaration is rewritten to.
type Target int

const (
	// TargetAggregate renders `export { a, b };`.
	TargetAggregate Target = iota
	// TargetShared renders `exports.a = a;`.
	TargetShared
)

func (t Target) String() string {
	if t == TargetShared {
		return "shared"
	}
	return "aggregate"
}

// Export is one exported binding. Local is the binding inside the file and
// Name the public name; they differ for `b: local` and `local as b`.
type Export struct {
	Name  string `json:"name"`
	Local string `json:"local"`
}

// Names returns the public names in order.
func Names(list []Export) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Name
	}
	return out
}

var (
	declStart = regexp.MustCompile(`(?m)^[ \t]*(module\.exports\s*=|export\s*\{)`)
	ident     = `[A-Za-z_$][\w$]*`
	plainRe   = regexp.MustCompile(`^` + ident + `$`)
	cjsPairRe = regexp.MustCompile(`^(` + ident + `)\s*:\s*(` + ident + `)$`)
	esmAsRe   = regexp.MustCompile(`^(` + ident + `)\s+as\s+(` + ident + `)$`)
)

// declaration is a located export declaration.
type declaration struct {
	start, end int
	exports    []Export
}

// parseAt parses the declaration whose head regexp match is loc. end is the
// offset after the statement and its optional semicolon. ok is false when
// the braces never close.
func parseAt(text string, loc []int) (d declaration, ok bool, err error) {
	start, pos := loc[2], loc[3]
	esm := strings.HasPrefix(text[start:pos], "export")

	var body, single string
	if esm {
		closing := matchBrace(text, pos-1)
		if closing < 0 {
			return d, false, nil
		}
		body = text[pos:closing]
		pos = closing + 1
	} else {
		pos = skipSpace(text, pos)
		if pos < len(text) && text[pos] == '{' {
			closing := matchBrace(text, pos)
			if closing < 0 {
				return d, false, nil
			}
			body = text[pos+1 : closing]
			pos = closing + 1
		} else {
			end := pos
			for end < len(text) && isIdentByte(text[end], end > pos) {
				end++
			}
			single = text[pos:end]
			pos = end
			if single == "" || !statementEnds(text[pos:]) {
				end := len(text)
				if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
					end = pos + nl
				}
				d = declaration{start: start, end: end}
				return d, true, fmt.Errorf("%w: %s", ErrUnsupportedExport, firstLine(text[start:]))
			}
		}
	}

	for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t') {
		pos++
	}
	if pos < len(text) && text[pos] == ';' {
		pos++
	}

	d = declaration{start: start, end: pos}
	if single != "" {
		d.exports = []Export{{Name: single, Local: single}}
		return d, true, nil
	}
	d.exports, err = parseEntries(body, esm)
	return d, true, err
}

// find locates the trailing export declaration. ok is false when the file
// has none.
func find(text string) (declaration, bool, error) {
	locs := declStart.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return declaration{}, false, nil
	}
	d, ok, err := parseAt(text, locs[len(locs)-1])
	if !ok {
		return declaration{}, false, nil
	}
	if !trivialTail(text[d.end:]) {
		return declaration{}, false, nil
	}
	if err != nil {
		return declaration{}, true, err
	}
	return d, true, nil
}

func parseEntries(body string, esm bool) ([]Export, error) {
	var list []Export
	for _, raw := range strings.Split(stripLineComments(body), ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		switch {
		case plainRe.MatchString(entry):
			list = append(list, Export{Name: entry, Local: entry})
		case !esm && cjsPairRe.MatchString(entry):
			m := cjsPairRe.FindStringSubmatch(entry)
			list = append(list, Export{Name: m[1], Local: m[2]})
		case esm && esmAsRe.MatchString(entry):
			m := esmAsRe.FindStringSubmatch(entry)
			list = append(list, Export{Name: m[2], Local: m[1]})
		default:
			return nil, fmt.Errorf("%w: entry %q", ErrUnsupportedExport, entry)
		}
	}
	return list, nil
}

// Find returns the exports declared by the trailing declaration of text.
func Find(text string) ([]Export, error) {
	d, ok, err := find(text)
	if !ok || err != nil {
		return nil, err
	}
	return d.exports, nil
}

// Rewrite replaces the trailing export declaration with its target shape.
// Text without a declaration is returned unchanged. On error the text is
// returned unchanged as well.
func Rewrite(text string, target Target) (string, error) {
	d, ok, err := find(text)
	if err != nil {
		return text, err
	}
	if !ok {
		return text, nil
	}
	return text[:d.start] + render(d.exports, target) + text[d.end:], nil
}

// RewriteAll rewrites every export declaration of text that ends its line,
// not only the trailing one. It is used on prebuilt bundles that carry one
// declaration per source region. Declarations with unsupported entries are
// left in place and reported together in the returned error.
func RewriteAll(text string, target Target) (string, []Export, error) {
	locs := declStart.FindAllStringSubmatchIndex(text, -1)
	var errs []error
	var all []Export
	for i := len(locs) - 1; i >= 0; i-- {
		d, ok, err := parseAt(text, locs[i])
		if !ok || !trivialLine(text[d.end:]) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		text = text[:d.start] + render(d.exports, target) + text[d.end:]
		all = append(d.exports, all...)
	}
	return text, all, errors.Join(errs...)
}

func render(list []Export, target Target) string {
	if target == TargetShared {
		return Shared(list, SharedNamespace)
	}
	return Aggregate(list)
}

// Strip removes the trailing export declaration and returns the exports it
// declared.
func Strip(text string) (string, []Export, error) {
	d, ok, err := find(text)
	if err != nil {
		return text, nil, err
	}
	if !ok {
		return text, nil, nil
	}
	return text[:d.start] + text[d.end:], d.exports, nil
}

// Aggregate renders an ESM export statement. One name stays on one line,
// two or more are listed one per line with a trailing comma.
func Aggregate(list []Export) string {
	if len(list) == 0 {
		return "export {};"
	}
	if len(list) == 1 {
		return "export { " + aggregateEntry(list[0]) + " };"
	}
	var b strings.Builder
	b.WriteString("export {\n")
	for _, e := range list {
		b.WriteString("  " + aggregateEntry(e) + ",\n")
	}
	b.WriteString("};")
	return b.String()
}

func aggregateEntry(e Export) string {
	if e.Local == e.Name {
		return e.Name
	}
	return e.Local + " as " + e.Name
}

// Shared renders assignments to ns. Several assignments form one
// comma-continued expression statement.
func Shared(list []Export, ns string) string {
	if len(list) == 0 {
		return ""
	}
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = ns + "." + e.Name + " = " + e.Local
	}
	return strings.Join(parts, ",\n") + ";"
}

// Assignments renders one independent `ns.name = local;` statement per
// export.
func Assignments(list []Export, ns string) string {
	lines := make([]string, len(list))
	for i, e := range list {
		lines[i] = ns + "." + e.Name + " = " + e.Local + ";"
	}
	return strings.Join(lines, "\n")
}

// matchBrace returns the index of the '}' closing the '{' at open, or -1.
func matchBrace(text string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(text); i++ {
		b := text[i]
		if quote != 0 {
			if b == quote {
				quote = 0
			}
			continue
		}
		switch b {
		case '\'', '"', '`':
			quote = b
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func skipSpace(text string, pos int) int {
	for pos < len(text) && strings.IndexByte(" \t\r\n", text[pos]) >= 0 {
		pos++
	}
	return pos
}

// statementEnds reports whether the rest of the line after an expression
// closes the statement.
func statementEnds(rest string) bool {
	rest = strings.TrimLeft(rest, " \t")
	return rest == "" || rest[0] == ';' || rest[0] == '\n' || rest[0] == '\r' || strings.HasPrefix(rest, "//")
}

// trivialLine reports whether the rest of the current line is blank or a
// comment.
func trivialLine(rest string) bool {
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimSpace(rest)
	return rest == "" || strings.HasPrefix(rest, "//")
}

// trivialTail reports whether rest holds only whitespace and comments.
func trivialTail(rest string) bool {
	for {
		rest = strings.TrimLeft(rest, " \t\r\n")
		switch {
		case rest == "":
			return true
		case strings.HasPrefix(rest, "//"):
			nl := strings.IndexByte(rest, '\n')
			if nl < 0 {
				return true
			}
			rest = rest[nl:]
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest, "*/")
			if end < 0 {
				return false
			}
			rest = rest[end+2:]
		default:
			return false
		}
	}
}

func stripLineComments(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

func isIdentByte(b byte, notFirst bool) bool {
	switch {
	case b == '_' || b == '$':
		return true
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case notFirst && b >= '0' && b <= '9':
		return true
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

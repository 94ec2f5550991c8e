package imports

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gnana997/bundlekit/pkg/diag"
)

// maxBlockLines bounds how far a declaration with an unclosed brace may
// extend before the scanner gives up on it.
const maxBlockLines = 64

var (
	requireTrigger  = regexp.MustCompile(`\brequire\s*\(`)
	importTrigger   = regexp.MustCompile(`^\s*import\s*[\s{'"*]`)
	destructureOpen = regexp.MustCompile(`^\s*(?:const|let|var)\s*\{`)
)

// SourceFile is one library source read from disk.
type SourceFile struct {
	Name string
	Text string
}

// Found is a recognized declaration together with where it was found and
// how its specifier was classified.
type Found struct {
	Line        int         `json:"line"`
	EndLine     int         `json:"endLine"`
	Declaration Declaration `json:"declaration"`
	Kind        Kind        `json:"-"`
	KindName    string      `json:"kind"`
	Err         error       `json:"-"`
}

// ScanResult is the outcome of scanning one file.
type ScanResult struct {
	Text  string  `json:"text"`
	Found []Found `json:"found"`
	// Unrecognized holds 1-based line numbers of kept trigger lines.
	Unrecognized []int `json:"unrecognized,omitempty"`
}

// Scanner removes module declarations from sources and feeds external
// references into a Registry. It is not safe for concurrent use because the
// Registry it writes to is not.
type Scanner struct {
	registry *Registry
	sink     diag.Sink
}

// NewScanner returns a Scanner recording into registry. A nil sink discards
// diagnostics.
func NewScanner(registry *Registry, sink diag.Sink) *Scanner {
	if sink == nil {
		sink = diag.Discard
	}
	return &Scanner{registry: registry, sink: sink}
}

// Registry returns the registry the scanner records into.
func (s *Scanner) Registry() *Registry {
	return s.registry
}

// Scan strips every recognized declaration from file and returns the
// remaining text.
func (s *Scanner) Scan(file SourceFile) string {
	return s.Analyze(file).Text
}

// Analyze is Scan with the per-declaration details kept.
//
// Recognized declaration lines are always removed. External specifiers are
// merged into the registry, builtins produce a warning and node:-prefixed
// specifiers an error. Lines that look like a declaration but do not match a
// supported form are kept verbatim and reported as a warning.
func (s *Scanner) Analyze(file SourceFile) ScanResult {
	lines := strings.Split(file.Text, "\n")
	kept := make([]string, 0, len(lines))
	var result ScanResult

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		end := blockEnd(lines, i)
		block := strings.Join(lines[i:end+1], "\n")
		if !isTrigger(line) && !(end > i && destructureOpen.MatchString(line) && requireTrigger.MatchString(block)) {
			kept = append(kept, line)
			continue
		}

		decl := Recognize(block)
		if !decl.Recognized() {
			diag.Warnf(s.sink, file.Name, i+1, "unsupported import/require usage kept as is: %s", strings.TrimSpace(line))
			result.Unrecognized = append(result.Unrecognized, i+1)
			kept = append(kept, lines[i:end+1]...)
			i = end
			continue
		}

		found := s.record(file.Name, i+1, decl, line)
		found.EndLine = end + 1
		result.Found = append(result.Found, found)
		i = end
	}

	result.Text = strings.Join(kept, "\n")
	return result
}

func (s *Scanner) record(filename string, line int, decl Declaration, text string) Found {
	kind, err := Classify(decl.Specifier)
	found := Found{Line: line, Declaration: decl, Kind: kind, KindName: kind.String(), Err: err}

	switch {
	case errors.Is(err, ErrUnsupportedBuiltin):
		diag.Errorf(s.sink, filename, line, "Node built-in require is not allowed in bundle sources: %s", strings.TrimSpace(text))
	case kind == KindBuiltin:
		diag.Warnf(s.sink, filename, line, "Node built-in module imported from bundle source: %s", decl.Specifier)
	case kind == KindExternal:
		s.registry.Merge(decl)
	}
	return found
}

// isTrigger reports whether a line looks like it holds a module declaration.
func isTrigger(line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") {
		return false
	}
	return importTrigger.MatchString(line) || requireTrigger.MatchString(line)
}

// blockEnd returns the index of the last line of the declaration starting
// at lines[start]. A declaration whose braces are still open at the end of
// its first line extends until they close.
func blockEnd(lines []string, start int) int {
	depth := braceDelta(lines[start])
	if depth <= 0 {
		return start
	}
	for j := start + 1; j < len(lines) && j-start < maxBlockLines; j++ {
		depth += braceDelta(lines[j])
		if depth <= 0 {
			return j
		}
	}
	return start
}

func braceDelta(line string) int {
	delta := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		b := line[i]
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
			delta++
		case '}':
			delta--
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return delta
			}
		}
	}
	return delta
}

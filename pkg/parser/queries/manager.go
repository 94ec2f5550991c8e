// Package queries compiles, caches and runs tree-sitter queries.
package queries

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/bundlekit/pkg/parser"
)

// QueryType selects a query.
type QueryType int

const (
	// QueryTypeModule finds import, export and require usage.
	QueryTypeModule QueryType = iota
)

func (qt QueryType) String() string {
	switch qt {
	case QueryTypeModule:
		return "module"
	default:
		return "unknown"
	}
}

type queryKey struct {
	lang  parser.Language
	qtype QueryType
}

// QueryManager compiles queries lazily and caches them per language. It is
// safe for concurrent use.
type QueryManager struct {
	parserManager *parser.ParserManager
	cache         map[queryKey]*ts.Query
	mutex         sync.RWMutex
	logger        *slog.Logger
}

// NewQueryManager creates a query manager backed by pm's grammars.
func NewQueryManager(pm *parser.ParserManager, logger *slog.Logger) *QueryManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryManager{
		parserManager: pm,
		cache:         make(map[queryKey]*ts.Query),
		logger:        logger,
	}
}

// GetQuery returns the compiled query of qtype for lang.
func (qm *QueryManager) GetQuery(lang parser.Language, qtype QueryType) (*ts.Query, error) {
	key := queryKey{lang: lang, qtype: qtype}

	qm.mutex.RLock()
	query, ok := qm.cache[key]
	qm.mutex.RUnlock()
	if ok {
		return query, nil
	}

	qm.mutex.Lock()
	defer qm.mutex.Unlock()
	if query, ok = qm.cache[key]; ok {
		return query, nil
	}

	text, err := queryString(qtype)
	if err != nil {
		return nil, err
	}
	ptr, err := qm.parserManager.GetLanguagePointer(lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get language pointer for %s: %w", lang, err)
	}
	query, qerr := ts.NewQuery(ts.NewLanguage(ptr), text)
	if qerr != nil {
		return nil, fmt.Errorf("failed to compile %s query for %s: %s", qtype, lang, qerr.Message)
	}
	qm.cache[key] = query
	qm.logger.Debug("compiled query", "language", lang.String(), "type", qtype.String())
	return query, nil
}

func queryString(qtype QueryType) (string, error) {
	switch qtype {
	case QueryTypeModule:
		return ModuleQuery, nil
	default:
		return "", fmt.Errorf("unknown query type: %d", qtype)
	}
}

// ExecuteQuery runs query over tree and returns every match.
func (qm *QueryManager) ExecuteQuery(tree *ts.Tree, query *ts.Query, source []byte) ([]QueryMatch, error) {
	if tree == nil {
		return nil, fmt.Errorf("tree is nil")
	}
	if query == nil {
		return nil, fmt.Errorf("query is nil")
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	names := query.CaptureNames()
	iter := cursor.Matches(query, tree.RootNode(), source)
	var matches []QueryMatch
	for match := iter.Next(); match != nil; match = iter.Next() {
		captures := make([]QueryCapture, 0, len(match.Captures))
		for _, c := range match.Captures {
			var name string
			if int(c.Index) < len(names) {
				name = names[c.Index]
			}
			category, field := parseCaptureName(name)
			node := c.Node
			captures = append(captures, QueryCapture{
				Name:     name,
				Category: category,
				Field:    field,
				Node:     &node,
				Text:     node.Utf8Text(source),
				Location: NodeLocation(&node),
			})
		}
		matches = append(matches, QueryMatch{PatternIndex: uint32(match.PatternIndex), Captures: captures})
	}
	return matches, nil
}

// Close frees every compiled query.
func (qm *QueryManager) Close() error {
	qm.mutex.Lock()
	defer qm.mutex.Unlock()
	for key, query := range qm.cache {
		query.Close()
		delete(qm.cache, key)
	}
	return nil
}

// QueryMatch is one pattern match.
type QueryMatch struct {
	PatternIndex uint32
	Captures     []QueryCapture
}

// Capture returns the first capture named name.
func (m QueryMatch) Capture(name string) (QueryCapture, bool) {
	for _, c := range m.Captures {
		if c.Name == name {
			return c, true
		}
	}
	return QueryCapture{}, false
}

// QueryCapture is one captured node. A capture named "call.source" has
// Category "call" and Field "source".
type QueryCapture struct {
	Name     string
	Category string
	Field    string
	Node     *ts.Node
	Text     string
	Location Location
}

// Location is a node position with 1-based lines and columns.
type Location struct {
	StartLine   uint32
	StartColumn uint32
	EndLine     uint32
	EndColumn   uint32
	StartByte   uint32
	EndByte     uint32
}

func parseCaptureName(name string) (category, field string) {
	category, field, _ = strings.Cut(name, ".")
	return category, field
}

// NodeLocation converts tree-sitter's 0-based points to a Location.
func NodeLocation(node *ts.Node) Location {
	start := node.StartPosition()
	end := node.EndPosition()
	return Location{
		StartLine:   uint32(start.Row + 1),
		StartColumn: uint32(start.Column + 1),
		EndLine:     uint32(end.Row + 1),
		EndColumn:   uint32(end.Column + 1),
		StartByte:   uint32(node.StartByte()),
		EndByte:     uint32(node.EndByte()),
	}
}

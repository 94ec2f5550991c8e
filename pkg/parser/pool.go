package parser

import (
	"errors"
	"log/slog"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// parserPool bounds the live parsers of one grammar. A slot is taken for
// every checked-out parser, so at most cap(slots) parse concurrently; idle
// parsers are reused before new ones are built.
type parserPool struct {
	lang    Language
	grammar *ts.Language
	slots   chan struct{}
	logger  *slog.Logger

	mu      sync.Mutex
	idle    []*ts.Parser
	created int
	closed  bool
}

var errPoolClosed = errors.New("parser pool closed")

func newParserPool(lang Language, grammar *ts.Language, maxSize int, logger *slog.Logger) *parserPool {
	return &parserPool{
		lang:    lang,
		grammar: grammar,
		slots:   make(chan struct{}, maxSize),
		logger:  logger,
	}
}

func (p *parserPool) acquire() (*ts.Parser, error) {
	p.slots <- struct{}{}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		<-p.slots
		return nil, errPoolClosed
	}
	if n := len(p.idle); n > 0 {
		parser := p.idle[n-1]
		p.idle = p.idle[:n-1]
		return parser, nil
	}

	parser := ts.NewParser()
	if err := parser.SetLanguage(p.grammar); err != nil {
		parser.Close()
		<-p.slots
		return nil, err
	}
	p.created++
	p.logger.Debug("created parser", "language", p.lang.String(), "created", p.created)
	return parser, nil
}

func (p *parserPool) release(parser *ts.Parser) {
	p.mu.Lock()
	if p.closed {
		parser.Close()
	} else {
		parser.Reset()
		p.idle = append(p.idle, parser)
	}
	p.mu.Unlock()
	<-p.slots
}

// close frees idle parsers. Parsers still checked out are freed on release.
func (p *parserPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for _, parser := range p.idle {
		parser.Close()
	}
	p.idle = nil
}

func (p *parserPool) createdCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

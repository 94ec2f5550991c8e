// Package parser wraps tree-sitter grammars for the languages bundlekit
// inspects after a build: JavaScript artifacts and TypeScript declaration
// files.
package parser

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/gnana997/bundlekit/pkg/util"
)

// ParserManager hands out pooled parsers per language.
//
// Pools are created on first use. Callers own the returned trees and must
// Close them; the manager itself must be closed when done.
//
//	manager := NewParserManager(logger, 0)
//	defer manager.Close()
//
//	tree, err := manager.Parse(src, LanguageJavaScript)
//	if err != nil {
//	    return err
//	}
//	defer tree.Close()
type ParserManager struct {
	pools    map[Language]*parserPool
	poolSize int
	mutex    sync.RWMutex
	logger   *slog.Logger

	parsesCalled int
}

// NewParserManager creates a manager. A poolSize of 0 sizes every pool from
// the CPU count, matching the verification worker count.
func NewParserManager(logger *slog.Logger, poolSize int) *ParserManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParserManager{
		pools:    make(map[Language]*parserPool),
		poolSize: util.GetOptimalPoolSizeWithOverride(poolSize),
		logger:   logger,
	}
}

// Parse parses source with the grammar of lang. A tree is returned even when
// it contains syntax errors; check RootNode().HasError().
func (pm *ParserManager) Parse(source []byte, lang Language) (*ts.Tree, error) {
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("cannot parse unknown language")
	}

	pm.mutex.Lock()
	pm.parsesCalled++
	pm.mutex.Unlock()

	pool, err := pm.getOrCreatePool(lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool for %s: %w", lang, err)
	}

	p, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire parser: %w", err)
	}
	tree := p.Parse(source, nil)
	pool.release(p)

	if tree == nil {
		return nil, fmt.Errorf("parser returned no tree")
	}
	if tree.RootNode().HasError() {
		pm.logger.Debug("parse tree contains errors", "language", lang.String())
	}
	return tree, nil
}

// ParseFile parses source with the grammar detected from path.
func (pm *ParserManager) ParseFile(source []byte, path string) (*ts.Tree, error) {
	lang := DetectLanguage(path)
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("unsupported file extension: %s", path)
	}
	return pm.Parse(source, lang)
}

// Close releases every pooled parser. The manager cannot be used afterwards.
func (pm *ParserManager) Close() error {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	pm.logger.Debug("closing parser manager", "parses_called", pm.parsesCalled)
	for lang, pool := range pm.pools {
		pool.close()
		delete(pm.pools, lang)
	}
	return nil
}

func (pm *ParserManager) getOrCreatePool(lang Language) (*parserPool, error) {
	pm.mutex.RLock()
	pool, ok := pm.pools[lang]
	pm.mutex.RUnlock()
	if ok {
		return pool, nil
	}

	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	if pool, ok = pm.pools[lang]; ok {
		return pool, nil
	}

	ptr, err := pm.GetLanguagePointer(lang)
	if err != nil {
		return nil, err
	}
	pool = newParserPool(lang, ts.NewLanguage(ptr), pm.poolSize, pm.logger)
	pm.pools[lang] = pool
	pm.logger.Debug("created parser pool", "language", lang.String(), "max_size", pm.poolSize)
	return pool, nil
}

// GetLanguagePointer returns the grammar of lang, used to compile queries.
func (pm *ParserManager) GetLanguagePointer(lang Language) (unsafe.Pointer, error) {
	switch lang {
	case LanguageJavaScript:
		return ts_javascript.Language(), nil
	case LanguageTypeScript:
		return ts_typescript.LanguageTypescript(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// ParserStats reports parser usage.
type ParserStats struct {
	ParsersCreated int
	ParsesCalled   int
}

// GetStats returns usage counters across all pools.
func (pm *ParserManager) GetStats() ParserStats {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	created := 0
	for _, pool := range pm.pools {
		created += pool.createdCount()
	}
	return ParserStats{ParsersCreated: created, ParsesCalled: pm.parsesCalled}
}

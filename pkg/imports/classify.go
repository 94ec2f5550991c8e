// Package imports finds module declarations in library sources, classifies
// what they reference and aggregates external references into a single,
// deterministic import block for the whole bundle.
package imports

import (
	"errors"
	"strings"
)

// Kind is the classification of a specifier.
type Kind int

const (
	// KindExternal is a third-party package. It is recorded in the Registry.
	KindExternal Kind = iota
	// KindLocal is a relative reference to another file of the same bundle.
	KindLocal
	// KindBuiltin is a module provided by the Node.js runtime.
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindExternal:
		return "external"
	case KindLocal:
		return "local"
	case KindBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// ErrUnsupportedBuiltin is returned for specifiers using the node: prefix.
var ErrUnsupportedBuiltin = errors.New("node built-in require is not allowed in bundle sources")

const builtinPrefix = "node:"

// nodeBuiltins mirrors require('node:module').builtinModules with the
// node: prefix removed.
var nodeBuiltins = map[string]struct{}{
	"_http_agent": {}, "_http_client": {}, "_http_common": {}, "_http_incoming": {},
	"_http_outgoing": {}, "_http_server": {}, "_stream_duplex": {}, "_stream_passthrough": {},
	"_stream_readable": {}, "_stream_transform": {}, "_stream_wrap": {}, "_stream_writable": {},
	"_tls_common": {}, "_tls_wrap": {},
	"assert": {}, "assert/strict": {}, "async_hooks": {}, "buffer": {}, "child_process": {},
	"cluster": {}, "console": {}, "constants": {}, "crypto": {}, "dgram": {},
	"diagnostics_channel": {}, "dns": {}, "dns/promises": {}, "domain": {}, "events": {},
	"fs": {}, "fs/promises": {}, "http": {}, "http2": {}, "https": {}, "inspector": {},
	"inspector/promises": {}, "module": {}, "net": {}, "os": {}, "path": {}, "path/posix": {},
	"path/win32": {}, "perf_hooks": {}, "process": {}, "punycode": {}, "querystring": {},
	"readline": {}, "readline/promises": {}, "repl": {}, "stream": {}, "stream/consumers": {},
	"stream/promises": {}, "stream/web": {}, "string_decoder": {}, "sys": {}, "timers": {},
	"timers/promises": {}, "tls": {}, "trace_events": {}, "tty": {}, "url": {}, "util": {},
	"util/types": {}, "v8": {}, "vm": {}, "wasi": {}, "worker_threads": {}, "zlib": {},
}

// IsBuiltin reports whether name is a Node.js built-in module, with or
// without the node: prefix.
func IsBuiltin(name string) bool {
	_, ok := nodeBuiltins[strings.TrimPrefix(name, builtinPrefix)]
	return ok
}

// IsRelative reports whether specifier points at a file of the same bundle.
func IsRelative(specifier string) bool {
	switch specifier {
	case ".", "..":
		return true
	}
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// Classify decides what a specifier refers to. It is a pure function of the
// specifier string.
//
// A node:-prefixed specifier yields KindBuiltin together with
// ErrUnsupportedBuiltin; callers report it and drop the declaration without
// failing the run.
func Classify(specifier string) (Kind, error) {
	if strings.HasPrefix(specifier, builtinPrefix) {
		return KindBuiltin, ErrUnsupportedBuiltin
	}
	if IsRelative(specifier) {
		return KindLocal, nil
	}
	if IsBuiltin(specifier) {
		return KindBuiltin, nil
	}
	return KindExternal, nil
}

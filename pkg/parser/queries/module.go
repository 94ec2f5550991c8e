package queries

// ModuleQuery finds module-system statements: ESM import and export
// statements and calls with a string argument that may be require() calls.
// The JavaScript and TypeScript grammars share these node kinds.
//
// Captures:
//   - @module.import / @module.export: whole statements
//   - @call.callee, @call.source, @call.expression: candidate require calls
const ModuleQuery = `
(import_statement) @module.import

(export_statement) @module.export

(call_expression
  function: (identifier) @call.callee
  arguments: (arguments . (string) @call.source)
) @call.expression
`

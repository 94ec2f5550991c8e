package imports

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultTemplate renders specifiers unchanged.
const DefaultTemplate = "{name}"

// Entry is everything the bundle imports from one external specifier.
type Entry struct {
	defaults   *orderedmap.OrderedMap[string, struct{}]
	named      *orderedmap.OrderedMap[string, struct{}]
	sideEffect bool
}

func newEntry() *Entry {
	return &Entry{
		defaults: orderedmap.New[string, struct{}](),
		named:    orderedmap.New[string, struct{}](),
	}
}

// DefaultNames returns the whole-module bindings in first-seen order.
func (e *Entry) DefaultNames() []string { return keys(e.defaults) }

// Named returns the member bindings in first-seen order.
func (e *Entry) Named() []string { return keys(e.named) }

// SideEffect reports whether any file imported the specifier bare.
func (e *Entry) SideEffect() bool { return e.sideEffect }

func (e *Entry) empty() bool {
	return !e.sideEffect && e.defaults.Len() == 0 && e.named.Len() == 0
}

func keys(m *orderedmap.OrderedMap[string, struct{}]) []string {
	out := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Registry maps external specifiers to the union of what every file of the
// bundle imports from them. The zero value is not usable; call NewRegistry.
//
// Specifiers and names keep the order in which they were first merged, so
// the same sequence of merges always emits the same statements.
type Registry struct {
	entries *orderedmap.OrderedMap[string, *Entry]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: orderedmap.New[string, *Entry]()}
}

// Len returns the number of specifiers.
func (r *Registry) Len() int { return r.entries.Len() }

// Specifiers returns the recorded specifiers in first-seen order.
func (r *Registry) Specifiers() []string {
	out := make([]string, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Get returns the entry of a specifier.
func (r *Registry) Get(specifier string) (*Entry, bool) {
	return r.entries.Get(specifier)
}

func (r *Registry) entry(specifier string) *Entry {
	if e, ok := r.entries.Get(specifier); ok {
		return e
	}
	e := newEntry()
	r.entries.Set(specifier, e)
	return e
}

// Merge adds a declaration's bindings to its specifier's entry. Merging the
// same declaration twice has no further effect. Unrecognized declarations
// are ignored.
func (r *Registry) Merge(d Declaration) {
	if !d.Recognized() || d.Specifier == "" {
		return
	}
	e := r.entry(d.Specifier)
	switch d.Shape {
	case ShapeSideEffect:
		e.sideEffect = true
	case ShapeAssignment:
		e.defaults.Set(d.Default, struct{}{})
	case ShapeDestructuring:
		if d.Default != "" {
			e.defaults.Set(d.Default, struct{}{})
		}
		for _, name := range d.Names {
			e.named.Set(name, struct{}{})
		}
	}
}

// Union merges every entry of other into r. Specifiers new to r are
// appended in other's order.
func (r *Registry) Union(other *Registry) {
	if other == nil {
		return
	}
	for pair := other.entries.Oldest(); pair != nil; pair = pair.Next() {
		e := r.entry(pair.Key)
		src := pair.Value
		e.sideEffect = e.sideEffect || src.sideEffect
		for p := src.defaults.Oldest(); p != nil; p = p.Next() {
			e.defaults.Set(p.Key, struct{}{})
		}
		for p := src.named.Oldest(); p != nil; p = p.Next() {
			e.named.Set(p.Key, struct{}{})
		}
	}
}

// EmitOptions controls how statements are rendered.
type EmitOptions struct {
	// Template maps a specifier to the emitted module path. "{name}" is
	// replaced by the specifier; the empty string means DefaultTemplate.
	Template string
}

func (o EmitOptions) path(specifier string) string {
	tmpl := o.Template
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	return strings.ReplaceAll(tmpl, "{name}", specifier)
}

// Emit renders the minimal statement list for the registry, one entry at a
// time in first-seen order:
//
//   - a bare `import 'x';` first when the specifier was imported for side effects
//   - one combined statement for a single default plus named bindings
//   - one statement per default name, then one for all named bindings,
//     when several files used different default names
//   - nothing for an entry without bindings
func (r *Registry) Emit(opts EmitOptions) []string {
	var out []string
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		e := pair.Value
		if e.empty() {
			continue
		}
		from := "'" + opts.path(pair.Key) + "'"
		if e.sideEffect {
			out = append(out, "import "+from+";")
		}

		defaults, named := e.DefaultNames(), e.Named()
		list := "{ " + strings.Join(named, ", ") + " }"
		switch {
		case len(defaults) == 0 && len(named) == 0:
			// side effect only
		case len(defaults) == 0:
			out = append(out, "import "+list+" from "+from+";")
		case len(defaults) == 1 && len(named) > 0:
			out = append(out, "import "+defaults[0]+", "+list+" from "+from+";")
		default:
			for _, name := range defaults {
				out = append(out, "import "+name+" from "+from+";")
			}
			if len(named) > 0 {
				out = append(out, "import "+list+" from "+from+";")
			}
		}
	}
	return out
}

// Block joins Emit's statements and terminates them with a blank line. An
// empty registry yields "".
func (r *Registry) Block(opts EmitOptions) string {
	stmts := r.Emit(opts)
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, "\n") + "\n\n"
}

// Snapshot is a plain view of one entry, used for JSON output.
type Snapshot struct {
	Specifier  string   `json:"specifier"`
	Defaults   []string `json:"defaults,omitempty"`
	Named      []string `json:"named,omitempty"`
	SideEffect bool     `json:"sideEffect,omitempty"`
}

// Snapshot returns the registry content in first-seen order.
func (r *Registry) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Snapshot{
			Specifier:  pair.Key,
			Defaults:   pair.Value.DefaultNames(),
			Named:      pair.Value.Named(),
			SideEffect: pair.Value.sideEffect,
		})
	}
	return out
}

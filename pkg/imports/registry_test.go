package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_EmitShapes(t *testing.T) {
	r := NewRegistry()
	r.Merge(Declaration{Shape: ShapeSideEffect, Specifier: "polyfill"})
	r.Merge(Declaration{Shape: ShapeAssignment, Specifier: "lodash", Default: "_"})
	r.Merge(Declaration{Shape: ShapeDestructuring, Specifier: "lodash", Names: []string{"map"}})
	r.Merge(Declaration{Shape: ShapeAssignment, Specifier: "multi", Default: "a"})
	r.Merge(Declaration{Shape: ShapeAssignment, Specifier: "multi", Default: "b"})
	r.Merge(Declaration{Shape: ShapeDestructuring, Specifier: "multi", Names: []string{"x", "y"}})
	r.Merge(Declaration{Shape: ShapeAssignment, Specifier: "single", Default: "s"})
	r.Merge(Declaration{Shape: ShapeDestructuring, Specifier: "empty"})

	want := []string{
		"import 'polyfill';",
		"import _, { map } from 'lodash';",
		"import a from 'multi';",
		"import b from 'multi';",
		"import { x, y } from 'multi';",
		"import s from 'single';",
	}
	assert.Equal(t, want, r.Emit(EmitOptions{}))
}

func TestRegistry_SideEffectAndBindings(t *testing.T) {
	r := NewRegistry()
	r.Merge(Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a"}})
	r.Merge(Declaration{Shape: ShapeSideEffect, Specifier: "pkg"})

	assert.Equal(t, []string{"import 'pkg';", "import { a } from 'pkg';"}, r.Emit(EmitOptions{}))
}

func TestRegistry_MergeIsIdempotent(t *testing.T) {
	d := Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a", "b"}}
	r := NewRegistry()
	r.Merge(d)
	once := r.Emit(EmitOptions{})
	r.Merge(d)
	assert.Equal(t, once, r.Emit(EmitOptions{}))
}

func TestRegistry_UnionIsCommutativeInContent(t *testing.T) {
	a := NewRegistry()
	a.Merge(Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"a"}})
	a.Merge(Declaration{Shape: ShapeSideEffect, Specifier: "side"})
	b := NewRegistry()
	b.Merge(Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Names: []string{"b"}})
	b.Merge(Declaration{Shape: ShapeAssignment, Specifier: "other", Default: "o"})

	ab := NewRegistry()
	ab.Union(a)
	ab.Union(b)
	ba := NewRegistry()
	ba.Union(b)
	ba.Union(a)

	assert.ElementsMatch(t, ab.Specifiers(), ba.Specifiers())
	for _, spec := range ab.Specifiers() {
		x, _ := ab.Get(spec)
		y, _ := ba.Get(spec)
		assert.ElementsMatch(t, x.Named(), y.Named(), spec)
		assert.ElementsMatch(t, x.DefaultNames(), y.DefaultNames(), spec)
		assert.Equal(t, x.SideEffect(), y.SideEffect(), spec)
	}
}

func TestRegistry_Block(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "", r.Block(EmitOptions{}))

	r.Merge(Declaration{Shape: ShapeAssignment, Specifier: "metautil", Default: "metautil"})
	r.Merge(Declaration{Shape: ShapeDestructuring, Specifier: "@scope/x", Names: []string{"y"}})
	got := r.Block(EmitOptions{Template: "./{name}.js"})
	assert.Equal(t, "import metautil from './metautil.js';\nimport { y } from './@scope/x.js';\n\n", got)
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	r.Merge(Declaration{Shape: ShapeDestructuring, Specifier: "pkg", Default: "p", Names: []string{"a"}})

	assert.Equal(t, []Snapshot{{Specifier: "pkg", Defaults: []string{"p"}, Named: []string{"a"}}}, r.Snapshot())
}

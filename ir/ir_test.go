package ir_test

import (
	"errors"
	"testing"

	"github.com/BarrensZeppelin/pta/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hierarchy builds
//
//	interface I { void m(); }
//	class Object
//	abstract class Base implements I { abstract void m(); void n(); }
//	class Derived extends Base { void m(); }
//	class Leaf extends Derived {}
//	class Other { void m(); }
func hierarchy() (*ir.Program, map[string]*ir.Class) {
	p := ir.NewProgram()
	obj := p.NewClass("Object", nil, nil, 0)
	itf := p.NewClass("I", nil, nil, ir.Interface)
	base := p.NewClass("Base", obj, []*ir.Class{itf}, ir.AbstractClass)
	derived := p.NewClass("Derived", base, nil, 0)
	leaf := p.NewClass("Leaf", derived, nil, 0)
	other := p.NewClass("Other", obj, nil, 0)

	itf.NewMethod("m", nil, ir.Void, 0)
	base.NewMethod("m", nil, ir.Void, ir.Abstract)
	base.NewMethod("n", nil, ir.Void, 0)
	derived.NewMethod("m", nil, ir.Void, 0)
	other.NewMethod("m", nil, ir.Void, 0)

	return p, map[string]*ir.Class{
		"Object": obj, "I": itf, "Base": base, "Derived": derived, "Leaf": leaf, "Other": other,
	}
}

func TestHierarchy(t *testing.T) {
	p, cs := hierarchy()

	assert.Equal(t, cs["Object"], p.Object)
	assert.True(t, cs["I"].IsAbstract)

	assert.True(t, p.IsSubclass(cs["Base"], cs["Leaf"]))
	assert.True(t, p.IsSubclass(cs["Leaf"], cs["Leaf"]))
	assert.False(t, p.IsSubclass(cs["Leaf"], cs["Base"]))
	assert.True(t, p.Implements(cs["Leaf"], cs["I"]))
	assert.False(t, p.Implements(cs["Other"], cs["I"]))
	assert.False(t, p.Implements(cs["Leaf"], cs["Base"]), "Base is not an interface")

	assert.Equal(t, []*ir.Class{cs["Derived"], cs["Leaf"]}, p.Implementers(cs["I"]))
}

func TestDispatch(t *testing.T) {
	p, cs := hierarchy()
	mRef := cs["I"].DeclaredMethod("void m()").Ref()
	nRef := cs["Base"].DeclaredMethod("void n()").Ref()
	derivedM := cs["Derived"].DeclaredMethod("void m()")

	assert.Equal(t, derivedM, p.Dispatch(cs["Derived"], mRef))
	assert.Equal(t, derivedM, p.Dispatch(cs["Leaf"], mRef), "inherited override")
	assert.Nil(t, p.Dispatch(cs["Base"], mRef), "only an abstract declaration exists")
	assert.Equal(t, cs["Base"].DeclaredMethod("void n()"), p.Dispatch(cs["Leaf"], nRef))
	assert.Nil(t, p.Dispatch(ir.Void, mRef))

	t.Run("Arrays", func(t *testing.T) {
		hash := cs["Object"].NewMethod("hashCode", nil, p.Type("int"), 0)
		assert.Equal(t, hash, p.Dispatch(p.ArrayOf(cs["Leaf"]), hash.Ref()))
	})

	t.Run("Resolve", func(t *testing.T) {
		ref := ir.MethodRef{Class: cs["Leaf"], Name: "n", ReturnType: ir.Void}
		assert.Equal(t, cs["Base"].DeclaredMethod("void n()"), p.Resolve(ref))
		assert.Equal(t, cs["Base"].DeclaredMethod("void m()"), p.Resolve(cs["Base"].DeclaredMethod("void m()").Ref()),
			"resolution does not skip abstract methods")
		assert.Nil(t, p.Resolve(ir.MethodRef{Class: cs["Other"], Name: "n", ReturnType: ir.Void}))
	})
}

func TestSignatures(t *testing.T) {
	p := ir.NewProgram()
	p.NewClass("Object", nil, nil, 0)
	str := p.NewClass("java.lang.String", p.Object, nil, 0)
	m := str.NewMethod("concat", []ir.Type{str, p.Type("int[]")}, str, 0)

	assert.Equal(t, "java.lang.String concat(java.lang.String,int[])", m.Subsignature())
	assert.Equal(t, "<java.lang.String: java.lang.String concat(java.lang.String,int[])>", m.Signature())
	assert.Equal(t, []string{"this", "p0", "p1"}, names(m.Vars()))
	assert.Same(t, p.ArrayOf(p.Type("int")), p.Type("int[]"))

	got, err := p.Method("<java.lang.String: java.lang.String concat(java.lang.String, int[])>")
	require.NoError(t, err)
	assert.Equal(t, m, got)

	ref, err := p.MethodRef("<java.lang.String: void absent(int)>")
	require.NoError(t, err)
	assert.Equal(t, "<java.lang.String: void absent(int)>", ref.String())

	for _, tc := range []struct {
		sig string
		err error
	}{
		{"java.lang.String: void x()", ir.ErrMalformedSignature},
		{"<java.lang.String void x()>", ir.ErrMalformedSignature},
		{"<Nope: void x()>", ir.ErrUnknownMethod},
		{"<java.lang.String: void x()>", ir.ErrUnknownMethod},
	} {
		_, err := p.Method(tc.sig)
		assert.True(t, errors.Is(err, tc.err), "%s: %v", tc.sig, err)
	}

	_, err = p.MethodRef("<java.lang.String: Foo x()>")
	assert.ErrorIs(t, err, ir.ErrUnknownType)
}

func TestBuilders(t *testing.T) {
	p := ir.NewProgram()
	obj := p.NewClass("Object", nil, nil, 0)
	f := obj.NewField("f", obj, false)
	g := obj.NewField("g", obj, true)
	m := obj.NewMethod("m", []ir.Type{obj}, obj, 0, "x")
	other := obj.NewMethod("other", nil, ir.Void, ir.Static)

	x, y := m.Var("x"), m.NewVar("y", obj)
	load := m.AddLoadField(y, x, f)
	store := m.AddStoreField(nil, g, y)
	call := m.AddInvoke(ir.CallVirtual, m.Ref(), x, []*ir.Var{y}, y)
	m.AddReturn(y)

	assert.Equal(t, []*ir.LoadField{load}, x.LoadFields())
	assert.True(t, store.IsStatic())
	assert.Equal(t, []*ir.Invoke{call}, x.Invokes())
	assert.Equal(t, []*ir.Var{y}, m.ReturnVars())
	assert.Equal(t, 2, call.Index())
	assert.Equal(t, "<Object: Object m(Object)>[2]", call.Location())
	assert.Equal(t, "y = invokevirtual x.<Object: Object m(Object)>(y)", call.String())

	assert.Panics(t, func() { m.AddLoadField(y, nil, f) }, "instance field without base")
	assert.Panics(t, func() { m.AddInvoke(ir.CallStatic, other.Ref(), x, nil, nil) }, "static call with receiver")
	assert.Panics(t, func() { other.AddCopy(x, x) }, "foreign variable")
}

func names(vs []*ir.Var) []string {
	res := make([]string, len(vs))
	for i, v := range vs {
		res[i] = v.Name
	}
	return res
}

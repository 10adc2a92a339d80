package pta

import (
	"errors"
	"testing"

	"github.com/BarrensZeppelin/pta/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callSites creates a method with n static calls to itself.
func callSites(n int) (*ir.Method, []*ir.Invoke) {
	p := ir.NewProgram()
	c := p.NewClass("C", nil, nil, 0)
	m := c.NewMethod("m", nil, ir.Void, ir.Static)
	var res []*ir.Invoke
	for i := 0; i < n; i++ {
		res = append(res, m.AddInvoke(ir.CallStatic, m.Ref(), nil, nil, nil))
	}
	return m, res
}

func TestContextTrie(t *testing.T) {
	trie := newContextTrie()
	empty := trie.EmptyContext()
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, "[]", empty.String())

	ab := trie.get([]any{"a", "b"})
	assert.Same(t, ab, trie.get([]any{"a", "b"}), "contexts are interned")
	assert.Equal(t, []any{"a", "b"}, ab.Elems())
	assert.Equal(t, "[a, b]", ab.String())

	assert.Same(t, trie.get([]any{"b", "c"}), trie.append(ab, "c", 2))
	assert.Same(t, trie.get([]any{"a", "b", "c"}), trie.append(ab, "c", 3))
	assert.Same(t, empty, trie.append(ab, "c", 0))
	assert.Same(t, trie.get([]any{"b"}), trie.truncate(ab, 1))
	assert.Same(t, ab, trie.truncate(ab, 5))
	assert.Same(t, empty, trie.truncate(ab, 0))
}

func TestKCallSiteSelector(t *testing.T) {
	m, invokes := callSites(3)
	sel := NewKCallSiteSelector(2)
	csm := newCSManager()

	ctx := sel.EmptyContext()
	for _, inv := range invokes {
		ctx = sel.SelectContext(csm.csCallSite(ctx, inv), m)
	}
	require.Equal(t, 2, ctx.Len())
	assert.Equal(t, []any{invokes[1], invokes[2]}, ctx.Elems())
	assert.Equal(t, "[<C: void m()>[1], <C: void m()>[2]]", ctx.String())

	heap := sel.SelectHeapContext(csm.csMethod(ctx, m), nil)
	assert.Equal(t, []any{invokes[2]}, heap.Elems(), "heap contexts are one shorter")
}

func TestObjectSelectors(t *testing.T) {
	p := ir.NewProgram()
	obj := p.NewClass("Object", nil, nil, 0)
	factory := p.NewClass("Factory", obj, nil, 0)
	m := factory.NewMethod("make", nil, obj, 0)
	site := m.AddNew(m.NewVar("x", obj), obj)
	inv := m.AddInvoke(ir.CallVirtual, m.Ref(), m.This, nil, nil)

	heap := newHeapModel()
	o := heap.obj(site)
	assert.Same(t, o, heap.obj(site))

	t.Run("Object", func(t *testing.T) {
		sel := NewKObjectSelector(2)
		csm := newCSManager()
		recv := csm.csObj(sel.EmptyContext(), o)
		cs := csm.csCallSite(sel.EmptyContext(), inv)

		ctx := sel.SelectInstanceContext(cs, recv, m)
		assert.Equal(t, []any{o}, ctx.Elems())
		assert.Same(t, cs.Context, sel.SelectContext(cs, m), "static calls keep the caller context")
	})

	t.Run("Type", func(t *testing.T) {
		sel := NewKTypeSelector(1)
		csm := newCSManager()
		recv := csm.csObj(sel.EmptyContext(), o)
		cs := csm.csCallSite(sel.EmptyContext(), inv)

		ctx := sel.SelectInstanceContext(cs, recv, m)
		assert.Equal(t, []any{factory}, ctx.Elems(), "the class containing the allocation")
		assert.Same(t, sel.EmptyContext(), sel.SelectHeapContext(csm.csMethod(ctx, m), o))
	})

	t.Run("Insensitive", func(t *testing.T) {
		sel := NewContextInsensitiveSelector()
		csm := newCSManager()
		recv := csm.csObj(sel.EmptyContext(), o)
		cs := csm.csCallSite(sel.EmptyContext(), inv)
		assert.Same(t, sel.EmptyContext(), sel.SelectInstanceContext(cs, recv, m))
		assert.Same(t, sel.EmptyContext(), sel.SelectContext(cs, m))
	})
}

func TestSelectorByName(t *testing.T) {
	for name, expect := range map[string]any{
		"ci":     &ciSelector{},
		"1-call": &kCallSelector{},
		"2-obj":  &kObjSelector{},
		"3-type": &kTypeSelector{},
	} {
		sel, err := SelectorByName(name)
		if assert.NoError(t, err, name) {
			assert.IsType(t, expect, sel, name)
		}
	}

	for _, name := range []string{"", "obj", "0-obj", "2-cfa", "x-call"} {
		_, err := SelectorByName(name)
		assert.True(t, errors.Is(err, ErrUnknownSelector), name)
	}
}

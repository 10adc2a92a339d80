package pta

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/BarrensZeppelin/pta/ir"
)

// Context is a calling context: a bounded sequence of context elements
// (call sites, abstract objects or types, depending on the selector).
//
// Contexts are interned in a trie owned by the selector that created them,
// so two contexts of the same analysis run are structurally equal iff they
// are the same pointer.
type Context struct {
	parent   *Context
	elem     any
	length   int
	children map[any]*Context
}

// Len returns the number of elements in c.
func (c *Context) Len() int { return c.length }

// Elems returns the elements of c, oldest first.
func (c *Context) Elems() []any {
	res := make([]any, c.length)
	for k := c; k.parent != nil; k = k.parent {
		res[k.length-1] = k.elem
	}
	return res
}

func (c *Context) String() string {
	elems := c.Elems()
	strs := make([]string, len(elems))
	for i, e := range elems {
		switch e := e.(type) {
		case *ir.Invoke:
			strs[i] = e.Location()
		default:
			strs[i] = fmt.Sprint(e)
		}
	}
	return "[" + strings.Join(strs, ", ") + "]"
}

type contextTrie struct {
	root *Context
}

func newContextTrie() contextTrie {
	return contextTrie{root: &Context{}}
}

// EmptyContext returns the context without elements.
func (t contextTrie) EmptyContext() *Context { return t.root }

func (t contextTrie) get(elems []any) *Context {
	c := t.root
	for _, e := range elems {
		child, ok := c.children[e]
		if !ok {
			if c.children == nil {
				c.children = make(map[any]*Context)
			}
			child = &Context{parent: c, elem: e, length: c.length + 1}
			c.children[e] = child
		}
		c = child
	}
	return c
}

// append returns the context consisting of the last limit-1 elements of c
// followed by elem. A non-positive limit yields the empty context.
func (t contextTrie) append(c *Context, elem any, limit int) *Context {
	if limit <= 0 {
		return t.root
	}
	elems := append(c.Elems(), elem)
	if len(elems) > limit {
		elems = elems[len(elems)-limit:]
	}
	return t.get(elems)
}

// truncate returns the context consisting of the last limit elements of c.
func (t contextTrie) truncate(c *Context, limit int) *Context {
	if c.length <= limit {
		return c
	}
	if limit <= 0 {
		return t.root
	}
	elems := c.Elems()
	return t.get(elems[len(elems)-limit:])
}

// A ContextSelector decides which context callees and heap objects are
// analysed under. The depth of the produced contexts must be bounded for the
// analysis to terminate.
type ContextSelector interface {
	// EmptyContext is the context of entry methods and taint objects.
	EmptyContext() *Context
	// SelectContext selects the callee context of a static call.
	SelectContext(callSite *CSCallSite, callee *ir.Method) *Context
	// SelectInstanceContext selects the callee context of a call on recv.
	SelectInstanceContext(callSite *CSCallSite, recv *CSObj, callee *ir.Method) *Context
	// SelectHeapContext selects the context of an object allocated in method.
	SelectHeapContext(method *CSMethod, obj *Obj) *Context
}

type ciSelector struct{ contextTrie }

// NewContextInsensitiveSelector returns a selector that always returns the
// empty context.
func NewContextInsensitiveSelector() ContextSelector {
	return &ciSelector{newContextTrie()}
}

func (s *ciSelector) SelectContext(*CSCallSite, *ir.Method) *Context { return s.root }
func (s *ciSelector) SelectInstanceContext(*CSCallSite, *CSObj, *ir.Method) *Context {
	return s.root
}
func (s *ciSelector) SelectHeapContext(*CSMethod, *Obj) *Context { return s.root }

// kCallSelector implements k-limited call-site sensitivity (k-CFA).
type kCallSelector struct {
	contextTrie
	k, hk int
}

// NewKCallSiteSelector returns a selector that distinguishes callees by the
// last k call sites and heap objects by the last k-1 call sites.
func NewKCallSiteSelector(k int) ContextSelector {
	return &kCallSelector{newContextTrie(), k, k - 1}
}

func (s *kCallSelector) SelectContext(callSite *CSCallSite, _ *ir.Method) *Context {
	return s.append(callSite.Context, callSite.Invoke, s.k)
}

func (s *kCallSelector) SelectInstanceContext(callSite *CSCallSite, _ *CSObj, callee *ir.Method) *Context {
	return s.SelectContext(callSite, callee)
}

func (s *kCallSelector) SelectHeapContext(method *CSMethod, _ *Obj) *Context {
	return s.truncate(method.Context, s.hk)
}

// kObjSelector implements k-limited object sensitivity.
type kObjSelector struct {
	contextTrie
	k, hk int
}

// NewKObjectSelector returns a selector that analyses instance methods under
// the last k allocation sites of the receiver chain. Static calls inherit
// the caller's context.
func NewKObjectSelector(k int) ContextSelector {
	return &kObjSelector{newContextTrie(), k, k - 1}
}

func (s *kObjSelector) SelectContext(callSite *CSCallSite, _ *ir.Method) *Context {
	return callSite.Context
}

func (s *kObjSelector) SelectInstanceContext(_ *CSCallSite, recv *CSObj, _ *ir.Method) *Context {
	return s.append(recv.Context, recv.Obj, s.k)
}

func (s *kObjSelector) SelectHeapContext(method *CSMethod, _ *Obj) *Context {
	return s.truncate(method.Context, s.hk)
}

// kTypeSelector implements k-limited type sensitivity: like object
// sensitivity, but the element is the class declaring the method that
// allocated the receiver.
type kTypeSelector struct {
	contextTrie
	k, hk int
}

// NewKTypeSelector returns a type-sensitive selector of depth k.
func NewKTypeSelector(k int) ContextSelector {
	return &kTypeSelector{newContextTrie(), k, k - 1}
}

func (s *kTypeSelector) SelectContext(callSite *CSCallSite, _ *ir.Method) *Context {
	return callSite.Context
}

func (s *kTypeSelector) SelectInstanceContext(_ *CSCallSite, recv *CSObj, _ *ir.Method) *Context {
	var elem any = recv.Obj.Type()
	if m := recv.Obj.Container(); m != nil {
		elem = m.Class
	}
	return s.append(recv.Context, elem, s.k)
}

func (s *kTypeSelector) SelectHeapContext(method *CSMethod, _ *Obj) *Context {
	return s.truncate(method.Context, s.hk)
}

var ErrUnknownSelector = errors.New("unknown context selector")

var reSelector = regexp.MustCompile(`^(\d+)-(call|obj|type)$`)

// SelectorByName creates a selector from its command-line name: "ci", or
// "<k>-call", "<k>-obj" and "<k>-type" for k >= 1.
func SelectorByName(name string) (ContextSelector, error) {
	if name == "ci" {
		return NewContextInsensitiveSelector(), nil
	}
	sm := reSelector.FindStringSubmatch(name)
	if sm == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelector, name)
	}
	k, err := strconv.Atoi(sm[1])
	if err != nil || k < 1 {
		return nil, fmt.Errorf("%w: %q: depth must be positive", ErrUnknownSelector, name)
	}
	switch sm[2] {
	case "call":
		return NewKCallSiteSelector(k), nil
	case "obj":
		return NewKObjectSelector(k), nil
	default:
		return NewKTypeSelector(k), nil
	}
}

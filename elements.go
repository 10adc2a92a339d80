package pta

import (
	"fmt"

	"github.com/BarrensZeppelin/pta/ir"
)

// CSMethod is a method analysed under a context.
type CSMethod struct {
	id      int
	Context *Context
	Method  *ir.Method
}

// ID returns a dense identifier of m, unique within one analysis run.
func (m *CSMethod) ID() int64 { return int64(m.id) }

func (m *CSMethod) String() string { return fmt.Sprintf("%v:%v", m.Context, m.Method) }

// CSCallSite is a call site in a context-qualified method.
type CSCallSite struct {
	Context   *Context
	Invoke    *ir.Invoke
	Container *CSMethod
}

func (cs *CSCallSite) String() string {
	return fmt.Sprintf("%v:%s", cs.Context, cs.Invoke.Location())
}

// CSObj is an abstract object qualified by its heap context.
type CSObj struct {
	id      int
	Context *Context
	Obj     *Obj
}

func (o *CSObj) String() string { return fmt.Sprintf("%v:%v", o.Context, o.Obj) }

// Pointer is a node of the pointer flow graph. It is either a [CSVar], an
// [InstanceField], an [ArrayIndex] or a [StaticField].
type Pointer interface {
	fmt.Stringer
	// PointsToSet returns the (growing) points-to set of the pointer.
	PointsToSet() *PointsToSet
	// ID returns a dense identifier, unique within one analysis run.
	ID() int
	pointerTag()
}

type ptr struct {
	id  int
	pts *PointsToSet
}

func (p *ptr) PointsToSet() *PointsToSet { return p.pts }
func (p *ptr) ID() int                   { return p.id }
func (*ptr) pointerTag()                 {}

// CSVar is a local variable qualified by the context of its method.
type CSVar struct {
	ptr
	Context *Context
	Var     *ir.Var
}

func (v *CSVar) String() string {
	return fmt.Sprintf("%v:%v/%s", v.Context, v.Var.Method, v.Var.Name)
}

// InstanceField is the field of a context-qualified object.
type InstanceField struct {
	ptr
	Base  *CSObj
	Field *ir.Field
}

func (f *InstanceField) String() string { return fmt.Sprintf("%v.%s", f.Base, f.Field.Name) }

// ArrayIndex stands for all elements of a context-qualified array object.
type ArrayIndex struct {
	ptr
	Array *CSObj
}

func (a *ArrayIndex) String() string { return fmt.Sprintf("%v[*]", a.Array) }

// StaticField is a static field. Static state has no context.
type StaticField struct {
	ptr
	Field *ir.Field
}

func (f *StaticField) String() string { return f.Field.String() }

type (
	csVarKey struct {
		ctx *Context
		v   *ir.Var
	}
	instanceFieldKey struct {
		base  *CSObj
		field *ir.Field
	}
	csObjKey struct {
		ctx *Context
		obj *Obj
	}
	csMethodKey struct {
		ctx    *Context
		method *ir.Method
	}
	csCallSiteKey struct {
		ctx    *Context
		invoke *ir.Invoke
	}
)

// csManager interns context-sensitive elements, so that requesting the same
// element twice returns the same instance.
type csManager struct {
	vars      map[csVarKey]*CSVar
	ifields   map[instanceFieldKey]*InstanceField
	arrays    map[*CSObj]*ArrayIndex
	sfields   map[*ir.Field]*StaticField
	objs      map[csObjKey]*CSObj
	methods   map[csMethodKey]*CSMethod
	callSites map[csCallSiteKey]*CSCallSite

	// Indexed by the dense identifiers
	pointerList []Pointer
	objList     []*CSObj
	methodList  []*CSMethod
}

func newCSManager() *csManager {
	return &csManager{
		vars:      make(map[csVarKey]*CSVar),
		ifields:   make(map[instanceFieldKey]*InstanceField),
		arrays:    make(map[*CSObj]*ArrayIndex),
		sfields:   make(map[*ir.Field]*StaticField),
		objs:      make(map[csObjKey]*CSObj),
		methods:   make(map[csMethodKey]*CSMethod),
		callSites: make(map[csCallSiteKey]*CSCallSite),
	}
}

func (m *csManager) newPtr() ptr {
	return ptr{id: len(m.pointerList), pts: m.newPointsToSet()}
}

func (m *csManager) csVar(ctx *Context, v *ir.Var) *CSVar {
	key := csVarKey{ctx, v}
	if p, ok := m.vars[key]; ok {
		return p
	}
	p := &CSVar{ptr: m.newPtr(), Context: ctx, Var: v}
	m.vars[key] = p
	m.pointerList = append(m.pointerList, p)
	return p
}

func (m *csManager) instanceField(base *CSObj, f *ir.Field) *InstanceField {
	key := instanceFieldKey{base, f}
	if p, ok := m.ifields[key]; ok {
		return p
	}
	p := &InstanceField{ptr: m.newPtr(), Base: base, Field: f}
	m.ifields[key] = p
	m.pointerList = append(m.pointerList, p)
	return p
}

func (m *csManager) arrayIndex(array *CSObj) *ArrayIndex {
	if p, ok := m.arrays[array]; ok {
		return p
	}
	p := &ArrayIndex{ptr: m.newPtr(), Array: array}
	m.arrays[array] = p
	m.pointerList = append(m.pointerList, p)
	return p
}

func (m *csManager) staticField(f *ir.Field) *StaticField {
	if p, ok := m.sfields[f]; ok {
		return p
	}
	p := &StaticField{ptr: m.newPtr(), Field: f}
	m.sfields[f] = p
	m.pointerList = append(m.pointerList, p)
	return p
}

func (m *csManager) csObj(ctx *Context, obj *Obj) *CSObj {
	key := csObjKey{ctx, obj}
	if o, ok := m.objs[key]; ok {
		return o
	}
	o := &CSObj{id: len(m.objList), Context: ctx, Obj: obj}
	m.objs[key] = o
	m.objList = append(m.objList, o)
	return o
}

func (m *csManager) csMethod(ctx *Context, method *ir.Method) *CSMethod {
	key := csMethodKey{ctx, method}
	if cm, ok := m.methods[key]; ok {
		return cm
	}
	cm := &CSMethod{id: len(m.methodList), Context: ctx, Method: method}
	m.methods[key] = cm
	m.methodList = append(m.methodList, cm)
	return cm
}

func (m *csManager) csCallSite(ctx *Context, invoke *ir.Invoke) *CSCallSite {
	key := csCallSiteKey{ctx, invoke}
	if cs, ok := m.callSites[key]; ok {
		return cs
	}
	cs := &CSCallSite{Context: ctx, Invoke: invoke, Container: m.csMethod(ctx, invoke.Container())}
	m.callSites[key] = cs
	return cs
}

package pta

import (
	"fmt"

	"github.com/BarrensZeppelin/pta/ir"
)

// This file contains the definition of abstract objects, the targets of
// pointers in the analysed program.

// Obj denotes an abstract object. An ordinary object stands for all objects
// allocated at one allocation site. A taint object stands for the values
// produced by one call to a taint source, viewed at a given type.
type Obj struct {
	site   *ir.New
	typ    ir.Type
	source *ir.Invoke
}

// Site returns the allocation site of an ordinary object, nil for taint
// objects.
func (o *Obj) Site() *ir.New { return o.site }

// Type returns the type of the object.
func (o *Obj) Type() ir.Type { return o.typ }

// IsTaint reports whether o is a taint object.
func (o *Obj) IsTaint() bool { return o.source != nil }

// Source returns the source call that produced a taint object, nil for
// ordinary objects.
func (o *Obj) Source() *ir.Invoke { return o.source }

// Container returns the method containing the allocation site or source call.
func (o *Obj) Container() *ir.Method {
	if o.source != nil {
		return o.source.Container()
	}
	return o.site.Container()
}

func (o *Obj) String() string {
	if o.source != nil {
		return fmt.Sprintf("TaintObj{%s: %v}", o.source.Location(), o.typ)
	}
	return fmt.Sprintf("NewObj{%v[%d]: %v}", o.site.Container(), o.site.Index(), o.site)
}

// heapModel is the allocation-site abstraction: one object per New statement.
type heapModel struct {
	objs map[*ir.New]*Obj
}

func newHeapModel() *heapModel {
	return &heapModel{objs: make(map[*ir.New]*Obj)}
}

func (h *heapModel) obj(site *ir.New) *Obj {
	if o, ok := h.objs[site]; ok {
		return o
	}
	o := &Obj{site: site, typ: site.Type}
	h.objs[site] = o
	return o
}

package pta

import (
	"fmt"

	"github.com/BarrensZeppelin/pta/ir"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TaintFlow is a flow of taint from the result of a source call to argument
// Index of a sink call.
type TaintFlow struct {
	Source *ir.Invoke
	Sink   *ir.Invoke
	Index  int
}

func (f TaintFlow) String() string {
	return fmt.Sprintf("TaintFlow{%s -> %s/%d}", f.Source.Location(), f.Sink.Location(), f.Index)
}

// compareInvokes orders invocations by the signature of their method, then by
// their position in it.
func compareInvokes(a, b *ir.Invoke) int {
	if a == b {
		return 0
	}
	sa, sb := a.Container().Signature(), b.Container().Signature()
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return a.Index() - b.Index()
}

func lessFlow(a, b TaintFlow) bool {
	if c := compareInvokes(a.Source, b.Source); c != 0 {
		return c < 0
	}
	if c := compareInvokes(a.Sink, b.Sink); c != 0 {
		return c < 0
	}
	return a.Index < b.Index
}

type taintKey struct {
	source *ir.Invoke
	typ    ir.Type
}

// taintEdge is an edge of the taint flow graph. Taint objects crossing it are
// retagged with typ.
type taintEdge struct {
	target Pointer
	typ    ir.Type
}

type sinkSite struct {
	callSite *CSCallSite
	index    int
}

// taintManager owns the taint objects, the taint flow graph and the recorded
// sink calls of one analysis run.
type taintManager struct {
	ctx *aContext

	sources   map[*ir.Method][]Source
	sinks     map[*ir.Method][]Sink
	transfers map[*ir.Method][]Transfer

	objs map[taintKey]*Obj

	tfg   map[Pointer][]taintEdge
	edges map[[2]int]map[ir.Type]bool

	sinkSites []sinkSite
	seenSinks map[sinkSite]bool
}

func newTaintManager(ctx *aContext, config *TaintConfig) *taintManager {
	tm := &taintManager{
		ctx:       ctx,
		sources:   make(map[*ir.Method][]Source),
		sinks:     make(map[*ir.Method][]Sink),
		transfers: make(map[*ir.Method][]Transfer),
		objs:      make(map[taintKey]*Obj),
		tfg:       make(map[Pointer][]taintEdge),
		edges:     make(map[[2]int]map[ir.Type]bool),
		seenSinks: make(map[sinkSite]bool),
	}
	for _, s := range config.Sources {
		tm.sources[s.Method] = append(tm.sources[s.Method], s)
	}
	for _, s := range config.Sinks {
		tm.sinks[s.Method] = append(tm.sinks[s.Method], s)
	}
	for _, t := range config.Transfers {
		tm.transfers[t.Method] = append(tm.transfers[t.Method], t)
	}
	return tm
}

// taintObj returns the canonical taint object for (source, typ) in the empty
// context.
func (tm *taintManager) taintObj(source *ir.Invoke, typ ir.Type) *CSObj {
	key := taintKey{source, typ}
	obj, ok := tm.objs[key]
	if !ok {
		obj = &Obj{typ: typ, source: source}
		tm.objs[key] = obj
	}
	return tm.ctx.csm.csObj(tm.ctx.selector.EmptyContext(), obj)
}

// retag returns the taint object with the same source as o and type typ.
func (tm *taintManager) retag(o *CSObj, typ ir.Type) *CSObj {
	return tm.taintObj(o.Obj.source, typ)
}

// processCall applies the taint rules of callee to a new call edge.
func (tm *taintManager) processCall(callSite *CSCallSite, callee *CSMethod) {
	invoke, m := callSite.Invoke, callee.Method
	csm := tm.ctx.csm

	if invoke.Result != nil {
		for _, s := range tm.sources[m] {
			result := csm.csVar(callSite.Context, invoke.Result)
			tm.ctx.push(result, csm.singleton(tm.taintObj(invoke, s.Type)))
		}
	}

	for _, t := range tm.transfers[m] {
		from, to := tm.slotPointer(callSite, t.From), tm.slotPointer(callSite, t.To)
		if from == nil || to == nil {
			continue
		}
		tm.addTaintEdge(from, to, t.Type)
	}

	for _, s := range tm.sinks[m] {
		if s.Index >= len(invoke.Args) {
			tm.ctx.log.Warnf("Sink %v: call %s has no argument %d", s.Method, invoke.Location(), s.Index)
			continue
		}
		site := sinkSite{callSite, s.Index}
		if !tm.seenSinks[site] {
			tm.seenSinks[site] = true
			tm.sinkSites = append(tm.sinkSites, site)
		}
	}
}

// slotPointer returns the variable pointer of the given slot at a call site,
// or nil if the call site has no such variable.
func (tm *taintManager) slotPointer(callSite *CSCallSite, slot int) Pointer {
	invoke := callSite.Invoke
	var v *ir.Var
	switch {
	case slot == BaseSlot:
		v = invoke.Recv
	case slot == ResultSlot:
		v = invoke.Result
	case slot >= 0 && slot < len(invoke.Args):
		v = invoke.Args[slot]
	}
	if v == nil {
		return nil
	}
	return tm.ctx.csm.csVar(callSite.Context, v)
}

// addTaintEdge adds source -> target to the taint flow graph. Taint objects
// already at source are retagged and propagated along a new edge immediately.
func (tm *taintManager) addTaintEdge(source, target Pointer, typ ir.Type) {
	key := [2]int{source.ID(), target.ID()}
	if tm.edges[key][typ] {
		return
	}
	if tm.edges[key] == nil {
		tm.edges[key] = make(map[ir.Type]bool)
	}
	tm.edges[key][typ] = true

	edge := taintEdge{target, typ}
	tm.tfg[source] = append(tm.tfg[source], edge)

	_, taints := source.PointsToSet().Partition()
	tm.flow(taints, edge)
}

// propagate forwards the taint objects of delta, newly added to p, along the
// taint flow graph edges leaving p.
func (tm *taintManager) propagate(p Pointer, delta *PointsToSet) {
	edges := tm.tfg[p]
	if len(edges) == 0 {
		return
	}
	_, taints := delta.Partition()
	for _, edge := range edges {
		tm.flow(taints, edge)
	}
}

func (tm *taintManager) flow(taints []*CSObj, edge taintEdge) {
	if len(taints) == 0 {
		return
	}
	pts := tm.ctx.csm.newPointsToSet()
	for _, o := range taints {
		pts.Add(tm.retag(o, edge.typ))
	}
	tm.ctx.push(edge.target, pts)
}

// collectTaintFlows reports, for every recorded sink call, the taint objects
// reaching the sensitive argument.
func (tm *taintManager) collectTaintFlows() []TaintFlow {
	flows := make(map[TaintFlow]bool)
	csm := tm.ctx.csm
	for _, site := range tm.sinkSites {
		invoke := site.callSite.Invoke
		arg := csm.csVar(site.callSite.Context, invoke.Args[site.index])
		_, taints := arg.PointsToSet().Partition()
		for _, o := range taints {
			flows[TaintFlow{Source: o.Obj.source, Sink: invoke, Index: site.index}] = true
		}
	}

	res := maps.Keys(flows)
	slices.SortFunc(res, lessFlow)
	return res
}

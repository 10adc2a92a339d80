package pta

import (
	"github.com/BarrensZeppelin/pta/ir"
)

// Result is the outcome of a pointer analysis run.
type Result struct {
	csm   *csManager
	cg    *CallGraph
	pfg   *pointerFlowGraph
	flows []TaintFlow

	// Context-qualified instances of each variable
	csVars map[*ir.Var][]*CSVar

	stats *PFGStats
}

func (ctx *aContext) result() *Result {
	csVars := make(map[*ir.Var][]*CSVar)
	for _, p := range ctx.csm.pointerList {
		if v, ok := p.(*CSVar); ok {
			csVars[v.Var] = append(csVars[v.Var], v)
		}
	}

	var flows []TaintFlow
	if ctx.taint != nil {
		flows = ctx.taint.collectTaintFlows()
	}

	return &Result{
		csm:    ctx.csm,
		cg:     ctx.cg,
		pfg:    ctx.pfg,
		flows:  flows,
		csVars: csVars,
	}
}

// PointsTo returns the objects v may point to in context c.
func (r *Result) PointsTo(c *Context, v *ir.Var) []*CSObj {
	if p, ok := r.csm.vars[csVarKey{c, v}]; ok {
		return p.PointsToSet().Objects()
	}
	return nil
}

// PointsToCI returns the objects v may point to in any context, with their
// heap contexts removed.
func (r *Result) PointsToCI(v *ir.Var) []*Obj {
	var res []*Obj
	seen := make(map[*Obj]bool)
	for _, o := range r.union(v).Objects() {
		if !seen[o.Obj] {
			seen[o.Obj] = true
			res = append(res, o.Obj)
		}
	}
	return res
}

// MayAlias reports whether a and b may point to a common object in some pair
// of contexts.
func (r *Result) MayAlias(a, b *ir.Var) bool {
	return r.union(a).set.Intersects(&r.union(b).set)
}

func (r *Result) union(v *ir.Var) *PointsToSet {
	res := r.csm.newPointsToSet()
	for _, p := range r.csVars[v] {
		res.AddAll(p.PointsToSet())
	}
	return res
}

// CSVars returns all context-qualified variables in creation order.
func (r *Result) CSVars() []*CSVar {
	var res []*CSVar
	for _, p := range r.csm.pointerList {
		if v, ok := p.(*CSVar); ok {
			res = append(res, v)
		}
	}
	return res
}

// Pointers returns all pointers created during the analysis, in creation
// order.
func (r *Result) Pointers() []Pointer { return r.csm.pointerList }

func (r *Result) CallGraph() *CallGraph { return r.cg }

// ReachableMethods returns the reachable methods in discovery order, with
// contexts removed.
func (r *Result) ReachableMethods() []*ir.Method {
	var res []*ir.Method
	seen := make(map[*ir.Method]bool)
	for _, m := range r.cg.ReachableMethods() {
		if !seen[m.Method] {
			seen[m.Method] = true
			res = append(res, m.Method)
		}
	}
	return res
}

// Callees returns the methods that invoke may call in any context.
func (r *Result) Callees(invoke *ir.Invoke) []*ir.Method {
	var res []*ir.Method
	seen := make(map[*ir.Method]bool)
	for _, e := range r.cg.Edges() {
		if e.CallSite.Invoke == invoke && !seen[e.Callee.Method] {
			seen[e.Callee.Method] = true
			res = append(res, e.Callee.Method)
		}
	}
	return res
}

// TaintFlows returns the detected taint flows, sorted and without
// duplicates.
func (r *Result) TaintFlows() []TaintFlow { return r.flows }

// PFGStats returns statistics about the pointer flow graph.
func (r *Result) PFGStats() PFGStats {
	if r.stats == nil {
		stats := r.pfg.stats()
		r.stats = &stats
	}
	return *r.stats
}

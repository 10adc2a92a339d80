package pta

import (
	"github.com/BarrensZeppelin/pta/ir"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/topo"
)

// Edge is a call edge from a context-qualified call site to a
// context-qualified callee.
type Edge struct {
	Kind     ir.CallKind
	CallSite *CSCallSite
	Callee   *CSMethod
}

// Caller returns the context-qualified method containing the call site.
func (e *Edge) Caller() *CSMethod { return e.CallSite.Container }

type edgeKey struct {
	callSite *CSCallSite
	callee   *CSMethod
}

// CallGraph is the context-sensitive call graph discovered by the analysis.
// Nodes are the reachable context-qualified methods.
//
// CallGraph implements the gonum graph.Directed interface, where node IDs are
// the IDs of the CSMethods.
type CallGraph struct {
	entries   []*CSMethod
	reachable map[*CSMethod]bool
	methods   []*CSMethod // reachable methods in discovery order

	edges   map[edgeKey]*Edge
	edgeSeq []*Edge
	out     map[*CSCallSite][]*Edge
	in      map[*CSMethod][]*Edge
	succs   map[*CSMethod]map[*CSMethod]bool
	preds   map[*CSMethod]map[*CSMethod]bool
	byID    map[int64]*CSMethod
}

func NewCallGraph() *CallGraph {
	return &CallGraph{
		reachable: make(map[*CSMethod]bool),
		edges:     make(map[edgeKey]*Edge),
		out:       make(map[*CSCallSite][]*Edge),
		in:        make(map[*CSMethod][]*Edge),
		succs:     make(map[*CSMethod]map[*CSMethod]bool),
		preds:     make(map[*CSMethod]map[*CSMethod]bool),
		byID:      make(map[int64]*CSMethod),
	}
}

// AddEntryMethod marks m as an entry of the call graph. It does not make m
// reachable; see AddReachableMethod.
func (cg *CallGraph) AddEntryMethod(m *CSMethod) {
	if !slices.Contains(cg.entries, m) {
		cg.entries = append(cg.entries, m)
	}
}

// AddReachableMethod adds m to the reachable methods. It returns true iff m
// was not reachable before.
func (cg *CallGraph) AddReachableMethod(m *CSMethod) bool {
	if cg.reachable[m] {
		return false
	}
	cg.reachable[m] = true
	cg.methods = append(cg.methods, m)
	cg.byID[m.ID()] = m
	return true
}

// AddEdge adds a call edge and reports whether it is new. The callee is not
// made reachable by this operation.
func (cg *CallGraph) AddEdge(kind ir.CallKind, callSite *CSCallSite, callee *CSMethod) bool {
	key := edgeKey{callSite, callee}
	if _, ok := cg.edges[key]; ok {
		return false
	}

	e := &Edge{Kind: kind, CallSite: callSite, Callee: callee}
	cg.edges[key] = e
	cg.edgeSeq = append(cg.edgeSeq, e)
	cg.out[callSite] = append(cg.out[callSite], e)
	cg.in[callee] = append(cg.in[callee], e)

	caller := callSite.Container
	if cg.succs[caller] == nil {
		cg.succs[caller] = make(map[*CSMethod]bool)
	}
	cg.succs[caller][callee] = true
	if cg.preds[callee] == nil {
		cg.preds[callee] = make(map[*CSMethod]bool)
	}
	cg.preds[callee][caller] = true
	return true
}

// Contains reports whether m is reachable.
func (cg *CallGraph) Contains(m *CSMethod) bool { return cg.reachable[m] }

// EntryMethods returns the entry methods.
func (cg *CallGraph) EntryMethods() []*CSMethod { return cg.entries }

// ReachableMethods returns the reachable methods in discovery order.
func (cg *CallGraph) ReachableMethods() []*CSMethod { return cg.methods }

// Edges returns all call edges in discovery order.
func (cg *CallGraph) Edges() []*Edge { return cg.edgeSeq }

// EdgesOutOf returns the edges leaving a call site.
func (cg *CallGraph) EdgesOutOf(callSite *CSCallSite) []*Edge { return cg.out[callSite] }

// EdgesInto returns the edges entering a method.
func (cg *CallGraph) EdgesInto(m *CSMethod) []*Edge { return cg.in[m] }

// CalleesOf returns the methods called from a call site.
func (cg *CallGraph) CalleesOf(callSite *CSCallSite) []*CSMethod {
	var res []*CSMethod
	for _, e := range cg.out[callSite] {
		res = append(res, e.Callee)
	}
	return res
}

// RecursiveMethods returns the groups of mutually recursive methods: the
// strongly connected components of the call graph with more than one method,
// and single methods that call themselves.
func (cg *CallGraph) RecursiveMethods() [][]*CSMethod {
	var res [][]*CSMethod
	for _, scc := range topo.TarjanSCC(cg) {
		if len(scc) == 1 && !cg.HasEdgeFromTo(scc[0].ID(), scc[0].ID()) {
			continue
		}
		group := make([]*CSMethod, len(scc))
		for i, n := range scc {
			group[i] = n.(*CSMethod)
		}
		slices.SortFunc(group, func(a, b *CSMethod) bool { return a.id < b.id })
		res = append(res, group)
	}
	slices.SortFunc(res, func(a, b []*CSMethod) bool { return a[0].id < b[0].id })
	return res
}

// *************** gonum graph.Directed implementation **********************

var _ graph.Directed = (*CallGraph)(nil)

// Node implements graph.Graph.
func (cg *CallGraph) Node(id int64) graph.Node {
	if m, ok := cg.byID[id]; ok {
		return m
	}
	return nil
}

func nodesOf[M ~map[*CSMethod]bool](set M) graph.Nodes {
	if len(set) == 0 {
		return graph.Empty
	}
	nodes := make([]graph.Node, 0, len(set))
	for m := range set {
		nodes = append(nodes, m)
	}
	slices.SortFunc(nodes, func(a, b graph.Node) bool { return a.ID() < b.ID() })
	return iterator.NewOrderedNodes(nodes)
}

// Nodes implements graph.Graph.
func (cg *CallGraph) Nodes() graph.Nodes { return nodesOf(cg.reachable) }

// From implements graph.Graph.
func (cg *CallGraph) From(id int64) graph.Nodes { return nodesOf(cg.succs[cg.byID[id]]) }

// To implements graph.Directed.
func (cg *CallGraph) To(id int64) graph.Nodes { return nodesOf(cg.preds[cg.byID[id]]) }

// HasEdgeBetween implements graph.Graph.
func (cg *CallGraph) HasEdgeBetween(xid, yid int64) bool {
	return cg.HasEdgeFromTo(xid, yid) || cg.HasEdgeFromTo(yid, xid)
}

// HasEdgeFromTo implements graph.Directed.
func (cg *CallGraph) HasEdgeFromTo(uid, vid int64) bool {
	u, v := cg.byID[uid], cg.byID[vid]
	return u != nil && v != nil && cg.succs[u][v]
}

// Edge implements graph.Graph. Parallel call edges between two methods are
// represented by a single graph edge.
func (cg *CallGraph) Edge(uid, vid int64) graph.Edge {
	if !cg.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return methodEdge{cg.byID[uid], cg.byID[vid]}
}

type methodEdge struct{ from, to *CSMethod }

func (e methodEdge) From() graph.Node         { return e.from }
func (e methodEdge) To() graph.Node           { return e.to }
func (e methodEdge) ReversedEdge() graph.Edge { return methodEdge{e.to, e.from} }

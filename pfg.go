package pta

import (
	"github.com/yourbasic/graph"
)

// pointerFlowGraph is the append-only graph over pointers along which
// points-to information flows. Nodes are identified by their pointer ID.
type pointerFlowGraph struct {
	m     *csManager
	succs [][]Pointer
	edges map[[2]int]struct{}
}

func newPointerFlowGraph(m *csManager) *pointerFlowGraph {
	return &pointerFlowGraph{m: m, edges: make(map[[2]int]struct{})}
}

// addEdge adds the edge source -> target and reports whether it is new.
func (g *pointerFlowGraph) addEdge(source, target Pointer) bool {
	if g.hasEdge(source, target) {
		return false
	}
	g.edges[[2]int{source.ID(), target.ID()}] = struct{}{}

	if id := source.ID(); id >= len(g.succs) {
		g.succs = append(g.succs, make([][]Pointer, id-len(g.succs)+1)...)
	}
	g.succs[source.ID()] = append(g.succs[source.ID()], target)
	return true
}

func (g *pointerFlowGraph) hasEdge(source, target Pointer) bool {
	_, ok := g.edges[[2]int{source.ID(), target.ID()}]
	return ok
}

// succsOf returns the successors of p in insertion order.
func (g *pointerFlowGraph) succsOf(p Pointer) []Pointer {
	if id := p.ID(); id < len(g.succs) {
		return g.succs[id]
	}
	return nil
}

func (g *pointerFlowGraph) numEdges() int { return len(g.edges) }

// Order implements graph.Iterator. Every pointer created during the run is a
// node, whether or not it has edges.
func (g *pointerFlowGraph) Order() int { return len(g.m.pointerList) }

// Visit implements graph.Iterator.
func (g *pointerFlowGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range g.succsOf(g.m.pointerList[v]) {
		if do(w.ID(), 1) {
			return true
		}
	}
	return false
}

var _ graph.Iterator = (*pointerFlowGraph)(nil)

// PFGStats summarizes the shape of the pointer flow graph after solving.
type PFGStats struct {
	Pointers int
	Edges    int
	// Isolated counts pointers without outgoing edges.
	Isolated int
	// SelfLoops counts edges p -> p.
	SelfLoops int
	// Cycles is the number of strongly connected components with more than
	// one pointer. LargestCycle is the size of the largest one.
	Cycles       int
	LargestCycle int
}

func (g *pointerFlowGraph) stats() PFGStats {
	check := graph.Check(g)
	res := PFGStats{
		Pointers:  g.Order(),
		Edges:     check.Size,
		Isolated:  check.Isolated,
		SelfLoops: check.Loops,
	}
	for _, comp := range graph.StrongComponents(g) {
		if len(comp) > 1 {
			res.Cycles++
			if len(comp) > res.LargestCycle {
				res.LargestCycle = len(comp)
			}
		}
	}
	return res
}

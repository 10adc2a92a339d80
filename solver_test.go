package pta

import (
	"testing"

	"github.com/BarrensZeppelin/pta/ir"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linkedList builds a program that stores and loads through a cyclic
// structure, so that points-to sets grow over many steps:
//
//	n1 = new Node; n2 = new Node
//	n1.next = n2; n2.next = n1
//	x = n1.next; y = x.next; x = y
//	y.accept(n1)
func linkedList() *ir.Program {
	p := ir.NewProgram()
	obj := p.NewClass("Object", nil, nil, 0)
	node := p.NewClass("Node", obj, nil, 0)
	next := node.NewField("next", node, false)
	accept := node.NewMethod("accept", []ir.Type{node}, ir.Void, 0, "other")
	accept.AddStoreField(accept.This, next, accept.Params[0])

	main := node.NewMethod("main", nil, ir.Void, ir.Static)
	n1, n2 := main.NewVar("n1", node), main.NewVar("n2", node)
	x, y := main.NewVar("x", node), main.NewVar("y", node)
	main.AddNew(n1, node)
	main.AddNew(n2, node)
	main.AddStoreField(n1, next, n2)
	main.AddStoreField(n2, next, n1)
	main.AddLoadField(x, n1, next)
	main.AddLoadField(y, x, next)
	main.AddCopy(x, y)
	main.AddInvoke(ir.CallVirtual, accept.Ref(), y, []*ir.Var{n1}, nil)
	p.Main = main
	return p
}

func newTestContext(prog *ir.Program, selector ContextSelector) *aContext {
	log, _ := test.NewNullLogger()
	return newAContext(AnalysisConfig{Program: prog, Selector: selector, Log: log})
}

func TestMonotonicity(t *testing.T) {
	prog := linkedList()
	for _, sel := range []ContextSelector{
		NewContextInsensitiveSelector(),
		NewKCallSiteSelector(2),
		NewKObjectSelector(2),
	} {
		ctx := newTestContext(prog, sel)
		ctx.initialize([]*ir.Method{prog.Main})

		sizes := map[Pointer]int{}
		steps := 0
		for ctx.step() {
			steps++
			require.Less(t, steps, 10000, "fixpoint not reached")
			for _, p := range ctx.csm.pointerList {
				n := p.PointsToSet().Len()
				require.GreaterOrEqual(t, n, sizes[p], "%v shrank", p)
				sizes[p] = n
			}
		}

		assert.True(t, ctx.worklist.Empty())
		main := prog.Main
		empty := sel.EmptyContext()
		assert.Equal(t, 2, ctx.csm.csVar(empty, main.Var("x")).PointsToSet().Len())
		assert.Equal(t, 2, ctx.csm.csVar(empty, main.Var("y")).PointsToSet().Len())
	}
}

func TestPFGEdges(t *testing.T) {
	prog := linkedList()
	ctx := newTestContext(prog, nil)
	main := prog.Main
	empty := ctx.selector.EmptyContext()
	n1 := ctx.csm.csVar(empty, main.Var("n1"))
	n2 := ctx.csm.csVar(empty, main.Var("n2"))
	x := ctx.csm.csVar(empty, main.Var("x"))

	t.Run("Idempotence", func(t *testing.T) {
		assert.False(t, ctx.pfg.hasEdge(n1, x))
		assert.True(t, ctx.pfg.addEdge(n1, x))
		assert.False(t, ctx.pfg.addEdge(n1, x))
		assert.True(t, ctx.pfg.hasEdge(n1, x))
		assert.False(t, ctx.pfg.hasEdge(x, n1), "edges are directed")
		assert.Equal(t, []Pointer{x}, ctx.pfg.succsOf(n1))
		assert.Equal(t, 1, ctx.pfg.numEdges())
		assert.Empty(t, ctx.pfg.succsOf(x))
	})

	t.Run("RetroactivePropagation", func(t *testing.T) {
		obj := ctx.csm.csObj(empty, ctx.heap.obj(main.Stmts()[0].(*ir.New)))
		ctx.push(n2, ctx.csm.singleton(obj))
		for ctx.step() {
		}
		require.True(t, n2.PointsToSet().Contains(obj))

		ctx.addPFGEdge(n2, x)
		for ctx.step() {
		}
		assert.True(t, x.PointsToSet().Contains(obj))

		// Adding the edge again does not schedule any work
		ctx.addPFGEdge(n2, x)
		assert.True(t, ctx.worklist.Empty())
	})

	t.Run("Stats", func(t *testing.T) {
		ctx.addPFGEdge(x, n1)
		stats := ctx.pfg.stats()
		// n1, n2, x, y and the next field of the first node
		assert.Equal(t, 5, stats.Pointers)
		assert.Equal(t, 5, stats.Edges)
		assert.Equal(t, 1, stats.Cycles)
		assert.Equal(t, 2, stats.LargestCycle)
		assert.Equal(t, 0, stats.SelfLoops)
	})
}

func TestCallGraphIdempotence(t *testing.T) {
	prog := linkedList()
	ctx := newTestContext(prog, nil)
	empty := ctx.selector.EmptyContext()

	main := ctx.csm.csMethod(empty, prog.Main)
	accept := ctx.csm.csMethod(empty, prog.Class("Node").DeclaredMethod("void accept(Node)"))
	invoke := prog.Main.Stmts()[7].(*ir.Invoke)
	cs := ctx.csm.csCallSite(empty, invoke)
	assert.Same(t, main, cs.Container)

	cg := ctx.cg
	assert.True(t, cg.AddReachableMethod(main))
	assert.False(t, cg.AddReachableMethod(main))
	assert.True(t, cg.AddEdge(ir.CallVirtual, cs, accept))
	assert.False(t, cg.AddEdge(ir.CallVirtual, cs, accept))
	cg.AddReachableMethod(accept)

	assert.Len(t, cg.Edges(), 1)
	assert.Equal(t, []*CSMethod{accept}, cg.CalleesOf(cs))
	assert.Len(t, cg.EdgesInto(accept), 1)
	assert.Len(t, cg.EdgesOutOf(cs), 1)
	assert.Same(t, main, cg.Edges()[0].Caller())

	assert.True(t, cg.HasEdgeFromTo(main.ID(), accept.ID()))
	assert.False(t, cg.HasEdgeFromTo(accept.ID(), main.ID()))
	assert.True(t, cg.HasEdgeBetween(accept.ID(), main.ID()))
	assert.Equal(t, 2, cg.Nodes().Len())
	assert.Equal(t, 1, cg.From(main.ID()).Len())
	assert.Equal(t, 0, cg.From(accept.ID()).Len())
	assert.Equal(t, 1, cg.To(accept.ID()).Len())
	assert.NotNil(t, cg.Edge(main.ID(), accept.ID()))
	assert.Nil(t, cg.Edge(accept.ID(), main.ID()))
	assert.Empty(t, cg.RecursiveMethods())
}

func TestPointsToSet(t *testing.T) {
	prog := linkedList()
	csm := newCSManager()
	heap := newHeapModel()
	main := prog.Main
	ctx := newContextTrie().EmptyContext()

	o1 := csm.csObj(ctx, heap.obj(main.Stmts()[0].(*ir.New)))
	o2 := csm.csObj(ctx, heap.obj(main.Stmts()[1].(*ir.New)))
	assert.Same(t, o1, csm.csObj(ctx, heap.obj(main.Stmts()[0].(*ir.New))))

	s := csm.newPointsToSet()
	assert.True(t, s.IsEmpty())
	assert.True(t, s.Add(o2))
	assert.False(t, s.Add(o2))
	assert.True(t, s.Add(o1))
	assert.Equal(t, []*CSObj{o1, o2}, s.Objects(), "ordered by creation")

	other := csm.singleton(o1)
	assert.Equal(t, []*CSObj{o2}, s.Diff(other).Objects())
	assert.True(t, other.Diff(s).IsEmpty())
	assert.True(t, other.AddAll(s))
	assert.False(t, other.AddAll(s))
	assert.Equal(t, 2, other.Len())
	assert.True(t, other.Contains(o2))

	objs, taints := s.Partition()
	assert.Len(t, objs, 2)
	assert.Empty(t, taints)
	assert.Equal(t, "{[]:NewObj{<Node: void main()>[0]: n1 = new Node}, []:NewObj{<Node: void main()>[1]: n2 = new Node}}", s.String())
}

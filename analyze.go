package pta

import (
	"github.com/BarrensZeppelin/pta/internal/queue"
	"github.com/BarrensZeppelin/pta/ir"
	"github.com/sirupsen/logrus"
)

type AnalysisConfig struct {
	Program *ir.Program

	// Entries are the methods the analysis starts from, analysed in the
	// empty context. When empty, Program.Main is used.
	Entries []*ir.Method

	// Selector decides the contexts of methods and objects. Defaults to the
	// context-insensitive selector.
	Selector ContextSelector

	// Taint enables the taint analysis with the given rules when non-nil.
	Taint *TaintConfig

	// Log receives diagnostics. Defaults to the logrus standard logger.
	Log logrus.FieldLogger
}

// workItem asks the solver to add pts to the points-to set of pointer.
type workItem struct {
	pointer Pointer
	pts     *PointsToSet
}

type aContext struct {
	prog     *ir.Program
	selector ContextSelector
	log      logrus.FieldLogger

	csm  *csManager
	heap *heapModel
	pfg  *pointerFlowGraph
	cg   *CallGraph

	// Newly reachable methods whose statements have not been processed
	methods  queue.Queue[*CSMethod]
	worklist queue.Queue[workItem]

	taint *taintManager
}

func newAContext(config AnalysisConfig) *aContext {
	log := config.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	selector := config.Selector
	if selector == nil {
		selector = NewContextInsensitiveSelector()
	}

	csm := newCSManager()
	ctx := &aContext{
		prog:     config.Program,
		selector: selector,
		log:      log,
		csm:      csm,
		heap:     newHeapModel(),
		pfg:      newPointerFlowGraph(csm),
		cg:       NewCallGraph(),
	}
	if config.Taint != nil {
		ctx.taint = newTaintManager(ctx, config.Taint)
	}
	return ctx
}

// Analyze runs the pointer analysis to a fixpoint and returns the result.
func Analyze(config AnalysisConfig) *Result {
	if config.Program == nil {
		panic("AnalysisConfig.Program is nil")
	}

	ctx := newAContext(config)

	entries := config.Entries
	if len(entries) == 0 {
		if config.Program.Main == nil {
			ctx.log.Panicf("No entry methods: program has no main method")
		}
		entries = []*ir.Method{config.Program.Main}
	}
	ctx.initialize(entries)

	for ctx.step() {
	}

	res := ctx.result()
	ctx.log.WithFields(logrus.Fields{
		"methods":  len(ctx.cg.ReachableMethods()),
		"edges":    len(ctx.cg.Edges()),
		"pointers": len(ctx.csm.pointerList),
		"objects":  len(ctx.csm.objList),
		"flows":    len(res.flows),
	}).Info("Pointer analysis finished")

	stats := res.PFGStats()
	ctx.log.Debugf("PFG: %d pointers, %d edges, %d cycles (largest %d), %d self-loops",
		stats.Pointers, stats.Edges, stats.Cycles, stats.LargestCycle, stats.SelfLoops)
	return res
}

func (ctx *aContext) initialize(entries []*ir.Method) {
	empty := ctx.selector.EmptyContext()
	for _, m := range entries {
		if m.IsAbstract {
			ctx.log.Panicf("Entry method %v is abstract", m)
		}
		csm := ctx.csm.csMethod(empty, m)
		ctx.cg.AddEntryMethod(csm)
		ctx.addReachable(csm)
	}
}

// step performs one unit of work: processing a newly reachable method or one
// worklist entry. It returns false when the fixpoint has been reached.
func (ctx *aContext) step() bool {
	if !ctx.methods.Empty() {
		ctx.processMethod(ctx.methods.Pop())
		return true
	}
	if ctx.worklist.Empty() {
		return false
	}

	item := ctx.worklist.Pop()
	delta := ctx.propagate(item.pointer, item.pts)
	if v, ok := item.pointer.(*CSVar); ok && !delta.IsEmpty() {
		objs, _ := delta.Partition()
		for _, o := range objs {
			ctx.processFieldAccesses(v, o)
			ctx.processArrayAccesses(v, o)
			ctx.processInstanceCalls(v, o)
		}
	}
	return true
}

// addReachable schedules the statements of m for processing unless m is
// already reachable.
func (ctx *aContext) addReachable(m *CSMethod) {
	if ctx.cg.AddReachableMethod(m) {
		ctx.log.Debugf("Reachable: %v", m)
		ctx.methods.Push(m)
	}
}

func (ctx *aContext) processMethod(m *CSMethod) {
	for _, s := range m.Method.Stmts() {
		ctx.processStmt(m, s)
	}
}

// processStmt handles the statements whose effect does not depend on the
// points-to set of a variable.
func (ctx *aContext) processStmt(m *CSMethod, s ir.Stmt) {
	c := m.Context
	switch s := s.(type) {
	case *ir.New:
		obj := ctx.heap.obj(s)
		hctx := ctx.selector.SelectHeapContext(m, obj)
		ctx.push(ctx.csm.csVar(c, s.LHS), ctx.csm.singleton(ctx.csm.csObj(hctx, obj)))

	case *ir.Copy:
		ctx.addPFGEdge(ctx.csm.csVar(c, s.RHS), ctx.csm.csVar(c, s.LHS))

	case *ir.LoadField:
		if s.IsStatic() {
			ctx.addPFGEdge(ctx.csm.staticField(s.Field), ctx.csm.csVar(c, s.LHS))
		}

	case *ir.StoreField:
		if s.IsStatic() {
			ctx.addPFGEdge(ctx.csm.csVar(c, s.RHS), ctx.csm.staticField(s.Field))
		}

	case *ir.Invoke:
		switch s.Kind {
		case ir.CallStatic:
			ctx.processStaticCall(m, s)
		case ir.CallSpecial, ir.CallVirtual, ir.CallInterface, ir.CallDynamic:
			// Handled when the receiver's points-to set grows
		default:
			ctx.log.Panicf("Unexpected call kind %v at %s", s.Kind, s.Location())
		}

	case *ir.LoadArray, *ir.StoreArray, *ir.Return:

	default:
		ctx.log.Panicf("Unexpected statement %T: %v", s, s)
	}
}

func (ctx *aContext) processStaticCall(m *CSMethod, invoke *ir.Invoke) {
	callee := ctx.resolveCallee(nil, invoke)
	if callee == nil {
		ctx.log.Debugf("No target for %v at %s", invoke.Ref, invoke.Location())
		return
	}

	callSite := ctx.csm.csCallSite(m.Context, invoke)
	calleeCtx := ctx.selector.SelectContext(callSite, callee)
	ctx.processCallEdge(invoke.Kind, callSite, ctx.csm.csMethod(calleeCtx, callee))
}

func (ctx *aContext) processFieldAccesses(v *CSVar, o *CSObj) {
	for _, s := range v.Var.StoreFields() {
		ctx.addPFGEdge(ctx.csm.csVar(v.Context, s.RHS), ctx.csm.instanceField(o, s.Field))
	}
	for _, s := range v.Var.LoadFields() {
		ctx.addPFGEdge(ctx.csm.instanceField(o, s.Field), ctx.csm.csVar(v.Context, s.LHS))
	}
}

func (ctx *aContext) processArrayAccesses(v *CSVar, o *CSObj) {
	for _, s := range v.Var.StoreArrays() {
		ctx.addPFGEdge(ctx.csm.csVar(v.Context, s.RHS), ctx.csm.arrayIndex(o))
	}
	for _, s := range v.Var.LoadArrays() {
		ctx.addPFGEdge(ctx.csm.arrayIndex(o), ctx.csm.csVar(v.Context, s.LHS))
	}
}

// processInstanceCalls dispatches the calls with receiver v on the new
// receiver object recv.
func (ctx *aContext) processInstanceCalls(v *CSVar, recv *CSObj) {
	for _, invoke := range v.Var.Invokes() {
		callee := ctx.resolveCallee(recv.Obj.Type(), invoke)
		if callee == nil {
			ctx.log.Debugf("No target for %v on %v at %s", invoke.Ref, recv, invoke.Location())
			continue
		}

		callSite := ctx.csm.csCallSite(v.Context, invoke)
		calleeCtx := ctx.selector.SelectInstanceContext(callSite, recv, callee)
		csCallee := ctx.csm.csMethod(calleeCtx, callee)
		if callee.This != nil {
			ctx.push(ctx.csm.csVar(calleeCtx, callee.This), ctx.csm.singleton(recv))
		}
		ctx.processCallEdge(invoke.Kind, callSite, csCallee)
	}
}

// processCallEdge adds the call edge and, if it is new, makes the callee
// reachable and connects arguments and return values.
func (ctx *aContext) processCallEdge(kind ir.CallKind, callSite *CSCallSite, callee *CSMethod) {
	if !ctx.cg.AddEdge(kind, callSite, callee) {
		return
	}
	ctx.addReachable(callee)

	invoke, params := callSite.Invoke, callee.Method.Params
	for i, arg := range invoke.Args {
		if i < len(params) {
			ctx.addPFGEdge(ctx.csm.csVar(callSite.Context, arg), ctx.csm.csVar(callee.Context, params[i]))
		}
	}

	if invoke.Result != nil {
		result := ctx.csm.csVar(callSite.Context, invoke.Result)
		for _, ret := range callee.Method.ReturnVars() {
			ctx.addPFGEdge(ctx.csm.csVar(callee.Context, ret), result)
		}
	}

	if ctx.taint != nil {
		ctx.taint.processCall(callSite, callee)
	}
}

// addPFGEdge adds source -> target to the pointer flow graph. Objects that
// source already points to are propagated along a new edge immediately.
func (ctx *aContext) addPFGEdge(source, target Pointer) {
	if ctx.pfg.addEdge(source, target) && !source.PointsToSet().IsEmpty() {
		ctx.push(target, source.PointsToSet())
	}
}

func (ctx *aContext) push(p Pointer, pts *PointsToSet) {
	if !pts.IsEmpty() {
		ctx.worklist.Push(workItem{p, pts})
	}
}

// propagate adds the objects of pts that p does not already point to, and
// forwards them to the successors of p. It returns the added objects.
func (ctx *aContext) propagate(p Pointer, pts *PointsToSet) *PointsToSet {
	delta := pts.Diff(p.PointsToSet())
	if delta.IsEmpty() {
		return delta
	}

	p.PointsToSet().AddAll(delta)
	for _, succ := range ctx.pfg.succsOf(p) {
		ctx.push(succ, delta)
	}
	if ctx.taint != nil {
		ctx.taint.propagate(p, delta)
	}
	return delta
}

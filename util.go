package pta

import (
	"github.com/BarrensZeppelin/pta/ir"
)

// resolveCallee finds the method invoked by invoke when the receiver object
// has type recvType (nil for static calls). It returns nil when no concrete
// method can be invoked.
func (ctx *aContext) resolveCallee(recvType ir.Type, invoke *ir.Invoke) *ir.Method {
	prog := ctx.prog
	switch invoke.Kind {
	case ir.CallStatic, ir.CallSpecial:
		// The declared method is called regardless of the receiver
		m := prog.Resolve(invoke.Ref)
		if m == nil || m.IsAbstract {
			return nil
		}
		return m

	case ir.CallInterface:
		itf := invoke.Ref.Class
		if c, ok := recvType.(*ir.Class); ok && itf.IsInterface && !prog.Implements(c, itf) {
			return nil
		}
		return prog.Dispatch(recvType, invoke.Ref)

	case ir.CallVirtual, ir.CallDynamic:
		return prog.Dispatch(recvType, invoke.Ref)

	default:
		ctx.log.Panicf("Unexpected call kind %v at %s", invoke.Kind, invoke.Location())
		return nil
	}
}

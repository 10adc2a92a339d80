package ir

// IsSubclass reports whether sub is super or (transitively) extends or
// implements it.
func (p *Program) IsSubclass(super, sub *Class) bool {
	if super == sub {
		return true
	}
	if sub == nil {
		return false
	}
	if sub.Super != nil && p.IsSubclass(super, sub.Super) {
		return true
	}
	for _, itf := range sub.Interfaces {
		if p.IsSubclass(super, itf) {
			return true
		}
	}
	return false
}

// Implements reports whether class c implements interface itf, either
// directly, through a superinterface, or through a superclass.
func (p *Program) Implements(c, itf *Class) bool {
	return itf.IsInterface && p.IsSubclass(itf, c)
}

// Implementers returns the non-abstract classes implementing itf, in
// declaration order. This is a query helper; interface calls in the
// analysis check Implements per receiver object.
func (p *Program) Implementers(itf *Class) []*Class {
	var res []*Class
	for _, c := range p.classList {
		if !c.IsAbstract && p.Implements(c, itf) {
			res = append(res, c)
		}
	}
	return res
}

// Resolve returns the method a reference denotes without dynamic dispatch:
// the declaration in the referenced class or the closest superclass.
// It returns nil if there is none.
func (p *Program) Resolve(ref MethodRef) *Method {
	subsig := ref.Subsignature()
	for c := ref.Class; c != nil; c = c.Super {
		if m := c.methods[subsig]; m != nil {
			return m
		}
	}
	return nil
}

// Dispatch looks up the implementation of ref for a receiver of type t by
// walking the class and its superclasses until a non-abstract method with the
// same subsignature is found. Arrays dispatch through the root object class.
// It returns nil if no concrete implementation exists.
func (p *Program) Dispatch(t Type, ref MethodRef) *Method {
	var c *Class
	switch t := t.(type) {
	case *Class:
		c = t
	case *ArrayType:
		c = p.Object
	}

	subsig := ref.Subsignature()
	for ; c != nil; c = c.Super {
		if m := c.methods[subsig]; m != nil && !m.IsAbstract {
			return m
		}
	}
	return nil
}

package ir

import (
	"fmt"
	"strings"
)

// Stmt is a statement of a method body.
type Stmt interface {
	fmt.Stringer
	// Index of the statement in the body of its method.
	Index() int
	// Method containing the statement.
	Container() *Method
	stmtTag()
}

type stmt struct {
	method *Method
	index  int
}

func (s stmt) Index() int         { return s.index }
func (s stmt) Container() *Method { return s.method }
func (stmt) stmtTag()             {}

// New is an allocation x = new T.
type New struct {
	stmt
	LHS  *Var
	Type Type
}

func (s *New) String() string { return fmt.Sprintf("%v = new %v", s.LHS, s.Type) }

// Copy is x = y.
type Copy struct {
	stmt
	LHS, RHS *Var
}

func (s *Copy) String() string { return fmt.Sprintf("%v = %v", s.LHS, s.RHS) }

// LoadField is x = y.f, or x = C.f when Base is nil.
type LoadField struct {
	stmt
	LHS   *Var
	Base  *Var
	Field *Field
}

// IsStatic reports whether the load reads a static field.
func (s *LoadField) IsStatic() bool { return s.Base == nil }

func (s *LoadField) String() string {
	if s.IsStatic() {
		return fmt.Sprintf("%v = %s.%s", s.LHS, s.Field.Class.Name, s.Field.Name)
	}
	return fmt.Sprintf("%v = %v.%s", s.LHS, s.Base, s.Field.Name)
}

// StoreField is x.f = y, or C.f = y when Base is nil.
type StoreField struct {
	stmt
	Base  *Var
	Field *Field
	RHS   *Var
}

// IsStatic reports whether the store writes a static field.
func (s *StoreField) IsStatic() bool { return s.Base == nil }

func (s *StoreField) String() string {
	if s.IsStatic() {
		return fmt.Sprintf("%s.%s = %v", s.Field.Class.Name, s.Field.Name, s.RHS)
	}
	return fmt.Sprintf("%v.%s = %v", s.Base, s.Field.Name, s.RHS)
}

// LoadArray is x = a[*]. Indices are not tracked.
type LoadArray struct {
	stmt
	LHS  *Var
	Base *Var
}

func (s *LoadArray) String() string { return fmt.Sprintf("%v = %v[*]", s.LHS, s.Base) }

// StoreArray is a[*] = x.
type StoreArray struct {
	stmt
	Base *Var
	RHS  *Var
}

func (s *StoreArray) String() string { return fmt.Sprintf("%v[*] = %v", s.Base, s.RHS) }

// CallKind distinguishes how the callee of an invocation is determined.
type CallKind int

const (
	CallStatic CallKind = iota + 1
	CallSpecial
	CallVirtual
	CallInterface
	CallDynamic
)

func (k CallKind) String() string {
	switch k {
	case CallStatic:
		return "static"
	case CallSpecial:
		return "special"
	case CallVirtual:
		return "virtual"
	case CallInterface:
		return "interface"
	case CallDynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("CallKind(%d)", int(k))
	}
}

// ParseCallKind is the inverse of CallKind.String.
func ParseCallKind(s string) (CallKind, bool) {
	for k := CallStatic; k <= CallDynamic; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Invoke is a method invocation [r =] recv.m(args).
type Invoke struct {
	stmt
	Kind   CallKind
	Ref    MethodRef
	Recv   *Var // nil for static calls
	Args   []*Var
	Result *Var // nil when the result is discarded
}

// IsStatic reports whether the invocation has no receiver.
func (s *Invoke) IsStatic() bool { return s.Kind == CallStatic }

func (s *Invoke) String() string {
	var sb strings.Builder
	if s.Result != nil {
		fmt.Fprintf(&sb, "%v = ", s.Result)
	}
	fmt.Fprintf(&sb, "invoke%s ", s.Kind)
	if s.Recv != nil {
		fmt.Fprintf(&sb, "%v.", s.Recv)
	}
	fmt.Fprintf(&sb, "%v(", s.Ref)
	for i, a := range s.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Location identifies the invocation inside the program, e.g.
// "<Main: void main()>[3]".
func (s *Invoke) Location() string {
	return fmt.Sprintf("%v[%d]", s.method, s.index)
}

// Return is return [x].
type Return struct {
	stmt
	Value *Var // nil for void returns
}

func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %v", s.Value)
}

func (m *Method) next() stmt { return stmt{method: m, index: len(m.stmts)} }

func (m *Method) checkVar(vs ...*Var) {
	for _, v := range vs {
		if v != nil && v.Method != m {
			panic(fmt.Errorf("variable %s does not belong to %v", v.Name, m))
		}
	}
}

// AddNew appends x = new T.
func (m *Method) AddNew(lhs *Var, t Type) *New {
	m.checkVar(lhs)
	s := &New{stmt: m.next(), LHS: lhs, Type: t}
	m.stmts = append(m.stmts, s)
	return s
}

// AddCopy appends x = y.
func (m *Method) AddCopy(lhs, rhs *Var) *Copy {
	m.checkVar(lhs, rhs)
	s := &Copy{stmt: m.next(), LHS: lhs, RHS: rhs}
	m.stmts = append(m.stmts, s)
	return s
}

// AddLoadField appends x = base.f (base == nil for static fields).
func (m *Method) AddLoadField(lhs, base *Var, f *Field) *LoadField {
	m.checkVar(lhs, base)
	if (base == nil) != f.Static {
		panic(fmt.Errorf("static-ness of load from %v does not match field", f))
	}
	s := &LoadField{stmt: m.next(), LHS: lhs, Base: base, Field: f}
	if base != nil {
		base.loadFields = append(base.loadFields, s)
	}
	m.stmts = append(m.stmts, s)
	return s
}

// AddStoreField appends base.f = rhs (base == nil for static fields).
func (m *Method) AddStoreField(base *Var, f *Field, rhs *Var) *StoreField {
	m.checkVar(base, rhs)
	if (base == nil) != f.Static {
		panic(fmt.Errorf("static-ness of store to %v does not match field", f))
	}
	s := &StoreField{stmt: m.next(), Base: base, Field: f, RHS: rhs}
	if base != nil {
		base.storeFields = append(base.storeFields, s)
	}
	m.stmts = append(m.stmts, s)
	return s
}

// AddLoadArray appends x = base[*].
func (m *Method) AddLoadArray(lhs, base *Var) *LoadArray {
	m.checkVar(lhs, base)
	s := &LoadArray{stmt: m.next(), LHS: lhs, Base: base}
	base.loadArrays = append(base.loadArrays, s)
	m.stmts = append(m.stmts, s)
	return s
}

// AddStoreArray appends base[*] = rhs.
func (m *Method) AddStoreArray(base, rhs *Var) *StoreArray {
	m.checkVar(base, rhs)
	s := &StoreArray{stmt: m.next(), Base: base, RHS: rhs}
	base.storeArrays = append(base.storeArrays, s)
	m.stmts = append(m.stmts, s)
	return s
}

// AddInvoke appends [result =] recv.ref(args). recv must be nil exactly when
// kind is CallStatic.
func (m *Method) AddInvoke(kind CallKind, ref MethodRef, recv *Var, args []*Var, result *Var) *Invoke {
	m.checkVar(recv, result)
	m.checkVar(args...)
	if (recv == nil) != (kind == CallStatic) {
		panic(fmt.Errorf("invoke%s of %v: receiver mismatch", kind, ref))
	}
	s := &Invoke{stmt: m.next(), Kind: kind, Ref: ref, Recv: recv, Args: args, Result: result}
	if recv != nil {
		recv.invokes = append(recv.invokes, s)
	}
	m.stmts = append(m.stmts, s)
	return s
}

// AddReturn appends return [value].
func (m *Method) AddReturn(value *Var) *Return {
	m.checkVar(value)
	s := &Return{stmt: m.next(), Value: value}
	if value != nil {
		m.returns = append(m.returns, value)
	}
	m.stmts = append(m.stmts, s)
	return s
}

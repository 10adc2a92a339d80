// Package ir defines the intermediate representation analysed by the pointer
// analysis: classes with single inheritance and interfaces, methods whose
// bodies are flat lists of statements, and the variables they use.
//
// Programs are built incrementally through the New* and Add* methods, either
// directly (see the tests) or through the YAML loader in progutil.
package ir

import (
	"fmt"
	"strings"
)

// Type is the type of a variable, field or abstract object.
type Type interface {
	fmt.Stringer
	// method used to tag type constructors
	typeTag()
}

type typ struct{}

func (typ) typeTag() {}

// PrimitiveType is a non-reference type such as int or void.
type PrimitiveType struct {
	typ
	name string
}

func (p *PrimitiveType) String() string { return p.name }

// ArrayType is an array of Elem. Array types are interned by the Program, so
// two array types are identical iff they are the same pointer.
type ArrayType struct {
	typ
	Elem Type
}

func (a *ArrayType) String() string { return a.Elem.String() + "[]" }

// Class is a class or an interface.
type Class struct {
	typ
	Name        string
	Super       *Class
	Interfaces  []*Class
	IsInterface bool
	IsAbstract  bool

	fields  map[string]*Field
	methods map[string]*Method
	// declaration order, for deterministic iteration
	fieldList  []*Field
	methodList []*Method
}

func (c *Class) String() string { return c.Name }

// Fields returns the fields declared in c.
func (c *Class) Fields() []*Field { return c.fieldList }

// Methods returns the methods declared in c.
func (c *Class) Methods() []*Method { return c.methodList }

// DeclaredMethod returns the method with the given subsignature declared
// directly in c, or nil.
func (c *Class) DeclaredMethod(subsig string) *Method { return c.methods[subsig] }

// DeclaredField returns the field with the given name declared directly in c,
// or nil.
func (c *Class) DeclaredField(name string) *Field { return c.fields[name] }

// LookupField finds the field with the given name in c or its superclasses.
func (c *Class) LookupField(name string) *Field {
	for k := c; k != nil; k = k.Super {
		if f, ok := k.fields[name]; ok {
			return f
		}
	}
	return nil
}

// NewField declares a field in c.
func (c *Class) NewField(name string, t Type, static bool) *Field {
	if _, dup := c.fields[name]; dup {
		panic(fmt.Errorf("duplicate field %s in %s", name, c.Name))
	}
	f := &Field{Class: c, Name: name, Type: t, Static: static}
	c.fields[name] = f
	c.fieldList = append(c.fieldList, f)
	return f
}

// MethodFlags modify a method declaration.
type MethodFlags uint8

const (
	Static MethodFlags = 1 << iota
	Abstract
)

// NewMethod declares a method in c. Parameter variables (and the this
// variable for instance methods) are created immediately; they are named
// after paramNames when one name per parameter is given, and p0, p1, ...
// otherwise.
func (c *Class) NewMethod(name string, params []Type, ret Type, flags MethodFlags, paramNames ...string) *Method {
	m := &Method{
		Class:      c,
		Name:       name,
		ParamTypes: params,
		ReturnType: ret,
		IsStatic:   flags&Static != 0,
		IsAbstract: flags&Abstract != 0 || c.IsInterface,
		vars:       make(map[string]*Var),
	}

	subsig := m.Subsignature()
	if _, dup := c.methods[subsig]; dup {
		panic(fmt.Errorf("duplicate method %s in %s", subsig, c.Name))
	}

	if !m.IsStatic {
		m.This = m.NewVar("this", c)
	}
	for i, pt := range params {
		pname := fmt.Sprintf("p%d", i)
		if len(paramNames) == len(params) {
			pname = paramNames[i]
		}
		m.Params = append(m.Params, m.NewVar(pname, pt))
	}

	c.methods[subsig] = m
	c.methodList = append(c.methodList, m)
	return m
}

// Field is a static or instance field.
type Field struct {
	Class  *Class
	Name   string
	Type   Type
	Static bool
}

func (f *Field) String() string {
	return fmt.Sprintf("<%s: %v %s>", f.Class.Name, f.Type, f.Name)
}

// Method is a method declaration together with its body.
type Method struct {
	Class      *Class
	Name       string
	ParamTypes []Type
	ReturnType Type
	IsStatic   bool
	IsAbstract bool

	This   *Var
	Params []*Var

	stmts   []Stmt
	vars    map[string]*Var
	varList []*Var
	returns []*Var
}

// Subsignature returns the class-independent part of the signature,
// e.g. "java.lang.String get(int)".
func (m *Method) Subsignature() string {
	return Subsignature(m.Name, m.ParamTypes, m.ReturnType)
}

// Signature returns the full signature, e.g. "<Source: java.lang.String get()>".
func (m *Method) Signature() string {
	return fmt.Sprintf("<%s: %s>", m.Class.Name, m.Subsignature())
}

func (m *Method) String() string { return m.Signature() }

// Stmts returns the body of m.
func (m *Method) Stmts() []Stmt { return m.stmts }

// Vars returns all variables of m in creation order.
func (m *Method) Vars() []*Var { return m.varList }

// Var returns the variable with the given name, or nil.
func (m *Method) Var(name string) *Var { return m.vars[name] }

// ReturnVars returns the variables returned by the return statements of m.
func (m *Method) ReturnVars() []*Var { return m.returns }

// NewVar creates a variable in m. Variable names are unique per method.
func (m *Method) NewVar(name string, t Type) *Var {
	if _, dup := m.vars[name]; dup {
		panic(fmt.Errorf("duplicate variable %s in %v", name, m))
	}
	v := &Var{Method: m, Name: name, Type: t}
	m.vars[name] = v
	m.varList = append(m.varList, v)
	return v
}

// Var is a local variable (including parameters and this).
type Var struct {
	Method *Method
	Name   string
	Type   Type

	loadFields  []*LoadField
	storeFields []*StoreField
	loadArrays  []*LoadArray
	storeArrays []*StoreArray
	invokes     []*Invoke
}

func (v *Var) String() string { return v.Name }

// LoadFields returns the instance field loads x = v.f.
func (v *Var) LoadFields() []*LoadField { return v.loadFields }

// StoreFields returns the instance field stores v.f = x.
func (v *Var) StoreFields() []*StoreField { return v.storeFields }

// LoadArrays returns the array loads x = v[*].
func (v *Var) LoadArrays() []*LoadArray { return v.loadArrays }

// StoreArrays returns the array stores v[*] = x.
func (v *Var) StoreArrays() []*StoreArray { return v.storeArrays }

// Invokes returns the non-static invocations with v as receiver.
func (v *Var) Invokes() []*Invoke { return v.invokes }

// MethodRef is a method reference as it appears at a call site, before
// resolution or dispatch.
type MethodRef struct {
	Class      *Class
	Name       string
	ParamTypes []Type
	ReturnType Type
}

// Subsignature returns the class-independent part of the reference.
func (r MethodRef) Subsignature() string {
	return Subsignature(r.Name, r.ParamTypes, r.ReturnType)
}

func (r MethodRef) String() string {
	return fmt.Sprintf("<%s: %s>", r.Class.Name, r.Subsignature())
}

// Ref returns a reference to m.
func (m *Method) Ref() MethodRef {
	return MethodRef{Class: m.Class, Name: m.Name, ParamTypes: m.ParamTypes, ReturnType: m.ReturnType}
}

// Subsignature formats the class-independent part of a method signature.
func Subsignature(name string, params []Type, ret Type) string {
	var sb strings.Builder
	sb.WriteString(ret.String())
	sb.WriteByte(' ')
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

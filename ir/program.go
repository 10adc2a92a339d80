package ir

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedSignature = errors.New("malformed method signature")
	ErrUnknownMethod      = errors.New("unknown method")
	ErrUnknownType        = errors.New("unknown type")
)

// Program is a closed world of classes together with the entry method.
type Program struct {
	// Main is the default entry method of the analysis.
	Main *Method
	// Object is the root of the class hierarchy. Methods invoked on arrays
	// are dispatched through it. It may be nil.
	Object *Class

	classes    map[string]*Class
	classList  []*Class
	primitives map[string]*PrimitiveType
	arrays     map[Type]*ArrayType
}

// Void is the return type of methods without a result.
var Void Type = &PrimitiveType{name: "void"}

var primitiveNames = [...]string{"boolean", "byte", "char", "short", "int", "long", "float", "double"}

func NewProgram() *Program {
	p := &Program{
		classes:    make(map[string]*Class),
		primitives: map[string]*PrimitiveType{"void": Void.(*PrimitiveType)},
		arrays:     make(map[Type]*ArrayType),
	}
	for _, name := range primitiveNames {
		p.primitives[name] = &PrimitiveType{name: name}
	}
	return p
}

// ClassFlags modify a class declaration.
type ClassFlags uint8

const (
	Interface ClassFlags = 1 << iota
	AbstractClass
)

// NewClass declares a class. The first class declared without a superclass
// becomes the root object class unless it is an interface.
func (p *Program) NewClass(name string, super *Class, ifaces []*Class, flags ClassFlags) *Class {
	if _, dup := p.classes[name]; dup {
		panic(fmt.Errorf("duplicate class %s", name))
	}
	c := &Class{
		Name:        name,
		Super:       super,
		Interfaces:  ifaces,
		IsInterface: flags&Interface != 0,
		IsAbstract:  flags&(Interface|AbstractClass) != 0,
		fields:      make(map[string]*Field),
		methods:     make(map[string]*Method),
	}
	p.classes[name] = c
	p.classList = append(p.classList, c)
	if super == nil && !c.IsInterface && p.Object == nil {
		p.Object = c
	}
	return c
}

// Class returns the class with the given name, or nil.
func (p *Program) Class(name string) *Class { return p.classes[name] }

// Classes returns all classes in declaration order.
func (p *Program) Classes() []*Class { return p.classList }

// ArrayOf returns the (interned) array type with the given element type.
func (p *Program) ArrayOf(elem Type) *ArrayType {
	if at, ok := p.arrays[elem]; ok {
		return at
	}
	at := &ArrayType{Elem: elem}
	p.arrays[elem] = at
	return at
}

// Type resolves a type name: a primitive, a class name, or T[] for arrays.
// It returns nil if the name does not denote a type.
func (p *Program) Type(name string) Type {
	name = strings.TrimSpace(name)
	if elem, ok := strings.CutSuffix(name, "[]"); ok {
		if et := p.Type(elem); et != nil {
			return p.ArrayOf(et)
		}
		return nil
	}
	if pt, ok := p.primitives[name]; ok {
		return pt
	}
	if c, ok := p.classes[name]; ok {
		return c
	}
	return nil
}

// Method resolves a signature of the form "<C: ret name(T1,T2)>".
func (p *Program) Method(signature string) (*Method, error) {
	className, subsig, err := splitSignature(signature)
	if err != nil {
		return nil, err
	}
	c := p.Class(className)
	if c == nil {
		return nil, fmt.Errorf("%w: no class %s in %q", ErrUnknownMethod, className, signature)
	}
	if m := c.DeclaredMethod(subsig); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, signature)
}

// MethodRef parses a signature into a method reference without requiring the
// method to exist. All types in the signature must be known.
func (p *Program) MethodRef(signature string) (MethodRef, error) {
	className, subsig, err := splitSignature(signature)
	if err != nil {
		return MethodRef{}, err
	}
	c := p.Class(className)
	if c == nil {
		return MethodRef{}, fmt.Errorf("%w: %s", ErrUnknownType, className)
	}
	name, params, ret, err := p.parseSubsignature(subsig)
	if err != nil {
		return MethodRef{}, fmt.Errorf("%q: %w", signature, err)
	}
	return MethodRef{Class: c, Name: name, ParamTypes: params, ReturnType: ret}, nil
}

func splitSignature(signature string) (className, subsig string, err error) {
	s := strings.TrimSpace(signature)
	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedSignature, signature)
	}
	className, subsig, ok := strings.Cut(s[1:len(s)-1], ":")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedSignature, signature)
	}
	className, subsig = strings.TrimSpace(className), normalizeSubsignature(subsig)
	if className == "" || subsig == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedSignature, signature)
	}
	return className, subsig, nil
}

// normalizeSubsignature removes optional blanks after commas.
func normalizeSubsignature(s string) string {
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, ", ", ",")
}

func (p *Program) parseSubsignature(subsig string) (name string, params []Type, ret Type, err error) {
	retName, rest, ok := strings.Cut(subsig, " ")
	open := strings.IndexByte(rest, '(')
	if !ok || open <= 0 || !strings.HasSuffix(rest, ")") {
		return "", nil, nil, fmt.Errorf("%w: %q", ErrMalformedSignature, subsig)
	}
	if ret = p.Type(retName); ret == nil {
		return "", nil, nil, fmt.Errorf("%w: %s", ErrUnknownType, retName)
	}
	name = rest[:open]
	if args := rest[open+1 : len(rest)-1]; args != "" {
		for _, an := range strings.Split(args, ",") {
			at := p.Type(an)
			if at == nil {
				return "", nil, nil, fmt.Errorf("%w: %s", ErrUnknownType, an)
			}
			params = append(params, at)
		}
	}
	return name, params, ret, nil
}

// Package progutil loads programs for the pointer analysis from YAML
// descriptions:
//
//	classes:
//	  - name: Object
//	  - name: A
//	    super: Object
//	    interfaces: [I]
//	    fields:
//	      - { name: f, type: Object }
//	      - { name: count, type: int, static: true }
//	    methods:
//	      - name: get
//	        params: ["Object x"]
//	        return: Object
//	        body:
//	          - "this.f = x"
//	          - "r = this.f"
//	          - "return r"
//	main: "<Main: void main()>"
//
// Statements use the grammar of ir.Program.ParseStmt. Variables may be
// declared with a type in a method's vars list; undeclared variables are
// created untyped on first use.
package progutil

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BarrensZeppelin/pta/internal/slices"
	"github.com/BarrensZeppelin/pta/ir"
	"gopkg.in/yaml.v3"
)

var ErrMalformedProgram = errors.New("malformed program")

type fieldSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Static bool   `yaml:"static"`
}

type methodSpec struct {
	Name     string   `yaml:"name"`
	Params   []string `yaml:"params"`
	Return   string   `yaml:"return"`
	Static   bool     `yaml:"static"`
	Abstract bool     `yaml:"abstract"`
	Vars     []string `yaml:"vars"`
	Body     []string `yaml:"body"`
}

type classSpec struct {
	Name       string       `yaml:"name"`
	Super      string       `yaml:"super"`
	Interfaces []string     `yaml:"interfaces"`
	Interface  bool         `yaml:"interface"`
	Abstract   bool         `yaml:"abstract"`
	Fields     []fieldSpec  `yaml:"fields"`
	Methods    []methodSpec `yaml:"methods"`
}

type programSpec struct {
	Classes []classSpec `yaml:"classes"`
	Main    string      `yaml:"main"`
}

// LoadProgramFile loads a program from a YAML file.
func LoadProgramFile(filename string) (*ir.Program, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	prog, err := LoadProgramFromSource(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return prog, nil
}

// LoadProgramFromSource loads a program from a YAML description.
func LoadProgramFromSource(source string) (*ir.Program, error) {
	var spec programSpec
	dec := yaml.NewDecoder(strings.NewReader(source))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProgram, err)
	}

	l := &loader{
		prog:  ir.NewProgram(),
		specs: make(map[string]*classSpec),
		state: make(map[string]int),
	}
	for i := range spec.Classes {
		cs := &spec.Classes[i]
		if _, dup := l.specs[cs.Name]; dup || cs.Name == "" {
			return nil, fmt.Errorf("%w: duplicate or empty class name %q", ErrMalformedProgram, cs.Name)
		}
		l.specs[cs.Name] = cs
	}

	for i := range spec.Classes {
		if _, err := l.declareClass(spec.Classes[i].Name); err != nil {
			return nil, err
		}
	}

	for i := range spec.Classes {
		if err := l.declareMembers(&spec.Classes[i]); err != nil {
			return nil, err
		}
	}

	for _, b := range l.bodies {
		for _, text := range b.stmts {
			if _, err := l.prog.ParseStmt(b.method, text); err != nil {
				return nil, fmt.Errorf("%v: %w", b.method, err)
			}
		}
	}

	if spec.Main != "" {
		m, err := l.prog.Method(spec.Main)
		if err != nil {
			return nil, fmt.Errorf("main: %w", err)
		}
		l.prog.Main = m
	}
	return l.prog, nil
}

const (
	unvisited = iota
	declaring
	declared
)

type body struct {
	method *ir.Method
	stmts  []string
}

type loader struct {
	prog   *ir.Program
	specs  map[string]*classSpec
	state  map[string]int
	bodies []body
}

// declareClass declares the class called name after its superclass and
// interfaces.
func (l *loader) declareClass(name string) (*ir.Class, error) {
	switch l.state[name] {
	case declared:
		return l.prog.Class(name), nil
	case declaring:
		return nil, fmt.Errorf("%w: cyclic inheritance involving %s", ErrMalformedProgram, name)
	}

	cs, ok := l.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ir.ErrUnknownType, name)
	}
	l.state[name] = declaring

	var super *ir.Class
	if cs.Super != "" {
		var err error
		if super, err = l.declareClass(cs.Super); err != nil {
			return nil, err
		}
		if super.IsInterface {
			return nil, fmt.Errorf("%w: %s extends interface %s", ErrMalformedProgram, name, super.Name)
		}
	}

	var ifaces []*ir.Class
	for _, in := range cs.Interfaces {
		itf, err := l.declareClass(in)
		if err != nil {
			return nil, err
		}
		if !itf.IsInterface {
			return nil, fmt.Errorf("%w: %s implements class %s", ErrMalformedProgram, name, in)
		}
		ifaces = append(ifaces, itf)
	}

	var flags ir.ClassFlags
	if cs.Interface {
		flags |= ir.Interface
	}
	if cs.Abstract {
		flags |= ir.AbstractClass
	}

	l.state[name] = declared
	return l.prog.NewClass(name, super, ifaces, flags), nil
}

func (l *loader) declareMembers(cs *classSpec) error {
	c := l.prog.Class(cs.Name)

	for _, fs := range cs.Fields {
		t := l.prog.Type(fs.Type)
		if t == nil {
			return fmt.Errorf("%w: field %s.%s: %s", ir.ErrUnknownType, cs.Name, fs.Name, fs.Type)
		}
		if c.DeclaredField(fs.Name) != nil {
			return fmt.Errorf("%w: duplicate field %s.%s", ErrMalformedProgram, cs.Name, fs.Name)
		}
		c.NewField(fs.Name, t, fs.Static)
	}

	for _, ms := range cs.Methods {
		m, err := l.declareMethod(c, ms)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", cs.Name, ms.Name, err)
		}
		if len(ms.Body) > 0 {
			if m.IsAbstract {
				return fmt.Errorf("%w: abstract method %v has a body", ErrMalformedProgram, m)
			}
			l.bodies = append(l.bodies, body{m, ms.Body})
		}
	}
	return nil
}

func (l *loader) declareMethod(c *ir.Class, ms methodSpec) (*ir.Method, error) {
	params, err := slices.TryMap(ms.Params, l.typedName)
	if err != nil {
		return nil, err
	}
	names := map[string]bool{"this": !ms.Static}
	for _, tn := range params {
		if names[tn.name] {
			return nil, fmt.Errorf("%w: duplicate parameter %s", ErrMalformedProgram, tn.name)
		}
		names[tn.name] = true
	}

	ret := ir.Void
	if ms.Return != "" {
		if ret = l.prog.Type(ms.Return); ret == nil {
			return nil, fmt.Errorf("%w: %s", ir.ErrUnknownType, ms.Return)
		}
	}

	var flags ir.MethodFlags
	if ms.Static {
		flags |= ir.Static
	}
	if ms.Abstract {
		flags |= ir.Abstract
	}

	paramTypes := slices.Map(params, func(tn *typedName) ir.Type { return tn.typ })
	if c.DeclaredMethod(ir.Subsignature(ms.Name, paramTypes, ret)) != nil {
		return nil, fmt.Errorf("%w: duplicate method", ErrMalformedProgram)
	}
	m := c.NewMethod(ms.Name, paramTypes, ret, flags,
		slices.Map(params, func(tn *typedName) string { return tn.name })...)

	for _, decl := range ms.Vars {
		tn, err := l.typedName(decl)
		if err != nil {
			return nil, err
		}
		if m.Var(tn.name) != nil {
			return nil, fmt.Errorf("%w: duplicate variable %s", ErrMalformedProgram, tn.name)
		}
		m.NewVar(tn.name, tn.typ)
	}
	return m, nil
}

type typedName struct {
	typ  ir.Type
	name string
}

// typedName parses a declaration "T name".
func (l *loader) typedName(decl string) (*typedName, error) {
	fields := strings.Fields(decl)
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: bad declaration %q", ErrMalformedProgram, decl)
	}
	t := l.prog.Type(fields[0])
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ir.ErrUnknownType, fields[0])
	}
	return &typedName{t, fields[1]}, nil
}

package ir

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrSyntax = errors.New("syntax error")

const (
	identRe = `[A-Za-z_$][\w$]*`
	classRe = `[A-Za-z_$][\w$.]*`
)

var (
	reIdent      = regexp.MustCompile(`^` + identRe + `$`)
	reReturn     = regexp.MustCompile(`^return(?:\s+(` + identRe + `))?$`)
	reInvoke     = regexp.MustCompile(`^(?:(` + identRe + `)\s*=\s*)?invoke(\w+)\s+(?:(` + identRe + `)\.)?(<[^>]*>)\s*\((.*)\)$`)
	reNew        = regexp.MustCompile(`^(` + identRe + `)\s*=\s*new\s+(\S+)$`)
	reLoadArray  = regexp.MustCompile(`^(` + identRe + `)\s*=\s*(` + identRe + `)\[[^\]]*\]$`)
	reStoreArray = regexp.MustCompile(`^(` + identRe + `)\[[^\]]*\]\s*=\s*(` + identRe + `)$`)
	reLoadField  = regexp.MustCompile(`^(` + identRe + `)\s*=\s*(` + classRe + `)\.(` + identRe + `)$`)
	reStoreField = regexp.MustCompile(`^(` + classRe + `)\.(` + identRe + `)\s*=\s*(` + identRe + `)$`)
	reCopy       = regexp.MustCompile(`^(` + identRe + `)\s*=\s*(` + identRe + `)$`)
)

// ParseStmt parses one statement in textual form and appends it to the body
// of m. Variables that have not been declared are created on first use
// without a type. The accepted forms are:
//
//	x = new T
//	x = y
//	x = y.f        x = C.f
//	y.f = x        C.f = x
//	x = y[i]       y[i] = x
//	[r =] invoke<kind> [recv.]<C: ret name(T1,T2)>(a1, a2)
//	return [x]
func (p *Program) ParseStmt(m *Method, text string) (Stmt, error) {
	text = strings.TrimSpace(text)

	if sm := reReturn.FindStringSubmatch(text); sm != nil {
		return m.AddReturn(m.local(sm[1])), nil
	}

	if sm := reInvoke.FindStringSubmatch(text); sm != nil {
		kind, ok := ParseCallKind(sm[2])
		if !ok {
			return nil, fmt.Errorf("%w: unknown call kind %q in %q", ErrSyntax, sm[2], text)
		}
		ref, err := p.MethodRef(sm[4])
		if err != nil {
			return nil, err
		}
		if (sm[3] == "") != (kind == CallStatic) {
			return nil, fmt.Errorf("%w: receiver mismatch for invoke%s in %q", ErrSyntax, kind, text)
		}
		var argNames []string
		if a := strings.TrimSpace(sm[5]); a != "" {
			for _, name := range strings.Split(a, ",") {
				name = strings.TrimSpace(name)
				if !reIdent.MatchString(name) {
					return nil, fmt.Errorf("%w: bad argument %q in %q", ErrSyntax, name, text)
				}
				argNames = append(argNames, name)
			}
		}
		if len(argNames) != len(ref.ParamTypes) {
			return nil, fmt.Errorf("%w: %v expects %d arguments, got %d",
				ErrSyntax, ref, len(ref.ParamTypes), len(argNames))
		}
		// Variables are only created once the statement is known to be valid
		args := make([]*Var, len(argNames))
		for i, name := range argNames {
			args[i] = m.local(name)
		}
		return m.AddInvoke(kind, ref, m.local(sm[3]), args, m.local(sm[1])), nil
	}

	if sm := reNew.FindStringSubmatch(text); sm != nil {
		t := p.Type(sm[2])
		if t == nil {
			return nil, fmt.Errorf("%w: %s in %q", ErrUnknownType, sm[2], text)
		}
		return m.AddNew(m.local(sm[1]), t), nil
	}

	if sm := reLoadArray.FindStringSubmatch(text); sm != nil {
		return m.AddLoadArray(m.local(sm[1]), m.local(sm[2])), nil
	}

	if sm := reStoreArray.FindStringSubmatch(text); sm != nil {
		return m.AddStoreArray(m.local(sm[1]), m.local(sm[2])), nil
	}

	if sm := reLoadField.FindStringSubmatch(text); sm != nil {
		base, f, err := p.fieldAccess(m, sm[2], sm[3])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", text, err)
		}
		return m.AddLoadField(m.local(sm[1]), base, f), nil
	}

	if sm := reStoreField.FindStringSubmatch(text); sm != nil {
		base, f, err := p.fieldAccess(m, sm[1], sm[2])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", text, err)
		}
		return m.AddStoreField(base, f, m.local(sm[3])), nil
	}

	if sm := reCopy.FindStringSubmatch(text); sm != nil {
		return m.AddCopy(m.local(sm[1]), m.local(sm[2])), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrSyntax, text)
}

// fieldAccess resolves the base and field of qualifier.name. A qualifier that
// names a variable of m denotes an instance field access, one that names a
// class denotes a static field access.
func (p *Program) fieldAccess(m *Method, qualifier, name string) (*Var, *Field, error) {
	if v := m.Var(qualifier); v != nil || p.Class(qualifier) == nil {
		var f *Field
		if v != nil {
			if cls, ok := v.Type.(*Class); ok {
				f = cls.LookupField(name)
			}
		}
		if f == nil {
			f = p.uniqueField(name)
		}
		if f == nil || f.Static {
			return nil, nil, fmt.Errorf("%w: no instance field %s on %s", ErrSyntax, name, qualifier)
		}
		return m.local(qualifier), f, nil
	}

	f := p.Class(qualifier).LookupField(name)
	if f == nil || !f.Static {
		return nil, nil, fmt.Errorf("%w: no static field %s.%s", ErrSyntax, qualifier, name)
	}
	return nil, f, nil
}

// uniqueField finds the instance field with the given name when the type of
// the base variable does not determine it. The name must identify a single
// field.
func (p *Program) uniqueField(name string) *Field {
	var res *Field
	for _, c := range p.classList {
		if f, ok := c.fields[name]; ok && !f.Static {
			if res != nil {
				return nil
			}
			res = f
		}
	}
	return res
}

// local returns the variable called name, creating it if necessary. The empty
// name yields nil.
func (m *Method) local(name string) *Var {
	if name == "" {
		return nil
	}
	if v := m.Var(name); v != nil {
		return v
	}
	return m.NewVar(name, nil)
}

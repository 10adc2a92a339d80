package pta

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BarrensZeppelin/pta/ir"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Slot encoding of transfer endpoints. Non-negative slots are argument
// indices.
const (
	BaseSlot   = -1
	ResultSlot = -2
)

// Source marks the result of calls to Method as taint of type Type.
type Source struct {
	Method *ir.Method
	Type   ir.Type
}

func (s Source) String() string { return fmt.Sprintf("%v(%v)", s.Method, s.Type) }

// Sink marks argument Index of calls to Method as sensitive.
type Sink struct {
	Method *ir.Method
	Index  int
}

func (s Sink) String() string { return fmt.Sprintf("%v/%d", s.Method, s.Index) }

// Transfer makes taint at slot From of calls to Method flow to slot To,
// retagged with Type.
type Transfer struct {
	Method *ir.Method
	From   int
	To     int
	Type   ir.Type
}

func (t Transfer) String() string {
	return fmt.Sprintf("%v: %s -> %s(%v)", t.Method, slotString(t.From), slotString(t.To), t.Type)
}

func slotString(slot int) string {
	switch slot {
	case BaseSlot:
		return "base"
	case ResultSlot:
		return "result"
	default:
		return strconv.Itoa(slot)
	}
}

// TaintConfig holds the taint rules of an analysis run.
type TaintConfig struct {
	Sources   []Source
	Sinks     []Sink
	Transfers []Transfer
}

func (c *TaintConfig) String() string {
	var sb strings.Builder
	sb.WriteString("TaintConfig:\n")
	sb.WriteString("sources:\n")
	for _, s := range c.Sources {
		fmt.Fprintf(&sb, "  %v\n", s)
	}
	sb.WriteString("sinks:\n")
	for _, s := range c.Sinks {
		fmt.Fprintf(&sb, "  %v\n", s)
	}
	sb.WriteString("transfers:\n")
	for _, t := range c.Transfers {
		fmt.Fprintf(&sb, "  %v\n", t)
	}
	return sb.String()
}

var ErrTaintConfig = errors.New("malformed taint configuration")

type sourceSpec struct {
	Method string `yaml:"method"`
	Type   string `yaml:"type"`
}

type sinkSpec struct {
	Method string `yaml:"method"`
	Index  int    `yaml:"index"`
}

type transferSpec struct {
	Method string    `yaml:"method"`
	From   yaml.Node `yaml:"from"`
	To     yaml.Node `yaml:"to"`
	Type   string    `yaml:"type"`
}

type taintConfigSpec struct {
	Sources   []sourceSpec   `yaml:"sources"`
	Sinks     []sinkSpec     `yaml:"sinks"`
	Transfers []transferSpec `yaml:"transfers"`
}

// LoadTaintConfig reads taint rules from a YAML file. See ParseTaintConfig.
func LoadTaintConfig(filename string, prog *ir.Program, log logrus.FieldLogger) (*TaintConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read taint config: %w", err)
	}
	return ParseTaintConfig(data, prog, log)
}

// ParseTaintConfig decodes taint rules of the form
//
//	sources:
//	  - { method: "<Source: java.lang.String get()>", type: "java.lang.String" }
//	sinks:
//	  - { method: "<Sink: void take(java.lang.String)>", index: 0 }
//	transfers:
//	  - { method: "<Util: java.lang.String wrap(java.lang.String)>", from: 0, to: result, type: "java.lang.String" }
//
// where from and to are argument indices, base (or -1) or result (or -2).
//
// Data that is not a valid document yields an error. Individual rules that
// refer to unknown methods or types, or to slots the method does not have,
// are dropped with a warning.
func ParseTaintConfig(data []byte, prog *ir.Program, log logrus.FieldLogger) (*TaintConfig, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var spec taintConfigSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrTaintConfig, err)
	}

	config := &TaintConfig{}
	warn := func(rule string, err error) {
		log.Warnf("Dropping taint %s rule: %v", rule, err)
	}

	for _, s := range spec.Sources {
		m, t, err := resolveRule(prog, s.Method, s.Type)
		if err != nil {
			warn("source", err)
			continue
		}
		config.Sources = append(config.Sources, Source{Method: m, Type: t})
	}

	for _, s := range spec.Sinks {
		m, err := prog.Method(s.Method)
		if err != nil {
			warn("sink", err)
			continue
		}
		if s.Index < 0 {
			warn("sink", fmt.Errorf("%w: negative index %d", ErrTaintConfig, s.Index))
			continue
		}
		if err := checkSlot(m, s.Index); err != nil {
			warn("sink", err)
			continue
		}
		config.Sinks = append(config.Sinks, Sink{Method: m, Index: s.Index})
	}

	for _, s := range spec.Transfers {
		m, t, err := resolveRule(prog, s.Method, s.Type)
		if err != nil {
			warn("transfer", err)
			continue
		}
		from, err := parseSlot(&s.From)
		if err == nil {
			err = checkSlot(m, from)
		}
		if err != nil {
			warn("transfer", fmt.Errorf("from: %w", err))
			continue
		}
		to, err := parseSlot(&s.To)
		if err == nil {
			err = checkSlot(m, to)
		}
		if err != nil {
			warn("transfer", fmt.Errorf("to: %w", err))
			continue
		}
		if from == ResultSlot {
			warn("transfer", fmt.Errorf("%v: taint cannot flow out of the result", m))
			continue
		}
		config.Transfers = append(config.Transfers, Transfer{Method: m, From: from, To: to, Type: t})
	}

	return config, nil
}

func resolveRule(prog *ir.Program, signature, typeName string) (*ir.Method, ir.Type, error) {
	m, err := prog.Method(signature)
	if err != nil {
		return nil, nil, err
	}
	t := prog.Type(typeName)
	if t == nil {
		return nil, nil, fmt.Errorf("%w: %q", ir.ErrUnknownType, typeName)
	}
	return m, t, nil
}

func parseSlot(node *yaml.Node) (int, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("%w: missing or non-scalar slot", ErrTaintConfig)
	}
	switch node.Value {
	case "base":
		return BaseSlot, nil
	case "result":
		return ResultSlot, nil
	}
	// -1 and -2 are the numeric forms of base and result
	i, err := strconv.Atoi(node.Value)
	if err != nil || i < ResultSlot {
		return 0, fmt.Errorf("%w: bad slot %q", ErrTaintConfig, node.Value)
	}
	return i, nil
}

// checkSlot verifies that m has the given slot.
func checkSlot(m *ir.Method, slot int) error {
	switch {
	case slot == BaseSlot && m.IsStatic:
		return fmt.Errorf("%w: static method %v has no base", ErrTaintConfig, m)
	case slot == ResultSlot && m.ReturnType == ir.Void:
		return fmt.Errorf("%w: %v has no result", ErrTaintConfig, m)
	case slot >= len(m.ParamTypes):
		return fmt.Errorf("%w: %v has no argument %d", ErrTaintConfig, m, slot)
	case slot < ResultSlot:
		return fmt.Errorf("%w: bad slot %d", ErrTaintConfig, slot)
	}
	return nil
}

package codegen

import (
	"strings"
)

// Namespace is a C++ namespace, possibly nested.
type Namespace struct {
	parent *Namespace
	name   string
}

var Global = &Namespace{}
var ESPHomeNS = Global.Namespace("esphome")

func (n *Namespace) Namespace(name string) *Namespace {
	return &Namespace{parent: n, name: name}
}

// Path returns namespace path relative to esphome namespace, as the generated
// code runs with `using namespace esphome`.
func (n *Namespace) Path() string {
	if n == nil || n.name == "" || n == ESPHomeNS {
		return ""
	}
	p := n.parent.Path()
	if p == "" {
		return n.name
	}
	return p + "::" + n.name
}

func (n *Namespace) Class(name string, parents ...*Class) *Class {
	return &Class{ns: n, name: name, parents: parents}
}

// TemplateClass declares class which needs template arguments when constructed (actions, automations).
func (n *Namespace) TemplateClass(name string, parents ...*Class) *Class {
	return &Class{ns: n, name: name, parents: parents, template: true}
}

func (n *Namespace) Enum(name string) *Enum {
	return &Enum{ns: n, name: name}
}

type Class struct {
	ns       *Namespace
	name     string
	parents  []*Class
	template bool
}

func (c *Class) String() string {
	p := c.ns.Path()
	if p == "" {
		return c.name
	}
	return p + "::" + c.name
}

func (c *Class) Template() bool { return c.template }

// Inherits reports whether c is other or derives from it.
func (c *Class) Inherits(other *Class) bool {
	if c == nil || other == nil {
		return false
	}
	if c == other {
		return true
	}
	for _, p := range c.parents {
		if p.Inherits(other) {
			return true
		}
	}
	return false
}

// BaseName is used for generated variable names, e.g. `tcs34725::TCS34725Component` -> `tcs34725_tcs34725component`
func (c *Class) BaseName() string {
	return strings.ToLower(strings.ReplaceAll(c.String(), "::", "_"))
}

type Enum struct {
	ns   *Namespace
	name string
}

// Value returns enumerator. Enums are unscoped in the driver headers so enumerator lives in the namespace.
func (e *Enum) Value(symbol string) EnumValue {
	return EnumValue{enum: e, Symbol: symbol}
}

func (e *Enum) String() string {
	p := e.ns.Path()
	if p == "" {
		return e.name
	}
	return p + "::" + e.name
}

type EnumValue struct {
	enum   *Enum
	Symbol string
}

func (v EnumValue) String() string {
	p := v.enum.ns.Path()
	if p == "" {
		return v.Symbol
	}
	return p + "::" + v.Symbol
}

// commonly used base classes
var (
	Component        = ESPHomeNS.Class("Component")
	PollingComponent = ESPHomeNS.Class("PollingComponent", Component)
	App              = RawExpression("App")
	Trigger          = ESPHomeNS.TemplateClass("Trigger")
	Action           = ESPHomeNS.TemplateClass("Action")
	Automation       = ESPHomeNS.TemplateClass("Automation")
	StartupTrigger   = ESPHomeNS.Class("StartupTrigger", Trigger, Component)
)

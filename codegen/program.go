package codegen

import (
	"fmt"
	"io"
	"strings"
)

type Kind string

const (
	// KindNew allocates object into a global pointer variable
	KindNew Kind = "new"
	// KindCall invokes method on a variable (or on App)
	KindCall Kind = "call"
)

// Directive is one emitted construction or method invocation.
type Directive struct {
	Kind   Kind     `json:"kind" yaml:"kind"`
	Target string   `json:"target" yaml:"target"`
	Type   string   `json:"type,omitempty" yaml:"type,omitempty"`
	Method string   `json:"method,omitempty" yaml:"method,omitempty"`
	Args   []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Object is set for calls on non-pointer globals like App
	Object bool `json:"object,omitempty" yaml:"object,omitempty"`
}

func (d Directive) String() string {
	switch d.Kind {
	case KindNew:
		return fmt.Sprintf("%s = new %s(%s);", d.Target, d.Type, strings.Join(d.Args, ", "))
	default:
		sep := "->"
		if d.Object {
			sep = "."
		}
		return fmt.Sprintf("%s%s%s(%s);", d.Target, sep, d.Method, strings.Join(d.Args, ", "))
	}
}

// Program collects directives of one code generation pass in emission order
type Program struct {
	includes   []string
	directives []Directive
	variables  map[string]*ID
}

func NewProgram() *Program {
	return &Program{variables: map[string]*ID{}}
}

func (p *Program) AddInclude(inc string) {
	for _, i := range p.includes {
		if i == inc {
			return
		}
	}
	p.includes = append(p.includes, inc)
}

// NewPvariable allocates object of id's type and makes it available to GetVariable
func (p *Program) NewPvariable(id *ID, templateArgs TemplateArguments, args ...Expression) (*ID, error) {
	if !id.IsDeclaration {
		return nil, fmt.Errorf("cannot allocate %s, it is a reference", id.Name)
	}
	if id.Name == "" {
		return nil, fmt.Errorf("ID of type %s was never named", id.Type)
	}
	if _, ok := p.variables[id.Name]; ok {
		return nil, fmt.Errorf("variable %s already allocated", id.Name)
	}
	t := id.Type.String()
	if id.Type.Template() || len(templateArgs) > 0 {
		t += templateArgs.String()
	}
	p.directives = append(p.directives, Directive{
		Kind:   KindNew,
		Target: id.Name,
		Type:   t,
		Args:   exprStrings(args),
	})
	p.variables[id.Name] = id
	return id, nil
}

// Call emits `target->method(args)`
func (p *Program) Call(target Expression, method string, args ...Expression) {
	_, object := target.(RawExpression)
	p.directives = append(p.directives, Directive{
		Kind:   KindCall,
		Target: target.String(),
		Method: method,
		Args:   exprStrings(args),
		Object: object,
	})
}

// GetVariable returns already allocated variable for the reference
func (p *Program) GetVariable(ref *ID) (*ID, error) {
	if ref.Name == "" {
		return nil, fmt.Errorf("unresolved reference of type %s", ref.Type)
	}
	v, ok := p.variables[ref.Name]
	if !ok {
		return nil, fmt.Errorf("variable %s is not allocated yet", ref.Name)
	}
	return v, nil
}

func (p *Program) Directives() []Directive {
	out := make([]Directive, len(p.directives))
	copy(out, p.directives)
	return out
}

// Render writes C++ source: includes, global pointer declarations and setup body
func (p *Program) Render(w io.Writer) error {
	var b strings.Builder
	b.WriteString("// Auto generated code by esphome-tcs34725\n")
	for _, inc := range p.includes {
		fmt.Fprintf(&b, "#include %s\n", inc)
	}
	b.WriteString("using namespace esphome;\n")
	for _, d := range p.directives {
		if d.Kind == KindNew {
			fmt.Fprintf(&b, "%s *%s;\n", d.Type, d.Target)
		}
	}
	b.WriteString("\nvoid setup() {\n")
	for _, d := range p.directives {
		b.WriteString("  ")
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	b.WriteString("  App.setup();\n}\n\nvoid loop() {\n  App.loop();\n}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (p *Program) String() string {
	var b strings.Builder
	_ = p.Render(&b)
	return b.String()
}

func exprStrings(e []Expression) []string {
	if len(e) == 0 {
		return nil
	}
	s := make([]string, len(e))
	for i, v := range e {
		s[i] = v.String()
	}
	return s
}

package codegen

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math"
	"strings"
	"testing"
)

var testNS = ESPHomeNS.Namespace("test")

func TestClassNames(t *testing.T) {
	c := testNS.Class("FooComponent", PollingComponent)
	assert.Equal(t, "test::FooComponent", c.String())
	assert.Equal(t, "test_foocomponent", c.BaseName())
	assert.True(t, c.Inherits(Component))
	assert.True(t, c.Inherits(c))
	assert.False(t, Component.Inherits(c))
	assert.Equal(t, "Component", Component.String())
	assert.Equal(t, "test::FOO_BAR", testNS.Enum("Foo").Value("FOO_BAR").String())
}

func TestLiterals(t *testing.T) {
	assert.Equal(t, "0x29", HexLiteral(0x29).String())
	assert.Equal(t, "0x05", HexLiteral(5).String())
	assert.Equal(t, "60000UL", Uint32Literal(60000).String())
	assert.Equal(t, "1.0f", FloatLiteral(1).String())
	assert.Equal(t, "2.5f", FloatLiteral(2.5).String())
	assert.Equal(t, "NAN", FloatLiteral(math.NaN()).String())
	assert.Equal(t, "INFINITY", FloatLiteral(math.Inf(1)).String())
	assert.Equal(t, "-INFINITY", FloatLiteral(math.Inf(-1)).String())
	assert.Equal(t, "true", BoolLiteral(true).String())
	assert.Equal(t, `"a \"b\""`, StringLiteral(`a "b"`).String())
	assert.Equal(t, "{1, 2}", ArrayInitializer{IntLiteral(1), IntLiteral(2)}.String())
	assert.Equal(t, "<>", TemplateArguments{}.String())
	act := testNS.TemplateClass("DoIt", Action)
	assert.Equal(t, "new test::DoIt<>(x)", New{Type: act, Args: []Expression{RawExpression("x")}}.String())
}

func TestValidateIDName(t *testing.T) {
	assert.NoError(t, ValidateIDName("my_sensor_1"))
	assert.Error(t, ValidateIDName(""))
	assert.Error(t, ValidateIDName("1abc"))
	assert.Error(t, ValidateIDName("has-dash"))
	assert.Error(t, ValidateIDName("App"))
	assert.Error(t, ValidateIDName("class"))
}

func TestScopeGenerate(t *testing.T) {
	c := testNS.Class("Thing")
	s := NewScope()
	manual := &ID{Name: "test_thing_id", Type: c, IsDeclaration: true, IsManual: true}
	a := &ID{Type: c, IsDeclaration: true}
	b := &ID{Type: c, IsDeclaration: true}
	require.NoError(t, s.Declare(a))
	require.NoError(t, s.Declare(manual))
	require.NoError(t, s.Declare(b))
	s.Generate()
	assert.Equal(t, "test_thing_id_2", a.Name)
	assert.Equal(t, "test_thing_id_3", b.Name)
	assert.Len(t, s.Declarations(), 3)

	err := s.Declare(&ID{Name: "test_thing_id", Type: c, IsDeclaration: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redefined")
}

func TestScopeResolve(t *testing.T) {
	base := testNS.Class("Base")
	derived := testNS.Class("Derived", base)
	other := testNS.Class("Other")

	s := NewScope()
	require.NoError(t, s.Declare(&ID{Name: "one", Type: derived, IsDeclaration: true}))
	s.Generate()

	decl, err := s.Resolve(&ID{Name: "one", Type: base})
	require.NoError(t, err)
	assert.Equal(t, "one", decl.Name)

	ref := &ID{Type: base}
	_, err = s.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, "one", ref.Name, "implicit reference gets the only candidate")

	_, err = s.Resolve(&ID{Name: "one", Type: other})
	assert.ErrorContains(t, err, "doesn't inherit")
	_, err = s.Resolve(&ID{Name: "missing", Type: base})
	assert.ErrorContains(t, err, "couldn't find ID")
	_, err = s.Resolve(&ID{Type: other})
	assert.ErrorContains(t, err, "couldn't find any component")

	require.NoError(t, s.Declare(&ID{Name: "two", Type: derived, IsDeclaration: true}))
	_, err = s.Resolve(&ID{Type: base})
	assert.ErrorContains(t, err, "too many candidates")
	assert.ErrorContains(t, err, "one, two")
}

func TestProgramRender(t *testing.T) {
	c := testNS.Class("Thing", Component)
	p := NewProgram()
	p.AddInclude(`"esphome.h"`)
	p.AddInclude(`"esphome.h"`)
	v, err := p.NewPvariable(&ID{Name: "thing", Type: c, IsDeclaration: true}, nil)
	require.NoError(t, err)
	p.Call(v, "set_value", IntLiteral(3))
	p.Call(App, "register_component", v)

	_, err = p.NewPvariable(&ID{Name: "thing", Type: c, IsDeclaration: true}, nil)
	assert.Error(t, err, "double allocation")
	_, err = p.NewPvariable(&ID{Name: "ref", Type: c}, nil)
	assert.Error(t, err, "references are not allocated")

	got, err := p.GetVariable(&ID{Name: "thing", Type: c})
	require.NoError(t, err)
	assert.Same(t, v, got)
	_, err = p.GetVariable(&ID{Name: "nope", Type: c})
	assert.Error(t, err)

	d := p.Directives()
	require.Len(t, d, 3)
	assert.Equal(t, Directive{Kind: KindNew, Target: "thing", Type: "test::Thing"}, d[0])
	assert.Equal(t, "thing->set_value(3);", d[1].String())
	assert.Equal(t, "App.register_component(thing);", d[2].String())

	out := p.String()
	assert.Equal(t, 1, strings.Count(out, `#include "esphome.h"`))
	assert.Contains(t, out, "test::Thing *thing;\n")
	assert.Contains(t, out, "  thing = new test::Thing();\n  thing->set_value(3);\n")
	assert.Contains(t, out, "  App.setup();\n}")
}

package automation

import (
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/registry"
	"github.com/XANi/esphome-tcs34725/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

var (
	testNS     = codegen.ESPHomeNS.Namespace("test")
	testTarget = testNS.Class("Lamp")
	testAction = testNS.TemplateClass("Blink", codegen.Action)
)

func testRegistry() *registry.Registry {
	r := registry.New()
	r.RegisterAction(&registry.Action{
		Name:   "test.blink",
		Class:  testAction,
		Schema: MaybeSimpleID(schema.New(schema.Required("id", schema.UseID(testTarget)))),
		ToCode: func(p *codegen.Program, cfg *schema.Config, actx registry.ActionContext) (codegen.Expression, error) {
			v, _ := cfg.Get("id")
			return p.NewPvariable(actx.ID, actx.TemplateArgs, codegen.RawExpression(v.(*codegen.ID).Name))
		},
	})
	return r
}

func TestMaybeSimpleID(t *testing.T) {
	v := MaybeSimpleID(schema.New(schema.Required("id", schema.UseID(testTarget))))
	for _, in := range []any{"lamp", map[string]any{"id": "lamp"}} {
		out, err := v(nil, in)
		require.NoError(t, err)
		id, _ := out.(*schema.Config).Get("id")
		assert.Equal(t, "lamp", id.(*codegen.ID).Name)
	}
	out, err := v(nil, nil)
	require.NoError(t, err)
	id, _ := out.(*schema.Config).Get("id")
	assert.Empty(t, id.(*codegen.ID).Name)
}

func TestActions(t *testing.T) {
	r := testRegistry()
	out, err := Actions(r)(nil, []any{"test.blink", map[string]any{"test.blink": "lamp"}})
	require.NoError(t, err)
	l := out.([]any)
	require.Len(t, l, 2)
	c := l[1].(*schema.Config)
	assert.Equal(t, "test.blink", c.Str("action"))
	ref, _ := c.Sub("config").Get("id")
	assert.Equal(t, "lamp", ref.(*codegen.ID).Name)

	_, err = Actions(r)(nil, []any{"test.explode"})
	assert.ErrorContains(t, err, "unable to find action with the name 'test.explode'")
	_, err = Actions(r)(nil, []any{map[string]any{"test.blink": "a", "test.other": "b"}})
	assert.ErrorContains(t, err, "cannot have two actions in one item")
}

func TestStartupForms(t *testing.T) {
	r := testRegistry()
	forms := []any{
		map[string]any{"then": []any{map[string]any{"test.blink": "lamp"}}},
		[]any{map[string]any{"priority": 100, "then": []any{"test.blink"}}, map[string]any{"then": "test.blink"}},
		[]any{map[string]any{"test.blink": "lamp"}},
	}
	counts := []int{1, 2, 1}
	for i, f := range forms {
		out, err := Startup(r)(nil, f)
		require.NoError(t, err, "form %d", i)
		assert.Len(t, out, counts[i], "form %d", i)
	}
}

func TestBuildStartup(t *testing.T) {
	r := testRegistry()
	out, err := Startup(r)(nil, map[string]any{"then": []any{map[string]any{"test.blink": "lamp"}}})
	require.NoError(t, err)
	cfg := out.([]any)[0].(*schema.Config)
	for _, k := range []string{"trigger_id", "automation_id"} {
		v, _ := cfg.Get(k)
		v.(*codegen.ID).Name = k
	}
	then, _ := cfg.Get("then")
	act, _ := then.([]any)[0].(*schema.Config).Get("action_id")
	act.(*codegen.ID).Name = "blink_1"

	p := codegen.NewProgram()
	require.NoError(t, BuildStartup(p, r, cfg))
	var lines []string
	for _, d := range p.Directives() {
		lines = append(lines, d.String())
	}
	assert.Equal(t, []string{
		"trigger_id = new StartupTrigger(600.0f);",
		"App.register_component(trigger_id);",
		"automation_id = new Automation<>(trigger_id);",
		"blink_1 = new test::Blink<>(lamp);",
		"automation_id->add_actions({blink_1});",
	}, lines)
}

package project

import (
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/i2c"
	"github.com/XANi/esphome-tcs34725/registry"
	"github.com/XANi/esphome-tcs34725/schema"
	"github.com/XANi/esphome-tcs34725/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

var lampClass = codegen.ESPHomeNS.Namespace("lamp").Class("Lamp", codegen.Component)

// testRegistry has the i2c bus and a minimal sensor platform sitting on it
func testRegistry() *registry.Registry {
	reg := registry.New()
	i2c.Register(reg)
	reg.RegisterComponent(&registry.Component{
		Domain:       "sensor",
		Platform:     "lamp",
		Dependencies: []string{i2c.Domain},
		Schema: func(*schema.Context) *schema.Schema {
			return schema.New(
				schema.GenerateID(lampClass),
				schema.Optional("level", sensor.Schema(sensor.Options{Unit: sensor.UnitLux, DeviceClass: sensor.DeviceClassIlluminance}).Validator()),
			).Extend(i2c.DeviceSchema(0x10))
		},
		ToCode: func(p *codegen.Program, cfg *schema.Config) error {
			v, _ := cfg.Get("id")
			_, err := p.NewPvariable(v.(*codegen.ID), nil)
			return err
		},
	})
	return reg
}

func newCompiler(t *testing.T) *Compiler {
	c, err := New(Config{Registry: testRegistry()})
	require.NoError(t, err)
	return c
}

func TestNewRequiresRegistry(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte("esphome:\n  name: a\ni2c:\n  sda: 1\nsensor: []\n"))
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.Equal(t, "esphome", s[0].Key)
	assert.Equal(t, "i2c", s[1].Key)
	assert.Equal(t, "sensor", s[2].Key)
	_, ok := s[0].Value.(map[string]any)
	assert.True(t, ok, "nested mappings are plain maps")

	_, err = Parse([]byte("esphome: {}\nesphome: {}\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("esphome: [\n"))
	assert.Error(t, err)
	assert.Len(t, Hash([]byte("x")), 64)
}

func TestCoreValidation(t *testing.T) {
	c := newCompiler(t)
	_, err := c.Validate([]byte("i2c:\n"))
	assert.ErrorContains(t, err, "'esphome' section missing")
	_, err = c.Validate([]byte("esphome:\n  name: Bad_Name\n"))
	assert.ErrorContains(t, err, "[esphome.name]")
	_, err = c.Validate([]byte("esphome:\n  name: ok\n  platform: avr\n"))
	assert.ErrorContains(t, err, "[esphome.platform]")
	p, err := c.Validate([]byte("esphome:\n  name: ok\n  platform: ESP8266\n"))
	require.NoError(t, err)
	assert.Equal(t, "esp8266", p.Platform)
}

func TestUnknownComponents(t *testing.T) {
	c := newCompiler(t)
	_, err := c.Validate([]byte("esphome:\n  name: ok\nlight:\n  - platform: x\n"))
	assert.ErrorContains(t, err, "component not found: light")
	_, err = c.Validate([]byte("esphome:\n  name: ok\nsensor:\n  - platform: dht\n"))
	assert.ErrorContains(t, err, "platform not found: 'sensor.dht'")
	_, err = c.Validate([]byte("esphome:\n  name: ok\nsensor:\n  - name: x\n"))
	assert.ErrorContains(t, err, "[sensor.0.platform] required key not provided")
}

func TestDependencies(t *testing.T) {
	c := newCompiler(t)
	_, err := c.Validate([]byte("esphome:\n  name: ok\nsensor:\n  - platform: lamp\n"))
	assert.ErrorContains(t, err, "component sensor.lamp requires component i2c")
}

func TestDuplicateIDs(t *testing.T) {
	c := newCompiler(t)
	_, err := c.Validate([]byte(`
esphome:
  name: ok
i2c:
  id: dup
sensor:
  - platform: lamp
    id: dup
`))
	assert.ErrorContains(t, err, "ID dup redefined!")
}

func TestMissingBus(t *testing.T) {
	c := newCompiler(t)
	_, err := c.Validate([]byte(`
esphome:
  name: ok
i2c:
  id: bus_a
sensor:
  - platform: lamp
    i2c_id: bus_b
`))
	assert.ErrorContains(t, err, "[sensor.0.i2c_id] couldn't find ID 'bus_b'")
}

func TestPinConflicts(t *testing.T) {
	c := newCompiler(t)
	_, err := c.Validate([]byte(`
esphome:
  name: ok
i2c:
  - id: bus_a
    sda: 21
    scl: 22
  - id: bus_b
    sda: 21
    scl: 23
`))
	assert.ErrorContains(t, err, "pin GPIO21 is used in multiple places: i2c.0.sda, i2c.1.sda")
}

func TestEmitOrderAndEntities(t *testing.T) {
	c := newCompiler(t)
	res, err := c.Compile([]byte(`
esphome:
  name: node-1
  friendly_name: Node
sensor:
  - platform: lamp
    id: lamp_a
    level:
      name: Light Level
  - platform: lamp
    id: lamp_b
    address: 0x11
    level:
      id: hidden
i2c:
  id: bus_a
`))
	require.NoError(t, err)
	var targets []string
	for _, d := range res.Program.Directives() {
		if d.Kind == codegen.KindNew {
			targets = append(targets, d.Target)
		}
	}
	assert.Equal(t, []string{"bus_a", "lamp_a", "lamp_b"}, targets, "buses first, then file order")
	assert.Equal(t, `App.pre_setup("node-1", "Node", "");`, res.Program.Directives()[0].String())

	e := res.Entities()
	require.Len(t, e, 1, "unnamed sensors are internal and skipped")
	assert.Equal(t, "sensor.0", e[0].Component)
	assert.Equal(t, "light_level", e[0].ObjectID)
	assert.Equal(t, sensor.UnitLux, e[0].Unit)
	assert.True(t, strings.HasPrefix(res.Program.String(), "// Auto generated code"))
}

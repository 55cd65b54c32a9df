package component

import (
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestPollingSchema(t *testing.T) {
	cfg, err := PollingSchema("60s").Validate(nil, map[string]any{"setup_priority": 800})
	require.NoError(t, err)
	o, err := FromConfig("test.component", cfg)
	require.NoError(t, err)
	require.NotNil(t, o.UpdateInterval)
	require.NotNil(t, o.SetupPriority)
	assert.Equal(t, uint32(60000), o.UpdateInterval.Milliseconds())

	p := codegen.NewProgram()
	v := &codegen.ID{Name: "comp"}
	Register(p, v, o)
	var lines []string
	for _, d := range p.Directives() {
		lines = append(lines, d.String())
	}
	assert.Equal(t, []string{
		"comp->set_setup_priority(800.0f);",
		"comp->set_update_interval(60000UL);",
		`comp->set_component_source(LOG_STR("test.component"));`,
		"App.register_component(comp);",
	}, lines)
}

func TestUpdateIntervalNever(t *testing.T) {
	cfg, err := PollingSchema("60s").Validate(nil, map[string]any{"update_interval": "never"})
	require.NoError(t, err)
	o, err := FromConfig("", cfg)
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), o.UpdateInterval.Milliseconds())

	_, err = PollingSchema("60s").Validate(nil, map[string]any{"update_interval": 60})
	assert.Error(t, err)
}

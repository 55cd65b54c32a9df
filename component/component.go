package component

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/schema"
)

// Schema holds fields common to every component
var Schema = schema.New(
	schema.Optional("setup_priority", schema.Float),
)

// PollingSchema adds update_interval with given default to the component schema
func PollingSchema(defaultInterval string) *schema.Schema {
	return Schema.ExtendFields(
		schema.OptionalDefault("update_interval", defaultInterval, schema.PositiveTimePeriod(true)),
	)
}

// Options are component registration settings pulled out of validated config
type Options struct {
	// Source is reported by the runtime in its logs, like `tcs34725.sensor`
	Source         string
	SetupPriority  *float64
	UpdateInterval *schema.TimePeriod
}

func FromConfig(source string, cfg *schema.Config) (Options, error) {
	o := Options{Source: source}
	if v, ok := cfg.Get("setup_priority"); ok {
		f, ok := v.(float64)
		if !ok {
			return o, fmt.Errorf("setup_priority: unexpected type %T", v)
		}
		o.SetupPriority = &f
	}
	if v, ok := cfg.Get("update_interval"); ok {
		tp, ok := v.(schema.TimePeriod)
		if !ok {
			return o, fmt.Errorf("update_interval: unexpected type %T", v)
		}
		o.UpdateInterval = &tp
	}
	return o, nil
}

// Register emits component setup and hands the variable to the application
func Register(p *codegen.Program, v *codegen.ID, o Options) {
	if o.SetupPriority != nil {
		p.Call(v, "set_setup_priority", codegen.FloatLiteral(*o.SetupPriority))
	}
	if o.UpdateInterval != nil {
		p.Call(v, "set_update_interval", codegen.Uint32Literal(o.UpdateInterval.Milliseconds()))
	}
	if o.Source != "" {
		p.Call(v, "set_component_source", codegen.RawExpression(fmt.Sprintf("LOG_STR(%q)", o.Source)))
	}
	p.Call(codegen.App, "register_component", v)
}

package sensor

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/schema"
	"regexp"
	"strings"
)

var ns = codegen.ESPHomeNS.Namespace("sensor")

var (
	Sensor = ns.Class("Sensor")
	Filter = ns.Class("Filter")
)

const (
	UnitPercent = "%"
	UnitLux     = "lx"
	UnitKelvin  = "K"

	IconLightbulb   = "mdi:lightbulb"
	IconThermometer = "mdi:thermometer"

	DeviceClassIlluminance = "illuminance"

	StateClassMeasurement     = "measurement"
	StateClassTotal           = "total"
	StateClassTotalIncreasing = "total_increasing"
)

// Options are the fixed presentation properties of a sensor output
type Options struct {
	Unit             string
	Icon             string
	AccuracyDecimals int
	DeviceClass      string
	StateClass       string
}

// Schema builds sensor sub-schema. Presentation fields are fixed to opts; only generic
// sensor fields (name, filters...) are user settable.
func Schema(opts Options) *schema.Schema {
	return schema.New(
		schema.GenerateID(Sensor),
		schema.Optional("name", schema.String),
		schema.Optional("internal", schema.Boolean),
		schema.OptionalDefault("disabled_by_default", false, schema.Boolean),
		schema.OptionalDefault("force_update", false, schema.Boolean),
		schema.Optional("expire_after", schema.PositiveTimePeriod(true)),
		schema.Optional("filters", schema.List(validateFilter)),
		schema.Fixed("unit_of_measurement", opts.Unit),
		schema.Fixed("icon", opts.Icon),
		schema.Fixed("accuracy_decimals", opts.AccuracyDecimals),
		schema.Fixed("device_class", opts.DeviceClass),
		schema.Fixed("state_class", opts.StateClass),
	)
}

// Config is typed view of validated sensor config
type Config struct {
	ID                *codegen.ID
	Name              string
	Internal          *bool
	DisabledByDefault bool
	ForceUpdate       bool
	ExpireAfter       *schema.TimePeriod
	Filters           []FilterConfig
	Options
}

func FromConfig(cfg *schema.Config) (*Config, error) {
	v, _ := cfg.Get("id")
	id, ok := v.(*codegen.ID)
	if !ok {
		return nil, fmt.Errorf("sensor id missing")
	}
	c := &Config{
		ID:                id,
		Name:              cfg.Str("name"),
		DisabledByDefault: cfg.Bool("disabled_by_default"),
		ForceUpdate:       cfg.Bool("force_update"),
		Options: Options{
			Unit:             cfg.Str("unit_of_measurement"),
			Icon:             cfg.Str("icon"),
			AccuracyDecimals: cfg.Int("accuracy_decimals"),
			DeviceClass:      cfg.Str("device_class"),
			StateClass:       cfg.Str("state_class"),
		},
	}
	if cfg.Has("internal") {
		b := cfg.Bool("internal")
		c.Internal = &b
	}
	if v, ok := cfg.Get("expire_after"); ok {
		tp := v.(schema.TimePeriod)
		c.ExpireAfter = &tp
	}
	if v, ok := cfg.Get("filters"); ok {
		for _, f := range v.([]any) {
			c.Filters = append(c.Filters, f.(FilterConfig))
		}
	}
	return c, nil
}

// IsInternal reports whether sensor is hidden from frontends; unnamed sensors always are
func (c *Config) IsInternal() bool {
	if c.Internal != nil {
		return *c.Internal
	}
	return c.Name == ""
}

var objectIDRe = regexp.MustCompile(`[^a-z0-9_-]`)

// ObjectID is name-derived identifier used in MQTT topics and entity ids
func (c *Config) ObjectID() string {
	return objectIDRe.ReplaceAllString(strings.ReplaceAll(strings.ToLower(c.Name), " ", "_"), "")
}

// New allocates the sensor output and applies its setters, returning the variable to bind
func New(p *codegen.Program, c *Config) (*codegen.ID, error) {
	v, err := p.NewPvariable(c.ID, nil)
	if err != nil {
		return nil, err
	}
	p.Call(codegen.App, "register_sensor", v)
	if c.Name != "" {
		p.Call(v, "set_name", codegen.StringLiteral(c.Name))
		p.Call(v, "set_object_id", codegen.StringLiteral(c.ObjectID()))
	}
	p.Call(v, "set_disabled_by_default", codegen.BoolLiteral(c.DisabledByDefault))
	if c.IsInternal() {
		p.Call(v, "set_internal", codegen.BoolLiteral(true))
	}
	if c.Icon != "" {
		p.Call(v, "set_icon", codegen.StringLiteral(c.Icon))
	}
	if c.DeviceClass != "" {
		p.Call(v, "set_device_class", codegen.StringLiteral(c.DeviceClass))
	}
	if c.StateClass != "" {
		p.Call(v, "set_state_class", stateClassEnum(c.StateClass))
	}
	if c.Unit != "" {
		p.Call(v, "set_unit_of_measurement", codegen.StringLiteral(c.Unit))
	}
	p.Call(v, "set_accuracy_decimals", codegen.IntLiteral(c.AccuracyDecimals))
	p.Call(v, "set_force_update", codegen.BoolLiteral(c.ForceUpdate))
	if c.ExpireAfter != nil {
		p.Call(v, "set_expire_after", codegen.Uint32Literal(c.ExpireAfter.Milliseconds()))
	}
	if len(c.Filters) > 0 {
		filters := make(codegen.ArrayInitializer, len(c.Filters))
		for i, f := range c.Filters {
			filters[i] = f.Expression()
		}
		p.Call(v, "set_filters", filters)
	}
	p.AddInclude(`"esphome/components/sensor/sensor.h"`)
	return v, nil
}

var stateClass = ns.Enum("StateClass")

func stateClassEnum(s string) codegen.Expression {
	return stateClass.Value("STATE_CLASS_" + strings.ToUpper(s))
}

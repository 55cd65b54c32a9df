package tcs34725

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/component"
	"github.com/XANi/esphome-tcs34725/i2c"
	"github.com/XANi/esphome-tcs34725/pins"
	"github.com/XANi/esphome-tcs34725/schema"
	"github.com/XANi/esphome-tcs34725/sensor"
)

func integrationTimeNames() []string {
	out := make([]string, len(IntegrationTimes))
	for i, t := range IntegrationTimes {
		out[i] = t.Name
	}
	return out
}

func gainNames() []string {
	out := make([]string, len(Gains))
	for i, g := range Gains {
		out[i] = g.Name
	}
	return out
}

// interruptSchema keeps both levels required even when interrupt_pin is not set
var interruptSchema = schema.New(
	schema.Optional(ConfInterruptPin, pins.InputPullupPin),
	schema.Required(ConfHighLevel, schema.Int),
	schema.Required(ConfLowLevel, schema.Int),
)

// Schema is the full `sensor: - platform: tcs34725` schema
func Schema() *schema.Schema {
	base := schema.New(schema.GenerateID(ComponentClass))
	for _, ch := range channels {
		base = base.ExtendFields(schema.Optional(ch.key, sensor.Schema(ch.opts).Validator()))
	}
	base = base.ExtendFields(
		schema.OptionalDefault(ConfIntegrationTime, "2.4ms", schema.Enum(schema.Lower, integrationTimeNames()...)),
		schema.OptionalDefault(ConfGain, "1X", schema.Enum(schema.Upper, gainNames()...)),
		schema.OptionalDefault(ConfGlassAttenuationFactor, 1.0, schema.FloatMin(1.0)),
	)
	return base.
		Extend(component.PollingSchema(DefaultUpdateInterval)).
		Extend(i2c.DeviceSchema(DefaultAddress)).
		ExtendFields(schema.Optional(ConfLEDPin, pins.OutputPin)).
		ExtendFields(schema.OptionalDefault(ConfLEDStartEnabled, true, schema.Boolean)).
		Extend(interruptSchema)
}

// Config is typed view of validated configuration. Absent optional outputs and pins are nil.
type Config struct {
	ID                     *codegen.ID
	Component              component.Options
	Device                 i2c.DeviceConfig
	IntegrationTime        IntegrationTime
	Gain                   Gain
	GlassAttenuationFactor float64

	RedChannel       *sensor.Config
	GreenChannel     *sensor.Config
	BlueChannel      *sensor.Config
	ClearChannel     *sensor.Config
	Illuminance      *sensor.Config
	ColorTemperature *sensor.Config

	LEDPin          *pins.Pin
	LEDStartEnabled bool
	InterruptPin    *pins.Pin
	HighLevel       int
	LowLevel        int
}

// Output returns sensor bound under config key, nil if not configured
func (c *Config) Output(key string) *sensor.Config {
	switch key {
	case ConfRedChannel:
		return c.RedChannel
	case ConfGreenChannel:
		return c.GreenChannel
	case ConfBlueChannel:
		return c.BlueChannel
	case ConfClearChannel:
		return c.ClearChannel
	case ConfIlluminance:
		return c.Illuminance
	case ConfColorTemperature:
		return c.ColorTemperature
	}
	return nil
}

// Outputs returns configured sensors in emission order
func (c *Config) Outputs() []*sensor.Config {
	var out []*sensor.Config
	for _, ch := range channels {
		if s := c.Output(ch.key); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func FromConfig(cfg *schema.Config) (*Config, error) {
	v, _ := cfg.Get("id")
	id, ok := v.(*codegen.ID)
	if !ok {
		return nil, fmt.Errorf("id missing")
	}
	c := &Config{
		ID:                     id,
		GlassAttenuationFactor: cfg.Float(ConfGlassAttenuationFactor),
		LEDStartEnabled:        cfg.Bool(ConfLEDStartEnabled),
		HighLevel:              cfg.Int(ConfHighLevel),
		LowLevel:               cfg.Int(ConfLowLevel),
	}
	var err error
	if c.Component, err = component.FromConfig("tcs34725.sensor", cfg); err != nil {
		return nil, err
	}
	if c.Device, err = i2c.DeviceFromConfig(cfg); err != nil {
		return nil, err
	}
	if c.IntegrationTime, ok = LookupIntegrationTime(cfg.Str(ConfIntegrationTime)); !ok {
		return nil, fmt.Errorf("unknown integration time %q", cfg.Str(ConfIntegrationTime))
	}
	if c.Gain, ok = LookupGain(cfg.Str(ConfGain)); !ok {
		return nil, fmt.Errorf("unknown gain %q", cfg.Str(ConfGain))
	}
	outputs := map[string]**sensor.Config{
		ConfRedChannel:       &c.RedChannel,
		ConfGreenChannel:     &c.GreenChannel,
		ConfBlueChannel:      &c.BlueChannel,
		ConfClearChannel:     &c.ClearChannel,
		ConfIlluminance:      &c.Illuminance,
		ConfColorTemperature: &c.ColorTemperature,
	}
	for key, dst := range outputs {
		sub := cfg.Sub(key)
		if sub == nil {
			continue
		}
		if *dst, err = sensor.FromConfig(sub); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	if v, ok := cfg.Get(ConfLEDPin); ok {
		c.LEDPin = v.(*pins.Pin)
	}
	if v, ok := cfg.Get(ConfInterruptPin); ok {
		c.InterruptPin = v.(*pins.Pin)
	}
	return c, nil
}

// ToCode emits driver construction followed by setter calls. Order is fixed, later setters
// only rely on the driver variable existing.
func ToCode(p *codegen.Program, c *Config) error {
	v, err := p.NewPvariable(c.ID, nil)
	if err != nil {
		return err
	}
	component.Register(p, v, c.Component)
	if err := i2c.RegisterDevice(p, v, c.Device); err != nil {
		return err
	}
	p.Call(v, "set_integration_time", c.IntegrationTime.Expression())
	p.Call(v, "set_gain", c.Gain.Expression())
	p.Call(v, "set_glass_attenuation_factor", codegen.FloatLiteral(c.GlassAttenuationFactor))
	for _, ch := range channels {
		s := c.Output(ch.key)
		if s == nil {
			continue
		}
		sens, err := sensor.New(p, s)
		if err != nil {
			return fmt.Errorf("%s: %w", ch.key, err)
		}
		p.Call(v, ch.setter, sens)
	}
	if c.LEDPin != nil {
		pin, err := pins.Expression(p, c.LEDPin)
		if err != nil {
			return fmt.Errorf("%s: %w", ConfLEDPin, err)
		}
		p.Call(v, "set_led_pin", pin)
	}
	p.Call(v, "set_led_start_enabled", codegen.BoolLiteral(c.LEDStartEnabled))
	if c.InterruptPin != nil {
		pin, err := pins.Expression(p, c.InterruptPin)
		if err != nil {
			return fmt.Errorf("%s: %w", ConfInterruptPin, err)
		}
		p.Call(v, "set_interrupt_pin", pin)
	}
	// levels are always required, thresholds go out with or without interrupt_pin
	p.Call(v, "set_high_threshold", codegen.IntLiteral(c.HighLevel))
	p.Call(v, "set_low_threshold", codegen.IntLiteral(c.LowLevel))
	p.AddInclude(`"esphome/components/tcs34725/tcs34725.h"`)
	return nil
}

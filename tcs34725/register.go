package tcs34725

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/automation"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/i2c"
	"github.com/XANi/esphome-tcs34725/registry"
	"github.com/XANi/esphome-tcs34725/schema"
)

// LEDActionSchema is shared by both LED actions
var LEDActionSchema = automation.MaybeSimpleID(schema.New(
	schema.Required("id", schema.UseID(ComponentClass)),
))

func ledActionToCode(p *codegen.Program, cfg *schema.Config, actx registry.ActionContext) (codegen.Expression, error) {
	v, _ := cfg.Get("id")
	ref, ok := v.(*codegen.ID)
	if !ok {
		return nil, fmt.Errorf("id missing")
	}
	parent, err := p.GetVariable(ref)
	if err != nil {
		return nil, err
	}
	action, err := p.NewPvariable(actx.ID, actx.TemplateArgs, parent)
	if err != nil {
		return nil, err
	}
	return action, nil
}

// Register adds the sensor platform and its LED actions to the registry
func Register(reg *registry.Registry) {
	reg.RegisterComponent(&registry.Component{
		Domain:       "sensor",
		Platform:     Platform,
		Dependencies: []string{i2c.Domain},
		Schema: func(*schema.Context) *schema.Schema {
			return Schema()
		},
		ToCode: func(p *codegen.Program, cfg *schema.Config) error {
			c, err := FromConfig(cfg)
			if err != nil {
				return err
			}
			return ToCode(p, c)
		},
	})
	reg.RegisterAction(&registry.Action{
		Name:   ActionLEDOn,
		Class:  LEDOnAction,
		Schema: LEDActionSchema,
		ToCode: ledActionToCode,
	})
	reg.RegisterAction(&registry.Action{
		Name:   ActionLEDOff,
		Class:  LEDOffAction,
		Schema: LEDActionSchema,
		ToCode: ledActionToCode,
	})
}

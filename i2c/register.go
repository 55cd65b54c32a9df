package i2c

import (
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/registry"
	"github.com/XANi/esphome-tcs34725/schema"
)

// BusPriority makes buses emitted before devices referencing them
const BusPriority = 100

func Register(reg *registry.Registry) {
	reg.RegisterComponent(&registry.Component{
		Domain:    Domain,
		MultiConf: true,
		Priority:  BusPriority,
		Schema: func(ctx *schema.Context) *schema.Schema {
			return BusSchema(ctx.Platform)
		},
		ToCode: func(p *codegen.Program, cfg *schema.Config) error {
			b, err := BusFromConfig(cfg)
			if err != nil {
				return err
			}
			return BusToCode(p, b)
		},
	})
}

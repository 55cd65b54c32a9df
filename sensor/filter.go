package sensor

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/schema"
	"sort"
	"strings"
)

// FilterConfig is one validated entry of `filters:`
type FilterConfig struct {
	Name  string
	Class *codegen.Class
	Args  []codegen.Expression
}

func (f FilterConfig) Expression() codegen.Expression {
	return codegen.New{Type: f.Class, Args: f.Args}
}

type filterDef struct {
	class    *codegen.Class
	validate schema.Validator
	args     func(v any) []codegen.Expression
}

func floatArg(v any) []codegen.Expression {
	return []codegen.Expression{codegen.FloatLiteral(v.(float64))}
}

func msArg(v any) []codegen.Expression {
	return []codegen.Expression{codegen.Uint32Literal(v.(schema.TimePeriod).Milliseconds())}
}

func windowSchema(size, every int) *schema.Schema {
	return schema.New(
		schema.OptionalDefault("window_size", size, schema.IntRange(1, 65535)),
		schema.OptionalDefault("send_every", every, schema.IntRange(1, 65535)),
		schema.OptionalDefault("send_first_at", 1, schema.IntRange(1, 65535)),
	)
}

func windowArgs(v any) []codegen.Expression {
	c := v.(*schema.Config)
	return []codegen.Expression{
		codegen.IntLiteral(c.Int("window_size")),
		codegen.IntLiteral(c.Int("send_every")),
		codegen.IntLiteral(c.Int("send_first_at")),
	}
}

var clampSchema = schema.New(
	schema.Optional("min_value", schema.Float),
	schema.Optional("max_value", schema.Float),
)

var emaSchema = schema.New(
	schema.OptionalDefault("alpha", 0.1, schema.Float),
	schema.OptionalDefault("send_every", 15, schema.IntRange(1, 65535)),
	schema.OptionalDefault("send_first_at", 1, schema.IntRange(1, 65535)),
)

var filters = map[string]filterDef{
	"offset":      {class: ns.Class("OffsetFilter", Filter), validate: schema.Float, args: floatArg},
	"multiply":    {class: ns.Class("MultiplyFilter", Filter), validate: schema.Float, args: floatArg},
	"filter_out":  {class: ns.Class("FilterOutValueFilter", Filter), validate: schema.Float, args: floatArg},
	"delta":       {class: ns.Class("DeltaFilter", Filter), validate: schema.FloatMin(0), args: floatArg},
	"throttle":    {class: ns.Class("ThrottleFilter", Filter), validate: schema.PositiveTimePeriod(false), args: msArg},
	"heartbeat":   {class: ns.Class("HeartbeatFilter", Filter), validate: schema.PositiveTimePeriod(false), args: msArg},
	"debounce":    {class: ns.Class("DebounceFilter", Filter), validate: schema.PositiveTimePeriod(false), args: msArg},
	"median":      {class: ns.Class("MedianFilter", Filter), validate: windowSchema(5, 5).Validator(), args: windowArgs},
	"min":         {class: ns.Class("MinFilter", Filter), validate: windowSchema(5, 5).Validator(), args: windowArgs},
	"max":         {class: ns.Class("MaxFilter", Filter), validate: windowSchema(5, 5).Validator(), args: windowArgs},
	"quantile":    {class: ns.Class("QuantileFilter", Filter), validate: windowSchema(5, 5).Validator(), args: windowArgs},
	"sliding_window_moving_average": {
		class:    ns.Class("SlidingWindowMovingAverageFilter", Filter),
		validate: windowSchema(15, 15).Validator(),
		args:     windowArgs,
	},
	"exponential_moving_average": {
		class:    ns.Class("ExponentialMovingAverageFilter", Filter),
		validate: emaSchema.Validator(),
		args: func(v any) []codegen.Expression {
			c := v.(*schema.Config)
			return []codegen.Expression{
				codegen.FloatLiteral(c.Float("alpha")),
				codegen.IntLiteral(c.Int("send_every")),
				codegen.IntLiteral(c.Int("send_first_at")),
			}
		},
	},
	"clamp": {
		class:    ns.Class("ClampFilter", Filter),
		validate: clampSchema.Validator(),
		args: func(v any) []codegen.Expression {
			c := v.(*schema.Config)
			lo, hi := codegen.Expression(codegen.RawExpression("NAN")), codegen.Expression(codegen.RawExpression("NAN"))
			if c.Has("min_value") {
				lo = codegen.FloatLiteral(c.Float("min_value"))
			}
			if c.Has("max_value") {
				hi = codegen.FloatLiteral(c.Float("max_value"))
			}
			return []codegen.Expression{lo, hi}
		},
	},
}

func filterNames() []string {
	out := make([]string, 0, len(filters))
	for k := range filters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func validateFilter(ctx *schema.Context, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return nil, schema.Errorf("each filter must be a mapping with exactly one key")
	}
	for name, arg := range m {
		def, ok := filters[name]
		if !ok {
			return nil, schema.Errorf("unknown filter '%s', valid filters are %s", name, strings.Join(filterNames(), ", "))
		}
		out, err := def.validate(ctx, arg)
		if err != nil {
			return nil, schema.Prefix(err, name)
		}
		return FilterConfig{Name: name, Class: def.class, Args: def.args(out)}, nil
	}
	return nil, fmt.Errorf("unreachable")
}

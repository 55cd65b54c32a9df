package pins

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/schema"
	"sort"
	"strconv"
	"strings"
)

var gpioNS = codegen.ESPHomeNS.Namespace("gpio")

var (
	GPIOPin         = codegen.ESPHomeNS.Class("GPIOPin")
	InternalGPIOPin = codegen.ESPHomeNS.Class("InternalGPIOPin", GPIOPin)
)

type Mode struct {
	Input     bool
	Output    bool
	Pullup    bool
	Pulldown  bool
	OpenDrain bool
}

// Flags renders mode as gpio::Flags expression
func (m Mode) Flags() codegen.Expression {
	var f []string
	add := func(set bool, name string) {
		if set {
			f = append(f, gpioNS.Path()+"::Flags::"+name)
		}
	}
	add(m.Input, "FLAG_INPUT")
	add(m.Output, "FLAG_OUTPUT")
	add(m.OpenDrain, "FLAG_OPEN_DRAIN")
	add(m.Pullup, "FLAG_PULLUP")
	add(m.Pulldown, "FLAG_PULLDOWN")
	if len(f) == 0 {
		return codegen.RawExpression(gpioNS.Path() + "::Flags::FLAG_NONE")
	}
	return codegen.RawExpression(strings.Join(f, " | "))
}

type Pin struct {
	// ID is nil for plain pin numbers (bus pins), which are passed to drivers as integers
	ID             *codegen.ID
	Platform       string
	Number         int
	Inverted       bool
	Mode           Mode
	AllowOtherUses bool
}

func (p *Pin) String() string {
	return "GPIO" + strconv.Itoa(p.Number)
}

var modeNames = map[string]Mode{
	"INPUT":             {Input: true},
	"OUTPUT":            {Output: true},
	"INPUT_PULLUP":      {Input: true, Pullup: true},
	"INPUT_PULLDOWN":    {Input: true, Pulldown: true},
	"OUTPUT_OPEN_DRAIN": {Output: true, OpenDrain: true},
}

var modeSchema = schema.New(
	schema.OptionalDefault("input", false, schema.Boolean),
	schema.OptionalDefault("output", false, schema.Boolean),
	schema.OptionalDefault("open_drain", false, schema.Boolean),
	schema.OptionalDefault("pullup", false, schema.Boolean),
	schema.OptionalDefault("pulldown", false, schema.Boolean),
)

func validateMode(ctx *schema.Context, v any) (any, error) {
	if s, ok := v.(string); ok {
		m, ok := modeNames[strings.ToUpper(s)]
		if !ok {
			return nil, schema.Errorf("unknown pin mode '%s'", s)
		}
		return m, nil
	}
	cfg, err := modeSchema.Validate(ctx, v)
	if err != nil {
		return nil, err
	}
	m := Mode{
		Input:     cfg.Bool("input"),
		Output:    cfg.Bool("output"),
		OpenDrain: cfg.Bool("open_drain"),
		Pullup:    cfg.Bool("pullup"),
		Pulldown:  cfg.Bool("pulldown"),
	}
	if m.OpenDrain && !m.Output {
		return nil, schema.Errorf("open_drain mode requires output mode")
	}
	if m.Pullup && m.Pulldown {
		return nil, schema.Errorf("pullup and pulldown cannot be enabled at the same time")
	}
	return m, nil
}

func parseNumber(p *Platform, v any) (int, error) {
	if s, ok := v.(string); ok {
		s = strings.ToUpper(strings.TrimSpace(s))
		if n, ok := p.Aliases[s]; ok {
			return n, nil
		}
		s = strings.TrimPrefix(s, "GPIO")
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, schema.Errorf("invalid pin number: %s", v)
		}
		return n, nil
	}
	out, err := schema.Int(nil, v)
	if err != nil {
		return 0, err
	}
	return out.(int), nil
}

func internalPin(defaultMode Mode, check func(Mode) error) schema.Validator {
	return func(ctx *schema.Context, v any) (any, error) {
		p, err := Lookup(ctx.Platform)
		if err != nil {
			return nil, err
		}
		m, ok := v.(map[string]any)
		if !ok {
			m = map[string]any{"number": v}
		}
		s := schema.New(
			schema.OptionalDefault("id", nil, schema.DeclareID(p.Class)),
			schema.Required("number", func(_ *schema.Context, v any) (any, error) { return parseNumber(p, v) }),
			schema.OptionalDefault("inverted", false, schema.Boolean),
			schema.Optional("mode", validateMode),
			schema.OptionalDefault("allow_other_uses", false, schema.Boolean),
		)
		cfg, err := s.Validate(ctx, m)
		if err != nil {
			return nil, err
		}
		id, _ := cfg.Get("id")
		pin := &Pin{
			ID:             id.(*codegen.ID),
			Platform:       p.Name,
			Number:         cfg.Int("number"),
			Inverted:       cfg.Bool("inverted"),
			Mode:           defaultMode,
			AllowOtherUses: cfg.Bool("allow_other_uses"),
		}
		if mode, ok := cfg.Get("mode"); ok {
			pin.Mode = mode.(Mode)
		}
		if err := check(pin.Mode); err != nil {
			return nil, schema.Prefix(err, "mode")
		}
		if err := p.Validate(pin.Number, pin.Mode); err != nil {
			return nil, schema.Prefix(err, "number")
		}
		return pin, nil
	}
}

// OutputPin is internal GPIO usable as digital output
var OutputPin = internalPin(Mode{Output: true}, func(m Mode) error {
	if !m.Output {
		return schema.Errorf("this pin must be configured as output")
	}
	return nil
})

// InputPullupPin is internal GPIO input, with pull-up enabled unless mode says otherwise
var InputPullupPin = internalPin(Mode{Input: true, Pullup: true}, func(m Mode) error {
	if !m.Input {
		return schema.Errorf("this pin must be configured as input")
	}
	return nil
})

// Number validates bare internal pin number, used by buses that configure pins themselves
func Number(ctx *schema.Context, v any) (any, error) {
	p, err := Lookup(ctx.Platform)
	if err != nil {
		return nil, err
	}
	n, err := parseNumber(p, v)
	if err != nil {
		return nil, err
	}
	mode := Mode{Input: true, Output: true, OpenDrain: true}
	if err := p.Validate(n, mode); err != nil {
		return nil, err
	}
	return &Pin{Platform: p.Name, Number: n, Mode: mode}, nil
}

// Expression allocates the pin object and returns variable referencing it
func Expression(prog *codegen.Program, pin *Pin) (codegen.Expression, error) {
	if pin.ID == nil {
		return codegen.IntLiteral(pin.Number), nil
	}
	p, err := Lookup(pin.Platform)
	if err != nil {
		return nil, err
	}
	v, err := prog.NewPvariable(pin.ID, nil)
	if err != nil {
		return nil, err
	}
	prog.Call(v, "set_pin", p.PinExpression(pin.Number))
	prog.Call(v, "set_inverted", codegen.BoolLiteral(pin.Inverted))
	prog.Call(v, "set_flags", pin.Mode.Flags())
	return v, nil
}

// Use is one pin occurrence found in configuration
type Use struct {
	Path string
	Pin  *Pin
}

// CheckConflicts fails when the same pin is used in more than one place
// unless every use sets allow_other_uses
func CheckConflicts(uses []Use) error {
	byNumber := map[int][]Use{}
	for _, u := range uses {
		byNumber[u.Pin.Number] = append(byNumber[u.Pin.Number], u)
	}
	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		u := byNumber[n]
		if len(u) < 2 {
			continue
		}
		shared := true
		paths := make([]string, len(u))
		for i, e := range u {
			paths[i] = e.Path
			shared = shared && e.Pin.AllowOtherUses
		}
		if !shared {
			return fmt.Errorf("pin %s is used in multiple places: %s. Set allow_other_uses on every use if that is intended", u[0].Pin, strings.Join(paths, ", "))
		}
	}
	return nil
}

package schema

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"go.uber.org/multierr"
	"math"
	"strconv"
	"strings"
)

func String(_ *Context, v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int, int64, uint64, float64:
		return fmt.Sprint(t), nil
	default:
		return nil, Errorf("string value expected, got %s", describe(v))
	}
}

func Boolean(_ *Context, v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(t) {
		case "true", "yes", "on", "enable":
			return true, nil
		case "false", "no", "off", "disable":
			return false, nil
		}
	}
	return nil, Errorf("expected boolean value, but cannot convert %v to a boolean. Please use 'true' or 'false'", v)
}

func Int(_ *Context, v any) (any, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, Errorf("integer %d out of range", t)
		}
		return int(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return nil, Errorf("this option only accepts integers with no fractional part, got %v", t)
		}
		// 2^63 itself is representable as float64 but not as int64
		if t < math.MinInt64 || t >= math.MaxInt64 {
			return nil, Errorf("integer %v out of range", t)
		}
		return int(t), nil
	case string:
		base := 10
		s := strings.TrimSpace(t)
		if strings.HasPrefix(strings.ToLower(s), "0x") {
			base = 16
			s = s[2:]
		}
		i, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return nil, Errorf("expected integer, but cannot convert %q to an integer", t)
		}
		return int(i), nil
	default:
		return nil, Errorf("expected integer, got %s", describe(v))
	}
}

func IntRange(min, max int) Validator {
	return func(ctx *Context, v any) (any, error) {
		out, err := Int(ctx, v)
		if err != nil {
			return nil, err
		}
		i := out.(int)
		if i < min || i > max {
			return nil, Errorf("value %d must be in range %d to %d", i, min, max)
		}
		return i, nil
	}
}

func Float(_ *Context, v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, Errorf("expected float, but cannot convert %q to a number", t)
		}
		return f, nil
	default:
		return nil, Errorf("expected float, got %s", describe(v))
	}
}

// FloatMin accepts any number not smaller than min
func FloatMin(min float64) Validator {
	return func(ctx *Context, v any) (any, error) {
		out, err := Float(ctx, v)
		if err != nil {
			return nil, err
		}
		f := out.(float64)
		if math.IsNaN(f) || !(f >= min) {
			return nil, Errorf("value must at least be %v, got %v", min, f)
		}
		return f, nil
	}
}

type EnumCase int

const (
	CaseSensitive EnumCase = iota
	Lower
	Upper
)

// Enum accepts one of options (after case normalization) and returns the matching option
func Enum(c EnumCase, options ...string) Validator {
	return func(ctx *Context, v any) (any, error) {
		out, err := String(ctx, v)
		if err != nil {
			return nil, err
		}
		s := strings.TrimSpace(out.(string))
		switch c {
		case Lower:
			s = strings.ToLower(s)
		case Upper:
			s = strings.ToUpper(s)
		}
		for _, o := range options {
			if o == s {
				return o, nil
			}
		}
		quoted := make([]string, len(options))
		for i, o := range options {
			quoted[i] = "'" + o + "'"
		}
		return nil, Errorf("unknown value '%v', valid options are %s", v, strings.Join(quoted, ", "))
	}
}

// DeclareID validates declaration. Empty value is generated later.
func DeclareID(class *codegen.Class) Validator {
	return func(ctx *Context, v any) (any, error) {
		if v == nil {
			return &codegen.ID{Type: class, IsDeclaration: true}, nil
		}
		s, err := String(ctx, v)
		if err != nil {
			return nil, err
		}
		if err := codegen.ValidateIDName(s.(string)); err != nil {
			return nil, Errorf("%s", err)
		}
		return &codegen.ID{Name: s.(string), Type: class, IsDeclaration: true, IsManual: true}, nil
	}
}

// UseID validates reference to declaration of class. Empty value is resolved to the only candidate.
func UseID(class *codegen.Class) Validator {
	return func(ctx *Context, v any) (any, error) {
		if v == nil {
			return &codegen.ID{Type: class}, nil
		}
		s, err := String(ctx, v)
		if err != nil {
			return nil, err
		}
		if err := codegen.ValidateIDName(s.(string)); err != nil {
			return nil, Errorf("%s", err)
		}
		return &codegen.ID{Name: s.(string), Type: class, IsManual: true}, nil
	}
}

// GenerateID is the `id` field of component which gets generated name when omitted
func GenerateID(class *codegen.Class) Field {
	return OptionalDefault("id", nil, DeclareID(class))
}

// List accepts list of values or a single value which is treated as list with one element
func List(v Validator) Validator {
	return func(ctx *Context, raw any) (any, error) {
		var items []any
		switch t := raw.(type) {
		case nil:
			return []any{}, nil
		case []any:
			items = t
		default:
			items = []any{t}
		}
		out := make([]any, 0, len(items))
		var errs error
		for i, item := range items {
			o, err := v(ctx, item)
			if err != nil {
				errs = multierr.Append(errs, Prefix(err, strconv.Itoa(i)))
				continue
			}
			out = append(out, o)
		}
		if errs != nil {
			return nil, errs
		}
		return out, nil
	}
}

// All runs validators in sequence, each receiving output of previous one
func All(vs ...Validator) Validator {
	return func(ctx *Context, v any) (any, error) {
		var err error
		for _, f := range vs {
			v, err = f(ctx, v)
			if err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

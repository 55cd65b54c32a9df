package schema

import (
	"fmt"
	"go.uber.org/multierr"
	"sort"
)

// Context carries validation-wide settings that some validators depend on
type Context struct {
	// Platform is the target chip family (esp32, esp8266, rp2040)
	Platform string
}

type Validator func(ctx *Context, v any) (any, error)

type Field struct {
	Key        string
	Required   bool
	HasDefault bool
	// Default is raw value, passed through Validate like user supplied one
	Default any
	// Fixed fields always carry Default and cannot be set from configuration
	Fixed    bool
	Validate Validator
}

func Required(key string, v Validator) Field {
	return Field{Key: key, Required: true, Validate: v}
}

func Optional(key string, v Validator) Field {
	return Field{Key: key, Validate: v}
}

func OptionalDefault(key string, def any, v Validator) Field {
	return Field{Key: key, HasDefault: true, Default: def, Validate: v}
}

func Fixed(key string, value any) Field {
	return Field{Key: key, HasDefault: true, Default: value, Fixed: true}
}

// Schema is ordered set of fields. Schemas are immutable; Extend returns new one.
type Schema struct {
	fields []Field
}

func New(fields ...Field) *Schema {
	return (&Schema{}).Extend(&Schema{fields: fields})
}

// Extend merges fields of others into copy of s. Later field wins on key collision and
// takes the position of the field it replaces.
func (s *Schema) Extend(others ...*Schema) *Schema {
	out := &Schema{fields: make([]Field, len(s.fields))}
	copy(out.fields, s.fields)
	for _, o := range others {
		for _, f := range o.fields {
			replaced := false
			for i := range out.fields {
				if out.fields[i].Key == f.Key {
					out.fields[i] = f
					replaced = true
					break
				}
			}
			if !replaced {
				out.fields = append(out.fields, f)
			}
		}
	}
	return out
}

// ExtendFields is shorthand for Extend(New(fields...))
func (s *Schema) ExtendFields(fields ...Field) *Schema {
	return s.Extend(&Schema{fields: fields})
}

func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Field(key string) (Field, bool) {
	for _, f := range s.fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks raw mapping against the schema. All failing keys are reported,
// each with the first failure found for it.
func (s *Schema) Validate(ctx *Context, raw any) (*Config, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	var m map[string]any
	switch t := raw.(type) {
	case nil:
		m = map[string]any{}
	case map[string]any:
		m = t
	default:
		return nil, Errorf("expected a dictionary, got %s", describe(raw))
	}
	var errs error
	var extra []string
	for k := range m {
		if _, ok := s.Field(k); !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		errs = multierr.Append(errs, &Invalid{Path: []string{k}, Message: "extra keys not allowed"})
	}
	cfg := newConfig()
	for _, f := range s.fields {
		v, present := m[f.Key]
		if f.Fixed {
			if present {
				msg := fmt.Sprintf("cannot be configured here, it is always %v", f.Default)
				if f.Default == "" {
					msg = "cannot be configured here"
				}
				errs = multierr.Append(errs, &Invalid{Path: []string{f.Key}, Message: msg})
				continue
			}
			cfg.set(f.Key, f.Default)
			continue
		}
		if !present {
			if f.Required {
				errs = multierr.Append(errs, &Invalid{Path: []string{f.Key}, Message: "required key not provided"})
				continue
			}
			if !f.HasDefault {
				continue
			}
			v = f.Default
		}
		if f.Validate == nil {
			cfg.set(f.Key, v)
			continue
		}
		out, err := f.Validate(ctx, v)
		if err != nil {
			errs = multierr.Append(errs, Prefix(err, f.Key))
			continue
		}
		cfg.set(f.Key, out)
	}
	if errs != nil {
		return nil, errs
	}
	return cfg, nil
}

// Validator returns the schema as nested validator
func (s *Schema) Validator() Validator {
	return func(ctx *Context, v any) (any, error) {
		cfg, err := s.Validate(ctx, v)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}
}

func describe(v any) string {
	switch v.(type) {
	case []any:
		return "a list"
	case map[string]any, *Config:
		return "a dictionary"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T %v", v, v)
	}
}

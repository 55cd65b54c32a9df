package schema

import (
	"fmt"
)

// Config is validated, defaulted mapping. It is never modified after validation.
type Config struct {
	keys   []string
	values map[string]any
}

func newConfig() *Config {
	return &Config{values: map[string]any{}}
}

func (c *Config) set(key string, v any) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = v
}

func (c *Config) Has(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c.values[key]
	return ok
}

func (c *Config) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Keys in the order of the schema fields
func (c *Config) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c *Config) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

func (c *Config) Str(key string) string {
	s, _ := c.values[key].(string)
	return s
}

func (c *Config) Bool(key string) bool {
	b, _ := c.values[key].(bool)
	return b
}

func (c *Config) Int(key string) int {
	i, _ := c.values[key].(int)
	return i
}

func (c *Config) Float(key string) float64 {
	f, _ := c.values[key].(float64)
	return f
}

// Sub returns nested config or nil when key is absent
func (c *Config) Sub(key string) *Config {
	s, _ := c.values[key].(*Config)
	return s
}

// Walk visits every value in the tree depth first, nested configs and lists included.
func (c *Config) Walk(fn func(path []string, v any)) {
	c.walk(nil, fn)
}

func (c *Config) walk(path []string, fn func(path []string, v any)) {
	if c == nil {
		return
	}
	for _, k := range c.keys {
		p := append(append([]string{}, path...), k)
		walkValue(p, c.values[k], fn)
	}
}

func walkValue(path []string, v any, fn func(path []string, v any)) {
	fn(path, v)
	switch t := v.(type) {
	case *Config:
		t.walk(path, fn)
	case []any:
		for i, e := range t {
			walkValue(append(append([]string{}, path...), fmt.Sprint(i)), e, fn)
		}
	}
}

// Map converts the config back to plain values, mostly for dumping
func (c *Config) Map() map[string]any {
	out := make(map[string]any, len(c.keys))
	for _, k := range c.keys {
		out[k] = plain(c.values[k])
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case *Config:
		return t.Map()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

package project

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"github.com/goccy/go-yaml"
)

// Section is one top level key of the configuration file
type Section struct {
	Key   string
	Value any
}

// Parse decodes YAML keeping order of top level sections. Nested mappings become map[string]any.
func Parse(data []byte) ([]Section, error) {
	var ms yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(data, &ms, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	out := make([]Section, 0, len(ms))
	seen := map[string]bool{}
	for _, item := range ms {
		key := fmt.Sprint(item.Key)
		if seen[key] {
			return nil, fmt.Errorf("duplicate top level key %q", key)
		}
		seen[key] = true
		out = append(out, Section{Key: key, Value: normalize(item.Value)})
	}
	return out, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(t))
		for _, item := range t {
			m[fmt.Sprint(item.Key)] = normalize(item.Value)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// Hash identifies configuration content in build history
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

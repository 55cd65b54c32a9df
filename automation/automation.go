package automation

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/component"
	"github.com/XANi/esphome-tcs34725/registry"
	"github.com/XANi/esphome-tcs34725/schema"
	"strings"
)

// MaybeSimpleID accepts either full mapping or bare id in place of {id: value}.
// Empty value becomes {id: null}, which resolves to the only instance of the type.
func MaybeSimpleID(s *schema.Schema) schema.Validator {
	return func(ctx *schema.Context, v any) (any, error) {
		if m, ok := v.(map[string]any); ok {
			return s.Validate(ctx, m)
		}
		return s.Validate(ctx, map[string]any{"id": v})
	}
}

// Actions validates list of actions: `- name: value` mappings or bare `- name`
func Actions(reg *registry.Registry) schema.Validator {
	return schema.List(func(ctx *schema.Context, v any) (any, error) {
		var name string
		var arg any
		switch t := v.(type) {
		case string:
			name = t
		case map[string]any:
			if len(t) != 1 {
				keys := make([]string, 0, len(t))
				for k := range t {
					keys = append(keys, k)
				}
				return nil, schema.Errorf("cannot have two actions in one item, key '%s' overrides the previous action. Did you forget to indent the block inside the action?", strings.Join(keys, "', '"))
			}
			for k, val := range t {
				name, arg = k, val
			}
		default:
			return nil, schema.Errorf("expected action, got %v", v)
		}
		a, ok := reg.Action(name)
		if !ok {
			return nil, schema.Errorf("unable to find action with the name '%s', available: %s", name, strings.Join(reg.Actions(), ", "))
		}
		cfg, err := a.Schema(ctx, arg)
		if err != nil {
			return nil, schema.Prefix(err, name)
		}
		return schema.New(
			schema.Fixed("action", name),
			schema.OptionalDefault("action_id", nil, schema.DeclareID(a.Class)),
			schema.Fixed("config", cfg),
		).Validate(ctx, nil)
	})
}

// BuildActions emits every action of validated list and returns their variables
func BuildActions(p *codegen.Program, reg *registry.Registry, actions []any, templateArgs codegen.TemplateArguments) ([]codegen.Expression, error) {
	out := make([]codegen.Expression, 0, len(actions))
	for i, item := range actions {
		c, ok := item.(*schema.Config)
		if !ok {
			return nil, fmt.Errorf("action %d: unexpected type %T", i, item)
		}
		a, ok := reg.Action(c.Str("action"))
		if !ok {
			return nil, fmt.Errorf("action %d: %s not registered", i, c.Str("action"))
		}
		v, _ := c.Get("action_id")
		id, _ := v.(*codegen.ID)
		expr, err := a.ToCode(p, c.Sub("config"), registry.ActionContext{ID: id, TemplateArgs: templateArgs})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Name, err)
		}
		out = append(out, expr)
	}
	return out, nil
}

// StartupSchema is schema of one `on_boot` automation
func StartupSchema(reg *registry.Registry) *schema.Schema {
	return schema.New(
		schema.OptionalDefault("trigger_id", nil, schema.DeclareID(codegen.StartupTrigger)),
		schema.OptionalDefault("automation_id", nil, schema.DeclareID(codegen.Automation)),
		schema.OptionalDefault("priority", 600.0, schema.Float),
		schema.Required("then", Actions(reg)),
	)
}

// Startup validates `on_boot`: single automation, list of automations, or bare action list
func Startup(reg *registry.Registry) schema.Validator {
	s := StartupSchema(reg)
	single := func(ctx *schema.Context, v any) (any, error) {
		if m, ok := v.(map[string]any); ok {
			if _, ok := m["then"]; ok {
				return s.Validate(ctx, m)
			}
		}
		return s.Validate(ctx, map[string]any{"then": v})
	}
	return func(ctx *schema.Context, v any) (any, error) {
		if l, ok := v.([]any); ok && isAutomationList(l) {
			return schema.List(single)(ctx, l)
		}
		return schema.List(single)(ctx, []any{v})
	}
}

func isAutomationList(l []any) bool {
	if len(l) == 0 {
		return false
	}
	for _, e := range l {
		m, ok := e.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := m["then"]; !ok {
			return false
		}
	}
	return true
}

// BuildStartup emits startup trigger, automation and its actions
func BuildStartup(p *codegen.Program, reg *registry.Registry, cfg *schema.Config) error {
	tid, _ := cfg.Get("trigger_id")
	aid, _ := cfg.Get("automation_id")
	trigger, err := p.NewPvariable(tid.(*codegen.ID), nil, codegen.FloatLiteral(cfg.Float("priority")))
	if err != nil {
		return err
	}
	component.Register(p, trigger, component.Options{})
	auto, err := p.NewPvariable(aid.(*codegen.ID), codegen.TemplateArguments{}, trigger)
	if err != nil {
		return err
	}
	then, _ := cfg.Get("then")
	actions, err := BuildActions(p, reg, then.([]any), codegen.TemplateArguments{})
	if err != nil {
		return err
	}
	p.Call(auto, "add_actions", codegen.ArrayInitializer(actions))
	p.AddInclude(`"esphome/core/automation.h"`)
	return nil
}

package registry

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/schema"
	"sort"
	"sync"
)

// Component describes a top level domain (`i2c`) or a platform of a domain (`sensor.tcs34725`).
type Component struct {
	// Domain is the top level config key the component lives under
	Domain string
	// Platform is set for `platform:` entries of a domain
	Platform     string
	Dependencies []string
	// MultiConf allows list of configs for top level domain
	MultiConf bool
	// Priority orders code emission, higher goes first (buses before devices)
	Priority float64
	Schema   func(ctx *schema.Context) *schema.Schema
	ToCode   func(p *codegen.Program, cfg *schema.Config) error
}

// Key is the registry key, `domain` or `domain.platform`
func (c *Component) Key() string {
	if c.Platform == "" {
		return c.Domain
	}
	return c.Domain + "." + c.Platform
}

// ActionContext is passed to action code generation
type ActionContext struct {
	ID           *codegen.ID
	TemplateArgs codegen.TemplateArguments
}

// Action is a named automation action
type Action struct {
	Name   string
	Class  *codegen.Class
	Schema schema.Validator
	ToCode func(p *codegen.Program, cfg *schema.Config, actx ActionContext) (codegen.Expression, error)
}

type Registry struct {
	mu         sync.RWMutex
	components map[string]*Component
	actions    map[string]*Action
}

func New() *Registry {
	return &Registry{
		components: map[string]*Component{},
		actions:    map[string]*Action{},
	}
}

// RegisterComponent panics on duplicate, registration happens once at startup
func (r *Registry) RegisterComponent(c *Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.components[c.Key()]; exists {
		panic(fmt.Sprintf("component already registered for %q", c.Key()))
	}
	r.components[c.Key()] = c
}

func (r *Registry) RegisterAction(a *Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[a.Name]; exists {
		panic(fmt.Sprintf("action already registered for %q", a.Name))
	}
	r.actions[a.Name] = a
}

func (r *Registry) Component(key string) (*Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[key]
	return c, ok
}

func (r *Registry) Action(name string) (*Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.components)
}

func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.actions)
}

// HasDomain reports whether any component lives under domain
func (r *Registry) HasDomain(domain string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.components {
		if c.Domain == domain {
			return true
		}
	}
	return false
}

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

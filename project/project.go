package project

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/automation"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/i2c"
	"github.com/XANi/esphome-tcs34725/pins"
	"github.com/XANi/esphome-tcs34725/registry"
	"github.com/XANi/esphome-tcs34725/schema"
	"github.com/XANi/esphome-tcs34725/sensor"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const CoreDomain = "esphome"

type Config struct {
	Registry *registry.Registry
	Logger   *zap.SugaredLogger
}

// Compiler turns configuration files into driver setup programs
type Compiler struct {
	reg *registry.Registry
	l   *zap.SugaredLogger
}

func New(cfg Config) (*Compiler, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Compiler{reg: cfg.Registry, l: cfg.Logger}, nil
}

// Entry is one validated component instance
type Entry struct {
	// Path locates entry in the file, like `sensor.0` or `i2c`
	Path      string
	Component *registry.Component
	Config    *schema.Config
}

type Project struct {
	Name     string
	Platform string
	Core     *schema.Config
	Entries  []Entry
	Scope    *codegen.Scope
}

var nameRe = regexp.MustCompile(`^[a-z0-9-]+$`)

func validateName(ctx *schema.Context, v any) (any, error) {
	out, err := schema.String(ctx, v)
	if err != nil {
		return nil, err
	}
	s := out.(string)
	if len(s) > 31 {
		return nil, schema.Errorf("name '%s' is too long, maximum length is 31 characters", s)
	}
	if !nameRe.MatchString(s) {
		return nil, schema.Errorf("name '%s' must consist only of lowercase letters, numbers and hyphens", s)
	}
	return s, nil
}

func (c *Compiler) coreSchema() *schema.Schema {
	return schema.New(
		schema.Required("name", validateName),
		schema.Optional("friendly_name", schema.String),
		schema.OptionalDefault("platform", pins.ESP32, schema.Enum(schema.Lower, pins.Platforms()...)),
		schema.Optional("board", schema.String),
		schema.Optional("comment", schema.String),
		schema.Optional("on_boot", automation.Startup(c.reg)),
	)
}

// Validate runs every validation step short of code emission
func (c *Compiler) Validate(data []byte) (*Project, error) {
	sections, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return c.ValidateSections(sections)
}

func (c *Compiler) ValidateSections(sections []Section) (*Project, error) {
	var raw any
	found := false
	for _, s := range sections {
		if s.Key == CoreDomain {
			raw, found = s.Value, true
		}
	}
	if !found {
		return nil, fmt.Errorf("'%s' section missing from configuration", CoreDomain)
	}
	ctx := &schema.Context{}
	core, err := c.coreSchema().Validate(ctx, raw)
	if err != nil {
		return nil, schema.Prefix(err, CoreDomain)
	}
	ctx.Platform = core.Str("platform")
	p := &Project{
		Name:     core.Str("name"),
		Platform: ctx.Platform,
		Core:     core,
		Scope:    codegen.NewScope(),
	}
	c.l.Debugf("validating %s (%s)", p.Name, p.Platform)

	var errs error
	for _, s := range sections {
		if s.Key == CoreDomain {
			continue
		}
		entries, err := c.validateSection(ctx, s)
		errs = multierr.Append(errs, err)
		p.Entries = append(p.Entries, entries...)
	}
	if errs != nil {
		return nil, errs
	}
	if err := c.checkDependencies(p); err != nil {
		return nil, err
	}
	if err := resolveIDs(p); err != nil {
		return nil, err
	}
	if err := checkResources(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Compiler) validateSection(ctx *schema.Context, s Section) ([]Entry, error) {
	if comp, ok := c.reg.Component(s.Key); ok {
		items := []any{s.Value}
		list, isList := s.Value.([]any)
		if comp.MultiConf && isList {
			items = list
		}
		var out []Entry
		var errs error
		for i, item := range items {
			path := []string{s.Key}
			if isList && comp.MultiConf {
				path = append(path, strconv.Itoa(i))
			}
			cfg, err := comp.Schema(ctx).Validate(ctx, item)
			if err != nil {
				errs = multierr.Append(errs, schema.Prefix(err, path...))
				continue
			}
			out = append(out, Entry{Path: strings.Join(path, "."), Component: comp, Config: cfg})
		}
		return out, errs
	}
	if !c.reg.HasDomain(s.Key) {
		return nil, schema.Prefix(schema.Errorf("component not found: %s", s.Key), s.Key)
	}
	list, ok := s.Value.([]any)
	if !ok {
		return nil, schema.Prefix(schema.Errorf("expected a list of platform entries"), s.Key)
	}
	var out []Entry
	var errs error
	for i, item := range list {
		path := []string{s.Key, strconv.Itoa(i)}
		m, ok := item.(map[string]any)
		if !ok {
			errs = multierr.Append(errs, schema.Prefix(schema.Errorf("expected a dictionary"), path...))
			continue
		}
		platform, _ := m["platform"].(string)
		if platform == "" {
			errs = multierr.Append(errs, schema.Prefix(schema.Errorf("required key not provided"), append(path, "platform")...))
			continue
		}
		comp, ok := c.reg.Component(s.Key + "." + platform)
		if !ok {
			errs = multierr.Append(errs, schema.Prefix(schema.Errorf("platform not found: '%s.%s'", s.Key, platform), append(path, "platform")...))
			continue
		}
		body := make(map[string]any, len(m))
		for k, v := range m {
			if k != "platform" {
				body[k] = v
			}
		}
		cfg, err := comp.Schema(ctx).Validate(ctx, body)
		if err != nil {
			errs = multierr.Append(errs, schema.Prefix(err, path...))
			continue
		}
		out = append(out, Entry{Path: strings.Join(path, "."), Component: comp, Config: cfg})
	}
	return out, errs
}

func (c *Compiler) checkDependencies(p *Project) error {
	loaded := map[string]bool{CoreDomain: true}
	for _, e := range p.Entries {
		loaded[e.Component.Domain] = true
	}
	var errs error
	for _, e := range p.Entries {
		for _, d := range e.Component.Dependencies {
			if !loaded[d] {
				errs = multierr.Append(errs, &schema.Invalid{
					Path:    strings.Split(e.Path, "."),
					Message: fmt.Sprintf("component %s requires component %s", e.Component.Key(), d),
				})
			}
		}
	}
	return errs
}

type idUse struct {
	path string
	id   *codegen.ID
}

func collectIDs(path string, cfg *schema.Config) (decls, refs []idUse) {
	cfg.Walk(func(p []string, v any) {
		var id *codegen.ID
		switch t := v.(type) {
		case *codegen.ID:
			id = t
		case *pins.Pin:
			id = t.ID
		}
		if id == nil {
			return
		}
		u := idUse{path: strings.Join(append([]string{path}, p...), "."), id: id}
		if id.IsDeclaration {
			decls = append(decls, u)
		} else {
			refs = append(refs, u)
		}
	})
	return decls, refs
}

func resolveIDs(p *Project) error {
	var decls, refs []idUse
	d, r := collectIDs(CoreDomain, p.Core)
	decls, refs = append(decls, d...), append(refs, r...)
	for _, e := range p.Entries {
		d, r := collectIDs(e.Path, e.Config)
		decls, refs = append(decls, d...), append(refs, r...)
	}
	var errs error
	for _, u := range decls {
		if err := p.Scope.Declare(u.id); err != nil {
			errs = multierr.Append(errs, &schema.Invalid{Path: strings.Split(u.path, "."), Message: err.Error()})
		}
	}
	if errs != nil {
		return errs
	}
	p.Scope.Generate()
	for _, u := range refs {
		if _, err := p.Scope.Resolve(u.id); err != nil {
			errs = multierr.Append(errs, &schema.Invalid{Path: strings.Split(u.path, "."), Message: err.Error()})
		}
	}
	return errs
}

func checkResources(p *Project) error {
	var pinUses []pins.Use
	var devices []i2c.DeviceUse
	for _, e := range p.Entries {
		e.Config.Walk(func(path []string, v any) {
			if pin, ok := v.(*pins.Pin); ok {
				pinUses = append(pinUses, pins.Use{Path: e.Path + "." + strings.Join(path, "."), Pin: pin})
			}
		})
		if e.Config.Has("i2c_id") && e.Config.Has("address") {
			dev, err := i2c.DeviceFromConfig(e.Config)
			if err == nil {
				devices = append(devices, i2c.DeviceUse{Path: e.Path, Device: dev})
			}
		}
	}
	return multierr.Combine(
		pins.CheckConflicts(pinUses),
		i2c.CheckAddressConflicts(devices),
	)
}

// Result of successful compilation
type Result struct {
	*Project
	Program *codegen.Program
}

// Compile validates configuration and emits program for it
func (c *Compiler) Compile(data []byte) (*Result, error) {
	p, err := c.Validate(data)
	if err != nil {
		return nil, err
	}
	return c.Emit(p)
}

// Emit generates code of validated project. Entries are emitted by descending priority,
// file order is kept within the same priority.
func (c *Compiler) Emit(p *Project) (*Result, error) {
	prog := codegen.NewProgram()
	prog.AddInclude(`"esphome.h"`)
	args := []codegen.Expression{codegen.StringLiteral(p.Name), codegen.StringLiteral(p.Core.Str("friendly_name")), codegen.StringLiteral(p.Core.Str("comment"))}
	prog.Call(codegen.App, "pre_setup", args...)

	entries := make([]Entry, len(p.Entries))
	copy(entries, p.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Component.Priority > entries[j].Component.Priority
	})
	for _, e := range entries {
		c.l.Debugf("emitting %s (%s)", e.Path, e.Component.Key())
		if err := e.Component.ToCode(prog, e.Config); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Path, err)
		}
	}
	if v, ok := p.Core.Get("on_boot"); ok {
		for i, a := range v.([]any) {
			if err := automation.BuildStartup(prog, c.reg, a.(*schema.Config)); err != nil {
				return nil, fmt.Errorf("%s.on_boot.%d: %w", CoreDomain, i, err)
			}
		}
	}
	return &Result{Project: p, Program: prog}, nil
}

// Entity is user visible sensor output of the device
type Entity struct {
	// Component is path of the entry the sensor belongs to
	Component string
	ObjectID  string
	Name      string
	sensor.Options
}

// Entities lists non internal sensor outputs in file order
func (p *Project) Entities() []Entity {
	var out []Entity
	for _, e := range p.Entries {
		e.Config.Walk(func(path []string, v any) {
			cfg, ok := v.(*schema.Config)
			if !ok {
				return
			}
			id, ok := cfg.Get("id")
			if !ok {
				return
			}
			if i, ok := id.(*codegen.ID); !ok || !i.Type.Inherits(sensor.Sensor) {
				return
			}
			s, err := sensor.FromConfig(cfg)
			if err != nil || s.IsInternal() {
				return
			}
			out = append(out, Entity{Component: e.Path, ObjectID: s.ObjectID(), Name: s.Name, Options: s.Options})
		})
	}
	return out
}

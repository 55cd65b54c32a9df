package codegen

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ID is a variable reference. Declarations create the variable, references (use_id) point at one.
// Name is empty until resolved for generated declarations and implicit references.
type ID struct {
	Name          string
	Type          *Class
	IsDeclaration bool
	// IsManual is set when the name came from the user config
	IsManual bool
}

func (id *ID) String() string {
	return id.Name
}

var idRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var reservedIDs = map[string]bool{
	"App": true, "setup": true, "loop": true, "esphome": true, "std": true,
	"auto": true, "bool": true, "break": true, "case": true, "char": true, "class": true,
	"const": true, "continue": true, "default": true, "delete": true, "do": true,
	"double": true, "else": true, "enum": true, "false": true, "float": true, "for": true,
	"if": true, "int": true, "long": true, "namespace": true, "new": true, "nullptr": true,
	"private": true, "public": true, "return": true, "short": true, "static": true,
	"struct": true, "switch": true, "template": true, "this": true, "true": true,
	"union": true, "unsigned": true, "using": true, "void": true, "while": true,
}

// ValidateIDName checks the name can be used as C++ variable
func ValidateIDName(name string) error {
	if name == "" {
		return fmt.Errorf("ID must not be empty")
	}
	if name[0] >= '0' && name[0] <= '9' {
		return fmt.Errorf("first character of ID cannot be a digit")
	}
	if !idRe.MatchString(name) {
		return fmt.Errorf("IDs must only consist of upper/lowercase characters, the underscore character and numbers, got %q", name)
	}
	if reservedIDs[name] {
		return fmt.Errorf("ID %q is reserved internally and cannot be used", name)
	}
	return nil
}

// Scope tracks every declared ID of one configuration so names are unique and references resolve
type Scope struct {
	declared map[string]*ID
	order    []*ID
}

func NewScope() *Scope {
	return &Scope{declared: map[string]*ID{}}
}

// Declare registers manually named declarations. Generated ones are named later by Generate.
func (s *Scope) Declare(id *ID) error {
	if !id.IsDeclaration {
		return fmt.Errorf("%s is not a declaration", id.Name)
	}
	if id.Name == "" {
		s.order = append(s.order, id)
		return nil
	}
	if _, ok := s.declared[id.Name]; ok {
		return fmt.Errorf("ID %s redefined!", id.Name)
	}
	s.declared[id.Name] = id
	s.order = append(s.order, id)
	return nil
}

// Generate names all anonymous declarations in declaration order.
func (s *Scope) Generate() {
	for _, id := range s.order {
		if id.Name != "" {
			continue
		}
		base := id.Type.BaseName() + "_id"
		name := base
		for i := 2; ; i++ {
			if _, ok := s.declared[name]; !ok && !reservedIDs[name] {
				break
			}
			name = fmt.Sprintf("%s_%d", base, i)
		}
		id.Name = name
		s.declared[name] = id
	}
}

// Resolve binds reference to declaration. Reference with empty name resolves only when exactly one
// declaration of matching type exists.
func (s *Scope) Resolve(ref *ID) (*ID, error) {
	if ref.IsDeclaration {
		return ref, nil
	}
	if ref.Name != "" {
		decl, ok := s.declared[ref.Name]
		if !ok {
			return nil, fmt.Errorf("couldn't find ID '%s'. Please check you have defined an ID with that name in your configuration", ref.Name)
		}
		if !decl.Type.Inherits(ref.Type) {
			return nil, fmt.Errorf("ID '%s' of type %s doesn't inherit from %s. Please double check your ID is pointing to the correct value", ref.Name, decl.Type, ref.Type)
		}
		return decl, nil
	}
	var candidates []*ID
	for _, id := range s.order {
		if id.Type.Inherits(ref.Type) {
			candidates = append(candidates, id)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("couldn't find any component that can be used for '%s'. Are you missing a hub declaration?", ref.Type)
	case 1:
		ref.Name = candidates[0].Name
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Name
		}
		sort.Strings(names)
		return nil, fmt.Errorf("too many candidates found for '%s' type '%s', some are: %s. Please specify the id manually", "id", ref.Type, strings.Join(names, ", "))
	}
}

// Declarations returns declared IDs in declaration order
func (s *Scope) Declarations() []*ID {
	out := make([]*ID, len(s.order))
	copy(out, s.order)
	return out
}

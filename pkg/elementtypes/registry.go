// Package elementtypes is the table of element and relationship types the correlation
// manager is parameterized over. The registry is read-only once built.
package elementtypes

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
	"gopkg.in/yaml.v3"
)

// TypeDef describes one element type.
type TypeDef struct {
	Name string `yaml:"name"`
	// SuperType is the parent type; template and relationship-end checks accept subtypes.
	SuperType string `yaml:"superType"`
	// RequiredProperty must be non-empty on create and replace. Defaults to qualifiedName.
	RequiredProperty string `yaml:"requiredProperty"`
	// Family groups the types that one client class used to serve.
	Family string `yaml:"family"`
	// Anchored types are deleted with the element that anchors them.
	Anchored bool `yaml:"anchored"`
}

// RelationshipDef describes one relationship type. Empty end types accept any element.
type RelationshipDef struct {
	Name       string `yaml:"name"`
	EndOneType string `yaml:"endOneType"`
	EndTwoType string `yaml:"endTwoType"`
	// Anchors makes end one the anchor of end two.
	Anchors bool `yaml:"anchors"`
}

// reservedNames are path segments the element routes use in the type position.
var reservedNames = map[string]bool{"find": true}

// Registry resolves element and relationship type names.
type Registry struct {
	types         map[string]TypeDef
	relationships map[string]RelationshipDef
}

// File is the YAML layout accepted by Load.
type File struct {
	Types         []TypeDef         `yaml:"types"`
	Relationships []RelationshipDef `yaml:"relationships"`
}

// New builds a registry from scratch. Supertypes and relationship ends must be defined in it.
func New(types []TypeDef, relationships []RelationshipDef) (*Registry, error) {
	r := &Registry{
		types:         make(map[string]TypeDef, len(types)),
		relationships: make(map[string]RelationshipDef, len(relationships)),
	}
	if err := r.add(types, relationships); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) add(types []TypeDef, relationships []RelationshipDef) error {
	for _, t := range types {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return fmt.Errorf("element type with empty name")
		}
		if reservedNames[strings.ToLower(t.Name)] || strings.ContainsAny(t.Name, "/?#") {
			return fmt.Errorf("element type name %q is reserved or not usable in a URL path", t.Name)
		}
		if t.RequiredProperty == "" {
			t.RequiredProperty = models.PropertyQualifiedName
		}
		if t.Family == "" {
			t.Family = t.Name
		}
		r.types[t.Name] = t
	}
	for _, rel := range relationships {
		rel.Name = strings.TrimSpace(rel.Name)
		if rel.Name == "" {
			return fmt.Errorf("relationship type with empty name")
		}
		r.relationships[rel.Name] = rel
	}

	for _, t := range r.types {
		if t.SuperType == "" {
			continue
		}
		if _, ok := r.types[t.SuperType]; !ok {
			return fmt.Errorf("element type %q has unknown supertype %q", t.Name, t.SuperType)
		}
		if r.hasCycle(t.Name) {
			return fmt.Errorf("element type %q has a cyclic supertype chain", t.Name)
		}
	}
	for _, rel := range r.relationships {
		for _, end := range []string{rel.EndOneType, rel.EndTwoType} {
			if end == "" {
				continue
			}
			if _, ok := r.types[end]; !ok {
				return fmt.Errorf("relationship %q references unknown element type %q", rel.Name, end)
			}
		}
	}
	return nil
}

func (r *Registry) hasCycle(name string) bool {
	seen := map[string]bool{}
	for name != "" {
		if seen[name] {
			return true
		}
		seen[name] = true
		name = r.types[name].SuperType
	}
	return false
}

// Load reads a YAML file and layers its entries over the defaults. Entries with the
// same name as a default replace it.
func Load(rd io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid element type YAML: %v", err)
	}

	r := Default()
	if err := r.add(f.Types, f.Relationships); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadFile is Load for a path. An empty path returns the defaults.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read element types %q: %v", path, err)
	}
	return Load(bytes.NewReader(bs))
}

// Type returns the definition of an element type.
func (r *Registry) Type(name string) (TypeDef, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Relationship returns the definition of a relationship type.
func (r *Registry) Relationship(name string) (RelationshipDef, bool) {
	rel, ok := r.relationships[name]
	return rel, ok
}

// RequiredProperty is the property that must be set for the type. Unknown types
// fall back to qualifiedName.
func (r *Registry) RequiredProperty(typeName string) string {
	if t, ok := r.types[typeName]; ok {
		return t.RequiredProperty
	}
	return models.PropertyQualifiedName
}

// IsA reports whether typeName is superName or one of its subtypes.
func (r *Registry) IsA(typeName, superName string) bool {
	for name := typeName; name != ""; name = r.types[name].SuperType {
		if name == superName {
			return true
		}
	}
	return false
}

// TemplateCompatible reports whether an element of templateType may seed an element
// of targetType: either is a subtype of the other.
func (r *Registry) TemplateCompatible(templateType, targetType string) bool {
	return r.IsA(templateType, targetType) || r.IsA(targetType, templateType)
}

// CheckEnds verifies the end element types against the relationship definition.
// Unknown relationship types are accepted as-is.
func (r *Registry) CheckEnds(relType, endOneType, endTwoType string) error {
	rel, ok := r.relationships[relType]
	if !ok {
		return nil
	}
	if rel.EndOneType != "" && !r.IsA(endOneType, rel.EndOneType) {
		return fmt.Errorf("relationship %s requires end one of type %s, got %s", relType, rel.EndOneType, endOneType)
	}
	if rel.EndTwoType != "" && !r.IsA(endTwoType, rel.EndTwoType) {
		return fmt.Errorf("relationship %s requires end two of type %s, got %s", relType, rel.EndTwoType, endTwoType)
	}
	return nil
}

// Types returns the element types sorted by name.
func (r *Registry) Types() []TypeDef {
	out := make([]TypeDef, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Relationships() []RelationshipDef {
	out := make([]RelationshipDef, 0, len(r.relationships))
	for _, rel := range r.relationships {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Package item provides the item catalog: immutable definitions composed of
// capability fragments, per-stack instances, and YAML content loading.
package item

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

// Definition is the immutable template for an item, loaded from YAML.
type Definition struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Tags        []tag.Tag `yaml:"tags"`
	Fragments   Fragments `yaml:"fragments"`
}

// FindFragment returns the first fragment of the given kind.
//
// Postcondition: ok is true iff d has a fragment of kind k.
func (d *Definition) FindFragment(k FragmentKind) (Fragment, bool) {
	if d == nil {
		return nil, false
	}
	for _, f := range d.Fragments {
		if f.Kind() == k {
			return f, true
		}
	}
	return nil, false
}

// Stackable returns the stackable fragment, if any.
func (d *Definition) Stackable() (*Stackable, bool) {
	f, ok := d.FindFragment(KindStackable)
	if !ok {
		return nil, false
	}
	s, ok := f.(*Stackable)
	return s, ok
}

// UserInterface returns the user interface fragment, if any.
func (d *Definition) UserInterface() (*UserInterface, bool) {
	f, ok := d.FindFragment(KindUserInterface)
	if !ok {
		return nil, false
	}
	u, ok := f.(*UserInterface)
	return u, ok
}

// WorldMesh returns the world mesh fragment, if any.
func (d *Definition) WorldMesh() (*WorldMesh, bool) {
	f, ok := d.FindFragment(KindWorldMesh)
	if !ok {
		return nil, false
	}
	w, ok := f.(*WorldMesh)
	return w, ok
}

// MaxStack returns the stack limit: the stackable fragment's MaxStack, or 1
// when the definition is not stackable.
//
// Postcondition: result >= 1.
func (d *Definition) MaxStack() int {
	if s, ok := d.Stackable(); ok && s.MaxStack > 0 {
		return s.MaxStack
	}
	return 1
}

// CombinedTags returns the definition's static tags together with the tags
// contributed by each fragment.
func (d *Definition) CombinedTags() tag.Set {
	out := tag.NewSet(d.Tags...)
	for _, f := range d.Fragments {
		out = out.Union(f.DefinitionTags())
	}
	return out
}

// DisplayName returns the UI display name, falling back to Name and then ID.
func (d *Definition) DisplayName() string {
	if u, ok := d.UserInterface(); ok && u.DisplayName != "" {
		return u.DisplayName
	}
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Validate checks that the Definition satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	for _, t := range d.Tags {
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	seen := make(map[FragmentKind]bool, len(d.Fragments))
	for i, f := range d.Fragments {
		if f == nil {
			errs = append(errs, fmt.Errorf("fragment %d is nil", i))
			continue
		}
		if seen[f.Kind()] {
			errs = append(errs, fmt.Errorf("fragment kind %q appears more than once", f.Kind()))
		}
		seen[f.Kind()] = true
		if err := f.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("item %q validation failed: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// LoadDefinitions reads all *.yaml and *.yml files from dir. Each file holds
// either a single definition or a sequence of definitions. Every definition
// is validated.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid definitions or the first encountered error.
func LoadDefinitions(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadDefinitions: cannot read directory %q: %w", dir, err)
	}

	var defs []*Definition
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadDefinitions: cannot read file %q: %w", path, err)
		}
		parsed, err := ParseDefinitions(data)
		if err != nil {
			return nil, fmt.Errorf("LoadDefinitions: %q: %w", path, err)
		}
		defs = append(defs, parsed...)
	}
	return defs, nil
}

// ParseDefinitions decodes and validates one definition or a sequence of
// definitions from YAML.
func ParseDefinitions(data []byte) ([]*Definition, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("cannot parse: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]

	var defs []*Definition
	if root.Kind == yaml.SequenceNode {
		if err := root.Decode(&defs); err != nil {
			return nil, fmt.Errorf("cannot decode: %w", err)
		}
	} else {
		var d Definition
		if err := root.Decode(&d); err != nil {
			return nil, fmt.Errorf("cannot decode: %w", err)
		}
		defs = append(defs, &d)
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

package item

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

// FragmentKind discriminates the Fragment variants.
type FragmentKind string

const (
	KindStackable     FragmentKind = "stackable"
	KindUserInterface FragmentKind = "user_interface"
	KindWorldMesh     FragmentKind = "world_mesh"
)

// Fragment is a capability unit composed onto a Definition. The set of
// variants is closed: *Stackable, *UserInterface and *WorldMesh.
type Fragment interface {
	// Kind returns the variant discriminator.
	Kind() FragmentKind
	// DefinitionTags returns the tags this fragment contributes to its
	// definition's combined tag set.
	DefinitionTags() tag.Set
	// InstanceTags returns the tags stamped onto every new instance.
	InstanceTags() tag.Set

	validate() error
}

// FragmentBase carries the tag fields common to every fragment variant.
type FragmentBase struct {
	Tags        []tag.Tag `yaml:"tags,omitempty"`
	InstanceTag []tag.Tag `yaml:"instance_tags,omitempty"`
}

// DefinitionTags implements Fragment.
func (b FragmentBase) DefinitionTags() tag.Set { return tag.NewSet(b.Tags...) }

// InstanceTags implements Fragment.
func (b FragmentBase) InstanceTags() tag.Set { return tag.NewSet(b.InstanceTag...) }

func (b FragmentBase) validateTags() error {
	for _, t := range b.Tags {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, t := range b.InstanceTag {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Stackable allows up to MaxStack units of a definition to share one entry.
type Stackable struct {
	FragmentBase `yaml:",inline"`
	MaxStack     int `yaml:"max_stack"`
}

// Kind implements Fragment.
func (*Stackable) Kind() FragmentKind { return KindStackable }

// DefinitionTags implements Fragment. Stackable always contributes
// TraitStackable in addition to any configured tags.
func (s *Stackable) DefinitionTags() tag.Set {
	return s.FragmentBase.DefinitionTags().Union(tag.NewSet(TraitStackable))
}

func (s *Stackable) validate() error {
	if s.MaxStack < 1 {
		return fmt.Errorf("stackable: max_stack must be >= 1, got %d", s.MaxStack)
	}
	return s.validateTags()
}

// UserInterface describes how an item is presented by UI collaborators.
type UserInterface struct {
	FragmentBase `yaml:",inline"`
	DisplayName  string `yaml:"display_name"`
	Description  string `yaml:"description"`
	Icon         string `yaml:"icon"`
}

// Kind implements Fragment.
func (*UserInterface) Kind() FragmentKind { return KindUserInterface }

func (u *UserInterface) validate() error {
	return u.validateTags()
}

// WorldMesh describes the world representation used by pickups. Only one of
// StaticMesh and SkeletalMesh is honoured; StaticMesh wins when both are set.
type WorldMesh struct {
	FragmentBase `yaml:",inline"`
	StaticMesh   string     `yaml:"static_mesh"`
	SkeletalMesh string     `yaml:"skeletal_mesh"`
	Location     [3]float64 `yaml:"location"`
	Rotation     [3]float64 `yaml:"rotation"`
	Scale        [3]float64 `yaml:"scale"`
}

// Kind implements Fragment.
func (*WorldMesh) Kind() FragmentKind { return KindWorldMesh }

// Mesh returns the mesh reference to display, preferring the static mesh.
func (w *WorldMesh) Mesh() string {
	if w.StaticMesh != "" {
		return w.StaticMesh
	}
	return w.SkeletalMesh
}

// RelativeScale returns Scale, treating the zero value as unit scale.
func (w *WorldMesh) RelativeScale() [3]float64 {
	if w.Scale == [3]float64{} {
		return [3]float64{1, 1, 1}
	}
	return w.Scale
}

func (w *WorldMesh) validate() error {
	return w.validateTags()
}

// Fragments is an ordered fragment list decoded from a YAML sequence whose
// elements are discriminated by their "kind" key.
type Fragments []Fragment

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Fragments) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("fragments: expected a sequence, got node kind %d", value.Kind)
	}
	out := make(Fragments, 0, len(value.Content))
	for i, n := range value.Content {
		var head struct {
			Kind FragmentKind `yaml:"kind"`
		}
		if err := n.Decode(&head); err != nil {
			return fmt.Errorf("fragments[%d]: %w", i, err)
		}
		var frag Fragment
		switch head.Kind {
		case KindStackable:
			frag = &Stackable{}
		case KindUserInterface:
			frag = &UserInterface{}
		case KindWorldMesh:
			frag = &WorldMesh{}
		default:
			return fmt.Errorf("fragments[%d]: unknown kind %q", i, head.Kind)
		}
		if err := n.Decode(frag); err != nil {
			return fmt.Errorf("fragments[%d]: %w", i, err)
		}
		out = append(out, frag)
	}
	*f = out
	return nil
}

package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

// Layout describes the actors, their containers and the storage actors of
// one region of the world.
type Layout struct {
	ID       string
	Actors   []ActorSpec
	Storages []StorageSpec
}

// ActorSpec declares an actor and the containers it owns.
type ActorSpec struct {
	ID         string
	Authority  bool
	Containers []ContainerSpec
}

// ContainerSpec declares one container. Zero MaxSlots and an empty Filter
// fall back to the per-kind defaults.
type ContainerSpec struct {
	ID       string
	Kind     inventory.Kind
	MaxSlots int
	Filter   tag.Query
	Tags     []tag.Tag
}

// StorageSpec declares a storage actor. An empty Owner selects the world
// actor; an empty Table leaves the storage empty.
type StorageSpec struct {
	ID       string
	Owner    string
	MaxSlots int
	Filter   tag.Query
	Tags     []tag.Tag
	Table    string
	Seed     uint64
}

// yamlLayoutFile is the top-level YAML structure for layout files.
type yamlLayoutFile struct {
	Layout yamlLayout `yaml:"layout"`
}

type yamlLayout struct {
	ID       string        `yaml:"id"`
	Actors   []yamlActor   `yaml:"actors"`
	Storages []yamlStorage `yaml:"storages"`
}

type yamlActor struct {
	ID string `yaml:"id"`
	// Authority defaults to true: the server owns what it loads.
	Authority  *bool           `yaml:"authority"`
	Containers []yamlContainer `yaml:"containers"`
}

type yamlContainer struct {
	ID       string    `yaml:"id"`
	Kind     string    `yaml:"kind"`
	MaxSlots int       `yaml:"max_slots"`
	Filter   tag.Query `yaml:"filter"`
	Tags     []tag.Tag `yaml:"tags"`
}

type yamlStorage struct {
	ID       string    `yaml:"id"`
	Owner    string    `yaml:"owner"`
	MaxSlots int       `yaml:"max_slots"`
	Filter   tag.Query `yaml:"filter"`
	Tags     []tag.Tag `yaml:"tags"`
	Table    string    `yaml:"table"`
	Seed     uint64    `yaml:"seed"`
}

// Validate checks ids, kinds, slot counts and filters. Cross-layout
// references (storage owners, loot tables) are checked by NewManager.
func (l *Layout) Validate() error {
	if l.ID == "" {
		return errors.New("layout ID must not be empty")
	}
	var errs []error
	seen := make(map[string]bool)
	claim := func(kind, id string) {
		if id == "" {
			errs = append(errs, fmt.Errorf("%s ID must not be empty", kind))
			return
		}
		if seen[kind+":"+id] {
			errs = append(errs, fmt.Errorf("duplicate %s ID %q", kind, id))
		}
		seen[kind+":"+id] = true
	}
	checkContainer := func(id string, maxSlots int, filter tag.Query, tags []tag.Tag) {
		claim("container", id)
		if maxSlots < 0 {
			errs = append(errs, fmt.Errorf("container %q: max_slots must be >= 0, got %d", id, maxSlots))
		}
		if err := filter.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("container %q: filter: %w", id, err))
		}
		for _, t := range tags {
			if err := t.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("container %q: %w", id, err))
			}
		}
	}

	for _, a := range l.Actors {
		claim("actor", a.ID)
		for _, c := range a.Containers {
			if !c.Kind.Valid() {
				errs = append(errs, fmt.Errorf("container %q: unknown kind %q", c.ID, c.Kind))
			}
			checkContainer(c.ID, c.MaxSlots, c.Filter, c.Tags)
		}
	}
	for _, s := range l.Storages {
		checkContainer(s.ID, s.MaxSlots, s.Filter, s.Tags)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("layout %q: %w", l.ID, err)
	}
	return nil
}

// LoadLayoutFromFile reads and validates a single layout YAML file.
//
// Precondition: path must point to a valid YAML layout file.
// Postcondition: Returns a validated Layout or a non-nil error.
func LoadLayoutFromFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout file %s: %w", path, err)
	}
	return LoadLayoutFromBytes(data)
}

// LoadLayoutFromBytes parses and validates a layout from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the layout schema.
// Postcondition: Returns a validated Layout or a non-nil error.
func LoadLayoutFromBytes(data []byte) (*Layout, error) {
	var file yamlLayoutFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing layout YAML: %w", err)
	}

	layout := convertYAMLLayout(file.Layout)
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("validating layout: %w", err)
	}
	return layout, nil
}

// LoadLayoutsFromDir loads all YAML files in a directory as layouts, in
// file name order.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated layouts or the first error encountered.
func LoadLayoutsFromDir(dir string) ([]*Layout, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading layout directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var layouts []*Layout
	for _, name := range names {
		layout, err := LoadLayoutFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading layout from %s: %w", name, err)
		}
		layouts = append(layouts, layout)
	}

	if len(layouts) == 0 {
		return nil, fmt.Errorf("no layout files found in %s", dir)
	}
	return layouts, nil
}

// convertYAMLLayout converts the parsed YAML structures into domain types.
func convertYAMLLayout(yl yamlLayout) *Layout {
	layout := &Layout{ID: yl.ID}
	for _, ya := range yl.Actors {
		a := ActorSpec{ID: ya.ID, Authority: ya.Authority == nil || *ya.Authority}
		for _, yc := range ya.Containers {
			kind := inventory.Kind(yc.Kind)
			if kind == "" {
				kind = inventory.KindGeneric
			}
			a.Containers = append(a.Containers, ContainerSpec{
				ID:       yc.ID,
				Kind:     kind,
				MaxSlots: yc.MaxSlots,
				Filter:   yc.Filter,
				Tags:     yc.Tags,
			})
		}
		layout.Actors = append(layout.Actors, a)
	}
	for _, ys := range yl.Storages {
		layout.Storages = append(layout.Storages, StorageSpec(ys))
	}
	return layout
}

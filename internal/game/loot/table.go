// Package loot implements weighted loot tables and the generator that
// populates containers from them.
package loot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/stockpile/internal/game/dice"
	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

// Entry is one weighted alternative of a Table.
type Entry struct {
	Item        string `yaml:"item"`
	MinQuantity int    `yaml:"min_quantity"`
	MaxQuantity int    `yaml:"max_quantity"`
	// Quantity is an optional dice expression such as "1d4+1". When set it
	// replaces the MinQuantity/MaxQuantity range.
	Quantity string  `yaml:"quantity,omitempty"`
	Weight   float64 `yaml:"weight"`
	// Filter restricts the entry to containers whose context tags match.
	Filter tag.Query `yaml:"filter,omitempty"`
}

// QuantityRange returns the inclusive range drawn from when no Quantity
// expression is set: [max(1, MinQuantity), max(MinQuantity, MaxQuantity)].
func (e Entry) QuantityRange() (lo, hi int) {
	return max(1, e.MinQuantity), max(e.MinQuantity, e.MaxQuantity)
}

// Table is a weighted loot table.
type Table struct {
	ID       string  `yaml:"id"`
	MinRolls int     `yaml:"min_rolls"`
	MaxRolls int     `yaml:"max_rolls"`
	Entries  []Entry `yaml:"entries"`
}

// Validate checks that the table satisfies its invariants.
//
// Precondition: t must not be nil.
// Postcondition: returns nil iff every roll, weight, quantity and filter
// constraint holds. An empty table is valid and generates nothing.
func (t *Table) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if t.MinRolls < 0 {
		errs = append(errs, fmt.Errorf("min_rolls must be >= 0, got %d", t.MinRolls))
	}
	if t.MaxRolls < t.MinRolls {
		errs = append(errs, fmt.Errorf("min_rolls (%d) must be <= max_rolls (%d)", t.MinRolls, t.MaxRolls))
	}
	for i, e := range t.Entries {
		if e.Item == "" {
			errs = append(errs, fmt.Errorf("entries[%d] must have a non-empty item id", i))
		}
		if e.Weight < 0 {
			errs = append(errs, fmt.Errorf("entries[%d] weight must be >= 0, got %f", i, e.Weight))
		}
		if e.MinQuantity < 0 || e.MaxQuantity < 0 {
			errs = append(errs, fmt.Errorf("entries[%d] quantities must be >= 0", i))
		}
		if e.Quantity != "" {
			if _, err := dice.Parse(e.Quantity); err != nil {
				errs = append(errs, fmt.Errorf("entries[%d] quantity: %w", i, err))
			}
		}
		if err := e.Filter.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("entries[%d] filter: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("loot table %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

// Catalog resolves item definitions by id.
type Catalog interface {
	Definition(id string) (*item.Definition, bool)
}

// CheckItems reports every entry whose item id the catalog cannot resolve.
func (t *Table) CheckItems(cat Catalog) error {
	var errs []error
	for i, e := range t.Entries {
		if _, ok := cat.Definition(e.Item); !ok {
			errs = append(errs, fmt.Errorf("entries[%d]: unknown item %q", i, e.Item))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("loot table %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

// LoadTables reads every *.yaml and *.yml file in dir. Each file holds one
// table or a sequence of tables; all are validated.
//
// Postcondition: returns all valid tables sorted by id, or the first error.
func LoadTables(dir string) ([]*Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadTables: cannot read directory %q: %w", dir, err)
	}
	var tables []*Table
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadTables: cannot read file %q: %w", path, err)
		}
		parsed, err := ParseTables(data)
		if err != nil {
			return nil, fmt.Errorf("LoadTables: %q: %w", path, err)
		}
		tables = append(tables, parsed...)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
	return tables, nil
}

// ParseTables decodes and validates one table or a sequence of tables.
func ParseTables(data []byte) ([]*Table, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("cannot parse: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	var tables []*Table
	if root.Kind == yaml.SequenceNode {
		if err := root.Decode(&tables); err != nil {
			return nil, fmt.Errorf("cannot decode: %w", err)
		}
	} else {
		var t Table
		if err := root.Decode(&t); err != nil {
			return nil, fmt.Errorf("cannot decode: %w", err)
		}
		tables = append(tables, &t)
	}
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// Index maps table ids to tables.
type Index map[string]*Table

// NewIndex indexes tables by id, rejecting duplicates.
func NewIndex(tables []*Table) (Index, error) {
	idx := make(Index, len(tables))
	for _, t := range tables {
		if _, dup := idx[t.ID]; dup {
			return nil, fmt.Errorf("loot: NewIndex: table ID %q already registered", t.ID)
		}
		idx[t.ID] = t
	}
	return idx, nil
}

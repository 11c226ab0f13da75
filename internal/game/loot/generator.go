package loot

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/dice"
	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
	"github.com/cory-johannsen/stockpile/internal/observability"
)

// Drop is one weighted draw: the chosen definition and rolled quantity.
// Placed is filled in by Generate with the amount the container accepted.
type Drop struct {
	Definition *item.Definition
	Quantity   int
	Placed     int
}

// Result summarizes one generation.
type Result struct {
	Rolls int
	Drops []Drop
}

// Placed returns the total quantity accepted across all drops.
func (r Result) Placed() int {
	n := 0
	for _, d := range r.Drops {
		n += d.Placed
	}
	return n
}

// Generator draws from a Table and feeds the results into containers.
type Generator struct {
	table   *Table
	catalog Catalog
	logger  *zap.Logger
}

// NewGenerator returns a Generator for table resolving items through
// catalog.
//
// Precondition: table and catalog must be non-nil; table must have passed
// Validate.
func NewGenerator(table *Table, catalog Catalog, logger *zap.Logger) *Generator {
	if table == nil {
		panic("loot.NewGenerator: table must not be nil")
	}
	if catalog == nil {
		panic("loot.NewGenerator: catalog must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{table: table, catalog: catalog, logger: logger.With(observability.Table(table.ID))}
}

// Table returns the generator's table.
func (g *Generator) Table() *Table { return g.table }

type candidate struct {
	entry Entry
	def   *item.Definition
	expr  *dice.Expression
}

// candidates returns the entries eligible for a roll: resolvable item,
// positive weight, and a filter matching the context tags.
func (g *Generator) candidates(context tag.Set) []candidate {
	var out []candidate
	for _, e := range g.table.Entries {
		if e.Weight <= 0 {
			continue
		}
		def, ok := g.catalog.Definition(e.Item)
		if !ok || def == nil {
			continue
		}
		if !e.Filter.Matches(context) {
			continue
		}
		c := candidate{entry: e, def: def}
		if e.Quantity != "" {
			if expr, err := dice.Parse(e.Quantity); err == nil {
				c.expr = &expr
			}
		}
		out = append(out, c)
	}
	return out
}

// pick performs weighted selection: a uniform draw in [0, total) walks the
// cumulative weights in table order. The last candidate absorbs floating
// point edge cases at the boundary.
//
// Precondition: len(cands) > 0.
func pick(cands []candidate, src dice.Source) candidate {
	total := 0.0
	for _, c := range cands {
		total += c.entry.Weight
	}
	draw := src.Float64() * total
	cum := 0.0
	for _, c := range cands {
		cum += c.entry.Weight
		if draw <= cum {
			return c
		}
	}
	return cands[len(cands)-1]
}

// Roll performs the table's draws against the given context tags without
// touching any container. A zero seed selects a crypto-random source; equal
// non-zero seeds produce equal results.
//
// Postcondition: every Drop has Quantity >= 1.
func (g *Generator) Roll(context tag.Set, seed uint64) Result {
	if len(g.table.Entries) == 0 || g.table.MaxRolls <= 0 {
		return Result{}
	}
	roller := dice.NewRoller(dice.NewSource(seed), g.logger)

	rolls := g.table.MinRolls
	if g.table.MinRolls != g.table.MaxRolls {
		rolls = roller.IntRange(g.table.MinRolls, g.table.MaxRolls)
	}
	res := Result{Rolls: rolls}

	cands := g.candidates(context)
	for i := 0; i < rolls; i++ {
		if len(cands) == 0 {
			continue
		}
		c := pick(cands, roller.Source())
		var qty int
		if c.expr != nil {
			qty = max(1, roller.Roll(*c.expr).Total())
		} else {
			lo, hi := c.entry.QuantityRange()
			qty = roller.IntRange(lo, hi)
		}
		g.logger.Debug("loot roll", zap.Int("roll", i), zap.String("item", c.def.ID), zap.Int("quantity", qty))
		res.Drops = append(res.Drops, Drop{Definition: c.def, Quantity: qty})
	}
	return res
}

// Generate rolls the table against the container's context tags and adds
// each drop to it. Partial acceptance is not retried or compensated.
//
// Postcondition: the container is unchanged when the caller lacks authority
// over it.
func (g *Generator) Generate(c *inventory.Container, seed uint64) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("loot: Generator.Generate: %w: nil container", inventory.ErrInvalidArgument)
	}
	if !c.HasAuthority() {
		return Result{}, fmt.Errorf("loot: Generator.Generate: container %s: %w", c.ID(), inventory.ErrNoAuthority)
	}
	res := g.Roll(c.ContextTags(), seed)
	for i := range res.Drops {
		d := &res.Drops[i]
		placed, err := c.AddItem(d.Definition, d.Quantity)
		d.Placed = placed
		if err != nil {
			g.logger.Debug("loot drop not fully placed",
				observability.Container(c.ID()),
				zap.String("item", d.Definition.ID),
				zap.Int("quantity", d.Quantity),
				zap.Int("placed", placed),
				zap.Error(err),
			)
		}
	}
	g.logger.Debug("loot generated",
		observability.Container(c.ID()),
		zap.Int("rolls", res.Rolls),
		zap.Int("drops", len(res.Drops)),
		zap.Int("placed", res.Placed()),
	)
	return res, nil
}

package tag

import (
	"errors"
	"fmt"
)

// Op is the operator at a Query node.
type Op string

const (
	// AnyTags matches when the set has at least one of Tags.
	AnyTags Op = "any_tags"
	// AllTags matches when the set has every one of Tags.
	AllTags Op = "all_tags"
	// NoTags matches when the set has none of Tags.
	NoTags Op = "no_tags"
	// AnyOf matches when at least one sub-expression matches.
	AnyOf Op = "any_of"
	// AllOf matches when every sub-expression matches.
	AllOf Op = "all_of"
	// NoneOf matches when no sub-expression matches.
	NoneOf Op = "none_of"
)

// Query is a boolean expression tree over tag sets. Leaf nodes use the
// *_tags operators with Tags; inner nodes use the *_of operators with Exprs.
// The zero Query is empty and matches everything.
type Query struct {
	Op    Op      `yaml:"op" json:"op,omitempty" mapstructure:"op"`
	Tags  []Tag   `yaml:"tags,omitempty" json:"tags,omitempty" mapstructure:"tags"`
	Exprs []Query `yaml:"exprs,omitempty" json:"exprs,omitempty" mapstructure:"exprs"`
}

// MatchAny returns a leaf query matching sets containing any of tags.
func MatchAny(tags ...Tag) Query { return Query{Op: AnyTags, Tags: tags} }

// MatchAll returns a leaf query matching sets containing all of tags.
func MatchAll(tags ...Tag) Query { return Query{Op: AllTags, Tags: tags} }

// MatchNone returns a leaf query matching sets containing none of tags.
func MatchNone(tags ...Tag) Query { return Query{Op: NoTags, Tags: tags} }

// Or returns a query matching when any of exprs matches.
func Or(exprs ...Query) Query { return Query{Op: AnyOf, Exprs: exprs} }

// And returns a query matching when all of exprs match.
func And(exprs ...Query) Query { return Query{Op: AllOf, Exprs: exprs} }

// Not returns a query matching when none of exprs match.
func Not(exprs ...Query) Query { return Query{Op: NoneOf, Exprs: exprs} }

// IsEmpty reports whether q has no operator.
func (q Query) IsEmpty() bool {
	return q.Op == ""
}

// Matches evaluates q against s. An empty query matches every set.
//
// Precondition: q passed Validate, or q is empty.
func (q Query) Matches(s Set) bool {
	switch q.Op {
	case "":
		return true
	case AnyTags:
		return s.HasAny(q.Tags)
	case AllTags:
		return s.HasAll(q.Tags)
	case NoTags:
		return !s.HasAny(q.Tags)
	case AnyOf:
		for _, e := range q.Exprs {
			if e.Matches(s) {
				return true
			}
		}
		return false
	case AllOf:
		for _, e := range q.Exprs {
			if !e.Matches(s) {
				return false
			}
		}
		return true
	case NoneOf:
		for _, e := range q.Exprs {
			if e.Matches(s) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Validate checks operator/operand consistency for the whole tree.
//
// Postcondition: returns nil iff every node has a known operator, leaf nodes
// carry valid tags and no sub-expressions, and inner nodes carry at least one
// sub-expression and no tags.
func (q Query) Validate() error {
	if q.IsEmpty() {
		if len(q.Tags) > 0 || len(q.Exprs) > 0 {
			return errors.New("tag: query without op must not carry tags or exprs")
		}
		return nil
	}
	switch q.Op {
	case AnyTags, AllTags, NoTags:
		if len(q.Tags) == 0 {
			return fmt.Errorf("tag: %s requires at least one tag", q.Op)
		}
		if len(q.Exprs) > 0 {
			return fmt.Errorf("tag: %s must not have sub-expressions", q.Op)
		}
		for _, t := range q.Tags {
			if err := t.Validate(); err != nil {
				return err
			}
		}
	case AnyOf, AllOf, NoneOf:
		if len(q.Exprs) == 0 {
			return fmt.Errorf("tag: %s requires at least one sub-expression", q.Op)
		}
		if len(q.Tags) > 0 {
			return fmt.Errorf("tag: %s must not carry tags", q.Op)
		}
		for i, e := range q.Exprs {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("tag: %s[%d]: %w", q.Op, i, err)
			}
		}
	default:
		return fmt.Errorf("tag: unknown query op %q", q.Op)
	}
	return nil
}

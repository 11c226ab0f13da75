// Package tag provides hierarchical classification tags and a closed
// boolean query language evaluated against tag sets.
package tag

import (
	"fmt"
	"sort"
	"strings"
)

// Tag is a dot-separated hierarchical name such as "Inventory.Item.Type.Weapon".
type Tag string

// Parent reports whether t is equal to or an ancestor of other.
//
// Postcondition: "A.B".Parent("A.B.C") == true; "A.B".Parent("A.BC") == false.
func (t Tag) Parent(other Tag) bool {
	if t == other {
		return true
	}
	return strings.HasPrefix(string(other), string(t)+".")
}

// Validate checks that t is non-empty and has no empty segments.
func (t Tag) Validate() error {
	if t == "" {
		return fmt.Errorf("tag: empty tag")
	}
	for _, seg := range strings.Split(string(t), ".") {
		if seg == "" {
			return fmt.Errorf("tag: %q has an empty segment", t)
		}
	}
	return nil
}

// Set is a sorted, duplicate-free collection of tags.
//
// Invariant: a Set built by NewSet or Union is sorted and unique.
type Set []Tag

// NewSet returns a normalized Set containing tags.
//
// Postcondition: result is sorted and contains each distinct tag once.
func NewSet(tags ...Tag) Set {
	if len(tags) == 0 {
		return nil
	}
	out := make(Set, len(tags))
	copy(out, tags)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, t := range out {
		if i > 0 && t == out[n-1] {
			continue
		}
		out[n] = t
		n++
	}
	return out[:n]
}

// Union returns a new Set containing every tag of s and others.
func (s Set) Union(others ...Set) Set {
	all := make([]Tag, 0, len(s))
	all = append(all, s...)
	for _, o := range others {
		all = append(all, o...)
	}
	return NewSet(all...)
}

// HasExact reports whether t is a member of s.
func (s Set) HasExact(t Tag) bool {
	for _, m := range s {
		if m == t {
			return true
		}
	}
	return false
}

// Has reports whether s contains t or any descendant of t.
func (s Set) Has(t Tag) bool {
	for _, m := range s {
		if t.Parent(m) {
			return true
		}
	}
	return false
}

// HasAny reports whether s contains at least one of tags (hierarchically).
func (s Set) HasAny(tags []Tag) bool {
	for _, t := range tags {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// HasAll reports whether s contains every one of tags (hierarchically).
// An empty tags list is trivially satisfied.
func (s Set) HasAll(tags []Tag) bool {
	for _, t := range tags {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

// Strings returns the tags as plain strings.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = string(t)
	}
	return out
}

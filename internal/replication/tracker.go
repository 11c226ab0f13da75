// Package replication provides a generic versioned-collection diff: a
// Tracker records which keys were created, updated or deleted at which
// version so that any observer can ask for the changes since the version it
// last acknowledged.
package replication

import "sort"

// Version is a monotonically increasing change counter. Version 0 means
// "nothing seen yet".
type Version uint64

type record struct {
	created Version
	updated Version
	deleted Version
	order   uint64
}

// Tracker records per-key change versions.
//
// Tracker is not safe for concurrent use; it is owned by the single writer of
// the collection it tracks.
type Tracker[K comparable] struct {
	version Version
	// floor is the highest version whose tombstones have been compacted away.
	floor Version
	seq   uint64
	keys  map[K]*record
}

// NewTracker returns an empty Tracker at version 0.
func NewTracker[K comparable]() *Tracker[K] {
	return &Tracker[K]{keys: make(map[K]*record)}
}

// Version returns the current version.
func (t *Tracker[K]) Version() Version {
	return t.version
}

// Floor returns the compaction floor. Deltas requested for a version below
// the floor must be served as a full reset.
func (t *Tracker[K]) Floor() Version {
	return t.floor
}

// Created records that key came into existence.
//
// Postcondition: Version() has advanced by one.
func (t *Tracker[K]) Created(key K) Version {
	t.version++
	t.seq++
	t.keys[key] = &record{created: t.version, updated: t.version, order: t.seq}
	return t.version
}

// Updated records that key changed. Unknown or deleted keys are treated as
// created.
func (t *Tracker[K]) Updated(key K) Version {
	r, ok := t.keys[key]
	if !ok || r.deleted != 0 {
		return t.Created(key)
	}
	t.version++
	r.updated = t.version
	return t.version
}

// Deleted records a tombstone for key. Deleting an unknown key is a no-op
// and returns the current version.
func (t *Tracker[K]) Deleted(key K) Version {
	r, ok := t.keys[key]
	if !ok || r.deleted != 0 {
		return t.version
	}
	t.version++
	r.deleted = t.version
	return t.version
}

// Touch advances the version without a key change, for header-level changes
// of the tracked collection.
func (t *Tracker[K]) Touch() Version {
	t.version++
	return t.version
}

// Delta is the set of key changes after a given version.
type Delta[K comparable] struct {
	From Version
	To   Version
	// Reset is set when From predates the compaction floor; the receiver must
	// discard its state and treat Added as the complete live key set.
	Reset   bool
	Added   []K
	Changed []K
	Removed []K
}

// Empty reports whether the delta carries no changes.
func (d Delta[K]) Empty() bool {
	return !d.Reset && len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Since returns the changes after version v. Keys appear in creation order.
// A key both created and deleted after v is omitted entirely.
//
// Postcondition: result.To == Version().
func (t *Tracker[K]) Since(v Version) Delta[K] {
	d := Delta[K]{From: v, To: t.version}
	if v < t.floor {
		d.Reset = true
		d.From = 0
		d.Added = t.Live()
		return d
	}
	for _, kr := range t.sorted() {
		r := kr.r
		switch {
		case r.deleted != 0:
			if r.deleted > v && r.created <= v {
				d.Removed = append(d.Removed, kr.k)
			}
		case r.created > v:
			d.Added = append(d.Added, kr.k)
		case r.updated > v:
			d.Changed = append(d.Changed, kr.k)
		}
	}
	return d
}

// Live returns every non-deleted key in creation order.
func (t *Tracker[K]) Live() []K {
	var out []K
	for _, kr := range t.sorted() {
		if kr.r.deleted == 0 {
			out = append(out, kr.k)
		}
	}
	return out
}

// Compact drops tombstones at or below minAck, the lowest version every
// observer has acknowledged. Observers behind the new floor receive a Reset.
//
// Postcondition: Floor() >= min(minAck, Version()).
func (t *Tracker[K]) Compact(minAck Version) int {
	if minAck > t.version {
		minAck = t.version
	}
	dropped := 0
	for k, r := range t.keys {
		if r.deleted != 0 && r.deleted <= minAck {
			delete(t.keys, k)
			dropped++
		}
	}
	if minAck > t.floor {
		t.floor = minAck
	}
	return dropped
}

// Tombstones returns the number of retained deleted keys.
func (t *Tracker[K]) Tombstones() int {
	n := 0
	for _, r := range t.keys {
		if r.deleted != 0 {
			n++
		}
	}
	return n
}

type keyRecord[K comparable] struct {
	k K
	r *record
}

func (t *Tracker[K]) sorted() []keyRecord[K] {
	out := make([]keyRecord[K], 0, len(t.keys))
	for k, r := range t.keys {
		out = append(out, keyRecord[K]{k: k, r: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].r.order < out[j].r.order })
	return out
}

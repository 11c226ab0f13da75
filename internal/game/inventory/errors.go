package inventory

import "errors"

// Sentinel errors returned (wrapped) by container operations. Callers test
// them with errors.Is.
var (
	// ErrInvalidArgument reports a nil definition, a non-positive quantity,
	// or a slot index outside the permitted range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound reports an unknown entry id.
	ErrNotFound = errors.New("entry not found")
	// ErrCapacityExceeded reports that a new stack was required but the
	// container is at its slot limit, or that a target stack is full.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrFilterRejected reports that the acceptance filter rejected the
	// definition's combined tags.
	ErrFilterRejected = errors.New("rejected by container filter")
	// ErrIncompatibleMerge reports that the target slot holds an entry that
	// cannot absorb the moved stack.
	ErrIncompatibleMerge = errors.New("incompatible merge target")
	// ErrNoAuthority reports a mutation attempted by a non-authoritative
	// owner.
	ErrNoAuthority = errors.New("caller lacks authority")
	// ErrStaleFrame reports a replication frame that does not continue the
	// mirror's current version.
	ErrStaleFrame = errors.New("stale replication frame")
)

package replication_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stockpile/internal/replication"
)

func TestTracker_SinceClassifiesChanges(t *testing.T) {
	tr := replication.NewTracker[string]()
	tr.Created("a")
	tr.Created("b")
	tr.Created("c")
	mark := tr.Version()

	tr.Updated("a")
	tr.Deleted("b")
	tr.Created("d")
	tr.Created("e")
	tr.Deleted("e")

	d := tr.Since(mark)
	assert.False(t, d.Reset)
	assert.Equal(t, mark, d.From)
	assert.Equal(t, tr.Version(), d.To)
	assert.Equal(t, []string{"d"}, d.Added)
	assert.Equal(t, []string{"a"}, d.Changed)
	assert.Equal(t, []string{"b"}, d.Removed)
}

func TestTracker_SinceZeroIsFullState(t *testing.T) {
	tr := replication.NewTracker[int]()
	tr.Created(1)
	tr.Created(2)
	tr.Updated(1)
	tr.Deleted(2)
	d := tr.Since(0)
	assert.Equal(t, []int{1}, d.Added)
	assert.Empty(t, d.Changed)
	assert.Empty(t, d.Removed)
}

func TestTracker_UpToDateIsEmpty(t *testing.T) {
	tr := replication.NewTracker[int]()
	tr.Created(1)
	assert.True(t, tr.Since(tr.Version()).Empty())
}

func TestTracker_DeleteUnknownIsNoop(t *testing.T) {
	tr := replication.NewTracker[int]()
	v := tr.Deleted(9)
	assert.Equal(t, replication.Version(0), v)
	tr.Created(1)
	tr.Deleted(1)
	before := tr.Version()
	tr.Deleted(1)
	assert.Equal(t, before, tr.Version())
}

func TestTracker_CompactResetsLaggingObservers(t *testing.T) {
	tr := replication.NewTracker[string]()
	tr.Created("a")
	tr.Created("b")
	old := tr.Version()
	tr.Deleted("a")
	acked := tr.Version()

	require.Equal(t, 1, tr.Tombstones())
	assert.Equal(t, 1, tr.Compact(acked))
	assert.Equal(t, 0, tr.Tombstones())
	assert.Equal(t, acked, tr.Floor())

	d := tr.Since(old)
	assert.True(t, d.Reset)
	assert.Equal(t, []string{"b"}, d.Added)

	assert.False(t, tr.Since(acked).Reset)
}

func TestTracker_CompactClampsToVersion(t *testing.T) {
	tr := replication.NewTracker[int]()
	tr.Created(1)
	tr.Compact(100)
	assert.Equal(t, tr.Version(), tr.Floor())
}

// TestTracker_Convergence_Property applies random change sequences and checks
// that a replica following deltas from arbitrary sync points always ends with
// the live key set.
func TestTracker_Convergence_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := replication.NewTracker[int]()
		replica := map[int]bool{}
		var seen replication.Version
		next := 0
		live := map[int]bool{}

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0, 1:
				tr.Created(next)
				live[next] = true
				next++
			case 2:
				if next > 0 {
					k := rapid.IntRange(0, next-1).Draw(rt, "upd")
					if live[k] {
						tr.Updated(k)
					}
				}
			case 3:
				if next > 0 {
					k := rapid.IntRange(0, next-1).Draw(rt, "del")
					tr.Deleted(k)
					delete(live, k)
				}
			case 4:
				d := tr.Since(seen)
				if d.Reset {
					replica = map[int]bool{}
				}
				for _, k := range d.Added {
					replica[k] = true
				}
				for _, k := range d.Removed {
					delete(replica, k)
				}
				seen = d.To
				if rapid.Bool().Draw(rt, "compact") {
					tr.Compact(seen)
				}
			}
		}
		d := tr.Since(seen)
		if d.Reset {
			replica = map[int]bool{}
		}
		for _, k := range d.Added {
			replica[k] = true
		}
		for _, k := range d.Removed {
			delete(replica, k)
		}
		assert.Equal(rt, live, replica)
	})
}

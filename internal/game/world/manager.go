package world

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/loot"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

// WorldActorID owns storages that name no owner.
const WorldActorID = "world"

// ContainerDefaults fills in the slot limit and filter of containers whose
// layout entry leaves them unset.
type ContainerDefaults struct {
	MaxSlots int
	Filter   tag.Query
}

// ManagerOptions configures NewManager.
type ManagerOptions struct {
	// Catalog resolves loot table items; required when any storage names a
	// table.
	Catalog  loot.Catalog
	Tables   loot.Index
	Defaults map[inventory.Kind]ContainerDefaults
	Logger   *zap.Logger
}

// Manager provides thread-safe lookup of the actors and containers built
// from the loaded layouts.
type Manager struct {
	mu         sync.RWMutex
	actors     map[string]*Actor
	containers map[string]*inventory.Container
	storages   []*Storage
}

// NewManager builds every actor, container and storage the layouts
// declare, seeding storages from their loot tables.
//
// Precondition: every layout passed Validate.
// Postcondition: Returns a Manager with all containers indexed by ID, or an
// error on duplicate ids or dangling owner and table references.
func NewManager(layouts []*Layout, opts ManagerOptions) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &Manager{
		actors:     make(map[string]*Actor),
		containers: make(map[string]*inventory.Container),
	}

	for _, l := range layouts {
		for _, as := range l.Actors {
			if as.ID == WorldActorID {
				return nil, fmt.Errorf("layout %q: actor ID %q is reserved", l.ID, as.ID)
			}
			if _, exists := m.actors[as.ID]; exists {
				return nil, fmt.Errorf("layout %q: duplicate actor ID %q", l.ID, as.ID)
			}
			actor := NewActor(as.ID, as.Authority)
			m.actors[as.ID] = actor
			for _, cs := range as.Containers {
				d := opts.Defaults[cs.Kind]
				c, err := inventory.NewContainer(inventory.Options{
					ID:       cs.ID,
					Kind:     cs.Kind,
					MaxSlots: orInt(cs.MaxSlots, d.MaxSlots),
					Filter:   orQuery(cs.Filter, d.Filter),
					Tags:     cs.Tags,
					Owner:    actor,
					Logger:   opts.Logger,
				})
				if err != nil {
					return nil, fmt.Errorf("layout %q: %w", l.ID, err)
				}
				if err := m.addContainer(l.ID, c); err != nil {
					return nil, err
				}
			}
		}
	}

	// Storages are built after every actor so owners may live in any layout.
	d := opts.Defaults[inventory.KindStorage]
	for _, l := range layouts {
		for _, ss := range l.Storages {
			owner, err := m.storageOwner(l.ID, ss.Owner)
			if err != nil {
				return nil, err
			}
			so := StorageOptions{
				ID:       ss.ID,
				MaxSlots: orInt(ss.MaxSlots, d.MaxSlots),
				Filter:   orQuery(ss.Filter, d.Filter),
				Tags:     ss.Tags,
				Seed:     ss.Seed,
				Logger:   opts.Logger,
			}
			if ss.Table != "" {
				table, ok := opts.Tables[ss.Table]
				if !ok {
					return nil, fmt.Errorf("layout %q: storage %q: unknown loot table %q", l.ID, ss.ID, ss.Table)
				}
				if opts.Catalog == nil {
					return nil, fmt.Errorf("layout %q: storage %q: loot table requires a catalog", l.ID, ss.ID)
				}
				so.Loot = loot.NewGenerator(table, opts.Catalog, opts.Logger)
			}
			s, err := NewStorage(owner, so)
			if err != nil {
				return nil, fmt.Errorf("layout %q: %w", l.ID, err)
			}
			if err := m.addContainer(l.ID, s.Container); err != nil {
				return nil, err
			}
			m.storages = append(m.storages, s)
			opts.Logger.Debug("storage seeded",
				zap.String("storage", s.Container.ID()),
				zap.Int("rolls", s.Loot.Rolls),
				zap.Int("placed", s.Loot.Placed()),
			)
		}
	}
	return m, nil
}

func (m *Manager) addContainer(layout string, c *inventory.Container) error {
	if _, exists := m.containers[c.ID()]; exists {
		return fmt.Errorf("layout %q: duplicate container ID %q", layout, c.ID())
	}
	m.containers[c.ID()] = c
	return nil
}

func (m *Manager) storageOwner(layout, id string) (*Actor, error) {
	if id == "" {
		id = WorldActorID
		if _, ok := m.actors[id]; !ok {
			m.actors[id] = NewActor(id, true)
		}
	}
	a, ok := m.actors[id]
	if !ok {
		return nil, fmt.Errorf("layout %q: storage owner %q is not a known actor", layout, id)
	}
	return a, nil
}

func orInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func orQuery(q, fallback tag.Query) tag.Query {
	if q.IsEmpty() {
		return fallback
	}
	return q
}

// Actor returns the actor with the given id.
func (m *Manager) Actor(id string) (*Actor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actors[id]
	return a, ok
}

// Container returns the container with the given id.
func (m *Manager) Container(id string) (*inventory.Container, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.containers[id]
	return c, ok
}

// Containers returns every container sorted by id.
func (m *Manager) Containers() []*inventory.Container {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*inventory.Container, 0, len(m.containers))
	for _, c := range m.containers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Storages returns the storage actors in layout order.
func (m *Manager) Storages() []*Storage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Storage(nil), m.storages...)
}

// ActorCount returns the number of actors, including the world actor when
// a storage needed it.
func (m *Manager) ActorCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actors)
}

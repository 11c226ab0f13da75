package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/loot"
	"github.com/cory-johannsen/stockpile/internal/observability"
	"github.com/cory-johannsen/stockpile/internal/replication"
)

// ErrStopped is returned by calls made after the loop has stopped.
var ErrStopped = errors.New("gameserver: loop stopped")

// Update carries one container's changes from a flush: the delta since the
// previous flush and the full state after it.
type Update struct {
	Delta    inventory.Frame
	Snapshot inventory.Frame
}

// Sink receives the updates of every flush. Publish is called on the loop
// goroutine and must not block for long.
type Sink interface {
	Publish(ctx context.Context, updates []Update) error
}

// Config tunes the loop.
type Config struct {
	// TickInterval is the period between flushes.
	TickInterval time.Duration
	// CommandBuffer is the capacity of the request queue.
	CommandBuffer int
}

// Loop is the single authoritative mutator of every registered container.
// Commands, joins and compaction all run sequentially on the loop goroutine;
// after each tick the loop flushes container deltas to its sinks.
//
// Invariant: containers are touched only by the loop goroutine once Start
// has been called.
type Loop struct {
	cfg     Config
	catalog loot.Catalog
	tables  loot.Index
	logger  *zap.Logger

	reqs     chan func()
	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	containers map[string]*inventory.Container
	sent       map[string]replication.Version

	sinkMu sync.RWMutex
	sinks  []Sink
}

// NewLoop returns a Loop resolving items through catalog and loot tables
// through tables.
//
// Precondition: cfg.TickInterval must be > 0; catalog must be non-nil.
func NewLoop(cfg Config, catalog loot.Catalog, tables loot.Index, logger *zap.Logger) *Loop {
	if cfg.TickInterval <= 0 {
		panic("gameserver.NewLoop: tick interval must be > 0")
	}
	if catalog == nil {
		panic("gameserver.NewLoop: catalog must not be nil")
	}
	if cfg.CommandBuffer < 0 {
		cfg.CommandBuffer = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		cfg:        cfg,
		catalog:    catalog,
		tables:     tables,
		logger:     logger,
		reqs:       make(chan func(), cfg.CommandBuffer),
		done:       make(chan struct{}),
		containers: make(map[string]*inventory.Container),
		sent:       make(map[string]replication.Version),
	}
}

// AddContainer registers c. Registration is only allowed before Start.
func (l *Loop) AddContainer(c *inventory.Container) error {
	if l.running.Load() {
		return fmt.Errorf("gameserver: Loop.AddContainer: loop already running")
	}
	if _, dup := l.containers[c.ID()]; dup {
		return fmt.Errorf("gameserver: Loop.AddContainer: container %q already registered", c.ID())
	}
	l.containers[c.ID()] = c
	return nil
}

// AddSink registers s to receive flushed updates.
func (l *Loop) AddSink(s Sink) {
	l.sinkMu.Lock()
	defer l.sinkMu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Start runs the loop until Stop is called. It implements server.Service.
func (l *Loop) Start() error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("gameserver: Loop.Start: already started")
	}
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()
	l.logger.Info("simulation loop started",
		zap.Duration("tick_interval", l.cfg.TickInterval),
		zap.Int("containers", len(l.containers)),
	)
	for {
		select {
		case <-l.done:
			l.flush()
			return nil
		case fn := <-l.reqs:
			fn()
		case <-ticker.C:
			l.flush()
		}
	}
}

// Stop ends the loop after a final flush. It is idempotent.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	req := func() {
		fn()
		close(finished)
	}
	select {
	case l.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Submit executes cmd on the loop goroutine and returns its result.
func (l *Loop) Submit(ctx context.Context, cmd Command) (Result, error) {
	var (
		res Result
		err error
	)
	if derr := l.do(ctx, func() { res, err = l.execute(cmd) }); derr != nil {
		return Result{}, derr
	}
	if err != nil {
		l.logger.Debug("command rejected",
			zap.String("op", string(cmd.Op)),
			observability.Container(cmd.Container),
			zap.Error(err),
		)
	}
	return res, err
}

// Join flushes pending changes and hands fn the full frames of the named
// containers, all on the loop goroutine, so a subscriber registered inside
// fn receives every later delta without a gap.
func (l *Loop) Join(ctx context.Context, ids []string, fn func(full []inventory.Frame)) error {
	var err error
	derr := l.do(ctx, func() {
		for _, id := range ids {
			if _, cerr := l.container(id); cerr != nil {
				err = cerr
				return
			}
		}
		l.flush()
		frames := make([]inventory.Frame, len(ids))
		for i, id := range ids {
			frames[i] = l.containers[id].FullFrame()
		}
		fn(frames)
	})
	if derr != nil {
		return derr
	}
	return err
}

// Compact drops tombstones of container id that every observer has
// acknowledged.
func (l *Loop) Compact(ctx context.Context, id string, minAck replication.Version) error {
	var err error
	derr := l.do(ctx, func() {
		c, cerr := l.container(id)
		if cerr != nil {
			err = cerr
			return
		}
		if n := c.Compact(minAck); n > 0 {
			l.logger.Debug("tombstones compacted", observability.Container(id), zap.Int("dropped", n))
		}
	})
	if derr != nil {
		return derr
	}
	return err
}

// Snapshot returns the full frame of container id.
func (l *Loop) Snapshot(ctx context.Context, id string) (inventory.Frame, error) {
	var (
		f   inventory.Frame
		err error
	)
	derr := l.do(ctx, func() {
		c, cerr := l.container(id)
		if cerr != nil {
			err = cerr
			return
		}
		f = c.FullFrame()
	})
	if derr != nil {
		return inventory.Frame{}, derr
	}
	return f, err
}

// ContainerIDs returns the registered container ids in sorted order.
func (l *Loop) ContainerIDs() []string {
	ids := make([]string, 0, len(l.containers))
	for id := range l.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Loop) container(id string) (*inventory.Container, error) {
	c, ok := l.containers[id]
	if !ok {
		return nil, fmt.Errorf("gameserver: %w: container %q", inventory.ErrNotFound, id)
	}
	return c, nil
}

// flush publishes every container's changes since the previous flush.
//
// Precondition: called on the loop goroutine.
func (l *Loop) flush() {
	var updates []Update
	for _, id := range l.ContainerIDs() {
		c := l.containers[id]
		d := c.Delta(l.sent[id])
		if d.Empty() {
			continue
		}
		l.sent[id] = d.To
		updates = append(updates, Update{Delta: d, Snapshot: c.FullFrame()})
	}
	if len(updates) == 0 {
		return
	}

	l.sinkMu.RLock()
	sinks := append([]Sink(nil), l.sinks...)
	l.sinkMu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.TickInterval)
	defer cancel()
	for _, s := range sinks {
		if err := s.Publish(ctx, updates); err != nil {
			l.logger.Warn("sink publish failed", zap.Error(err))
		}
	}
}

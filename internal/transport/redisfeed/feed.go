// Package redisfeed mirrors container replication onto Redis: every flush
// publishes the delta on a per-container channel and stores the full
// snapshot under a per-container key.
package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/gameserver"
	"github.com/cory-johannsen/stockpile/internal/observability"
)

// DefaultPrefix namespaces every key and channel.
const DefaultPrefix = "stockpile"

// Client is the subset of the go-redis client the feed uses.
type Client interface {
	redis.Cmdable
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Options configures a Feed.
type Options struct {
	// Prefix namespaces keys and channels; DefaultPrefix when empty.
	Prefix string
	// SnapshotTTL expires stored snapshots; zero keeps them forever.
	SnapshotTTL time.Duration
}

// Feed publishes loop updates to Redis and reads them back. It implements
// gameserver.Sink.
type Feed struct {
	client Client
	opts   Options
	logger *zap.Logger
}

// NewFeed returns a Feed writing through client.
//
// Precondition: client must be non-nil.
func NewFeed(client Client, opts Options, logger *zap.Logger) *Feed {
	if client == nil {
		panic("redisfeed.NewFeed: client must not be nil")
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{client: client, opts: opts, logger: logger}
}

// NewClient dials a single Redis instance.
func NewClient(addr string, poolSize int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redisfeed: address is required")
	}
	return redis.NewClient(&redis.Options{Addr: addr, PoolSize: poolSize}), nil
}

// Channel returns the pub/sub channel carrying deltas of container id.
func (f *Feed) Channel(id string) string {
	return fmt.Sprintf("%s:container:%s", f.opts.Prefix, id)
}

// SnapshotKey returns the key holding the latest full frame of container id.
func (f *Feed) SnapshotKey(id string) string {
	return f.Channel(id) + ":snapshot"
}

// Publish implements gameserver.Sink. Snapshots are written before deltas
// are published so a subscriber that falls behind can always resync.
func (f *Feed) Publish(ctx context.Context, updates []gameserver.Update) error {
	_, err := f.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, u := range updates {
			snap, err := json.Marshal(u.Snapshot)
			if err != nil {
				return err
			}
			delta, err := json.Marshal(u.Delta)
			if err != nil {
				return err
			}
			p.Set(ctx, f.SnapshotKey(u.Snapshot.Container), snap, f.opts.SnapshotTTL)
			p.Publish(ctx, f.Channel(u.Delta.Container), delta)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisfeed: Feed.Publish: %w", err)
	}
	return nil
}

// Snapshot returns the latest stored full frame of container id.
func (f *Feed) Snapshot(ctx context.Context, id string) (inventory.Frame, error) {
	data, err := f.client.Get(ctx, f.SnapshotKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return inventory.Frame{}, fmt.Errorf("redisfeed: Feed.Snapshot: %w: container %q", inventory.ErrNotFound, id)
	}
	if err != nil {
		return inventory.Frame{}, fmt.Errorf("redisfeed: Feed.Snapshot: %w", err)
	}
	var frame inventory.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return inventory.Frame{}, fmt.Errorf("redisfeed: Feed.Snapshot: %w", err)
	}
	return frame, nil
}

// Follow keeps mirror in step with its container until ctx is done. It
// loads the stored snapshot, then applies published deltas, reloading the
// snapshot whenever a delta does not start at the mirror's version.
//
// Postcondition: returns nil when ctx is cancelled.
func (f *Feed) Follow(ctx context.Context, mirror *inventory.Mirror) error {
	id := mirror.Container()
	sub := f.client.Subscribe(ctx, f.Channel(id))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redisfeed: Feed.Follow: %w", err)
	}
	if err := f.resync(ctx, mirror); err != nil && !errors.Is(err, inventory.ErrNotFound) {
		return err
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var delta inventory.Frame
			if err := json.Unmarshal([]byte(msg.Payload), &delta); err != nil {
				f.logger.Warn("discarding malformed frame", observability.Container(id), zap.Error(err))
				continue
			}
			if delta.To <= mirror.Version() {
				continue
			}
			if err := mirror.Apply(delta); err != nil {
				f.logger.Debug("delta out of step; resyncing", observability.Container(id), zap.Error(err))
				if err := f.resync(ctx, mirror); err != nil {
					return err
				}
			}
		}
	}
}

func (f *Feed) resync(ctx context.Context, mirror *inventory.Mirror) error {
	frame, err := f.Snapshot(ctx, mirror.Container())
	if err != nil {
		return err
	}
	if frame.To < mirror.Version() {
		return nil
	}
	return mirror.Apply(frame)
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/gameserver"
	"github.com/cory-johannsen/stockpile/internal/observability"
	"github.com/cory-johannsen/stockpile/internal/replication"
)

// Control frame payloads are limited to 125 bytes, two of which carry the
// close code.
const maxCloseReason = 123

// Engine is the simulation surface the hub needs.
type Engine interface {
	Join(ctx context.Context, ids []string, fn func(full []inventory.Frame)) error
	Submit(ctx context.Context, cmd gameserver.Command) (gameserver.Result, error)
	Compact(ctx context.Context, id string, minAck replication.Version) error
}

// Config tunes the hub.
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteTimeout    time.Duration
	// SendBuffer is the number of messages queued per observer before the
	// observer is dropped as too slow.
	SendBuffer int
}

// Hub fans replication frames out to websocket observers. It implements
// gameserver.Sink and http.Handler.
type Hub struct {
	engine   Engine
	cfg      Config
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	id         string
	conn       *websocket.Conn
	containers []string
	acks       map[string]replication.Version
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) watches(id string) bool {
	for _, w := range c.containers {
		if w == id {
			return true
		}
	}
	return false
}

// NewHub returns a Hub serving observers of engine.
//
// Precondition: engine must be non-nil.
func NewHub(engine Engine, cfg Config, logger *zap.Logger) *Hub {
	if engine == nil {
		panic("ws.NewHub: engine must not be nil")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		engine: engine,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Observers returns the number of connected observers.
func (h *Hub) Observers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades /ws?observer=<id>&containers=a,b and streams a full
// frame per container followed by deltas.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	observer := r.URL.Query().Get("observer")
	if observer == "" {
		http.Error(w, "missing observer", http.StatusBadRequest)
		return
	}
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("containers"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		http.Error(w, "missing containers", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", observability.Observer(observer), zap.Error(err))
		return
	}
	c := &client{
		id:         observer,
		conn:       conn,
		containers: ids,
		acks:       make(map[string]replication.Version, len(ids)),
		send:       make(chan []byte, h.cfg.SendBuffer+len(ids)),
		done:       make(chan struct{}),
	}

	err = h.engine.Join(r.Context(), ids, func(full []inventory.Frame) {
		h.register(c, full)
	})
	if err != nil {
		h.logger.Info("observer join refused", observability.Observer(observer), zap.Error(err))
		reason := err.Error()
		if len(reason) > maxCloseReason {
			reason = reason[:maxCloseReason]
		}
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
		conn.Close()
		return
	}
	h.logger.Info("observer joined", observability.Observer(observer), zap.Strings("containers", ids))

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

// register adds c and queues its full frames. It runs on the loop
// goroutine inside Join, so no flush can interleave.
func (h *Hub) register(c *client, full []inventory.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[c.id]; ok {
		old.close()
	}
	h.clients[c.id] = c
	for i := range full {
		f := full[i]
		c.acks[f.Container] = f.To
		if data, err := json.Marshal(ServerMessage{Type: TypeFrame, Frame: &f}); err == nil {
			c.send <- data
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
	h.logger.Info("observer left", observability.Observer(c.id))
}

// Publish implements gameserver.Sink. Observers whose queue is full are
// dropped; they resynchronize with a full frame when they reconnect.
func (h *Hub) Publish(_ context.Context, updates []gameserver.Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range updates {
		f := updates[i].Delta
		data, err := json.Marshal(ServerMessage{Type: TypeFrame, Frame: &f})
		if err != nil {
			return err
		}
		for _, c := range h.clients {
			if !c.watches(f.Container) {
				continue
			}
			select {
			case c.send <- data:
			default:
				h.logger.Warn("observer too slow; dropping", observability.Observer(c.id))
				delete(h.clients, c.id)
				c.close()
			}
		}
	}
	return nil
}

func (h *Hub) writePump(c *client) {
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer h.unregister(c)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Debug("discarding malformed message", observability.Observer(c.id), zap.Error(err))
			continue
		}
		switch msg.Type {
		case TypeAck:
			h.ack(ctx, c, msg.Container, msg.Version)
		case TypeCommand:
			h.command(ctx, c, msg)
		default:
			h.logger.Debug("discarding unknown message", observability.Observer(c.id), zap.String("type", msg.Type))
		}
	}
}

// ack records the observer's version and compacts tombstones up to the
// lowest version acknowledged by every observer of the container.
func (h *Hub) ack(ctx context.Context, c *client, container string, v replication.Version) {
	h.mu.Lock()
	if !c.watches(container) || v < c.acks[container] {
		h.mu.Unlock()
		return
	}
	c.acks[container] = v
	minAck := v
	for _, other := range h.clients {
		if a, ok := other.acks[container]; ok && a < minAck {
			minAck = a
		}
	}
	h.mu.Unlock()

	if err := h.engine.Compact(ctx, container, minAck); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug("compact failed", observability.Container(container), zap.Error(err))
	}
}

func (h *Hub) command(ctx context.Context, c *client, msg ClientMessage) {
	reply := ServerMessage{Type: TypeCommandAck, Seq: msg.Seq}
	if msg.Command == nil {
		reply.Type = TypeCommandReject
		reply.Reason = "missing command"
	} else if res, err := h.engine.Submit(ctx, *msg.Command); err != nil {
		reply.Type = TypeCommandReject
		reply.Reason = err.Error()
	} else {
		reply.Result = &res
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

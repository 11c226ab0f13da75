// Package ws streams container replication frames to websocket observers
// and forwards their commands to the simulation loop.
package ws

import (
	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/gameserver"
	"github.com/cory-johannsen/stockpile/internal/replication"
)

// Message types.
const (
	TypeFrame         = "frame"
	TypeAck           = "ack"
	TypeCommand       = "command"
	TypeCommandAck    = "command_ack"
	TypeCommandReject = "command_reject"
)

// ServerMessage is sent from the hub to an observer.
type ServerMessage struct {
	Type   string             `json:"type"`
	Frame  *inventory.Frame   `json:"frame,omitempty"`
	Seq    uint64             `json:"seq,omitempty"`
	Result *gameserver.Result `json:"result,omitempty"`
	Reason string             `json:"reason,omitempty"`
}

// ClientMessage is sent from an observer to the hub. Acks carry Container
// and Version; commands carry Seq and Command.
type ClientMessage struct {
	Type      string              `json:"type"`
	Container string              `json:"container,omitempty"`
	Version   replication.Version `json:"version,omitempty"`
	Seq       uint64              `json:"seq,omitempty"`
	Command   *gameserver.Command `json:"command,omitempty"`
}

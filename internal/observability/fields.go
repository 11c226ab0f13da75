package observability

import (
	"go.uber.org/zap"
)

// Field keys shared by every component, so that the lines describing one
// container can be joined across the loop, the transports and the engine.
const (
	KeyContainer = "container"
	KeyKind      = "kind"
	KeyOwner     = "owner"
	KeyObserver  = "observer"
	KeyTable     = "table"
)

// Container tags a log line with a container id.
func Container(id string) zap.Field { return zap.String(KeyContainer, id) }

// Observer tags a log line with a replication observer id.
func Observer(id string) zap.Field { return zap.String(KeyObserver, id) }

// Table tags a log line with a loot table id.
func Table(id string) zap.Field { return zap.String(KeyTable, id) }

// ForContainer returns a child of logger carrying the identity of one
// container. An empty owner is omitted.
//
// Postcondition: the result is never nil.
func ForContainer(logger *zap.Logger, id, kind, owner string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	fields := []zap.Field{Container(id), zap.String(KeyKind, kind)}
	if owner != "" {
		fields = append(fields, zap.String(KeyOwner, owner))
	}
	return logger.With(fields...)
}

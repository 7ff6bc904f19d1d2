package handle

import (
	"go.uber.org/zap"
)

// EventType identifies a lifecycle transition observed on a registry.
type EventType uint8

const (
	// EventCreated fires when New allocates a handle.
	EventCreated EventType = iota

	// EventLinked fires when AddDependency stores an edge.
	EventLinked

	// EventReleased fires once per claim released, including the releases
	// a cascade applies to dependency edges.
	EventReleased

	// EventDestroyed fires after a handle's slot is invalidated. The
	// destructor, if any, has already run.
	EventDestroyed
)

// String returns the event type's wire name.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventLinked:
		return "linked"
	case EventReleased:
		return "released"
	case EventDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Event describes a lifecycle transition. Related is the dependency handle
// for EventLinked and zero otherwise. RefCount is the count after the
// transition; for EventLinked it is Related's count, every other type
// reports Handle's.
type Event struct {
	Resource any
	Handle   Handle
	Related  Handle
	RefCount uint32
	Type     EventType
}

// Observer receives notifications about handle lifecycle events.
// Callbacks run outside the registry lock and may call back into it.
type Observer interface {
	OnHandleEvent(Event)
}

// LogObserver mirrors a registry's event stream to a zap logger at debug
// level. Useful for tracing teardown cascades during development.
type LogObserver struct {
	log *zap.Logger
}

// NewLogObserver creates an observer writing to log. A nil log falls back
// to the package logger.
func NewLogObserver(log *zap.Logger) *LogObserver {
	if log == nil {
		log = Logger()
	}
	return &LogObserver{log: log}
}

// OnHandleEvent implements Observer.
func (o *LogObserver) OnHandleEvent(e Event) {
	o.log.Debug("handle event",
		zap.String("type", e.Type.String()),
		zap.Uint32("handle", uint32(e.Handle)),
		zap.Uint32("related", uint32(e.Related)),
		zap.Uint32("refcount", e.RefCount))
}

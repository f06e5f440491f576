// Package kernel is the per-tick world update: it advances the clock, forgets
// expired events, runs host generators and folds their output into the world.
//
// The kernel is generic over two host-supplied variant sets: E for event
// contents and O for object types. It never looks inside a variant beyond the
// two capability interfaces below.
package kernel

import (
	"math/big"

	"hakoniwa.dev/internal/sim/chrono"
	"hakoniwa.dev/internal/sim/geom"
)

// ObjectType is what every object variant must expose.
type ObjectType interface {
	// Name is the human-readable kind of object ("pine", "villager", ...).
	Name() string
	// GeneratedPoint is where the instance came into the world.
	GeneratedPoint() geom.Point
}

// EventContents is what every event variant must expose.
type EventContents interface {
	// DoObject is the id of the object that caused the event.
	DoObject() string
	// TargetObject is the id of the object the event acted on, if any.
	TargetObject() (string, bool)
	// Lifetime is how long the event is remembered. ok=false means forever.
	Lifetime() (lifetime chrono.Time, ok bool)
	// MoveObject names an object to relocate and its destination, if any.
	MoveObject() (id string, to geom.Point, ok bool)
}

// GeneratedData is one generator's output for one tick.
type GeneratedData[E EventContents, O ObjectType] struct {
	Events          []E
	GenerateObjects []O
	RemoveObjects   []string
}

// Generator produces new events, objects and removals from the world as it is
// at the start of a tick. Implementations must treat the context as read-only.
type Generator[E EventContents, O ObjectType] interface {
	Produce(c *Context[E, O]) GeneratedData[E, O]
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc[E EventContents, O ObjectType] func(c *Context[E, O]) GeneratedData[E, O]

func (f GeneratorFunc[E, O]) Produce(c *Context[E, O]) GeneratedData[E, O] { return f(c) }

// IDAssigner names newly generated objects.
type IDAssigner interface {
	AssignID(name string, at geom.Point, tick *big.Int) string
}

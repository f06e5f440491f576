package kernel

import (
	"hakoniwa.dev/internal/sim/chrono"
	"hakoniwa.dev/internal/sim/geom"
)

// Object is a registry entry. Only Point changes after creation (relocation).
type Object[O ObjectType] struct {
	GeneratedTime chrono.Time `json:"generated_time"`
	Point         geom.Point  `json:"point"`
	ObjectType    O           `json:"object_type"`
}

// Event is an entry of the world's memory. Events are never mutated.
type Event[E EventContents] struct {
	GeneratedTime chrono.Time `json:"generated_time"`
	// Lifetime is nil for events that are never forgotten.
	Lifetime *chrono.Time `json:"lifetime,omitempty"`
	Contents E            `json:"contents"`
	DoObject string       `json:"do_object"`
	// TargetObject is empty when the event has no target.
	TargetObject string `json:"target_object,omitempty"`
}

func (e Event[E]) Target() (string, bool) {
	return e.TargetObject, e.TargetObject != ""
}

// Expired reports whether the event must be forgotten at now:
// generated_time.all + lifetime.all < now.all.
func (e Event[E]) Expired(now chrono.Time) bool {
	if e.Lifetime == nil {
		return false
	}
	return e.GeneratedTime.Add(*e.Lifetime).Cmp(now) < 0
}

// Entry is an (id, object) pair used to seed a world.
type Entry[O ObjectType] struct {
	ID     string
	Object Object[O]
}

// Context is the whole world state.
//
// Hosts may read the fields between ticks; every mutation goes through Run.
type Context[E EventContents, O ObjectType] struct {
	Time    chrono.Time
	Memory  []Event[E]
	Objects map[string]Object[O]
}

func NewContext[E EventContents, O ObjectType](now chrono.Time, objects []Entry[O]) *Context[E, O] {
	c := &Context[E, O]{
		Time:    now,
		Objects: make(map[string]Object[O], len(objects)),
	}
	for _, e := range objects {
		c.Objects[e.ID] = e.Object
	}
	return c
}

// Spawn builds an object the way the tick engine does: stamped with now and
// placed at the variant's own origin point.
func Spawn[O ObjectType](now chrono.Time, o O) Object[O] {
	return Object[O]{GeneratedTime: now, Point: o.GeneratedPoint(), ObjectType: o}
}

// Evict drops every expired event, keeping the order of the rest.
// It returns the number of events removed.
func (c *Context[E, O]) Evict() int {
	kept := c.Memory[:0]
	for _, e := range c.Memory {
		if e.Expired(c.Time) {
			continue
		}
		kept = append(kept, e)
	}
	n := len(c.Memory) - len(kept)
	// Clear the tail so evicted contents can be collected.
	var zero Event[E]
	for i := len(kept); i < len(c.Memory); i++ {
		c.Memory[i] = zero
	}
	c.Memory = kept
	return n
}

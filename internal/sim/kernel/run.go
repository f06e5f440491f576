package kernel

import "hakoniwa.dev/internal/sim/chrono"

// Report describes what one tick did to the world.
type Report[E EventContents, O ObjectType] struct {
	// Outputs holds each generator's raw output, in registration order.
	Outputs []GeneratedData[E, O]

	Evicted     int
	Appended    int
	Removed     int
	Relocated   int
	Unrelocated int // relocations whose target no longer existed
	Created     []string
}

// Run advances c by one tick and returns each generator's raw output.
func Run[E EventContents, O ObjectType](c *Context[E, O], gens []Generator[E, O], ids IDAssigner) []GeneratedData[E, O] {
	return Step(c, gens, ids).Outputs
}

// Step is Run with a full account of the tick.
//
// Order within a tick:
//  1. advance time by one unit-tick
//  2. forget expired events
//  3. run every generator against the same pre-update world
//  4. remove objects
//  5. append the new events to memory
//  6. relocate objects named by the new events (missing ids are skipped)
//  7. remove objects again
//  8. insert the new objects under fresh ids
func Step[E EventContents, O ObjectType](c *Context[E, O], gens []Generator[E, O], ids IDAssigner) Report[E, O] {
	c.Time = c.Time.PlusOne()
	now := c.Time
	tick := now.All()

	rep := Report[E, O]{Outputs: make([]GeneratedData[E, O], 0, len(gens))}
	rep.Evicted = c.Evict()

	var (
		newEvents  []Event[E]
		newObjects []Entry[O]
		removeIDs  []string
	)
	for _, g := range gens {
		out := g.Produce(c)
		rep.Outputs = append(rep.Outputs, out)

		for _, e := range out.Events {
			newEvents = append(newEvents, stampEvent(now, e))
		}
		removeIDs = append(removeIDs, out.RemoveObjects...)
		for _, o := range out.GenerateObjects {
			obj := Spawn(now, o)
			newObjects = append(newObjects, Entry[O]{
				ID:     ids.AssignID(o.Name(), obj.Point, tick),
				Object: obj,
			})
		}
	}

	rep.Removed = c.remove(removeIDs)

	c.Memory = append(c.Memory, newEvents...)
	rep.Appended = len(newEvents)

	for _, e := range newEvents {
		id, to, ok := e.Contents.MoveObject()
		if !ok {
			continue
		}
		obj, exists := c.Objects[id]
		if !exists {
			rep.Unrelocated++
			continue
		}
		obj.Point = to
		c.Objects[id] = obj
		rep.Relocated++
	}

	rep.Removed += c.remove(removeIDs)

	for _, e := range newObjects {
		c.Objects[e.ID] = e.Object
		rep.Created = append(rep.Created, e.ID)
	}
	return rep
}

func stampEvent[E EventContents](now chrono.Time, e E) Event[E] {
	ev := Event[E]{
		GeneratedTime: now,
		Contents:      e,
		DoObject:      e.DoObject(),
	}
	if lt, ok := e.Lifetime(); ok {
		ev.Lifetime = &lt
	}
	if target, ok := e.TargetObject(); ok {
		ev.TargetObject = target
	}
	return ev
}

func (c *Context[E, O]) remove(ids []string) int {
	n := 0
	for _, id := range ids {
		if _, ok := c.Objects[id]; ok {
			delete(c.Objects, id)
			n++
		}
	}
	return n
}

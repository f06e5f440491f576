package forest

import (
	"hakoniwa.dev/internal/sim/chrono"
	"hakoniwa.dev/internal/sim/geom"
)

type EventKind uint8

const (
	// Seed: Tree dropped a seed that took root at At.
	Seed EventKind = iota + 1
	// Death: Tree reached its lifespan and is removed.
	Death
	// Sway: wind pushed the sapling Tree to At.
	Sway
)

func (k EventKind) String() string {
	switch k {
	case Seed:
		return "seed"
	case Death:
		return "death"
	case Sway:
		return "sway"
	}
	return "unknown"
}

// Event is the forest's event contents.
type Event struct {
	Kind EventKind  `json:"kind"`
	Tree string     `json:"tree"`
	At   geom.Point `json:"at"`
	// Life is how long the event stays in memory. Nil means forever.
	Life *chrono.Time `json:"life,omitempty"`
}

func (e Event) DoObject() string { return e.Tree }

func (e Event) TargetObject() (string, bool) {
	switch e.Kind {
	case Death, Sway:
		return e.Tree, true
	}
	return "", false
}

func (e Event) Lifetime() (chrono.Time, bool) {
	if e.Life == nil {
		return chrono.Time{}, false
	}
	return *e.Life, true
}

func (e Event) MoveObject() (string, geom.Point, bool) {
	if e.Kind != Sway {
		return "", geom.Point{}, false
	}
	return e.Tree, e.At, true
}

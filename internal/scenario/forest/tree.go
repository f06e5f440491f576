package forest

import (
	"hakoniwa.dev/internal/sim/chrono"
	"hakoniwa.dev/internal/sim/geom"
	"hakoniwa.dev/internal/sim/kernel"
)

// Tree is the forest's only object type.
type Tree struct {
	Kind Kind `json:"kind"`
	// LifespanYears is drawn once at birth.
	LifespanYears uint64 `json:"lifespan_years"`
	// StartAge is the age in years the tree already had when it was placed.
	StartAge uint64     `json:"start_age,omitempty"`
	Origin   geom.Point `json:"origin"`
}

func (t Tree) Name() string               { return t.Kind.String() }
func (t Tree) GeneratedPoint() geom.Point { return t.Origin }

// AgeYears is the tree's age at now in whole years.
func AgeYears(obj kernel.Object[Tree], now chrono.Time) uint64 {
	lived, ok := now.Sub(obj.GeneratedTime)
	if !ok {
		return obj.ObjectType.StartAge
	}
	y := lived.Year()
	if !y.IsUint64() {
		return ^uint64(0)
	}
	return y.Uint64() + obj.ObjectType.StartAge
}

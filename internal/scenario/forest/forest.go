// Package forest is a tree population scenario for the tick engine: trees of
// four kinds age, drop seeds in autumn, die when they reach their lifespan,
// and saplings drift in the wind.
package forest

import (
	"fmt"
	"math/big"
	"math/rand"
	"sort"

	"hakoniwa.dev/internal/sim/chrono"
	"hakoniwa.dev/internal/sim/geom"
	"hakoniwa.dev/internal/sim/kernel"
	"hakoniwa.dev/internal/sim/tuning"
)

// Scenario is a ready-to-run forest: the initial state and its generators.
type Scenario struct {
	Config     Config
	Initial    *kernel.Context[Event, Tree]
	Generators []kernel.Generator[Event, Tree]
}

// Build creates the forest described by t. Initial trees get ids from
// assigner at tick 0, in file order. Every random draw derives from
// t.Forest.Seed, so the same tuning always builds the same run.
func Build(t tuning.Tuning, assigner kernel.IDAssigner) (*Scenario, error) {
	if err := chrono.Validate(new(big.Int).SetUint64(t.Calendar.DayTicks), new(big.Int).SetUint64(t.Calendar.YearDays)); err != nil {
		return nil, fmt.Errorf("forest: %w", err)
	}
	f := t.Forest
	cfg := Config{
		Width:        f.Width,
		Height:       f.Height,
		MaxTrees:     f.MaxTrees,
		WindPermille: f.WindPermille,
	}
	if f.EventLifetimeTicks > 0 {
		life := chrono.FromUint64(f.EventLifetimeTicks, t.Calendar.DayTicks, t.Calendar.YearDays)
		cfg.EventLife = &life
	}

	zero := chrono.Zero(t.Calendar.DayTicks, t.Calendar.YearDays)
	rng := rand.New(rand.NewSource(f.Seed))
	tick := big.NewInt(0)
	entries := make([]kernel.Entry[Tree], 0, len(f.InitialTrees))
	for i, spawn := range f.InitialTrees {
		kind, err := ParseKind(spawn.Kind)
		if err != nil {
			return nil, fmt.Errorf("forest: initial_trees[%d]: %w", i, err)
		}
		tree := Tree{
			Kind:          kind,
			LifespanYears: drawLifespan(rng, kind.Info()),
			StartAge:      spawn.AgeYears,
			Origin:        geom.FromUint64(spawn.X, spawn.Y),
		}
		// An initial tree always outlives its start age by at least a year.
		if tree.LifespanYears <= tree.StartAge {
			tree.LifespanYears = tree.StartAge + 1
		}
		id := assigner.AssignID(tree.Name(), tree.Origin, tick)
		entries = append(entries, kernel.Entry[Tree]{ID: id, Object: kernel.Spawn(zero, tree)})
	}

	return &Scenario{
		Config:  cfg,
		Initial: kernel.NewContext[Event, Tree](zero, entries),
		Generators: []kernel.Generator[Event, Tree]{
			NewAging(cfg),
			NewSeeding(cfg, f.Seed+1),
			NewWind(cfg, f.Seed+2),
		},
	}, nil
}

// KindCount is one row of a Census.
type KindCount struct {
	Kind  Kind `json:"kind"`
	Trees int  `json:"trees"`
}

// Census counts living trees per kind, largest first. Ties keep Kinds order
// and empty kinds are skipped.
func Census(c *kernel.Context[Event, Tree]) []KindCount {
	counts := map[Kind]int{}
	for _, obj := range c.Objects {
		counts[obj.ObjectType.Kind]++
	}
	out := make([]KindCount, 0, len(counts))
	for _, k := range Kinds() {
		if n := counts[k]; n > 0 {
			out = append(out, KindCount{Kind: k, Trees: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Trees > out[j].Trees })
	return out
}

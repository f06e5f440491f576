package forest

import (
	"math"
	"math/rand"
	"sort"

	"hakoniwa.dev/internal/sim/chrono"
	"hakoniwa.dev/internal/sim/geom"
	"hakoniwa.dev/internal/sim/kernel"
)

type (
	state  = kernel.Context[Event, Tree]
	output = kernel.GeneratedData[Event, Tree]
)

// Config is the part of the scenario the generators read on every tick.
type Config struct {
	Width    uint64
	Height   uint64
	MaxTrees int
	// EventLife is attached to every emitted event. Nil keeps events forever.
	EventLife    *chrono.Time
	WindPermille int
}

// Seeding drops seeds from mature trees once a day during the seeding season.
// A seed takes root only inside the grid and clear of every other tree's space.
type Seeding struct {
	cfg Config
	rng *rand.Rand
}

func NewSeeding(cfg Config, seed int64) *Seeding {
	return &Seeding{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

func (g *Seeding) Produce(c *state) output {
	var out output
	if !startOfDay(c.Time) {
		return out
	}
	yearDays, dayOfYear := c.Time.OneYearOfDay(), c.Time.RemainderDay()
	if !yearDays.IsUint64() || !InSeason(dayOfYear.Uint64(), yearDays.Uint64()) {
		return out
	}
	room := g.cfg.MaxTrees - len(c.Objects)
	if room <= 0 {
		return out
	}

	taken := stands(c)
	for _, id := range sortedIDs(c.Objects) {
		if room <= 0 {
			break
		}
		parent := c.Objects[id]
		info := parent.ObjectType.Kind.Info()
		if AgeYears(parent, c.Time) < info.SeedingAge {
			continue
		}
		px, py, ok := parent.Point.Uint64()
		if !ok {
			continue
		}
		n := int(g.rng.Float64() * info.MaxSeedsPerDay)
		for i := 0; i < n && room > 0; i++ {
			x, okx := scatter(g.rng, px, info.ScatterX, g.cfg.Width)
			y, oky := scatter(g.rng, py, info.ScatterY, g.cfg.Height)
			if !okx || !oky {
				continue
			}
			s := stand{x: x, y: y, r: info.SpaceAt(0)}
			if crowded(taken, s) {
				continue
			}
			sapling := Tree{
				Kind:          parent.ObjectType.Kind,
				LifespanYears: drawLifespan(g.rng, info),
				Origin:        geom.FromUint64(x, y),
			}
			out.GenerateObjects = append(out.GenerateObjects, sapling)
			out.Events = append(out.Events, Event{Kind: Seed, Tree: id, At: sapling.Origin, Life: g.cfg.EventLife})
			taken = append(taken, s)
			room--
		}
	}
	return out
}

// Aging removes trees that outlived their lifespan, checked once a day.
type Aging struct {
	cfg Config
}

func NewAging(cfg Config) *Aging { return &Aging{cfg: cfg} }

func (g *Aging) Produce(c *state) output {
	var out output
	if !startOfDay(c.Time) {
		return out
	}
	for _, id := range sortedIDs(c.Objects) {
		obj := c.Objects[id]
		if AgeYears(obj, c.Time) < obj.ObjectType.LifespanYears {
			continue
		}
		out.RemoveObjects = append(out.RemoveObjects, id)
		out.Events = append(out.Events, Event{Kind: Death, Tree: id, At: obj.Point, Life: g.cfg.EventLife})
	}
	return out
}

// Wind nudges one sapling (a tree younger than a year) by one cell, with a
// per-tick probability of WindPermille/1000.
type Wind struct {
	cfg Config
	rng *rand.Rand
}

func NewWind(cfg Config, seed int64) *Wind {
	return &Wind{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

func (g *Wind) Produce(c *state) output {
	var out output
	if g.cfg.WindPermille <= 0 || g.rng.Intn(1000) >= g.cfg.WindPermille {
		return out
	}
	var saplings []string
	for _, id := range sortedIDs(c.Objects) {
		if AgeYears(c.Objects[id], c.Time) == 0 {
			saplings = append(saplings, id)
		}
	}
	if len(saplings) == 0 {
		return out
	}
	id := saplings[g.rng.Intn(len(saplings))]
	x, y, ok := c.Objects[id].Point.Uint64()
	if !ok {
		return out
	}
	nx, okx := scatter(g.rng, x, 1, g.cfg.Width)
	ny, oky := scatter(g.rng, y, 1, g.cfg.Height)
	if !okx || !oky || (nx == x && ny == y) {
		return out
	}
	out.Events = append(out.Events, Event{Kind: Sway, Tree: id, At: geom.FromUint64(nx, ny), Life: g.cfg.EventLife})
	return out
}

type stand struct {
	x, y, r uint64
}

func stands(c *state) []stand {
	out := make([]stand, 0, len(c.Objects))
	for _, obj := range c.Objects {
		x, y, ok := obj.Point.Uint64()
		if !ok {
			continue
		}
		out = append(out, stand{x: x, y: y, r: obj.ObjectType.Kind.Info().SpaceAt(AgeYears(obj, c.Time))})
	}
	return out
}

// crowded reports whether s sits inside the space of any taken stand or has
// one inside its own.
func crowded(taken []stand, s stand) bool {
	for _, t := range taken {
		r := max(t.r, s.r)
		dx, dy := absDiff(t.x, s.x), absDiff(t.y, s.y)
		if dx >= r || dy >= r {
			continue
		}
		if dx*dx+dy*dy < r*r {
			return true
		}
	}
	return false
}

// scatter picks a coordinate uniformly in [from-spread, from+spread] and
// reports whether it lies in [0, limit).
func scatter(rng *rand.Rand, from, spread, limit uint64) (uint64, bool) {
	off := rng.Int63n(int64(2*spread+1)) - int64(spread)
	if off < 0 && uint64(-off) > from {
		return 0, false
	}
	v := uint64(int64(from) + off)
	return v, v < limit
}

func drawLifespan(rng *rand.Rand, info KindInfo) uint64 {
	v := math.Round(info.LifespanYears + info.LifespanDev*rng.NormFloat64())
	if v < 1 {
		return 1
	}
	return uint64(v)
}

func startOfDay(t chrono.Time) bool { return t.RemainderTime().Sign() == 0 }

func sortedIDs[O kernel.ObjectType](objs map[string]kernel.Object[O]) []string {
	ids := make([]string, 0, len(objs))
	for id := range objs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

package forest

import (
	"fmt"
	"strings"
)

type Kind uint8

const (
	Pine Kind = iota + 1
	Sakura
	Ginkgo
	Cedar
)

var kindNames = map[Kind]string{
	Pine:   "pine",
	Sakura: "sakura",
	Ginkgo: "ginkgo",
	Cedar:  "cedar",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown tree kind %q", s)
}

// Kinds lists every tree kind in a stable order.
func Kinds() []Kind { return []Kind{Pine, Sakura, Ginkgo, Cedar} }

// KindInfo is the per-species table.
type KindInfo struct {
	// LifespanYears and LifespanDev parameterize the normal draw of a tree's
	// lifespan at birth.
	LifespanYears float64
	LifespanDev   float64

	// Space is the clearance radius a tree needs, by age in years.
	Space []SpaceStep

	// SeedingAge is the first age (years) at which the tree drops seeds.
	SeedingAge uint64
	// MaxSeedsPerDay scales the uniform per-day seed draw during the season.
	MaxSeedsPerDay float64
	// ScatterX and ScatterY bound how far a seed lands from its parent.
	ScatterX uint64
	ScatterY uint64
}

// SpaceStep applies Radius to trees younger than BelowAge. The last step of a
// table has BelowAge 0 and covers every older tree.
type SpaceStep struct {
	BelowAge uint64
	Radius   uint64
}

func (k Kind) Info() KindInfo {
	switch k {
	case Pine:
		return KindInfo{
			LifespanYears:  60,
			LifespanDev:    15,
			Space:          []SpaceStep{{15, 10}, {30, 20}, {0, 30}},
			SeedingAge:     25,
			MaxSeedsPerDay: 30,
			ScatterX:       75,
			ScatterY:       75,
		}
	case Sakura:
		return KindInfo{
			LifespanYears:  50,
			LifespanDev:    5,
			Space:          []SpaceStep{{20, 20}, {0, 30}},
			SeedingAge:     30,
			MaxSeedsPerDay: 10,
			ScatterX:       30,
			ScatterY:       30,
		}
	case Ginkgo:
		return KindInfo{
			LifespanYears:  70,
			LifespanDev:    20,
			Space:          []SpaceStep{{20, 10}, {40, 30}, {0, 40}},
			SeedingAge:     20,
			MaxSeedsPerDay: 30,
			ScatterX:       100,
			ScatterY:       100,
		}
	case Cedar:
		return KindInfo{
			LifespanYears:  65,
			LifespanDev:    25,
			Space:          []SpaceStep{{10, 10}, {40, 25}, {0, 30}},
			SeedingAge:     20,
			MaxSeedsPerDay: 45,
			ScatterX:       80,
			ScatterY:       80,
		}
	}
	return KindInfo{}
}

// SpaceAt is the clearance radius for a tree of the given age.
func (ki KindInfo) SpaceAt(ageYears uint64) uint64 {
	for _, s := range ki.Space {
		if s.BelowAge == 0 || ageYears < s.BelowAge {
			return s.Radius
		}
	}
	return 0
}

// InSeason reports whether dayOfYear lies in the seeding window, the span
// from three quarters to seven eighths of the year.
func InSeason(dayOfYear, yearDays uint64) bool {
	return dayOfYear >= yearDays/4*3 && dayOfYear < yearDays/8*7
}

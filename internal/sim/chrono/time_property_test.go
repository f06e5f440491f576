package chrono

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func invariantHolds(t Time) bool {
	day := new(big.Int).Mul(t.Day(), t.OneDayOfTime())
	day.Add(day, t.RemainderTime())
	if day.Cmp(t.All()) != 0 {
		return false
	}
	year := new(big.Int).Mul(t.Year(), t.OneYearOfDay())
	year.Add(year, t.RemainderDay())
	if year.Cmp(t.Day()) != 0 {
		return false
	}
	return t.RemainderTime().Cmp(t.OneDayOfTime()) < 0 && t.RemainderDay().Cmp(t.OneYearOfDay()) < 0
}

func TestTimeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("New keeps all = day*d + rt and day = year*y + rd", prop.ForAll(
		func(all uint64, d, y uint32) bool {
			return invariantHolds(FromUint64(all, uint64(d), uint64(y)))
		},
		gen.UInt64(),
		gen.UInt32Range(1, 10_000),
		gen.UInt32Range(1, 1_000),
	))

	properties.Property("Plus(n) equals New(all+n)", prop.ForAll(
		func(all, n uint64, d, y uint32) bool {
			tm := FromUint64(all, uint64(d), uint64(y))
			got := tm.Plus(new(big.Int).SetUint64(n))
			want := New(new(big.Int).Add(tm.All(), new(big.Int).SetUint64(n)), tm.OneDayOfTime(), tm.OneYearOfDay())
			return got.Equal(want) && invariantHolds(got)
		},
		gen.UInt64Range(0, 1<<40),
		gen.UInt64Range(0, 1<<40),
		gen.UInt32Range(1, 500),
		gen.UInt32Range(1, 500),
	))

	properties.Property("repeated PlusOne equals Plus(k)", prop.ForAll(
		func(all uint64, k uint16, d, y uint8) bool {
			tm := FromUint64(all, uint64(d), uint64(y))
			step := tm
			for i := uint16(0); i < k; i++ {
				step = step.PlusOne()
			}
			return step.Equal(tm.Plus(big.NewInt(int64(k))))
		},
		gen.UInt64Range(0, 1<<20),
		gen.UInt16Range(0, 500),
		gen.UInt8Range(1, 30),
		gen.UInt8Range(1, 30),
	))

	properties.Property("Sub undoes Add", prop.ForAll(
		func(a, b uint64) bool {
			x := FromUint64(a, 24, 365)
			y := FromUint64(b, 24, 365)
			back, ok := x.Add(y).Sub(y)
			return ok && back.Equal(x)
		},
		gen.UInt64Range(0, 1<<50),
		gen.UInt64Range(0, 1<<50),
	))

	properties.Property("Rebase keeps the invariant for any new ratios", prop.ForAll(
		func(all uint64, d, y uint32) bool {
			tm := FromUint64(all, 24, 365).Rebase(big.NewInt(int64(d)), big.NewInt(int64(y)))
			return invariantHolds(tm)
		},
		gen.UInt64(),
		gen.UInt32Range(1, 10_000),
		gen.UInt32Range(1, 10_000),
	))

	properties.TestingRun(t)
}

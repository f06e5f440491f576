// Package geom holds the 2D coordinate used to place objects. The axes are
// assumed right-handed; what a unit means is up to the host.
package geom

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Point is an immutable pair of non-negative coordinates.
type Point struct {
	x *big.Int
	y *big.Int
}

func New(x, y *big.Int) Point {
	if x == nil || y == nil || x.Sign() < 0 || y.Sign() < 0 {
		panic(fmt.Sprintf("geom: negative or nil coordinate (%v, %v)", x, y))
	}
	return Point{x: new(big.Int).Set(x), y: new(big.Int).Set(y)}
}

func FromUint64(x, y uint64) Point {
	return Point{x: new(big.Int).SetUint64(x), y: new(big.Int).SetUint64(y)}
}

func (p Point) X() *big.Int { return cp(p.x) }
func (p Point) Y() *big.Int { return cp(p.y) }

// Uint64 returns the coordinates when both fit in a uint64.
func (p Point) Uint64() (x, y uint64, ok bool) {
	px, py := p.X(), p.Y()
	if !px.IsUint64() || !py.IsUint64() {
		return 0, 0, false
	}
	return px.Uint64(), py.Uint64(), true
}

func (p Point) Equal(o Point) bool {
	return p.X().Cmp(o.X()) == 0 && p.Y().Cmp(o.Y()) == 0
}

// Key is a canonical string form; two points share a key iff they are Equal.
func (p Point) Key() string {
	return p.X().String() + "," + p.Y().String()
}

func (p Point) String() string { return "(" + p.Key() + ")" }

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]*big.Int{p.X(), p.Y()})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var v [2]*big.Int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v[0] == nil || v[1] == nil || v[0].Sign() < 0 || v[1].Sign() < 0 {
		return fmt.Errorf("geom: bad point %s", b)
	}
	*p = New(v[0], v[1])
	return nil
}

func cp(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

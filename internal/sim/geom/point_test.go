package geom

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointEqualityAndKey(t *testing.T) {
	a := FromUint64(3, 4)
	b := New(big.NewInt(3), big.NewInt(4))
	c := FromUint64(4, 3)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())

	seen := map[string]Point{a.Key(): a}
	_, ok := seen[b.Key()]
	assert.True(t, ok)
}

func TestPointImmutable(t *testing.T) {
	x := big.NewInt(7)
	p := New(x, big.NewInt(1))
	x.SetInt64(100)
	assert.Equal(t, "7", p.X().String())

	p.X().SetInt64(55)
	assert.Equal(t, "7", p.X().String())
}

func TestPointRejectsNegative(t *testing.T) {
	assert.Panics(t, func() { New(big.NewInt(-1), big.NewInt(0)) })
}

func TestPointZeroValue(t *testing.T) {
	var p Point
	assert.True(t, p.Equal(FromUint64(0, 0)))
	assert.Equal(t, "(0,0)", p.String())
}

func TestPointUint64(t *testing.T) {
	x, y, ok := FromUint64(5, 9).Uint64()
	require.True(t, ok)
	assert.Equal(t, uint64(5), x)
	assert.Equal(t, uint64(9), y)

	huge, _ := new(big.Int).SetString("99999999999999999999999", 10)
	_, _, ok = New(huge, big.NewInt(0)).Uint64()
	assert.False(t, ok)
}

func TestPointJSON(t *testing.T) {
	b, err := json.Marshal(FromUint64(5, 12))
	require.NoError(t, err)
	assert.Equal(t, "[5,12]", string(b))

	var p Point
	require.NoError(t, json.Unmarshal(b, &p))
	assert.True(t, p.Equal(FromUint64(5, 12)))

	require.Error(t, json.Unmarshal([]byte("[-1,2]"), &p))
}

package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"sort"

	"hakoniwa.dev/internal/sim/kernel"
)

// stateDigest hashes everything the kernel itself can see: the clock, the
// causal fields of every remembered event and every object sorted by id.
// Variant internals beyond Name are not covered.
func stateDigest[E kernel.EventContents, O kernel.ObjectType](c *kernel.Context[E, O]) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteBig(h, &tmp, c.Time.All())
	digestWriteBig(h, &tmp, c.Time.OneDayOfTime())
	digestWriteBig(h, &tmp, c.Time.OneYearOfDay())

	digestWriteU64(h, &tmp, uint64(len(c.Memory)))
	for _, e := range c.Memory {
		digestWriteBig(h, &tmp, e.GeneratedTime.All())
		if e.Lifetime != nil {
			h.Write([]byte{1})
			digestWriteBig(h, &tmp, e.Lifetime.All())
		} else {
			h.Write([]byte{0})
		}
		digestWriteString(h, &tmp, e.DoObject)
		digestWriteString(h, &tmp, e.TargetObject)
	}

	keys := make([]string, 0, len(c.Objects))
	for id := range c.Objects {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	digestWriteU64(h, &tmp, uint64(len(keys)))
	for _, id := range keys {
		o := c.Objects[id]
		digestWriteString(h, &tmp, id)
		digestWriteString(h, &tmp, o.ObjectType.Name())
		digestWriteBig(h, &tmp, o.GeneratedTime.All())
		digestWriteBig(h, &tmp, o.Point.X())
		digestWriteBig(h, &tmp, o.Point.Y())
	}
	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func digestWriteBig(h hashWriter, tmp *[8]byte, v *big.Int) {
	b := v.Bytes()
	digestWriteU64(h, tmp, uint64(len(b)))
	h.Write(b)
}

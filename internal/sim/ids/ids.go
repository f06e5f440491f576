// Package ids names objects created by the tick engine.
package ids

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"hakoniwa.dev/internal/sim/geom"
)

var token = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Sequence assigns "<hash>-<n>" ids: hash is a content digest of the object's
// name, origin and tick, n is a counter owned by one world. Ids never repeat
// within a world and the same run always yields the same ids.
type Sequence struct {
	next atomic.Uint64
}

func NewSequence() *Sequence { return &Sequence{} }

// Resume makes the next assigned counter value n+1.
func (s *Sequence) Resume(n uint64) { s.next.Store(n) }

// Last is the most recently assigned counter value (0 before the first id).
func (s *Sequence) Last() uint64 { return s.next.Load() }

func (s *Sequence) AssignID(name string, at geom.Point, tick *big.Int) string {
	n := s.next.Add(1)
	return ContentHash(name, at, tick) + "-" + strconv.FormatUint(n, 10)
}

// ParseSequence extracts the counter from an id made by Sequence.
func ParseSequence(id string) (uint64, bool) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 || i+1 >= len(id) {
		return 0, false
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ContentHash is a short base32 digest of (name, point, tick).
func ContentHash(name string, at geom.Point, tick *big.Int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", name, at.Key(), tick)
	sum := h.Sum(nil)
	return token.EncodeToString(sum[:10])
}

// WallClock concatenates name, point, tick and the current wall-clock time
// and base64-encodes the result. Two objects with the same name and point in
// the same tick may collide if the clock does not advance between them.
type WallClock struct {
	Now func() time.Time
}

func (w WallClock) AssignID(name string, at geom.Point, tick *big.Int) string {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	raw := fmt.Sprintf("%s%s%s%s", name, at, tick, now().Format(time.RFC3339Nano))
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

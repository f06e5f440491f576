package observer

import (
	"encoding/json"
	"math/big"
	"sync"
	"sync/atomic"

	"hakoniwa.dev/internal/sim/world"
)

// Broadcaster fans tick entries out to observer sessions. It implements
// world.TickLogger and never blocks the tick loop: a session that falls
// behind loses its oldest queued ticks.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64

	dropped atomic.Uint64
}

type subscription struct {
	out   chan []byte
	every atomic.Pointer[big.Int]
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[uint64]*subscription{}}
}

// Subscribe registers a session with a queue of size buf. The returned
// cancel func unregisters it and closes the channel; it is safe to call twice.
func (b *Broadcaster) Subscribe(buf int, everyTicks uint64) (id uint64, out <-chan []byte, cancel func()) {
	if buf <= 0 {
		buf = 8
	}
	sub := &subscription{out: make(chan []byte, buf)}
	sub.setEvery(everyTicks)

	b.mu.Lock()
	b.nextID++
	id = b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.out)
		})
	}
	return id, sub.out, cancel
}

// SetEvery changes the sampling rate of a live session.
func (b *Broadcaster) SetEvery(id uint64, everyTicks uint64) {
	b.mu.Lock()
	sub := b.subs[id]
	b.mu.Unlock()
	if sub != nil {
		sub.setEvery(everyTicks)
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped counts ticks discarded from slow sessions.
func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }

func (b *Broadcaster) WriteTick(entry world.TickLogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return nil
	}
	msg, err := json.Marshal(TickMsg{Type: "TICK", ProtocolVersion: Version, Entry: entry})
	if err != nil {
		return err
	}
	var mod big.Int
	for _, sub := range b.subs {
		if every := sub.every.Load(); every != nil && entry.Tick != nil {
			if mod.Mod(entry.Tick, every).Sign() != 0 {
				continue
			}
		}
		if !sendLatest(sub.out, msg) {
			b.dropped.Add(1)
		}
	}
	return nil
}

func (s *subscription) setEvery(n uint64) {
	if n <= 1 {
		s.every.Store(nil)
		return
	}
	s.every.Store(new(big.Int).SetUint64(n))
}

// sendLatest queues msg, dropping the oldest queued message if the channel is
// full. It reports false when something was dropped.
func sendLatest(ch chan []byte, msg []byte) bool {
	select {
	case ch <- msg:
		return true
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
	return false
}

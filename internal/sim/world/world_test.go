package world

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakoniwa.dev/internal/sim/chrono"
	"hakoniwa.dev/internal/sim/geom"
	"hakoniwa.dev/internal/sim/kernel"
)

type stone struct{ at geom.Point }

func (s stone) Name() string               { return "stone" }
func (s stone) GeneratedPoint() geom.Point { return s.at }

type roll struct {
	by string
	to geom.Point
}

func (r roll) DoObject() string                       { return r.by }
func (r roll) TargetObject() (string, bool)           { return r.by, true }
func (r roll) Lifetime() (chrono.Time, bool)          { return chrono.FromUint64(3, 24, 365), true }
func (r roll) MoveObject() (string, geom.Point, bool) { return r.by, r.to, true }

type quarry struct{}

// Produce drops a stone every tick, rolls the lowest id one step east and
// removes the highest id every fourth tick.
func (quarry) Produce(c *kernel.Context[roll, stone]) kernel.GeneratedData[roll, stone] {
	tick := c.Time.All().Uint64()
	out := kernel.GeneratedData[roll, stone]{
		GenerateObjects: []stone{{at: geom.FromUint64(tick%5, tick%7)}},
	}
	keys := make([]string, 0, len(c.Objects))
	for id := range c.Objects {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		x, y, _ := c.Objects[keys[0]].Point.Uint64()
		out.Events = append(out.Events, roll{by: keys[0], to: geom.FromUint64(x+1, y)})
		if tick%4 == 0 {
			out.RemoveObjects = append(out.RemoveObjects, keys[len(keys)-1])
		}
	}
	return out
}

func newTestWorld(cfg Config, opts ...Option[roll, stone]) *World[roll, stone] {
	initial := kernel.NewContext[roll, stone](chrono.Zero(24, 365), []kernel.Entry[stone]{
		{ID: "seed", Object: kernel.Spawn(chrono.Zero(24, 365), stone{at: geom.FromUint64(0, 0)})},
	})
	return New(cfg, initial, []kernel.Generator[roll, stone]{quarry{}}, opts...)
}

type memLogger struct {
	mu      sync.Mutex
	entries []TickLogEntry
	err     error
}

func (m *memLogger) WriteTick(e TickLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

func TestStepOnce_DeterministicDigests(t *testing.T) {
	w1 := newTestWorld(Config{ID: "a"})
	w2 := newTestWorld(Config{ID: "b"})
	for i := 1; i <= 50; i++ {
		t1, d1 := w1.StepOnce()
		t2, d2 := w2.StepOnce()
		require.Equal(t, int64(i), t1.Int64())
		require.Equal(t, t1, t2)
		require.Equal(t, d1, d2, "digest mismatch at tick %d", i)
	}
	assert.NotEqual(t, w1.RunID(), w2.RunID())
}

func TestStepOnce_DigestChangesWithState(t *testing.T) {
	w := newTestWorld(Config{})
	_, d1 := w.StepOnce()
	_, d2 := w.StepOnce()
	assert.NotEqual(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestStepOnce_EmitsTickLogEntries(t *testing.T) {
	logger := &memLogger{}
	w := newTestWorld(Config{ID: "w"}, WithTickLogger[roll, stone](logger), WithRunID[roll, stone]("run-1"))
	for i := 0; i < 4; i++ {
		w.StepOnce()
	}
	require.Len(t, logger.entries, 4)
	last := logger.entries[3]
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, "w", last.WorldID)
	assert.Equal(t, "4", last.Tick.String())
	assert.Equal(t, 1, last.Events)
	assert.Equal(t, 1, last.Removed)
	assert.Len(t, last.Created, 1)
	assert.Equal(t, 1, last.Relocated)

	var objects, memory int
	w.View(func(c *kernel.Context[roll, stone]) {
		objects, memory = len(c.Objects), len(c.Memory)
	})
	assert.Equal(t, objects, last.Objects)
	assert.Equal(t, memory, last.Memory)

	m := w.Metrics()
	assert.Equal(t, "4", m.Tick)
	assert.Equal(t, uint64(4), m.Steps)
	assert.Equal(t, last.Digest, m.Digest)
}

func TestStepOnce_LoggerErrorDoesNotStopTick(t *testing.T) {
	logger := &memLogger{err: errors.New("disk full")}
	w := newTestWorld(Config{}, WithTickLogger[roll, stone](logger))
	tick, _ := w.StepOnce()
	assert.Equal(t, "1", tick.String())
	assert.Equal(t, "1", w.CurrentTick().String())
}

func TestRun_StopsAtMaxTicks(t *testing.T) {
	w := newTestWorld(Config{MaxTicks: 25, ProgressEveryTicks: 10})
	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, uint64(25), w.Steps())
	assert.Equal(t, "25", w.CurrentTick().String())
}

func TestRun_ContextCancel(t *testing.T) {
	w := newTestWorld(Config{TickRateHz: 1000})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, w.Steps(), uint64(0))
}

func TestRun_Stop(t *testing.T) {
	w := newTestWorld(Config{TickRateHz: 200})
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	time.Sleep(30 * time.Millisecond)
	w.Stop()
	w.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestStateDigest_OrderIndependentForObjects(t *testing.T) {
	now := chrono.FromUint64(5, 24, 365)
	a := kernel.NewContext[roll, stone](now, []kernel.Entry[stone]{
		{ID: "x", Object: kernel.Spawn(now, stone{at: geom.FromUint64(1, 2)})},
		{ID: "y", Object: kernel.Spawn(now, stone{at: geom.FromUint64(3, 4)})},
	})
	b := kernel.NewContext[roll, stone](now, []kernel.Entry[stone]{
		{ID: "y", Object: kernel.Spawn(now, stone{at: geom.FromUint64(3, 4)})},
		{ID: "x", Object: kernel.Spawn(now, stone{at: geom.FromUint64(1, 2)})},
	})
	assert.Equal(t, stateDigest(a), stateDigest(b))

	b.Objects["x"] = kernel.Spawn(now, stone{at: geom.FromUint64(2, 1)})
	assert.NotEqual(t, stateDigest(a), stateDigest(b))
}

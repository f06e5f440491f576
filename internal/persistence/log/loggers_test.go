package log

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakoniwa.dev/internal/sim/world"
)

func entry(tick int64) world.TickLogEntry {
	return world.TickLogEntry{
		RunID:   "r1",
		WorldID: "w",
		Tick:    big.NewInt(tick),
		Day:     big.NewInt(tick / 24),
		Year:    big.NewInt(0),
		Events:  int(tick % 3),
		Created: []string{"abc-1"},
		Objects: 4,
		Digest:  "d",
	}
}

func TestTickLogger_RoundTripAcrossHours(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, l.WriteTick(entry(i)))
	}
	clock = clock.Add(2 * time.Minute)
	for i := int64(4); i <= 5; i++ {
		require.NoError(t, l.WriteTick(entry(i)))
	}
	require.NoError(t, l.Close())

	files, err := ListTickFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "events-2024-05-01-10.jsonl.zst", filepath.Base(files[0]))
	assert.Equal(t, "events-2024-05-01-11.jsonl.zst", filepath.Base(files[1]))

	var got []world.TickLogEntry
	require.NoError(t, ReadTicks(dir, func(e world.TickLogEntry) error {
		got = append(got, e)
		return nil
	}))
	require.Len(t, got, 5)
	for i, e := range got {
		assert.Equal(t, int64(i+1), e.Tick.Int64())
		assert.Equal(t, "r1", e.RunID)
		assert.Equal(t, []string{"abc-1"}, e.Created)
	}
}

func TestTickLogger_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	for _, tick := range []int64{1, 2} {
		l := NewTickLogger(dir)
		l.w.now = fixed
		require.NoError(t, l.WriteTick(entry(tick)))
		require.NoError(t, l.Close())
	}

	var ticks []int64
	require.NoError(t, ReadTicks(dir, func(e world.TickLogEntry) error {
		ticks = append(ticks, e.Tick.Int64())
		return nil
	}))
	assert.Equal(t, []int64{1, 2}, ticks)
}

func TestReadTicks_StopEarly(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	for i := int64(1); i <= 4; i++ {
		require.NoError(t, l.WriteTick(entry(i)))
	}
	require.NoError(t, l.Close())

	n := 0
	require.NoError(t, ReadTicks(dir, func(world.TickLogEntry) error {
		n++
		if n == 2 {
			return ErrStop
		}
		return nil
	}))
	assert.Equal(t, 2, n)
}

func TestListTickFiles_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "events-dir.jsonl.zst"), 0o755))
	files, err := ListTickFiles(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

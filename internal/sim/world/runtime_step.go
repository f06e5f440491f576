package world

import (
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"hakoniwa.dev/internal/sim/kernel"
)

// StepOnce applies a single tick with the same ordering as Run and returns the
// tick it produced together with the state digest after it. It is meant for
// replays and tests; do not call it while Run is active.
func (w *World[E, O]) StepOnce() (tick *big.Int, digest string) {
	return w.step()
}

func (w *World[E, O]) step() (*big.Int, string) {
	stepStart := time.Now()

	w.mu.Lock()
	rep := kernel.Step(w.ctx, w.gens, w.ids)
	now := w.ctx.Time
	digest := stateDigest(w.ctx)
	entry := TickLogEntry{
		RunID:       w.runID,
		WorldID:     w.cfg.ID,
		Tick:        now.All(),
		Day:         now.Day(),
		Year:        now.Year(),
		Evicted:     rep.Evicted,
		Events:      rep.Appended,
		Created:     rep.Created,
		Removed:     rep.Removed,
		Relocated:   rep.Relocated,
		Unrelocated: rep.Unrelocated,
		Objects:     len(w.ctx.Objects),
		Memory:      len(w.ctx.Memory),
		Digest:      digest,
	}
	w.mu.Unlock()

	for _, l := range w.tickLoggers {
		if err := l.WriteTick(entry); err != nil {
			w.log.WithError(err).WithField("tick", entry.Tick.String()).Warn("tick logger")
		}
	}

	steps := w.steps.Add(1)
	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	w.metrics.Store(WorldMetrics{
		Tick:    entry.Tick.String(),
		Day:     entry.Day.String(),
		Year:    entry.Year.String(),
		Steps:   steps,
		Objects: entry.Objects,
		Memory:  entry.Memory,
		StepMS:  stepMS,
		Digest:  digest,
	})

	if steps%w.cfg.ProgressEveryTicks == 0 {
		w.log.WithFields(logrus.Fields{
			"tick":    entry.Tick.String(),
			"year":    entry.Year.String(),
			"objects": entry.Objects,
			"memory":  entry.Memory,
			"step_ms": stepMS,
		}).Info("progress")
	}
	return entry.Tick, digest
}

package world

import (
	"context"
	"time"
)

// Run applies ticks until ctx is cancelled, Stop is called or MaxTicks steps
// have been taken. With TickRateHz > 0 ticks are paced by a ticker.
func (w *World[E, O]) Run(ctx context.Context) error {
	var tickC <-chan time.Time
	if w.cfg.TickRateHz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(w.cfg.TickRateHz))
		defer ticker.Stop()
		tickC = ticker.C
	}

	w.log.WithField("tick_rate_hz", w.cfg.TickRateHz).Info("world loop started")
	defer w.log.WithField("steps", w.steps.Load()).Info("world loop stopped")

	for {
		if w.cfg.MaxTicks > 0 && w.steps.Load() >= w.cfg.MaxTicks {
			return nil
		}
		if tickC == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.stop:
				return nil
			default:
			}
			w.step()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case <-tickC:
			w.step()
		}
	}
}

func (w *World[E, O]) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

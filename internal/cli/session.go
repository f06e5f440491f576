package cli

import (
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"hakoniwa.dev/internal/logging"
	"hakoniwa.dev/internal/persistence/archive"
	"hakoniwa.dev/internal/persistence/indexdb"
	persistlog "hakoniwa.dev/internal/persistence/log"
	"hakoniwa.dev/internal/scenario/forest"
	"hakoniwa.dev/internal/sim/ids"
	"hakoniwa.dev/internal/sim/kernel"
	"hakoniwa.dev/internal/sim/tuning"
	"hakoniwa.dev/internal/sim/world"
)

type forestWorld = world.World[forest.Event, forest.Tree]

// session is one forest world plus the telemetry sinks opened for it.
type session struct {
	tune     tuning.Tuning
	log      *logrus.Logger
	scenario *forest.Scenario
	world    *forestWorld
	index    *indexdb.SQLiteIndex

	closers []func() error
}

type sessionOptions struct {
	logOut io.Writer
	// telemetry opens tune.Telemetry.Dir and tune.Telemetry.IndexDB when set.
	telemetry bool
	sinks     []world.TickLogger
}

func openSession(tune tuning.Tuning, so sessionOptions) (*session, error) {
	s := &session{
		tune: tune,
		log:  logging.New(so.logOut, tune.Logging.Level, tune.Logging.Format),
	}

	assigner := newAssigner(tune.IDMode)
	sc, err := forest.Build(tune, assigner)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "build scenario", err)
	}
	s.scenario = sc

	opts := []world.Option[forest.Event, forest.Tree]{
		world.WithLogger[forest.Event, forest.Tree](s.log),
		world.WithIDAssigner[forest.Event, forest.Tree](assigner),
	}
	if so.telemetry && tune.Telemetry.Dir != "" {
		tl := persistlog.NewTickLogger(tune.Telemetry.Dir)
		s.closers = append(s.closers, tl.Close)
		opts = append(opts,
			world.WithTickLogger[forest.Event, forest.Tree](tl),
			world.WithTickLogger[forest.Event, forest.Tree](archive.NewYearLedger(filepath.Join(tune.Telemetry.Dir, "archives"))),
		)
	}
	if so.telemetry && tune.Telemetry.IndexDB != "" {
		idx, err := indexdb.OpenSQLite(tune.Telemetry.IndexDB)
		if err != nil {
			_ = s.Close()
			return nil, WrapExitError(ExitCommandError, "open index db", err)
		}
		s.index = idx
		s.closers = append(s.closers, idx.Close)
		opts = append(opts, world.WithTickLogger[forest.Event, forest.Tree](idx))
	}
	for _, sink := range so.sinks {
		opts = append(opts, world.WithTickLogger[forest.Event, forest.Tree](sink))
	}

	s.world = world.New(world.Config{
		ID:                 tune.WorldID,
		TickRateHz:         tune.TickRateHz,
		MaxTicks:           tune.MaxTicks,
		ProgressEveryTicks: tune.ProgressEveryTicks,
	}, sc.Initial, sc.Generators, opts...)

	if s.index != nil {
		s.index.RecordRun(indexdb.RunInfo{
			RunID:    s.world.RunID(),
			WorldID:  tune.WorldID,
			DayTicks: tune.Calendar.DayTicks,
			YearDays: tune.Calendar.YearDays,
			Seed:     tune.Forest.Seed,
			Config:   tune,
		})
	}
	return s, nil
}

// Close flushes and closes the sinks in reverse order of opening.
func (s *session) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

func newAssigner(mode string) kernel.IDAssigner {
	if mode == tuning.IDModeWallClock {
		return ids.WallClock{}
	}
	return ids.NewSequence()
}

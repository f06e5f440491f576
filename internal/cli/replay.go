package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	persistlog "hakoniwa.dev/internal/persistence/log"
	"hakoniwa.dev/internal/sim/tuning"
	"hakoniwa.dev/internal/sim/world"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	EventsDir string
	RunID     string
	ToTick    uint64
	Seed      int64
}

// ReplayResult is the outcome of a replay.
type ReplayResult struct {
	RunID         string `json:"run_id"`
	Checked       uint64 `json:"checked"`
	LastTick      string `json:"last_tick"`
	Deterministic bool   `json:"deterministic"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-simulate a recorded run and verify its digests",
		Long: `Rebuild the forest from the same config, step it once per recorded tick and
compare the state digest with the one in the telemetry.

Only runs recorded with id_mode "sequence" can be replayed.

Exit codes:
  0 - Every checked tick matched
  1 - A tick or digest differed
  2 - Command error (missing telemetry, bad config, etc.)

Examples:
  hakoniwa replay --events ./data/events
  hakoniwa replay -c tuning.yaml --events ./data/events --run 5f0c... --to-tick 8760`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.EventsDir, "events", "", "directory containing events-*.jsonl.zst (required)")
	_ = cmd.MarkFlagRequired("events")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to replay (default: first run in the telemetry)")
	cmd.Flags().Uint64Var(&opts.ToTick, "to-tick", 0, "stop after this tick (0 = all)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "forest seed used by the recorded run (0 keeps the config value)")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions) error {
	tune, err := opts.loadTuning()
	if err != nil {
		return err
	}
	if tune.IDMode != tuning.IDModeSequence {
		return NewExitError(ExitCommandError, fmt.Sprintf("id_mode %q is not reproducible; replay needs %q", tune.IDMode, tuning.IDModeSequence))
	}
	if opts.Seed != 0 {
		tune.Forest.Seed = opts.Seed
	}

	s, err := openSession(tune, sessionOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := replay(s, opts.EventsDir, opts.RunID, opts.ToTick)
	if err != nil {
		return err
	}
	if err := writeResult(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) error {
		if res.Deterministic {
			fmt.Fprintf(w, "replay ok: run=%s checked=%s ticks (last tick=%s)\n", res.RunID, humanize.Comma(int64(res.Checked)), res.LastTick)
			return nil
		}
		fmt.Fprintf(w, "replay FAILED: run=%s checked=%s ticks: %s\n", res.RunID, humanize.Comma(int64(res.Checked)), res.Mismatch)
		return nil
	}); err != nil {
		return err
	}
	if !res.Deterministic {
		return NewExitError(ExitFailure, res.Mismatch)
	}
	return nil
}

func replay(s *session, dir, runID string, toTick uint64) (ReplayResult, error) {
	res := ReplayResult{RunID: runID, Deterministic: true}
	err := persistlog.ReadTicks(dir, func(entry world.TickLogEntry) error {
		if res.RunID == "" {
			res.RunID = entry.RunID
		}
		if entry.RunID != res.RunID || entry.Tick == nil {
			return nil
		}
		if toTick != 0 && entry.Tick.IsUint64() && entry.Tick.Uint64() > toTick {
			return persistlog.ErrStop
		}

		tick, digest := s.world.StepOnce()
		res.LastTick = tick.String()
		if tick.Cmp(entry.Tick) != 0 {
			res.Deterministic = false
			res.Mismatch = fmt.Sprintf("tick mismatch: stepped=%s entry=%s", tick, entry.Tick)
			return persistlog.ErrStop
		}
		res.Checked++
		if digest != entry.Digest {
			res.Deterministic = false
			res.Mismatch = fmt.Sprintf("digest mismatch at tick %s: got=%s want=%s", tick, digest, entry.Digest)
			return persistlog.ErrStop
		}
		return nil
	})
	if err != nil {
		return res, WrapExitError(ExitCommandError, "read telemetry", err)
	}
	if res.Checked == 0 && res.Deterministic {
		return res, NewExitError(ExitCommandError, fmt.Sprintf("no ticks found in %s", dir))
	}
	return res, nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hakoniwa.dev/internal/scenario/forest"
	"hakoniwa.dev/internal/sim/kernel"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Ticks        uint64
	Seed         int64
	TelemetryDir string
	IndexDB      string
}

// RunSummary is the result of a finished run.
type RunSummary struct {
	RunID     string             `json:"run_id"`
	WorldID   string             `json:"world_id"`
	Tick      string             `json:"tick"`
	Day       string             `json:"day"`
	Year      string             `json:"year"`
	Steps     uint64             `json:"steps"`
	ElapsedMS int64              `json:"elapsed_ms"`
	Trees     int                `json:"trees"`
	Census    []forest.KindCount `json:"census"`
	Memory    int                `json:"memory"`
	Digest    string             `json:"digest"`
	Telemetry string             `json:"telemetry,omitempty"`
	Index     string             `json:"index,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate the forest and record telemetry",
		Long: `Run the forest scenario for --ticks ticks (or max_ticks from the config),
writing one telemetry line per tick when a telemetry dir is configured.

Examples:
  hakoniwa run --ticks 87600
  hakoniwa run -c tuning.yaml --telemetry-dir ./data/events --index-db ./data/index.db
  hakoniwa run --ticks 8760 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().Uint64Var(&opts.Ticks, "ticks", 0, "ticks to simulate (overrides max_ticks; 0 keeps the config value)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "forest seed (overrides forest.seed; 0 keeps the config value)")
	cmd.Flags().StringVar(&opts.TelemetryDir, "telemetry-dir", "", "directory for events-*.jsonl.zst (overrides telemetry.dir)")
	cmd.Flags().StringVar(&opts.IndexDB, "index-db", "", "SQLite index path (overrides telemetry.index_db)")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	tune, err := opts.loadTuning()
	if err != nil {
		return err
	}
	if opts.Ticks > 0 {
		tune.MaxTicks = opts.Ticks
	}
	if opts.Seed != 0 {
		tune.Forest.Seed = opts.Seed
	}
	if opts.TelemetryDir != "" {
		tune.Telemetry.Dir = opts.TelemetryDir
	}
	if opts.IndexDB != "" {
		tune.Telemetry.IndexDB = opts.IndexDB
	}

	s, err := openSession(tune, sessionOptions{logOut: cmd.ErrOrStderr(), telemetry: true})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runErr := s.world.Run(ctx)
	elapsed := time.Since(start)
	if err := s.Close(); err != nil {
		s.log.WithError(err).Warn("close telemetry")
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return WrapExitError(ExitFailure, "run", runErr)
	}

	sum := summarize(s, elapsed)
	return writeResult(cmd.OutOrStdout(), opts.Format, sum, func(w io.Writer) error {
		return writeRunText(w, sum, elapsed)
	})
}

func summarize(s *session, elapsed time.Duration) RunSummary {
	m := s.world.Metrics()
	sum := RunSummary{
		RunID:     s.world.RunID(),
		WorldID:   s.world.ID(),
		Steps:     s.world.Steps(),
		ElapsedMS: elapsed.Milliseconds(),
		Digest:    m.Digest,
		Telemetry: s.tune.Telemetry.Dir,
		Index:     s.tune.Telemetry.IndexDB,
	}
	s.world.View(func(c *kernel.Context[forest.Event, forest.Tree]) {
		sum.Tick = c.Time.All().String()
		sum.Day = c.Time.Day().String()
		sum.Year = c.Time.Year().String()
		sum.Trees = len(c.Objects)
		sum.Census = forest.Census(c)
		sum.Memory = len(c.Memory)
	})
	return sum
}

func writeRunText(w io.Writer, sum RunSummary, elapsed time.Duration) error {
	tick, _ := new(big.Int).SetString(sum.Tick, 10)
	year, _ := new(big.Int).SetString(sum.Year, 10)
	day, _ := new(big.Int).SetString(sum.Day, 10)

	rate := ""
	if secs := elapsed.Seconds(); secs > 0 {
		rate = fmt.Sprintf(" (%s ticks/s)", humanize.Comma(int64(float64(sum.Steps)/secs)))
	}
	kinds := make([]string, 0, len(sum.Census))
	for _, kc := range sum.Census {
		kinds = append(kinds, fmt.Sprintf("%s %s", kc.Kind, humanize.Comma(int64(kc.Trees))))
	}

	fmt.Fprintf(w, "run %s world=%s\n", sum.RunID, sum.WorldID)
	fmt.Fprintf(w, "ticks:  %s (year %s, day %s) in %s%s\n",
		humanize.BigComma(tick), humanize.BigComma(year), humanize.BigComma(day), elapsed.Round(time.Millisecond), rate)
	fmt.Fprintf(w, "trees:  %s", humanize.Comma(int64(sum.Trees)))
	if len(kinds) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(kinds, ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "memory: %s events\n", humanize.Comma(int64(sum.Memory)))
	fmt.Fprintf(w, "digest: %s\n", sum.Digest)
	if sum.Telemetry != "" {
		fmt.Fprintf(w, "telemetry: %s\n", sum.Telemetry)
	}
	if sum.Index != "" {
		fmt.Fprintf(w, "index: %s\n", sum.Index)
	}
	return nil
}

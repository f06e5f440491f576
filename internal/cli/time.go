package cli

import (
	"fmt"
	"io"
	"math/big"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hakoniwa.dev/internal/sim/chrono"
)

// TimeOptions holds flags for the time command.
type TimeOptions struct {
	*RootOptions
	DayTicks uint64
	YearDays uint64
	// Rule* switch the calendar after the breakdown.
	RuleDayTicks uint64
	RuleYearDays uint64
	Rebase       bool
}

// TimeResult pairs a breakdown with its optional re-ruled form.
type TimeResult struct {
	Time      chrono.Time  `json:"time"`
	Changed   *chrono.Time `json:"changed,omitempty"`
	Recompute bool         `json:"recompute,omitempty"`
}

// NewTimeCommand creates the time command.
func NewTimeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TimeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "time <ticks>",
		Short: "Show the calendar breakdown of a tick count",
		Long: `Break an arbitrarily large tick count into years, days and ticks using the
configured calendar, and optionally switch it to another calendar.

--rule-day-ticks/--rule-year-days carry the existing remainders into the new
calendar and keep every full day and year already counted; add --rebase to
recompute the breakdown from the tick count instead.

Examples:
  hakoniwa time 8760
  hakoniwa time 123456789012345678901234567890 --day-ticks 10 --year-days 100
  hakoniwa time 30 --day-ticks 24 --rule-day-ticks 14 --rule-year-days 365`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTime(cmd, opts, args[0])
		},
	}

	cmd.Flags().Uint64Var(&opts.DayTicks, "day-ticks", 0, "ticks per day (0 uses calendar.day_ticks)")
	cmd.Flags().Uint64Var(&opts.YearDays, "year-days", 0, "days per year (0 uses calendar.year_days)")
	cmd.Flags().Uint64Var(&opts.RuleDayTicks, "rule-day-ticks", 0, "switch to this many ticks per day")
	cmd.Flags().Uint64Var(&opts.RuleYearDays, "rule-year-days", 0, "switch to this many days per year")
	cmd.Flags().BoolVar(&opts.Rebase, "rebase", false, "recompute from the tick count when switching calendars")

	return cmd
}

func runTime(cmd *cobra.Command, opts *TimeOptions, arg string) error {
	all, ok := new(big.Int).SetString(arg, 10)
	if !ok || all.Sign() < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid tick count %q", arg))
	}
	tune, err := opts.loadTuning()
	if err != nil {
		return err
	}
	dayTicks, yearDays := tune.Calendar.DayTicks, tune.Calendar.YearDays
	if opts.DayTicks > 0 {
		dayTicks = opts.DayTicks
	}
	if opts.YearDays > 0 {
		yearDays = opts.YearDays
	}
	d, y := new(big.Int).SetUint64(dayTicks), new(big.Int).SetUint64(yearDays)
	if err := chrono.Validate(d, y); err != nil {
		return WrapExitError(ExitCommandError, "calendar", err)
	}

	res := TimeResult{Time: chrono.New(all, d, y)}
	if opts.RuleDayTicks > 0 || opts.RuleYearDays > 0 {
		nd, ny := d, y
		if opts.RuleDayTicks > 0 {
			nd = new(big.Int).SetUint64(opts.RuleDayTicks)
		}
		if opts.RuleYearDays > 0 {
			ny = new(big.Int).SetUint64(opts.RuleYearDays)
		}
		var changed chrono.Time
		if opts.Rebase {
			changed = res.Time.Rebase(nd, ny)
		} else {
			changed = res.Time.ChangeRule(nd, ny)
		}
		res.Changed = &changed
		res.Recompute = opts.Rebase
	}

	return writeResult(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) error {
		writeTimeText(w, "", res.Time)
		if res.Changed != nil {
			writeTimeText(w, "changed: ", *res.Changed)
		}
		return nil
	})
}

func writeTimeText(w io.Writer, prefix string, t chrono.Time) {
	fmt.Fprintf(w, "%syear %s, day %s of %s, tick %s of %s (total days %s, total ticks %s)\n",
		prefix,
		humanize.BigComma(t.Year()),
		humanize.BigComma(t.RemainderDay()),
		humanize.BigComma(t.OneYearOfDay()),
		humanize.BigComma(t.RemainderTime()),
		humanize.BigComma(t.OneDayOfTime()),
		humanize.BigComma(t.Day()),
		humanize.BigComma(t.All()),
	)
}

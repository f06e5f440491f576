package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hakoniwa.dev/internal/sim/tuning"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the hakoniwa CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hakoniwa",
		Short: "hakoniwa - a discrete-tick world simulator",
		Long: `Simulate a forest on a big-integer calendar, record per-tick telemetry,
replay it to prove determinism, or stream it live to observers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to tuning.yaml (defaults are used when empty)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides logging.level)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format text|json (overrides logging.format)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTimeCommand(opts))

	return cmd
}

// loadTuning reads --config on top of the defaults and applies the global
// logging overrides.
func (o *RootOptions) loadTuning() (tuning.Tuning, error) {
	t := tuning.Defaults()
	if path := strings.TrimSpace(o.ConfigPath); path != "" {
		loaded, err := tuning.Load(path)
		if err != nil {
			return t, WrapExitError(ExitCommandError, "load config", err)
		}
		t = loaded
	}
	if o.LogLevel != "" {
		t.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		t.Logging.Format = o.LogFormat
	}
	return t, nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

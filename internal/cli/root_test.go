package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const smallForestYAML = `
world_id: grove
max_ticks: 240
calendar: {day_ticks: 2, year_days: 40}
logging: {level: error}
forest:
  seed: 99
  width: 200
  height: 200
  max_trees: 60
  event_lifetime_ticks: 4
  wind_permille: 200
  initial_trees:
    - {kind: pine, x: 50, y: 50, age_years: 30}
    - {kind: sakura, x: 150, y: 150, age_years: 35}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "hakoniwa", cmd.Use)
	assert.Contains(t, cmd.Long, "big-integer calendar")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"run", "replay", "serve", "time"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	config := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, config)
	assert.Equal(t, "c", config.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-format"))
}

func TestReplayRequiresEvents(t *testing.T) {
	cmd := NewRootCommand()
	replay, _, err := cmd.Find([]string{"replay"})
	require.NoError(t, err)
	f := replay.Flags().Lookup("events")
	require.NotNil(t, f)
	assert.Equal(t, []string{"true"}, f.Annotations["cobra_annotation_bash_completion_one_required_flag"])
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "time", "1", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBadConfig(t *testing.T) {
	p := writeConfig(t, "calendar: {day_ticks: 0}\n")
	_, err := execute(t, "time", "1", "-c", p)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "calendar.day_ticks")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(os.ErrNotExist))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "x", os.ErrNotExist)))
}

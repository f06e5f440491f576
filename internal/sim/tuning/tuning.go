package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	WorldID            string `yaml:"world_id"`
	TickRateHz         int    `yaml:"tick_rate_hz"`
	MaxTicks           uint64 `yaml:"max_ticks"`
	ProgressEveryTicks uint64 `yaml:"progress_every_ticks"`
	// IDMode is "sequence" (deterministic) or "wallclock".
	IDMode string `yaml:"id_mode"`

	Calendar  Calendar  `yaml:"calendar"`
	Logging   Logging   `yaml:"logging"`
	Telemetry Telemetry `yaml:"telemetry"`
	Forest    Forest    `yaml:"forest"`
}

type Calendar struct {
	DayTicks uint64 `yaml:"day_ticks"`
	YearDays uint64 `yaml:"year_days"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Telemetry struct {
	// Dir receives events-*.jsonl.zst files. Empty disables the tick log.
	Dir string `yaml:"dir"`
	// IndexDB is a SQLite path for the tick index. Empty disables it.
	IndexDB string `yaml:"index_db"`
}

type Forest struct {
	Seed               int64       `yaml:"seed"`
	Width              uint64      `yaml:"width"`
	Height             uint64      `yaml:"height"`
	MaxTrees           int         `yaml:"max_trees"`
	EventLifetimeTicks uint64      `yaml:"event_lifetime_ticks"`
	WindPermille       int         `yaml:"wind_permille"`
	InitialTrees       []TreeSpawn `yaml:"initial_trees"`
}

type TreeSpawn struct {
	Kind string `yaml:"kind"`
	X    uint64 `yaml:"x"`
	Y    uint64 `yaml:"y"`
	// AgeYears backdates the tree's birth.
	AgeYears uint64 `yaml:"age_years"`
}

const (
	IDModeSequence  = "sequence"
	IDModeWallClock = "wallclock"
)

func Defaults() Tuning {
	return Tuning{
		WorldID:            "forest_1",
		MaxTicks:           24 * 365 * 5,
		ProgressEveryTicks: 24 * 365,
		IDMode:             IDModeSequence,
		Calendar:           Calendar{DayTicks: 24, YearDays: 365},
		Logging:            Logging{Level: "info", Format: "text"},
		Forest: Forest{
			Seed:               1337,
			Width:              500,
			Height:             500,
			MaxTrees:           2000,
			EventLifetimeTicks: 24,
			WindPermille:       5,
			InitialTrees: []TreeSpawn{
				{Kind: "pine", X: 100, Y: 100, AgeYears: 30},
				{Kind: "sakura", X: 250, Y: 250, AgeYears: 35},
				{Kind: "ginkgo", X: 400, Y: 120, AgeYears: 25},
				{Kind: "cedar", X: 150, Y: 380, AgeYears: 25},
			},
		},
	}
}

// Load reads a YAML file on top of Defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	t.WorldID = strings.TrimSpace(t.WorldID)
	t.IDMode = strings.ToLower(strings.TrimSpace(t.IDMode))
	if t.IDMode == "" {
		t.IDMode = IDModeSequence
	}
	for i := range t.Forest.InitialTrees {
		t.Forest.InitialTrees[i].Kind = strings.ToLower(strings.TrimSpace(t.Forest.InitialTrees[i].Kind))
	}
}

func (t Tuning) Validate() error {
	var errs []error
	if t.WorldID == "" {
		errs = append(errs, errors.New("world_id is required"))
	}
	if t.TickRateHz < 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be >= 0, got %d", t.TickRateHz))
	}
	if t.Calendar.DayTicks == 0 {
		errs = append(errs, errors.New("calendar.day_ticks must be > 0"))
	}
	if t.Calendar.YearDays == 0 {
		errs = append(errs, errors.New("calendar.year_days must be > 0"))
	}
	switch t.IDMode {
	case IDModeSequence, IDModeWallClock:
	default:
		errs = append(errs, fmt.Errorf("id_mode must be %q or %q, got %q", IDModeSequence, IDModeWallClock, t.IDMode))
	}
	if t.Forest.Width == 0 || t.Forest.Height == 0 {
		errs = append(errs, errors.New("forest.width and forest.height must be > 0"))
	}
	if t.Forest.MaxTrees <= 0 {
		errs = append(errs, errors.New("forest.max_trees must be > 0"))
	}
	if t.Forest.WindPermille < 0 || t.Forest.WindPermille > 1000 {
		errs = append(errs, fmt.Errorf("forest.wind_permille must be in [0,1000], got %d", t.Forest.WindPermille))
	}
	for i, s := range t.Forest.InitialTrees {
		if s.X >= t.Forest.Width || s.Y >= t.Forest.Height {
			errs = append(errs, fmt.Errorf("forest.initial_trees[%d]: (%d,%d) outside %dx%d", i, s.X, s.Y, t.Forest.Width, t.Forest.Height))
		}
	}
	return errors.Join(errs...)
}

package archive

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hakoniwa.dev/internal/sim/world"
)

type YearArchiveMeta struct {
	RunID     string `json:"run_id"`
	WorldID   string `json:"world_id"`
	Year      string `json:"year"`
	EndTick   string `json:"end_tick"`
	EndDay    string `json:"end_day"`
	Objects   int    `json:"objects"`
	Memory    int    `json:"memory"`
	Digest    string `json:"digest"`
	CreatedAt string `json:"created_at"`
}

// YearLedger is a tick sink that writes `dir/year_<NNN>/meta.json` with the
// last tick of every year that a run completes.
type YearLedger struct {
	dir string

	mu   sync.Mutex
	last *world.TickLogEntry
}

func NewYearLedger(dir string) *YearLedger {
	return &YearLedger{dir: dir}
}

func (l *YearLedger) WriteTick(entry world.TickLogEntry) error {
	if entry.Year == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.last
	cur := entry
	l.last = &cur
	if prev == nil || prev.RunID != entry.RunID || prev.Year == nil || entry.Year.Cmp(prev.Year) <= 0 {
		return nil
	}
	_, err := l.archive(*prev)
	return err
}

// archive writes the meta for the year that ended at e.
func (l *YearLedger) archive(e world.TickLogEntry) (string, error) {
	yearDir := filepath.Join(l.dir, "year_"+padYear(e.Year))
	if err := os.MkdirAll(yearDir, 0o755); err != nil {
		return "", err
	}
	meta := YearArchiveMeta{
		RunID:     e.RunID,
		WorldID:   e.WorldID,
		Year:      e.Year.String(),
		EndTick:   e.Tick.String(),
		EndDay:    e.Day.String(),
		Objects:   e.Objects,
		Memory:    e.Memory,
		Digest:    e.Digest,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(yearDir, "meta.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("archive year %s: %w", meta.Year, err)
	}
	return path, nil
}

// ReadYear loads the meta written for year.
func ReadYear(dir string, year *big.Int) (YearArchiveMeta, error) {
	var meta YearArchiveMeta
	b, err := os.ReadFile(filepath.Join(dir, "year_"+padYear(year), "meta.json"))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(b, &meta)
	return meta, err
}

func padYear(y *big.Int) string {
	s := y.String()
	if len(s) < 3 {
		s = strings.Repeat("0", 3-len(s)) + s
	}
	return s
}

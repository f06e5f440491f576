package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"hakoniwa.dev/internal/sim/world"
)

// SQLiteIndex is a queryable secondary copy of the tick telemetry. Writes go
// through a single goroutine; the JSONL tick log stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick atomic.Uint64
	dropRun  atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqRun
)

type req struct {
	kind reqKind

	tick world.TickLogEntry
	run  RunInfo
}

// RunInfo describes one simulation run. Ticks written later with the same
// RunID join against it.
type RunInfo struct {
	RunID     string
	WorldID   string
	StartedAt time.Time
	DayTicks  uint64
	YearDays  uint64
	Seed      int64
	// Config is the applied configuration, stored verbatim as JSON.
	Config any
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropTickTotal uint64 `json:"drop_tick_total"`
	DropRunTotal  uint64 `json:"drop_run_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

// Tick, day and year are stored as decimal TEXT since the world clock is
// unbounded. tick_num mirrors tick when it fits in an int64, NULL otherwise.
func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			day_ticks INTEGER NOT NULL,
			year_days INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			config_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick TEXT NOT NULL,
			tick_num INTEGER,
			day TEXT NOT NULL,
			year TEXT NOT NULL,
			events INTEGER NOT NULL,
			evicted INTEGER NOT NULL,
			created INTEGER NOT NULL,
			removed INTEGER NOT NULL,
			relocated INTEGER NOT NULL,
			unrelocated INTEGER NOT NULL,
			objects INTEGER NOT NULL,
			memory INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_run_num ON ticks(run_id, tick_num);`,
		`CREATE TABLE IF NOT EXISTS created_objects (
			run_id TEXT NOT NULL,
			tick TEXT NOT NULL,
			seq INTEGER NOT NULL,
			object_id TEXT NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_created_object ON created_objects(object_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteTick implements world.TickLogger. It never blocks the tick loop: when
// the queue is full the entry is dropped and counted.
func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

// RecordRun queues the run row. Call it before the first tick of the run.
func (s *SQLiteIndex) RecordRun(info RunInfo) {
	if s == nil || s.closed.Load() {
		return
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	select {
	case s.ch <- req{kind: reqRun, run: info}:
	default:
		s.dropRun.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTickTotal: s.dropTick.Load(),
		DropRunTotal:  s.dropRun.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,world_id,started_at,day_ticks,year_days,seed,config_json) VALUES(?,?,?,?,?,?,?)`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,tick_num,day,year,events,evicted,created,removed,relocated,unrelocated,objects,memory,digest,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertCreated, _ := s.db.Prepare(`INSERT OR REPLACE INTO created_objects(run_id,tick,seq,object_id) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertTick, insertCreated} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRun:
			ri := r.run
			cfg, err := json.Marshal(ri.Config)
			if err != nil || ri.Config == nil {
				cfg = []byte("{}")
			}
			if insertRun != nil {
				if _, err := tx.Stmt(insertRun).Exec(
					ri.RunID,
					ri.WorldID,
					ri.StartedAt.UTC().Format(time.RFC3339Nano),
					int64(ri.DayTicks),
					int64(ri.YearDays),
					ri.Seed,
					string(cfg),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqTick:
			e := r.tick
			if e.Tick == nil || e.Day == nil || e.Year == nil {
				continue
			}
			var tickNum any
			if e.Tick.IsInt64() {
				tickNum = e.Tick.Int64()
			}
			raw, _ := json.Marshal(e)
			tick := e.Tick.String()
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					e.RunID,
					tick,
					tickNum,
					e.Day.String(),
					e.Year.String(),
					e.Events,
					e.Evicted,
					len(e.Created),
					e.Removed,
					e.Relocated,
					e.Unrelocated,
					e.Objects,
					e.Memory,
					e.Digest,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for i, id := range e.Created {
				if insertCreated == nil {
					break
				}
				if _, err := tx.Stmt(insertCreated).Exec(e.RunID, tick, i, id); err != nil {
					rollback()
					break
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}

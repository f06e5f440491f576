package world

import (
	"io"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hakoniwa.dev/internal/sim/ids"
	"hakoniwa.dev/internal/sim/kernel"
)

type Config struct {
	ID string
	// TickRateHz paces Run. Zero means step as fast as possible.
	TickRateHz int
	// MaxTicks stops Run after that many steps. Zero means run until stopped.
	MaxTicks uint64
	// ProgressEveryTicks controls how often Run logs a progress line.
	ProgressEveryTicks uint64
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz < 0 {
		c.TickRateHz = 0
	}
	if c.ProgressEveryTicks == 0 {
		c.ProgressEveryTicks = 1000
	}
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// TickLogEntry is the per-tick telemetry record handed to every TickLogger.
type TickLogEntry struct {
	RunID   string   `json:"run_id"`
	WorldID string   `json:"world_id"`
	Tick    *big.Int `json:"tick"`
	Day     *big.Int `json:"day"`
	Year    *big.Int `json:"year"`

	Events      int      `json:"events"`
	Evicted     int      `json:"evicted"`
	Created     []string `json:"created,omitempty"`
	Removed     int      `json:"removed"`
	Relocated   int      `json:"relocated"`
	Unrelocated int      `json:"unrelocated,omitempty"`

	Objects int    `json:"objects"`
	Memory  int    `json:"memory"`
	Digest  string `json:"digest"`
}

// World drives a kernel.Context: it owns the state, the generator list and
// the id assigner, and reports every tick to the registered loggers.
//
// Ticks are applied by a single goroutine (Run or a StepOnce caller). Other
// goroutines may read state only through View.
type World[E kernel.EventContents, O kernel.ObjectType] struct {
	cfg   Config
	runID string
	log   logrus.FieldLogger

	mu   sync.RWMutex
	ctx  *kernel.Context[E, O]
	gens []kernel.Generator[E, O]
	ids  kernel.IDAssigner

	tickLoggers []TickLogger

	steps   atomic.Uint64
	metrics atomic.Value

	stop     chan struct{}
	stopOnce sync.Once
}

type Option[E kernel.EventContents, O kernel.ObjectType] func(*World[E, O])

func WithLogger[E kernel.EventContents, O kernel.ObjectType](l logrus.FieldLogger) Option[E, O] {
	return func(w *World[E, O]) { w.log = l }
}

func WithIDAssigner[E kernel.EventContents, O kernel.ObjectType](a kernel.IDAssigner) Option[E, O] {
	return func(w *World[E, O]) { w.ids = a }
}

// WithTickLogger adds a telemetry sink. Sinks see entries in tick order.
func WithTickLogger[E kernel.EventContents, O kernel.ObjectType](l TickLogger) Option[E, O] {
	return func(w *World[E, O]) {
		if l != nil {
			w.tickLoggers = append(w.tickLoggers, l)
		}
	}
}

func WithRunID[E kernel.EventContents, O kernel.ObjectType](id string) Option[E, O] {
	return func(w *World[E, O]) { w.runID = id }
}

func New[E kernel.EventContents, O kernel.ObjectType](cfg Config, initial *kernel.Context[E, O], gens []kernel.Generator[E, O], opts ...Option[E, O]) *World[E, O] {
	cfg.applyDefaults()
	if initial == nil {
		panic("world: nil initial context")
	}
	if initial.Objects == nil {
		initial.Objects = map[string]kernel.Object[O]{}
	}
	w := &World[E, O]{
		cfg:  cfg,
		ctx:  initial,
		gens: append([]kernel.Generator[E, O](nil), gens...),
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.runID == "" {
		w.runID = uuid.NewString()
	}
	if w.ids == nil {
		w.ids = ids.NewSequence()
	}
	if w.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		w.log = l
	}
	w.log = w.log.WithFields(logrus.Fields{"world": cfg.ID, "run_id": w.runID})
	return w
}

func (w *World[E, O]) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World[E, O]) Config() Config { return w.cfg }

func (w *World[E, O]) RunID() string { return w.runID }

// CurrentTick is the elapsed unit-ticks of the world clock.
func (w *World[E, O]) CurrentTick() *big.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ctx.Time.All()
}

// Steps is how many ticks this World has applied since New.
func (w *World[E, O]) Steps() uint64 { return w.steps.Load() }

// View calls fn with the world state between ticks. fn must not modify it or
// keep references to it after returning.
func (w *World[E, O]) View(fn func(c *kernel.Context[E, O])) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fn(w.ctx)
}

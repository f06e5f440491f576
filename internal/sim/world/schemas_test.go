package world_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"hakoniwa.dev/internal/sim/chrono"
	"hakoniwa.dev/internal/sim/geom"
	"hakoniwa.dev/internal/sim/kernel"
	"hakoniwa.dev/internal/sim/world"
)

type pebble struct{}

func (pebble) Name() string               { return "pebble" }
func (pebble) GeneratedPoint() geom.Point { return geom.FromUint64(1, 1) }

type drop struct{ by string }

func (d drop) DoObject() string                       { return d.by }
func (d drop) TargetObject() (string, bool)           { return "", false }
func (d drop) Lifetime() (chrono.Time, bool)          { return chrono.Time{}, false }
func (d drop) MoveObject() (string, geom.Point, bool) { return "", geom.Point{}, false }

type sink struct{ lines [][]byte }

func (s *sink) WriteTick(e world.TickLogEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	s.lines = append(s.lines, b)
	return nil
}

func TestTickLogSchema_ValidatesEntries(t *testing.T) {
	schema, err := jsonschema.Compile(filepath.Join("..", "..", "..", "schemas", "ticklog.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	out := &sink{}
	gen := kernel.GeneratorFunc[drop, pebble](func(c *kernel.Context[drop, pebble]) kernel.GeneratedData[drop, pebble] {
		return kernel.GeneratedData[drop, pebble]{
			Events:          []drop{{by: "hand"}},
			GenerateObjects: []pebble{{}},
		}
	})
	initial := kernel.NewContext[drop, pebble](chrono.Zero(3, 2), nil)
	w := world.New(world.Config{ID: "tray"}, initial, []kernel.Generator[drop, pebble]{gen}, world.WithTickLogger[drop, pebble](out))
	for i := 0; i < 10; i++ {
		w.StepOnce()
	}

	if len(out.lines) != 10 {
		t.Fatalf("lines=%d want=10", len(out.lines))
	}
	for i, line := range out.lines {
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			t.Fatalf("line %d: decode: %v", i, err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("line %d: validate: %v\n%s", i, err, line)
		}
	}
}

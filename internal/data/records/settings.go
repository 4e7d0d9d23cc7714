package records

import (
	"math"

	"gamecfg/internal/data/value"
)

// Defaults for the tuning fields the runtime and save store read.
const (
	DefaultPlayerSpeed = 5.0
	DefaultWorldWidth  = 32
	DefaultWorldHeight = 32
	DefaultWorldSeed   = 1337
)

// EngineSettings is an opaque mapping of tuning fields. Only its shape is
// checked; the typed accessors fall back to defaults.
type EngineSettings struct {
	fields *value.Map
}

func DecodeSettings(doc value.Value) (EngineSettings, error) {
	m, ok := doc.AsMap()
	if !ok {
		return EngineSettings{}, &StructuralError{What: "settings", Want: value.KindMap, Got: doc.Kind()}
	}
	return EngineSettings{fields: m}, nil
}

// Fields returns a copy of the settings mapping in source order.
func (s EngineSettings) Fields() *value.Map { return s.fields.Clone() }

func (s EngineSettings) Len() int { return s.fields.Len() }

func (s EngineSettings) PlayerSpeed() float64 {
	if n, ok := s.number("player_speed"); ok {
		return n.Float
	}
	return DefaultPlayerSpeed
}

func (s EngineSettings) WorldWidth() int64  { return s.integer("world_width", DefaultWorldWidth) }
func (s EngineSettings) WorldHeight() int64 { return s.integer("world_height", DefaultWorldHeight) }
func (s EngineSettings) WorldSeed() int64   { return s.integer("world_seed", DefaultWorldSeed) }

func (s EngineSettings) number(key string) (value.Number, bool) {
	v, ok := s.fields.Get(key)
	if !ok {
		return value.Number{}, false
	}
	return v.AsNumber()
}

func (s EngineSettings) integer(key string, def int64) int64 {
	n, ok := s.number(key)
	if !ok {
		return def
	}
	if i, ok := n.Int64(); ok {
		return i
	}
	if n.Float == math.Trunc(n.Float) && math.Abs(n.Float) < 1<<53 {
		return int64(n.Float)
	}
	return def
}

// Package value holds the untyped document tree produced by the loader.
//
// A Value is a tagged union over the six shapes a configuration document can
// take. Mappings keep insertion order and numbers keep their source literal,
// so a document can be re-emitted without reordering keys or turning 5.0
// into 5.
package value

import (
	"fmt"
	"strconv"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is immutable once built; lists and maps are copied on the way in.
type Value struct {
	kind Kind
	b    bool
	num  Number
	str  string
	list []Value
	m    *Map
}

// Number is a finite numeric literal. Lit is valid JSON number text.
type Number struct {
	Lit   string
	Float float64
}

func (n Number) IsInt() bool {
	_, err := strconv.ParseInt(n.Lit, 10, 64)
	return err == nil
}

func (n Number) Int64() (int64, bool) {
	i, err := strconv.ParseInt(n.Lit, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func Null() Value           { return Value{kind: KindNull} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, str: s} }

func Int(i int64) Value {
	return Value{kind: KindNumber, num: Number{Lit: strconv.FormatInt(i, 10), Float: float64(i)}}
}

func Float(f float64) Value {
	lit := strconv.FormatFloat(f, 'f', -1, 64)
	if _, err := strconv.ParseInt(lit, 10, 64); err == nil {
		lit += ".0"
	}
	return Value{kind: KindNumber, num: Number{Lit: lit, Float: f}}
}

// NumberLit builds a number from a JSON number literal.
func NumberLit(lit string) (Value, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", lit, err)
	}
	return Value{kind: KindNumber, num: Number{Lit: lit, Float: f}}, nil
}

func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

func Mapping(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m.Clone()}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsMap() bool    { return v.kind == KindMap }
func (v Value) IsList() bool   { return v.kind == KindList }

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsNumber() (Number, bool) {
	return v.num, v.kind == KindNumber
}

// AsList returns a copy of the list elements.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// AsMap returns a copy of the mapping.
func (v Value) AsMap() (*Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m.Clone(), true
}

// Len reports the element count of a list or mapping, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return v.m.Len()
	}
	return 0
}

// Describe renders a short, human-readable form for diagnostics.
func (v Value) Describe() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return v.num.Lit
	case KindString:
		return strconv.Quote(v.str)
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.list))
	case KindMap:
		return fmt.Sprintf("map(%d)", v.m.Len())
	}
	return v.kind.String()
}

// Equal reports deep equality; mappings compare in order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num.Lit == o.num.Lit
	case KindString:
		return v.str == o.str
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

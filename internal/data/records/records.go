// Package records projects loaded value trees into the typed catalog and
// settings structures. It is the only place that reads fields out of an
// untyped tree; everything downstream works on ItemRecord and EngineSettings.
package records

import (
	"fmt"

	"gamecfg/internal/data/value"
)

type ItemType string

const (
	Weapon     ItemType = "Weapon"
	Armor      ItemType = "Armor"
	Consumable ItemType = "Consumable"
)

// ItemTypes is the closed set of item types, in display order.
var ItemTypes = []ItemType{Weapon, Armor, Consumable}

func (t ItemType) Valid() bool {
	for _, it := range ItemTypes {
		if t == it {
			return true
		}
	}
	return false
}

type Bonus struct {
	Stat   string
	Amount value.Number
}

type ItemRecord struct {
	ID          string
	Name        string
	Type        ItemType
	Bonuses     []Bonus
	Value       value.Number
	Description string
}

// Tree renders the record in artifact field order.
func (r ItemRecord) Tree() value.Value {
	m := value.NewMap()
	m.SetString("id", value.String(r.ID))
	m.SetString("name", value.String(r.Name))
	m.SetString("type", value.String(string(r.Type)))
	bonuses := value.NewMap()
	for _, b := range r.Bonuses {
		bonuses.SetString(b.Stat, numberValue(b.Amount))
	}
	m.SetString("bonuses", value.Mapping(bonuses))
	m.SetString("value", numberValue(r.Value))
	if r.Description != "" {
		m.SetString("description", value.String(r.Description))
	}
	return value.Mapping(m)
}

func numberValue(n value.Number) value.Value {
	if n.Lit == "" {
		return value.Int(0)
	}
	v, err := value.NumberLit(n.Lit)
	if err != nil {
		return value.Float(n.Float)
	}
	return v
}

// StructuralError reports a document whose shape cannot be projected.
type StructuralError struct {
	What string
	Want value.Kind
	Got  value.Kind
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s must be a %s, got %s", e.What, e.Want, e.Got)
}

// ItemBatch returns the records of an items document.
func ItemBatch(doc value.Value) ([]value.Value, error) {
	items, ok := doc.AsList()
	if !ok {
		return nil, &StructuralError{What: "items", Want: value.KindList, Got: doc.Kind()}
	}
	return items, nil
}

// DecodeItem projects one record. Callers validate first; DecodeItem only
// guards the shape it needs.
func DecodeItem(idx int, raw value.Value) (ItemRecord, error) {
	var r ItemRecord
	m, ok := raw.AsMap()
	if !ok {
		return r, &StructuralError{What: fmt.Sprintf("item[%d]", idx), Want: value.KindMap, Got: raw.Kind()}
	}

	field := func(name string, want value.Kind) (value.Value, bool, error) {
		v, ok := m.Get(name)
		if !ok {
			return v, false, nil
		}
		if v.Kind() != want {
			return v, true, &StructuralError{What: fmt.Sprintf("item[%d].%s", idx, name), Want: want, Got: v.Kind()}
		}
		return v, true, nil
	}

	id, _, err := field("id", value.KindString)
	if err != nil {
		return r, err
	}
	r.ID, _ = id.AsString()
	name, _, err := field("name", value.KindString)
	if err != nil {
		return r, err
	}
	r.Name, _ = name.AsString()
	typ, _, err := field("type", value.KindString)
	if err != nil {
		return r, err
	}
	s, _ := typ.AsString()
	r.Type = ItemType(s)

	bonuses, present, err := field("bonuses", value.KindMap)
	if err != nil {
		return r, err
	}
	if present {
		bm, _ := bonuses.AsMap()
		for _, mem := range bm.Members() {
			stat, okKey := mem.Key.AsString()
			amount, okVal := mem.Value.AsNumber()
			if !okKey || !okVal {
				return r, &StructuralError{What: fmt.Sprintf("item[%d].bonuses entry", idx), Want: value.KindNumber, Got: mem.Value.Kind()}
			}
			r.Bonuses = append(r.Bonuses, Bonus{Stat: stat, Amount: amount})
		}
	}

	val, present, err := field("value", value.KindNumber)
	if err != nil {
		return r, err
	}
	if present {
		r.Value, _ = val.AsNumber()
	} else {
		r.Value = value.Number{Lit: "0"}
	}

	desc, _, err := field("description", value.KindString)
	if err != nil {
		return r, err
	}
	r.Description, _ = desc.AsString()
	return r, nil
}

func DecodeItems(raw []value.Value) ([]ItemRecord, error) {
	out := make([]ItemRecord, 0, len(raw))
	for i, rv := range raw {
		r, err := DecodeItem(i, rv)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

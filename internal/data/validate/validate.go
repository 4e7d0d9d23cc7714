// Package validate checks item catalog records and reports every violation
// in one pass. It never stops at the first failure and never returns an
// error: the result is a list of diagnostics, empty on success.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"gamecfg/internal/data/records"
	"gamecfg/internal/data/value"
)

type Rule string

const (
	RuleRecordShape  Rule = "record-shape"
	RuleIDType       Rule = "id-type"
	RuleIDDuplicate  Rule = "id-duplicate"
	RuleNameType     Rule = "name-type"
	RuleTypeEnum     Rule = "type-enum"
	RuleBonusesShape Rule = "bonuses-shape"
	RuleBonusKey     Rule = "bonus-key"
	RuleBonusValue   Rule = "bonus-value"
	RuleValueRange   Rule = "value-range"
	RuleDescription  Rule = "description-type"
)

var (
	ErrMissingID   = errors.New("item id missing or not a string")
	ErrDuplicateID = errors.New("duplicate item id")
)

type Diagnostic struct {
	Index   int
	Rule    Rule
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("item[%d]: %s", d.Index, d.Message)
}

type Diagnostics []Diagnostic

// Failed is the aggregate signal callers use to pick an exit status.
func (ds Diagnostics) Failed() bool { return len(ds) > 0 }

func (ds Diagnostics) Has(rule Rule) bool {
	for _, d := range ds {
		if d.Rule == rule {
			return true
		}
	}
	return false
}

// Err returns nil when there are no diagnostics.
func (ds Diagnostics) Err() error {
	if len(ds) == 0 {
		return nil
	}
	out := make(Diagnostics, len(ds))
	copy(out, ds)
	return &Error{Diagnostics: out}
}

// Error is the fatal form of a diagnostic list, used by the build path.
type Error struct {
	Diagnostics Diagnostics
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation error(s)", len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrMissingID:
		return e.Diagnostics.Has(RuleIDType)
	case ErrDuplicateID:
		return e.Diagnostics.Has(RuleIDDuplicate)
	}
	return false
}

// batch carries the state shared by records of one catalog.
type batch struct {
	seen map[string]struct{}
	out  Diagnostics
}

func (b *batch) report(idx int, rule Rule, format string, args ...any) {
	b.out = append(b.out, Diagnostic{Index: idx, Rule: rule, Message: fmt.Sprintf(format, args...)})
}

type itemRule func(b *batch, idx int, rec *value.Map)

// itemRules run in this order for every record.
var itemRules = []itemRule{
	checkID,
	checkName,
	checkType,
	checkBonuses,
	checkValue,
	checkDescription,
}

// Items validates a batch. Id uniqueness is scoped to this call.
func Items(recs []value.Value) Diagnostics {
	b := &batch{seen: make(map[string]struct{}, len(recs))}
	for i, r := range recs {
		m, ok := r.AsMap()
		if !ok {
			b.report(i, RuleRecordShape, "record must be an object, got %s", r.Kind())
			continue
		}
		for _, rule := range itemRules {
			rule(b, i, m)
		}
	}
	return b.out
}

func describe(m *value.Map, key string) string {
	v, ok := m.Get(key)
	if !ok {
		return "nothing"
	}
	return v.Describe()
}

func checkID(b *batch, idx int, rec *value.Map) {
	v, _ := rec.Get("id")
	id, ok := v.AsString()
	if !ok || id == "" {
		b.report(idx, RuleIDType, "id missing or not a string, got %s", describe(rec, "id"))
		return
	}
	if _, dup := b.seen[id]; dup {
		b.report(idx, RuleIDDuplicate, "duplicate id %q", id)
		return
	}
	b.seen[id] = struct{}{}
}

func checkName(b *batch, idx int, rec *value.Map) {
	v, _ := rec.Get("name")
	if name, ok := v.AsString(); !ok || name == "" {
		b.report(idx, RuleNameType, "name missing or not a string, got %s", describe(rec, "name"))
	}
}

func checkType(b *batch, idx int, rec *value.Map) {
	v, _ := rec.Get("type")
	if s, ok := v.AsString(); ok && records.ItemType(s).Valid() {
		return
	}
	allowed := make([]string, len(records.ItemTypes))
	for i, t := range records.ItemTypes {
		allowed[i] = string(t)
	}
	b.report(idx, RuleTypeEnum, "type must be one of {%s}, got %s", strings.Join(allowed, ", "), describe(rec, "type"))
}

func checkBonuses(b *batch, idx int, rec *value.Map) {
	v, present := rec.Get("bonuses")
	if !present {
		return
	}
	bonuses, ok := v.AsMap()
	if !ok {
		b.report(idx, RuleBonusesShape, "bonuses must be an object, got %s", v.Describe())
		return
	}
	for _, mem := range bonuses.Members() {
		if !mem.Key.IsString() {
			b.report(idx, RuleBonusKey, "bonus key must be a string, got %s %s", mem.Key.Kind(), mem.Key.Describe())
		}
		if !mem.Value.IsNumber() {
			b.report(idx, RuleBonusValue, "bonus value for %s must be a number, got %s", mem.Key.Describe(), mem.Value.Describe())
		}
	}
}

func checkValue(b *batch, idx int, rec *value.Map) {
	v, present := rec.Get("value")
	if !present {
		return
	}
	if n, ok := v.AsNumber(); ok && n.Float >= 0 {
		return
	}
	b.report(idx, RuleValueRange, "value must be a number >= 0, got %s", v.Describe())
}

func checkDescription(b *batch, idx int, rec *value.Map) {
	v, present := rec.Get("description")
	if !present || v.IsString() {
		return
	}
	b.report(idx, RuleDescription, "description must be a string, got %s", v.Describe())
}

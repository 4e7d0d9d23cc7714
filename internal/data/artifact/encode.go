// Package artifact serializes stamped artifacts to canonical JSON and
// persists them.
//
// Canonical form: keys in insertion order, two-space indent, UTF-8 with
// non-ASCII text written literally, one trailing newline. Equal artifacts
// always encode to equal bytes.
package artifact

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"gamecfg/internal/data/stamp"
	"gamecfg/internal/data/value"
)

const indent = "  "

func Encode(a stamp.Artifact) ([]byte, error) {
	b, err := EncodeValue(a.Tree())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", a.Kind(), err)
	}
	return b, nil
}

// EncodeValue writes any tree in canonical form.
func EncodeValue(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v value.Value, depth int) error {
	switch v.Kind() {
	case value.KindNull:
		buf.WriteString("null")
	case value.KindBool:
		b, _ := v.AsBool()
		buf.WriteString(strconv.FormatBool(b))
	case value.KindNumber:
		n, _ := v.AsNumber()
		buf.WriteString(n.Lit)
	case value.KindString:
		s, _ := v.AsString()
		writeString(buf, s)
	case value.KindList:
		items, _ := v.AsList()
		if len(items) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, it := range items {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, depth+1)
			if err := encodeValue(buf, it, depth+1); err != nil {
				return err
			}
		}
		newline(buf, depth)
		buf.WriteByte(']')
	case value.KindMap:
		m, _ := v.AsMap()
		members := m.Members()
		if len(members) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		seen := make(map[string]struct{}, len(members))
		for i, mem := range members {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, depth+1)
			key, err := keyText(mem.Key)
			if err != nil {
				return err
			}
			// 1 and "1" are distinct YAML keys but the same JSON key.
			if _, dup := seen[key]; dup {
				return fmt.Errorf("mapping key %q appears twice once rendered as JSON", key)
			}
			seen[key] = struct{}{}
			writeString(buf, key)
			buf.WriteString(": ")
			if err := encodeValue(buf, mem.Value, depth+1); err != nil {
				return err
			}
		}
		newline(buf, depth)
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value kind %s", v.Kind())
	}
	return nil
}

// keyText renders scalar keys the way JSON requires: as strings.
func keyText(k value.Value) (string, error) {
	switch k.Kind() {
	case value.KindString:
		s, _ := k.AsString()
		return s, nil
	case value.KindNull, value.KindBool:
		return k.Describe(), nil
	case value.KindNumber:
		n, _ := k.AsNumber()
		return n.Lit, nil
	}
	return "", fmt.Errorf("mapping key of kind %s has no JSON form", k.Kind())
}

func newline(buf *bytes.Buffer, depth int) {
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString(indent)
	}
}

const hexDigits = "0123456789abcdef"

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				buf.WriteString(`\"`)
			case '\\':
				buf.WriteString(`\\`)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			default:
				if c < 0x20 {
					buf.WriteString(`\u00`)
					buf.WriteByte(hexDigits[c>>4])
					buf.WriteByte(hexDigits[c&0xf])
				} else {
					buf.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString("\uFFFD")
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gamecfg/internal/data/value"
)

func parseJSON(data []byte) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	// Depth 1 for the top value, as the YAML document node counts as a level.
	v, err := decodeJSON(dec, 1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return value.Value{}, io.ErrUnexpectedEOF
		}
		return value.Value{}, err
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return value.Value{}, err
		}
		return value.Value{}, fmt.Errorf("offset %d: unexpected trailing data %v", dec.InputOffset(), tok)
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder, depth int) (value.Value, error) {
	if depth > maxDepth {
		return value.Value{}, fmt.Errorf("offset %d: document nested deeper than %d", dec.InputOffset(), maxDepth)
	}
	tok, err := dec.Token()
	if err != nil {
		return value.Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(t), nil
	case string:
		return value.String(t), nil
	case json.Number:
		return value.NumberLit(t.String())
	case json.Delim:
		switch t {
		case '{':
			m := value.NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return value.Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return value.Value{}, fmt.Errorf("offset %d: object key is not a string", dec.InputOffset())
				}
				v, err := decodeJSON(dec, depth+1)
				if err != nil {
					return value.Value{}, err
				}
				m.SetString(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return value.Value{}, err
			}
			return value.Mapping(m), nil
		case '[':
			var items []value.Value
			for dec.More() {
				v, err := decodeJSON(dec, depth+1)
				if err != nil {
					return value.Value{}, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil {
				return value.Value{}, err
			}
			return value.List(items...), nil
		}
	}
	return value.Value{}, fmt.Errorf("offset %d: unexpected token %v", dec.InputOffset(), tok)
}

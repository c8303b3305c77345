package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"regen/core/utils"
)

var (
	traitListKeys = []string{"attributes", "traits"}
	categoryKeys  = []string{"trait_type", "type", "category", "trait_name", "name"}
	idKeys        = []string{"id", "token_id", "tokenId", "edition", "number"}
)

// recordKeys are top-level keys that never count as traits in the flat
// {category: value} form.
var recordKeys = map[string]bool{
	"name": true, "description": true, "image": true, "image_url": true,
	"image_data": true, "external_url": true, "animation_url": true,
	"youtube_url": true, "background_color": true, "dna": true, "date": true,
	"compiler": true, "properties": true, "id": true, "token_id": true,
	"tokenid": true, "edition": true, "number": true,
}

type field struct {
	key string
	raw json.RawMessage
}

// Parse extracts a token from one JSON record. stem is used as the ID when
// the record carries none.
//
// Accepted shapes, in order of preference:
//
//	{"attributes": [{"trait_type": "Hat", "value": "Red"}, ...]}
//	{"traits": [["Hat", "Red"], ...]}
//	{"attributes": {"Hat": "Red", ...}}
//	{"Hat": "Red", ...}
//	[{"trait_type": "Hat", "value": "Red"}, ...]
func Parse(data []byte, stem string, opts Options) (*Token, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	tok := &Token{ID: stem}
	switch data[0] {
	case '[':
		if err := tok.addFromArray(data, opts); err != nil {
			return nil, err
		}
		return tok, nil
	case '{':
	default:
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON")
		}
		return nil, ErrUnsupportedRecord
	}

	fields, err := orderedFields(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if id := idFrom(fields); id != "" {
		tok.ID = id
	}

	if list, ok := lookup(fields, traitListKeys...); ok {
		trimmed := bytes.TrimSpace(list)
		switch {
		case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
			return tok, nil
		case trimmed[0] == '[':
			err = tok.addFromArray(trimmed, opts)
		case trimmed[0] == '{':
			err = tok.addFromObject(trimmed, nil, opts)
		default:
			err = fmt.Errorf("%w: trait list is neither array nor object", ErrUnsupportedRecord)
		}
		if err != nil {
			return nil, err
		}
		return tok, nil
	}

	if err := tok.addFromObject(data, recordKeys, opts); err != nil {
		return nil, err
	}
	return tok, nil
}

func (t *Token) add(category, value string, opts Options) {
	category = strings.TrimSpace(category)
	value = strings.TrimSpace(value)
	if category == "" || value == "" || opts.skip(value) {
		t.Ignored++
		return
	}
	t.Traits = append(t.Traits, Trait{Category: category, Value: value})
}

// addFromArray handles a list of trait objects or [category, value] pairs.
func (t *Token) addFromArray(data []byte, opts Options) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("invalid trait list: %w", err)
	}

	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}
		switch item[0] {
		case '{':
			fields, err := orderedFields(item)
			if err != nil {
				return fmt.Errorf("invalid trait: %w", err)
			}
			category, _ := scalarFrom(fields, categoryKeys...)
			value, ok := scalarFrom(fields, "value")
			if !ok {
				t.Ignored++
				continue
			}
			t.add(category, value, opts)
		case '[':
			var pair []any
			if err := decode(item, &pair); err != nil {
				return fmt.Errorf("invalid trait pair: %w", err)
			}
			if len(pair) < 2 || !utils.IsScalar(pair[0]) || !utils.IsScalar(pair[1]) {
				t.Ignored++
				continue
			}
			t.add(utils.ToString(pair[0]), utils.ToString(pair[1]), opts)
		default:
			t.Ignored++
		}
	}
	return nil
}

// addFromObject handles the ordered {category: value} form. Keys listed in
// exclude (compared lower-cased) and non-scalar values are not traits.
func (t *Token) addFromObject(data []byte, exclude map[string]bool, opts Options) error {
	fields, err := orderedFields(data)
	if err != nil {
		return fmt.Errorf("invalid trait object: %w", err)
	}
	for _, f := range fields {
		if exclude[strings.ToLower(f.key)] {
			continue
		}
		v, ok := scalar(f.raw)
		if !ok {
			continue
		}
		t.add(f.key, v, opts)
	}
	return nil
}

// orderedFields decodes a JSON object keeping key order.
func orderedFields(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	start, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := start.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object")
	}

	var fields []field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, field{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// lookup returns the first field matching one of keys, case-insensitively,
// honouring the preference order of keys.
func lookup(fields []field, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		for _, f := range fields {
			if strings.EqualFold(f.key, k) {
				return f.raw, true
			}
		}
	}
	return nil, false
}

func scalarFrom(fields []field, keys ...string) (string, bool) {
	for _, k := range keys {
		for _, f := range fields {
			if !strings.EqualFold(f.key, k) {
				continue
			}
			if v, ok := scalar(f.raw); ok && v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func idFrom(fields []field) string {
	id, ok := scalarFrom(fields, idKeys...)
	if !ok {
		return ""
	}
	id = strings.TrimSpace(id)
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return ""
	}
	return id
}

func scalar(raw json.RawMessage) (string, bool) {
	var v any
	if err := decode(raw, &v); err != nil || !utils.IsScalar(v) {
		return "", false
	}
	return utils.ToString(v), true
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

package config

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Configuration is the decoded configuration resource. It keeps the bytes as
// they were received so the value reaching a unit is exactly what was served.
type Configuration struct {
	raw json.RawMessage
}

// Decode validates data as a single JSON value and wraps it.
func Decode(data []byte) (*Configuration, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty configuration document")
	}

	var probe any
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, err
	}

	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	return &Configuration{raw: raw}, nil
}

// Raw returns a copy of the JSON document.
func (c *Configuration) Raw() json.RawMessage {
	out := make(json.RawMessage, len(c.raw))
	copy(out, c.raw)
	return out
}

// Value decodes the document into generic Go values (maps, slices, float64,
// string, bool, nil). Each call returns a fresh value.
func (c *Configuration) Value() any {
	var v any
	// raw was validated by Decode.
	_ = json.Unmarshal(c.raw, &v)
	return v
}

// Document decodes the document like Value, except that numbers are kept as
// json.Number. Units that re-encode the configuration use it so integers keep
// their exact digits.
func (c *Configuration) Document() any {
	dec := json.NewDecoder(bytes.NewReader(c.raw))
	dec.UseNumber()
	var v any
	_ = dec.Decode(&v)
	return v
}

// DecodeInto unmarshals the document into dst.
func (c *Configuration) DecodeInto(dst any) error {
	return json.Unmarshal(c.raw, dst)
}

// MarshalJSON implements json.Marshaler by returning the original document.
func (c *Configuration) MarshalJSON() ([]byte, error) {
	return c.Raw(), nil
}

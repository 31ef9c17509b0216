package domain

import (
	"bytes"
	"encoding/json"
)

// Optional marks whether a field was supplied in a partial update.
// A JSON null decodes to an absent value.
type Optional[T any] struct {
	Value   T
	Present bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Present: true}
}

// IsZero reports absence; it lets `omitzero` drop absent fields when encoding.
func (o Optional[T]) IsZero() bool {
	return !o.Present
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = v
	o.Present = true
	return nil
}

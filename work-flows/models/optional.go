package models

import "encoding/json"

// Optional holds a value that may be absent. The zero value is None.
type Optional[T any] struct {
	value T
	ok    bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// OptionalText keeps a service-provided string only when it was requested and
// is non-empty.
func OptionalText(s *string, requested bool) Optional[string] {
	if !requested || s == nil || *s == "" {
		return None[string]()
	}
	return Some(*s)
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

func (o Optional[T]) IsSome() bool {
	return o.ok
}

func (o Optional[T]) OrZero() T {
	return o.value
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

package query

import "encoding/json"

// Optional is a patch field that distinguishes a key omitted from the
// request body from one explicitly set to null. Omitted fields are skipped
// by the SET builder; explicit nulls clear the column.
type Optional[T any] struct {
	Present bool
	Null    bool
	Value   T
}

// UnmarshalJSON marks the field present and records whether it was null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Ptr returns the value as a pointer, nil when the field was null.
func (o Optional[T]) Ptr() *T {
	if !o.Present || o.Null {
		return nil
	}
	v := o.Value
	return &v
}

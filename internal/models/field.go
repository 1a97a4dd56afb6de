package models

import "encoding/json"

// Field - значение поля в частичном обновлении.
//
// Set=false означает, что поле не передано. Set=true и Null=true означает явный null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Value создаёт заданное поле.
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null создаёт поле с явным null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON отличает отсутствующее поле от null.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if string(b) == "null" {
		f.Null = true
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

// Ptr возвращает указатель на значение или nil для null.
func (f Field[T]) Ptr() *T {
	if !f.Set || f.Null {
		return nil
	}
	v := f.Value
	return &v
}

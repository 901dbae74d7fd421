package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "number").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

type stringType struct{ nonEmpty bool }

func (t stringType) Name() string { return "string" }

func (t stringType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if t.nonEmpty && strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

type numberType struct{}

func (numberType) Name() string { return "number" }

func (numberType) Validate(value any) error {
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	}
	return fmt.Errorf("expected number, got %T", value)
}

type boolType struct{}

func (boolType) Name() string { return "bool" }

func (boolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

type mapType struct{}

func (mapType) Name() string { return "map" }

func (mapType) Validate(value any) error {
	if value == nil || reflect.ValueOf(value).Kind() != reflect.Map {
		return fmt.Errorf("expected object, got %T", value)
	}
	return nil
}

type listType struct{ elem Type }

func (t listType) Name() string {
	if t.elem == nil {
		return "[any]"
	}
	return "[" + t.elem.Name() + "]"
}

func (t listType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	if t.elem == nil {
		return nil
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type anyType struct{}

func (anyType) Name() string         { return "any" }
func (anyType) Validate(_ any) error { return nil }

type oneOfType struct{ allowed []string }

func (t oneOfType) Name() string { return strings.Join(t.allowed, "|") }

func (t oneOfType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected one of %s, got %T", t.Name(), value)
	}
	for _, a := range t.allowed {
		if strings.EqualFold(a, s) {
			return nil
		}
	}
	return fmt.Errorf("expected one of %s, got %q", t.Name(), s)
}

type anyOfType struct{ types []Type }

func (t anyOfType) Name() string {
	names := make([]string, len(t.types))
	for i, typ := range t.types {
		names[i] = typ.Name()
	}
	return strings.Join(names, "|")
}

func (t anyOfType) Validate(value any) error {
	for _, typ := range t.types {
		if typ.Validate(value) == nil {
			return nil
		}
	}
	return fmt.Errorf("expected %s, got %T", t.Name(), value)
}

// OptionalType marks a field that may be absent or nil.
type OptionalType struct{ Type }

func (t OptionalType) Name() string { return t.Type.Name() + "?" }

// String accepts strings.
func String() Type { return stringType{} }

// NonEmptyString accepts strings with at least one non-space character.
func NonEmptyString() Type { return stringType{nonEmpty: true} }

// Number accepts any Go numeric value.
func Number() Type { return numberType{} }

// Bool accepts booleans.
func Bool() Type { return boolType{} }

// Map accepts any map.
func Map() Type { return mapType{} }

// List accepts slices; a nil elem accepts any element.
func List(elem Type) Type { return listType{elem: elem} }

// Any accepts everything, including nil.
func Any() Type { return anyType{} }

// OneOf accepts one of the given strings (case-insensitive).
func OneOf(values ...string) Type { return oneOfType{allowed: values} }

// AnyOf accepts a value matching at least one of the types.
func AnyOf(types ...Type) Type { return anyOfType{types: types} }

// Optional allows the field to be missing.
func Optional(t Type) Type { return OptionalType{Type: t} }

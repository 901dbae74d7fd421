package schema

import (
	"encoding/json"
	"sort"
)

// Schema maps param names to their expected types. Fields are required unless
// wrapped with Optional.
type Schema map[string]Type

// Validate checks data against the schema and reports every failure, in field name order.
func Validate(s Schema, data map[string]any) error {
	if len(s) == 0 {
		return nil
	}

	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		typ := s[key]
		value, exists := data[key]
		if opt, ok := typ.(OptionalType); ok {
			if !exists || value == nil {
				continue
			}
			typ = opt.Type
		}
		if !exists || value == nil {
			errs = append(errs, &ValidationError{Key: key, Reason: "required"})
			continue
		}
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// MarshalJSON serializes the schema as a map of field names to type names.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	raw := make(map[string]string, len(s))
	for key, typ := range s {
		raw[key] = typ.Name()
	}
	return json.Marshal(raw)
}

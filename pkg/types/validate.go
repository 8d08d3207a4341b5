package types

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/aretw0/paneltree/pkg/domain"
)

// Schema is a map of field names to their expected types.
// Example: {"propLimit": Number(), "expanded": Boolean()}
type Schema map[string]domain.Type

// Check verifies that a plain value conforms to t.
func Check(t domain.Type, value any) error {
	switch kindOf(t) {
	case KindAny:
		return nil
	case KindVoid:
		return fmt.Errorf("expected no value, got %T", value)
	case KindNone:
		if value != nil {
			return fmt.Errorf("expected none, got %T", value)
		}
		return nil
	case KindString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		return nil
	case KindNumber:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return nil
		}
		return fmt.Errorf("expected number, got %T", value)
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
		return nil
	case KindDate:
		switch v := value.(type) {
		case time.Time:
			return nil
		case string:
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				return fmt.Errorf("expected date, got %q", v)
			}
			return nil
		}
		return fmt.Errorf("expected date, got %T", value)
	case KindList:
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("expected list, got %T", value)
		}
		elem := t.(*T).elem
		for i := 0; i < rv.Len(); i++ {
			if err := Check(elem, rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	case KindUnion:
		for _, m := range t.(*T).members {
			if Check(m, value) == nil {
				return nil
			}
		}
		return fmt.Errorf("expected %s, got %T", t, value)
	case KindTypedDict, KindObject:
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("expected %s, got %T", t, value)
		}
		schema := make(Schema)
		for _, p := range t.(*T).props {
			schema[p.Name] = p.Type
		}
		return Validate(schema, m)
	}
	return fmt.Errorf("unsupported type %s", t)
}

// Infer returns the narrowest type describing a plain value.
func Infer(value any) domain.Type {
	switch v := value.(type) {
	case nil:
		return None()
	case string:
		return String()
	case bool:
		return Boolean()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Number()
	case time.Time:
		return Date()
	case []any:
		members := make([]domain.Type, 0, len(v))
		for _, item := range v {
			members = append(members, Infer(item))
		}
		if len(members) == 0 {
			return List(Any())
		}
		return List(Union(members...))
	case map[string]any:
		props := make(map[string]domain.Type, len(v))
		for k, item := range v {
			props[k] = Infer(item)
		}
		return TypedDict(props)
	default:
		return Any()
	}
}

// Validate checks if data conforms to the schema.
// Returns an error with all validation failures found.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}

	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, fieldName := range keys {
		fieldType := schema[fieldName]
		value, exists := data[fieldName]
		if !exists {
			if IsNullable(fieldType) {
				continue
			}
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: "required",
				Value:  nil,
			})
			continue
		}

		if err := Check(fieldType, value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}

	return nil
}

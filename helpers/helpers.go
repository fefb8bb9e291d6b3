package helpers

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// IsPresent reports whether v carries a usable key: nil, nil pointers, blank
// strings, empty collections and zero values such as 0 or a zero ObjectID are
// absent. Go models hold a missing key as the zero value of its field.
func IsPresent(v any) bool {
	if v == nil {
		return false
	}

	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value) != ""
	case *string:
		return value != nil && strings.TrimSpace(*value) != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return IsPresent(rv.Elem().Interface())
	case reflect.Slice, reflect.Map:
		return rv.Len() > 0
	}

	if rv.IsZero() {
		return false
	}
	if stringer, ok := v.(fmt.Stringer); ok {
		return strings.TrimSpace(stringer.String()) != ""
	}
	return true
}

// Wrap turns its arguments into a list. A single slice argument is
// flattened, so Wrap(1) and Wrap([]int{1}) both give []any{1}.
func Wrap(values ...any) []any {
	if len(values) == 1 && values[0] != nil {
		rv := reflect.ValueOf(values[0])
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			if _, isBytes := values[0].([]byte); !isBytes {
				list := make([]any, rv.Len())
				for i := range rv.Len() {
					list[i] = rv.Index(i).Interface()
				}
				return list
			}
		}
	}

	list := make([]any, len(values))
	copy(list, values)
	return list
}

// KeyOf normalizes a join value so that 1, int64(1), "1" and a decoded
// JSON number compare equal. Values with a text form, such as ObjectIDs,
// use it.
func KeyOf(v any) string {
	if v == nil {
		return ""
	}

	if marshaler, ok := v.(encoding.TextMarshaler); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr || !rv.IsNil() {
			if text, err := marshaler.MarshalText(); err == nil {
				return string(text)
			}
		}
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return fmt.Sprint(int64(f))
		}
	}

	return fmt.Sprint(rv.Interface())
}

// UniqueKeys returns the present values of keys in first-seen order,
// dropping duplicates by KeyOf.
func UniqueKeys(keys []any) []any {
	seen := make(map[string]struct{}, len(keys))
	values := make([]any, 0, len(keys))

	for _, key := range keys {
		if !IsPresent(key) {
			continue
		}
		normalized := KeyOf(key)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		values = append(values, key)
	}

	return values
}

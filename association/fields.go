package association

import (
	"reflect"
	"strings"
	"sync"
)

// FieldValuer lets an owner report its join-key fields without reflection.
type FieldValuer interface {
	RemoteField(name string) (any, bool)
}

var fieldIndexes sync.Map // reflect.Type -> map[string][]int

// FieldValue returns the value of the owner field called name. The field is
// matched by its json tag, bson tag, or Go name. Missing fields are nil.
func FieldValue(owner Owner, name string) any {
	if valuer, ok := owner.(FieldValuer); ok {
		value, _ := valuer.RemoteField(name)
		return value
	}

	rv := reflect.ValueOf(owner)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		value := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil
		}
		return value.Interface()
	case reflect.Struct:
		index, ok := indexesOf(rv.Type())[name]
		if !ok {
			return nil
		}
		field, err := rv.FieldByIndexErr(index)
		if err != nil {
			return nil
		}
		return field.Interface()
	}

	return nil
}

func indexesOf(t reflect.Type) map[string][]int {
	if cached, ok := fieldIndexes.Load(t); ok {
		return cached.(map[string][]int)
	}

	indexes := map[string][]int{}
	for _, field := range reflect.VisibleFields(t) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		for _, name := range fieldNames(field) {
			if _, taken := indexes[name]; !taken {
				indexes[name] = field.Index
			}
		}
	}

	fieldIndexes.Store(t, indexes)
	return indexes
}

func fieldNames(field reflect.StructField) []string {
	names := make([]string, 0, 3)
	for _, key := range []string{"json", "bson"} {
		tag := strings.Split(field.Tag.Get(key), ",")[0]
		if tag != "" && tag != "-" {
			names = append(names, tag)
		}
	}
	return append(names, field.Name)
}

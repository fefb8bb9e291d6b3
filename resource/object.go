package resource

import (
	"strings"

	"github.com/xompass/remote-association/helpers"
)

// Object is a record returned by a remote resource API.
type Object map[string]any

// Get returns the value of field. Dotted paths ("author.id") walk nested objects.
func (o Object) Get(field string) any {
	if o == nil {
		return nil
	}

	if value, ok := o[field]; ok {
		return value
	}

	head, rest, found := strings.Cut(field, ".")
	if !found {
		return nil
	}

	switch nested := o[head].(type) {
	case map[string]any:
		return Object(nested).Get(rest)
	case Object:
		return nested.Get(rest)
	}

	return nil
}

func (o Object) ID() any {
	return o.Get("id")
}

// String returns the normalized string form of field, or "" when absent.
func (o Object) String(field string) string {
	return helpers.KeyOf(o.Get(field))
}

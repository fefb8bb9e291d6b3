package resource

import (
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/xompass/remote-association/helpers"
)

// Params are the query parameters of a remote find. Values are scalars,
// lists or nested maps.
type Params map[string]any

// Encode serializes params with the repeated-key array syntax understood by
// Rails-style resource APIs:
//
//	{"user_id": [1, 2]}             -> user_id%5B%5D=1&user_id%5B%5D=2
//	{"search": {"active": true}}    -> search%5Bactive%5D=true
//	{"user_id": []}                 -> user_id%5B%5D=
//
// Keys are sorted so the output is deterministic.
func (p Params) Encode() string {
	var pairs []string
	for _, key := range sortedKeys(p) {
		pairs = appendPairs(pairs, key, p[key])
	}
	return strings.Join(pairs, "&")
}

func appendPairs(pairs []string, prefix string, value any) []string {
	if nested, ok := asMap(value); ok {
		for _, key := range sortedKeys(nested) {
			pairs = appendPairs(pairs, prefix+"["+key+"]", nested[key])
		}
		return pairs
	}

	if isList(value) {
		items := helpers.Wrap(value)
		if len(items) == 0 {
			return append(pairs, url.QueryEscape(prefix+"[]")+"=")
		}
		for _, item := range items {
			pairs = appendPairs(pairs, prefix+"[]", item)
		}
		return pairs
	}

	return append(pairs, url.QueryEscape(prefix)+"="+url.QueryEscape(helpers.KeyOf(value)))
}

// MergeParams deep merges src over dst and returns a new map. Nested maps
// merge key by key; any other value in src overwrites the one in dst.
// Neither argument is modified.
func MergeParams(dst, src map[string]any) Params {
	result := make(Params, len(dst)+len(src))
	for key, value := range dst {
		result[key] = cloneValue(value)
	}

	for key, value := range src {
		srcMap, srcIsMap := asMap(value)
		dstMap, dstIsMap := asMap(result[key])
		if srcIsMap && dstIsMap {
			result[key] = map[string]any(MergeParams(dstMap, srcMap))
			continue
		}
		result[key] = cloneValue(value)
	}

	return result
}

func cloneValue(value any) any {
	if nested, ok := asMap(value); ok {
		return map[string]any(MergeParams(nested, nil))
	}
	return value
}

func asMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case Params:
		return m, true
	case Object:
		return m, true
	}
	return nil, false
}

func isList(value any) bool {
	if value == nil {
		return false
	}
	if _, isBytes := value.([]byte); isBytes {
		return false
	}
	kind := reflect.TypeOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

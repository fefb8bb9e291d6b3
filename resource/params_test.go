package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Encode(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		expected string
	}{
		{
			name:     "list uses repeated array keys",
			params:   Params{"user_id": []any{1, 2}},
			expected: "user_id%5B%5D=1&user_id%5B%5D=2",
		},
		{
			name:     "typed slices are flattened",
			params:   Params{"user_id": []int64{10, 13, 15}},
			expected: "user_id%5B%5D=10&user_id%5B%5D=13&user_id%5B%5D=15",
		},
		{
			name:     "empty list keeps the key",
			params:   Params{"user_id": []any{}},
			expected: "user_id%5B%5D=",
		},
		{
			name:     "bracketed lookup field",
			params:   Params{"search[id_in]": []any{1}},
			expected: "search%5Bid_in%5D%5B%5D=1",
		},
		{
			name:     "nested maps",
			params:   Params{"search": map[string]any{"verified": true, "active": true}},
			expected: "search%5Bactive%5D=true&search%5Bverified%5D=true",
		},
		{
			name:     "scalars and sorting",
			params:   Params{"b": "x y", "a": 1.0, "c": nil},
			expected: "a=1&b=x+y&c=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.params.Encode())
		})
	}
}

func TestMergeParams_DeepMerge(t *testing.T) {
	first := map[string]any{"search": map[string]any{"active": true}}
	second := map[string]any{"search": map[string]any{"verified": true}}

	merged := MergeParams(first, second)

	assert.Equal(t, Params{"search": map[string]any{"active": true, "verified": true}}, merged)
	assert.Equal(t, map[string]any{"active": true}, first["search"], "inputs must not be modified")
}

func TestMergeParams_ScalarsOverwrite(t *testing.T) {
	merged := MergeParams(
		map[string]any{"limit": 10, "search": map[string]any{"name": "A", "deep": map[string]any{"x": 1}}},
		map[string]any{"limit": 20, "search": map[string]any{"name": "B", "deep": map[string]any{"y": 2}}},
	)

	assert.Equal(t, Params{
		"limit": 20,
		"search": map[string]any{
			"name": "B",
			"deep": map[string]any{"x": 1, "y": 2},
		},
	}, merged)
}

func TestMergeParams_MapReplacesScalar(t *testing.T) {
	merged := MergeParams(map[string]any{"search": "all"}, map[string]any{"search": map[string]any{"a": 1}})
	assert.Equal(t, Params{"search": map[string]any{"a": 1}}, merged)
}

func TestObject_Get(t *testing.T) {
	object := Object{"id": 1, "author": map[string]any{"id": 7}}

	assert.Equal(t, 1, object.ID())
	assert.Equal(t, 7, object.Get("author.id"))
	assert.Nil(t, object.Get("author.name"))
	assert.Nil(t, object.Get("missing"))
	assert.Equal(t, "7", object.String("author.id"))
	assert.Nil(t, Object(nil).Get("id"))
}

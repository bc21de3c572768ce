package jsonquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	doc := map[string]any{
		"responses": map[string]any{
			"200": map[string]any{
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{"type": "object"},
					},
				},
			},
		},
		"list":   []any{"a"},
		"flag":   true,
		"name":   "services",
		"number": float64(3),
	}

	tests := []struct {
		name     string
		keys     []string
		expected any
		found    bool
	}{
		{"no keys returns input", nil, doc, true},
		{"deep lookup", []string{"responses", "200", "content", "application/json", "schema"}, map[string]any{"type": "object"}, true},
		{"missing key", []string{"responses", "404"}, nil, false},
		{"through non-object", []string{"name", "deeper"}, nil, false},
		{"through array", []string{"list", "0"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Get(doc, tt.keys...)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestTypedGetters(t *testing.T) {
	doc := map[string]any{
		"obj":  map[string]any{"k": "v"},
		"arr":  []any{1, 2},
		"str":  "hello",
		"bool": true,
		"num":  float64(2.5),
	}

	m, ok := GetMap(doc, "obj")
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"k": "v"}, m)

	_, ok = GetMap(doc, "str")
	assert.False(t, ok, "type mismatch should not be found")

	arr, ok := GetArray(doc, "arr")
	assert.True(t, ok)
	assert.Len(t, arr, 2)

	s, ok := GetString(doc, "str")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	b, ok := GetBool(doc, "bool")
	assert.True(t, ok)
	assert.True(t, b)

	n, ok := GetNumber(doc, "num")
	assert.True(t, ok)
	assert.Equal(t, 2.5, n)

	_, ok = GetNumber(doc, "str")
	assert.False(t, ok)
}

func TestAsNumber(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected float64
		ok       bool
	}{
		{"float64", float64(1.5), 1.5, true},
		{"float32", float32(2), 2, true},
		{"int", int(3), 3, true},
		{"int64", int64(4), 4, true},
		{"uint64", uint64(5), 5, true},
		{"string", "6", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsNumber(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

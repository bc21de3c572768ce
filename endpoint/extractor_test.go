package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIDsHeuristics(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name:     "wrapped collection",
			body:     `{"data": [{"id": "1"}, {"id": "2"}]}`,
			expected: []string{"1", "2"},
		},
		{
			name:     "top-level array",
			body:     `[{"id": "a"}, {"id": "b"}]`,
			expected: []string{"a", "b"},
		},
		{
			name:     "single object",
			body:     `{"id": "only"}`,
			expected: []string{"only"},
		},
		{
			name:     "numeric ids keep source representation",
			body:     `{"items": [{"id": 10}, {"id": 20}]}`,
			expected: []string{"10", "20"},
		},
		{
			name:     "duplicates collapse preserving first occurrence",
			body:     `{"results": [{"id": "x"}, {"id": "y"}, {"id": "x"}]}`,
			expected: []string{"x", "y"},
		},
		{
			name:     "alternative id field names",
			body:     `{"content": [{"uuid": "u-1"}, {"identifier": "i-2"}]}`,
			expected: []string{"u-1", "i-2"},
		},
		{
			name:     "empty strings and non-scalars rejected",
			body:     `{"data": [{"id": ""}, {"id": {"nested": true}}, {"id": "ok"}]}`,
			expected: []string{"ok"},
		},
		{
			name:     "empty feed",
			body:     `{"data": []}`,
			expected: nil,
		},
		{
			name:     "no identifier fields",
			body:     `{"data": [{"name": "no id here"}]}`,
			expected: nil,
		},
		{
			name:     "invalid JSON",
			body:     `{"data": [`,
			expected: nil,
		},
		{
			name:     "scalar body",
			body:     `42`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := ExtractIDs([]byte(tt.body), map[string]any{}, map[string]any{})
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestExtractIDsSchemaGuided(t *testing.T) {
	// The schema names a non-standard wrapper ("entries") and a non-standard
	// identifier ("serviceId"); neither would be found heuristically.
	operation := map[string]any{
		"responses": map[string]any{
			"200": map[string]any{
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"entries": map[string]any{
									"type": "array",
									"items": map[string]any{
										"type": "object",
										"properties": map[string]any{
											"serviceId": map[string]any{"type": "string"},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	body := `{"entries": [{"serviceId": "s-1"}, {"serviceId": "s-2"}]}`
	ids := ExtractIDs([]byte(body), operation, map[string]any{})
	assert.Equal(t, []string{"s-1", "s-2"}, ids)
}

func TestExtractIDsSchemaWithRef(t *testing.T) {
	doc := map[string]any{
		"components": map[string]any{
			"schemas": map[string]any{
				"ServicePage": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"records": map[string]any{
							"type": "array",
							"items": map[string]any{
								"properties": map[string]any{
									"ref": map[string]any{
										"type":        "string",
										"description": "The unique identifier of the record",
									},
								},
							},
						},
					},
				},
			},
		},
	}
	operation := map[string]any{
		"responses": map[string]any{
			"200": map[string]any{
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{"$ref": "#/components/schemas/ServicePage"},
					},
				},
			},
		},
	}

	body := `{"records": [{"ref": "r-9"}]}`
	ids := ExtractIDs([]byte(body), operation, doc)
	assert.Equal(t, []string{"r-9"}, ids)
}

func TestExtractIDsOAS2SchemaLayout(t *testing.T) {
	operation := map[string]any{
		"responses": map[string]any{
			"200": map[string]any{
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"rows": map[string]any{"type": "array"},
					},
				},
			},
		},
	}

	body := `{"rows": [{"id": "oas2-1"}]}`
	ids := ExtractIDs([]byte(body), operation, map[string]any{})
	assert.Equal(t, []string{"oas2-1"}, ids)
}

func TestLooksLikeIDField(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		schema   map[string]any
		expected bool
	}{
		{"plain id", "id", map[string]any{}, true},
		{"camelCase suffix", "organizationId", map[string]any{}, true},
		{"snake_case suffix", "service_id", map[string]any{}, true},
		{"uuid format", "token", map[string]any{"format": "uuid"}, true},
		{"identifier description", "ref", map[string]any{"description": "Unique identifier"}, true},
		{"unrelated field", "name", map[string]any{}, false},
		{"misleading suffix", "valid", map[string]any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, looksLikeIDField(tt.field, tt.schema))
		})
	}
}

func TestResponseSchema(t *testing.T) {
	t.Run("no schema declared", func(t *testing.T) {
		assert.Nil(t, ResponseSchema(map[string]any{}, map[string]any{}))
	})

	t.Run("OAS3 layout", func(t *testing.T) {
		op := map[string]any{
			"responses": map[string]any{
				"200": map[string]any{
					"content": map[string]any{
						"application/json": map[string]any{
							"schema": map[string]any{"type": "object"},
						},
					},
				},
			},
		}
		schema := ResponseSchema(op, map[string]any{})
		assert.Equal(t, map[string]any{"type": "object"}, schema)
	})
}

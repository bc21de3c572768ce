package schemavalidator

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode parses a JSON literal into the decoded form the validator consumes.
func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestValidateTypes(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		schema  map[string]any
		data    any
		wantErr bool
	}{
		{"string ok", map[string]any{"type": "string"}, "hello", false},
		{"string mismatch", map[string]any{"type": "string"}, float64(1), true},
		{"number accepts float", map[string]any{"type": "number"}, float64(1.5), false},
		{"integer accepts whole float", map[string]any{"type": "integer"}, float64(3), false},
		{"integer rejects fraction", map[string]any{"type": "integer"}, float64(3.5), true},
		{"boolean ok", map[string]any{"type": "boolean"}, true, false},
		{"array ok", map[string]any{"type": "array"}, []any{}, false},
		{"object ok", map[string]any{"type": "object"}, map[string]any{}, false},
		{"no type matches anything", map[string]any{}, float64(42), false},
		{"type array OAS 3.1", map[string]any{"type": []any{"string", "integer"}}, float64(2), false},
		{"null rejected by default", map[string]any{"type": "string"}, nil, true},
		{"nullable true allows null", map[string]any{"type": "string", "nullable": true}, nil, false},
		{"type null allows null", map[string]any{"type": []any{"string", "null"}}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.data, tt.schema, "$")
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidateStringConstraints(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		schema  map[string]any
		data    string
		wantErr bool
	}{
		{"minLength ok", map[string]any{"type": "string", "minLength": float64(2)}, "ab", false},
		{"minLength violated", map[string]any{"type": "string", "minLength": float64(3)}, "ab", true},
		{"maxLength violated", map[string]any{"type": "string", "maxLength": float64(1)}, "ab", true},
		{"pattern ok", map[string]any{"type": "string", "pattern": "^[a-z]+$"}, "abc", false},
		{"pattern violated", map[string]any{"type": "string", "pattern": "^[a-z]+$"}, "ABC", true},
		{"invalid pattern reported", map[string]any{"type": "string", "pattern": "(["}, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.data, tt.schema, "$")
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidateNumberConstraints(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		schema  map[string]any
		data    float64
		wantErr bool
	}{
		{"minimum ok", map[string]any{"minimum": float64(1)}, 1, false},
		{"minimum violated", map[string]any{"minimum": float64(2)}, 1, true},
		{"exclusiveMinimum rejects equal", map[string]any{"minimum": float64(1), "exclusiveMinimum": true}, 1, true},
		{"maximum violated", map[string]any{"maximum": float64(10)}, 11, true},
		{"exclusiveMaximum rejects equal", map[string]any{"maximum": float64(10), "exclusiveMaximum": true}, 10, true},
		{"multipleOf ok", map[string]any{"multipleOf": float64(5)}, 15, false},
		{"multipleOf violated", map[string]any{"multipleOf": float64(5)}, 7, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.data, tt.schema, "$")
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidateObject(t *testing.T) {
	v := New()

	schema := map[string]any{
		"type":     "object",
		"required": []any{"id", "name"},
		"properties": map[string]any{
			"id":   map[string]any{"type": "string"},
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "integer", "minimum": float64(0)},
		},
	}

	t.Run("valid object", func(t *testing.T) {
		data := decode(t, `{"id": "svc-1", "name": "Advice", "age": 3}`)
		assert.Empty(t, v.Validate(data, schema, "$"))
	})

	t.Run("missing required property", func(t *testing.T) {
		data := decode(t, `{"id": "svc-1"}`)
		errs := v.Validate(data, schema, "$")
		require.Len(t, errs, 1)
		assert.Equal(t, "$.name", errs[0].Path)
		assert.Contains(t, errs[0].Message, "required")
	})

	t.Run("nested property violation carries its path", func(t *testing.T) {
		data := decode(t, `{"id": "svc-1", "name": "Advice", "age": -1}`)
		errs := v.Validate(data, schema, "$")
		require.Len(t, errs, 1)
		assert.Equal(t, "$.age", errs[0].Path)
	})

	t.Run("additionalProperties false", func(t *testing.T) {
		strict := map[string]any{
			"type":                 "object",
			"properties":           map[string]any{"id": map[string]any{"type": "string"}},
			"additionalProperties": false,
		}
		data := decode(t, `{"id": "x", "extra": 1}`)
		errs := v.Validate(data, strict, "$")
		require.Len(t, errs, 1)
		assert.Equal(t, "$.extra", errs[0].Path)
	})
}

func TestValidateArray(t *testing.T) {
	v := New()

	schema := map[string]any{
		"type":     "array",
		"minItems": float64(1),
		"maxItems": float64(3),
		"items":    map[string]any{"type": "string"},
	}

	t.Run("valid array", func(t *testing.T) {
		assert.Empty(t, v.Validate([]any{"a", "b"}, schema, "$"))
	})

	t.Run("item violation has indexed path", func(t *testing.T) {
		errs := v.Validate([]any{"a", float64(2)}, schema, "$")
		require.Len(t, errs, 1)
		assert.Equal(t, "$[1]", errs[0].Path)
	})

	t.Run("too few items", func(t *testing.T) {
		assert.NotEmpty(t, v.Validate([]any{}, schema, "$"))
	})

	t.Run("uniqueItems", func(t *testing.T) {
		unique := map[string]any{"type": "array", "uniqueItems": true}
		assert.NotEmpty(t, v.Validate([]any{"a", "a"}, unique, "$"))
		assert.Empty(t, v.Validate([]any{"a", "b"}, unique, "$"))
	})
}

func TestValidateEnum(t *testing.T) {
	v := New()
	schema := map[string]any{"enum": []any{"active", "inactive"}}

	assert.Empty(t, v.Validate("active", schema, "$"))
	assert.NotEmpty(t, v.Validate("deleted", schema, "$"))
}

func TestValidateComposition(t *testing.T) {
	v := New()

	t.Run("allOf", func(t *testing.T) {
		schema := map[string]any{
			"allOf": []any{
				map[string]any{"type": "string", "minLength": float64(2)},
				map[string]any{"type": "string", "maxLength": float64(4)},
			},
		}
		assert.Empty(t, v.Validate("abc", schema, "$"))
		assert.NotEmpty(t, v.Validate("toolong", schema, "$"))
	})

	t.Run("anyOf", func(t *testing.T) {
		schema := map[string]any{
			"anyOf": []any{
				map[string]any{"type": "string"},
				map[string]any{"type": "integer"},
			},
		}
		assert.Empty(t, v.Validate("hello", schema, "$"))
		assert.Empty(t, v.Validate(float64(3), schema, "$"))
		assert.NotEmpty(t, v.Validate(true, schema, "$"))
	})

	t.Run("oneOf exactly one", func(t *testing.T) {
		schema := map[string]any{
			"oneOf": []any{
				map[string]any{"type": "number", "minimum": float64(0)},
				map[string]any{"type": "number", "maximum": float64(10)},
			},
		}
		// 20 matches only the first, -5 only the second: both valid.
		assert.Empty(t, v.Validate(float64(20), schema, "$"))
		// 5 matches both: invalid.
		assert.NotEmpty(t, v.Validate(float64(5), schema, "$"))
	})
}

func TestValidateFormatsAreWarnings(t *testing.T) {
	v := New()

	tests := []struct {
		format  string
		valid   string
		invalid string
	}{
		{"email", "team@example.org", "not-an-email"},
		{"uri", "https://example.org/x", "not a uri"},
		{"date", "2024-03-01", "01/03/2024"},
		{"date-time", "2024-03-01T10:00:00Z", "2024-03-01"},
		{"uuid", "123e4567-e89b-12d3-a456-426614174000", "not-a-uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			schema := map[string]any{"type": "string", "format": tt.format}

			assert.Empty(t, v.Validate(tt.valid, schema, "$"))

			errs := v.Validate(tt.invalid, schema, "$")
			require.Len(t, errs, 1)
			assert.False(t, errs[0].IsError(), "format violations must be warnings")
		})
	}

	t.Run("unknown format ignored", func(t *testing.T) {
		schema := map[string]any{"type": "string", "format": "hostname"}
		assert.Empty(t, v.Validate("anything", schema, "$"))
	})
}

func TestValidateCycleStubMatchesAnything(t *testing.T) {
	v := New()
	stub := map[string]any{"$ref": "#/components/schemas/Organization"}

	assert.Empty(t, v.Validate("string", stub, "$"))
	assert.Empty(t, v.Validate(map[string]any{"k": 1}, stub, "$"))
	assert.Empty(t, v.Validate(nil, stub, "$"))
}

func TestValidateResultSplitsBySeverity(t *testing.T) {
	v := New()

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":    map[string]any{"type": "string"},
			"email": map[string]any{"type": "string", "format": "email"},
		},
		"required": []any{"id"},
	}

	result := v.ValidateResult(decode(t, `{"email": "bad"}`), schema)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "$.id", result.Errors[0].Path)
	assert.Equal(t, "$.email", result.Warnings[0].Path)

	clean := v.ValidateResult(decode(t, `{"id": "x", "email": "a@b.org"}`), schema)
	assert.True(t, clean.Valid)
	assert.Empty(t, clean.Errors)
	assert.Empty(t, clean.Warnings)
}

func TestResultAddHelpers(t *testing.T) {
	result := &Result{Valid: true}

	result.AddWarning("$.a", "soft problem", "SOME_CODE")
	assert.True(t, result.Valid, "warnings do not invalidate")

	result.AddError("$.b", "hard problem", "")
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 1)
	assert.Len(t, result.Warnings, 1)
}

func TestPatternCacheReuse(t *testing.T) {
	v := New()
	schema := map[string]any{"type": "string", "pattern": "^svc-[0-9]+$"}

	for i := 0; i < 5; i++ {
		assert.Empty(t, v.Validate(fmt.Sprintf("svc-%d", i), schema, "$"))
	}
	assert.NotEmpty(t, v.Validate("other", schema, "$"))
}

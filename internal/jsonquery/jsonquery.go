// Package jsonquery provides typed accessors over decoded JSON trees
// (map[string]any / []any as produced by encoding/json and yaml).
//
// It replaces deep optional-chaining through nested untyped documents with a
// single lookup style returning (value, ok), used uniformly by schema
// extraction, identifier extraction and pagination inspection:
//
//	schema, ok := jsonquery.GetMap(op, "responses", "200", "content", "application/json", "schema")
package jsonquery

// Get walks the given object keys from v and returns the value found.
// Every intermediate step must be a map[string]any; a missing key or a
// non-object intermediate returns (nil, false).
func Get(v any, keys ...string) (any, bool) {
	current := v
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := m[key]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// GetMap is Get constrained to an object result.
func GetMap(v any, keys ...string) (map[string]any, bool) {
	val, ok := Get(v, keys...)
	if !ok {
		return nil, false
	}
	m, ok := val.(map[string]any)
	return m, ok
}

// GetArray is Get constrained to an array result.
func GetArray(v any, keys ...string) ([]any, bool) {
	val, ok := Get(v, keys...)
	if !ok {
		return nil, false
	}
	arr, ok := val.([]any)
	return arr, ok
}

// GetString is Get constrained to a string result.
func GetString(v any, keys ...string) (string, bool) {
	val, ok := Get(v, keys...)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// GetBool is Get constrained to a boolean result.
func GetBool(v any, keys ...string) (bool, bool) {
	val, ok := Get(v, keys...)
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// GetNumber is Get constrained to a numeric result. JSON numbers decode as
// float64 but yaml may produce int/int64/uint64; all are widened here.
func GetNumber(v any, keys ...string) (float64, bool) {
	val, ok := Get(v, keys...)
	if !ok {
		return 0, false
	}
	return AsNumber(val)
}

// AsNumber widens any numeric JSON/YAML scalar to float64.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

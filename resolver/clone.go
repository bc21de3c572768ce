package resolver

// deepClone returns a deep copy of a decoded JSON value. Maps and slices are
// copied recursively; scalars are returned as-is. Resolution is copy-on-write,
// so every cached subtree is cloned on reuse to prevent a mutation through
// one cache entry from contaminating another.
func deepClone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepClone(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepClone(item)
		}
		return out
	default:
		return val
	}
}

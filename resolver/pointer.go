package resolver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// lookupPointer resolves a JSON Pointer ("#/path/to/node") against a decoded
// document per RFC 6901. Each segment is URI-decoded and then has the ~1 and
// ~0 escapes expanded. Array segments must be non-negative integer indices.
func lookupPointer(doc map[string]any, ref string) (any, error) {
	pointer := strings.TrimPrefix(ref, "#")
	if pointer == "" || pointer == "/" {
		return doc, nil
	}

	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")

	current := any(doc)
	for i, part := range parts {
		part = decodePointerSegment(part)

		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, fmt.Errorf("reference not found: #/%s (missing key: %s)", strings.Join(parts[:i+1], "/"), part)
			}
			current = next

		case []any:
			index, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid array index %q in reference: #/%s", part, strings.Join(parts[:i+1], "/"))
			}
			if index < 0 || index >= len(v) {
				return nil, fmt.Errorf("array index %d out of bounds (length %d) in reference: #/%s", index, len(v), strings.Join(parts[:i+1], "/"))
			}
			current = v[index]

		default:
			return nil, fmt.Errorf("cannot traverse into type %T at #/%s", v, strings.Join(parts[:i], "/"))
		}
	}

	return current, nil
}

// decodePointerSegment URI-decodes a pointer segment and expands the JSON
// Pointer escapes: per RFC 6901, ~1 represents / and ~0 represents ~.
func decodePointerSegment(token string) string {
	if decoded, err := url.PathUnescape(token); err == nil {
		token = decoded
	}
	token = strings.ReplaceAll(token, "~1", "/")
	token = strings.ReplaceAll(token, "~0", "~")
	return token
}

// joinRefURL resolves an external reference against the current base URI.
// Absolute URLs pass through unchanged; relative paths are joined against
// the directory of the base URL. The fragment, if any, is preserved.
func joinRefURL(baseURL, ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	if baseURL == "" {
		return "", fmt.Errorf("relative reference %q requires a base URL", ref)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}

	return base.ResolveReference(rel).String(), nil
}

// splitRefFragment splits an external reference into its URL part and the
// JSON Pointer fragment ("" when absent).
func splitRefFragment(ref string) (urlPart, fragment string) {
	parts := strings.SplitN(ref, "#", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return ref, ""
}

// isInternalRef reports whether ref is an internal JSON Pointer into the
// document being resolved.
func isInternalRef(ref string) bool {
	return strings.HasPrefix(ref, "#")
}

package endpoint

import (
	"strings"

	"github.com/tpximpact/oruk-validator-sub000/internal/jsonquery"
)

// OptionalTag is the OpenAPI tag (matched case-insensitively) that marks an
// operation as permitted to be unimplemented without failing validation.
const OptionalTag = "optional"

// Descriptor describes one testable (path, method) pair of an OpenAPI
// document, together with the derived flags the orchestrator keys on.
type Descriptor struct {
	// Path is the OpenAPI path template (e.g., "/services/{id}").
	Path string

	// Method is the uppercase HTTP method (e.g., "GET").
	Method string

	// Operation is the decoded OpenAPI operation object.
	Operation map[string]any

	// PathItem is the decoded path item the operation belongs to. Kept for
	// path-level parameters, which merge with operation-level ones.
	PathItem map[string]any

	// IsParameterized is true when the path contains a {param} segment.
	IsParameterized bool

	// IsOptional is true when the operation carries the "Optional" tag
	// (case-insensitive).
	IsOptional bool

	// RootPath is the path truncated before the first {param} segment,
	// "/" when the first segment is already parameterized.
	RootPath string
}

// newDescriptor builds a Descriptor for one operation, deriving the
// parameterization, optionality and root-path fields.
func newDescriptor(path, method string, operation, pathItem map[string]any) *Descriptor {
	return &Descriptor{
		Path:            path,
		Method:          strings.ToUpper(method),
		Operation:       operation,
		PathItem:        pathItem,
		IsParameterized: isParameterized(path),
		IsOptional:      hasOptionalTag(operation),
		RootPath:        rootPath(path),
	}
}

// isParameterized reports whether the path template contains a {param}
// segment.
func isParameterized(path string) bool {
	return strings.Contains(path, "{")
}

// rootPath returns all path segments before the first {param} segment.
// A path whose first segment is parameterized roots at "/".
func rootPath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	var kept []string
	for _, seg := range segments {
		if strings.Contains(seg, "{") {
			break
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/")
}

// hasOptionalTag reports whether the operation is tagged "Optional",
// case-insensitively.
func hasOptionalTag(operation map[string]any) bool {
	tags, ok := jsonquery.GetArray(operation, "tags")
	if !ok {
		return false
	}
	for _, t := range tags {
		if s, ok := t.(string); ok && strings.EqualFold(s, OptionalTag) {
			return true
		}
	}
	return false
}

// Parameters returns the merged path-level and operation-level parameter
// list. Operation-level parameters override path-level parameters with the
// same name and location.
func (d *Descriptor) Parameters() []map[string]any {
	merged := make(map[string]map[string]any)
	order := make([]string, 0, 4)

	add := func(params []any) {
		for _, p := range params {
			param, ok := p.(map[string]any)
			if !ok {
				continue
			}
			name, _ := jsonquery.GetString(param, "name")
			in, _ := jsonquery.GetString(param, "in")
			key := in + ":" + name
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = param
		}
	}

	if pathParams, ok := jsonquery.GetArray(d.PathItem, "parameters"); ok {
		add(pathParams)
	}
	if opParams, ok := jsonquery.GetArray(d.Operation, "parameters"); ok {
		add(opParams)
	}

	result := make([]map[string]any, 0, len(order))
	for _, key := range order {
		result = append(result, merged[key])
	}
	return result
}

// SupportsPagination reports whether the merged parameter list declares a
// query parameter named "page" (case-insensitive). Cursor- and offset-based
// pagination schemes are not detected and are treated as non-paginated.
func (d *Descriptor) SupportsPagination() bool {
	for _, param := range d.Parameters() {
		name, _ := jsonquery.GetString(param, "name")
		in, _ := jsonquery.GetString(param, "in")
		if in == "query" && strings.EqualFold(name, "page") {
			return true
		}
	}
	return false
}

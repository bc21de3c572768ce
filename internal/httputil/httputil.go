// Package httputil provides HTTP-related helpers shared by the endpoint
// grouping and endpoint testing packages.
package httputil

import "strings"

// HTTP method keys as they appear (lowercase) in an OpenAPI path item.
const (
	MethodGet     = "get"
	MethodPut     = "put"
	MethodPost    = "post"
	MethodDelete  = "delete"
	MethodOptions = "options"
	MethodHead    = "head"
	MethodPatch   = "patch"
	MethodTrace   = "trace"
)

// operationMethods is the set of path-item keys that denote operations.
// Everything else on a path item (parameters, summary, description,
// servers, $ref, x-* extensions) is metadata, not an operation.
var operationMethods = map[string]bool{
	MethodGet:     true,
	MethodPut:     true,
	MethodPost:    true,
	MethodDelete:  true,
	MethodOptions: true,
	MethodHead:    true,
	MethodPatch:   true,
	MethodTrace:   true,
}

// IsOperationMethod reports whether key is a recognized HTTP method key
// of an OpenAPI path item. The comparison is case-insensitive.
func IsOperationMethod(key string) bool {
	return operationMethods[strings.ToLower(key)]
}

// IsSuccessStatus reports whether an HTTP status code indicates success (2xx).
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}

// Package schemavalidator validates decoded JSON data against resolved
// JSON Schema / OpenAPI schema trees.
//
// Schemas are plain decoded documents (map[string]any) as produced by the
// resolver package; all $ref expansion must happen before validation.
// The validator implements the subset of JSON Schema used by OpenAPI
// response schemas: types, string/number/array/object constraints, enum,
// and the allOf/anyOf/oneOf compositions. Unexpanded {"$ref": ...} stubs
// (deliberately preserved cycle edges) match any value.
package schemavalidator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tpximpact/oruk-validator-sub000/internal/issues"
	"github.com/tpximpact/oruk-validator-sub000/internal/jsonquery"
	"github.com/tpximpact/oruk-validator-sub000/internal/severity"
)

// ValidationError represents a single schema validation issue.
type ValidationError = issues.Issue

// Severity levels re-exported for convenience.
const (
	SeverityError   = severity.SeverityError
	SeverityWarning = severity.SeverityWarning
)

// Result contains the outcome of validating one value against one schema.
type Result struct {
	// Valid is true when no error-severity issues were found.
	Valid bool

	// Errors contains error-severity issues.
	Errors []ValidationError

	// Warnings contains warning-severity issues (format violations,
	// endpoint-level advisories injected by the orchestrator).
	Warnings []ValidationError
}

// AddWarning appends a warning-severity issue to the result.
func (r *Result) AddWarning(path, message, code string) {
	r.Warnings = append(r.Warnings, ValidationError{
		Path:     path,
		Message:  message,
		Code:     code,
		Severity: SeverityWarning,
	})
}

// AddError appends an error-severity issue and marks the result invalid.
func (r *Result) AddError(path, message, code string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Path:     path,
		Message:  message,
		Code:     code,
		Severity: SeverityError,
	})
}

// Validator validates data values against resolved schema trees.
// A single Validator is safe for concurrent use.
type Validator struct {
	// patternCache caches compiled regex patterns (sync.Map[string, *regexp.Regexp])
	patternCache sync.Map

	// patternCount tracks the approximate number of cached patterns for size capping
	patternCount atomic.Int32
}

// New creates a new schema Validator.
func New() *Validator {
	return &Validator{}
}

// ValidateResult validates data against schema and returns a Result with
// issues split by severity.
func (v *Validator) ValidateResult(data any, schema map[string]any) *Result {
	result := &Result{Valid: true}
	for _, issue := range v.Validate(data, schema, "$") {
		if issue.IsError() {
			result.Valid = false
			result.Errors = append(result.Errors, issue)
		} else {
			result.Warnings = append(result.Warnings, issue)
		}
	}
	return result
}

// Validate validates data against a resolved schema tree.
// Returns a slice of validation errors (empty if valid).
func (v *Validator) Validate(data any, schema map[string]any, path string) []ValidationError {
	if len(schema) == 0 {
		return nil
	}

	// A preserved cycle stub constrains nothing.
	if _, isStub := schema["$ref"].(string); isStub && len(schema) == 1 {
		return nil
	}

	var errors []ValidationError

	// Handle nullable
	if data == nil {
		if v.isNullable(schema) {
			return nil
		}
		errors = append(errors, ValidationError{
			Path:     path,
			Message:  "value cannot be null",
			Severity: SeverityError,
		})
		return errors
	}

	// Validate type
	typeErrors := v.validateType(data, schema, path)
	errors = append(errors, typeErrors...)

	// If type validation failed, skip constraint validation
	if len(typeErrors) > 0 {
		return errors
	}

	// Validate constraints based on data type
	switch d := data.(type) {
	case string:
		errors = append(errors, v.validateString(d, schema, path)...)
	case float64:
		errors = append(errors, v.validateNumber(d, schema, path)...)
	case int, int64:
		num, _ := jsonquery.AsNumber(d)
		errors = append(errors, v.validateNumber(num, schema, path)...)
	case bool:
		// No additional constraints for boolean
	case []any:
		errors = append(errors, v.validateArray(d, schema, path)...)
	case map[string]any:
		errors = append(errors, v.validateObject(d, schema, path)...)
	}

	// Validate enum
	if enum, ok := jsonquery.GetArray(schema, "enum"); ok && len(enum) > 0 {
		errors = append(errors, v.validateEnum(data, enum, path)...)
	}

	// Validate composition (allOf, anyOf, oneOf)
	errors = append(errors, v.validateComposition(data, schema, path)...)

	return errors
}

// isNullable checks if a schema allows null values.
func (v *Validator) isNullable(schema map[string]any) bool {
	// OAS 3.0 style: nullable: true
	if nullable, ok := jsonquery.GetBool(schema, "nullable"); ok && nullable {
		return true
	}

	// OAS 3.1+ style: type includes "null"
	for _, t := range schemaTypes(schema) {
		if t == "null" {
			return true
		}
	}

	return false
}

// validateType validates that the data matches the schema type(s).
func (v *Validator) validateType(data any, schema map[string]any, path string) []ValidationError {
	types := schemaTypes(schema)
	if len(types) == 0 {
		// No type specified, any type is valid
		return nil
	}

	dataType := dataType(data)

	for _, schemaType := range types {
		if typeMatches(dataType, schemaType) {
			// JSON has a single number type; an "integer" schema must
			// additionally reject fractional values.
			if schemaType == "integer" && dataType == "number" {
				if f, ok := data.(float64); ok && f != float64(int64(f)) {
					return []ValidationError{{
						Path:     path,
						Message:  fmt.Sprintf("value must be an integer, got %v", f),
						Severity: SeverityError,
					}}
				}
			}
			return nil
		}
	}

	return []ValidationError{{
		Path:     path,
		Message:  fmt.Sprintf("expected type %s but got %s", strings.Join(types, " or "), dataType),
		Severity: SeverityError,
	}}
}

// validateString validates string-specific constraints.
func (v *Validator) validateString(s string, schema map[string]any, path string) []ValidationError {
	var errors []ValidationError

	if minLen, ok := jsonquery.GetNumber(schema, "minLength"); ok && len(s) < int(minLen) {
		errors = append(errors, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("string length %d is less than minimum %d", len(s), int(minLen)),
			Severity: SeverityError,
		})
	}

	if maxLen, ok := jsonquery.GetNumber(schema, "maxLength"); ok && len(s) > int(maxLen) {
		errors = append(errors, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("string length %d exceeds maximum %d", len(s), int(maxLen)),
			Severity: SeverityError,
		})
	}

	if pattern, ok := jsonquery.GetString(schema, "pattern"); ok && pattern != "" {
		matched, err := v.matchPattern(pattern, s)
		if err != nil {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("invalid pattern %q: %v", pattern, err),
				Severity: SeverityError,
			})
		} else if !matched {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("string does not match pattern %q", pattern),
				Severity: SeverityError,
			})
		}
	}

	if format, ok := jsonquery.GetString(schema, "format"); ok && format != "" {
		errors = append(errors, v.validateFormat(s, format, path)...)
	}

	return errors
}

// validateNumber validates numeric constraints.
func (v *Validator) validateNumber(n float64, schema map[string]any, path string) []ValidationError {
	var errors []ValidationError

	if minimum, ok := jsonquery.GetNumber(schema, "minimum"); ok {
		excl, _ := jsonquery.GetBool(schema, "exclusiveMinimum")
		if excl && n <= minimum {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("value %v must be greater than %v", n, minimum),
				Severity: SeverityError,
			})
		} else if !excl && n < minimum {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("value %v is less than minimum %v", n, minimum),
				Severity: SeverityError,
			})
		}
	}

	if maximum, ok := jsonquery.GetNumber(schema, "maximum"); ok {
		excl, _ := jsonquery.GetBool(schema, "exclusiveMaximum")
		if excl && n >= maximum {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("value %v must be less than %v", n, maximum),
				Severity: SeverityError,
			})
		} else if !excl && n > maximum {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("value %v exceeds maximum %v", n, maximum),
				Severity: SeverityError,
			})
		}
	}

	if multipleOf, ok := jsonquery.GetNumber(schema, "multipleOf"); ok && multipleOf != 0 {
		remainder := n / multipleOf
		if remainder != float64(int64(remainder)) {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("value %v is not a multiple of %v", n, multipleOf),
				Severity: SeverityError,
			})
		}
	}

	return errors
}

// validateArray validates array-specific constraints.
func (v *Validator) validateArray(arr []any, schema map[string]any, path string) []ValidationError {
	var errors []ValidationError

	if minItems, ok := jsonquery.GetNumber(schema, "minItems"); ok && len(arr) < int(minItems) {
		errors = append(errors, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("array has %d items, minimum is %d", len(arr), int(minItems)),
			Severity: SeverityError,
		})
	}

	if maxItems, ok := jsonquery.GetNumber(schema, "maxItems"); ok && len(arr) > int(maxItems) {
		errors = append(errors, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("array has %d items, maximum is %d", len(arr), int(maxItems)),
			Severity: SeverityError,
		})
	}

	if unique, ok := jsonquery.GetBool(schema, "uniqueItems"); ok && unique && hasDuplicates(arr) {
		errors = append(errors, ValidationError{
			Path:     path,
			Message:  "array items must be unique",
			Severity: SeverityError,
		})
	}

	if itemSchema, ok := jsonquery.GetMap(schema, "items"); ok {
		for i, item := range arr {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			errors = append(errors, v.Validate(item, itemSchema, itemPath)...)
		}
	}

	return errors
}

// validateObject validates object-specific constraints.
func (v *Validator) validateObject(obj map[string]any, schema map[string]any, path string) []ValidationError {
	var errors []ValidationError

	if required, ok := jsonquery.GetArray(schema, "required"); ok {
		for _, req := range required {
			name, ok := req.(string)
			if !ok {
				continue
			}
			if _, exists := obj[name]; !exists {
				errors = append(errors, ValidationError{
					Path:     path + "." + name,
					Message:  fmt.Sprintf("required property %q is missing", name),
					Severity: SeverityError,
				})
			}
		}
	}

	if minProps, ok := jsonquery.GetNumber(schema, "minProperties"); ok && len(obj) < int(minProps) {
		errors = append(errors, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("object has %d properties, minimum is %d", len(obj), int(minProps)),
			Severity: SeverityError,
		})
	}

	if maxProps, ok := jsonquery.GetNumber(schema, "maxProperties"); ok && len(obj) > int(maxProps) {
		errors = append(errors, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("object has %d properties, maximum is %d", len(obj), int(maxProps)),
			Severity: SeverityError,
		})
	}

	properties, _ := jsonquery.GetMap(schema, "properties")
	for name, value := range obj {
		if propSchema, ok := properties[name].(map[string]any); ok {
			propPath := path + "." + name
			errors = append(errors, v.Validate(value, propSchema, propPath)...)
		}
	}

	// additionalProperties: false rejects undeclared properties
	if allowed, ok := jsonquery.GetBool(schema, "additionalProperties"); ok && !allowed {
		for name := range obj {
			if _, defined := properties[name]; !defined {
				errors = append(errors, ValidationError{
					Path:     path + "." + name,
					Message:  fmt.Sprintf("additional property %q is not allowed", name),
					Severity: SeverityError,
				})
			}
		}
	}

	return errors
}

// validateEnum validates that the value is one of the allowed enum values.
func (v *Validator) validateEnum(data any, enum []any, path string) []ValidationError {
	for _, allowed := range enum {
		if reflect.DeepEqual(data, allowed) {
			return nil
		}
	}

	return []ValidationError{{
		Path:     path,
		Message:  fmt.Sprintf("value %v is not one of the allowed values", data),
		Severity: SeverityError,
	}}
}

// validateComposition validates allOf, anyOf, oneOf.
func (v *Validator) validateComposition(data any, schema map[string]any, path string) []ValidationError {
	var errors []ValidationError

	// allOf - all schemas must match
	if allOf, ok := jsonquery.GetArray(schema, "allOf"); ok {
		for i, sub := range allOf {
			subSchema, ok := sub.(map[string]any)
			if !ok {
				continue
			}
			subErrors := v.Validate(data, subSchema, path)
			if len(subErrors) > 0 {
				errors = append(errors, ValidationError{
					Path:     path,
					Message:  fmt.Sprintf("allOf[%d] validation failed", i),
					Severity: SeverityError,
				})
				errors = append(errors, subErrors...)
			}
		}
	}

	// anyOf - at least one schema must match
	if anyOf, ok := jsonquery.GetArray(schema, "anyOf"); ok && len(anyOf) > 0 {
		matched := false
		for _, sub := range anyOf {
			subSchema, ok := sub.(map[string]any)
			if !ok {
				continue
			}
			if len(v.Validate(data, subSchema, path)) == 0 {
				matched = true
				break
			}
		}
		if !matched {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  "value does not match any of the anyOf schemas",
				Severity: SeverityError,
			})
		}
	}

	// oneOf - exactly one schema must match
	if oneOf, ok := jsonquery.GetArray(schema, "oneOf"); ok && len(oneOf) > 0 {
		matchCount := 0
		for _, sub := range oneOf {
			subSchema, ok := sub.(map[string]any)
			if !ok {
				continue
			}
			if len(v.Validate(data, subSchema, path)) == 0 {
				matchCount++
			}
		}
		if matchCount == 0 {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  "value does not match any of the oneOf schemas",
				Severity: SeverityError,
			})
		} else if matchCount > 1 {
			errors = append(errors, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("value matches %d oneOf schemas, expected exactly 1", matchCount),
				Severity: SeverityError,
			})
		}
	}

	return errors
}

// validateFormat validates common string formats. Format violations are
// warnings, matching JSON Schema's treatment of format as an annotation.
func (v *Validator) validateFormat(s, format, path string) []ValidationError {
	var message string
	switch format {
	case "email":
		if !isValidEmail(s) {
			message = fmt.Sprintf("%q is not a valid email address", s)
		}
	case "uri", "uri-reference":
		if !isValidURI(s) {
			message = fmt.Sprintf("%q is not a valid URI", s)
		}
	case "date":
		if !dateRegex.MatchString(s) {
			message = fmt.Sprintf("%q is not a valid date (expected YYYY-MM-DD)", s)
		}
	case "date-time":
		if !dateTimeRegex.MatchString(s) {
			message = fmt.Sprintf("%q is not a valid date-time (expected RFC 3339)", s)
		}
	case "uuid", "guid":
		if !uuidRegex.MatchString(s) {
			message = fmt.Sprintf("%q is not a valid UUID", s)
		}
	}
	// Unknown formats are ignored (as per JSON Schema spec)
	if message == "" {
		return nil
	}
	return []ValidationError{{
		Path:     path,
		Message:  message,
		Severity: SeverityWarning,
	}}
}

// maxPatternCacheSize is the upper bound on cached compiled regex patterns.
// When exceeded, the cache is cleared to prevent unbounded memory growth
// from specs with many unique patterns.
const maxPatternCacheSize = 1000

// matchPattern compiles and matches a regex pattern, caching compilations.
func (v *Validator) matchPattern(pattern, s string) (bool, error) {
	if cached, ok := v.patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(s), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}

	// The count check and clear are not atomic; under high concurrency
	// multiple goroutines may clear simultaneously. The cache is a
	// performance optimization, so the worst case is extra recompilation.
	if v.patternCount.Add(1) > maxPatternCacheSize {
		v.patternCache.Range(func(key, _ any) bool {
			v.patternCache.Delete(key)
			return true
		})
		v.patternCount.Store(1)
	}
	v.patternCache.Store(pattern, re)
	return re.MatchString(s), nil
}

// Helper functions

// schemaTypes returns the type(s) declared by a schema node.
// OAS 3.0 uses a string, OAS 3.1+ may use an array of strings.
func schemaTypes(schema map[string]any) []string {
	t, ok := schema["type"]
	if !ok {
		return nil
	}

	switch typed := t.(type) {
	case string:
		return []string{typed}
	case []any:
		types := make([]string, 0, len(typed))
		for _, v := range typed {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}
		return types
	}
	return nil
}

// dataType returns the JSON Schema type of a decoded Go value.
func dataType(data any) string {
	if data == nil {
		return "null"
	}

	switch data.(type) {
	case string:
		return "string"
	case float64, float32:
		return "number"
	case int, int32, int64, uint, uint32, uint64:
		return "integer"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

// typeMatches checks if a data type satisfies a schema type.
func typeMatches(dataType, schemaType string) bool {
	if dataType == schemaType {
		return true
	}
	// "integer" is a subset of "number"
	if schemaType == "number" && dataType == "integer" {
		return true
	}
	// JSON numbers that are whole numbers can match "integer";
	// the fractional-part check happens separately.
	if schemaType == "integer" && dataType == "number" {
		return true
	}
	return false
}

// hasDuplicates checks if an array has duplicate values.
func hasDuplicates(arr []any) bool {
	seen := make(map[string]bool)
	for _, item := range arr {
		key := fmt.Sprintf("%T:%v", item, item)
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}

// Format validation helpers

var (
	uuidRegex     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	dateRegex     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimeRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func isValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

func isValidURI(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "/")
}

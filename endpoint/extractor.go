package endpoint

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tpximpact/oruk-validator-sub000/internal/jsonquery"
	"github.com/tpximpact/oruk-validator-sub000/resolver"
)

// Well-known field names used when the response schema gives no hints.
var (
	// heuristicWrapperFields are common collection-wrapper property names.
	heuristicWrapperFields = []string{"data", "items", "results", "content", "contents"}

	// heuristicIDFields are common identifier property names.
	heuristicIDFields = []string{"id", "_id", "uid", "uuid", "identifier", "key"}
)

// maxHintDepth bounds the schema walk when collecting extraction hints.
const maxHintDepth = 10

// extractionHints are the field names harvested from a response schema:
// properties that look like identifiers and properties typed as arrays
// (candidate collection wrappers).
type extractionHints struct {
	idFields      []string
	wrapperFields []string
}

// ExtractIDs inspects a JSON response body and returns candidate identifier
// values for parameterized endpoint testing.
//
// Two-tier strategy: the operation's 200-response schema is walked first
// (through properties, items and the allOf/anyOf/oneOf compositions, with
// internal $refs expanded against doc) for identifier-looking property names
// and array-typed wrapper properties; when the schema yields nothing usable,
// well-known wrapper and identifier field names are tried instead.
//
// The body may be a top-level array (every element is harvested), an object
// with a recognized array wrapper (every array element is harvested), or a
// single object (one ID at most). Values are de-duplicated preserving first
// occurrence. Extraction never fails: unparseable bodies and absent fields
// yield an empty list.
func ExtractIDs(body []byte, operation, doc map[string]any) []string {
	if !gjson.ValidBytes(body) {
		return nil
	}
	parsed := gjson.ParseBytes(body)
	hints := collectHints(ResponseSchema(operation, doc))

	var elements []gjson.Result
	switch {
	case parsed.IsArray():
		elements = parsed.Array()
	case parsed.IsObject():
		if arr, ok := findWrapperArray(parsed, hints); ok {
			elements = arr
		} else {
			// No collection wrapper: the body itself may be one resource.
			elements = []gjson.Result{parsed}
		}
	default:
		return nil
	}

	seen := make(map[string]bool)
	var ids []string
	for _, el := range elements {
		if id, ok := harvestID(el, hints); ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// ResponseSchema locates the operation's 200-response JSON schema and
// expands its internal references against doc. Both OAS 3 (content-keyed)
// and OAS 2 (schema directly under the response) layouts are understood.
// Returns nil when no schema is declared.
func ResponseSchema(operation, doc map[string]any) map[string]any {
	fragment, ok := jsonquery.Get(operation, "responses", "200", "content", "application/json", "schema")
	if !ok {
		fragment, ok = jsonquery.Get(operation, "responses", "200", "schema")
	}
	if !ok {
		return nil
	}

	resolved, _ := resolver.ResolveInDocument(doc, fragment).(map[string]any)
	return resolved
}

// collectHints walks a resolved response schema and gathers identifier-like
// property names and array-typed wrapper property names.
func collectHints(schema map[string]any) extractionHints {
	var hints extractionHints
	seenID := make(map[string]bool)
	seenWrapper := make(map[string]bool)
	walkSchema(schema, 0, &hints, seenID, seenWrapper)
	return hints
}

func walkSchema(schema map[string]any, depth int, hints *extractionHints, seenID, seenWrapper map[string]bool) {
	if schema == nil || depth > maxHintDepth {
		return
	}

	if properties, ok := jsonquery.GetMap(schema, "properties"); ok {
		for name, raw := range properties {
			propSchema, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if looksLikeIDField(name, propSchema) && !seenID[name] {
				seenID[name] = true
				hints.idFields = append(hints.idFields, name)
			}
			if propType, _ := jsonquery.GetString(propSchema, "type"); propType == "array" && !seenWrapper[name] {
				seenWrapper[name] = true
				hints.wrapperFields = append(hints.wrapperFields, name)
			}
			walkSchema(propSchema, depth+1, hints, seenID, seenWrapper)
		}
	}

	if items, ok := jsonquery.GetMap(schema, "items"); ok {
		walkSchema(items, depth+1, hints, seenID, seenWrapper)
	}

	for _, comp := range []string{"allOf", "anyOf", "oneOf"} {
		if subs, ok := jsonquery.GetArray(schema, comp); ok {
			for _, sub := range subs {
				if subSchema, ok := sub.(map[string]any); ok {
					walkSchema(subSchema, depth+1, hints, seenID, seenWrapper)
				}
			}
		}
	}
}

// looksLikeIDField reports whether a schema property looks like an
// identifier: the name ends in "id", the format is uuid/guid, or the
// description mentions an identifier.
//
// The name test deliberately requires a word boundary before the suffix
// (exact "id", camelCase "Id", or snake_case "_id"): a plain ends-with-"id"
// match would also capture words like "valid" or "paid". Lowercase compounds
// such as "serviceid" are therefore not recognized by name alone; their
// format or description can still match.
func looksLikeIDField(name string, schema map[string]any) bool {
	lower := strings.ToLower(name)
	if lower == "id" || strings.HasSuffix(name, "Id") || strings.HasSuffix(lower, "_id") {
		return true
	}
	if format, _ := jsonquery.GetString(schema, "format"); format == "uuid" || format == "guid" {
		return true
	}
	if desc, _ := jsonquery.GetString(schema, "description"); desc != "" {
		lowerDesc := strings.ToLower(desc)
		if strings.Contains(lowerDesc, "identifier") || strings.Contains(lowerDesc, "unique id") {
			return true
		}
	}
	return false
}

// findWrapperArray locates the collection array inside a response object:
// schema-derived wrapper names first, well-known names as fallback.
func findWrapperArray(obj gjson.Result, hints extractionHints) ([]gjson.Result, bool) {
	fields := obj.Map()

	for _, name := range hints.wrapperFields {
		if val, ok := fields[name]; ok && val.IsArray() {
			return val.Array(), true
		}
	}
	for _, name := range heuristicWrapperFields {
		if val, ok := fields[name]; ok && val.IsArray() {
			return val.Array(), true
		}
	}
	return nil, false
}

// harvestID extracts a single identifier from one response element:
// schema-derived field names first, well-known names as fallback.
func harvestID(el gjson.Result, hints extractionHints) (string, bool) {
	if !el.IsObject() {
		return "", false
	}
	fields := el.Map()

	for _, name := range hints.idFields {
		if id, ok := idValue(fields[name]); ok {
			return id, true
		}
	}
	for _, name := range heuristicIDFields {
		if id, ok := idValue(fields[name]); ok {
			return id, true
		}
	}
	return "", false
}

// idValue stringifies a scalar identifier value. Numbers keep their source
// representation (no exponent re-formatting); empty strings, objects,
// arrays, booleans and nulls are rejected.
func idValue(res gjson.Result) (string, bool) {
	switch res.Type {
	case gjson.String:
		if res.Str == "" {
			return "", false
		}
		return res.Str, true
	case gjson.Number:
		return res.Raw, true
	default:
		return "", false
	}
}

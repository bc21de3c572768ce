// Package resolver expands $ref pointers in JSON Schema and OpenAPI
// documents into fully self-contained documents.
//
// Resolution handles three reference kinds:
//
//   - internal JSON pointers ("#/components/schemas/Service") resolved
//     against the root of the document being resolved
//   - absolute external URLs ("https://example.org/schema.json"), fetched
//     over HTTP
//   - relative external paths ("service.json"), joined against the current
//     base URI, which changes as resolution descends into fetched documents
//
// Resolution never fails on a single bad reference. A reference that cannot
// be resolved (missing pointer target, fetch failure, cycle) degrades to an
// unexpanded {"$ref": ...} stub so that a report is still producible for the
// rest of the document. Two independent cycle-breaking layers protect
// against infinite expansion: a "currently resolving" set (A→B→A) and a
// direct self-reference check (a target whose body points straight back at
// the same pointer).
//
// Resolution is copy-on-write: the input document is never mutated, and
// cached subtrees are deep-cloned on every reuse so no node is shared
// between cache entries and output.
//
// Basic usage:
//
//	resolved, err := resolver.Resolve(ctx, doc,
//	    resolver.WithBaseURL("https://example.org/openapi.json"),
//	)
//
// For validating one response body against one operation's declared schema
// without re-resolving the whole document, use [ResolveInDocument], which
// expands only internal references against a given OpenAPI document.
package resolver

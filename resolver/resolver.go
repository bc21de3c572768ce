package resolver

import (
	"context"

	"github.com/tpximpact/oruk-validator-sub000/valerrors"
	"go.yaml.in/yaml/v4"
)

// Resolve expands every $ref in doc and returns a new, self-contained
// document. The input document is never mutated.
//
// Resolution state (external document cache, pointer cache, cycle-detection
// sets) is created fresh for this call and discarded afterwards, so
// concurrent Resolve calls never share state.
//
// Resolution never aborts on a single bad reference: a reference that cannot
// be resolved is left in the output as an unexpanded {"$ref": ...} stub and
// logged. The only error returned is a ConfigError for a nil document.
func Resolve(ctx context.Context, doc map[string]any, opts ...Option) (map[string]any, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if doc == nil {
		return nil, &valerrors.ConfigError{Field: "document", Message: "document cannot be nil"}
	}

	r := newResolution(ctx, cfg, doc)
	resolved := r.resolveValue(doc, 0)

	// The root of a document is always an object; resolveValue preserves
	// the top-level shape for map input.
	out, ok := resolved.(map[string]any)
	if !ok {
		return doc, nil
	}
	return out, nil
}

// ResolveInDocument expands internal ("#/...") references in fragment
// against the given OpenAPI document, without any external fetching. This
// supports validating one response body against one operation's declared
// schema without re-resolving the entire document each time.
//
// The same cycle protections as Resolve apply. External references and
// unresolvable pointers are left as stubs. The fragment is not mutated;
// a new tree is returned. A nil fragment yields nil.
func ResolveInDocument(doc map[string]any, fragment any, opts ...Option) any {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return fragment
		}
	}
	// Internal-only resolution: discard any configured fetcher so external
	// refs degrade to stubs instead of triggering network calls.
	cfg.fetcher = nil

	if fragment == nil {
		return nil
	}

	r := newResolution(context.Background(), cfg, doc)
	return r.resolveValue(fragment, 0)
}

// resolution is the per-call state of a single top-level Resolve:
// caches, cycle-detection sets, and the current root/base-URI, which change
// as resolution descends into fetched external documents.
type resolution struct {
	ctx context.Context
	cfg *config

	// root is the document internal pointers resolve against. It swaps to
	// the fetched document while resolving an external reference's body.
	root map[string]any

	// baseURL is the current base URI for joining relative references.
	baseURL string

	// extCache maps absolute reference (URL + fragment) to its fully
	// resolved subtree. Entries are deep-cloned on every reuse.
	extCache map[string]any

	// rawDocs caches fetched external documents by URL, stored before
	// recursing into them so a cycle back to the same URL does not trigger
	// a second fetch.
	rawDocs map[string]map[string]any

	// extResolving tracks external references currently on the recursion
	// stack; hitting one again is a cycle.
	extResolving map[string]bool

	// ptrResolving tracks internal pointers currently on the recursion
	// stack, keyed by base URI so pointers in different documents do not
	// collide. Distinct from extResolving.
	ptrResolving map[string]bool

	// ptrCache maps resolved internal pointers (keyed by base URI) to
	// their resolved subtrees.
	ptrCache map[string]any
}

func newResolution(ctx context.Context, cfg *config, root map[string]any) *resolution {
	return &resolution{
		ctx:          ctx,
		cfg:          cfg,
		root:         root,
		baseURL:      cfg.baseURL,
		extCache:     make(map[string]any),
		rawDocs:      make(map[string]map[string]any),
		extResolving: make(map[string]bool),
		ptrResolving: make(map[string]bool),
		ptrCache:     make(map[string]any),
	}
}

// refStub returns an unexpanded reference object. Stubs replace the cycle
// edge for circular references and stand in for references that could not
// be resolved.
func refStub(ref string) map[string]any {
	return map[string]any{"$ref": ref}
}

// resolveValue recursively resolves v, returning a new tree.
// Arrays resolve each element independently and preserve order.
func (r *resolution) resolveValue(v any, depth int) any {
	if depth > r.cfg.maxDepth {
		r.cfg.logger.Warn("max ref depth exceeded, leaving subtree unresolved",
			"error", &valerrors.ResourceLimitError{
				ResourceType: "ref_depth",
				Limit:        r.cfg.maxDepth,
				Actual:       int64(depth),
				Message:      "subtree left unresolved",
			})
		return deepClone(v)
	}

	switch val := v.(type) {
	case map[string]any:
		if ref, ok := val["$ref"].(string); ok {
			return r.resolveRefObject(val, ref, depth)
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.resolveValue(item, depth+1)
		}
		return out

	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.resolveValue(item, depth+1)
		}
		return out

	default:
		return val
	}
}

// resolveRefObject resolves an object carrying a $ref key. When the object
// also carries sibling keys (OpenAPI-style overlay), the resolved target's
// keys come first and the siblings, each deep-resolved too, win on conflict.
func (r *resolution) resolveRefObject(obj map[string]any, ref string, depth int) any {
	resolved := r.resolveRef(ref, depth)

	if len(obj) == 1 {
		return resolved
	}

	base, ok := resolved.(map[string]any)
	if !ok {
		// Non-object target cannot host an overlay; the siblings are
		// meaningless for it, so return the target alone.
		r.cfg.logger.Debug("dropping sibling keys of $ref with non-object target", "ref", ref)
		return resolved
	}

	merged := make(map[string]any, len(base)+len(obj)-1)
	for k, val := range base {
		merged[k] = val
	}
	for k, val := range obj {
		if k == "$ref" {
			continue
		}
		merged[k] = r.resolveValue(val, depth+1)
	}
	return merged
}

// resolveRef resolves a single reference string, internal or external.
func (r *resolution) resolveRef(ref string, depth int) any {
	if isInternalRef(ref) {
		return r.resolveInternal(ref, depth)
	}
	return r.resolveExternal(ref, depth)
}

// resolveInternal resolves a JSON Pointer against the current root document.
func (r *resolution) resolveInternal(ref string, depth int) any {
	// Pointer meaning depends on which document we are inside of.
	key := r.baseURL + "|" + ref

	if cached, ok := r.ptrCache[key]; ok {
		return deepClone(cached)
	}

	// Hard cycle: this pointer is already on the recursion stack.
	if r.ptrResolving[key] {
		r.cfg.logger.Debug("circular internal reference, leaving stub",
			"error", &valerrors.ReferenceError{Ref: ref, RefType: "internal", IsCircular: true})
		return refStub(ref)
	}

	target, err := lookupPointer(r.root, ref)
	if err != nil {
		r.cfg.logger.Warn("unresolvable internal reference, leaving stub",
			"error", &valerrors.ReferenceError{Ref: ref, RefType: "internal", Cause: err})
		return refStub(ref)
	}

	// Direct self-reference: the target's body points straight back at the
	// same pointer. Expanding it would never terminate.
	if tm, ok := target.(map[string]any); ok {
		if tr, ok := tm["$ref"].(string); ok && tr == ref {
			r.cfg.logger.Debug("self-referencing schema, leaving stub",
				"error", &valerrors.ReferenceError{Ref: ref, RefType: "internal", IsCircular: true})
			return refStub(ref)
		}
	}

	r.ptrResolving[key] = true
	resolved := r.resolveValue(target, depth+1)
	delete(r.ptrResolving, key)

	r.ptrCache[key] = resolved
	return deepClone(resolved)
}

// resolveExternal fetches and resolves an external reference, updating the
// base URI and pointer root for the duration of resolving the fetched
// document's body.
func (r *resolution) resolveExternal(ref string, depth int) any {
	if r.cfg.fetcher == nil {
		r.cfg.logger.Debug("no fetcher configured, leaving external reference as stub", "ref", ref)
		return refStub(ref)
	}
	if err := r.ctx.Err(); err != nil {
		r.cfg.logger.Warn("resolution cancelled, leaving external reference as stub", "ref", ref)
		return refStub(ref)
	}

	abs, err := joinRefURL(r.baseURL, ref)
	if err != nil {
		r.cfg.logger.Warn("unresolvable external reference, leaving stub",
			"error", &valerrors.ReferenceError{Ref: ref, RefType: "external", Cause: err})
		return refStub(ref)
	}

	if cached, ok := r.extCache[abs]; ok {
		return deepClone(cached)
	}

	// Hard cycle: this URL is already being resolved further up the stack.
	if r.extResolving[abs] {
		r.cfg.logger.Debug("circular external reference, leaving stub", "url", abs,
			"error", &valerrors.ReferenceError{Ref: ref, RefType: "external", IsCircular: true})
		return refStub(ref)
	}

	urlPart, fragment := splitRefFragment(abs)

	extDoc, ok := r.rawDocs[urlPart]
	if !ok {
		data, err := r.cfg.fetcher(r.ctx, urlPart)
		if err != nil {
			r.cfg.logger.Warn("failed to fetch external reference, leaving stub", "url", urlPart,
				"error", &valerrors.ReferenceError{Ref: ref, RefType: "external", Cause: err})
			return refStub(ref)
		}
		// The YAML parser handles both YAML and JSON payloads.
		if err := yaml.Unmarshal(data, &extDoc); err != nil {
			r.cfg.logger.Warn("failed to parse external reference, leaving stub", "url", urlPart,
				"error", &valerrors.ReferenceError{
					Ref:     ref,
					RefType: "external",
					Cause:   &valerrors.ParseError{Source: urlPart, Cause: err},
				})
			return refStub(ref)
		}
		// Cache the raw fetch before recursing so a cycle back to this
		// exact URL sees the document instead of fetching again.
		r.rawDocs[urlPart] = extDoc
	}

	target := any(extDoc)
	if fragment != "" {
		target, err = lookupPointer(extDoc, "#"+fragment)
		if err != nil {
			r.cfg.logger.Warn("fragment not found in external document, leaving stub", "url", urlPart,
				"error", &valerrors.ReferenceError{Ref: ref, RefType: "external", Cause: err})
			return refStub(ref)
		}
	}

	r.extResolving[abs] = true
	prevRoot, prevBase := r.root, r.baseURL
	r.root, r.baseURL = extDoc, urlPart

	resolved := r.resolveValue(target, depth+1)

	r.root, r.baseURL = prevRoot, prevBase
	delete(r.extResolving, abs)

	r.extCache[abs] = resolved
	return deepClone(resolved)
}

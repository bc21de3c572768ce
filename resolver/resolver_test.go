package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpximpact/oruk-validator-sub000/valerrors"
)

// recordingLogger captures logged attributes so structured error values can
// be asserted on.
type recordingLogger struct {
	mu    sync.Mutex
	attrs []any
}

func (l *recordingLogger) record(attrs []any) {
	l.mu.Lock()
	l.attrs = append(l.attrs, attrs...)
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(_ string, attrs ...any) { l.record(attrs) }
func (l *recordingLogger) Info(_ string, attrs ...any)  { l.record(attrs) }
func (l *recordingLogger) Warn(_ string, attrs ...any)  { l.record(attrs) }
func (l *recordingLogger) Error(_ string, attrs ...any) { l.record(attrs) }
func (l *recordingLogger) With(_ ...any) Logger         { return l }

// firstMatch returns the first logged error value matching target.
func (l *recordingLogger) firstMatch(target error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, attr := range l.attrs {
		if err, ok := attr.(error); ok && errors.Is(err, target) {
			return err
		}
	}
	return nil
}

func TestResolveNilDocument(t *testing.T) {
	_, err := Resolve(context.Background(), nil)
	require.Error(t, err)

	var cfgErr *valerrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, valerrors.ErrConfig)
}

func TestResolveInternalRefs(t *testing.T) {
	tests := []struct {
		name     string
		doc      map[string]any
		path     func(resolved map[string]any) any
		expected any
	}{
		{
			name: "simple component reference",
			doc: map[string]any{
				"paths": map[string]any{
					"/services": map[string]any{
						"get": map[string]any{
							"responses": map[string]any{
								"200": map[string]any{
									"schema": map[string]any{"$ref": "#/definitions/Service"},
								},
							},
						},
					},
				},
				"definitions": map[string]any{
					"Service": map[string]any{"type": "object"},
				},
			},
			path: func(resolved map[string]any) any {
				return dig(resolved, "paths", "/services", "get", "responses", "200", "schema", "type")
			},
			expected: "object",
		},
		{
			name: "nested reference chain",
			doc: map[string]any{
				"root": map[string]any{"$ref": "#/a"},
				"a":    map[string]any{"$ref": "#/b"},
				"b":    map[string]any{"value": "end"},
			},
			path: func(resolved map[string]any) any {
				return dig(resolved, "root", "value")
			},
			expected: "end",
		},
		{
			name: "reference into array element",
			doc: map[string]any{
				"root": map[string]any{"$ref": "#/list/1"},
				"list": []any{"zero", "one"},
			},
			path: func(resolved map[string]any) any {
				return resolved["root"]
			},
			expected: "one",
		},
		{
			name: "escaped pointer segments",
			doc: map[string]any{
				"root":  map[string]any{"$ref": "#/paths/~1services~1{id}"},
				"paths": map[string]any{"/services/{id}": map[string]any{"kind": "pathItem"}},
			},
			path: func(resolved map[string]any) any {
				return dig(resolved, "root", "kind")
			},
			expected: "pathItem",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := Resolve(context.Background(), tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tt.path(resolved))
		})
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	doc := map[string]any{
		"root": map[string]any{"$ref": "#/target"},
		"target": map[string]any{
			"type": "object",
		},
	}

	resolved, err := Resolve(context.Background(), doc)
	require.NoError(t, err)

	// The input still carries the unexpanded reference.
	assert.Equal(t, map[string]any{"$ref": "#/target"}, doc["root"])

	// Mutating the output must not leak back into the input's shared target.
	resolved["target"].(map[string]any)["type"] = "mutated"
	assert.Equal(t, "object", doc["target"].(map[string]any)["type"])
}

func TestResolveUnresolvableRefLeavesStub(t *testing.T) {
	doc := map[string]any{
		"root": map[string]any{"$ref": "#/definitions/Missing"},
	}

	resolved, err := Resolve(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$ref": "#/definitions/Missing"}, resolved["root"])
}

func TestResolveSelfReferenceLeavesStub(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{"$ref": "#/a"},
	}

	resolved, err := Resolve(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$ref": "#/a"}, resolved["a"])
}

func TestResolveMutualCycleTerminates(t *testing.T) {
	// Organization refers to Service which refers back to Organization.
	doc := map[string]any{
		"definitions": map[string]any{
			"Organization": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"services": map[string]any{"$ref": "#/definitions/Service"},
				},
			},
			"Service": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"organization": map[string]any{"$ref": "#/definitions/Organization"},
				},
			},
		},
		"root": map[string]any{"$ref": "#/definitions/Organization"},
	}

	resolved, err := Resolve(context.Background(), doc)
	require.NoError(t, err)

	// One level expands; the cycle edge is replaced by a stub somewhere
	// below, never an infinite tree.
	root, ok := resolved["root"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", root["type"])

	service := dig(root, "properties", "services")
	require.NotNil(t, service)
	assert.Equal(t, "object", service.(map[string]any)["type"])
}

func TestResolveIdempotent(t *testing.T) {
	// Acyclic references expand fully on the first pass; only stubs for
	// missing targets remain, and those re-stub identically.
	doc := map[string]any{
		"definitions": map[string]any{
			"A": map[string]any{
				"properties": map[string]any{
					"b": map[string]any{"$ref": "#/definitions/B"},
				},
			},
			"B": map[string]any{"type": "object"},
		},
		"root":    map[string]any{"$ref": "#/definitions/A"},
		"missing": map[string]any{"$ref": "#/nowhere"},
	}

	once, err := Resolve(context.Background(), doc)
	require.NoError(t, err)

	twice, err := Resolve(context.Background(), once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestResolveSiblingOverlay(t *testing.T) {
	doc := map[string]any{
		"root": map[string]any{
			"$ref":        "#/definitions/Service",
			"description": "overridden description",
			"extra":       true,
		},
		"definitions": map[string]any{
			"Service": map[string]any{
				"type":        "object",
				"description": "original description",
			},
		},
	}

	resolved, err := Resolve(context.Background(), doc)
	require.NoError(t, err)

	root, ok := resolved["root"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", root["type"], "target keys are kept")
	assert.Equal(t, "overridden description", root["description"], "sibling keys win on conflict")
	assert.Equal(t, true, root["extra"])
	assert.NotContains(t, root, "$ref")
}

func TestResolveExternalRefs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/schemas/service.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"type": "object", "properties": {"id": {"type": "string"}}}`)
	})
	mux.HandleFunc("/schemas/common.yaml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "definitions:\n  Link:\n    type: string\n")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	doc := map[string]any{
		// Absolute URL reference.
		"service": map[string]any{"$ref": server.URL + "/schemas/service.json"},
		// Relative reference joined against the base URL, with a fragment.
		"link": map[string]any{"$ref": "common.yaml#/definitions/Link"},
	}

	resolved, err := Resolve(context.Background(), doc,
		WithBaseURL(server.URL+"/schemas/openapi.json"),
		WithHTTPFetcher(NewHTTPFetcher(server.Client())),
	)
	require.NoError(t, err)

	assert.Equal(t, "object", dig(resolved, "service", "type"))
	assert.Equal(t, "string", dig(resolved, "service", "properties", "id", "type"))
	assert.Equal(t, "string", dig(resolved, "link", "type"))
}

func TestResolveExternalDocumentFetchedOnce(t *testing.T) {
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches++
		fmt.Fprint(w, `{"definitions": {"A": {"type": "string"}, "B": {"type": "integer"}}}`)
	}))
	defer server.Close()

	doc := map[string]any{
		"a": map[string]any{"$ref": server.URL + "/ext.json#/definitions/A"},
		"b": map[string]any{"$ref": server.URL + "/ext.json#/definitions/B"},
	}

	resolved, err := Resolve(context.Background(), doc,
		WithHTTPFetcher(NewHTTPFetcher(server.Client())))
	require.NoError(t, err)

	assert.Equal(t, "string", dig(resolved, "a", "type"))
	assert.Equal(t, "integer", dig(resolved, "b", "type"))
	assert.Equal(t, 1, fetches, "same document should be fetched once")
}

func TestResolveExternalFetchFailureLeavesStub(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ref := server.URL + "/missing.json"
	doc := map[string]any{"root": map[string]any{"$ref": ref}}

	resolved, err := Resolve(context.Background(), doc,
		WithHTTPFetcher(NewHTTPFetcher(server.Client())))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$ref": ref}, resolved["root"])
}

func TestResolveExternalWithoutFetcherLeavesStub(t *testing.T) {
	doc := map[string]any{
		"root": map[string]any{"$ref": "https://example.org/ext.json#/definitions/A"},
	}

	resolved, err := Resolve(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, doc["root"], resolved["root"])
}

func TestResolveInternalPointersInExternalDocument(t *testing.T) {
	// The external document's own internal pointers must resolve against the
	// external document, not against the root.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"definitions": {
				"Outer": {"properties": {"inner": {"$ref": "#/definitions/Inner"}}},
				"Inner": {"type": "boolean"}
			}
		}`)
	}))
	defer server.Close()

	doc := map[string]any{
		"root": map[string]any{"$ref": server.URL + "/ext.json#/definitions/Outer"},
		"definitions": map[string]any{
			// Deliberate decoy: a root-level Inner with a different type.
			"Inner": map[string]any{"type": "string"},
		},
	}

	resolved, err := Resolve(context.Background(), doc,
		WithHTTPFetcher(NewHTTPFetcher(server.Client())))
	require.NoError(t, err)

	assert.Equal(t, "boolean", dig(resolved, "root", "properties", "inner", "type"))
}

func TestResolveMaxDepth(t *testing.T) {
	doc := map[string]any{
		"root": map[string]any{"$ref": "#/a"},
		"a":    map[string]any{"$ref": "#/b"},
		"b":    map[string]any{"value": true},
	}

	resolved, err := Resolve(context.Background(), doc, WithMaxDepth(1))
	require.NoError(t, err)

	// Depth 1 allows one expansion; the chain beyond stays stubbed.
	assert.Equal(t, map[string]any{"$ref": "#/b"}, resolved["root"])
}

func TestResolveInDocument(t *testing.T) {
	doc := map[string]any{
		"components": map[string]any{
			"schemas": map[string]any{
				"Service": map[string]any{"type": "object"},
			},
		},
	}

	t.Run("internal fragment resolves", func(t *testing.T) {
		fragment := map[string]any{"$ref": "#/components/schemas/Service"}
		resolved := ResolveInDocument(doc, fragment)
		assert.Equal(t, map[string]any{"type": "object"}, resolved)
	})

	t.Run("external refs stay stubbed even with a fetcher", func(t *testing.T) {
		fragment := map[string]any{"$ref": "https://example.org/ext.json"}
		resolved := ResolveInDocument(doc, fragment,
			WithHTTPFetcher(func(_ context.Context, _ string) ([]byte, error) {
				t.Fatal("fetcher must not be called")
				return nil, nil
			}))
		assert.Equal(t, fragment, resolved)
	})

	t.Run("nil fragment yields nil", func(t *testing.T) {
		assert.Nil(t, ResolveInDocument(doc, nil))
	})
}

func TestResolveLogsStructuredErrors(t *testing.T) {
	t.Run("unresolvable internal reference", func(t *testing.T) {
		logger := &recordingLogger{}
		doc := map[string]any{"root": map[string]any{"$ref": "#/missing"}}

		_, err := Resolve(context.Background(), doc, WithLogger(logger))
		require.NoError(t, err)

		logged := logger.firstMatch(valerrors.ErrReference)
		require.NotNil(t, logged)

		var refErr *valerrors.ReferenceError
		require.ErrorAs(t, logged, &refErr)
		assert.Equal(t, "#/missing", refErr.Ref)
		assert.Equal(t, "internal", refErr.RefType)
		assert.False(t, refErr.IsCircular)
	})

	t.Run("circular reference", func(t *testing.T) {
		logger := &recordingLogger{}
		doc := map[string]any{
			"a": map[string]any{"next": map[string]any{"$ref": "#/b"}},
			"b": map[string]any{"next": map[string]any{"$ref": "#/a"}},
		}

		_, err := Resolve(context.Background(), doc, WithLogger(logger))
		require.NoError(t, err)

		assert.NotNil(t, logger.firstMatch(valerrors.ErrCircularReference))
	})

	t.Run("depth limit", func(t *testing.T) {
		logger := &recordingLogger{}
		doc := map[string]any{
			"a": map[string]any{"b": map[string]any{"c": map[string]any{"d": true}}},
		}

		_, err := Resolve(context.Background(), doc, WithLogger(logger), WithMaxDepth(1))
		require.NoError(t, err)

		logged := logger.firstMatch(valerrors.ErrResourceLimit)
		require.NotNil(t, logged)

		var limitErr *valerrors.ResourceLimitError
		require.ErrorAs(t, logged, &limitErr)
		assert.Equal(t, "ref_depth", limitErr.ResourceType)
		assert.Equal(t, 1, limitErr.Limit)
	})

	t.Run("unparseable external document", func(t *testing.T) {
		logger := &recordingLogger{}
		doc := map[string]any{"schema": map[string]any{"$ref": "https://example.org/ext.json"}}

		_, err := Resolve(context.Background(), doc,
			WithLogger(logger),
			WithHTTPFetcher(func(_ context.Context, _ string) ([]byte, error) {
				return []byte("\t{{{ not a document"), nil
			}))
		require.NoError(t, err)

		// The reference failure unwraps to the underlying parse failure.
		logged := logger.firstMatch(valerrors.ErrReference)
		require.NotNil(t, logged)
		assert.ErrorIs(t, logged, valerrors.ErrParse)

		var parseErr *valerrors.ParseError
		require.ErrorAs(t, logged, &parseErr)
		assert.Equal(t, "https://example.org/ext.json", parseErr.Source)
	})
}

// dig walks nested map[string]any values by key, returning nil when any
// step is missing.
func dig(m map[string]any, keys ...string) any {
	current := any(m)
	for _, key := range keys {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[key]
	}
	return current
}

package endpoint

import (
	"sort"

	"github.com/tpximpact/oruk-validator-sub000/internal/httputil"
)

// Group holds the endpoints sharing one root path. Collection endpoints are
// probed first so their responses can seed identifier values for the
// parameterized endpoints of the same root.
type Group struct {
	// RootPath is the shared path prefix (e.g., "/services").
	RootPath string

	// CollectionEndpoints are non-parameterized GET operations under the
	// root path, in deterministic (path, method) order.
	CollectionEndpoints []*Descriptor

	// ParameterizedEndpoints are operations whose path contains a {param}
	// segment, in deterministic (path, method) order.
	ParameterizedEndpoints []*Descriptor
}

// GroupPaths partitions an OpenAPI paths object into dependency groups
// keyed by root path. Only recognized HTTP method keys are enumerated;
// path-level metadata keys (parameters, summary, description, servers,
// $ref, extensions) are skipped. Groups that end up with zero endpoints are
// dropped. Grouping is a pure function of the paths map; no network I/O.
//
// Non-GET operations on non-parameterized paths (e.g. POST /services) land
// in no group at all: they require a request body that cannot be
// synthesized, so they are excluded from testing rather than reported as
// untestable.
//
// The returned groups are sorted by RootPath, and the endpoint lists within
// each group are sorted by path then method, so reports are stable across
// runs.
func GroupPaths(paths map[string]any) []*Group {
	byRoot := make(map[string]*Group)

	for path, rawItem := range paths {
		pathItem, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}

		for key, rawOp := range pathItem {
			if !httputil.IsOperationMethod(key) {
				continue
			}
			operation, ok := rawOp.(map[string]any)
			if !ok {
				continue
			}

			desc := newDescriptor(path, key, operation, pathItem)

			group, ok := byRoot[desc.RootPath]
			if !ok {
				group = &Group{RootPath: desc.RootPath}
				byRoot[desc.RootPath] = group
			}

			switch {
			case desc.IsParameterized:
				group.ParameterizedEndpoints = append(group.ParameterizedEndpoints, desc)
			case desc.Method == "GET":
				group.CollectionEndpoints = append(group.CollectionEndpoints, desc)
			default:
				// Non-GET operations on non-parameterized paths require a
				// request body we cannot synthesize; they are not probed.
			}
		}
	}

	groups := make([]*Group, 0, len(byRoot))
	for _, group := range byRoot {
		if len(group.CollectionEndpoints) == 0 && len(group.ParameterizedEndpoints) == 0 {
			continue
		}
		sortEndpoints(group.CollectionEndpoints)
		sortEndpoints(group.ParameterizedEndpoints)
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].RootPath < groups[j].RootPath
	})
	return groups
}

// sortEndpoints orders descriptors by path, then method, for stable output.
func sortEndpoints(endpoints []*Descriptor) {
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Path != endpoints[j].Path {
			return endpoints[i].Path < endpoints[j].Path
		}
		return endpoints[i].Method < endpoints[j].Method
	})
}

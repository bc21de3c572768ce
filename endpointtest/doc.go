// Package endpointtest drives live HTTP probes of an API against its
// resolved OpenAPI document.
//
// Testing proceeds in two phases per endpoint group. Phase 1 probes the
// group's collection endpoints sequentially and harvests identifier values
// from their responses into a shared store. Phase 2 probes the group's
// parameterized endpoints concurrently, substituting the harvested IDs into
// the path templates, bounded by a per-group semaphore. The sequential
// Phase 1 guarantees the store is fully populated for a root path before any
// Phase 2 read, without per-key synchronization.
//
// Each probe runs the pagination sub-protocol when the endpoint declares a
// "page" query parameter, and classifies the outcome with awareness of
// endpoints tagged Optional.
package endpointtest

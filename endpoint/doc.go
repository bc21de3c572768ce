// Package endpoint models the testable surface of an OpenAPI document.
//
// It partitions the paths object into dependency groups (collection
// endpoints vs. parameterized endpoints, keyed by root path) and harvests
// candidate identifier values from live collection responses so that
// parameterized endpoints can be driven with real IDs.
package endpoint

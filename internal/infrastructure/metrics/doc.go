// Package metrics exposes the service's Prometheus instrumentation.
//
// A single Collector owns a private registry holding request, cache,
// event feed and hub error metrics, all under the habridge namespace.
// The Collector satisfies the small metrics interfaces declared by the
// packages it observes, so those packages never import Prometheus types.
package metrics

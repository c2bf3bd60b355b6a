// Package metrics exposes Prometheus instruments for the repository
// registry: load, flush, purge and prune outcomes plus the number of cached
// repositories.
//
// A nil *Metrics is valid and records nothing, so packages can accept one
// without guarding every call site.
package metrics

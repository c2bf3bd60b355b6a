// Package keylock hands out one mutex per identifier string so that compound
// operations on the same identifier are serialized while operations on
// different identifiers never contend.
//
// Handles are created lazily on first use and kept for the lifetime of the
// Registry. The identifier space is bounded by the namespaces, versions and
// repository kinds actually in use, so the map does not grow without bound in
// practice.
package keylock

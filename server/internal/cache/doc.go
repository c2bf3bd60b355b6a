// Package cache holds the live repository instances, keyed by identifier.
//
// Cache wraps github.com/patrickmn/go-cache with expiration and the janitor
// disabled: entries live until they are removed explicitly. Keys returns a
// point-in-time copy that is safe to range over while other goroutines keep
// mutating the cache.
//
// The cache offers no atomicity across calls. Check-then-act sequences
// (find-or-create, check-then-flush) must be guarded by the caller, which in
// this server is the per-identifier lock taken by package repo.
package cache

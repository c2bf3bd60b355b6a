// Package repo is the repository registry: it hands out at most one live
// Repository per (namespace, version, kind) identifier, hydrates new
// instances from the store, flushes dirty ones back, and purges or prunes
// them on request.
//
// Every create, load, flush and purge of an identifier runs under that
// identifier's keyed lock (package keylock), so operations on one identifier
// are totally ordered while different identifiers proceed in parallel. There
// is no registry-wide lock.
//
// The registry never interprets repository content. What a repository
// persists is whatever its Dump returns, stored byte-for-byte under the
// identifier as key.
//
// Scheduler drives the periodic FlushAll and PurgeOlderThan passes.
package repo

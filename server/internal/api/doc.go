// Package api implements the HTTP admin and data API for tlb-server.
//
// New(registry, cfg) returns an http.Handler that serves:
//
//	GET    /api/v1/health                              registry status
//	GET    /api/v1/repos                               cached repositories
//	DELETE /api/v1/repos/{id}                          purge one repository
//	POST   /api/v1/flush                               persist dirty repositories now
//	POST   /api/v1/prune?days=N                        drop suite time versions older than N days
//	GET    /api/v1/data/{kind}/{namespace}/{version}   entries of one repository
//	POST   /api/v1/data/{kind}/{namespace}/{version}   record entries (JSON array)
//
// Every response is JSON. Wrong methods get 405. Mutating routes are wrapped
// with Config.Protect (normally auth.APIKeyMiddleware).
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api

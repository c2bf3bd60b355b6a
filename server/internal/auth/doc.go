// Package auth provides API key authentication for tlb-server.
//
// APIKeyInterceptor and APIKeyStreamInterceptor guard the gRPC server;
// APIKeyMiddleware guards the mutating HTTP routes. All three share the same
// rule: when mode != "apikey" or key == "", everything passes through (local
// development with auth disabled). Otherwise the named header must carry
// exactly key.
//
// gRPC methods whose full name starts with one of the public prefixes (for
// example "/grpc.health.v1.Health/") bypass the check so orchestrator probes
// need no credentials.
package auth

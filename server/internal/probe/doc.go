// Package probe exposes the standard gRPC health service for the registry
// process. Orchestrators poll it to learn whether the server still accepts
// work; it reports SERVING from startup until Shutdown is called.
package probe

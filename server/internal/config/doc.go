// Package config loads the tlb-server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort                 port for the admin API, metrics and WebSocket hub (default 8080)
//   - GRPCPort                 port for the gRPC health service (default 50051)
//   - LogLevel                 debug | info | warn | error (default info)
//   - Auth.Mode                "apikey" or "none"
//   - Auth.KeyEnv              environment variable holding the expected API key
//   - Auth.Header              gRPC metadata/HTTP header name (default "x-api-key")
//   - Store.Driver             fs | memory | s3 | sqlite (default fs)
//   - Store.Dir                flat directory used by the fs driver (default ./tlb-data)
//   - Flush.Interval           how often dirty repositories are written back (default 5m)
//   - Retention.VersionLifeDays  age after which frozen versions are pruned (default 7)
//   - Retention.PruneInterval  how often pruning runs (default 1h)
//   - Stats.Interval           WebSocket broadcast interval (default 5s)
//
// Load(path) applies defaults before unmarshalling, then validates.
// ApplyEnv overlays the TLB_* environment variables on a loaded Config.
// Watch(ctx, path, onChange) reloads the file whenever it changes.
package config

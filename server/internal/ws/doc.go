// Package ws implements the WebSocket stats hub for tlb-server.
//
// Hub pushes the registry status (the GET /api/v1/health payload) to every
// connected client on a fixed interval (server.stats.interval, default 5s).
//
// New(registry, driver, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker and blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection, sends the current status
// immediately, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "stats",
//	  "data":  { /* same schema as GET /api/v1/health */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy. The server mounts the hub at /ws/stats.
package ws

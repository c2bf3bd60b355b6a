package probe

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service is the name the registry reports its own status under, next to the
// overall "" entry.
const Service = "tlb.Registry"

// Probe wraps a gRPC health server.
type Probe struct {
	health *health.Server
}

// New returns a Probe that reports SERVING for both the overall server and
// Service.
func New() *Probe {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(Service, healthpb.HealthCheckResponse_SERVING)
	return &Probe{health: h}
}

// Register attaches the health service to srv. With withReflection set the
// server also answers reflection requests so grpcurl can discover it.
func (p *Probe) Register(srv *grpc.Server, withReflection bool) {
	healthpb.RegisterHealthServer(srv, p.health)
	if withReflection {
		reflection.Register(srv)
	}
}

// SetServing flips the Service status without touching the overall entry.
func (p *Probe) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	p.health.SetServingStatus(Service, status)
	slog.Debug("probe: status changed", "service", Service, "status", status.String())
}

// Shutdown marks every service NOT_SERVING. Later status updates are ignored.
func (p *Probe) Shutdown() {
	p.health.Shutdown()
	slog.Info("probe: reporting NOT_SERVING")
}

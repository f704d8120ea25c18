package grpc_control

import (
	"context"
	"net"
	"time"

	datasource "stock-forecast/src/data_source"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the overall health entry; each historical source also gets
// its own "source/<name>" entry.
const ServiceName = "stock-forecast"

// ControlService exposes the standard gRPC health protocol for the server
// and its historical sources.
type ControlService struct {
	Health  *health.Server
	Sources *datasource.MultiSourceManager
	Logger  *logger.Logger
	server  *grpc.Server
}

// NewControlService creates a new instance of ControlService
func NewControlService(sources *datasource.MultiSourceManager, log *logger.Logger) *ControlService {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &ControlService{
		Health:  hs,
		Sources: sources,
		Logger:  log,
		server:  gs,
	}
}

// -----------------------------------------------------------------------------

// Serve blocks until Stop is called or the listener fails.
func (s *ControlService) Serve(lis net.Listener) error {
	s.Logger.Info("gRPC health service listening on %s", lis.Addr())
	return s.server.Serve(lis)
}

// -----------------------------------------------------------------------------

func (s *ControlService) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus(ServiceName, status)
	s.Health.SetServingStatus("", status)
}

// -----------------------------------------------------------------------------

// ProbeSource fetches sel from the named source and records the outcome as
// that source's health.
func (s *ControlService) ProbeSource(ctx context.Context, name string, sel models.MSelection, timeout time.Duration) error {
	src, err := s.Sources.GetSource(name)
	if err != nil {
		return err
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	_, err = src.FetchHistory(probeCtx, sel)
	cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.Logger.Warning("Probe of source %s failed: %v", name, err)
	}
	s.Health.SetServingStatus("source/"+name, status)
	return err
}

// -----------------------------------------------------------------------------

// ProbeSources probes every source and returns the number of healthy ones.
func (s *ControlService) ProbeSources(ctx context.Context, sel models.MSelection, timeout time.Duration) int {
	healthy := 0
	for _, src := range s.Sources.GetAllSources() {
		if s.ProbeSource(ctx, src.Name(), sel, timeout) == nil {
			healthy++
		}
	}
	return healthy
}

// -----------------------------------------------------------------------------

// Stop flips every entry to NOT_SERVING and drains in-flight RPCs.
func (s *ControlService) Stop() {
	s.Health.Shutdown()
	s.server.GracefulStop()
}
